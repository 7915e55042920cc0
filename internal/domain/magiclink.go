package domain

import (
	"time"
)

// LinkAction 魔法链接授权的动作类型
type LinkAction string

const (
	// ActionApprove 审批（通过或驳回）
	ActionApprove LinkAction = "approve"
	// ActionSign 上传签署版
	ActionSign LinkAction = "sign"
	// ActionDisposition 签署完成后创建批示
	ActionDisposition LinkAction = "disposition"
)

// ValidLinkAction 校验动作类型是否合法
func ValidLinkAction(action LinkAction) bool {
	switch action {
	case ActionApprove, ActionSign, ActionDisposition:
		return true
	}
	return false
}

// MagicLink 一次性、限时的远程操作凭证
//
// 可用条件：IsUsed == false 且未过期，且调用方提供匹配的 OTP。
// IsUsed 只允许 false -> true 单向变更，消费后永不复用
type MagicLink struct {
	Token    string     `json:"token" gorm:"primaryKey;type:varchar(64)"`
	UserID   string     `json:"userId" gorm:"type:varchar(36);index"`
	LetterID string     `json:"letterId" gorm:"type:varchar(36);index"`
	Action   LinkAction `json:"action" gorm:"type:varchar(16)"`
	OTPCode  string     `json:"-" gorm:"type:varchar(6)"`
	IsUsed   bool       `json:"isUsed"`

	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// Expired 判断链接在 now 时刻是否已过期
func (m *MagicLink) Expired(now time.Time) bool {
	return now.After(m.ExpiresAt)
}
