package domain

import (
	"time"
)

// 活动日志动作类型
const (
	ActivityCreate  = "create"
	ActivitySubmit  = "submit"
	ActivityApprove = "approve"
	ActivityReject  = "reject"
	ActivitySign    = "sign"
	ActivityCancel  = "cancel"
	ActivityDelete  = "delete"
)

// ActivityLog 审计日志，随每次成功的状态变更追加一条，只增不改
type ActivityLog struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	LetterID    string    `json:"letterId" gorm:"type:varchar(36);index"`
	UserID      string    `json:"userId" gorm:"type:varchar(36);index"`
	Action      string    `json:"action" gorm:"type:varchar(32)"`
	Description string    `json:"description" gorm:"type:text"`
	CreatedAt   time.Time `json:"createdAt"`
}
