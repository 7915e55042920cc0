package domain

import (
	"time"
)

// ApproverStatus 审批人处理状态
type ApproverStatus string

const (
	ApproverPending  ApproverStatus = "pending"
	ApproverApproved ApproverStatus = "approved"
	ApproverRejected ApproverStatus = "rejected"
)

// LetterApprover 顺序审批链中的一个审批人
//
// Order 从 1 开始、同一公文内唯一，仅按数值比较，不要求连续
type LetterApprover struct {
	ID       string         `json:"id" gorm:"primaryKey;type:varchar(36)"`
	LetterID string         `json:"letterId" gorm:"type:varchar(36);index:idx_letter_user,unique"`
	UserID   string         `json:"userId" gorm:"type:varchar(36);index:idx_letter_user,unique"`
	Order    int            `json:"order" gorm:"column:sort_order"`
	Status   ApproverStatus `json:"status" gorm:"type:varchar(16)"`

	ApprovedAt *time.Time `json:"approvedAt,omitempty"`

	// 审批人级批签位置（可选，覆盖公文级默认值）
	ParafPage     *int     `json:"parafPage,omitempty"`
	ParafXPercent *float64 `json:"parafXPercent,omitempty"`
	ParafYPercent *float64 `json:"parafYPercent,omitempty"`
	ParafSize     *float64 `json:"parafSize,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// HasParafOverride 是否配置了审批人级批签位置
func (a *LetterApprover) HasParafOverride() bool {
	return a.ParafPage != nil && a.ParafXPercent != nil && a.ParafYPercent != nil && a.ParafSize != nil
}

// ParafOverride 返回审批人级批签位置，未配置时返回 false
func (a *LetterApprover) ParafOverride() (Placement, bool) {
	if !a.HasParafOverride() {
		return Placement{}, false
	}
	return Placement{
		Page:     *a.ParafPage,
		XPercent: *a.ParafXPercent,
		YPercent: *a.ParafYPercent,
		Size:     *a.ParafSize,
	}, true
}

// Chain 是一份公文的有序审批链，提供纯函数式的资格判定
//
// 所有判定只做数值比较，对切片顺序不敏感
type Chain []*LetterApprover

// Current 返回指定用户在链中的记录，不在链中返回 nil
func (c Chain) Current(userID string) *LetterApprover {
	for _, row := range c {
		if row.UserID == userID {
			return row
		}
	}
	return nil
}

// IsEligible 判断该记录当前是否轮到其处理
//
// 规则：自身为 pending，且不存在顺位更小且尚未通过的记录。
// 前序被驳回时后序永远无法变为可处理（前序不会到达 approved）
func (c Chain) IsEligible(row *LetterApprover) bool {
	if row == nil || row.Status != ApproverPending {
		return false
	}
	for _, other := range c {
		if other.Order < row.Order && other.Status != ApproverApproved {
			return false
		}
	}
	return true
}

// IsFinal 判断该记录是否为链中最大顺位（通过即完成整条链）
func (c Chain) IsFinal(row *LetterApprover) bool {
	if row == nil {
		return false
	}
	for _, other := range c {
		if other.Order > row.Order {
			return false
		}
	}
	return true
}

// Next 返回顺位严格大于 order 的最小 pending 记录，没有则返回 nil
func (c Chain) Next(order int) *LetterApprover {
	var next *LetterApprover
	for _, row := range c {
		if row.Order <= order || row.Status != ApproverPending {
			continue
		}
		if next == nil || row.Order < next.Order {
			next = row
		}
	}
	return next
}

// First 返回链中顺位最小的记录（提交时通知的第一个审批人）
func (c Chain) First() *LetterApprover {
	var first *LetterApprover
	for _, row := range c {
		if first == nil || row.Order < first.Order {
			first = row
		}
	}
	return first
}
