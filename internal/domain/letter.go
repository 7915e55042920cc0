package domain

import (
	"time"
)

// LetterStatus 公文状态
type LetterStatus string

const (
	// StatusDraft 草稿，仅创建人可见可改
	StatusDraft LetterStatus = "draft"
	// StatusPendingApproval 审批中，等待当前顺位审批人处理
	StatusPendingApproval LetterStatus = "pending_approval"
	// StatusApproved 审批链已完成（保留状态，当前流程直接进入待签署）
	StatusApproved LetterStatus = "approved"
	// StatusPendingSign 待签署，等待指定签署人上传签署版
	StatusPendingSign LetterStatus = "pending_sign"
	// StatusSigned 已签署，流程终态
	StatusSigned LetterStatus = "signed"
	// StatusRejected 已驳回，软终态（修改后通常重新创建公文）
	StatusRejected LetterStatus = "rejected"
	// StatusCancelled 已取消，软终态
	StatusCancelled LetterStatus = "cancelled"
)

// IsTerminal 是否为终态
func (s LetterStatus) IsTerminal() bool {
	return s == StatusSigned || s == StatusRejected || s == StatusCancelled
}

// IsDeletable 公文是否允许被删除
//
// 处于流程中（审批中/待签署）的公文不允许删除
func (s LetterStatus) IsDeletable() bool {
	return s == StatusDraft || s == StatusRejected || s == StatusCancelled
}

// Placement 印记在 PDF 页面上的位置
//
// XPercent/YPercent 为相对页面宽高的比例（0-1），Size 为相对固定参考页宽的点数
type Placement struct {
	Page     int     `json:"page" gorm:"default:1"`
	XPercent float64 `json:"xPercent"`
	YPercent float64 `json:"yPercent"`
	Size     float64 `json:"size"`
}

// Letter 表示一份受流程控制的公文
//
// 状态只允许通过 service.LetterService（状态机）变更
type Letter struct {
	ID        string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Number    string `json:"number" gorm:"type:varchar(100);index"`
	Title     string `json:"title" gorm:"type:varchar(255)"`
	CreatorID string `json:"creatorId" gorm:"type:varchar(36);index"`

	Status LetterStatus `json:"status" gorm:"type:varchar(32);index"`

	// 文件引用（不透明存储 URL）
	FileDraft   string `json:"fileDraft" gorm:"type:varchar(500)"`
	FileStamped string `json:"fileStamped" gorm:"type:varchar(500)"` // 盖章版，首次审批后生成
	FileFinal   string `json:"fileFinal" gorm:"type:varchar(500)"`   // 签署完成版

	// QRHash 验证标识，创建后不可变，验证页地址为 {verifyBaseUrl}/{qrHash}
	QRHash string `json:"qrHash" gorm:"type:varchar(64);uniqueIndex"`

	// QR 码印记位置
	QRPage     int     `json:"qrPage" gorm:"default:1"`
	QRXPercent float64 `json:"qrXPercent"`
	QRYPercent float64 `json:"qrYPercent"`
	QRSize     float64 `json:"qrSize"`

	// 默认批签（paraf）位置，审批人无单独配置时使用
	ParafPage     int     `json:"parafPage" gorm:"default:1"`
	ParafXPercent float64 `json:"parafXPercent"`
	ParafYPercent float64 `json:"parafYPercent"`
	ParafSize     float64 `json:"parafSize"`

	// AssignedApproverID 单审批人（遗留模式）：审批链为空时生效
	AssignedApproverID string `json:"assignedApproverId" gorm:"type:varchar(36);index"`
	// AssignedSignerID 指定签署人
	AssignedSignerID string `json:"assignedSignerId" gorm:"type:varchar(36);index"`

	RejectionReason string `json:"rejectionReason,omitempty" gorm:"type:text"`

	SubmittedAt *time.Time `json:"submittedAt,omitempty"`
	ApprovedAt  *time.Time `json:"approvedAt,omitempty"`
	SignedAt    *time.Time `json:"signedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// QRPlacement 返回 QR 码印记位置
func (l *Letter) QRPlacement() Placement {
	return Placement{
		Page:     l.QRPage,
		XPercent: l.QRXPercent,
		YPercent: l.QRYPercent,
		Size:     l.QRSize,
	}
}

// DefaultParafPlacement 返回公文级默认批签位置
func (l *Letter) DefaultParafPlacement() Placement {
	return Placement{
		Page:     l.ParafPage,
		XPercent: l.ParafXPercent,
		YPercent: l.ParafYPercent,
		Size:     l.ParafSize,
	}
}

// StampSource 返回盖章流程的源文件 URL（已有盖章版则在其上叠加）
func (l *Letter) StampSource() string {
	if l.FileStamped != "" {
		return l.FileStamped
	}
	return l.FileDraft
}
