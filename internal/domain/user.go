package domain

import (
	"time"
)

// UserRole 用户角色
type UserRole string

const (
	// RoleStaff 普通职员
	RoleStaff UserRole = "staff"
	// RoleKepsta 最终签署权限角色，签署完成后默认接收批示链接
	RoleKepsta UserRole = "kepsta"
	// RoleAdmin 管理员
	RoleAdmin UserRole = "admin"
)

// User 参与公文流程的用户
//
// Phone 为 WhatsApp 通知号码（E.164 或本地格式）
type User struct {
	ID           string   `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name         string   `json:"name" gorm:"type:varchar(100)"`
	Username     string   `json:"username" gorm:"type:varchar(100);uniqueIndex"`
	PasswordHash string   `json:"-" gorm:"type:varchar(255)"`
	Phone        string   `json:"phone" gorm:"type:varchar(32)"`
	Role         UserRole `json:"role" gorm:"type:varchar(16);index"`
	IsActive     bool     `json:"isActive" gorm:"default:true"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
