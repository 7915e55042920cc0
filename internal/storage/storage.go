package storage

import (
	"errors"
	"time"

	"esurat/backend/internal/domain"
)

var (
	// ErrLetterNotFound 公文不存在
	ErrLetterNotFound = errors.New("letter not found")
	// ErrStatusConflict 提交时公文状态已与预期不符（乐观并发失败）
	ErrStatusConflict = errors.New("letter status conflict")
	// ErrApproverConflict 提交时审批记录已不是 pending（并发重复审批）
	ErrApproverConflict = errors.New("approver status conflict")
	// ErrLinkNotFound 魔法链接不存在
	ErrLinkNotFound = errors.New("magic link not found")
	// ErrLinkUsed 魔法链接已被消费
	ErrLinkUsed = errors.New("magic link already used")
	// ErrUserNotFound 用户不存在
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameExists 用户名已存在
	ErrUsernameExists = errors.New("username already exists")
)

// LetterRepository 定义公文数据存取操作。
type LetterRepository interface {
	SaveLetter(letter *domain.Letter) error
	GetLetter(id string) (*domain.Letter, error)
	GetLetterByQRHash(qrHash string) (*domain.Letter, error)
	ListLettersByCreator(creatorID string) ([]domain.Letter, error)
	DeleteLetter(id string) error
	CommitTransition(commit *domain.TransitionCommit) error
}

// ApproverRepository 定义审批链数据存取操作。
type ApproverRepository interface {
	SaveLetterApprovers(letterID string, approvers []*domain.LetterApprover) error
	ListLetterApprovers(letterID string) ([]*domain.LetterApprover, error)
}

// MagicLinkRepository 定义魔法链接数据存取操作。
type MagicLinkRepository interface {
	SaveMagicLink(link *domain.MagicLink) error
	GetMagicLinkByToken(token string) (*domain.MagicLink, error)
	ConsumeMagicLink(token string) error
	DeleteExpiredMagicLinks(before time.Time) (int, error) // 清理过期链接，返回删除数量
}

// ActivityRepository 定义审计日志存取操作。
type ActivityRepository interface {
	AppendActivity(log *domain.ActivityLog) error
	ListActivities(letterID string) ([]domain.ActivityLog, error)
}

// UserRepository 定义用户数据存取操作。
type UserRepository interface {
	SaveUser(user *domain.User) error
	GetUserByID(id string) (*domain.User, error)
	GetUserByUsername(username string) (*domain.User, error)
	ListUsersByRole(role domain.UserRole) ([]domain.User, error)
}

// AttemptLimitRepository 定义快捷操作尝试次数限制（OTP 防爆破）。
type AttemptLimitRepository interface {
	IncrementAttempt(key string, window time.Duration) (int64, error)
}

// Store 聚合所有存储接口
type Store interface {
	LetterRepository
	ApproverRepository
	MagicLinkRepository
	ActivityRepository
	UserRepository

	Close() error
	Health() error
}
