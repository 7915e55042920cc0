package memory

import (
	"sort"
	"sync"

	"esurat/backend/internal/domain"
	"esurat/backend/internal/storage"
)

// Store 使用内存保存公文与流程数据，用于开发验证和单元测试。
type Store struct {
	mu         sync.RWMutex
	letters    map[string]*domain.Letter
	byQRHash   map[string]string                      // qrHash -> letterID
	approvers  map[string][]*domain.LetterApprover    // letterID -> rows
	links      map[string]*domain.MagicLink           // token -> link
	activities map[string][]*domain.ActivityLog       // letterID -> rows
	users      map[string]*domain.User                // userID -> user
	byUsername map[string]string                      // username -> userID
}

// NewStore 创建一个内存存储实例。
func NewStore() *Store {
	return &Store{
		letters:    make(map[string]*domain.Letter),
		byQRHash:   make(map[string]string),
		approvers:  make(map[string][]*domain.LetterApprover),
		links:      make(map[string]*domain.MagicLink),
		activities: make(map[string][]*domain.ActivityLog),
		users:      make(map[string]*domain.User),
		byUsername: make(map[string]string),
	}
}

// SaveLetter 保存公文。
func (s *Store) SaveLetter(letter *domain.Letter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *letter
	s.letters[letter.ID] = &cp
	if letter.QRHash != "" {
		s.byQRHash[letter.QRHash] = letter.ID
	}
	return nil
}

// GetLetter 根据 ID 获取公文。
func (s *Store) GetLetter(id string) (*domain.Letter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	letter, ok := s.letters[id]
	if !ok {
		return nil, storage.ErrLetterNotFound
	}
	cp := *letter
	return &cp, nil
}

// GetLetterByQRHash 根据验证标识获取公文。
func (s *Store) GetLetterByQRHash(qrHash string) (*domain.Letter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byQRHash[qrHash]
	if !ok {
		return nil, storage.ErrLetterNotFound
	}
	letter, ok := s.letters[id]
	if !ok {
		return nil, storage.ErrLetterNotFound
	}
	cp := *letter
	return &cp, nil
}

// ListLettersByCreator 按创建人查询公文。
func (s *Store) ListLettersByCreator(creatorID string) ([]domain.Letter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Letter
	for _, letter := range s.letters {
		if letter.CreatorID == creatorID {
			result = append(result, *letter)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// DeleteLetter 删除公文及其关联数据。
func (s *Store) DeleteLetter(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	letter, ok := s.letters[id]
	if !ok {
		return storage.ErrLetterNotFound
	}
	delete(s.letters, id)
	delete(s.byQRHash, letter.QRHash)
	delete(s.approvers, id)
	delete(s.activities, id)
	return nil
}

// CommitTransition 原子提交一次状态变更。
//
// 在同一把锁内重读公文状态与审批记录状态，任一与预期不符则整体失败，
// 保证并发场景下不会出现跳位审批或重复推进
func (s *Store) CommitTransition(commit *domain.TransitionCommit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.letters[commit.Letter.ID]
	if !ok {
		return storage.ErrLetterNotFound
	}
	if current.Status != commit.ExpectedStatus {
		return storage.ErrStatusConflict
	}

	var target *domain.LetterApprover
	if commit.Approver != nil {
		for _, row := range s.approvers[commit.Letter.ID] {
			if row.ID == commit.Approver.ID {
				target = row
				break
			}
		}
		if target == nil || target.Status != domain.ApproverPending {
			return storage.ErrApproverConflict
		}
	}

	cp := *commit.Letter
	s.letters[commit.Letter.ID] = &cp
	if target != nil {
		*target = *commit.Approver
	}
	if commit.Log != nil {
		logCp := *commit.Log
		s.activities[commit.Log.LetterID] = append(s.activities[commit.Log.LetterID], &logCp)
	}
	return nil
}

// SaveLetterApprovers 整体替换一份公文的审批链。
func (s *Store) SaveLetterApprovers(letterID string, approvers []*domain.LetterApprover) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]*domain.LetterApprover, 0, len(approvers))
	for _, a := range approvers {
		cp := *a
		rows = append(rows, &cp)
	}
	s.approvers[letterID] = rows
	return nil
}

// ListLetterApprovers 按顺位升序返回审批链。
func (s *Store) ListLetterApprovers(letterID string) ([]*domain.LetterApprover, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.approvers[letterID]
	result := make([]*domain.LetterApprover, 0, len(rows))
	for _, row := range rows {
		cp := *row
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Order < result[j].Order
	})
	return result, nil
}

// AppendActivity 追加一条审计日志。
func (s *Store) AppendActivity(log *domain.ActivityLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *log
	s.activities[log.LetterID] = append(s.activities[log.LetterID], &cp)
	return nil
}

// ListActivities 按时间升序返回一份公文的审计日志。
func (s *Store) ListActivities(letterID string) ([]domain.ActivityLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.activities[letterID]
	result := make([]domain.ActivityLog, 0, len(rows))
	for _, row := range rows {
		result = append(result, *row)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// Close 关闭存储（内存实现为空操作）。
func (s *Store) Close() error {
	return nil
}

// Health 健康检查。
func (s *Store) Health() error {
	return nil
}

var _ storage.Store = (*Store)(nil)
