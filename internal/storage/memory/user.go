package memory

import (
	"esurat/backend/internal/domain"
	"esurat/backend/internal/storage"
)

// SaveUser 保存用户。
func (s *Store) SaveUser(user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existingID, ok := s.byUsername[user.Username]; ok && existingID != user.ID {
		return storage.ErrUsernameExists
	}

	cp := *user
	s.users[user.ID] = &cp
	s.byUsername[user.Username] = user.ID
	return nil
}

// GetUserByID 根据 ID 获取用户。
func (s *Store) GetUserByID(id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}

// GetUserByUsername 根据用户名获取用户。
func (s *Store) GetUserByUsername(username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[username]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	user, ok := s.users[id]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}

// ListUsersByRole 返回指定角色的所有激活用户。
func (s *Store) ListUsersByRole(role domain.UserRole) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.User
	for _, user := range s.users {
		if user.Role == role && user.IsActive {
			result = append(result, *user)
		}
	}
	return result, nil
}
