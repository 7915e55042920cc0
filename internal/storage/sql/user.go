package sql

import (
	"errors"

	"gorm.io/gorm"

	"esurat/backend/internal/domain"
	"esurat/backend/internal/storage"
)

// SaveUser 保存用户。
func (s *Store) SaveUser(user *domain.User) error {
	var existing domain.User
	err := s.gorm.First(&existing, "username = ?", user.Username).Error
	if err == nil && existing.ID != user.ID {
		return storage.ErrUsernameExists
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return s.gorm.Save(user).Error
}

// GetUserByID 根据 ID 获取用户。
func (s *Store) GetUserByID(id string) (*domain.User, error) {
	var user domain.User
	if err := s.gorm.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByUsername 根据用户名获取用户。
func (s *Store) GetUserByUsername(username string) (*domain.User, error) {
	var user domain.User
	if err := s.gorm.First(&user, "username = ?", username).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// ListUsersByRole 返回指定角色的所有激活用户。
func (s *Store) ListUsersByRole(role domain.UserRole) ([]domain.User, error) {
	var users []domain.User
	err := s.gorm.
		Where("role = ? AND is_active = ?", role, true).
		Find(&users).Error
	return users, err
}
