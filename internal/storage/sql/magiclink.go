package sql

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"esurat/backend/internal/domain"
	"esurat/backend/internal/storage"
)

// SaveMagicLink 保存魔法链接。
func (s *Store) SaveMagicLink(link *domain.MagicLink) error {
	return s.gorm.Save(link).Error
}

// GetMagicLinkByToken 根据令牌获取魔法链接。
func (s *Store) GetMagicLinkByToken(token string) (*domain.MagicLink, error) {
	var link domain.MagicLink
	if err := s.gorm.First(&link, "token = ?", token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrLinkNotFound
		}
		return nil, err
	}
	return &link, nil
}

// ConsumeMagicLink 将链接标记为已消费。
//
// 条件更新保证并发消费同一令牌时只有一个调用成功
func (s *Store) ConsumeMagicLink(token string) error {
	res := s.gorm.Model(&domain.MagicLink{}).
		Where("token = ? AND is_used = ?", token, false).
		Update("is_used", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// 区分不存在与已消费
		if _, err := s.GetMagicLinkByToken(token); err != nil {
			return err
		}
		return storage.ErrLinkUsed
	}
	return nil
}

// DeleteExpiredMagicLinks 删除 before 之前过期的链接，返回删除数量。
func (s *Store) DeleteExpiredMagicLinks(before time.Time) (int, error) {
	res := s.gorm.Delete(&domain.MagicLink{}, "expires_at < ?", before)
	return int(res.RowsAffected), res.Error
}
