package memory

import (
	"time"

	"esurat/backend/internal/domain"
	"esurat/backend/internal/storage"
)

// SaveMagicLink 保存魔法链接。
func (s *Store) SaveMagicLink(link *domain.MagicLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *link
	s.links[link.Token] = &cp
	return nil
}

// GetMagicLinkByToken 根据令牌获取魔法链接。
func (s *Store) GetMagicLinkByToken(token string) (*domain.MagicLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	link, ok := s.links[token]
	if !ok {
		return nil, storage.ErrLinkNotFound
	}
	cp := *link
	return &cp, nil
}

// ConsumeMagicLink 将链接标记为已消费。
//
// 检查与置位在同一把锁内完成，并发消费同一令牌时只有一个调用成功
func (s *Store) ConsumeMagicLink(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.links[token]
	if !ok {
		return storage.ErrLinkNotFound
	}
	if link.IsUsed {
		return storage.ErrLinkUsed
	}
	link.IsUsed = true
	return nil
}

// DeleteExpiredMagicLinks 删除 before 之前过期的链接，返回删除数量。
func (s *Store) DeleteExpiredMagicLinks(before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for token, link := range s.links {
		if link.ExpiresAt.Before(before) {
			delete(s.links, token)
			count++
		}
	}
	return count, nil
}
