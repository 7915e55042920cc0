package sql

import (
	"errors"

	"gorm.io/gorm"

	"esurat/backend/internal/domain"
	"esurat/backend/internal/storage"
)

// SaveLetter 保存公文（存在则整体更新）。
func (s *Store) SaveLetter(letter *domain.Letter) error {
	return s.gorm.Save(letter).Error
}

// GetLetter 根据 ID 获取公文。
func (s *Store) GetLetter(id string) (*domain.Letter, error) {
	var letter domain.Letter
	if err := s.gorm.First(&letter, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrLetterNotFound
		}
		return nil, err
	}
	return &letter, nil
}

// GetLetterByQRHash 根据验证标识获取公文。
func (s *Store) GetLetterByQRHash(qrHash string) (*domain.Letter, error) {
	var letter domain.Letter
	if err := s.gorm.First(&letter, "qr_hash = ?", qrHash).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrLetterNotFound
		}
		return nil, err
	}
	return &letter, nil
}

// ListLettersByCreator 按创建人查询公文。
func (s *Store) ListLettersByCreator(creatorID string) ([]domain.Letter, error) {
	var letters []domain.Letter
	err := s.gorm.
		Where("creator_id = ?", creatorID).
		Order("created_at DESC").
		Find(&letters).Error
	return letters, err
}

// DeleteLetter 删除公文及其关联数据。
func (s *Store) DeleteLetter(id string) error {
	return s.gorm.Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&domain.Letter{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return storage.ErrLetterNotFound
		}
		if err := tx.Delete(&domain.LetterApprover{}, "letter_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.ActivityLog{}, "letter_id = ?", id).Error
	})
}

// CommitTransition 原子提交一次状态变更。
//
// 公文更新带 status 条件，审批记录更新带 pending 条件，
// 任一未命中即回滚，保证乐观并发下不会重复推进
func (s *Store) CommitTransition(commit *domain.TransitionCommit) error {
	return s.gorm.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Letter{}).
			Where("id = ? AND status = ?", commit.Letter.ID, commit.ExpectedStatus).
			Select("*").
			Omit("created_at").
			Updates(commit.Letter)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return storage.ErrStatusConflict
		}

		if commit.Approver != nil {
			res = tx.Model(&domain.LetterApprover{}).
				Where("id = ? AND status = ?", commit.Approver.ID, domain.ApproverPending).
				Updates(map[string]interface{}{
					"status":      commit.Approver.Status,
					"approved_at": commit.Approver.ApprovedAt,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return storage.ErrApproverConflict
			}
		}

		if commit.Log != nil {
			if err := tx.Create(commit.Log).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveLetterApprovers 整体替换一份公文的审批链。
func (s *Store) SaveLetterApprovers(letterID string, approvers []*domain.LetterApprover) error {
	return s.gorm.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&domain.LetterApprover{}, "letter_id = ?", letterID).Error; err != nil {
			return err
		}
		for _, approver := range approvers {
			if err := tx.Create(approver).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// ListLetterApprovers 按顺位升序返回审批链。
func (s *Store) ListLetterApprovers(letterID string) ([]*domain.LetterApprover, error) {
	var rows []*domain.LetterApprover
	err := s.gorm.
		Where("letter_id = ?", letterID).
		Order("sort_order ASC").
		Find(&rows).Error
	return rows, err
}

// AppendActivity 追加一条审计日志。
func (s *Store) AppendActivity(log *domain.ActivityLog) error {
	return s.gorm.Create(log).Error
}

// ListActivities 按时间升序返回一份公文的审计日志。
func (s *Store) ListActivities(letterID string) ([]domain.ActivityLog, error) {
	var rows []domain.ActivityLog
	err := s.gorm.
		Where("letter_id = ?", letterID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}
