package memory

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"esurat/backend/internal/domain"
	"esurat/backend/internal/storage"
)

func newLetter(id string) *domain.Letter {
	return &domain.Letter{
		ID:        id,
		Number:    "001/SK/2025",
		Title:     "Surat Keputusan",
		CreatorID: "creator-1",
		Status:    domain.StatusDraft,
		QRHash:    "qr-" + id,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func TestLetterCRUD(t *testing.T) {
	store := NewStore()

	letter := newLetter("l1")
	require.NoError(t, store.SaveLetter(letter))

	t.Run("按 ID 查询", func(t *testing.T) {
		got, err := store.GetLetter("l1")
		require.NoError(t, err)
		assert.Equal(t, letter.Title, got.Title)

		// 返回的是副本，修改不影响库内数据
		got.Title = "tampered"
		again, err := store.GetLetter("l1")
		require.NoError(t, err)
		assert.Equal(t, letter.Title, again.Title)
	})

	t.Run("按验证标识查询", func(t *testing.T) {
		got, err := store.GetLetterByQRHash("qr-l1")
		require.NoError(t, err)
		assert.Equal(t, "l1", got.ID)

		_, err = store.GetLetterByQRHash("unknown")
		assert.ErrorIs(t, err, storage.ErrLetterNotFound)
	})

	t.Run("按创建人查询按时间倒序", func(t *testing.T) {
		older := newLetter("l0")
		older.CreatedAt = time.Now().Add(-time.Hour)
		require.NoError(t, store.SaveLetter(older))

		letters, err := store.ListLettersByCreator("creator-1")
		require.NoError(t, err)
		require.Len(t, letters, 2)
		assert.Equal(t, "l1", letters[0].ID)
		assert.Equal(t, "l0", letters[1].ID)
	})

	t.Run("删除后查询失败且验证标识失效", func(t *testing.T) {
		require.NoError(t, store.DeleteLetter("l1"))

		_, err := store.GetLetter("l1")
		assert.ErrorIs(t, err, storage.ErrLetterNotFound)
		_, err = store.GetLetterByQRHash("qr-l1")
		assert.ErrorIs(t, err, storage.ErrLetterNotFound)

		assert.ErrorIs(t, store.DeleteLetter("l1"), storage.ErrLetterNotFound)
	})
}

func TestCommitTransition(t *testing.T) {
	t.Run("预期状态不符时整体失败", func(t *testing.T) {
		store := NewStore()
		letter := newLetter("l1")
		letter.Status = domain.StatusDraft
		require.NoError(t, store.SaveLetter(letter))

		updated := *letter
		updated.Status = domain.StatusPendingSign
		err := store.CommitTransition(&domain.TransitionCommit{
			Letter:         &updated,
			ExpectedStatus: domain.StatusPendingApproval, // 库内实际是 draft
		})
		assert.ErrorIs(t, err, storage.ErrStatusConflict)

		got, err := store.GetLetter("l1")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusDraft, got.Status)
	})

	t.Run("审批记录已非 pending 时失败", func(t *testing.T) {
		store := NewStore()
		letter := newLetter("l1")
		letter.Status = domain.StatusPendingApproval
		require.NoError(t, store.SaveLetter(letter))

		row := &domain.LetterApprover{ID: "a1", LetterID: "l1", UserID: "u1", Order: 1, Status: domain.ApproverApproved}
		require.NoError(t, store.SaveLetterApprovers("l1", []*domain.LetterApprover{row}))

		approved := *row
		err := store.CommitTransition(&domain.TransitionCommit{
			Letter:         letter,
			ExpectedStatus: domain.StatusPendingApproval,
			Approver:       &approved,
		})
		assert.ErrorIs(t, err, storage.ErrApproverConflict)
	})

	t.Run("成功时公文、审批记录与日志一并写入", func(t *testing.T) {
		store := NewStore()
		letter := newLetter("l1")
		letter.Status = domain.StatusPendingApproval
		require.NoError(t, store.SaveLetter(letter))

		row := &domain.LetterApprover{ID: "a1", LetterID: "l1", UserID: "u1", Order: 1, Status: domain.ApproverPending}
		require.NoError(t, store.SaveLetterApprovers("l1", []*domain.LetterApprover{row}))

		updated := *letter
		updated.Status = domain.StatusPendingSign
		approved := *row
		approved.Status = domain.ApproverApproved
		err := store.CommitTransition(&domain.TransitionCommit{
			Letter:         &updated,
			ExpectedStatus: domain.StatusPendingApproval,
			Approver:       &approved,
			Log: &domain.ActivityLog{
				ID:       "log-1",
				LetterID: "l1",
				UserID:   "u1",
				Action:   domain.ActivityApprove,
			},
		})
		require.NoError(t, err)

		got, err := store.GetLetter("l1")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPendingSign, got.Status)

		rows, err := store.ListLetterApprovers("l1")
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, domain.ApproverApproved, rows[0].Status)

		logs, err := store.ListActivities("l1")
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, domain.ActivityApprove, logs[0].Action)

		// 二次提交同一审批记录应冲突
		err = store.CommitTransition(&domain.TransitionCommit{
			Letter:         &updated,
			ExpectedStatus: domain.StatusPendingSign,
			Approver:       &approved,
		})
		assert.ErrorIs(t, err, storage.ErrApproverConflict)
	})
}

func TestListLetterApproversSorted(t *testing.T) {
	store := NewStore()
	rows := []*domain.LetterApprover{
		{ID: "a3", LetterID: "l1", UserID: "u3", Order: 9, Status: domain.ApproverPending},
		{ID: "a1", LetterID: "l1", UserID: "u1", Order: 1, Status: domain.ApproverPending},
		{ID: "a2", LetterID: "l1", UserID: "u2", Order: 5, Status: domain.ApproverPending},
	}
	require.NoError(t, store.SaveLetterApprovers("l1", rows))

	got, err := store.ListLetterApprovers("l1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []int{1, 5, 9}, []int{got[0].Order, got[1].Order, got[2].Order})
}

func TestConsumeMagicLink(t *testing.T) {
	t.Run("只能消费一次", func(t *testing.T) {
		store := NewStore()
		require.NoError(t, store.SaveMagicLink(&domain.MagicLink{
			Token:     "tok-1",
			LetterID:  "l1",
			Action:    domain.ActionApprove,
			ExpiresAt: time.Now().Add(time.Hour),
		}))

		require.NoError(t, store.ConsumeMagicLink("tok-1"))
		assert.ErrorIs(t, store.ConsumeMagicLink("tok-1"), storage.ErrLinkUsed)

		link, err := store.GetMagicLinkByToken("tok-1")
		require.NoError(t, err)
		assert.True(t, link.IsUsed)
	})

	t.Run("不存在的令牌", func(t *testing.T) {
		store := NewStore()
		assert.ErrorIs(t, store.ConsumeMagicLink("missing"), storage.ErrLinkNotFound)
	})

	t.Run("并发消费只有一个成功", func(t *testing.T) {
		store := NewStore()
		require.NoError(t, store.SaveMagicLink(&domain.MagicLink{
			Token:     "tok-race",
			ExpiresAt: time.Now().Add(time.Hour),
		}))

		const workers = 16
		var wg sync.WaitGroup
		results := make(chan error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results <- store.ConsumeMagicLink("tok-race")
			}()
		}
		wg.Wait()
		close(results)

		success := 0
		for err := range results {
			if err == nil {
				success++
			} else {
				assert.ErrorIs(t, err, storage.ErrLinkUsed)
			}
		}
		assert.Equal(t, 1, success)
	})
}

func TestDeleteExpiredMagicLinks(t *testing.T) {
	store := NewStore()
	now := time.Now()

	require.NoError(t, store.SaveMagicLink(&domain.MagicLink{Token: "expired", ExpiresAt: now.Add(-time.Minute)}))
	require.NoError(t, store.SaveMagicLink(&domain.MagicLink{Token: "alive", ExpiresAt: now.Add(time.Hour)}))

	count, err := store.DeleteExpiredMagicLinks(now)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = store.GetMagicLinkByToken("expired")
	assert.ErrorIs(t, err, storage.ErrLinkNotFound)
	_, err = store.GetMagicLinkByToken("alive")
	assert.NoError(t, err)
}

func TestUserRepository(t *testing.T) {
	store := NewStore()

	user := &domain.User{
		ID:       "u1",
		Name:     "Budi Santoso",
		Username: "budi",
		Phone:    "+6281234567890",
		Role:     domain.RoleKepsta,
		IsActive: true,
	}
	require.NoError(t, store.SaveUser(user))

	t.Run("用户名唯一", func(t *testing.T) {
		dup := &domain.User{ID: "u2", Username: "budi"}
		assert.ErrorIs(t, store.SaveUser(dup), storage.ErrUsernameExists)

		// 同一用户重复保存（更新）允许
		user.Name = "Budi S."
		assert.NoError(t, store.SaveUser(user))
	})

	t.Run("按用户名查询", func(t *testing.T) {
		got, err := store.GetUserByUsername("budi")
		require.NoError(t, err)
		assert.Equal(t, "u1", got.ID)

		_, err = store.GetUserByUsername("missing")
		assert.ErrorIs(t, err, storage.ErrUserNotFound)
	})

	t.Run("按角色查询仅返回激活用户", func(t *testing.T) {
		inactive := &domain.User{ID: "u3", Username: "inactive", Role: domain.RoleKepsta, IsActive: false}
		require.NoError(t, store.SaveUser(inactive))
		staff := &domain.User{ID: "u4", Username: "staff", Role: domain.RoleStaff, IsActive: true}
		require.NoError(t, store.SaveUser(staff))

		users, err := store.ListUsersByRole(domain.RoleKepsta)
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, "u1", users[0].ID)
	})
}
