package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeChain(orders []int, statuses []ApproverStatus) Chain {
	chain := make(Chain, 0, len(orders))
	for i, order := range orders {
		chain = append(chain, &LetterApprover{
			ID:     "a" + string(rune('0'+i)),
			UserID: "u" + string(rune('0'+i)),
			Order:  order,
			Status: statuses[i],
		})
	}
	return chain
}

func TestChainIsEligible(t *testing.T) {
	t.Run("首位审批人可处理", func(t *testing.T) {
		chain := makeChain([]int{1, 2, 3},
			[]ApproverStatus{ApproverPending, ApproverPending, ApproverPending})

		assert.True(t, chain.IsEligible(chain[0]))
		assert.False(t, chain.IsEligible(chain[1]))
		assert.False(t, chain.IsEligible(chain[2]))
	})

	t.Run("前序通过后轮到下一位", func(t *testing.T) {
		chain := makeChain([]int{1, 2, 3},
			[]ApproverStatus{ApproverApproved, ApproverPending, ApproverPending})

		assert.False(t, chain.IsEligible(chain[0])) // 已通过，不再可处理
		assert.True(t, chain.IsEligible(chain[1]))
		assert.False(t, chain.IsEligible(chain[2]))
	})

	t.Run("前序被驳回后后序永不可处理", func(t *testing.T) {
		chain := makeChain([]int{1, 2},
			[]ApproverStatus{ApproverRejected, ApproverPending})

		assert.False(t, chain.IsEligible(chain[1]))
	})

	t.Run("顺位不连续时仅按数值比较", func(t *testing.T) {
		chain := makeChain([]int{1, 5, 9},
			[]ApproverStatus{ApproverApproved, ApproverPending, ApproverPending})

		assert.True(t, chain.IsEligible(chain[1]))
		assert.False(t, chain.IsEligible(chain[2]))
	})

	t.Run("nil 记录不可处理", func(t *testing.T) {
		chain := makeChain([]int{1}, []ApproverStatus{ApproverPending})
		assert.False(t, chain.IsEligible(nil))
	})
}

func TestChainIsFinal(t *testing.T) {
	chain := makeChain([]int{1, 2, 7},
		[]ApproverStatus{ApproverPending, ApproverPending, ApproverPending})

	assert.False(t, chain.IsFinal(chain[0]))
	assert.False(t, chain.IsFinal(chain[1]))
	assert.True(t, chain.IsFinal(chain[2]))
	assert.False(t, chain.IsFinal(nil))
}

func TestChainNextAndFirst(t *testing.T) {
	chain := makeChain([]int{1, 3, 5},
		[]ApproverStatus{ApproverApproved, ApproverPending, ApproverPending})

	first := chain.First()
	require.NotNil(t, first)
	assert.Equal(t, 1, first.Order)

	next := chain.Next(1)
	require.NotNil(t, next)
	assert.Equal(t, 3, next.Order)

	next = chain.Next(3)
	require.NotNil(t, next)
	assert.Equal(t, 5, next.Order)

	assert.Nil(t, chain.Next(5))
}

func TestChainCurrent(t *testing.T) {
	chain := makeChain([]int{1, 2},
		[]ApproverStatus{ApproverPending, ApproverPending})

	require.NotNil(t, chain.Current("u0"))
	assert.Nil(t, chain.Current("stranger"))
}

func TestParafOverride(t *testing.T) {
	page, x, y, size := 2, 0.5, 0.8, 60.0

	t.Run("完整配置返回覆盖位置", func(t *testing.T) {
		row := &LetterApprover{
			ParafPage:     &page,
			ParafXPercent: &x,
			ParafYPercent: &y,
			ParafSize:     &size,
		}
		placement, ok := row.ParafOverride()
		require.True(t, ok)
		assert.Equal(t, Placement{Page: 2, XPercent: 0.5, YPercent: 0.8, Size: 60}, placement)
	})

	t.Run("部分配置视为未覆盖", func(t *testing.T) {
		row := &LetterApprover{ParafPage: &page}
		_, ok := row.ParafOverride()
		assert.False(t, ok)
	})
}
