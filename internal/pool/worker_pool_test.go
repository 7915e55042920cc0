package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestWorkerPoolExecutesTasks(t *testing.T) {
	p := NewWorkerPool(4, 16, zap.NewNop())
	p.Start(context.Background())

	var count atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		p.Submit(func() {
			defer wg.Done()
			count.Add(1)
		})
	}
	wg.Wait()
	p.Stop()

	assert.Equal(t, int64(10), count.Load())
}

func TestTrySubmitQueueFull(t *testing.T) {
	// 未启动任何 worker，队列容量 1
	p := NewWorkerPool(0, 1, zap.NewNop())

	assert.True(t, p.TrySubmit(func() {}))
	assert.False(t, p.TrySubmit(func() {}))
}

func TestWorkerPoolRecoversPanic(t *testing.T) {
	p := NewWorkerPool(1, 4, zap.NewNop())
	p.Start(context.Background())

	done := make(chan struct{})
	p.Submit(func() { panic("boom") })
	p.Submit(func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive task panic")
	}
	p.Stop()
}
