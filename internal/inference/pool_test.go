package inference

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"
)

func TestPoolRunsSubmittedTasks(t *testing.T) {
	p := NewPool(2, 8, zap.NewNop())

	var ran atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		if err := p.Submit(func() {
			ran.Add(1)
			wg.Done()
		}); err != nil {
			t.Fatalf("submit failed: %v", err)
		}
	}
	wg.Wait()
	p.Close()

	if got := ran.Load(); got != 8 {
		t.Fatalf("expected 8 tasks to run, got %d", got)
	}
}

func TestPoolRejectsWhenSaturated(t *testing.T) {
	p := NewPool(1, 1, zap.NewNop())
	defer p.Close()

	block := make(chan struct{})
	release := make(chan struct{})
	if err := p.Submit(func() {
		close(block)
		<-release
	}); err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	<-block

	// Worker is busy; fill the one queue slot.
	if err := p.Submit(func() {}); err != nil {
		t.Fatalf("queued submit failed: %v", err)
	}

	err := p.Submit(func() {})
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	close(release)
}

func TestPoolRejectsAfterClose(t *testing.T) {
	p := NewPool(1, 1, zap.NewNop())
	p.Close()

	if err := p.Submit(func() {}); !errors.Is(err, ErrPoolClosed) {
		t.Fatalf("expected ErrPoolClosed, got %v", err)
	}
}
