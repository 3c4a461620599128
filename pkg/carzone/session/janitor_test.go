package session

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingSweeper struct {
	calls atomic.Int32
}

func (c *countingSweeper) Sweep() int {
	c.calls.Add(1)
	return 1
}

func TestJanitor(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sweeper := &countingSweeper{}

	done := make(chan struct{})
	go func() {
		defer close(done)
		Janitor(ctx, 5*time.Millisecond, map[string]Sweeper{"test": sweeper})
	}()

	assert.Eventually(t, func() bool { return sweeper.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop after cancel")
	}
}

func TestJanitorSweepsSessions(t *testing.T) {
	store := NewStore(time.Millisecond)
	store.Create()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Janitor(ctx, 5*time.Millisecond, map[string]Sweeper{"sessions": store})

	assert.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)
}
