package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShardedPool_SameKeySameShard(t *testing.T) {
	p := newShardedPool(context.Background(), 4, 16, func(context.Context, int) {})
	defer p.Drain()

	for _, key := range []string{"raw.app", "raw.db", "x", ""} {
		assert.Equal(t, p.shard(key), p.shard(key), key)
	}
	assert.Equal(t, 16, p.QueueCap())
}

func TestShardedPool_DrainRunsQueuedJobs(t *testing.T) {
	var (
		mu  sync.Mutex
		got []int
	)
	p := newShardedPool(context.Background(), 1, 8, func(_ context.Context, n int) {
		mu.Lock()
		got = append(got, n)
		mu.Unlock()
	})
	for i := 0; i < 5; i++ {
		require.True(t, p.Submit("k", i))
	}
	p.Drain()

	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
	assert.False(t, p.Submit("k", 99), "submit after drain")
	assert.NotPanics(t, p.Drain)
}

func TestShardedPool_FullQueueRejects(t *testing.T) {
	block := make(chan struct{})
	started := make(chan struct{}, 1)
	p := newShardedPool(context.Background(), 1, 1, func(context.Context, int) {
		started <- struct{}{}
		<-block
	})

	require.True(t, p.Submit("k", 1))
	<-started
	require.True(t, p.Submit("k", 2))
	assert.False(t, p.Submit("k", 3))

	close(block)
	p.Drain()
}
