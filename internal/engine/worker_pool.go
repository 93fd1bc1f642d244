package engine

import (
	"context"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// shardedPool runs one goroutine per shard, each draining its own bounded
// queue. Jobs with the same key always land on the same shard, so they are
// processed in submission order.
type shardedPool[T any] struct {
	shards  []chan T
	process func(ctx context.Context, t T)
	wg      sync.WaitGroup
	mu      sync.RWMutex // guards closed against Submit racing Drain
	closed  bool
}

// newShardedPool starts n shards sharing a total queue capacity of capacity.
func newShardedPool[T any](ctx context.Context, n, capacity int, fn func(context.Context, T)) *shardedPool[T] {
	if n < 1 {
		n = 1
	}
	per := capacity / n
	if per < 1 {
		per = 1
	}
	p := &shardedPool[T]{
		shards:  make([]chan T, n),
		process: fn,
	}
	for i := range p.shards {
		q := make(chan T, per)
		p.shards[i] = q
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.run(ctx, q)
		}()
	}
	return p
}

func (p *shardedPool[T]) run(ctx context.Context, q <-chan T) {
	for {
		select {
		case t, ok := <-q:
			if !ok {
				return
			}
			p.process(ctx, t)
		case <-ctx.Done():
			return
		}
	}
}

func (p *shardedPool[T]) shard(key string) chan T {
	return p.shards[xxhash.Sum64String(key)%uint64(len(p.shards))]
}

// Submit enqueues t on key's shard without blocking (returns false if full).
func (p *shardedPool[T]) Submit(key string, t T) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.shard(key) <- t:
		return true
	default:
		return false
	}
}

// Drain closes every queue and waits for the workers to finish queued jobs.
// Later Submits return false.
func (p *shardedPool[T]) Drain() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		for _, q := range p.shards {
			close(q)
		}
	}
	p.mu.Unlock()
	p.wg.Wait()
}

// QueueLen returns how many jobs are queued across all shards.
func (p *shardedPool[T]) QueueLen() int {
	n := 0
	for _, q := range p.shards {
		n += len(q)
	}
	return n
}

// QueueCap returns the total queue capacity.
func (p *shardedPool[T]) QueueCap() int {
	n := 0
	for _, q := range p.shards {
		n += cap(q)
	}
	return n
}
