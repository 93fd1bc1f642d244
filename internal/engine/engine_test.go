package engine_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/flatten/internal/config"
	"github.com/gyaneshwarpardhi/flatten/internal/engine"
	"github.com/gyaneshwarpardhi/flatten/internal/event"
	"github.com/gyaneshwarpardhi/flatten/internal/flatten"
	"github.com/gyaneshwarpardhi/flatten/internal/sink"
	"github.com/gyaneshwarpardhi/flatten/internal/tagrewrite"
	"github.com/gyaneshwarpardhi/flatten/internal/value"
)

func newTransform(t *testing.T, prefix string) *flatten.Transform {
	t.Helper()
	tr, err := flatten.New(flatten.DefaultConfig("payload"), tagrewrite.New(tagrewrite.Rules{AddPrefix: prefix}))
	require.NoError(t, err)
	return tr
}

func batch(tag string, payloads ...string) *event.Batch {
	b := &event.Batch{ID: "b-" + tag, Tag: tag}
	for _, p := range payloads {
		b.Entries = append(b.Entries, event.Entry{Record: value.MapOf("payload", value.String(p))})
	}
	return b
}

func newEngine(t *testing.T, out event.Emitter, conf config.EngineConf) *engine.Engine {
	t.Helper()
	e := engine.New(context.Background(), newTransform(t, "flat"), out, conf, nil)
	t.Cleanup(e.Shutdown)
	return e
}

func TestProcessSync_ReturnsEmittedEvents(t *testing.T) {
	out := sink.NewBufferingEmitter()
	e := newEngine(t, out, config.EngineConf{Workers: 2, QueueDepth: 10})

	res, err := e.ProcessSync(context.Background(), batch("app", `{"a": {"b": 1}, "c": "x"}`, "{bad"))
	require.NoError(t, err)

	assert.Equal(t, "b-app", res.BatchID)
	assert.Equal(t, 2, res.Records)
	assert.Equal(t, 2, res.Emitted)
	require.Len(t, res.Events, 2)
	assert.Equal(t, "flat.app.payload.a.b", res.Events[0].Tag)
	assert.Equal(t, "flat.app.payload.c", res.Events[1].Tag)
	assert.Equal(t, 2, out.Len(), "events also reach the configured sink")
}

func TestProcessAsync_AcksAndKeepsPerTagOrder(t *testing.T) {
	out := sink.NewBufferingEmitter()
	e := newEngine(t, out, config.EngineConf{Workers: 4, QueueDepth: 1000})

	var wg sync.WaitGroup
	const perTag = 50
	tags := []string{"a", "b", "c"}
	for i := 0; i < perTag; i++ {
		for _, tag := range tags {
			wg.Add(1)
			ok := e.ProcessAsync(batch(tag, fmt.Sprintf(`{"n": %d}`, i)), flatten.AckFunc(wg.Done))
			require.True(t, ok)
		}
	}
	wg.Wait()

	seen := map[string][]string{}
	for _, ev := range out.Events() {
		n, _ := ev.Record.Get("value")
		seen[ev.Tag] = append(seen[ev.Tag], n.String())
	}
	for _, tag := range tags {
		got := seen["flat."+tag+".payload.n"]
		require.Len(t, got, perTag)
		for i, v := range got {
			assert.Equal(t, fmt.Sprint(i), v, "tag %s out of order", tag)
		}
	}
}

func TestProcessAsync_QueueFull(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	blocking := event.EmitterFunc(func(event.Event) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
	})
	e := engine.New(context.Background(), newTransform(t, "flat"), blocking, config.EngineConf{Workers: 1, QueueDepth: 1}, nil)

	require.True(t, e.ProcessAsync(batch("t", `{"a": 1}`), nil))
	<-started // worker is now stuck in the emitter
	require.True(t, e.ProcessAsync(batch("t", `{"a": 2}`), nil))
	assert.False(t, e.ProcessAsync(batch("t", `{"a": 3}`), nil))
	assert.InDelta(t, 1.0, e.QueueUtilization(), 0.0001)

	_, err := e.ProcessSync(context.Background(), batch("t", `{"a": 4}`))
	assert.ErrorIs(t, err, engine.ErrQueueFull)

	close(release)
	e.Shutdown()
	assert.False(t, e.ProcessAsync(batch("t", `{"a": 5}`), nil), "submit after shutdown")
}

func TestProcessSync_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	blocking := event.EmitterFunc(func(event.Event) { <-release })
	e := engine.New(context.Background(), newTransform(t, "flat"), blocking, config.EngineConf{Workers: 1, QueueDepth: 4}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := e.ProcessSync(ctx, batch("t", `{"a": 1}`))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestProcessSync_Timeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	blocking := event.EmitterFunc(func(event.Event) { <-release })
	e := engine.New(context.Background(), newTransform(t, "flat"), blocking,
		config.EngineConf{Workers: 1, QueueDepth: 4, BatchTimeoutMs: 30}, nil)

	_, err := e.ProcessSync(context.Background(), batch("t", `{"a": 1}`))
	assert.ErrorIs(t, err, engine.ErrTimeout)
	assert.NotErrorIs(t, err, engine.ErrQueueFull)
}

func TestSwapTransform(t *testing.T) {
	e := newEngine(t, sink.NewBufferingEmitter(), config.EngineConf{Workers: 1, QueueDepth: 4})

	res, err := e.ProcessSync(context.Background(), batch("t", `{"a": 1}`))
	require.NoError(t, err)
	assert.Equal(t, "flat.t.payload.a", res.Events[0].Tag)

	e.SwapTransform(newTransform(t, "v2"))
	res, err = e.ProcessSync(context.Background(), batch("t", `{"a": 1}`))
	require.NoError(t, err)
	assert.Equal(t, "v2.t.payload.a", res.Events[0].Tag)
}
