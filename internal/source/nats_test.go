package source

import (
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/flatten/internal/event"
	"github.com/gyaneshwarpardhi/flatten/internal/flatten"
)

type fakeSubmitter struct {
	batches []*event.Batch
	full    bool
}

func (f *fakeSubmitter) ProcessAsync(b *event.Batch, _ flatten.Acker) bool {
	if f.full {
		return false
	}
	f.batches = append(f.batches, b)
	return true
}

type fakeConn struct {
	subjects []string
	failOn   string
}

func (f *fakeConn) Subscribe(subject string, _ nats.MsgHandler) (*nats.Subscription, error) {
	if subject == f.failOn {
		return nil, errors.New("nats: invalid subject")
	}
	f.subjects = append(f.subjects, subject)
	return &nats.Subscription{Subject: subject}, nil
}

func TestHandle_BuildsBatchFromMessage(t *testing.T) {
	sub := &fakeSubmitter{}
	s := NewNATSSource(&fakeConn{}, nil, sub, nil)
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	s.handle(&nats.Msg{Subject: "raw.app", Data: []byte(`{"payload": "{\"a\": 1}", "host": "h1"}`)})

	require.Len(t, sub.batches, 1)
	b := sub.batches[0]
	assert.Equal(t, "raw.app", b.Tag)
	assert.NotEmpty(t, b.ID)
	require.Len(t, b.Entries, 1)
	assert.Equal(t, fixed, b.Entries[0].Time)
	assert.Equal(t, []string{"payload", "host"}, b.Entries[0].Record.Keys())
}

func TestHandle_UsesTimeHeader(t *testing.T) {
	sub := &fakeSubmitter{}
	s := NewNATSSource(&fakeConn{}, nil, sub, nil)

	msg := nats.NewMsg("raw.app")
	msg.Data = []byte(`{"payload": "{}"}`)
	msg.Header.Set(event.TimeHeader, "2023-07-08T09:10:11Z")
	s.handle(msg)

	require.Len(t, sub.batches, 1)
	assert.Equal(t, time.Date(2023, 7, 8, 9, 10, 11, 0, time.UTC), sub.batches[0].Entries[0].Time)
}

func TestHandle_SkipsInvalidMessages(t *testing.T) {
	sub := &fakeSubmitter{}
	s := NewNATSSource(&fakeConn{}, nil, sub, nil)

	s.handle(&nats.Msg{Subject: "raw.app", Data: []byte(`not json`)})
	s.handle(&nats.Msg{Subject: "raw.app", Data: []byte(`[1, 2]`)})

	assert.Empty(t, sub.batches)
}

func TestHandle_BadTimeHeaderFallsBackToNow(t *testing.T) {
	sub := &fakeSubmitter{}
	s := NewNATSSource(&fakeConn{}, nil, sub, nil)
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	msg := nats.NewMsg("raw.app")
	msg.Data = []byte(`{"payload": "{}"}`)
	msg.Header.Set(event.TimeHeader, "yesterday")
	s.handle(msg)

	require.Len(t, sub.batches, 1)
	assert.Equal(t, fixed, sub.batches[0].Entries[0].Time)
}

func TestHandle_QueueFullDoesNotPanic(t *testing.T) {
	s := NewNATSSource(&fakeConn{}, nil, &fakeSubmitter{full: true}, nil)
	assert.NotPanics(t, func() {
		s.handle(&nats.Msg{Subject: "raw.app", Data: []byte(`{}`)})
	})
}

func TestStart_SubscribesAllSubjects(t *testing.T) {
	conn := &fakeConn{}
	s := NewNATSSource(conn, []string{"raw.>", "logs.*"}, &fakeSubmitter{}, nil)
	require.NoError(t, s.Start())
	assert.Equal(t, []string{"raw.>", "logs.*"}, conn.subjects)
}

func TestStart_FailsOnBadSubject(t *testing.T) {
	conn := &fakeConn{failOn: "bad"}
	s := NewNATSSource(conn, []string{"bad"}, &fakeSubmitter{}, nil)
	assert.ErrorContains(t, s.Start(), "subscribe bad")
}
