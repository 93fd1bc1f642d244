// Package source feeds batches into the engine from message transports.
package source

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/gyaneshwarpardhi/flatten/internal/event"
	"github.com/gyaneshwarpardhi/flatten/internal/flatten"
	"github.com/gyaneshwarpardhi/flatten/internal/value"
)

// Submitter accepts batches for asynchronous processing.
type Submitter interface {
	ProcessAsync(b *event.Batch, ack flatten.Acker) bool
}

// Subscriber is the subset of *nats.Conn used by NATSSource.
type Subscriber interface {
	Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error)
}

// NATSSource turns each message on its subjects into a one-entry batch whose
// tag is the message subject and whose record is the JSON message body.
type NATSSource struct {
	conn     Subscriber
	subjects []string
	sink     Submitter
	logger   *slog.Logger
	now      func() time.Time
	subs     []*nats.Subscription
}

func NewNATSSource(conn Subscriber, subjects []string, sink Submitter, logger *slog.Logger) *NATSSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSSource{conn: conn, subjects: subjects, sink: sink, logger: logger, now: time.Now}
}

// Start subscribes to every subject.
func (s *NATSSource) Start() error {
	for _, subj := range s.subjects {
		sub, err := s.conn.Subscribe(subj, s.handle)
		if err != nil {
			s.Stop()
			return fmt.Errorf("subscribe %s: %w", subj, err)
		}
		s.subs = append(s.subs, sub)
		s.logger.Info("subscribed", "subject", subj)
	}
	return nil
}

// Stop removes all subscriptions.
func (s *NATSSource) Stop() {
	for _, sub := range s.subs {
		if err := sub.Unsubscribe(); err != nil {
			s.logger.Warn("unsubscribe failed", "subject", sub.Subject, "err", err)
		}
	}
	s.subs = nil
}

func (s *NATSSource) handle(msg *nats.Msg) {
	b, err := s.batchFromMsg(msg)
	if err != nil {
		s.logger.Warn("nats message skipped", "subject", msg.Subject, "err", err)
		return
	}
	if !s.sink.ProcessAsync(b, nil) {
		s.logger.Warn("batch dropped: queue full", "subject", msg.Subject, "batch_id", b.ID)
	}
}

func (s *NATSSource) batchFromMsg(msg *nats.Msg) (*event.Batch, error) {
	var rec value.Map
	if err := rec.UnmarshalJSON(msg.Data); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	now := s.now()
	ts := now
	if msg.Header != nil {
		if h := msg.Header.Get(event.TimeHeader); h != "" {
			if parsed, err := time.Parse(time.RFC3339Nano, h); err == nil {
				ts = parsed
			} else {
				s.logger.Debug("bad time header, using receive time",
					"subject", msg.Subject, "header", event.TimeHeader, "err", err)
			}
		}
	}
	return &event.Batch{
		ID:         uuid.New().String(),
		Tag:        msg.Subject,
		Entries:    []event.Entry{{Time: ts, Record: &rec}},
		ReceivedAt: now,
	}, nil
}
