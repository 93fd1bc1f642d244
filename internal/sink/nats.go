package sink

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/gyaneshwarpardhi/flatten/internal/event"
	"github.com/gyaneshwarpardhi/flatten/internal/metrics"
)

// Publisher is the subset of *nats.Conn used by NATSEmitter.
type Publisher interface {
	PublishMsg(m *nats.Msg) error
}

// NATSEmitter publishes each event's record as JSON on subject prefix+tag.
// The event time travels in the event.TimeHeader header.
type NATSEmitter struct {
	pub    Publisher
	prefix string
	logger *slog.Logger
}

func NewNATSEmitter(pub Publisher, subjectPrefix string, logger *slog.Logger) *NATSEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSEmitter{pub: pub, prefix: subjectPrefix, logger: logger}
}

func (n *NATSEmitter) Emit(ev event.Event) {
	data, err := json.Marshal(ev.Record)
	if err != nil {
		metrics.EmitErrors.WithLabelValues("nats").Inc()
		n.logger.Warn("nats emit: encode record", "tag", ev.Tag, "err", err)
		return
	}
	msg := nats.NewMsg(n.prefix + ev.Tag)
	msg.Data = data
	if !ev.Time.IsZero() {
		msg.Header.Set(event.TimeHeader, ev.Time.UTC().Format(time.RFC3339Nano))
	}
	if err := n.pub.PublishMsg(msg); err != nil {
		metrics.EmitErrors.WithLabelValues("nats").Inc()
		n.logger.Warn("nats emit: publish", "subject", msg.Subject, "err", err)
	}
}
