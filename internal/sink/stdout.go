// Package sink holds the event.Emitter implementations events are delivered to.
package sink

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"

	"github.com/gyaneshwarpardhi/flatten/internal/event"
	"github.com/gyaneshwarpardhi/flatten/internal/metrics"
)

// StdoutEmitter writes each event as one NDJSON line to w.
type StdoutEmitter struct {
	mu     sync.Mutex
	enc    *json.Encoder
	logger *slog.Logger
}

// NewStdoutEmitter creates a StdoutEmitter writing to w.
func NewStdoutEmitter(w io.Writer, logger *slog.Logger) *StdoutEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &StdoutEmitter{enc: json.NewEncoder(w), logger: logger}
}

func (s *StdoutEmitter) Emit(ev event.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enc.Encode(ev); err != nil {
		metrics.EmitErrors.WithLabelValues("stdout").Inc()
		s.logger.Warn("stdout emit failed", "tag", ev.Tag, "err", err)
	}
}
