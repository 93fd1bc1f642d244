package event

import (
	"time"

	"github.com/gyaneshwarpardhi/flatten/internal/value"
)

// TimeHeader is the message header that carries an event time (RFC 3339)
// on transports without a native timestamp.
const TimeHeader = "Flatten-Time"

// Entry is one (time, record) pair inside a batch.
type Entry struct {
	Time   time.Time  `json:"time"`
	Record *value.Map `json:"record"`
}

// Event is a tagged record, the unit handed to an Emitter.
type Event struct {
	Tag    string     `json:"tag"`
	Time   time.Time  `json:"time"`
	Record *value.Map `json:"record"`
}

// Batch is an ordered run of entries that share one tag.
type Batch struct {
	ID         string    `json:"id"`
	Tag        string    `json:"tag"`
	Entries    []Entry   `json:"entries"`
	ReceivedAt time.Time `json:"-"`
}

// Emitter receives output events. Implementations must be safe for concurrent use.
type Emitter interface {
	Emit(ev Event)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(ev Event)

func (f EmitterFunc) Emit(ev Event) { f(ev) }
