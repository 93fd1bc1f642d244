package sink

import "github.com/gyaneshwarpardhi/flatten/internal/event"

type multi []event.Emitter

// Multi returns an Emitter that hands each event to every non-nil emitter in order.
func Multi(emitters ...event.Emitter) event.Emitter {
	out := make(multi, 0, len(emitters))
	for _, e := range emitters {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}

func (m multi) Emit(ev event.Event) {
	for _, e := range m {
		e.Emit(ev)
	}
}
