package mocks

import (
	"context"
	"sync"

	"dossierapi/internal/notify"
)

// RecordingDispatcher captures dispatched events for assertions. Safe for
// concurrent use.
type RecordingDispatcher struct {
	mu     sync.Mutex
	events []notify.Event
}

func (d *RecordingDispatcher) Dispatch(_ context.Context, ev notify.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, ev)
}

// Events returns a copy of everything dispatched so far.
func (d *RecordingDispatcher) Events() []notify.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]notify.Event, len(d.events))
	copy(out, d.events)
	return out
}

// Count returns the number of events of the given type.
func (d *RecordingDispatcher) Count(t notify.EventType) int {
	n := 0
	for _, ev := range d.Events() {
		if ev.Type == t {
			n++
		}
	}
	return n
}
