// Package events carries human-readable outcome notifications from core
// operations to whoever is listening (usually the CLI). Delivery is
// fire-and-forget: the core never depends on a sink being attached.
package events

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Kind classifies an event for display purposes.
type Kind string

const (
	KindInfo     Kind = "info"
	KindWarn     Kind = "warn"
	KindError    Kind = "error"
	KindConflict Kind = "conflict"
)

// Event is a single notification: what happened, phrased for a person.
type Event struct {
	Kind    Kind      `json:"kind"`
	Message string    `json:"message"`
	Source  string    `json:"source"`
	Time    time.Time `json:"time"`
}

// Notifier receives events. Implementations must not block.
type Notifier interface {
	Notify(e Event)
}

// Bus fans events out to its sinks. A nil *Bus discards everything, so
// callers never need to nil-check before notifying.
type Bus struct {
	sinks []Notifier
}

// NewBus creates a bus delivering to the given sinks.
func NewBus(sinks ...Notifier) *Bus {
	return &Bus{sinks: sinks}
}

// Notify delivers an event to every sink.
func (b *Bus) Notify(e Event) {
	if b == nil {
		return
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	for _, s := range b.sinks {
		s.Notify(e)
	}
}

// Info publishes an info event from the given source.
func (b *Bus) Info(source, format string, args ...interface{}) {
	b.Notify(Event{Kind: KindInfo, Source: source, Message: fmt.Sprintf(format, args...)})
}

// Warn publishes a warning event from the given source.
func (b *Bus) Warn(source, format string, args ...interface{}) {
	b.Notify(Event{Kind: KindWarn, Source: source, Message: fmt.Sprintf(format, args...)})
}

// Error publishes an error event from the given source.
func (b *Bus) Error(source, format string, args ...interface{}) {
	b.Notify(Event{Kind: KindError, Source: source, Message: fmt.Sprintf(format, args...)})
}

// Conflict publishes a conflict event from the given source.
func (b *Bus) Conflict(source, format string, args ...interface{}) {
	b.Notify(Event{Kind: KindConflict, Source: source, Message: fmt.Sprintf(format, args...)})
}

// ConsoleNotifier renders events to a writer, colored by kind.
type ConsoleNotifier struct {
	w io.Writer
}

// NewConsoleNotifier creates a console sink writing to w.
func NewConsoleNotifier(w io.Writer) *ConsoleNotifier {
	return &ConsoleNotifier{w: w}
}

func (c *ConsoleNotifier) Notify(e Event) {
	switch e.Kind {
	case KindWarn:
		color.New(color.FgYellow).Fprintf(c.w, "warning: %s\n", e.Message)
	case KindError:
		color.New(color.FgRed).Fprintf(c.w, "error: %s\n", e.Message)
	case KindConflict:
		color.New(color.FgRed, color.Bold).Fprintf(c.w, "%s\n", e.Message)
	default:
		fmt.Fprintf(c.w, "%s\n", e.Message)
	}
}

// Recorder captures events for inspection in tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Notify(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Messages returns just the recorded message strings, in order.
func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := make([]string, len(r.events))
	for i, e := range r.events {
		msgs[i] = e.Message
	}
	return msgs
}
