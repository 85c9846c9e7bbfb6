package events

import (
	"log/slog"
	"sort"
	"sync"

	"stakeledger/observability/logging"
)

// Event represents a structured state change emitted by the ledger.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Record is the flattened, string-keyed form of an event handed to indexers.
type Record struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// Recordable is implemented by events that can flatten themselves.
type Recordable interface {
	Event
	Record() *Record
}

// Recorder keeps every emitted event in order. Hosts use it to collect the
// events of a single operation before publishing them.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit implements the Emitter interface.
func (r *Recorder) Emit(evt Event) {
	if evt == nil {
		return
	}
	r.mu.Lock()
	r.events = append(r.events, evt)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// LogEmitter writes every event to a logger. Events that can flatten
// themselves are logged with their attributes; wallet identities are
// shortened by logging.Field.
type LogEmitter struct {
	Logger *slog.Logger
}

// Emit implements the Emitter interface.
func (e LogEmitter) Emit(evt Event) {
	if evt == nil {
		return
	}
	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}
	args := []any{"type", evt.EventType()}
	if rec, ok := evt.(Recordable); ok {
		if r := rec.Record(); r != nil {
			keys := make([]string, 0, len(r.Attributes))
			for k := range r.Attributes {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				args = append(args, logging.Field(k, r.Attributes[k]))
			}
		}
	}
	logger.Info("event", args...)
}
