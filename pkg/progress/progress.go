// Package progress implements the in-process progress event bus: a
// fan-out publisher that callers (the scheduler, the executor, the
// constraint engine) publish typed Events to, and that anything watching a
// run — the CLI renderer, the HTTP health surface — subscribes to.
package progress

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// Level classifies an Event's severity for renderer filtering.
type Level string

const (
	LevelInfo     Level = "info"
	LevelThinking Level = "thinking"
	LevelWarn     Level = "warning"
	LevelError    Level = "error"
	LevelSuccess  Level = "success"
)

// Event is one progress update. Phase names a pipeline stage ("constraint",
// "spec-execution", "validation"); Message is a short human summary; Detail
// carries optional structured context (spec ID, file path, attempt count).
type Event struct {
	Phase   string         `json:"phase"`
	Message string         `json:"message"`
	Detail  map[string]any `json:"detail,omitempty"`
	Level   Level          `json:"level"`
}

// Handler receives every Event published after it subscribes.
type Handler func(Event)

// Bus is a fan-out publisher. The zero value is not usable; use New.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[uint64]Handler
	nextID      atomic.Uint64
}

// New returns an empty Bus.
func New() *Bus {
	return &Bus{subscribers: make(map[uint64]Handler)}
}

// Subscribe registers h to receive every future Publish call. It returns
// an Unsubscribe function.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	id := b.nextID.Add(1)
	b.mu.Lock()
	b.subscribers[id] = h
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		delete(b.subscribers, id)
		b.mu.Unlock()
	}
}

// Publish delivers e to every current subscriber, synchronously; the order
// in which subscribers receive it is not defined. A panicking handler is recovered and logged so one
// broken renderer can't take down the run it's watching.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subscribers))
	for _, h := range b.subscribers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		b.dispatch(h, e)
	}
}

func (b *Bus) dispatch(h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("progress: subscriber panicked", "phase", e.Phase, "recovered", r)
		}
	}()
	h(e)
}

// Info, Thinking, Warn, Error, and Success are shorthand for Publish with
// the corresponding Level.
func (b *Bus) Info(phase, message string, detail map[string]any) {
	b.Publish(Event{Phase: phase, Message: message, Detail: detail, Level: LevelInfo})
}

func (b *Bus) Thinking(phase, message string, detail map[string]any) {
	b.Publish(Event{Phase: phase, Message: message, Detail: detail, Level: LevelThinking})
}

func (b *Bus) Warn(phase, message string, detail map[string]any) {
	b.Publish(Event{Phase: phase, Message: message, Detail: detail, Level: LevelWarn})
}

func (b *Bus) Error(phase, message string, detail map[string]any) {
	b.Publish(Event{Phase: phase, Message: message, Detail: detail, Level: LevelError})
}

func (b *Bus) Success(phase, message string, detail map[string]any) {
	b.Publish(Event{Phase: phase, Message: message, Detail: detail, Level: LevelSuccess})
}
