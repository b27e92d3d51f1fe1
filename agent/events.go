package agent

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// EventKind identifies the type of session event.
type EventKind string

const (
	EventSessionStart  EventKind = "session_start"
	EventSessionEnd    EventKind = "session_end"
	EventUserInput     EventKind = "user_input"
	EventDecision      EventKind = "decision"
	EventActionStart   EventKind = "action_start"
	EventActionSkipped EventKind = "action_skipped"
	EventActionEnd     EventKind = "action_end"
	EventTurnLimit     EventKind = "turn_limit"
	EventError         EventKind = "error"
)

// Event is a typed notification from a session.
type Event struct {
	Kind      EventKind              `json:"kind"`
	Timestamp time.Time              `json:"timestamp"`
	SessionID string                 `json:"session_id"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// EventEmitter delivers events on a buffered channel. Emit never blocks:
// when the buffer is full the event is dropped.
type EventEmitter struct {
	sessionID string
	ch        chan Event
	closed    bool
	mu        sync.Mutex
}

func NewEventEmitter(sessionID string, bufferSize int) *EventEmitter {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &EventEmitter{
		sessionID: sessionID,
		ch:        make(chan Event, bufferSize),
	}
}

// Emit sends an event unless the emitter is closed or its buffer is full.
func (e *EventEmitter) Emit(kind EventKind, data map[string]interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	select {
	case e.ch <- Event{Kind: kind, Timestamp: time.Now(), SessionID: e.sessionID, Data: data}:
	default:
	}
}

// Events returns the read-only event channel. It is closed by Close.
func (e *EventEmitter) Events() <-chan Event {
	return e.ch
}

// Close closes the event channel. Safe to call multiple times.
func (e *EventEmitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		close(e.ch)
	}
}

// LogEvents writes events to logger until the channel is closed or ctx is
// done. Errors log at warn level, everything else at debug.
func LogEvents(ctx context.Context, events <-chan Event, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			level := slog.LevelDebug
			if ev.Kind == EventError || ev.Kind == EventTurnLimit {
				level = slog.LevelWarn
			}
			attrs := make([]slog.Attr, 0, len(ev.Data)+1)
			attrs = append(attrs, slog.String("session_id", ev.SessionID))
			for k, v := range ev.Data {
				attrs = append(attrs, slog.Any(k, v))
			}
			logger.LogAttrs(ctx, level, string(ev.Kind), attrs...)
		}
	}
}
