package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// Terminal stage values. Once one of these is appended the log is sealed.
const (
	StageComplete  = "complete"
	StageError     = "error"
	StageCancelled = "cancelled"
)

// ErrSealed is returned when appending to a log that recorded a terminal event.
var ErrSealed = errors.New("event log sealed by terminal event")

// Payload is the observer-visible body of a progress event.
type Payload struct {
	Stage    string          `json:"stage"`
	Progress float64         `json:"progress"`
	Message  string          `json:"message"`
	Result   json.RawMessage `json:"result,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// ProgressEvent is one immutable entry in a job's event log. Index is the
// string-encoded decimal of the event's position, stable across restarts.
type ProgressEvent struct {
	Index     string    `json:"index"`
	Timestamp time.Time `json:"timestamp"`
	Payload   Payload   `json:"payload"`
}

// IsTerminal reports whether the payload stage ends the job.
func (p Payload) IsTerminal() bool {
	switch p.Stage {
	case StageComplete, StageError, StageCancelled:
		return true
	default:
		return false
	}
}

// ParseIndex decodes a replay cursor. The empty string means "from the
// beginning" and decodes to -1.
func ParseIndex(value string) (int64, error) {
	if value == "" {
		return -1, nil
	}
	idx, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse event index %q: %w", value, err)
	}
	if idx < 0 {
		return 0, fmt.Errorf("event index must not be negative: %d", idx)
	}
	return idx, nil
}

// FormatIndex encodes an event position as a replay cursor.
func FormatIndex(idx int64) string {
	return strconv.FormatInt(idx, 10)
}

// Log is an append-only, gap-free sequence of progress events for one job.
// Indices start at 0 and increase by exactly 1 per append regardless of how
// many goroutines report concurrently.
type Log struct {
	mu     sync.Mutex
	cond   *sync.Cond
	events []ProgressEvent
	sealed bool
}

// NewLog constructs an empty event log.
func NewLog() *Log {
	l := &Log{}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// Restore rebuilds a log from persisted events, re-deriving the sealed state.
func Restore(persisted []ProgressEvent) *Log {
	l := NewLog()
	l.events = append(l.events, persisted...)
	for _, evt := range persisted {
		if evt.Payload.IsTerminal() {
			l.sealed = true
			break
		}
	}
	return l
}

// Append assigns the next index to payload and records it. Appending after a
// terminal event returns ErrSealed.
func (l *Log) Append(payload Payload) (ProgressEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sealed {
		return ProgressEvent{}, ErrSealed
	}
	evt := ProgressEvent{
		Index:     FormatIndex(int64(len(l.events))),
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
	l.events = append(l.events, evt)
	if payload.IsTerminal() {
		l.sealed = true
	}
	l.cond.Broadcast()
	return evt, nil
}

// Len returns the number of recorded events.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// Sealed reports whether a terminal event has been recorded.
func (l *Log) Sealed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sealed
}

// All returns a copy of every recorded event in append order.
func (l *Log) All() []ProgressEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ProgressEvent, len(l.events))
	copy(out, l.events)
	return out
}

// After returns the events strictly following the given cursor position.
// Pass -1 for the full history.
func (l *Log) After(since int64) []ProgressEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.afterLocked(since)
}

func (l *Log) afterLocked(since int64) []ProgressEvent {
	start := since + 1
	if start < 0 {
		start = 0
	}
	if start >= int64(len(l.events)) {
		return nil
	}
	out := make([]ProgressEvent, int64(len(l.events))-start)
	copy(out, l.events[start:])
	return out
}

// Fetch returns events after the cursor. When wait is true and no events are
// available yet, it blocks until an append, the log seals, or ctx ends. A
// sealed log never blocks: observers drain the suffix and stop.
func (l *Log) Fetch(ctx context.Context, since int64, wait bool) ([]ProgressEvent, error) {
	cancelWait := make(chan struct{})
	if wait && ctx != nil && ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				l.cond.Broadcast()
			case <-cancelWait:
			}
		}()
	}
	defer close(cancelWait)

	l.mu.Lock()
	defer l.mu.Unlock()

	for {
		evts := l.afterLocked(since)
		if len(evts) > 0 || !wait || l.sealed {
			return evts, contextError(ctx)
		}
		if err := contextError(ctx); err != nil {
			return nil, err
		}
		l.cond.Wait()
		if err := contextError(ctx); err != nil {
			return nil, err
		}
	}
}

func contextError(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}
