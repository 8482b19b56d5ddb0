package apperr

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultCapacity is the number of entries kept by NewLogger(0)
const DefaultCapacity = 100

// Logger is a bounded, newest-first error log. It never alters control flow;
// callers log and carry on.
type Logger struct {
	mu       sync.RWMutex
	entries  []*Error // ring storage
	head     int      // index of the newest entry
	size     int
	capacity int
}

// NewLogger creates a logger holding at most capacity entries
func NewLogger(capacity int) *Logger {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Logger{
		entries:  make([]*Error, capacity),
		head:     -1,
		capacity: capacity,
	}
}

// Log records e, evicting the oldest entry when full
func (l *Logger) Log(e *Error) {
	if l == nil || e == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	l.mu.Lock()
	l.head = (l.head + 1) % l.capacity
	l.entries[l.head] = e
	if l.size < l.capacity {
		l.size++
	}
	l.mu.Unlock()

	ev := log.Error().Str("kind", string(e.Kind))
	if e.Err != nil {
		ev = ev.Err(e.Err)
	}
	if e.Details != nil {
		ev = ev.Interface("details", e.Details)
	}
	ev.Msg(e.Message)
}

// Handle builds, records and returns a classified error
func (l *Logger) Handle(kind Kind, message string, details any) *Error {
	e := New(kind, message, details)
	l.Log(e)
	return e
}

// Record classifies and records an arbitrary error
func (l *Logger) Record(err error) *Error {
	e := From(err)
	l.Log(e)
	return e
}

// Errors returns a newest-first copy of the log
func (l *Logger) Errors() []*Error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*Error, 0, l.size)
	for i := 0; i < l.size; i++ {
		idx := (l.head - i + l.capacity) % l.capacity
		out = append(out, l.entries[idx])
	}
	return out
}

// Len returns the number of recorded entries
func (l *Logger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.size
}

// Clear empties the log
func (l *Logger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make([]*Error, l.capacity)
	l.head = -1
	l.size = 0
}
