package core

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/web3guy0/solbotx/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// ROUTER - Fans engine events out to subscribers
// ═══════════════════════════════════════════════════════════════════════════════

// EventType names an engine state change
type EventType string

const (
	EventTrade          EventType = "trade"
	EventPositionOpened EventType = "position_opened"
	EventPositionClosed EventType = "position_closed"
	EventState          EventType = "state"
	EventError          EventType = "error"
)

// Event is one state change published by the engine
type Event struct {
	Type     EventType       `json:"type"`
	Time     time.Time       `json:"time"`
	Trade    *types.Trade    `json:"trade,omitempty"`
	Position *types.Position `json:"position,omitempty"`
	Running  bool            `json:"running"`
	Message  string          `json:"message,omitempty"`
}

const subscriberBuffer = 64

// Router delivers events without ever blocking the publisher: a subscriber
// whose buffer is full misses the event.
type Router struct {
	mu          sync.RWMutex
	subscribers []chan Event
	dropped     int
}

// NewRouter creates a new event router
func NewRouter() *Router {
	return &Router{}
}

// Subscribe registers a new subscriber
func (r *Router) Subscribe() <-chan Event {
	ch := make(chan Event, subscriberBuffer)
	r.mu.Lock()
	r.subscribers = append(r.subscribers, ch)
	r.mu.Unlock()
	return ch
}

// Dropped returns how many deliveries were skipped for slow subscribers
func (r *Router) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Unsubscribe removes and closes a subscriber channel
func (r *Router) Unsubscribe(sub <-chan Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, ch := range r.subscribers {
		if ch == sub {
			r.subscribers = append(r.subscribers[:i], r.subscribers[i+1:]...)
			close(ch)
			return
		}
	}
}

// Route sends ev to every subscriber
func (r *Router) Route(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ch := range r.subscribers {
		select {
		case ch <- ev:
		default:
			r.dropped++
			log.Debug().Str("event", string(ev.Type)).Msg("Subscriber slow, event dropped")
		}
	}
}
