package session

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

const notificationTTL = 3 * time.Second

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// Notification is a transient status message surfaced to the user. Each one
// removes itself after notificationTTL unless dismissed first.
type Notification struct {
	ID       string   `json:"id"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// queue holds live notifications in insertion order. Identical messages are
// not deduplicated; each copy is independently timed. It has its own mutex
// because expiry timers fire outside the session's command path.
type queue struct {
	mu      sync.Mutex
	ttl     time.Duration
	items   []Notification
	timers  map[string]*time.Timer
	expired func()
}

func newQueue(expired func()) *queue {
	return &queue{
		ttl:     notificationTTL,
		timers:  make(map[string]*time.Timer),
		expired: expired,
	}
}

// push appends a notification and schedules its removal without blocking the
// caller. The id combines a millisecond timestamp with a random suffix so two
// pushes within the same millisecond cannot collide.
func (q *queue) push(message string, severity Severity) {
	id := fmt.Sprintf("%d-%08x", time.Now().UnixMilli(), rand.Uint32())

	q.mu.Lock()
	q.items = append(q.items, Notification{ID: id, Message: message, Severity: severity})
	q.timers[id] = time.AfterFunc(q.ttl, func() {
		if q.remove(id) && q.expired != nil {
			q.expired()
		}
	})
	q.mu.Unlock()
}

// dismiss removes a notification immediately and stops its expiry timer so a
// dangling timer cannot fire after the entry is already gone.
func (q *queue) dismiss(id string) {
	q.remove(id)
}

func (q *queue) remove(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if t, ok := q.timers[id]; ok {
		t.Stop()
		delete(q.timers, id)
	}

	for i, n := range q.items {
		if n.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return true
		}
	}
	return false
}

func (q *queue) list() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Notification, len(q.items))
	copy(out, q.items)
	return out
}
