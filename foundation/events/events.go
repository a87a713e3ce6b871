// Package events fans ledger events out to any number of subscribers.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind names the thing that happened on the ledger.
type Kind string

// Set of event kinds published by the ledger.
const (
	MiningStarted      Kind = "MINING_STARTED"
	MiningCompleted    Kind = "MINING_COMPLETED"
	MiningFailed       Kind = "MINING_FAILED"
	RequestAdded       Kind = "REQUEST_ADDED"
	RequestDecided     Kind = "REQUEST_DECIDED"
	TransactionAdded   Kind = "TRANSACTION_ADDED"
	TransactionDecided Kind = "TRANSACTION_DECIDED"
	LedgerReset        Kind = "LEDGER_RESET"
)

// Event is a single notification. ID holds the request, transaction or
// block hash the event is about.
type Event struct {
	Kind     Kind      `json:"kind"`
	ID       string    `json:"id,omitempty"`
	Block    uint64    `json:"block,omitempty"`
	Approved bool      `json:"approved,omitempty"`
	Error    string    `json:"error,omitempty"`
	Time     time.Time `json:"time"`
}

// SubscriberID identifies a subscription so it can be cancelled.
type SubscriberID string

// bufferSize is how many events a subscriber can fall behind before
// events are dropped for it.
const bufferSize = 50

// Bus delivers published events to every subscriber. Publishing never
// blocks: a subscriber with a full channel misses the event.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[SubscriberID]chan Event
	evHandler   func(v string, args ...any)
}

// New constructs an event bus. The handler receives a line when an event
// is dropped and may be nil.
func New(evHandler func(v string, args ...any)) *Bus {
	if evHandler == nil {
		evHandler = func(string, ...any) {}
	}

	return &Bus{
		subscribers: make(map[SubscriberID]chan Event),
		evHandler:   evHandler,
	}
}

// Subscribe registers a new subscriber and returns the channel its events
// arrive on.
func (b *Bus) Subscribe() (SubscriberID, <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := SubscriberID(uuid.NewString())
	ch := make(chan Event, bufferSize)
	b.subscribers[id] = ch

	b.evHandler("events: subscribe: id[%s]: total[%d]", id, len(b.subscribers))

	return id, ch
}

// Unsubscribe removes the subscriber and closes its channel.
func (b *Bus) Unsubscribe(id SubscriberID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, exists := b.subscribers[id]
	if !exists {
		return false
	}

	delete(b.subscribers, id)
	close(ch)

	b.evHandler("events: unsubscribe: id[%s]: total[%d]", id, len(b.subscribers))

	return true
}

// Publish sends the event to every subscriber.
func (b *Bus) Publish(event Event) {
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			b.evHandler("events: publish: DROPPED: id[%s]: kind[%s]", id, event.Kind)
		}
	}
}

// Count returns the number of subscribers.
func (b *Bus) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.subscribers)
}

// Close unsubscribes everyone.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subscribers {
		delete(b.subscribers, id)
		close(ch)
	}
}
