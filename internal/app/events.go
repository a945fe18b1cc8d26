package app

import (
	"sync"
	"time"

	"vwapReversionBot/internal/domain"
)

// defaultEventBuffer is the subscriber channel capacity used when Subscribe
// is called with a non-positive buffer.
const defaultEventBuffer = 64

// EventKind labels the payload carried by an Event.
type EventKind string

const (
	EventLog     EventKind = "log"
	EventAccount EventKind = "account"
	EventTrade   EventKind = "trade"
	EventSession EventKind = "session"
)

// Event is one engine notification delivered to subscribers: an operator-facing
// log line, a refreshed account snapshot, a trade record, or a session status
// change. Exactly one payload field is set, matching Kind.
type Event struct {
	Kind    EventKind
	Time    time.Time
	Message string                  // EventLog
	Account *domain.AccountSnapshot // EventAccount
	Trade   *domain.TradeRecord     // EventTrade
	Session *domain.SessionStatus   // EventSession
}

// EventBus fans engine events out to subscribers over buffered channels.
// Delivery is best-effort: an event is dropped for any subscriber whose buffer
// is full, so a slow consumer can never block the polling loop.
type EventBus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
}

// NewEventBus creates an empty event bus.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[int]chan Event)}
}

// Subscribe registers a new subscriber and returns its receive channel plus a
// cancel function. Cancel removes the subscription and closes the channel;
// calling it more than once is harmless.
func (b *EventBus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = defaultEventBuffer
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber with buffer room and drops
// it for the rest.
func (b *EventBus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// SubscriberCount reports the number of active subscriptions.
func (b *EventBus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
