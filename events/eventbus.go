package events

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/atomiq-chain/atomiq/errors"
	"github.com/atomiq-chain/atomiq/logx"
)

type SubscriberID string

type Subscriber struct {
	ID      SubscriberID
	Channel chan *BlockCommittedEvent
}

// EventBus broadcasts block commit events to every subscriber. Sends
// never block the producer: a subscriber whose buffer is full misses
// the event and times out on its own.
type EventBus struct {
	subscribers map[SubscriberID]*Subscriber
	mu          sync.RWMutex
	closed      bool
}

func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[SubscriberID]*Subscriber),
	}
}

func (eb *EventBus) generateUUIDID() SubscriberID {
	id := uuid.Must(uuid.NewV7())
	return SubscriberID(id.String())
}

// Subscribe registers a new subscriber. Call before submitting the
// transaction whose finalization is awaited, so the commit event
// cannot slip between submit and subscribe.
func (eb *EventBus) Subscribe() *Subscriber {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	subscriber := &Subscriber{
		ID:      eb.generateUUIDID(),
		Channel: make(chan *BlockCommittedEvent, 50),
	}

	if eb.closed {
		close(subscriber.Channel)
		return subscriber
	}

	eb.subscribers[subscriber.ID] = subscriber
	return subscriber
}

// Unsubscribe removes a subscription by ID
func (eb *EventBus) Unsubscribe(id SubscriberID) bool {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	subscriber, exists := eb.subscribers[id]
	if !exists {
		return false
	}

	delete(eb.subscribers, id)
	close(subscriber.Channel)
	return true
}

// Publish broadcasts a commit event to all subscribers
func (eb *EventBus) Publish(event *BlockCommittedEvent) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.closed {
		return
	}

	for id, subscriber := range eb.subscribers {
		select {
		case subscriber.Channel <- event:
		default:
			// Channel is full, skip this subscriber
			logx.Warn("EVENTBUS", fmt.Sprintf("Subscriber channel full | subscriber_id=%s | height=%d", id, event.Height))
		}
	}
}

// Close shuts the bus down. Pending waiters observe a closed channel.
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}
	eb.closed = true
	for id, subscriber := range eb.subscribers {
		delete(eb.subscribers, id)
		close(subscriber.Channel)
	}
}

// GetTotalSubscriptions returns the total number of active subscriptions
func (eb *EventBus) GetTotalSubscriptions() int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.subscribers)
}

// WaitForTransaction blocks until a commit event containing txID
// arrives on the subscriber channel, the timeout elapses, or the bus
// shuts down. The caller is responsible for unsubscribing.
func (s *Subscriber) WaitForTransaction(txID uint64, timeout time.Duration) (*BlockCommittedEvent, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case event, ok := <-s.Channel:
			if !ok {
				return nil, errors.New(errors.ErrCodeEventChannelClosed, "event bus shut down while waiting")
			}
			if event.Contains(txID) {
				return event, nil
			}
		case <-timer.C:
			return nil, errors.New(errors.ErrCodeTimeout,
				fmt.Sprintf("transaction %d not finalized within %s", txID, timeout))
		}
	}
}
