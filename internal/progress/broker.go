package progress

import "sync"

// subscriptionBuffer bounds the per-job event queue. A consumer that
// falls this far behind starts losing intermediate events; terminal
// events are small and published last, so in practice they survive.
const subscriptionBuffer = 64

// Broker fans events out to per-job subscribers. Each job id has at most
// one subscriber, so publishing never races consumers against each other.
type Broker struct {
	mu   sync.Mutex
	subs map[string]chan Event
}

// NewBroker creates an empty Broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[string]chan Event)}
}

// Subscribe registers the single subscriber for jobID and returns its
// event channel. A previous subscription for the same id is closed.
func (b *Broker) Subscribe(jobID string) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if old, ok := b.subs[jobID]; ok {
		close(old)
	}

	ch := make(chan Event, subscriptionBuffer)
	b.subs[jobID] = ch
	return ch
}

// Unsubscribe removes jobID's subscription and closes its channel.
func (b *Broker) Unsubscribe(jobID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subs[jobID]; ok {
		delete(b.subs, jobID)
		close(ch)
	}
}

// Publish delivers ev to jobID's subscriber. Events for unknown jobs and
// events that would block a full buffer are dropped; progress is advisory
// and a consumer that is gone will never read them anyway.
//
// The send happens under the mutex: Unsubscribe closes channels under the
// same lock, so the send can never race a close. The default case keeps
// the critical section from ever blocking.
func (b *Broker) Publish(jobID string, ev Event) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.subs[jobID]
	if !ok {
		return false
	}

	select {
	case ch <- ev:
		return true
	default:
		return false
	}
}

// Publisher returns a Publisher bound to jobID.
func (b *Broker) Publisher(jobID string) Publisher {
	return func(ev Event) {
		b.Publish(jobID, ev)
	}
}
