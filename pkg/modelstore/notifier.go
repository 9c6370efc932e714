package modelstore

import "sync"

// Change names a table and the primary-key values a committed write or
// delete touched. Keys holds scalars for single-column primary keys and
// ordered []any tuples for composite keys.
type Change struct {
	Table string
	Keys  []any
}

// ChangeSink receives change events after the underlying transaction has
// committed. Implementations must not block: events are published from
// the handle's execution goroutine. Test doubles implement this to
// capture events deterministically.
type ChangeSink interface {
	Publish(Change)
}

// Notifier is the default fan-out sink: a broadcast to zero or more
// subscribers with no delivery guarantee. Events for one table arrive in
// the order the operations executed.
type Notifier struct {
	mu        sync.RWMutex
	listeners map[chan Change]struct{}
}

// NewNotifier creates an empty notifier.
func NewNotifier() *Notifier {
	return &Notifier{listeners: make(map[chan Change]struct{})}
}

// Subscribe registers a listener channel. The caller must Unsubscribe
// when done to release it.
func (n *Notifier) Subscribe() chan Change {
	ch := make(chan Change, 16)
	n.mu.Lock()
	n.listeners[ch] = struct{}{}
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a listener channel.
func (n *Notifier) Unsubscribe(ch chan Change) {
	n.mu.Lock()
	delete(n.listeners, ch)
	n.mu.Unlock()
	close(ch)
}

// Publish broadcasts a change. Non-blocking: a listener whose channel is
// full misses the event.
func (n *Notifier) Publish(c Change) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for ch := range n.listeners {
		select {
		case ch <- c:
		default:
		}
	}
}
