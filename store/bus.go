package store

import "sync"

// Bus is an in-process stand-in for the publish/subscribe channel a
// networked distributed store would use to multiplex change
// notifications across nodes (§4.3). Multiple NotifyStore instances
// sharing the same Bus observe each other's writes, simulating
// cross-node notification without an actual network transport — which
// §1 leaves to an external, concrete distributed-store implementation.
type Bus struct {
	mu          sync.Mutex
	subscribers map[chan Change]struct{}
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[chan Change]struct{})}
}

func (b *Bus) subscribe() (<-chan Change, func()) {
	ch := make(chan Change, 32)

	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subscribers, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (b *Bus) publish(change Change) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subscribers {
		select {
		case sub <- change:
		default:
		}
	}
}
