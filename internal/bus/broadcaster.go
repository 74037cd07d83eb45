package bus

import (
	"errors"
	"sync"
	"sync/atomic"

	"main/internal/model"
)

var (
	ErrQueueFull = errors.New("snapshot queue full")
	ErrClosed    = errors.New("broadcaster closed")
)

// Broadcaster fans MarketState snapshots out to subscribers. Publishing
// never blocks the simulation loop: a subscriber that falls behind
// loses snapshots (counted via the drop callback) rather than stalling
// the tick.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[uint64]chan model.MarketState
	nextID uint64
	depth  int
	closed atomic.Bool
	onDrop func()
}

// NewBroadcaster allocates a broadcaster whose subscriber queues hold
// depth snapshots each.
func NewBroadcaster(depth int, onDrop func()) *Broadcaster {
	if depth <= 0 {
		depth = 1
	}
	return &Broadcaster{
		subs:   make(map[uint64]chan model.MarketState),
		depth:  depth,
		onDrop: onDrop,
	}
}

// Subscribe registers a new snapshot consumer. The returned cancel
// function removes the subscription and closes its channel.
func (b *Broadcaster) Subscribe() (<-chan model.MarketState, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	ch := make(chan model.MarketState, b.depth)
	if b.closed.Load() {
		close(ch)
		return ch, func() {}
	}
	b.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
}

// Publish delivers a snapshot to every subscriber without blocking.
func (b *Broadcaster) Publish(state model.MarketState) error {
	if b.closed.Load() {
		return ErrClosed
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- state:
		default:
			if b.onDrop != nil {
				b.onDrop()
			}
		}
	}
	return nil
}

// Close drops all subscriptions and closes their channels.
func (b *Broadcaster) Close() {
	if !b.closed.CompareAndSwap(false, true) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
