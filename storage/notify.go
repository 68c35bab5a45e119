package storage

import (
	"context"
	"sync"

	"xdao.co/aqua/ident"
)

// Notifier fans store events out to UpdateHandler subscriptions.
//
// Each subscriber owns an unbounded queue drained by its own goroutine, so
// Publish never blocks on a slow callback and events reach every subscriber
// in publish order. The zero value is ready to use.
type Notifier struct {
	mu     sync.Mutex
	subs   map[uint64]*subscriber
	next   uint64
	closed bool
	done   chan struct{}
}

type event struct {
	hash ident.Hash
	desc string
}

type subscriber struct {
	mu     sync.Mutex
	queue  []event
	signal chan struct{}
}

func (n *Notifier) init() {
	if n.subs == nil {
		n.subs = make(map[uint64]*subscriber)
		n.done = make(chan struct{})
	}
}

// Publish queues an event for every current subscriber.
func (n *Notifier) Publish(h ident.Hash, desc string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, s := range n.subs {
		s.mu.Lock()
		s.queue = append(s.queue, event{hash: h, desc: desc})
		s.mu.Unlock()
		select {
		case s.signal <- struct{}{}:
		default:
		}
	}
}

// Subscribe calls f for every event published after it registers. It blocks
// until ctx is done or the Notifier is closed and returns ctx.Err() or
// ErrClosed respectively. Events queued when it stops are dropped.
func (n *Notifier) Subscribe(ctx context.Context, f UpdateFunc) error {
	n.mu.Lock()
	n.init()
	if n.closed {
		n.mu.Unlock()
		return ErrClosed
	}
	id := n.next
	n.next++
	s := &subscriber{signal: make(chan struct{}, 1)}
	n.subs[id] = s
	done := n.done
	n.mu.Unlock()

	defer func() {
		n.mu.Lock()
		delete(n.subs, id)
		n.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-done:
			return ErrClosed
		case <-s.signal:
		}
		s.mu.Lock()
		batch := s.queue
		s.queue = nil
		s.mu.Unlock()
		for _, ev := range batch {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f(ev.hash, ev.desc)
		}
	}
}

// Subscribers returns the number of registered subscriptions.
func (n *Notifier) Subscribers() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}

// Close ends every subscription with ErrClosed and rejects new ones.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.init()
	if n.closed {
		return
	}
	n.closed = true
	close(n.done)
}
