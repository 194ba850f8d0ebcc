// Package memory provides an in-process cart signal bus for single-node runs.
package memory

import (
	"context"
	"sync"

	"github.com/TeninChristopher/SAM/internal/repository"
)

type SignalBus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]func(repository.CartSignal)
}

func NewSignalBus() *SignalBus {
	return &SignalBus{subs: make(map[string]map[int]func(repository.CartSignal))}
}

// Publish delivers synchronously to every current subscriber of the cart.
func (b *SignalBus) Publish(ctx context.Context, sig repository.CartSignal) error {
	b.mu.RLock()
	handlers := make([]func(repository.CartSignal), 0, len(b.subs[sig.CartID]))
	for _, h := range b.subs[sig.CartID] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(sig)
	}
	return nil
}

func (b *SignalBus) Subscribe(ctx context.Context, cartID string, handler func(repository.CartSignal)) (repository.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs[cartID] == nil {
		b.subs[cartID] = make(map[int]func(repository.CartSignal))
	}
	b.nextID++
	id := b.nextID
	b.subs[cartID][id] = handler
	return &subscription{bus: b, cartID: cartID, id: id}, nil
}

func (b *SignalBus) drop(cartID string, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs[cartID], id)
	if len(b.subs[cartID]) == 0 {
		delete(b.subs, cartID)
	}
}

type subscription struct {
	bus    *SignalBus
	cartID string
	id     int
	once   sync.Once
}

func (s *subscription) Unsubscribe() error {
	s.once.Do(func() { s.bus.drop(s.cartID, s.id) })
	return nil
}
