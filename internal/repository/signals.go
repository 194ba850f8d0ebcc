package repository

import (
	"context"
	"time"
)

// CartSignal tells every view of a cart that it changed and must refetch.
// Origin identifies the view that caused the change.
type CartSignal struct {
	CartID string    `json:"cart_id"`
	Origin string    `json:"origin"`
	At     time.Time `json:"at"`
}

type Subscription interface {
	Unsubscribe() error
}

type CartSignalBus interface {
	Publish(ctx context.Context, sig CartSignal) error
	// Subscribe calls handler for every signal on cartID until the
	// subscription is dropped. Handlers must not block for long.
	Subscribe(ctx context.Context, cartID string, handler func(CartSignal)) (Subscription, error)
}

func CartSignalSubject(cartID string) string {
	return "cart." + cartID + ".changed"
}
