package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/TeninChristopher/SAM/internal/platform/logger"
	"github.com/TeninChristopher/SAM/internal/repository"
	"github.com/redis/go-redis/v9"
)

// cartSignalBus fans cart-changed signals out over Redis pub/sub.
type cartSignalBus struct {
	client *redis.Client
	log    logger.Logger
}

func NewCartSignalBus(client *redis.Client, log logger.Logger) repository.CartSignalBus {
	return &cartSignalBus{client: client, log: log}
}

func (b *cartSignalBus) Publish(ctx context.Context, sig repository.CartSignal) error {
	data, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("failed to marshal cart signal: %w", err)
	}
	if err := b.client.Publish(ctx, repository.CartSignalSubject(sig.CartID), data).Err(); err != nil {
		return fmt.Errorf("failed to publish cart signal for cart %s: %w", sig.CartID, err)
	}
	return nil
}

func (b *cartSignalBus) Subscribe(ctx context.Context, cartID string, handler func(repository.CartSignal)) (repository.Subscription, error) {
	pubsub := b.client.Subscribe(ctx, repository.CartSignalSubject(cartID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to cart %s signals: %w", cartID, err)
	}

	go func() {
		for msg := range pubsub.Channel() {
			var sig repository.CartSignal
			if err := json.Unmarshal([]byte(msg.Payload), &sig); err != nil {
				b.log.Warnf("Dropping malformed cart signal on %s: %v", msg.Channel, err)
				continue
			}
			handler(sig)
		}
	}()
	return &subscription{pubsub: pubsub}, nil
}

type subscription struct {
	pubsub *redis.PubSub
}

func (s *subscription) Unsubscribe() error {
	return s.pubsub.Close()
}
