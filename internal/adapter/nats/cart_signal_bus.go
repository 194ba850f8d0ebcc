package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/TeninChristopher/SAM/internal/platform/logger"
	"github.com/TeninChristopher/SAM/internal/repository"
	"github.com/nats-io/nats.go"
)

type cartSignalBus struct {
	conn *nats.Conn
	log  logger.Logger
}

func NewCartSignalBus(conn *nats.Conn, log logger.Logger) (repository.CartSignalBus, error) {
	if conn == nil {
		return nil, fmt.Errorf("NATS connection cannot be nil")
	}
	return &cartSignalBus{conn: conn, log: log}, nil
}

func (b *cartSignalBus) Publish(ctx context.Context, sig repository.CartSignal) error {
	data, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("failed to marshal cart signal: %w", err)
	}
	subject := repository.CartSignalSubject(sig.CartID)
	if err := b.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish message to NATS subject %s: %w", subject, err)
	}
	return nil
}

func (b *cartSignalBus) Subscribe(ctx context.Context, cartID string, handler func(repository.CartSignal)) (repository.Subscription, error) {
	subject := repository.CartSignalSubject(cartID)
	sub, err := b.conn.Subscribe(subject, func(msg *nats.Msg) {
		var sig repository.CartSignal
		if err := json.Unmarshal(msg.Data, &sig); err != nil {
			b.log.Warnf("Dropping malformed cart signal on %s: %v", msg.Subject, err)
			return
		}
		handler(sig)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to NATS subject %s: %w", subject, err)
	}
	return sub, nil
}
