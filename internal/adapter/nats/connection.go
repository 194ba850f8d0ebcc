package nats

import (
	"fmt"
	"time"

	"github.com/TeninChristopher/SAM/internal/app/config"
	"github.com/TeninChristopher/SAM/internal/platform/logger"
	"github.com/nats-io/nats.go"
)

const (
	connectWait   = 5 * time.Second
	maxReconnects = -1
	reconnectWait = 2 * time.Second
)

func NewConnection(cfg config.NATSConfig, log logger.Logger) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("Storefront cart signals"),
		nats.Timeout(connectWait),
		nats.MaxReconnects(maxReconnects),
		nats.ReconnectWait(reconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Warnf("NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Infof("NATS reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Info("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.URL, err)
	}
	return nc, nil
}
