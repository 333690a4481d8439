package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

type NATSConfig struct {
	URL            string
	Name           string
	SubjectPrefix  string
	ReconnectWait  time.Duration
	MaxReconnects  int
	ConnectTimeout time.Duration
}

type publisher interface {
	Publish(subject string, data []byte) error
}

// NATSNotifier publishes events as JSON on <prefix>.<group_id>.<type>.
type NATSNotifier struct {
	conn   *nats.Conn
	pub    publisher
	prefix string
}

func NewNATSNotifier(cfg NATSConfig) (*NATSNotifier, error) {
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			zap.L().Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			zap.L().Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}

	zap.L().Info("Connected to NATS", zap.String("url", conn.ConnectedUrl()))
	return &NATSNotifier{conn: conn, pub: conn, prefix: cfg.SubjectPrefix}, nil
}

func (n *NATSNotifier) Subject(event Event) string {
	return strings.Join([]string{n.prefix, event.GroupID, string(event.Type)}, ".")
}

func (n *NATSNotifier) Publish(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	if err := n.pub.Publish(n.Subject(event), payload); err != nil {
		return fmt.Errorf("publishing %s: %w", event.Type, err)
	}
	return nil
}

// Relay forwards every event published under the prefix, by this instance or
// any other, to h. The returned subscription stays active until Close.
func (n *NATSNotifier) Relay(h *Hub) (*nats.Subscription, error) {
	if n.conn == nil {
		return nil, fmt.Errorf("relay needs a live NATS connection")
	}
	sub, err := n.conn.Subscribe(n.prefix+".>", h.HandleNATS)
	if err != nil {
		return nil, fmt.Errorf("subscribing to %s.>: %w", n.prefix, err)
	}
	return sub, nil
}

func (n *NATSNotifier) Close() {
	if n.conn == nil {
		return
	}
	if err := n.conn.Drain(); err != nil {
		zap.L().Warn("Failed to drain NATS connection", zap.Error(err))
	}
}
