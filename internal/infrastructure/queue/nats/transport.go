package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/junozone1110/faqbot-1/internal/core/domain"
	"github.com/junozone1110/faqbot-1/internal/infrastructure/resilience"
)

// Transport consumes inbound chat messages and publishes outbound actions.
type Transport struct {
	conn     *nats.Conn
	inbound  string
	outbound string
	executor *resilience.Executor
	logger   *slog.Logger
}

type Options struct {
	InboundSubject       string
	OutboundSubject      string
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
	Logger               *slog.Logger
}

func NewWithOptions(url string, options Options) (*Transport, error) {
	if options.InboundSubject == "" || options.OutboundSubject == "" {
		return nil, fmt.Errorf("nats transport: inbound and outbound subjects are required")
	}
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(
		url,
		nats.Name("faqbot"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Transport{
		conn:     conn,
		inbound:  options.InboundSubject,
		outbound: options.OutboundSubject,
		executor: options.ResilienceExecutor,
		logger:   logger,
	}, nil
}

func (t *Transport) Close() {
	if t.conn != nil {
		t.conn.Close()
	}
}

// PublishAction publishes one outbound action as JSON.
func (t *Transport) PublishAction(ctx context.Context, action domain.OutboundAction) error {
	payload, err := encodeAction(action)
	if err != nil {
		return err
	}
	err = t.executor.Execute(ctx, "nats_publish", func(_ context.Context) error {
		if err := t.conn.Publish(t.outbound, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}, classifyPublishError)
	return resilience.WrapTemporary("nats publish", err, classifyPublishError)
}

// Subscribe delivers decoded inbound messages to handler in arrival order
// until ctx is cancelled. Malformed payloads are logged and dropped.
func (t *Transport) Subscribe(ctx context.Context, handler func(context.Context, domain.InboundMessage)) error {
	sub, err := t.conn.Subscribe(t.inbound, func(msg *nats.Msg) {
		if ctx.Err() != nil {
			return
		}
		inbound, err := decodeInbound(msg.Data)
		if err != nil {
			t.logger.Warn("inbound_message_dropped", "subject", msg.Subject, "error", err)
			return
		}
		handler(ctx, inbound)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := t.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}
	t.logger.Info("nats_subscribed", "subject", t.inbound)

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := t.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func decodeInbound(data []byte) (domain.InboundMessage, error) {
	var msg domain.InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return domain.InboundMessage{}, fmt.Errorf("decode inbound message: %w", err)
	}
	if msg.ThreadKey == "" {
		return domain.InboundMessage{}, fmt.Errorf("decode inbound message: thread_key is required")
	}
	return msg, nil
}

func encodeAction(action domain.OutboundAction) ([]byte, error) {
	payload, err := json.Marshal(action)
	if err != nil {
		return nil, fmt.Errorf("encode outbound action: %w", err)
	}
	return payload, nil
}
