package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"github.com/Almog1339/ChabbyNb-API-sub000/internal/app/reconcile"
)

type MessageHandler interface {
	Handle(ctx context.Context, msg *sarama.ConsumerMessage) error
}

type Consumer struct {
	group   sarama.ConsumerGroup
	handler MessageHandler
}

func NewConsumer(brokers []string, groupID string, cfg *sarama.Config, handler MessageHandler) (*Consumer, error) {
	if cfg == nil {
		cfg = sarama.NewConfig()
	}
	cfg.Version = sarama.V2_5_0_0
	g, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, err
	}
	return &Consumer{group: g, handler: handler}, nil
}

func (c *Consumer) Run(ctx context.Context, topics []string) error {
	for {
		if err := c.group.Consume(ctx, topics, consumerGroupHandler{handler: c.handler}); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (c *Consumer) Close() error {
	return c.group.Close()
}

type consumerGroupHandler struct {
	handler MessageHandler
}

func (h consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h consumerGroupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		if err := h.handler.Handle(sess.Context(), message); err != nil {
			// retry/handling delegated to handler
			continue
		}
		sess.MarkMessage(message, "")
	}
	return nil
}

// GatewayEventHandler feeds gateway notifications arriving over a broker
// topic into the reconciler. The reconciler is idempotent, so at-least-once
// delivery is fine.
type GatewayEventHandler struct {
	Reconciler *reconcile.Reconciler
	Logger     *slog.Logger
}

type gatewayEventMessage struct {
	ID       string    `json:"id"`
	Type     string    `json:"type"`
	IntentID string    `json:"intent_id"`
	RefundID string    `json:"refund_id"`
	Status   string    `json:"status"`
	At       time.Time `json:"at"`
}

func (h *GatewayEventHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var ev gatewayEventMessage
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		h.Logger.Warn("malformed gateway event dropped", "topic", msg.Topic, "offset", msg.Offset, "error", err)
		return nil
	}
	return h.Reconciler.Apply(ctx, reconcile.Event{
		ID:       ev.ID,
		Type:     ev.Type,
		IntentID: ev.IntentID,
		RefundID: ev.RefundID,
		Status:   ev.Status,
		At:       ev.At,
	})
}
