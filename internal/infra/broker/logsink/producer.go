// Package logsink is a broker stand-in for environments without Kafka.
package logsink

import (
	"context"
	"log/slog"
)

// Producer writes would-be publications to the log. Used in local runs so
// the outbox worker still drains.
type Producer struct {
	Logger *slog.Logger
}

func (p *Producer) Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error {
	p.Logger.Info("event published", "topic", topic, "key", key, "bytes", len(payload))
	return nil
}
