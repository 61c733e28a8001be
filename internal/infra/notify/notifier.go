// Package notify delivers guest-facing notices.
package notify

import (
	"context"
	"log/slog"

	"github.com/Almog1339/ChabbyNb-API-sub000/internal/app/policies"
)

// LogNotifier renders notices into the log instead of sending mail. The
// real mail integration lives behind the same port.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n *LogNotifier) Send(ctx context.Context, recipient, template string, model map[string]any) error {
	n.Logger.Info("notice sent", "recipient", recipient, "template", template, "model", model)
	return nil
}

var _ policies.NotifierPort = (*LogNotifier)(nil)
