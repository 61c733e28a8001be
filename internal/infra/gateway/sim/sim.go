// Package sim is an in-process payment gateway for local runs and tests.
package sim

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/Almog1339/ChabbyNb-API-sub000/internal/app/policies"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/shared/fault"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/shared/money"
)

// Gateway keeps intents in memory. A payment method containing "declined"
// fails confirmation, which gives tests a handle on the failure paths.
type Gateway struct {
	mu      sync.Mutex
	intents map[string]*intent

	// FailRefunds makes every refund call fail, for exercising the
	// cancellation fallback path.
	FailRefunds bool
}

type intent struct {
	id       string
	amount   money.Money
	status   policies.IntentStatus
	refunded int64
}

func New() *Gateway {
	return &Gateway{intents: make(map[string]*intent)}
}

func (g *Gateway) CreateIntent(ctx context.Context, amount money.Money, metadata map[string]string) (policies.PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := "pi_sim_" + uuid.NewString()
	g.intents[id] = &intent{id: id, amount: amount, status: policies.IntentRequiresConfirmation}
	return policies.PaymentIntent{IntentID: id, ClientSecret: id + "_secret"}, nil
}

func (g *Gateway) Confirm(ctx context.Context, intentID, paymentMethod string) (policies.IntentStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	in, ok := g.intents[intentID]
	if !ok {
		return "", fault.Gatewayf("sim: unknown intent %s", intentID)
	}
	if strings.Contains(paymentMethod, "declined") {
		in.status = policies.IntentFailed
	} else {
		in.status = policies.IntentSucceeded
	}
	return in.status, nil
}

func (g *Gateway) Refund(ctx context.Context, intentID string, amount money.Money, reason string) (policies.RefundReceipt, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailRefunds {
		return policies.RefundReceipt{}, fault.Gatewayf("sim: refunds disabled")
	}
	in, ok := g.intents[intentID]
	if !ok {
		return policies.RefundReceipt{}, fault.Gatewayf("sim: unknown intent %s", intentID)
	}
	if in.status != policies.IntentSucceeded {
		return policies.RefundReceipt{}, fault.Gatewayf("sim: intent %s not captured", intentID)
	}
	if in.refunded+amount.Amount > in.amount.Amount {
		return policies.RefundReceipt{}, fault.Gatewayf("sim: refund exceeds charge")
	}
	in.refunded += amount.Amount
	return policies.RefundReceipt{RefundID: "re_sim_" + uuid.NewString(), Status: "succeeded"}, nil
}

var _ policies.GatewayPort = (*Gateway)(nil)
