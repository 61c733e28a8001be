// Package httpgw talks to the payment processor's REST API.
package httpgw

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Almog1339/ChabbyNb-API-sub000/internal/app/policies"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/shared/fault"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/shared/money"
)

// Gateway implements policies.GatewayPort over HTTP. Refund requests carry
// an Idempotency-Key and are retried on transient failure; intent creation
// is sent exactly once because a retry could double-charge.
type Gateway struct {
	Client  *http.Client
	BaseURL string
	APIKey  string
	Logger  *slog.Logger
	Backoff []time.Duration
}

func New(baseURL, apiKey string, timeout time.Duration, backoff []time.Duration, logger *slog.Logger) *Gateway {
	return &Gateway{
		Client:  &http.Client{Timeout: timeout},
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Logger:  logger,
		Backoff: backoff,
	}
}

type intentRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type intentResponse struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

type confirmRequest struct {
	PaymentMethod string `json:"payment_method"`
}

type refundRequest struct {
	IntentID string `json:"intent_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Reason   string `json:"reason,omitempty"`
}

type refundResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (g *Gateway) CreateIntent(ctx context.Context, amount money.Money, metadata map[string]string) (policies.PaymentIntent, error) {
	payload := intentRequest{Amount: amount.Amount, Currency: amount.Currency, Metadata: metadata}
	var resp intentResponse
	if err := g.post(ctx, "/v1/payment_intents", "", payload, &resp); err != nil {
		return policies.PaymentIntent{}, err
	}
	return policies.PaymentIntent{IntentID: resp.ID, ClientSecret: resp.ClientSecret}, nil
}

func (g *Gateway) Confirm(ctx context.Context, intentID, paymentMethod string) (policies.IntentStatus, error) {
	var resp intentResponse
	path := "/v1/payment_intents/" + intentID + "/confirm"
	if err := g.post(ctx, path, "", confirmRequest{PaymentMethod: paymentMethod}, &resp); err != nil {
		return "", err
	}
	return policies.IntentStatus(resp.Status), nil
}

func (g *Gateway) Refund(ctx context.Context, intentID string, amount money.Money, reason string) (policies.RefundReceipt, error) {
	payload := refundRequest{IntentID: intentID, Amount: amount.Amount, Currency: amount.Currency, Reason: reason}
	idempotencyKey := "refund:" + intentID + ":" + fmt.Sprint(amount.Amount)
	var resp refundResponse
	var err error
	for attempt := 0; ; attempt++ {
		err = g.post(ctx, "/v1/refunds", idempotencyKey, payload, &resp)
		if err == nil {
			return policies.RefundReceipt{RefundID: resp.ID, Status: resp.Status}, nil
		}
		if attempt >= len(g.Backoff) {
			break
		}
		if g.Logger != nil {
			g.Logger.Warn("gateway refund attempt failed, retrying",
				"intent_id", intentID, "attempt", attempt+1, "error", err)
		}
		select {
		case <-ctx.Done():
			return policies.RefundReceipt{}, ctx.Err()
		case <-time.After(g.Backoff[attempt]):
		}
	}
	return policies.RefundReceipt{}, err
}

func (g *Gateway) post(ctx context.Context, path, idempotencyKey string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Authorization", "Bearer "+g.APIKey)
	if idempotencyKey != "" {
		request.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := g.Client.Do(request)
	if err != nil {
		return fault.Wrap(fault.ErrGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fault.Gatewayf("gateway returned status %d: %s", resp.StatusCode, string(snippet))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fault.Wrap(fault.ErrGateway, err)
	}
	return nil
}

var _ policies.GatewayPort = (*Gateway)(nil)
