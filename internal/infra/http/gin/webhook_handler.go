package ginserver

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	"github.com/Almog1339/ChabbyNb-API-sub000/internal/app/reconcile"
)

// WebhookHandler receives gateway notifications. The signature check runs
// over the raw body before any parsing; an unsigned or mis-signed delivery
// is rejected without touching state.
type WebhookHandler struct {
	Reconciler *reconcile.Reconciler
	Secret     string
}

type gatewayEventPayload struct {
	ID       string    `json:"id"`
	Type     string    `json:"type"`
	IntentID string    `json:"intent_id"`
	RefundID string    `json:"refund_id"`
	Status   string    `json:"status"`
	At       time.Time `json:"created"`
}

func (h WebhookHandler) GatewayEvent(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}
	if !h.verifySignature(body, c.GetHeader("X-Gateway-Signature")) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	var payload gatewayEventPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed event"})
		return
	}
	if err := h.Reconciler.Apply(c.Request.Context(), reconcile.Event{
		ID:       payload.ID,
		Type:     payload.Type,
		IntentID: payload.IntentID,
		RefundID: payload.RefundID,
		Status:   payload.Status,
		At:       payload.At,
	}); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h WebhookHandler) verifySignature(body []byte, signature string) bool {
	if h.Secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(h.Secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

var _ WebhookHTTP = WebhookHandler{}
