package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"

	"github.com/Almog1339/ChabbyNb-API-sub000/internal/app/services/reservations"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/booking"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/shared/money"
)

// AdminHandler covers the back-office operations. The acting administrator
// is taken from the X-Admin-ID header the auth proxy in front of this
// service injects; a request without it is rejected.
type AdminHandler struct {
	Service  *reservations.Service
	Currency string
}

type completeRefundRequest struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

func (h AdminHandler) CompleteRefund(c *gin.Context) {
	adminID := c.GetHeader("X-Admin-ID")
	if adminID == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "missing administrator identity"})
		return
	}
	var req completeRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amount, err := money.New(req.Amount, h.Currency)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	refund, err := h.Service.CompleteRefund(c.Request.Context(), booking.ReservationID(c.Param("id")), amount, req.Reason, adminID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"refund_id": refund.ID,
		"amount":    refund.Amount.Amount,
		"currency":  refund.Amount.Currency,
		"status":    refund.Status.String(),
		"issued_by": refund.IssuedBy,
	})
}

var _ AdminHTTP = AdminHandler{}
