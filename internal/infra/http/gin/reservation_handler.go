package ginserver

import (
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	"github.com/Almog1339/ChabbyNb-API-sub000/internal/app/services/reservations"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/booking"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/catalog"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/pricing"
)

const dateLayout = "2006-01-02"

type ReservationHandler struct {
	Service *reservations.Service
}

type quoteRequest struct {
	UnitID    string `json:"unit_id"`
	CheckIn   string `json:"check_in"`
	CheckOut  string `json:"check_out"`
	Guests    int    `json:"guests"`
	Pets      int    `json:"pets"`
	PromoCode string `json:"promo_code"`
}

func (h ReservationHandler) Quote(c *gin.Context) {
	var req quoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	checkIn, checkOut, ok := parseStay(c, req.CheckIn, req.CheckOut)
	if !ok {
		return
	}
	quote, err := h.Service.Quote(c.Request.Context(), reservations.QuoteRequest{
		UnitID:    catalog.UnitID(req.UnitID),
		CheckIn:   checkIn,
		CheckOut:  checkOut,
		Guests:    req.Guests,
		Pets:      req.Pets,
		PromoCode: req.PromoCode,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newQuoteResponse(quote))
}

type createReservationRequest struct {
	UnitID    string `json:"unit_id"`
	GuestID   string `json:"guest_id"`
	CheckIn   string `json:"check_in"`
	CheckOut  string `json:"check_out"`
	Guests    int    `json:"guests"`
	Pets      int    `json:"pets"`
	PromoCode string `json:"promo_code"`
}

func (h ReservationHandler) Create(c *gin.Context) {
	var req createReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	checkIn, checkOut, ok := parseStay(c, req.CheckIn, req.CheckOut)
	if !ok {
		return
	}
	result, err := h.Service.Create(c.Request.Context(), reservations.CreateRequest{
		UnitID:    catalog.UnitID(req.UnitID),
		GuestID:   req.GuestID,
		CheckIn:   checkIn,
		CheckOut:  checkOut,
		Guests:    req.Guests,
		Pets:      req.Pets,
		PromoCode: req.PromoCode,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"reservation":   newReservationResponse(result.Reservation),
		"intent_id":     result.IntentID,
		"client_secret": result.ClientSecret,
	})
}

func (h ReservationHandler) Get(c *gin.Context) {
	resv, err := h.Service.Get(c.Request.Context(), booking.ReservationID(c.Param("id")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newReservationResponse(resv))
}

type confirmRequest struct {
	PaymentMethod string `json:"payment_method"`
}

func (h ReservationHandler) ConfirmPayment(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	resv, err := h.Service.ConfirmPayment(c.Request.Context(), booking.ReservationID(c.Param("id")), req.PaymentMethod)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newReservationResponse(resv))
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h ReservationHandler) Cancel(c *gin.Context) {
	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	outcome, err := h.Service.Cancel(c.Request.Context(), booking.ReservationID(c.Param("id")), "guest", req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	body := gin.H{
		"reservation":   newReservationResponse(outcome.Reservation),
		"manual_review": outcome.ManualReview,
	}
	if outcome.Refund != nil {
		body["refund"] = newRefundPreviewResponse(*outcome.Refund)
	}
	c.JSON(http.StatusOK, body)
}

func (h ReservationHandler) RefundPreview(c *gin.Context) {
	breakdown, err := h.Service.PreviewRefund(c.Request.Context(), booking.ReservationID(c.Param("id")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newRefundPreviewResponse(breakdown))
}

func (h ReservationHandler) DailyPrices(c *gin.Context) {
	checkIn, checkOut, ok := parseStay(c, c.Query("check_in"), c.Query("check_out"))
	if !ok {
		return
	}
	prices, err := h.Service.DailyPrices(c.Request.Context(), catalog.UnitID(c.Param("id")), checkIn, checkOut)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]gin.H, 0, len(prices))
	for _, p := range prices {
		night := gin.H{
			"date":   p.Date.Format(dateLayout),
			"price":  p.Price.Amount,
			"source": p.Source.String(),
		}
		if p.RateID != "" {
			night["rate_id"] = string(p.RateID)
		}
		out = append(out, night)
	}
	c.JSON(http.StatusOK, gin.H{"nights": out})
}

func parseStay(c *gin.Context, checkIn, checkOut string) (time.Time, time.Time, bool) {
	in, err := time.Parse(dateLayout, checkIn)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "check_in must be YYYY-MM-DD"})
		return time.Time{}, time.Time{}, false
	}
	out, err := time.Parse(dateLayout, checkOut)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "check_out must be YYYY-MM-DD"})
		return time.Time{}, time.Time{}, false
	}
	return in, out, true
}

func newQuoteResponse(q pricing.BookingQuote) gin.H {
	body := gin.H{
		"nights":     q.Nights,
		"base_price": q.BasePrice.Amount,
		"pet_fee":    q.PetFee.Amount,
		"discount":   q.Discount.Amount,
		"total":      q.Total.Amount,
		"currency":   q.Total.Currency,
	}
	if q.PromoCode != "" {
		body["promo_code"] = q.PromoCode
	}
	return body
}

func newReservationResponse(r *booking.Reservation) gin.H {
	return gin.H{
		"id":             string(r.ID),
		"code":           r.Code,
		"unit_id":        string(r.UnitID),
		"guest_id":       r.GuestID,
		"check_in":       r.Range.CheckIn.Format(dateLayout),
		"check_out":      r.Range.CheckOut.Format(dateLayout),
		"guests":         r.Guests,
		"pets":           r.Pets,
		"base_price":     r.BasePrice.Amount,
		"pet_fee":        r.PetFee.Amount,
		"discount":       r.Discount.Amount,
		"total":          r.Total.Amount,
		"currency":       r.Total.Currency,
		"promo_code":     r.PromoCode,
		"status":         r.Status.String(),
		"payment_status": r.Payment.String(),
		"created_at":     r.CreatedAt,
	}
}

func newRefundPreviewResponse(b booking.RefundBreakdown) gin.H {
	return gin.H{
		"refundable":          b.Refundable,
		"days_until_check_in": b.DaysUntilCheckIn,
		"percent":             b.Percent,
		"amount":              b.Amount.Amount,
		"cancellation_fee":    b.CancellationFee.Amount,
		"currency":            b.Amount.Currency,
	}
}

var _ ReservationHTTP = ReservationHandler{}
