package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"github.com/Almog1339/ChabbyNb-API-sub000/internal/infra/config"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/infra/obs"
)

type ReservationHTTP interface {
	Quote(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
	ConfirmPayment(c *gin.Context)
	Cancel(c *gin.Context)
	RefundPreview(c *gin.Context)
	DailyPrices(c *gin.Context)
}

type WebhookHTTP interface {
	GatewayEvent(c *gin.Context)
}

type AdminHTTP interface {
	CompleteRefund(c *gin.Context)
}

type Handlers struct {
	Reservation ReservationHTTP
	Webhook     WebhookHTTP
	Admin       AdminHTTP
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Reservation != nil {
		api.POST("/quotes", h.Reservation.Quote)
		api.GET("/units/:id/daily-prices", h.Reservation.DailyPrices)
		api.POST("/reservations", h.Reservation.Create)
		api.GET("/reservations/:id", h.Reservation.Get)
		api.POST("/reservations/:id/confirm", h.Reservation.ConfirmPayment)
		api.POST("/reservations/:id/cancel", h.Reservation.Cancel)
		api.GET("/reservations/:id/refund-preview", h.Reservation.RefundPreview)
	}
	if h.Webhook != nil {
		api.POST("/webhooks/gateway", h.Webhook.GatewayEvent)
	}
	if h.Admin != nil {
		admin := api.Group("/admin")
		admin.POST("/reservations/:id/refunds", h.Admin.CompleteRefund)
	}

	return &http.Server{Addr: cfg.HTTPAddr, Handler: router}
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
