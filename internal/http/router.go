package api

import (
	"log"
	stdhttp "net/http"

	intconfig "paydesk/internal/config"
	h "paydesk/internal/http/handlers"
	"paydesk/internal/http/middleware"
	"paydesk/internal/repositories"
	"paydesk/internal/services"

	"github.com/gin-gonic/gin"
)

func NewRouter(env intconfig.Env) *gin.Engine {
	manager := services.NewCheckoutManager(
		repositories.ReservationRepository{},
		repositories.VoucherBalanceRepository{},
		env.SaveDelay,
	)
	h.Setup(manager, []byte(env.JWTSecret))

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), gin.Recovery(), middleware.CORS(env.CORSOrigins))

	if err := r.SetTrustedProxies(nil); err != nil {
		log.Printf("warning: failed to set trusted proxies: %v", err)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"error":  "route not found",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/db-check", h.DBCheck)

		auth := api.Group("/auth")
		auth.POST("/login", h.Login)
		auth.POST("/register", h.Register)

		secured := api.Group("")
		secured.Use(middleware.RequireAuth([]byte(env.JWTSecret)))

		secured.GET("/reservations/:code", h.GetReservation)

		checkout := secured.Group("/checkout/:code")
		checkout.GET("/summary", h.GetCheckoutSummary)
		checkout.GET("/receipt", h.GetReceiptPDF)
		checkout.POST("/copy", h.CopyInstrument)
		checkout.POST("/vouchers/check", h.CheckVoucherBalance)
		checkout.POST("/finalize", middleware.RequireRoles("agent", "supervisor"), h.FinalizeCheckout)

		items := checkout.Group("/items/:passengerId/:itemType")
		items.POST("/select", h.SelectItem)
		items.DELETE("/select", h.DeselectItem)
		items.POST("/instruments", h.AddInstrument)
		items.PUT("/instruments/:slotId/field", h.EditInstrumentField)
		items.PUT("/instruments/:slotId/amount", h.EditInstrumentAmount)
		items.POST("/instruments/:slotId/commit", h.CommitInstrument)
		items.DELETE("/instruments/:slotId", h.RemoveInstrument)
	}

	return r
}
