package transport

import (
	"net/http"
	"time"

	"github.com/bondfyr/party-service/internal/transport/middleware"
	"github.com/gin-gonic/gin"
)

func InitRoutes(
	partyHandler *PartyHandler,
	webhookHandler *WebhookHandler,
	payoutHandler *PayoutHandler,
	adminToken string,
) *gin.Engine {

	router := gin.New()

	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, X-User-ID, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Middleware
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.Timeout(30))

	// API routes
	api := router.Group("/api/v1")
	{
		// Party routes
		parties := api.Group("/parties")
		{
			parties.POST("", partyHandler.CreateParty)
			parties.GET("", partyHandler.GetUpcomingParties)
			parties.GET("/:id", partyHandler.GetParty)
			parties.GET("/host/:host_id", partyHandler.GetHostParties)

			// Guest request lifecycle
			parties.POST("/:id/requests", partyHandler.SubmitRequest)
			parties.POST("/:id/requests/:request_id/approve", partyHandler.ApproveRequest)
			parties.POST("/:id/requests/:request_id/deny", partyHandler.DenyRequest)
			parties.GET("/:id/status/:user_id", partyHandler.GetGuestStatus)
		}

		// Host earnings routes
		earnings := api.Group("/earnings")
		{
			earnings.GET("/:host_id", payoutHandler.GetHostEarnings)
			earnings.POST("/:host_id/bank", payoutHandler.SetupBankAccount)
			earnings.GET("/:host_id/payouts", payoutHandler.GetHostPayouts)
		}

		// Payment provider webhook
		api.POST("/webhooks/payments", webhookHandler.HandlePaymentWebhook)

		// Admin routes
		admin := api.Group("/admin")
		admin.Use(middleware.AdminAuth(adminToken))
		{
			admin.POST("/payouts/run", payoutHandler.TriggerPayouts)
			admin.GET("/payouts/eligible", payoutHandler.GetEligibleHosts)
			admin.GET("/payouts/runs", payoutHandler.GetRecentRuns)
			admin.GET("/payouts/recent", payoutHandler.GetRecentPayouts)
			admin.GET("/queue/dlq", payoutHandler.GetDLQStats)
		}
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	return router
}
