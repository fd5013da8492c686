package routes

import (
	"github.com/gin-gonic/gin"

	"tradecontrol/internal/handlers"
)

func SetupPositionRoutes(r *gin.Engine, h *handlers.Controller, operator gin.HandlerFunc) {
	group := r.Group("/positions")
	{
		group.GET("", h.ListPositions)
		group.GET("/:id", h.GetPosition)
		group.POST("/:id/close", operator, h.ClosePosition)
	}
}

func SetupTransactionRoutes(r *gin.Engine, h *handlers.Controller) {
	group := r.Group("/transactions")
	{
		group.GET("/pending", h.ListPendingOrders)
		group.GET("/completed", h.ListCompletedOrders)
	}
}

func SetupTradeRoutes(r *gin.Engine, h *handlers.Controller) {
	r.GET("/trades", h.ListTrades)
}
