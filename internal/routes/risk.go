package routes

import (
	"github.com/gin-gonic/gin"

	"tradecontrol/internal/handlers"
)

// SetupRiskRoutes sets up admission state and reset routes
func SetupRiskRoutes(r *gin.Engine, h *handlers.Controller, operator gin.HandlerFunc) {
	group := r.Group("/risk")
	{
		group.GET("/status", h.GetRiskStatus)
		group.POST("/reset", operator, h.ResetBreaker)
		group.POST("/reset-daily", operator, h.ResetDailyLoss)
	}
}
