package routes

import (
	"github.com/gin-gonic/gin"

	"tradecontrol/internal/handlers"
)

// SetupCampaignRoutes sets up campaign phase routes
func SetupCampaignRoutes(r *gin.Engine, h *handlers.Controller, operator gin.HandlerFunc) {
	group := r.Group("/campaign")
	{
		group.GET("", h.GetCampaign)
		group.POST("/next", operator, h.StartNextPhase)
		group.POST("/pause", operator, h.PausePhase)
		group.POST("/resume", operator, h.ResumePhase)
		group.POST("/fail", operator, h.FailPhase)
	}
}
