package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tradecontrol/pkg/phases"
)

type CampaignResponse struct {
	Current string                 `json:"current"`
	Phases  []phases.CampaignPhase `json:"phases"`
}

// FailPhaseRequest represents the request body for failing the current phase
type FailPhaseRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (h *Controller) campaignResponse() CampaignResponse {
	return CampaignResponse{
		Current: h.Campaign.CurrentPhaseName(),
		Phases:  h.Campaign.Phases(),
	}
}

// GetCampaign returns every phase and the current one
func (h *Controller) GetCampaign(c *gin.Context) {
	c.JSON(http.StatusOK, h.campaignResponse())
}

// StartNextPhase moves the campaign to its next phase
func (h *Controller) StartNextPhase(c *gin.Context) {
	if _, err := h.Campaign.StartNextPhase(); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.campaignResponse())
}

func (h *Controller) PausePhase(c *gin.Context) {
	if err := h.Campaign.Pause(); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.campaignResponse())
}

func (h *Controller) ResumePhase(c *gin.Context) {
	if err := h.Campaign.Resume(); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.campaignResponse())
}

// FailPhase marks the current phase failed
func (h *Controller) FailPhase(c *gin.Context) {
	var request FailPhaseRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Campaign.Fail(request.Reason); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.campaignResponse())
}
