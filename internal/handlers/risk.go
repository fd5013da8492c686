package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"tradecontrol/pkg/risk"
)

// RiskStatusResponse is the admission state of the control plane
type RiskStatusResponse struct {
	risk.Status
	OpenPositions int `json:"open_positions"`
	MaxPositions  int `json:"max_positions"`
	PendingOrders int `json:"pending_orders"`
}

// GetRiskStatus returns breaker, daily ledger and capacity state
func (h *Controller) GetRiskStatus(c *gin.Context) {
	c.JSON(http.StatusOK, RiskStatusResponse{
		Status:        h.Guard.Status(),
		OpenPositions: h.Positions.OpenCount(),
		MaxPositions:  h.Positions.MaxPositions(),
		PendingOrders: h.Transactions.PendingCount(),
	})
}

// ResetBreaker closes the circuit breaker
func (h *Controller) ResetBreaker(c *gin.Context) {
	h.Guard.Reset()
	log.WithField("client_ip", c.ClientIP()).Warn("Circuit breaker reset by operator")
	c.JSON(http.StatusOK, h.Guard.Status())
}

// ResetDailyLoss zeroes the day's loss counters and lifts a daily-loss halt
func (h *Controller) ResetDailyLoss(c *gin.Context) {
	h.Guard.ResetDaily()
	log.WithField("client_ip", c.ClientIP()).Warn("Daily loss counters reset by operator")
	c.JSON(http.StatusOK, h.Guard.Status())
}
