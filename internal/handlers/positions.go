package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListPositions returns the open trades with their lifecycle phase
func (h *Controller) ListPositions(c *gin.Context) {
	c.JSON(http.StatusOK, h.Trades.OpenTrades())
}

// GetPosition returns one open position
func (h *Controller) GetPosition(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	position, exists := h.Positions.Get(id)
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "Position not found"})
		return
	}
	c.JSON(http.StatusOK, position)
}

// ClosePosition sells an open position at the current price
func (h *Controller) ClosePosition(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	trade, err := h.Trades.ClosePosition(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, trade)
}
