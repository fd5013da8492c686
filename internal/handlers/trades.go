package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultTradeLimit = 50
	maxTradeLimit     = 500
)

// ListTrades returns the most recent journaled trades
func (h *Controller) ListTrades(c *gin.Context) {
	if h.History == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Trade journal database not configured"})
		return
	}
	limit := defaultTradeLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = n
	}
	if limit > maxTradeLimit {
		limit = maxTradeLimit
	}
	trades, err := h.History.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, trades)
}
