package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tradecontrol/pkg/solana"
)

// Health reports RPC reachability and whether trading is halted.
// An unreachable RPC makes the service unhealthy; a halt does not.
func (h *Controller) Health(c *gin.Context) {
	body := gin.H{
		"status": "ok",
		"halted": h.Guard.IsHalted(),
	}
	if h.RPCHealth != nil {
		results := h.RPCHealth(c.Request.Context())
		body["rpc"] = results
		if !solana.AllHealthy(results) {
			body["status"] = "degraded"
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
	}
	c.JSON(http.StatusOK, body)
}
