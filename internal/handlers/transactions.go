package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListPendingOrders returns orders still in flight
func (h *Controller) ListPendingOrders(c *gin.Context) {
	c.JSON(http.StatusOK, h.Transactions.Pending())
}

// ListCompletedOrders returns every order result recorded this session
func (h *Controller) ListCompletedOrders(c *gin.Context) {
	c.JSON(http.StatusOK, h.Transactions.CompletedResults())
}
