package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tradecontrol/internal/core"
	"tradecontrol/internal/models"
	"tradecontrol/internal/orchestrator"
	"tradecontrol/pkg/executor"
	"tradecontrol/pkg/phases"
	"tradecontrol/pkg/risk"
	"tradecontrol/pkg/solana"
)

// TradeCloser closes and lists pipeline-managed positions
type TradeCloser interface {
	ClosePosition(ctx context.Context, id uuid.UUID) (core.CompletedTrade, error)
	OpenTrades() []orchestrator.TradeView
}

// TradeHistory reads journaled trades
type TradeHistory interface {
	Recent(ctx context.Context, limit int) ([]models.TradeJournal, error)
}

// HealthCheck probes external dependencies
type HealthCheck func(ctx context.Context) []solana.RPCCheckResult

// Controller serves the control API over the shared control-plane singletons
type Controller struct {
	Guard        *risk.RiskGuard
	Positions    *risk.PositionManager
	Campaign     *phases.PhaseManager
	Transactions *executor.TransactionManager
	Trades       TradeCloser
	History      TradeHistory
	RPCHealth    HealthCheck
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return uuid.Nil, false
	}
	return id, true
}

// statusFor maps the control-plane error taxonomy to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrCapacityExceeded), errors.Is(err, core.ErrPhaseViolation), errors.Is(err, phases.ErrNoMorePhases):
		return http.StatusConflict
	case errors.Is(err, core.ErrAdmissionDenied):
		return http.StatusForbidden
	case errors.Is(err, core.ErrExecutionFailed):
		return http.StatusBadGateway
	case errors.Is(err, core.ErrConfig):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}
