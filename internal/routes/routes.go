package routes

import (
	"github.com/gin-gonic/gin"

	"tradecontrol/internal/handlers"
	"tradecontrol/internal/middleware"
	"tradecontrol/pkg/monitor"
)

// RouterConfig holds the HTTP-level settings of the control API
type RouterConfig struct {
	AllowedOrigins []string
	RateLimit      middleware.RateLimiterConfig
	OperatorToken  string
}

// SetupRouter initializes and returns the Gin router with all routes configured
func SetupRouter(cfg RouterConfig, h *handlers.Controller) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())

	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(monitor.Handler()))

	r.Use(corsMiddleware(cfg.AllowedOrigins))
	if cfg.RateLimit.RequestsPerSecond > 0 {
		r.Use(middleware.RateLimiterMiddleware(cfg.RateLimit))
	}

	operator := middleware.OperatorAuth(cfg.OperatorToken)
	SetupRiskRoutes(r, h, operator)
	SetupPositionRoutes(r, h, operator)
	SetupTransactionRoutes(r, h)
	SetupCampaignRoutes(r, h, operator)
	SetupTradeRoutes(r, h)

	return r
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return func(c *gin.Context) {
		if origin := c.Request.Header.Get("Origin"); allowed[origin] {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, Origin, Cache-Control, X-Requested-With, "+middleware.OperatorTokenHeader)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
