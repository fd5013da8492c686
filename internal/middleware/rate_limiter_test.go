package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("Rejects Over Budget", func(t *testing.T) {
		r := gin.New()
		r.Use(RateLimiterMiddleware(RateLimiterConfig{RequestsPerSecond: 0.001, Burst: 2}))
		r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

		codes := make([]int, 0, 3)
		for i := 0; i < 3; i++ {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			req.RemoteAddr = "10.0.0.1:1234"
			r.ServeHTTP(w, req)
			codes = append(codes, w.Code)
		}
		assert.Equal(t, []int{200, 200, 429}, codes)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.2:1234"
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, "other clients keep their own budget")
	})

	t.Run("Idle Clients Are Dropped", func(t *testing.T) {
		rl := newRateLimiterMap(RateLimiterConfig{RequestsPerSecond: 1, Burst: 1})
		now := time.Now()
		rl.now = func() time.Time { return now }

		rl.getLimiter("a")
		rl.getLimiter("b")
		assert.Equal(t, 2, rl.size())

		now = now.Add(limiterIdleTTL + time.Second)
		rl.getLimiter("c")
		assert.Equal(t, 1, rl.size())
	})
}
