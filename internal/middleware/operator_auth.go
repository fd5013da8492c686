package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// OperatorTokenHeader carries the operator token when no bearer token is sent
const OperatorTokenHeader = "X-Operator-Token"

// OperatorAuth guards state-changing control routes. An empty token leaves
// the routes open.
func OperatorAuth(token string) gin.HandlerFunc {
	if token == "" {
		return func(c *gin.Context) { c.Next() }
	}
	want := []byte(token)
	return func(c *gin.Context) {
		got := c.GetHeader(OperatorTokenHeader)
		if bearer, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer "); ok {
			got = bearer
		}
		if got == "" || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
			log.WithFields(log.Fields{
				"path":      c.FullPath(),
				"client_ip": c.ClientIP(),
			}).Warn("Operator request rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "operator token required"})
			return
		}
		c.Next()
	}
}
