package middleware

import (
	"crypto/subtle"
	"net/http"
	"os"
	"regexp"

	"github.com/gin-gonic/gin"
)

var (
	// Trader ids are Ethereum addresses: 0x followed by 40 hex characters
	traderAddressRegex = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)
)

// BasicAuth returns a middleware that implements HTTP Basic Authentication
func BasicAuth() gin.HandlerFunc {
	username := os.Getenv("AUTH_USERNAME")
	password := os.Getenv("AUTH_PASSWORD")

	return func(c *gin.Context) {
		// Skip auth if credentials not configured
		if username == "" || password == "" {
			c.Next()
			return
		}

		user, pass, hasAuth := c.Request.BasicAuth()
		if !hasAuth {
			c.Header("WWW-Authenticate", `Basic realm="Relations Analyzer"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
			})
			return
		}

		// Use constant-time comparison to prevent timing attacks
		usernameMatch := subtle.ConstantTimeCompare([]byte(user), []byte(username)) == 1
		passwordMatch := subtle.ConstantTimeCompare([]byte(pass), []byte(password)) == 1

		if !usernameMatch || !passwordMatch {
			c.Header("WWW-Authenticate", `Basic realm="Relations Analyzer"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid credentials",
			})
			return
		}

		c.Next()
	}
}

// ValidateTraderID validates that the trader id parameter is a valid
// Ethereum address before it reaches a handler.
func ValidateTraderID() gin.HandlerFunc {
	return func(c *gin.Context) {
		traderID := c.Param("id")
		if traderID == "" || !traderAddressRegex.MatchString(traderID) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": "invalid trader address",
			})
			return
		}
		c.Next()
	}
}
