package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestSecurityHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(SecurityHeaders())
	r.POST("/api/accounts/login", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"access_token": "jwt"})
	})
	r.GET("/api/accounts/missing", func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	})

	expected := map[string]string{
		"X-Frame-Options":           "DENY",
		"X-Content-Type-Options":    "nosniff",
		"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
		"Content-Security-Policy":   DefaultContentSecurityPolicy,
		"Referrer-Policy":           "no-referrer",
		"Cache-Control":             "no-store",
	}

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodPost, "/api/accounts/login", nil),
		httptest.NewRequest(http.MethodGet, "/api/accounts/missing", nil),
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		for header, value := range expected {
			require.Equal(t, value, w.Header().Get(header), "%s %s: %s", req.Method, req.URL.Path, header)
		}
	}
}
