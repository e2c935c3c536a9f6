package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	iauth "github.com/charlesng35/accounts/internal/auth"
	"github.com/charlesng35/accounts/pkg/metrics"
)

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)

	jwtSvc := newTestJWT(t)
	r := gin.New()
	r.GET("/accounts", Auth(jwtSvc), RequireRole(" Admin ", "seller", ""), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	issue := func(role string) string {
		token, _, err := jwtSvc.IssueAccessToken(iauth.SessionClaims{AccountID: "acc-1", Email: "a@example.com", Role: role})
		require.NoError(t, err)
		return token
	}

	allowBefore := testutil.ToFloat64(metrics.RoleChecks.WithLabelValues("allow"))
	denyBefore := testutil.ToFloat64(metrics.RoleChecks.WithLabelValues("deny"))

	cases := []struct {
		role   string
		status int
	}{
		{role: "admin", status: http.StatusNoContent},
		{role: "seller", status: http.StatusNoContent},
		{role: "user", status: http.StatusForbidden},
		{role: "", status: http.StatusForbidden},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/accounts", nil)
		req.Header.Set("Authorization", "Bearer "+issue(tc.role))
		r.ServeHTTP(w, req)
		require.Equal(t, tc.status, w.Code, "role %q", tc.role)
	}

	require.Equal(t, allowBefore+2, testutil.ToFloat64(metrics.RoleChecks.WithLabelValues("allow")))
	require.Equal(t, denyBefore+2, testutil.ToFloat64(metrics.RoleChecks.WithLabelValues("deny")))
}

func TestRequireRoleWithoutAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/accounts", RequireRole("admin"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/accounts", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
