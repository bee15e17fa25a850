package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dailychallenge/server/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func authEngine(tokens *utils.TokenIssuer, bl *utils.TokenBlacklist) *gin.Engine {
	r := gin.New()
	r.GET("/me", AuthRequired(tokens, bl, func(email string) bool { return email == "root@example.com" }), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"userId": c.GetUint(ContextUserIDKey),
			"admin":  c.GetBool(ContextAdminKey),
		})
	})
	return r
}

func get(r http.Handler, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	tokens := utils.NewTokenIssuer("secret", time.Hour)
	bl := utils.NewTokenBlacklist(nil)
	r := authEngine(tokens, bl)

	tok, exp, err := tokens.Generate(7, "kim@example.com")
	require.NoError(t, err)
	rootTok, _, err := tokens.Generate(1, "root@example.com")
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"missing", "", http.StatusUnauthorized, `"code":40101`},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, `"code":40102`},
		{"empty token", "Bearer  ", http.StatusUnauthorized, `"code":40103`},
		{"garbage", "Bearer abc.def.ghi", http.StatusUnauthorized, `"code":40105`},
		{"valid", "Bearer " + tok, http.StatusOK, `"userId":7`},
		{"admin", "bearer " + rootTok, http.StatusOK, `"admin":true`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			w := get(r, "/me", c.header)
			assert.Equal(t, c.status, w.Code)
			assert.Contains(t, w.Body.String(), c.body)
		})
	}

	bl.Revoke(context.Background(), tok, exp)
	w := get(r, "/me", "Bearer "+tok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"code":40104`)
}

func TestAuthRejectsOtherSecret(t *testing.T) {
	r := authEngine(utils.NewTokenIssuer("secret", time.Hour), utils.NewTokenBlacklist(nil))
	forged, _, err := utils.NewTokenIssuer("other", time.Hour).Generate(1, "a@b.c")
	require.NoError(t, err)

	w := get(r, "/me", "Bearer "+forged)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestIPRateLimiter(t *testing.T) {
	l := NewIPRateLimiter(4)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	// burst is half the per minute budget
	assert.True(t, l.Allow("1.1.1.1"))
	assert.True(t, l.Allow("1.1.1.1"))
	assert.False(t, l.Allow("1.1.1.1"))
	assert.True(t, l.Allow("2.2.2.2"))

	now = now.Add(15 * time.Second)
	assert.True(t, l.Allow("1.1.1.1"))

	now = now.Add(limiterIdle + time.Second)
	l.Allow("3.3.3.3")
	assert.Len(t, l.limiters, 1, "idle buckets are dropped")
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(NewIPRateLimiter(2).Middleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, get(r, "/", "").Code)
	w := get(r, "/", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), `"code":42901`)
}

func TestMetrics(t *testing.T) {
	m := NewMetrics()
	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/challenge/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/private", func(c *gin.Context) { c.Status(http.StatusUnauthorized) })
	r.GET("/metrics", m.Handler("prom", "pw"))

	get(r, "/challenge/1", "")
	get(r, "/challenge/2", "")
	get(r, "/private", "")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("/challenge/:id", http.MethodGet, "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.authRejections.WithLabelValues("401_unauthorized")))

	assert.Equal(t, http.StatusUnauthorized, get(r, "/metrics", "").Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.SetBasicAuth("prom", "pw")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "http_requests_total"))
}
