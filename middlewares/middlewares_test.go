package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/production_backend/config"
	"github.com/mmdatafocus/production_backend/utils"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCorrelationMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(CorrelationMiddleware())
	var seen string
	r.GET("/ping", func(c *gin.Context) {
		seen, _ = utils.GetCorrelationIdFromContext(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("x-correlation-id", "abc-123")
	w := serve(r, req)
	assert.Equal(t, "abc-123", w.Header().Get("x-correlation-id"))
	assert.Equal(t, "abc-123", seen)

	w = serve(r, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.NotEmpty(t, w.Header().Get("x-correlation-id"))
	assert.Equal(t, w.Header().Get("x-correlation-id"), seen)
}

func TestReadinessMiddleware(t *testing.T) {
	previous := config.GetDB()
	config.SetDB(nil)
	t.Cleanup(func() { config.SetDB(previous) })

	r := gin.New()
	r.Use(ReadinessMiddleware())
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/api/scan", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusNoContent, serve(r, httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(r, httptest.NewRequest(http.MethodGet, "/api/scan", nil)).Code)
}

func TestRequestToken(t *testing.T) {
	cases := []struct {
		header, value, want string
	}{
		{"token", " abc ", "abc"},
		{"Authorization", "Bearer xyz", "xyz"},
		{"Authorization", "bearer  xyz ", "xyz"},
		{"Authorization", "Basic xyz", ""},
	}
	for _, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		c.Request.Header.Set(tc.header, tc.value)
		assert.Equal(t, tc.want, requestToken(c), "%s: %s", tc.header, tc.value)
	}
}

func TestSessionMiddleware(t *testing.T) {
	t.Setenv("API_SECRET", "middleware-test-secret")
	require.Nil(t, config.GetRedisDB())

	r := gin.New()
	r.Use(SessionMiddleware())
	r.GET("/me", func(c *gin.Context) {
		id, ok := utils.GetUserIdFromContext(c.Request.Context())
		role, _ := utils.GetUserRoleFromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"id": id, "ok": ok, "role": role})
	})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/me", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":0,"ok":false,"role":""}`, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("token", "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)

	token, err := utils.JwtGenerate(9, "Supervisor", "supervisor")
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = serve(r, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":9,"ok":true,"role":"supervisor"}`, w.Body.String())
}

func TestRequireAuthWithoutSession(t *testing.T) {
	r := gin.New()
	r.GET("/floor", RequireAuth(), func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusUnauthorized, serve(r, httptest.NewRequest(http.MethodGet, "/floor", nil)).Code)
}

func TestRequireRole(t *testing.T) {
	asRole := func(role string) gin.HandlerFunc {
		return func(c *gin.Context) {
			c.Request = c.Request.WithContext(utils.SetOperatorInContext(c.Request.Context(), 1, "u", role))
			c.Next()
		}
	}
	for role, want := range map[string]int{
		"admin":      http.StatusOK,
		"supervisor": http.StatusOK,
		"operator":   http.StatusForbidden,
		"":           http.StatusForbidden,
	} {
		r := gin.New()
		r.GET("/admin", asRole(role), RequireRole("admin", "supervisor"), func(c *gin.Context) { c.Status(http.StatusOK) })
		assert.Equal(t, want, serve(r, httptest.NewRequest(http.MethodGet, "/admin", nil)).Code, role)
	}
}

func TestRateLimiterWithoutRedis(t *testing.T) {
	rl := NewRateLimiter(func() *redis.Client { return nil }, 1, time.Minute)
	r := gin.New()
	r.Use(rl.RateLimitMiddleware)
	r.GET("/api/scan", func(c *gin.Context) { c.Status(http.StatusOK) })
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/api/scan", nil)).Code)
	}
}
