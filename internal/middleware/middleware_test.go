package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"pds_backend/internal/auth"
	"pds_backend/internal/middleware"
	"pds_backend/internal/models"
	"pds_backend/internal/repositories"
	dbtest "pds_backend/internal/testutil"
	"pds_backend/pkg/metrics"
)

const secret = "middleware-test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(db *gorm.DB, tm *auth.TokenManager, extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestIDMiddleware(), middleware.DBMiddleware(db))
	chain := append([]gin.HandlerFunc{middleware.AuthMiddleware(tm, repositories.NewUserRepository())}, extra...)
	chain = append(chain, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": middleware.GetUserID(c),
			"email":   middleware.GetEmail(c),
			"role":    middleware.GetRole(c),
		})
	})
	r.GET("/protected", chain...)
	return r
}

func doGet(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	return body.Error.Message
}

func TestAuthMiddleware(t *testing.T) {
	db := dbtest.NewTestDB(t)
	tm := auth.NewTokenManager(secret, time.Hour)
	r := newRouter(db, tm)

	user := dbtest.CreateUser(t, db, dbtest.UserOpts{Role: models.RoleHR})
	token, err := tm.Generate(user.ID, user.Email, string(models.RoleHR))
	require.NoError(t, err)

	w := doGet(r, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, user.ID, body["user_id"])
	assert.Equal(t, user.Email, body["email"])
	assert.Equal(t, "HR", body["role"])

	w = doGet(r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Access denied. No token provided.", errorMessage(t, w))

	forged, err := auth.NewTokenManager("other-secret", time.Hour).Generate(user.ID, user.Email, "ADMIN")
	require.NoError(t, err)
	w = doGet(r, forged)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid or expired token", errorMessage(t, w))

	require.NoError(t, repositories.NewUserRepository().SetActive(db, user.ID, false))
	w = doGet(r, token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "User not found or inactive", errorMessage(t, w))
}

func TestAuthMiddleware_RoleComesFromDatabase(t *testing.T) {
	db := dbtest.NewTestDB(t)
	tm := auth.NewTokenManager(secret, time.Hour)
	r := newRouter(db, tm, middleware.RequireRoles(models.RoleAdmin))

	user := dbtest.CreateUser(t, db, dbtest.UserOpts{})
	// claims say ADMIN, the stored role is USER
	token, err := tm.Generate(user.ID, user.Email, string(models.RoleAdmin))
	require.NoError(t, err)

	w := doGet(r, token)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Insufficient permissions", errorMessage(t, w))

	admin := dbtest.CreateUser(t, db, dbtest.UserOpts{Role: models.RoleAdmin})
	token, err = tm.Generate(admin.ID, admin.Email, string(models.RoleAdmin))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, doGet(r, token).Code)
}

func TestRequireVerified(t *testing.T) {
	db := dbtest.NewTestDB(t)
	tm := auth.NewTokenManager(secret, time.Hour)
	r := newRouter(db, tm, middleware.RequireVerified())

	user := dbtest.CreateUser(t, db, dbtest.UserOpts{Unverified: true})
	token, err := tm.Generate(user.ID, user.Email, string(models.RoleUser))
	require.NoError(t, err)

	w := doGet(r, token)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Email verification required", errorMessage(t, w))
}

func TestSlidingAccessToken(t *testing.T) {
	db := dbtest.NewTestDB(t)
	user := dbtest.CreateUser(t, db, dbtest.UserOpts{})

	shortLived := auth.NewTokenManager(secret, 2*time.Minute)
	r := newRouter(db, shortLived, middleware.SlidingAccessToken(shortLived, middleware.DefaultSlidingWindow))
	token, err := shortLived.Generate(user.ID, user.Email, string(models.RoleUser))
	require.NoError(t, err)

	w := doGet(r, token)
	require.Equal(t, http.StatusOK, w.Code)
	fresh := w.Header().Get(middleware.NewAccessTokenHeader)
	require.NotEmpty(t, fresh)
	claims, err := shortLived.Parse(fresh)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	longLived := auth.NewTokenManager(secret, time.Hour)
	r = newRouter(db, longLived, middleware.SlidingAccessToken(longLived, middleware.DefaultSlidingWindow))
	token, err = longLived.Generate(user.ID, user.Email, string(models.RoleUser))
	require.NoError(t, err)
	w = doGet(r, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get(middleware.NewAccessTokenHeader))
}

func TestRequestIDMiddleware_ReusesIncomingID(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RequestIDMiddleware())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Header().Get(middleware.RequestIDHeader))
}

func TestCORSMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(middleware.CORSMiddleware("https://pds.example"))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://pds.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://pds.example", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsMiddleware_UsesRouteTemplate(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewHTTPMetrics(reg)
	r := gin.New()
	r.Use(middleware.MetricsMiddleware(m))
	r.GET("/videos/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, id := range []string{"1", "2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/videos/"+id, nil))
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	// one series for /videos/:id, one for the unmatched path
	count, err := testutil.GatherAndCount(reg, "http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
