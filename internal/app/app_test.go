package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"pds_backend/internal/app"
	"pds_backend/internal/config"
	"pds_backend/internal/email"
	"pds_backend/internal/models"
	"pds_backend/internal/testutil"
)

type mockMailProvider struct {
	mock.Mock
}

func (m *mockMailProvider) Send(ctx context.Context, msg *email.Email) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *mockMailProvider) Validate() error { return nil }

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type APISuite struct {
	suite.Suite
	db   *gorm.DB
	app  *app.App
	mail *mockMailProvider
}

func TestAPISuite(t *testing.T) {
	gin.SetMode(gin.TestMode)
	suite.Run(t, new(APISuite))
}

func (s *APISuite) SetupTest() {
	t := s.T()
	s.db = testutil.NewTestDB(t)
	store, _ := testutil.NewTestStorage(t)

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	cfg.Server.Env = config.EnvTest
	cfg.JWT.Secret = "api-suite-secret"
	cfg.Redis.Addr = ""
	cfg.Admin.FirstAdminEmail = "root@pds.co.zw"
	cfg.Admin.FirstAdminPassword = "Admin#2024"

	require.NoError(t, app.Bootstrap(context.Background(), s.db, cfg))

	s.mail = &mockMailProvider{}
	s.mail.On("Send", mock.Anything, mock.Anything).Return(nil)

	s.app, err = app.New(context.Background(), cfg, s.db, app.Deps{
		Storage:      store,
		MailProvider: s.mail,
		Registry:     prometheus.NewRegistry(),
	})
	require.NoError(t, err)
}

func (s *APISuite) do(method, path string, body interface{}, token string, cookies ...*http.Cookie) (*httptest.ResponseRecorder, envelope) {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "api-suite")
	return s.serve(req, token, cookies...)
}

func (s *APISuite) serve(req *http.Request, token string, cookies ...*http.Cookie) (*httptest.ResponseRecorder, envelope) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.app.Router.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func (s *APISuite) login(emailAddr, password string) (string, *http.Cookie) {
	w, env := s.do(http.MethodPost, "/api/v1/auth/login", map[string]interface{}{
		"email": emailAddr, "password": password,
	}, "")
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var data struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &data))
	s.Equal("Bearer", data.TokenType)

	for _, c := range w.Result().Cookies() {
		if c.Name == "refresh_token" {
			s.True(c.HttpOnly)
			s.Equal(http.SameSiteStrictMode, c.SameSite)
			return data.AccessToken, c
		}
	}
	s.FailNow("refresh_token cookie not set")
	return "", nil
}

func (s *APISuite) TestRegistrationLifecycle() {
	w, env := s.do(http.MethodPost, "/api/v1/auth/register", map[string]interface{}{
		"first_name":   "Tariro",
		"last_name":    "Moyo",
		"email":        "tariro@pds.co.zw",
		"phone_number": "+263771234567",
		"password":     "Secret#123",
	}, "")
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var registered struct {
		VerificationToken string `json:"verification_token"`
		EmailSent         *bool  `json:"email_sent"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &registered))
	s.Require().NotEmpty(registered.VerificationToken)
	s.mail.AssertCalled(s.T(), "Send", mock.Anything, mock.MatchedBy(func(m *email.Email) bool {
		return len(m.To) == 1 && m.To[0] == "tariro@pds.co.zw"
	}))

	w, env = s.do(http.MethodPost, "/api/v1/auth/login", map[string]interface{}{
		"email": "tariro@pds.co.zw", "password": "Secret#123",
	}, "")
	s.Equal(http.StatusForbidden, w.Code)
	s.Equal("EMAIL_NOT_VERIFIED", env.Error.Code)

	w, _ = s.do(http.MethodPost, "/api/v1/auth/verify-email", map[string]string{"token": registered.VerificationToken}, "")
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	_, env = s.do(http.MethodPost, "/api/v1/auth/verify-email", map[string]string{"token": registered.VerificationToken}, "")
	s.Equal("ALREADY_USED", env.Error.Code)

	access, refresh := s.login("tariro@pds.co.zw", "Secret#123")

	w, env = s.do(http.MethodGet, "/api/v1/auth/profile", nil, access)
	s.Require().Equal(http.StatusOK, w.Code)
	var profile struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &profile))
	s.Equal("tariro@pds.co.zw", profile.Email)
	s.Equal("USER", profile.Role)

	w, _ = s.do(http.MethodPost, "/api/v1/auth/refresh-token", nil, "", refresh)
	s.Equal(http.StatusOK, w.Code, w.Body.String())

	w, _ = s.do(http.MethodPost, "/api/v1/auth/logout", nil, access, refresh)
	s.Require().Equal(http.StatusOK, w.Code)

	w, env = s.do(http.MethodPost, "/api/v1/auth/refresh-token", map[string]string{"refresh_token": refresh.Value}, "")
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal("INVALID_TOKEN", env.Error.Code)
}

func (s *APISuite) TestDuplicateRegistrationCreatesNothing() {
	testutil.CreateUser(s.T(), s.db, testutil.UserOpts{Email: "taken@pds.co.zw", Phone: "+263770000001"})

	w, env := s.do(http.MethodPost, "/api/v1/auth/register", map[string]interface{}{
		"first_name":   "Dup",
		"last_name":    "User",
		"email":        "taken@pds.co.zw",
		"phone_number": "+263770000001",
		"password":     "Secret#123",
	}, "")
	s.Equal(http.StatusConflict, w.Code)
	s.Equal("Both email and phone number are already registered", env.Error.Message)
	// seeded admin plus the existing user
	s.EqualValues(2, testutil.CountRows(s.T(), s.db, &models.User{}))
}

func (s *APISuite) TestAdminRoutesRequireAdmin() {
	w, env := s.do(http.MethodGet, "/api/v1/admin/users", nil, "")
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal("Access denied. No token provided.", env.Error.Message)

	testutil.CreateUser(s.T(), s.db, testutil.UserOpts{Email: "agent@pds.co.zw", Password: "Agent#2024"})
	access, _ := s.login("agent@pds.co.zw", "Agent#2024")
	w, env = s.do(http.MethodGet, "/api/v1/admin/users", nil, access)
	s.Equal(http.StatusForbidden, w.Code)
	s.Equal("Insufficient permissions", env.Error.Message)

	admin, _ := s.login("root@pds.co.zw", "Admin#2024")
	w, env = s.do(http.MethodGet, "/api/v1/admin/users", nil, admin)
	s.Require().Equal(http.StatusOK, w.Code)
	var page struct {
		Total int64 `json:"total"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &page))
	s.EqualValues(2, page.Total)
}

func (s *APISuite) TestCallReportFeedsPublicDisplay() {
	testutil.CreateEmployee(s.T(), s.db, "Alice")
	testutil.CreateEmployee(s.T(), s.db, "Bob")
	admin, _ := s.login("root@pds.co.zw", "Admin#2024")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	s.Require().NoError(mw.WriteField("report_date", "2024-05-31"))
	s.Require().NoError(mw.WriteField("report_time", "09:00"))
	part, err := mw.CreateFormFile("file", "calls.csv")
	s.Require().NoError(err)
	_, err = part.Write([]byte("Agent Name,Total Inbound Calls,Total Outbound Calls\nAlice,10,5\nBob,30,20\n"))
	s.Require().NoError(err)
	s.Require().NoError(mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/calls/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w, _ := s.serve(req, admin)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w, env := s.do(http.MethodGet, "/api/v1/display/metrics?sort_by=total", nil, "")
	s.Require().Equal(http.StatusOK, w.Code)
	var board struct {
		ReportDate string `json:"report_date"`
		Data       []struct {
			AgentName  string `json:"agent_name"`
			TotalCalls int    `json:"total_calls"`
		} `json:"data"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &board))
	s.Require().Len(board.Data, 2)
	s.Equal("Bob", board.Data[0].AgentName)
	s.Equal(50, board.Data[0].TotalCalls)

	w, _ = s.do(http.MethodGet, "/api/v1/display/settings", nil, "")
	s.Equal(http.StatusOK, w.Code)
}

func (s *APISuite) TestOpsEndpoints() {
	w, _ := s.do(http.MethodGet, "/api/v1/health", nil, "")
	s.Equal(http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/metrics", nil)
	rec := httptest.NewRecorder()
	s.app.Router.ServeHTTP(rec, req)
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "http_requests_total")

	w, env := s.do(http.MethodGet, "/api/v1/nope", nil, "")
	s.Equal(http.StatusNotFound, w.Code)
	s.False(env.Success)
}

func (s *APISuite) TestWorkerCycleSweepsExpiredTokens() {
	user := testutil.CreateUser(s.T(), s.db, testutil.UserOpts{})
	s.Require().NoError(s.db.Create(&models.AuthToken{
		UserID: user.ID, Token: "stale", Kind: models.TokenRefresh,
		ExpiresAt: time.Now().UTC().Add(-time.Hour),
	}).Error)

	s.Require().NoError(s.app.Workers.RunCycle(context.Background()))
	s.Zero(testutil.CountRows(s.T(), s.db, &models.AuthToken{}))
}
