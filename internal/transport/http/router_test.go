package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	authhandler "famledger/internal/auth/handler"
	authservice "famledger/internal/auth/service"
	revocationStore "famledger/internal/auth/store/revocation"
	userStore "famledger/internal/auth/store/user"
	"famledger/internal/captcha"
	"famledger/internal/captcha/store/challenges"
	jwttoken "famledger/internal/jwt_token"
	"famledger/internal/ratelimit/checker"
	"famledger/internal/ratelimit/service/lockout"
	"famledger/internal/ratelimit/service/originlimit"
	attemptsStore "famledger/internal/ratelimit/store/attempts"
)

// RouterSuite wires the full stack against in-memory stores and drives it
// through the HTTP surface only.
type RouterSuite struct {
	suite.Suite
	router     http.Handler
	challenges *challenges.InMemoryStore
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	users := userStore.NewInMemoryStore()
	revocations := revocationStore.NewInMemoryStore()
	attempts := attemptsStore.New()
	s.challenges = challenges.NewInMemoryStore()

	captchaService, err := captcha.New(s.challenges, captcha.WithLogger(logger))
	s.Require().NoError(err)

	lockouts, err := lockout.New(attempts, lockout.WithLogger(logger))
	s.Require().NoError(err)
	origins, err := originlimit.New(attempts, originlimit.WithLogger(logger))
	s.Require().NoError(err)
	gate, err := checker.New(origins, lockouts)
	s.Require().NoError(err)

	jwtService := jwttoken.NewJWTService("router-test-key", 24*time.Hour)

	registry, err := authservice.NewRevocationRegistry(revocations, jwtService, 24*time.Hour,
		authservice.WithRegistryLogger(logger))
	s.Require().NoError(err)

	auth, err := authservice.New(users, captchaService, gate, attempts, jwtService, registry,
		authservice.WithLogger(logger),
		authservice.WithBcryptCost(4),
	)
	s.Require().NoError(err)

	handler := authhandler.New(auth, captchaService, logger)
	s.router = NewRouter(handler, origins, jwttoken.NewJWTServiceAdapter(jwtService), registry, logger)
}

func (s *RouterSuite) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

// captchaFields fetches a challenge over HTTP and pairs the handle with the
// stored code.
func (s *RouterSuite) captchaFields() (string, string) {
	rec := s.do(http.MethodGet, "/api/auth/captcha", "", nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var res struct {
		Handle string `json:"handle"`
		Image  string `json:"image"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &res))
	s.Require().NotEmpty(res.Handle)
	s.Require().Contains(res.Image, "data:image/png;base64,")

	challenge, err := s.challenges.Find(context.Background(), res.Handle)
	s.Require().NoError(err)
	s.Require().NotNil(challenge)
	return res.Handle, challenge.Code
}

func (s *RouterSuite) registerUser() {
	handle, code := s.captchaFields()
	rec := s.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"phone":          "13800000000",
		"nickname":       "dad",
		"password":       "sup3r-secret",
		"captcha_handle": handle,
		"captcha_code":   code,
	})
	s.Require().Equal(http.StatusCreated, rec.Code)
}

func (s *RouterSuite) loginUser() string {
	handle, code := s.captchaFields()
	rec := s.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"phone":          "13800000000",
		"password":       "sup3r-secret",
		"captcha_handle": handle,
		"captcha_code":   code,
	})
	s.Require().Equal(http.StatusOK, rec.Code)

	var res struct {
		Token string `json:"token"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &res))
	s.Require().NotEmpty(res.Token)
	return res.Token
}

func (s *RouterSuite) TestHealthEndpoint() {
	rec := s.do(http.MethodGet, "/health", "", nil)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *RouterSuite) TestMetricsEndpoint() {
	rec := s.do(http.MethodGet, "/metrics", "", nil)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *RouterSuite) TestFullAccountLifecycle() {
	s.registerUser()
	token := s.loginUser()

	// Authenticated info round trip.
	rec := s.do(http.MethodGet, "/api/auth/info", token, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var info struct {
		Phone    string `json:"phone"`
		Nickname string `json:"nickname"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &info))
	s.Equal("13800000000", info.Phone)
	s.Equal("dad", info.Nickname)

	// Logout kills the token for every later request.
	rec = s.do(http.MethodPost, "/api/auth/logout", token, nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/api/auth/info", token, nil)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *RouterSuite) TestPasswordChangeInvalidatesOldToken() {
	s.registerUser()
	token := s.loginUser()

	rec := s.do(http.MethodPut, "/api/user/password", token, map[string]string{
		"old_password": "sup3r-secret",
		"new_password": "even-m0re-secret",
	})
	s.Require().Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/api/auth/info", token, nil)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *RouterSuite) TestProtectedRoutesRejectAnonymous() {
	rec := s.do(http.MethodGet, "/api/auth/info", "", nil)
	s.Equal(http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/api/auth/logout", "", nil)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *RouterSuite) TestCaptchaHandleIsSingleUse() {
	s.registerUser()
	handle, code := s.captchaFields()

	body := map[string]string{
		"phone":          "13800000000",
		"password":       "wrong-password",
		"captcha_handle": handle,
		"captcha_code":   code,
	}
	rec := s.do(http.MethodPost, "/api/auth/login", "", body)
	s.Require().Equal(http.StatusUnauthorized, rec.Code)

	// Replaying the same captcha is denied before credentials run.
	body["password"] = "sup3r-secret"
	rec = s.do(http.MethodPost, "/api/auth/login", "", body)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *RouterSuite) TestNullBodyRejected() {
	for _, path := range []string{"/api/auth/register", "/api/auth/login"} {
		rec := s.do(http.MethodPost, path, "", json.RawMessage("null"))
		s.Equal(http.StatusBadRequest, rec.Code, path)

		var res map[string]string
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &res))
		s.Equal("validation_failed", res["error"], path)
	}
}

func (s *RouterSuite) TestUnsupportedContentTypeRejected() {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString("phone=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Equal(http.StatusUnsupportedMediaType, rec.Code)
}
