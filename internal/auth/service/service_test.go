package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"famledger/internal/auth/models"
	revocationStore "famledger/internal/auth/store/revocation"
	userStore "famledger/internal/auth/store/user"
	"famledger/internal/captcha"
	"famledger/internal/captcha/store/challenges"
	jwttoken "famledger/internal/jwt_token"
	"famledger/internal/platform/middleware/requesttime"
	"famledger/internal/ratelimit/checker"
	"famledger/internal/ratelimit/service/lockout"
	"famledger/internal/ratelimit/service/originlimit"
	attemptsStore "famledger/internal/ratelimit/store/attempts"
	dErrors "famledger/pkg/domain-errors"
)

const (
	testPhone    = "13800000000"
	testPassword = "sup3r-secret"
	testOrigin   = "10.0.0.5"
)

type AuthServiceSuite struct {
	suite.Suite
	users       *userStore.InMemoryStore
	attempts    *attemptsStore.InMemoryStore
	challenges  *challenges.InMemoryStore
	revocations *revocationStore.InMemoryStore
	captchas    *captcha.Service
	jwt         *jwttoken.JWTService
	registry    *RevocationRegistry
	service     *Service
	base        time.Time
}

func TestAuthServiceSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceSuite))
}

func (s *AuthServiceSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	s.users = userStore.NewInMemoryStore()
	s.attempts = attemptsStore.New()
	s.challenges = challenges.NewInMemoryStore()
	s.revocations = revocationStore.NewInMemoryStore()

	var err error
	s.captchas, err = captcha.New(s.challenges, captcha.WithLogger(logger))
	s.Require().NoError(err)

	lockouts, err := lockout.New(s.attempts, lockout.WithLogger(logger))
	s.Require().NoError(err)
	origins, err := originlimit.New(s.attempts, originlimit.WithLogger(logger))
	s.Require().NoError(err)
	gate, err := checker.New(origins, lockouts)
	s.Require().NoError(err)

	s.jwt = jwttoken.NewJWTService("test-signing-key", 24*time.Hour)
	s.registry, err = NewRevocationRegistry(s.revocations, s.jwt, 24*time.Hour, WithRegistryLogger(logger))
	s.Require().NoError(err)

	s.service, err = New(
		s.users,
		s.captchas,
		gate,
		s.attempts,
		s.jwt,
		s.registry,
		WithLogger(logger),
		WithBcryptCost(bcrypt.MinCost),
	)
	s.Require().NoError(err)
}

func (s *AuthServiceSuite) at(offset time.Duration) context.Context {
	return requesttime.WithTime(context.Background(), s.base.Add(offset))
}

// freshCaptcha issues a challenge and reads its code back out of the store.
func (s *AuthServiceSuite) freshCaptcha(ctx context.Context) (string, string) {
	issued, err := s.captchas.Issue(ctx)
	s.Require().NoError(err)
	challenge, err := s.challenges.Find(ctx, issued.Handle)
	s.Require().NoError(err)
	s.Require().NotNil(challenge)
	return issued.Handle, challenge.Code
}

func (s *AuthServiceSuite) register(ctx context.Context) *models.UserView {
	handle, code := s.freshCaptcha(ctx)
	view, err := s.service.Register(ctx, &models.RegisterRequest{
		Phone:         testPhone,
		Nickname:      "dad",
		Password:      testPassword,
		CaptchaHandle: handle,
		CaptchaCode:   code,
	})
	s.Require().NoError(err)
	return view
}

func (s *AuthServiceSuite) login(ctx context.Context, password string) (*models.LoginResponse, error) {
	handle, code := s.freshCaptcha(ctx)
	return s.service.Login(ctx, &models.LoginRequest{
		Phone:         testPhone,
		Password:      password,
		CaptchaHandle: handle,
		CaptchaCode:   code,
	}, testOrigin, "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 Chrome/120.0 Safari/537.36")
}

func (s *AuthServiceSuite) TestRegisterAndLoginRoundTrip() {
	view := s.register(s.at(0))
	s.Equal(testPhone, view.Phone)
	s.Equal("dad", view.Nickname)
	s.NotZero(view.ID)

	res, err := s.login(s.at(time.Minute), testPassword)
	s.Require().NoError(err)
	s.NotEmpty(res.Token)
	s.Equal(view.ID, res.User.ID)
	s.True(res.ExpiresAt.Equal(s.base.Add(time.Minute + 24*time.Hour)))

	claims, err := s.jwt.ValidateToken(res.Token)
	s.Require().NoError(err)
	s.Equal(view.ID, claims.UserID)
	s.Equal(testPhone, claims.Phone)
}

func (s *AuthServiceSuite) TestRegisterRejectsDuplicatePhone() {
	s.register(s.at(0))

	handle, code := s.freshCaptcha(s.at(time.Minute))
	_, err := s.service.Register(s.at(time.Minute), &models.RegisterRequest{
		Phone:         testPhone,
		Nickname:      "mom",
		Password:      "another-pass",
		CaptchaHandle: handle,
		CaptchaCode:   code,
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *AuthServiceSuite) TestRegisterRejectsWrongCaptcha() {
	handle, _ := s.freshCaptcha(s.at(0))
	_, err := s.service.Register(s.at(0), &models.RegisterRequest{
		Phone:         testPhone,
		Nickname:      "dad",
		Password:      testPassword,
		CaptchaHandle: handle,
		CaptchaCode:   "0000",
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *AuthServiceSuite) TestRegisterRejectsMalformedPhone() {
	handle, code := s.freshCaptcha(s.at(0))
	_, err := s.service.Register(s.at(0), &models.RegisterRequest{
		Phone:         "12345",
		Nickname:      "dad",
		Password:      testPassword,
		CaptchaHandle: handle,
		CaptchaCode:   code,
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *AuthServiceSuite) TestLoginWrongPasswordRecordsFailure() {
	s.register(s.at(0))

	_, err := s.login(s.at(time.Minute), "wrong-password")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	count, err := s.attempts.CountFailuresSince(s.at(time.Minute), testPhone, s.base)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *AuthServiceSuite) TestLoginUnknownPhoneIsIndistinguishable() {
	s.register(s.at(0))

	handle, code := s.freshCaptcha(s.at(time.Minute))
	_, err := s.service.Login(s.at(time.Minute), &models.LoginRequest{
		Phone:         "13911111111",
		Password:      testPassword,
		CaptchaHandle: handle,
		CaptchaCode:   code,
	}, testOrigin, "")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	s.EqualError(err, "invalid phone or password")
}

func (s *AuthServiceSuite) TestFiveFailuresLockTheAccount() {
	s.register(s.at(0))

	for i := 1; i <= 5; i++ {
		_, err := s.login(s.at(time.Duration(i)*time.Minute), "wrong-password")
		s.Require().Error(err)
	}

	// Correct password no longer helps until the cooldown passes.
	_, err := s.login(s.at(6*time.Minute), testPassword)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeLockedOut))

	// 30 minutes after the last failure the account opens again.
	res, err := s.login(s.at(36*time.Minute), testPassword)
	s.Require().NoError(err)
	s.NotEmpty(res.Token)
}

func (s *AuthServiceSuite) TestCaptchaFailureCountsTowardLockout() {
	s.register(s.at(0))

	handle, _ := s.freshCaptcha(s.at(time.Minute))
	_, err := s.service.Login(s.at(time.Minute), &models.LoginRequest{
		Phone:         testPhone,
		Password:      testPassword,
		CaptchaHandle: handle,
		CaptchaCode:   "0000",
	}, testOrigin, "")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	count, err := s.attempts.CountFailuresSince(s.at(time.Minute), testPhone, s.base)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *AuthServiceSuite) TestFloodedOriginIsThrottled() {
	s.register(s.at(0))

	for i := 0; i < 100; i++ {
		s.Require().NoError(s.attempts.RecordOriginRequest(s.at(time.Minute), testOrigin, "/api/auth/login"))
	}

	_, err := s.login(s.at(2*time.Minute), testPassword)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeRateLimited))
}

func (s *AuthServiceSuite) TestLogoutRevokesPresentedToken() {
	s.register(s.at(0))
	res, err := s.login(s.at(time.Minute), testPassword)
	s.Require().NoError(err)

	s.Require().NoError(s.service.Logout(s.at(2*time.Minute), res.Token))

	revoked, err := s.registry.IsTokenRevoked(s.at(3*time.Minute), res.Token, res.User.ID, s.base.Add(time.Minute))
	s.Require().NoError(err)
	s.True(revoked)
}

func (s *AuthServiceSuite) TestChangePasswordCutsOverOldTokens() {
	view := s.register(s.at(0))
	before, err := s.login(s.at(time.Minute), testPassword)
	s.Require().NoError(err)

	err = s.service.ChangePassword(s.at(5*time.Minute), view.ID, &models.ChangePasswordRequest{
		OldPassword: testPassword,
		NewPassword: "new-password-1",
	})
	s.Require().NoError(err)

	revoked, err := s.registry.IsTokenRevoked(s.at(6*time.Minute), before.Token, view.ID, s.base.Add(time.Minute))
	s.Require().NoError(err)
	s.True(revoked, "tokens issued before the rotation must die")

	// Login with the new password mints a token past the cutover.
	after, err := s.login(s.at(7*time.Minute), "new-password-1")
	s.Require().NoError(err)

	revoked, err = s.registry.IsTokenRevoked(s.at(8*time.Minute), after.Token, view.ID, s.base.Add(7*time.Minute))
	s.Require().NoError(err)
	s.False(revoked, "tokens issued after the rotation must survive")
}

func (s *AuthServiceSuite) TestChangePasswordRejectsWrongOldPassword() {
	view := s.register(s.at(0))

	err := s.service.ChangePassword(s.at(time.Minute), view.ID, &models.ChangePasswordRequest{
		OldPassword: "not-the-password",
		NewPassword: "new-password-1",
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *AuthServiceSuite) TestGetUserUnknownIDNotFound() {
	_, err := s.service.GetUser(s.at(0), 9999)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
