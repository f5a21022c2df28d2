package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"famledger/internal/auth/metrics"
	"famledger/internal/auth/models"
	"famledger/internal/platform/middleware/requesttime"
	dErrors "famledger/pkg/domain-errors"
	str "famledger/pkg/string"
	"famledger/pkg/validation"
)

// UserStore persists accounts.
type UserStore interface {
	Insert(ctx context.Context, u *models.User) error
	FindByPhone(ctx context.Context, phone string) (*models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
	ExistsByPhone(ctx context.Context, phone string) (bool, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}

// CaptchaVerifier redeems a challenge. A handle is consumed on first use.
type CaptchaVerifier interface {
	Verify(ctx context.Context, handle, code string) (bool, error)
}

// LoginGate runs the pre-credential defenses: origin throttle, then lockout.
type LoginGate interface {
	ValidateLoginAllowed(ctx context.Context, identity, origin string) error
}

// AttemptRecorder appends to the login attempt ledger.
type AttemptRecorder interface {
	RecordLoginAttempt(ctx context.Context, identity, origin string, success bool) error
}

// TokenIssuer mints access tokens.
type TokenIssuer interface {
	GenerateAccessToken(ctx context.Context, userID int64, phone string) (string, error)
}

// Service implements registration, login, logout, and account operations.
type Service struct {
	users       UserStore
	captcha     CaptchaVerifier
	gate        LoginGate
	attempts    AttemptRecorder
	tokens      TokenIssuer
	revocations *RevocationRegistry
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tokenTTL    time.Duration
	bcryptCost  int
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
	}
}

// WithBcryptCost lowers hashing cost in tests.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.bcryptCost = cost
		}
	}
}

func New(
	users UserStore,
	captcha CaptchaVerifier,
	gate LoginGate,
	attempts AttemptRecorder,
	tokens TokenIssuer,
	revocations *RevocationRegistry,
	opts ...Option,
) (*Service, error) {
	if users == nil || captcha == nil || gate == nil || attempts == nil || tokens == nil || revocations == nil {
		return nil, fmt.Errorf("users, captcha, gate, attempts, tokens, and revocations are required")
	}

	svc := &Service{
		users:       users,
		captcha:     captcha,
		gate:        gate,
		attempts:    attempts,
		tokens:      tokens,
		revocations: revocations,
		logger:      slog.Default(),
		tokenTTL:    24 * time.Hour,
		bcryptCost:  bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Register creates an account after the captcha check passes.
func (s *Service) Register(ctx context.Context, req *models.RegisterRequest) (*models.UserView, error) {
	str.TrimStrings(&req.Phone, &req.Nickname)
	if err := validation.Validate(req); err != nil {
		return nil, err
	}

	if err := s.verifyCaptcha(ctx, req.CaptchaHandle, req.CaptchaCode); err != nil {
		return nil, err
	}

	exists, err := s.users.ExistsByPhone(ctx, req.Phone)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check phone availability")
	}
	if exists {
		return nil, dErrors.New(dErrors.CodeConflict, "phone already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	user := &models.User{
		Phone:        req.Phone,
		Nickname:     req.Nickname,
		PasswordHash: string(hash),
	}
	if err := s.users.Insert(ctx, user); err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}

	s.metrics.IncUsersRegistered()
	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID, "phone", user.Phone)

	view := toView(user)
	return &view, nil
}

// Login authenticates a phone/password pair. The defenses run in a fixed
// order: origin throttle, lockout, captcha, then credentials. Every
// credential-path failure lands in the attempt ledger; the throttle denials
// do not, or a flood could lock accounts it never guessed at.
func (s *Service) Login(ctx context.Context, req *models.LoginRequest, origin, userAgent string) (*models.LoginResponse, error) {
	str.TrimStrings(&req.Phone)
	if err := validation.Validate(req); err != nil {
		return nil, err
	}

	if err := s.gate.ValidateLoginAllowed(ctx, req.Phone, origin); err != nil {
		return nil, err
	}

	if err := s.verifyCaptcha(ctx, req.CaptchaHandle, req.CaptchaCode); err != nil {
		s.recordAttempt(ctx, req.Phone, origin, false)
		return nil, err
	}

	user, err := s.users.FindByPhone(ctx, req.Phone)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up user")
	}
	if user == nil {
		s.recordAttempt(ctx, req.Phone, origin, false)
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid phone or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.recordAttempt(ctx, req.Phone, origin, false)
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid phone or password")
	}

	s.recordAttempt(ctx, req.Phone, origin, true)

	token, err := s.tokens.GenerateAccessToken(ctx, user.ID, user.Phone)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}

	s.metrics.IncLoginSuccesses()
	s.logger.InfoContext(ctx, "user logged in",
		"user_id", user.ID,
		"origin", origin,
		"device", summarizeUserAgent(userAgent),
	)

	return &models.LoginResponse{
		Token:     token,
		ExpiresAt: requesttime.Now(ctx).Add(s.tokenTTL),
		User:      toView(user),
	}, nil
}

// Logout blacklists the presented token for the rest of its lifetime.
func (s *Service) Logout(ctx context.Context, rawToken string) error {
	if err := s.revocations.Revoke(ctx, rawToken, "logout"); err != nil {
		return err
	}
	s.metrics.IncTokensRevoked()
	return nil
}

// ChangePassword rotates the password and cuts over every outstanding token,
// so a stolen token does not survive the rotation.
func (s *Service) ChangePassword(ctx context.Context, userID int64, req *models.ChangePasswordRequest) error {
	if err := validation.Validate(req); err != nil {
		return err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up user")
	}
	if user == nil {
		return dErrors.New(dErrors.CodeNotFound, "user not found")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "old password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.bcryptCost)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	if err := s.users.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update password")
	}

	if err := s.revocations.RevokeAllForSubject(ctx, userID, "password change"); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "password changed", "user_id", userID)
	return nil
}

// GetUser returns the public projection of an account.
func (s *Service) GetUser(ctx context.Context, userID int64) (*models.UserView, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up user")
	}
	if user == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
	}
	view := toView(user)
	return &view, nil
}

func (s *Service) verifyCaptcha(ctx context.Context, handle, code string) error {
	ok, err := s.captcha.Verify(ctx, handle, code)
	if err != nil {
		return err
	}
	if !ok {
		s.metrics.IncCaptchaRejected()
		return dErrors.New(dErrors.CodeUnauthorized, "captcha verification failed")
	}
	return nil
}

// recordAttempt never fails the login path; a ledger write error is logged
// and the auth outcome stands.
func (s *Service) recordAttempt(ctx context.Context, phone, origin string, success bool) {
	if err := s.attempts.RecordLoginAttempt(ctx, phone, origin, success); err != nil {
		s.logger.ErrorContext(ctx, "failed to record login attempt", "error", err)
	}
	if !success {
		s.metrics.IncLoginFailures()
	}
}

func toView(u *models.User) models.UserView {
	return models.UserView{
		ID:        u.ID,
		Phone:     u.Phone,
		Nickname:  u.Nickname,
		CreatedAt: u.CreatedAt,
	}
}
