package captcha

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"famledger/internal/platform/middleware/requesttime"
	dErrors "famledger/pkg/domain-errors"
)

// alphabet excludes visually ambiguous characters: 0/O and 1/I/L.
const alphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

const defaultCodeLength = 4
const defaultTTL = 5 * time.Minute

// Challenge is one issued captcha, stored keyed by its opaque handle.
// It is deleted on first verification attempt regardless of outcome.
type Challenge struct {
	Handle    string
	Code      string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Issued is what the HTTP layer hands to the client: the handle to echo back
// and the rendered image as a base64 PNG data URI.
type Issued struct {
	Handle string
	Image  string
}

// Store persists challenges. Implementations are pure I/O; single-use and
// expiry semantics live here in the service.
type Store interface {
	Insert(ctx context.Context, challenge *Challenge) error
	Find(ctx context.Context, handle string) (*Challenge, error)
	Delete(ctx context.Context, handle string) error
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// Service issues and verifies human-verification challenges.
type Service struct {
	store      Store
	logger     *slog.Logger
	ttl        time.Duration
	codeLength int
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("captcha store is required")
	}

	svc := &Service{
		store:      store,
		ttl:        defaultTTL,
		codeLength: defaultCodeLength,
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc, nil
}

// Issue draws a fresh code, persists it under an opaque handle with an
// expiry, and renders the noisy raster image. Rendering failure is an
// environment problem and surfaces as an internal error.
func (s *Service) Issue(ctx context.Context) (*Issued, error) {
	code, err := randomCode(s.codeLength)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate captcha code")
	}

	now := requesttime.Now(ctx)
	challenge := &Challenge{
		Handle:    uuid.NewString(),
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.store.Insert(ctx, challenge); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store captcha challenge")
	}

	image, err := renderImage(code)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to render captcha image")
	}

	return &Issued{Handle: challenge.Handle, Image: image}, nil
}

// Verify checks a submitted code against the challenge for handle. The
// challenge is deleted unconditionally, present or not, matched or not, so a
// handle can never be redeemed twice. Absence, expiry, and mismatch are all
// just "not verified", never an error.
func (s *Service) Verify(ctx context.Context, handle, submittedCode string) (bool, error) {
	if handle == "" || submittedCode == "" {
		return false, nil
	}

	challenge, err := s.store.Find(ctx, handle)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up captcha challenge")
	}

	if err := s.store.Delete(ctx, handle); err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to consume captcha challenge")
	}

	if challenge == nil {
		return false, nil
	}
	if challenge.ExpiresAt.Before(requesttime.Now(ctx)) {
		return false, nil
	}
	return strings.EqualFold(challenge.Code, submittedCode), nil
}

// SweepExpired deletes challenges past their expiry that were never redeemed.
// Safety net only; Verify already consumes everything it touches.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	deleted, err := s.store.DeleteExpired(ctx, requesttime.Now(ctx))
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sweep expired captchas")
	}
	if deleted > 0 && s.logger != nil {
		s.logger.InfoContext(ctx, "swept expired captcha challenges", "deleted", deleted)
	}
	return deleted, nil
}

func randomCode(length int) (string, error) {
	var sb strings.Builder
	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		sb.WriteByte(alphabet[n.Int64()])
	}
	return sb.String(), nil
}
