package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"famledger/internal/auth/models"
	"famledger/internal/captcha"
	"famledger/internal/platform/middleware"
	jsonResponse "famledger/internal/transport/http/json"
	"famledger/internal/transport/http/shared"
	dErrors "famledger/pkg/domain-errors"
)

// Service defines the auth operations the HTTP layer delegates to.
type Service interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.UserView, error)
	Login(ctx context.Context, req *models.LoginRequest, origin, userAgent string) (*models.LoginResponse, error)
	Logout(ctx context.Context, rawToken string) error
	ChangePassword(ctx context.Context, userID int64, req *models.ChangePasswordRequest) error
	GetUser(ctx context.Context, userID int64) (*models.UserView, error)
}

// CaptchaIssuer issues challenges for the public captcha endpoint.
type CaptchaIssuer interface {
	Issue(ctx context.Context) (*captcha.Issued, error)
}

// Handler is the thin HTTP layer over the auth service.
type Handler struct {
	auth     Service
	captchas CaptchaIssuer
	logger   *slog.Logger
}

func New(auth Service, captchas CaptchaIssuer, logger *slog.Logger) *Handler {
	return &Handler{
		auth:     auth,
		captchas: captchas,
		logger:   logger,
	}
}

// RegisterPublic registers routes that need no token.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/auth/captcha", h.HandleCaptcha)
	r.Post("/auth/register", h.HandleRegister)
	r.Post("/auth/login", h.HandleLogin)
}

// RegisterProtected registers routes behind the auth middleware.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Get("/auth/info", h.HandleInfo)
	r.Post("/auth/logout", h.HandleLogout)
	r.Put("/user/password", h.HandleChangePassword)
}

// HandleCaptcha implements GET /api/auth/captcha.
// Output: { "handle": "...", "image": "data:image/png;base64,..." }
func (h *Handler) HandleCaptcha(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	issued, err := h.captchas.Issue(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "captcha issue failed",
			"error", err,
			"request_id", middleware.GetRequestID(ctx),
		)
		shared.WriteError(w, err)
		return
	}

	jsonResponse.WriteJSON(w, http.StatusOK, models.CaptchaResponse{
		Handle: issued.Handle,
		Image:  issued.Image,
	})
}

// HandleRegister implements POST /api/auth/register.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid JSON in request body"))
		return
	}

	view, err := h.auth.Register(ctx, &req)
	if err != nil {
		h.logger.WarnContext(ctx, "register rejected",
			"error", err,
			"request_id", middleware.GetRequestID(ctx),
		)
		shared.WriteError(w, err)
		return
	}

	jsonResponse.WriteJSON(w, http.StatusCreated, view)
}

// HandleLogin implements POST /api/auth/login.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid JSON in request body"))
		return
	}

	res, err := h.auth.Login(ctx, &req, middleware.ClientIP(r), r.UserAgent())
	if err != nil {
		h.logger.WarnContext(ctx, "login rejected",
			"error", err,
			"origin", middleware.ClientIP(r),
			"request_id", middleware.GetRequestID(ctx),
		)
		shared.WriteError(w, err)
		return
	}

	jsonResponse.WriteJSON(w, http.StatusOK, res)
}

// HandleInfo implements GET /api/auth/info for the authenticated user.
func (h *Handler) HandleInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := middleware.GetUserID(ctx)
	if userID == 0 {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	view, err := h.auth.GetUser(ctx, userID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	jsonResponse.WriteJSON(w, http.StatusOK, view)
}

// HandleLogout implements POST /api/auth/logout. The presented token is
// blacklisted for the rest of its lifetime.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := middleware.GetToken(ctx)
	if token == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	if err := h.auth.Logout(ctx, token); err != nil {
		h.logger.ErrorContext(ctx, "logout failed",
			"error", err,
			"request_id", middleware.GetRequestID(ctx),
		)
		shared.WriteError(w, err)
		return
	}

	jsonResponse.WriteJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// HandleChangePassword implements PUT /api/user/password.
func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := middleware.GetUserID(ctx)
	if userID == 0 {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	var req models.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid JSON in request body"))
		return
	}

	if err := h.auth.ChangePassword(ctx, userID, &req); err != nil {
		h.logger.WarnContext(ctx, "password change rejected",
			"error", err,
			"user_id", userID,
			"request_id", middleware.GetRequestID(ctx),
		)
		shared.WriteError(w, err)
		return
	}

	jsonResponse.WriteJSON(w, http.StatusOK, map[string]string{"status": "password_changed"})
}
