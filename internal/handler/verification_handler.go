package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	redisrepo "onboarding-service/internal/repository/redis"
	"onboarding-service/internal/service"
	"onboarding-service/internal/verification"
)

const (
	sendCodeRateLimit  = 10
	sendCodeRateWindow = time.Hour
)

// VerificationHandler serves the OTP exchange and the OAuth redirect
// URL builders.
type VerificationHandler struct {
	verification *verification.Service
	auth         *service.AuthService
	rateLimits   *redisrepo.RateLimitCache
	validate     *validator.Validate
	logger       *zap.Logger
}

func NewVerificationHandler(verify *verification.Service, auth *service.AuthService, rateLimits *redisrepo.RateLimitCache, logger *zap.Logger) *VerificationHandler {
	return &VerificationHandler{
		verification: verify,
		auth:         auth,
		rateLimits:   rateLimits,
		validate:     validator.New(),
		logger:       logger,
	}
}

func (h *VerificationHandler) RegisterRoutes(router chi.Router) {
	router.Post("/send-verification-code", h.SendCode)
	router.Route("/auth", func(r chi.Router) {
		r.Post("/verify-code", h.VerifyCode)
		r.Post("/admin/verify-code", h.VerifyAdminCode)
		r.Get("/google/url", h.GoogleAuthURL)
		r.Get("/shopify/install-url", h.ShopifyInstallURL)
	})
}

type sendCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type sendCodeResponse struct {
	CooldownSeconds int `json:"cooldown_seconds"`
}

// SendCode issues a verification code to an email address.
func (h *VerificationHandler) SendCode(w http.ResponseWriter, r *http.Request) {
	var req sendCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, err, "Invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, err, "Invalid email address")
		return
	}

	// Per-IP fixed window on top of the per-email resend cooldown.
	allowed, err := h.rateLimits.Allow(r.Context(), "send_code", r.RemoteAddr, sendCodeRateLimit, sendCodeRateWindow)
	if err != nil {
		h.logger.Warn("Rate limit check failed, allowing request", zap.Error(err))
	} else if !allowed {
		respondWithError(w, h.logger, http.StatusTooManyRequests,
			errors.New("too many verification requests"), "Try again later")
		return
	}

	cooldown, err := h.verification.IssueCode(r.Context(), req.Email, verification.PurposeSignup)
	if err != nil {
		respondWithError(w, h.logger, h.statusCode(err), err, "Failed to send verification code")
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, successResponse(sendCodeResponse{CooldownSeconds: cooldown}, "Verification code sent"))
}

type verifyCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required"`
}

type verifyCodeResponse struct {
	Token string `json:"token"`
}

// VerifyCode checks a submitted code and returns a bearer token.
func (h *VerificationHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	h.verifyWithPurpose(w, r, verification.PurposeSignup)
}

// VerifyAdminCode is the six-digit TOTP variant used by the manager
// panel sign-in.
func (h *VerificationHandler) VerifyAdminCode(w http.ResponseWriter, r *http.Request) {
	h.verifyWithPurpose(w, r, verification.PurposeAdmin)
}

func (h *VerificationHandler) verifyWithPurpose(w http.ResponseWriter, r *http.Request, purpose string) {
	var req verifyCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, err, "Invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, err, "Invalid request")
		return
	}

	token, err := h.verification.CheckCode(r.Context(), req.Email, purpose, req.Code)
	if err != nil {
		respondWithError(w, h.logger, h.statusCode(err), err, "Verification failed")
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, successResponse(verifyCodeResponse{Token: token}, "Email verified"))
}

// GoogleAuthURL returns the Google consent redirect for the client.
func (h *VerificationHandler) GoogleAuthURL(w http.ResponseWriter, r *http.Request) {
	authURL, err := h.auth.GoogleAuthURL(r.URL.Query().Get("state"))
	if err != nil {
		respondWithError(w, h.logger, h.statusCode(err), err, "Google sign-in unavailable")
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, successResponse(map[string]string{"url": authURL}, ""))
}

// ShopifyInstallURL returns the app-install redirect for a shop domain.
func (h *VerificationHandler) ShopifyInstallURL(w http.ResponseWriter, r *http.Request) {
	installURL, err := h.auth.ShopifyInstallURL(r.URL.Query().Get("shop"), r.URL.Query().Get("state"))
	if err != nil {
		respondWithError(w, h.logger, h.statusCode(err), err, "Shopify install unavailable")
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, successResponse(map[string]string{"url": installURL}, ""))
}

func (h *VerificationHandler) statusCode(err error) int {
	switch {
	case errors.Is(err, verification.ErrInvalidEmail), errors.Is(err, verification.ErrInvalidCode):
		return http.StatusBadRequest
	case errors.Is(err, verification.ErrCodeMismatch), errors.Is(err, verification.ErrCodeExpired):
		return http.StatusUnauthorized
	case errors.Is(err, verification.ErrNoChallenge):
		return http.StatusNotFound
	case errors.Is(err, verification.ErrResendCooldown), errors.Is(err, verification.ErrTooManyAttempts):
		return http.StatusTooManyRequests
	case errors.Is(err, verification.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, service.ErrProviderNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
