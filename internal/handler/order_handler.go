package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"onboarding-service/internal/models"
	"onboarding-service/internal/payment"
	"onboarding-service/internal/repository/scylla"
	"onboarding-service/internal/service"
	"onboarding-service/internal/verification"
)

// OrderHandler serves order intake and the Paystack checkout endpoints.
type OrderHandler struct {
	orders   *service.OrderService
	payments *payment.Service
	validate *validator.Validate
	logger   *zap.Logger
}

func NewOrderHandler(orders *service.OrderService, payments *payment.Service, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orders:   orders,
		payments: payments,
		validate: validator.New(),
		logger:   logger,
	}
}

func (h *OrderHandler) RegisterRoutes(router chi.Router) {
	router.Post("/orders", h.PlaceOrder)
	router.Post("/paystack-initialize", h.PaystackInitialize)
	router.Get("/paystack-verify", h.PaystackVerify)
}

// PlaceOrder accepts an order submission carrying a verification code.
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var input service.PlaceOrderInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, err, "Invalid request body")
		return
	}
	if err := h.validate.Struct(&input); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, err, "Invalid order")
		return
	}

	result, err := h.orders.PlaceOrder(r.Context(), &input)
	if err != nil {
		respondWithError(w, h.logger, h.statusCode(err), err, "Failed to place order")
		return
	}

	respondWithJSON(w, h.logger, http.StatusCreated, successResponse(result, "Order placed"))
}

type initializeRequest struct {
	Email       string            `json:"email" validate:"required,email"`
	AmountUSD   float64           `json:"amountUsd"`
	CallbackURL string            `json:"callbackUrl" validate:"required,url"`
	Metadata    map[string]string `json:"metadata"`
}

// PaystackInitialize starts a standalone checkout and returns the
// provider redirect. Zero amounts complete immediately with no redirect.
func (h *OrderHandler) PaystackInitialize(w http.ResponseWriter, r *http.Request) {
	var req initializeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, err, "Invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, err, "Invalid checkout request")
		return
	}

	result, err := h.payments.Initialize(r.Context(), &models.CheckoutIntent{
		Email:       req.Email,
		AmountUSD:   req.AmountUSD,
		CallbackURL: req.CallbackURL,
		Metadata:    req.Metadata,
	})
	if err != nil {
		respondWithError(w, h.logger, h.statusCode(err), err, "Failed to initialize payment")
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, successResponse(map[string]interface{}{
		"free":              result.Free,
		"authorization_url": result.AuthorizationURL,
		"reference":         result.Reference,
	}, ""))
}

type verifyResponse struct {
	Outcome    string `json:"outcome"`
	CleanedURL string `json:"cleaned_url,omitempty"`
}

// PaystackVerify resolves a post-redirect reference. The reference may
// arrive under either provider query name; a missing reference is a
// distinct outcome, not an error. When the caller passes its current
// URL, the response includes a copy with the reference params stripped
// for a history replace.
func (h *OrderHandler) PaystackVerify(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	reference := payment.ExtractReference(query)

	outcome, err := h.orders.ConfirmPayment(r.Context(), query.Get("order_id"), reference)
	if err != nil && outcome != models.VerifyFailed {
		respondWithError(w, h.logger, h.statusCode(err), err, "Payment verification failed")
		return
	}

	resp := verifyResponse{Outcome: outcome.String()}
	if rawURL := query.Get("url"); rawURL != "" {
		if cleaned, stripErr := payment.StripReference(rawURL); stripErr == nil {
			resp.CleanedURL = cleaned
		}
	}

	status := http.StatusOK
	if outcome == models.VerifyFailed {
		status = http.StatusPaymentRequired
	}
	respondWithJSON(w, h.logger, status, Response{
		Success: outcome == models.VerifySuccess,
		Data:    resp,
	})
}

func (h *OrderHandler) statusCode(err error) int {
	switch {
	case errors.Is(err, service.ErrOrderInvalid),
		errors.Is(err, verification.ErrInvalidCode),
		errors.Is(err, verification.ErrInvalidEmail):
		return http.StatusBadRequest
	case errors.Is(err, verification.ErrCodeMismatch), errors.Is(err, verification.ErrCodeExpired):
		return http.StatusUnauthorized
	case errors.Is(err, verification.ErrNoChallenge):
		return http.StatusNotFound
	case errors.Is(err, verification.ErrTooManyAttempts):
		return http.StatusTooManyRequests
	case errors.Is(err, scylla.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, payment.ErrInitializeFailed), errors.Is(err, payment.ErrVerifyFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
