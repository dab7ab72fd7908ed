package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"onboarding-service/internal/flow"
	"onboarding-service/internal/service"
)

// OnboardingHandler serves the flow-session CRUD endpoints that back
// resumable wizards.
type OnboardingHandler struct {
	onboarding *service.OnboardingService
	validate   *validator.Validate
	logger     *zap.Logger
}

func NewOnboardingHandler(onboarding *service.OnboardingService, logger *zap.Logger) *OnboardingHandler {
	return &OnboardingHandler{
		onboarding: onboarding,
		validate:   validator.New(),
		logger:     logger,
	}
}

func (h *OnboardingHandler) RegisterRoutes(router chi.Router) {
	router.Route("/session", func(r chi.Router) {
		r.Post("/", h.CreateSession)
		r.Get("/{sessionID}", h.GetSession)
		r.Patch("/{sessionID}", h.PatchSession)
		r.Post("/{sessionID}/complete", h.CompleteSession)
	})
}

type createSessionRequest struct {
	Flow            string `json:"flow" validate:"required"`
	ResumeSessionID string `json:"resume_session_id"`
}

// CreateSession starts a new flow session, resuming a stored one at its
// furthest completed step when resume_session_id is given.
func (h *OnboardingHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, err, "Invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, err, "Flow name is required")
		return
	}

	session, err := h.onboarding.CreateSession(r.Context(), req.Flow, req.ResumeSessionID)
	if err != nil {
		respondWithError(w, h.logger, h.statusCode(err), err, "Failed to create session")
		return
	}

	respondWithJSON(w, h.logger, http.StatusCreated, successResponse(session, "Session created"))
}

// GetSession returns a stored session for resume.
func (h *OnboardingHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.onboarding.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondWithError(w, h.logger, h.statusCode(err), err, "Session not found")
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, successResponse(session, ""))
}

type patchSessionRequest struct {
	Fields map[string]string `json:"fields"`
	Step   int               `json:"step"`
}

// PatchSession merges field updates into a stored session.
func (h *OnboardingHandler) PatchSession(w http.ResponseWriter, r *http.Request) {
	var req patchSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	session, err := h.onboarding.PatchSession(r.Context(), chi.URLParam(r, "sessionID"), req.Fields, req.Step)
	if err != nil {
		var verr *flow.ValidationError
		if errors.As(err, &verr) {
			respondWithJSON(w, h.logger, http.StatusUnprocessableEntity, Response{
				Error: verr.Error(),
				Data:  verr.Errors,
			})
			return
		}
		respondWithError(w, h.logger, h.statusCode(err), err, "Failed to update session")
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, successResponse(session, "Session updated"))
}

// CompleteSession finalizes and discards a stored session.
func (h *OnboardingHandler) CompleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.onboarding.CompleteSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		respondWithError(w, h.logger, h.statusCode(err), err, "Failed to complete session")
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, successResponse(nil, "Flow completed"))
}

func (h *OnboardingHandler) statusCode(err error) int {
	switch {
	case errors.Is(err, flow.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrUnknownFlow):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
