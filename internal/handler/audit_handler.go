package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"onboarding-service/internal/analytics"
	"onboarding-service/internal/audit"
	"onboarding-service/internal/models"
)

// AuditHandler serves the store-analyser endpoints.
type AuditHandler struct {
	audits   *audit.Service
	recorder *analytics.Recorder
	validate *validator.Validate
	logger   *zap.Logger
}

func NewAuditHandler(audits *audit.Service, recorder *analytics.Recorder, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{
		audits:   audits,
		recorder: recorder,
		validate: validator.New(),
		logger:   logger,
	}
}

func (h *AuditHandler) RegisterRoutes(router chi.Router) {
	router.Post("/analysed-stores", h.RecordAnalysedStore)
	router.Get("/store-audit-result", h.GetAuditResult)
}

type analysedStoreRequest struct {
	StoreURL   string `json:"store_url" validate:"required"`
	ResultJSON string `json:"result_json"`
}

// RecordAnalysedStore accepts a fire-and-forget analysis submission. An
// invalid URL is the only rejection; indexing failures are logged and
// the client still gets a 202.
func (h *AuditHandler) RecordAnalysedStore(w http.ResponseWriter, r *http.Request) {
	var req analysedStoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, err, "Invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, err, "Store URL is required")
		return
	}

	report, err := h.audits.RecordAnalysedStore(r.Context(), req.StoreURL, req.ResultJSON)
	if err != nil {
		if errors.Is(err, audit.ErrInvalidStoreURL) {
			respondWithError(w, h.logger, http.StatusBadRequest, err, "Invalid store URL")
			return
		}
		h.logger.Warn("Best-effort analysed-store record failed", zap.Error(err))
		respondWithJSON(w, h.logger, http.StatusAccepted, successResponse(nil, "Submission accepted"))
		return
	}

	h.recorder.Record(r.Context(), &models.FlowEvent{
		EventType: models.EventStoreAnalysed,
		Detail:    report.StoreURL,
	})
	respondWithJSON(w, h.logger, http.StatusAccepted, successResponse(nil, "Submission accepted"))
}

// GetAuditResult returns the audit report for a store, 404 when the
// store has never been analysed.
func (h *AuditHandler) GetAuditResult(w http.ResponseWriter, r *http.Request) {
	report, err := h.audits.GetAudit(r.Context(), r.URL.Query().Get("storeUrl"))
	if err != nil {
		switch {
		case errors.Is(err, audit.ErrInvalidStoreURL):
			respondWithError(w, h.logger, http.StatusBadRequest, err, "Invalid store URL")
		case errors.Is(err, audit.ErrAuditNotFound):
			respondWithError(w, h.logger, http.StatusNotFound, err, "No audit for this store")
		default:
			respondWithError(w, h.logger, http.StatusInternalServerError, err, "Failed to fetch audit")
		}
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, successResponse(report, ""))
}
