package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"onboarding-service/internal/util"
)

// Response is the standard API envelope.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

func successResponse(data interface{}, message string) Response {
	return Response{
		Success: true,
		Data:    data,
		Message: message,
	}
}

func errorResponse(err error, message string) Response {
	return Response{
		Success: false,
		Error:   err.Error(),
		Message: message,
	}
}

func respondWithJSON(w http.ResponseWriter, logger *zap.Logger, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode JSON response", util.ErrorField(err))
	}
}

func respondWithError(w http.ResponseWriter, logger *zap.Logger, statusCode int, err error, message string) {
	logger.Warn("HTTP error response",
		util.ErrorField(err),
		util.Int("status_code", statusCode),
		util.String("message", message),
	)
	respondWithJSON(w, logger, statusCode, errorResponse(err, message))
}
