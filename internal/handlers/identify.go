package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"identityrecon/internal/logger"
	"identityrecon/internal/models"
	"identityrecon/internal/service"
)

const maxBodyBytes = 1 << 20

// Identifier resolves an identify request to the consolidated contact
type Identifier interface {
	Identify(ctx context.Context, req models.IdentifyRequest) (*models.IdentifyResponse, error)
}

// IdentifyHandler handles the /identify endpoint
type IdentifyHandler struct {
	service Identifier
	logger  *zap.Logger
}

// NewIdentifyHandler creates a new identify handler
func NewIdentifyHandler(svc Identifier, lg *zap.Logger) *IdentifyHandler {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &IdentifyHandler{service: svc, logger: lg}
}

// Handle processes the identify request
func (h *IdentifyHandler) Handle(w http.ResponseWriter, r *http.Request) {
	lg := h.logger.With(zap.String(logger.FieldRequestID, RequestIDFromContext(r.Context())))

	var req models.IdentifyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		lg.Debug("error decoding request", zap.Error(err))
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	response, err := h.service.Identify(r.Context(), req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, response)
	case errors.Is(err, service.ErrEmailOrPhoneRequired):
		writeError(w, http.StatusBadRequest, "Email or phone number is required.")
	default:
		lg.Error("error processing identify request", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
