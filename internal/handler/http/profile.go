package http

import (
	"log/slog"
	"net/http"

	"github.com/SONIX-Kelompok-6/sonix-be/internal/service"
	"github.com/SONIX-Kelompok-6/sonix-be/pkg/httputil"
)

// ProfileHandler handles the runner profile endpoints.
type ProfileHandler struct {
	service ProfileService
	logger  *slog.Logger
}

// NewProfileHandler creates a new profile HTTP handler.
func NewProfileHandler(svc ProfileService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{service: svc, logger: logger}
}

// UpdateProfileRequest is the JSON request body for saving the runner profile.
type UpdateProfileRequest struct {
	FootWidth     string `json:"foot_width" validate:"required,oneof=Narrow Regular Wide"`
	ArchType      string `json:"arch_type" validate:"required,oneof=Flat Normal High"`
	UsesOrthotics bool   `json:"uses_orthotics"`
}

// Get handles GET /api/profile
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	detail, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	writeData(w, http.StatusOK, detail)
}

// Update handles PUT /api/profile
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	detail, err := h.service.UpdateProfile(r.Context(), userID, service.ProfileInput{
		FootWidth:     req.FootWidth,
		ArchType:      req.ArchType,
		UsesOrthotics: req.UsesOrthotics,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	writeData(w, http.StatusOK, detail)
}
