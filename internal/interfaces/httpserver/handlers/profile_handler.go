package handlers

import (
	"context"

	"github.com/janhq/health-agent/internal/domain/profile"
	"github.com/janhq/health-agent/internal/interfaces/httpserver/requests"
)

// ProfileHandler reads and updates the caller's health profile.
type ProfileHandler struct {
	profiles profile.Service
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(profiles profile.Service) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// GetProfile returns the stored profile or an empty one.
func (h *ProfileHandler) GetProfile(ctx context.Context, userID string) (*profile.Profile, error) {
	return h.profiles.Get(ctx, userID)
}

// UpdateProfile applies a partial update.
func (h *ProfileHandler) UpdateProfile(ctx context.Context, userID string, req requests.UpdateProfileRequest) (*profile.Profile, error) {
	return h.profiles.Update(ctx, userID, req.ToUpdate())
}
