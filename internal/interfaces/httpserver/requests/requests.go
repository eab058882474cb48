// Package requests contains HTTP request DTOs for the health agent.
package requests

import (
	"github.com/janhq/health-agent/internal/domain/profile"
)

// RunRequest is the body of /run and the domain endpoints.
type RunRequest struct {
	Message   string         `json:"message" binding:"required" example:"Build me a 3 day workout split"`
	Context   map[string]any `json:"context,omitempty"`
	SessionID string         `json:"session_id,omitempty" example:"5f0c6e1e-2a8b-4c9e-9b1b-9d1f3c1e2a44"`
}

// UpdateProfileRequest is the body of PUT /profile. Omitted fields are kept.
type UpdateProfileRequest struct {
	FirstName    *string  `json:"first_name,omitempty" binding:"omitempty,max=100"`
	LastName     *string  `json:"last_name,omitempty" binding:"omitempty,max=100"`
	Age          *int     `json:"age,omitempty" binding:"omitempty,min=13,max=120"`
	Height       *string  `json:"height,omitempty" binding:"omitempty,max=32"`
	Weight       *string  `json:"weight,omitempty" binding:"omitempty,max=32"`
	FitnessLevel *string  `json:"fitness_level,omitempty" binding:"omitempty,oneof=beginner intermediate advanced"`
	HealthGoals  []string `json:"health_goals,omitempty" binding:"omitempty,max=20,dive,max=200"`
}

// ToUpdate converts the request into a profile update.
func (r UpdateProfileRequest) ToUpdate() profile.Update {
	return profile.Update{
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Age:          r.Age,
		Height:       r.Height,
		Weight:       r.Weight,
		FitnessLevel: r.FitnessLevel,
		HealthGoals:  r.HealthGoals,
	}
}
