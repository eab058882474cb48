// Package profile holds the user profile snapshot that enriches chat turns.
package profile

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/janhq/health-agent/internal/utils/platformerrors"
)

// ErrProfileNotFound is returned when no profile is stored for a user.
var ErrProfileNotFound = errors.New("profile not found")

// Profile is the health profile of one user.
type Profile struct {
	UserID       string    `json:"user_id" bson:"user_id"`
	FirstName    string    `json:"first_name,omitempty" bson:"first_name,omitempty"`
	LastName     string    `json:"last_name,omitempty" bson:"last_name,omitempty"`
	Age          *int      `json:"age,omitempty" bson:"age,omitempty"`
	Height       string    `json:"height,omitempty" bson:"height,omitempty"`
	Weight       string    `json:"weight,omitempty" bson:"weight,omitempty"`
	FitnessLevel string    `json:"fitness_level,omitempty" bson:"fitness_level,omitempty"`
	HealthGoals  []string  `json:"health_goals,omitempty" bson:"health_goals,omitempty"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}

// Snapshot returns the subset of the profile placed into a turn context.
func (p *Profile) Snapshot() map[string]any {
	if p == nil {
		return map[string]any{}
	}
	snapshot := map[string]any{
		"height":        p.Height,
		"weight":        p.Weight,
		"fitness_level": p.FitnessLevel,
		"health_goals":  append([]string(nil), p.HealthGoals...),
	}
	if p.Age != nil {
		snapshot["age"] = *p.Age
	} else {
		snapshot["age"] = nil
	}
	return snapshot
}

// DisplayName is the first name, falling back to the user ID.
func (p *Profile) DisplayName() string {
	if p != nil && strings.TrimSpace(p.FirstName) != "" {
		return p.FirstName
	}
	if p != nil {
		return p.UserID
	}
	return ""
}

// Update carries the fields a user may change. Nil fields are left untouched.
type Update struct {
	FirstName    *string
	LastName     *string
	Age          *int
	Height       *string
	Weight       *string
	FitnessLevel *string
	HealthGoals  []string
}

// Store persists profiles.
type Store interface {
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	SaveProfile(ctx context.Context, p *Profile) error
}

// Service reads and updates profiles.
type Service interface {
	// Get returns the stored profile, or an empty profile for unknown users.
	Get(ctx context.Context, userID string) (*Profile, error)
	Update(ctx context.Context, userID string, update Update) (*Profile, error)
}

type service struct {
	store Store
	log   zerolog.Logger
}

// NewService creates a new profile service.
func NewService(store Store, log zerolog.Logger) Service {
	return &service{
		store: store,
		log:   log.With().Str("component", "profile-service").Logger(),
	}
}

func (s *service) Get(ctx context.Context, userID string) (*Profile, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "user id is required", nil)
	}

	p, err := s.store.GetProfile(ctx, userID)
	if errors.Is(err, ErrProfileNotFound) {
		return &Profile{UserID: userID}, nil
	}
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeDatabaseError, "load profile", err)
	}
	return p, nil
}

func (s *service) Update(ctx context.Context, userID string, update Update) (*Profile, error) {
	p, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if update.FirstName != nil {
		p.FirstName = strings.TrimSpace(*update.FirstName)
	}
	if update.LastName != nil {
		p.LastName = strings.TrimSpace(*update.LastName)
	}
	if update.Age != nil {
		age := *update.Age
		p.Age = &age
	}
	if update.Height != nil {
		p.Height = *update.Height
	}
	if update.Weight != nil {
		p.Weight = *update.Weight
	}
	if update.FitnessLevel != nil {
		p.FitnessLevel = *update.FitnessLevel
	}
	if update.HealthGoals != nil {
		p.HealthGoals = append([]string(nil), update.HealthGoals...)
	}
	p.UpdatedAt = time.Now().UTC()

	if err := s.store.SaveProfile(ctx, p); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeDatabaseError, "save profile", err)
	}

	s.log.Info().Str("user_id", userID).Msg("profile updated")
	return p, nil
}
