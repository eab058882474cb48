package profile

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/health-agent/internal/utils/platformerrors"
)

type mockStore struct {
	getFn  func(ctx context.Context, userID string) (*Profile, error)
	saveFn func(ctx context.Context, p *Profile) error
}

func (m *mockStore) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	return m.getFn(ctx, userID)
}

func (m *mockStore) SaveProfile(ctx context.Context, p *Profile) error {
	return m.saveFn(ctx, p)
}

func TestService_GetUnknownUser(t *testing.T) {
	svc := NewService(&mockStore{getFn: func(ctx context.Context, userID string) (*Profile, error) {
		return nil, ErrProfileNotFound
	}}, zerolog.Nop())

	p, err := svc.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", p.UserID)
	assert.Equal(t, "u1", p.DisplayName())

	_, err = svc.Get(context.Background(), " ")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
}

func TestService_UpdateMergesFields(t *testing.T) {
	age := 30
	var saved *Profile
	store := &mockStore{
		getFn: func(ctx context.Context, userID string) (*Profile, error) {
			return &Profile{UserID: userID, FirstName: "Sam", Age: &age, Weight: "80kg"}, nil
		},
		saveFn: func(ctx context.Context, p *Profile) error {
			saved = p
			return nil
		},
	}
	svc := NewService(store, zerolog.Nop())

	level := "advanced"
	newAge := 31
	p, err := svc.Update(context.Background(), "u1", Update{
		FitnessLevel: &level,
		Age:          &newAge,
		HealthGoals:  []string{"lose fat"},
	})
	require.NoError(t, err)

	assert.Same(t, saved, p)
	assert.Equal(t, "Sam", p.FirstName)
	assert.Equal(t, "80kg", p.Weight)
	assert.Equal(t, 31, *p.Age)
	assert.Equal(t, 30, age)
	assert.Equal(t, "advanced", p.FitnessLevel)
	assert.False(t, p.UpdatedAt.IsZero())
}

func TestService_UpdateSaveError(t *testing.T) {
	svc := NewService(&mockStore{
		getFn: func(ctx context.Context, userID string) (*Profile, error) { return nil, ErrProfileNotFound },
		saveFn: func(ctx context.Context, p *Profile) error {
			return errors.New("disk full")
		},
	}, zerolog.Nop())

	_, err := svc.Update(context.Background(), "u1", Update{})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeDatabaseError))
}

func TestProfile_Snapshot(t *testing.T) {
	var nilProfile *Profile
	assert.Empty(t, nilProfile.Snapshot())

	p := &Profile{UserID: "u1", Height: "180cm", FitnessLevel: "beginner", HealthGoals: []string{"sleep"}}
	snap := p.Snapshot()
	assert.Nil(t, snap["age"])
	assert.Equal(t, "180cm", snap["height"])
	assert.Equal(t, []string{"sleep"}, snap["health_goals"])

	snap["health_goals"].([]string)[0] = "changed"
	assert.Equal(t, "sleep", p.HealthGoals[0])
}
