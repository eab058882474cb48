package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/janhq/health-agent/internal/domain/profile"
)

// MemoryProfileStore keeps profiles in memory.
type MemoryProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]profile.Profile
}

// NewMemoryProfileStore creates an empty in-memory profile store.
func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{profiles: make(map[string]profile.Profile)}
}

// GetProfile returns a copy of the stored profile.
func (s *MemoryProfileStore) GetProfile(ctx context.Context, userID string) (*profile.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, profile.ErrProfileNotFound
	}
	p.HealthGoals = append([]string(nil), p.HealthGoals...)
	return &p, nil
}

// SaveProfile replaces the stored profile.
func (s *MemoryProfileStore) SaveProfile(ctx context.Context, p *profile.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *p
	clone.HealthGoals = append([]string(nil), p.HealthGoals...)
	s.profiles[p.UserID] = clone
	return nil
}

// GetProfile reads a profile from the user_profiles collection.
func (s *MongoStore) GetProfile(ctx context.Context, userID string) (*profile.Profile, error) {
	var p profile.Profile
	err := s.profiles.FindOne(ctx, bson.M{"user_id": userID}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, profile.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return &p, nil
}

// SaveProfile upserts a profile document.
func (s *MongoStore) SaveProfile(ctx context.Context, p *profile.Profile) error {
	_, err := s.profiles.ReplaceOne(ctx, bson.M{"user_id": p.UserID}, p, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

var (
	_ profile.Store = (*MemoryProfileStore)(nil)
	_ profile.Store = (*MongoStore)(nil)
)
