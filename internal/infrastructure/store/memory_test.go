package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/health-agent/internal/domain/chat"
	"github.com/janhq/health-agent/internal/domain/profile"
)

func newTestStore() *MemoryStore {
	return NewMemoryStore(zerolog.Nop())
}

func TestMemoryStore_GetOrCreateConcurrent(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, isNew, err := s.GetOrCreate(ctx, "u1", "s1")
			require.NoError(t, err)
			if isNew {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	sessions, err := s.ListSessions(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestMemoryStore_OwnershipIsolation(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	_, _, err := s.GetOrCreate(ctx, "alice", "shared")
	require.NoError(t, err)

	_, _, err = s.GetOrCreate(ctx, "bob", "shared")
	assert.ErrorIs(t, err, chat.ErrSessionNotFound)

	_, err = s.FindSession(ctx, "shared", "bob")
	assert.ErrorIs(t, err, chat.ErrSessionNotFound)

	_, err = s.ListMessages(ctx, "shared", "bob", 10)
	assert.ErrorIs(t, err, chat.ErrSessionNotFound)

	assert.ErrorIs(t, s.SoftDelete(ctx, "shared", "bob"), chat.ErrSessionNotFound)
}

func TestMemoryStore_AppendMessageSetsTitleOnce(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	_, _, err := s.GetOrCreate(ctx, "u1", "s1")
	require.NoError(t, err)

	long := "I want to build a full body workout routine that fits into three short sessions"
	_, err = s.AppendMessage(ctx, &chat.Message{ID: "m1", SessionID: "s1", UserID: "u1", Message: long})
	require.NoError(t, err)
	_, err = s.AppendMessage(ctx, &chat.Message{ID: "m2", SessionID: "s1", UserID: "u1", Message: "second"})
	require.NoError(t, err)

	sess, err := s.FindSession(ctx, "s1", "u1")
	require.NoError(t, err)
	assert.Equal(t, chat.GenerateTitle(long), sess.Title)
	assert.Len(t, []rune(sess.Title), chat.TitleMaxLength+3)
}

func TestMemoryStore_AppendMessageUnknownSession(t *testing.T) {
	s := newTestStore()

	_, err := s.AppendMessage(context.Background(), &chat.Message{ID: "m1", SessionID: "missing", UserID: "u1", Message: "hi"})
	assert.ErrorIs(t, err, chat.ErrSessionNotFound)
}

func TestMemoryStore_ListMessagesReturnsMostRecent(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	_, _, err := s.GetOrCreate(ctx, "u1", "s1")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := s.AppendMessage(ctx, &chat.Message{ID: fmt.Sprintf("m%d", i), SessionID: "s1", UserID: "u1", Message: fmt.Sprintf("msg %d", i)})
		require.NoError(t, err)
	}

	messages, err := s.ListMessages(ctx, "s1", "u1", 3)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "msg 2", messages[0].Message)
	assert.Equal(t, "msg 4", messages[2].Message)
}

func TestMemoryStore_SoftDeleteHidesFromList(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	_, _, err := s.GetOrCreate(ctx, "u1", "keep")
	require.NoError(t, err)
	_, _, err = s.GetOrCreate(ctx, "u1", "drop")
	require.NoError(t, err)

	require.NoError(t, s.SoftDelete(ctx, "drop", "u1"))

	sessions, err := s.ListSessions(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "keep", sessions[0].SessionID)

	sess, err := s.FindSession(ctx, "drop", "u1")
	require.NoError(t, err)
	assert.False(t, sess.IsActive)
}

func TestMemoryStore_ListSessionsOrderAndLimit(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	for _, id := range []string{"a", "b", "c"} {
		_, _, err := s.GetOrCreate(ctx, "u1", id)
		require.NoError(t, err)
	}
	_, err := s.AppendMessage(ctx, &chat.Message{ID: "m1", SessionID: "a", UserID: "u1", Message: "bump"})
	require.NoError(t, err)

	sessions, err := s.ListSessions(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "a", sessions[0].SessionID)
	assert.Equal(t, "c", sessions[1].SessionID)
}

func TestMemoryStore_ReturnedRecordsAreCopies(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	sess, _, err := s.GetOrCreate(ctx, "u1", "s1")
	require.NoError(t, err)
	sess.Title = "mutated"

	again, err := s.FindSession(ctx, "s1", "u1")
	require.NoError(t, err)
	assert.Equal(t, chat.DefaultTitle, again.Title)
}

func TestMemoryProfileStore(t *testing.T) {
	s := NewMemoryProfileStore()
	ctx := context.Background()

	_, err := s.GetProfile(ctx, "u1")
	assert.ErrorIs(t, err, profile.ErrProfileNotFound)

	age := 34
	require.NoError(t, s.SaveProfile(ctx, &profile.Profile{UserID: "u1", FirstName: "Sam", Age: &age, HealthGoals: []string{"sleep"}}))

	p, err := s.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Sam", p.FirstName)
	p.HealthGoals[0] = "changed"

	again, err := s.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"sleep"}, again.HealthGoals)
}

func TestMemoryStore_SessionOwnerAndDeleteEmpty(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	_, err := s.SessionOwner(ctx, "s1")
	assert.ErrorIs(t, err, chat.ErrSessionNotFound)

	_, _, err = s.GetOrCreate(ctx, "alice", "s1")
	require.NoError(t, err)

	owner, err := s.SessionOwner(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "alice", owner)

	deleted, err := s.DeleteEmptySession(ctx, "s1", "bob")
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = s.DeleteEmptySession(ctx, "s1", "alice")
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = s.SessionOwner(ctx, "s1")
	assert.ErrorIs(t, err, chat.ErrSessionNotFound)
}
