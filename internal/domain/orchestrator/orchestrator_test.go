package orchestrator_test

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/health-agent/internal/domain/capability"
	"github.com/janhq/health-agent/internal/domain/chat"
	"github.com/janhq/health-agent/internal/domain/orchestrator"
	"github.com/janhq/health-agent/internal/infrastructure/store"
	"github.com/janhq/health-agent/internal/utils/platformerrors"
)

type mockRunner struct {
	calls int32
	runFn func(ctx context.Context, req capability.RunRequest) (capability.TurnStream, error)
}

func (m *mockRunner) Run(ctx context.Context, req capability.RunRequest) (capability.TurnStream, error) {
	atomic.AddInt32(&m.calls, 1)
	return m.runFn(ctx, req)
}

type mockClassifier struct {
	calls      int32
	classifyFn func(ctx context.Context, in capability.ImageInput) (*capability.Classification, error)
}

func (m *mockClassifier) Classify(ctx context.Context, in capability.ImageInput) (*capability.Classification, error) {
	atomic.AddInt32(&m.calls, 1)
	return m.classifyFn(ctx, in)
}

// blockingStream never yields until its context is cancelled.
type blockingStream struct {
	ctx context.Context
}

func (b *blockingStream) Recv() (*capability.TurnEvent, error) {
	<-b.ctx.Done()
	return nil, b.ctx.Err()
}

func (b *blockingStream) Close() error { return nil }

func replyWith(text string) func(context.Context, capability.RunRequest) (capability.TurnStream, error) {
	return func(ctx context.Context, req capability.RunRequest) (capability.TurnStream, error) {
		return capability.NewSliceStream([]*capability.TurnEvent{
			{Role: capability.RoleModel, Text: text, Partial: true},
			{Role: capability.RoleModel, Text: text, Final: true, Raw: map[string]any{"finish_reason": "stop"}},
		}, nil), nil
	}
}

type fixture struct {
	svc        orchestrator.Service
	sessions   chat.Service
	runner     *mockRunner
	classifier *mockClassifier
}

func newFixture(timeout time.Duration) *fixture {
	sessions := chat.NewService(store.NewMemoryStore(zerolog.Nop()), chat.Options{DeletedReadable: true}, zerolog.Nop())
	runner := &mockRunner{runFn: replyWith("Keep your back straight.")}
	classifier := &mockClassifier{classifyFn: func(ctx context.Context, in capability.ImageInput) (*capability.Classification, error) {
		return &capability.Classification{Success: true, Label: "kettlebell", Confidence: 0.87}, nil
	}}
	svc := orchestrator.NewService(sessions, runner, classifier, orchestrator.Options{
		DefaultUserID: "default_health_user",
		ContextTurns:  20,
		Timeout:       timeout,
	}, zerolog.Nop())
	return &fixture{svc: svc, sessions: sessions, runner: runner, classifier: classifier}
}

func TestProcess_NewSessionThenReuse(t *testing.T) {
	f := newFixture(time.Second)
	ctx := context.Background()

	first, err := f.svc.Process(ctx, orchestrator.Turn{Message: "Hello", UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, orchestrator.StatusSuccess, first.Status)
	require.NotEmpty(t, first.SessionID)
	assert.Equal(t, orchestrator.MethodAgentLLM, first.Data["processing_method"])

	var seenHistory int
	f.runner.runFn = func(ctx context.Context, req capability.RunRequest) (capability.TurnStream, error) {
		seenHistory = len(req.History)
		assert.Equal(t, "User ID: u1\n\nWhat about squats?", req.Prompt)
		return replyWith("Squats are great.")(ctx, req)
	}

	second, err := f.svc.Process(ctx, orchestrator.Turn{Message: "What about squats?", UserID: "u1", SessionID: first.SessionID})
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Equal(t, "Squats are great.", second.Message)
	assert.Equal(t, 1, seenHistory)

	got, err := f.sessions.GetSessionWithMessages(ctx, first.SessionID, "u1")
	require.NoError(t, err)
	assert.Len(t, got.Messages, 2)
	assert.Equal(t, "Hello", got.Session.Title)
}

func TestProcess_ImageTakesFastPath(t *testing.T) {
	f := newFixture(time.Second)
	ctx := context.Background()

	res, err := f.svc.Process(ctx, orchestrator.Turn{
		Message: "x",
		UserID:  "u1",
		Context: map[string]any{"image_data": "aGVsbG8=", "is_url": false, "source": "camera"},
	})
	require.NoError(t, err)

	assert.Equal(t, orchestrator.StatusSuccess, res.Status)
	assert.Equal(t, orchestrator.MethodDirectVision, res.Data["processing_method"])
	assert.Contains(t, res.Message, "kettlebell")
	assert.Equal(t, int32(0), atomic.LoadInt32(&f.runner.calls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.classifier.calls))

	got, err := f.sessions.GetSessionWithMessages(ctx, res.SessionID, "u1")
	require.NoError(t, err)
	require.Len(t, got.Messages, 1)
	msg := got.Messages[0]
	assert.Equal(t, chat.MessageTypeImage, msg.MessageType)
	assert.NotContains(t, msg.Context, "image_data")
	assert.Equal(t, "camera", msg.Context["source"])
}

func TestProcess_ImageFailureIsErrorResult(t *testing.T) {
	f := newFixture(time.Second)
	f.classifier.classifyFn = func(ctx context.Context, in capability.ImageInput) (*capability.Classification, error) {
		return &capability.Classification{Success: false, Reason: "blurry image"}, nil
	}

	res, err := f.svc.Process(context.Background(), orchestrator.Turn{Message: "what is this", UserID: "u1", Context: map[string]any{"image_data": "https://x/y.png", "is_url": true}})
	require.NoError(t, err)
	assert.Equal(t, orchestrator.StatusError, res.Status)
	assert.Contains(t, res.Message, "blurry image")

	sessions, err := f.sessions.ListSessions(context.Background(), "u1", 0)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestProcess_NoFinalEventUsesPlaceholder(t *testing.T) {
	f := newFixture(time.Second)
	f.runner.runFn = func(ctx context.Context, req capability.RunRequest) (capability.TurnStream, error) {
		return capability.NewSliceStream([]*capability.TurnEvent{
			{Role: capability.RoleModel, Text: "thinking", Partial: true},
		}, nil), nil
	}

	res, err := f.svc.Process(context.Background(), orchestrator.Turn{Message: "Hi there", UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, orchestrator.StatusSuccess, res.Status)
	assert.Equal(t, capability.NoResponsePlaceholder, res.Message)
}

func TestProcess_RunnerFailureWritesNothing(t *testing.T) {
	tests := []struct {
		name  string
		runFn func(context.Context, capability.RunRequest) (capability.TurnStream, error)
	}{
		{
			name: "run fails",
			runFn: func(ctx context.Context, req capability.RunRequest) (capability.TurnStream, error) {
				return nil, errors.New("model unavailable")
			},
		},
		{
			name: "stream fails midway",
			runFn: func(ctx context.Context, req capability.RunRequest) (capability.TurnStream, error) {
				return capability.NewSliceStream([]*capability.TurnEvent{{Role: capability.RoleModel, Text: "par", Partial: true}}, io.ErrUnexpectedEOF), nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(time.Second)
			f.runner.runFn = tt.runFn

			res, err := f.svc.Process(context.Background(), orchestrator.Turn{Message: "plan my week", UserID: "u1", SessionID: "s1"})
			require.NoError(t, err)
			assert.Equal(t, orchestrator.StatusError, res.Status)
			assert.Equal(t, "s1", res.SessionID)

			_, err = f.sessions.GetSessionWithMessages(context.Background(), "s1", "u1")
			assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
		})
	}
}

func TestProcess_Timeout(t *testing.T) {
	f := newFixture(20 * time.Millisecond)
	f.runner.runFn = func(ctx context.Context, req capability.RunRequest) (capability.TurnStream, error) {
		return &blockingStream{ctx: ctx}, nil
	}

	start := time.Now()
	res, err := f.svc.Process(context.Background(), orchestrator.Turn{Message: "hello?", UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, orchestrator.StatusError, res.Status)
	assert.Contains(t, res.Message, "timed out")
	assert.Less(t, time.Since(start), time.Second)
}

func TestProcess_EmptyMessageIsValidationError(t *testing.T) {
	f := newFixture(time.Second)

	_, err := f.svc.Process(context.Background(), orchestrator.Turn{Message: "   ", UserID: "u1", SessionID: "s1"})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
	assert.Equal(t, int32(0), atomic.LoadInt32(&f.runner.calls))

	sessions, err := f.sessions.ListSessions(context.Background(), "u1", 0)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestProcess_DefaultUser(t *testing.T) {
	f := newFixture(time.Second)
	ctx := context.Background()

	res, err := f.svc.Process(ctx, orchestrator.Turn{Message: "hey"})
	require.NoError(t, err)

	sessions, err := f.sessions.ListSessions(ctx, "default_health_user", 0)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, res.SessionID, sessions[0].SessionID)

	res, err = f.svc.Process(ctx, orchestrator.Turn{Message: "hey", Context: map[string]any{"user_id": "ctx-user"}})
	require.NoError(t, err)
	_, err = f.sessions.GetSessionWithMessages(ctx, res.SessionID, "ctx-user")
	assert.NoError(t, err)
}

func TestProcess_ForeignSessionIsNotFound(t *testing.T) {
	f := newFixture(time.Second)
	ctx := context.Background()

	_, err := f.svc.Process(ctx, orchestrator.Turn{Message: "mine", UserID: "alice", SessionID: "shared"})
	require.NoError(t, err)
	require.Equal(t, int32(1), atomic.LoadInt32(&f.runner.calls))

	res, err := f.svc.Process(ctx, orchestrator.Turn{Message: "sneaky", UserID: "bob", SessionID: "shared"})
	assert.Nil(t, res)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.runner.calls))

	_, err = f.svc.Process(ctx, orchestrator.Turn{Message: "what is this", UserID: "bob", SessionID: "shared",
		Context: map[string]any{"image_data": "aGVsbG8="}})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
	assert.Zero(t, atomic.LoadInt32(&f.classifier.calls))

	got, err := f.sessions.GetSessionWithMessages(ctx, "shared", "alice")
	require.NoError(t, err)
	assert.Len(t, got.Messages, 1)
}

// panicStream fails inside Recv the way a broken decoder would.
type panicStream struct{}

func (panicStream) Recv() (*capability.TurnEvent, error) { panic("decoder blew up") }

func (panicStream) Close() error { return nil }

func TestProcess_StreamPanicIsErrorResult(t *testing.T) {
	f := newFixture(time.Second)
	f.runner.runFn = func(ctx context.Context, req capability.RunRequest) (capability.TurnStream, error) {
		return panicStream{}, nil
	}

	res, err := f.svc.Process(context.Background(), orchestrator.Turn{Message: "plan my week", UserID: "u1", SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, orchestrator.StatusError, res.Status)
	assert.Contains(t, res.Message, "decoder blew up")

	_, err = f.sessions.GetSessionWithMessages(context.Background(), "s1", "u1")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}

// appendFailStore creates sessions but cannot write messages.
type appendFailStore struct {
	*store.MemoryStore
}

func (s *appendFailStore) AppendMessage(ctx context.Context, msg *chat.Message) (*chat.Message, error) {
	return nil, errors.New("disk full")
}

func TestProcess_AppendFailureDiscardsNewSession(t *testing.T) {
	backing := &appendFailStore{MemoryStore: store.NewMemoryStore(zerolog.Nop())}
	sessions := chat.NewService(backing, chat.Options{DeletedReadable: true}, zerolog.Nop())
	svc := orchestrator.NewService(sessions, &mockRunner{runFn: replyWith("ok")}, nil, orchestrator.Options{
		DefaultUserID: "default_health_user",
		Timeout:       time.Second,
	}, zerolog.Nop())
	ctx := context.Background()

	res, err := svc.Process(ctx, orchestrator.Turn{Message: "hello", UserID: "u1", SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, orchestrator.StatusError, res.Status)

	_, err = sessions.GetSessionWithMessages(ctx, "s1", "u1")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
	owner, err := backing.SessionOwner(ctx, "s1")
	assert.ErrorIs(t, err, chat.ErrSessionNotFound)
	assert.Empty(t, owner)
}
