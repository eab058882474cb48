package capability

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinalReply(t *testing.T) {
	tests := []struct {
		name   string
		events []*TurnEvent
		want   string
	}{
		{
			name: "no events",
			want: NoResponsePlaceholder,
		},
		{
			name: "only partial model events",
			events: []*TurnEvent{
				{Role: RoleModel, Text: "Squats", Partial: true},
				{Role: RoleModel, Text: "Squats work", Partial: true},
			},
			want: NoResponsePlaceholder,
		},
		{
			name: "last final model event wins",
			events: []*TurnEvent{
				{Role: RoleModel, Text: "first", Final: true},
				{Role: RoleTool, Text: "lookup", Final: true},
				{Role: RoleModel, Text: "second", Final: true},
				{Role: RoleUser, Text: "echo", Final: true},
			},
			want: "second",
		},
		{
			name: "blank final text",
			events: []*TurnEvent{
				{Role: RoleModel, Text: "earlier", Final: true},
				{Role: RoleModel, Text: "  ", Final: true},
			},
			want: NoResponsePlaceholder,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FinalReply(tt.events))
		})
	}
}

func TestCollect(t *testing.T) {
	events := []*TurnEvent{
		{Role: RoleModel, Text: "a", Partial: true},
		{Role: RoleModel, Text: "ab", Final: true, Raw: map[string]any{"finish_reason": "stop"}},
	}

	got, err := Collect(NewSliceStream(events, nil))
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, map[string]any{"finish_reason": "stop"}, LastRaw(got))
}

func TestCollect_PropagatesError(t *testing.T) {
	boom := errors.New("upstream failed")
	stream := NewSliceStream([]*TurnEvent{{Role: RoleModel, Text: "x", Partial: true}}, boom)

	got, err := Collect(stream)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, got, 1)

	_, err = stream.Recv()
	assert.Error(t, err)
}

func TestClassificationDisplayName(t *testing.T) {
	assert.Equal(t, "Deadlift", (&Classification{Label: "deadlift", Title: "Deadlift"}).DisplayName())
	assert.Equal(t, "squat", (&Classification{Label: "squat"}).DisplayName())
}
