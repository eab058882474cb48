// Package capability defines the narrow contracts of the external LLM
// agent-runner and image classifier.
package capability

import (
	"context"
	"errors"
	"io"
	"strings"
)

// NoResponsePlaceholder is the reply used when a run ends without a final model turn.
const NoResponsePlaceholder = "(No response generated)"

// Roles of turn event authors.
const (
	RoleModel = "model"
	RoleUser  = "user"
	RoleTool  = "tool"
)

// TurnEvent is one event emitted by the agent runner.
type TurnEvent struct {
	ID      string         `json:"id,omitempty"`
	Author  string         `json:"author,omitempty"`
	Role    string         `json:"role"`
	Text    string         `json:"text,omitempty"`
	Final   bool           `json:"final"`
	Partial bool           `json:"partial,omitempty"`
	Raw     map[string]any `json:"raw,omitempty"`
}

// TurnStream is a finite, non-restartable sequence of turn events.
// Recv returns io.EOF once the run is complete.
type TurnStream interface {
	Recv() (*TurnEvent, error)
	Close() error
}

// HistoryMessage is one prior exchange of the session.
type HistoryMessage struct {
	Message  string
	Response string
}

// RunRequest is a single agent run.
type RunRequest struct {
	UserID    string
	SessionID string
	Prompt    string
	History   []HistoryMessage
}

// Runner is the LLM agent-runner capability.
type Runner interface {
	Run(ctx context.Context, req RunRequest) (TurnStream, error)
}

// ImageInput is the payload handed to the classifier.
type ImageInput struct {
	// Data is either a URL or base64 encoded bytes, optionally as a data URL.
	Data  string
	IsURL bool
}

// Classification is the classifier verdict.
type Classification struct {
	Success    bool           `json:"success"`
	Label      string         `json:"label"`
	Title      string         `json:"title,omitempty"`
	Confidence float64        `json:"confidence"`
	Reason     string         `json:"reason,omitempty"`
	Extra      map[string]any `json:"extra,omitempty"`
}

// DisplayName returns the title when set, otherwise the label.
func (c *Classification) DisplayName() string {
	if strings.TrimSpace(c.Title) != "" {
		return c.Title
	}
	return c.Label
}

// ImageClassifier is the image classification capability.
type ImageClassifier interface {
	Classify(ctx context.Context, in ImageInput) (*Classification, error)
}

// Collect drains the stream. Events read before a failure are returned with the error.
func Collect(stream TurnStream) ([]*TurnEvent, error) {
	defer stream.Close()

	var events []*TurnEvent
	for {
		ev, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return events, nil
		}
		if err != nil {
			return events, err
		}
		if ev != nil {
			events = append(events, ev)
		}
	}
}

// FinalReply returns the text of the last final model-authored event, or the
// placeholder when there is none or its text is blank.
func FinalReply(events []*TurnEvent) string {
	for i := len(events) - 1; i >= 0; i-- {
		ev := events[i]
		if ev.Role != RoleModel || !ev.Final {
			continue
		}
		if strings.TrimSpace(ev.Text) == "" {
			return NoResponsePlaceholder
		}
		return ev.Text
	}
	return NoResponsePlaceholder
}

// LastRaw returns the raw payload of the last event.
func LastRaw(events []*TurnEvent) map[string]any {
	if len(events) == 0 {
		return nil
	}
	return events[len(events)-1].Raw
}

// SliceStream replays a fixed list of events. Useful for deterministic runners.
type SliceStream struct {
	events []*TurnEvent
	err    error
	pos    int
	closed bool
}

// NewSliceStream creates a stream that yields events and then err, or io.EOF when err is nil.
func NewSliceStream(events []*TurnEvent, err error) *SliceStream {
	return &SliceStream{events: events, err: err}
}

// Recv returns the next event.
func (s *SliceStream) Recv() (*TurnEvent, error) {
	if s.closed {
		return nil, io.EOF
	}
	if s.pos < len(s.events) {
		ev := s.events[s.pos]
		s.pos++
		return ev, nil
	}
	if s.err != nil {
		return nil, s.err
	}
	return nil, io.EOF
}

// Close marks the stream as consumed.
func (s *SliceStream) Close() error {
	s.closed = true
	return nil
}
