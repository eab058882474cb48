// Package llm adapts hosted chat models to the capability.Runner contract.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/janhq/health-agent/internal/domain/capability"
)

// OpenAIRunner runs turns against an OpenAI compatible chat completions API.
type OpenAIRunner struct {
	client       *openai.Client
	model        string
	systemPrompt string
	log          zerolog.Logger
}

// NewOpenAIRunner creates a runner. baseURL overrides the default API endpoint when set.
func NewOpenAIRunner(apiKey, baseURL, model, systemPrompt string, log zerolog.Logger) *OpenAIRunner {
	cfg := openai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &OpenAIRunner{
		client:       openai.NewClientWithConfig(cfg),
		model:        model,
		systemPrompt: systemPrompt,
		log:          log.With().Str("component", "llm-runner").Str("provider", "openai").Logger(),
	}
}

// Run starts a streaming completion for the request.
func (r *OpenAIRunner) Run(ctx context.Context, req capability.RunRequest) (capability.TurnStream, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)*2+2)
	if r.systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: r.systemPrompt})
	}
	for _, h := range req.History {
		messages = append(messages,
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: h.Message},
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: h.Response},
		)
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	stream, err := r.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    r.model,
		Messages: messages,
		Stream:   true,
		User:     req.UserID,
	})
	if err != nil {
		return nil, fmt.Errorf("openai stream: %w", err)
	}

	r.log.Debug().Str("session_id", req.SessionID).Int("history", len(req.History)).Msg("completion stream opened")
	return &openaiStream{stream: stream, author: r.model}, nil
}

type openaiStream struct {
	stream *openai.ChatCompletionStream
	author string
	text   strings.Builder
	id     string
	done   bool
}

// Recv yields one partial event per content delta, then a final event
// carrying the accumulated reply.
func (s *openaiStream) Recv() (*capability.TurnEvent, error) {
	if s.done {
		return nil, io.EOF
	}

	for {
		chunk, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			s.done = true
			if s.text.Len() == 0 {
				return nil, io.EOF
			}
			return s.final("stop"), nil
		}
		if err != nil {
			return nil, fmt.Errorf("openai recv: %w", err)
		}

		if chunk.ID != "" {
			s.id = chunk.ID
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		choice := chunk.Choices[0]
		s.text.WriteString(choice.Delta.Content)

		if choice.FinishReason != "" {
			s.done = true
			return s.final(string(choice.FinishReason)), nil
		}
		if choice.Delta.Content == "" {
			continue
		}
		return &capability.TurnEvent{
			ID:      s.id,
			Author:  s.author,
			Role:    capability.RoleModel,
			Text:    s.text.String(),
			Partial: true,
		}, nil
	}
}

func (s *openaiStream) final(finishReason string) *capability.TurnEvent {
	return &capability.TurnEvent{
		ID:     s.id,
		Author: s.author,
		Role:   capability.RoleModel,
		Text:   s.text.String(),
		Final:  true,
		Raw: map[string]any{
			"id":            s.id,
			"author":        s.author,
			"finish_reason": finishReason,
			"content":       s.text.String(),
		},
	}
}

func (s *openaiStream) Close() error {
	s.done = true
	s.stream.Close()
	return nil
}

var _ capability.Runner = (*OpenAIRunner)(nil)
