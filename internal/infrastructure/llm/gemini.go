package llm

import (
	"context"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/janhq/health-agent/internal/domain/capability"
)

// GeminiRunner runs turns against the Gemini API.
type GeminiRunner struct {
	client       *genai.Client
	model        string
	systemPrompt string
	log          zerolog.Logger
}

// NewGeminiRunner creates a Gemini API client.
func NewGeminiRunner(ctx context.Context, apiKey, model, systemPrompt string, log zerolog.Logger) (*GeminiRunner, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &GeminiRunner{
		client:       client,
		model:        model,
		systemPrompt: systemPrompt,
		log:          log.With().Str("component", "llm-runner").Str("provider", "gemini").Logger(),
	}, nil
}

// Run starts a streaming generation for the request.
func (r *GeminiRunner) Run(ctx context.Context, req capability.RunRequest) (capability.TurnStream, error) {
	contents := make([]*genai.Content, 0, len(req.History)*2+1)
	for _, h := range req.History {
		contents = append(contents,
			genai.NewContentFromText(h.Message, genai.RoleUser),
			genai.NewContentFromText(h.Response, genai.RoleModel),
		)
	}
	contents = append(contents, genai.NewContentFromText(req.Prompt, genai.RoleUser))

	cfg := &genai.GenerateContentConfig{}
	if r.systemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(r.systemPrompt, genai.RoleUser)
	}

	seq := r.client.Models.GenerateContentStream(ctx, r.model, contents, cfg)
	next, stop := iter.Pull2(seq)

	r.log.Debug().Str("session_id", req.SessionID).Int("history", len(req.History)).Msg("generation stream opened")
	return &geminiStream{next: next, stop: stop, author: r.model}, nil
}

type geminiStream struct {
	next   func() (*genai.GenerateContentResponse, error, bool)
	stop   func()
	author string
	text   strings.Builder
	id     string
	reason string
	done   bool
}

func (s *geminiStream) Recv() (*capability.TurnEvent, error) {
	if s.done {
		return nil, io.EOF
	}

	for {
		resp, err, ok := s.next()
		if !ok {
			s.done = true
			if s.text.Len() == 0 {
				return nil, io.EOF
			}
			return s.final(), nil
		}
		if err != nil {
			s.done = true
			return nil, fmt.Errorf("gemini recv: %w", err)
		}
		if resp == nil {
			continue
		}

		if resp.ResponseID != "" {
			s.id = resp.ResponseID
		}
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != "" {
			s.reason = string(resp.Candidates[0].FinishReason)
		}

		chunk := resp.Text()
		if chunk == "" {
			continue
		}
		s.text.WriteString(chunk)
		return &capability.TurnEvent{
			ID:      s.id,
			Author:  s.author,
			Role:    capability.RoleModel,
			Text:    s.text.String(),
			Partial: true,
		}, nil
	}
}

func (s *geminiStream) final() *capability.TurnEvent {
	return &capability.TurnEvent{
		ID:     s.id,
		Author: s.author,
		Role:   capability.RoleModel,
		Text:   s.text.String(),
		Final:  true,
		Raw: map[string]any{
			"id":            s.id,
			"author":        s.author,
			"finish_reason": s.reason,
			"content":       s.text.String(),
		},
	}
}

func (s *geminiStream) Close() error {
	s.done = true
	s.stop()
	return nil
}

var _ capability.Runner = (*GeminiRunner)(nil)
