package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/mcphost/host/pkg/models"
)

// GoogleConfig configures a GoogleProvider.
type GoogleConfig struct {
	APIKey       string
	MaxRetries   int
	RetryDelay   time.Duration
	DefaultModel string
}

// GoogleProvider implements Provider against Gemini's GenerateContentStream
// API via the Go Gen AI SDK.
type GoogleProvider struct {
	client       *genai.Client
	retry        retrier
	defaultModel string
}

func NewGoogleProvider(ctx context.Context, cfg GoogleConfig) (*GoogleProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llm: google API key is required")
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: google: %w", err)
	}

	return &GoogleProvider{
		client:       client,
		retry:        newRetrier(cfg.MaxRetries, cfg.RetryDelay),
		defaultModel: cfg.DefaultModel,
	}, nil
}

func (p *GoogleProvider) Name() string       { return "google" }
func (p *GoogleProvider) SupportsTools() bool { return true }

func (p *GoogleProvider) Complete(ctx context.Context, req *CompletionRequest) (<-chan *Chunk, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	contents, err := convertGoogleMessages(req.Messages)
	if err != nil {
		return nil, fmt.Errorf("llm: google: converting messages: %w", err)
	}
	config := buildGoogleConfig(req)

	chunks := make(chan *Chunk)

	go func() {
		defer close(chunks)

		err := p.retry.do(ctx, isRetryableGoogleError, func() error {
			iter := p.client.Models.GenerateContentStream(ctx, model, contents, config)
			return drainGoogleStream(ctx, iter, chunks)
		})
		if err != nil {
			chunks <- &Chunk{Error: fmt.Errorf("llm: google: %w", err)}
			return
		}
		chunks <- &Chunk{Done: true}
	}()

	return chunks, nil
}

func drainGoogleStream(ctx context.Context, iter func(func(*genai.GenerateContentResponse, error) bool), chunks chan<- *Chunk) error {
	var streamErr error
	iter(func(resp *genai.GenerateContentResponse, err error) bool {
		select {
		case <-ctx.Done():
			streamErr = ctx.Err()
			return false
		default:
		}
		if err != nil {
			streamErr = err
			return false
		}
		if resp == nil {
			return true
		}
		for _, candidate := range resp.Candidates {
			if candidate == nil || candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part == nil {
					continue
				}
				if part.Text != "" {
					chunks <- &Chunk{Text: part.Text}
				}
				if part.FunctionCall != nil {
					argsJSON, jsonErr := json.Marshal(part.FunctionCall.Args)
					if jsonErr != nil {
						argsJSON = []byte("{}")
					}
					chunks <- &Chunk{ToolCall: &models.ToolCall{
						Name:  part.FunctionCall.Name,
						Input: argsJSON,
					}}
				}
			}
		}
		return true
	})
	return streamErr
}

func convertGoogleMessages(messages []*models.Message) ([]*genai.Content, error) {
	out := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		content := &genai.Content{}
		switch m.Role {
		case models.RoleUser, models.RoleTool:
			content.Role = genai.RoleUser
		case models.RoleAssistant:
			content.Role = genai.RoleModel
		default:
			return nil, fmt.Errorf("unsupported message role %q", m.Role)
		}
		content.Parts = append(content.Parts, &genai.Part{Text: m.Content})
		out = append(out, content)
	}
	return out, nil
}

func buildGoogleConfig(req *CompletionRequest) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if req.System != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if len(req.Tools) > 0 {
		cfg.Tools = convertGoogleTools(req.Tools)
	}
	return cfg
}

func convertGoogleTools(tools []ToolSpec) []*genai.Tool {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		var schema genai.Schema
		if err := json.Unmarshal(t.InputSchema, &schema); err != nil {
			continue
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  &schema,
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

func isRetryableGoogleError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"rate limit", "429", "resource exhausted", "quota", "500", "502", "503", "504", "timeout", "deadline exceeded"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
