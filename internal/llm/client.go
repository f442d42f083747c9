package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog"
)

// ErrUnavailable is returned when no generation backend is configured.
// Callers should surface it with UnavailableSuggestions instead of a
// bare failure, since execution still works without a generator.
var ErrUnavailable = errors.New("generator unavailable")

// UnavailableSuggestions lists likely fixes offered alongside
// ErrUnavailable.
var UnavailableSuggestions = []string{
	"set OPENAI_API_KEY or generator.api_key in the config",
	"point generator.base_url at an OpenAI-compatible endpoint such as Ollama",
	"execute code directly instead; execution does not need a generator",
}

// Client generates guest snippets from natural-language prompts.
type Client interface {
	Generate(ctx context.Context, req Request) (*Generation, error)
	GenerateStream(ctx context.Context, req Request, handler StreamHandler) (*Generation, error)
	Available() bool
}

// OpenAICompatClient works with any OpenAI-compatible API (OpenAI,
// Ollama, vLLM, LM Studio).
type OpenAICompatClient struct {
	client      *openai.Client
	model       string
	baseURL     string
	apiKey      string
	maxTokens   int64
	temperature float64
	log         zerolog.Logger
}

// ClientConfig holds the connection and sampling settings for a client.
type ClientConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int64
	Temperature float64
	Logger      zerolog.Logger
}

// NewClient creates a generation client for the given provider.
func NewClient(cfg ClientConfig) *OpenAICompatClient {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(opts...)
	return &OpenAICompatClient{
		client:      &client,
		model:       cfg.Model,
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		log:         cfg.Logger,
	}
}

// Available reports whether the client can plausibly reach a provider:
// the hosted default needs a key, a self-hosted base URL does not.
func (c *OpenAICompatClient) Available() bool {
	return c.apiKey != "" || c.baseURL != ""
}

func (c *OpenAICompatClient) Generate(ctx context.Context, req Request) (*Generation, error) {
	if !c.Available() {
		return nil, ErrUnavailable
	}
	params := c.params(req)

	var completion *openai.ChatCompletion
	var err error
	for attempt := range 3 {
		completion, err = c.client.Chat.Completions.New(ctx, params)
		if err == nil {
			break
		}
		if !strings.Contains(err.Error(), "429") || attempt == 2 {
			return nil, fmt.Errorf("chat completion: %w", err)
		}
		wait := time.Duration(2<<attempt) * time.Second // 2s, 4s
		c.log.Warn().Dur("wait", wait).Msg("rate limited, retrying")
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, fmt.Errorf("chat completion: %w", ctx.Err())
		}
	}

	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned")
	}
	return c.finish(req, completion.Choices[0].Message.Content)
}

// params builds the request parameters, applying any profile overrides.
func (c *OpenAICompatClient) params(req Request) openai.ChatCompletionNewParams {
	maxTokens := c.maxTokens
	temperature := c.temperature
	if p := req.Profile; p != nil {
		if p.MaxTokens > 0 {
			maxTokens = p.MaxTokens
		}
		if p.Temperature > 0 {
			temperature = p.Temperature
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    c.modelFor(req),
		Messages: convertMessages(buildMessages(req)),
	}
	if maxTokens > 0 {
		params.MaxTokens = openai.Int(maxTokens)
	}
	if temperature > 0 {
		params.Temperature = openai.Float(temperature)
	}
	return params
}

func (c *OpenAICompatClient) modelFor(req Request) string {
	if req.Profile != nil && req.Profile.Model != "" {
		return req.Profile.Model
	}
	return c.model
}

// finish extracts the snippet and its explanation from a completed
// response.
func (c *OpenAICompatClient) finish(req Request, content string) (*Generation, error) {
	code := ExtractCode(content)
	if !LooksLikeCode(code) {
		return nil, fmt.Errorf("model returned no runnable code")
	}
	return &Generation{
		Code:        code,
		Explanation: ExtractExplanation(content),
		Raw:         content,
		Model:       c.modelFor(req),
	}, nil
}

func convertMessages(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	var out []openai.ChatCompletionMessageParamUnion
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleUser:
			out = append(out, openai.UserMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		}
	}
	return out
}

// ModelInfo describes a model available on the provider.
type ModelInfo struct {
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	ModifiedAt string `json:"modified_at"`
}

// ListModels queries Ollama's native /api/tags endpoint for available
// models. The baseURL is expected to end with /v1/ (OpenAI-compat); we
// strip that to reach the native Ollama API.
func (c *OpenAICompatClient) ListModels(ctx context.Context) ([]ModelInfo, error) {
	base := strings.TrimRight(c.baseURL, "/")
	base = strings.TrimSuffix(base, "/v1")
	url := base + "/api/tags"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching models: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("model API returned %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Models []struct {
			Name       string `json:"name"`
			Size       int64  `json:"size"`
			ModifiedAt string `json:"modified_at"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	models := make([]ModelInfo, len(result.Models))
	for i, m := range result.Models {
		models[i] = ModelInfo{
			Name:       m.Name,
			Size:       m.Size,
			ModifiedAt: m.ModifiedAt,
		}
	}
	return models, nil
}
