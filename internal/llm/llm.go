package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"

	"github.com/Gongadachandrasekhar1/youtube-automation-backend/internal/config"
)

const (
	DefaultHuggingFaceURL = "https://router.huggingface.co/v1"
	DefaultGeminiURL      = "https://generativelanguage.googleapis.com/v1beta"
)

// Provider is the interface for generative-text providers. Adapters differ
// only in wire shape; callers see the raw reply text.
type Provider interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
	IsConfigured() bool
	Name() string
}

// ChatProvider talks to any OpenAI-compatible chat/completions endpoint
// (OpenAI itself, the Hugging Face router, local gateways).
type ChatProvider struct {
	Model  string
	name   string
	apiKey string
	schema json.Marshaler
	client *openai.Client
}

// NewChatProvider creates a chat/completions provider. An empty baseURL
// uses the OpenAI default. A non-nil schema requests structured output.
func NewChatProvider(name, model, baseURL, apiKey string, timeout time.Duration, schema json.Marshaler) *ChatProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}

	return &ChatProvider{
		Model:  model,
		name:   name,
		apiKey: apiKey,
		schema: schema,
		client: openai.NewClientWithConfig(cfg),
	}
}

func (c *ChatProvider) Name() string {
	return c.name
}

// IsConfigured checks if the API key is set.
func (c *ChatProvider) IsConfigured() bool {
	return c.apiKey != ""
}

// Generate sends a prompt and returns choices[0].message.content.
func (c *ChatProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens: maxTokens,
	}
	if c.schema != nil {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "story",
				Schema: c.schema,
				Strict: true,
			},
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", c.upstreamError(err)
	}

	if len(resp.Choices) == 0 {
		return "", &UpstreamError{Provider: c.name, Err: errors.New("no choices in response")}
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *ChatProvider) upstreamError(err error) error {
	ue := &UpstreamError{Provider: c.name, Err: err}

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		ue.StatusCode = apiErr.HTTPStatusCode
		ue.Body = apiErr.Message
	case errors.As(err, &reqErr):
		ue.StatusCode = reqErr.HTTPStatusCode
	}
	return ue
}

// GeminiProvider is a Google Gemini generateContent provider.
type GeminiProvider struct {
	Model   string
	BaseURL string
	apiKey  string
	client  *http.Client
}

// NewGeminiProvider creates a new Gemini provider.
func NewGeminiProvider(model, baseURL, apiKey string, timeout time.Duration) *GeminiProvider {
	if baseURL == "" {
		baseURL = DefaultGeminiURL
	}
	return &GeminiProvider{
		Model:   model,
		BaseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (g *GeminiProvider) Name() string {
	return "gemini"
}

// IsConfigured checks if the API key is set.
func (g *GeminiProvider) IsConfigured() bool {
	return g.apiKey != ""
}

// Generate sends a prompt to Gemini and returns the concatenated text parts
// of the first candidate.
func (g *GeminiProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	body := map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]string{{"text": prompt}}},
		},
		"generationConfig": map[string]any{
			"maxOutputTokens": maxTokens,
		},
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		g.BaseURL, url.PathEscape(g.Model), url.QueryEscape(g.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", &UpstreamError{Provider: g.Name(), Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &UpstreamError{Provider: g.Name(), StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &UpstreamError{Provider: g.Name(), StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var result struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", &UpstreamError{Provider: g.Name(), StatusCode: resp.StatusCode, Err: fmt.Errorf("decoding response: %w", err)}
	}
	if len(result.Error) > 0 && string(result.Error) != "null" {
		return "", &UpstreamError{Provider: g.Name(), StatusCode: resp.StatusCode, Body: string(result.Error)}
	}
	if len(result.Candidates) == 0 {
		return "", &UpstreamError{Provider: g.Name(), StatusCode: resp.StatusCode, Err: errors.New("no candidates in response")}
	}

	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}

// New creates the provider named by cfg.Provider. schema may be nil; it is
// only sent when cfg.StructuredOutput is set and the provider supports it.
func New(cfg config.LLM, apiKey string, schema json.Marshaler) (Provider, error) {
	if !cfg.StructuredOutput {
		schema = nil
	}

	var p Provider
	switch strings.ToLower(cfg.Provider) {
	case "huggingface":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = DefaultHuggingFaceURL
		}
		p = NewChatProvider("huggingface", cfg.Model, baseURL, apiKey, cfg.Timeout, schema)
	case "openai":
		p = NewChatProvider("openai", cfg.Model, cfg.BaseURL, apiKey, cfg.Timeout, schema)
	case "gemini":
		p = NewGeminiProvider(cfg.Model, cfg.BaseURL, apiKey, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}

	if !p.IsConfigured() {
		log.Warn().Str("provider", p.Name()).Str("key_env", cfg.APIKeyEnv).Msg("LLM API key not set")
	} else {
		log.Info().Str("provider", p.Name()).Str("model", cfg.Model).Msg("Using LLM provider")
	}
	return p, nil
}
