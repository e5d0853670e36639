package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

// maxResponseSize bounds how much of a response body is read.
const maxResponseSize = 1 << 20

// Provider builds endpoint URLs and auth headers for one chat API flavour.
type Provider interface {
	Name() string
	BuildURL(baseURL string) string
	SetHeaders(req *http.Request)
}

// OllamaProvider talks to a local Ollama (or any OpenAI-compatible server
// without auth).
type OllamaProvider struct{}

func (OllamaProvider) Name() string { return "ollama" }

func (OllamaProvider) BuildURL(baseURL string) string {
	if baseURL == "" {
		baseURL = "http://localhost:11434/v1"
	}
	return chatURL(baseURL)
}

func (OllamaProvider) SetHeaders(*http.Request) {}

// OpenAIProvider talks to the OpenAI API (or OpenRouter) with a bearer key.
type OpenAIProvider struct {
	APIKey string
}

func (OpenAIProvider) Name() string { return "openai" }

func (OpenAIProvider) BuildURL(baseURL string) string {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return chatURL(baseURL)
}

func (p OpenAIProvider) SetHeaders(req *http.Request) {
	if p.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.APIKey)
	}
}

func chatURL(baseURL string) string {
	baseURL = strings.TrimSuffix(baseURL, "/")
	if strings.HasSuffix(baseURL, "/chat/completions") {
		return baseURL
	}
	return baseURL + "/chat/completions"
}

// ProviderByName returns the provider for name. The openai key is read from
// the environment variable apiKeyEnv (OPENAI_API_KEY when empty).
func ProviderByName(name, apiKeyEnv string) (Provider, error) {
	switch name {
	case "ollama":
		return OllamaProvider{}, nil
	case "openai":
		if apiKeyEnv == "" {
			apiKeyEnv = "OPENAI_API_KEY"
		}
		return OpenAIProvider{APIKey: os.Getenv(apiKeyEnv)}, nil
	default:
		return nil, fmt.Errorf("unknown planner provider %q (valid: ollama, openai)", name)
	}
}

// ChatPlanner implements Planner over a chat completions endpoint.
type ChatPlanner struct {
	provider    Provider
	endpoint    string
	model       string
	temperature *float64
	client      *http.Client
	logger      *slog.Logger
}

// Option configures a ChatPlanner.
type Option func(*ChatPlanner)

// WithEndpoint overrides the provider's default base URL.
func WithEndpoint(url string) Option {
	return func(p *ChatPlanner) { p.endpoint = url }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(p *ChatPlanner) { p.temperature = &t }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *ChatPlanner) { p.client = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *ChatPlanner) { p.logger = l }
}

// NewChatPlanner creates a planner for the given provider and model.
func NewChatPlanner(provider Provider, model string, opts ...Option) *ChatPlanner {
	p := &ChatPlanner{
		provider: provider,
		model:    model,
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    *float64        `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Plan asks the chat endpoint for a plan. The returned plan is parsed but
// not validated.
func (p *ChatPlanner) Plan(ctx context.Context, req Request) (*Plan, error) {
	requestID := uuid.NewString()
	start := time.Now()

	body, err := json.Marshal(chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt(req)},
		},
		Temperature:    p.temperature,
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.provider.BuildURL(p.endpoint), bytes.NewReader(body))
	if err != nil {
		return nil, NewFatalError(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	p.provider.SetHeaders(httpReq)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, NewTransientError(fmt.Errorf("%s request failed: %w", p.provider.Name(), err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, NewTransientError(fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("%s error %d: %s", p.provider.Name(), resp.StatusCode, strings.TrimSpace(string(data)))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, NewTransientError(err)
		}
		return nil, NewFatalError(err)
	}

	var cr chatResponse
	if err := json.Unmarshal(data, &cr); err != nil {
		return nil, NewFatalError(fmt.Errorf("decode response: %w", err))
	}
	if len(cr.Choices) == 0 {
		return nil, NewFatalError(fmt.Errorf("%s returned no choices", p.provider.Name()))
	}

	plan, err := ParsePlan(cr.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	plan.RequestID = requestID

	p.logger.Debug("planner responded",
		slog.String("request_id", requestID),
		slog.String("provider", p.provider.Name()),
		slog.String("model", p.model),
		slog.Int("blocks", plan.BlockCount()),
		slog.Duration("took", time.Since(start)))
	return plan, nil
}
