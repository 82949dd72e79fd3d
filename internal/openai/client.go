package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"aiwriter/internal/domain"
)

// Message is one role-tagged chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage counts tokens billed for one or more calls.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// Add accumulates another call's usage.
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
}

// ChatRequest describes one chat completion round-trip.
type ChatRequest struct {
	Messages []Message
	// JSONMode requests the provider's structured-output mode. Ignored for
	// families that do not support it.
	JSONMode bool
}

// ChatResult is the text and accounting of one completion.
type ChatResult struct {
	Content string
	Usage   Usage
}

// Caller executes chat completions. The pipeline depends on this seam, not
// on the concrete HTTP client.
type Caller interface {
	ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResult, error)
	SupportsJSONMode() bool
}

// ImageGenerator produces image URLs from a prompt.
type ImageGenerator interface {
	GenerateImages(ctx context.Context, prompt, size, quality string, n int) ([]string, error)
}

const defaultTimeout = 120 * time.Second

// Options configures a Client. One Client is constructed per worker and
// passed in explicitly; there is no process-wide singleton.
type Options struct {
	APIKey       string
	Model        string
	ImageModel   string
	BaseURL      string
	Organization string
	Temperature  float64
	MaxTokens    int
	HTTPClient   *http.Client
	Logger       *zerolog.Logger
}

// Client calls the OpenAI-compatible chat and image APIs over plain HTTP.
type Client struct {
	apiKey       string
	model        string
	imageModel   string
	baseURL      string
	organization string
	temperature  float64
	maxTokens    int
	caps         Capabilities
	httpClient   *http.Client
	logger       zerolog.Logger
}

// NewClient validates options and builds a client. The model's capability
// profile is resolved once here.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("openai api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "gpt-4o"
	}
	imageModel := strings.TrimSpace(opts.ImageModel)
	if imageModel == "" {
		imageModel = "gpt-image-1"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1800
	}
	return &Client{
		apiKey:       strings.TrimSpace(opts.APIKey),
		model:        model,
		imageModel:   imageModel,
		baseURL:      baseURL,
		organization: strings.TrimSpace(opts.Organization),
		temperature:  opts.Temperature,
		maxTokens:    maxTokens,
		caps:         CapabilitiesFor(model),
		httpClient:   httpClient,
		logger:       logger,
	}, nil
}

// Model returns the configured text model name.
func (c *Client) Model() string { return c.model }

// SupportsJSONMode reports whether the configured model family declares a
// structured-output mode.
func (c *Client) SupportsJSONMode() bool { return c.caps.StructuredOutput }

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
}

// ChatCompletion sends one completion request, applying the model family's
// parameter rules from the capability table.
func (c *Client) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	payload := map[string]any{
		"model":                   c.model,
		"messages":                req.Messages,
		string(c.caps.TokenParam): c.maxTokens,
	}
	switch c.caps.Temperature {
	case TemperatureDefaultOnly:
		if c.temperature == 1.0 {
			payload["temperature"] = 1
		}
	default:
		payload["temperature"] = c.temperature
	}
	if req.JSONMode && c.caps.StructuredOutput {
		payload["response_format"] = map[string]string{"type": "json_object"}
	}

	var out chatResponse
	if err := c.post(ctx, "/chat/completions", payload, &out); err != nil {
		return nil, err
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices returned", domain.ErrProviderFailure)
	}
	content := strings.TrimSpace(out.Choices[0].Message.Content)
	c.logger.Debug().Str("model", c.model).Int("length", len(content)).Msg("openai: completion received")
	return &ChatResult{Content: content, Usage: out.Usage}, nil
}

type imageResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

// GenerateImages calls the image endpoint and returns the resulting URLs.
func (c *Client) GenerateImages(ctx context.Context, prompt, size, quality string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	if size == "" {
		size = "1024x1024"
	}
	payload := map[string]any{
		"model":  c.imageModel,
		"prompt": prompt,
		"size":   size,
		"n":      n,
	}
	if quality != "" {
		payload["quality"] = quality
	}

	var out imageResponse
	if err := c.post(ctx, "/images/generations", payload, &out); err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(out.Data))
	for _, item := range out.Data {
		if item.URL != "" {
			urls = append(urls, item.URL)
		}
	}
	return urls, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.organization != "" {
		httpReq.Header.Set("OpenAI-Organization", c.organization)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d from %s", domain.ErrProviderFailure, resp.StatusCode, path)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

var (
	_ Caller         = (*Client)(nil)
	_ ImageGenerator = (*Client)(nil)
)
