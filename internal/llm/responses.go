package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	errors "github.com/Laisky/errors/v2"

	"github.com/FranksOps/newsburr/pkg/httpclient"
)

const (
	// DefaultBaseURL is the public OpenAI API.
	DefaultBaseURL = "https://api.openai.com"

	responsesPath = "/v1/responses"

	// maxErrorBody bounds how much of a failed response body is read.
	maxErrorBody = 4 << 10
)

// ErrEmptyOutput is returned when the model answered without any text.
var ErrEmptyOutput = errors.New("responses output text is empty")

// Config configures a Responses API client.
type Config struct {
	BaseURL   string
	APIKey    string
	Timeout   time.Duration
	UserAgent string
	// Transport overrides the HTTP transport, mostly for tests.
	Transport http.RoundTripper
}

// Client calls the OpenAI-compatible Responses API.
type Client struct {
	baseURL string
	apiKey  string
	http    *httpclient.Client
}

// New creates a Responses API client with safe defaults.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("missing api key")
	}

	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	hc, err := httpclient.New(httpclient.Config{
		Timeout:   cfg.Timeout,
		UserAgent: cfg.UserAgent,
		Transport: cfg.Transport,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create http client")
	}

	return &Client{
		baseURL: trimBaseURL(base),
		apiKey:  cfg.APIKey,
		http:    hc,
	}, nil
}

// trimBaseURL accepts both "https://host" and the SDK form "https://host/v1".
func trimBaseURL(base string) string {
	base = strings.TrimRight(base, "/")
	return strings.TrimSuffix(base, "/v1")
}

// Request describes one Responses API generation request.
type Request struct {
	Model           string       `json:"model"`
	Input           string       `json:"input"`
	Instructions    string       `json:"instructions,omitempty"`
	Tools           []Tool       `json:"tools,omitempty"`
	Reasoning       *Reasoning   `json:"reasoning,omitempty"`
	Text            *TextOptions `json:"text,omitempty"`
	MaxOutputTokens int          `json:"max_output_tokens,omitempty"`
}

// Tool is a hosted tool the model may call, e.g. web_search_preview.
type Tool struct {
	Type              string        `json:"type"`
	UserLocation      *UserLocation `json:"user_location,omitempty"`
	SearchContextSize string        `json:"search_context_size,omitempty"`
}

// UserLocation biases web search results towards a place.
type UserLocation struct {
	Type    string `json:"type"`
	Country string `json:"country,omitempty"`
	City    string `json:"city,omitempty"`
	Region  string `json:"region,omitempty"`
}

type Reasoning struct {
	Effort string `json:"effort"`
}

type TextOptions struct {
	Verbosity string `json:"verbosity"`
}

// Usage is the token accounting of one response.
type Usage struct {
	InputTokens        int `json:"input_tokens"`
	InputTokensDetails struct {
		CachedTokens int `json:"cached_tokens"`
	} `json:"input_tokens_details"`
	OutputTokens        int `json:"output_tokens"`
	OutputTokensDetails struct {
		ReasoningTokens int `json:"reasoning_tokens"`
	} `json:"output_tokens_details"`
	TotalTokens int `json:"total_tokens"`
}

// Response is the subset of a Responses API reply this package understands.
type Response struct {
	ID     string       `json:"id"`
	Model  string       `json:"model"`
	Status string       `json:"status"`
	Output []OutputItem `json:"output"`
	Usage  *Usage       `json:"usage"`

	// OutputText is only set by some compatible gateways; see Text.
	OutputText string `json:"output_text"`
}

type OutputItem struct {
	Type    string          `json:"type"`
	Content []OutputContent `json:"content"`
}

type OutputContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Text returns output_text when present, otherwise the message text parts
// joined by newlines.
func (r *Response) Text() string {
	if text := strings.TrimSpace(r.OutputText); text != "" {
		return text
	}

	parts := make([]string, 0, len(r.Output))
	for _, item := range r.Output {
		for _, content := range item.Content {
			if strings.EqualFold(content.Type, "output_text") || strings.EqualFold(content.Type, "text") {
				if text := strings.TrimSpace(content.Text); text != "" {
					parts = append(parts, text)
				}
			}
		}
	}
	return strings.Join(parts, "\n")
}

// APIError is a non-2xx reply from the endpoint.
type APIError struct {
	StatusCode int
	Type       string
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return "responses endpoint status " + http.StatusText(e.StatusCode)
	}
	return "responses endpoint: " + e.Message
}

type apiErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// Create sends req and returns the decoded response. A response without any
// text yields ErrEmptyOutput.
func (c *Client) Create(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.Model) == "" {
		return nil, errors.New("missing model")
	}
	if strings.TrimSpace(req.Input) == "" {
		return nil, errors.New("missing input")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "marshal responses request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+responsesPath, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build responses request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(ctx, httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "call responses endpoint")
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, decodeAPIError(resp)
	}

	var decoded Response
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, errors.Wrap(err, "decode responses response")
	}

	if decoded.Text() == "" {
		return &decoded, ErrEmptyOutput
	}
	return &decoded, nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body apiErrorBody
	if err := json.Unmarshal(raw, &body); err == nil && body.Error.Message != "" {
		apiErr.Message = body.Error.Message
		apiErr.Type = body.Error.Type
		if body.Error.Code != nil {
			apiErr.Code = strings.Trim(strings.TrimSpace(toString(body.Error.Code)), `"`)
		}
	} else if text := strings.TrimSpace(string(raw)); text != "" {
		apiErr.Message = text
	}

	return errors.Wrapf(apiErr, "responses endpoint status %d", resp.StatusCode)
}

func toString(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
