package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"smarttodo/internal/task"
)

const (
	// DefaultModel is the Gemini model used when none is configured.
	DefaultModel = "gemini-3-flash-preview"

	// DefaultBaseURL is the Gemini API endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com"

	// APITimeout is the per-call timeout for model requests.
	APITimeout = 30 * time.Second
)

// Gemini implements Client against the Gemini generateContent API.
type Gemini struct {
	baseURL string
	apiKey  string
	model   string
	timeout time.Duration
	http    *http.Client
}

// GeminiOption configures the Gemini client.
type GeminiOption func(*Gemini)

// WithBaseURL overrides the API endpoint (for testing).
func WithBaseURL(u string) GeminiOption {
	return func(g *Gemini) {
		g.baseURL = strings.TrimRight(u, "/")
	}
}

// WithModel overrides the model name.
func WithModel(model string) GeminiOption {
	return func(g *Gemini) {
		if model != "" {
			g.model = model
		}
	}
}

// WithHTTPClient overrides the HTTP client (for testing).
func WithHTTPClient(hc *http.Client) GeminiOption {
	return func(g *Gemini) {
		g.http = hc
	}
}

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) GeminiOption {
	return func(g *Gemini) {
		if d > 0 {
			g.timeout = d
			g.http.Timeout = d
		}
	}
}

// NewGemini creates a Gemini client with the given API key.
func NewGemini(apiKey string, opts ...GeminiOption) (*Gemini, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini api key is empty")
	}
	g := &Gemini{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		model:   DefaultModel,
		timeout: APITimeout,
		http:    &http.Client{Timeout: APITimeout},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// generateContent request/response wire types (only the parts used).
type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMimeType string         `json:"responseMimeType,omitempty"`
	ResponseSchema   map[string]any `json:"responseSchema,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Breakdown asks the model to decompose a task title into sub-steps.
func (g *Gemini) Breakdown(ctx context.Context, title string) ([]task.Step, error) {
	prompt := fmt.Sprintf("Please break down the task %q into 3-5 actionable sub-steps.", title)
	req := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: &generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   responseSchema(),
		},
	}

	text, err := g.generate(ctx, req)
	if err != nil {
		return nil, err
	}

	raw := []byte(text)
	if err := validateBreakdownJSON(raw); err != nil {
		return nil, err
	}

	var parsed struct {
		Steps []task.Step `json:"steps"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse breakdown response: %w", err)
	}
	return parsed.Steps, nil
}

// SuggestPriority asks the model for a priority level and validates the
// answer against the enum.
func (g *Gemini) SuggestPriority(ctx context.Context, title string) (task.Priority, error) {
	prompt := fmt.Sprintf("Analyze the task: %q. Which priority level is most appropriate? (low, medium, high). Return ONLY the word.", title)
	req := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	}

	text, err := g.generate(ctx, req)
	if err != nil {
		return "", err
	}

	p, ok := task.ParsePriority(text)
	if !ok {
		return "", fmt.Errorf("model returned invalid priority %q", strings.TrimSpace(text))
	}
	return p, nil
}

// generate performs one generateContent call and returns the first
// candidate's text.
func (g *Gemini) generate(ctx context.Context, payload generateRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("call model: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("model error (status %d): %s", parsed.Error.Code, parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("model returned status %d", resp.StatusCode)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("model returned no candidates")
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}
