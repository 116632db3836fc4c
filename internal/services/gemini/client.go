package gemini

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
)

const (
	defaultBaseURL     = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel       = "gemini-2.5-pro"
	jsonMimeType       = "application/json"
	defaultHTTPTimeout = 60 * time.Second
)

// Client wraps the Gemini generateContent API.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// Option customizes the Gemini client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the default API base (useful for tests/mocks).
func WithBaseURL(base string) Option {
	return func(c *Client) {
		base = strings.TrimSpace(base)
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithModel overrides the default model name.
func WithModel(model string) Option {
	return func(c *Client) {
		model = strings.TrimSpace(model)
		if model != "" {
			c.model = model
		}
	}
}

// NewClient constructs a Gemini API client.
func NewClient(apiKey string, opts ...Option) *Client {
	client := &Client{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    defaultBaseURL,
		model:      defaultModel,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

// Configured reports whether the client has credentials to call the API.
func (c *Client) Configured() bool {
	return c != nil && c.apiKey != ""
}

// Analysis captures the per-segment scoring payload returned by Gemini.
type Analysis struct {
	EngagementScore float64  `json:"engagement_score"`
	EmotionScore    float64  `json:"emotion_score"`
	ViralPotential  float64  `json:"viral_potential"`
	Quotability     float64  `json:"quotability"`
	Emotions        []string `json:"emotions"`
	Keywords        []string `json:"keywords"`
	Reason          string   `json:"reason"`
}

// Metadata captures the clip metadata payload returned by Gemini.
type Metadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// AnalyzeSegment asks Gemini to score a transcript segment for short-form potential.
func (c *Client) AnalyzeSegment(ctx context.Context, text string) (Analysis, error) {
	var empty Analysis
	text = strings.TrimSpace(text)
	if text == "" {
		return empty, errors.New("gemini analyze: text required")
	}

	prompt := "Analyze this content segment for short-form video potential:\n\n" + text
	content, err := c.generate(ctx, segmentAnalysisPrompt, prompt)
	if err != nil {
		return empty, err
	}

	var parsed Analysis
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return empty, fmt.Errorf("gemini analyze: parse payload: %w", err)
	}
	parsed.EngagementScore = clampScore(parsed.EngagementScore)
	parsed.EmotionScore = clampScore(parsed.EmotionScore)
	parsed.ViralPotential = clampScore(parsed.ViralPotential)
	parsed.Quotability = clampScore(parsed.Quotability)
	if len(parsed.Emotions) > 5 {
		parsed.Emotions = parsed.Emotions[:5]
	}
	if len(parsed.Keywords) > 10 {
		parsed.Keywords = parsed.Keywords[:10]
	}
	parsed.Reason = strings.TrimSpace(parsed.Reason)
	return parsed, nil
}

// GenerateMetadata asks Gemini for clip title, description, and tags.
func (c *Client) GenerateMetadata(ctx context.Context, segmentText, originalTitle string) (Metadata, error) {
	var empty Metadata
	segmentText = strings.TrimSpace(segmentText)
	if segmentText == "" {
		return empty, errors.New("gemini metadata: segment text required")
	}

	prompt := fmt.Sprintf(
		"Original video title: %s\n\nContent segment: %s\n\nGenerate optimized short-form video metadata for this content.",
		originalTitle,
		segmentText,
	)
	content, err := c.generate(ctx, metadataPrompt, prompt)
	if err != nil {
		return empty, err
	}

	var parsed Metadata
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return empty, fmt.Errorf("gemini metadata: parse payload: %w", err)
	}
	parsed.Title = truncate(strings.TrimSpace(parsed.Title), 100)
	parsed.Description = truncate(strings.TrimSpace(parsed.Description), 500)
	if len(parsed.Tags) > 15 {
		parsed.Tags = parsed.Tags[:15]
	}
	return parsed, nil
}

func (c *Client) generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if !c.Configured() {
		return "", errors.New("gemini: api key required")
	}

	request := generateRequest{
		SystemInstruction: &contentBlock{Parts: []part{{Text: systemPrompt}}},
		Contents: []contentBlock{
			{Role: "user", Parts: []part{{Text: userPrompt}}},
		},
		GenerationConfig: generationConfig{
			ResponseMimeType: jsonMimeType,
			Temperature:      0,
		},
	}
	encoded, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("gemini: encode request: %w", err)
	}

	endpoint, err := url.JoinPath(c.baseURL, "models", c.model+":generateContent")
	if err != nil {
		return "", fmt.Errorf("gemini: build url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("gemini: request: %w", err)
	}
	req.Header.Set("Content-Type", jsonMimeType)
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("gemini: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("gemini: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded generateResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("gemini: decode response: %w", err)
	}
	if decoded.Error != nil {
		return "", fmt.Errorf("gemini: api error: %s", strings.TrimSpace(decoded.Error.Message))
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("gemini: empty candidates")
	}
	content := strings.TrimSpace(decoded.Candidates[0].Content.Parts[0].Text)
	if content == "" {
		return "", errors.New("gemini: empty content")
	}
	return content, nil
}

type generateRequest struct {
	SystemInstruction *contentBlock    `json:"system_instruction,omitempty"`
	Contents          []contentBlock   `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type contentBlock struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMimeType string  `json:"responseMimeType"`
	Temperature      float64 `json:"temperature"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func clampScore(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}

func truncate(value string, limit int) string {
	if limit <= 0 || len(value) <= limit {
		return value
	}
	return value[:limit]
}
