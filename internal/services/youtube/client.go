package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultUploadURL   = "https://www.googleapis.com/upload/youtube/v3/videos"
	defaultHTTPTimeout = 10 * time.Minute
)

// UploadRequest describes one clip upload.
type UploadRequest struct {
	FilePath      string
	Title         string
	Description   string
	Tags          []string
	CategoryID    string
	PrivacyStatus string
}

// Client defines clip publishing behaviour.
type Client interface {
	Upload(ctx context.Context, req UploadRequest) (string, error)
}

// Option customizes the API client.
type Option func(*API)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(a *API) {
		if client != nil {
			a.httpClient = client
		}
	}
}

// WithUploadURL overrides the upload endpoint (useful for tests/mocks).
func WithUploadURL(uploadURL string) Option {
	return func(a *API) {
		uploadURL = strings.TrimSpace(uploadURL)
		if uploadURL != "" {
			a.uploadURL = uploadURL
		}
	}
}

// API publishes clips through the YouTube Data API resumable upload flow.
type API struct {
	token      string
	uploadURL  string
	httpClient *http.Client
}

// NewAPI constructs a YouTube upload client.
func NewAPI(token string, opts ...Option) *API {
	api := &API{
		token:      strings.TrimSpace(token),
		uploadURL:  defaultUploadURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(api)
	}
	if api.uploadURL == "" {
		api.uploadURL = defaultUploadURL
	}
	if api.httpClient == nil {
		api.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return api
}

// Configured reports whether the client has credentials to publish.
func (a *API) Configured() bool {
	return a != nil && a.token != ""
}

type videoResource struct {
	Snippet struct {
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Tags        []string `json:"tags,omitempty"`
		CategoryID  string   `json:"categoryId"`
	} `json:"snippet"`
	Status struct {
		PrivacyStatus string `json:"privacyStatus"`
	} `json:"status"`
}

// Upload runs the two-step resumable upload: register the video resource to
// obtain a session URL, then send the clip bytes. Returns the watch URL.
func (a *API) Upload(ctx context.Context, req UploadRequest) (string, error) {
	if !a.Configured() {
		return "", errors.New("youtube upload: token required")
	}
	if strings.TrimSpace(req.FilePath) == "" {
		return "", errors.New("youtube upload: file path required")
	}

	info, err := os.Stat(req.FilePath)
	if err != nil {
		return "", fmt.Errorf("youtube upload: stat clip: %w", err)
	}

	sessionURL, err := a.startSession(ctx, req, info.Size())
	if err != nil {
		return "", err
	}
	return a.sendFile(ctx, sessionURL, req.FilePath, info.Size())
}

func (a *API) startSession(ctx context.Context, req UploadRequest, size int64) (string, error) {
	resource := buildResource(req)
	encoded, err := json.Marshal(resource)
	if err != nil {
		return "", fmt.Errorf("youtube upload: encode resource: %w", err)
	}

	endpoint := a.uploadURL + "?uploadType=resumable&part=snippet,status"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("youtube upload: session request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+a.token)
	httpReq.Header.Set("Content-Type", "application/json; charset=UTF-8")
	httpReq.Header.Set("X-Upload-Content-Length", strconv.FormatInt(size, 10))
	httpReq.Header.Set("X-Upload-Content-Type", "video/mp4")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("youtube upload: session failed: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("youtube upload: session http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	sessionURL := strings.TrimSpace(resp.Header.Get("Location"))
	if sessionURL == "" {
		return "", errors.New("youtube upload: session missing location header")
	}
	return sessionURL, nil
}

func (a *API) sendFile(ctx context.Context, sessionURL, filePath string, size int64) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("youtube upload: open clip: %w", err)
	}
	defer file.Close()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, sessionURL, file)
	if err != nil {
		return "", fmt.Errorf("youtube upload: put request: %w", err)
	}
	httpReq.ContentLength = size
	httpReq.Header.Set("Authorization", "Bearer "+a.token)
	httpReq.Header.Set("Content-Type", "video/mp4")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("youtube upload: put failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("youtube upload: read response: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("youtube upload: put http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var uploaded struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &uploaded); err != nil {
		return "", fmt.Errorf("youtube upload: decode response: %w", err)
	}
	if uploaded.ID == "" {
		return "", errors.New("youtube upload: response missing video id")
	}
	return "https://www.youtube.com/watch?v=" + uploaded.ID, nil
}

func buildResource(req UploadRequest) videoResource {
	var resource videoResource
	resource.Snippet.Title = strings.TrimSpace(req.Title)
	if resource.Snippet.Title == "" {
		resource.Snippet.Title = "Untitled clip"
	}
	resource.Snippet.Description = req.Description
	resource.Snippet.Tags = req.Tags
	resource.Snippet.CategoryID = req.CategoryID
	if resource.Snippet.CategoryID == "" {
		resource.Snippet.CategoryID = "22"
	}
	resource.Status.PrivacyStatus = req.PrivacyStatus
	if resource.Status.PrivacyStatus == "" {
		resource.Status.PrivacyStatus = "public"
	}
	return resource
}

var _ Client = (*API)(nil)
