package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/liliang-cn/orion/internal/domain"
	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is the local analysis backend
	DefaultBaseURL = "http://localhost:3000"
	// DefaultTimeout bounds every round trip
	DefaultTimeout = 60 * time.Second
)

// Client talks to the analysis backend. Each call is a single round trip;
// nothing is retried here.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithLogger sets the logger used for request tracing
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a backend client
func New(baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend endpoint in use
func (c *Client) BaseURL() string {
	return c.baseURL
}

type suggestionsRequest struct {
	FileID  string                         `json:"fileId"`
	Columns []domain.ColumnInfo            `json:"columns"`
	Summary map[string]domain.SummaryStats `json:"summary"`
}

type suggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}

type analyzeRequest struct {
	FileID string `json:"fileId"`
	Prompt string `json:"prompt"`
}

type contextualSuggestionsRequest struct {
	FileID      string            `json:"fileId"`
	RecentChats []domain.ChatTurn `json:"recentChats"`
}

// UploadFile sends a tabular file and returns the inferred schema
func (c *Client) UploadFile(ctx context.Context, fileName string, r io.Reader) (*domain.DatasetSchema, error) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("file", filepath.Base(fileName))
	if err != nil {
		return nil, unexpected(err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, unexpected(fmt.Errorf("failed to read %s: %w", fileName, err))
	}
	if err := mw.Close(); err != nil {
		return nil, unexpected(err)
	}

	var schema domain.DatasetSchema
	if err := c.do(ctx, "/upload", mw.FormDataContentType(), body, &schema); err != nil {
		return nil, err
	}
	schema.Normalize()
	return &schema, nil
}

// UploadPath uploads a file from disk
func (c *Client) UploadPath(ctx context.Context, path string) (*domain.DatasetSchema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, unexpected(fmt.Errorf("failed to open %s: %w", path, err))
	}
	defer f.Close()
	return c.UploadFile(ctx, filepath.Base(path), f)
}

// GetSuggestions asks for analysis prompts tailored to a schema
func (c *Client) GetSuggestions(ctx context.Context, fileID string, columns []domain.ColumnInfo, summary map[string]domain.SummaryStats) ([]string, error) {
	var resp suggestionsResponse
	req := suggestionsRequest{FileID: fileID, Columns: columns, Summary: summary}
	if err := c.postJSON(ctx, "/suggestions", req, &resp); err != nil {
		return nil, err
	}
	return nonNil(resp.Suggestions), nil
}

// Analyze submits a natural-language question about a file
func (c *Client) Analyze(ctx context.Context, fileID, prompt string) (*domain.AnalyzeResponse, error) {
	var resp domain.AnalyzeResponse
	if err := c.postJSON(ctx, "/analyze", analyzeRequest{FileID: fileID, Prompt: prompt}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetContextualSuggestions asks for follow-up questions given recent turns
func (c *Client) GetContextualSuggestions(ctx context.Context, fileID string, recent []domain.ChatTurn) ([]string, error) {
	if recent == nil {
		recent = []domain.ChatTurn{}
	}
	var resp suggestionsResponse
	req := contextualSuggestionsRequest{FileID: fileID, RecentChats: recent}
	if err := c.postJSON(ctx, "/contextual-suggestions", req, &resp); err != nil {
		return nil, err
	}
	return nonNil(resp.Suggestions), nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return unexpected(err)
	}
	return c.do(ctx, path, "application/json", bytes.NewReader(raw), out)
}

func (c *Client) do(ctx context.Context, path, contentType string, body io.Reader, out any) error {
	start := time.Now()
	url := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return unexpected(err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		e := fromTransport(err)
		c.logger.Warn("Backend request failed",
			zap.String("path", path),
			zap.String("kind", string(e.Kind)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return e
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fromTransport(err)
	}

	c.logger.Debug("Backend request",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		e := fromResponse(resp.StatusCode, resp.Header, raw)
		c.logger.Warn("Backend returned error",
			zap.String("path", path),
			zap.Int("status", e.Status),
			zap.String("request_id", e.RequestID),
			zap.String("type", e.Type),
			zap.String("message", e.Message),
		)
		return e
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return unexpected(fmt.Errorf("decode %s response: %w", path, err))
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
