package scraper

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultFirecrawlBaseURL is the public Firecrawl endpoint
const DefaultFirecrawlBaseURL = "https://api.firecrawl.io"

// maxErrorBodyBytes caps how much of an upstream error body is quoted in errors
const maxErrorBodyBytes = 512

// ErrEmptyContent is returned when a tier succeeds but yields no text
var ErrEmptyContent = errors.New("scraper returned empty content")

// FirecrawlConfig configures the primary scrape tier
type FirecrawlConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// FirecrawlClient calls the Firecrawl scrape endpoint
type FirecrawlClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewFirecrawlClient creates a client; an empty BaseURL uses DefaultFirecrawlBaseURL
func NewFirecrawlClient(cfg FirecrawlConfig) *FirecrawlClient {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultFirecrawlBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &FirecrawlClient{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
			},
		},
	}
}

// Name returns the tier name used in logs and metrics
func (c *FirecrawlClient) Name() string {
	return "firecrawl"
}

// Configured reports whether an API key is set
func (c *FirecrawlClient) Configured() bool {
	return c.apiKey != ""
}

type firecrawlResponse struct {
	Content string `json:"content"`
	Data    *struct {
		Content  string `json:"content"`
		Markdown string `json:"markdown"`
	} `json:"data"`
}

func (r *firecrawlResponse) text() string {
	if r.Content != "" {
		return r.Content
	}
	if r.Data != nil {
		if r.Data.Content != "" {
			return r.Data.Content
		}
		return r.Data.Markdown
	}
	return ""
}

// Fetch scrapes targetURL and returns the cleaned page text
func (c *FirecrawlClient) Fetch(ctx context.Context, targetURL string) (string, error) {
	body, err := json.Marshal(map[string]string{"url": targetURL})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/scrape", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call Firecrawl: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return "", fmt.Errorf("Firecrawl API error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var payload firecrawlResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode Firecrawl response: %w", err)
	}

	text := strings.TrimSpace(payload.text())
	if text == "" {
		return "", ErrEmptyContent
	}
	return text, nil
}
