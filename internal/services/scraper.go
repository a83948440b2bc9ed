package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// Firecrawl web scraper
// Fetches a page as markdown. Failures never surface as Go errors: they come
// back as a ScrapeResult with Success=false and Error set.
// ---------------------------------------------------------------------------

const (
	firecrawlBaseURL     = "https://api.firecrawl.dev"
	defaultScrapeTimeout = 30 * time.Second
)

// ScrapeResult is the outcome of fetching one URL.
type ScrapeResult struct {
	Content   string    `json:"content"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Success   bool      `json:"success"`
	WordCount int       `json:"word_count"`
	Error     string    `json:"error,omitempty"`
	ScrapedAt time.Time `json:"scraped_at"`
}

type ScraperService struct {
	apiKey  string
	baseURL string
	timeout time.Duration
	client  *http.Client
	logger  *zap.Logger
}

func NewScraperService(apiKey, baseURL string, logger *zap.Logger) *ScraperService {
	if baseURL == "" {
		baseURL = firecrawlBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScraperService{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: defaultScrapeTimeout,
		// Leave headroom over the timeout Firecrawl enforces server side.
		client: &http.Client{Timeout: defaultScrapeTimeout + 15*time.Second},
		logger: logger.Named("scraper"),
	}
}

type firecrawlScrapeRequest struct {
	URL     string   `json:"url"`
	Formats []string `json:"formats"`
	Timeout int64    `json:"timeout"`
}

type firecrawlScrapeResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    struct {
		Markdown string `json:"markdown"`
		Metadata struct {
			Title string `json:"title"`
		} `json:"metadata"`
	} `json:"data"`
}

// Scrape fetches rawURL as markdown.
func (s *ScraperService) Scrape(ctx context.Context, rawURL string) ScrapeResult {
	host, ok := validURLHost(rawURL)
	if !ok {
		return failedScrape(rawURL, host, fmt.Sprintf("invalid URL format: %s", rawURL))
	}

	s.logger.Info("scraping url", zap.String("url", rawURL))

	resp, err := s.fetch(ctx, rawURL)
	if err != nil {
		s.logger.Error("scrape failed", zap.String("url", rawURL), zap.Error(err))
		return failedScrape(rawURL, host, err.Error())
	}

	title := strings.TrimSpace(resp.Data.Metadata.Title)
	if title == "" {
		title = "Web Page - " + host
	}
	content := resp.Data.Markdown

	s.logger.Info("scraped url", zap.String("url", rawURL), zap.Int("chars", len(content)))

	return ScrapeResult{
		Content:   content,
		Title:     title,
		URL:       rawURL,
		Success:   true,
		WordCount: len(strings.Fields(content)),
		ScrapedAt: time.Now().UTC(),
	}
}

func (s *ScraperService) fetch(ctx context.Context, rawURL string) (*firecrawlScrapeResponse, error) {
	body, err := json.Marshal(firecrawlScrapeRequest{
		URL:     rawURL,
		Formats: []string{"markdown"},
		Timeout: s.timeout.Milliseconds(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal scrape request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/scrape", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create scrape request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	httpResp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scrape request failed: %w", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read scrape response: %w", err)
	}

	var out firecrawlScrapeResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		if httpResp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("firecrawl returned status %d: %s", httpResp.StatusCode, truncateString(string(raw), 500))
		}
		return nil, fmt.Errorf("failed to decode scrape response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK || !out.Success {
		msg := out.Error
		if msg == "" {
			msg = http.StatusText(httpResp.StatusCode)
		}
		return nil, fmt.Errorf("firecrawl returned status %d: %s", httpResp.StatusCode, msg)
	}

	return &out, nil
}

func validURLHost(rawURL string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", false
	}
	return u.Host, u.Scheme != "" && u.Host != ""
}

func failedScrape(rawURL, host, msg string) ScrapeResult {
	return ScrapeResult{
		Title:     "Error - " + host,
		URL:       rawURL,
		Success:   false,
		Error:     msg,
		ScrapedAt: time.Now().UTC(),
	}
}
