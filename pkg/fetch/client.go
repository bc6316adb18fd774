package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// DefaultBaseURL is the dictionary site the downloader was written against.
const DefaultBaseURL = "https://www.etymonline.com"

// maxBodySize caps response bodies to prevent OOM from a misbehaving server.
const maxBodySize = 10 * 1024 * 1024

// StatusError is returned by Get for any non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s returned status %d", e.URL, e.StatusCode)
}

// Client fetches search result pages over HTTP.
type Client struct {
	HTTPClient *http.Client
	BaseURL    string
	UserAgent  string
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		BaseURL:    baseURL,
		// Mimic a real browser; the site blocks obvious bot agents.
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}
}

// SearchURL builds the listing URL for one page of one letter's results.
// Page 1 is the bare search URL; later pages carry an explicit page parameter.
func (c *Client) SearchURL(letter string, page int) string {
	u := c.BaseURL + "/search?q=" + url.QueryEscape(letter)
	if page > 1 {
		u += "&page=" + strconv.Itoa(page)
	}
	return u
}

// Get fetches rawURL and returns the body decoded as UTF-8 text.
// Any non-2xx status yields a *StatusError.
func (c *Client) Get(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request for %s: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return "", fmt.Errorf("read response from %s: %w", rawURL, err)
	}
	if len(body) > maxBodySize {
		return "", fmt.Errorf("response from %s exceeds %d bytes", rawURL, maxBodySize)
	}
	return string(body), nil
}
