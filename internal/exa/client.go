// Package exa extracts page text through the Exa contents API.
package exa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/codefionn/charwizard/internal/consts"
	"github.com/codefionn/charwizard/internal/credential"
	"github.com/codefionn/charwizard/internal/htmlconv"
	"github.com/codefionn/charwizard/internal/logger"
)

// ErrMissingAPIKey is returned when no Exa key is configured.
var ErrMissingAPIKey = errors.New("exa: API key not set")

// APIError is a non-2xx answer from the contents endpoint.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("exa API error (status %d): %s", e.StatusCode, e.Message)
}

// Client calls the Exa contents endpoint.
type Client struct {
	baseURL string
	creds   credential.Provider
	http    *http.Client
	log     *logger.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithBaseURL overrides the API root.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// NewClient creates an Exa client.
func NewClient(creds credential.Provider, opts ...Option) *Client {
	c := &Client{
		baseURL: consts.ExaBaseURL,
		creds:   creds,
		http:    &http.Client{Timeout: consts.Timeout30Seconds},
		log:     logger.Global().WithPrefix("exa"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type contentsRequest struct {
	URL               string `json:"url"`
	ExtractiveAnswers bool   `json:"extractive_answers"`
	Highlighting      bool   `json:"highlighting"`
	IncludeRawText    bool   `json:"include_raw_text"`
}

type contentsResponse struct {
	RawText string `json:"raw_text"`
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// ExtractContent returns the raw text of the page at url. HTML is converted
// to markdown; an empty page yields "".
func (c *Client) ExtractContent(ctx context.Context, url string) (string, error) {
	secret, err := credential.Resolve(ctx, c.creds)
	if err != nil {
		return "", ErrMissingAPIKey
	}

	body, err := json.Marshal(contentsRequest{
		URL:               url,
		ExtractiveAnswers: true,
		Highlighting:      true,
		IncludeRawText:    true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/contents", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+secret.Reveal())

	c.log.Debug("Extracting content from %s", url)
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", decodeError(resp)
	}

	var out contentsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	text, converted := htmlconv.ConvertIfHTML(out.RawText)
	if converted {
		c.log.Debug("Converted HTML page content from %s", url)
	}
	return text, nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	var payload errorResponse
	message := ""
	if json.Unmarshal(raw, &payload) == nil {
		message = payload.Message
		if message == "" {
			message = payload.Error
		}
	}
	if message == "" {
		message = "Failed to extract content from URL"
	}
	return &APIError{StatusCode: resp.StatusCode, Message: message}
}
