package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// HTTPClient implements ContentStore against a pinning service.
type HTTPClient struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// Option configures HTTPClient.
type Option func(*HTTPClient)

// WithAPIKey sets the pinning service bearer token.
func WithAPIKey(key string) Option {
	return func(c *HTTPClient) {
		c.apiKey = key
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a new pinning service client.
func NewHTTPClient(endpoint string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ ContentStore = (*HTTPClient)(nil)

// pinResult is the pinning service response.
type pinResult struct {
	CID string `json:"cid"`
}

// Pin uploads a blob as multipart form data and returns its validated CIDv0.
func (c *HTTPClient) Pin(ctx context.Context, name string, blob []byte) (string, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	part, err := form.CreateFormFile("file", name)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(blob); err != nil {
		return "", fmt.Errorf("write form file: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &buf)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var result pinResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if err := ValidateCID(result.CID); err != nil {
		return "", fmt.Errorf("pinning service returned invalid cid %q: %w", result.CID, err)
	}

	return result.CID, nil
}
