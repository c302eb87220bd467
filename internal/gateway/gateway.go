// Package gateway is the HTTP client for the study-notes backend. It covers
// the four backend operations the session layer needs: listing uploaded
// notes, uploading a document, asking a question, and deleting a note.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/voxtutor/voxtutor/internal/resilience"
)

const defaultUploadTimeout = 5 * time.Minute

// Client talks to the study-notes backend API. It is safe for concurrent use.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	uploadClient  *http.Client
	uploadTimeout time.Duration
	breaker       *resilience.CircuitBreaker
}

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client used for all requests
// except uploads. Useful for injecting instrumented transports.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithUploadTimeout bounds a single document upload. The default is 5 minutes.
func WithUploadTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.uploadTimeout = d
		}
	}
}

// WithBreaker wraps every backend call in the given circuit breaker so a dead
// backend fails fast with [resilience.ErrCircuitOpen].
func WithBreaker(cb *resilience.CircuitBreaker) Option {
	return func(c *Client) {
		c.breaker = cb
	}
}

// New creates a Client for the backend at baseURL (e.g., "http://localhost:5000").
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("gateway: base URL %q is not an absolute URL", baseURL)
	}

	c := &Client{
		baseURL:       baseURL,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		uploadTimeout: defaultUploadTimeout,
	}
	for _, o := range opts {
		o(c)
	}

	// Uploads reuse the main client's transport but carry their own timeout.
	c.uploadClient = &http.Client{
		Transport: c.httpClient.Transport,
		Timeout:   c.uploadTimeout,
	}
	return c, nil
}

// ListFiles returns the current note inventory for userID.
func (c *Client) ListFiles(ctx context.Context, userID string) ([]FileInfo, error) {
	endpoint := c.baseURL + "/api/files?user_id=" + url.QueryEscape(userID)

	var fr filesResponse
	err := c.execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("gateway: list files: %w", err)
		}
		return c.doJSON(c.httpClient, req, &fr)
	})
	if err != nil {
		return nil, err
	}
	return fr.Files, nil
}

// Upload sends a document to the backend as multipart form data under the
// form field "file". Re-uploading a filename replaces the previous version.
func (c *Client) Upload(ctx context.Context, userID, filename string, content io.Reader) (*UploadResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("gateway: upload form: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("gateway: upload read content: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("gateway: upload form: %w", err)
	}

	endpoint := c.baseURL + "/api/upload?user_id=" + url.QueryEscape(userID)

	var result UploadResult
	err = c.execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body.Bytes()))
		if err != nil {
			return fmt.Errorf("gateway: upload: %w", err)
		}
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return c.doJSON(c.uploadClient, req, &result)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Ask submits a question and returns the assistant's answer.
func (c *Client) Ask(ctx context.Context, req AskRequest) (*AskResponse, error) {
	var resp AskResponse
	err := c.execute(func() error {
		return c.postJSON(ctx, "/api/ask", req, &resp)
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteFile removes a note and all its indexed content from the backend.
// The returned result carries the refreshed inventory.
func (c *Client) DeleteFile(ctx context.Context, userID, filename string) (*DeleteResult, error) {
	payload := map[string]string{
		"user_id":  userID,
		"filename": filename,
	}

	var result DeleteResult
	err := c.execute(func() error {
		return c.postJSON(ctx, "/api/delete_file", payload, &result)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Healthy reports whether the backend answers its health endpoint.
// Used by readiness probes.
func (c *Client) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("gateway: health: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway: health: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway: health: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// execute routes a call through the circuit breaker when one is configured.
func (c *Client) execute(fn func() error) error {
	if c.breaker == nil {
		return fn()
	}
	return c.breaker.Execute(fn)
}

// postJSON sends body as JSON to path and decodes the response into out.
func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("gateway: encode %s: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("gateway: %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doJSON(c.httpClient, req, out)
}

// doJSON performs req and decodes a JSON response into out, translating
// non-2xx statuses into errors carrying the backend's error message.
func (c *Client) doJSON(hc *http.Client, req *http.Request, out any) error {
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("gateway: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("gateway: %s %s: read body: %w", req.Method, req.URL.Path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var er errorResponse
		if json.Unmarshal(data, &er) == nil {
			if msg := er.Detail; msg != "" {
				return fmt.Errorf("gateway: %s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, msg)
			}
			if msg := er.Error; msg != "" {
				return fmt.Errorf("gateway: %s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, msg)
			}
		}
		return fmt.Errorf("gateway: %s %s: unexpected status %d", req.Method, req.URL.Path, resp.StatusCode)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("gateway: %s %s: decode response: %w", req.Method, req.URL.Path, err)
	}
	return nil
}
