package backend

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

	"medichat-client/pkg/config"
)

// FailureClass classifies a failed query outcome
type FailureClass string

const (
	// FailureNotFound means the backend reported no matching medicine
	FailureNotFound FailureClass = "not_found"
	// FailureUnreachable means the request never produced a backend answer
	FailureUnreachable FailureClass = "unreachable"
	// FailureUnknown is any unclassified failure
	FailureUnknown FailureClass = "unknown"
)

// Fallback texts used when the backend gives no usable explanation
const (
	fallbackNotFound    = "I couldn't find that medicine. Please check the spelling and try again."
	fallbackUnreachable = "The medicine service is unreachable right now. Please try again in a moment."
	fallbackUnknown     = "Something went wrong while looking that up. Please try again."
)

// QueryError is a classified query failure with the best available
// human-readable explanation. Fallback order for Message: backend message
// field, backend suggestion field, a generic text per class.
type QueryError struct {
	Class   FailureClass
	Message string
	Err     error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("backend query failed (%s): %s", e.Class, e.Message)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// Client is the HTTP client for the medicine inference/OCR backend.
// Every call issues exactly one outbound request; a failure is terminal
// for that call and retried only by explicit resubmission.
type Client struct {
	client  *http.Client
	baseURL string
}

// New creates a client configured from the application config
func New() *Client {
	cfg := config.Get()
	return NewWith(cfg.Backend.BaseURL, cfg.Backend.Timeout)
}

// NewWith creates a client against an explicit base URL
func NewWith(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Query asks the backend about a medicine by text.
// POST /api/query {"query": ...} -> medicine JSON.
func (c *Client) Query(ctx context.Context, query string) (map[string]any, error) {
	body, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, &QueryError{Class: FailureUnknown, Message: fallbackUnknown, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/query", bytes.NewReader(body))
	if err != nil {
		return nil, &QueryError{Class: FailureUnknown, Message: fallbackUnknown, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	return c.doQuery(req)
}

// QueryImage sends an image blob for OCR-based identification.
// POST /api/image multipart form, field "image" -> medicine JSON.
func (c *Client) QueryImage(ctx context.Context, blob []byte, filename string) (map[string]any, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return nil, &QueryError{Class: FailureUnknown, Message: fallbackUnknown, Err: err}
	}
	if _, err := part.Write(blob); err != nil {
		return nil, &QueryError{Class: FailureUnknown, Message: fallbackUnknown, Err: err}
	}
	if err := mw.Close(); err != nil {
		return nil, &QueryError{Class: FailureUnknown, Message: fallbackUnknown, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/image", &buf)
	if err != nil {
		return nil, &QueryError{Class: FailureUnknown, Message: fallbackUnknown, Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return c.doQuery(req)
}

// ListMedicines returns all known medicine names for suggestion lookups.
// GET /api/medicines -> {"medicines": [...]}.
func (c *Client) ListMedicines(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/medicines", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("backend returned status %d for medicine list", resp.StatusCode)
	}

	var listResp struct {
		Medicines []string `json:"medicines"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listResp); err != nil {
		return nil, err
	}
	return listResp.Medicines, nil
}

// GetMedicine fetches the raw database record for one medicine.
// GET /api/medicine/{name} -> medicine JSON, 404 when unknown.
func (c *Client) GetMedicine(ctx context.Context, name string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/medicine/"+url.PathEscape(name), nil)
	if err != nil {
		return nil, &QueryError{Class: FailureUnknown, Message: fallbackUnknown, Err: err}
	}

	return c.doQuery(req)
}

// AgentsStatus returns the backend agent system status as raw JSON.
// GET /api/agents/status.
func (c *Client) AgentsStatus(ctx context.Context) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/agents/status", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// Health probes the backend health endpoint.
// GET /api/health.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("backend health returned status %d", resp.StatusCode)
	}
	return nil
}

// doQuery executes a query request and classifies the outcome
func (c *Client) doQuery(req *http.Request) (map[string]any, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &QueryError{Class: FailureUnreachable, Message: fallbackUnreachable, Err: err}
	}
	defer resp.Body.Close()

	var payload map[string]any
	decodeErr := json.NewDecoder(resp.Body).Decode(&payload)

	if resp.StatusCode >= 400 {
		return nil, classify(resp.StatusCode, payload)
	}
	if decodeErr != nil {
		return nil, &QueryError{Class: FailureUnknown, Message: fallbackUnknown, Err: decodeErr}
	}
	if status, _ := payload["status"].(string); status == "error" {
		return nil, classify(resp.StatusCode, payload)
	}

	return payload, nil
}

// classify maps an error response to its failure class and best message.
// 404 and explicit 400 rejections mean the backend had no answer for the
// query; everything else is unclassified.
func classify(statusCode int, payload map[string]any) *QueryError {
	class := FailureUnknown
	switch {
	case statusCode == http.StatusNotFound || statusCode == http.StatusBadRequest:
		class = FailureNotFound
	case statusCode >= 500:
		class = FailureUnknown
	}

	message := bestMessage(payload)
	if message == "" {
		switch class {
		case FailureNotFound:
			message = fallbackNotFound
		case FailureUnreachable:
			message = fallbackUnreachable
		default:
			message = fallbackUnknown
		}
	}

	return &QueryError{Class: class, Message: message}
}

// bestMessage picks the backend-provided explanation: message, then suggestion
func bestMessage(payload map[string]any) string {
	if payload == nil {
		return ""
	}
	if msg, ok := payload["message"].(string); ok && msg != "" {
		return msg
	}
	if msg, ok := payload["error"].(string); ok && msg != "" {
		return msg
	}
	if msg, ok := payload["suggestion"].(string); ok && msg != "" {
		return msg
	}
	return ""
}
