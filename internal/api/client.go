package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds every exchange when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// Client talks to the assistant service over its JSON HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new service client. A non-positive timeout means DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

var _ Service = (*Client)(nil)

// errorResponse is the service's error body.
type errorResponse struct {
	Detail any `json:"detail"`
}

// SendTurn calls POST /api/chat.
func (c *Client) SendTurn(ctx context.Context, req TurnRequest) (*TurnResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	var out struct {
		Response   *string  `json:"response"`
		RAGSources []string `json:"rag_sources"`
		Timestamp  string   `json:"timestamp"`
	}
	if err := c.do(ctx, "send turn", http.MethodPost, "/api/chat", "application/json", bytes.NewReader(body), &out); err != nil {
		return nil, err
	}
	if out.Response == nil {
		return nil, fmt.Errorf("send turn: %w: missing response field", ErrMalformedResponse)
	}

	return &TurnResponse{
		Response:  *out.Response,
		Sources:   out.RAGSources,
		Timestamp: ParseTimestamp(out.Timestamp),
	}, nil
}

// CheckHealth calls GET /api/health. Any 2xx with a status field counts as alive,
// including a degraded status.
func (c *Client) CheckHealth(ctx context.Context) (*Health, error) {
	var raw map[string]json.RawMessage
	if err := c.do(ctx, "health", http.MethodGet, "/api/health", "", nil, &raw); err != nil {
		return nil, err
	}

	h := &Health{Subsystems: make(map[string]string)}
	for key, value := range raw {
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			continue
		}
		switch key {
		case "status":
			h.Status = s
		case "timestamp":
			h.Timestamp = ParseTimestamp(s)
		default:
			h.Subsystems[key] = s
		}
	}
	if h.Status == "" {
		return nil, fmt.Errorf("health: %w: missing status field", ErrMalformedResponse)
	}
	return h, nil
}

// GetStats calls GET /api/stats.
func (c *Client) GetStats(ctx context.Context) (*Stats, error) {
	var out struct {
		MessageCount     *int   `json:"message_count"`
		IndexedDocuments *int   `json:"indexed_documents"`
		Timestamp        string `json:"timestamp"`
	}
	if err := c.do(ctx, "stats", http.MethodGet, "/api/stats", "", nil, &out); err != nil {
		return nil, err
	}
	if out.MessageCount == nil || out.IndexedDocuments == nil {
		return nil, fmt.Errorf("stats: %w: missing counters", ErrMalformedResponse)
	}
	return &Stats{
		MessageCount:     *out.MessageCount,
		IndexedDocuments: *out.IndexedDocuments,
		Timestamp:        ParseTimestamp(out.Timestamp),
	}, nil
}

// UploadDocument calls POST /api/upload with doc as the multipart "file" field.
func (c *Client) UploadDocument(ctx context.Context, doc Document) (*UploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", doc.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if doc.Content != nil {
		if _, err := io.Copy(part, doc.Content); err != nil {
			return nil, fmt.Errorf("failed to read document %s: %w", doc.Name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	var out UploadResult
	if err := c.do(ctx, "upload", http.MethodPost, "/api/upload", mw.FormDataContentType(), &buf, &out); err != nil {
		return nil, err
	}
	if out.Filename == "" || out.Status == "" {
		return nil, fmt.Errorf("upload: %w: missing filename or status", ErrMalformedResponse)
	}
	return &out, nil
}

// do performs one exchange and decodes a 2xx JSON body into out.
func (c *Client) do(ctx context.Context, op, method, path, contentType string, body io.Reader, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		se := &StatusError{Op: op, Code: resp.StatusCode}
		var errResp errorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Detail != nil {
			se.Detail = fmt.Sprint(errResp.Detail)
		} else {
			se.Detail = strings.TrimSpace(string(respBody))
		}
		return se
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrMalformedResponse, err)
	}
	return nil
}
