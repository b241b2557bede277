// Package metadata translates a file id into storage coordinates by querying
// the backend metadata service.
package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// blockQuery requests the minimal record shape the gateway needs.
const blockQuery = `query Block($id: String!) { block(id: $id) { _id type properties } }`

// ForwardedHeaders are caller-supplied values passed through to the backend
// unmodified. They are opaque to the gateway: never inspected or validated.
type ForwardedHeaders struct {
	Cookie    string
	UserAgent string
	Referer   string
}

// FromRequest copies the pass-through headers from an incoming request.
func FromRequest(r *http.Request) ForwardedHeaders {
	return ForwardedHeaders{
		Cookie:    r.Header.Get("Cookie"),
		UserAgent: r.Header.Get("User-Agent"),
		Referer:   r.Header.Get("Referer"),
	}
}

// Block is the metadata record for a stored file.
type Block struct {
	ID         string
	Type       string
	Properties map[string]interface{}
}

// DisplayName returns the filename recorded for the block, or "" if none.
func (b *Block) DisplayName() string {
	name, _ := b.Properties["name"].(string)
	return name
}

// StorageLocation returns the object-store coordinates recorded for the
// block. ok is false when either coordinate is missing.
func (b *Block) StorageLocation() (bucket, key string, ok bool) {
	bucket, _ = b.Properties["Bucket"].(string)
	key, _ = b.Properties["Key"].(string)
	return bucket, key, bucket != "" && key != ""
}

// ServiceError is a hard failure reported by the backend through its errors
// array. It is distinct from a missing record, which Lookup reports as a
// nil Block.
type ServiceError struct {
	Messages []string
}

func (e *ServiceError) Error() string {
	return "metadata service: " + strings.Join(e.Messages, "; ")
}

// Client performs lookups against the backend metadata service.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// NewClient creates a metadata client for the given backend base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: timeout},
	}
}

type lookupResponse struct {
	Data struct {
		Block *struct {
			ID         string                 `json:"_id"`
			Type       string                 `json:"type"`
			Properties map[string]interface{} `json:"properties"`
		} `json:"block"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Lookup performs exactly one request for the given id. A backend errors
// array is returned as a *ServiceError; a genuinely absent record is a soft
// (nil, nil). No retries: single attempt, fail fast.
func (c *Client) Lookup(ctx context.Context, id string, fwd ForwardedHeaders) (*Block, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"query":     blockQuery,
		"variables": map[string]string{"id": id},
	})
	if err != nil {
		return nil, fmt.Errorf("encoding lookup request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building lookup request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if fwd.Cookie != "" {
		req.Header.Set("Cookie", fwd.Cookie)
	}
	if fwd.UserAgent != "" {
		req.Header.Set("User-Agent", fwd.UserAgent)
	}
	if fwd.Referer != "" {
		req.Header.Set("Referer", fwd.Referer)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling metadata backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("metadata backend returned status %d", resp.StatusCode)
	}

	var decoded lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding lookup response: %w", err)
	}

	if len(decoded.Errors) > 0 {
		msgs := make([]string, 0, len(decoded.Errors))
		for _, e := range decoded.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, &ServiceError{Messages: msgs}
	}

	if decoded.Data.Block == nil {
		return nil, nil
	}

	return &Block{
		ID:         decoded.Data.Block.ID,
		Type:       decoded.Data.Block.Type,
		Properties: decoded.Data.Block.Properties,
	}, nil
}
