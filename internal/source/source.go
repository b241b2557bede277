// Package source resolves a file reference (opaque id or external URL) into
// a readable byte source.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/leca/file-gateway/internal/metadata"
	"github.com/leca/file-gateway/internal/storage"
)

// Error taxonomy for resolution failures. The HTTP layer maps these to
// status codes; everything else is an unexpected processing error.
var (
	ErrInvalidReference = errors.New("invalid file reference")
	ErrNotFound         = errors.New("no metadata record for reference")
	ErrInvalidMetadata  = errors.New("metadata record missing storage coordinates")
	ErrFetchFailed      = errors.New("fetching external resource failed")
)

// absoluteURL accepts scheme-qualified http(s) URLs and protocol-relative
// URLs. Anything else is rejected before any network call.
var absoluteURL = regexp.MustCompile(`^(?i)(https?:)?//`)

// ValidURL reports whether raw matches the absolute-URL shape.
func ValidURL(raw string) bool {
	return absoluteURL.MatchString(raw)
}

// Source is a resolved byte source. It is owned by a single request: the
// caller must close Body.
type Source struct {
	DisplayName string
	Body        io.ReadCloser
}

// Resolver turns file references into byte sources. All fields are set at
// startup and read-only afterwards.
type Resolver struct {
	Meta  *metadata.Client
	Store storage.ObjectStore

	// HTTP performs external URL fetches; its Timeout bounds slow origins.
	HTTP *http.Client

	// MaxFetchBytes caps the buffered size of an external resource.
	MaxFetchBytes int64
}

// ResolveID resolves an opaque id through the metadata backend and opens a
// stream from the object store. The caller's pass-through headers travel
// with the metadata call unmodified.
func (r *Resolver) ResolveID(ctx context.Context, id string, fwd metadata.ForwardedHeaders) (*Source, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: missing id", ErrInvalidReference)
	}

	block, err := r.Meta.Lookup(ctx, id, fwd)
	if err != nil {
		return nil, err
	}
	if block == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	bucket, key, ok := block.StorageLocation()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidMetadata, id)
	}

	rc, err := r.Store.Open(ctx, bucket, key)
	if err != nil {
		return nil, fmt.Errorf("opening object %s/%s: %w", bucket, key, err)
	}

	name := block.DisplayName()
	if name == "" {
		name = path.Base(key)
	}
	return &Source{DisplayName: name, Body: rc}, nil
}

// ResolveURL fetches an external resource and buffers it fully. Single
// attempt, no retries; the body is capped at MaxFetchBytes. The buffered
// result is exposed through the same Source shape as the streaming path.
func (r *Resolver) ResolveURL(ctx context.Context, raw string) (*Source, error) {
	if !ValidURL(raw) {
		return nil, fmt.Errorf("%w: %q is not an absolute url", ErrInvalidReference, raw)
	}

	fetchURL := raw
	if strings.HasPrefix(raw, "//") {
		fetchURL = "https:" + raw
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	resp, err := r.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: origin returned status %d", ErrFetchFailed, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, r.MaxFetchBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrFetchFailed, err)
	}
	if int64(len(data)) > r.MaxFetchBytes {
		return nil, fmt.Errorf("%w: resource exceeds %d bytes", ErrFetchFailed, r.MaxFetchBytes)
	}

	return &Source{
		DisplayName: urlFilename(fetchURL),
		Body:        io.NopCloser(bytes.NewReader(data)),
	}, nil
}

// urlFilename derives a display name from the last path segment of the URL.
func urlFilename(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" || u.Path == "/" {
		return "download"
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		return "download"
	}
	return name
}
