package metadata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newBackend returns an httptest server that replies with the given raw
// response body, plus a getter for the headers of the last request it saw.
func newBackend(t *testing.T, status int, body string) (*httptest.Server, func() http.Header) {
	t.Helper()
	var mu sync.Mutex
	var captured http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		captured = r.Header.Clone()
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, func() http.Header {
		mu.Lock()
		defer mu.Unlock()
		return captured
	}
}

func TestLookup_RecordFound(t *testing.T) {
	srv, _ := newBackend(t, http.StatusOK, `{
		"data": {"block": {
			"_id": "abc123",
			"type": "file",
			"properties": {"name": "photo.png", "Bucket": "uploads", "Key": "2024/photo.png"}
		}}
	}`)

	c := NewClient(srv.URL, 5*time.Second)
	block, err := c.Lookup(context.Background(), "abc123", ForwardedHeaders{})
	require.NoError(t, err)
	require.NotNil(t, block)

	assert.Equal(t, "abc123", block.ID)
	assert.Equal(t, "photo.png", block.DisplayName())

	bucket, key, ok := block.StorageLocation()
	require.True(t, ok)
	assert.Equal(t, "uploads", bucket)
	assert.Equal(t, "2024/photo.png", key)
}

func TestLookup_AbsentRecordIsSoftNil(t *testing.T) {
	srv, _ := newBackend(t, http.StatusOK, `{"data": {"block": null}}`)

	c := NewClient(srv.URL, 5*time.Second)
	block, err := c.Lookup(context.Background(), "missing", ForwardedHeaders{})
	require.NoError(t, err)
	assert.Nil(t, block)
}

func TestLookup_ErrorsArrayIsHardFailure(t *testing.T) {
	srv, _ := newBackend(t, http.StatusOK, `{
		"data": {"block": null},
		"errors": [{"message": "boom"}, {"message": "also broken"}]
	}`)

	c := NewClient(srv.URL, 5*time.Second)
	block, err := c.Lookup(context.Background(), "abc123", ForwardedHeaders{})
	assert.Nil(t, block)

	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, []string{"boom", "also broken"}, svcErr.Messages)
	assert.Contains(t, svcErr.Error(), "boom; also broken")
}

func TestLookup_ForwardsHeaders(t *testing.T) {
	srv, captured := newBackend(t, http.StatusOK, `{"data": {"block": null}}`)

	c := NewClient(srv.URL, 5*time.Second)
	_, err := c.Lookup(context.Background(), "abc123", ForwardedHeaders{
		Cookie:    "session=s3cret",
		UserAgent: "test-agent/1.0",
		Referer:   "https://example.com/page",
	})
	require.NoError(t, err)

	hdr := captured()
	assert.Equal(t, "session=s3cret", hdr.Get("Cookie"))
	assert.Equal(t, "test-agent/1.0", hdr.Get("User-Agent"))
	assert.Equal(t, "https://example.com/page", hdr.Get("Referer"))
}

func TestLookup_SendsQueryAndVariables(t *testing.T) {
	var body map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"data": {"block": null}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	_, err := c.Lookup(context.Background(), "abc123", ForwardedHeaders{})
	require.NoError(t, err)

	assert.Contains(t, body["query"], "_id")
	vars, ok := body["variables"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "abc123", vars["id"])
}

func TestLookup_BackendStatusError(t *testing.T) {
	srv, _ := newBackend(t, http.StatusBadGateway, `oops`)

	c := NewClient(srv.URL, 5*time.Second)
	block, err := c.Lookup(context.Background(), "abc123", ForwardedHeaders{})
	assert.Nil(t, block)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestStorageLocation_MissingCoordinates(t *testing.T) {
	tests := []struct {
		name  string
		props map[string]interface{}
	}{
		{"no properties", map[string]interface{}{}},
		{"bucket only", map[string]interface{}{"Bucket": "uploads"}},
		{"key only", map[string]interface{}{"Key": "photo.png"}},
		{"wrong types", map[string]interface{}{"Bucket": 1, "Key": true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Block{ID: "x", Properties: tt.props}
			_, _, ok := b.StorageLocation()
			assert.False(t, ok)
		})
	}
}
