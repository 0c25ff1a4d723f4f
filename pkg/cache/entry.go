// Package cache provides named runtime caches of request/response pairs
// with bounded FIFO eviction and generation-scoped lifecycles.
package cache

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Entry is a cached response: status, headers and body bytes, plus the
// time it was stored. Insertion order inside a named cache is tracked by
// the Store, not by the entry itself.
type Entry struct {
	// StatusCode is the HTTP status code of the cached response
	StatusCode int `json:"status_code"`

	// Headers are the response headers
	Headers http.Header `json:"headers"`

	// Body is the response body
	Body []byte `json:"body"`

	// StoredAt is when this entry was written to the cache
	StoredAt time.Time `json:"stored_at"`
}

// ResponseToEntry converts an HTTP response to a cache Entry.
// The response body is consumed and restored so the caller can still
// deliver it.
func ResponseToEntry(resp *http.Response) (*Entry, error) {
	if resp == nil {
		return nil, fmt.Errorf("response cannot be nil")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	resp.Body.Close()

	// Restore body for caller
	resp.Body = io.NopCloser(bytes.NewReader(body))

	return &Entry{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header.Clone(),
		Body:       body,
		StoredAt:   time.Now(),
	}, nil
}

// Response converts the entry back into a served HTTP response.
// Each call returns an independent body reader.
func (e *Entry) Response() *http.Response {
	headers := e.Headers.Clone()
	if headers == nil {
		headers = http.Header{}
	}
	return &http.Response{
		StatusCode:    e.StatusCode,
		Status:        fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode)),
		Header:        headers,
		Body:          io.NopCloser(bytes.NewReader(e.Body)),
		ContentLength: int64(len(e.Body)),
	}
}

// Size returns the entry's body size in bytes.
func (e *Entry) Size() int {
	return len(e.Body)
}
