package cache

import (
	"bytes"
	"io"
	"net/http"
	"testing"
)

func TestResponseToEntry(t *testing.T) {
	resp := &http.Response{
		StatusCode: 200,
		Header: http.Header{
			"Content-Type": []string{"application/json"},
		},
		Body: io.NopCloser(bytes.NewReader([]byte(`{"meals":[]}`))),
	}

	entry, err := ResponseToEntry(resp)
	if err != nil {
		t.Fatalf("ResponseToEntry failed: %v", err)
	}

	if entry.StatusCode != 200 {
		t.Errorf("StatusCode = %d, want 200", entry.StatusCode)
	}
	if string(entry.Body) != `{"meals":[]}` {
		t.Errorf("Body = %q, want %q", entry.Body, `{"meals":[]}`)
	}
	if entry.Headers.Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", entry.Headers.Get("Content-Type"))
	}
	if entry.StoredAt.IsZero() {
		t.Error("StoredAt should be set")
	}

	// Caller must still be able to read the original response body
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to re-read response body: %v", err)
	}
	if string(body) != `{"meals":[]}` {
		t.Errorf("restored body = %q, want %q", body, `{"meals":[]}`)
	}
}

func TestResponseToEntry_Nil(t *testing.T) {
	if _, err := ResponseToEntry(nil); err == nil {
		t.Error("ResponseToEntry(nil) should fail")
	}
}

func TestEntry_Response(t *testing.T) {
	entry := &Entry{
		StatusCode: 503,
		Headers:    http.Header{"Content-Type": []string{"text/plain"}},
		Body:       []byte("ok"),
	}

	// Each call must yield an independently readable body
	for i := 0; i < 2; i++ {
		resp := entry.Response()
		if resp.StatusCode != 503 {
			t.Errorf("StatusCode = %d, want 503", resp.StatusCode)
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		if string(body) != "ok" {
			t.Errorf("body = %q, want ok", body)
		}
	}
}

func TestEntry_Response_NilHeaders(t *testing.T) {
	entry := &Entry{StatusCode: 200, Body: []byte("x")}
	resp := entry.Response()
	if resp.Header == nil {
		t.Error("Response should never return nil headers")
	}
}
