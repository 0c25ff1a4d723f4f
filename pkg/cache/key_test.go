package cache

import (
	"net/http"
	"testing"
)

func TestNewKey(t *testing.T) {
	tests := []struct {
		name   string
		method string
		url    string
		want   string
	}{
		{
			name:   "simple GET",
			method: "GET",
			url:    "https://example.org/api/search?s=pasta",
			want:   "GET https://example.org/api/search?s=pasta",
		},
		{
			name:   "host and scheme lowercased",
			method: "GET",
			url:    "HTTPS://Example.ORG/images/media/meals/x.jpg",
			want:   "GET https://example.org/images/media/meals/x.jpg",
		},
		{
			name:   "fragment stripped",
			method: "GET",
			url:    "https://example.org/page#section",
			want:   "GET https://example.org/page",
		},
		{
			name:   "lowercase method uppercased",
			method: "get",
			url:    "https://example.org/",
			want:   "GET https://example.org/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, tt.url, nil)
			if err != nil {
				t.Fatalf("NewRequest: %v", err)
			}
			key := NewKey(req)
			if key.String() != tt.want {
				t.Errorf("key = %q, want %q", key.String(), tt.want)
			}
		})
	}
}

func TestNewKey_Deterministic(t *testing.T) {
	req1, _ := http.NewRequest("GET", "https://example.org/api?a=1&b=2", nil)
	req2, _ := http.NewRequest("GET", "https://example.org/api?a=1&b=2", nil)

	if NewKey(req1) != NewKey(req2) {
		t.Error("identical requests should produce identical keys")
	}
}

func TestKeyForURL(t *testing.T) {
	key := KeyForURL("https://Example.org/images/pic.png#x")
	want := Key{Method: "GET", URL: "https://example.org/images/pic.png"}
	if key != want {
		t.Errorf("key = %+v, want %+v", key, want)
	}
}

func TestParseKey_RoundTrip(t *testing.T) {
	orig := Key{Method: "GET", URL: "https://example.org/api/lookup?i=52772"}
	parsed, err := ParseKey(orig.String())
	if err != nil {
		t.Fatalf("ParseKey: %v", err)
	}
	if parsed != orig {
		t.Errorf("parsed = %+v, want %+v", parsed, orig)
	}
}

func TestParseKey_Malformed(t *testing.T) {
	for _, s := range []string{"", "GET", "GET "} {
		if _, err := ParseKey(s); err == nil {
			t.Errorf("ParseKey(%q) should fail", s)
		}
	}
}
