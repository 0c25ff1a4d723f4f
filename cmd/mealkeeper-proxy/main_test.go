package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mealkeeper/mealkeeper/pkg/cache"
	"github.com/mealkeeper/mealkeeper/pkg/favorites"
	"github.com/mealkeeper/mealkeeper/pkg/lifecycle"
	"github.com/mealkeeper/mealkeeper/pkg/strategy"
)

func openTestFavorites(t *testing.T) *favorites.Store {
	t.Helper()

	store, err := favorites.Open(favorites.Config{
		Path: filepath.Join(t.TempDir(), "favorites.db"),
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestHealthEndpoint(t *testing.T) {
	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	healthHandler(w, req)

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if string(body) != "OK" {
		t.Errorf("Expected body 'OK', got %s", string(body))
	}
}

func TestReadyEndpoint(t *testing.T) {
	store := openTestFavorites(t)
	handler := readyHandler(store)

	req := httptest.NewRequest("GET", "/ready", nil)
	w := httptest.NewRecorder()
	handler(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Result().StatusCode)
	}
}

func TestFavoritesEndpoints(t *testing.T) {
	store := openTestFavorites(t)
	handler := favoritesHandler(store)

	do := func(method, path, body string) *http.Response {
		t.Helper()
		var reader io.Reader
		if body != "" {
			reader = bytes.NewBufferString(body)
		}
		req := httptest.NewRequest(method, path, reader)
		w := httptest.NewRecorder()
		handler(w, req)
		return w.Result()
	}

	// Save
	resp := do("POST", "/favorites", `{"idMeal":"52772","strMeal":"Teriyaki Chicken Casserole"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("save: status %d", resp.StatusCode)
	}
	var saved favorites.Record
	if err := json.NewDecoder(resp.Body).Decode(&saved); err != nil {
		t.Fatalf("decode saved: %v", err)
	}
	if saved.SavedAt == 0 {
		t.Error("save should stamp SavedAt")
	}

	// Get
	resp = do("GET", "/favorites/52772", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("get: status %d", resp.StatusCode)
	}

	// List
	resp = do("GET", "/favorites?sort=name&order=asc", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: status %d", resp.StatusCode)
	}
	var records []favorites.Record
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("list: got %d records, want 1", len(records))
	}

	// Unknown sort key
	resp = do("GET", "/favorites?sort=rating", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad sort: status %d, want 400", resp.StatusCode)
	}

	// Toggle off
	resp = do("POST", "/favorites/52772/toggle", `{"idMeal":"52772"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("toggle: status %d", resp.StatusCode)
	}
	var toggled map[string]bool
	if err := json.NewDecoder(resp.Body).Decode(&toggled); err != nil {
		t.Fatalf("decode toggle: %v", err)
	}
	if toggled["favorite"] {
		t.Error("toggle should have removed the favorite")
	}

	// Delete is idempotent
	resp = do("DELETE", "/favorites/52772", "")
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete: status %d", resp.StatusCode)
	}

	// Get after delete
	resp = do("GET", "/favorites/52772", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete: status %d, want 404", resp.StatusCode)
	}

	// Missing ID
	resp = do("POST", "/favorites", `{"strMeal":"no id"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing id: status %d, want 400", resp.StatusCode)
	}
}

func TestControlEndpoint(t *testing.T) {
	manager := cache.NewManager(cache.NewMemoryStore())
	fetcher := strategy.FetcherFunc(func(ctx context.Context, req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{},
			Body:       io.NopCloser(strings.NewReader("ok")),
		}, nil
	})
	controller := lifecycle.New(manager, fetcher, lifecycle.DefaultConfig("https://app.example.org"))
	handler := controlHandler(controller)

	t.Run("skip-wait", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/control", strings.NewReader(`{"command":"skip-wait"}`))
		w := httptest.NewRecorder()
		handler(w, req)

		if w.Result().StatusCode != http.StatusAccepted {
			t.Errorf("status %d, want 202", w.Result().StatusCode)
		}
		if !controller.SkipWaiting() {
			t.Error("skip-wait flag not set")
		}
	})

	t.Run("unknown command", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/control", strings.NewReader(`{"command":"self-destruct"}`))
		w := httptest.NewRecorder()
		handler(w, req)

		if w.Result().StatusCode != http.StatusBadRequest {
			t.Errorf("status %d, want 400", w.Result().StatusCode)
		}
	})

	t.Run("method not allowed", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/control", nil)
		w := httptest.NewRecorder()
		handler(w, req)

		if w.Result().StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("status %d, want 405", w.Result().StatusCode)
		}
	})
}

func TestShellHandler(t *testing.T) {
	manager := cache.NewManager(cache.NewMemoryStore())
	names := cache.Names{Prefix: "mealkeeper", Generation: "test"}
	origin := "https://app.example.org"

	static := manager.Open(names.Static())
	rootEntry := &cache.Entry{
		StatusCode: http.StatusOK,
		Headers:    http.Header{"Content-Type": {"text/html"}},
		Body:       []byte("<html>shell</html>"),
		StoredAt:   time.Now(),
	}
	if err := static.Put(context.Background(), cache.KeyForURL(origin+"/"), rootEntry); err != nil {
		t.Fatalf("Put: %v", err)
	}

	handler := shellHandler(manager, names, origin)

	t.Run("precached path", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		w := httptest.NewRecorder()
		handler(w, req)

		resp := w.Result()
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("status %d", resp.StatusCode)
		}
		if string(body) != "<html>shell</html>" {
			t.Errorf("body = %s", body)
		}
	})

	t.Run("unknown path falls back to root", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/recipes/52772", nil)
		w := httptest.NewRecorder()
		handler(w, req)

		resp := w.Result()
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("status %d", resp.StatusCode)
		}
		if string(body) != "<html>shell</html>" {
			t.Errorf("body = %s", body)
		}
	})
}

func TestMetricsEndpoint(t *testing.T) {
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	promhttp.Handler().ServeHTTP(w, req)

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "# HELP") || !strings.Contains(string(body), "# TYPE") {
		t.Error("Expected Prometheus format metrics output")
	}
}
