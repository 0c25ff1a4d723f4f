// Package testutil provides testing utilities for the recipe cache stack.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// Sample upstream payloads used across tests.
const (
	SampleMealJSON = `{"meals":[{"idMeal":"52772","strMeal":"Teriyaki Chicken Casserole",` +
		`"strCategory":"Chicken","strArea":"Japanese",` +
		`"strInstructions":"Preheat oven to 350F.",` +
		`"strMealThumb":"https://www.themealdb.com/images/media/meals/wvpsxx1468256321.jpg",` +
		`"strIngredient1":"soy sauce","strMeasure1":"3/4 cup"}]}`

	SampleCategoriesJSON = `{"categories":[{"idCategory":"1","strCategory":"Beef",` +
		`"strCategoryThumb":"https://www.themealdb.com/images/category/beef.png",` +
		`"strCategoryDescription":"Beef is the culinary name for meat from cattle."}]}`

	EmptyMealsJSON = `{"meals":null}`
)

// MockResponse defines the behavior for a mock upstream endpoint.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockUpstream is a configurable mock recipe API server for testing.
type MockUpstream struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount      int
	LastRequestHeader http.Header
}

// NewMockUpstream creates a mock recipe API server.
func NewMockUpstream() *MockUpstream {
	mock := &MockUpstream{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockUpstream) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockUpstream) Close() {
	m.server.Close()
}

// Reset clears all tracking counters and custom handlers.
func (m *MockUpstream) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.LastRequestHeader = nil
	m.handlers = make(map[string]func(w http.ResponseWriter, r *http.Request))
}

// Requests returns the number of requests received so far.
func (m *MockUpstream) Requests() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// Handle registers a custom handler for a path.
func (m *MockUpstream) Handle(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// Respond registers a scripted response for a path.
func (m *MockUpstream) Respond(path string, resp MockResponse) {
	m.Handle(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for k, v := range resp.Headers {
			w.Header().Set(k, v)
		}
		status := resp.StatusCode
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		w.Write([]byte(resp.Body))
	})
}

// defaultHandler serves recipe-API-shaped responses for the standard
// endpoints and raw bytes for image paths.
func (m *MockUpstream) defaultHandler(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/search.php", r.URL.Path == "/lookup.php",
		r.URL.Path == "/filter.php", r.URL.Path == "/random.php":
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(SampleMealJSON))

	case r.URL.Path == "/categories.php":
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(SampleCategoriesJSON))

	case strings.HasPrefix(r.URL.Path, "/images/"):
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpeg-bytes:" + r.URL.Path))

	default:
		http.NotFound(w, r)
	}
}
