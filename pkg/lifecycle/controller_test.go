package lifecycle

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/mealkeeper/mealkeeper/pkg/cache"
	"github.com/mealkeeper/mealkeeper/pkg/strategy"
)

func shellFetcher(t *testing.T, failPaths ...string) strategy.Fetcher {
	t.Helper()
	failed := make(map[string]bool, len(failPaths))
	for _, p := range failPaths {
		failed[p] = true
	}
	return strategy.FetcherFunc(func(_ context.Context, req *http.Request) (*http.Response, error) {
		if failed[req.URL.Path] {
			return nil, errors.New("connection refused")
		}
		return &http.Response{
			StatusCode: 200,
			Header:     http.Header{},
			Body:       io.NopCloser(bytes.NewReader([]byte("shell:" + req.URL.Path))),
		}, nil
	})
}

func testConfig() Config {
	cfg := DefaultConfig("https://app.example.org")
	cfg.Names = cache.Names{Prefix: "mealkeeper", Generation: "v3"}
	return cfg
}

func TestInstall_PrecachesManifest(t *testing.T) {
	manager := cache.NewManager(cache.NewMemoryStore())
	cfg := testConfig()
	c := New(manager, shellFetcher(t), cfg)
	ctx := context.Background()

	if c.State() != StateNew {
		t.Errorf("initial state = %s, want new", c.State())
	}

	if err := c.Install(ctx); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if c.State() != StateInstalled {
		t.Errorf("state = %s, want installed", c.State())
	}
	if !c.SkipWaiting() {
		t.Error("install should request immediate takeover")
	}

	static := manager.Open(cfg.Names.Static())
	for _, path := range cfg.PrecacheManifest {
		key := cache.KeyForURL("https://app.example.org" + path)
		entry, err := static.Match(ctx, key)
		if err != nil {
			t.Errorf("manifest asset %s not precached: %v", path, err)
			continue
		}
		if !strings.HasPrefix(string(entry.Body), "shell:") {
			t.Errorf("asset %s body = %q", path, entry.Body)
		}
	}
}

func TestInstall_BestEffortOnFailure(t *testing.T) {
	manager := cache.NewManager(cache.NewMemoryStore())
	cfg := testConfig()
	c := New(manager, shellFetcher(t, "/manifest.json", "/icons/icon-512.png"), cfg)
	ctx := context.Background()

	if err := c.Install(ctx); err != nil {
		t.Fatalf("Install must complete despite precache failures: %v", err)
	}
	if c.State() != StateInstalled {
		t.Errorf("state = %s, want installed", c.State())
	}

	static := manager.Open(cfg.Names.Static())
	keys, _ := static.Keys(ctx)
	if len(keys) != len(cfg.PrecacheManifest)-2 {
		t.Errorf("precached %d assets, want %d", len(keys), len(cfg.PrecacheManifest)-2)
	}
}

func TestActivate_DeletesExactlyStaleGenerations(t *testing.T) {
	manager := cache.NewManager(cache.NewMemoryStore())
	cfg := testConfig()
	ctx := context.Background()

	seed := func(name string) {
		manager.Open(name).Put(ctx, cache.KeyForURL("https://app.example.org/x"),
			&cache.Entry{StatusCode: 200, Body: []byte("x")})
	}

	// Current generation
	seed(cfg.Names.Static())
	seed(cfg.Names.Dynamic())
	seed(cfg.Names.Images())
	// Stale generations
	seed("mealkeeper-static-v2")
	seed("mealkeeper-images-v1")
	// Foreign cache sharing the backend
	seed("otherapp-static-v3")

	c := New(manager, shellFetcher(t), cfg)
	if err := c.Activate(ctx); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if c.State() != StateActive {
		t.Errorf("state = %s, want active", c.State())
	}

	names, _ := manager.ListCacheNames(ctx)
	want := map[string]bool{
		cfg.Names.Static():  true,
		cfg.Names.Dynamic(): true,
		cfg.Names.Images():  true,
		"otherapp-static-v3": true,
	}
	if len(names) != len(want) {
		t.Fatalf("surviving caches = %v, want %v", names, want)
	}
	for _, name := range names {
		if !want[name] {
			t.Errorf("cache %s should have been deleted", name)
		}
	}
}

func TestHandleCommand_ClearCache(t *testing.T) {
	manager := cache.NewManager(cache.NewMemoryStore())
	cfg := testConfig()
	ctx := context.Background()

	manager.Open(cfg.Names.Dynamic()).Put(ctx, cache.KeyForURL("https://app.example.org/x"),
		&cache.Entry{StatusCode: 200, Body: []byte("x")})
	manager.Open("otherapp-data").Put(ctx, cache.KeyForURL("https://app.example.org/y"),
		&cache.Entry{StatusCode: 200, Body: []byte("y")})

	c := New(manager, shellFetcher(t), cfg)
	if err := c.HandleCommand(ctx, CommandClearCache); err != nil {
		t.Fatalf("HandleCommand: %v", err)
	}

	names, _ := manager.ListCacheNames(ctx)
	if len(names) != 1 || names[0] != "otherapp-data" {
		t.Errorf("surviving caches = %v, want only the foreign one", names)
	}
}

func TestHandleCommand_SkipWait(t *testing.T) {
	c := New(cache.NewManager(cache.NewMemoryStore()), shellFetcher(t), testConfig())

	if c.SkipWaiting() {
		t.Error("skip-waiting should start false")
	}
	if err := c.HandleCommand(context.Background(), CommandSkipWait); err != nil {
		t.Fatalf("HandleCommand: %v", err)
	}
	if !c.SkipWaiting() {
		t.Error("skip-wait command should set the flag")
	}
}

func TestHandleCommand_Unknown(t *testing.T) {
	c := New(cache.NewManager(cache.NewMemoryStore()), shellFetcher(t), testConfig())

	err := c.HandleCommand(context.Background(), "self-destruct")
	var unknown *ErrUnknownCommand
	if !errors.As(err, &unknown) {
		t.Fatalf("err = %v, want ErrUnknownCommand", err)
	}
	if unknown.Command != "self-destruct" {
		t.Errorf("command = %q", unknown.Command)
	}
}
