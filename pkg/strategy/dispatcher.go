// Package strategy routes intercepted requests to a caching strategy and
// executes it against the runtime caches.
package strategy

import (
	"context"
	"errors"
	"net/http"
	"path"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/mealkeeper/mealkeeper/pkg/cache"
	"github.com/mealkeeper/mealkeeper/pkg/logging"
)

// ErrNotIntercepted is returned for requests outside http/https. The
// embedding application should fall through to its default handling.
var ErrNotIntercepted = errors.New("request not intercepted")

// Strategy identifies one of the four caching strategies.
type Strategy string

const (
	NetworkFirst         Strategy = "network-first"
	CacheFirst           Strategy = "cache-first"
	StaleWhileRevalidate Strategy = "stale-while-revalidate"
	Navigation           Strategy = "navigation"
)

// Fetcher performs the actual network call for a request.
type Fetcher interface {
	Fetch(ctx context.Context, req *http.Request) (*http.Response, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, req *http.Request) (*http.Response, error)

func (f FetcherFunc) Fetch(ctx context.Context, req *http.Request) (*http.Response, error) {
	return f(ctx, req)
}

// NetworkFetcher is the default Fetcher over an http.Client. No explicit
// timeout is set here; the transport's own behavior applies.
type NetworkFetcher struct {
	Client *http.Client
}

func (n NetworkFetcher) Fetch(ctx context.Context, req *http.Request) (*http.Response, error) {
	client := n.Client
	if client == nil {
		client = http.DefaultClient
	}
	return client.Do(req.WithContext(ctx))
}

// Config holds the routing rules and per-cache limits.
type Config struct {
	// APIPrefix routes data requests to network-first (e.g. "/api/").
	APIPrefix string

	// ImageHost and ImagePathPrefix route upstream recipe images to
	// stale-while-revalidate.
	ImageHost       string
	ImagePathPrefix string

	// RootPath and OfflinePath are the navigation fallback documents.
	RootPath    string
	OfflinePath string

	// StaticExtensions routes asset requests to cache-first.
	StaticExtensions []string

	// DynamicLimit and ImageLimit bound the respective caches.
	DynamicLimit int
	ImageLimit   int
}

// DefaultConfig returns the routing rules the recipe app ships with.
func DefaultConfig() Config {
	return Config{
		APIPrefix:       "/api/",
		ImageHost:       "www.themealdb.com",
		ImagePathPrefix: "/images/",
		RootPath:        "/",
		OfflinePath:     "/offline.html",
		StaticExtensions: []string{
			"js", "css", "svg", "png", "jpg", "jpeg", "gif", "webp", "woff", "woff2",
		},
		DynamicLimit: cache.DynamicCacheLimit,
		ImageLimit:   cache.ImageCacheLimit,
	}
}

// Dispatcher is the per-request router. It holds no per-request state;
// every intercepted request is handled independently.
type Dispatcher struct {
	cfg     Config
	fetcher Fetcher
	static  *cache.Cache
	dynamic *cache.Cache
	images  *cache.Cache
	logger  zerolog.Logger

	// revalidations collapses concurrent background refreshes of the
	// same key.
	revalidations singleflight.Group

	// wg tracks fire-and-forget cache population so Flush can drain it
	// on shutdown and in tests.
	wg sync.WaitGroup

	exts map[string]bool
}

// New creates a dispatcher over the three named caches of the given
// generation.
func New(manager *cache.Manager, names cache.Names, fetcher Fetcher, cfg Config) *Dispatcher {
	if manager == nil {
		panic("cache manager cannot be nil")
	}
	if fetcher == nil {
		fetcher = NetworkFetcher{}
	}

	exts := make(map[string]bool, len(cfg.StaticExtensions))
	for _, ext := range cfg.StaticExtensions {
		exts[strings.ToLower(ext)] = true
	}

	return &Dispatcher{
		cfg:     cfg,
		fetcher: fetcher,
		static:  manager.Open(names.Static()),
		dynamic: manager.Open(names.Dynamic()),
		images:  manager.Open(names.Images()),
		logger:  logging.NewLogger("dispatcher"),
		exts:    exts,
	}
}

// Route selects a strategy for a GET request. Routing is pure: it only
// inspects the request shape.
func (d *Dispatcher) Route(req *http.Request) Strategy {
	if strings.HasPrefix(req.URL.Path, d.cfg.APIPrefix) {
		return NetworkFirst
	}
	if strings.EqualFold(req.URL.Host, d.cfg.ImageHost) &&
		strings.HasPrefix(req.URL.Path, d.cfg.ImagePathPrefix) {
		return StaleWhileRevalidate
	}
	if isNavigation(req) {
		return Navigation
	}
	if ext := strings.TrimPrefix(path.Ext(req.URL.Path), "."); d.exts[strings.ToLower(ext)] {
		return CacheFirst
	}
	return NetworkFirst
}

// Handle routes one intercepted request and executes its strategy.
// Non-GET requests pass straight through to the network; requests
// outside http/https return ErrNotIntercepted.
func (d *Dispatcher) Handle(ctx context.Context, req *http.Request) (*http.Response, error) {
	scheme := strings.ToLower(req.URL.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, ErrNotIntercepted
	}
	if req.Method != http.MethodGet && req.Method != "" {
		return d.fetcher.Fetch(ctx, req)
	}

	strategy := d.Route(req)
	d.logger.Debug().
		Str("strategy", string(strategy)).
		Str("url", req.URL.String()).
		Msg("Routing request")

	switch strategy {
	case CacheFirst:
		return d.cacheFirst(ctx, req)
	case StaleWhileRevalidate:
		return d.staleWhileRevalidate(ctx, req)
	case Navigation:
		return d.navigation(ctx, req)
	default:
		return d.networkFirst(ctx, req)
	}
}

// Flush waits for in-flight background cache population. Call it during
// shutdown; foreground responses never wait on it.
func (d *Dispatcher) Flush() {
	d.wg.Wait()
}

// matchAny looks the key up in every cache, static first.
func (d *Dispatcher) matchAny(ctx context.Context, key cache.Key) *cache.Entry {
	for _, c := range []*cache.Cache{d.static, d.dynamic, d.images} {
		if entry, err := c.Match(ctx, key); err == nil {
			return entry
		}
	}
	return nil
}

// storeInBackground clones the response into a cache without blocking
// response delivery. Failures are logged and swallowed: cache population
// must never fail the foreground request. A limit > 0 triggers FIFO
// enforcement after the put.
func (d *Dispatcher) storeInBackground(ctx context.Context, c *cache.Cache, key cache.Key, resp *http.Response, limit int) {
	entry, err := cache.ResponseToEntry(resp)
	if err != nil {
		d.logger.Warn().Err(err).Str("cache", c.Name()).Msg("Failed to clone response for caching")
		return
	}

	// Detach from the request's cancellation; background population
	// runs to completion even if the caller goes away.
	bgCtx := context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := c.Put(bgCtx, key, entry); err != nil {
			d.logger.Warn().Err(err).Str("cache", c.Name()).Msg("Cache put failed")
			return
		}
		if limit > 0 {
			if err := c.EnforceLimit(bgCtx, limit); err != nil {
				d.logger.Warn().Err(err).Str("cache", c.Name()).Msg("Cache limit enforcement failed")
			}
		}
	}()
}

func isNavigation(req *http.Request) bool {
	if req.Header.Get("Sec-Fetch-Mode") == "navigate" {
		return true
	}
	return strings.Contains(req.Header.Get("Accept"), "text/html")
}

func is2xx(status int) bool {
	return status >= 200 && status < 300
}
