// Package hydrator primes the offline caches ahead of demand: recipe
// snapshots go into the dynamic cache, their thumbnails are fetched
// into the image cache by a bounded worker pool. A TTL cache suppresses
// re-priming URLs that were primed recently, and concurrent primes of
// the same URL are collapsed.
package hydrator

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/mealkeeper/mealkeeper/pkg/cache"
	"github.com/mealkeeper/mealkeeper/pkg/favorites"
	"github.com/mealkeeper/mealkeeper/pkg/logging"
	"github.com/mealkeeper/mealkeeper/pkg/strategy"
)

// Config holds hydrator configuration.
type Config struct {
	// MaxConcurrency is the number of parallel prime workers.
	MaxConcurrency int

	// Timeout bounds each individual prime fetch.
	Timeout time.Duration

	// SuppressionTTL is how long a primed URL stays exempt from
	// re-priming.
	SuppressionTTL time.Duration

	// APIBaseURL is the upstream API root, used to derive the cache
	// keys recipe snapshots are stored under.
	APIBaseURL string

	// DynamicLimit and ImageLimit are the entry caps enforced on the
	// target caches after priming.
	DynamicLimit int
	ImageLimit   int
}

// DefaultConfig returns safe hydrator defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Timeout:        15 * time.Second,
		SuppressionTTL: 15 * time.Minute,
		APIBaseURL:     "https://www.themealdb.com/api/json/v1/1",
		DynamicLimit:   cache.DynamicCacheLimit,
		ImageLimit:     cache.ImageCacheLimit,
	}
}

// Hydrator primes the dynamic and image caches.
type Hydrator struct {
	fetcher strategy.Fetcher
	dynamic *cache.Cache
	images  *cache.Cache
	cfg     Config
	logger  zerolog.Logger

	recent *ttlcache.Cache[string, struct{}]
	group  singleflight.Group
	wg     sync.WaitGroup
}

// New creates a hydrator over the caches named by names. Panics if
// manager or fetcher is nil.
func New(manager *cache.Manager, names cache.Names, fetcher strategy.Fetcher, cfg Config) *Hydrator {
	if manager == nil {
		panic("hydrator: manager is required")
	}
	if fetcher == nil {
		panic("hydrator: fetcher is required")
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.SuppressionTTL <= 0 {
		cfg.SuppressionTTL = 15 * time.Minute
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultConfig().APIBaseURL
	}

	recent := ttlcache.New[string, struct{}](
		ttlcache.WithTTL[string, struct{}](cfg.SuppressionTTL),
	)
	go recent.Start()

	return &Hydrator{
		fetcher: fetcher,
		dynamic: manager.Open(names.Dynamic()),
		images:  manager.Open(names.Images()),
		cfg:     cfg,
		logger:  logging.NewLogger("hydrator"),
		recent:  recent,
	}
}

// Close stops the suppression cache and waits for in-flight primes.
func (h *Hydrator) Close() {
	h.wg.Wait()
	h.recent.Stop()
}

// Flush waits for in-flight primes. Deterministic tests call this
// before asserting on cache contents.
func (h *Hydrator) Flush() {
	h.wg.Wait()
}

// PrimeImages fetches the given image URLs into the image cache using
// a bounded worker pool. Failures are logged and skipped; the pool
// never surfaces them. Blocks until all workers finish.
func (h *Hydrator) PrimeImages(ctx context.Context, urls []string) {
	if len(urls) == 0 {
		return
	}

	queue := make(chan string, len(urls))
	for _, u := range urls {
		queue <- u
	}
	close(queue)

	var wg sync.WaitGroup
	for i := 0; i < h.cfg.MaxConcurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for u := range queue {
				h.primeURL(ctx, u, h.images, h.cfg.ImageLimit)
			}
		}()
	}
	wg.Wait()
}

// PrimeMeal stores a recipe snapshot into the dynamic cache under its
// lookup URL and schedules its thumbnail for background priming. The
// snapshot needs no network round trip.
func (h *Hydrator) PrimeMeal(ctx context.Context, id string, raw []byte, thumbnail string) error {
	if id == "" || len(raw) == 0 {
		return nil
	}

	key := cache.KeyForURL(h.cfg.APIBaseURL + "/lookup.php?i=" + id)

	body := append([]byte(`{"meals":[`), raw...)
	body = append(body, []byte(`]}`)...)

	entry := &cache.Entry{
		StatusCode: http.StatusOK,
		Headers:    http.Header{"Content-Type": {"application/json"}},
		Body:       body,
		StoredAt:   time.Now(),
	}
	if err := h.dynamic.Put(ctx, key, entry); err != nil {
		primesTotal.WithLabelValues("snapshot", "failed").Inc()
		return err
	}
	if h.cfg.DynamicLimit > 0 {
		if err := h.dynamic.EnforceLimit(ctx, h.cfg.DynamicLimit); err != nil {
			h.logger.Warn().Err(err).Msg("Cache limit enforcement failed")
		}
	}
	primesTotal.WithLabelValues("snapshot", "primed").Inc()

	if thumbnail != "" {
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			h.primeURL(context.WithoutCancel(ctx), thumbnail, h.images, h.cfg.ImageLimit)
		}()
	}
	return nil
}

// OnFavoriteSaved is the favorites save hook: it primes the saved
// recipe's snapshot and thumbnail so the favorite is readable offline
// without ever having been browsed.
func (h *Hydrator) OnFavoriteSaved(rec favorites.Record) {
	ctx := context.Background()
	if err := h.PrimeMeal(ctx, rec.ID, rec.Data, rec.Thumbnail); err != nil {
		h.logger.Warn().
			Err(err).
			Str("recipe_id", rec.ID).
			Msg("Favorite snapshot priming failed")
	}
}

// primeURL fetches one URL into target, skipping recently primed URLs
// and collapsing concurrent fetches of the same URL.
func (h *Hydrator) primeURL(ctx context.Context, rawURL string, target *cache.Cache, limit int) {
	key := cache.KeyForURL(rawURL)

	if h.recent.Has(key.String()) {
		primesTotal.WithLabelValues("fetch", "suppressed").Inc()
		return
	}

	_, err, _ := h.group.Do(key.String(), func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(ctx, h.cfg.Timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := h.fetcher.Fetch(fetchCtx, req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			h.logger.Debug().
				Str("url", rawURL).
				Int("status", resp.StatusCode).
				Msg("Prime fetch returned non-success status")
			return nil, nil
		}

		entry, err := cache.ResponseToEntry(resp)
		if err != nil {
			return nil, err
		}
		if err := target.Put(ctx, key, entry); err != nil {
			return nil, err
		}
		if limit > 0 {
			if err := target.EnforceLimit(ctx, limit); err != nil {
				h.logger.Warn().Err(err).Msg("Cache limit enforcement failed")
			}
		}

		h.recent.Set(key.String(), struct{}{}, ttlcache.DefaultTTL)
		return nil, nil
	})
	if err != nil {
		h.logger.Warn().Err(err).Str("url", rawURL).Msg("Prime fetch failed")
		primesTotal.WithLabelValues("fetch", "failed").Inc()
		return
	}
	primesTotal.WithLabelValues("fetch", "primed").Inc()
}
