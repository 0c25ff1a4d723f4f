package strategy

import (
	"context"
	"net/http"

	"github.com/mealkeeper/mealkeeper/pkg/cache"
)

// cacheFirst serves static assets: a hit returns immediately without
// touching the network; a miss fetches and populates the static cache.
// On network failure there is no cache fallback, only the synthetic 503:
// a previously installed version is expected to have precached the asset.
func (d *Dispatcher) cacheFirst(ctx context.Context, req *http.Request) (*http.Response, error) {
	key := cache.NewKey(req)

	if entry, err := d.static.Match(ctx, key); err == nil {
		strategyRequests.WithLabelValues(string(CacheFirst), outcomeCache).Inc()
		return entry.Response(), nil
	}

	resp, err := d.fetcher.Fetch(ctx, req)
	if err != nil {
		d.logger.Warn().Err(err).Str("url", req.URL.String()).Msg("Static asset fetch failed")
		strategyRequests.WithLabelValues(string(CacheFirst), outcomeFallback).Inc()
		return syntheticTextUnavailable(), nil
	}

	if is2xx(resp.StatusCode) {
		d.storeInBackground(ctx, d.static, key, resp, 0)
	}
	strategyRequests.WithLabelValues(string(CacheFirst), outcomeNetwork).Inc()
	return resp, nil
}

// networkFirst serves API data: live responses win, the dynamic cache is
// refreshed behind them, and on network failure any cached copy of the
// exact request is served before giving up with the JSON 503.
func (d *Dispatcher) networkFirst(ctx context.Context, req *http.Request) (*http.Response, error) {
	key := cache.NewKey(req)

	resp, err := d.fetcher.Fetch(ctx, req)
	if err == nil {
		if is2xx(resp.StatusCode) {
			d.storeInBackground(ctx, d.dynamic, key, resp, d.cfg.DynamicLimit)
		}
		strategyRequests.WithLabelValues(string(NetworkFirst), outcomeNetwork).Inc()
		return resp, nil
	}

	d.logger.Warn().Err(err).Str("url", req.URL.String()).Msg("Network fetch failed, trying caches")

	if entry := d.matchAny(ctx, key); entry != nil {
		strategyRequests.WithLabelValues(string(NetworkFirst), outcomeCache).Inc()
		return entry.Response(), nil
	}

	strategyRequests.WithLabelValues(string(NetworkFirst), outcomeFallback).Inc()
	return syntheticJSONOffline(), nil
}

// staleWhileRevalidate serves images: a cached copy is returned
// immediately and a background fetch refreshes it. Staleness is accepted;
// this strategy never blocks on the network when a cached copy exists.
// On a cold miss the network result is returned (or its failure
// propagated as-is).
func (d *Dispatcher) staleWhileRevalidate(ctx context.Context, req *http.Request) (*http.Response, error) {
	key := cache.NewKey(req)

	if entry, err := d.images.Match(ctx, key); err == nil {
		d.revalidate(ctx, req, key)
		strategyRequests.WithLabelValues(string(StaleWhileRevalidate), outcomeCache).Inc()
		return entry.Response(), nil
	}

	resp, err := d.fetcher.Fetch(ctx, req)
	if err != nil {
		strategyRequests.WithLabelValues(string(StaleWhileRevalidate), outcomeFallback).Inc()
		return nil, err
	}
	if is2xx(resp.StatusCode) {
		d.storeInBackground(ctx, d.images, key, resp, d.cfg.ImageLimit)
	}
	strategyRequests.WithLabelValues(string(StaleWhileRevalidate), outcomeNetwork).Inc()
	return resp, nil
}

// revalidate refreshes one image cache entry in the background.
// Concurrent refreshes of the same key are collapsed; fetch failures are
// silently dropped, the stale entry simply survives.
func (d *Dispatcher) revalidate(ctx context.Context, req *http.Request, key cache.Key) {
	bgCtx := context.WithoutCancel(ctx)
	bgReq := req.Clone(bgCtx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		_, _, _ = d.revalidations.Do(key.String(), func() (interface{}, error) {
			resp, err := d.fetcher.Fetch(bgCtx, bgReq)
			if err != nil {
				d.logger.Debug().Err(err).Str("url", bgReq.URL.String()).Msg("Revalidation fetch failed")
				return nil, nil
			}
			defer resp.Body.Close()

			if !is2xx(resp.StatusCode) {
				return nil, nil
			}
			entry, err := cache.ResponseToEntry(resp)
			if err != nil {
				return nil, nil
			}
			if err := d.images.Put(bgCtx, key, entry); err != nil {
				d.logger.Warn().Err(err).Msg("Revalidation cache put failed")
				return nil, nil
			}
			if err := d.images.EnforceLimit(bgCtx, d.cfg.ImageLimit); err != nil {
				d.logger.Warn().Err(err).Msg("Image cache limit enforcement failed")
			}
			return nil, nil
		})
	}()
}

// navigation serves page loads. Live navigations refresh the dynamic
// cache; offline ones fall back through exact match, site root, then the
// dedicated offline document before surfacing the synthetic HTML 503.
func (d *Dispatcher) navigation(ctx context.Context, req *http.Request) (*http.Response, error) {
	key := cache.NewKey(req)

	resp, err := d.fetcher.Fetch(ctx, req)
	if err == nil {
		if is2xx(resp.StatusCode) {
			d.storeInBackground(ctx, d.dynamic, key, resp, 0)
		}
		strategyRequests.WithLabelValues(string(Navigation), outcomeNetwork).Inc()
		return resp, nil
	}

	d.logger.Warn().Err(err).Str("url", req.URL.String()).Msg("Navigation fetch failed, trying fallbacks")

	fallbacks := []cache.Key{
		key,
		d.pageKey(req, d.cfg.RootPath),
		d.pageKey(req, d.cfg.OfflinePath),
	}
	for _, fb := range fallbacks {
		if entry := d.matchAny(ctx, fb); entry != nil {
			strategyRequests.WithLabelValues(string(Navigation), outcomeCache).Inc()
			return entry.Response(), nil
		}
	}

	strategyRequests.WithLabelValues(string(Navigation), outcomeFallback).Inc()
	return syntheticHTMLOffline(), nil
}

// pageKey builds a GET key for a well-known path on the request's own
// origin.
func (d *Dispatcher) pageKey(req *http.Request, p string) cache.Key {
	u := *req.URL
	u.Path = p
	u.RawQuery = ""
	u.Fragment = ""
	return cache.KeyForURL(u.String())
}
