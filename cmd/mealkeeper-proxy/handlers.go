package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mealkeeper/mealkeeper/pkg/cache"
	"github.com/mealkeeper/mealkeeper/pkg/favorites"
	"github.com/mealkeeper/mealkeeper/pkg/lifecycle"
	"github.com/mealkeeper/mealkeeper/pkg/strategy"
)

const proxyTimeout = 30 * time.Second

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func readyHandler(favStore *favorites.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := favStore.Count(); err != nil {
			http.Error(w, "favorites store unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	}
}

// apiProxyHandler forwards /api/<endpoint> to the upstream recipe API
// through the strategy dispatcher, so responses are cached and offline
// fallbacks apply.
// Example: /api/search.php?s=pasta -> <upstream>/search.php?s=pasta
func apiProxyHandler(d *strategy.Dispatcher, upstreamBase, userAgent string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		endpoint := strings.TrimPrefix(r.URL.Path, "/api")
		target := upstreamBase + endpoint
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}
		proxyThrough(d, userAgent, target, w, r)
	}
}

// imageProxyHandler forwards /images/<path> to the upstream image host
// through the dispatcher, which serves them stale-while-revalidate.
func imageProxyHandler(d *strategy.Dispatcher, userAgent string) http.HandlerFunc {
	host := strategy.DefaultConfig().ImageHost
	return func(w http.ResponseWriter, r *http.Request) {
		target := "https://" + host + r.URL.Path
		proxyThrough(d, userAgent, target, w, r)
	}
}

func proxyThrough(d *strategy.Dispatcher, userAgent, target string, w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), proxyTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, r.Method, target, r.Body)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid target: %v", err), http.StatusBadRequest)
		return
	}
	req.Header = r.Header.Clone()
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.Handle(ctx, req)
	if err != nil {
		http.Error(w, fmt.Sprintf("upstream request failed: %v", err), http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	copyResponse(w, resp)
}

// shellHandler serves precached app shell assets from the static
// cache. Unknown paths fall back to the root document so client-side
// routing works offline.
func shellHandler(manager *cache.Manager, names cache.Names, origin string) http.HandlerFunc {
	static := manager.Open(names.Static())
	base := strings.TrimSuffix(origin, "/")

	return func(w http.ResponseWriter, r *http.Request) {
		entry, err := static.Match(r.Context(), cache.KeyForURL(base+r.URL.Path))
		if errors.Is(err, cache.ErrCacheMiss) {
			entry, err = static.Match(r.Context(), cache.KeyForURL(base+"/"))
		}
		if err != nil {
			http.NotFound(w, r)
			return
		}

		resp := entry.Response()
		defer resp.Body.Close()
		copyResponse(w, resp)
	}
}

// favoritesHandler is the favorites REST surface:
//
//	GET    /favorites?sort=date|name&order=asc|desc
//	POST   /favorites               (JSON record body)
//	GET    /favorites/{id}
//	DELETE /favorites/{id}
//	POST   /favorites/{id}/toggle   (JSON record body)
func favoritesHandler(store *favorites.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/favorites"), "/")

		switch {
		case rest == "" && r.Method == http.MethodGet:
			listFavorites(store, w, r)
		case rest == "" && r.Method == http.MethodPost:
			saveFavorite(store, w, r)
		case strings.HasSuffix(rest, "/toggle") && r.Method == http.MethodPost:
			toggleFavorite(store, w, r)
		case r.Method == http.MethodGet:
			getFavorite(store, rest, w)
		case r.Method == http.MethodDelete:
			removeFavorite(store, rest, w)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

func listFavorites(store *favorites.Store, w http.ResponseWriter, r *http.Request) {
	sortKey := favorites.SortByDate
	if s := r.URL.Query().Get("sort"); s != "" {
		sortKey = favorites.SortKey(s)
	}
	order := favorites.Desc
	if o := r.URL.Query().Get("order"); o != "" {
		order = favorites.Order(o)
	}

	records, err := store.List(sortKey, order)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func saveFavorite(store *favorites.Store, w http.ResponseWriter, r *http.Request) {
	rec, ok := decodeRecord(w, r)
	if !ok {
		return
	}
	if err := store.Save(rec); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	saved, err := store.Get(rec.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func toggleFavorite(store *favorites.Store, w http.ResponseWriter, r *http.Request) {
	rec, ok := decodeRecord(w, r)
	if !ok {
		return
	}
	nowFavorite, err := store.Toggle(rec)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"favorite": nowFavorite})
}

func getFavorite(store *favorites.Store, id string, w http.ResponseWriter) {
	rec, err := store.Get(id)
	if errors.Is(err, favorites.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func removeFavorite(store *favorites.Store, id string, w http.ResponseWriter) {
	if err := store.Remove(id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// controlHandler executes lifecycle commands:
// POST /control {"command": "skip-wait" | "clear-cache"}
func controlHandler(controller *lifecycle.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var body struct {
			Command string `json:"command"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}

		err := controller.HandleCommand(r.Context(), lifecycle.Command(body.Command))
		var unknown *lifecycle.ErrUnknownCommand
		if errors.As(err, &unknown) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

func decodeRecord(w http.ResponseWriter, r *http.Request) (favorites.Record, bool) {
	var rec favorites.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return rec, false
	}
	if rec.ID == "" {
		http.Error(w, "idMeal is required", http.StatusBadRequest)
		return rec, false
	}
	return rec, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to encode response")
	}
}

func copyResponse(w http.ResponseWriter, resp *http.Response) {
	for key, values := range resp.Header {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		log.Warn().Err(err).Msg("Failed to write response body")
	}
}
