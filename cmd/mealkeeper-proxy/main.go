// mealkeeper-proxy serves the recipe app through the offline cache
// stack: API and image requests pass through the strategy dispatcher,
// favorites persist in a local database, and the shell assets are
// precached at startup.
package main

import (
	"context"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/mealkeeper/mealkeeper/pkg/cache"
	"github.com/mealkeeper/mealkeeper/pkg/client"
	"github.com/mealkeeper/mealkeeper/pkg/favorites"
	"github.com/mealkeeper/mealkeeper/pkg/hydrator"
	"github.com/mealkeeper/mealkeeper/pkg/lifecycle"
	"github.com/mealkeeper/mealkeeper/pkg/logging"
	"github.com/mealkeeper/mealkeeper/pkg/strategy"
)

func main() {
	// Configuration from environment
	port := getEnv("PORT", "8080")
	redisURL := getEnv("REDIS_URL", "") // empty selects the in-memory store
	boltPath := getEnv("BOLT_PATH", "mealkeeper.db")
	userAgent := getEnv("USER_AGENT", "mealkeeper/1.0")
	origin := getEnv("ORIGIN", "http://localhost:"+port)
	upstreamBase := getEnv("UPSTREAM_BASE_URL", client.DefaultBaseURL)

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(getEnv("LOG_LEVEL", "info")),
		Pretty: getEnv("LOG_PRETTY", "") == "true",
	})

	ctx := context.Background()

	// Cache store: Redis when configured, in-memory otherwise.
	var store cache.Store
	if redisURL != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr: redisURL,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Str("addr", redisURL).Msg("Redis connection failed")
		}
		logger.Info().Str("addr", redisURL).Msg("Connected to Redis")
		store = cache.NewRedisStore(redisClient)
	} else {
		logger.Info().Msg("Using in-memory cache store")
		store = cache.NewMemoryStore()
	}

	manager := cache.NewManager(store)
	names := cache.DefaultNames()
	fetcher := strategy.NetworkFetcher{}

	dispatcher := strategy.New(manager, names, fetcher, strategy.DefaultConfig())
	defer dispatcher.Flush()

	hydratorCfg := hydrator.DefaultConfig()
	hydratorCfg.APIBaseURL = upstreamBase
	primer := hydrator.New(manager, names, fetcher, hydratorCfg)
	defer primer.Close()

	favStore, err := favorites.Open(favorites.Config{
		Path:   boltPath,
		OnSave: primer.OnFavoriteSaved,
	})
	if err != nil {
		logger.Fatal().Err(err).Str("path", boltPath).Msg("Favorites store open failed")
	}
	defer favStore.Close()

	// Install precaches the shell, activate garbage-collects stale
	// cache generations. Both run at startup; install failures are
	// best-effort and already logged.
	controller := lifecycle.New(manager, fetcher, lifecycle.DefaultConfig(origin))
	if err := controller.Install(ctx); err != nil {
		logger.Warn().Err(err).Msg("Install failed")
	}
	if err := controller.Activate(ctx); err != nil {
		logger.Warn().Err(err).Msg("Activation failed")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", readyHandler(favStore))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/control", controlHandler(controller))
	mux.HandleFunc("/favorites", favoritesHandler(favStore))
	mux.HandleFunc("/favorites/", favoritesHandler(favStore))
	mux.HandleFunc("/api/", apiProxyHandler(dispatcher, upstreamBase, userAgent))
	mux.HandleFunc("/images/", imageProxyHandler(dispatcher, userAgent))
	mux.HandleFunc("/", shellHandler(manager, names, origin))

	addr := ":" + port
	logger.Info().
		Str("addr", addr).
		Str("user_agent", userAgent).
		Str("upstream", upstreamBase).
		Msg("Starting mealkeeper proxy")

	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
