// Package lifecycle manages cache generations across deployments:
// install-time precaching of the app shell, activation-time garbage
// collection of superseded caches, and the admin control commands.
package lifecycle

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mealkeeper/mealkeeper/pkg/cache"
	"github.com/mealkeeper/mealkeeper/pkg/logging"
	"github.com/mealkeeper/mealkeeper/pkg/strategy"
)

// State is the controller's lifecycle phase.
type State string

const (
	StateNew        State = "new"
	StateInstalling State = "installing"
	StateInstalled  State = "installed"
	StateActivating State = "activating"
	StateActive     State = "active"
)

// Command is an administrative control-channel command.
type Command string

const (
	// CommandSkipWait promotes this version immediately instead of
	// waiting for the previous one to wind down.
	CommandSkipWait Command = "skip-wait"

	// CommandClearCache deletes every owned named cache (full reset).
	// The favorites store is untouched.
	CommandClearCache Command = "clear-cache"
)

// ErrUnknownCommand is returned for commands outside the control set.
type ErrUnknownCommand struct {
	Command Command
}

func (e *ErrUnknownCommand) Error() string {
	return fmt.Sprintf("unknown control command %q", e.Command)
}

// Config holds controller configuration.
type Config struct {
	// Names is the cache naming scheme of this deployment.
	Names cache.Names

	// Origin is the application's own origin, e.g. "https://app.example.org".
	Origin string

	// PrecacheManifest lists the shell asset paths bulk-populated into
	// the static cache at install time.
	PrecacheManifest []string
}

// DefaultConfig returns the shell manifest the recipe app ships with.
func DefaultConfig(origin string) Config {
	return Config{
		Names:  cache.DefaultNames(),
		Origin: origin,
		PrecacheManifest: []string{
			"/",
			"/offline.html",
			"/manifest.json",
			"/icons/icon-192.png",
			"/icons/icon-512.png",
		},
	}
}

// Controller drives the install/activate lifecycle.
type Controller struct {
	manager *cache.Manager
	fetcher strategy.Fetcher
	cfg     Config
	logger  zerolog.Logger

	mu          sync.Mutex
	state       State
	skipWaiting bool
}

// New creates a lifecycle controller.
func New(manager *cache.Manager, fetcher strategy.Fetcher, cfg Config) *Controller {
	if manager == nil {
		panic("cache manager cannot be nil")
	}
	if fetcher == nil {
		fetcher = strategy.NetworkFetcher{}
	}
	return &Controller{
		manager: manager,
		fetcher: fetcher,
		cfg:     cfg,
		logger:  logging.NewLogger("lifecycle"),
		state:   StateNew,
	}
}

// State returns the current lifecycle phase.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SkipWaiting reports whether this version should replace a waiting
// predecessor immediately.
func (c *Controller) SkipWaiting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.skipWaiting
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Install precaches the shell manifest into the static cache. The
// precache is best-effort: individual failures are logged and skipped,
// and installation always completes. The new version then asks to
// replace any waiting predecessor immediately.
func (c *Controller) Install(ctx context.Context) error {
	c.setState(StateInstalling)

	static := c.manager.Open(c.cfg.Names.Static())
	precached := 0

	for _, path := range c.cfg.PrecacheManifest {
		url := strings.TrimSuffix(c.cfg.Origin, "/") + path
		if err := c.precacheOne(ctx, static, url); err != nil {
			c.logger.Warn().Err(err).Str("url", url).Msg("Precache failed, skipping asset")
			continue
		}
		precached++
	}

	c.logger.Info().
		Int("precached", precached).
		Int("manifest", len(c.cfg.PrecacheManifest)).
		Str("cache", static.Name()).
		Msg("Install complete")

	c.mu.Lock()
	c.state = StateInstalled
	c.skipWaiting = true
	c.mu.Unlock()
	return nil
}

func (c *Controller) precacheOne(ctx context.Context, static *cache.Cache, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.fetcher.Fetch(ctx, req)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	entry, err := cache.ResponseToEntry(resp)
	if err != nil {
		return fmt.Errorf("clone response: %w", err)
	}
	return static.Put(ctx, cache.NewKey(req), entry)
}

// Activate garbage-collects caches of superseded generations: every
// cache carrying the shared prefix but outside the three current names
// is deleted wholesale. Foreign caches on the same backend are left
// alone. The controller then takes over requests immediately.
func (c *Controller) Activate(ctx context.Context) error {
	c.setState(StateActivating)

	names, err := c.manager.ListCacheNames(ctx)
	if err != nil {
		return fmt.Errorf("list cache names: %w", err)
	}

	for _, name := range names {
		if !c.cfg.Names.Owns(name) || c.cfg.Names.Current(name) {
			continue
		}
		if _, err := c.manager.DeleteCache(ctx, name); err != nil {
			c.logger.Warn().Err(err).Str("cache", name).Msg("Failed to delete stale cache")
			continue
		}
		generationsDeleted.Inc()
		c.logger.Info().Str("cache", name).Msg("Deleted stale-generation cache")
	}

	c.setState(StateActive)
	return nil
}

// HandleCommand executes one control-channel command. Commands carry no
// response payload.
func (c *Controller) HandleCommand(ctx context.Context, cmd Command) error {
	switch cmd {
	case CommandSkipWait:
		c.mu.Lock()
		c.skipWaiting = true
		c.mu.Unlock()
		c.logger.Info().Msg("Skip-wait requested")
		return nil

	case CommandClearCache:
		names, err := c.manager.ListCacheNames(ctx)
		if err != nil {
			return fmt.Errorf("list cache names: %w", err)
		}
		for _, name := range names {
			if !c.cfg.Names.Owns(name) {
				continue
			}
			if _, err := c.manager.DeleteCache(ctx, name); err != nil {
				return fmt.Errorf("delete cache %s: %w", name, err)
			}
		}
		c.logger.Info().Msg("All owned caches cleared")
		return nil

	default:
		return &ErrUnknownCommand{Command: cmd}
	}
}
