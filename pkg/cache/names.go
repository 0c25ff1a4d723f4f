package cache

import "strings"

// Default cache naming. The generation suffix is bumped on deployment;
// caches from superseded generations are garbage-collected on activation.
const (
	DefaultPrefix     = "mealkeeper"
	DefaultGeneration = "v1"
)

// Default per-cache entry limits.
const (
	DynamicCacheLimit = 50
	ImageCacheLimit   = 100
)

// Names derives the three runtime cache names for one generation.
type Names struct {
	// Prefix is shared by every cache this application owns.
	Prefix string

	// Generation tags the deployed version (e.g. "v3").
	Generation string
}

// DefaultNames returns the current naming scheme.
func DefaultNames() Names {
	return Names{Prefix: DefaultPrefix, Generation: DefaultGeneration}
}

// Static returns the static-assets cache name.
func (n Names) Static() string {
	return n.Prefix + "-static-" + n.Generation
}

// Dynamic returns the dynamic-content cache name.
func (n Names) Dynamic() string {
	return n.Prefix + "-dynamic-" + n.Generation
}

// Images returns the image cache name.
func (n Names) Images() string {
	return n.Prefix + "-images-" + n.Generation
}

// All returns the three current-generation cache names.
func (n Names) All() []string {
	return []string{n.Static(), n.Dynamic(), n.Images()}
}

// Owns reports whether a cache name carries this application's prefix.
// Caches owned by other tenants of the same backend are left alone.
func (n Names) Owns(name string) bool {
	return strings.HasPrefix(name, n.Prefix+"-")
}

// Current reports whether the name is one of the three current-generation
// caches.
func (n Names) Current(name string) bool {
	for _, current := range n.All() {
		if name == current {
			return true
		}
	}
	return false
}
