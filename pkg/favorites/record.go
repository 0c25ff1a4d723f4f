// Package favorites implements the durable store of user-saved recipes.
//
// The store outlives the runtime caches: cache generations come and go
// with deployments, favorites survive until the user removes them. It is
// an explicit resource handle: Open acquires the underlying database
// file, Close releases it, and a handle invalidated by an external
// close must be re-acquired with Open. There is no ambient singleton.
package favorites

import "encoding/json"

// Record is a favorited recipe: the full upstream record plus the save
// timestamp. Records are never mutated in place; re-saving overwrites
// wholesale and refreshes SavedAt.
type Record struct {
	// ID is the upstream recipe ID, the primary key.
	ID string `json:"idMeal"`

	// Name is the display name, indexed for sorted listing.
	Name string `json:"strMeal"`

	// Thumbnail is the recipe image URL, used as a cache hint on save.
	Thumbnail string `json:"strMealThumb,omitempty"`

	Category string `json:"strCategory,omitempty"`
	Area     string `json:"strArea,omitempty"`

	// SavedAt is the save timestamp in milliseconds since epoch.
	// Assigned by the store; monotonic non-decreasing across re-saves.
	SavedAt int64 `json:"savedAt"`

	// Data carries the remaining upstream fields verbatim, so the
	// detail view works fully offline.
	Data json.RawMessage `json:"data,omitempty"`
}
