package client

import "encoding/json"

// Meal is one upstream recipe record. The upstream schema is flat and
// string-typed; fields beyond the ones promoted here are preserved in
// Raw for favorites snapshots.
type Meal struct {
	ID           string `json:"idMeal"`
	Name         string `json:"strMeal"`
	Category     string `json:"strCategory,omitempty"`
	Area         string `json:"strArea,omitempty"`
	Instructions string `json:"strInstructions,omitempty"`
	Thumbnail    string `json:"strMealThumb,omitempty"`
	Tags         string `json:"strTags,omitempty"`
	YouTube      string `json:"strYoutube,omitempty"`

	// Raw is the complete upstream object, ingredient columns included.
	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON keeps the full upstream object alongside the promoted
// fields.
func (m *Meal) UnmarshalJSON(data []byte) error {
	type alias Meal
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*m = Meal(a)
	m.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// Category is one upstream recipe category.
type Category struct {
	ID          string `json:"idCategory"`
	Name        string `json:"strCategory"`
	Thumbnail   string `json:"strCategoryThumb,omitempty"`
	Description string `json:"strCategoryDescription,omitempty"`
}

// mealsEnvelope is the upstream's `{"meals": [...]|null}` wrapper.
// A null list means "no results", not an error.
type mealsEnvelope struct {
	Meals []Meal `json:"meals"`
}

// categoriesEnvelope is the upstream's `{"categories": [...]}` wrapper.
type categoriesEnvelope struct {
	Categories []Category `json:"categories"`
}
