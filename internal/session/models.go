package session

import "slices"

// DefaultModelID is the model selected on a fresh session.
const DefaultModelID = "longcat"

// Model is one backing language model offered to the user.
type Model struct {
	ID   string
	Name string
}

// Catalog is the fixed list of offered models with a designated default.
type Catalog struct {
	Models  []Model
	Default string
}

// DefaultCatalog is used when the configuration does not list any models.
var DefaultCatalog = Catalog{
	Models: []Model{
		{ID: "longcat", Name: "LongCat Flash Lite"},
		{ID: "gemini-2.5-flash-lite", Name: "Gemini 2.5 Flash Lite"},
		{ID: "gpt-4o", Name: "GPT-4o"},
	},
	Default: DefaultModelID,
}

// Lookup returns the catalog entry for id.
func (c Catalog) Lookup(id string) (Model, bool) {
	i := slices.IndexFunc(c.Models, func(m Model) bool { return m.ID == id })
	if i < 0 {
		return Model{}, false
	}
	return c.Models[i], true
}

// Next returns the id following current in catalog order, wrapping around.
// Unknown ids move to the first entry.
func (c Catalog) Next(current string) string {
	if len(c.Models) == 0 {
		return current
	}
	i := slices.IndexFunc(c.Models, func(m Model) bool { return m.ID == current })
	return c.Models[(i+1)%len(c.Models)].ID
}

// DefaultID returns the designated default, or the first model when none is set.
func (c Catalog) DefaultID() string {
	if c.Default != "" {
		return c.Default
	}
	if len(c.Models) > 0 {
		return c.Models[0].ID
	}
	return DefaultModelID
}
