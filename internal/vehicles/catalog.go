package vehicles

import (
	"fmt"
	"sort"
	"strings"
)

// Model is one production span of a make/model pair.
type Model struct {
	Make      string `json:"make"`
	Model     string `json:"model"`
	YearStart int    `json:"yearStart"`
	YearEnd   int    `json:"yearEnd"`
}

// Validate enforces yearStart <= yearEnd and non-empty names.
func (m Model) Validate() error {
	if strings.TrimSpace(m.Make) == "" || strings.TrimSpace(m.Model) == "" {
		return fmt.Errorf("vehicle model requires make and model")
	}
	if m.YearStart > m.YearEnd {
		return fmt.Errorf("vehicle %s %s: year start %d after year end %d", m.Make, m.Model, m.YearStart, m.YearEnd)
	}
	return nil
}

// Key identifies a make/model pair case-insensitively.
type Key struct {
	Make  string
	Model string
}

// KeyOf folds make and model for map lookups.
func KeyOf(mk, model string) Key {
	return Key{
		Make:  strings.ToLower(strings.TrimSpace(mk)),
		Model: strings.ToLower(strings.TrimSpace(model)),
	}
}

// Catalog is the immutable vehicle reference data.
type Catalog struct {
	makes  []string
	models map[string][]string // folded make -> display models
	spans  map[Key][]Model
	names  map[Key]Model // display names per key
}

// NewCatalog validates and indexes the entries. The input slice is not retained.
func NewCatalog(entries []Model) (*Catalog, error) {
	c := &Catalog{
		models: make(map[string][]string),
		spans:  make(map[Key][]Model),
		names:  make(map[Key]Model),
	}
	makeNames := make(map[string]string)
	for _, entry := range entries {
		if err := entry.Validate(); err != nil {
			return nil, err
		}
		entry.Make = strings.TrimSpace(entry.Make)
		entry.Model = strings.TrimSpace(entry.Model)

		key := KeyOf(entry.Make, entry.Model)
		if _, seen := c.names[key]; !seen {
			c.names[key] = entry
			c.models[key.Make] = append(c.models[key.Make], entry.Model)
		}
		if _, seen := makeNames[key.Make]; !seen {
			makeNames[key.Make] = entry.Make
		}
		c.spans[key] = append(c.spans[key], entry)
	}

	for _, name := range makeNames {
		c.makes = append(c.makes, name)
	}
	sort.Strings(c.makes)
	for k := range c.models {
		sort.Strings(c.models[k])
	}
	for k := range c.spans {
		spans := c.spans[k]
		sort.Slice(spans, func(i, j int) bool { return spans[i].YearStart < spans[j].YearStart })
	}
	return c, nil
}

// ListMakes returns every make in sorted order.
func (c *Catalog) ListMakes() []string {
	return append([]string(nil), c.makes...)
}

// ListModels returns the sorted models of a make, or nil for an unknown make.
func (c *Catalog) ListModels(mk string) []string {
	models := c.models[KeyOf(mk, "").Make]
	if len(models) == 0 {
		return nil
	}
	return append([]string(nil), models...)
}

// YearRange returns the production span for a make/model. Multiple spans are
// merged into their outer bounds.
func (c *Catalog) YearRange(mk, model string) (int, int, bool) {
	spans := c.spans[KeyOf(mk, model)]
	if len(spans) == 0 {
		return 0, 0, false
	}
	start, end := spans[0].YearStart, spans[0].YearEnd
	for _, s := range spans[1:] {
		if s.YearStart < start {
			start = s.YearStart
		}
		if s.YearEnd > end {
			end = s.YearEnd
		}
	}
	return start, end, true
}

// Spans returns the production spans of a make/model ordered by start year.
func (c *Catalog) Spans(mk, model string) []Model {
	spans := c.spans[KeyOf(mk, model)]
	if len(spans) == 0 {
		return nil
	}
	return append([]Model(nil), spans...)
}

// SpanFor returns the individual span covering the year.
func (c *Catalog) SpanFor(mk, model string, year int) (Model, bool) {
	for _, s := range c.spans[KeyOf(mk, model)] {
		if year >= s.YearStart && year <= s.YearEnd {
			return s, true
		}
	}
	return Model{}, false
}

// Canonical returns the display spelling of a make/model pair.
func (c *Catalog) Canonical(mk, model string) (Model, bool) {
	m, ok := c.names[KeyOf(mk, model)]
	return m, ok
}

// Len reports the number of distinct make/model pairs.
func (c *Catalog) Len() int {
	return len(c.names)
}
