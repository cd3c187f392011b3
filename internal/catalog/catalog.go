package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Package is one VIP tier in the static catalog.
type Package struct {
	Level          int    `json:"level"`
	Name           string `json:"name"`
	CostCents      int64  `json:"cost_cents"`
	DailyReturnBps int    `json:"daily_return_bps"`
}

// Catalog holds the VIP tiers, sorted by level ascending.
type Catalog struct {
	packages []Package
}

// packagesSchema constrains a catalog file: 1-10 tiers, each with a
// positive level, non-empty name, positive cost and a sane return rate.
const packagesSchema = `{
  "type": "array",
  "minItems": 1,
  "maxItems": 10,
  "items": {
    "type": "object",
    "required": ["level", "name", "cost_cents", "daily_return_bps"],
    "properties": {
      "level": {"type": "integer", "minimum": 1},
      "name": {"type": "string", "minLength": 1},
      "cost_cents": {"type": "integer", "minimum": 1},
      "daily_return_bps": {"type": "integer", "minimum": 1, "maximum": 10000}
    }
  }
}`

// Default returns the built-in five-tier catalog: $20..$100, 5% daily.
func Default() *Catalog {
	return &Catalog{packages: []Package{
		{Level: 1, Name: "VIP 1", CostCents: 2000, DailyReturnBps: 500},
		{Level: 2, Name: "VIP 2", CostCents: 5000, DailyReturnBps: 500},
		{Level: 3, Name: "VIP 3", CostCents: 7000, DailyReturnBps: 500},
		{Level: 4, Name: "VIP 4", CostCents: 9000, DailyReturnBps: 500},
		{Level: 5, Name: "VIP 5", CostCents: 10000, DailyReturnBps: 500},
	}}
}

// Load reads and validates a catalog file. Path "" returns Default.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %q: %w", path, err)
	}
	schema, err := jsonschema.CompileString("https://yieldpro.dev/schemas/catalog", packagesSchema)
	if err != nil {
		return nil, fmt.Errorf("compile catalog schema: %w", err)
	}
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog %q: %w", path, err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("invalid catalog %q: %w", path, err)
	}
	var packages []Package
	if err := json.Unmarshal(data, &packages); err != nil {
		return nil, fmt.Errorf("parse catalog %q: %w", path, err)
	}
	return New(packages)
}

// New builds a catalog, rejecting duplicate levels and non-increasing costs.
func New(packages []Package) (*Catalog, error) {
	sorted := make([]Package, len(packages))
	copy(sorted, packages)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Level < sorted[j].Level })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Level == sorted[i-1].Level {
			return nil, fmt.Errorf("duplicate catalog level %d", sorted[i].Level)
		}
		if sorted[i].CostCents <= sorted[i-1].CostCents {
			return nil, fmt.Errorf("catalog costs must strictly increase with level (level %d)", sorted[i].Level)
		}
	}
	return &Catalog{packages: sorted}, nil
}

// Packages returns the tiers, level ascending.
func (c *Catalog) Packages() []Package {
	out := make([]Package, len(c.packages))
	copy(out, c.packages)
	return out
}

// ByLevel looks up a tier by level.
func (c *Catalog) ByLevel(level int) (Package, bool) {
	for _, p := range c.packages {
		if p.Level == level {
			return p, true
		}
	}
	return Package{}, false
}

// RewardCents is the daily reward for a tier: cost x daily return rate.
// Unknown levels (including VIPNone) earn nothing.
func (c *Catalog) RewardCents(level int) int64 {
	p, ok := c.ByLevel(level)
	if !ok {
		return 0
	}
	return p.CostCents * int64(p.DailyReturnBps) / 10000
}
