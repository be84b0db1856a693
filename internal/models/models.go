// Package models maintains the tiered catalog of executor models stored
// as models.yaml at the workgraph root.
package models

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// CatalogFile is the models catalog name inside a workgraph directory.
const CatalogFile = "models.yaml"

// Tier grades a model by capability and cost.
type Tier string

const (
	TierLow  Tier = "low"
	TierMid  Tier = "mid"
	TierHigh Tier = "high"
)

// ParseTier converts a user-supplied string into a Tier.
func ParseTier(s string) (Tier, error) {
	switch Tier(s) {
	case TierLow, TierMid, TierHigh:
		return Tier(s), nil
	}
	return "", fmt.Errorf("invalid tier %q (expected low, mid, or high)", s)
}

// ErrModelNotFound indicates the requested model id is absent.
var ErrModelNotFound = errors.New("model not found")

// Entry is one catalog model with cost metadata.
type Entry struct {
	ID              string   `yaml:"id"`
	Provider        string   `yaml:"provider"`
	CostPer1MInput  float64  `yaml:"cost_per_1m_input"`
	CostPer1MOutput float64  `yaml:"cost_per_1m_output"`
	ContextWindow   int      `yaml:"context_window"`
	Capabilities    []string `yaml:"capabilities,omitempty"`
	Tier            Tier     `yaml:"tier"`
}

// Catalog is the models file content.
type Catalog struct {
	Default string  `yaml:"default,omitempty"`
	Models  []Entry `yaml:"models"`
}

func path(dir string) string {
	return filepath.Join(dir, CatalogFile)
}

// Load reads the catalog, returning an empty one when absent.
func Load(dir string) (*Catalog, error) {
	data, err := os.ReadFile(path(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return &Catalog{}, nil
		}
		return nil, fmt.Errorf("reading models catalog: %w", err)
	}
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing models catalog: %w", err)
	}
	return &c, nil
}

// Save writes the catalog.
func Save(dir string, c *Catalog) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding models catalog: %w", err)
	}
	if err := os.WriteFile(path(dir), data, 0644); err != nil {
		return fmt.Errorf("writing models catalog: %w", err)
	}
	return nil
}

// List returns catalog entries, optionally filtered by tier.
func (c *Catalog) List(tier Tier) []Entry {
	if tier == "" {
		return c.Models
	}
	var out []Entry
	for _, m := range c.Models {
		if m.Tier == tier {
			out = append(out, m)
		}
	}
	return out
}

// Add upserts a model by id.
func (c *Catalog) Add(e Entry) {
	for i, m := range c.Models {
		if m.ID == e.ID {
			c.Models[i] = e
			return
		}
	}
	c.Models = append(c.Models, e)
}

// Get returns the entry with the given id.
func (c *Catalog) Get(id string) (*Entry, error) {
	for i := range c.Models {
		if c.Models[i].ID == id {
			return &c.Models[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrModelNotFound, id)
}

// SetDefault marks an existing model as the default.
func (c *Catalog) SetDefault(id string) error {
	if _, err := c.Get(id); err != nil {
		return err
	}
	c.Default = id
	return nil
}

// Defaults returns the built-in starter catalog.
func Defaults() []Entry {
	return []Entry{
		{ID: "claude-haiku", Provider: "anthropic", CostPer1MInput: 0.80, CostPer1MOutput: 4.00, ContextWindow: 200000, Capabilities: []string{"code", "tools"}, Tier: TierLow},
		{ID: "claude-sonnet", Provider: "anthropic", CostPer1MInput: 3.00, CostPer1MOutput: 15.00, ContextWindow: 200000, Capabilities: []string{"code", "tools", "vision"}, Tier: TierMid},
		{ID: "claude-opus", Provider: "anthropic", CostPer1MInput: 15.00, CostPer1MOutput: 75.00, ContextWindow: 200000, Capabilities: []string{"code", "tools", "vision"}, Tier: TierHigh},
	}
}

// InitDefaults seeds the catalog with the starter models, keeping any
// existing entries. Returns how many models were added.
func InitDefaults(dir string) (int, error) {
	c, err := Load(dir)
	if err != nil {
		return 0, err
	}
	added := 0
	for _, m := range Defaults() {
		if _, err := c.Get(m.ID); err == nil {
			continue
		}
		c.Add(m)
		added++
	}
	if c.Default == "" && len(c.Models) > 0 {
		c.Default = c.Models[0].ID
	}
	return added, Save(dir, c)
}
