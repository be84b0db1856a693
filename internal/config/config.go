// Package config loads workgraph configuration from the two-tier TOML
// layout: a global file under the user's home and a local file inside the
// workgraph directory. Local wins leaf by leaf; anything absent from both
// falls back to a built-in default.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/nikete/workgraph/internal/workspace"
)

// ConfigFile is the config file name at both tiers.
const ConfigFile = "config.toml"

// ErrParse indicates a malformed config file.
var ErrParse = errors.New("config parse error")

// Source identifies which layer a config value came from.
type Source string

const (
	SourceLocal   Source = "local"
	SourceGlobal  Source = "global"
	SourceDefault Source = "default"
)

// SourceMap records, per dotted key, where the winning value came from.
type SourceMap map[string]Source

// Keys returns the dotted keys in sorted order.
func (m SourceMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CoordinatorConfig controls the coordinator tick loop.
type CoordinatorConfig struct {
	// Interval is the tick period in seconds.
	Interval int64 `toml:"interval"`

	// MaxAgents caps concurrently running spawned agents.
	MaxAgents int `toml:"max_agents"`

	// Executor is the executor identifier passed to spawns.
	Executor string `toml:"executor"`
}

// IdentityConfig toggles the coordinator's identity subgraphs.
type IdentityConfig struct {
	AutoAssign bool `toml:"auto_assign"`
	AutoReward bool `toml:"auto_reward"`
}

// LogConfig controls the provenance log.
type LogConfig struct {
	// RotationThreshold is the provenance log rotation size in bytes.
	RotationThreshold int64 `toml:"rotation_threshold"`
}

// Config is the merged view of global + local + defaults.
type Config struct {
	Coordinator CoordinatorConfig `toml:"coordinator"`
	Identity    IdentityConfig    `toml:"identity"`
	Log         LogConfig         `toml:"log"`
}

// defaults holds the built-in leaf values as a dotted-key table.
var defaults = map[string]any{
	"coordinator.interval":   int64(60),
	"coordinator.max_agents": int64(2),
	"coordinator.executor":   "claude",
	"identity.auto_assign":   false,
	"identity.auto_reward":   false,
	"log.rotation_threshold": int64(1 << 20),
}

// GlobalPath returns the global config path under the user's home.
func GlobalPath() (string, error) {
	home, err := workspace.HomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, workspace.Marker, ConfigFile), nil
}

// LocalPath returns the local config path inside a workgraph directory.
func LocalPath(dir string) string {
	return filepath.Join(dir, ConfigFile)
}

// Load returns the merged config for a workgraph directory.
func Load(dir string) (*Config, error) {
	cfg, _, err := LoadWithSources(dir)
	return cfg, err
}

// LoadOrDefault returns the merged config, falling back to pure defaults
// when either tier is unreadable.
func LoadOrDefault(dir string) *Config {
	cfg, err := Load(dir)
	if err != nil {
		cfg, _, _ = build(nil, nil)
	}
	return cfg
}

// LoadWithSources returns the merged config plus a per-key source map.
func LoadWithSources(dir string) (*Config, SourceMap, error) {
	globalPath, err := GlobalPath()
	if err != nil {
		return nil, nil, err
	}
	global, err := readTree(globalPath)
	if err != nil {
		return nil, nil, err
	}
	local, err := readTree(LocalPath(dir))
	if err != nil {
		return nil, nil, err
	}
	return build(global, local)
}

// readTree parses a TOML file into a nested table; a missing file is an
// empty table.
func readTree(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var tree map[string]any
	if err := toml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, path, err)
	}
	if tree == nil {
		tree = map[string]any{}
	}
	return tree, nil
}

// build performs the recursive right-biased overlay and materializes the
// typed config from the winning leaves.
func build(global, local map[string]any) (*Config, SourceMap, error) {
	leaves := make(map[string]any)
	sources := make(SourceMap)

	for key, val := range defaults {
		leaves[key] = val
		sources[key] = SourceDefault
	}
	flatten("", global, func(key string, val any) {
		leaves[key] = val
		sources[key] = SourceGlobal
	})
	flatten("", local, func(key string, val any) {
		leaves[key] = val
		sources[key] = SourceLocal
	})

	cfg := &Config{
		Coordinator: CoordinatorConfig{
			Interval:  asInt64(leaves["coordinator.interval"]),
			MaxAgents: int(asInt64(leaves["coordinator.max_agents"])),
			Executor:  asString(leaves["coordinator.executor"]),
		},
		Identity: IdentityConfig{
			AutoAssign: asBool(leaves["identity.auto_assign"]),
			AutoReward: asBool(leaves["identity.auto_reward"]),
		},
		Log: LogConfig{
			RotationThreshold: asInt64(leaves["log.rotation_threshold"]),
		},
	}
	return cfg, sources, nil
}

// flatten walks a nested table and reports each scalar leaf with its
// dotted key. Tables merge field-wise; scalars replace wholesale, which
// the overlay order in build already provides.
func flatten(prefix string, tree map[string]any, visit func(key string, val any)) {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			flatten(key, sub, visit)
			continue
		}
		visit(key, v)
	}
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func asBool(v any) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return false
}

// Save writes the full merged config to the local tier.
func (c *Config) Save(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	f, err := os.Create(LocalPath(dir))
	if err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return nil
}
