// Package federation copies identity entities between stores: filtered
// push/pull with dependency closure and a performance-aware merge policy,
// plus the named-remote configuration in federation.yaml.
package federation

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nikete/workgraph/internal/identity"
	"github.com/nikete/workgraph/internal/workspace"
)

// ConfigFile is the remotes file name inside a workgraph directory.
const ConfigFile = "federation.yaml"

var (
	// ErrRemoteNotFound indicates a named remote is absent.
	ErrRemoteNotFound = errors.New("remote not found")

	// ErrRemoteExists indicates a duplicate remote name.
	ErrRemoteExists = errors.New("remote already exists")

	// ErrUnknownTarget indicates a path that is not a valid identity store.
	ErrUnknownTarget = errors.New("not a valid identity store")
)

// Remote is one named federation peer.
type Remote struct {
	Path        string `yaml:"path"`
	Description string `yaml:"description,omitempty"`
	LastSync    string `yaml:"last_sync,omitempty"`
}

// Config maps remote names to remotes.
type Config struct {
	Remotes map[string]Remote `yaml:"remotes"`
}

func configPath(workgraphDir string) string {
	return filepath.Join(workgraphDir, ConfigFile)
}

// LoadConfig reads federation.yaml, returning an empty config when absent.
func LoadConfig(workgraphDir string) (*Config, error) {
	data, err := os.ReadFile(configPath(workgraphDir))
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{Remotes: map[string]Remote{}}, nil
		}
		return nil, fmt.Errorf("reading federation config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing federation config: %w", err)
	}
	if cfg.Remotes == nil {
		cfg.Remotes = map[string]Remote{}
	}
	return &cfg, nil
}

// SaveConfig writes federation.yaml.
func SaveConfig(workgraphDir string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding federation config: %w", err)
	}
	if err := os.WriteFile(configPath(workgraphDir), data, 0644); err != nil {
		return fmt.Errorf("writing federation config: %w", err)
	}
	return nil
}

// AddRemote registers a named remote. Duplicate names are rejected.
func AddRemote(workgraphDir, name, path, description string) error {
	cfg, err := LoadConfig(workgraphDir)
	if err != nil {
		return err
	}
	if _, ok := cfg.Remotes[name]; ok {
		return fmt.Errorf("%w: %q", ErrRemoteExists, name)
	}
	cfg.Remotes[name] = Remote{Path: path, Description: description}
	return SaveConfig(workgraphDir, cfg)
}

// RemoveRemote deletes a named remote.
func RemoveRemote(workgraphDir, name string) error {
	cfg, err := LoadConfig(workgraphDir)
	if err != nil {
		return err
	}
	if _, ok := cfg.Remotes[name]; !ok {
		return fmt.Errorf("%w: %q", ErrRemoteNotFound, name)
	}
	delete(cfg.Remotes, name)
	return SaveConfig(workgraphDir, cfg)
}

// expandPath resolves "~/" against the caller's home.
func expandPath(path string) string {
	if suffix, ok := strings.CutPrefix(path, "~/"); ok {
		if home, err := workspace.HomeDir(); err == nil {
			return filepath.Join(home, suffix)
		}
	}
	return path
}

// ResolveStore interprets a path as an identity store: either the store
// directory itself, or a directory containing identity/ or
// .workgraph/identity/.
func ResolveStore(path string) (*identity.Store, error) {
	path = expandPath(path)
	for _, candidate := range []string{
		path,
		filepath.Join(path, "identity"),
		filepath.Join(path, workspace.Marker, "identity"),
	} {
		s := identity.NewStore(candidate)
		if s.IsValid() {
			return s, nil
		}
	}
	// A fresh target: an existing directory yields a store handle under
	// <path>/identity; the transfer initializes it on first write.
	info, err := os.Stat(path)
	if err == nil && info.IsDir() {
		return identity.NewStore(filepath.Join(path, "identity")), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownTarget, path)
}

// ResolveStoreWithRemotes resolves a name against the federation config
// first, then falls back to interpreting it as a filesystem path.
func ResolveStoreWithRemotes(nameOrPath, workgraphDir string) (*identity.Store, error) {
	cfg, err := LoadConfig(workgraphDir)
	if err != nil {
		return nil, err
	}
	if remote, ok := cfg.Remotes[nameOrPath]; ok {
		return ResolveStore(remote.Path)
	}
	return ResolveStore(nameOrPath)
}

// TouchRemoteSync updates a named remote's last_sync timestamp. Unknown
// names are a no-op; callers treat this as best-effort after a successful
// transfer.
func TouchRemoteSync(workgraphDir, name string) error {
	cfg, err := LoadConfig(workgraphDir)
	if err != nil {
		return err
	}
	remote, ok := cfg.Remotes[name]
	if !ok {
		return nil
	}
	remote.LastSync = time.Now().UTC().Format(time.RFC3339)
	cfg.Remotes[name] = remote
	return SaveConfig(workgraphDir, cfg)
}
