package identity

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nikete/workgraph/internal/hash"
)

// Subdirectories of an identity store.
const (
	rolesDir      = "roles"
	objectivesDir = "objectives"
	agentsDir     = "agents"
	rewardsDir    = "rewards"
)

// ErrInvalidStore indicates a path that is not an identity store.
var ErrInvalidStore = errors.New("not a valid identity store")

// Store is a directory-backed identity store. Entities are one YAML file
// each, named by content id.
type Store struct {
	root string
}

// NewStore wraps a store rooted at the given directory.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Dir returns the identity store for a workgraph directory.
func Dir(workgraphDir string) *Store {
	return NewStore(filepath.Join(workgraphDir, "identity"))
}

// Root returns the store's directory.
func (s *Store) Root() string { return s.root }

// IsValid reports whether the store exists: the roles/ subdirectory is the
// marker.
func (s *Store) IsValid() bool {
	info, err := os.Stat(filepath.Join(s.root, rolesDir))
	return err == nil && info.IsDir()
}

// Init creates the store's directory layout, idempotently.
func (s *Store) Init() error {
	for _, sub := range []string{rolesDir, objectivesDir, agentsDir, rewardsDir} {
		if err := os.MkdirAll(filepath.Join(s.root, sub), 0755); err != nil {
			return fmt.Errorf("creating identity directory %s: %w", sub, err)
		}
	}
	return nil
}

// saveYAML writes one entity file atomically.
func (s *Store) saveYAML(sub, id string, v any) error {
	dir := filepath.Join(s.root, sub)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s/%s: %w", sub, id, err)
	}
	tmp, err := os.CreateTemp(dir, "."+id+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s/%s: %w", sub, id, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, filepath.Join(dir, id+".yaml"))
}

func (s *Store) loadYAML(sub, id string, v any) error {
	path := filepath.Join(s.root, sub, id+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s %q not found in %s", strings.TrimSuffix(sub, "s"), hash.Short(id), s.root)
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// listIDs enumerates the entity ids present in a subdirectory.
func (s *Store) listIDs(sub string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, sub))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing %s: %w", filepath.Join(s.root, sub), err)
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		ext := filepath.Ext(name)
		if e.IsDir() || (ext != ".yaml" && ext != ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ext))
	}
	sort.Strings(ids)
	return ids, nil
}

// SaveRole writes a role file named by its content id.
func (s *Store) SaveRole(r *Role) error { return s.saveYAML(rolesDir, r.ID, r) }

// LoadRole reads one role by full id.
func (s *Store) LoadRole(id string) (*Role, error) {
	var r Role
	if err := s.loadYAML(rolesDir, id, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// ExistsRole reports whether a role file exists.
func (s *Store) ExistsRole(id string) bool {
	_, err := os.Stat(filepath.Join(s.root, rolesDir, id+".yaml"))
	return err == nil
}

// DeleteRole removes a role file.
func (s *Store) DeleteRole(id string) error {
	return os.Remove(filepath.Join(s.root, rolesDir, id+".yaml"))
}

// LoadAllRoles enumerates the roles directory.
func (s *Store) LoadAllRoles() ([]*Role, error) {
	ids, err := s.listIDs(rolesDir)
	if err != nil {
		return nil, err
	}
	out := make([]*Role, 0, len(ids))
	for _, id := range ids {
		r, err := s.LoadRole(id)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// FindRoleByPrefix resolves a role by hash prefix.
func (s *Store) FindRoleByPrefix(prefix string) (*Role, error) {
	ids, err := s.listIDs(rolesDir)
	if err != nil {
		return nil, err
	}
	id, err := hash.MatchPrefix(ids, prefix)
	if err != nil {
		return nil, fmt.Errorf("resolving role: %w", err)
	}
	return s.LoadRole(id)
}

// SaveObjective writes an objective file named by its content id.
func (s *Store) SaveObjective(o *Objective) error { return s.saveYAML(objectivesDir, o.ID, o) }

// LoadObjective reads one objective by full id.
func (s *Store) LoadObjective(id string) (*Objective, error) {
	var o Objective
	if err := s.loadYAML(objectivesDir, id, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// ExistsObjective reports whether an objective file exists.
func (s *Store) ExistsObjective(id string) bool {
	_, err := os.Stat(filepath.Join(s.root, objectivesDir, id+".yaml"))
	return err == nil
}

// DeleteObjective removes an objective file.
func (s *Store) DeleteObjective(id string) error {
	return os.Remove(filepath.Join(s.root, objectivesDir, id+".yaml"))
}

// LoadAllObjectives enumerates the objectives directory.
func (s *Store) LoadAllObjectives() ([]*Objective, error) {
	ids, err := s.listIDs(objectivesDir)
	if err != nil {
		return nil, err
	}
	out := make([]*Objective, 0, len(ids))
	for _, id := range ids {
		o, err := s.LoadObjective(id)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

// FindObjectiveByPrefix resolves an objective by hash prefix.
func (s *Store) FindObjectiveByPrefix(prefix string) (*Objective, error) {
	ids, err := s.listIDs(objectivesDir)
	if err != nil {
		return nil, err
	}
	id, err := hash.MatchPrefix(ids, prefix)
	if err != nil {
		return nil, fmt.Errorf("resolving objective: %w", err)
	}
	return s.LoadObjective(id)
}

// SaveAgent writes an agent file named by its content id.
func (s *Store) SaveAgent(a *Agent) error { return s.saveYAML(agentsDir, a.ID, a) }

// LoadAgent reads one agent by full id.
func (s *Store) LoadAgent(id string) (*Agent, error) {
	var a Agent
	if err := s.loadYAML(agentsDir, id, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// ExistsAgent reports whether an agent file exists.
func (s *Store) ExistsAgent(id string) bool {
	_, err := os.Stat(filepath.Join(s.root, agentsDir, id+".yaml"))
	return err == nil
}

// DeleteAgent removes an agent file.
func (s *Store) DeleteAgent(id string) error {
	return os.Remove(filepath.Join(s.root, agentsDir, id+".yaml"))
}

// LoadAllAgents enumerates the agents directory.
func (s *Store) LoadAllAgents() ([]*Agent, error) {
	ids, err := s.listIDs(agentsDir)
	if err != nil {
		return nil, err
	}
	out := make([]*Agent, 0, len(ids))
	for _, id := range ids {
		a, err := s.LoadAgent(id)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// FindAgentByPrefix resolves an agent by hash prefix.
func (s *Store) FindAgentByPrefix(prefix string) (*Agent, error) {
	ids, err := s.listIDs(agentsDir)
	if err != nil {
		return nil, err
	}
	id, err := hash.MatchPrefix(ids, prefix)
	if err != nil {
		return nil, fmt.Errorf("resolving agent: %w", err)
	}
	return s.LoadAgent(id)
}

// SaveReward writes a reward file.
func (s *Store) SaveReward(r *Reward) error { return s.saveYAML(rewardsDir, r.ID, r) }

// LoadAllRewards enumerates the rewards directory. Both .yaml and .json
// reward files are accepted.
func (s *Store) LoadAllRewards() ([]*Reward, error) {
	dir := filepath.Join(s.root, rewardsDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	var out []*Reward
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != ".yaml" && ext != ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading reward %s: %w", e.Name(), err)
		}
		var r Reward
		// yaml.v3 parses JSON documents too, so one decoder covers both.
		if err := yaml.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("parsing reward %s: %w", e.Name(), err)
		}
		out = append(out, &r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ExistsReward reports whether a reward file exists in either format.
func (s *Store) ExistsReward(id string) bool {
	for _, ext := range []string{".yaml", ".json"} {
		if _, err := os.Stat(filepath.Join(s.root, rewardsDir, id+ext)); err == nil {
			return true
		}
	}
	return false
}
