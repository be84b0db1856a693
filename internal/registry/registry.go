// Package registry tracks spawned agent processes: one record per spawn
// with PID, heartbeat and status. Liveness is decided by probing the PID
// against the OS, never by trusting the stored status alone.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/google/uuid"
)

// RegistryFile is the registry path relative to the workgraph directory.
const RegistryFile = "service/registry.json"

// Agent statuses.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusDead      Status = "dead"
)

// Entry is one spawned agent process.
type Entry struct {
	ID            string `json:"id"`
	PID           int    `json:"pid"`
	TaskID        string `json:"task_id"`
	Executor      string `json:"executor"`
	StartedAt     string `json:"started_at"`
	LastHeartbeat string `json:"last_heartbeat,omitempty"`
	Status        Status `json:"status"`
	OutputFile    string `json:"output_file,omitempty"`
}

// Registry is the set of agent entries for one workgraph.
type Registry struct {
	Agents map[string]*Entry `json:"agents"`
}

// NewEntry builds a running entry for a freshly spawned process.
func NewEntry(pid int, taskID, executor, outputFile string) *Entry {
	now := time.Now().UTC().Format(time.RFC3339)
	return &Entry{
		ID:            uuid.NewString(),
		PID:           pid,
		TaskID:        taskID,
		Executor:      executor,
		StartedAt:     now,
		LastHeartbeat: now,
		Status:        StatusRunning,
		OutputFile:    outputFile,
	}
}

func path(dir string) string {
	return filepath.Join(dir, filepath.FromSlash(RegistryFile))
}

// Load reads the registry, returning an empty one when absent.
func Load(dir string) (*Registry, error) {
	data, err := os.ReadFile(path(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return &Registry{Agents: map[string]*Entry{}}, nil
		}
		return nil, fmt.Errorf("reading registry: %w", err)
	}
	var r Registry
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing registry: %w", err)
	}
	if r.Agents == nil {
		r.Agents = map[string]*Entry{}
	}
	return &r, nil
}

// Save writes the registry atomically.
func Save(dir string, r *Registry) error {
	p := path(dir)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("creating registry directory: %w", err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding registry: %w", err)
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing registry: %w", err)
	}
	return os.Rename(tmp, p)
}

// pidExists probes a PID with signal 0.
func pidExists(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// IsAlive reports whether an entry represents a live agent: status Running,
// PID present in the OS, and (when a threshold is configured) a heartbeat
// newer than the threshold.
func (e *Entry) IsAlive(heartbeatThreshold time.Duration) bool {
	if e.Status != StatusRunning {
		return false
	}
	if !pidExists(e.PID) {
		return false
	}
	if heartbeatThreshold > 0 && e.LastHeartbeat != "" {
		hb, err := time.Parse(time.RFC3339, e.LastHeartbeat)
		if err == nil && time.Since(hb) >= heartbeatThreshold {
			return false
		}
	}
	return true
}

// Alive returns the live entries, sorted by start time.
func (r *Registry) Alive(heartbeatThreshold time.Duration) []*Entry {
	var out []*Entry
	for _, e := range r.Agents {
		if e.IsAlive(heartbeatThreshold) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt < out[j].StartedAt })
	return out
}

// Dead returns the entries that are not alive, sorted by start time.
func (r *Registry) Dead(heartbeatThreshold time.Duration) []*Entry {
	var out []*Entry
	for _, e := range r.Agents {
		if !e.IsAlive(heartbeatThreshold) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt < out[j].StartedAt })
	return out
}

// Cleanup removes dead entries from the registry and returns how many were
// removed. It does not attempt to kill processes; termination is a separate
// operation.
func (r *Registry) Cleanup(heartbeatThreshold time.Duration) int {
	removed := 0
	for id, e := range r.Agents {
		if !e.IsAlive(heartbeatThreshold) {
			delete(r.Agents, id)
			removed++
		}
	}
	return removed
}

// Heartbeat refreshes an entry's heartbeat timestamp.
func (r *Registry) Heartbeat(id string) error {
	e, ok := r.Agents[id]
	if !ok {
		return fmt.Errorf("agent entry %q not found", id)
	}
	e.LastHeartbeat = time.Now().UTC().Format(time.RFC3339)
	return nil
}

// MarkStatus transitions an entry to a final status.
func (r *Registry) MarkStatus(id string, status Status) error {
	e, ok := r.Agents[id]
	if !ok {
		return fmt.Errorf("agent entry %q not found", id)
	}
	e.Status = status
	return nil
}
