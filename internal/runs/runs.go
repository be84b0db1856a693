// Package runs provides graph snapshots: numbered run directories holding a
// full copy of graph.jsonl plus metadata, with list, diff and restore.
package runs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nikete/workgraph/internal/graph"
)

// RunsDir is the snapshot directory name inside a workgraph directory.
const RunsDir = "runs"

// Meta is the metadata record stored alongside each snapshot.
type Meta struct {
	ID             string   `json:"id"`
	Timestamp      string   `json:"timestamp"`
	Model          string   `json:"model,omitempty"`
	ResetTasks     []string `json:"reset_tasks"`
	PreservedTasks []string `json:"preserved_tasks"`
	Filter         string   `json:"filter,omitempty"`
}

// Dir returns the directory of one run.
func Dir(workgraphDir, id string) string {
	return filepath.Join(workgraphDir, RunsDir, id)
}

// List returns run ids in natural (lexicographic, zero-padded) order.
func List(workgraphDir string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(workgraphDir, RunsDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), "run-") {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// NextID returns "run-NNN" one higher than any existing run, starting at
// run-001.
func NextID(workgraphDir string) string {
	ids, err := List(workgraphDir)
	if err != nil {
		ids = nil
	}
	max := 0
	for _, id := range ids {
		if n, err := strconv.Atoi(strings.TrimPrefix(id, "run-")); err == nil && n > max {
			max = n
		}
	}
	return fmt.Sprintf("run-%03d", max+1)
}

// Snapshot captures the live graph into runs/<id>/ with the given metadata.
func Snapshot(workgraphDir, id string, meta *Meta) error {
	dir := Dir(workgraphDir, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating run directory: %w", err)
	}

	src, err := os.ReadFile(graph.Path(workgraphDir))
	if err != nil {
		return fmt.Errorf("reading live graph: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, graph.GraphFile), src, 0644); err != nil {
		return fmt.Errorf("writing snapshot graph: %w", err)
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding run meta: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "meta.json"), data, 0644); err != nil {
		return fmt.Errorf("writing run meta: %w", err)
	}
	return nil
}

// LoadMeta reads a run's metadata.
func LoadMeta(workgraphDir, id string) (*Meta, error) {
	data, err := os.ReadFile(filepath.Join(Dir(workgraphDir, id), "meta.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("run %q not found", id)
		}
		return nil, fmt.Errorf("reading run meta: %w", err)
	}
	var m Meta
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing run meta: %w", err)
	}
	return &m, nil
}

// SnapshotGraphPath returns the snapshot graph file of a run.
func SnapshotGraphPath(workgraphDir, id string) string {
	return filepath.Join(Dir(workgraphDir, id), graph.GraphFile)
}

// Restore overwrites the live graph with the snapshot of the given run.
// A pre-restore safety snapshot is always taken first under the next run
// id, so any failure mid-overwrite remains fully recoverable. Returns the
// safety snapshot id.
func Restore(workgraphDir, id string) (string, error) {
	snapPath := SnapshotGraphPath(workgraphDir, id)
	if _, err := os.Stat(snapPath); err != nil {
		return "", fmt.Errorf("run %q has no snapshot graph: %w", id, err)
	}

	safetyID := NextID(workgraphDir)
	safetyMeta := &Meta{
		ID:             safetyID,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		ResetTasks:     []string{},
		PreservedTasks: []string{},
		Filter:         fmt.Sprintf("pre-restore safety snapshot (restoring %s)", id),
	}
	if err := Snapshot(workgraphDir, safetyID, safetyMeta); err != nil {
		return "", fmt.Errorf("taking safety snapshot: %w", err)
	}

	data, err := os.ReadFile(snapPath)
	if err != nil {
		return safetyID, fmt.Errorf("reading snapshot graph: %w", err)
	}
	tmp := graph.Path(workgraphDir) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return safetyID, fmt.Errorf("writing restored graph: %w", err)
	}
	if err := os.Rename(tmp, graph.Path(workgraphDir)); err != nil {
		return safetyID, fmt.Errorf("replacing live graph: %w", err)
	}
	return safetyID, nil
}

// Change classes reported by Diff.
const (
	ChangeAdded         = "added"
	ChangeRemoved       = "removed"
	ChangeStatusChanged = "status_changed"
)

// TaskDiff is one per-task difference between the live graph and a snapshot.
type TaskDiff struct {
	ID             string `json:"id"`
	SnapshotStatus string `json:"snapshot_status,omitempty"`
	CurrentStatus  string `json:"current_status,omitempty"`
	Change         string `json:"change"`
}

// Diff compares the live graph against a run snapshot by task id and
// status. Ids are reported sorted.
func Diff(workgraphDir, id string) ([]TaskDiff, error) {
	snapGraph, err := graph.Load(SnapshotGraphPath(workgraphDir, id))
	if err != nil {
		return nil, fmt.Errorf("loading snapshot of %s: %w", id, err)
	}
	current, err := graph.Load(graph.Path(workgraphDir))
	if err != nil {
		return nil, err
	}

	snapStatuses := map[string]string{}
	for _, t := range snapGraph.Tasks() {
		snapStatuses[t.ID] = string(t.Status)
	}
	currentStatuses := map[string]string{}
	for _, t := range current.Tasks() {
		currentStatuses[t.ID] = string(t.Status)
	}

	seen := map[string]bool{}
	var allIDs []string
	for id := range snapStatuses {
		if !seen[id] {
			seen[id] = true
			allIDs = append(allIDs, id)
		}
	}
	for id := range currentStatuses {
		if !seen[id] {
			seen[id] = true
			allIDs = append(allIDs, id)
		}
	}
	sort.Strings(allIDs)

	var diffs []TaskDiff
	for _, tid := range allIDs {
		snap, inSnap := snapStatuses[tid]
		cur, inCur := currentStatuses[tid]
		switch {
		case inSnap && inCur && snap != cur:
			diffs = append(diffs, TaskDiff{ID: tid, SnapshotStatus: snap, CurrentStatus: cur, Change: ChangeStatusChanged})
		case inSnap && !inCur:
			diffs = append(diffs, TaskDiff{ID: tid, SnapshotStatus: snap, Change: ChangeRemoved})
		case !inSnap && inCur:
			diffs = append(diffs, TaskDiff{ID: tid, CurrentStatus: cur, Change: ChangeAdded})
		}
	}
	return diffs, nil
}
