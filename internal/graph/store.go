package graph

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// GraphFile is the name of the graph file inside a workgraph directory.
const GraphFile = "graph.jsonl"

// ErrNotInitialized indicates the graph file does not exist yet.
var ErrNotInitialized = errors.New("workgraph not initialized")

// Path returns the graph file path for a workgraph directory.
func Path(dir string) string {
	return filepath.Join(dir, GraphFile)
}

// Load reads a graph file: one JSON node record per line, empty lines
// ignored. The entire graph is held in memory.
func Load(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotInitialized, path)
		}
		return nil, fmt.Errorf("reading graph %s: %w", path, err)
	}
	defer f.Close()

	g := New()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var n Node
		if err := json.Unmarshal(line, &n); err != nil {
			return nil, fmt.Errorf("parsing %s line %d: %w", path, lineNo, err)
		}
		g.AddNode(n)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading graph %s: %w", path, err)
	}
	return g, nil
}

// Save writes the graph atomically: a temp file in the same directory is
// fully written and fsynced, then renamed over the target.
func Save(g *Graph, path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".graph-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp graph file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after successful rename

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	for _, n := range g.Nodes() {
		// Encode emits the trailing newline per record.
		if err := enc.Encode(n); err != nil {
			tmp.Close()
			return fmt.Errorf("encoding node %q: %w", n.ID(), err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("writing graph: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing graph: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing graph: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing graph %s: %w", path, err)
	}
	return nil
}

// WithLock runs fn while holding the cooperative advisory lock that brackets
// graph read-modify-write cycles. The lock lives on a sibling lockfile so the
// graph itself can still be atomically renamed.
func WithLock(dir string, fn func() error) error {
	lock := flock.New(Path(dir) + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("acquiring graph lock: %w", err)
	}
	defer func() { _ = lock.Unlock() }()
	return fn()
}

// Update loads the graph under the lock, applies fn, and saves it back if fn
// reports a modification. This is the standard read-modify-write bracket for
// commands and the coordinator.
func Update(dir string, fn func(g *Graph) (bool, error)) error {
	return WithLock(dir, func() error {
		g, err := Load(Path(dir))
		if err != nil {
			return err
		}
		modified, err := fn(g)
		if err != nil {
			return err
		}
		if !modified {
			return nil
		}
		return Save(g, Path(dir))
	})
}
