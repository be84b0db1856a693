// Package gc removes terminal tasks from the graph once nothing open
// depends on them.
package gc

import (
	"sort"
	"strings"

	"github.com/nikete/workgraph/internal/graph"
)

// MetaPrefixes are the coordinator-generated task prefixes collected
// alongside their parent task.
var MetaPrefixes = []string{"assign-", "reward-"}

// Collect returns the ids of tasks eligible for garbage collection, sorted.
//
// A task is eligible when it is terminal (Failed/Abandoned, plus Done with
// includeDone) and no non-terminal task lists it in blocked_by. Meta-tasks
// follow their parent, and any other terminal meta-task that no
// non-terminal task lists in blocked_by is collected too, whether or not
// its parent is still present.
func Collect(g *graph.Graph, includeDone bool) []string {
	tasks := g.Tasks()

	// Ids needed by some non-terminal task.
	openBlockers := map[string]bool{}
	for _, t := range tasks {
		if t.Status.IsTerminal() {
			continue
		}
		for _, b := range t.BlockedBy {
			openBlockers[b] = true
		}
	}

	eligible := map[string]bool{}
	for _, t := range tasks {
		if !t.Status.IsTerminal() {
			continue
		}
		if t.Status == graph.StatusDone && !includeDone {
			continue
		}
		if openBlockers[t.ID] {
			continue
		}
		eligible[t.ID] = true
	}

	// Meta-tasks whose parent is being collected.
	for _, t := range tasks {
		for _, prefix := range MetaPrefixes {
			parent, ok := strings.CutPrefix(t.ID, prefix)
			if ok && eligible[parent] && t.Status.IsTerminal() {
				eligible[t.ID] = true
			}
		}
	}

	// Orphaned terminal meta-tasks: nothing open depends on them. The
	// parent's presence is not checked.
	for _, t := range tasks {
		if eligible[t.ID] || !t.Status.IsTerminal() || openBlockers[t.ID] {
			continue
		}
		for _, prefix := range MetaPrefixes {
			if strings.HasPrefix(t.ID, prefix) {
				eligible[t.ID] = true
				break
			}
		}
	}

	ids := make([]string, 0, len(eligible))
	for id := range eligible {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Removed describes one collected task for provenance.
type Removed struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Title  string `json:"title"`
}

// Apply removes the given ids from the graph and returns their details.
func Apply(g *graph.Graph, ids []string) []Removed {
	details := make([]Removed, 0, len(ids))
	for _, id := range ids {
		if t := g.Task(id); t != nil {
			details = append(details, Removed{ID: t.ID, Status: t.Status.Title(), Title: t.Title})
		}
		g.RemoveNode(id)
	}
	return details
}
