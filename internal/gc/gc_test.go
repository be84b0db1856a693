package gc

import (
	"testing"

	"github.com/nikete/workgraph/internal/graph"
)

func task(id string, status graph.Status, blockedBy ...string) *graph.Task {
	return &graph.Task{ID: id, Title: "Task " + id, Status: status, BlockedBy: blockedBy}
}

func build(tasks ...*graph.Task) *graph.Graph {
	g := graph.New()
	for _, t := range tasks {
		g.AddTask(t)
	}
	return g
}

func TestCollectAbandonedWithoutDependents(t *testing.T) {
	g := build(
		task("a", graph.StatusAbandoned),
		task("b", graph.StatusOpen),
	)
	got := Collect(g, false)
	if len(got) != 1 || got[0] != "a" {
		t.Fatalf("collect = %v", got)
	}
}

func TestCollectSkipsDoneWithoutFlag(t *testing.T) {
	g := build(task("d", graph.StatusDone))
	if got := Collect(g, false); len(got) != 0 {
		t.Fatalf("collect = %v, done needs --include-done", got)
	}
	if got := Collect(g, true); len(got) != 1 {
		t.Fatalf("collect = %v", got)
	}
}

func TestCollectPreservesOpenDependents(t *testing.T) {
	// A=Failed, B=Open blocked by A: both must remain.
	g := build(
		task("A", graph.StatusFailed),
		task("B", graph.StatusOpen, "A"),
	)
	if got := Collect(g, false); len(got) != 0 {
		t.Fatalf("collect = %v, open dependent must protect A", got)
	}

	// After B is abandoned, both are collectible.
	g.Task("B").Status = graph.StatusAbandoned
	got := Collect(g, false)
	if len(got) != 2 {
		t.Fatalf("collect = %v, want both", got)
	}
}

func TestCollectMetaTasksFollowParent(t *testing.T) {
	g := build(
		task("t1", graph.StatusFailed),
		task("assign-t1", graph.StatusDone),
	)
	got := Collect(g, false)
	if len(got) != 2 {
		t.Fatalf("collect = %v, want parent and meta", got)
	}
}

func TestCollectOrphanedMetaTask(t *testing.T) {
	// Parent is gone; the terminal meta-task is still collectible even
	// though it is Done and include_done is off.
	g := build(task("reward-gone", graph.StatusDone))
	got := Collect(g, false)
	if len(got) != 1 || got[0] != "reward-gone" {
		t.Fatalf("collect = %v", got)
	}
}

func TestCollectKeepsMetaWithOpenDependent(t *testing.T) {
	g := build(
		task("assign-t1", graph.StatusDone),
		task("t1", graph.StatusOpen, "assign-t1"),
	)
	if got := Collect(g, false); len(got) != 0 {
		t.Fatalf("collect = %v, meta blocking an open task must stay", got)
	}
}

func TestApplyRemovesAndReports(t *testing.T) {
	g := build(
		task("a", graph.StatusFailed),
		task("b", graph.StatusOpen),
	)
	removed := Apply(g, []string{"a"})
	if len(removed) != 1 || removed[0].ID != "a" || removed[0].Status != "Failed" {
		t.Fatalf("removed = %+v", removed)
	}
	if g.Task("a") != nil {
		t.Fatal("a still in graph")
	}
	if g.Task("b") == nil {
		t.Fatal("b lost")
	}
}
