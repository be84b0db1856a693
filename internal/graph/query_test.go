package graph

import (
	"testing"
	"time"
)

func TestReadyBasics(t *testing.T) {
	g := New()
	open := makeTask("t1", "Open task")
	g.AddTask(open)

	inProgress := makeTask("t2", "Busy")
	inProgress.Status = StatusInProgress
	g.AddTask(inProgress)

	paused := makeTask("t3", "Paused")
	paused.Paused = true
	g.AddTask(paused)

	ready := Ready(g, time.Now())
	if len(ready) != 1 || ready[0].ID != "t1" {
		t.Fatalf("ready = %v", ids(ready))
	}
}

func TestReadyRequiresDoneBlockers(t *testing.T) {
	g := New()
	blocker := makeTask("b", "Blocker")
	g.AddTask(blocker)
	blocked := makeTask("t", "Blocked")
	blocked.BlockedBy = []string{"b"}
	g.AddTask(blocked)

	if got := ids(Ready(g, time.Now())); len(got) != 1 || got[0] != "b" {
		t.Fatalf("ready = %v, want [b]", got)
	}

	// Failed blocker does not unblock; only Done does.
	blocker.Status = StatusFailed
	if got := ids(Ready(g, time.Now())); len(got) != 0 {
		t.Fatalf("ready = %v, want none", got)
	}

	blocker.Status = StatusDone
	if got := ids(Ready(g, time.Now())); len(got) != 1 || got[0] != "t" {
		t.Fatalf("ready = %v, want [t]", got)
	}
}

func TestReadyTimeGates(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	g := New()

	future := makeTask("future", "Not yet")
	future.NotBefore = now.Add(time.Hour).Format(time.RFC3339)
	g.AddTask(future)

	past := makeTask("past", "Ready")
	past.ReadyAfter = now.Add(-time.Hour).Format(time.RFC3339)
	g.AddTask(past)

	if got := ids(Ready(g, now)); len(got) != 1 || got[0] != "past" {
		t.Fatalf("ready = %v, want [past]", got)
	}
}

func TestReadyIgnoresLoopState(t *testing.T) {
	g := New()
	looper := makeTask("looper", "Loops")
	looper.LoopsTo = []LoopEdge{{Target: "looper", MaxIterations: 3}}
	looper.LoopIteration = 2
	g.AddTask(looper)

	if got := ids(Ready(g, time.Now())); len(got) != 1 {
		t.Fatalf("ready = %v, loop state must not gate readiness", got)
	}
}

func TestReadyPreservesInsertionOrder(t *testing.T) {
	g := New()
	g.AddTask(makeTask("z", "Z"))
	g.AddTask(makeTask("a", "A"))
	got := ids(Ready(g, time.Now()))
	if len(got) != 2 || got[0] != "z" || got[1] != "a" {
		t.Fatalf("ready = %v, want [z a]", got)
	}
}

func TestCheckAllOrphans(t *testing.T) {
	g := New()
	task := makeTask("t", "T")
	task.BlockedBy = []string{"ghost"}
	task.Requires = []string{"gpu"}
	g.AddTask(task)
	g.AddNode(Node{Resource: &Resource{ID: "gpu"}})

	report := CheckAll(g)
	if len(report.Orphans) != 1 {
		t.Fatalf("orphans = %+v", report.Orphans)
	}
	if report.Orphans[0].From != "t" || report.Orphans[0].To != "ghost" {
		t.Fatalf("orphan = %+v", report.Orphans[0])
	}
}

func TestCheckAllCycles(t *testing.T) {
	g := New()
	a := makeTask("a", "A")
	a.BlockedBy = []string{"b"}
	b := makeTask("b", "B")
	b.BlockedBy = []string{"a"}
	g.AddTask(a)
	g.AddTask(b)

	report := CheckAll(g)
	if len(report.Cycles) != 1 || len(report.Cycles[0]) != 2 {
		t.Fatalf("cycles = %v", report.Cycles)
	}
}

func TestCheckAllSelfEdgeCycle(t *testing.T) {
	g := New()
	a := makeTask("a", "A")
	a.BlockedBy = []string{"a"}
	g.AddTask(a)

	report := CheckAll(g)
	if len(report.Cycles) != 1 {
		t.Fatalf("cycles = %v, want the self-edge", report.Cycles)
	}
}

func TestCheckAllLoopEdgeIssues(t *testing.T) {
	g := New()
	src := makeTask("source", "Loops to itself")
	src.LoopsTo = []LoopEdge{{Target: "source", MaxIterations: 10}}
	g.AddTask(src)

	report := CheckAll(g)
	if len(report.LoopIssues) == 0 {
		t.Fatal("self-loop must be flagged")
	}
	foundSelf := false
	for _, issue := range report.LoopIssues {
		if issue.Problem == "self-loop" {
			foundSelf = true
		}
	}
	if !foundSelf {
		t.Fatalf("issues = %+v, want a self-loop flag", report.LoopIssues)
	}
}

func TestCheckAllLoopEdgeZeroIterations(t *testing.T) {
	g := New()
	tgt := makeTask("tgt", "Target")
	src := makeTask("src", "Source")
	src.LoopsTo = []LoopEdge{{Target: "tgt", MaxIterations: 0}}
	g.AddTask(tgt)
	g.AddTask(src)

	report := CheckAll(g)
	if len(report.LoopIssues) != 1 {
		t.Fatalf("issues = %+v", report.LoopIssues)
	}
}

func TestCheckAllMissingGuardTask(t *testing.T) {
	g := New()
	tgt := makeTask("tgt", "Target")
	src := makeTask("src", "Source")
	src.LoopsTo = []LoopEdge{{
		Target:        "tgt",
		MaxIterations: 2,
		Guard:         &LoopGuard{Task: "ghost", Status: StatusDone},
	}}
	g.AddTask(tgt)
	g.AddTask(src)

	report := CheckAll(g)
	if len(report.LoopIssues) != 1 {
		t.Fatalf("issues = %+v", report.LoopIssues)
	}
}

func ids(tasks []*Task) []string {
	var out []string
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}
