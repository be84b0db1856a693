package graph

import (
	"errors"
	"testing"
)

func singleTaskGraph(t *Task) *Graph {
	g := New()
	g.AddTask(t)
	return g
}

func TestStartDoneLifecycle(t *testing.T) {
	task := makeTask("t1", "Work")
	g := singleTaskGraph(task)

	if err := Start(g, "t1", "alice"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if task.Status != StatusInProgress || task.StartedAt == "" {
		t.Fatalf("after start: %+v", task)
	}

	if err := Done(g, "t1", "alice"); err != nil {
		t.Fatalf("done: %v", err)
	}
	if task.Status != StatusDone || task.CompletedAt == "" {
		t.Fatalf("after done: %+v", task)
	}
	if len(task.Log) != 2 {
		t.Fatalf("log entries = %d, want 2", len(task.Log))
	}
}

func TestStartRequiresOpen(t *testing.T) {
	task := makeTask("t1", "Work")
	task.Status = StatusDone
	g := singleTaskGraph(task)

	err := Start(g, "t1", "")
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("want ErrIllegalTransition, got %v", err)
	}
}

func TestDoneBlockedByVerifyGate(t *testing.T) {
	task := makeTask("t1", "Gated")
	task.Status = StatusInProgress
	task.Verify = "unit tests pass"
	g := singleTaskGraph(task)

	if err := Done(g, "t1", ""); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("done on verify-gated task: %v", err)
	}

	if err := Submit(g, "t1", "agent"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if task.Status != StatusPendingReview {
		t.Fatalf("status = %s", task.Status)
	}

	if err := Approve(g, "t1", "reviewer"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if task.Status != StatusDone {
		t.Fatalf("status = %s", task.Status)
	}
}

func TestSubmitWithoutVerifyFails(t *testing.T) {
	task := makeTask("t1", "Plain")
	task.Status = StatusInProgress
	g := singleTaskGraph(task)

	if err := Submit(g, "t1", ""); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("submit without verify: %v", err)
	}
}

func TestRejectIncrementsRetryAndLogs(t *testing.T) {
	task := makeTask("t1", "Gated")
	task.Status = StatusPendingReview
	task.Verify = "review"
	g := singleTaskGraph(task)

	if err := Reject(g, "t1", "reviewer", "missing tests"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if task.Status != StatusOpen {
		t.Fatalf("status = %s, want open", task.Status)
	}
	if task.RetryCount != 1 {
		t.Fatalf("retry_count = %d, want 1", task.RetryCount)
	}
	if len(task.Log) != 1 {
		t.Fatal("reject must append a log entry")
	}
}

func TestFailRecordsReason(t *testing.T) {
	task := makeTask("t1", "Work")
	task.Status = StatusInProgress
	g := singleTaskGraph(task)

	if err := Fail(g, "t1", "agent", "timeout"); err != nil {
		t.Fatalf("fail: %v", err)
	}
	if task.Status != StatusFailed || task.FailureReason != "timeout" {
		t.Fatalf("after fail: %+v", task)
	}
}

func TestPauseResumeToggle(t *testing.T) {
	task := makeTask("t1", "Work")
	g := singleTaskGraph(task)

	if err := Pause(g, "t1", ""); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if !task.Paused || task.Status != StatusOpen {
		t.Fatalf("after pause: %+v", task)
	}

	if err := Pause(g, "t1", ""); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("double pause: %v", err)
	}

	if err := Resume(g, "t1", ""); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if task.Paused {
		t.Fatal("still paused")
	}

	if err := Resume(g, "t1", ""); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("double resume: %v", err)
	}
}

func TestAssignAndClear(t *testing.T) {
	task := makeTask("t1", "Work")
	g := singleTaskGraph(task)

	if err := Assign(g, "t1", "abc123", ""); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if task.Agent != "abc123" {
		t.Fatalf("agent = %s", task.Agent)
	}

	if err := Assign(g, "t1", "", ""); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if task.Agent != "" {
		t.Fatal("agent not cleared")
	}
}

func TestTerminalTasksAreImmutable(t *testing.T) {
	for _, status := range []Status{StatusDone, StatusFailed, StatusAbandoned} {
		task := makeTask("t1", "Frozen")
		task.Status = status
		g := singleTaskGraph(task)

		if err := Start(g, "t1", ""); !errors.Is(err, ErrIllegalTransition) {
			t.Fatalf("start on %s: %v", status, err)
		}
		if err := Pause(g, "t1", ""); !errors.Is(err, ErrIllegalTransition) {
			t.Fatalf("pause on %s: %v", status, err)
		}
		if err := Assign(g, "t1", "x", ""); !errors.Is(err, ErrIllegalTransition) {
			t.Fatalf("assign on %s: %v", status, err)
		}
	}
}

func TestOpsOnMissingTask(t *testing.T) {
	g := New()
	if err := Start(g, "ghost", ""); err == nil {
		t.Fatal("expected not-found error")
	}
}

func TestDoneFiresLoopEdge(t *testing.T) {
	g := New()
	target := makeTask("target", "Loop target")
	target.Status = StatusDone
	g.AddTask(target)

	source := makeTask("source", "Loop source")
	source.Status = StatusInProgress
	source.LoopsTo = []LoopEdge{{Target: "target", MaxIterations: 2}}
	g.AddTask(source)

	if err := Done(g, "source", ""); err != nil {
		t.Fatalf("done: %v", err)
	}
	if target.Status != StatusOpen {
		t.Fatalf("target = %s, want re-opened", target.Status)
	}
	if source.LoopIteration != 1 {
		t.Fatalf("loop_iteration = %d", source.LoopIteration)
	}
}

func TestLoopEdgeRespectsMaxIterations(t *testing.T) {
	g := New()
	target := makeTask("target", "T")
	target.Status = StatusDone
	g.AddTask(target)

	source := makeTask("source", "S")
	source.Status = StatusInProgress
	source.LoopIteration = 2
	source.LoopsTo = []LoopEdge{{Target: "target", MaxIterations: 2}}
	g.AddTask(source)

	if err := Done(g, "source", ""); err != nil {
		t.Fatal(err)
	}
	if target.Status != StatusDone {
		t.Fatalf("target = %s, loop at max must not fire", target.Status)
	}
}

func TestLoopEdgeGuard(t *testing.T) {
	g := New()
	guard := makeTask("guard", "Guard")
	guard.Status = StatusFailed
	g.AddTask(guard)

	target := makeTask("target", "T")
	target.Status = StatusDone
	g.AddTask(target)

	source := makeTask("source", "S")
	source.Status = StatusInProgress
	source.LoopsTo = []LoopEdge{{
		Target:        "target",
		MaxIterations: 3,
		Guard:         &LoopGuard{Task: "guard", Status: StatusDone},
	}}
	g.AddTask(source)

	if err := Done(g, "source", ""); err != nil {
		t.Fatal(err)
	}
	if target.Status != StatusDone {
		t.Fatal("unsatisfied guard must not fire")
	}
}

func TestSelfLoopReopensSource(t *testing.T) {
	g := New()
	source := makeTask("source", "Self loop")
	source.Status = StatusInProgress
	source.LoopsTo = []LoopEdge{{Target: "source", MaxIterations: 2}}
	g.AddTask(source)

	if err := Done(g, "source", ""); err != nil {
		t.Fatal(err)
	}
	if source.Status != StatusOpen {
		t.Fatalf("status = %s, self-loop should re-open", source.Status)
	}
	if source.LoopIteration != 1 {
		t.Fatalf("loop_iteration = %d", source.LoopIteration)
	}
}
