package graph

import (
	"errors"
	"fmt"
	"time"
)

// ErrIllegalTransition indicates an operation forbidden in the task's
// current state.
var ErrIllegalTransition = errors.New("illegal transition")

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// Start moves an Open task to InProgress.
func Start(g *Graph, id, actor string) error {
	t, err := g.TaskOrErr(id)
	if err != nil {
		return err
	}
	if t.Status != StatusOpen {
		return fmt.Errorf("%w: cannot start task %q in status %s", ErrIllegalTransition, id, t.Status)
	}
	t.Status = StatusInProgress
	t.StartedAt = now()
	t.AppendLog(actor, "started")
	return nil
}

// Done completes an InProgress task. Tasks carrying a verify gate must go
// through Submit/Approve instead.
func Done(g *Graph, id, actor string) error {
	t, err := g.TaskOrErr(id)
	if err != nil {
		return err
	}
	switch t.Status {
	case StatusInProgress:
	case StatusOpen:
		// Agents routinely mark meta-tasks done without an explicit start.
		t.StartedAt = now()
	default:
		return fmt.Errorf("%w: cannot complete task %q in status %s", ErrIllegalTransition, id, t.Status)
	}
	if t.Verify != "" {
		return fmt.Errorf("%w: task %q has a verify gate; use submit", ErrIllegalTransition, id)
	}
	t.Status = StatusDone
	t.CompletedAt = now()
	t.AppendLog(actor, "completed")
	fireLoopEdges(g, t, actor)
	return nil
}

// fireLoopEdges re-opens loop targets after a completion. An edge fires
// while the source's iteration count is below max_iterations and its guard
// (if any) matches; a delay pushes the target's ready_after gate out.
func fireLoopEdges(g *Graph, t *Task, actor string) {
	for _, edge := range t.LoopsTo {
		if edge.Target == "" || edge.MaxIterations < 1 {
			continue
		}
		if t.LoopIteration >= edge.MaxIterations {
			continue
		}
		if edge.Guard != nil {
			guard := g.Task(edge.Guard.Task)
			if guard == nil || guard.Status != edge.Guard.Status {
				continue
			}
		}
		target := g.Task(edge.Target)
		if target == nil {
			continue
		}

		t.LoopIteration++
		target.Status = StatusOpen
		target.StartedAt = ""
		target.CompletedAt = ""
		if edge.Delay != "" {
			if d, err := time.ParseDuration(edge.Delay); err == nil {
				target.ReadyAfter = time.Now().UTC().Add(d).Format(time.RFC3339)
			}
		}
		target.AppendLog(actor, fmt.Sprintf("re-opened by loop from %s (iteration %d/%d)",
			t.ID, t.LoopIteration, edge.MaxIterations))
	}
}

// Fail moves an InProgress task to Failed with a reason.
func Fail(g *Graph, id, actor, reason string) error {
	t, err := g.TaskOrErr(id)
	if err != nil {
		return err
	}
	if t.Status != StatusInProgress && t.Status != StatusOpen {
		return fmt.Errorf("%w: cannot fail task %q in status %s", ErrIllegalTransition, id, t.Status)
	}
	t.Status = StatusFailed
	t.CompletedAt = now()
	t.FailureReason = reason
	if reason == "" {
		t.AppendLog(actor, "failed")
	} else {
		t.AppendLog(actor, "failed: "+reason)
	}
	return nil
}

// Submit moves an InProgress task with a verify gate to PendingReview.
func Submit(g *Graph, id, actor string) error {
	t, err := g.TaskOrErr(id)
	if err != nil {
		return err
	}
	if t.Status != StatusInProgress {
		return fmt.Errorf("%w: cannot submit task %q in status %s", ErrIllegalTransition, id, t.Status)
	}
	if t.Verify == "" {
		return fmt.Errorf("%w: task %q has no verify gate; use done", ErrIllegalTransition, id)
	}
	t.Status = StatusPendingReview
	t.AppendLog(actor, "submitted for review")
	return nil
}

// Approve moves a PendingReview task to Done.
func Approve(g *Graph, id, actor string) error {
	t, err := g.TaskOrErr(id)
	if err != nil {
		return err
	}
	if t.Status != StatusPendingReview {
		return fmt.Errorf("%w: cannot approve task %q in status %s", ErrIllegalTransition, id, t.Status)
	}
	t.Status = StatusDone
	t.CompletedAt = now()
	t.AppendLog(actor, "approved")
	fireLoopEdges(g, t, actor)
	return nil
}

// Reject sends a PendingReview task back to Open and bumps its retry count.
func Reject(g *Graph, id, actor, reason string) error {
	t, err := g.TaskOrErr(id)
	if err != nil {
		return err
	}
	if t.Status != StatusPendingReview {
		return fmt.Errorf("%w: cannot reject task %q in status %s", ErrIllegalTransition, id, t.Status)
	}
	t.Status = StatusOpen
	t.RetryCount++
	msg := fmt.Sprintf("rejected (retry %d)", t.RetryCount)
	if reason != "" {
		msg += ": " + reason
	}
	t.AppendLog(actor, msg)
	return nil
}

// Abandon moves an Open or InProgress task to Abandoned.
func Abandon(g *Graph, id, actor string) error {
	t, err := g.TaskOrErr(id)
	if err != nil {
		return err
	}
	if t.Status != StatusOpen && t.Status != StatusInProgress {
		return fmt.Errorf("%w: cannot abandon task %q in status %s", ErrIllegalTransition, id, t.Status)
	}
	t.Status = StatusAbandoned
	t.CompletedAt = now()
	t.AppendLog(actor, "abandoned")
	return nil
}

// Pause sets the paused flag on a task without changing its status.
func Pause(g *Graph, id, actor string) error {
	t, err := g.TaskOrErr(id)
	if err != nil {
		return err
	}
	if t.Status.IsTerminal() {
		return fmt.Errorf("%w: cannot pause task %q in status %s", ErrIllegalTransition, id, t.Status)
	}
	if t.Paused {
		return fmt.Errorf("%w: task %q is already paused", ErrIllegalTransition, id)
	}
	t.Paused = true
	t.AppendLog(actor, "paused")
	return nil
}

// Resume clears the paused flag.
func Resume(g *Graph, id, actor string) error {
	t, err := g.TaskOrErr(id)
	if err != nil {
		return err
	}
	if !t.Paused {
		return fmt.Errorf("%w: task %q is not paused", ErrIllegalTransition, id)
	}
	t.Paused = false
	t.AppendLog(actor, "resumed")
	return nil
}

// Assign sets a task's agent to a resolved agent id. An empty agentID
// clears the assignment.
func Assign(g *Graph, id, agentID, actor string) error {
	t, err := g.TaskOrErr(id)
	if err != nil {
		return err
	}
	if t.Status.IsTerminal() {
		return fmt.Errorf("%w: cannot assign task %q in status %s", ErrIllegalTransition, id, t.Status)
	}
	t.Agent = agentID
	if agentID == "" {
		t.AppendLog(actor, "agent cleared")
	} else {
		t.AppendLog(actor, "assigned agent "+agentID)
	}
	return nil
}
