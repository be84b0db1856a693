package graph

import "time"

// Ready returns, in graph insertion order, every Open unpaused task whose
// blockers are all Done and whose time gates have elapsed.
//
// Loop meta-state never makes a task unready on its own; only status,
// paused, blocked_by, not_before and ready_after are consulted.
func Ready(g *Graph, now time.Time) []*Task {
	var out []*Task
	for _, t := range g.Tasks() {
		if t.Status != StatusOpen || t.Paused {
			continue
		}
		if !timeGateOpen(t.NotBefore, now) || !timeGateOpen(t.ReadyAfter, now) {
			continue
		}
		blocked := false
		for _, id := range t.BlockedBy {
			b := g.Task(id)
			if b == nil || b.Status != StatusDone {
				blocked = true
				break
			}
		}
		if !blocked {
			out = append(out, t)
		}
	}
	return out
}

// timeGateOpen reports whether an RFC3339 gate is unset or in the past.
// Unparseable gates are treated as open so a malformed timestamp cannot
// wedge a task forever.
func timeGateOpen(gate string, now time.Time) bool {
	if gate == "" {
		return true
	}
	ts, err := time.Parse(time.RFC3339, gate)
	if err != nil {
		return true
	}
	return !ts.After(now)
}

// OrphanRef is a dependency edge pointing at a node that does not exist.
type OrphanRef struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// LoopIssue describes a problem with a loop edge. Self-loops are flagged
// but not forbidden; callers decide whether to act on them.
type LoopIssue struct {
	Task    string `json:"task"`
	Target  string `json:"target"`
	Problem string `json:"problem"`
}

// CheckReport is the result of CheckAll.
type CheckReport struct {
	Orphans    []OrphanRef `json:"orphans"`
	Cycles     [][]string  `json:"cycles"`
	LoopIssues []LoopIssue `json:"loop_issues"`
}

// Clean reports whether the check found nothing.
func (r CheckReport) Clean() bool {
	return len(r.Orphans) == 0 && len(r.Cycles) == 0 && len(r.LoopIssues) == 0
}

// CheckAll validates the graph: orphaned blocked_by/requires references,
// dependency cycles (strongly connected components of size > 1 plus
// self-edges), and malformed loop edges.
func CheckAll(g *Graph) CheckReport {
	var report CheckReport

	for _, t := range g.Tasks() {
		for _, to := range t.BlockedBy {
			if !g.HasNode(to) {
				report.Orphans = append(report.Orphans, OrphanRef{From: t.ID, To: to})
			}
		}
		for _, to := range t.Requires {
			if !g.HasNode(to) {
				report.Orphans = append(report.Orphans, OrphanRef{From: t.ID, To: to})
			}
		}

		for _, edge := range t.LoopsTo {
			switch {
			case edge.Target == "":
				report.LoopIssues = append(report.LoopIssues, LoopIssue{
					Task: t.ID, Problem: "loop edge has no target",
				})
			case g.Task(edge.Target) == nil:
				report.LoopIssues = append(report.LoopIssues, LoopIssue{
					Task: t.ID, Target: edge.Target, Problem: "loop target does not exist",
				})
			}
			if edge.MaxIterations == 0 {
				report.LoopIssues = append(report.LoopIssues, LoopIssue{
					Task: t.ID, Target: edge.Target, Problem: "max_iterations is 0",
				})
			}
			if edge.Guard != nil && g.Task(edge.Guard.Task) == nil {
				report.LoopIssues = append(report.LoopIssues, LoopIssue{
					Task: t.ID, Target: edge.Target, Problem: "guard task does not exist",
				})
			}
			if edge.Target == t.ID {
				report.LoopIssues = append(report.LoopIssues, LoopIssue{
					Task: t.ID, Target: edge.Target, Problem: "self-loop",
				})
			}
		}
	}

	report.Cycles = findCycles(g)
	return report
}

// findCycles runs Tarjan's algorithm over the blocked_by graph and returns
// components of size > 1 plus single-node self-edges.
func findCycles(g *Graph) [][]string {
	tasks := g.Tasks()
	index := make(map[string]int, len(tasks))
	lowlink := make(map[string]int, len(tasks))
	onStack := make(map[string]bool, len(tasks))
	var stack []string
	next := 0
	var cycles [][]string

	var strongconnect func(t *Task)
	strongconnect = func(t *Task) {
		index[t.ID] = next
		lowlink[t.ID] = next
		next++
		stack = append(stack, t.ID)
		onStack[t.ID] = true

		for _, dep := range t.BlockedBy {
			d := g.Task(dep)
			if d == nil {
				continue
			}
			if _, seen := index[dep]; !seen {
				strongconnect(d)
				if lowlink[dep] < lowlink[t.ID] {
					lowlink[t.ID] = lowlink[dep]
				}
			} else if onStack[dep] {
				if index[dep] < lowlink[t.ID] {
					lowlink[t.ID] = index[dep]
				}
			}
		}

		if lowlink[t.ID] == index[t.ID] {
			var comp []string
			for {
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[top] = false
				comp = append(comp, top)
				if top == t.ID {
					break
				}
			}
			if len(comp) > 1 {
				cycles = append(cycles, comp)
			} else if hasSelfEdge(g.Task(comp[0])) {
				cycles = append(cycles, comp)
			}
		}
	}

	for _, t := range tasks {
		if _, seen := index[t.ID]; !seen {
			strongconnect(t)
		}
	}
	return cycles
}

func hasSelfEdge(t *Task) bool {
	if t == nil {
		return false
	}
	for _, dep := range t.BlockedBy {
		if dep == t.ID {
			return true
		}
	}
	return false
}
