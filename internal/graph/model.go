// Package graph provides the work-graph data model: tasks, resources, loop
// edges, and the in-memory graph that commands and the coordinator operate on.
package graph

import (
	"encoding/json"
	"fmt"
	"time"
)

// LogEntry is one timestamped line in a task's append-only log.
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Actor     string `json:"actor,omitempty"`
	Message   string `json:"message"`
}

// LoopGuard gates a loop edge on another task's status.
type LoopGuard struct {
	Task   string `json:"task"`
	Status Status `json:"status"`
}

// LoopEdge re-opens a target task when its source completes, bounded by
// MaxIterations. A nil Guard is unconditional.
type LoopEdge struct {
	Target        string     `json:"target"`
	Guard         *LoopGuard `json:"guard,omitempty"`
	MaxIterations int        `json:"max_iterations"`
	Delay         string     `json:"delay,omitempty"`
}

// Task is a node of work in the graph.
type Task struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Status      Status `json:"status"`

	// Assigned is a human actor; Agent is a content-addressed agent hash.
	Assigned string `json:"assigned,omitempty"`
	Agent    string `json:"agent,omitempty"`

	BlockedBy []string `json:"blocked_by,omitempty"`
	Blocks    []string `json:"blocks,omitempty"`
	Requires  []string `json:"requires,omitempty"`

	Skills       []string `json:"skills,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	Inputs       []string `json:"inputs,omitempty"`
	Deliverables []string `json:"deliverables,omitempty"`
	Artifacts    []string `json:"artifacts,omitempty"`

	Estimate string `json:"estimate,omitempty"`
	Exec     string `json:"exec,omitempty"`
	Model    string `json:"model,omitempty"`

	CreatedAt   string `json:"created_at,omitempty"`
	StartedAt   string `json:"started_at,omitempty"`
	CompletedAt string `json:"completed_at,omitempty"`
	NotBefore   string `json:"not_before,omitempty"`
	ReadyAfter  string `json:"ready_after,omitempty"`

	RetryCount    int    `json:"retry_count,omitempty"`
	MaxRetries    *int   `json:"max_retries,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`

	Verify string `json:"verify,omitempty"`

	LoopsTo       []LoopEdge `json:"loops_to,omitempty"`
	LoopIteration int        `json:"loop_iteration,omitempty"`

	Paused bool `json:"paused,omitempty"`

	Log []LogEntry `json:"log,omitempty"`
}

// AppendLog adds a timestamped entry to the task's log.
func (t *Task) AppendLog(actor, message string) {
	t.Log = append(t.Log, LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Actor:     actor,
		Message:   message,
	})
}

// Resource is a named shared facility referenced by task requires edges.
type Resource struct {
	ID          string `json:"id"`
	Description string `json:"description,omitempty"`
}

// Node kinds as stored in the graph file.
const (
	KindTask     = "task"
	KindResource = "resource"
)

// Node is one record in graph.jsonl: either a task or a resource.
type Node struct {
	Task     *Task
	Resource *Resource
}

// ID returns the node's identifier regardless of kind.
func (n Node) ID() string {
	if n.Task != nil {
		return n.Task.ID
	}
	if n.Resource != nil {
		return n.Resource.ID
	}
	return ""
}

// MarshalJSON emits the node with its kind discriminator inlined.
func (n Node) MarshalJSON() ([]byte, error) {
	switch {
	case n.Task != nil:
		type taskAlias Task
		return json.Marshal(struct {
			Kind string `json:"kind"`
			*taskAlias
		}{KindTask, (*taskAlias)(n.Task)})
	case n.Resource != nil:
		type resourceAlias Resource
		return json.Marshal(struct {
			Kind string `json:"kind"`
			*resourceAlias
		}{KindResource, (*resourceAlias)(n.Resource)})
	}
	return nil, fmt.Errorf("empty node")
}

// UnmarshalJSON dispatches on the kind discriminator.
func (n *Node) UnmarshalJSON(data []byte) error {
	var kind struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(data, &kind); err != nil {
		return err
	}
	switch kind.Kind {
	case KindTask, "":
		// Records written before the resource kind existed carry no
		// discriminator; treat them as tasks.
		var t Task
		if err := json.Unmarshal(data, &t); err != nil {
			return err
		}
		n.Task = &t
	case KindResource:
		var r Resource
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		n.Resource = &r
	default:
		return fmt.Errorf("unknown node kind %q", kind.Kind)
	}
	return nil
}

// Graph holds every node in file order. Insertion order is preserved on
// save, so graph.jsonl is stable under load/save round trips.
type Graph struct {
	nodes []Node
	index map[string]int
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{index: make(map[string]int)}
}

// AddNode appends a node, replacing any existing node with the same id.
func (g *Graph) AddNode(n Node) {
	id := n.ID()
	if i, ok := g.index[id]; ok {
		g.nodes[i] = n
		return
	}
	g.index[id] = len(g.nodes)
	g.nodes = append(g.nodes, n)
}

// AddTask appends a task node.
func (g *Graph) AddTask(t *Task) {
	g.AddNode(Node{Task: t})
}

// RemoveNode deletes the node with the given id, preserving order of the rest.
func (g *Graph) RemoveNode(id string) bool {
	i, ok := g.index[id]
	if !ok {
		return false
	}
	g.nodes = append(g.nodes[:i], g.nodes[i+1:]...)
	delete(g.index, id)
	for j := i; j < len(g.nodes); j++ {
		g.index[g.nodes[j].ID()] = j
	}
	return true
}

// Nodes returns the nodes in insertion order. The slice is shared; callers
// must not append to it.
func (g *Graph) Nodes() []Node {
	return g.nodes
}

// Tasks returns every task in insertion order.
func (g *Graph) Tasks() []*Task {
	var out []*Task
	for _, n := range g.nodes {
		if n.Task != nil {
			out = append(out, n.Task)
		}
	}
	return out
}

// Resources returns every resource in insertion order.
func (g *Graph) Resources() []*Resource {
	var out []*Resource
	for _, n := range g.nodes {
		if n.Resource != nil {
			out = append(out, n.Resource)
		}
	}
	return out
}

// Task returns the task with the given id, or nil.
func (g *Graph) Task(id string) *Task {
	if i, ok := g.index[id]; ok {
		return g.nodes[i].Task
	}
	return nil
}

// Resource returns the resource with the given id, or nil.
func (g *Graph) Resource(id string) *Resource {
	if i, ok := g.index[id]; ok {
		return g.nodes[i].Resource
	}
	return nil
}

// TaskOrErr returns the task with the given id or a NotFound-style error.
func (g *Graph) TaskOrErr(id string) (*Task, error) {
	t := g.Task(id)
	if t == nil {
		return nil, fmt.Errorf("task %q not found", id)
	}
	return t, nil
}

// HasNode reports whether any node (task or resource) has the given id.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.index[id]
	return ok
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}
