package coordinator

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nikete/workgraph/internal/graph"
	"github.com/nikete/workgraph/internal/registry"
)

func setupDir(t *testing.T, tasks ...*graph.Task) string {
	t.Helper()
	dir := t.TempDir()
	g := graph.New()
	for _, task := range tasks {
		g.AddTask(task)
	}
	if err := graph.Save(g, graph.Path(dir)); err != nil {
		t.Fatal(err)
	}
	return dir
}

func newCoordinator(t *testing.T, opts Options) *Coordinator {
	t.Helper()
	c, err := New(opts)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func openTask(id, title string) *graph.Task {
	return &graph.Task{ID: id, Title: title, Status: graph.StatusOpen}
}

func TestTickCreatesAssignSubgraph(t *testing.T) {
	dir := setupDir(t, openTask("t1", "Build the thing"))
	c := newCoordinator(t, Options{
		Dir:        dir,
		MaxAgents:  1,
		Executor:   "true",
		AutoAssign: true,
		Once:       true,
	})

	if err := c.Tick(); err != nil {
		t.Fatalf("tick: %v", err)
	}

	g, err := graph.Load(graph.Path(dir))
	if err != nil {
		t.Fatal(err)
	}
	assign := g.Task("assign-t1")
	if assign == nil {
		t.Fatal("assign-t1 not created")
	}
	if assign.Status != graph.StatusOpen {
		t.Fatalf("assign status = %s", assign.Status)
	}
	if len(assign.Blocks) != 1 || assign.Blocks[0] != "t1" {
		t.Fatalf("assign blocks = %v", assign.Blocks)
	}
	if len(assign.BlockedBy) != 0 {
		t.Fatalf("assign blocked_by = %v", assign.BlockedBy)
	}

	t1 := g.Task("t1")
	if !containsStr(t1.BlockedBy, "assign-t1") {
		t.Fatalf("t1 blocked_by = %v", t1.BlockedBy)
	}

	// t1 is unready until assignment completes.
	for _, ready := range graph.Ready(g, time.Now()) {
		if ready.ID == "t1" {
			t.Fatal("t1 still ready after assign subgraph")
		}
	}
}

func TestTickAssignSubgraphIsIdempotent(t *testing.T) {
	dir := setupDir(t, openTask("t1", "Build"))
	c := newCoordinator(t, Options{Dir: dir, MaxAgents: 1, Executor: "true", AutoAssign: true})

	if err := c.Tick(); err != nil {
		t.Fatal(err)
	}
	if err := c.Tick(); err != nil {
		t.Fatal(err)
	}

	g, _ := graph.Load(graph.Path(dir))
	t1 := g.Task("t1")
	count := 0
	for _, b := range t1.BlockedBy {
		if b == "assign-t1" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("blocked_by = %v, want exactly one assign edge", t1.BlockedBy)
	}
}

func TestTickRespectsSlotLimit(t *testing.T) {
	dir := setupDir(t, openTask("t1", "Build"))

	// One live agent (our own PID) fills the only slot.
	reg := &registry.Registry{Agents: map[string]*registry.Entry{}}
	e := registry.NewEntry(os.Getpid(), "other", "true", "")
	reg.Agents[e.ID] = e
	if err := registry.Save(dir, reg); err != nil {
		t.Fatal(err)
	}

	c := newCoordinator(t, Options{Dir: dir, MaxAgents: 1, Executor: "true", AutoAssign: true})
	if err := c.Tick(); err != nil {
		t.Fatal(err)
	}

	// At the cap the tick returns before any subgraph mutation.
	g, _ := graph.Load(graph.Path(dir))
	if g.Task("assign-t1") != nil {
		t.Fatal("subgraph built despite full slots")
	}
}

func TestTickSkipsHumanAssignedTasks(t *testing.T) {
	claimed := openTask("t1", "Claimed")
	claimed.Assigned = "alice"
	dir := setupDir(t, claimed)

	c := newCoordinator(t, Options{Dir: dir, MaxAgents: 2, Executor: "true"})
	if err := c.Tick(); err != nil {
		t.Fatal(err)
	}

	reg, err := registry.Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(reg.Agents) != 0 {
		t.Fatal("spawned on a human-claimed task")
	}
}

func TestTickBuildsRewardSubgraph(t *testing.T) {
	done := &graph.Task{ID: "t1", Title: "Finished", Status: graph.StatusDone, Agent: "abc123"}
	dir := setupDir(t, done)

	c := newCoordinator(t, Options{Dir: dir, MaxAgents: 1, Executor: "true", AutoReward: true})
	if err := c.Tick(); err != nil {
		t.Fatal(err)
	}

	g, _ := graph.Load(graph.Path(dir))
	reward := g.Task("reward-t1")
	if reward == nil {
		t.Fatal("reward-t1 not created")
	}
	if !containsStr(reward.Tags, "reward") {
		t.Fatalf("tags = %v", reward.Tags)
	}
	if !strings.Contains(reward.Description, "wg reward t1") {
		t.Fatalf("description = %q", reward.Description)
	}
}

func TestRewardSubgraphSkipsAgentlessAndMetaTasks(t *testing.T) {
	agentless := &graph.Task{ID: "t1", Title: "No agent", Status: graph.StatusDone}
	meta := &graph.Task{ID: "assign-t2", Title: "Meta", Status: graph.StatusDone, Agent: "abc"}
	dir := setupDir(t, agentless, meta)

	c := newCoordinator(t, Options{Dir: dir, MaxAgents: 1, Executor: "true", AutoReward: true})
	if err := c.Tick(); err != nil {
		t.Fatal(err)
	}

	g, _ := graph.Load(graph.Path(dir))
	if g.Task("reward-t1") != nil {
		t.Fatal("reward for agentless task")
	}
	if g.Task("reward-assign-t2") != nil {
		t.Fatal("reward for meta-task")
	}
}

func TestAssignDescriptionTemplate(t *testing.T) {
	task := openTask("t1", "Build the parser")
	task.Description = "Use the existing grammar."
	task.Skills = []string{"go", "parsing"}

	desc := assignDescription(task)

	for _, want := range []string{
		"Assign an agent to task 't1'.",
		"## Original Task",
		"**Title:** Build the parser",
		"**Description:** Use the existing grammar.",
		"**Skills:** go, parsing",
		"## Instructions",
		"Inspect the identity store with `wg agent list`, `wg role list`, etc.",
		"wg assign t1 <agent-hash>",
		"wg done assign-t1",
	} {
		if !strings.Contains(desc, want) {
			t.Fatalf("description missing %q:\n%s", want, desc)
		}
	}

	// Optional lines are omitted when absent.
	bare := openTask("t2", "Bare")
	bareDesc := assignDescription(bare)
	if strings.Contains(bareDesc, "**Description:**") || strings.Contains(bareDesc, "**Skills:**") {
		t.Fatalf("bare description has optional lines:\n%s", bareDesc)
	}
}

func TestSpawnArchivesPromptAndRegistersAgent(t *testing.T) {
	dir := setupDir(t, openTask("t1", "Spawn me"))
	c := newCoordinator(t, Options{Dir: dir, MaxAgents: 1, Executor: "true"})

	if err := c.Tick(); err != nil {
		t.Fatal(err)
	}

	reg, err := registry.Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(reg.Agents) != 1 {
		t.Fatalf("registry entries = %d", len(reg.Agents))
	}
	var entry *registry.Entry
	for _, e := range reg.Agents {
		entry = e
	}
	if entry.TaskID != "t1" || entry.PID == 0 {
		t.Fatalf("entry = %+v", entry)
	}

	// Prompt archive exists under log/agents/t1/<ts>/.
	archives, err := os.ReadDir(filepath.Join(dir, "log", "agents", "t1"))
	if err != nil || len(archives) != 1 {
		t.Fatalf("archives = %v, err %v", archives, err)
	}
	prompt, err := os.ReadFile(filepath.Join(dir, "log", "agents", "t1", archives[0].Name(), "prompt.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(prompt), "Spawn me") {
		t.Fatalf("prompt = %q", prompt)
	}
}

func TestSpawnFailureDoesNotAbortTick(t *testing.T) {
	dir := setupDir(t,
		openTask("t1", "Bad executor"),
		openTask("t2", "Good"),
	)
	g, _ := graph.Load(graph.Path(dir))
	g.Task("t1").Exec = "/no/such/binary"
	if err := graph.Save(g, graph.Path(dir)); err != nil {
		t.Fatal(err)
	}

	c := newCoordinator(t, Options{Dir: dir, MaxAgents: 2, Executor: "true"})
	if err := c.Tick(); err != nil {
		t.Fatalf("tick must survive spawn failure: %v", err)
	}

	reg, _ := registry.Load(dir)
	if len(reg.Agents) != 1 {
		t.Fatalf("registry entries = %d, want the one good spawn", len(reg.Agents))
	}
}

func TestInstallService(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := setupDir(t, openTask("t1", "X"))

	unitPath, err := InstallService(dir)
	if err != nil {
		t.Fatalf("install: %v", err)
	}
	data, err := os.ReadFile(unitPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "Workgraph Coordinator") {
		t.Fatalf("unit = %s", data)
	}
	if !strings.Contains(string(data), "coordinator --dir") {
		t.Fatalf("unit = %s", data)
	}
}

func containsStr(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
