// Package coordinator runs the periodic loop that builds assignment and
// reward subgraphs, spawns agents on ready tasks, and accounts for agent
// slots.
package coordinator

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nikete/workgraph/internal/config"
	"github.com/nikete/workgraph/internal/graph"
	"github.com/nikete/workgraph/internal/provenance"
	"github.com/nikete/workgraph/internal/registry"
)

// Options configures a coordinator. FromConfig fills it from the merged
// config; Options itself applies no defaults to zero fields.
type Options struct {
	Dir        string
	Interval   time.Duration
	MaxAgents  int
	Executor   string
	AutoAssign bool
	AutoReward bool
	Once       bool

	// RotationThreshold is passed through to provenance records.
	RotationThreshold int64

	// HeartbeatThreshold bounds registry liveness; zero disables the
	// heartbeat check.
	HeartbeatThreshold time.Duration
}

// Coordinator drives the tick loop for one workgraph directory.
type Coordinator struct {
	opts   Options
	logger *log.Logger
}

// New creates a coordinator logging to service/coordinator.log and stdout.
func New(opts Options) (*Coordinator, error) {
	logDir := filepath.Join(opts.Dir, "service")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("creating service directory: %w", err)
	}
	logFile, err := os.OpenFile(filepath.Join(logDir, "coordinator.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("opening coordinator log: %w", err)
	}
	return &Coordinator{
		opts:   opts,
		logger: log.New(multiWriter{logFile}, "", log.LstdFlags),
	}, nil
}

// multiWriter tees coordinator output to the log file and stdout.
type multiWriter struct {
	file *os.File
}

func (w multiWriter) Write(p []byte) (int, error) {
	os.Stdout.Write(p)
	return w.file.Write(p)
}

// FromConfig builds options from the merged config, with CLI overrides
// applied where non-zero.
func FromConfig(dir string, cfg *config.Config, cliInterval, cliMaxAgents int, cliExecutor string) Options {
	opts := Options{
		Dir:               dir,
		Interval:          time.Duration(cfg.Coordinator.Interval) * time.Second,
		MaxAgents:         cfg.Coordinator.MaxAgents,
		Executor:          cfg.Coordinator.Executor,
		AutoAssign:        cfg.Identity.AutoAssign,
		AutoReward:        cfg.Identity.AutoReward,
		RotationThreshold: cfg.Log.RotationThreshold,
	}
	if cliInterval > 0 {
		opts.Interval = time.Duration(cliInterval) * time.Second
	}
	if cliMaxAgents > 0 {
		opts.MaxAgents = cliMaxAgents
	}
	if cliExecutor != "" {
		opts.Executor = cliExecutor
	}
	return opts
}

// Run executes the loop: one tick, then sleep for the interval, until the
// process is stopped. With Once set, exactly one tick runs. Tick errors
// are logged and do not stop the loop.
func (c *Coordinator) Run() error {
	if _, err := os.Stat(graph.Path(c.opts.Dir)); err != nil {
		return fmt.Errorf("workgraph not initialized; run 'wg init' first")
	}

	c.logger.Printf("coordinator starting (interval: %s, max agents: %d, executor: %s)",
		c.opts.Interval, c.opts.MaxAgents, c.opts.Executor)

	for {
		if err := c.Tick(); err != nil {
			c.logger.Printf("tick error: %v", err)
		}
		if c.opts.Once {
			c.logger.Printf("single run complete")
			return nil
		}
		time.Sleep(c.opts.Interval)
	}
}

// Tick performs one coordinator pass. Work within a tick is strictly
// sequential: subgraph construction, then spawning, then return.
func (c *Coordinator) Tick() error {
	dir := c.opts.Dir

	reg, err := registry.Load(dir)
	if err != nil {
		return err
	}
	aliveCount := len(reg.Alive(c.opts.HeartbeatThreshold))

	if aliveCount >= c.opts.MaxAgents {
		c.logger.Printf("max agents (%d) running, waiting...", c.opts.MaxAgents)
		return nil
	}

	// Dead agents are reported; record removal is deferred to the explicit
	// cleanup command.
	if dead := reg.Dead(c.opts.HeartbeatThreshold); len(dead) > 0 {
		c.logger.Printf("%d dead agent record(s); run 'wg agents cleanup' to remove", len(dead))
	}

	slotsAvailable := c.opts.MaxAgents - aliveCount

	if c.opts.AutoAssign || c.opts.AutoReward {
		if err := c.buildSubgraphs(); err != nil {
			return err
		}
	}

	// Re-read the ready set: it now includes freshly created assign-*
	// meta-tasks and excludes tasks they block.
	g, err := graph.Load(graph.Path(dir))
	if err != nil {
		return err
	}
	ready := graph.Ready(g, time.Now())

	if len(ready) == 0 {
		done, total := 0, 0
		for _, t := range g.Tasks() {
			total++
			if t.Status == graph.StatusDone {
				done++
			}
		}
		if total > 0 && done == total {
			c.logger.Printf("all %d tasks complete", total)
		} else {
			c.logger.Printf("no ready tasks (done: %d/%d)", done, total)
		}
		return nil
	}

	spawned := 0
	for _, task := range ready {
		if spawned >= slotsAvailable {
			break
		}
		if task.Assigned != "" {
			// Claimed by a human; not ours to spawn on.
			continue
		}
		c.logger.Printf("spawning agent for: %s - %s", task.ID, task.Title)
		entry, err := c.spawn(task)
		if err != nil {
			// Per-spawn failures never abort the tick.
			c.logger.Printf("failed to spawn for %s: %v", task.ID, err)
			continue
		}
		c.logger.Printf("spawned %s (PID %d)", entry.ID, entry.PID)
		spawned++
	}
	return nil
}

// buildSubgraphs adds assign-* and reward-* meta-tasks under the graph lock.
func (c *Coordinator) buildSubgraphs() error {
	return graph.Update(c.opts.Dir, func(g *graph.Graph) (bool, error) {
		modified := false
		if c.opts.AutoAssign {
			if c.buildAssignSubgraph(g) {
				modified = true
			}
		}
		if c.opts.AutoReward {
			if c.buildRewardSubgraph(g) {
				modified = true
			}
		}
		return modified, nil
	})
}

// buildAssignSubgraph creates one assign-<id> meta-task per ready,
// unassigned task and blocks the original on it.
func (c *Coordinator) buildAssignSubgraph(g *graph.Graph) bool {
	modified := false
	for _, task := range graph.Ready(g, time.Now()) {
		if task.Agent != "" || task.Assigned != "" {
			continue
		}
		assignID := "assign-" + task.ID
		if g.Task(assignID) != nil {
			continue
		}

		assignTask := &graph.Task{
			ID:          assignID,
			Title:       "Assign agent for: " + task.Title,
			Description: assignDescription(task),
			Status:      graph.StatusOpen,
			Blocks:      []string{task.ID},
			Tags:        []string{"assignment", "identity"},
			CreatedAt:   time.Now().UTC().Format(time.RFC3339),
		}
		g.AddTask(assignTask)

		if !contains(task.BlockedBy, assignID) {
			task.BlockedBy = append(task.BlockedBy, assignID)
		}

		_ = provenance.Record(c.opts.Dir, "auto_assign", task.ID, "coordinator",
			map[string]any{"assign_task": assignID}, c.opts.RotationThreshold)
		modified = true
	}
	return modified
}

// buildRewardSubgraph creates one reward-<id> meta-task per Done task that
// ran under an agent and has not been evaluated yet.
func (c *Coordinator) buildRewardSubgraph(g *graph.Graph) bool {
	modified := false
	for _, task := range g.Tasks() {
		if task.Status != graph.StatusDone || task.Agent == "" {
			continue
		}
		if strings.HasPrefix(task.ID, "assign-") || strings.HasPrefix(task.ID, "reward-") {
			continue
		}
		rewardID := "reward-" + task.ID
		if g.Task(rewardID) != nil {
			continue
		}

		rewardTask := &graph.Task{
			ID:          rewardID,
			Title:       "Evaluate outcome of: " + task.Title,
			Description: rewardDescription(task),
			Status:      graph.StatusOpen,
			Tags:        []string{"reward", "identity"},
			CreatedAt:   time.Now().UTC().Format(time.RFC3339),
		}
		g.AddTask(rewardTask)

		_ = provenance.Record(c.opts.Dir, "auto_reward", task.ID, "coordinator",
			map[string]any{"reward_task": rewardID}, c.opts.RotationThreshold)
		modified = true
	}
	return modified
}

// assignDescription renders the assign meta-task body.
func assignDescription(t *graph.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Assign an agent to task '%s'.\n\n## Original Task\n**Title:** %s\n", t.ID, t.Title)
	if t.Description != "" {
		fmt.Fprintf(&b, "**Description:** %s\n", t.Description)
	}
	if len(t.Skills) > 0 {
		fmt.Fprintf(&b, "**Skills:** %s\n", strings.Join(t.Skills, ", "))
	}
	fmt.Fprintf(&b,
		"\n## Instructions\n"+
			"Inspect the identity store with `wg agent list`, `wg role list`, etc.\n"+
			"Choose the best agent for this task, then run:\n"+
			"```\nwg assign %s <agent-hash>\nwg done assign-%s\n```",
		t.ID, t.ID)
	return b.String()
}

// rewardDescription renders the reward meta-task body.
func rewardDescription(t *graph.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Evaluate how well task '%s' was executed.\n\n## Original Task\n**Title:** %s\n", t.ID, t.Title)
	if t.Description != "" {
		fmt.Fprintf(&b, "**Description:** %s\n", t.Description)
	}
	fmt.Fprintf(&b, "**Agent:** %s\n", t.Agent)
	fmt.Fprintf(&b,
		"\n## Instructions\n"+
			"Inspect the task log and artifacts, score the outcome in [0,1], then run:\n"+
			"```\nwg reward %s <value> --notes \"<reasoning>\"\nwg done reward-%s\n```",
		t.ID, t.ID)
	return b.String()
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
