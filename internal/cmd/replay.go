package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nikete/workgraph/internal/graph"
	"github.com/nikete/workgraph/internal/identity"
	"github.com/nikete/workgraph/internal/runs"
	"github.com/nikete/workgraph/internal/style"
)

var (
	replayFailedOnly  bool
	replayBelowReward float64
	replayPlanOnly    bool
	replaySubgraph    string
	replayModel       string
	replayJSON        bool
)

var replayCmd = &cobra.Command{
	Use:     "replay",
	GroupID: GroupHistory,
	Short:   "Snapshot the graph and reset selected tasks to open",
	Long: `Reset terminal tasks back to open so the coordinator can run them
again. The pre-replay state is captured as a run snapshot first.

Selection:
  --failed-only       reset only failed tasks
  --below-reward V    reset tasks whose recorded reward is below V
  --subgraph ID       restrict to a task and everything it transitively blocks
  --plan-only         show the plan without applying it`,
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().BoolVar(&replayFailedOnly, "failed-only", false, "reset only failed tasks")
	replayCmd.Flags().Float64Var(&replayBelowReward, "below-reward", -1, "reset tasks rewarded below this value")
	replayCmd.Flags().BoolVar(&replayPlanOnly, "plan-only", false, "show the plan without applying")
	replayCmd.Flags().StringVar(&replaySubgraph, "subgraph", "", "restrict to a task and its dependents")
	replayCmd.Flags().StringVar(&replayModel, "model", "", "model noted in the run metadata")
	replayCmd.Flags().BoolVar(&replayJSON, "json", false, "machine-readable output")
	rootCmd.AddCommand(replayCmd)
}

// subgraphOf returns the id set containing a task and everything it
// transitively blocks.
func subgraphOf(g *graph.Graph, rootID string) map[string]bool {
	set := map[string]bool{}
	var walk func(id string)
	walk = func(id string) {
		if set[id] {
			return
		}
		set[id] = true
		if t := g.Task(id); t != nil {
			for _, next := range t.Blocks {
				walk(next)
			}
		}
	}
	walk(rootID)
	return set
}

// taskRewards maps task id to its best recorded reward value.
func taskRewards(dir string) (map[string]float64, error) {
	store := identity.Dir(dir)
	if !store.IsValid() {
		return map[string]float64{}, nil
	}
	rewards, err := store.LoadAllRewards()
	if err != nil {
		return nil, err
	}
	best := map[string]float64{}
	for _, r := range rewards {
		if v, ok := best[r.TaskID]; !ok || r.Value > v {
			best[r.TaskID] = r.Value
		}
	}
	return best, nil
}

func runReplay(cmd *cobra.Command, args []string) error {
	dir, err := workgraphDir()
	if err != nil {
		return err
	}
	g, err := graph.Load(graph.Path(dir))
	if err != nil {
		return err
	}

	var scope map[string]bool
	if replaySubgraph != "" {
		if _, err := g.TaskOrErr(replaySubgraph); err != nil {
			return err
		}
		scope = subgraphOf(g, replaySubgraph)
	}

	var rewardByTask map[string]float64
	if replayBelowReward >= 0 {
		rewardByTask, err = taskRewards(dir)
		if err != nil {
			return err
		}
	}

	var reset, preserved []string
	for _, t := range g.Tasks() {
		if !t.Status.IsTerminal() {
			continue
		}
		if scope != nil && !scope[t.ID] {
			preserved = append(preserved, t.ID)
			continue
		}
		if replayFailedOnly && t.Status != graph.StatusFailed {
			preserved = append(preserved, t.ID)
			continue
		}
		if replayBelowReward >= 0 {
			reward, ok := rewardByTask[t.ID]
			if !ok || reward >= replayBelowReward {
				preserved = append(preserved, t.ID)
				continue
			}
		}
		reset = append(reset, t.ID)
	}

	if replayJSON && replayPlanOnly {
		return json.NewEncoder(os.Stdout).Encode(map[string]any{
			"plan_only": true, "reset": reset, "preserved": preserved,
		})
	}
	if replayPlanOnly {
		fmt.Printf("Would reset %d task(s):\n", len(reset))
		for _, id := range reset {
			fmt.Printf("  %s\n", id)
		}
		return nil
	}
	if len(reset) == 0 {
		fmt.Println("Nothing to replay.")
		return nil
	}

	runID := runs.NextID(dir)
	meta := &runs.Meta{
		ID:             runID,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		Model:          replayModel,
		ResetTasks:     reset,
		PreservedTasks: preserved,
	}

	err = graph.WithLock(dir, func() error {
		if err := runs.Snapshot(dir, runID, meta); err != nil {
			return err
		}
		live, err := graph.Load(graph.Path(dir))
		if err != nil {
			return err
		}
		for _, id := range reset {
			t := live.Task(id)
			if t == nil {
				continue
			}
			t.Status = graph.StatusOpen
			t.StartedAt = ""
			t.CompletedAt = ""
			t.FailureReason = ""
			t.AppendLog(flagActor, "reset by replay ("+runID+")")
		}
		return graph.Save(live, graph.Path(dir))
	})
	if err != nil {
		return err
	}

	if err := recordOp(dir, "replay", "", map[string]any{
		"run": runID, "reset": len(reset), "preserved": len(preserved),
	}); err != nil {
		return err
	}

	if replayJSON {
		return json.NewEncoder(os.Stdout).Encode(map[string]any{
			"run": runID, "reset": reset, "preserved": preserved,
		})
	}
	fmt.Printf("Snapshot %s captured; reset %d task(s) to open.\n", style.Hash.Render(runID), len(reset))
	return nil
}
