package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nikete/workgraph/internal/graph"
	"github.com/nikete/workgraph/internal/hash"
	"github.com/nikete/workgraph/internal/identity"
	"github.com/nikete/workgraph/internal/style"
)

var (
	rewardNotes     string
	rewardEvaluator string
	rewardModel     string
	rewardSource    string
)

var rewardCmd = &cobra.Command{
	Use:     "reward <task> <value>",
	GroupID: GroupIdentity,
	Short:   "Record a reward for a task's execution",
	Long: `Score a task's outcome in [0,1]. The reward is stored in the
identity store and folded into the performance of the task's agent and the
agent's role and objective.`,
	Args: cobra.ExactArgs(2),
	RunE: runReward,
}

func init() {
	rewardCmd.Flags().StringVar(&rewardNotes, "notes", "", "evaluation reasoning")
	rewardCmd.Flags().StringVar(&rewardEvaluator, "evaluator", "", "who evaluated (default: the actor)")
	rewardCmd.Flags().StringVar(&rewardModel, "model", "", "model used for the evaluation")
	rewardCmd.Flags().StringVar(&rewardSource, "source", "llm", "reward source (llm, human, automated)")
	rootCmd.AddCommand(rewardCmd)
}

func runReward(cmd *cobra.Command, args []string) error {
	dir, err := workgraphDir()
	if err != nil {
		return err
	}
	value, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid reward value %q: %w", args[1], err)
	}

	g, err := graph.Load(graph.Path(dir))
	if err != nil {
		return err
	}
	task, err := g.TaskOrErr(args[0])
	if err != nil {
		return err
	}
	if task.Agent == "" {
		return fmt.Errorf("task %q has no agent; rewards attach to an agent's role and objective", task.ID)
	}

	store := identity.Dir(dir)
	agent, err := store.LoadAgent(task.Agent)
	if err != nil {
		return err
	}

	evaluator := rewardEvaluator
	if evaluator == "" {
		evaluator = flagActor
	}
	reward := identity.NewReward(task.ID, agent.ID, agent.RoleID, agent.ObjectiveID, value, evaluator, rewardNotes, rewardSource)
	reward.Model = rewardModel

	if err := identity.RecordReward(store, reward); err != nil {
		return err
	}
	if err := recordOp(dir, "reward", task.ID, map[string]any{
		"reward_id": reward.ID, "agent_id": agent.ID, "value": value,
	}); err != nil {
		return err
	}

	fmt.Printf("Recorded reward %.2f for %s (agent %s)\n",
		value, style.Hash.Render(task.ID), hash.Short(agent.ID))
	return nil
}
