package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nikete/workgraph/internal/graph"
	"github.com/nikete/workgraph/internal/hash"
	"github.com/nikete/workgraph/internal/identity"
	"github.com/nikete/workgraph/internal/style"
)

var assignClear bool

var assignCmd = &cobra.Command{
	Use:     "assign <task> [agent-hash]",
	GroupID: GroupTasks,
	Short:   "Assign an agent to a task by hash or prefix",
	Long: `Resolve an agent by content-hash prefix and set it on the task.

With --clear, the assignment is removed instead.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runAssign,
}

func init() {
	assignCmd.Flags().BoolVar(&assignClear, "clear", false, "remove the agent assignment")
	rootCmd.AddCommand(assignCmd)
}

func runAssign(cmd *cobra.Command, args []string) error {
	dir, err := workgraphDir()
	if err != nil {
		return err
	}
	taskID := args[0]

	if assignClear {
		var prevAgent string
		err := graph.Update(dir, func(g *graph.Graph) (bool, error) {
			t, err := g.TaskOrErr(taskID)
			if err != nil {
				return false, err
			}
			prevAgent = t.Agent
			return true, graph.Assign(g, taskID, "", flagActor)
		})
		if err != nil {
			return err
		}
		if err := recordOp(dir, "assign", taskID, map[string]any{
			"action": "clear", "prev_agent": prevAgent,
		}); err != nil {
			return err
		}
		if prevAgent == "" {
			fmt.Printf("Task %q had no agent assigned (no change)\n", taskID)
		} else {
			fmt.Printf("Cleared agent from task %q\n", taskID)
		}
		return nil
	}

	if len(args) < 2 {
		return fmt.Errorf("usage: wg assign <task> <agent-hash>, or --clear to remove the assignment")
	}

	store := identity.Dir(dir)
	agent, err := store.FindAgentByPrefix(args[1])
	if err != nil {
		agents, _ := store.LoadAllAgents()
		if len(agents) == 0 {
			return fmt.Errorf("no agent matching %q: no agents defined; use 'wg agent create'", args[1])
		}
		return fmt.Errorf("no agent matching %q: %w", args[1], err)
	}

	err = graph.Update(dir, func(g *graph.Graph) (bool, error) {
		return true, graph.Assign(g, taskID, agent.ID, flagActor)
	})
	if err != nil {
		return err
	}
	if err := recordOp(dir, "assign", taskID, map[string]any{
		"agent_hash": agent.ID, "role_id": agent.RoleID,
	}); err != nil {
		return err
	}

	roleName := "(not found)"
	if role, err := store.LoadRole(agent.RoleID); err == nil {
		roleName = role.Name
	}
	objectiveName := "(not found)"
	if objective, err := store.LoadObjective(agent.ObjectiveID); err == nil {
		objectiveName = objective.Name
	}

	fmt.Printf("Assigned agent to task %q:\n", taskID)
	fmt.Printf("  Agent:     %s (%s)\n", agent.Name, style.Hash.Render(hash.Short(agent.ID)))
	fmt.Printf("  Role:      %s (%s)\n", roleName, style.Hash.Render(hash.Short(agent.RoleID)))
	fmt.Printf("  Objective: %s (%s)\n", objectiveName, style.Hash.Render(hash.Short(agent.ObjectiveID)))
	return nil
}
