package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nikete/workgraph/internal/hash"
	"github.com/nikete/workgraph/internal/identity"
	"github.com/nikete/workgraph/internal/registry"
	"github.com/nikete/workgraph/internal/style"
)

var agentCmd = &cobra.Command{
	Use:     "agent",
	GroupID: GroupIdentity,
	Short:   "Manage content-addressed agents (role + objective pairs)",
	RunE:    requireSubcommand,
}

var (
	agentCreateName     string
	agentCreateExecutor string
	agentListJSON       bool
	agentShowJSON       bool
)

var agentCreateCmd = &cobra.Command{
	Use:   "create <role-prefix> <objective-prefix>",
	Short: "Create an agent for a role + objective pair",
	Long: `Create the agent identified by hash(role, objective). Exactly one
agent exists per pair; creating the same pair twice is an error.`,
	Args: cobra.ExactArgs(2),
	RunE: runAgentCreate,
}

var agentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List agents",
	RunE:  runAgentList,
}

var agentShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show an agent by hash prefix",
	Args:  cobra.ExactArgs(1),
	RunE:  runAgentShow,
}

var agentRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Remove an agent",
	Args:  cobra.ExactArgs(1),
	RunE:  runAgentRm,
}

// agentsCmd covers the runtime registry of spawned agent processes, as
// opposed to agentCmd which manages identities.
var agentsCmd = &cobra.Command{
	Use:     "agents",
	GroupID: GroupService,
	Short:   "Inspect spawned agent processes",
	RunE:    requireSubcommand,
}

var agentsListJSON bool

var agentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registry entries with liveness",
	RunE:  runAgentsList,
}

var agentsCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove dead agent records from the registry",
	Long: `Remove registry records that are no longer running or whose process is
gone. Heartbeat age is not checked. Processes are never killed; termination
is a separate concern.`,
	RunE: runAgentsCleanup,
}

func init() {
	agentCreateCmd.Flags().StringVar(&agentCreateName, "name", "", "agent display name")
	agentCreateCmd.Flags().StringVar(&agentCreateExecutor, "executor", "claude", "executor binary for spawns")
	agentListCmd.Flags().BoolVar(&agentListJSON, "json", false, "machine-readable output")
	agentShowCmd.Flags().BoolVar(&agentShowJSON, "json", false, "machine-readable output")
	agentCmd.AddCommand(agentCreateCmd, agentListCmd, agentShowCmd, agentRmCmd)

	agentsListCmd.Flags().BoolVar(&agentsListJSON, "json", false, "machine-readable output")
	agentsCmd.AddCommand(agentsListCmd, agentsCleanupCmd)

	rootCmd.AddCommand(agentCmd, agentsCmd)
}

func runAgentCreate(cmd *cobra.Command, args []string) error {
	dir, err := workgraphDir()
	if err != nil {
		return err
	}
	store := identity.Dir(dir)

	role, err := store.FindRoleByPrefix(args[0])
	if err != nil {
		return err
	}
	objective, err := store.FindObjectiveByPrefix(args[1])
	if err != nil {
		return err
	}

	name := agentCreateName
	if name == "" {
		name = objective.Name + " " + role.Name
	}
	agent := identity.BuildAgent(name, role, objective, agentCreateExecutor)
	if store.ExistsAgent(agent.ID) {
		return fmt.Errorf("agent for this role + objective pair already exists (%s)", hash.Short(agent.ID))
	}
	if err := store.SaveAgent(agent); err != nil {
		return err
	}
	if err := recordOp(dir, "agent_create", "", map[string]any{
		"agent_id": agent.ID, "role_id": role.ID, "objective_id": objective.ID,
	}); err != nil {
		return err
	}
	fmt.Printf("Created agent %q (%s)\n", agent.Name, style.Hash.Render(hash.Short(agent.ID)))
	return nil
}

func runAgentList(cmd *cobra.Command, args []string) error {
	dir, err := workgraphDir()
	if err != nil {
		return err
	}
	agents, err := identity.Dir(dir).LoadAllAgents()
	if err != nil {
		return err
	}

	if agentListJSON {
		return json.NewEncoder(os.Stdout).Encode(agents)
	}
	if len(agents) == 0 {
		fmt.Println("No agents defined. Use 'wg agent create' to create one.")
		return nil
	}
	for _, a := range agents {
		mean := "-"
		if a.Performance.MeanReward != nil {
			mean = fmt.Sprintf("%.2f", *a.Performance.MeanReward)
		}
		fmt.Printf("  %s  %-24s role:%s objective:%s tasks:%d mean_reward:%s\n",
			style.Hash.Render(hash.Short(a.ID)), a.Name,
			hash.Short(a.RoleID), hash.Short(a.ObjectiveID),
			a.Performance.TaskCount, mean)
	}
	return nil
}

func runAgentShow(cmd *cobra.Command, args []string) error {
	dir, err := workgraphDir()
	if err != nil {
		return err
	}
	store := identity.Dir(dir)
	agent, err := store.FindAgentByPrefix(args[0])
	if err != nil {
		return err
	}

	if agentShowJSON {
		return json.NewEncoder(os.Stdout).Encode(agent)
	}

	fmt.Printf("Agent: %s (%s)\n", agent.Name, style.Hash.Render(hash.Short(agent.ID)))
	if role, err := store.LoadRole(agent.RoleID); err == nil {
		fmt.Printf("  Role:      %s (%s)\n", role.Name, hash.Short(role.ID))
	} else {
		fmt.Printf("  Role:      %s (unresolved)\n", hash.Short(agent.RoleID))
	}
	if objective, err := store.LoadObjective(agent.ObjectiveID); err == nil {
		fmt.Printf("  Objective: %s (%s)\n", objective.Name, hash.Short(objective.ID))
	} else {
		fmt.Printf("  Objective: %s (unresolved)\n", hash.Short(agent.ObjectiveID))
	}
	fmt.Printf("  Executor:  %s\n", agent.Executor)
	fmt.Printf("  Trust:     %s\n", agent.TrustLevel)
	fmt.Printf("  Performance: %d task(s)", agent.Performance.TaskCount)
	if agent.Performance.MeanReward != nil {
		fmt.Printf(", mean reward %.2f", *agent.Performance.MeanReward)
	}
	fmt.Println()
	return nil
}

func runAgentRm(cmd *cobra.Command, args []string) error {
	dir, err := workgraphDir()
	if err != nil {
		return err
	}
	store := identity.Dir(dir)
	agent, err := store.FindAgentByPrefix(args[0])
	if err != nil {
		return err
	}
	if err := store.DeleteAgent(agent.ID); err != nil {
		return err
	}
	fmt.Printf("Removed agent %q (%s)\n", agent.Name, hash.Short(agent.ID))
	return nil
}

func runAgentsList(cmd *cobra.Command, args []string) error {
	dir, err := workgraphDir()
	if err != nil {
		return err
	}
	reg, err := registry.Load(dir)
	if err != nil {
		return err
	}

	if agentsListJSON {
		return json.NewEncoder(os.Stdout).Encode(reg)
	}
	if len(reg.Agents) == 0 {
		fmt.Println("No spawned agents recorded.")
		return nil
	}
	for _, e := range reg.Agents {
		liveness := style.Error.Render("dead")
		if e.IsAlive(0) {
			liveness = style.Success.Render("alive")
		}
		fmt.Printf("  %s  task:%-20s pid:%-7d %s %s\n",
			hash.Short(e.ID), e.TaskID, e.PID, e.Status, liveness)
	}
	return nil
}

func runAgentsCleanup(cmd *cobra.Command, args []string) error {
	dir, err := workgraphDir()
	if err != nil {
		return err
	}
	reg, err := registry.Load(dir)
	if err != nil {
		return err
	}
	removed := reg.Cleanup(0)
	if removed == 0 {
		fmt.Println("No dead agent records.")
		return nil
	}
	if err := registry.Save(dir, reg); err != nil {
		return err
	}
	if err := recordOp(dir, "agents_cleanup", "", map[string]any{"removed": removed}); err != nil {
		return err
	}
	fmt.Printf("Removed %d dead agent record(s)\n", removed)
	return nil
}
