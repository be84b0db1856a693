package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nikete/workgraph/internal/config"
	"github.com/nikete/workgraph/internal/federation"
	"github.com/nikete/workgraph/internal/graph"
	"github.com/nikete/workgraph/internal/hash"
	"github.com/nikete/workgraph/internal/identity"
	"github.com/nikete/workgraph/internal/style"
	"github.com/nikete/workgraph/internal/workspace"
)

var identityCmd = &cobra.Command{
	Use:     "identity",
	GroupID: GroupIdentity,
	Short:   "Manage the identity store and federation",
	RunE:    requireSubcommand,
}

var identityInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Bootstrap the identity store",
	Long: `Seed starter roles and objectives, create the default
Careful Programmer agent, and enable auto_assign + auto_reward in the
local config. Running it twice changes nothing.`,
	RunE: runIdentityInit,
}

var identityScanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Report store contents and skill coverage gaps",
	RunE:  runIdentityScan,
}

// transferFlags are shared by push and pull.
type transferFlags struct {
	dryRun        bool
	noPerformance bool
	noRewards     bool
	force         bool
	global        bool
	entityType    string
	entityIDs     []string
	json          bool
}

func (f *transferFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "compute the summary without writing")
	cmd.Flags().BoolVar(&f.noPerformance, "no-performance", false, "strip performance before writing")
	cmd.Flags().BoolVar(&f.noRewards, "no-rewards", false, "do not copy reward records")
	cmd.Flags().BoolVar(&f.force, "force", false, "overwrite entities that already exist")
	cmd.Flags().BoolVar(&f.global, "global", false, "use the global store at ~/.workgraph/identity")
	cmd.Flags().StringVar(&f.entityType, "type", "", "restrict to role, objective, or agent")
	cmd.Flags().StringSliceVar(&f.entityIDs, "id", nil, "restrict to specific entity ids or prefixes")
	cmd.Flags().BoolVar(&f.json, "json", false, "machine-readable output")
}

var (
	pushFlags transferFlags
	pullFlags transferFlags
)

var identityPushCmd = &cobra.Command{
	Use:   "push <remote-or-path>",
	Short: "Push identity entities to another store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTransfer(args[0], &pushFlags, false)
	},
}

var identityPullCmd = &cobra.Command{
	Use:   "pull <remote-or-path>",
	Short: "Pull identity entities from another store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTransfer(args[0], &pullFlags, true)
	},
}

var identityRemoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Manage named federation remotes",
	RunE:  requireSubcommand,
}

func init() {
	pushFlags.register(identityPushCmd)
	pullFlags.register(identityPullCmd)

	identityRemoteCmd.AddCommand(
		remoteAddCmd, remoteRemoveCmd, remoteListCmd, remoteShowCmd,
	)
	identityCmd.AddCommand(identityInitCmd, identityScanCmd, identityPushCmd, identityPullCmd, identityRemoteCmd)
	rootCmd.AddCommand(identityCmd)
}

// localStore returns the identity store for push/pull: the workgraph's own
// store, or the global one under the user's home.
func localStore(dir string, global bool) (*identity.Store, error) {
	var store *identity.Store
	if global {
		home, err := workspace.HomeDir()
		if err != nil {
			return nil, err
		}
		store = identity.NewStore(filepath.Join(home, workspace.Marker, "identity"))
	} else {
		store = identity.Dir(dir)
	}
	if !store.IsValid() {
		if global {
			return nil, fmt.Errorf("no global identity store at ~/.workgraph/identity; run 'wg identity init' there first")
		}
		return nil, fmt.Errorf("no local identity store; run 'wg identity init' first")
	}
	return store, nil
}

func runIdentityInit(cmd *cobra.Command, args []string) error {
	dir, err := workgraphDir()
	if err != nil {
		return err
	}
	store := identity.Dir(dir)

	rolesCreated, objectivesCreated, err := identity.SeedStarters(store)
	if err != nil {
		return fmt.Errorf("seeding starters: %w", err)
	}
	if rolesCreated > 0 || objectivesCreated > 0 {
		fmt.Printf("Seeded %d roles and %d objectives.\n", rolesCreated, objectivesCreated)
	}

	// Default agent: Programmer + Careful.
	var programmer *identity.Role
	for _, r := range identity.StarterRoles() {
		if r.Name == "Programmer" {
			programmer = r
		}
	}
	var careful *identity.Objective
	for _, o := range identity.StarterObjectives() {
		if o.Name == "Careful" {
			careful = o
		}
	}
	if programmer == nil || careful == nil {
		return fmt.Errorf("starter catalog is missing Programmer or Careful")
	}

	agent := identity.BuildAgent("Careful Programmer", programmer, careful, "claude")
	agentCreated := false
	if store.ExistsAgent(agent.ID) {
		fmt.Printf("Default agent already exists (%s).\n", hash.Short(agent.ID))
	} else {
		if err := store.SaveAgent(agent); err != nil {
			return fmt.Errorf("saving default agent: %w", err)
		}
		fmt.Printf("Created default agent: Careful Programmer (%s).\n", style.Hash.Render(hash.Short(agent.ID)))
		agentCreated = true
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}
	configChanged := false
	if !cfg.Identity.AutoAssign {
		cfg.Identity.AutoAssign = true
		configChanged = true
	}
	if !cfg.Identity.AutoReward {
		cfg.Identity.AutoReward = true
		configChanged = true
	}
	if configChanged {
		if err := cfg.Save(dir); err != nil {
			return err
		}
		fmt.Println("Enabled auto_assign and auto_reward in config.")
	}

	if rolesCreated == 0 && objectivesCreated == 0 && !agentCreated && !configChanged {
		fmt.Println("Identity already initialized.")
	} else {
		fmt.Println()
		fmt.Println("Identity is ready. The coordinator will now auto-assign agents to tasks.")
		fmt.Println("  Next: wg coordinator")
	}
	return nil
}

func runIdentityScan(cmd *cobra.Command, args []string) error {
	dir, err := workgraphDir()
	if err != nil {
		return err
	}
	store := identity.Dir(dir)
	if !store.IsValid() {
		return fmt.Errorf("no identity store; run 'wg identity init' first")
	}

	roles, err := store.LoadAllRoles()
	if err != nil {
		return err
	}
	objectives, err := store.LoadAllObjectives()
	if err != nil {
		return err
	}
	agents, err := store.LoadAllAgents()
	if err != nil {
		return err
	}
	rewards, err := store.LoadAllRewards()
	if err != nil {
		return err
	}

	fmt.Printf("Identity store at %s:\n", store.Root())
	fmt.Printf("  %d role(s), %d objective(s), %d agent(s), %d reward(s)\n",
		len(roles), len(objectives), len(agents), len(rewards))

	// Skill coverage: task skills with no role carrying them.
	g, err := graph.Load(graph.Path(dir))
	if err != nil {
		return err
	}
	covered := map[string]bool{}
	for _, r := range roles {
		for _, s := range r.Skills {
			if s.Kind == identity.SkillName {
				covered[s.Value] = true
			}
		}
	}
	missing := map[string]bool{}
	for _, t := range g.Tasks() {
		if t.Status.IsTerminal() {
			continue
		}
		for _, skill := range t.Skills {
			if !covered[skill] {
				missing[skill] = true
			}
		}
	}
	if len(missing) > 0 {
		fmt.Println("  Skills requested by open tasks with no covering role:")
		for skill := range missing {
			fmt.Printf("    - %s\n", skill)
		}
	}
	return nil
}

func runTransfer(target string, flags *transferFlags, pull bool) error {
	dir, err := workgraphDir()
	if err != nil {
		return err
	}
	local, err := localStore(dir, flags.global)
	if err != nil {
		return err
	}
	remote, err := federation.ResolveStoreWithRemotes(target, dir)
	if err != nil {
		return err
	}

	filter, err := federation.ParseEntityFilter(flags.entityType)
	if err != nil {
		return err
	}
	opts := federation.Options{
		DryRun:        flags.dryRun,
		NoPerformance: flags.noPerformance,
		NoRewards:     flags.noRewards,
		Force:         flags.force,
		EntityIDs:     flags.entityIDs,
		EntityFilter:  filter,
	}

	source, dest := local, remote
	action := "push"
	if pull {
		source, dest = remote, local
		action = "pull"
	}

	summary, err := federation.Transfer(source, dest, opts)
	if err != nil {
		return err
	}
	if !flags.dryRun {
		// Best-effort: a named remote gets its last_sync refreshed.
		_ = federation.TouchRemoteSync(dir, target)
	}

	if flags.json {
		out := map[string]any{
			"action":  action,
			"target":  dest.Root(),
			"dry_run": flags.dryRun,
			"summary": summary,
		}
		return json.NewEncoder(os.Stdout).Encode(out)
	}
	switch {
	case flags.dryRun && pull:
		fmt.Printf("Dry run — would pull from %s:\n", source.Root())
	case flags.dryRun:
		fmt.Printf("Dry run — would push to %s:\n", dest.Root())
	case pull:
		fmt.Printf("Pulled from %s:\n", source.Root())
	default:
		fmt.Printf("Pushed to %s:\n", dest.Root())
	}
	fmt.Println(summary)
	return nil
}
