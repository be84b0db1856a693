// Package cmd provides the wg CLI commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nikete/workgraph/internal/config"
	"github.com/nikete/workgraph/internal/provenance"
	"github.com/nikete/workgraph/internal/workspace"
)

var rootCmd = &cobra.Command{
	Use:           "wg",
	Short:         "Workgraph - local-first work graph for autonomous agents",
	SilenceUsage:  true,
	SilenceErrors: true,
	Long: `Workgraph coordinates long-running autonomous agents against a
dependency graph of tasks.

Tasks carry blocking relationships, skills, deliverables and verification
gates; the coordinator watches the graph, builds assignment and evaluation
subgraphs, and spawns agent processes on ready tasks. Agent performance is
recorded against a content-addressed identity store of roles, objectives
and agents; snapshots of graph state form runs for replay and rollback.`,
}

// Command group IDs used to organize help output.
const (
	GroupTasks    = "tasks"
	GroupIdentity = "identity"
	GroupService  = "service"
	GroupHistory  = "history"
)

var (
	// flagDir is the global --dir selecting the workgraph root.
	flagDir string

	// flagActor attributes mutations to a named actor in task logs and
	// provenance.
	flagActor string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDir, "dir", "", "workgraph directory (default: nearest .workgraph)")
	rootCmd.PersistentFlags().StringVar(&flagActor, "actor", "", "actor recorded in task logs and provenance")

	rootCmd.AddGroup(
		&cobra.Group{ID: GroupTasks, Title: "Task Management:"},
		&cobra.Group{ID: GroupIdentity, Title: "Identity:"},
		&cobra.Group{ID: GroupService, Title: "Coordination:"},
		&cobra.Group{ID: GroupHistory, Title: "History:"},
	)
	rootCmd.SetHelpCommandGroupID(GroupHistory)
	rootCmd.SetCompletionCommandGroupID(GroupHistory)
}

// workgraphDir resolves the directory every command operates on.
func workgraphDir() (string, error) {
	return workspace.Resolve(flagDir)
}

// recordOp writes a provenance event using the configured rotation
// threshold. Recording failures surface as errors; callers that treat
// provenance as best-effort ignore them explicitly.
func recordOp(dir, op, taskID string, detail map[string]any) error {
	cfg := config.LoadOrDefault(dir)
	return provenance.Record(dir, op, taskID, flagActor, detail, cfg.Log.RotationThreshold)
}

// requireSubcommand rejects bare parent commands instead of silently
// printing help with exit 0.
func requireSubcommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("requires a subcommand\n\nRun 'wg %s --help' for usage", cmd.Name())
	}
	return fmt.Errorf("unknown command %q for %q", args[0], cmd.Name())
}

// Execute runs the root command and returns the process exit code. Errors
// are printed to stderr with a stable prefix.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "wg: %v\n", err)
		return 1
	}
	return 0
}
