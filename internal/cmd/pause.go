package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nikete/workgraph/internal/graph"
	"github.com/nikete/workgraph/internal/style"
)

var pauseCmd = &cobra.Command{
	Use:     "pause <task>",
	GroupID: GroupTasks,
	Short:   "Pause a task without changing its status",
	Long: `Set the paused flag on a task. Paused tasks never appear in the
ready set, so the coordinator will not spawn on them. Pausing an already
paused task is an error.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := mutateTask("pause", args[0], nil, func(g *graph.Graph) error {
			return graph.Pause(g, args[0], flagActor)
		}); err != nil {
			return err
		}
		fmt.Printf("Paused %s\n", style.Hash.Render(args[0]))
		return nil
	},
}

var resumeCmd = &cobra.Command{
	Use:     "resume <task>",
	GroupID: GroupTasks,
	Short:   "Resume a paused task",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := mutateTask("resume", args[0], nil, func(g *graph.Graph) error {
			return graph.Resume(g, args[0], flagActor)
		}); err != nil {
			return err
		}
		fmt.Printf("Resumed %s\n", style.Hash.Render(args[0]))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pauseCmd, resumeCmd)
}
