package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nikete/workgraph/internal/graph"
	"github.com/nikete/workgraph/internal/style"
)

// mutateTask runs one status-machine operation under the graph lock and
// records it in provenance.
func mutateTask(op, taskID string, detail map[string]any, fn func(g *graph.Graph) error) error {
	dir, err := workgraphDir()
	if err != nil {
		return err
	}
	err = graph.Update(dir, func(g *graph.Graph) (bool, error) {
		if err := fn(g); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return err
	}
	return recordOp(dir, op, taskID, detail)
}

var startCmd = &cobra.Command{
	Use:     "start <task>",
	GroupID: GroupTasks,
	Short:   "Start a task (Open -> InProgress)",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := mutateTask("start", args[0], nil, func(g *graph.Graph) error {
			return graph.Start(g, args[0], flagActor)
		}); err != nil {
			return err
		}
		fmt.Printf("Started %s\n", style.Hash.Render(args[0]))
		return nil
	},
}

var doneCmd = &cobra.Command{
	Use:     "done <task>",
	GroupID: GroupTasks,
	Short:   "Complete a task (InProgress -> Done)",
	Long: `Mark a task done. Tasks carrying a verify gate cannot be completed
directly; submit them for review instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := mutateTask("done", args[0], nil, func(g *graph.Graph) error {
			return graph.Done(g, args[0], flagActor)
		}); err != nil {
			return err
		}
		fmt.Printf("%s %s\n", style.Success.Render("Done"), style.Hash.Render(args[0]))
		return nil
	},
}

var failReason string

var failCmd = &cobra.Command{
	Use:     "fail <task>",
	GroupID: GroupTasks,
	Short:   "Fail a task (InProgress -> Failed)",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		detail := map[string]any{}
		if failReason != "" {
			detail["reason"] = failReason
		}
		if err := mutateTask("fail", args[0], detail, func(g *graph.Graph) error {
			return graph.Fail(g, args[0], flagActor, failReason)
		}); err != nil {
			return err
		}
		fmt.Printf("%s %s\n", style.Error.Render("Failed"), style.Hash.Render(args[0]))
		return nil
	},
}

var submitCmd = &cobra.Command{
	Use:     "submit <task>",
	GroupID: GroupTasks,
	Short:   "Submit a verify-gated task for review (InProgress -> PendingReview)",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := mutateTask("submit", args[0], nil, func(g *graph.Graph) error {
			return graph.Submit(g, args[0], flagActor)
		}); err != nil {
			return err
		}
		fmt.Printf("Submitted %s for review\n", style.Hash.Render(args[0]))
		return nil
	},
}

var approveCmd = &cobra.Command{
	Use:     "approve <task>",
	GroupID: GroupTasks,
	Short:   "Approve a submitted task (PendingReview -> Done)",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := mutateTask("approve", args[0], nil, func(g *graph.Graph) error {
			return graph.Approve(g, args[0], flagActor)
		}); err != nil {
			return err
		}
		fmt.Printf("%s %s\n", style.Success.Render("Approved"), style.Hash.Render(args[0]))
		return nil
	},
}

var rejectReason string

var rejectCmd = &cobra.Command{
	Use:     "reject <task>",
	GroupID: GroupTasks,
	Short:   "Reject a submitted task back to Open",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		detail := map[string]any{}
		if rejectReason != "" {
			detail["reason"] = rejectReason
		}
		if err := mutateTask("reject", args[0], detail, func(g *graph.Graph) error {
			return graph.Reject(g, args[0], flagActor, rejectReason)
		}); err != nil {
			return err
		}
		fmt.Printf("Rejected %s back to open\n", style.Hash.Render(args[0]))
		return nil
	},
}

var abandonCmd = &cobra.Command{
	Use:     "abandon <task>",
	GroupID: GroupTasks,
	Short:   "Abandon a task",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := mutateTask("abandon", args[0], nil, func(g *graph.Graph) error {
			return graph.Abandon(g, args[0], flagActor)
		}); err != nil {
			return err
		}
		fmt.Printf("Abandoned %s\n", style.Hash.Render(args[0]))
		return nil
	},
}

func init() {
	failCmd.Flags().StringVar(&failReason, "reason", "", "failure reason")
	rejectCmd.Flags().StringVar(&rejectReason, "reason", "", "rejection reason")
	rootCmd.AddCommand(startCmd, doneCmd, failCmd, submitCmd, approveCmd, rejectCmd, abandonCmd)
}
