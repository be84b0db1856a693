package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nikete/workgraph/internal/gc"
	"github.com/nikete/workgraph/internal/graph"
	"github.com/nikete/workgraph/internal/style"
)

var (
	gcDryRun      bool
	gcIncludeDone bool
)

var gcCmd = &cobra.Command{
	Use:     "gc",
	GroupID: GroupTasks,
	Short:   "Remove terminal tasks with no open dependents",
	Long: `Garbage-collect failed and abandoned tasks (plus done tasks with
--include-done) that no non-terminal task depends on. Meta-tasks follow
their parent; orphaned terminal meta-tasks are collected too. Removal is
atomic and recorded in provenance.`,
	RunE: runGC,
}

func init() {
	gcCmd.Flags().BoolVar(&gcDryRun, "dry-run", false, "show what would be removed without removing")
	gcCmd.Flags().BoolVar(&gcIncludeDone, "include-done", false, "also collect done tasks")
	rootCmd.AddCommand(gcCmd)
}

func runGC(cmd *cobra.Command, args []string) error {
	dir, err := workgraphDir()
	if err != nil {
		return err
	}

	if gcDryRun {
		g, err := graph.Load(graph.Path(dir))
		if err != nil {
			return err
		}
		ids := gc.Collect(g, gcIncludeDone)
		if len(ids) == 0 {
			fmt.Println("No tasks to garbage collect.")
			return nil
		}
		fmt.Printf("Would remove %d tasks:\n", len(ids))
		for _, id := range ids {
			if t := g.Task(id); t != nil {
				fmt.Printf("  %s - %s [%s]\n", id, t.Title, style.StatusStyle(string(t.Status)).Render(t.Status.Title()))
			}
		}
		return nil
	}

	var removed []gc.Removed
	err = graph.Update(dir, func(g *graph.Graph) (bool, error) {
		ids := gc.Collect(g, gcIncludeDone)
		if len(ids) == 0 {
			return false, nil
		}
		removed = gc.Apply(g, ids)
		return true, nil
	})
	if err != nil {
		return err
	}
	if len(removed) == 0 {
		fmt.Println("No tasks to garbage collect.")
		return nil
	}

	details := make([]any, 0, len(removed))
	for _, r := range removed {
		details = append(details, map[string]any{"id": r.ID, "status": r.Status, "title": r.Title})
	}
	if err := recordOp(dir, "gc", "", map[string]any{"removed": details}); err != nil {
		return err
	}

	fmt.Printf("Removed %d tasks:\n", len(removed))
	for _, r := range removed {
		fmt.Printf("  %s\n", r.ID)
	}
	return nil
}
