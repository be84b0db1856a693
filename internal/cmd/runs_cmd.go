package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	diffmatchpatch "github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"

	"github.com/nikete/workgraph/internal/graph"
	"github.com/nikete/workgraph/internal/runs"
	"github.com/nikete/workgraph/internal/style"
)

var runsCmd = &cobra.Command{
	Use:     "runs",
	GroupID: GroupHistory,
	Short:   "Manage graph snapshots",
	RunE:    requireSubcommand,
}

var (
	runsListJSON    bool
	runsShowJSON    bool
	runsRestoreJSON bool
	runsDiffJSON    bool
	runsDiffText    bool
)

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List run snapshots",
	RunE:  runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a run's metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

var runsRestoreCmd = &cobra.Command{
	Use:   "restore <run-id>",
	Short: "Restore the graph from a snapshot",
	Long: `Overwrite the live graph with a snapshot. The current state is
first captured as a new safety snapshot, so a restore can always be
undone.`,
	Args: cobra.ExactArgs(1),
	RunE: runRunsRestore,
}

var runsDiffCmd = &cobra.Command{
	Use:   "diff <run-id>",
	Short: "Diff the live graph against a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsDiff,
}

func init() {
	runsListCmd.Flags().BoolVar(&runsListJSON, "json", false, "machine-readable output")
	runsShowCmd.Flags().BoolVar(&runsShowJSON, "json", false, "machine-readable output")
	runsRestoreCmd.Flags().BoolVar(&runsRestoreJSON, "json", false, "machine-readable output")
	runsDiffCmd.Flags().BoolVar(&runsDiffJSON, "json", false, "machine-readable output")
	runsDiffCmd.Flags().BoolVar(&runsDiffText, "text", false, "also show a unified text diff of graph.jsonl")
	runsCmd.AddCommand(runsListCmd, runsShowCmd, runsRestoreCmd, runsDiffCmd)
	rootCmd.AddCommand(runsCmd)
}

func runRunsList(cmd *cobra.Command, args []string) error {
	dir, err := workgraphDir()
	if err != nil {
		return err
	}
	ids, err := runs.List(dir)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		if runsListJSON {
			fmt.Println("[]")
		} else {
			fmt.Println("No run snapshots found.")
		}
		return nil
	}

	var metas []*runs.Meta
	for _, id := range ids {
		meta, err := runs.LoadMeta(dir, id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not load metadata for %s: %v\n", id, err)
			continue
		}
		metas = append(metas, meta)
	}

	if runsListJSON {
		return json.NewEncoder(os.Stdout).Encode(metas)
	}
	fmt.Println("Run snapshots:")
	for _, m := range metas {
		fmt.Printf("  %s (%s)\n", style.Hash.Render(m.ID), m.Timestamp)
		if m.Model != "" {
			fmt.Printf("    Model: %s\n", m.Model)
		}
		if m.Filter != "" {
			fmt.Printf("    Filter: %s\n", m.Filter)
		}
		fmt.Printf("    Reset: %d task(s), Preserved: %d task(s)\n", len(m.ResetTasks), len(m.PreservedTasks))
	}
	return nil
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	dir, err := workgraphDir()
	if err != nil {
		return err
	}
	meta, err := runs.LoadMeta(dir, args[0])
	if err != nil {
		return err
	}

	if runsShowJSON {
		return json.NewEncoder(os.Stdout).Encode(meta)
	}
	fmt.Printf("Run: %s\n", meta.ID)
	fmt.Printf("  Timestamp: %s\n", meta.Timestamp)
	if meta.Model != "" {
		fmt.Printf("  Model: %s\n", meta.Model)
	}
	if meta.Filter != "" {
		fmt.Printf("  Filter: %s\n", meta.Filter)
	}
	fmt.Printf("  Reset tasks (%d):\n", len(meta.ResetTasks))
	for _, id := range meta.ResetTasks {
		fmt.Printf("    %s\n", id)
	}
	fmt.Printf("  Preserved tasks (%d):\n", len(meta.PreservedTasks))
	for _, id := range meta.PreservedTasks {
		fmt.Printf("    %s\n", id)
	}
	return nil
}

func runRunsRestore(cmd *cobra.Command, args []string) error {
	dir, err := workgraphDir()
	if err != nil {
		return err
	}
	runID := args[0]

	// Verify the run exists before touching anything.
	if _, err := runs.LoadMeta(dir, runID); err != nil {
		return err
	}

	var safetyID string
	err = graph.WithLock(dir, func() error {
		var restoreErr error
		safetyID, restoreErr = runs.Restore(dir, runID)
		return restoreErr
	})
	if err != nil {
		return err
	}

	if err := recordOp(dir, "restore", "", map[string]any{
		"restored_from": runID, "safety_snapshot": safetyID,
	}); err != nil {
		return err
	}

	if runsRestoreJSON {
		return json.NewEncoder(os.Stdout).Encode(map[string]string{
			"restored_from": runID, "safety_snapshot": safetyID,
		})
	}
	fmt.Printf("Restored graph from %s\n", runID)
	fmt.Printf("  Safety snapshot: %s (in case you need to undo)\n", safetyID)
	return nil
}

func runRunsDiff(cmd *cobra.Command, args []string) error {
	dir, err := workgraphDir()
	if err != nil {
		return err
	}
	diffs, err := runs.Diff(dir, args[0])
	if err != nil {
		return err
	}

	if runsDiffJSON {
		if diffs == nil {
			diffs = []runs.TaskDiff{}
		}
		return json.NewEncoder(os.Stdout).Encode(diffs)
	}

	if len(diffs) == 0 {
		fmt.Println("No differences.")
	}
	for _, d := range diffs {
		switch d.Change {
		case runs.ChangeAdded:
			fmt.Printf("  %s %s (%s)\n", style.Success.Render("+"), d.ID, d.CurrentStatus)
		case runs.ChangeRemoved:
			fmt.Printf("  %s %s (%s)\n", style.Error.Render("-"), d.ID, d.SnapshotStatus)
		case runs.ChangeStatusChanged:
			fmt.Printf("  %s %s: %s -> %s\n", style.Warning.Render("~"), d.ID, d.SnapshotStatus, d.CurrentStatus)
		}
	}

	if runsDiffText {
		snap, err := os.ReadFile(runs.SnapshotGraphPath(dir, args[0]))
		if err != nil {
			return err
		}
		live, err := os.ReadFile(graph.Path(dir))
		if err != nil {
			return err
		}
		dmp := diffmatchpatch.New()
		fileDiffs := dmp.DiffMain(string(snap), string(live), true)
		fmt.Println()
		fmt.Print(dmp.DiffPrettyText(fileDiffs))
	}
	return nil
}
