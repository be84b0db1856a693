package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nikete/workgraph/internal/graph"
	"github.com/nikete/workgraph/internal/workspace"
)

var initCmd = &cobra.Command{
	Use:     "init",
	GroupID: GroupTasks,
	Short:   "Initialize a workgraph in the current directory",
	Long: `Create a .workgraph directory with an empty graph.

With --dir, the given directory itself becomes the workgraph root.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := flagDir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolving working directory: %w", err)
		}
		dir = filepath.Join(cwd, workspace.Marker)
	}

	if _, err := os.Stat(graph.Path(dir)); err == nil {
		fmt.Printf("Workgraph already initialized at %s\n", dir)
		return nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating workgraph directory: %w", err)
	}
	if err := graph.Save(graph.New(), graph.Path(dir)); err != nil {
		return err
	}
	if err := recordOp(dir, "init", "", nil); err != nil {
		return err
	}

	fmt.Printf("Initialized workgraph at %s\n", dir)
	fmt.Println("  Next: wg add \"First task\"")
	return nil
}
