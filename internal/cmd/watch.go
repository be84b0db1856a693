package cmd

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nikete/workgraph/internal/tui"
)

var watchInterval int

var watchCmd = &cobra.Command{
	Use:     "watch",
	GroupID: GroupService,
	Short:   "Live board of task statuses and the ready queue",
	RunE:    runWatch,
}

func init() {
	watchCmd.Flags().IntVar(&watchInterval, "interval", 0, "refresh period in seconds (default: 2)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	dir, err := workgraphDir()
	if err != nil {
		return err
	}

	interval := time.Duration(watchInterval) * time.Second
	model := tui.NewModel(dir, interval)
	if _, err := tea.NewProgram(model).Run(); err != nil {
		return fmt.Errorf("running watch board: %w", err)
	}
	return nil
}
