package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nikete/workgraph/internal/config"
	"github.com/nikete/workgraph/internal/coordinator"
)

var (
	coordOnce           bool
	coordInterval       int
	coordMaxAgents      int
	coordExecutor       string
	coordInstallService bool
)

var coordinatorCmd = &cobra.Command{
	Use:     "coordinator",
	GroupID: GroupService,
	Short:   "Run the coordinator loop",
	Long: `Run the coordinator: each tick builds assignment and reward
subgraphs, spawns agents on ready tasks up to the slot limit, and reports
dead agent records.

CLI flags override config.toml values when provided.`,
	RunE: runCoordinator,
}

func init() {
	coordinatorCmd.Flags().BoolVar(&coordOnce, "once", false, "run exactly one tick, then exit")
	coordinatorCmd.Flags().IntVar(&coordInterval, "interval", 0, "tick period in seconds (overrides config)")
	coordinatorCmd.Flags().IntVar(&coordMaxAgents, "max-agents", 0, "concurrent agent cap (overrides config)")
	coordinatorCmd.Flags().StringVar(&coordExecutor, "executor", "", "executor identifier (overrides config)")
	coordinatorCmd.Flags().BoolVar(&coordInstallService, "install-service", false, "write a systemd user unit and exit")
	rootCmd.AddCommand(coordinatorCmd)
}

func runCoordinator(cmd *cobra.Command, args []string) error {
	dir, err := workgraphDir()
	if err != nil {
		return err
	}

	if coordInstallService {
		unitPath, err := coordinator.InstallService(dir)
		if err != nil {
			return err
		}
		fmt.Printf("Created systemd user service: %s\n\n", unitPath)
		fmt.Println("Settings are read from config.toml.")
		fmt.Println("To enable and start:")
		fmt.Println("  systemctl --user daemon-reload")
		fmt.Println("  systemctl --user enable --now wg-coordinator")
		return nil
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}
	opts := coordinator.FromConfig(dir, cfg, coordInterval, coordMaxAgents, coordExecutor)
	opts.Once = coordOnce

	c, err := coordinator.New(opts)
	if err != nil {
		return err
	}
	return c.Run()
}
