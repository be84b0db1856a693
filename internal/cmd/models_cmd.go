package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nikete/workgraph/internal/models"
	"github.com/nikete/workgraph/internal/style"
)

var modelsCmd = &cobra.Command{
	Use:     "models",
	GroupID: GroupService,
	Short:   "Manage the executor model catalog",
	RunE:    requireSubcommand,
}

var (
	modelsListTier string
	modelsListJSON bool

	modelsAddProvider   string
	modelsAddTier       string
	modelsAddCostIn     float64
	modelsAddCostOut    float64
	modelsAddContext    int
	modelsAddCapability []string
)

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog models",
	RunE:  runModelsList,
}

var modelsAddCmd = &cobra.Command{
	Use:   "add <id>",
	Short: "Add or update a model",
	Args:  cobra.ExactArgs(1),
	RunE:  runModelsAdd,
}

var modelsSetDefaultCmd = &cobra.Command{
	Use:   "set-default <id>",
	Short: "Mark a model as the default",
	Args:  cobra.ExactArgs(1),
	RunE:  runModelsSetDefault,
}

var modelsInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Seed the catalog with the built-in defaults",
	RunE:  runModelsInit,
}

func init() {
	modelsListCmd.Flags().StringVar(&modelsListTier, "tier", "", "filter by tier (low, mid, high)")
	modelsListCmd.Flags().BoolVar(&modelsListJSON, "json", false, "machine-readable output")
	modelsAddCmd.Flags().StringVar(&modelsAddProvider, "provider", "", "model provider (required)")
	modelsAddCmd.Flags().StringVar(&modelsAddTier, "tier", "mid", "tier: low, mid, or high")
	modelsAddCmd.Flags().Float64Var(&modelsAddCostIn, "cost-input", 0, "cost per 1M input tokens")
	modelsAddCmd.Flags().Float64Var(&modelsAddCostOut, "cost-output", 0, "cost per 1M output tokens")
	modelsAddCmd.Flags().IntVar(&modelsAddContext, "context-window", 0, "context window in tokens")
	modelsAddCmd.Flags().StringSliceVar(&modelsAddCapability, "capability", nil, "capability tag (repeatable)")
	_ = modelsAddCmd.MarkFlagRequired("provider")
	modelsCmd.AddCommand(modelsListCmd, modelsAddCmd, modelsSetDefaultCmd, modelsInitCmd)
	rootCmd.AddCommand(modelsCmd)
}

func runModelsList(cmd *cobra.Command, args []string) error {
	dir, err := workgraphDir()
	if err != nil {
		return err
	}
	catalog, err := models.Load(dir)
	if err != nil {
		return err
	}

	var tier models.Tier
	if modelsListTier != "" {
		tier, err = models.ParseTier(modelsListTier)
		if err != nil {
			return err
		}
	}
	entries := catalog.List(tier)

	if modelsListJSON {
		return json.NewEncoder(os.Stdout).Encode(entries)
	}
	if len(entries) == 0 {
		fmt.Println("No models in catalog. Seed with 'wg models init'.")
		return nil
	}
	for _, m := range entries {
		marker := " "
		if m.ID == catalog.Default {
			marker = style.Success.Render("*")
		}
		fmt.Printf("%s %-18s %-10s %-5s $%.2f/$%.2f per 1M  ctx %d\n",
			marker, m.ID, m.Provider, style.TitleCase(string(m.Tier)),
			m.CostPer1MInput, m.CostPer1MOutput, m.ContextWindow)
	}
	return nil
}

func runModelsAdd(cmd *cobra.Command, args []string) error {
	dir, err := workgraphDir()
	if err != nil {
		return err
	}
	tier, err := models.ParseTier(modelsAddTier)
	if err != nil {
		return err
	}
	catalog, err := models.Load(dir)
	if err != nil {
		return err
	}
	catalog.Add(models.Entry{
		ID:              args[0],
		Provider:        modelsAddProvider,
		CostPer1MInput:  modelsAddCostIn,
		CostPer1MOutput: modelsAddCostOut,
		ContextWindow:   modelsAddContext,
		Capabilities:    modelsAddCapability,
		Tier:            tier,
	})
	if err := models.Save(dir, catalog); err != nil {
		return err
	}
	fmt.Printf("Added model %s (%s)\n", args[0], tier)
	return nil
}

func runModelsSetDefault(cmd *cobra.Command, args []string) error {
	dir, err := workgraphDir()
	if err != nil {
		return err
	}
	catalog, err := models.Load(dir)
	if err != nil {
		return err
	}
	if err := catalog.SetDefault(args[0]); err != nil {
		return err
	}
	if err := models.Save(dir, catalog); err != nil {
		return err
	}
	fmt.Printf("Default model: %s\n", args[0])
	return nil
}

func runModelsInit(cmd *cobra.Command, args []string) error {
	dir, err := workgraphDir()
	if err != nil {
		return err
	}
	added, err := models.InitDefaults(dir)
	if err != nil {
		return err
	}
	if added == 0 {
		fmt.Println("Catalog already seeded.")
		return nil
	}
	fmt.Printf("Seeded %d model(s)\n", added)
	return nil
}
