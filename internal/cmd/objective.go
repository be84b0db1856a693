package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nikete/workgraph/internal/hash"
	"github.com/nikete/workgraph/internal/identity"
	"github.com/nikete/workgraph/internal/style"
)

var objectiveCmd = &cobra.Command{
	Use:     "objective",
	GroupID: GroupIdentity,
	Short:   "Manage content-addressed objectives",
	RunE:    requireSubcommand,
}

var (
	objectiveAddDescription  string
	objectiveAddAcceptable   []string
	objectiveAddUnacceptable []string
	objectiveListJSON        bool
	objectiveShowJSON        bool
)

var objectiveAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create an objective",
	Args:  cobra.ExactArgs(1),
	RunE:  runObjectiveAdd,
}

var objectiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List objectives",
	RunE:  runObjectiveList,
}

var objectiveShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show an objective by hash prefix",
	Args:  cobra.ExactArgs(1),
	RunE:  runObjectiveShow,
}

var objectiveLineageCmd = &cobra.Command{
	Use:   "lineage <id>",
	Short: "Show an objective's lineage",
	Args:  cobra.ExactArgs(1),
	RunE:  runObjectiveLineage,
}

var objectiveEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Edit an objective in $EDITOR",
	Long: `Open the objective file in $EDITOR. Editing immutable fields
(description, tradeoffs) changes the content hash and renames the file;
editing only the name keeps the id.`,
	Args: cobra.ExactArgs(1),
	RunE: runObjectiveEdit,
}

var objectiveRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Remove an objective",
	Args:  cobra.ExactArgs(1),
	RunE:  runObjectiveRm,
}

func init() {
	objectiveAddCmd.Flags().StringVarP(&objectiveAddDescription, "description", "d", "", "objective description (required)")
	objectiveAddCmd.Flags().StringSliceVar(&objectiveAddAcceptable, "acceptable", nil, "acceptable tradeoff (repeatable)")
	objectiveAddCmd.Flags().StringSliceVar(&objectiveAddUnacceptable, "unacceptable", nil, "unacceptable tradeoff (repeatable)")
	_ = objectiveAddCmd.MarkFlagRequired("description")
	objectiveListCmd.Flags().BoolVar(&objectiveListJSON, "json", false, "machine-readable output")
	objectiveShowCmd.Flags().BoolVar(&objectiveShowJSON, "json", false, "machine-readable output")

	objectiveCmd.AddCommand(objectiveAddCmd, objectiveListCmd, objectiveShowCmd, objectiveLineageCmd, objectiveEditCmd, objectiveRmCmd)
	rootCmd.AddCommand(objectiveCmd)
}

func runObjectiveAdd(cmd *cobra.Command, args []string) error {
	dir, err := workgraphDir()
	if err != nil {
		return err
	}
	store := identity.Dir(dir)
	if err := store.Init(); err != nil {
		return err
	}

	objective := identity.BuildObjective(args[0], objectiveAddDescription, objectiveAddAcceptable, objectiveAddUnacceptable)
	if store.ExistsObjective(objective.ID) {
		return fmt.Errorf("objective with identical content already exists (%s)", hash.Short(objective.ID))
	}
	if err := store.SaveObjective(objective); err != nil {
		return err
	}
	if err := recordOp(dir, "objective_add", "", map[string]any{"objective_id": objective.ID, "name": objective.Name}); err != nil {
		return err
	}
	fmt.Printf("Created objective %q (%s)\n", objective.Name, style.Hash.Render(hash.Short(objective.ID)))
	return nil
}

func runObjectiveList(cmd *cobra.Command, args []string) error {
	dir, err := workgraphDir()
	if err != nil {
		return err
	}
	objectives, err := identity.Dir(dir).LoadAllObjectives()
	if err != nil {
		return err
	}

	if objectiveListJSON {
		return json.NewEncoder(os.Stdout).Encode(objectives)
	}
	if len(objectives) == 0 {
		fmt.Println("No objectives defined. Use 'wg objective add' to create one.")
		return nil
	}
	for _, o := range objectives {
		mean := "-"
		if o.Performance.MeanReward != nil {
			mean = fmt.Sprintf("%.2f", *o.Performance.MeanReward)
		}
		fmt.Printf("  %s  %-20s mean_reward: %s\n", style.Hash.Render(hash.Short(o.ID)), o.Name, mean)
	}
	return nil
}

func runObjectiveShow(cmd *cobra.Command, args []string) error {
	dir, err := workgraphDir()
	if err != nil {
		return err
	}
	objective, err := identity.Dir(dir).FindObjectiveByPrefix(args[0])
	if err != nil {
		return err
	}

	if objectiveShowJSON {
		return json.NewEncoder(os.Stdout).Encode(objective)
	}

	fmt.Printf("Objective: %s (%s)\n", objective.Name, style.Hash.Render(hash.Short(objective.ID)))
	fmt.Printf("  Description: %s\n", objective.Description)
	if len(objective.AcceptableTradeoffs) > 0 {
		fmt.Println("  Acceptable tradeoffs:")
		for _, t := range objective.AcceptableTradeoffs {
			fmt.Printf("    - %s\n", t)
		}
	}
	if len(objective.UnacceptableTradeoffs) > 0 {
		fmt.Println("  Unacceptable tradeoffs:")
		for _, t := range objective.UnacceptableTradeoffs {
			fmt.Printf("    - %s\n", t)
		}
	}
	return nil
}

func runObjectiveLineage(cmd *cobra.Command, args []string) error {
	dir, err := workgraphDir()
	if err != nil {
		return err
	}
	objective, err := identity.Dir(dir).FindObjectiveByPrefix(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Lineage of %s (%s):\n", objective.Name, hash.Short(objective.ID))
	fmt.Printf("  Generation: %d\n", objective.Lineage.Generation)
	if objective.Lineage.CreatedBy != "" {
		fmt.Printf("  Created by: %s\n", objective.Lineage.CreatedBy)
	}
	if len(objective.Lineage.Parents) == 0 {
		fmt.Println("  Parents: (none)")
		return nil
	}
	for _, p := range objective.Lineage.Parents {
		fmt.Printf("  Parent: %s\n", hash.Short(p))
	}
	return nil
}

func runObjectiveEdit(cmd *cobra.Command, args []string) error {
	dir, err := workgraphDir()
	if err != nil {
		return err
	}
	store := identity.Dir(dir)
	objective, err := store.FindObjectiveByPrefix(args[0])
	if err != nil {
		return err
	}

	path := filepath.Join(store.Root(), "objectives", objective.ID+".yaml")
	if err := editInEditor(path); err != nil {
		return fmt.Errorf("running editor: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("rereading objective: %w", err)
	}
	var edited identity.Objective
	if err := yaml.Unmarshal(data, &edited); err != nil {
		return fmt.Errorf("parsing edited objective: %w", err)
	}

	newID := identity.HashObjective(edited.Description, edited.AcceptableTradeoffs, edited.UnacceptableTradeoffs)
	if newID == objective.ID {
		edited.ID = objective.ID
		if err := store.SaveObjective(&edited); err != nil {
			return err
		}
		fmt.Printf("Updated objective %q (%s)\n", edited.Name, hash.Short(objective.ID))
		return nil
	}

	edited.ID = newID
	edited.Lineage.Parents = []string{objective.ID}
	edited.Lineage.Generation = objective.Lineage.Generation + 1
	if err := store.SaveObjective(&edited); err != nil {
		return err
	}
	if err := store.DeleteObjective(objective.ID); err != nil {
		return err
	}
	fmt.Printf("Content changed: %s -> %s\n", hash.Short(objective.ID), style.Hash.Render(hash.Short(newID)))
	return nil
}

func runObjectiveRm(cmd *cobra.Command, args []string) error {
	dir, err := workgraphDir()
	if err != nil {
		return err
	}
	store := identity.Dir(dir)
	objective, err := store.FindObjectiveByPrefix(args[0])
	if err != nil {
		return err
	}
	if err := store.DeleteObjective(objective.ID); err != nil {
		return err
	}
	fmt.Printf("Removed objective %q (%s)\n", objective.Name, hash.Short(objective.ID))
	return nil
}
