package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nikete/workgraph/internal/hash"
	"github.com/nikete/workgraph/internal/identity"
	"github.com/nikete/workgraph/internal/style"
)

var roleCmd = &cobra.Command{
	Use:     "role",
	GroupID: GroupIdentity,
	Short:   "Manage content-addressed roles",
	RunE:    requireSubcommand,
}

var (
	roleAddOutcome     string
	roleAddSkills      []string
	roleAddDescription string
	roleListJSON       bool
	roleShowJSON       bool
)

var roleAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a role",
	Long: `Create a role. Skill specs:

  name                  tag-only skill
  file:///path          file-backed skill
  name:https://url      URL-backed skill
  name:inline:content   inline skill text`,
	Args: cobra.ExactArgs(1),
	RunE: runRoleAdd,
}

var roleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List roles",
	RunE:  runRoleList,
}

var roleShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a role by hash prefix",
	Args:  cobra.ExactArgs(1),
	RunE:  runRoleShow,
}

var roleLineageCmd = &cobra.Command{
	Use:   "lineage <id>",
	Short: "Show a role's lineage",
	Args:  cobra.ExactArgs(1),
	RunE:  runRoleLineage,
}

var roleEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Edit a role in $EDITOR",
	Long: `Open the role file in $EDITOR. Editing immutable fields (skills,
desired outcome, description) changes the content hash and renames the
file; editing only the name keeps the id.`,
	Args: cobra.ExactArgs(1),
	RunE: runRoleEdit,
}

var roleRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Remove a role",
	Args:  cobra.ExactArgs(1),
	RunE:  runRoleRm,
}

func init() {
	roleAddCmd.Flags().StringVar(&roleAddOutcome, "outcome", "", "desired outcome (required)")
	roleAddCmd.Flags().StringSliceVar(&roleAddSkills, "skill", nil, "skill spec (repeatable)")
	roleAddCmd.Flags().StringVarP(&roleAddDescription, "description", "d", "", "role description")
	_ = roleAddCmd.MarkFlagRequired("outcome")
	roleListCmd.Flags().BoolVar(&roleListJSON, "json", false, "machine-readable output")
	roleShowCmd.Flags().BoolVar(&roleShowJSON, "json", false, "machine-readable output")

	roleCmd.AddCommand(roleAddCmd, roleListCmd, roleShowCmd, roleLineageCmd, roleEditCmd, roleRmCmd)
	rootCmd.AddCommand(roleCmd)
}

// parseSkillRef parses a CLI skill spec into a SkillRef.
func parseSkillRef(spec string) identity.SkillRef {
	if rest, ok := strings.CutPrefix(spec, "file://"); ok {
		return identity.FileSkill(rest)
	}
	if idx := strings.Index(spec, ":file://"); idx >= 0 {
		return identity.FileSkill(spec[idx+len(":file://"):])
	}
	if idx := strings.Index(spec, ":https://"); idx >= 0 {
		return identity.URLSkill(spec[idx+1:])
	}
	if idx := strings.Index(spec, ":http://"); idx >= 0 {
		return identity.URLSkill(spec[idx+1:])
	}
	if idx := strings.Index(spec, ":inline:"); idx >= 0 {
		return identity.InlineSkill(spec[idx+len(":inline:"):])
	}
	return identity.NameSkill(spec)
}

func runRoleAdd(cmd *cobra.Command, args []string) error {
	dir, err := workgraphDir()
	if err != nil {
		return err
	}
	store := identity.Dir(dir)
	if err := store.Init(); err != nil {
		return err
	}

	skills := make([]identity.SkillRef, 0, len(roleAddSkills))
	for _, spec := range roleAddSkills {
		skills = append(skills, parseSkillRef(spec))
	}

	role := identity.BuildRole(args[0], roleAddDescription, skills, roleAddOutcome)
	if store.ExistsRole(role.ID) {
		return fmt.Errorf("role with identical content already exists (%s)", hash.Short(role.ID))
	}
	if err := store.SaveRole(role); err != nil {
		return err
	}
	if err := recordOp(dir, "role_add", "", map[string]any{"role_id": role.ID, "name": role.Name}); err != nil {
		return err
	}
	fmt.Printf("Created role %q (%s)\n", role.Name, style.Hash.Render(hash.Short(role.ID)))
	return nil
}

func runRoleList(cmd *cobra.Command, args []string) error {
	dir, err := workgraphDir()
	if err != nil {
		return err
	}
	roles, err := identity.Dir(dir).LoadAllRoles()
	if err != nil {
		return err
	}

	if roleListJSON {
		type summary struct {
			ID         string   `json:"id"`
			Name       string   `json:"name"`
			SkillCount int      `json:"skill_count"`
			MeanReward *float64 `json:"mean_reward"`
		}
		out := make([]summary, 0, len(roles))
		for _, r := range roles {
			out = append(out, summary{r.ID, r.Name, len(r.Skills), r.Performance.MeanReward})
		}
		return json.NewEncoder(os.Stdout).Encode(out)
	}

	if len(roles) == 0 {
		fmt.Println("No roles defined. Use 'wg role add' to create one.")
		return nil
	}
	for _, r := range roles {
		mean := "-"
		if r.Performance.MeanReward != nil {
			mean = fmt.Sprintf("%.2f", *r.Performance.MeanReward)
		}
		fmt.Printf("  %s  %-20s skills: %d  mean_reward: %s\n",
			style.Hash.Render(hash.Short(r.ID)), r.Name, len(r.Skills), mean)
	}
	return nil
}

func runRoleShow(cmd *cobra.Command, args []string) error {
	dir, err := workgraphDir()
	if err != nil {
		return err
	}
	role, err := identity.Dir(dir).FindRoleByPrefix(args[0])
	if err != nil {
		return err
	}

	if roleShowJSON {
		return json.NewEncoder(os.Stdout).Encode(role)
	}

	fmt.Printf("Role: %s (%s)\n", role.Name, style.Hash.Render(hash.Short(role.ID)))
	if role.Description != "" {
		fmt.Printf("  Description: %s\n", role.Description)
	}
	fmt.Printf("  Desired outcome: %s\n", role.DesiredOutcome)
	if len(role.Skills) > 0 {
		fmt.Println("  Skills:")
		for _, s := range role.Skills {
			fmt.Printf("    - %s\n", s)
		}
	}
	fmt.Printf("  Performance: %d task(s)", role.Performance.TaskCount)
	if role.Performance.MeanReward != nil {
		fmt.Printf(", mean reward %.2f", *role.Performance.MeanReward)
	}
	fmt.Println()
	return nil
}

func runRoleLineage(cmd *cobra.Command, args []string) error {
	dir, err := workgraphDir()
	if err != nil {
		return err
	}
	role, err := identity.Dir(dir).FindRoleByPrefix(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Lineage of %s (%s):\n", role.Name, hash.Short(role.ID))
	fmt.Printf("  Generation: %d\n", role.Lineage.Generation)
	if role.Lineage.CreatedBy != "" {
		fmt.Printf("  Created by: %s\n", role.Lineage.CreatedBy)
	}
	if role.Lineage.CreatedAt != "" {
		fmt.Printf("  Created at: %s\n", role.Lineage.CreatedAt)
	}
	if len(role.Lineage.Parents) == 0 {
		fmt.Println("  Parents: (none)")
		return nil
	}
	for _, p := range role.Lineage.Parents {
		fmt.Printf("  Parent: %s\n", hash.Short(p))
	}
	return nil
}

// editInEditor opens a file in $EDITOR/$VISUAL and waits. Editor exit
// codes are not checked beyond command failure.
func editInEditor(path string) error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	parts = append(parts, path)
	c := exec.Command(parts[0], parts[1:]...)
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	return c.Run()
}

func runRoleEdit(cmd *cobra.Command, args []string) error {
	dir, err := workgraphDir()
	if err != nil {
		return err
	}
	store := identity.Dir(dir)
	role, err := store.FindRoleByPrefix(args[0])
	if err != nil {
		return err
	}

	path := filepath.Join(store.Root(), "roles", role.ID+".yaml")
	if err := editInEditor(path); err != nil {
		return fmt.Errorf("running editor: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("rereading role: %w", err)
	}
	var edited identity.Role
	if err := yaml.Unmarshal(data, &edited); err != nil {
		return fmt.Errorf("parsing edited role: %w", err)
	}

	// The id is the content hash of the immutable fields; recompute and
	// rename the file when they changed.
	newID := identity.HashRole(edited.Skills, edited.DesiredOutcome, edited.Description)
	if newID == role.ID {
		edited.ID = role.ID
		if err := store.SaveRole(&edited); err != nil {
			return err
		}
		fmt.Printf("Updated role %q (%s)\n", edited.Name, hash.Short(role.ID))
		return nil
	}

	edited.ID = newID
	edited.Lineage.Parents = []string{role.ID}
	edited.Lineage.Generation = role.Lineage.Generation + 1
	if err := store.SaveRole(&edited); err != nil {
		return err
	}
	if err := store.DeleteRole(role.ID); err != nil {
		return err
	}
	fmt.Printf("Content changed: %s -> %s\n", hash.Short(role.ID), style.Hash.Render(hash.Short(newID)))
	return nil
}

func runRoleRm(cmd *cobra.Command, args []string) error {
	dir, err := workgraphDir()
	if err != nil {
		return err
	}
	store := identity.Dir(dir)
	role, err := store.FindRoleByPrefix(args[0])
	if err != nil {
		return err
	}
	if err := store.DeleteRole(role.ID); err != nil {
		return err
	}
	fmt.Printf("Removed role %q (%s)\n", role.Name, hash.Short(role.ID))
	return nil
}
