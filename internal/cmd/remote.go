package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/nikete/workgraph/internal/federation"
	"github.com/nikete/workgraph/internal/style"
)

var (
	remoteAddDescription string
	remoteListJSON       bool
	remoteShowJSON       bool
)

var remoteAddCmd = &cobra.Command{
	Use:   "add <name> <path>",
	Short: "Register a named remote",
	Args:  cobra.ExactArgs(2),
	RunE:  runRemoteAdd,
}

var remoteRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a named remote",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemoteRemove,
}

var remoteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List named remotes",
	RunE:  runRemoteList,
}

var remoteShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a remote with entity counts",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemoteShow,
}

func init() {
	remoteAddCmd.Flags().StringVarP(&remoteAddDescription, "description", "d", "", "remote description")
	remoteListCmd.Flags().BoolVar(&remoteListJSON, "json", false, "machine-readable output")
	remoteShowCmd.Flags().BoolVar(&remoteShowJSON, "json", false, "machine-readable output")
}

func runRemoteAdd(cmd *cobra.Command, args []string) error {
	dir, err := workgraphDir()
	if err != nil {
		return err
	}
	name, path := args[0], args[1]

	// Warn but do not block on an unreachable path; it may live on another
	// machine or an unmounted drive.
	if _, statErr := os.Stat(path); statErr != nil {
		fmt.Fprintf(os.Stderr, "%s path %q does not exist or is not accessible; adding anyway\n",
			style.Warning.Render("warning:"), path)
	}

	if err := federation.AddRemote(dir, name, path, remoteAddDescription); err != nil {
		return err
	}
	fmt.Printf("Added remote %q -> %s\n", name, path)
	return nil
}

func runRemoteRemove(cmd *cobra.Command, args []string) error {
	dir, err := workgraphDir()
	if err != nil {
		return err
	}
	if err := federation.RemoveRemote(dir, args[0]); err != nil {
		return err
	}
	fmt.Printf("Removed remote %q\n", args[0])
	return nil
}

func runRemoteList(cmd *cobra.Command, args []string) error {
	dir, err := workgraphDir()
	if err != nil {
		return err
	}
	cfg, err := federation.LoadConfig(dir)
	if err != nil {
		return err
	}

	if remoteListJSON {
		type entry struct {
			Name        string `json:"name"`
			Path        string `json:"path"`
			Description string `json:"description,omitempty"`
			LastSync    string `json:"last_sync,omitempty"`
		}
		var out []entry
		for name, r := range cfg.Remotes {
			out = append(out, entry{name, r.Path, r.Description, r.LastSync})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return json.NewEncoder(os.Stdout).Encode(out)
	}

	if len(cfg.Remotes) == 0 {
		fmt.Println("No remotes configured. Add one with 'wg identity remote add <name> <path>'")
		return nil
	}
	names := make([]string, 0, len(cfg.Remotes))
	for name := range cfg.Remotes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		r := cfg.Remotes[name]
		sync := r.LastSync
		if sync == "" {
			sync = "never"
		}
		fmt.Printf("  %-15s %s (last sync: %s)\n", name, r.Path, sync)
		if r.Description != "" {
			fmt.Printf("  %-15s %s\n", "", style.Dim.Render(r.Description))
		}
	}
	return nil
}

func runRemoteShow(cmd *cobra.Command, args []string) error {
	dir, err := workgraphDir()
	if err != nil {
		return err
	}
	cfg, err := federation.LoadConfig(dir)
	if err != nil {
		return err
	}
	remote, ok := cfg.Remotes[args[0]]
	if !ok {
		return fmt.Errorf("remote %q not found", args[0])
	}

	store, storeErr := federation.ResolveStore(remote.Path)

	if remoteShowJSON {
		out := map[string]any{
			"name":        args[0],
			"path":        remote.Path,
			"description": remote.Description,
			"last_sync":   remote.LastSync,
			"accessible":  storeErr == nil,
		}
		if storeErr == nil {
			roles, _ := store.LoadAllRoles()
			objectives, _ := store.LoadAllObjectives()
			agents, _ := store.LoadAllAgents()
			rewards, _ := store.LoadAllRewards()
			out["store_path"] = store.Root()
			out["entities"] = map[string]int{
				"roles":      len(roles),
				"objectives": len(objectives),
				"agents":     len(agents),
				"rewards":    len(rewards),
			}
		} else {
			out["error"] = storeErr.Error()
		}
		return json.NewEncoder(os.Stdout).Encode(out)
	}

	fmt.Printf("Remote: %s\n", args[0])
	fmt.Printf("  Path: %s\n", remote.Path)
	if remote.Description != "" {
		fmt.Printf("  Description: %s\n", remote.Description)
	}
	if remote.LastSync != "" {
		fmt.Printf("  Last sync: %s\n", remote.LastSync)
	} else {
		fmt.Println("  Last sync: never")
	}
	if storeErr != nil {
		fmt.Printf("  %s %v\n", style.Error.Render("unreachable:"), storeErr)
		return nil
	}
	roles, _ := store.LoadAllRoles()
	objectives, _ := store.LoadAllObjectives()
	agents, _ := store.LoadAllAgents()
	rewards, _ := store.LoadAllRewards()
	fmt.Printf("  Entities: %d role(s), %d objective(s), %d agent(s), %d reward(s)\n",
		len(roles), len(objectives), len(agents), len(rewards))
	return nil
}
