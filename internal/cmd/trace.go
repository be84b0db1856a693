package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nikete/workgraph/internal/graph"
	"github.com/nikete/workgraph/internal/style"
)

var traceJSON bool

var traceCmd = &cobra.Command{
	Use:     "trace <task>",
	GroupID: GroupHistory,
	Short:   "Show a task's dependency chain and log",
	Args:    cobra.ExactArgs(1),
	RunE:    runTrace,
}

func init() {
	traceCmd.Flags().BoolVar(&traceJSON, "json", false, "machine-readable output")
	rootCmd.AddCommand(traceCmd)
}

// traceNode is one entry in the JSON trace output.
type traceNode struct {
	ID        string   `json:"id"`
	Status    string   `json:"status"`
	Title     string   `json:"title"`
	Depth     int      `json:"depth"`
	BlockedBy []string `json:"blocked_by,omitempty"`
}

func runTrace(cmd *cobra.Command, args []string) error {
	dir, err := workgraphDir()
	if err != nil {
		return err
	}
	g, err := graph.Load(graph.Path(dir))
	if err != nil {
		return err
	}
	root, err := g.TaskOrErr(args[0])
	if err != nil {
		return err
	}

	var nodes []traceNode
	visited := map[string]bool{}
	var walk func(t *graph.Task, depth int)
	walk = func(t *graph.Task, depth int) {
		nodes = append(nodes, traceNode{
			ID: t.ID, Status: string(t.Status), Title: t.Title,
			Depth: depth, BlockedBy: t.BlockedBy,
		})
		if visited[t.ID] {
			return
		}
		visited[t.ID] = true
		for _, dep := range t.BlockedBy {
			if d := g.Task(dep); d != nil {
				walk(d, depth+1)
			} else {
				nodes = append(nodes, traceNode{ID: dep, Status: "missing", Depth: depth + 1})
			}
		}
	}
	walk(root, 0)

	if traceJSON {
		return json.NewEncoder(os.Stdout).Encode(nodes)
	}

	for _, n := range nodes {
		indent := strings.Repeat("  ", n.Depth)
		status := style.StatusStyle(n.Status).Render(n.Status)
		fmt.Printf("%s%s [%s] %s\n", indent, style.Hash.Render(n.ID), status, n.Title)
	}

	if len(root.Log) > 0 {
		fmt.Println("\nLog:")
		for _, entry := range root.Log {
			actor := ""
			if entry.Actor != "" {
				actor = " " + entry.Actor
			}
			fmt.Printf("  %s%s %s\n", style.Dim.Render(entry.Timestamp), actor, entry.Message)
		}
	}
	return nil
}
