package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nikete/workgraph/internal/graph"
	"github.com/nikete/workgraph/internal/hash"
	"github.com/nikete/workgraph/internal/style"
)

var (
	listStatus string
	listJSON   bool
	readyJSON  bool
	checkJSON  bool
)

var listCmd = &cobra.Command{
	Use:     "list",
	GroupID: GroupTasks,
	Short:   "List tasks",
	RunE:    runList,
}

var readyCmd = &cobra.Command{
	Use:     "ready",
	GroupID: GroupTasks,
	Short:   "List ready tasks",
	Long: `A task is ready when it is open, unpaused, every blocker is done,
and its time gates have elapsed.`,
	RunE: runReady,
}

var checkCmd = &cobra.Command{
	Use:     "check",
	GroupID: GroupTasks,
	Short:   "Validate the graph: orphan refs, cycles, loop-edge issues",
	RunE:    runCheck,
}

func init() {
	listCmd.Flags().StringVar(&listStatus, "status", "", "filter by status")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "machine-readable output")
	readyCmd.Flags().BoolVar(&readyJSON, "json", false, "machine-readable output")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "machine-readable output")
	rootCmd.AddCommand(listCmd, readyCmd, checkCmd)
}

func printTaskLine(t *graph.Task) {
	marker := ""
	if t.Paused {
		marker = style.Dim.Render(" [paused]")
	}
	agent := ""
	if t.Agent != "" {
		agent = style.Dim.Render(" agent:" + hash.Short(t.Agent))
	}
	fmt.Printf("  %-24s %-14s %s%s%s\n",
		style.Hash.Render(t.ID),
		style.StatusStyle(string(t.Status)).Render(t.Status.Title()),
		style.Truncate(t.Title, 60), agent, marker)
}

func runList(cmd *cobra.Command, args []string) error {
	dir, err := workgraphDir()
	if err != nil {
		return err
	}
	g, err := graph.Load(graph.Path(dir))
	if err != nil {
		return err
	}

	var filter graph.Status
	if listStatus != "" {
		filter, err = graph.ParseStatus(listStatus)
		if err != nil {
			return err
		}
	}

	var tasks []*graph.Task
	for _, t := range g.Tasks() {
		if filter != "" && t.Status != filter {
			continue
		}
		tasks = append(tasks, t)
	}

	if listJSON {
		return json.NewEncoder(os.Stdout).Encode(tasks)
	}
	if len(tasks) == 0 {
		fmt.Println("No tasks.")
		return nil
	}
	for _, t := range tasks {
		printTaskLine(t)
	}
	return nil
}

func runReady(cmd *cobra.Command, args []string) error {
	dir, err := workgraphDir()
	if err != nil {
		return err
	}
	g, err := graph.Load(graph.Path(dir))
	if err != nil {
		return err
	}
	ready := graph.Ready(g, time.Now())

	if readyJSON {
		return json.NewEncoder(os.Stdout).Encode(ready)
	}
	if len(ready) == 0 {
		fmt.Println("No ready tasks.")
		return nil
	}
	for _, t := range ready {
		printTaskLine(t)
	}
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	dir, err := workgraphDir()
	if err != nil {
		return err
	}
	g, err := graph.Load(graph.Path(dir))
	if err != nil {
		return err
	}
	report := graph.CheckAll(g)

	if checkJSON {
		return json.NewEncoder(os.Stdout).Encode(report)
	}

	if report.Clean() {
		fmt.Println(style.Success.Render("Graph is clean."))
		return nil
	}
	for _, o := range report.Orphans {
		fmt.Printf("%s %s references missing node %q\n", style.Warning.Render("orphan:"), o.From, o.To)
	}
	for _, c := range report.Cycles {
		fmt.Printf("%s %v\n", style.Error.Render("cycle:"), c)
	}
	for _, issue := range report.LoopIssues {
		fmt.Printf("%s %s -> %s: %s\n", style.Warning.Render("loop:"), issue.Task, issue.Target, issue.Problem)
	}
	return fmt.Errorf("check found %d issue(s)", len(report.Orphans)+len(report.Cycles)+len(report.LoopIssues))
}
