package cmd

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nikete/workgraph/internal/graph"
	"github.com/nikete/workgraph/internal/style"
)

var addCmd = &cobra.Command{
	Use:     "add <title>",
	GroupID: GroupTasks,
	Short:   "Add a task to the graph",
	Args:    cobra.MinimumNArgs(1),
	RunE:    runAdd,
}

var (
	addID           string
	addDescription  string
	addBlockedBy    []string
	addRequires     []string
	addSkills       []string
	addTags         []string
	addDeliverables []string
	addInputs       []string
	addVerify       string
	addNotBefore    string
	addEstimate     string
	addMaxRetries   int
	addResource     bool
)

func init() {
	addCmd.Flags().StringVar(&addID, "id", "", "task id (default: derived from title)")
	addCmd.Flags().StringVarP(&addDescription, "description", "d", "", "task description")
	addCmd.Flags().StringSliceVar(&addBlockedBy, "blocked-by", nil, "ids this task is blocked by")
	addCmd.Flags().StringSliceVar(&addRequires, "requires", nil, "resource ids this task requires")
	addCmd.Flags().StringSliceVar(&addSkills, "skill", nil, "skills the task calls for")
	addCmd.Flags().StringSliceVar(&addTags, "tag", nil, "tags")
	addCmd.Flags().StringSliceVar(&addDeliverables, "deliverable", nil, "expected deliverables")
	addCmd.Flags().StringSliceVar(&addInputs, "input", nil, "task inputs")
	addCmd.Flags().StringVar(&addVerify, "verify", "", "verification gate; completion goes through submit/approve")
	addCmd.Flags().StringVar(&addNotBefore, "not-before", "", "RFC3339 time before which the task is not ready")
	addCmd.Flags().StringVar(&addEstimate, "estimate", "", "effort estimate")
	addCmd.Flags().IntVar(&addMaxRetries, "max-retries", 0, "retry budget for rejected work")
	addCmd.Flags().BoolVar(&addResource, "resource", false, "add a resource node instead of a task")
	rootCmd.AddCommand(addCmd)
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// slugify derives a task id from a title.
func slugify(title string) string {
	slug := slugPattern.ReplaceAllString(strings.ToLower(title), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 40 {
		slug = slug[:40]
	}
	if slug == "" {
		slug = "task"
	}
	return slug
}

func runAdd(cmd *cobra.Command, args []string) error {
	dir, err := workgraphDir()
	if err != nil {
		return err
	}
	title := strings.Join(args, " ")

	var createdID string
	err = graph.Update(dir, func(g *graph.Graph) (bool, error) {
		if addResource {
			id := addID
			if id == "" {
				id = slugify(title)
			}
			if g.HasNode(id) {
				return false, fmt.Errorf("node %q already exists", id)
			}
			g.AddNode(graph.Node{Resource: &graph.Resource{ID: id, Description: addDescription}})
			createdID = id
			return true, nil
		}

		id := addID
		if id == "" {
			id = slugify(title)
			for n := 2; g.HasNode(id); n++ {
				id = fmt.Sprintf("%s-%d", slugify(title), n)
			}
		} else if g.HasNode(id) {
			return false, fmt.Errorf("node %q already exists", id)
		}

		for _, dep := range addBlockedBy {
			if !g.HasNode(dep) {
				return false, fmt.Errorf("blocked-by target %q not found", dep)
			}
		}

		task := &graph.Task{
			ID:           id,
			Title:        title,
			Description:  addDescription,
			Status:       graph.StatusOpen,
			BlockedBy:    addBlockedBy,
			Requires:     addRequires,
			Skills:       addSkills,
			Tags:         addTags,
			Inputs:       addInputs,
			Deliverables: addDeliverables,
			Verify:       addVerify,
			NotBefore:    addNotBefore,
			Estimate:     addEstimate,
			CreatedAt:    time.Now().UTC().Format(time.RFC3339),
		}
		if addMaxRetries > 0 {
			task.MaxRetries = &addMaxRetries
		}
		g.AddTask(task)

		// Keep blocked_by/blocks mutually consistent.
		for _, dep := range addBlockedBy {
			if blocker := g.Task(dep); blocker != nil && !containsString(blocker.Blocks, id) {
				blocker.Blocks = append(blocker.Blocks, id)
			}
		}
		createdID = id
		return true, nil
	})
	if err != nil {
		return err
	}

	if err := recordOp(dir, "add", createdID, map[string]any{"title": title}); err != nil {
		return err
	}
	fmt.Printf("Added %s %s\n", style.Hash.Render(createdID), title)
	return nil
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
