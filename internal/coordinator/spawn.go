package coordinator

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/nikete/workgraph/internal/graph"
	"github.com/nikete/workgraph/internal/identity"
	"github.com/nikete/workgraph/internal/provenance"
	"github.com/nikete/workgraph/internal/registry"
)

// spawn launches an executor process for a task: the prompt is rendered,
// archived alongside the captured stdout under log/agents/<task>/<ts>/,
// and a registry entry records the PID.
func (c *Coordinator) spawn(task *graph.Task) (*registry.Entry, error) {
	dir := c.opts.Dir

	prompt, err := c.renderPrompt(task)
	if err != nil {
		return nil, err
	}

	archiveDir := filepath.Join(dir, "log", "agents", task.ID, time.Now().UTC().Format("20060102T150405"))
	if err := os.MkdirAll(archiveDir, 0755); err != nil {
		return nil, fmt.Errorf("creating agent log directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(archiveDir, "prompt.txt"), []byte(prompt), 0644); err != nil {
		return nil, fmt.Errorf("archiving prompt: %w", err)
	}

	outputPath := filepath.Join(archiveDir, "output.txt")
	output, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("creating output file: %w", err)
	}
	defer output.Close()

	executor := c.opts.Executor
	if task.Exec != "" {
		executor = task.Exec
	}
	parts := strings.Fields(executor)
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty executor")
	}
	cmd := exec.Command(parts[0], parts[1:]...)
	cmd.Dir = filepath.Dir(dir)
	cmd.Stdin = strings.NewReader(prompt)
	cmd.Stdout = output
	cmd.Stderr = output
	cmd.Env = append(os.Environ(),
		"WG_TASK_ID="+task.ID,
		"WG_DIR="+dir,
	)
	// New session: children outlive the coordinator and are tracked by PID.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting executor %q: %w", executor, err)
	}

	entry := registry.NewEntry(cmd.Process.Pid, task.ID, executor, outputPath)
	reg, err := registry.Load(dir)
	if err != nil {
		return nil, err
	}
	reg.Agents[entry.ID] = entry
	if err := registry.Save(dir, reg); err != nil {
		return nil, err
	}

	// Reap in the background and record the exit outcome. Liveness checks
	// rely on the PID probe, so a lost update here is harmless.
	go func() {
		err := cmd.Wait()
		reg, loadErr := registry.Load(dir)
		if loadErr != nil {
			return
		}
		status := registry.StatusCompleted
		if err != nil {
			status = registry.StatusFailed
		}
		if markErr := reg.MarkStatus(entry.ID, status); markErr == nil {
			_ = registry.Save(dir, reg)
		}
	}()

	_ = provenance.Record(dir, "spawn", task.ID, "coordinator", map[string]any{
		"agent_entry": entry.ID,
		"pid":         entry.PID,
		"executor":    executor,
	}, c.opts.RotationThreshold)

	return entry, nil
}

// renderPrompt composes the task prompt, prefixed by the rendered identity
// prompt when the task has an assigned agent.
func (c *Coordinator) renderPrompt(task *graph.Task) (string, error) {
	var b strings.Builder

	if task.Agent != "" {
		store := identity.Dir(c.opts.Dir)
		agent, err := store.LoadAgent(task.Agent)
		if err != nil {
			return "", fmt.Errorf("rendering identity prompt: %w", err)
		}
		role, err := store.LoadRole(agent.RoleID)
		if err != nil {
			return "", fmt.Errorf("rendering identity prompt: %w", err)
		}
		objective, err := store.LoadObjective(agent.ObjectiveID)
		if err != nil {
			return "", fmt.Errorf("rendering identity prompt: %w", err)
		}
		skills := identity.ResolveAllSkills(role.Skills, c.opts.Dir)
		b.WriteString(identity.RenderIdentityPrompt(role, objective, skills))
		b.WriteString("\n---\n\n")
	}

	fmt.Fprintf(&b, "# Task: %s\n\n%s\n", task.ID, task.Title)
	if task.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", task.Description)
	}
	if len(task.Inputs) > 0 {
		fmt.Fprintf(&b, "\nInputs:\n")
		for _, in := range task.Inputs {
			fmt.Fprintf(&b, "- %s\n", in)
		}
	}
	if len(task.Deliverables) > 0 {
		fmt.Fprintf(&b, "\nDeliverables:\n")
		for _, d := range task.Deliverables {
			fmt.Fprintf(&b, "- %s\n", d)
		}
	}
	if task.Verify != "" {
		fmt.Fprintf(&b, "\nVerification gate: %s\nWhen finished, run `wg submit %s`.\n", task.Verify, task.ID)
	} else {
		fmt.Fprintf(&b, "\nWhen finished, run `wg done %s`. On failure, run `wg fail %s --reason \"<why>\"`.\n", task.ID, task.ID)
	}
	return b.String(), nil
}
