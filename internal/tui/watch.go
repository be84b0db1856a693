// Package tui provides the live board shown by `wg watch`: task counts and
// the ready queue, refreshed on the interval passed to NewModel (2s when
// zero).
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nikete/workgraph/internal/graph"
	"github.com/nikete/workgraph/internal/registry"
	"github.com/nikete/workgraph/internal/style"
)

type refreshMsg struct {
	tasks   []*graph.Task
	ready   []*graph.Task
	alive   int
	loadErr error
}

type tickMsg time.Time

// Model is the bubbletea model for the watch board.
type Model struct {
	dir      string
	interval time.Duration
	spinner  spinner.Model

	tasks []*graph.Task
	ready []*graph.Task
	alive int
	err   error
}

// NewModel builds a watch model for one workgraph directory.
func NewModel(dir string, interval time.Duration) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return Model{dir: dir, interval: interval, spinner: sp}
}

// Init starts the spinner and the first refresh.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.refresh, m.schedule())
}

func (m Model) schedule() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// refresh loads the graph and registry off the UI loop.
func (m Model) refresh() tea.Msg {
	g, err := graph.Load(graph.Path(m.dir))
	if err != nil {
		return refreshMsg{loadErr: err}
	}
	reg, err := registry.Load(m.dir)
	if err != nil {
		return refreshMsg{loadErr: err}
	}
	return refreshMsg{
		tasks: g.Tasks(),
		ready: graph.Ready(g, time.Now()),
		alive: len(reg.Alive(0)),
	}
}

// Update handles refreshes, timer ticks and quit keys.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			return m, m.refresh
		}
	case tickMsg:
		return m, tea.Batch(m.refresh, m.schedule())
	case refreshMsg:
		m.err = msg.loadErr
		if msg.loadErr == nil {
			m.tasks = msg.tasks
			m.ready = msg.ready
			m.alive = msg.alive
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the board.
func (m Model) View() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n\n", m.spinner.View(), style.Header.Render("workgraph"))

	if m.err != nil {
		fmt.Fprintf(&b, "%s\n", style.Error.Render(m.err.Error()))
		return b.String()
	}

	counts := map[graph.Status]int{}
	for _, t := range m.tasks {
		counts[t.Status]++
	}
	var parts []string
	for _, s := range []graph.Status{
		graph.StatusOpen, graph.StatusInProgress, graph.StatusPendingReview,
		graph.StatusDone, graph.StatusFailed, graph.StatusAbandoned,
	} {
		if counts[s] > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", style.StatusStyle(string(s)).Render(s.Title()), counts[s]))
		}
	}
	fmt.Fprintf(&b, "%s   agents alive: %d\n\n", strings.Join(parts, "  "), m.alive)

	b.WriteString(style.Bold.Render("Ready") + "\n")
	if len(m.ready) == 0 {
		b.WriteString(style.Dim.Render("  (nothing ready)") + "\n")
	}
	width := style.Width()
	for _, t := range m.ready {
		line := fmt.Sprintf("  %-20s %s", t.ID, t.Title)
		b.WriteString(style.Truncate(line, width) + "\n")
	}

	b.WriteString("\n" + style.Dim.Render("q quit · r refresh") + "\n")
	return b.String()
}
