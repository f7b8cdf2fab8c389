package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tracesmith/tracesmith/pkg/api"
	"github.com/tracesmith/tracesmith/pkg/client"
	"github.com/tracesmith/tracesmith/pkg/dataset"
	"github.com/tracesmith/tracesmith/pkg/render"
)

// Config
const (
	pollRate       = 2 * time.Second
	maxRoots       = 20
	viewportHeight = 20
	fetchTimeout   = 500 * time.Millisecond
)

// Styles
var (
	subtleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)

	// Layout styles
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			Width(100)

	paneStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1).
			Width(100)
)

type tickMsg time.Time

type dataMsg struct {
	roots   []api.RootEntry
	summary *dataset.Summary
	err     error
}

type hierarchyMsg struct {
	rootID string
	tree   string
	err    error
}

type model struct {
	client   *client.Client
	spinner  spinner.Model
	viewport viewport.Model
	roots    []api.RootEntry
	summary  *dataset.Summary
	selected int
	shownID  string
	err      error
	ready    bool
}

func initialModel(c *client.Client) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	vp := viewport.New(100, viewportHeight)
	vp.Style = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		PaddingRight(2)

	return model{
		client:   c,
		spinner:  s,
		viewport: vp,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		fetchData(m.client),
		tick(),
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "up", "k":
			if m.selected > 0 {
				m.selected--
				cmds = append(cmds, m.fetchSelected())
			}
		case "down", "j":
			if m.selected < len(m.roots)-1 {
				m.selected++
				cmds = append(cmds, m.fetchSelected())
			}
		default:
			m.viewport, cmd = m.viewport.Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case tickMsg:
		cmds = append(cmds, fetchData(m.client), tick())

	case dataMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.roots = msg.roots
			m.summary = msg.summary
			if m.selected >= len(m.roots) {
				m.selected = 0
			}
			if len(m.roots) > 0 && m.shownID != m.roots[m.selected].TraceID {
				cmds = append(cmds, m.fetchSelected())
			}
		}
		m.ready = true

	case hierarchyMsg:
		if msg.err != nil {
			m.viewport.SetContent(errorStyle.Render(fmt.Sprintf("Failed to load hierarchy: %v", msg.err)))
		} else {
			m.shownID = msg.rootID
			m.viewport.SetContent(msg.tree)
		}

	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = viewportHeight
	}

	return m, tea.Batch(cmds...)
}

func (m model) View() string {
	if !m.ready {
		return fmt.Sprintf("\n%s Connecting to tracesmith-d...", m.spinner.View())
	}

	// Top Pane: Root list
	var rootList strings.Builder
	rootList.WriteString(lipgloss.NewStyle().Bold(true).Underline(true).Render("Trace Hierarchies") + "\n\n")

	if len(m.roots) == 0 {
		rootList.WriteString(subtleStyle.Render("No datasets stored. Generate one with tracesmith or POST /v1/datasets."))
	} else {
		for i, root := range m.roots {
			status := okStyle.Render(root.Status)
			if root.Status != "success" {
				status = errorStyle.Render(root.Status)
			}
			line := fmt.Sprintf("%s %s [%s] %d records", root.TraceID, root.ServiceName, status, root.Records)
			if i == m.selected {
				line = selectedStyle.Render("> " + line)
			} else {
				line = "  " + line
			}
			rootList.WriteString(line + "\n")
		}
	}

	topPane := paneStyle.Render(rootList.String())

	// Bottom Pane: Hierarchy tree
	header := headerStyle.Render(fmt.Sprintf("%s Hierarchy Detail", m.spinner.View()))
	bottomPane := m.viewport.View()

	// Status Footer
	var status string
	if m.err != nil {
		status = errorStyle.Render(fmt.Sprintf("Offline: %v", m.err))
	} else if m.summary != nil {
		status = okStyle.Render(fmt.Sprintf("Online • %d Records • %d Hierarchies • %d Errors",
			m.summary.TotalRecords, m.summary.RootCount, m.summary.ErrorCount))
	}
	footer := subtleStyle.Render(fmt.Sprintf("\n%s\nj/k to select, q to quit", status))

	return lipgloss.JoinVertical(lipgloss.Left, topPane, header, bottomPane, footer)
}

// Commands

func (m model) fetchSelected() tea.Cmd {
	if len(m.roots) == 0 {
		return nil
	}
	rootID := m.roots[m.selected].TraceID
	c := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		ds, err := c.GetHierarchy(ctx, "", rootID)
		if err != nil {
			return hierarchyMsg{rootID: rootID, err: err}
		}
		tree, err := render.Tree(ds, render.Options{ShowMetadata: true})
		if err != nil {
			return hierarchyMsg{rootID: rootID, err: err}
		}
		return hierarchyMsg{rootID: rootID, tree: tree}
	}
}

func fetchData(c *client.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		roots, err := c.GetRoots(ctx, "", maxRoots)
		if err != nil {
			return dataMsg{err: err}
		}
		summary, err := c.GetSummary(ctx, "")
		if err != nil {
			return dataMsg{err: err}
		}
		return dataMsg{roots: roots, summary: summary}
	}
}

func tick() tea.Cmd {
	return tea.Tick(pollRate, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func main() {
	apiURL := os.Getenv("TRACESMITH_API")
	c := client.NewClient(apiURL)

	p := tea.NewProgram(initialModel(c), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Alas, there's been an error: %v", err)
		os.Exit(1)
	}
}
