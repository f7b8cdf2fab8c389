// Package render draws trace hierarchies as styled terminal trees. It is
// shared by the CLI analyze command and the TUI detail pane.
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tracesmith/tracesmith/pkg/dataset"
	"github.com/tracesmith/tracesmith/pkg/trace"
)

// Styles
var (
	serviceStyle  = lipgloss.NewStyle().Bold(true)
	typeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("99")) // Purple
	idStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	durationStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39")) // Blue
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	branchStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("236"))
)

// Options control tree rendering.
type Options struct {
	// MaxTraces caps the number of hierarchies drawn. Zero means all.
	MaxTraces int

	// ShowMetadata appends each record's metadata as an indented line.
	ShowMetadata bool

	// Plain disables ANSI styling.
	Plain bool
}

type renderer struct {
	sb       strings.Builder
	children map[string][]trace.Record
	opts     Options
}

// Tree renders the dataset's hierarchies as indented trees, one per root.
// The dataset is canonicalized first so a shuffled input still draws
// correctly.
func Tree(ds dataset.Dataset, opts Options) (string, error) {
	grouped, err := dataset.Regroup(ds)
	if err != nil {
		return "", fmt.Errorf("failed to regroup dataset: %w", err)
	}

	r := &renderer{
		children: make(map[string][]trace.Record),
		opts:     opts,
	}
	for _, rec := range grouped {
		if !rec.Root() {
			r.children[rec.ParentTraceID] = append(r.children[rec.ParentTraceID], rec)
		}
	}

	roots := grouped.Roots()
	limit := len(roots)
	if opts.MaxTraces > 0 && opts.MaxTraces < limit {
		limit = opts.MaxTraces
	}
	for i, root := range roots[:limit] {
		if i > 0 {
			r.sb.WriteString("\n")
		}
		r.node(root, "", "")
	}
	if limit < len(roots) {
		r.sb.WriteString(fmt.Sprintf("\n... %d more hierarchies\n", len(roots)-limit))
	}
	return r.sb.String(), nil
}

// Hierarchy renders a single hierarchy identified by any record id inside it.
func Hierarchy(ds dataset.Dataset, traceID string, opts Options) (string, error) {
	grouped, err := dataset.Regroup(ds)
	if err != nil {
		return "", fmt.Errorf("failed to regroup dataset: %w", err)
	}
	rec, ok := grouped.Lookup(traceID)
	if !ok {
		return "", fmt.Errorf("trace id %s not found in dataset", traceID)
	}
	for !rec.Root() {
		parent, ok := grouped.Lookup(rec.ParentTraceID)
		if !ok {
			return "", fmt.Errorf("trace id %s has unresolvable ancestry", traceID)
		}
		rec = parent
	}
	sub := dataset.Dataset(dataset.ExtractHierarchy(grouped, rec.TraceID))
	return Tree(sub, opts)
}

func (r *renderer) node(rec trace.Record, prefix, childPrefix string) {
	status := string(rec.Status)
	if !r.opts.Plain {
		if rec.Status == trace.StatusError {
			status = errorStyle.Render(status)
		} else {
			status = okStyle.Render(status)
		}
	}

	name := rec.ServiceName
	svcType := fmt.Sprintf("(%s)", rec.ServiceType)
	id := rec.TraceID
	duration := fmt.Sprintf("%.3fs", rec.Duration().Seconds())
	branch := prefix
	if !r.opts.Plain {
		name = serviceStyle.Render(name)
		svcType = typeStyle.Render(svcType)
		id = idStyle.Render(id)
		duration = durationStyle.Render(duration)
		branch = branchStyle.Render(prefix)
	}

	r.sb.WriteString(fmt.Sprintf("%s%s %s [%s] %s %s\n", branch, name, svcType, status, duration, id))

	if r.opts.ShowMetadata && len(rec.Metadata) > 0 {
		meta := childPrefix + "  " + formatMetadata(rec.Metadata)
		if !r.opts.Plain {
			meta = idStyle.Render(meta)
		}
		r.sb.WriteString(meta + "\n")
	}

	kids := r.children[rec.TraceID]
	for i, child := range kids {
		connector := "├── "
		nextPrefix := childPrefix + "│   "
		if i == len(kids)-1 {
			connector = "└── "
			nextPrefix = childPrefix + "    "
		}
		r.node(child, childPrefix+connector, nextPrefix)
	}
}

func formatMetadata(meta map[string]string) string {
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, meta[k]))
	}
	return strings.Join(parts, " ")
}
