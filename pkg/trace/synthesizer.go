package trace

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/tracesmith/tracesmith/pkg/topology"
)

// defaultBaseTime anchors all generated timestamps so a seeded run is
// reproducible bit-for-bit. Override via Options.BaseTime.
var defaultBaseTime = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// Options tunes a synthesis run.
type Options struct {
	// Seed drives every random draw. The same seed, topology and profile
	// reproduce the same dataset.
	Seed int64

	// MaxDepth caps fan-out depth per trace, counted in services from the
	// root. Zero means no cap beyond the topology itself.
	MaxDepth int

	// BaseTime anchors root start offsets. Zero value uses a fixed instant.
	BaseTime time.Time
}

// Synthesizer walks a topology and produces trace hierarchies. It owns a
// master seed; each trace derives its own sub-seeded generator so results
// are reproducible regardless of how traces are batched or parallelized.
type Synthesizer struct {
	topo    *topology.Topology
	profile Profile
	opts    Options
	entries []topology.ServiceConfig
}

// NewSynthesizer prepares a synthesizer for the given topology and profile.
// The topology must contain at least one entry (proxy) service.
func NewSynthesizer(topo *topology.Topology, profile Profile, opts Options) (*Synthesizer, error) {
	entries := topo.Entries()
	if len(entries) == 0 {
		return nil, errors.New("topology has no entry services")
	}
	if opts.BaseTime.IsZero() {
		opts.BaseTime = defaultBaseTime
	}
	return &Synthesizer{topo: topo, profile: profile, opts: opts, entries: entries}, nil
}

// Generate produces numTraces independent hierarchies. Entry services are
// selected round-robin across requested traces so every entry is exercised.
func (s *Synthesizer) Generate(numTraces int) ([]Hierarchy, error) {
	if numTraces < 0 {
		return nil, fmt.Errorf("numTraces must be >= 0, got %d", numTraces)
	}
	hierarchies := make([]Hierarchy, 0, numTraces)
	for i := 0; i < numTraces; i++ {
		hierarchies = append(hierarchies, s.generateOne(i))
	}
	return hierarchies, nil
}

// GenerateOne produces the hierarchy for a single trace index. It is safe
// to call concurrently for distinct indices: each index derives its own
// generator from the master seed.
func (s *Synthesizer) GenerateOne(index int) Hierarchy {
	return s.generateOne(index)
}

func (s *Synthesizer) generateOne(index int) Hierarchy {
	// Sub-seed per trace, derived from the master seed and trace index.
	rng := rand.New(rand.NewSource(s.opts.Seed + int64(index)*1000))

	group := 0
	if s.profile.NumGroups > 1 {
		group = rng.Intn(s.profile.NumGroups)
	}

	entry := s.entries[index%len(s.entries)]
	start := s.opts.BaseTime.Add(time.Duration(rng.Float64() * float64(time.Hour)))
	end := start.Add(s.profile.drawDuration(rng, entry.Type, group))

	root := s.walk(rng, entry, group, start, end, 1)

	var records Hierarchy
	flatten(root, "", &records)
	return records
}

// callNode is the in-memory tree built during synthesis. It is flattened
// to id-linked records only at the hierarchy boundary.
type callNode struct {
	id       string
	service  topology.ServiceConfig
	start    time.Time
	end      time.Time
	status   Status
	metadata map[string]string
	children []*callNode
}

// newTraceID draws a record id from the trace's generator so ids are
// reproducible under a fixed seed.
func newTraceID(rng *rand.Rand) string {
	return fmt.Sprintf("trace-%08x%08x", rng.Uint32(), rng.Uint32())
}

// walk emits the call tree for one service invocation occupying
// [start, end]. Children are drawn inside the parent's interval; a child
// whose duration would overrun is clamped to end exactly when its caller
// returns. Status is decided bottom-up so child failures can bias the
// parent's outcome.
func (s *Synthesizer) walk(rng *rand.Rand, svc topology.ServiceConfig, group int, start, end time.Time, depth int) *callNode {
	n := &callNode{id: newTraceID(rng), service: svc, start: start, end: end}

	atCap := s.opts.MaxDepth > 0 && depth >= s.opts.MaxDepth
	if !atCap {
		skipProb := s.profile.skipProbability()
		window := end.Sub(start)
		for _, connName := range svc.Connections {
			if skipProb > 0 && rng.Float64() < skipProb {
				continue
			}
			child, ok := s.topo.Lookup(connName)
			if !ok {
				continue // cannot happen on a validated topology
			}

			childStart := start.Add(time.Duration(rng.Float64() * float64(window)))
			childEnd := childStart.Add(s.profile.drawDuration(rng, child.Type, group))
			if childEnd.After(end) {
				childEnd = end
			}
			n.children = append(n.children, s.walk(rng, child, group, childStart, childEnd, depth+1))
		}
	}

	// Siblings flatten in chronological order. This keeps the dataset's
	// traversal order recoverable from record content alone when a sink
	// re-sorts rows.
	sort.Slice(n.children, func(i, j int) bool {
		a, b := n.children[i], n.children[j]
		if !a.start.Equal(b.start) {
			return a.start.Before(b.start)
		}
		return a.id < b.id
	})

	failed := 0
	for _, child := range n.children {
		if child.status == StatusError {
			failed++
		}
	}
	n.status = s.profile.drawStatus(rng, group, failed)
	n.metadata = drawMetadata(rng, svc.Type, n.status)
	return n
}

// flatten appends the tree rooted at n to out in root-first depth-first
// order, wiring parent back-references.
func flatten(n *callNode, parentID string, out *Hierarchy) {
	*out = append(*out, Record{
		TraceID:       n.id,
		ServiceName:   n.service.Name,
		ServiceType:   n.service.Type,
		StartTime:     n.start,
		EndTime:       n.end,
		Status:        n.status,
		ParentTraceID: parentID,
		Metadata:      n.metadata,
	})
	for _, child := range n.children {
		flatten(child, n.id, out)
	}
}
