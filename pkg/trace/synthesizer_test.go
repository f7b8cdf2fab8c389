package trace

import (
	"testing"

	"github.com/tracesmith/tracesmith/pkg/topology"
)

func simpleTopology(t *testing.T) *topology.Topology {
	t.Helper()
	topo, err := topology.FromPreset(topology.PresetSimple)
	if err != nil {
		t.Fatalf("preset failed: %v", err)
	}
	return topo
}

func TestGenerate_SimpleChainNoRandomization(t *testing.T) {
	topo := simpleTopology(t)
	syn, err := NewSynthesizer(topo, NewProfile(0, 1), Options{Seed: 42})
	if err != nil {
		t.Fatalf("NewSynthesizer failed: %v", err)
	}

	hierarchies, err := syn.Generate(1)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(hierarchies) != 1 {
		t.Fatalf("expected 1 hierarchy, got %d", len(hierarchies))
	}

	h := hierarchies[0]
	if len(h) != 3 {
		t.Fatalf("expected 3 records, got %d", len(h))
	}

	root, web, db := h[0], h[1], h[2]
	if root.ServiceName != "gateway" || web.ServiceName != "backend" || db.ServiceName != "database" {
		t.Fatalf("unexpected chain: %s -> %s -> %s", root.ServiceName, web.ServiceName, db.ServiceName)
	}
	if !root.Root() {
		t.Error("root record must have no parent")
	}
	if web.ParentTraceID != root.TraceID {
		t.Error("backend's parent must be gateway")
	}
	if db.ParentTraceID != web.TraceID {
		t.Error("database's parent must be backend")
	}
	for _, rec := range h {
		if rec.Status != StatusSuccess {
			t.Errorf("record %s: expected success at randomization level 0, got %s", rec.ServiceName, rec.Status)
		}
	}
}

func TestGenerate_TimeNesting(t *testing.T) {
	topo, err := topology.FromPreset(topology.PresetComplex)
	if err != nil {
		t.Fatalf("preset failed: %v", err)
	}
	syn, err := NewSynthesizer(topo, NewProfile(0.7, 3), Options{Seed: 9})
	if err != nil {
		t.Fatalf("NewSynthesizer failed: %v", err)
	}

	hierarchies, err := syn.Generate(50)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	for _, h := range hierarchies {
		byID := make(map[string]Record, len(h))
		for _, rec := range h {
			byID[rec.TraceID] = rec
		}
		for _, rec := range h {
			if rec.EndTime.Before(rec.StartTime) {
				t.Fatalf("record %s ends before it starts", rec.TraceID)
			}
			if rec.Root() {
				continue
			}
			parent, ok := byID[rec.ParentTraceID]
			if !ok {
				t.Fatalf("record %s has parent %s outside its hierarchy", rec.TraceID, rec.ParentTraceID)
			}
			if rec.StartTime.Before(parent.StartTime) {
				t.Errorf("child %s starts before parent %s", rec.TraceID, parent.TraceID)
			}
			if rec.EndTime.After(parent.EndTime) {
				t.Errorf("child %s ends after parent %s", rec.TraceID, parent.TraceID)
			}
		}
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	topo, err := topology.FromPreset(topology.PresetMicroservices)
	if err != nil {
		t.Fatalf("preset failed: %v", err)
	}

	gen := func() []Hierarchy {
		syn, err := NewSynthesizer(topo, NewProfile(0.5, 3), Options{Seed: 1234})
		if err != nil {
			t.Fatalf("NewSynthesizer failed: %v", err)
		}
		hs, err := syn.Generate(20)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		return hs
	}

	a, b := gen(), gen()
	if len(a) != len(b) {
		t.Fatalf("hierarchy counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if len(a[i]) != len(b[i]) {
			t.Fatalf("hierarchy %d record counts differ: %d vs %d", i, len(a[i]), len(b[i]))
		}
		for j := range a[i] {
			ra, rb := a[i][j], b[i][j]
			if ra.TraceID != rb.TraceID || ra.ServiceName != rb.ServiceName ||
				!ra.StartTime.Equal(rb.StartTime) || !ra.EndTime.Equal(rb.EndTime) ||
				ra.Status != rb.Status || ra.ParentTraceID != rb.ParentTraceID {
				t.Fatalf("hierarchy %d record %d differs:\n%+v\n%+v", i, j, ra, rb)
			}
		}
	}
}

func TestGenerateOne_MatchesBatch(t *testing.T) {
	topo := simpleTopology(t)
	syn, err := NewSynthesizer(topo, NewProfile(0.8, 2), Options{Seed: 77})
	if err != nil {
		t.Fatalf("NewSynthesizer failed: %v", err)
	}

	batch, err := syn.Generate(10)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	for i := range batch {
		single := syn.GenerateOne(i)
		if len(single) != len(batch[i]) {
			t.Fatalf("trace %d: record counts differ: %d vs %d", i, len(single), len(batch[i]))
		}
		for j := range single {
			if single[j].TraceID != batch[i][j].TraceID {
				t.Fatalf("trace %d record %d: ids differ", i, j)
			}
		}
	}
}

func TestGenerate_FullRandomizationInjectsFailures(t *testing.T) {
	topo := simpleTopology(t)
	syn, err := NewSynthesizer(topo, NewProfile(1.0, 3), Options{Seed: 5})
	if err != nil {
		t.Fatalf("NewSynthesizer failed: %v", err)
	}

	hierarchies, err := syn.Generate(1000)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	errorRecords := 0
	skippedHierarchies := 0
	for _, h := range hierarchies {
		if len(h) < 3 {
			skippedHierarchies++
		}
		for _, rec := range h {
			if rec.Status == StatusError {
				errorRecords++
			}
		}
	}

	if errorRecords == 0 {
		t.Error("expected error records at randomization level 1.0")
	}
	if skippedHierarchies == 0 {
		t.Error("expected some hierarchies to skip connections at randomization level 1.0")
	}
}

func TestGenerate_MetadataPerServiceType(t *testing.T) {
	topo := simpleTopology(t)
	syn, err := NewSynthesizer(topo, NewProfile(0.3, 2), Options{Seed: 3})
	if err != nil {
		t.Fatalf("NewSynthesizer failed: %v", err)
	}

	hierarchies, err := syn.Generate(5)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	for _, h := range hierarchies {
		for _, rec := range h {
			if rec.Metadata == nil {
				t.Fatalf("record %s has nil metadata", rec.TraceID)
			}
			switch rec.ServiceType {
			case topology.ServiceProxy:
				if _, ok := rec.Metadata[MetaRoute]; !ok {
					t.Errorf("proxy record missing %s", MetaRoute)
				}
				if _, ok := rec.Metadata[MetaHTTPStatus]; !ok {
					t.Errorf("proxy record missing %s", MetaHTTPStatus)
				}
			case topology.ServiceWeb:
				if _, ok := rec.Metadata[MetaEndpoint]; !ok {
					t.Errorf("web record missing %s", MetaEndpoint)
				}
			case topology.ServiceDatabase:
				if _, ok := rec.Metadata[MetaQuery]; !ok {
					t.Errorf("database record missing %s", MetaQuery)
				}
				if _, ok := rec.Metadata[MetaRowsAffected]; !ok {
					t.Errorf("database record missing %s", MetaRowsAffected)
				}
			}
		}
	}
}

func TestGenerate_MaxDepthCap(t *testing.T) {
	topo := simpleTopology(t)
	syn, err := NewSynthesizer(topo, NewProfile(0, 1), Options{Seed: 1, MaxDepth: 2})
	if err != nil {
		t.Fatalf("NewSynthesizer failed: %v", err)
	}

	hierarchies, err := syn.Generate(1)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(hierarchies[0]) != 2 {
		t.Fatalf("expected 2 records with depth cap 2, got %d", len(hierarchies[0]))
	}
}

func TestGenerate_RoundRobinEntries(t *testing.T) {
	topo, err := topology.New([]topology.ServiceConfig{
		{Name: "edge-a", Type: topology.ServiceProxy, Connections: []string{"db"}},
		{Name: "edge-b", Type: topology.ServiceProxy, Connections: []string{"db"}},
		{Name: "db", Type: topology.ServiceDatabase},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	syn, err := NewSynthesizer(topo, NewProfile(0, 1), Options{Seed: 0})
	if err != nil {
		t.Fatalf("NewSynthesizer failed: %v", err)
	}
	hierarchies, err := syn.Generate(4)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	seen := map[string]int{}
	for _, h := range hierarchies {
		seen[h.Root().ServiceName]++
	}
	if seen["edge-a"] != 2 || seen["edge-b"] != 2 {
		t.Errorf("expected round-robin across entries, got %v", seen)
	}
}

func TestNewSynthesizer_NoEntries(t *testing.T) {
	topo, err := topology.New([]topology.ServiceConfig{
		{Name: "db", Type: topology.ServiceDatabase},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := NewSynthesizer(topo, NewProfile(0, 1), Options{}); err == nil {
		t.Error("expected error for topology without entry services")
	}
}
