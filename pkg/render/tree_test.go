package render

import (
	"strings"
	"testing"

	"github.com/tracesmith/tracesmith/pkg/dataset"
	"github.com/tracesmith/tracesmith/pkg/topology"
	"github.com/tracesmith/tracesmith/pkg/trace"
)

func testDataset(t *testing.T, numTraces int) dataset.Dataset {
	t.Helper()

	topo, err := topology.FromPreset(topology.PresetSimple)
	if err != nil {
		t.Fatalf("FromPreset failed: %v", err)
	}
	synth, err := trace.NewSynthesizer(topo, trace.NewProfile(0, 1), trace.Options{Seed: 11})
	if err != nil {
		t.Fatalf("NewSynthesizer failed: %v", err)
	}
	hierarchies, err := synth.Generate(numTraces)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	return dataset.Assemble(hierarchies)
}

func TestTreePlain(t *testing.T) {
	ds := testDataset(t, 2)

	out, err := Tree(ds, Options{Plain: true})
	if err != nil {
		t.Fatalf("Tree failed: %v", err)
	}

	for _, svc := range []string{"gateway", "backend", "database"} {
		if !strings.Contains(out, svc) {
			t.Errorf("output missing service %s:\n%s", svc, out)
		}
	}
	if !strings.Contains(out, "└── ") {
		t.Errorf("output missing tree connectors:\n%s", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Error("plain output contains ANSI escapes")
	}

	// One line per record plus the blank separator between hierarchies.
	lines := strings.Count(strings.TrimRight(out, "\n"), "\n") + 1
	if want := len(ds) + 1; lines != want {
		t.Errorf("expected %d lines, got %d:\n%s", want, lines, out)
	}
}

func TestTreeMaxTraces(t *testing.T) {
	ds := testDataset(t, 3)

	out, err := Tree(ds, Options{Plain: true, MaxTraces: 1})
	if err != nil {
		t.Fatalf("Tree failed: %v", err)
	}
	if got := strings.Count(out, "gateway"); got != 1 {
		t.Errorf("expected 1 hierarchy, found %d gateway roots:\n%s", got, out)
	}
	if !strings.Contains(out, "... 2 more hierarchies") {
		t.Errorf("output missing truncation note:\n%s", out)
	}
}

func TestTreeShowMetadata(t *testing.T) {
	ds := testDataset(t, 1)

	out, err := Tree(ds, Options{Plain: true, ShowMetadata: true})
	if err != nil {
		t.Fatalf("Tree failed: %v", err)
	}
	if !strings.Contains(out, "http_status=") {
		t.Errorf("output missing metadata line:\n%s", out)
	}
}

func TestHierarchyByChildID(t *testing.T) {
	ds := testDataset(t, 3)

	var child trace.Record
	for _, rec := range ds {
		if !rec.Root() {
			child = rec
			break
		}
	}

	out, err := Hierarchy(ds, child.TraceID, Options{Plain: true})
	if err != nil {
		t.Fatalf("Hierarchy failed: %v", err)
	}
	if !strings.Contains(out, child.TraceID) {
		t.Errorf("output missing record %s:\n%s", child.TraceID, out)
	}
	if got := strings.Count(out, "gateway"); got != 1 {
		t.Errorf("expected a single hierarchy, found %d roots:\n%s", got, out)
	}

	if _, err := Hierarchy(ds, "trace-nope", Options{Plain: true}); err == nil {
		t.Fatal("expected error for unknown trace id")
	}
}
