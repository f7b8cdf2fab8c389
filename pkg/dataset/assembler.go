package dataset

import (
	"fmt"
	"sort"

	"github.com/tracesmith/tracesmith/pkg/trace"
)

// Assemble concatenates per-trace hierarchies into one flat dataset,
// preserving each hierarchy's internal contiguity and root-first order.
func Assemble(hierarchies []trace.Hierarchy) Dataset {
	size := 0
	for _, h := range hierarchies {
		size += len(h)
	}
	ds := make(Dataset, 0, size)
	for _, h := range hierarchies {
		ds = append(ds, h...)
	}
	return ds
}

// Regroup reconstructs canonical ordering from an arbitrarily ordered flat
// record set: hierarchies are rebuilt via parent back-references and
// re-emitted root-first in depth-first order, siblings sorted by start time
// then id. Roots keep their input-encounter order. Regrouping an
// already-canonical dataset is a no-op.
//
// It fails with *OrphanRecordError when any non-root record's parent does
// not resolve within the input, and with a plain error when records form a
// parent cycle unreachable from any root; no partial dataset is returned.
func Regroup(ds Dataset) (Dataset, error) {
	byID := make(map[string]trace.Record, len(ds))
	for _, rec := range ds {
		byID[rec.TraceID] = rec
	}

	children := make(map[string][]trace.Record)
	var roots []trace.Record
	for _, rec := range ds {
		if rec.Root() {
			roots = append(roots, rec)
			continue
		}
		if _, ok := byID[rec.ParentTraceID]; !ok {
			return nil, &OrphanRecordError{TraceID: rec.TraceID, ParentTraceID: rec.ParentTraceID}
		}
		children[rec.ParentTraceID] = append(children[rec.ParentTraceID], rec)
	}

	for id := range children {
		siblings := children[id]
		sort.Slice(siblings, func(i, j int) bool {
			if !siblings[i].StartTime.Equal(siblings[j].StartTime) {
				return siblings[i].StartTime.Before(siblings[j].StartTime)
			}
			return siblings[i].TraceID < siblings[j].TraceID
		})
	}

	out := make(Dataset, 0, len(ds))
	var collect func(rec trace.Record)
	collect = func(rec trace.Record) {
		out = append(out, rec)
		for _, child := range children[rec.TraceID] {
			collect(child)
		}
	}
	for _, root := range roots {
		collect(root)
	}

	// A record whose parent resolves but whose ancestor chain never reaches
	// a root (a parent cycle) is skipped by the traversal above. Refuse such
	// input rather than shrinking the dataset silently.
	if len(out) != len(ds) {
		emitted := make(map[string]struct{}, len(out))
		for _, rec := range out {
			emitted[rec.TraceID] = struct{}{}
		}
		for _, rec := range ds {
			if _, ok := emitted[rec.TraceID]; !ok {
				return nil, fmt.Errorf("record %s is unreachable from any root: parent references form a cycle", rec.TraceID)
			}
		}
	}
	return out, nil
}

// ExtractHierarchy returns the records of the hierarchy rooted at rootID,
// in canonical depth-first order, or nil if the root is not present.
func ExtractHierarchy(ds Dataset, rootID string) trace.Hierarchy {
	byID := make(map[string]trace.Record, len(ds))
	children := make(map[string][]trace.Record)
	for _, rec := range ds {
		byID[rec.TraceID] = rec
		if !rec.Root() {
			children[rec.ParentTraceID] = append(children[rec.ParentTraceID], rec)
		}
	}
	root, ok := byID[rootID]
	if !ok {
		return nil
	}

	for id := range children {
		siblings := children[id]
		sort.Slice(siblings, func(i, j int) bool {
			if !siblings[i].StartTime.Equal(siblings[j].StartTime) {
				return siblings[i].StartTime.Before(siblings[j].StartTime)
			}
			return siblings[i].TraceID < siblings[j].TraceID
		})
	}

	var out trace.Hierarchy
	var collect func(rec trace.Record)
	collect = func(rec trace.Record) {
		out = append(out, rec)
		for _, child := range children[rec.TraceID] {
			collect(child)
		}
	}
	collect(root)
	return out
}
