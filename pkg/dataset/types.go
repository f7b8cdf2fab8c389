package dataset

import (
	"fmt"

	"github.com/tracesmith/tracesmith/pkg/trace"
)

// Dataset is a flat, ordered sequence of trace records. The canonical
// ordering groups each hierarchy contiguously, root first, descendants in
// depth-first order with siblings sorted chronologically. Assemble and
// Regroup both guarantee this property; downstream consumers may rely on it.
type Dataset []trace.Record

// OrphanRecordError reports a non-root record whose parent reference does
// not resolve to any record in the input set. The caller decides whether to
// drop or surface such records; they are never silently fabricated.
type OrphanRecordError struct {
	TraceID       string
	ParentTraceID string
}

func (e *OrphanRecordError) Error() string {
	return fmt.Sprintf("record %s references unknown parent %s", e.TraceID, e.ParentTraceID)
}

// Roots returns the hierarchy roots in dataset order.
func (d Dataset) Roots() []trace.Record {
	var roots []trace.Record
	for _, rec := range d {
		if rec.Root() {
			roots = append(roots, rec)
		}
	}
	return roots
}

// Lookup returns the record with the given id.
func (d Dataset) Lookup(traceID string) (trace.Record, bool) {
	for _, rec := range d {
		if rec.TraceID == traceID {
			return rec, true
		}
	}
	return trace.Record{}, false
}
