package trace

import (
	"time"

	"github.com/tracesmith/tracesmith/pkg/topology"
)

// Status is the outcome of one synthesized call. An error status is valid
// synthesized data, not a failure of the generator.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Record is one synthesized call. Records are immutable once generated;
// parent linkage is by id so hierarchies survive flattening and storage.
type Record struct {
	TraceID       string               `json:"trace_id"`
	ServiceName   string               `json:"service_name"`
	ServiceType   topology.ServiceType `json:"service_type"`
	StartTime     time.Time            `json:"start_time"`
	EndTime       time.Time            `json:"end_time"`
	Status        Status               `json:"status"`
	ParentTraceID string               `json:"parent_trace_id,omitempty"`
	Metadata      map[string]string    `json:"metadata"`
}

// Root reports whether this record is a hierarchy root.
func (r Record) Root() bool {
	return r.ParentTraceID == ""
}

// Duration returns the call's wall time.
func (r Record) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// Hierarchy is one root record and its transitively spawned children,
// flattened root-first in depth-first order.
type Hierarchy []Record

// Root returns the hierarchy's root record.
func (h Hierarchy) Root() Record {
	return h[0]
}
