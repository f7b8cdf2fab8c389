package dataset

import (
	"time"

	"github.com/tracesmith/tracesmith/pkg/topology"
	"github.com/tracesmith/tracesmith/pkg/trace"
)

// HierarchySummary describes one hierarchy: its size, overall status
// (success iff every record succeeds) and total wall time span.
type HierarchySummary struct {
	RootTraceID string        `json:"root_trace_id"`
	RootService string        `json:"root_service"`
	Records     int           `json:"records"`
	Status      trace.Status  `json:"status"`
	Start       time.Time     `json:"start"`
	End         time.Time     `json:"end"`
	WallTime    time.Duration `json:"wall_time"`
}

// Summary aggregates a dataset for reporting.
type Summary struct {
	TotalRecords  int                          `json:"total_records"`
	RootCount     int                          `json:"root_count"`
	SuccessCount  int                          `json:"success_count"`
	ErrorCount    int                          `json:"error_count"`
	ByServiceType map[topology.ServiceType]int `json:"by_service_type"`
	Hierarchies   []HierarchySummary           `json:"hierarchies"`
}

// Summarize aggregates per-hierarchy and dataset-wide statistics. The input
// need not be canonically ordered, but every parent reference must resolve.
func Summarize(ds Dataset) (*Summary, error) {
	grouped, err := Regroup(ds)
	if err != nil {
		return nil, err
	}

	s := &Summary{
		TotalRecords:  len(grouped),
		ByServiceType: make(map[topology.ServiceType]int),
	}

	var current *HierarchySummary
	flush := func() {
		if current != nil {
			current.WallTime = current.End.Sub(current.Start)
			s.Hierarchies = append(s.Hierarchies, *current)
			current = nil
		}
	}

	for _, rec := range grouped {
		s.ByServiceType[rec.ServiceType]++
		if rec.Status == trace.StatusSuccess {
			s.SuccessCount++
		} else {
			s.ErrorCount++
		}

		if rec.Root() {
			flush()
			s.RootCount++
			current = &HierarchySummary{
				RootTraceID: rec.TraceID,
				RootService: rec.ServiceName,
				Status:      trace.StatusSuccess,
				Start:       rec.StartTime,
				End:         rec.EndTime,
			}
		}
		current.Records++
		if rec.Status == trace.StatusError {
			current.Status = trace.StatusError
		}
		if rec.StartTime.Before(current.Start) {
			current.Start = rec.StartTime
		}
		if rec.EndTime.After(current.End) {
			current.End = rec.EndTime
		}
	}
	flush()

	return s, nil
}
