package reports

import (
	"context"
	"io"
)

type ReportFormat string

const (
	ReportFormatCSV     ReportFormat = "csv"
	ReportFormatJSON    ReportFormat = "json"
	ReportFormatSummary ReportFormat = "summary"
)

// ReportParams scope a report. The zero value reports the whole dataset.
type ReportParams struct {
	// TraceID restricts the report to one hierarchy, identified by any
	// record id inside it.
	TraceID string

	// MaxTraces caps the number of hierarchies included. Zero means all.
	MaxTraces int

	// Pretty enables indented output for formats that support it.
	Pretty bool
}

// Generator renders a dataset into one output format.
type Generator interface {
	Generate(ctx context.Context, params ReportParams) (io.Reader, error)
}
