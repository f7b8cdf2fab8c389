package reports

import (
	"fmt"

	"github.com/tracesmith/tracesmith/pkg/dataset"
)

// NewReportGenerator creates a report generator for ds based on the format.
func NewReportGenerator(format ReportFormat, ds dataset.Dataset) (Generator, error) {
	switch format {
	case ReportFormatCSV:
		return NewCSVReport(ds), nil
	case ReportFormatJSON:
		return NewJSONReport(ds), nil
	case ReportFormatSummary:
		return NewSummaryReport(ds), nil
	default:
		return nil, fmt.Errorf("unknown report format: %s", format)
	}
}
