package reports

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/tracesmith/tracesmith/pkg/dataset"
	"github.com/tracesmith/tracesmith/pkg/topology"
)

// SummaryReport generates a human-readable text summary of a dataset:
// record and hierarchy counts, per-service-type breakdown, success and
// error rates, and a sample of root records.
type SummaryReport struct {
	ds dataset.Dataset
}

// NewSummaryReport creates a new SummaryReport generator over ds.
func NewSummaryReport(ds dataset.Dataset) *SummaryReport {
	return &SummaryReport{ds: ds}
}

// Generate creates a text summary based on the provided parameters.
func (r *SummaryReport) Generate(ctx context.Context, params ReportParams) (io.Reader, error) {
	ds, err := scopeDataset(r.ds, params)
	if err != nil {
		return nil, fmt.Errorf("failed to scope dataset: %w", err)
	}

	sum, err := dataset.Summarize(ds)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize dataset: %w", err)
	}

	buf := &bytes.Buffer{}
	fmt.Fprintln(buf, "=== Dataset Summary ===")
	fmt.Fprintf(buf, "Total records:   %d\n", sum.TotalRecords)
	fmt.Fprintf(buf, "Hierarchies:     %d\n", sum.RootCount)

	if len(sum.ByServiceType) > 0 {
		types := make([]string, 0, len(sum.ByServiceType))
		for t := range sum.ByServiceType {
			types = append(types, string(t))
		}
		sort.Strings(types)
		fmt.Fprintln(buf, "\nRecords by service type:")
		for _, t := range types {
			fmt.Fprintf(buf, "  %-10s %d\n", t, sum.ByServiceType[topology.ServiceType(t)])
		}
	}

	if sum.TotalRecords > 0 {
		successPct := float64(sum.SuccessCount) / float64(sum.TotalRecords) * 100
		errorPct := float64(sum.ErrorCount) / float64(sum.TotalRecords) * 100
		fmt.Fprintf(buf, "\nSuccess rate: %.1f%% (%d/%d)\n", successPct, sum.SuccessCount, sum.TotalRecords)
		fmt.Fprintf(buf, "Error rate:   %.1f%% (%d/%d)\n", errorPct, sum.ErrorCount, sum.TotalRecords)
	}

	limit := len(sum.Hierarchies)
	if params.MaxTraces > 0 && params.MaxTraces < limit {
		limit = params.MaxTraces
	}
	if limit > 0 {
		fmt.Fprintf(buf, "\nRoot records (first %d):\n", limit)
		for i, h := range sum.Hierarchies[:limit] {
			fmt.Fprintf(buf, "  %d. %s - %s - status: %s, records: %d, wall time: %.3fs\n",
				i+1, h.RootTraceID, h.RootService, h.Status, h.Records, h.WallTime.Seconds())
		}
	}

	return buf, nil
}
