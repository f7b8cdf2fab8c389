package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/tracesmith/tracesmith/pkg/dataset"
)

// CSVReport generates flat CSV exports of a dataset. Metadata keys are
// fanned out into metadata_<key> columns so the output loads cleanly
// into spreadsheet and dataframe tooling.
type CSVReport struct {
	ds dataset.Dataset
}

// NewCSVReport creates a new CSVReport generator over ds.
func NewCSVReport(ds dataset.Dataset) *CSVReport {
	return &CSVReport{ds: ds}
}

// Generate creates a CSV report based on the provided parameters.
func (r *CSVReport) Generate(ctx context.Context, params ReportParams) (io.Reader, error) {
	ds, err := scopeDataset(r.ds, params)
	if err != nil {
		return nil, fmt.Errorf("failed to scope dataset: %w", err)
	}

	metaKeys := metadataKeys(ds)
	levels := hierarchyLevels(ds)

	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)

	headers := []string{
		"trace_id", "service_name", "service_type",
		"start_time", "end_time", "duration_seconds",
		"status", "parent_trace_id", "hierarchy_level",
	}
	for _, k := range metaKeys {
		headers = append(headers, "metadata_"+k)
	}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write headers: %w", err)
	}

	for _, rec := range ds {
		row := []string{
			rec.TraceID,
			rec.ServiceName,
			string(rec.ServiceType),
			rec.StartTime.UTC().Format(time.RFC3339Nano),
			rec.EndTime.UTC().Format(time.RFC3339Nano),
			strconv.FormatFloat(rec.Duration().Seconds(), 'f', -1, 64),
			string(rec.Status),
			rec.ParentTraceID,
			strconv.Itoa(levels[rec.TraceID]),
		}
		for _, k := range metaKeys {
			row = append(row, rec.Metadata[k])
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush writer: %w", err)
	}

	return buf, nil
}

// metadataKeys returns the sorted union of metadata keys across ds.
func metadataKeys(ds dataset.Dataset) []string {
	set := make(map[string]struct{})
	for _, rec := range ds {
		for k := range rec.Metadata {
			set[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// hierarchyLevels computes the depth of every record. Roots are level 0.
// Records must already be in canonical order so parents precede children.
func hierarchyLevels(ds dataset.Dataset) map[string]int {
	levels := make(map[string]int, len(ds))
	for _, rec := range ds {
		if rec.Root() {
			levels[rec.TraceID] = 0
			continue
		}
		levels[rec.TraceID] = levels[rec.ParentTraceID] + 1
	}
	return levels
}
