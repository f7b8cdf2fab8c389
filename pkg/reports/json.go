package reports

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/tracesmith/tracesmith/pkg/dataset"
)

// JSONReport generates JSON exports of a dataset. Records are emitted
// as a flat array in canonical hierarchy order, so a consumer can read
// whole hierarchies as contiguous runs.
type JSONReport struct {
	ds dataset.Dataset
}

// NewJSONReport creates a new JSONReport generator over ds.
func NewJSONReport(ds dataset.Dataset) *JSONReport {
	return &JSONReport{ds: ds}
}

// Generate creates a JSON report based on the provided parameters.
func (r *JSONReport) Generate(ctx context.Context, params ReportParams) (io.Reader, error) {
	ds, err := scopeDataset(r.ds, params)
	if err != nil {
		return nil, fmt.Errorf("failed to scope dataset: %w", err)
	}

	var data []byte
	if params.Pretty {
		data, err = json.MarshalIndent(ds, "", "  ")
	} else {
		data, err = json.Marshal(ds)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode dataset: %w", err)
	}

	return bytes.NewReader(append(data, '\n')), nil
}

// LoadJSON reads a dataset previously written by JSONReport. The
// records come back in the order stored on disk.
func LoadJSON(r io.Reader) (dataset.Dataset, error) {
	var ds dataset.Dataset
	if err := json.NewDecoder(r).Decode(&ds); err != nil {
		return nil, fmt.Errorf("failed to decode dataset: %w", err)
	}
	return ds, nil
}
