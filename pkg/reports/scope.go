package reports

import (
	"fmt"

	"github.com/tracesmith/tracesmith/pkg/dataset"
)

// scopeDataset canonicalizes ds and narrows it to what params ask for:
// one hierarchy when TraceID is set, otherwise up to MaxTraces hierarchies.
func scopeDataset(ds dataset.Dataset, params ReportParams) (dataset.Dataset, error) {
	grouped, err := dataset.Regroup(ds)
	if err != nil {
		return nil, err
	}

	if params.TraceID != "" {
		rec, ok := grouped.Lookup(params.TraceID)
		if !ok {
			return nil, fmt.Errorf("trace id %s not found in dataset", params.TraceID)
		}
		for !rec.Root() {
			parent, ok := grouped.Lookup(rec.ParentTraceID)
			if !ok {
				// Regroup already resolved every parent.
				return nil, fmt.Errorf("trace id %s has unresolvable ancestry", params.TraceID)
			}
			rec = parent
		}
		return dataset.Dataset(dataset.ExtractHierarchy(grouped, rec.TraceID)), nil
	}

	if params.MaxTraces <= 0 {
		return grouped, nil
	}

	out := make(dataset.Dataset, 0, len(grouped))
	seen := 0
	for _, rec := range grouped {
		if rec.Root() {
			seen++
			if seen > params.MaxTraces {
				break
			}
		}
		out = append(out, rec)
	}
	return out, nil
}
