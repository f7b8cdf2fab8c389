package dataset

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/tracesmith/tracesmith/pkg/blob"
	"github.com/tracesmith/tracesmith/pkg/trace"
)

// Export writes the dataset to the blob store as gzipped JSON Lines, one
// record per line in dataset order, under a dated key. It returns the key.
func Export(ctx context.Context, store blob.Store, ds Dataset) (string, error) {
	if len(ds) == 0 {
		return "", fmt.Errorf("cannot export an empty dataset")
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	enc := json.NewEncoder(gz)
	for _, rec := range ds {
		if err := enc.Encode(rec); err != nil {
			gz.Close()
			return "", fmt.Errorf("failed to encode record %s: %w", rec.TraceID, err)
		}
	}
	if err := gz.Close(); err != nil {
		return "", fmt.Errorf("failed to close gzip writer: %w", err)
	}

	first := ds[0]
	year, month, day := first.StartTime.Date()
	key := fmt.Sprintf("datasets/%04d/%02d/%02d/%d_%d_%s.jsonl.gz",
		year, month, day,
		first.StartTime.Unix(),
		ds[len(ds)-1].EndTime.Unix(),
		uuid.New().String(),
	)

	if err := store.Put(ctx, key, &buf); err != nil {
		return "", fmt.Errorf("failed to upload archive: %w", err)
	}
	return key, nil
}

// Import reads a dataset archive previously written by Export. Records come
// back in stored order; callers needing canonical grouping after a sink
// reordered rows should Regroup.
func Import(ctx context.Context, store blob.Store, key string) (Dataset, error) {
	rc, err := store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch archive %s: %w", key, err)
	}
	defer rc.Close()

	gz, err := gzip.NewReader(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to open gzip reader: %w", err)
	}
	defer gz.Close()

	var ds Dataset
	dec := json.NewDecoder(gz)
	for dec.More() {
		var rec trace.Record
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("failed to decode archive record: %w", err)
		}
		ds = append(ds, rec)
	}
	return ds, nil
}
