package store

import (
	"context"
	"errors"
	"time"

	"github.com/tracesmith/tracesmith/pkg/dataset"
)

// ErrDatasetNotFound is returned by LoadDataset for an unknown dataset id.
// A persisted dataset with zero records loads as an empty Dataset instead.
var ErrDatasetNotFound = errors.New("dataset not found")

// DatasetInfo describes one persisted dataset.
type DatasetInfo struct {
	DatasetID string    `json:"dataset_id"`
	Records   int       `json:"records"`
	Roots     int       `json:"roots"`
	CreatedAt time.Time `json:"created_at"`
}

// DatasetStore is the persistence contract for trace datasets. A store must
// preserve parent links and record order on round-trip; canonical grouping
// is recoverable via dataset.Regroup even if a backend re-sorts rows.
type DatasetStore interface {
	SaveDataset(ctx context.Context, datasetID string, ds dataset.Dataset) error
	// LoadDataset fails with ErrDatasetNotFound for an unknown id.
	LoadDataset(ctx context.Context, datasetID string) (dataset.Dataset, error)
	ListDatasets(ctx context.Context) ([]DatasetInfo, error)
	DeleteDataset(ctx context.Context, datasetID string) error
}
