package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tracesmith/tracesmith/pkg/dataset"
	"github.com/tracesmith/tracesmith/pkg/store"
	"github.com/tracesmith/tracesmith/pkg/trace"
)

const datasetsSet = "tracesmith:datasets"

// DatasetStore persists trace datasets in Redis: one list of JSON records
// per dataset, plus a set of known dataset ids and a small info blob each.
type DatasetStore struct {
	client *redis.Client
}

// NewDatasetStore wraps an existing Redis client.
func NewDatasetStore(client *redis.Client) *DatasetStore {
	return &DatasetStore{client: client}
}

func recordsKey(datasetID string) string {
	return fmt.Sprintf("tracesmith:dataset:%s:records", datasetID)
}

func infoKey(datasetID string) string {
	return fmt.Sprintf("tracesmith:dataset:%s:info", datasetID)
}

// SaveDataset stores the dataset under datasetID. Record order is preserved
// by the underlying list. An existing id is an error.
func (s *DatasetStore) SaveDataset(ctx context.Context, datasetID string, ds dataset.Dataset) error {
	exists, err := s.client.SIsMember(ctx, datasetsSet, datasetID).Result()
	if err != nil {
		return fmt.Errorf("failed to check dataset %s: %w", datasetID, err)
	}
	if exists {
		return fmt.Errorf("dataset %s already exists", datasetID)
	}

	roots := 0
	payloads := make([]interface{}, 0, len(ds))
	for _, rec := range ds {
		if rec.Root() {
			roots++
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal record %s: %w", rec.TraceID, err)
		}
		payloads = append(payloads, data)
	}

	info := store.DatasetInfo{
		DatasetID: datasetID,
		Records:   len(ds),
		Roots:     roots,
		CreatedAt: time.Now().UTC(),
	}
	infoData, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal dataset info: %w", err)
	}

	pipe := s.client.TxPipeline()
	if len(payloads) > 0 {
		pipe.RPush(ctx, recordsKey(datasetID), payloads...)
	}
	pipe.Set(ctx, infoKey(datasetID), infoData, 0)
	pipe.SAdd(ctx, datasetsSet, datasetID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save dataset %s: %w", datasetID, err)
	}
	return nil
}

// LoadDataset returns the dataset in its stored order. An unknown id fails
// with store.ErrDatasetNotFound; a persisted dataset with zero records
// loads as an empty Dataset.
func (s *DatasetStore) LoadDataset(ctx context.Context, datasetID string) (dataset.Dataset, error) {
	exists, err := s.client.SIsMember(ctx, datasetsSet, datasetID).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to look up dataset %s: %w", datasetID, err)
	}
	if !exists {
		return nil, fmt.Errorf("dataset %s: %w", datasetID, store.ErrDatasetNotFound)
	}

	raw, err := s.client.LRange(ctx, recordsKey(datasetID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset %s: %w", datasetID, err)
	}

	var ds dataset.Dataset
	for _, item := range raw {
		var rec trace.Record
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal record in dataset %s: %w", datasetID, err)
		}
		ds = append(ds, rec)
	}
	return ds, nil
}

// ListDatasets returns the persisted datasets, newest first.
func (s *DatasetStore) ListDatasets(ctx context.Context) ([]store.DatasetInfo, error) {
	ids, err := s.client.SMembers(ctx, datasetsSet).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}

	infos := make([]store.DatasetInfo, 0, len(ids))
	for _, id := range ids {
		data, err := s.client.Get(ctx, infoKey(id)).Result()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			return nil, fmt.Errorf("failed to load info for dataset %s: %w", id, err)
		}
		var info store.DatasetInfo
		if err := json.Unmarshal([]byte(data), &info); err != nil {
			return nil, fmt.Errorf("failed to unmarshal info for dataset %s: %w", id, err)
		}
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CreatedAt.After(infos[j].CreatedAt)
	})
	return infos, nil
}

// DeleteDataset removes a dataset and its records.
func (s *DatasetStore) DeleteDataset(ctx context.Context, datasetID string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, recordsKey(datasetID), infoKey(datasetID))
	pipe.SRem(ctx, datasetsSet, datasetID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete dataset %s: %w", datasetID, err)
	}
	return nil
}
