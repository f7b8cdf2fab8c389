package redis

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/tracesmith/tracesmith/pkg/dataset"
	"github.com/tracesmith/tracesmith/pkg/store"
	"github.com/tracesmith/tracesmith/pkg/topology"
	"github.com/tracesmith/tracesmith/pkg/trace"
)

func setupRedisStore(t *testing.T) *DatasetStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewDatasetStore(client)
}

func testDataset(t *testing.T, numTraces int, seed int64) dataset.Dataset {
	t.Helper()
	topo, err := topology.FromPreset(topology.PresetSimple)
	if err != nil {
		t.Fatalf("preset failed: %v", err)
	}
	syn, err := trace.NewSynthesizer(topo, trace.NewProfile(0.3, 2), trace.Options{Seed: seed})
	if err != nil {
		t.Fatalf("NewSynthesizer failed: %v", err)
	}
	hierarchies, err := syn.Generate(numTraces)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	return dataset.Assemble(hierarchies)
}

func TestRedisStore_SaveLoadRoundTrip(t *testing.T) {
	st := setupRedisStore(t)
	ctx := context.Background()

	ds := testDataset(t, 6, 42)
	if err := st.SaveDataset(ctx, "ds-redis", ds); err != nil {
		t.Fatalf("SaveDataset failed: %v", err)
	}

	got, err := st.LoadDataset(ctx, "ds-redis")
	if err != nil {
		t.Fatalf("LoadDataset failed: %v", err)
	}
	if len(got) != len(ds) {
		t.Fatalf("record counts differ: %d vs %d", len(got), len(ds))
	}
	for i := range ds {
		if got[i].TraceID != ds[i].TraceID || got[i].ParentTraceID != ds[i].ParentTraceID {
			t.Fatalf("record %d linkage not preserved", i)
		}
		if !got[i].StartTime.Equal(ds[i].StartTime) || !got[i].EndTime.Equal(ds[i].EndTime) {
			t.Fatalf("record %d timestamps not preserved", i)
		}
	}

	if _, err := dataset.Regroup(got); err != nil {
		t.Fatalf("loaded dataset failed to regroup: %v", err)
	}
}

func TestRedisStore_DuplicateID(t *testing.T) {
	st := setupRedisStore(t)
	ctx := context.Background()

	ds := testDataset(t, 2, 1)
	if err := st.SaveDataset(ctx, "dup", ds); err != nil {
		t.Fatalf("SaveDataset failed: %v", err)
	}
	if err := st.SaveDataset(ctx, "dup", ds); err == nil {
		t.Error("expected error saving duplicate dataset id")
	}
}

func TestRedisStore_ListAndDelete(t *testing.T) {
	st := setupRedisStore(t)
	ctx := context.Background()

	if err := st.SaveDataset(ctx, "a", testDataset(t, 2, 2)); err != nil {
		t.Fatalf("SaveDataset failed: %v", err)
	}
	if err := st.SaveDataset(ctx, "b", testDataset(t, 3, 3)); err != nil {
		t.Fatalf("SaveDataset failed: %v", err)
	}

	infos, err := st.ListDatasets(ctx)
	if err != nil {
		t.Fatalf("ListDatasets failed: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 datasets, got %d", len(infos))
	}

	if err := st.DeleteDataset(ctx, "a"); err != nil {
		t.Fatalf("DeleteDataset failed: %v", err)
	}
	infos, err = st.ListDatasets(ctx)
	if err != nil {
		t.Fatalf("ListDatasets failed: %v", err)
	}
	if len(infos) != 1 || infos[0].DatasetID != "b" {
		t.Errorf("expected only dataset b, got %v", infos)
	}

	if _, err := st.LoadDataset(ctx, "a"); !errors.Is(err, store.ErrDatasetNotFound) {
		t.Errorf("expected ErrDatasetNotFound after delete, got %v", err)
	}
}

func TestRedisStore_UnknownAndEmpty(t *testing.T) {
	st := setupRedisStore(t)
	ctx := context.Background()

	if _, err := st.LoadDataset(ctx, "nope"); !errors.Is(err, store.ErrDatasetNotFound) {
		t.Fatalf("expected ErrDatasetNotFound, got %v", err)
	}

	// A stored zero-record dataset is distinct from a missing one.
	if err := st.SaveDataset(ctx, "empty", dataset.Dataset{}); err != nil {
		t.Fatalf("SaveDataset failed: %v", err)
	}
	got, err := st.LoadDataset(ctx, "empty")
	if err != nil {
		t.Fatalf("LoadDataset failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected zero records, got %d", len(got))
	}
}
