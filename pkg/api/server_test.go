package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/tracesmith/tracesmith/pkg/dataset"
	"github.com/tracesmith/tracesmith/pkg/store"
	"github.com/tracesmith/tracesmith/pkg/topology"
)

var randSpec = topology.RandomSpec{NumServices: 5, MaxDepth: 2, MaxWidth: 2, NumGroups: 1}

// memStore is an in-memory DatasetStore for handler tests.
type memStore struct {
	datasets map[string]dataset.Dataset
	created  map[string]time.Time
}

func newMemStore() *memStore {
	return &memStore{
		datasets: make(map[string]dataset.Dataset),
		created:  make(map[string]time.Time),
	}
}

func (m *memStore) SaveDataset(ctx context.Context, id string, ds dataset.Dataset) error {
	if _, ok := m.datasets[id]; ok {
		return fmt.Errorf("dataset %s already exists", id)
	}
	m.datasets[id] = ds
	m.created[id] = time.Now()
	return nil
}

func (m *memStore) LoadDataset(ctx context.Context, id string) (dataset.Dataset, error) {
	ds, ok := m.datasets[id]
	if !ok {
		return nil, fmt.Errorf("dataset %s: %w", id, store.ErrDatasetNotFound)
	}
	return ds, nil
}

func (m *memStore) ListDatasets(ctx context.Context) ([]store.DatasetInfo, error) {
	infos := make([]store.DatasetInfo, 0, len(m.datasets))
	for id, ds := range m.datasets {
		infos = append(infos, store.DatasetInfo{
			DatasetID: id,
			Records:   len(ds),
			Roots:     len(ds.Roots()),
			CreatedAt: m.created[id],
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].CreatedAt.After(infos[j].CreatedAt) })
	return infos, nil
}

func (m *memStore) DeleteDataset(ctx context.Context, id string) error {
	delete(m.datasets, id)
	delete(m.created, id)
	return nil
}

func newTestServer(t *testing.T) (*httptest.Server, *memStore) {
	t.Helper()
	ms := newMemStore()
	srv := httptest.NewServer(NewServer(ms, "").Handler())
	t.Cleanup(srv.Close)
	return srv, ms
}

func generate(t *testing.T, srv *httptest.Server, req GenerateRequest) GenerateResponse {
	t.Helper()
	body, _ := json.Marshal(req)
	resp, err := http.Post(srv.URL+"/v1/datasets", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /v1/datasets failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /v1/datasets status %d", resp.StatusCode)
	}
	var out GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return out
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if got := resp.Header.Get("X-Trace-ID"); got == "" {
		t.Error("missing X-Trace-ID header")
	}
}

func TestGenerateAndFetch(t *testing.T) {
	srv, ms := newTestServer(t)

	out := generate(t, srv, GenerateRequest{Preset: "simple", NumTraces: 10, Seed: 42})
	if out.Roots != 10 {
		t.Fatalf("expected 10 roots, got %d", out.Roots)
	}
	if out.Records != 30 {
		t.Fatalf("expected 30 records for the simple chain, got %d", out.Records)
	}
	if len(ms.datasets) != 1 {
		t.Fatalf("expected 1 stored dataset, got %d", len(ms.datasets))
	}

	// Fetch the records back.
	resp, err := http.Get(srv.URL + "/v1/datasets/" + out.DatasetID)
	if err != nil {
		t.Fatalf("GET dataset failed: %v", err)
	}
	defer resp.Body.Close()
	var ds dataset.Dataset
	if err := json.NewDecoder(resp.Body).Decode(&ds); err != nil {
		t.Fatalf("failed to decode dataset: %v", err)
	}
	if len(ds) != out.Records {
		t.Fatalf("fetched %d records, want %d", len(ds), out.Records)
	}
}

func TestGetDatasetNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/v1/datasets/ds_missing")
	if err != nil {
		t.Fatalf("GET dataset failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown dataset status %d, want 404", resp.StatusCode)
	}
}

func TestGenerateDeterministic(t *testing.T) {
	srv, ms := newTestServer(t)

	a := generate(t, srv, GenerateRequest{Preset: "microservices", NumTraces: 5, Seed: 7})
	b := generate(t, srv, GenerateRequest{Preset: "microservices", NumTraces: 5, Seed: 7})

	dsA := ms.datasets[a.DatasetID]
	dsB := ms.datasets[b.DatasetID]
	if len(dsA) != len(dsB) {
		t.Fatalf("runs differ in size: %d vs %d", len(dsA), len(dsB))
	}
	for i := range dsA {
		if dsA[i].TraceID != dsB[i].TraceID || !dsA[i].StartTime.Equal(dsB[i].StartTime) {
			t.Fatalf("record %d differs between identical seeded runs", i)
		}
	}
}

func TestGenerateValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	cases := []GenerateRequest{
		{},                                   // no topology source
		{Preset: "simple", Random: &randSpec}, // two sources
		{Preset: "nope"},
	}
	for i, req := range cases {
		body, _ := json.Marshal(req)
		resp, err := http.Post(srv.URL+"/v1/datasets", "application/json", bytes.NewReader(body))
		if err != nil {
			t.Fatalf("case %d: POST failed: %v", i, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("case %d: status %d, want 400", i, resp.StatusCode)
		}
	}
}

func TestRootsAndHierarchy(t *testing.T) {
	srv, _ := newTestServer(t)
	out := generate(t, srv, GenerateRequest{Preset: "simple", NumTraces: 4, Seed: 1})

	resp, err := http.Get(srv.URL + "/v1/roots")
	if err != nil {
		t.Fatalf("GET /v1/roots failed: %v", err)
	}
	defer resp.Body.Close()
	var roots []RootEntry
	if err := json.NewDecoder(resp.Body).Decode(&roots); err != nil {
		t.Fatalf("failed to decode roots: %v", err)
	}
	if len(roots) != out.Roots {
		t.Fatalf("got %d roots, want %d", len(roots), out.Roots)
	}
	if roots[0].ServiceName != "gateway" {
		t.Errorf("root service = %s, want gateway", roots[0].ServiceName)
	}

	// Fetch one hierarchy by root id.
	resp2, err := http.Get(srv.URL + "/v1/hierarchies/" + roots[0].TraceID)
	if err != nil {
		t.Fatalf("GET hierarchy failed: %v", err)
	}
	defer resp2.Body.Close()
	var h dataset.Dataset
	if err := json.NewDecoder(resp2.Body).Decode(&h); err != nil {
		t.Fatalf("failed to decode hierarchy: %v", err)
	}
	if len(h) != roots[0].Records {
		t.Fatalf("hierarchy has %d records, want %d", len(h), roots[0].Records)
	}
	if h[0].TraceID != roots[0].TraceID {
		t.Errorf("hierarchy root = %s, want %s", h[0].TraceID, roots[0].TraceID)
	}

	// Unknown root id.
	resp3, err := http.Get(srv.URL + "/v1/hierarchies/trace-nope")
	if err != nil {
		t.Fatalf("GET hierarchy failed: %v", err)
	}
	resp3.Body.Close()
	if resp3.StatusCode != http.StatusNotFound {
		t.Errorf("unknown hierarchy status %d, want 404", resp3.StatusCode)
	}
}

func TestSummaryEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	// No datasets yet.
	resp, err := http.Get(srv.URL + "/v1/summary")
	if err != nil {
		t.Fatalf("GET /v1/summary failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("empty store status %d, want 404", resp.StatusCode)
	}

	generate(t, srv, GenerateRequest{Preset: "simple", NumTraces: 3, Seed: 9})

	resp2, err := http.Get(srv.URL + "/v1/summary")
	if err != nil {
		t.Fatalf("GET /v1/summary failed: %v", err)
	}
	defer resp2.Body.Close()
	var sum dataset.Summary
	if err := json.NewDecoder(resp2.Body).Decode(&sum); err != nil {
		t.Fatalf("failed to decode summary: %v", err)
	}
	if sum.RootCount != 3 {
		t.Errorf("RootCount = %d, want 3", sum.RootCount)
	}
	if sum.TotalRecords != 9 {
		t.Errorf("TotalRecords = %d, want 9", sum.TotalRecords)
	}
}

func TestDeleteDataset(t *testing.T) {
	srv, ms := newTestServer(t)
	out := generate(t, srv, GenerateRequest{Preset: "simple", NumTraces: 1, Seed: 3})

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/v1/datasets/"+out.DatasetID, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status %d, want 204", resp.StatusCode)
	}
	if len(ms.datasets) != 0 {
		t.Errorf("dataset still stored after delete")
	}
}
