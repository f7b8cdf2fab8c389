package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tracesmith/tracesmith/pkg/dataset"
	"github.com/tracesmith/tracesmith/pkg/store"
	"github.com/tracesmith/tracesmith/pkg/topology"
	"github.com/tracesmith/tracesmith/pkg/trace"
)

// Context keys
type contextKey string

const traceIDKey contextKey = "trace_id"

// Server encapsulates the HTTP API for dataset generation and inspection.
type Server struct {
	store  store.DatasetStore
	server *http.Server
}

// NewServer creates a new API server instance backed by st.
func NewServer(st store.DatasetStore, addr string) *Server {
	s := &Server{store: st}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/v1/datasets", s.handleDatasets)
	mux.HandleFunc("/v1/datasets/", s.handleDatasetByID)
	mux.HandleFunc("/v1/roots", s.handleRoots)
	mux.HandleFunc("/v1/hierarchies/", s.handleHierarchy)
	mux.HandleFunc("/v1/summary", s.handleSummary)

	// Middleware: Logging, Panic Recovery
	handler := withLogging(withRecovery(mux))

	// Use default port if addr is empty
	if addr == "" {
		addr = ":8098"
	}

	s.server = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	return s
}

// Handler exposes the full middleware chain, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start runs the HTTP server (blocking)
func (s *Server) Start() error {
	fmt.Printf(`{"level":"info","msg":"server_starting","addr":"%s"}`+"\n", s.server.Addr)
	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	fmt.Println(`{"level":"info","msg":"server_stopping"}`)
	return s.server.Shutdown(ctx)
}

// handleDatasets generates a dataset (POST) or lists stored ones (GET).
func (s *Server) handleDatasets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleGenerate(w, r)
	case http.MethodGet:
		infos, err := s.store.ListDatasets(r.Context())
		if err != nil {
			fmt.Printf(`{"level":"error","msg":"failed_to_list_datasets","trace_id":"%s","error":"%v"}`+"\n", getTraceID(r.Context()), err)
			http.Error(w, `{"error":"internal_server_error"}`, http.StatusInternalServerError)
			return
		}
		writeJSON(w, r, infos)
	default:
		http.Error(w, `{"error":"method_not_allowed"}`, http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid_json_body"}`, http.StatusBadRequest)
		return
	}

	topo, err := buildTopology(req)
	if err != nil {
		var cerr *topology.TopologyConstraintError
		var ierr *topology.InvalidTopologyError
		if errors.As(err, &cerr) || errors.As(err, &ierr) {
			http.Error(w, fmt.Sprintf(`{"error":"invalid_topology","detail":%q}`, err.Error()), http.StatusBadRequest)
			return
		}
		http.Error(w, fmt.Sprintf(`{"error":"invalid_request","detail":%q}`, err.Error()), http.StatusBadRequest)
		return
	}

	numTraces := req.NumTraces
	if numTraces <= 0 {
		numTraces = 100
	}
	numGroups := req.NumGroups
	if numGroups <= 0 {
		numGroups = 1
	}

	synth, err := trace.NewSynthesizer(topo, trace.NewProfile(req.RandomizationLevel, numGroups), trace.Options{Seed: req.Seed})
	if err != nil {
		http.Error(w, fmt.Sprintf(`{"error":"invalid_request","detail":%q}`, err.Error()), http.StatusBadRequest)
		return
	}

	start := time.Now()
	hierarchies, err := synth.Generate(numTraces)
	if err != nil {
		fmt.Printf(`{"level":"error","msg":"failed_to_generate","trace_id":"%s","error":"%v"}`+"\n", getTraceID(r.Context()), err)
		http.Error(w, `{"error":"internal_server_error"}`, http.StatusInternalServerError)
		return
	}
	ds := dataset.Assemble(hierarchies)
	TracesmithGenerateSeconds.Observe(time.Since(start).Seconds())

	datasetID := "ds_" + uuid.New().String()
	if err := s.store.SaveDataset(r.Context(), datasetID, ds); err != nil {
		fmt.Printf(`{"level":"error","msg":"failed_to_save_dataset","trace_id":"%s","error":"%v"}`+"\n", getTraceID(r.Context()), err)
		http.Error(w, `{"error":"internal_server_error"}`, http.StatusInternalServerError)
		return
	}

	TracesmithDatasetsTotal.Inc()
	for _, rec := range ds {
		TracesmithRecordsTotal.WithLabelValues(string(rec.ServiceType), string(rec.Status)).Inc()
	}

	fmt.Printf(`{"level":"info","msg":"dataset_generated","trace_id":"%s","dataset_id":"%s","records":%d}`+"\n",
		getTraceID(r.Context()), datasetID, len(ds))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	resp := GenerateResponse{DatasetID: datasetID, Records: len(ds), Roots: len(ds.Roots())}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		fmt.Printf(`{"level":"error","msg":"failed_to_encode_response","trace_id":"%s","error":"%v"}`+"\n", getTraceID(r.Context()), err)
	}
}

// handleDatasetByID serves one dataset's records (GET) or removes it (DELETE).
func (s *Server) handleDatasetByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/datasets/")
	if id == "" || strings.Contains(id, "/") {
		http.Error(w, `{"error":"invalid_dataset_id"}`, http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		ds, ok := s.loadDataset(w, r, id)
		if !ok {
			return
		}
		if limit := queryInt(r, "limit"); limit > 0 && limit < len(ds) {
			ds = ds[:limit]
		}
		writeJSON(w, r, ds)
	case http.MethodDelete:
		if err := s.store.DeleteDataset(r.Context(), id); err != nil {
			fmt.Printf(`{"level":"error","msg":"failed_to_delete_dataset","trace_id":"%s","error":"%v"}`+"\n", getTraceID(r.Context()), err)
			http.Error(w, `{"error":"internal_server_error"}`, http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, `{"error":"method_not_allowed"}`, http.StatusMethodNotAllowed)
	}
}

// handleRoots lists hierarchy roots of a dataset.
func (s *Server) handleRoots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, `{"error":"method_not_allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	ds, ok := s.resolveDataset(w, r)
	if !ok {
		return
	}

	sum, err := dataset.Summarize(ds)
	if err != nil {
		fmt.Printf(`{"level":"error","msg":"failed_to_summarize","trace_id":"%s","error":"%v"}`+"\n", getTraceID(r.Context()), err)
		http.Error(w, `{"error":"internal_server_error"}`, http.StatusInternalServerError)
		return
	}

	roots := make([]RootEntry, 0, len(sum.Hierarchies))
	for _, h := range sum.Hierarchies {
		roots = append(roots, RootEntry{
			TraceID:     h.RootTraceID,
			ServiceName: h.RootService,
			Status:      string(h.Status),
			Records:     h.Records,
		})
	}
	if limit := queryInt(r, "limit"); limit > 0 && limit < len(roots) {
		roots = roots[:limit]
	}
	writeJSON(w, r, roots)
}

// handleHierarchy serves one hierarchy's records, identified by its root id.
func (s *Server) handleHierarchy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, `{"error":"method_not_allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	rootID := strings.TrimPrefix(r.URL.Path, "/v1/hierarchies/")
	if rootID == "" || strings.Contains(rootID, "/") {
		http.Error(w, `{"error":"invalid_trace_id"}`, http.StatusBadRequest)
		return
	}

	ds, ok := s.resolveDataset(w, r)
	if !ok {
		return
	}

	h := dataset.ExtractHierarchy(ds, rootID)
	if h == nil {
		http.Error(w, `{"error":"trace_not_found"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, r, h)
}

// handleSummary serves aggregate dataset statistics.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, `{"error":"method_not_allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	ds, ok := s.resolveDataset(w, r)
	if !ok {
		return
	}

	sum, err := dataset.Summarize(ds)
	if err != nil {
		fmt.Printf(`{"level":"error","msg":"failed_to_summarize","trace_id":"%s","error":"%v"}`+"\n", getTraceID(r.Context()), err)
		http.Error(w, `{"error":"internal_server_error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, sum)
}

// resolveDataset loads the dataset named by the ?dataset= query param, or
// the newest stored dataset when the param is absent.
func (s *Server) resolveDataset(w http.ResponseWriter, r *http.Request) (dataset.Dataset, bool) {
	id := r.URL.Query().Get("dataset")
	if id == "" {
		infos, err := s.store.ListDatasets(r.Context())
		if err != nil {
			fmt.Printf(`{"level":"error","msg":"failed_to_list_datasets","trace_id":"%s","error":"%v"}`+"\n", getTraceID(r.Context()), err)
			http.Error(w, `{"error":"internal_server_error"}`, http.StatusInternalServerError)
			return nil, false
		}
		if len(infos) == 0 {
			http.Error(w, `{"error":"no_datasets"}`, http.StatusNotFound)
			return nil, false
		}
		// ListDatasets returns newest first.
		id = infos[0].DatasetID
	}
	return s.loadDataset(w, r, id)
}

func (s *Server) loadDataset(w http.ResponseWriter, r *http.Request, id string) (dataset.Dataset, bool) {
	ds, err := s.store.LoadDataset(r.Context(), id)
	if errors.Is(err, store.ErrDatasetNotFound) {
		http.Error(w, `{"error":"dataset_not_found"}`, http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		fmt.Printf(`{"level":"error","msg":"failed_to_load_dataset","trace_id":"%s","dataset_id":"%s","error":"%v"}`+"\n", getTraceID(r.Context()), id, err)
		http.Error(w, `{"error":"internal_server_error"}`, http.StatusInternalServerError)
		return nil, false
	}
	return ds, true
}

func buildTopology(req GenerateRequest) (*topology.Topology, error) {
	sources := 0
	if req.Preset != "" {
		sources++
	}
	if len(req.Services) > 0 {
		sources++
	}
	if req.Random != nil {
		sources++
	}
	if sources != 1 {
		return nil, fmt.Errorf("exactly one of preset, services, random must be set")
	}

	switch {
	case req.Preset != "":
		return topology.FromPreset(topology.Preset(req.Preset))
	case len(req.Services) > 0:
		return topology.New(req.Services)
	default:
		return topology.Generate(*req.Random)
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		fmt.Printf(`{"level":"error","msg":"failed_to_encode_response","trace_id":"%s","error":"%v"}`+"\n", getTraceID(r.Context()), err)
	}
}

func queryInt(r *http.Request, name string) int {
	if v := r.URL.Query().Get(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// Middleware: Panic Recovery
func withRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				fmt.Printf(`{"level":"error","msg":"panic_recovered","error":"%v","path":"%s"}`+"\n", err, r.URL.Path)
				http.Error(w, `{"error":"internal_server_error"}`, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Middleware: Request Logging
func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		traceID := r.Header.Get("X-Trace-ID")
		if traceID == "" {
			traceID = generateTraceID()
		}
		ctx := context.WithValue(r.Context(), traceIDKey, traceID)
		r = r.WithContext(ctx)

		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		w.Header().Set("X-Trace-ID", traceID)

		next.ServeHTTP(ww, r)

		duration := time.Since(start)
		fmt.Printf(`{"level":"info","msg":"http_request","trace_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`+"\n",
			traceID, r.Method, r.URL.Path, ww.status, duration.Milliseconds())
	})
}

func generateTraceID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		// Fallback if random fails (unlikely)
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}

func getTraceID(ctx context.Context) string {
	if v, ok := ctx.Value(traceIDKey).(string); ok {
		return v
	}
	return ""
}

// statusWriter captures HTTP status code
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
