package api

import (
	"github.com/tracesmith/tracesmith/pkg/topology"
)

// API Request/Response Structs

// GenerateRequest describes a dataset generation job. Exactly one topology
// source must be set: a preset name, an inline service list, or a random
// spec.
type GenerateRequest struct {
	Preset   string                   `json:"preset,omitempty"`
	Services []topology.ServiceConfig `json:"services,omitempty"`
	Random   *topology.RandomSpec     `json:"random,omitempty"`

	NumTraces          int     `json:"num_traces"`
	RandomizationLevel float64 `json:"randomization_level"`
	NumGroups          int     `json:"num_groups"`
	Seed               int64   `json:"seed"`
}

// GenerateResponse reports the persisted dataset.
type GenerateResponse struct {
	DatasetID string `json:"dataset_id"`
	Records   int    `json:"records"`
	Roots     int    `json:"roots"`
}

// RootEntry is one hierarchy root in a roots listing.
type RootEntry struct {
	TraceID     string `json:"trace_id"`
	ServiceName string `json:"service_name"`
	Status      string `json:"status"`
	Records     int    `json:"records"`
}
