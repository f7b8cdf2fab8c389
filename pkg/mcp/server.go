// Package mcp adapts the tracesmith daemon to the Model Context Protocol.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/tracesmith/tracesmith/pkg/api"
	"github.com/tracesmith/tracesmith/pkg/client"
	"github.com/tracesmith/tracesmith/pkg/topology"
)

// Server adapts tracesmith-d to the Model Context Protocol.
type Server struct {
	mcpServer *server.MCPServer
	apiClient *client.Client
}

// NewServer creates a new MCP server instance.
func NewServer(apiURL string) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"tracesmith",
			"1.0.0",
		),
		apiClient: client.NewClient(apiURL),
	}
	s.registerResources()
	s.registerTools()
	return s
}

// Serve starts the MCP server on stdio.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcpServer)
}

// --- Resources ---

func (s *Server) registerResources() {
	// tracesmith://datasets
	s.mcpServer.AddResource(mcp.NewResource(
		"tracesmith://datasets",
		"Stored Datasets",
		mcp.WithResourceDescription("Metadata for every stored trace dataset, newest first"),
		mcp.WithMIMEType("application/json"),
	), s.handleReadDatasets)

	// tracesmith://presets
	s.mcpServer.AddResource(mcp.NewResource(
		"tracesmith://presets",
		"Topology Presets",
		mcp.WithResourceDescription("The predefined service topologies available for generation"),
		mcp.WithMIMEType("application/json"),
	), s.handleReadPresets)
}

// --- Tools ---

func (s *Server) registerTools() {
	// generate_dataset
	s.mcpServer.AddTool(mcp.NewTool(
		"generate_dataset",
		mcp.WithDescription("Generate and store a synthetic trace dataset from a topology preset"),
		mcp.WithString("preset", mcp.Required(), mcp.Description("Topology preset: simple, microservices, or complex")),
		mcp.WithNumber("num_traces", mcp.Description("Number of trace hierarchies to generate (default 100)")),
		mcp.WithNumber("randomization_level", mcp.Description("Randomness in durations, errors and skips, 0.0 to 1.0 (default 0)")),
		mcp.WithNumber("num_groups", mcp.Description("Number of service behavior groups (default 1)")),
		mcp.WithNumber("seed", mcp.Description("Master seed for reproducible output (default 0)")),
	), s.handleGenerateDataset)

	// summarize_dataset
	s.mcpServer.AddTool(mcp.NewTool(
		"summarize_dataset",
		mcp.WithDescription("Summarize a stored dataset: counts, status breakdown, per-hierarchy stats"),
		mcp.WithString("dataset_id", mcp.Description("Dataset to summarize (default: newest)")),
	), s.handleSummarizeDataset)
}

// --- Handlers ---

func (s *Server) handleReadDatasets(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	infos, err := s.apiClient.ListDatasets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch datasets: %w", err)
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal datasets: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleReadPresets(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	presets := make(map[string][]topology.ServiceConfig)
	for _, p := range []topology.Preset{topology.PresetSimple, topology.PresetMicroservices, topology.PresetComplex} {
		topo, err := topology.FromPreset(p)
		if err != nil {
			return nil, fmt.Errorf("failed to build preset %s: %w", p, err)
		}
		presets[string(p)] = topo.Services()
	}

	data, err := json.MarshalIndent(presets, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal presets: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleGenerateDataset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req := api.GenerateRequest{
		Preset:             mcp.ParseString(request, "preset", ""),
		NumTraces:          int(mcp.ParseFloat64(request, "num_traces", 100)),
		RandomizationLevel: mcp.ParseFloat64(request, "randomization_level", 0),
		NumGroups:          int(mcp.ParseFloat64(request, "num_groups", 1)),
		Seed:               int64(mcp.ParseFloat64(request, "seed", 0)),
	}

	out, err := s.apiClient.Generate(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("API error: %v", err)), nil
	}

	resultMsg := fmt.Sprintf("Dataset: %s\nRecords: %d\nHierarchies: %d", out.DatasetID, out.Records, out.Roots)
	return mcp.NewToolResultText(resultMsg), nil
}

func (s *Server) handleSummarizeDataset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	datasetID := mcp.ParseString(request, "dataset_id", "")

	sum, err := s.apiClient.GetSummary(ctx, datasetID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("API error: %v", err)), nil
	}

	data, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal summary: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
