package topology

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// SaveFile writes the topology's services to path as JSON or YAML,
// chosen by file extension. The service list alone is sufficient to
// reconstruct the topology; no derived state is persisted.
func SaveFile(t *Topology, path string) error {
	services := t.Services()

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(services)
	case ".json":
		data, err = json.MarshalIndent(services, "", "  ")
	default:
		return fmt.Errorf("unsupported topology file extension: %s", filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("failed to marshal topology: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write topology file: %w", err)
	}
	return nil
}

// LoadFile reads a service list from a JSON or YAML file and validates it
// into a Topology.
func LoadFile(path string) (*Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read topology file: %w", err)
	}

	var services []ServiceConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &services)
	case ".json":
		err = json.Unmarshal(data, &services)
	default:
		return nil, fmt.Errorf("unsupported topology file extension: %s", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse topology file: %w", err)
	}

	return New(services)
}
