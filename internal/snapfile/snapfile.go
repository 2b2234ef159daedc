// Package snapfile reads and writes recorded snapshot sets.
//
// The format follows the file extension: .yaml and .yml are YAML, anything
// else is JSON. A file holds either a single set or a list of sets.
package snapfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/monify-labs/procwatch/pkg/models"
)

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

// Save writes set to path, replacing the file
func Save(path string, set *models.SnapshotSet) error {
	return write(path, set)
}

// SaveAll writes sets to path as a list
func SaveAll(path string, sets []models.SnapshotSet) error {
	return write(path, sets)
}

func write(path string, v any) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(v)
	} else {
		data, err = json.MarshalIndent(v, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode snapshots: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Load reads every set stored in path
func Load(path string) ([]models.SnapshotSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	sets, err := decode(data, isYAML(path))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return sets, nil
}

// LoadAll reads and concatenates the sets of every path in order
func LoadAll(paths ...string) ([]models.SnapshotSet, error) {
	var all []models.SnapshotSet
	for _, p := range paths {
		sets, err := Load(p)
		if err != nil {
			return nil, err
		}
		all = append(all, sets...)
	}
	return all, nil
}

func decode(data []byte, asYAML bool) ([]models.SnapshotSet, error) {
	if asYAML {
		var node yaml.Node
		if err := yaml.Unmarshal(data, &node); err != nil {
			return nil, err
		}
		if len(node.Content) == 0 {
			return nil, nil
		}
		if node.Content[0].Kind == yaml.SequenceNode {
			var sets []models.SnapshotSet
			if err := node.Decode(&sets); err != nil {
				return nil, err
			}
			return sets, nil
		}
		var set models.SnapshotSet
		if err := node.Decode(&set); err != nil {
			return nil, err
		}
		return []models.SnapshotSet{set}, nil
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var sets []models.SnapshotSet
		if err := json.Unmarshal(trimmed, &sets); err != nil {
			return nil, err
		}
		return sets, nil
	}
	var set models.SnapshotSet
	if err := json.Unmarshal(trimmed, &set); err != nil {
		return nil, err
	}
	return []models.SnapshotSet{set}, nil
}
