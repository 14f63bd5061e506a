package adapter

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	m "symveil.dev/pkg/symveil/internal/model"
)

// MappingStore persists the original-to-obfuscated name mapping produced by
// a run so it can be shipped alongside the output tree and reloaded to keep
// follow-up runs stable.
type MappingStore interface {
	SaveMapping(path m.Path, export m.MappingExport) error
	LoadMapping(path m.Path) (m.MappingExport, error)
}

// YAMLMappingStore stores the mapping as a yaml document on disk.
type YAMLMappingStore struct{}

// NewYAMLMappingStore constructs a YAMLMappingStore.
func NewYAMLMappingStore() *YAMLMappingStore {
	return &YAMLMappingStore{}
}

// SaveMapping writes the export, creating parent directories as needed.
func (s *YAMLMappingStore) SaveMapping(path m.Path, export m.MappingExport) error {
	data, err := yaml.Marshal(export)
	if err != nil {
		return fmt.Errorf("marshal mapping: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(string(path)), 0o750); err != nil {
		return err
	}

	return os.WriteFile(string(path), data, 0o600)
}

// LoadMapping reads a previously saved export.
func (s *YAMLMappingStore) LoadMapping(path m.Path) (m.MappingExport, error) {
	var export m.MappingExport

	data, err := os.ReadFile(string(path))
	if err != nil {
		return export, err
	}

	if err := yaml.Unmarshal(data, &export); err != nil {
		return export, fmt.Errorf("parse mapping file %s: %w", path, err)
	}

	return export, nil
}
