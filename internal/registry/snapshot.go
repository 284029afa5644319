package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/core/model"
)

// Snapshot persists the registry table to a flat file so an external
// operator can inspect membership and a restarted gateway retains
// last-known state. The file maps service name to its record.
type Snapshot struct {
	path string
}

// NewSnapshot creates a snapshot bound to path.
func NewSnapshot(path string) *Snapshot {
	return &Snapshot{path: path}
}

// Path returns the snapshot file location.
func (s *Snapshot) Path() string {
	return s.path
}

// Save rewrites the snapshot file with the full table. The write goes to a
// temp file first so the operator never observes a torn snapshot.
func (s *Snapshot) Save(records map[string]*model.ServiceRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling registry snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".registry-*.json")
	if err != nil {
		return fmt.Errorf("creating snapshot temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing snapshot: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}

// Load reads the snapshot back. A missing or unreadable file yields an
// error; callers treat that as an empty registry.
func (s *Snapshot) Load() (map[string]*model.ServiceRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading registry snapshot: %w", err)
	}

	records := make(map[string]*model.ServiceRecord)
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing registry snapshot: %w", err)
	}
	return records, nil
}
