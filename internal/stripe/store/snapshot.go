package store

import (
	"encoding/json"
	"errors"
	"os"
)

// Save writes the entire multi-tenant store as a single JSON document. It is
// the only durability the emulator offers; there is no incremental write.
func (s *Store) Save(path string) error {
	if path == "" {
		return nil
	}

	s.mu.RLock()
	data, err := json.MarshalIndent(s.tenants, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

// Load replaces the store's contents from a snapshot written by Save. A
// missing file is not an error; the store simply starts empty.
func (s *Store) Load(path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	tenants := make(map[string]*Tenant)
	if err := json.Unmarshal(data, &tenants); err != nil {
		return err
	}
	for _, t := range tenants {
		t.ensure()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants = tenants
	return nil
}
