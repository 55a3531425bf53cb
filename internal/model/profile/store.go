package profile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Store exposes profile retrieval for HTTP handlers and the pipeline.
type Store interface {
	List() []Profile
	FindByID(id string) (Profile, bool)
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	items []Profile
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied profiles.
func NewMemoryStore(items []Profile) *MemoryStore {
	return &MemoryStore{items: append([]Profile(nil), items...)}
}

// List returns the configured profile list.
func (s *MemoryStore) List() []Profile {
	out := make([]Profile, len(s.items))
	copy(out, s.items)
	return out
}

// FindByID looks a profile up by its identifier.
func (s *MemoryStore) FindByID(id string) (Profile, bool) {
	for _, p := range s.items {
		if p.ID == id {
			return p, true
		}
	}
	return Profile{}, false
}

// LoadCatalog reads a YAML profile catalog. The file replaces the seed
// set entirely; a missing or empty catalog is an error so a typoed path
// fails loudly at startup.
func LoadCatalog(path string) ([]Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile catalog %s: %w", path, err)
	}

	var doc struct {
		Profiles []Profile `yaml:"profiles"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse profile catalog %s: %w", path, err)
	}

	if len(doc.Profiles) == 0 {
		return nil, fmt.Errorf("profile catalog %s contains no profiles", path)
	}

	for i, p := range doc.Profiles {
		if p.ID == "" {
			return nil, fmt.Errorf("profile catalog %s: entry %d has no id", path, i)
		}
	}

	return doc.Profiles, nil
}
