// Package tenant keeps the SIP configuration of every tenant the governor serves.
package tenant

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"softphone-governor/pkg/models"
)

type Store struct {
	mu      sync.RWMutex
	configs map[string]models.SoftphoneConfig
}

func NewStore() *Store {
	return &Store{configs: make(map[string]models.SoftphoneConfig)}
}

// LoadFile reads a YAML document mapping configId to softphone config.
func LoadFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tenants file: %w", err)
	}

	var configs map[string]models.SoftphoneConfig
	if err := yaml.Unmarshal(data, &configs); err != nil {
		return nil, fmt.Errorf("failed to parse tenants file %s: %w", path, err)
	}

	store := NewStore()
	for id, cfg := range configs {
		if id == "" {
			return nil, fmt.Errorf("tenants file %s: empty configId", path)
		}
		store.configs[id] = cfg
	}
	return store, nil
}

func (s *Store) Set(configID string, cfg models.SoftphoneConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[configID] = cfg
}

func (s *Store) Get(configID string) (models.SoftphoneConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.configs[configID]
	return cfg, ok
}

// IDs returns the known configIds in sorted order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.configs))
	for id := range s.configs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.configs)
}

// Advise picks the configs that should take an incoming call on phone.
// Every tenant shares the same trunk, so the first configId wins.
func (s *Store) Advise(phone string) []string {
	ids := s.IDs()
	if len(ids) == 0 {
		return []string{}
	}
	return ids[:1]
}
