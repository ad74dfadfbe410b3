package catalog

import (
	"context"
	"sync"
)

// MemoryRepository serves fixed reference data; used in tests and offline demos.
type MemoryRepository struct {
	mu        sync.RWMutex
	platforms []Platform
	networks  []Network
	settings  Settings
	err       error
}

// NewMemoryRepository builds a repository over the given data.
func NewMemoryRepository(platforms []Platform, networks []Network, settings Settings) *MemoryRepository {
	return &MemoryRepository{platforms: platforms, networks: networks, settings: settings}
}

// Fail makes every read return err until cleared with nil.
func (r *MemoryRepository) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *MemoryRepository) Platforms(_ context.Context) ([]Platform, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.err != nil {
		return nil, r.err
	}
	return append([]Platform(nil), r.platforms...), nil
}

func (r *MemoryRepository) Networks(_ context.Context) ([]Network, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.err != nil {
		return nil, r.err
	}
	return append([]Network(nil), r.networks...), nil
}

func (r *MemoryRepository) Settings(_ context.Context) (Settings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.err != nil {
		return Settings{}, r.err
	}
	return r.settings, nil
}
