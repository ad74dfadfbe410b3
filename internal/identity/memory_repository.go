package identity

import (
	"context"
	"sync"
)

// MemoryRepository is an in-memory directory and identity store for testing.
type MemoryRepository struct {
	mu         sync.RWMutex
	directory  map[string]Lookup
	identities []BetIdentity
	nextID     int64
	searches   int
	writes     int
}

// NewMemoryRepository builds an empty store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{directory: make(map[string]Lookup)}
}

// AddAccount makes externalID findable on platform.
func (r *MemoryRepository) AddAccount(platform, externalID string, account Lookup) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.directory[platform+"/"+externalID] = account
}

// Searches returns how many lookups were made.
func (r *MemoryRepository) Searches() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.searches
}

// Writes returns how many creates and updates were made.
func (r *MemoryRepository) Writes() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.writes
}

func (r *MemoryRepository) Search(_ context.Context, platform, externalID string) (Lookup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.searches++
	return r.directory[platform+"/"+externalID], nil
}

func (r *MemoryRepository) List(_ context.Context, platform string) ([]BetIdentity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []BetIdentity{}
	for _, ident := range r.identities {
		if platform == "" || ident.App == platform {
			out = append(out, ident)
		}
	}
	return out, nil
}

func (r *MemoryRepository) Create(_ context.Context, in Input) (BetIdentity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
	r.nextID++
	ident := BetIdentity{ID: r.nextID, UserAppID: in.UserAppID, App: in.App}
	r.identities = append(r.identities, ident)
	return ident, nil
}

func (r *MemoryRepository) Update(_ context.Context, id int64, in Input) (BetIdentity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
	for i := range r.identities {
		if r.identities[i].ID == id {
			r.identities[i].UserAppID, r.identities[i].App = in.UserAppID, in.App
			return r.identities[i], nil
		}
	}
	return BetIdentity{}, ErrNotFound
}

func (r *MemoryRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.identities {
		if r.identities[i].ID == id {
			r.identities = append(r.identities[:i], r.identities[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}
