package phone

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned for unknown phone ids.
var ErrNotFound = errors.New("phone not found")

type memoryRepository struct {
	mu     sync.RWMutex
	phones []UserPhone
	nextID int64
}

// NewMemoryRepository builds an in-memory phone store for testing.
func NewMemoryRepository(seed ...UserPhone) Repository {
	r := &memoryRepository{}
	for _, p := range seed {
		if p.ID > r.nextID {
			r.nextID = p.ID
		}
		r.phones = append(r.phones, p)
	}
	return r
}

func (r *memoryRepository) List(_ context.Context) ([]UserPhone, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]UserPhone(nil), r.phones...), nil
}

func (r *memoryRepository) Create(_ context.Context, in Input) (UserPhone, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	p := UserPhone{ID: r.nextID, Phone: in.Phone, Network: in.Network}
	r.phones = append(r.phones, p)
	return p, nil
}

func (r *memoryRepository) Update(_ context.Context, id int64, in Input) (UserPhone, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.phones {
		if r.phones[i].ID == id {
			r.phones[i].Phone, r.phones[i].Network = in.Phone, in.Network
			return r.phones[i], nil
		}
	}
	return UserPhone{}, ErrNotFound
}

func (r *memoryRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.phones {
		if r.phones[i].ID == id {
			r.phones = append(r.phones[:i], r.phones[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}
