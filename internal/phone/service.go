package phone

import (
	"context"

	"github.com/congo-pay/mobcash/internal/validation"
)

// Service validates phone input before it reaches the repository.
type Service struct {
	repo Repository
}

// NewService builds a phone service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns the phones bound to network, or every phone when network is 0.
func (s *Service) List(ctx context.Context, network int64) ([]UserPhone, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if network == 0 {
		return all, nil
	}
	out := make([]UserPhone, 0, len(all))
	for _, p := range all {
		if p.Network == network {
			out = append(out, p)
		}
	}
	return out, nil
}

// Create normalizes and validates the number, then stores it. Nothing is
// stored when validation fails.
func (s *Service) Create(ctx context.Context, raw string, network int64) (UserPhone, error) {
	in, err := prepare(raw, network)
	if err != nil {
		return UserPhone{}, err
	}
	return s.repo.Create(ctx, in)
}

// Update rewrites an existing phone.
func (s *Service) Update(ctx context.Context, id int64, raw string, network int64) (UserPhone, error) {
	in, err := prepare(raw, network)
	if err != nil {
		return UserPhone{}, err
	}
	return s.repo.Update(ctx, id, in)
}

// Delete removes a phone.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func prepare(raw string, network int64) (Input, error) {
	in := Input{Phone: Normalize(raw), Network: network}
	if err := validation.Struct(in); err != nil {
		return Input{}, err
	}
	return in, nil
}
