package catalog

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrUnknownPlatform  = errors.New("platform not found")
	ErrPlatformDisabled = errors.New("platform disabled")
	ErrUnknownNetwork   = errors.New("network not found")
	ErrNetworkInactive  = errors.New("network inactive for this direction")
	ErrInvalidDirection = errors.New("invalid direction")
)

// Service applies the selection rules on top of a Repository.
type Service struct {
	repo Repository
}

// NewService builds a catalog service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Platforms returns the enabled platforms only.
func (s *Service) Platforms(ctx context.Context) ([]Platform, error) {
	all, err := s.repo.Platforms(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Platform, 0, len(all))
	for _, p := range all {
		if p.Enabled {
			out = append(out, p)
		}
	}
	return out, nil
}

// Platform returns one enabled platform.
func (s *Service) Platform(ctx context.Context, id string) (Platform, error) {
	all, err := s.repo.Platforms(ctx)
	if err != nil {
		return Platform{}, err
	}
	for _, p := range all {
		if p.ID != id {
			continue
		}
		if !p.Enabled {
			return Platform{}, fmt.Errorf("%w: %s", ErrPlatformDisabled, id)
		}
		return p, nil
	}
	return Platform{}, fmt.Errorf("%w: %s", ErrUnknownPlatform, id)
}

// Networks returns the networks active for d.
func (s *Service) Networks(ctx context.Context, d Direction) ([]Network, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDirection, d)
	}
	all, err := s.repo.Networks(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Network, 0, len(all))
	for _, n := range all {
		if n.ActiveFor(d) {
			out = append(out, n)
		}
	}
	return out, nil
}

// Network returns one network, checking it is active for d.
func (s *Service) Network(ctx context.Context, id int64, d Direction) (Network, error) {
	all, err := s.repo.Networks(ctx)
	if err != nil {
		return Network{}, err
	}
	for _, n := range all {
		if n.ID != id {
			continue
		}
		if !n.ActiveFor(d) {
			return Network{}, fmt.Errorf("%w: %d", ErrNetworkInactive, id)
		}
		return n, nil
	}
	return Network{}, fmt.Errorf("%w: %d", ErrUnknownNetwork, id)
}

// AllNetworks returns every network regardless of direction.
func (s *Service) AllNetworks(ctx context.Context) ([]Network, error) {
	return s.repo.Networks(ctx)
}

// Settings returns the backend settings.
func (s *Service) Settings(ctx context.Context) (Settings, error) {
	return s.repo.Settings(ctx)
}
