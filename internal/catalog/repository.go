package catalog

import (
	"context"
	"net/http"

	"github.com/congo-pay/mobcash/internal/client"
)

// Repository reads the read-only reference data.
type Repository interface {
	Platforms(ctx context.Context) ([]Platform, error)
	Networks(ctx context.Context) ([]Network, error)
	Settings(ctx context.Context) (Settings, error)
}

// RemoteRepository reads reference data from the API.
type RemoteRepository struct {
	api client.API
}

// NewRemoteRepository builds an API-backed repository.
func NewRemoteRepository(api client.API) *RemoteRepository {
	return &RemoteRepository{api: api}
}

// Platforms lists every platform, enabled or not.
func (r *RemoteRepository) Platforms(ctx context.Context) ([]Platform, error) {
	var out []Platform
	if err := r.api.JSON(ctx, client.Request{Method: http.MethodGet, Path: "/mobcash/plateform"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Networks lists every network.
func (r *RemoteRepository) Networks(ctx context.Context) ([]Network, error) {
	var out []Network
	if err := r.api.JSON(ctx, client.Request{Method: http.MethodGet, Path: "/mobcash/network"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Settings reads the settings object.
func (r *RemoteRepository) Settings(ctx context.Context) (Settings, error) {
	var out Settings
	if err := r.api.JSON(ctx, client.Request{Method: http.MethodGet, Path: "/mobcash/setting"}, &out); err != nil {
		return Settings{}, err
	}
	return out, nil
}
