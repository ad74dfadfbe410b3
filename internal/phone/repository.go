package phone

import (
	"context"
	"net/http"
	"strconv"

	"github.com/congo-pay/mobcash/internal/client"
)

const basePath = "/mobcash/user-phone/"

// Repository persists saved phones.
type Repository interface {
	List(ctx context.Context) ([]UserPhone, error)
	Create(ctx context.Context, in Input) (UserPhone, error)
	Update(ctx context.Context, id int64, in Input) (UserPhone, error)
	Delete(ctx context.Context, id int64) error
}

// RemoteRepository stores phones through the API.
type RemoteRepository struct {
	api client.API
}

// NewRemoteRepository builds an API-backed repository.
func NewRemoteRepository(api client.API) *RemoteRepository {
	return &RemoteRepository{api: api}
}

func (r *RemoteRepository) List(ctx context.Context) ([]UserPhone, error) {
	var out []UserPhone
	if err := r.api.JSON(ctx, client.Request{Method: http.MethodGet, Path: basePath}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *RemoteRepository) Create(ctx context.Context, in Input) (UserPhone, error) {
	var out UserPhone
	if err := r.api.JSON(ctx, client.Request{Method: http.MethodPost, Path: basePath, Body: in}, &out); err != nil {
		return UserPhone{}, err
	}
	return out, nil
}

func (r *RemoteRepository) Update(ctx context.Context, id int64, in Input) (UserPhone, error) {
	var out UserPhone
	path := basePath + strconv.FormatInt(id, 10) + "/"
	if err := r.api.JSON(ctx, client.Request{Method: http.MethodPatch, Path: path, Body: in}, &out); err != nil {
		return UserPhone{}, err
	}
	return out, nil
}

func (r *RemoteRepository) Delete(ctx context.Context, id int64) error {
	path := basePath + strconv.FormatInt(id, 10) + "/"
	return r.api.JSON(ctx, client.Request{Method: http.MethodDelete, Path: path}, nil)
}
