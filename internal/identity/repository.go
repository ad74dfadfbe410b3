package identity

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/congo-pay/mobcash/internal/client"
)

const basePath = "/mobcash/user-app-id/"

// lookupFields orders the field errors shown for a failed search.
var lookupFields = []string{"user_app_id", "app"}

// Repository reaches the platform directory and the saved identities.
type Repository interface {
	Search(ctx context.Context, platform, externalID string) (Lookup, error)
	List(ctx context.Context, platform string) ([]BetIdentity, error)
	Create(ctx context.Context, in Input) (BetIdentity, error)
	Update(ctx context.Context, id int64, in Input) (BetIdentity, error)
	Delete(ctx context.Context, id int64) error
}

// RemoteRepository talks to the API.
type RemoteRepository struct {
	api client.API
}

// NewRemoteRepository builds an API-backed repository.
func NewRemoteRepository(api client.API) *RemoteRepository {
	return &RemoteRepository{api: api}
}

func (r *RemoteRepository) Search(ctx context.Context, platform, externalID string) (Lookup, error) {
	var out Lookup
	err := r.api.JSON(ctx, client.Request{
		Method:       http.MethodGet,
		Path:         "/mobcash/search-user",
		Query:        url.Values{"app": {platform}, "userid": {externalID}},
		PreferFields: lookupFields,
	}, &out)
	if err != nil {
		return Lookup{}, err
	}
	return out, nil
}

func (r *RemoteRepository) List(ctx context.Context, platform string) ([]BetIdentity, error) {
	var query url.Values
	if platform != "" {
		query = url.Values{"bet_app": {platform}}
	}
	var out []BetIdentity
	if err := r.api.JSON(ctx, client.Request{Method: http.MethodGet, Path: basePath, Query: query}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *RemoteRepository) Create(ctx context.Context, in Input) (BetIdentity, error) {
	var out BetIdentity
	err := r.api.JSON(ctx, client.Request{
		Method:       http.MethodPost,
		Path:         basePath,
		Body:         in,
		PreferFields: []string{"user_app_id"},
	}, &out)
	if err != nil {
		return BetIdentity{}, err
	}
	return out, nil
}

func (r *RemoteRepository) Update(ctx context.Context, id int64, in Input) (BetIdentity, error) {
	var out BetIdentity
	err := r.api.JSON(ctx, client.Request{
		Method:       http.MethodPatch,
		Path:         basePath + strconv.FormatInt(id, 10) + "/",
		Body:         in,
		PreferFields: []string{"user_app_id"},
	}, &out)
	if err != nil {
		return BetIdentity{}, err
	}
	return out, nil
}

func (r *RemoteRepository) Delete(ctx context.Context, id int64) error {
	return r.api.JSON(ctx, client.Request{Method: http.MethodDelete, Path: basePath + strconv.FormatInt(id, 10) + "/"}, nil)
}
