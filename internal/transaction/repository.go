package transaction

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/congo-pay/mobcash/internal/catalog"
	"github.com/congo-pay/mobcash/internal/client"
)

const idempotencyHeader = "Idempotency-Key"

// Repository submits transactions and reads history.
type Repository interface {
	Submit(ctx context.Context, d catalog.Direction, req Request) (Transaction, error)
	History(ctx context.Context, f Filter) (Page[Transaction], error)
}

// RemoteRepository talks to the API.
type RemoteRepository struct {
	api client.API
}

// NewRemoteRepository builds an API-backed repository.
func NewRemoteRepository(api client.API) *RemoteRepository {
	return &RemoteRepository{api: api}
}

func submitPath(d catalog.Direction) (string, error) {
	switch d {
	case catalog.Deposit:
		return "/mobcash/transaction-deposit", nil
	case catalog.Withdrawal:
		return "/mobcash/transaction-withdrawal", nil
	default:
		return "", fmt.Errorf("%w: %q", catalog.ErrInvalidDirection, d)
	}
}

func (r *RemoteRepository) Submit(ctx context.Context, d catalog.Direction, req Request) (Transaction, error) {
	path, err := submitPath(d)
	if err != nil {
		return Transaction{}, err
	}
	var header map[string]string
	if req.IdempotencyKey != "" {
		header = map[string]string{idempotencyHeader: req.IdempotencyKey}
	}
	var out Transaction
	err = r.api.JSON(ctx, client.Request{Method: http.MethodPost, Path: path, Body: req, Header: header}, &out)
	if err != nil {
		return Transaction{}, err
	}
	return out, nil
}

func (r *RemoteRepository) History(ctx context.Context, f Filter) (Page[Transaction], error) {
	var out Page[Transaction]
	err := r.api.JSON(ctx, client.Request{Method: http.MethodGet, Path: "/mobcash/transaction-history", Query: f.query()}, &out)
	if err != nil {
		return Page[Transaction]{}, err
	}
	return out, nil
}

func (f Filter) query() url.Values {
	q := url.Values{}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(f.PageSize))
	}
	if f.Type != "" {
		q.Set("type_trans", string(f.Type))
	}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.Network > 0 {
		q.Set("network", strconv.FormatInt(f.Network, 10))
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	return q
}
