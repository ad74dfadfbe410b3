package transaction

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/congo-pay/mobcash/internal/catalog"
)

// MemoryRepository records submissions in memory; used in tests.
type MemoryRepository struct {
	mu           sync.Mutex
	transactions []Transaction
	keys         map[string]Transaction
	requests     []Request
	link         string
	err          error
	now          func() time.Time
}

// NewMemoryRepository builds an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{keys: make(map[string]Transaction), now: time.Now}
}

// RespondWithLink makes deposits return link as transaction_link.
func (r *MemoryRepository) RespondWithLink(link string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.link = link
}

// Fail makes every submission return err until cleared with nil.
func (r *MemoryRepository) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Requests returns every submission attempt, including failed ones.
func (r *MemoryRepository) Requests() []Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Request(nil), r.requests...)
}

func (r *MemoryRepository) Submit(_ context.Context, d catalog.Direction, req Request) (Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	if r.err != nil {
		return Transaction{}, r.err
	}
	if prior, ok := r.keys[req.IdempotencyKey]; ok && req.IdempotencyKey != "" {
		return prior, nil
	}
	id := int64(len(r.transactions) + 1)
	tx := Transaction{
		ID:          id,
		Reference:   fmt.Sprintf("%s-%06d", d, id),
		Amount:      catalog.Amount(req.Amount),
		TypeTrans:   d,
		Status:      StatusPending,
		PhoneNumber: req.PhoneNumber,
		Network:     req.Network,
		App:         req.App,
		UserAppID:   req.UserAppID,
		Source:      req.Source,
		CreatedAt:   r.now().UTC(),
	}
	if d == catalog.Deposit && r.link != "" {
		tx.TransactionLink = r.link
		tx.Status = StatusInitPayment
	}
	r.transactions = append(r.transactions, tx)
	if req.IdempotencyKey != "" {
		r.keys[req.IdempotencyKey] = tx
	}
	return tx, nil
}

func (r *MemoryRepository) History(_ context.Context, f Filter) (Page[Transaction], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	search := strings.ToLower(f.Search)
	var matched []Transaction
	for i := len(r.transactions) - 1; i >= 0; i-- {
		tx := r.transactions[i]
		switch {
		case f.Type != "" && tx.TypeTrans != f.Type,
			f.Status != "" && tx.Status != f.Status,
			f.Network != 0 && tx.Network != f.Network,
			search != "" && !strings.Contains(strings.ToLower(tx.Reference+" "+tx.PhoneNumber), search):
			continue
		}
		matched = append(matched, tx)
	}

	page, size := f.Page, f.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 10
	}
	start := min((page-1)*size, len(matched))
	end := min(start+size, len(matched))
	out := Page[Transaction]{Count: len(matched), Results: matched[start:end]}
	if end < len(matched) {
		next := fmt.Sprintf("?page=%d", page+1)
		out.Next = &next
	}
	if page > 1 {
		prev := fmt.Sprintf("?page=%d", page-1)
		out.Previous = &prev
	}
	return out, nil
}
