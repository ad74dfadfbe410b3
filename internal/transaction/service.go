package transaction

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/congo-pay/mobcash/internal/apperr"
	"github.com/congo-pay/mobcash/internal/catalog"
	"github.com/congo-pay/mobcash/internal/validation"
)

// DefaultWithdrawalCodeMinLength applies when Options leaves it unset.
const DefaultWithdrawalCodeMinLength = 4

// Options configures a Service.
type Options struct {
	WithdrawalCodeMinLength int
}

// Service validates and submits transactions.
type Service struct {
	repo        Repository
	codeMinimum int
}

// NewService builds a transaction service.
func NewService(repo Repository, opts Options) *Service {
	if opts.WithdrawalCodeMinLength <= 0 {
		opts.WithdrawalCodeMinLength = DefaultWithdrawalCodeMinLength
	}
	return &Service{repo: repo, codeMinimum: opts.WithdrawalCodeMinLength}
}

// WithdrawalCodeMinLength is the shortest accepted withdrawal code.
func (s *Service) WithdrawalCodeMinLength() int { return s.codeMinimum }

// Deposit submits a deposit.
func (s *Service) Deposit(ctx context.Context, req Request) (Transaction, error) {
	req.WithdrawalCode = ""
	return s.submit(ctx, catalog.Deposit, req)
}

// Withdraw submits a withdrawal; the withdrawal code is required.
func (s *Service) Withdraw(ctx context.Context, req Request) (Transaction, error) {
	req.WithdrawalCode = strings.TrimSpace(req.WithdrawalCode)
	if utf8.RuneCountInString(req.WithdrawalCode) < s.codeMinimum {
		msg := fmt.Sprintf("withdriwal_code must be at least %d characters", s.codeMinimum)
		return Transaction{}, apperr.Validation(msg, map[string][]string{"withdriwal_code": {msg}})
	}
	return s.submit(ctx, catalog.Withdrawal, req)
}

// History returns one page of past transactions.
func (s *Service) History(ctx context.Context, f Filter) (Page[Transaction], error) {
	return s.repo.History(ctx, f)
}

func (s *Service) submit(ctx context.Context, d catalog.Direction, req Request) (Transaction, error) {
	if req.Source == "" {
		req.Source = SourceWeb
	}
	if err := validation.Struct(req); err != nil {
		return Transaction{}, err
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.NewString()
	}
	return s.repo.Submit(ctx, d, req)
}
