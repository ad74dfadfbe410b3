package identity

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/congo-pay/mobcash/internal/apperr"
	"github.com/congo-pay/mobcash/internal/logging"
	"github.com/congo-pay/mobcash/internal/metrics"
	"github.com/congo-pay/mobcash/internal/notification"
)

// User-facing messages for rejected lookups.
const (
	MessageRequired      = "Please enter your bet ID."
	MessageNotFound      = "No account was found with this bet ID on the selected platform."
	MessageWrongCurrency = "This account does not use the XOF currency. Please use an XOF account."
)

// Options configures a Registrar.
type Options struct {
	SettlementCurrency int
	Notifier           notification.Notifier
	Metrics            *metrics.Metrics
	Logger             *slog.Logger
}

// Registrar links bet identities only after the platform confirms the account
// exists and settles in the expected currency.
type Registrar struct {
	repo     Repository
	currency int
	notifier notification.Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewRegistrar builds a registrar.
func NewRegistrar(repo Repository, opts Options) *Registrar {
	return &Registrar{
		repo:     repo,
		currency: opts.SettlementCurrency,
		notifier: opts.Notifier,
		metrics:  opts.Metrics,
		logger:   logging.OrDiscard(opts.Logger),
	}
}

// Propose searches the platform for externalID and returns a verified
// proposal. It never writes.
func (r *Registrar) Propose(ctx context.Context, platform, externalID string) (Proposal, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return Proposal{}, r.reject(ctx, apperr.Validation(MessageRequired, map[string][]string{"user_app_id": {MessageRequired}}), nil)
	}

	found, err := r.repo.Search(ctx, platform, externalID)
	if err != nil {
		r.metrics.Lookup("error")
		return Proposal{}, err
	}
	switch {
	case found.UserID == 0:
		r.metrics.Lookup("not_found")
		return Proposal{}, r.reject(ctx, apperr.Validation(MessageNotFound, nil), ErrAccountNotFound)
	case found.CurrencyID != r.currency:
		r.metrics.Lookup("wrong_currency")
		r.logger.InfoContext(ctx, "bet identity rejected",
			slog.String("platform", platform),
			slog.Int("currency_id", found.CurrencyID),
		)
		return Proposal{}, r.reject(ctx, apperr.Validation(MessageWrongCurrency, nil), ErrWrongCurrency)
	}

	r.metrics.Lookup("found")
	return Proposal{
		Platform:       platform,
		UserAppID:      externalID,
		ExternalUserID: found.UserID,
		DisplayName:    found.Name,
		CurrencyID:     found.CurrencyID,
		verified:       true,
	}, nil
}

// ProposeChange prepares an edit of existing. An unchanged external id skips
// the lookup and yields a committable proposal directly.
func (r *Registrar) ProposeChange(ctx context.Context, existing BetIdentity, externalID string) (Proposal, error) {
	if strings.TrimSpace(externalID) == existing.UserAppID {
		return Proposal{
			Platform:  existing.App,
			UserAppID: existing.UserAppID,
			Unchanged: true,
			existing:  &existing,
			verified:  true,
		}, nil
	}
	p, err := r.Propose(ctx, existing.App, externalID)
	if err != nil {
		return Proposal{}, err
	}
	p.existing = &existing
	return p, nil
}

// Commit stores a verified proposal, creating or updating the identity.
func (r *Registrar) Commit(ctx context.Context, p Proposal) (BetIdentity, error) {
	if !p.verified {
		return BetIdentity{}, ErrUnverified
	}
	in := Input{UserAppID: p.UserAppID, App: p.Platform}

	var (
		saved BetIdentity
		err   error
	)
	if p.existing != nil {
		saved, err = r.repo.Update(ctx, p.existing.ID, in)
	} else {
		saved, err = r.repo.Create(ctx, in)
	}
	if err != nil {
		return BetIdentity{}, fmt.Errorf("save bet identity: %w", err)
	}
	notification.Success(ctx, r.notifier, "Bet ID saved.")
	return saved, nil
}

// List returns the saved identities for platform, or all when platform is "".
func (r *Registrar) List(ctx context.Context, platform string) ([]BetIdentity, error) {
	return r.repo.List(ctx, platform)
}

// Delete removes a saved identity.
func (r *Registrar) Delete(ctx context.Context, id int64) error {
	return r.repo.Delete(ctx, id)
}

func (r *Registrar) reject(ctx context.Context, failure *apperr.Error, cause error) error {
	failure.Err = cause
	notification.Error(ctx, r.notifier, failure.Message)
	return failure
}
