package identity

import "errors"

var (
	// ErrAccountNotFound means the platform has no account with that id.
	ErrAccountNotFound = errors.New("account not found on platform")
	// ErrWrongCurrency means the account settles in another currency.
	ErrWrongCurrency = errors.New("account currency not accepted")
	// ErrUnverified is returned when committing a proposal that was not verified.
	ErrUnverified = errors.New("proposal not verified")
	// ErrNotFound is returned for unknown identity ids.
	ErrNotFound = errors.New("bet identity not found")
)

// BetIdentity links the user to an account on a betting platform.
type BetIdentity struct {
	ID        int64  `json:"id"`
	UserAppID string `json:"user_app_id"`
	App       string `json:"app"`
}

// Input is the create/update payload.
type Input struct {
	UserAppID string `json:"user_app_id"`
	App       string `json:"app"`
}

// Lookup is the platform account search result. UserID 0 means not found.
type Lookup struct {
	UserID     int64  `json:"UserId"`
	Name       string `json:"Name"`
	CurrencyID int    `json:"CurrencyId"`
}

// Proposal is a candidate identity awaiting the user's confirmation.
type Proposal struct {
	Platform string
	// UserAppID is the id the user typed; it is what gets saved.
	UserAppID string
	// ExternalUserID and DisplayName come from the platform lookup and are
	// what the confirmation shows.
	ExternalUserID int64
	DisplayName    string
	CurrencyID     int
	// Unchanged is set when an edit keeps the same external id; no lookup was made.
	Unchanged bool

	existing *BetIdentity
	verified bool
}

// Verified reports whether the proposal may be committed.
func (p Proposal) Verified() bool { return p.verified }

// Editing returns the identity being edited, if any.
func (p Proposal) Editing() (BetIdentity, bool) {
	if p.existing == nil {
		return BetIdentity{}, false
	}
	return *p.existing, true
}
