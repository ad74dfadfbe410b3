package transaction

import (
	"time"

	"github.com/congo-pay/mobcash/internal/catalog"
)

// Status is the backend processing state of a transaction.
type Status string

const (
	StatusPending     Status = "pending"
	StatusAccepted    Status = "accept"
	StatusRejected    Status = "reject"
	StatusTimeout     Status = "timeout"
	StatusError       Status = "error"
	StatusInitPayment Status = "init_payment"
)

// Final reports whether the backend will not change the status again.
func (s Status) Final() bool {
	switch s {
	case StatusAccepted, StatusRejected, StatusTimeout, StatusError:
		return true
	default:
		return false
	}
}

// SourceWeb tags submissions made through this client.
const SourceWeb = "web"

// Transaction is a submitted deposit or withdrawal.
type Transaction struct {
	ID              int64             `json:"id"`
	Reference       string            `json:"reference"`
	Amount          catalog.Amount    `json:"amount"`
	TypeTrans       catalog.Direction `json:"type_trans"`
	Status          Status            `json:"status"`
	PhoneNumber     string            `json:"phone_number"`
	Network         int64             `json:"network"`
	App             string            `json:"app"`
	UserAppID       string            `json:"user_app_id"`
	Source          string            `json:"source"`
	TransactionLink string            `json:"transaction_link"`
	CreatedAt       time.Time         `json:"created_at"`
}

// HasLink reports whether the backend asked the user to finish on an external page.
func (t Transaction) HasLink() bool { return t.TransactionLink != "" }

// Request is the deposit/withdrawal payload.
type Request struct {
	Amount         float64 `json:"amount" validate:"gt=0"`
	PhoneNumber    string  `json:"phone_number" validate:"required,numeric,min=8,max=15"`
	App            string  `json:"app" validate:"required"`
	UserAppID      string  `json:"user_app_id" validate:"required"`
	Network        int64   `json:"network" validate:"gt=0"`
	WithdrawalCode string  `json:"withdriwal_code,omitempty"`
	Source         string  `json:"source" validate:"required"`
	// IdempotencyKey is sent as a header so retries of one submission are not
	// processed twice.
	IdempotencyKey string `json:"-"`
}

// Filter selects a history page.
type Filter struct {
	Page     int
	PageSize int
	Type     catalog.Direction
	Status   Status
	Network  int64
	Search   string
}

// Page is one page of a paginated listing.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// HasNext reports whether another page follows.
func (p Page[T]) HasNext() bool { return p.Next != nil && *p.Next != "" }

// HasPrevious reports whether a page precedes this one.
func (p Page[T]) HasPrevious() bool { return p.Previous != nil && *p.Previous != "" }
