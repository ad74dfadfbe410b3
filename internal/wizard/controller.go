package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/congo-pay/mobcash/internal/apperr"
	"github.com/congo-pay/mobcash/internal/catalog"
	"github.com/congo-pay/mobcash/internal/completion"
	"github.com/congo-pay/mobcash/internal/identity"
	"github.com/congo-pay/mobcash/internal/logging"
	"github.com/congo-pay/mobcash/internal/metrics"
	"github.com/congo-pay/mobcash/internal/notification"
	"github.com/congo-pay/mobcash/internal/phone"
	"github.com/congo-pay/mobcash/internal/transaction"
	"github.com/congo-pay/mobcash/internal/validation"
)

var (
	// ErrBusy is returned while a submission is outstanding.
	ErrBusy = errors.New("submission in progress")
	// ErrStale is returned when the wizard was discarded while a call was in flight.
	ErrStale = errors.New("wizard discarded during the call")
)

const (
	// MessageSubmitFailed is shown for failed submissions without a rate limit.
	MessageSubmitFailed = "The transaction could not be submitted. Please try again."
	messageIncomplete   = "Please complete every step before confirming."
)

// Submitter creates deposits and withdrawals.
type Submitter interface {
	Deposit(ctx context.Context, req transaction.Request) (transaction.Transaction, error)
	Withdraw(ctx context.Context, req transaction.Request) (transaction.Transaction, error)
}

// Router takes over after a successful submission.
type Router interface {
	Route(ctx context.Context, out completion.Outcome) *completion.Completion
}

// Options wires a Controller.
type Options struct {
	Catalog                 *catalog.Service
	Identities              *identity.Registrar
	Phones                  *phone.Service
	Transactions            Submitter
	Router                  Router
	WithdrawalCodeMinLength int
	Notifier                notification.Notifier
	Metrics                 *metrics.Metrics
	Logger                  *slog.Logger
}

// Controller owns one wizard session for a direction. Safe for concurrent use;
// only one submission may be outstanding.
type Controller struct {
	direction catalog.Direction
	codeMin   int

	catalog    *catalog.Service
	identities *identity.Registrar
	phones     *phone.Service
	submitter  Submitter
	router     Router
	notifier   notification.Notifier
	metrics    *metrics.Metrics
	logger     *slog.Logger

	mu      sync.Mutex
	state   State
	gen     uint64
	busy    bool
	key     string
	failure string
}

// NewController starts a wizard for d.
func NewController(d catalog.Direction, opts Options) *Controller {
	c := &Controller{
		direction:  d,
		codeMin:    opts.WithdrawalCodeMinLength,
		catalog:    opts.Catalog,
		identities: opts.Identities,
		phones:     opts.Phones,
		submitter:  opts.Transactions,
		router:     opts.Router,
		notifier:   opts.Notifier,
		metrics:    opts.Metrics,
		logger:     logging.OrDiscard(opts.Logger).With(slog.String("direction", string(d))),
	}
	c.state = NewState(d, c.codeMin)
	return c
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Busy reports whether a submission is outstanding.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Failure is the message for the last failed submission, or "".
func (c *Controller) Failure() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failure
}

// Dispatch applies e. Events are refused while a submission is outstanding.
func (c *Controller) Dispatch(e Event) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dispatchLocked(e)
}

func (c *Controller) dispatchLocked(e Event) (State, error) {
	if c.busy {
		return c.state, ErrBusy
	}
	next, err := Transition(c.state, e)
	if err != nil {
		return c.state, err
	}
	if _, ok := e.(CancelConfirmation); ok {
		c.key = ""
		c.failure = ""
	}
	c.state = next
	return next, nil
}

// Back returns to the previous step.
func (c *Controller) Back() (State, error) { return c.Dispatch(Back{}) }

// OpenConfirmation opens the confirmation view when every step is satisfied.
func (c *Controller) OpenConfirmation() (Summary, error) {
	s, err := c.Dispatch(OpenConfirmation{})
	if err != nil {
		return Summary{}, err
	}
	return s.Summary(), nil
}

// CancelConfirmation closes the confirmation view, keeping every value.
func (c *Controller) CancelConfirmation() (State, error) { return c.Dispatch(CancelConfirmation{}) }

// Discard drops the wizard. A response still in flight is ignored when it lands.
func (c *Controller) Discard() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.busy = false
	c.key = ""
	c.failure = ""
	c.state = NewState(c.direction, c.codeMin)
}

// Platforms lists the selectable platforms.
func (c *Controller) Platforms(ctx context.Context) ([]catalog.Platform, error) {
	return c.catalog.Platforms(ctx)
}

// Identities lists the saved bet identities for the selected platform.
func (c *Controller) Identities(ctx context.Context) ([]identity.BetIdentity, error) {
	platform := c.State().Platform.ID
	if platform == "" {
		return nil, ErrPlatformUnavailable
	}
	return c.identities.List(ctx, platform)
}

// Networks lists the networks active for this direction.
func (c *Controller) Networks(ctx context.Context) ([]catalog.Network, error) {
	return c.catalog.Networks(ctx, c.direction)
}

// Phones lists the saved phones bound to the selected network.
func (c *Controller) Phones(ctx context.Context) ([]phone.UserPhone, error) {
	network := c.State().Network.ID
	if network == 0 {
		return nil, ErrNetworkInactive
	}
	return c.phones.List(ctx, network)
}

// ProposeIdentity looks up externalID on the selected platform.
func (c *Controller) ProposeIdentity(ctx context.Context, externalID string) (identity.Proposal, error) {
	platform := c.State().Platform.ID
	if platform == "" {
		return identity.Proposal{}, ErrPlatformUnavailable
	}
	return c.identities.Propose(ctx, platform, externalID)
}

// CommitIdentity saves a verified proposal and selects it.
func (c *Controller) CommitIdentity(ctx context.Context, p identity.Proposal) (State, error) {
	gen := c.generation()
	saved, err := c.identities.Commit(ctx, p)
	if err != nil {
		return c.State(), err
	}
	return c.selectIfCurrent(gen, SelectIdentity{Identity: saved})
}

// AddPhone saves a phone on the selected network and selects it.
func (c *Controller) AddPhone(ctx context.Context, raw string) (State, error) {
	s := c.State()
	if s.Network.ID == 0 {
		return s, ErrNetworkInactive
	}
	gen := c.generation()
	saved, err := c.phones.Create(ctx, raw, s.Network.ID)
	if err != nil {
		return c.State(), err
	}
	return c.selectIfCurrent(gen, SelectPhone{Phone: saved})
}

func (c *Controller) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

func (c *Controller) selectIfCurrent(gen uint64, e Event) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return c.state, ErrStale
	}
	return c.dispatchLocked(e)
}

// Submit sends the confirmed transaction. Bounds are checked again before any
// network call and retries after a failure reuse the same idempotency key.
// On success the wizard resets and the completion flow is returned.
func (c *Controller) Submit(ctx context.Context) (*completion.Completion, error) {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	if !c.state.Confirming {
		c.mu.Unlock()
		return nil, ErrNotConfirming
	}
	snapshot := c.state
	if err := Ready(snapshot); err != nil {
		c.mu.Unlock()
		c.metrics.Submission(string(c.direction), "invalid")
		notification.Error(ctx, c.notifier, readyMessage(snapshot, err))
		return nil, err
	}
	req := snapshot.Request()
	if err := validation.Struct(req); err != nil {
		msg := FailureMessage(err)
		c.failure = msg
		c.mu.Unlock()
		c.metrics.Submission(string(c.direction), "invalid")
		notification.Error(ctx, c.notifier, msg)
		return nil, err
	}
	if c.key == "" {
		c.key = uuid.NewString()
	}
	req.IdempotencyKey = c.key
	gen := c.gen
	c.busy = true
	c.failure = ""
	c.mu.Unlock()

	tx, err := c.send(ctx, req)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		c.logger.InfoContext(ctx, "stale submission response ignored")
		return nil, ErrStale
	}
	c.busy = false
	if err != nil {
		c.failure = FailureMessage(err)
		c.mu.Unlock()
		c.metrics.Submission(string(c.direction), apperr.KindOf(err).String())
		c.logger.WarnContext(ctx, "submission failed", slog.Any("error", err))
		return nil, err
	}
	c.gen++
	c.key = ""
	c.state = NewState(c.direction, c.codeMin)
	c.mu.Unlock()

	c.metrics.Submission(string(c.direction), "ok")
	c.logger.InfoContext(ctx, "transaction submitted",
		slog.Int64("transaction_id", tx.ID),
		slog.String("status", string(tx.Status)),
		slog.Bool("link", tx.HasLink()),
	)
	return c.router.Route(ctx, completion.Outcome{
		Direction:   c.direction,
		Network:     snapshot.Network,
		Amount:      snapshot.Amount,
		Transaction: tx,
	}), nil
}

func (c *Controller) send(ctx context.Context, req transaction.Request) (transaction.Transaction, error) {
	if c.direction == catalog.Withdrawal {
		return c.submitter.Withdraw(ctx, req)
	}
	return c.submitter.Deposit(ctx, req)
}

// FailureMessage picks what the confirmation view shows after a failed
// submission. Rate-limit waits and field errors are shown as is; anything
// else gets a generic line.
func FailureMessage(err error) string {
	f, ok := apperr.As(err)
	if !ok || f.Message == "" {
		return MessageSubmitFailed
	}
	switch f.Kind {
	case apperr.KindRateLimited, apperr.KindValidation:
		return f.Message
	}
	return MessageSubmitFailed
}

func readyMessage(s State, err error) string {
	switch {
	case errors.Is(err, ErrAmountOutOfBounds):
		lo, hi := s.Platform.Bounds(s.Direction)
		return fmt.Sprintf("The amount must be between %s and %s.", formatAmount(lo), formatAmount(hi))
	case errors.Is(err, ErrCodeTooShort):
		return fmt.Sprintf("The withdrawal code must be at least %d characters.", s.codeMinLength)
	default:
		return messageIncomplete
	}
}

func formatAmount(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
