// Package completion decides what happens after a transaction was accepted:
// an external payment page, a Moov USSD prompt, or straight back to landing.
package completion

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/congo-pay/mobcash/internal/catalog"
	"github.com/congo-pay/mobcash/internal/logging"
	"github.com/congo-pay/mobcash/internal/metrics"
	"github.com/congo-pay/mobcash/internal/navigation"
	"github.com/congo-pay/mobcash/internal/notification"
	"github.com/congo-pay/mobcash/internal/transaction"
)

// Stage is where a Completion currently waits.
type Stage int

const (
	// StageDone means the user was sent to the landing view.
	StageDone Stage = iota
	// StageLink waits for Continue or Cancel on an external payment page.
	StageLink
	// StageUSSD shows the USSD panel until Dismiss.
	StageUSSD
)

func (s Stage) String() string {
	switch s {
	case StageLink:
		return "link"
	case StageUSSD:
		return "ussd"
	default:
		return "done"
	}
}

var (
	// ErrWrongStage is returned by actions that do not apply to the current stage.
	ErrWrongStage = errors.New("completion action not available at this stage")
	errNoMerchant = errors.New("moov merchant phone not configured")
)

// CopiedMessage confirms a clipboard copy.
const CopiedMessage = "USSD code copied."

// SettingsSource yields the backend settings holding the merchant phone.
type SettingsSource interface {
	Settings(ctx context.Context) (catalog.Settings, error)
}

// Outcome is what the wizard hands over after a successful submission.
type Outcome struct {
	Direction   catalog.Direction
	Network     catalog.Network
	Amount      float64
	Transaction transaction.Transaction
}

// Options configures a Router. Nil capabilities default to Noop.
type Options struct {
	Settings  SettingsSource
	Dialer    Dialer
	Clipboard Clipboard
	Opener    Opener
	Navigator navigation.Navigator
	Notifier  notification.Notifier
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// Router routes accepted transactions to their completion step.
type Router struct {
	settings  SettingsSource
	dialer    Dialer
	clipboard Clipboard
	opener    Opener
	navigator navigation.Navigator
	notifier  notification.Notifier
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewRouter builds a router.
func NewRouter(opts Options) *Router {
	r := &Router{
		settings:  opts.Settings,
		dialer:    opts.Dialer,
		clipboard: opts.Clipboard,
		opener:    opts.Opener,
		navigator: opts.Navigator,
		notifier:  opts.Notifier,
		metrics:   opts.Metrics,
		logger:    logging.OrDiscard(opts.Logger),
	}
	if r.dialer == nil {
		r.dialer = Noop{}
	}
	if r.clipboard == nil {
		r.clipboard = Noop{}
	}
	if r.opener == nil {
		r.opener = Noop{}
	}
	if r.navigator == nil {
		r.navigator = navigation.Noop{}
	}
	return r
}

// Route starts the completion flow. A transaction link always waits for the
// user; nothing navigates until they act on it.
func (r *Router) Route(ctx context.Context, out Outcome) *Completion {
	c := &Completion{router: r, outcome: out}
	if out.Transaction.HasLink() {
		c.stage = StageLink
		r.metrics.Completion("link")
		r.logger.InfoContext(ctx, "transaction awaits external page",
			slog.Int64("transaction_id", out.Transaction.ID),
		)
		return c
	}
	r.afterLink(ctx, c)
	return c
}

// afterLink runs the USSD check and otherwise lands. Called with c.mu held or
// before c is shared.
func (r *Router) afterLink(ctx context.Context, c *Completion) {
	out := c.outcome
	if out.Direction != catalog.Deposit || !out.Network.MoovConnect() {
		r.land(c, "landing")
		return
	}

	merchant, err := r.merchantPhone(ctx)
	if err != nil {
		r.logger.WarnContext(ctx, "ussd completion skipped",
			slog.Int64("transaction_id", out.Transaction.ID),
			slog.Any("error", err),
		)
		r.land(c, "landing_fallback")
		return
	}

	c.ussd = USSD(out.Amount, merchant)
	c.stage = StageUSSD
	r.metrics.Completion("ussd")
	if err := r.dialer.Dial(ctx, DialURI(c.ussd)); err != nil {
		r.logger.InfoContext(ctx, "dialer hand-off failed", slog.Any("error", err))
	}
}

func (r *Router) merchantPhone(ctx context.Context) (string, error) {
	if r.settings == nil {
		return "", errNoMerchant
	}
	s, err := r.settings.Settings(ctx)
	if err != nil {
		return "", err
	}
	if s.MoovMerchantPhone == "" {
		return "", errNoMerchant
	}
	return s.MoovMerchantPhone, nil
}

func (r *Router) land(c *Completion, route string) {
	c.stage = StageDone
	r.metrics.Completion(route)
	r.navigator.Navigate(navigation.Landing)
}

// Completion is one in-progress completion flow.
type Completion struct {
	router  *Router
	outcome Outcome

	mu    sync.Mutex
	stage Stage
	ussd  string
}

// Stage reports where the flow waits.
func (c *Completion) Stage() Stage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stage
}

// Link is the external payment page, if any.
func (c *Completion) Link() string { return c.outcome.Transaction.TransactionLink }

// Transaction is the accepted transaction.
func (c *Completion) Transaction() transaction.Transaction { return c.outcome.Transaction }

// USSD returns the code shown on the panel, or "".
func (c *Completion) USSD() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ussd
}

// Continue opens the external page and moves on to the USSD check.
func (c *Completion) Continue(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stage != StageLink {
		return ErrWrongStage
	}
	if err := c.router.opener.Open(ctx, c.Link()); err != nil {
		c.router.logger.WarnContext(ctx, "open transaction link failed", slog.Any("error", err))
	}
	c.router.afterLink(ctx, c)
	return nil
}

// Cancel leaves the external page unopened and returns to landing.
func (c *Completion) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stage != StageLink {
		return ErrWrongStage
	}
	c.router.land(c, "link_cancelled")
	return nil
}

// Copy puts the USSD code on the clipboard. The panel stays open.
func (c *Completion) Copy(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stage != StageUSSD {
		return ErrWrongStage
	}
	if err := c.router.clipboard.Copy(ctx, c.ussd); err != nil {
		return err
	}
	notification.Success(ctx, c.router.notifier, CopiedMessage)
	return nil
}

// Dismiss closes the USSD panel and returns to landing.
func (c *Completion) Dismiss() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stage != StageUSSD {
		return ErrWrongStage
	}
	c.stage = StageDone
	c.router.navigator.Navigate(navigation.Landing)
	return nil
}
