package wizard

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/mobcash/internal/apperr"
	"github.com/congo-pay/mobcash/internal/catalog"
	"github.com/congo-pay/mobcash/internal/completion"
	"github.com/congo-pay/mobcash/internal/identity"
	"github.com/congo-pay/mobcash/internal/logging"
	"github.com/congo-pay/mobcash/internal/metrics"
	"github.com/congo-pay/mobcash/internal/navigation"
	"github.com/congo-pay/mobcash/internal/notification"
	"github.com/congo-pay/mobcash/internal/phone"
	"github.com/congo-pay/mobcash/internal/transaction"
)

const merchantPhone = "22994000000"

type harness struct {
	txRepo *transaction.MemoryRepository
	idRepo *identity.MemoryRepository
	caps   *completion.Recorder
	nav    *navigation.Recorder
	notes  *notification.Recorder
	m      *metrics.Metrics
	opts   Options
}

func newHarness() *harness {
	h := &harness{
		txRepo: transaction.NewMemoryRepository(),
		idRepo: identity.NewMemoryRepository(),
		caps:   &completion.Recorder{},
		nav:    &navigation.Recorder{},
		notes:  &notification.Recorder{},
		m:      metrics.New(prometheus.NewRegistry()),
	}
	h.idRepo.AddAccount("1xbet", "12345", identity.Lookup{UserID: 12345, Name: "Ada L.", CurrencyID: 27})

	cat := catalog.NewService(catalog.NewMemoryRepository(
		[]catalog.Platform{xbet, melbet},
		[]catalog.Network{mtn, moov},
		catalog.Settings{MoovMerchantPhone: merchantPhone},
	))
	h.opts = Options{
		Catalog:                 cat,
		Identities:              identity.NewRegistrar(h.idRepo, identity.Options{SettlementCurrency: 27, Notifier: h.notes}),
		Phones:                  phone.NewService(phone.NewMemoryRepository(mtnPhone, moovPhone)),
		Transactions:            transaction.NewService(h.txRepo, transaction.Options{}),
		WithdrawalCodeMinLength: 4,
		Notifier:                h.notes,
		Metrics:                 h.m,
		Logger:                  logging.Discard(),
		Router: completion.NewRouter(completion.Options{
			Settings:  cat,
			Dialer:    h.caps,
			Clipboard: h.caps,
			Opener:    h.caps,
			Navigator: h.nav,
			Notifier:  h.notes,
			Logger:    logging.Discard(),
		}),
	}
	return h
}

// fill walks the controller to the amount step through the registries.
func fill(t *testing.T, c *Controller, network catalog.Network, amount float64) {
	t.Helper()
	ctx := context.Background()

	platforms, err := c.Platforms(ctx)
	require.NoError(t, err)
	require.Len(t, platforms, 2)
	_, err = c.Dispatch(SelectPlatform{Platform: platforms[0]})
	require.NoError(t, err)

	p, err := c.ProposeIdentity(ctx, "12345")
	require.NoError(t, err)
	_, err = c.CommitIdentity(ctx, p)
	require.NoError(t, err)

	networks, err := c.Networks(ctx)
	require.NoError(t, err)
	var chosen catalog.Network
	for _, n := range networks {
		if n.ID == network.ID {
			chosen = n
		}
	}
	require.NotZero(t, chosen.ID, "network %s not offered", network.Name)
	_, err = c.Dispatch(SelectNetwork{Network: chosen})
	require.NoError(t, err)

	phones, err := c.Phones(ctx)
	require.NoError(t, err)
	require.Len(t, phones, 1)
	_, err = c.Dispatch(SelectPhone{Phone: phones[0]})
	require.NoError(t, err)

	s, err := c.Dispatch(SetAmount{Amount: amount})
	require.NoError(t, err)
	require.Equal(t, StepAmount, s.Step)
}

func TestMoovDepositEndToEnd(t *testing.T) {
	h := newHarness()
	c := NewController(catalog.Deposit, h.opts)
	fill(t, c, moov, 10000)

	sum, err := c.OpenConfirmation()
	require.NoError(t, err)
	assert.Equal(t, "Moov", sum.Network)
	assert.Equal(t, float64(10000), sum.Amount)
	assert.Empty(t, h.txRepo.Requests(), "confirmation must not submit")

	done, err := c.Submit(context.Background())
	require.NoError(t, err)
	require.Equal(t, completion.StageUSSD, done.Stage())
	assert.Equal(t, "*155*2*1*"+merchantPhone+"*9900#", done.USSD())
	assert.Equal(t, []string{completion.DialURI(done.USSD())}, h.caps.Dialed())
	assert.Empty(t, h.nav.Calls(), "panel stays until dismissed")

	reqs := h.txRepo.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "web", reqs[0].Source)
	assert.NotEmpty(t, reqs[0].IdempotencyKey)
	assert.Empty(t, reqs[0].WithdrawalCode)

	assert.Equal(t, StepPlatform, c.State().Step, "state is reset after success")
	assert.Equal(t, float64(1), testutil.ToFloat64(h.m.SubmissionsTotal.WithLabelValues("deposit", "ok")))

	require.NoError(t, done.Dismiss())
	assert.Equal(t, navigation.Landing, h.nav.Last())
}

func TestLinkWaitsForContinue(t *testing.T) {
	h := newHarness()
	h.txRepo.RespondWithLink("https://pay.example/1")
	c := NewController(catalog.Deposit, h.opts)
	fill(t, c, mtn, 1000)
	_, err := c.OpenConfirmation()
	require.NoError(t, err)

	done, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, completion.StageLink, done.Stage())
	assert.Empty(t, h.nav.Calls())
	assert.Empty(t, h.caps.Opened())

	require.NoError(t, done.Continue(context.Background()))
	assert.Equal(t, []string{"https://pay.example/1"}, h.caps.Opened())
	assert.Equal(t, navigation.Landing, h.nav.Last())
}

func TestWithdrawalBoundsCheckedBeforeNetwork(t *testing.T) {
	cases := []struct {
		name   string
		amount float64
		ok     bool
	}{
		{"minimum", 500, true},
		{"maximum", 300000, true},
		{"below minimum", 499, false},
		{"above maximum", 300001, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness()
			c := NewController(catalog.Withdrawal, h.opts)
			fill(t, c, mtn, tc.amount)
			_, err := c.Dispatch(SetWithdrawalCode{Code: "4321"})
			require.NoError(t, err)

			_, openErr := c.OpenConfirmation()
			_, submitErr := c.Submit(context.Background())
			if tc.ok {
				require.NoError(t, openErr)
				require.NoError(t, submitErr)
				require.Len(t, h.txRepo.Requests(), 1)
				assert.Equal(t, "4321", h.txRepo.Requests()[0].WithdrawalCode)
				return
			}
			assert.ErrorIs(t, openErr, ErrAmountOutOfBounds)
			assert.ErrorIs(t, submitErr, ErrNotConfirming)
			assert.Empty(t, h.txRepo.Requests(), "no network call for out of bounds amounts")
		})
	}
}

func TestRateLimitedFailureKeepsStateAndKey(t *testing.T) {
	h := newHarness()
	h.txRepo.Fail(apperr.Decode(429, []byte(`{"error_time_message":["0 M:8 S"]}`)))
	c := NewController(catalog.Deposit, h.opts)
	fill(t, c, mtn, 1000)
	_, err := c.OpenConfirmation()
	require.NoError(t, err)

	_, err = c.Submit(context.Background())
	require.True(t, apperr.Is(err, apperr.KindRateLimited), "got %v", err)
	msg := c.Failure()
	assert.Contains(t, msg, "8 seconds")
	assert.NotContains(t, msg, "minute")
	assert.True(t, c.State().Confirming, "state kept for retry")
	assert.Equal(t, float64(1), testutil.ToFloat64(h.m.SubmissionsTotal.WithLabelValues("deposit", "rate_limited")))

	h.txRepo.Fail(nil)
	_, err = c.Submit(context.Background())
	require.NoError(t, err)
	assert.Empty(t, c.Failure())

	reqs := h.txRepo.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, reqs[0].IdempotencyKey, reqs[1].IdempotencyKey, "retry reuses the idempotency key")
}

func TestGenericFailureMessage(t *testing.T) {
	h := newHarness()
	h.txRepo.Fail(apperr.Decode(500, []byte(`{"detail":"database exploded"}`)))
	c := NewController(catalog.Deposit, h.opts)
	fill(t, c, mtn, 1000)
	_, err := c.OpenConfirmation()
	require.NoError(t, err)

	_, err = c.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, MessageSubmitFailed, c.Failure())

	// A new confirmation after editing gets a fresh key.
	_, err = c.CancelConfirmation()
	require.NoError(t, err)
	_, err = c.Dispatch(SetAmount{Amount: 2000})
	require.NoError(t, err)
	_, err = c.OpenConfirmation()
	require.NoError(t, err)
	_, _ = c.Submit(context.Background())
	reqs := h.txRepo.Requests()
	require.Len(t, reqs, 2)
	assert.NotEqual(t, reqs[0].IdempotencyKey, reqs[1].IdempotencyKey)
}

type gatedSubmitter struct {
	Submitter
	entered chan struct{}
	release chan struct{}
}

func (g *gatedSubmitter) Deposit(ctx context.Context, req transaction.Request) (transaction.Transaction, error) {
	close(g.entered)
	<-g.release
	return g.Submitter.Deposit(ctx, req)
}

func gated(h *harness) *gatedSubmitter {
	g := &gatedSubmitter{
		Submitter: h.opts.Transactions,
		entered:   make(chan struct{}),
		release:   make(chan struct{}),
	}
	h.opts.Transactions = g
	return g
}

func TestReentrantSubmitRefused(t *testing.T) {
	h := newHarness()
	g := gated(h)
	c := NewController(catalog.Deposit, h.opts)
	fill(t, c, mtn, 1000)
	_, err := c.OpenConfirmation()
	require.NoError(t, err)

	errs := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background())
		errs <- err
	}()
	<-g.entered

	assert.True(t, c.Busy())
	_, err = c.Submit(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
	_, err = c.Dispatch(CancelConfirmation{})
	assert.ErrorIs(t, err, ErrBusy)

	close(g.release)
	require.NoError(t, <-errs)
	assert.Len(t, h.txRepo.Requests(), 1)
}

func TestDiscardIgnoresLateResponse(t *testing.T) {
	h := newHarness()
	g := gated(h)
	c := NewController(catalog.Deposit, h.opts)
	fill(t, c, mtn, 1000)
	_, err := c.OpenConfirmation()
	require.NoError(t, err)

	errs := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background())
		errs <- err
	}()
	<-g.entered
	c.Discard()
	close(g.release)

	assert.ErrorIs(t, <-errs, ErrStale)
	assert.Empty(t, h.nav.Calls(), "a discarded wizard must not route")
	assert.Equal(t, StepPlatform, c.State().Step)
	assert.False(t, c.Busy())
}

func TestAddPhoneSelectsIt(t *testing.T) {
	h := newHarness()
	c := NewController(catalog.Deposit, h.opts)
	ctx := context.Background()

	_, err := c.AddPhone(ctx, "22990000000")
	assert.ErrorIs(t, err, ErrNetworkInactive)

	_, err = c.Dispatch(SelectPlatform{Platform: xbet})
	require.NoError(t, err)
	_, err = c.Dispatch(SelectIdentity{Identity: identity.BetIdentity{ID: 5, UserAppID: "1", App: "1xbet"}})
	require.NoError(t, err)
	_, err = c.Dispatch(SelectNetwork{Network: moov})
	require.NoError(t, err)

	s, err := c.AddPhone(ctx, "+229 90 00 00 00")
	require.NoError(t, err)
	assert.Equal(t, StepAmount, s.Step)
	assert.Equal(t, moov.ID, s.Phone.Network)
	assert.True(t, strings.HasPrefix(s.Phone.Phone, "229"))

	phones, err := c.Phones(ctx)
	require.NoError(t, err)
	assert.Len(t, phones, 2)
}

func TestRejectedIdentityIsNotSelected(t *testing.T) {
	h := newHarness()
	h.idRepo.AddAccount("1xbet", "777", identity.Lookup{UserID: 777, Name: "Euro", CurrencyID: 1})
	c := NewController(catalog.Deposit, h.opts)
	_, err := c.Dispatch(SelectPlatform{Platform: xbet})
	require.NoError(t, err)

	p, err := c.ProposeIdentity(context.Background(), "777")
	assert.True(t, errors.Is(err, identity.ErrWrongCurrency))
	_, err = c.CommitIdentity(context.Background(), p)
	assert.ErrorIs(t, err, identity.ErrUnverified)
	assert.Equal(t, StepIdentity, c.State().Step)
	assert.Zero(t, h.idRepo.Writes())
}

func TestSpacedSavedPhoneIsSentAsDigits(t *testing.T) {
	h := newHarness()
	spaced := phone.UserPhone{ID: 7, Phone: "229 97 00 00 00", Network: mtn.ID}
	h.opts.Phones = phone.NewService(phone.NewMemoryRepository(spaced, moovPhone))
	c := NewController(catalog.Deposit, h.opts)
	fill(t, c, mtn, 1000)
	_, err := c.OpenConfirmation()
	require.NoError(t, err)

	_, err = c.Submit(context.Background())
	require.NoError(t, err)
	reqs := h.txRepo.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "22997000000", reqs[0].PhoneNumber)
}

func TestLocallyInvalidRequestShowsFieldMessage(t *testing.T) {
	h := newHarness()
	short := phone.UserPhone{ID: 7, Phone: "97 00", Network: mtn.ID}
	h.opts.Phones = phone.NewService(phone.NewMemoryRepository(short, moovPhone))
	c := NewController(catalog.Deposit, h.opts)
	fill(t, c, mtn, 1000)
	_, err := c.OpenConfirmation()
	require.NoError(t, err)

	_, err = c.Submit(context.Background())
	require.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)
	assert.Contains(t, c.Failure(), "phone_number")
	assert.NotEqual(t, MessageSubmitFailed, c.Failure())
	last, ok := h.notes.Last(notification.KindError)
	require.True(t, ok, "local validation failures are notified")
	assert.Equal(t, c.Failure(), last.Body)
	assert.Empty(t, h.txRepo.Requests(), "no network call for an invalid request")
	assert.True(t, c.State().Confirming)
	assert.Equal(t, float64(1), testutil.ToFloat64(h.m.SubmissionsTotal.WithLabelValues("deposit", "invalid")))
}

func TestFailureMessagePassesFieldErrors(t *testing.T) {
	assert.Equal(t, "Unknown id", FailureMessage(apperr.Validation("Unknown id", nil)))
	assert.Equal(t, MessageSubmitFailed, FailureMessage(errors.New("boom")))
	assert.Equal(t, MessageSubmitFailed, FailureMessage(apperr.Decode(502, nil)))
}
