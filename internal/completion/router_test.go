package completion

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/congo-pay/mobcash/internal/catalog"
	"github.com/congo-pay/mobcash/internal/logging"
	"github.com/congo-pay/mobcash/internal/metrics"
	"github.com/congo-pay/mobcash/internal/navigation"
	"github.com/congo-pay/mobcash/internal/notification"
	"github.com/congo-pay/mobcash/internal/transaction"
)

func TestUSSD(t *testing.T) {
	cases := []struct {
		amount float64
		want   string
	}{
		{1, "*155*2*1*22994000000*1#"},
		{0.5, "*155*2*1*22994000000*1#"},
		{1000, "*155*2*1*22994000000*990#"},
		{10000, "*155*2*1*22994000000*9900#"},
		{1001, "*155*2*1*22994000000*990#"},
		{505, "*155*2*1*22994000000*499#"},
	}
	for _, tc := range cases {
		if got := USSD(tc.amount, "22994000000"); got != tc.want {
			t.Fatalf("USSD(%v) = %q, want %q", tc.amount, got, tc.want)
		}
	}
	if got := DialURI("*155*2*1*1*9900#"); got != "tel:*155*2*1*1*9900%23" {
		t.Fatalf("unexpected dial uri %q", got)
	}
}

type settingsFunc func(ctx context.Context) (catalog.Settings, error)

func (f settingsFunc) Settings(ctx context.Context) (catalog.Settings, error) { return f(ctx) }

func merchant(phone string) SettingsSource {
	return settingsFunc(func(context.Context) (catalog.Settings, error) {
		return catalog.Settings{MoovMerchantPhone: phone}, nil
	})
}

var (
	moov = catalog.Network{ID: 2, Name: "Moov", ActiveForDeposit: true, DepositAPI: catalog.DepositAPIConnect}
	mtn  = catalog.Network{ID: 1, Name: "mtn", ActiveForDeposit: true, ActiveForWithdrawal: true}
)

type fixture struct {
	router *Router
	caps   *Recorder
	nav    *navigation.Recorder
	notes  *notification.Recorder
	m      *metrics.Metrics
}

func newFixture(settings SettingsSource) fixture {
	caps := &Recorder{}
	nav := &navigation.Recorder{}
	notes := &notification.Recorder{}
	m := metrics.New(prometheus.NewRegistry())
	r := NewRouter(Options{
		Settings:  settings,
		Dialer:    caps,
		Clipboard: caps,
		Opener:    caps,
		Navigator: nav,
		Notifier:  notes,
		Metrics:   m,
		Logger:    logging.Discard(),
	})
	return fixture{router: r, caps: caps, nav: nav, notes: notes, m: m}
}

func TestMoovDepositShowsPanelUntilDismiss(t *testing.T) {
	f := newFixture(merchant("22994000000"))
	ctx := context.Background()

	c := f.router.Route(ctx, Outcome{Direction: catalog.Deposit, Network: moov, Amount: 10000})
	if c.Stage() != StageUSSD {
		t.Fatalf("expected ussd stage, got %s", c.Stage())
	}
	want := "*155*2*1*22994000000*9900#"
	if c.USSD() != want {
		t.Fatalf("unexpected ussd %q", c.USSD())
	}
	if dialed := f.caps.Dialed(); len(dialed) != 1 || dialed[0] != "tel:*155*2*1*22994000000*9900%23" {
		t.Fatalf("expected dialer invoked once, got %v", dialed)
	}
	if len(f.nav.Calls()) != 0 {
		t.Fatal("panel must stay until dismissed")
	}

	if err := c.Copy(ctx); err != nil {
		t.Fatalf("copy: %v", err)
	}
	if copied := f.caps.Copied(); len(copied) != 1 || copied[0] != want {
		t.Fatalf("unexpected clipboard %v", copied)
	}
	if msg, ok := f.notes.Last(notification.KindSuccess); !ok || msg.Body != CopiedMessage {
		t.Fatalf("expected copy confirmation, got %+v", msg)
	}
	if len(f.nav.Calls()) != 0 {
		t.Fatal("copy must not navigate")
	}

	if err := c.Dismiss(); err != nil {
		t.Fatalf("dismiss: %v", err)
	}
	if f.nav.Last() != navigation.Landing || c.Stage() != StageDone {
		t.Fatalf("expected landing after dismiss, got %v", f.nav.Calls())
	}
	if err := c.Dismiss(); !errors.Is(err, ErrWrongStage) {
		t.Fatalf("expected wrong stage on second dismiss, got %v", err)
	}
}

func TestDialerFailureStillShowsPanel(t *testing.T) {
	f := newFixture(merchant("1"))
	f.caps.Err = errors.New("no dialer")
	c := f.router.Route(context.Background(), Outcome{Direction: catalog.Deposit, Network: moov, Amount: 1000})
	if c.Stage() != StageUSSD || c.USSD() != "*155*2*1*1*990#" {
		t.Fatalf("expected panel despite dial failure, got %s %q", c.Stage(), c.USSD())
	}
}

func TestLinkWaitsForUser(t *testing.T) {
	f := newFixture(merchant("22994000000"))
	ctx := context.Background()
	tx := transaction.Transaction{ID: 7, TransactionLink: "https://pay.example/7"}

	c := f.router.Route(ctx, Outcome{Direction: catalog.Deposit, Network: mtn, Amount: 1000, Transaction: tx})
	if c.Stage() != StageLink || c.Link() != tx.TransactionLink {
		t.Fatalf("expected link stage, got %s", c.Stage())
	}
	if len(f.nav.Calls()) != 0 || len(f.caps.Opened()) != 0 {
		t.Fatal("link must not open or navigate on its own")
	}

	if err := c.Continue(ctx); err != nil {
		t.Fatalf("continue: %v", err)
	}
	if opened := f.caps.Opened(); len(opened) != 1 || opened[0] != tx.TransactionLink {
		t.Fatalf("unexpected opened links %v", opened)
	}
	if c.Stage() != StageDone || f.nav.Last() != navigation.Landing {
		t.Fatalf("expected landing after continue on mtn, got %s", c.Stage())
	}
}

func TestLinkThenMoovUSSD(t *testing.T) {
	f := newFixture(merchant("22994000000"))
	ctx := context.Background()
	tx := transaction.Transaction{TransactionLink: "https://pay.example/8"}

	c := f.router.Route(ctx, Outcome{Direction: catalog.Deposit, Network: moov, Amount: 1000, Transaction: tx})
	if len(f.caps.Dialed()) != 0 {
		t.Fatal("ussd must wait for the link step")
	}
	if err := c.Continue(ctx); err != nil {
		t.Fatalf("continue: %v", err)
	}
	if c.Stage() != StageUSSD || len(f.nav.Calls()) != 0 {
		t.Fatalf("expected ussd panel after link, got %s %v", c.Stage(), f.nav.Calls())
	}
}

func TestCancelLinkLands(t *testing.T) {
	f := newFixture(nil)
	c := f.router.Route(context.Background(), Outcome{Direction: catalog.Withdrawal, Network: mtn, Transaction: transaction.Transaction{TransactionLink: "x"}})
	if err := c.Cancel(); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if len(f.caps.Opened()) != 0 || f.nav.Last() != navigation.Landing {
		t.Fatalf("expected landing without opening, got %v", f.nav.Calls())
	}
	if err := c.Continue(context.Background()); !errors.Is(err, ErrWrongStage) {
		t.Fatalf("expected wrong stage, got %v", err)
	}
}

func TestFallsBackToLanding(t *testing.T) {
	cases := []struct {
		name     string
		settings SettingsSource
		out      Outcome
		route    string
	}{
		{"other network", merchant("1"), Outcome{Direction: catalog.Deposit, Network: mtn, Amount: 1000}, "landing"},
		{"moov withdrawal", merchant("1"), Outcome{Direction: catalog.Withdrawal, Network: moov, Amount: 1000}, "landing"},
		{"moov standard api", merchant("1"), Outcome{Direction: catalog.Deposit, Network: catalog.Network{Name: "Moov", DepositAPI: "standard"}, Amount: 1000}, "landing"},
		{"missing merchant", merchant(""), Outcome{Direction: catalog.Deposit, Network: moov, Amount: 1000}, "landing_fallback"},
		{"settings failure", settingsFunc(func(context.Context) (catalog.Settings, error) {
			return catalog.Settings{}, errors.New("boom")
		}), Outcome{Direction: catalog.Deposit, Network: moov, Amount: 1000}, "landing_fallback"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(tc.settings)
			c := f.router.Route(context.Background(), tc.out)
			if c.Stage() != StageDone || f.nav.Last() != navigation.Landing {
				t.Fatalf("expected landing, got %s %v", c.Stage(), f.nav.Calls())
			}
			if len(f.caps.Dialed()) != 0 {
				t.Fatal("dialer must not be invoked")
			}
			if got := testutil.ToFloat64(f.m.CompletionsTotal.WithLabelValues(tc.route)); got != 1 {
				t.Fatalf("expected route %s counted once, got %v", tc.route, got)
			}
			if err := c.Copy(context.Background()); !errors.Is(err, ErrWrongStage) {
				t.Fatalf("expected wrong stage, got %v", err)
			}
		})
	}
}
