// Package app wires the client core together from a config.Config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/congo-pay/mobcash/internal/catalog"
	"github.com/congo-pay/mobcash/internal/client"
	"github.com/congo-pay/mobcash/internal/completion"
	"github.com/congo-pay/mobcash/internal/config"
	"github.com/congo-pay/mobcash/internal/identity"
	"github.com/congo-pay/mobcash/internal/infra"
	"github.com/congo-pay/mobcash/internal/logging"
	"github.com/congo-pay/mobcash/internal/metrics"
	"github.com/congo-pay/mobcash/internal/navigation"
	"github.com/congo-pay/mobcash/internal/notification"
	"github.com/congo-pay/mobcash/internal/phone"
	"github.com/congo-pay/mobcash/internal/session"
	"github.com/congo-pay/mobcash/internal/transaction"
	"github.com/congo-pay/mobcash/internal/wizard"
)

// Options carries the surfaces the embedding UI provides. Every field is optional.
type Options struct {
	Notifier   notification.Notifier
	Navigator  navigation.Navigator
	Dialer     completion.Dialer
	Clipboard  completion.Clipboard
	Opener     completion.Opener
	Registerer prometheus.Registerer
	Logger     *slog.Logger
	// Transport replaces the fiber transport.
	Transport client.Transport
	// Redis and Postgres reuse existing connections instead of dialing the
	// configured URLs. App.Close does not close them.
	Redis    *redis.Client
	Postgres *pgxpool.Pool
}

// App holds the wired components.
type App struct {
	Config       config.Config
	Client       *client.Client
	Session      *session.Manager
	Catalog      *catalog.Service
	Phones       *phone.Service
	Identities   *identity.Registrar
	Transactions *transaction.Service
	Router       *completion.Router
	Metrics      *metrics.Metrics

	notifier notification.Notifier
	logger   *slog.Logger
	redis    *redis.Client
	db       *pgxpool.Pool
	closers  []func() error
}

// New builds the application and restores any persisted session.
func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.New(cfg.LogLevel, cfg.LogFormat)
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notification.NewLoggerNotifier(logger)
	}

	a := &App{
		Config:   cfg,
		Metrics:  metrics.New(opts.Registerer),
		notifier: notifier,
		logger:   logger,
		redis:    opts.Redis,
		db:       opts.Postgres,
	}
	if err := a.connect(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}

	store, err := a.sessionStore(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Session = session.NewManager(store, logger)
	if err := a.Session.Restore(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}

	transport := opts.Transport
	if transport == nil {
		transport = client.NewFiberTransport(cfg.RequestTimeout)
	}
	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	a.Client, err = client.New(client.Options{
		BaseURL:   cfg.APIBaseURL,
		Transport: transport,
		Session:   a.Session,
		Notifier:  notifier,
		Navigator: opts.Navigator,
		Limiter:   limiter,
		Metrics:   a.Metrics,
		Logger:    logger,

		RefreshTimeout: cfg.RequestTimeout,
	})
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("build client: %w", err)
	}

	var catalogRepo catalog.Repository = catalog.NewRemoteRepository(a.Client)
	if cfg.CatalogCacheTTL > 0 && a.redis != nil {
		catalogRepo = catalog.NewCachedRepository(catalogRepo, a.redis, cfg.CatalogCacheTTL, logger)
	}
	a.Catalog = catalog.NewService(catalogRepo)
	a.Phones = phone.NewService(phone.NewRemoteRepository(a.Client))
	a.Identities = identity.NewRegistrar(identity.NewRemoteRepository(a.Client), identity.Options{
		SettlementCurrency: cfg.SettlementCurrencyID,
		Notifier:           notifier,
		Metrics:            a.Metrics,
		Logger:             logger,
	})
	a.Transactions = transaction.NewService(transaction.NewRemoteRepository(a.Client), transaction.Options{
		WithdrawalCodeMinLength: cfg.WithdrawalCodeMinLength,
	})
	a.Router = completion.NewRouter(completion.Options{
		Settings:  a.Catalog,
		Dialer:    opts.Dialer,
		Clipboard: opts.Clipboard,
		Opener:    opts.Opener,
		Navigator: opts.Navigator,
		Notifier:  notifier,
		Metrics:   a.Metrics,
		Logger:    logger,
	})

	logger.Info("mobcash client ready",
		slog.String("env", cfg.AppEnv),
		slog.String("session_store", cfg.SessionStore),
		slog.Bool("catalog_cache", cfg.CatalogCacheTTL > 0),
		slog.Bool("authenticated", a.Session.Authenticated()),
	)
	return a, nil
}

func (a *App) connect(ctx context.Context) error {
	need := a.Config
	if a.redis != nil {
		need.CatalogCacheTTL = 0
		if need.SessionStore == config.StoreRedis {
			need.SessionStore = config.StoreMemory
		}
	}
	if a.db != nil && need.SessionStore == config.StorePostgres {
		need.SessionStore = config.StoreMemory
	}
	conns, err := infra.Dial(ctx, need)
	if err != nil {
		return err
	}
	if conns.Redis != nil {
		a.redis = conns.Redis
	}
	if conns.Postgres != nil {
		a.db = conns.Postgres
	}
	a.closers = append(a.closers, conns.Close)
	return nil
}

func (a *App) sessionStore(ctx context.Context) (session.Store, error) {
	var store session.Store
	switch a.Config.SessionStore {
	case config.StoreRedis:
		store = session.NewRedisStore(a.redis, a.Config.SessionProfile, 0)
	case config.StorePostgres:
		pg := session.NewPostgresStore(a.db, a.Config.SessionProfile)
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("session schema: %w", err)
		}
		store = pg
	default:
		store = session.NewMemoryStore()
	}
	if a.Config.SessionKey == "" {
		return store, nil
	}
	sealed, err := session.NewSealedStore(store, a.Config.SessionKey)
	if err != nil {
		return nil, fmt.Errorf("seal session store: %w", err)
	}
	return sealed, nil
}

func (a *App) wizardOptions() wizard.Options {
	return wizard.Options{
		Catalog:                 a.Catalog,
		Identities:              a.Identities,
		Phones:                  a.Phones,
		Transactions:            a.Transactions,
		Router:                  a.Router,
		WithdrawalCodeMinLength: a.Config.WithdrawalCodeMinLength,
		Notifier:                a.notifier,
		Metrics:                 a.Metrics,
		Logger:                  a.logger,
	}
}

// Deposit starts a fresh deposit wizard.
func (a *App) Deposit() *wizard.Controller {
	return wizard.NewController(catalog.Deposit, a.wizardOptions())
}

// Withdrawal starts a fresh withdrawal wizard.
func (a *App) Withdrawal() *wizard.Controller {
	return wizard.NewController(catalog.Withdrawal, a.wizardOptions())
}

// Login signs in and stores the session.
func (a *App) Login(ctx context.Context, identifier, password string) (client.User, error) {
	return a.Client.Login(ctx, identifier, password)
}

// Logout clears the session and returns to the login view.
func (a *App) Logout(ctx context.Context) error {
	return a.Client.Logout(ctx)
}

// History lists past transactions.
func (a *App) History(ctx context.Context, f transaction.Filter) (transaction.Page[transaction.Transaction], error) {
	return a.Transactions.History(ctx, f)
}

// Close releases the connections New opened.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
