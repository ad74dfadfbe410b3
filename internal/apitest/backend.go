// Package apitest runs an in-process fake of the mobcash REST API for tests
// and local UI work. It speaks the same wire format as the real backend:
// JWT access tokens, opaque refresh tokens, Django-style error bodies.
package apitest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/congo-pay/mobcash/internal/logging"
	"github.com/congo-pay/mobcash/internal/middleware"
)

// SettlementCurrency is the currency id accounts must hold to be linked.
const SettlementCurrency = 27

// Options configures a Backend.
type Options struct {
	Logger *slog.Logger
	// Cache enables idempotency replay and throttling on transaction endpoints.
	Cache *redis.Client
	// TransactionLimit is the per-minute submission limit when Cache is set.
	TransactionLimit int
	Secret           []byte
	AccessTTL        time.Duration
	// Addr defaults to 127.0.0.1:0.
	Addr string
}

// Backend is a running fake API.
type Backend struct {
	app    *fiber.App
	ln     net.Listener
	done   chan error
	logger *slog.Logger
	secret []byte
	ttl    time.Duration

	mu            sync.Mutex
	generation    int
	failRefresh   bool
	rotateRefresh bool
	throttleWait  string
	depositLink   string
	users         map[string]*user
	refresh       map[string]string
	platforms     []Platform
	networks      []Network
	settings      map[string]any
	accounts      map[string]Account
	phones        []Phone
	identities    []Identity
	transactions  []Transaction
	calls         map[string]int
	nextID        int64
}

type user struct {
	Profile      Profile
	PasswordHash []byte
}

func hashPassword(password string) []byte {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(fmt.Sprintf("hash password: %v", err))
	}
	return hash
}

func (u *user) checkPassword(password string) bool {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)) == nil
}

// New starts a backend listening on a loopback port.
func New(opts Options) (*Backend, error) {
	addr := opts.Addr
	if addr == "" {
		addr = "127.0.0.1:0"
	}
	secret := opts.Secret
	if len(secret) == 0 {
		secret = []byte(uuid.NewString())
	}
	ttl := opts.AccessTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	b := &Backend{
		logger:   logging.OrDiscard(opts.Logger),
		secret:   secret,
		ttl:      ttl,
		done:     make(chan error, 1),
		users:    make(map[string]*user),
		refresh:  make(map[string]string),
		settings: map[string]any{},
		accounts: make(map[string]Account),
		calls:    make(map[string]int),
	}
	b.seed()

	b.app = fiber.New(fiber.Config{
		AppName:               "mobcash-fakeapi",
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler:          errorHandler,
	})
	b.routes(opts)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	b.ln = ln
	go func() { b.done <- b.app.Listener(ln) }()
	return b, nil
}

// URL is the base URL clients should target.
func (b *Backend) URL() string { return "http://" + b.ln.Addr().String() }

// Close stops the server.
func (b *Backend) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return b.app.ShutdownWithContext(ctx)
}

// Wait blocks until the listener exits.
func (b *Backend) Wait() error { return <-b.done }

func (b *Backend) routes(opts Options) {
	b.app.Use(recover.New())
	b.app.Use(middleware.RequestID())
	b.app.Use(middleware.Audit(b.logger))

	b.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "request_id": middleware.RequestIDFrom(c)})
	})

	authGroup := b.app.Group("/auth")
	authGroup.Post("/login", b.login)
	authGroup.Post("/registration", b.register)
	authGroup.Post("/token/refresh/", b.refreshToken)
	authGroup.Get("/me", middleware.Bearer(b.verify), b.me)
	authGroup.Patch("/me", middleware.Bearer(b.verify), b.updateMe)
	authGroup.Post("/change_password", middleware.Bearer(b.verify), b.changePassword)

	api := b.app.Group("/mobcash", middleware.Bearer(b.verify))
	api.Get("/plateform", b.listPlatforms)
	api.Get("/network", b.listNetworks)
	api.Get("/setting", b.getSettings)
	api.Get("/search-user", b.searchUser)

	api.Get("/user-phone/", b.listPhones)
	api.Post("/user-phone/", b.createPhone)
	api.Patch("/user-phone/:id/", b.updatePhone)
	api.Delete("/user-phone/:id/", b.deletePhone)

	api.Get("/user-app-id/", b.listIdentities)
	api.Post("/user-app-id/", b.createIdentity)
	api.Patch("/user-app-id/:id/", b.updateIdentity)
	api.Delete("/user-app-id/:id/", b.deleteIdentity)

	api.Get("/transaction-history", b.history)

	submit := func(h fiber.Handler) []fiber.Handler {
		if opts.Cache == nil {
			return []fiber.Handler{h}
		}
		return []fiber.Handler{
			middleware.Throttle(opts.Cache, opts.TransactionLimit, time.Minute),
			middleware.Idempotency(opts.Cache, 10*time.Minute, b.logger),
			h,
		}
	}
	api.Post("/transaction-deposit", submit(b.deposit)...)
	api.Post("/transaction-withdrawal", submit(b.withdraw)...)
}

// errorHandler renders errors the way the real API does: {"detail": "..."}.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Internal server error."
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code, msg = fe.Code, fe.Message
	}
	return c.Status(code).JSON(fiber.Map{"detail": msg})
}

type accessClaims struct {
	Generation int `json:"gen"`
	jwt.RegisteredClaims
}

func (b *Backend) mint(subject string) (string, error) {
	b.mu.Lock()
	gen := b.generation
	b.mu.Unlock()
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims{
		Generation: gen,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(b.ttl)),
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(b.secret)
}

func (b *Backend) verify(token string) (string, error) {
	var claims accessClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return b.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if claims.Generation != b.generation {
		return "", errors.New("token revoked")
	}
	return claims.Subject, nil
}

func (b *Backend) hit(c *fiber.Ctx) {
	b.mu.Lock()
	b.calls[c.Method()+" "+c.Route().Path]++
	b.mu.Unlock()
}

func (b *Backend) id() int64 {
	b.nextID++
	return b.nextID
}
