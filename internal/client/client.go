package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/congo-pay/mobcash/internal/apperr"
	"github.com/congo-pay/mobcash/internal/logging"
	"github.com/congo-pay/mobcash/internal/metrics"
	"github.com/congo-pay/mobcash/internal/navigation"
	"github.com/congo-pay/mobcash/internal/notification"
	"github.com/congo-pay/mobcash/internal/session"
)

const (
	// RefreshPath is the token refresh endpoint.
	RefreshPath = "/auth/token/refresh/"

	requestIDHeader = "X-Request-ID"
	cacheBustParam  = "_t"

	defaultRefreshTimeout = 30 * time.Second
)

var (
	errNoRefreshToken      = errors.New("no refresh token stored")
	errReplayUnauthorized  = errors.New("request rejected again after refresh")
	errEmptyRefreshPayload = errors.New("refresh response carried no access token")
)

// Request is one logical API call. The same Request is replayed at most once
// after a token refresh.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Header map[string]string
	// Public requests carry no credentials and never trigger a refresh.
	Public bool
	// PreferFields names the field errors whose message should be shown ahead
	// of the generic detail, in order.
	PreferFields []string

	retried  bool
	sentWith string
}

// API is the calling surface the registries and services depend on.
type API interface {
	JSON(ctx context.Context, req Request, out any) error
}

// Options configures a Client.
type Options struct {
	BaseURL   string
	Transport Transport
	Session   *session.Manager
	Notifier  notification.Notifier
	Navigator navigation.Navigator
	Limiter   *rate.Limiter
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
	Now       func() time.Time
	// RefreshTimeout bounds a token refresh. The refresh outlives the caller
	// that started it, so only this timeout can cut it short.
	RefreshTimeout time.Duration
}

// Client is the single access point for authenticated API calls. It is the
// only component that writes session tokens.
type Client struct {
	baseURL   string
	transport Transport
	session   *session.Manager
	notifier  notification.Notifier
	navigator navigation.Navigator
	limiter   *rate.Limiter
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time

	refreshTimeout time.Duration
	refreshes      singleflight.Group
	lastStamp atomic.Int64
}

// New builds a Client.
func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if opts.Transport == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if opts.Session == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	c := &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		transport: opts.Transport,
		session:   opts.Session,
		notifier:  opts.Notifier,
		navigator: opts.Navigator,
		limiter:   opts.Limiter,
		metrics:   opts.Metrics,
		logger:    logging.OrDiscard(opts.Logger),
		now:       opts.Now,

		refreshTimeout: opts.RefreshTimeout,
	}
	if c.refreshTimeout <= 0 {
		c.refreshTimeout = defaultRefreshTimeout
	}
	if c.navigator == nil {
		c.navigator = navigation.Noop{}
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c, nil
}

// Session exposes the read-only token view.
func (c *Client) Session() session.Reader { return c.session }

// Notifier returns the feedback sink used for surfaced errors.
func (c *Client) Notifier() notification.Notifier { return c.notifier }

// Do sends req, transparently refreshing the access token once on a 401.
// Every non-authorization failure is pushed to the notifier and returned as *apperr.Error.
func (c *Client) Do(ctx context.Context, req Request) (Response, error) {
	body, err := encodeBody(req.Body)
	if err != nil {
		return Response{}, c.fail(ctx, req, apperr.Transient(err, ""))
	}
	requestID := req.Header[requestIDHeader]
	if requestID == "" {
		requestID = uuid.NewString()
	}

	for {
		resp, err := c.send(ctx, &req, requestID, body)
		if err != nil {
			if ctx.Err() != nil {
				return Response{}, c.abandon(ctx, req)
			}
			return Response{}, c.fail(ctx, req, apperr.Transient(err, ""))
		}
		if resp.Status != http.StatusUnauthorized || req.Public {
			if resp.OK() {
				return resp, nil
			}
			failure := apperr.Decode(resp.Status, resp.Body)
			if req.Public && failure.Kind == apperr.KindUnauthorized {
				failure.Kind = apperr.KindValidation
			}
			if failure.Kind == apperr.KindValidation {
				if msg := failure.FieldMessage(req.PreferFields...); msg != "" {
					failure.Message = msg
				}
			}
			return resp, c.fail(ctx, req, failure)
		}

		if req.retried {
			return resp, c.teardown(ctx, errReplayUnauthorized)
		}
		req.retried = true

		if current := c.session.AccessToken(); current != "" && current != req.sentWith {
			// Another request already rotated the token while this one was in flight.
			c.logger.DebugContext(ctx, "replaying with rotated token", slog.String("request_id", requestID))
			continue
		}
		if err := c.refresh(ctx); err != nil {
			if ctx.Err() != nil {
				return resp, c.abandon(ctx, req)
			}
			return resp, c.teardown(ctx, err)
		}
	}
}

// JSON sends req and decodes a successful body into out (which may be nil).
func (c *Client) JSON(ctx context.Context, req Request, out any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return c.fail(ctx, req, apperr.Transient(fmt.Errorf("decode %s %s: %w", req.Method, req.Path, err), ""))
	}
	return nil
}

func (c *Client) send(ctx context.Context, req *Request, requestID string, body []byte) (Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Response{}, err
		}
	}

	query := url.Values{}
	for key, values := range req.Query {
		query[key] = append([]string(nil), values...)
	}
	query.Set(cacheBustParam, strconv.FormatInt(c.stamp(), 10))

	header := map[string]string{
		"Accept":        "application/json",
		"Cache-Control": "no-cache, no-store, must-revalidate",
		"Pragma":        "no-cache",
		"Expires":       "0",
		requestIDHeader: requestID,
	}
	for key, value := range req.Header {
		header[key] = value
	}
	req.sentWith = ""
	if !req.Public {
		if token := c.session.AccessToken(); token != "" {
			header["Authorization"] = "Bearer " + token
			req.sentWith = token
		}
	}

	raw := RawRequest{
		Method: req.Method,
		URL:    c.baseURL + req.Path + "?" + query.Encode(),
		Header: header,
		Body:   body,
	}

	start := c.now()
	resp, err := c.transport.Do(ctx, raw)
	elapsed := c.now().Sub(start)
	c.metrics.ObserveRequest(req.Method, resp.Status, elapsed.Seconds())
	c.logger.DebugContext(ctx, "api request",
		slog.String("method", req.Method),
		slog.String("path", req.Path),
		slog.Int("status", resp.Status),
		slog.Bool("retried", req.retried),
		slog.Duration("duration", elapsed),
		slog.String("request_id", requestID),
	)
	return resp, err
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type refreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// refresh waits for a token exchange, starting one unless another caller
// already has. The exchange runs detached from ctx: a caller that gives up
// stops waiting but does not abort the refresh the others depend on.
func (c *Client) refresh(ctx context.Context) error {
	ch := c.refreshes.DoChan("refresh", func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.refreshTimeout)
		defer cancel()
		err := c.exchange(rctx)
		if err != nil {
			c.metrics.Refresh("failed")
			return nil, err
		}
		c.metrics.Refresh("ok")
		return nil, nil
	})
	select {
	case res := <-ch:
		if res.Shared {
			c.logger.DebugContext(ctx, "joined in-flight token refresh")
		}
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// exchange trades the stored refresh token for a new access token and
// persists it before returning.
func (c *Client) exchange(ctx context.Context) error {
	token := c.session.RefreshToken()
	if token == "" {
		return errNoRefreshToken
	}
	payload, err := json.Marshal(refreshRequest{Refresh: token})
	if err != nil {
		return err
	}
	resp, err := c.transport.Do(ctx, RawRequest{
		Method: http.MethodPost,
		URL:    c.baseURL + RefreshPath,
		Header: map[string]string{"Accept": "application/json", "Cache-Control": "no-cache"},
		Body:   payload,
	})
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	if !resp.OK() {
		return fmt.Errorf("refresh rejected with status %d", resp.Status)
	}
	var out refreshResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return fmt.Errorf("decode refresh response: %w", err)
	}
	if out.Access == "" {
		return errEmptyRefreshPayload
	}
	return c.session.Rotate(ctx, out.Access, out.Refresh)
}

// teardown clears the session and sends the user back to login.
func (c *Client) teardown(ctx context.Context, cause error) error {
	if err := c.session.End(ctx); err != nil {
		c.logger.ErrorContext(ctx, "session teardown incomplete", slog.Any("error", err))
	}
	c.metrics.Teardown()
	c.logger.WarnContext(ctx, "session ended", slog.Any("cause", cause))
	c.navigator.Navigate(navigation.Login)
	return apperr.Fatal(cause)
}

// abandon reports a call the caller cancelled. The session is left alone and
// nothing is shown to the user.
func (c *Client) abandon(ctx context.Context, req Request) error {
	c.logger.DebugContext(ctx, "api request abandoned",
		slog.String("method", req.Method),
		slog.String("path", req.Path),
		slog.Any("error", ctx.Err()),
	)
	return apperr.Transient(ctx.Err(), "")
}

func (c *Client) fail(ctx context.Context, req Request, failure *apperr.Error) error {
	c.logger.WarnContext(ctx, "api request failed",
		slog.String("method", req.Method),
		slog.String("path", req.Path),
		slog.String("kind", failure.Kind.String()),
		slog.Int("status", failure.Status),
		slog.Any("error", failure.Err),
	)
	notification.Error(ctx, c.notifier, failure.Message)
	return failure
}

// stamp returns a strictly increasing millisecond value for cache busting.
func (c *Client) stamp() int64 {
	for {
		now := c.now().UnixMilli()
		last := c.lastStamp.Load()
		if now <= last {
			now = last + 1
		}
		if c.lastStamp.CompareAndSwap(last, now) {
			return now
		}
	}
}

func encodeBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	if raw, ok := body.([]byte); ok {
		return raw, nil
	}
	return json.Marshal(body)
}
