package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

// RawRequest is a fully resolved outbound request.
type RawRequest struct {
	Method string
	URL    string
	Header map[string]string
	Body   []byte
}

// Response is what came back.
type Response struct {
	Status int
	Body   []byte
}

// OK reports a 2xx status.
func (r Response) OK() bool { return r.Status >= 200 && r.Status < 300 }

// Transport performs a single round-trip with no retry or credential logic.
type Transport interface {
	Do(ctx context.Context, req RawRequest) (Response, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req RawRequest) (Response, error)

// Do calls f.
func (f TransportFunc) Do(ctx context.Context, req RawRequest) (Response, error) { return f(ctx, req) }

// FiberTransport sends requests with fiber's fasthttp-based Agent.
type FiberTransport struct {
	timeout time.Duration
}

// NewFiberTransport builds a transport with a per-request timeout. The context
// deadline wins when it is sooner.
func NewFiberTransport(timeout time.Duration) *FiberTransport {
	return &FiberTransport{timeout: timeout}
}

// Do sends req. fiber.Agent has no context support, so only the deadline is honored.
func (t *FiberTransport) Do(ctx context.Context, req RawRequest) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	timeout := t.timeout
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return Response{}, context.DeadlineExceeded
		}
		if timeout <= 0 || remaining < timeout {
			timeout = remaining
		}
	}

	agent := fiber.AcquireAgent()
	r := agent.Request()
	r.Header.SetMethod(req.Method)
	r.SetRequestURI(req.URL)
	for key, value := range req.Header {
		r.Header.Set(key, value)
	}
	if len(req.Body) > 0 {
		r.Header.SetContentType(fiber.MIMEApplicationJSON)
		r.SetBody(req.Body)
	}
	if timeout > 0 {
		agent.Timeout(timeout)
	}

	if err := agent.Parse(); err != nil {
		fiber.ReleaseAgent(agent)
		return Response{}, fmt.Errorf("prepare %s %s: %w", req.Method, req.URL, err)
	}

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return Response{}, fmt.Errorf("%s %s: %w", req.Method, req.URL, errors.Join(errs...))
	}
	return Response{Status: code, Body: body}, nil
}
