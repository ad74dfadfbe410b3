package completion

import (
	"context"
	"sync"
)

// Dialer hands a tel: URI (see DialURI) to the device dialer. Success is not
// guaranteed, so the router always shows the copyable panel as well.
type Dialer interface {
	Dial(ctx context.Context, uri string) error
}

// Clipboard copies text for the user.
type Clipboard interface {
	Copy(ctx context.Context, text string) error
}

// Opener opens an external page outside the current view.
type Opener interface {
	Open(ctx context.Context, link string) error
}

// Noop implements every capability and does nothing.
type Noop struct{}

func (Noop) Dial(context.Context, string) error { return nil }
func (Noop) Copy(context.Context, string) error { return nil }
func (Noop) Open(context.Context, string) error { return nil }

// Recorder implements every capability and keeps the arguments it was given.
// Err, when set, is returned from every call after recording it.
type Recorder struct {
	mu     sync.Mutex
	dialed []string
	copied []string
	opened []string
	Err    error
}

func (r *Recorder) Dial(_ context.Context, uri string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dialed = append(r.dialed, uri)
	return r.Err
}

func (r *Recorder) Copy(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.copied = append(r.copied, text)
	return r.Err
}

func (r *Recorder) Open(_ context.Context, link string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opened = append(r.opened, link)
	return r.Err
}

// Dialed returns the URIs passed to Dial.
func (r *Recorder) Dialed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.dialed...)
}

// Copied returns the texts passed to Copy.
func (r *Recorder) Copied() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.copied...)
}

// Opened returns the links passed to Open.
func (r *Recorder) Opened() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.opened...)
}
