// Package navigation abstracts the handful of view changes the core drives.
package navigation

import "sync"

// Destinations.
const (
	Login   = "login"
	Landing = "landing"
)

// Navigator moves the embedding UI to a named destination.
type Navigator interface {
	Navigate(destination string)
}

// Func adapts a plain function.
type Func func(destination string)

// Navigate calls f.
func (f Func) Navigate(destination string) { f(destination) }

// Noop ignores navigation; used by headless callers.
type Noop struct{}

// Navigate does nothing.
func (Noop) Navigate(string) {}

// Recorder stores every navigation.
type Recorder struct {
	mu    sync.Mutex
	calls []string
}

// Navigate records destination.
func (r *Recorder) Navigate(destination string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, destination)
}

// Calls returns the recorded destinations in order.
func (r *Recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// Last returns the last destination or "".
func (r *Recorder) Last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		return ""
	}
	return r.calls[len(r.calls)-1]
}
