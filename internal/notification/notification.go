package notification

import (
	"context"
	"log/slog"
	"sync"
)

// Message kinds shown to the user.
const (
	KindError   = "error"
	KindSuccess = "success"
	KindInfo    = "info"
)

// Message describes a user-visible feedback line.
type Message struct {
	Kind string
	Body string
}

// Notifier delivers feedback to whatever surface the embedding UI provides.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// Error is shorthand for sending an error message, ignoring nil notifiers.
func Error(ctx context.Context, n Notifier, body string) {
	send(ctx, n, Message{Kind: KindError, Body: body})
}

// Success is shorthand for sending a success message.
func Success(ctx context.Context, n Notifier, body string) {
	send(ctx, n, Message{Kind: KindSuccess, Body: body})
}

func send(ctx context.Context, n Notifier, msg Message) {
	if n == nil || msg.Body == "" {
		return
	}
	_ = n.Send(ctx, msg)
}

// LoggerNotifier writes notifications to the logger; used when no UI is attached.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(ctx context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.InfoContext(ctx, "notification", "kind", message.Kind, "body", message.Body)
	return nil
}

// Recorder keeps every message; safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

// Send records the message.
func (r *Recorder) Send(_ context.Context, message Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
	return nil
}

// Messages returns a copy of the recorded messages.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// Last returns the most recent message of the given kind.
func (r *Recorder) Last(kind string) (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.messages) - 1; i >= 0; i-- {
		if r.messages[i].Kind == kind {
			return r.messages[i], true
		}
	}
	return Message{}, false
}

// Count returns how many messages of kind were recorded.
func (r *Recorder) Count(kind string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.messages {
		if m.Kind == kind {
			n++
		}
	}
	return n
}
