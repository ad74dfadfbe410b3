package notification

import (
	"context"
	"testing"
)

func TestRecorderKeepsOrderAndKinds(t *testing.T) {
	rec := &Recorder{}
	ctx := context.Background()

	Error(ctx, rec, "first")
	Success(ctx, rec, "done")
	Error(ctx, rec, "second")
	Error(ctx, rec, "")
	Error(ctx, nil, "dropped")

	if got := len(rec.Messages()); got != 3 {
		t.Fatalf("expected 3 messages, got %d", got)
	}
	last, ok := rec.Last(KindError)
	if !ok || last.Body != "second" {
		t.Fatalf("unexpected last error: %+v", last)
	}
	if rec.Count(KindSuccess) != 1 {
		t.Fatalf("expected one success message")
	}
}
