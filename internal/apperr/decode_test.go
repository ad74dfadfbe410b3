package apperr

import (
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestDecodeRateLimitSecondsOnly(t *testing.T) {
	e := Decode(http.StatusBadRequest, []byte(`{"error_time_message": ["0 M:8 S"]}`))
	if e.Kind != KindRateLimited {
		t.Fatalf("expected rate limited, got %s", e.Kind)
	}
	if e.Wait != 8*time.Second {
		t.Fatalf("expected 8s wait, got %s", e.Wait)
	}
	if !strings.Contains(e.Message, "8 seconds") {
		t.Fatalf("expected seconds in message, got %q", e.Message)
	}
	if strings.Contains(e.Message, "minute") {
		t.Fatalf("zero minutes must not be mentioned: %q", e.Message)
	}
}

func TestDecodeRateLimitMalformedFallsBack(t *testing.T) {
	e := Decode(http.StatusTooManyRequests, []byte(`{"error_time_message": "soon"}`))
	if e.Kind != KindRateLimited {
		t.Fatalf("expected rate limited, got %s", e.Kind)
	}
	if e.Message != RetryLaterMessage {
		t.Fatalf("expected generic retry message, got %q", e.Message)
	}

	bare := Decode(http.StatusTooManyRequests, nil)
	if bare.Kind != KindRateLimited || bare.Message != RetryLaterMessage {
		t.Fatalf("unexpected bare 429 decoding: %+v", bare)
	}
}

func TestWaitMessage(t *testing.T) {
	cases := []struct {
		wait time.Duration
		want string
	}{
		{8 * time.Second, "Please wait 8 seconds before trying again."},
		{time.Second, "Please wait 1 second before trying again."},
		{2*time.Minute + 5*time.Second, "Please wait 2 minutes and 5 seconds before trying again."},
		{time.Minute, "Please wait 1 minute before trying again."},
		{0, RetryLaterMessage},
	}
	for _, tc := range cases {
		if got := WaitMessage(tc.wait); got != tc.want {
			t.Errorf("WaitMessage(%s) = %q, want %q", tc.wait, got, tc.want)
		}
	}
}

func TestParseWait(t *testing.T) {
	if d, ok := ParseWait("3 M:07 S"); !ok || d != 3*time.Minute+7*time.Second {
		t.Fatalf("unexpected parse: %s %v", d, ok)
	}
	for _, bad := range []string{"", "8 S", "M:8 S", "1 M 8 S", "-1 M:2 S"} {
		if _, ok := ParseWait(bad); ok {
			t.Errorf("expected %q to be rejected", bad)
		}
	}
}

func TestDecodeMessagePreference(t *testing.T) {
	e := Decode(http.StatusInternalServerError, []byte(`{"message":"m","error":"e","detail":"d"}`))
	if e.Message != "d" || e.Kind != KindTransient {
		t.Fatalf("expected detail preferred on transient, got %+v", e)
	}

	e = Decode(http.StatusInternalServerError, []byte(`{"message":"m","error":"e"}`))
	if e.Message != "e" {
		t.Fatalf("expected error preferred over message, got %q", e.Message)
	}

	e = Decode(http.StatusBadGateway, []byte(`<html>bad gateway</html>`))
	if e.Message != GenericMessage {
		t.Fatalf("expected generic fallback for html, got %q", e.Message)
	}

	e = Decode(http.StatusServiceUnavailable, []byte(`"maintenance window"`))
	if e.Message != "maintenance window" {
		t.Fatalf("expected plain string body, got %q", e.Message)
	}
}

func TestDecodeFieldErrors(t *testing.T) {
	e := Decode(http.StatusBadRequest, []byte(`{"user_app_id":["already bound"],"app":"unknown app"}`))
	if e.Kind != KindValidation {
		t.Fatalf("expected validation, got %s", e.Kind)
	}
	if got := e.FieldMessage("user_app_id", "app"); got != "already bound" {
		t.Fatalf("expected user_app_id message first, got %q", got)
	}
	if got := e.FieldMessage("missing", "app"); got != "unknown app" {
		t.Fatalf("expected app message, got %q", got)
	}
	if e.Message != "unknown app" {
		t.Fatalf("expected first field message as summary, got %q", e.Message)
	}
}

func TestDecodeUnauthorized(t *testing.T) {
	e := Decode(http.StatusUnauthorized, []byte(`{"detail":"Given token not valid"}`))
	if e.Kind != KindUnauthorized {
		t.Fatalf("expected unauthorized, got %s", e.Kind)
	}
}

func TestFatalWrapsSessionExpired(t *testing.T) {
	cause := errors.New("refresh rejected")
	err := error(Fatal(cause))
	if !errors.Is(err, ErrSessionExpired) || !errors.Is(err, cause) {
		t.Fatalf("expected both sentinel and cause, got %v", err)
	}
	if KindOf(err) != KindFatal {
		t.Fatalf("expected fatal kind, got %s", KindOf(err))
	}
	if KindOf(errors.New("plain")) != KindTransient {
		t.Fatal("untagged errors are transient")
	}
}
