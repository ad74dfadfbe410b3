package apperr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const waitField = "error_time_message"

var messageKeys = []string{"detail", "error", "message"}

var waitPattern = regexp.MustCompile(`^\s*(\d+)\s*M\s*:\s*(\d+)\s*S\s*$`)

// Decode classifies a non-2xx backend response.
func Decode(status int, body []byte) *Error {
	e := &Error{Status: status, Message: GenericMessage}

	trimmed := bytes.TrimSpace(body)
	var payload map[string]json.RawMessage
	if len(trimmed) > 0 && trimmed[0] == '{' && json.Unmarshal(trimmed, &payload) == nil {
		if msg := firstMessage(payload); msg != "" {
			e.Message = msg
		}
		e.Fields = fieldErrors(payload)
		if raw, ok := payload[waitField]; ok {
			wait, parsed := ParseWait(firstString(raw))
			rl := RateLimited(wait, parsed)
			rl.Status = status
			rl.Fields = e.Fields
			return rl
		}
	} else if text := plainText(trimmed); text != "" {
		e.Message = text
	}

	switch {
	case status == http.StatusTooManyRequests:
		rl := RateLimited(0, false)
		rl.Fields = e.Fields
		return rl
	case status == http.StatusUnauthorized:
		e.Kind = KindUnauthorized
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity,
		status == http.StatusNotFound, status == http.StatusConflict:
		e.Kind = KindValidation
		if e.Message == GenericMessage {
			if msg := firstFieldMessage(e.Fields); msg != "" {
				e.Message = msg
			}
		}
	default:
		e.Kind = KindTransient
	}
	return e
}

// ParseWait reads a "<minutes> M:<seconds> S" descriptor.
func ParseWait(descriptor string) (time.Duration, bool) {
	m := waitPattern.FindStringSubmatch(descriptor)
	if m == nil {
		return 0, false
	}
	minutes, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	seconds, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, false
	}
	return time.Duration(minutes)*time.Minute + time.Duration(seconds)*time.Second, true
}

// WaitMessage renders a wait duration as an instruction, dropping zero clauses.
func WaitMessage(d time.Duration) string {
	if d <= 0 {
		return RetryLaterMessage
	}
	total := int(d.Round(time.Second) / time.Second)
	minutes, seconds := total/60, total%60

	var parts []string
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}
	if seconds > 0 {
		parts = append(parts, plural(seconds, "second"))
	}
	if len(parts) == 0 {
		return RetryLaterMessage
	}
	return fmt.Sprintf("Please wait %s before trying again.", strings.Join(parts, " and "))
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func firstMessage(payload map[string]json.RawMessage) string {
	for _, key := range messageKeys {
		if raw, ok := payload[key]; ok {
			if s := firstString(raw); s != "" {
				return s
			}
		}
	}
	return ""
}

func fieldErrors(payload map[string]json.RawMessage) map[string][]string {
	fields := make(map[string][]string)
	for key, raw := range payload {
		if key == waitField || isMessageKey(key) {
			continue
		}
		if msgs := stringList(raw); len(msgs) > 0 {
			fields[key] = msgs
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func firstFieldMessage(fields map[string][]string) string {
	// Map order is random; prefer the alphabetically first field for stable output.
	var best string
	var bestKey string
	for key, msgs := range fields {
		if len(msgs) == 0 {
			continue
		}
		if bestKey == "" || key < bestKey {
			bestKey, best = key, msgs[0]
		}
	}
	return best
}

func isMessageKey(key string) bool {
	for _, k := range messageKeys {
		if k == key {
			return true
		}
	}
	return false
}

// stringList decodes a string or an array of strings.
func stringList(raw json.RawMessage) []string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		if s == "" {
			return nil
		}
		return []string{s}
	}
	var list []string
	if json.Unmarshal(raw, &list) == nil {
		out := list[:0]
		for _, item := range list {
			if item != "" {
				out = append(out, item)
			}
		}
		return out
	}
	return nil
}

func firstString(raw json.RawMessage) string {
	if list := stringList(raw); len(list) > 0 {
		return list[0]
	}
	return ""
}

func plainText(body []byte) string {
	if len(body) == 0 || body[0] == '<' || body[0] == '[' {
		return ""
	}
	var s string
	if body[0] == '"' {
		if json.Unmarshal(body, &s) == nil {
			return strings.TrimSpace(s)
		}
		return ""
	}
	return strings.TrimSpace(string(body))
}
