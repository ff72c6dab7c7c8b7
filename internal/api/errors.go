package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors classifying backend failures. Match with errors.Is.
var (
	// ErrUnauthorized is a 401 answer: the credential is missing, expired or revoked.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrRejected is any other 4xx answer; the backend's message is kept verbatim.
	ErrRejected = errors.New("request rejected")
	// ErrConflict is a 409 answer (also matches ErrRejected).
	ErrConflict = errors.New("conflict")
	// ErrNetwork covers transport failures, 5xx answers and malformed bodies.
	ErrNetwork = errors.New("network error")
)

// Error describes a failed backend call.
//
// Status is 0 when no HTTP answer was received. Detail carries the backend's
// own message when one was provided.
type Error struct {
	Op     string
	Status int
	Detail string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Detail != "":
		return e.Detail
	case e.Status == 0 && e.Err != nil:
		return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("HTTP error %d", e.Status)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is maps the status onto the package sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrConflict:
		return e.Status == http.StatusConflict
	case ErrRejected:
		return e.Status >= 400 && e.Status < 500 && e.Status != http.StatusUnauthorized
	case ErrNetwork:
		return e.Status == 0 || e.Status >= 500 || (e.Status < 400 && e.Err != nil)
	}
	return false
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

// detailFrom extracts the human-readable message of an error body.
// Both {"detail":"text"} and validation lists {"detail":[{"msg":"..."}]}
// are understood.
func detailFrom(body []byte) string {
	var env struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &env); err != nil || len(env.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(env.Detail, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(env.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if m := strings.TrimSpace(it.Msg); m != "" {
				msgs = append(msgs, m)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}
