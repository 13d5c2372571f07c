package apiclient

import (
	"errors"
	"net/http"

	"github.com/tidwall/gjson"
)

// Error is the single failure shape returned by Client. Message is never empty.
type Error struct {
	// Op names the backend operation, e.g. "Save course"
	Op string
	// Status is the HTTP status, or 0 when no response was received
	Status int
	// Message is the server's message, or "<Op> failed"
	Message string
	// Fields holds the rest of the server's error object
	Fields map[string]any
	Cause  error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

// Places a backend may put its human readable message, in order of preference
var messagePaths = []string{"message", "error.message", "error", "detail"}

func defaultMessage(op string) string {
	if op == "" {
		return "Request failed"
	}
	return op + " failed"
}

// Normalize turns any error into an *Error for op. An *Error passes through untouched
func Normalize(op string, err error) *Error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return &Error{Op: op, Message: defaultMessage(op), Cause: err}
}

func fromResponse(op string, status int, body []byte) *Error {
	e := &Error{Op: op, Status: status}

	if gjson.ValidBytes(body) {
		parsed := gjson.ParseBytes(body)
		switch {
		case parsed.IsObject():
			fields := make(map[string]any)
			parsed.ForEach(func(key, value gjson.Result) bool {
				if key.String() != "message" {
					fields[key.String()] = value.Value()
				}
				return true
			})
			if len(fields) > 0 {
				e.Fields = fields
			}
			for _, path := range messagePaths {
				if m := parsed.Get(path); m.Type == gjson.String && m.String() != "" {
					e.Message = m.String()
					break
				}
			}
		case parsed.Type == gjson.String:
			e.Message = parsed.String()
		}
	}

	if e.Message == "" {
		e.Message = defaultMessage(op)
	}
	return e
}
