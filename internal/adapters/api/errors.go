package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

// ErrUnauthorized matches any *Error whose status shows the token was not accepted.
var ErrUnauthorized = errors.New("api: unauthorized")

// maxMessageLength bounds how much of a non-JSON error body is kept.
const maxMessageLength = 200

// Error is a non-2xx response from the remote API.
type Error struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("api: HTTP %d: %s", e.StatusCode, e.Message)
}

// Is reports ErrUnauthorized for 401 and 403 responses.
func (e *Error) Is(target error) bool {
	return target == ErrUnauthorized &&
		(e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden)
}

// errorBody is the remote API's error envelope.
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// parseError builds an *Error from a response status and body.
// POST: Message is never empty
func parseError(status int, body []byte) *Error {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		if eb.Message != "" {
			return &Error{StatusCode: status, Message: eb.Message}
		}
		if eb.Error != "" {
			return &Error{StatusCode: status, Message: eb.Error}
		}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" || strings.HasPrefix(msg, "{") || strings.HasPrefix(msg, "<") {
		msg = http.StatusText(status)
	}
	return &Error{StatusCode: status, Message: truncate(msg, maxMessageLength)}
}

// truncate cuts s to at most n bytes without splitting a multi-byte rune.
// POST: the result is valid UTF-8
func truncate(s string, n int) string {
	if len(s) > n {
		cut := n
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	return strings.ToValidUTF8(s, "")
}

// MessageOr returns the server's message for an *Error, or fallback for anything else.
func MessageOr(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.StatusCode < 500 && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
