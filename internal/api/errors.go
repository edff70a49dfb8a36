package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// TransportError covers requests that got no response and responses with an error status
type TransportError struct {
	StatusCode int    // 0 when no response was received
	StatusText string // status line text, used for binary requests when the body carries no detail
	Detail     string // server-supplied detail, if the body could be parsed
	Binary     bool   // the request expected binary content
	Err        error  // underlying network error, if any
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("request failed: %v", e.Err)
	}
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("request failed with status %d %s", e.StatusCode, e.StatusText)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// AuthError is a rejected login, signup or identity update
type AuthError struct {
	StatusCode int
	Detail     string
}

func (e *AuthError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("authentication failed (status %d)", e.StatusCode)
	}
	return e.Detail
}

// ValidationError is a precondition failure detected before any request is sent
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// DisguisedBinaryError is a JSON error body delivered in answer to a binary request
type DisguisedBinaryError struct {
	Detail string
}

func (e *DisguisedBinaryError) Error() string {
	if e.Detail == "" {
		return "binary request returned an error payload"
	}
	return e.Detail
}

// Reason extracts the human-readable explanation of err, or fallback when there is none
func Reason(err error, fallback string) string {
	if err == nil {
		return fallback
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Reason
	}

	var authErr *AuthError
	if errors.As(err, &authErr) {
		if authErr.Detail != "" {
			return authErr.Detail
		}
		return fallback
	}

	var disguisedErr *DisguisedBinaryError
	if errors.As(err, &disguisedErr) {
		if disguisedErr.Detail != "" {
			return disguisedErr.Detail
		}
		return fallback
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		if transportErr.Detail != "" {
			return transportErr.Detail
		}
		if transportErr.Binary && transportErr.StatusText != "" {
			return transportErr.StatusText
		}
	}
	return fallback
}

// parseDetail pulls the "detail" field out of an error body. FastAPI sends either a
// string or a list of validation problems carrying "msg".
func parseDetail(body []byte) (string, bool) {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", false
	}
	if len(envelope.Detail) == 0 {
		return "", true
	}

	var text string
	if err := json.Unmarshal(envelope.Detail, &text); err == nil {
		return text, true
	}

	var problems []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &problems); err == nil {
		msgs := make([]string, 0, len(problems))
		for _, p := range problems {
			if p.Msg != "" {
				msgs = append(msgs, p.Msg)
			}
		}
		return strings.Join(msgs, "; "), true
	}
	return "", true
}
