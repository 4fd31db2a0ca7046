package domain

import (
	"context"
	"errors"
	"strings"
)

// Marker fragments used to judge failures that reach us as bare strings
// from a backend. Matching is case-insensitive substring; crude, but the
// wire gives us nothing better for errors a server folds into text.
var (
	authMarkers = []string{
		"401", "403", "unauthorized", "forbidden",
		"authentication failed", "invalid api key", "permission denied",
	}
	validationMarkers = []string{
		"invalid params", "invalid argument", "validation failed", "malformed",
	}
	timeoutMarkers = []string{
		"timeout", "timed out", "deadline exceeded",
	}
	networkMarkers = []string{
		"connection refused", "connection reset", "connection closed",
		"network", "fetch failed", "no such host", "broken pipe",
	}
	transientAPIMarkers = []string{
		"rate limit", "too many requests", "429",
		"500", "502", "503", "504",
		"internal server error", "bad gateway", "service unavailable",
		"gateway timeout", "unexpected system error",
	}
)

// Classify maps an arbitrary failure onto the error taxonomy. Errors
// already carrying a kind pass through with op attached. A generic
// service failure is only marked retryable when its message looks
// transient; auth and validation shapes always abort.
func Classify(op string, err error) *Error {
	if err == nil {
		return nil
	}

	var existing *Error
	if errors.As(err, &existing) {
		return Wrap(existing.Kind, op, err)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return E(KindTimeout, op, "operation timed out", err)
	case errors.Is(err, context.Canceled):
		return E(KindAPI, op, "operation canceled", err)
	case errors.Is(err, ErrSessionClosed):
		// The shared connection went away under us; a fresh session can
		// recover, so this counts as a connectivity failure.
		return E(KindNetwork, op, "session closed", err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, authMarkers):
		return E(KindAuth, op, "", err)
	case containsAny(msg, validationMarkers):
		return E(KindValidation, op, "", err)
	case containsAny(msg, timeoutMarkers):
		return E(KindTimeout, op, "", err)
	case containsAny(msg, networkMarkers):
		return E(KindNetwork, op, "", err)
	}

	apiErr := E(KindAPI, op, "", err)
	apiErr.Retryable = containsAny(msg, transientAPIMarkers)
	return apiErr
}

func containsAny(msg string, markers []string) bool {
	for _, marker := range markers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
