package domain

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindAuth        ErrorKind = "AUTH"
	KindValidation  ErrorKind = "VALIDATION"
	KindTimeout     ErrorKind = "TIMEOUT"
	KindNetwork     ErrorKind = "NETWORK"
	KindAPI         ErrorKind = "API"
	KindUnknownTool ErrorKind = "UNKNOWN_TOOL"
)

var ErrSessionClosed = errors.New("session closed")

type Error struct {
	Kind      ErrorKind
	Op        string
	Message   string
	Cause     error
	Retryable bool
	Meta      map[string]string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if e.Op == "" {
		if msg == "" {
			return string(e.Kind)
		}
		return fmt.Sprintf("%s: %s", e.Kind, msg)
	}
	if msg == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, msg)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func E(kind ErrorKind, op, msg string, cause error) *Error {
	if msg == "" && cause != nil {
		msg = cause.Error()
	}
	return &Error{
		Kind:      kind,
		Op:        op,
		Message:   msg,
		Cause:     cause,
		Retryable: kindRetryable(kind),
	}
}

func Wrap(kind ErrorKind, op string, err error) *Error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		if existing.Op != "" || op == "" {
			return existing
		}
		return &Error{
			Kind:      existing.Kind,
			Op:        op,
			Message:   existing.Message,
			Cause:     existing.Cause,
			Retryable: existing.Retryable,
			Meta:      existing.Meta,
		}
	}
	return E(kind, op, "", err)
}

func KindOf(err error) (ErrorKind, bool) {
	if err == nil {
		return "", false
	}
	var domainErr *Error
	if errors.As(err, &domainErr) && domainErr.Kind != "" {
		return domainErr.Kind, true
	}
	return "", false
}

// Retryable reports whether err carries an explicit retry hint. Errors
// outside the domain taxonomy are never retried.
func Retryable(err error) bool {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Retryable
	}
	return false
}

func kindRetryable(kind ErrorKind) bool {
	switch kind {
	case KindTimeout, KindNetwork:
		return true
	default:
		return false
	}
}
