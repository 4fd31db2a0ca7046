package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify_PassesThroughTypedErrors(t *testing.T) {
	inner := E(KindAuth, "register", "invalid api key", nil)
	out := Classify("invoke", fmt.Errorf("attempt 1: %w", inner))

	require.Equal(t, KindAuth, out.Kind)
	require.False(t, out.Retryable)
}

func TestClassify_ContextErrors(t *testing.T) {
	timedOut := Classify("invoke", context.DeadlineExceeded)
	require.Equal(t, KindTimeout, timedOut.Kind)
	require.True(t, timedOut.Retryable)

	canceled := Classify("invoke", context.Canceled)
	require.Equal(t, KindAPI, canceled.Kind)
	require.False(t, canceled.Retryable)
	require.ErrorIs(t, canceled, context.Canceled)
}

func TestClassify_SessionClosedIsRetryableNetwork(t *testing.T) {
	out := Classify("invoke", fmt.Errorf("call echo: %w", ErrSessionClosed))
	require.Equal(t, KindNetwork, out.Kind)
	require.True(t, out.Retryable)
}

func TestClassify_MessageShapes(t *testing.T) {
	cases := []struct {
		msg       string
		kind      ErrorKind
		retryable bool
	}{
		{"401 Unauthorized", KindAuth, false},
		{"Forbidden: token lacks scope", KindAuth, false},
		{"invalid params: missing field url", KindValidation, false},
		{"request timed out after 30000ms", KindTimeout, true},
		{"dial tcp 10.0.0.1:443: connection refused", KindNetwork, true},
		{"read tcp: connection reset by peer", KindNetwork, true},
		{"fetch failed", KindNetwork, true},
		{"rate limit exceeded, try again later", KindAPI, true},
		{"upstream returned 503 Service Unavailable", KindAPI, true},
		{"An unexpected system error occurred", KindAPI, true},
		{"capability reported an error", KindAPI, false},
		{"something odd happened", KindAPI, false},
	}

	for _, tc := range cases {
		out := Classify("invoke", errors.New(tc.msg))
		require.Equalf(t, tc.kind, out.Kind, "message %q", tc.msg)
		require.Equalf(t, tc.retryable, out.Retryable, "message %q", tc.msg)
	}
}

func TestClassify_NilIsNil(t *testing.T) {
	require.Nil(t, Classify("invoke", nil))
}
