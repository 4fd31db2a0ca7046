// Package transport owns the wire protocol used to reach capability
// backends. Everything above it works with domain descriptors and plain
// values; nothing above it sees JSON-RPC framing.
package transport

import (
	"context"

	"capcall/internal/domain"
)

// Transport is the boundary the session manager, catalog provider and
// invoker consume. Implementations must be safe for concurrent use after
// Register has returned.
type Transport interface {
	// Register connects and initializes every configured endpoint.
	// Endpoint-level failures are reported through the result rather
	// than the error; the session is only usable when Success is true.
	Register(ctx context.Context, endpoints []domain.EndpointSpec) (domain.RegisterResult, error)

	// ListCapabilities discovers the full catalog across all registered
	// endpoints, in registration order. Names come back fully qualified.
	ListCapabilities(ctx context.Context) ([]domain.CapabilityDescriptor, error)

	// Invoke calls one capability by fully qualified name. The returned
	// value is the raw backend payload: a decoded structure when the
	// backend sent one, otherwise plain text.
	Invoke(ctx context.Context, name string, args any) (any, error)

	// Close releases every endpoint connection.
	Close(ctx context.Context) error
}
