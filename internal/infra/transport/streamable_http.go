package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"capcall/internal/domain"
)

// dialHTTP connects to a streamable HTTP endpoint. Static headers from the
// spec are applied to every request, replacing any header the SDK set with
// the same name.
func dialHTTP(ctx context.Context, spec domain.EndpointSpec) (mcp.Connection, error) {
	endpoint := strings.TrimSpace(spec.URL)
	if endpoint == "" {
		return nil, errors.New("url is required for http endpoints")
	}

	rt, err := newHeaderRoundTripper(spec.Headers)
	if err != nil {
		return nil, err
	}

	transport := &mcp.StreamableClientTransport{
		Endpoint:   endpoint,
		HTTPClient: &http.Client{Transport: rt},
		MaxRetries: domain.DefaultHTTPMaxRetries,
	}
	conn, err := transport.Connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect streamable http: %w", err)
	}
	return conn, nil
}

// headerRoundTripper carries an endpoint's static headers into every
// outgoing request.
type headerRoundTripper struct {
	base    http.RoundTripper
	headers http.Header
}

func newHeaderRoundTripper(extra map[string]string) (*headerRoundTripper, error) {
	headers := make(http.Header, len(extra)+1)
	headers.Set("Mcp-Protocol-Version", domain.DefaultProtocolVersion)
	for key, value := range extra {
		name := http.CanonicalHeaderKey(strings.TrimSpace(key))
		if name == "" {
			return nil, errors.New("http headers contain empty key")
		}
		headers.Set(name, value)
	}
	return &headerRoundTripper{base: http.DefaultTransport, headers: headers}, nil
}

// RoundTrip sends a clone with the static headers replacing any same-named
// ones; the caller's request is never mutated.
func (h *headerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	for name, values := range h.headers {
		clone.Header[name] = append([]string(nil), values...)
	}
	return h.base.RoundTrip(clone)
}
