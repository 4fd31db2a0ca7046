// Package redact produces sanitized copies of values before they are
// persisted or displayed. Inputs are never mutated; the live catalog used
// for invocation must not pass through here.
package redact

import (
	"regexp"
	"strings"

	"capcall/internal/domain"
)

// Marker replaces every redacted value. Redaction is irreversible.
const Marker = "***"

var sensitiveKeys = map[string]struct{}{
	"token":         {},
	"apikey":        {},
	"api_key":       {},
	"api-key":       {},
	"authorization": {},
	"password":      {},
	"secret":        {},
	"accesstoken":   {},
	"access_token":  {},
	"refreshtoken":  {},
	"refresh_token": {},
	"credential":    {},
	"credentials":   {},
	"cookie":        {},
}

var bearerPattern = regexp.MustCompile(`^[Bb]earer\s+\S+$`)

// SensitiveKey reports whether a mapping key names a secret. Matching is
// by exact name, case-insensitive.
func SensitiveKey(key string) bool {
	_, ok := sensitiveKeys[strings.ToLower(key)]
	return ok
}

type Redactor struct {
	credential string
}

// New returns a Redactor that additionally masks every occurrence of
// credential inside string values. An empty credential disables that rule.
func New(credential string) *Redactor {
	return &Redactor{credential: credential}
}

// Value returns a deep copy of value with secrets masked. Mapping values
// under sensitive keys are replaced wholesale without recursing into them.
func (r *Redactor) Value(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, val := range v {
			if SensitiveKey(key) {
				out[key] = Marker
				continue
			}
			out[key] = r.Value(val)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = r.Value(val)
		}
		return out
	case string:
		return r.String(v)
	default:
		return v
	}
}

// String masks the active credential and bearer-shaped tokens.
func (r *Redactor) String(value string) string {
	if r.credential != "" && strings.Contains(value, r.credential) {
		value = strings.ReplaceAll(value, r.credential, Marker)
	}
	if bearerPattern.MatchString(value) {
		fields := strings.Fields(value)
		value = fields[0] + " " + Marker
	}
	return value
}

// Descriptor returns a masked deep copy of one capability descriptor.
func (r *Redactor) Descriptor(descriptor domain.CapabilityDescriptor) domain.CapabilityDescriptor {
	return domain.CapabilityDescriptor{
		Name:         descriptor.Name,
		InputSchema:  r.Value(descriptor.InputSchema),
		OutputSchema: r.Value(descriptor.OutputSchema),
	}
}

// Catalog returns a masked deep copy of a whole catalog, preserving order.
func (r *Redactor) Catalog(descriptors []domain.CapabilityDescriptor) []domain.CapabilityDescriptor {
	if descriptors == nil {
		return nil
	}
	out := make([]domain.CapabilityDescriptor, len(descriptors))
	for i, descriptor := range descriptors {
		out[i] = r.Descriptor(descriptor)
	}
	return out
}
