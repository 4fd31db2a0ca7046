package domain

import (
	"strings"
	"time"
)

// RetryPolicy controls invocation retries. It is read-only after
// construction; NamespaceRetries overrides the global MaxRetries for
// capabilities under a dot-separated namespace, and an explicit zero
// there disables retries for that namespace.
type RetryPolicy struct {
	BaseDelay        time.Duration
	MaxDelay         time.Duration
	JitterMax        time.Duration
	MaxRetries       int
	NamespaceRetries map[string]int
}

// RetriesFor resolves the retry budget for a fully qualified capability
// name. The longest matching namespace prefix wins.
func (p RetryPolicy) RetriesFor(name string) int {
	budget := p.MaxRetries
	bestLen := -1
	for namespace, retries := range p.NamespaceRetries {
		if namespace == "" {
			continue
		}
		if name != namespace && !strings.HasPrefix(name, namespace+".") {
			continue
		}
		if len(namespace) > bestLen {
			budget = retries
			bestLen = len(namespace)
		}
	}
	return budget
}
