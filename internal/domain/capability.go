package domain

import "time"

// CapabilityDescriptor describes one remotely invokable operation.
// Descriptors are immutable once discovered; the schemas hold arbitrary
// decoded JSON.
type CapabilityDescriptor struct {
	Name         string `json:"name"`
	InputSchema  any    `json:"inputSchema,omitempty"`
	OutputSchema any    `json:"outputSchema,omitempty"`
}

// Clone returns a deep copy so callers can hand descriptors to
// persistence or display paths without sharing schema structure.
func (d CapabilityDescriptor) Clone() CapabilityDescriptor {
	return CapabilityDescriptor{
		Name:         d.Name,
		InputSchema:  CloneValue(d.InputSchema),
		OutputSchema: CloneValue(d.OutputSchema),
	}
}

// CatalogSource indicates where a snapshot's descriptors were obtained.
type CatalogSource string

const (
	CatalogSourceMemory CatalogSource = "memory"
	CatalogSourceCache  CatalogSource = "cache"
	CatalogSourceLive   CatalogSource = "live"
)

// CatalogSnapshot is one ordered view of the discoverable capabilities.
// Order is discovery order and decides resolution ties.
type CatalogSnapshot struct {
	ETag         string
	Source       CatalogSource
	CapturedAt   time.Time
	Capabilities []CapabilityDescriptor
}

func (s CatalogSnapshot) Clone() CatalogSnapshot {
	out := CatalogSnapshot{
		ETag:       s.ETag,
		Source:     s.Source,
		CapturedAt: s.CapturedAt,
	}
	if s.Capabilities != nil {
		out.Capabilities = make([]CapabilityDescriptor, len(s.Capabilities))
		for i, d := range s.Capabilities {
			out.Capabilities[i] = d.Clone()
		}
	}
	return out
}

// Lookup returns the first descriptor whose name equals name.
func (s CatalogSnapshot) Lookup(name string) (CapabilityDescriptor, bool) {
	for _, d := range s.Capabilities {
		if d.Name == name {
			return d, true
		}
	}
	return CapabilityDescriptor{}, false
}
