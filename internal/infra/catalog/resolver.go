package catalog

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"capcall/internal/domain"
	"capcall/internal/infra/telemetry"
)

// Resolution is a successfully resolved capability: the full descriptor
// and the provenance of the snapshot it came from. Cache-sourced
// descriptors carry redacted schemas.
type Resolution struct {
	Descriptor domain.CapabilityDescriptor
	Source     domain.CatalogSource
}

// Resolve maps a user-supplied identifier to a fully qualified
// capability. Exact names win over suffix matches; a miss forces one
// live refresh before giving up with an unknown-tool error.
func (p *Provider) Resolve(ctx context.Context, id string) (Resolution, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return Resolution{}, domain.E(domain.KindValidation, "resolve", "capability id is required", nil)
	}

	snap, err := p.Snapshot(ctx, false)
	if err != nil {
		return Resolution{}, err
	}
	if descriptor, ok := matchName(snap.Capabilities, trimmed); ok {
		p.logResolved(trimmed, descriptor.Name, snap.Source)
		return Resolution{Descriptor: descriptor, Source: snap.Source}, nil
	}

	// The catalog may have changed since this snapshot was captured; try
	// once more against a live one.
	snap, err = p.Snapshot(ctx, true)
	if err != nil {
		return Resolution{}, err
	}
	if descriptor, ok := matchName(snap.Capabilities, trimmed); ok {
		p.logResolved(trimmed, descriptor.Name, snap.Source)
		return Resolution{Descriptor: descriptor, Source: snap.Source}, nil
	}

	unknown := domain.E(domain.KindUnknownTool, "resolve", fmt.Sprintf("unknown capability %q", trimmed), nil)
	unknown.Meta = map[string]string{"capability": trimmed}
	return Resolution{}, unknown
}

func (p *Provider) logResolved(id, name string, source domain.CatalogSource) {
	p.logger.Debug("capability resolved",
		zap.String("id", id),
		telemetry.CapabilityField(name),
		telemetry.SourceField(string(source)),
	)
}

// matchName finds id in the catalog: the full exact pass runs before any
// suffix matching, and suffix matches only bind on dot boundaries.
// Within a pass the first match in catalog order wins.
func matchName(capabilities []domain.CapabilityDescriptor, id string) (domain.CapabilityDescriptor, bool) {
	for _, descriptor := range capabilities {
		if descriptor.Name == id {
			return descriptor, true
		}
	}
	suffix := "." + id
	for _, descriptor := range capabilities {
		if strings.HasSuffix(descriptor.Name, suffix) {
			return descriptor, true
		}
	}
	return domain.CapabilityDescriptor{}, false
}
