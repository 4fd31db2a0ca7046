package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"capcall/internal/domain"
)

func newResolverProvider(t *testing.T, catalogs ...[]domain.CapabilityDescriptor) (*Provider, *fakeListTransport) {
	t.Helper()
	ft := &fakeListTransport{catalogs: catalogs}
	return NewProvider(&fakeSessions{}, ft, disabledCache(t), Options{}), ft
}

func TestResolve_ExactName(t *testing.T) {
	p, ft := newResolverProvider(t, visionCatalog())

	res, err := p.Resolve(context.Background(), "zai.chat.complete")
	require.NoError(t, err)
	require.Equal(t, "zai.chat.complete", res.Descriptor.Name)
	require.Equal(t, domain.CatalogSourceLive, res.Source)
	require.Equal(t, 1, ft.listCalls())
}

func TestResolve_SuffixMatch(t *testing.T) {
	p, _ := newResolverProvider(t, visionCatalog())

	res, err := p.Resolve(context.Background(), "analyze_image")
	require.NoError(t, err)
	require.Equal(t, "zai.vision.analyze_image", res.Descriptor.Name)
}

func TestResolve_MultiSegmentSuffix(t *testing.T) {
	p, _ := newResolverProvider(t, visionCatalog())

	res, err := p.Resolve(context.Background(), "vision.analyze_image")
	require.NoError(t, err)
	require.Equal(t, "zai.vision.analyze_image", res.Descriptor.Name)
}

func TestResolve_ExactBeatsSuffix(t *testing.T) {
	p, _ := newResolverProvider(t, []domain.CapabilityDescriptor{
		{Name: "mirror.chat.complete"},
		{Name: "chat.complete"},
	})

	// "mirror.chat.complete" appears first and ends in ".chat.complete",
	// but the exact pass over the whole catalog runs before any suffix pass.
	res, err := p.Resolve(context.Background(), "chat.complete")
	require.NoError(t, err)
	require.Equal(t, "chat.complete", res.Descriptor.Name)
}

func TestResolve_SuffixTieBreakKeepsCatalogOrder(t *testing.T) {
	p, _ := newResolverProvider(t, []domain.CapabilityDescriptor{
		{Name: "zai.vision.analyze_image"},
		{Name: "hf.vision.analyze_image"},
	})

	res, err := p.Resolve(context.Background(), "analyze_image")
	require.NoError(t, err)
	require.Equal(t, "zai.vision.analyze_image", res.Descriptor.Name)
}

func TestResolve_SegmentBoundaryRequired(t *testing.T) {
	p, _ := newResolverProvider(t, visionCatalog())

	// "image" is a trailing substring of "analyze_image" but not a
	// dot-delimited suffix.
	_, err := p.Resolve(context.Background(), "image")
	require.Error(t, err)
	kind, ok := domain.KindOf(err)
	require.True(t, ok)
	require.Equal(t, domain.KindUnknownTool, kind)
}

func TestResolve_MissForcesExactlyOneRefresh(t *testing.T) {
	p, ft := newResolverProvider(t, visionCatalog())

	// Warm the in-memory snapshot first so the miss path is isolated.
	_, err := p.Snapshot(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, 1, ft.listCalls())

	_, err = p.Resolve(context.Background(), "does_not_exist")
	require.Error(t, err)
	kind, ok := domain.KindOf(err)
	require.True(t, ok)
	require.Equal(t, domain.KindUnknownTool, kind)
	require.Contains(t, err.Error(), "does_not_exist")
	require.Equal(t, 2, ft.listCalls())
}

func TestResolve_RefreshFindsNewCapability(t *testing.T) {
	grown := append(visionCatalog(), domain.CapabilityDescriptor{Name: "zai.video.generate"})
	p, ft := newResolverProvider(t, visionCatalog(), grown)

	_, err := p.Snapshot(context.Background(), false)
	require.NoError(t, err)

	res, err := p.Resolve(context.Background(), "generate")
	require.NoError(t, err)
	require.Equal(t, "zai.video.generate", res.Descriptor.Name)
	require.Equal(t, domain.CatalogSourceLive, res.Source)
	require.Equal(t, 2, ft.listCalls())
}

func TestResolve_EmptyIDRejected(t *testing.T) {
	p, ft := newResolverProvider(t, visionCatalog())

	for _, id := range []string{"", "   "} {
		_, err := p.Resolve(context.Background(), id)
		require.Error(t, err)
		kind, ok := domain.KindOf(err)
		require.True(t, ok)
		require.Equal(t, domain.KindValidation, kind)
	}
	require.Equal(t, 0, ft.listCalls())
}

func TestResolve_CacheSourcedResolutionKeepsProvenance(t *testing.T) {
	dir := t.TempDir()
	warm := enabledCache(t, dir)
	warm.Write(visionCatalog())

	p := NewProvider(&fakeSessions{}, &fakeListTransport{}, enabledCache(t, dir), Options{})

	res, err := p.Resolve(context.Background(), "analyze_image")
	require.NoError(t, err)
	require.Equal(t, "zai.vision.analyze_image", res.Descriptor.Name)
	require.Equal(t, domain.CatalogSourceCache, res.Source)
}
