package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"capcall/internal/domain"
)

type fakeTransport struct {
	mu            sync.Mutex
	registerCalls int
	closeCalls    int
	failWith      []string
	gate          chan struct{}
	closeGate     chan struct{}
}

func (f *fakeTransport) Register(_ context.Context, _ []domain.EndpointSpec) (domain.RegisterResult, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	f.registerCalls++
	fail := f.failWith
	f.mu.Unlock()
	if len(fail) > 0 {
		return domain.RegisterResult{Errors: fail}, nil
	}
	return domain.RegisterResult{Success: true}, nil
}

func (f *fakeTransport) ListCapabilities(_ context.Context) ([]domain.CapabilityDescriptor, error) {
	return nil, nil
}

func (f *fakeTransport) Invoke(_ context.Context, _ string, _ any) (any, error) {
	return nil, nil
}

func (f *fakeTransport) Close(_ context.Context) error {
	if f.closeGate != nil {
		<-f.closeGate
	}
	f.mu.Lock()
	f.closeCalls++
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) setFailure(errs []string) {
	f.mu.Lock()
	f.failWith = errs
	f.mu.Unlock()
}

func (f *fakeTransport) calls() (registers, closes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.registerCalls, f.closeCalls
}

func testEndpoints() []domain.EndpointSpec {
	return []domain.EndpointSpec{{Name: "fs", Command: []string{"./fs-server"}}}
}

func TestManager_EnsureReadySharesOneRegistration(t *testing.T) {
	ft := &fakeTransport{gate: make(chan struct{})}
	mgr := NewManager(ft, testEndpoints(), Options{})

	const callers = 8
	gens := make([]uint64, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			gens[i], errs[i] = mgr.EnsureReady(context.Background())
		}(i)
	}
	close(ft.gate)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, uint64(1), gens[i])
	}
	registers, _ := ft.calls()
	require.Equal(t, 1, registers)
	require.Equal(t, domain.SessionReady, mgr.State())
}

func TestManager_EnsureReadyIdempotent(t *testing.T) {
	ft := &fakeTransport{}
	mgr := NewManager(ft, testEndpoints(), Options{})

	first, err := mgr.EnsureReady(context.Background())
	require.NoError(t, err)
	second, err := mgr.EnsureReady(context.Background())
	require.NoError(t, err)

	require.Equal(t, first, second)
	registers, _ := ft.calls()
	require.Equal(t, 1, registers)
}

func TestManager_RegisterFailureResetsState(t *testing.T) {
	ft := &fakeTransport{}
	ft.setFailure([]string{"fs: 401 unauthorized"})
	mgr := NewManager(ft, testEndpoints(), Options{})

	_, err := mgr.EnsureReady(context.Background())
	require.Error(t, err)
	require.ErrorContains(t, err, "401")
	kind, ok := domain.KindOf(err)
	require.True(t, ok)
	require.Equal(t, domain.KindAuth, kind)
	require.Equal(t, domain.SessionUninitialized, mgr.State())

	// The flight is cleared, so the next caller starts a fresh attempt.
	ft.setFailure(nil)
	gen, err := mgr.EnsureReady(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(1), gen)
	registers, _ := ft.calls()
	require.Equal(t, 2, registers)
}

func TestManager_RegisterFailureKinds(t *testing.T) {
	cases := []struct {
		message string
		kind    domain.ErrorKind
	}{
		{"fs: dial tcp: connection refused", domain.KindNetwork},
		{"fs: context deadline exceeded", domain.KindTimeout},
		{"fs: upstream returned 500", domain.KindAPI},
	}

	for _, tc := range cases {
		ft := &fakeTransport{}
		ft.setFailure([]string{tc.message})
		mgr := NewManager(ft, testEndpoints(), Options{})

		_, err := mgr.EnsureReady(context.Background())
		require.Error(t, err)
		kind, ok := domain.KindOf(err)
		require.Truef(t, ok, "message %q", tc.message)
		require.Equalf(t, tc.kind, kind, "message %q", tc.message)
	}
}

func TestManager_RecycleAdvancesGeneration(t *testing.T) {
	ft := &fakeTransport{}
	mgr := NewManager(ft, testEndpoints(), Options{})

	first, err := mgr.EnsureReady(context.Background())
	require.NoError(t, err)

	mgr.Recycle(context.Background(), first)
	require.Equal(t, domain.SessionUninitialized, mgr.State())
	_, closes := ft.calls()
	require.Equal(t, 1, closes)

	second, err := mgr.EnsureReady(context.Background())
	require.NoError(t, err)
	require.Equal(t, first+1, second)
}

func TestManager_StaleRecycleIsNoOp(t *testing.T) {
	ft := &fakeTransport{}
	mgr := NewManager(ft, testEndpoints(), Options{})

	first, err := mgr.EnsureReady(context.Background())
	require.NoError(t, err)
	mgr.Recycle(context.Background(), first)

	second, err := mgr.EnsureReady(context.Background())
	require.NoError(t, err)

	// The old generation is gone; recycling it again must not touch the
	// live session.
	mgr.Recycle(context.Background(), first)
	require.Equal(t, domain.SessionReady, mgr.State())
	_, closes := ft.calls()
	require.Equal(t, 1, closes)

	mgr.Recycle(context.Background(), second+17)
	require.Equal(t, domain.SessionReady, mgr.State())
}

func TestManager_CloseBoundedWhenTransportHangs(t *testing.T) {
	ft := &fakeTransport{closeGate: make(chan struct{})}
	t.Cleanup(func() { close(ft.closeGate) })
	mgr := NewManager(ft, testEndpoints(), Options{CloseTimeout: 50 * time.Millisecond})

	_, err := mgr.EnsureReady(context.Background())
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, mgr.Close(context.Background()))
	require.Less(t, time.Since(start), time.Second)
	require.Equal(t, domain.SessionClosed, mgr.State())
}

func TestManager_EnsureReadyAfterClose(t *testing.T) {
	ft := &fakeTransport{}
	mgr := NewManager(ft, testEndpoints(), Options{})

	require.NoError(t, mgr.Close(context.Background()))
	_, err := mgr.EnsureReady(context.Background())
	require.ErrorIs(t, err, domain.ErrSessionClosed)
}

func TestManager_CloseIdempotent(t *testing.T) {
	ft := &fakeTransport{}
	mgr := NewManager(ft, testEndpoints(), Options{})

	_, err := mgr.EnsureReady(context.Background())
	require.NoError(t, err)

	require.NoError(t, mgr.Close(context.Background()))
	require.NoError(t, mgr.Close(context.Background()))
	_, closes := ft.calls()
	require.Equal(t, 1, closes)
}
