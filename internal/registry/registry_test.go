package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"veilchat/internal/domain"
)

type fakePusher struct {
	mu     sync.Mutex
	pushed []domain.MessageEnvelope
	closed int
}

func (f *fakePusher) Push(env domain.MessageEnvelope) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushed = append(f.pushed, env)
	return true
}

func (f *fakePusher) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
}

func (f *fakePusher) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func TestRegisterAndLookup(t *testing.T) {
	r := New()
	p := &fakePusher{}

	require.Nil(t, r.Lookup("p1"))
	require.False(t, r.Register("p1", p))
	require.Same(t, Pusher(p), r.Lookup("p1"))
	require.Equal(t, 1, r.Online())
}

func TestSecondLoginEvictsFirst(t *testing.T) {
	r := New()
	first := &fakePusher{}
	second := &fakePusher{}

	require.False(t, r.Register("p1", first))
	require.True(t, r.Register("p1", second))

	require.Equal(t, 1, first.closeCount())
	require.Equal(t, 0, second.closeCount())
	require.Same(t, Pusher(second), r.Lookup("p1"))
	require.Equal(t, 1, r.Online())
}

func TestEvictedConnectionCannotUnregisterSuccessor(t *testing.T) {
	r := New()
	first := &fakePusher{}
	second := &fakePusher{}

	r.Register("p1", first)
	r.Register("p1", second)

	// The evicted connection's teardown runs after the takeover.
	r.Unregister("p1", first)
	require.Same(t, Pusher(second), r.Lookup("p1"))

	r.Unregister("p1", second)
	require.Nil(t, r.Lookup("p1"))
	require.Equal(t, 0, r.Online())
}

func TestReRegisterSamePusherDoesNotSelfClose(t *testing.T) {
	r := New()
	p := &fakePusher{}

	r.Register("p1", p)
	require.False(t, r.Register("p1", p))
	require.Equal(t, 0, p.closeCount())
}

func TestConcurrentRegisterLeavesOneConnection(t *testing.T) {
	r := New()

	const n = 16
	pushers := make([]*fakePusher, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		pushers[i] = &fakePusher{}
		wg.Add(1)
		go func(p *fakePusher) {
			defer wg.Done()
			r.Register("p1", p)
		}(pushers[i])
	}
	wg.Wait()

	require.Equal(t, 1, r.Online())
	winner := r.Lookup("p1")
	require.NotNil(t, winner)

	closed := 0
	for _, p := range pushers {
		if p.closeCount() > 0 {
			closed++
		}
		if winner == Pusher(p) {
			require.Equal(t, 0, p.closeCount())
		}
	}
	require.Equal(t, n-1, closed)
}
