package playback

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHandle is an in-memory Handle that counts terminate calls.
type fakeHandle struct {
	// pid is the fake process id.
	pid int
	// terminations counts Terminate calls.
	terminations atomic.Int32
	// done is closed when the fake process exits.
	done chan struct{}
	// once guards the close of done.
	once sync.Once
}

// newFakeHandle creates a running fake process.
func newFakeHandle(pid int) *fakeHandle {
	return &fakeHandle{
		pid:  pid,
		done: make(chan struct{}),
	}
}

// Terminate records the call and ends the fake process.
func (f *fakeHandle) Terminate() error {
	f.terminations.Add(1)
	f.exit()

	return nil
}

// Exited reports whether the fake process ended.
func (f *fakeHandle) Exited() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Done is closed once the fake process ends.
func (f *fakeHandle) Done() <-chan struct{} { return f.done }

// PID returns the fake process id.
func (f *fakeHandle) PID() int { return f.pid }

// exit ends the fake process as if playback finished on its own.
func (f *fakeHandle) exit() {
	f.once.Do(func() {
		close(f.done)
	})
}

// TestRegistry_TerminateIsIdempotent checks live, repeated and unknown ids.
func TestRegistry_TerminateIsIdempotent(t *testing.T) {
	t.Parallel()

	r := NewRegistry(context.Background())
	h := newFakeHandle(1)

	r.Register("a", h)

	got, ok := r.Lookup("a")
	require.True(t, ok)
	require.Same(t, h, got)

	require.True(t, r.Terminate("a"))
	require.False(t, r.Terminate("a"))
	require.False(t, r.Terminate("unknown"))
	require.EqualValues(t, 1, h.terminations.Load())

	_, ok = r.Lookup("a")
	require.False(t, ok)
}

// TestRegistry_ExitedHandleIsDropped verifies a finished process leaves the registry by itself.
func TestRegistry_ExitedHandleIsDropped(t *testing.T) {
	t.Parallel()

	r := NewRegistry(context.Background())
	h := newFakeHandle(1)

	r.Register("a", h)
	h.exit()

	_, ok := r.Lookup("a")
	require.False(t, ok)

	require.Eventually(t, func() bool {
		return len(r.ActiveIDs()) == 0 && !r.Terminate("a")
	}, time.Second, 5*time.Millisecond)

	require.Zero(t, h.terminations.Load())
}

// TestRegistry_TerminateAll counts only live handles and drains the registry.
func TestRegistry_TerminateAll(t *testing.T) {
	t.Parallel()

	r := NewRegistry(context.Background())
	a, b, c := newFakeHandle(1), newFakeHandle(2), newFakeHandle(3)

	r.Register("a", a)
	r.Register("b", b)
	r.Register("c", c)
	c.exit()

	require.Equal(t, 2, r.TerminateAll())
	require.Empty(t, r.ActiveIDs())
	require.Zero(t, r.TerminateAll())

	require.EqualValues(t, 1, a.terminations.Load())
	require.EqualValues(t, 1, b.terminations.Load())
	require.Zero(t, c.terminations.Load())
}

// TestRegistry_RegisterReplacesLiveHandle ensures a re-registered id does not leak the old process.
func TestRegistry_RegisterReplacesLiveHandle(t *testing.T) {
	t.Parallel()

	r := NewRegistry(context.Background())
	first, second := newFakeHandle(1), newFakeHandle(2)

	r.Register("a", first)
	r.Register("a", second)

	require.EqualValues(t, 1, first.terminations.Load())

	got, ok := r.Lookup("a")
	require.True(t, ok)
	require.Same(t, second, got)

	// The watcher of the replaced handle must not evict its successor.
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, []string{"a"}, r.ActiveIDs())
}

// TestRegistry_Preview keeps the preview slot apart from alarm ids.
func TestRegistry_Preview(t *testing.T) {
	t.Parallel()

	r := NewRegistry(context.Background())
	alarm := newFakeHandle(1)
	first, second := newFakeHandle(2), newFakeHandle(3)

	r.Register("a", alarm)
	r.SetPreview(first)
	require.True(t, r.PreviewPlaying())

	r.SetPreview(second)
	require.EqualValues(t, 1, first.terminations.Load())

	require.True(t, r.StopPreview())
	require.False(t, r.StopPreview())
	require.False(t, r.PreviewPlaying())
	require.EqualValues(t, 1, second.terminations.Load())

	// The alarm is untouched by preview operations.
	require.Equal(t, []string{"a"}, r.ActiveIDs())
	require.Zero(t, alarm.terminations.Load())
}

// TestRegistry_ConcurrentRegisterTerminate stresses register/terminate races on shared ids.
// Every handle must end up terminated exactly once: none leaked, none killed twice.
func TestRegistry_ConcurrentRegisterTerminate(t *testing.T) {
	t.Parallel()

	const (
		workers    = 16
		iterations = 200
		ids        = 4
	)

	r := NewRegistry(context.Background())

	var (
		mu      sync.Mutex
		handles []*fakeHandle
		wg      sync.WaitGroup
		stopped atomic.Int32
	)

	for w := range workers {
		wg.Go(func() {
			for i := range iterations {
				id := fmt.Sprintf("alarm-%d", (w+i)%ids)
				h := newFakeHandle(w*iterations + i)

				mu.Lock()
				handles = append(handles, h)
				mu.Unlock()

				r.Register(id, h)

				if r.Terminate(id) {
					stopped.Add(1)
				}

				if i%50 == 0 {
					stopped.Add(int32(r.TerminateAll()))
				}
			}
		})
	}

	wg.Wait()

	stopped.Add(int32(r.TerminateAll()))

	require.Empty(t, r.ActiveIDs())

	total := int32(0)

	for _, h := range handles {
		n := h.terminations.Load()
		assert.EqualValues(t, 1, n, "handle %d", h.pid)
		total += n
	}

	// Terminations not reported by Terminate/TerminateAll came from replacement on Register.
	require.LessOrEqual(t, stopped.Load(), total)
	require.Len(t, handles, workers*iterations)
}
