package playback

import (
	"context"
	"slices"
	"sync"

	"github.com/samber/lo"

	"github.com/oshokin/alarm-clock/internal/logger"
)

// Handle is a running playback process.
type Handle interface {
	// Terminate asks the process to stop.
	Terminate() error
	// Exited reports whether the process is gone.
	Exited() bool
	// Done is closed once the process has exited.
	Done() <-chan struct{}
	// PID is the operating system process id.
	PID() int
}

// Registry tracks the playback processes of ringing alarms and the preview slot.
// Every mutation happens under one lock, so a terminate racing a register for
// the same id can neither leak a handle nor terminate it twice.
type Registry struct {
	// ctx carries the logger used for termination failures.
	ctx context.Context //nolint:containedctx // Only used for logging from watcher goroutines.
	// handles maps alarm ids to their playback processes.
	handles map[string]Handle
	// preview is the single sound-preview slot, independent of alarm ids.
	preview Handle
	// mu protects handles and preview.
	mu sync.Mutex
}

// NewRegistry creates an empty registry.
func NewRegistry(ctx context.Context) *Registry {
	return &Registry{
		ctx:     logger.WithName(ctx, "registry"),
		handles: make(map[string]Handle),
	}
}

// Register stores the handle under the alarm id. A live handle already
// registered under the same id is terminated first.
// The handle is dropped from the registry as soon as its process exits.
func (r *Registry) Register(id string, h Handle) {
	r.mu.Lock()

	if previous, ok := r.handles[id]; ok && previous != h {
		r.terminate(id, previous)
	}

	r.handles[id] = h

	r.mu.Unlock()

	go r.watch(id, h)
}

// Lookup returns the live handle of the alarm.
func (r *Registry) Lookup(id string) (Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.handles[id]
	if !ok || h.Exited() {
		return nil, false
	}

	return h, true
}

// Terminate stops the playback of the alarm and removes it from the registry.
// It reports whether a live process was found; absent or exited handles yield false.
func (r *Registry) Terminate(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.handles[id]
	if !ok {
		return false
	}

	delete(r.handles, id)

	return r.terminate(id, h)
}

// TerminateAll stops every live playback, drains the registry and returns
// the number of processes terminated. The lock is held for the whole drain.
func (r *Registry) TerminateAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0

	for id, h := range r.handles {
		if r.terminate(id, h) {
			count++
		}

		delete(r.handles, id)
	}

	return count
}

// ActiveIDs returns a sorted snapshot of the alarm ids with live playback.
func (r *Registry) ActiveIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := lo.Keys(lo.PickBy(r.handles, func(_ string, h Handle) bool {
		return !h.Exited()
	}))

	slices.Sort(ids)

	return ids
}

// SetPreview installs a new preview handle, terminating the previous one.
func (r *Registry) SetPreview(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.preview != nil && r.preview != h {
		r.terminate("preview", r.preview)
	}

	r.preview = h
}

// StopPreview terminates the preview and reports whether one was playing.
func (r *Registry) StopPreview() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.preview == nil {
		return false
	}

	stopped := r.terminate("preview", r.preview)
	r.preview = nil

	return stopped
}

// PreviewPlaying reports whether a preview is currently audible.
func (r *Registry) PreviewPlaying() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.preview != nil && !r.preview.Exited()
}

// terminate signals a live handle. The caller holds the lock.
func (r *Registry) terminate(id string, h Handle) bool {
	if h.Exited() {
		return false
	}

	if err := h.Terminate(); err != nil {
		// The process may have exited between the check and the signal.
		logger.WarnKV(r.ctx, "Failed to terminate playback", "alarm_id", id, "pid", h.PID(), "error", err)

		return false
	}

	return true
}

// watch removes the handle once its process exits, unless it was already replaced.
func (r *Registry) watch(id string, h Handle) {
	<-h.Done()

	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.handles[id]; ok && current == h {
		delete(r.handles, id)
		logger.DebugKV(r.ctx, "Playback exited", "alarm_id", id, "pid", h.PID())
	}
}
