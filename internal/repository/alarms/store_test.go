package alarms

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
)

// backends returns a fresh instance of every Backend implementation.
func backends(t *testing.T) map[string]Backend {
	t.Helper()

	fileBackend, err := NewFileBackend(afero.NewMemMapFs(), "/data")
	require.NoError(t, err)

	sqliteBackend, err := NewSQLiteBackend(context.Background(), filepath.Join(t.TempDir(), "alarms.db"))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = sqliteBackend.Close()
	})

	return map[string]Backend{
		"file":   fileBackend,
		"sqlite": sqliteBackend,
	}
}

// newRecord builds a scheduled record for tests.
func newRecord(id string) *domain.Record {
	fireAt := time.Date(2026, 10, 19, 7, 30, 0, 0, time.UTC)

	return &domain.Record{
		ID:                id,
		Title:             "Alarm " + id,
		Time:              fireAt.Format(domain.DisplayTimeLayout),
		FireAt:            fireAt,
		TriggerExpression: "0 30 7 * * *",
		SoundRef:          "Radial",
		State:             domain.StateScheduled,
		CreatedAt:         fireAt.Add(-time.Hour),
	}
}

// TestStore_RoundtripKeepsCreationOrder persists N records and reloads them in order.
func TestStore_RoundtripKeepsCreationOrder(t *testing.T) {
	t.Parallel()

	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := NewStore(backend)

			const n = 25
			for i := range n {
				require.NoError(t, store.Put(ctx, newRecord(fmt.Sprintf("a-%02d", i))))
			}

			// A second store over the same backend simulates a process restart.
			reloaded, err := NewStore(backend).List(ctx)
			require.NoError(t, err)
			require.Len(t, reloaded, n)

			for i, r := range reloaded {
				want := newRecord(fmt.Sprintf("a-%02d", i))
				require.Equal(t, want.ID, r.ID)
				require.Equal(t, want.Title, r.Title)
				require.Equal(t, want.TriggerExpression, r.TriggerExpression)
				require.True(t, want.FireAt.Equal(r.FireAt))
				require.Equal(t, domain.StateScheduled, r.State)
			}
		})
	}
}

// TestStore_DuplicateID rejects a second record with the same id.
func TestStore_DuplicateID(t *testing.T) {
	t.Parallel()

	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := NewStore(backend)

			require.NoError(t, store.Put(ctx, newRecord("dup")))
			require.ErrorIs(t, store.Put(ctx, newRecord("dup")), domain.ErrDuplicateID)

			records, err := store.List(ctx)
			require.NoError(t, err)
			require.Len(t, records, 1)
		})
	}
}

// TestStore_MarkState enforces the lifecycle table.
func TestStore_MarkState(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewStore(backends(t)["file"])

	require.NoError(t, store.Put(ctx, newRecord("a")))

	r, err := store.MarkState(ctx, "a", domain.StateRinging)
	require.NoError(t, err)
	require.Equal(t, domain.StateRinging, r.State)
	require.False(t, r.UpdatedAt.IsZero())

	r, err = store.MarkState(ctx, "a", domain.StateSilenced)
	require.NoError(t, err)
	require.Equal(t, domain.StateSilenced, r.State)

	// Terminal: never re-armed.
	_, err = store.MarkState(ctx, "a", domain.StateScheduled)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = store.MarkState(ctx, "missing", domain.StateRinging)
	require.ErrorIs(t, err, domain.ErrNotFound)

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, domain.StateSilenced, got.State)
}

// TestStore_Remove deletes exactly one record.
func TestStore_Remove(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewStore(backends(t)["sqlite"])

	require.NoError(t, store.Put(ctx, newRecord("a")))
	require.NoError(t, store.Put(ctx, newRecord("b")))

	removed, err := store.Remove(ctx, "a")
	require.NoError(t, err)
	require.True(t, removed)

	removed, err = store.Remove(ctx, "a")
	require.NoError(t, err)
	require.False(t, removed)

	_, err = store.Get(ctx, "a")
	require.ErrorIs(t, err, domain.ErrNotFound)

	records, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "b", records[0].ID)
}

// TestStore_CorruptDataIsEmpty recovers from garbage without failing callers.
func TestStore_CorruptDataIsEmpty(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := backends(t)["file"]
	garbage := []byte(`{"not": "an array"`)

	require.NoError(t, backend.Put(ctx, CollectionKey, garbage))

	store := NewStore(backend)

	records, err := store.List(ctx)
	require.NoError(t, err)
	require.Empty(t, records)

	// The unreadable data is kept aside.
	backup, err := backend.Get(ctx, CollectionKey+corruptSuffix)
	require.NoError(t, err)
	require.Equal(t, garbage, backup)

	// Writes start a fresh collection.
	require.NoError(t, store.Put(ctx, newRecord("fresh")))

	records, err = store.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
}

// faultyBackend wraps a Backend and fails reads or writes on demand.
type faultyBackend struct {
	Backend

	// mu guards the failure switches.
	mu sync.Mutex
	// getErr is returned by Get when set.
	getErr error
	// putErr is returned by Put when set.
	putErr error
}

func (b *faultyBackend) Get(ctx context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	err := b.getErr
	b.mu.Unlock()

	if err != nil {
		return nil, err
	}

	return b.Backend.Get(ctx, key)
}

func (b *faultyBackend) Put(ctx context.Context, key string, value []byte) error {
	b.mu.Lock()
	err := b.putErr
	b.mu.Unlock()

	if err != nil {
		return err
	}

	return b.Backend.Put(ctx, key, value)
}

// TestStore_UnreadableBackend serves reads as empty but never overwrites the stored collection.
func TestStore_UnreadableBackend(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := &faultyBackend{Backend: backends(t)["file"]}
	store := NewStore(backend)

	require.NoError(t, store.Put(ctx, newRecord("kept")))

	ioErr := errors.New("read alarm-clock.alarms: permission denied")
	backend.getErr = ioErr

	records, err := store.List(ctx)
	require.NoError(t, err)
	require.Empty(t, records)

	_, err = store.Get(ctx, "kept")
	require.ErrorIs(t, err, domain.ErrNotFound)

	// Writers must see the failure instead of replacing the collection.
	require.ErrorIs(t, store.Put(ctx, newRecord("new")), ioErr)

	_, err = store.MarkState(ctx, "kept", domain.StateRinging)
	require.ErrorIs(t, err, ioErr)

	_, err = store.Remove(ctx, "kept")
	require.ErrorIs(t, err, ioErr)

	backend.getErr = nil

	records, err = store.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "kept", records[0].ID)
	require.Equal(t, domain.StateScheduled, records[0].State)
}

// TestStore_FailedWriteKeepsPreviousState reports save errors and leaves the stored record unchanged.
func TestStore_FailedWriteKeepsPreviousState(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := &faultyBackend{Backend: backends(t)["file"]}
	store := NewStore(backend)

	require.NoError(t, store.Put(ctx, newRecord("a")))

	backend.putErr = errors.New("disk full")

	_, err := store.MarkState(ctx, "a", domain.StateRinging)
	require.ErrorContains(t, err, "disk full")

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, domain.StateScheduled, got.State)
}

// TestStore_SkipsMalformedEntries drops entries without id or with unknown state.
func TestStore_SkipsMalformedEntries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := backends(t)["file"]

	require.NoError(t, backend.Put(ctx, CollectionKey, []byte(
		`[{"id":"ok","state":"scheduled"},{"id":"","state":"scheduled"},{"id":"x","state":"snoozed"},null]`,
	)))

	records, err := NewStore(backend).List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "ok", records[0].ID)
}

// TestStore_ConcurrentWriters serializes read-modify-write so no update is lost.
func TestStore_ConcurrentWriters(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewStore(backends(t)["file"])

	const writers = 32

	var wg sync.WaitGroup
	for i := range writers {
		wg.Go(func() {
			assert.NoError(t, store.Put(ctx, newRecord(fmt.Sprintf("w-%d", i))))
		})
	}

	wg.Wait()

	records, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, writers)
}

// TestStore_ReturnsClones ensures callers cannot mutate stored records in place.
func TestStore_ReturnsClones(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewStore(backends(t)["file"])

	original := newRecord("a")
	require.NoError(t, store.Put(ctx, original))

	original.Title = "changed after put"

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, "Alarm a", got.Title)
}
