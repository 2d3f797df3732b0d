package lifecycle

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
	"github.com/oshokin/alarm-clock/internal/repository/alarms"
	"github.com/oshokin/alarm-clock/internal/service/notify"
	"github.com/oshokin/alarm-clock/internal/service/playback"
	"github.com/oshokin/alarm-clock/internal/service/scheduler"
	"github.com/oshokin/alarm-clock/internal/trigger"
)

// handle is a fake playback process that plays until terminated.
type handle struct {
	pid  int
	done chan struct{}
	once sync.Once
}

func (h *handle) Terminate() error {
	h.once.Do(func() { close(h.done) })

	return nil
}

func (h *handle) Exited() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

func (h *handle) Done() <-chan struct{} { return h.done }

func (h *handle) PID() int { return h.pid }

// spawner records which files were played.
type spawner struct {
	mu    sync.Mutex
	paths []string
}

func (s *spawner) Spawn(_ context.Context, path string) (playback.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.paths = append(s.paths, path)

	return &handle{pid: len(s.paths), done: make(chan struct{})}, nil
}

func (s *spawner) played() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.paths...)
}

// faultyBackend fails reads or writes of the wrapped backend on demand.
type faultyBackend struct {
	alarms.Backend

	mu     sync.Mutex
	getErr error
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

func (b *faultyBackend) fail(getErr, putErr error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.getErr, b.putErr = getErr, putErr
}

// fixture is a controller over a real engine and in-memory storage.
type fixture struct {
	controller *Controller
	engine     *scheduler.Engine
	backend    *faultyBackend
	store      *alarms.Store
	registry   *playback.Registry
	spawner    *spawner
}

func newFixture(t *testing.T, ctx context.Context) *fixture {
	t.Helper()

	backend, err := alarms.NewFileBackend(afero.NewMemMapFs(), "/data")
	require.NoError(t, err)

	f := &fixture{
		backend:  &faultyBackend{Backend: backend},
		registry: playback.NewRegistry(ctx),
		spawner:  &spawner{},
	}

	f.store = alarms.NewStore(f.backend)

	sounds := playback.NewSoundResolver("/ringtones")
	f.engine = scheduler.NewEngine(ctx, f.store, f.registry, f.spawner, sounds, notify.Discard{})
	f.controller = NewController(f.store, f.engine, f.registry, f.spawner, sounds)

	return f
}

func TestController_CreateDerivesRecord(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		f := newFixture(t, ctx)
		at := time.Now().Add(2*time.Hour + 3*time.Minute + 4*time.Second + 500*time.Millisecond)

		record, err := f.controller.Create(ctx, CreateRequest{
			At:    at,
			Actor: &domain.Actor{Hostname: "desk", Username: "alice"},
		})
		require.NoError(t, err)

		parsed, err := uuid.Parse(record.ID)
		require.NoError(t, err)
		require.EqualValues(t, 7, parsed.Version())

		require.Equal(t, domain.DefaultTitle, record.Title)
		require.Equal(t, playback.DefaultSound, record.SoundRef)
		require.Equal(t, domain.StateScheduled, record.State)
		require.Equal(t, at.Truncate(time.Second), record.FireAt)

		clock := domain.ClockOf(record.FireAt)
		require.Equal(t, clock.String(), record.Time)
		require.Equal(t, trigger.Encode(clock), record.TriggerExpression)
		require.Equal(t, "alice@desk", record.CreatedBy.String())

		stored, err := f.controller.Get(ctx, record.ID)
		require.NoError(t, err)
		require.Equal(t, record.TriggerExpression, stored.TriggerExpression)
		require.True(t, record.FireAt.Equal(stored.FireAt))
		require.Equal(t, []string{record.ID}, f.engine.Pending())
	})
}

func TestController_CreateRejectsInvalidTimes(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		f := newFixture(t, ctx)
		now := time.Now()

		for _, at := range []time.Time{
			now,
			now.Add(-time.Second),
			now.Add(500 * time.Millisecond),
			now.Add(MaxLeadTime + time.Second),
		} {
			_, err := f.controller.Create(ctx, CreateRequest{ID: "x", Title: "Coffee", At: at})
			require.ErrorIs(t, err, domain.ErrInvalidTime, at)
		}

		records, err := f.controller.List(ctx)
		require.NoError(t, err)
		require.Empty(t, records)
	})
}

func TestController_CreateRejectsUnknownSoundAndDuplicates(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		f := newFixture(t, ctx)
		at := time.Now().Add(time.Hour)

		_, err := f.controller.Create(ctx, CreateRequest{ID: "a", At: at, SoundRef: "Foghorn"})
		require.ErrorIs(t, err, domain.ErrUnknownSound)

		record, err := f.controller.Create(ctx, CreateRequest{ID: "a", Title: "  Tea ", At: at, SoundRef: "by_the_seaside.m4r"})
		require.NoError(t, err)
		require.Equal(t, "Tea", record.Title)
		require.Equal(t, "By The Seaside", record.SoundRef)

		_, err = f.controller.Create(ctx, CreateRequest{ID: "a", At: at})
		require.ErrorIs(t, err, domain.ErrDuplicateID)

		records, err := f.controller.List(ctx)
		require.NoError(t, err)
		require.Len(t, records, 1)

		_, err = f.controller.Cancel(ctx, "a")
		require.NoError(t, err)
	})
}

// TestController_CoffeeScenario creates an alarm five seconds ahead and lets it ring out.
func TestController_CoffeeScenario(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		f := newFixture(t, ctx)

		record, err := f.controller.Create(ctx, CreateRequest{
			Title:    "Coffee",
			At:       time.Now().Add(5 * time.Second),
			SoundRef: "Radial",
		})
		require.NoError(t, err)

		time.Sleep(5*time.Second + time.Millisecond)
		synctest.Wait()

		require.Equal(t, []string{record.ID}, f.controller.ListActive())
		require.Equal(t, []string{"/ringtones/Radial-EncoreInfinitum.m4r"}, f.spawner.played())

		time.Sleep(scheduler.DefaultAutoStop)
		synctest.Wait()

		require.Empty(t, f.controller.ListActive())

		stored, err := f.controller.Get(ctx, record.ID)
		require.NoError(t, err)
		require.Equal(t, domain.StateExpired, stored.State)
	})
}

// TestController_StopAllScenario creates two alarms and silences both.
func TestController_StopAllScenario(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		f := newFixture(t, ctx)

		for _, title := range []string{"One", "Two"} {
			_, err := f.controller.Create(ctx, CreateRequest{Title: title, At: time.Now().Add(time.Second)})
			require.NoError(t, err)
		}

		time.Sleep(2 * time.Second)
		synctest.Wait()

		require.Len(t, f.controller.ListActive(), 2)

		stopped, err := f.controller.StopAll(ctx)
		require.NoError(t, err)
		require.Equal(t, 2, stopped)
		require.Empty(t, f.controller.ListActive())

		records, err := f.controller.List(ctx)
		require.NoError(t, err)

		for _, r := range records {
			require.Equal(t, domain.StateSilenced, r.State)
		}

		stopped, err = f.controller.StopAll(ctx)
		require.NoError(t, err)
		require.Zero(t, stopped)
	})
}

func TestController_StopOneOnScheduledAlarmChangesNothing(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		f := newFixture(t, ctx)

		_, err := f.controller.Create(ctx, CreateRequest{ID: "a", At: time.Now().Add(time.Minute)})
		require.NoError(t, err)

		before, err := f.controller.Get(ctx, "a")
		require.NoError(t, err)

		stopped, err := f.controller.StopOne(ctx, "a")
		require.NoError(t, err)
		require.False(t, stopped)

		stopped, err = f.controller.StopOne(ctx, "missing")
		require.NoError(t, err)
		require.False(t, stopped)

		after, err := f.controller.Get(ctx, "a")
		require.NoError(t, err)
		require.Equal(t, before, after)

		// The alarm still fires and can then be stopped.
		time.Sleep(time.Minute + time.Millisecond)
		synctest.Wait()

		stopped, err = f.controller.StopOne(ctx, "a")
		require.NoError(t, err)
		require.True(t, stopped)
	})
}

func TestController_CancelBeforeFire(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		f := newFixture(t, ctx)

		_, err := f.controller.Create(ctx, CreateRequest{ID: "a", At: time.Now().Add(10 * time.Second)})
		require.NoError(t, err)

		cancelled, err := f.controller.Cancel(ctx, "a")
		require.NoError(t, err)
		require.True(t, cancelled)

		cancelled, err = f.controller.Cancel(ctx, "a")
		require.NoError(t, err)
		require.False(t, cancelled)

		time.Sleep(time.Minute)
		synctest.Wait()

		require.Empty(t, f.spawner.played())

		stored, err := f.controller.Get(ctx, "a")
		require.NoError(t, err)
		require.Equal(t, domain.StateSilenced, stored.State)
	})
}

func TestController_Remove(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		f := newFixture(t, ctx)

		_, err := f.controller.Create(ctx, CreateRequest{ID: "pending", At: time.Now().Add(10 * time.Second)})
		require.NoError(t, err)

		_, err = f.controller.Create(ctx, CreateRequest{ID: "ringing", At: time.Now().Add(time.Second)})
		require.NoError(t, err)

		time.Sleep(2 * time.Second)
		synctest.Wait()

		require.Equal(t, []string{"ringing"}, f.controller.ListActive())

		for _, id := range []string{"pending", "ringing"} {
			removed, removeErr := f.controller.Remove(ctx, id)
			require.NoError(t, removeErr)
			require.True(t, removed)
		}

		removed, err := f.controller.Remove(ctx, "pending")
		require.NoError(t, err)
		require.False(t, removed)

		time.Sleep(time.Minute)
		synctest.Wait()

		require.Empty(t, f.controller.ListActive())
		require.Len(t, f.spawner.played(), 1)

		_, err = f.controller.Get(ctx, "pending")
		require.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestController_Preview(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	f := newFixture(t, ctx)

	require.NoError(t, f.controller.Preview(ctx, "chimes"))
	require.NoError(t, f.controller.Preview(ctx, "Waves"))
	require.ErrorIs(t, f.controller.Preview(ctx, "Foghorn"), domain.ErrUnknownSound)

	require.Equal(t, []string{"/ringtones/Chimes.m4r", "/ringtones/Waves.m4r"}, f.spawner.played())
	require.Empty(t, f.controller.ListActive())

	require.True(t, f.controller.StopPreview())
	require.False(t, f.controller.StopPreview())
}

func TestController_AbsoluteSoundPath(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		f := newFixture(t, ctx)

		file := filepath.Join(t.TempDir(), "bell.wav")
		require.NoError(t, os.WriteFile(file, []byte("RIFF"), 0o600))

		record, err := f.controller.Create(ctx, CreateRequest{ID: "a", At: time.Now().Add(time.Hour), SoundRef: file})
		require.NoError(t, err)
		require.Equal(t, file, record.SoundRef)

		_, err = f.controller.Create(ctx, CreateRequest{ID: "b", At: time.Now().Add(time.Hour), SoundRef: file + ".gone"})
		require.ErrorIs(t, err, domain.ErrUnknownSound)

		require.Len(t, f.controller.Sounds(), len(playback.NewSoundResolver("/").Sounds()))
	})
}

// TestController_UnreadableStore lists nothing while the store cannot be read and refuses to create.
func TestController_UnreadableStore(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newFixture(t, ctx)

	kept, err := f.controller.Create(ctx, CreateRequest{Title: "Standup", At: time.Now().Add(time.Hour), SoundRef: "Chimes"})
	require.NoError(t, err)

	f.backend.fail(errors.New("permission denied"), nil)

	records, err := f.controller.List(ctx)
	require.NoError(t, err)
	require.Empty(t, records)

	_, err = f.controller.Create(ctx, CreateRequest{Title: "Lunch", At: time.Now().Add(2 * time.Hour), SoundRef: "Chimes"})
	require.ErrorContains(t, err, "permission denied")
	require.Equal(t, []string{kept.ID}, f.engine.Pending())

	f.backend.fail(nil, errors.New("disk full"))

	_, err = f.controller.Create(ctx, CreateRequest{Title: "Lunch", At: time.Now().Add(2 * time.Hour), SoundRef: "Chimes"})
	require.ErrorContains(t, err, "disk full")
	require.Equal(t, []string{kept.ID}, f.engine.Pending())

	f.backend.fail(nil, nil)

	records, err = f.controller.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, kept.ID, records[0].ID)
}
