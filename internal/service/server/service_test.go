package server

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/alarm-clock/internal/config"
	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
	"github.com/oshokin/alarm-clock/internal/repository/alarms"
	"github.com/oshokin/alarm-clock/internal/service/lifecycle"
)

// testSettings returns validated settings that keep all state under a temp dir.
func testSettings(t *testing.T, backend string) *config.Config {
	t.Helper()

	soundsDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(soundsDir, "Chimes.m4r"), []byte("m4r"), 0o600))

	settings := &config.Config{
		ServerAddress: "127.0.0.1:50551",
		StoreBackend:  backend,
		DataDir:       filepath.Join(t.TempDir(), "data"),
		Player:        "true",
		SoundsDir:     soundsDir,
		DefaultSound:  "Chimes",
		Notifier:      config.NotifierNone,
	}
	require.NoError(t, config.Validate(settings))

	return settings
}

// TestDaemon_RestoresAcrossRestart arms an alarm, restarts the daemon and checks it is armed again.
func TestDaemon_RestoresAcrossRestart(t *testing.T) {
	t.Parallel()

	for _, backend := range []string{config.BackendFile, config.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			t.Parallel()

			settings := testSettings(t, backend)

			ctx, cancel := context.WithCancel(context.Background())
			first, err := newDaemon(ctx, settings)
			require.NoError(t, err)
			require.NoError(t, first.restore(ctx))

			record, err := first.controller.Create(ctx, lifecycle.CreateRequest{
				Title: "Standup",
				At:    time.Now().Add(time.Hour),
			})
			require.NoError(t, err)
			require.Equal(t, "Chimes", record.SoundRef)
			require.Equal(t, []string{record.ID}, first.engine.Pending())

			require.NoError(t, first.shutdown(context.Background(), cancel))

			ctx, cancel = context.WithCancel(context.Background())
			second, err := newDaemon(ctx, settings)
			require.NoError(t, err)

			defer func() {
				require.NoError(t, second.shutdown(context.Background(), cancel))
			}()

			require.NoError(t, second.restore(ctx))
			require.Equal(t, []string{record.ID}, second.engine.Pending())

			stored, err := second.controller.Get(ctx, record.ID)
			require.NoError(t, err)
			require.Equal(t, domain.StateScheduled, stored.State)
			require.Equal(t, "Standup", stored.Title)
		})
	}
}

// TestDaemon_StartsWithUnreadableStore logs the read failure and starts with no alarms.
func TestDaemon_StartsWithUnreadableStore(t *testing.T) {
	t.Parallel()

	settings := testSettings(t, config.BackendFile)

	// A directory where the collection file belongs fails every read with EISDIR.
	require.NoError(t, os.MkdirAll(filepath.Join(settings.DataDir, alarms.CollectionKey+".json"), 0o700))

	ctx, cancel := context.WithCancel(context.Background())
	d, err := newDaemon(ctx, settings)
	require.NoError(t, err)

	defer func() {
		require.NoError(t, d.shutdown(context.Background(), cancel))
	}()

	require.NoError(t, d.restore(ctx))

	records, err := d.controller.List(ctx)
	require.NoError(t, err)
	require.Empty(t, records)
	require.Empty(t, d.engine.Pending())
}

// TestResolveListenAddress covers overrides, configured and missing addresses.
func TestResolveListenAddress(t *testing.T) {
	t.Parallel()

	addr, err := resolveListenAddress("127.0.0.1:50551", "")
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:50551", addr)

	addr, err = resolveListenAddress("127.0.0.1:50551", "127.0.0.1:0")
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:0", addr)

	_, err = resolveListenAddress("", "")
	require.ErrorIs(t, err, ErrNoServerAddress)

	_, err = resolveListenAddress("no-port", "")
	require.Error(t, err)
}

// TestApplyOverrides replaces the data directory and backend and re-validates them.
func TestApplyOverrides(t *testing.T) {
	t.Parallel()

	settings := config.Default()

	require.NoError(t, applyOverrides(settings, &Options{DataDir: "/tmp/alarms", StoreBackend: "SQLite"}))
	require.Equal(t, "/tmp/alarms", settings.DataDir)
	require.Equal(t, config.BackendSQLite, settings.StoreBackend)

	require.NoError(t, applyOverrides(settings, &Options{LogLevel: "debug"}))
	require.Equal(t, "debug", settings.LogLevel)

	require.Error(t, applyOverrides(config.Default(), &Options{LogLevel: "loud"}))
	require.Error(t, applyOverrides(settings, &Options{StoreBackend: "redis"}))
}
