package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/oshokin/alarm-clock/internal/config"
	"github.com/oshokin/alarm-clock/internal/logger"
	"github.com/oshokin/alarm-clock/internal/repository/alarms"
	"github.com/oshokin/alarm-clock/internal/service/lifecycle"
	"github.com/oshokin/alarm-clock/internal/service/notify"
	"github.com/oshokin/alarm-clock/internal/service/playback"
	"github.com/oshokin/alarm-clock/internal/service/scheduler"
)

// sqliteFilename is the database file of the sqlite backend inside the data directory.
const sqliteFilename = "alarms.db"

// daemon holds the components that live as long as the server process.
type daemon struct {
	// backend is the durable storage of the alarm store.
	backend alarms.Backend
	// store is the alarm collection.
	store *alarms.Store
	// registry tracks playback processes.
	registry *playback.Registry
	// engine arms and rings alarms.
	engine *scheduler.Engine
	// controller serves the RPCs.
	controller *lifecycle.Controller
	// notifier raises desktop notifications.
	notifier notify.Notifier
}

// newDaemon assembles the alarm components from settings.
// The scheduler runs until ctx is cancelled.
func newDaemon(ctx context.Context, settings *config.Config) (*daemon, error) {
	backend, err := openBackend(ctx, settings)
	if err != nil {
		return nil, err
	}

	var notifier notify.Notifier = notify.Discard{}
	if settings.Notifier == config.NotifierDesktop {
		notifier = notify.NewDesktop(ctx)
	}

	store := alarms.NewStore(backend)
	registry := playback.NewRegistry(ctx)
	player := playback.NewPlayer(settings.Player, settings.PlayerArgs...)
	sounds := playback.NewSoundResolver(settings.SoundsDir)

	engine := scheduler.NewEngine(
		logger.WithName(ctx, "scheduler"),
		store,
		registry,
		player,
		sounds,
		notifier,
		scheduler.WithAutoStop(settings.AutoStop),
		scheduler.WithPlayerExecutable(player.Command()),
	)

	controller := lifecycle.NewController(
		store,
		engine,
		registry,
		player,
		sounds,
		lifecycle.WithDefaultSound(settings.DefaultSound),
	)

	return &daemon{
		backend:    backend,
		store:      store,
		registry:   registry,
		engine:     engine,
		controller: controller,
		notifier:   notifier,
	}, nil
}

// restore re-arms stored alarms after a restart.
func (d *daemon) restore(ctx context.Context) error {
	records, err := d.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list alarms: %w", err)
	}

	if _, err = d.engine.Restore(ctx, records); err != nil {
		// Individual records that cannot be restored must not keep the daemon down.
		logger.WarnKV(ctx, "Some alarms could not be restored", "error", err)
	}

	return nil
}

// shutdown silences everything still playing, stops the components and releases storage.
// ctx must still be usable for store writes; stop cancels the components' context.
func (d *daemon) shutdown(ctx context.Context, stop context.CancelFunc) error {
	// Disarms before silencing so nothing starts ringing behind StopAll.
	stopped, stopErr := d.engine.Shutdown(ctx)
	if stopped > 0 {
		logger.InfoKV(ctx, "Silenced ringing alarms on shutdown", "count", stopped)
	}

	d.registry.StopPreview()

	// Closes open notifications and the scheduler timeline.
	stop()

	if desktop, ok := d.notifier.(*notify.Desktop); ok {
		desktop.Wait()
	}

	return errors.Join(stopErr, d.backend.Close())
}

// openBackend creates the storage backend selected in settings.
func openBackend(ctx context.Context, settings *config.Config) (alarms.Backend, error) {
	if err := os.MkdirAll(settings.DataDir, config.DefaultDirPermissions); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	switch settings.StoreBackend {
	case config.BackendSQLite:
		backend, err := alarms.NewSQLiteBackend(ctx, filepath.Join(settings.DataDir, sqliteFilename))
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}

		return backend, nil
	default:
		backend, err := alarms.NewFileBackend(afero.NewOsFs(), settings.DataDir)
		if err != nil {
			return nil, fmt.Errorf("open file store: %w", err)
		}

		return backend, nil
	}
}
