package scheduler

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
	"github.com/oshokin/alarm-clock/internal/logger"
	"github.com/oshokin/alarm-clock/internal/repository/alarms"
	"github.com/oshokin/alarm-clock/internal/service/notify"
	"github.com/oshokin/alarm-clock/internal/service/playback"
	"github.com/oshokin/alarm-clock/internal/trigger"
)

// DefaultAutoStop is how long an alarm rings when nobody stops it.
const DefaultAutoStop = 60 * time.Second

// SoundResolver turns a sound reference into a playable file.
type SoundResolver interface {
	Resolve(ref string) (string, error)
}

// Option customizes an Engine.
type Option func(*Engine)

// WithAutoStop changes the auto-stop ceiling.
func WithAutoStop(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.autoStop = d
		}
	}
}

// WithPlayerExecutable names the playback program so leftover players can be recognized on restore.
func WithPlayerExecutable(executable string) Option {
	return func(e *Engine) {
		e.playerExecutable = executable
	}
}

// WithProcessFinder replaces the process lookup used on restore.
func WithProcessFinder(find playback.ProcessFinder) Option {
	return func(e *Engine) {
		e.findProcess = find
	}
}

// Engine arms alarms and moves them through their ringing lifecycle.
type Engine struct {
	// ctx scopes logging and the timeline goroutine.
	ctx context.Context //nolint:containedctx // Lifetime of the daemon.
	// store persists alarm state.
	store alarms.Repository
	// registry tracks ringing playback processes.
	registry *playback.Registry
	// spawner starts playback.
	spawner playback.Spawner
	// sounds resolves sound references.
	sounds SoundResolver
	// notifier raises alerts.
	notifier notify.Notifier
	// autoStop is how long an alarm may ring.
	autoStop time.Duration
	// playerExecutable is matched against leftover processes on restore.
	playerExecutable string
	// findProcess looks up leftover processes on restore.
	findProcess playback.ProcessFinder
	// timeline fires pending alarms.
	timeline *timeline

	// pendingMu protects pending.
	pendingMu sync.Mutex
	// pending holds the armed alarms that have not fired yet.
	pending map[string]time.Time

	// mu serializes state transitions of ringing alarms and guards autoStops.
	mu sync.Mutex
	// autoStops holds the auto-stop timer of each ringing alarm.
	autoStops map[string]*autoStopTimer
	// closed is set by Shutdown; no alarm rings afterwards. Guarded by mu.
	closed bool
}

// autoStopTimer is the pending timeout of one ringing alarm.
type autoStopTimer struct {
	timer *time.Timer
}

// NewEngine creates an engine and starts its timeline. The timeline stops with ctx.
func NewEngine(
	ctx context.Context,
	store alarms.Repository,
	registry *playback.Registry,
	spawner playback.Spawner,
	sounds SoundResolver,
	notifier notify.Notifier,
	options ...Option,
) *Engine {
	e := &Engine{
		ctx:       ctx,
		store:     store,
		registry:  registry,
		spawner:   spawner,
		sounds:    sounds,
		notifier:  notifier,
		autoStop:  DefaultAutoStop,
		pending:   make(map[string]time.Time),
		autoStops: make(map[string]*autoStopTimer),
	}

	for _, option := range options {
		option(e)
	}

	e.timeline = newTimeline(ctx, e.onFire)

	return e
}

// AutoStop returns the auto-stop ceiling.
func (e *Engine) AutoStop() time.Duration {
	return e.autoStop
}

// Arm schedules a scheduled alarm to fire once.
// The fire instant is the next occurrence of the trigger expression.
func (e *Engine) Arm(ctx context.Context, record *domain.Record) error {
	if record.State != domain.StateScheduled {
		return fmt.Errorf("%w: cannot arm %s alarm %s", domain.ErrInvalidTransition, record.State, record.ID)
	}

	now := time.Now()
	if !record.FireAt.After(now) {
		return fmt.Errorf("%w: %s is not in the future", domain.ErrInvalidTime, record.FireAt.Format(time.RFC3339))
	}

	fireAt, err := trigger.Next(record.TriggerExpression, now)
	if err != nil {
		return fmt.Errorf("arm alarm %s: %w", record.ID, err)
	}

	if !fireAt.Equal(record.FireAt) {
		// Daylight saving shifts can move the calendar occurrence away from the stored instant.
		logger.WarnKV(ctx, "Trigger occurrence differs from stored fire time, using stored time",
			"alarm_id", record.ID,
			"trigger_next", fireAt,
			"fire_at", record.FireAt)

		fireAt = record.FireAt
	}

	e.pendingMu.Lock()
	e.pending[record.ID] = fireAt
	e.pendingMu.Unlock()

	e.timeline.add(event{id: record.ID, fireAt: fireAt})

	logger.InfoKV(ctx, "Alarm armed", "alarm_id", record.ID, "fire_at", fireAt, "in", time.Until(fireAt).Round(time.Second))

	return nil
}

// Disarm cancels a pending fire. Once it returns true the alarm never fires.
// It reports false when the alarm was not pending, including when it already fired.
func (e *Engine) Disarm(id string) bool {
	e.pendingMu.Lock()

	_, ok := e.pending[id]
	delete(e.pending, id)

	e.pendingMu.Unlock()

	if ok {
		e.timeline.remove(id)
	}

	return ok
}

// Pending returns the ids of armed alarms that have not fired yet.
func (e *Engine) Pending() []string {
	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()

	ids := lo.Keys(e.pending)
	slices.Sort(ids)

	return ids
}

// Stop silences a ringing alarm and cancels its auto-stop.
// It reports whether a live playback process was stopped; otherwise nothing changes.
func (e *Engine) Stop(ctx context.Context, id string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.registry.Terminate(id) {
		return false, nil
	}

	// On a failed write the auto-stop stays armed and expires the record later.
	if _, err := e.transition(ctx, id, domain.StateSilenced, nil); err != nil {
		return true, err
	}

	e.cancelAutoStop(id)

	logger.InfoKV(ctx, "Alarm stopped", "alarm_id", id)

	return true, nil
}

// StopAll silences every ringing alarm. New alarms cannot start ringing until it returns.
// It returns how many playback processes were terminated.
func (e *Engine) StopAll(ctx context.Context) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.stopAll(ctx)
}

// Shutdown disarms every pending alarm and silences the ringing ones.
// Alarms left scheduled stay stored and are armed again by Restore.
// Once it returns no alarm starts ringing, even one whose fire is in flight.
func (e *Engine) Shutdown(ctx context.Context) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.closed = true

	e.pendingMu.Lock()
	disarmed := len(e.pending)
	clear(e.pending)
	e.pendingMu.Unlock()

	logger.InfoKV(ctx, "Scheduler shutting down", "disarmed", disarmed)

	return e.stopAll(ctx)
}

// stopAll is StopAll for callers holding mu.
func (e *Engine) stopAll(ctx context.Context) (int, error) {
	terminated := e.registry.TerminateAll()

	records, err := e.store.List(ctx)
	if err != nil {
		return terminated, fmt.Errorf("list alarms: %w", err)
	}

	ringing := lo.Filter(records, func(r *domain.Record, _ int) bool {
		return r.State == domain.StateRinging
	})

	silenced := 0

	var errs []error

	for _, r := range ringing {
		if _, err = e.transition(ctx, r.ID, domain.StateSilenced, nil); err != nil {
			errs = append(errs, err)

			continue
		}

		e.cancelAutoStop(r.ID)

		silenced++
	}

	if silenced != terminated {
		logger.WarnKV(ctx, "Stopped playback count differs from silenced alarms",
			"terminated", terminated,
			"silenced", silenced)
	}

	logger.InfoKV(ctx, "All alarms stopped", "terminated", terminated)

	return terminated, errors.Join(errs...)
}

// RestoreReport summarizes what Restore did.
type RestoreReport struct {
	// Armed counts future alarms armed again.
	Armed int
	// Missed counts alarms whose fire time passed while no daemon ran.
	Missed int
	// Reaped counts ringing alarms left by a previous daemon.
	Reaped int
}

// Restore rebuilds the in-memory state from stored records after a restart.
// Future scheduled alarms are armed again; past ones are expired and reported
// as missed rather than fired late. Alarms left ringing have their player
// killed and are expired.
func (e *Engine) Restore(ctx context.Context, records []*domain.Record) (RestoreReport, error) {
	var (
		report RestoreReport
		errs   []error
		now    = time.Now()
	)

	for _, r := range records {
		switch r.State {
		case domain.StateScheduled:
			if r.FireAt.After(now) {
				if err := e.Arm(ctx, r); err != nil {
					errs = append(errs, err)

					continue
				}

				report.Armed++

				continue
			}

			if _, err := e.transition(ctx, r.ID, domain.StateExpired, nil); err != nil {
				errs = append(errs, err)

				continue
			}

			report.Missed++

			e.notify(ctx, notify.Notification{
				Title:   "Missed alarm: " + r.Title,
				Message: fmt.Sprintf("%s was due at %s while the alarm daemon was not running", r.Title, r.Time),
			})
		case domain.StateRinging:
			killed, err := playback.ReapOrphan(e.findProcess, r.PlayerPID, e.playerExecutable)
			if err != nil {
				logger.WarnKV(ctx, "Failed to reap leftover player", "alarm_id", r.ID, "pid", r.PlayerPID, "error", err)
			}

			if _, err = e.transition(ctx, r.ID, domain.StateExpired, nil); err != nil {
				errs = append(errs, err)

				continue
			}

			report.Reaped++

			logger.InfoKV(ctx, "Expired alarm left ringing", "alarm_id", r.ID, "player_killed", killed)
		default:
		}
	}

	logger.InfoKV(ctx, "Alarms restored", "armed", report.Armed, "missed", report.Missed, "reaped", report.Reaped)

	return report, errors.Join(errs...)
}

// onFire is called by the timeline when an alarm is due.
func (e *Engine) onFire(id string) {
	e.pendingMu.Lock()

	fireAt, ok := e.pending[id]
	delete(e.pending, id)

	e.pendingMu.Unlock()

	// Disarmed between the timeline pop and now.
	if !ok {
		return
	}

	ctx := logger.WithFields(e.ctx, zap.String("alarm_id", id), zap.Time("fire_at", fireAt))

	e.mu.Lock()
	n, ok := e.ring(ctx, id)
	e.mu.Unlock()

	if ok {
		e.notify(ctx, n)
	}
}

// ring starts the playback of a due alarm. The caller holds mu.
// It returns the notification to raise once the lock is released.
func (e *Engine) ring(ctx context.Context, id string) (notify.Notification, bool) {
	if e.closed {
		logger.InfoKV(ctx, "Alarm not fired, scheduler is shut down")

		return notify.Notification{}, false
	}

	record, err := e.transition(ctx, id, domain.StateRinging, nil)
	if err != nil {
		// Cancelled or removed while the fire was in flight.
		logger.WarnKV(ctx, "Alarm not fired", "error", err)

		return notify.Notification{}, false
	}

	path, err := e.sounds.Resolve(record.SoundRef)
	if err != nil {
		return e.fail(ctx, record, err), true
	}

	h, err := e.spawner.Spawn(ctx, path)
	if err != nil {
		return e.fail(ctx, record, err), true
	}

	e.registry.Register(id, h)

	_, err = e.store.Update(ctx, id, func(r *domain.Record) error {
		r.PlayerPID = h.PID()

		return nil
	})
	if err != nil {
		logger.WarnKV(ctx, "Failed to store player pid", "pid", h.PID(), "error", err)
	}

	stop := &autoStopTimer{}
	stop.timer = time.AfterFunc(e.autoStop, func() {
		e.expire(ctx, id, stop)
	})
	e.autoStops[id] = stop

	logger.InfoKV(ctx, "Alarm ringing", "title", record.Title, "sound", record.SoundRef, "pid", h.PID())

	return notify.Notification{
		Title:   record.Title,
		Message: fmt.Sprintf("Alarm for %s", record.Time),
		OnStop: func() {
			if _, stopErr := e.Stop(ctx, id); stopErr != nil {
				logger.WarnKV(ctx, "Failed to stop alarm from notification", "error", stopErr)
			}
		},
	}, true
}

// fail marks a ringing alarm failed. Failures are reported, never retried.
func (e *Engine) fail(ctx context.Context, record *domain.Record, cause error) notify.Notification {
	logger.ErrorKV(ctx, "Alarm failed to ring", "sound", record.SoundRef, "error", cause)

	_, err := e.transition(ctx, record.ID, domain.StateFailed, func(r *domain.Record) {
		r.Failure = cause.Error()
	})
	if err != nil {
		logger.WarnKV(ctx, "Failed to mark alarm failed", "error", err)
	}

	return notify.Notification{
		Title:   "Alarm failed: " + record.Title,
		Message: fmt.Sprintf("Could not play %q: %v", record.SoundRef, cause),
	}
}

// expire ends an alarm that rang for the whole auto-stop period.
func (e *Engine) expire(ctx context.Context, id string, stop *autoStopTimer) {
	e.mu.Lock()
	defer e.mu.Unlock()

	// Stopped, or replaced by a later timer, while this one was firing.
	if e.autoStops[id] != stop {
		return
	}

	terminated := e.registry.Terminate(id)

	_, err := e.transition(ctx, id, domain.StateExpired, nil)

	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrNotFound):
		delete(e.autoStops, id)
		logger.DebugKV(ctx, "Alarm not expired", "error", err)

		return
	case ctx.Err() != nil:
		delete(e.autoStops, id)
		logger.WarnKV(ctx, "Alarm left ringing at shutdown", "error", err)

		return
	default:
		// The record would stay ringing with nothing left to end it.
		logger.WarnKV(ctx, "Failed to expire alarm, retrying", "retry_in", e.autoStop, "error", err)
		stop.timer.Reset(e.autoStop)

		return
	}

	delete(e.autoStops, id)

	logger.InfoKV(ctx, "Alarm expired", "after", e.autoStop, "player_terminated", terminated)
}

// cancelAutoStop stops the auto-stop timer of the alarm. The caller holds mu.
func (e *Engine) cancelAutoStop(id string) {
	if stop, ok := e.autoStops[id]; ok {
		stop.timer.Stop()
		delete(e.autoStops, id)
	}
}

// transition moves the alarm to a new state and clears its player pid.
// mutate may adjust the record further before it is written.
func (e *Engine) transition(
	ctx context.Context,
	id string,
	to domain.State,
	mutate func(*domain.Record),
) (*domain.Record, error) {
	return e.store.Update(ctx, id, func(r *domain.Record) error {
		if !domain.CanTransition(r.State, to) {
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, r.State, to)
		}

		r.State = to

		if to != domain.StateRinging {
			r.PlayerPID = 0
		}

		if mutate != nil {
			mutate(r)
		}

		return nil
	})
}

// notify raises a notification, logging failures.
func (e *Engine) notify(ctx context.Context, n notify.Notification) {
	if err := e.notifier.Notify(ctx, n); err != nil {
		logger.WarnKV(ctx, "Failed to show notification", "title", n.Title, "error", err)
	}
}
