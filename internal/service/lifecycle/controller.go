package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
	"github.com/oshokin/alarm-clock/internal/logger"
	"github.com/oshokin/alarm-clock/internal/repository/alarms"
	"github.com/oshokin/alarm-clock/internal/service/playback"
	"github.com/oshokin/alarm-clock/internal/trigger"
)

// MaxLeadTime is how far ahead an alarm may be set.
// A time-of-day trigger cannot tell today from tomorrow beyond that.
const MaxLeadTime = 24 * time.Hour

// Scheduler arms alarms and silences ringing ones.
type Scheduler interface {
	Arm(ctx context.Context, record *domain.Record) error
	Disarm(id string) bool
	Stop(ctx context.Context, id string) (bool, error)
	StopAll(ctx context.Context) (int, error)
}

// Sounds resolves sound references.
type Sounds interface {
	Canonical(ref string) (string, error)
	Resolve(ref string) (string, error)
	Sounds() []playback.Sound
}

// CreateRequest describes a new alarm.
type CreateRequest struct {
	// ID is optional; a time-ordered id is generated when empty.
	ID string
	// Title is optional; DefaultTitle is used when blank.
	Title string
	// At is the instant the alarm fires. Sub-second precision is dropped.
	At time.Time
	// SoundRef is optional; the default sound is used when empty.
	SoundRef string
	// Actor is who asked for the alarm.
	Actor *domain.Actor
}

// Option customizes a Controller.
type Option func(*Controller)

// WithDefaultSound sets the sound used when a request names none.
func WithDefaultSound(ref string) Option {
	return func(c *Controller) {
		c.defaultSound = ref
	}
}

// Controller implements the alarm operations on top of the store, the scheduler and the registry.
type Controller struct {
	// store persists alarm records.
	store alarms.Repository
	// scheduler arms, fires and silences alarms.
	scheduler Scheduler
	// registry holds playing sounds, including the preview.
	registry *playback.Registry
	// spawner starts preview playback.
	spawner playback.Spawner
	// sounds validates and resolves sound references.
	sounds Sounds
	// defaultSound is used when a request names no sound.
	defaultSound string
}

// NewController creates a controller.
func NewController(
	store alarms.Repository,
	scheduler Scheduler,
	registry *playback.Registry,
	spawner playback.Spawner,
	sounds Sounds,
	options ...Option,
) *Controller {
	c := &Controller{
		store:     store,
		scheduler: scheduler,
		registry:  registry,
		spawner:   spawner,
		sounds:    sounds,

		defaultSound: playback.DefaultSound,
	}

	for _, option := range options {
		option(c)
	}

	return c
}

// Create validates, persists and arms a new alarm.
// A target time that is not in the future is rejected, never rolled over.
func (c *Controller) Create(ctx context.Context, req CreateRequest) (*domain.Record, error) {
	now := time.Now()
	at := req.At.Truncate(time.Second)

	if !at.After(now) {
		return nil, fmt.Errorf("%w: %s must be in the future", domain.ErrInvalidTime, at.Format(time.DateTime))
	}

	if at.After(now.Add(MaxLeadTime)) {
		return nil, fmt.Errorf("%w: %s is more than %s ahead", domain.ErrInvalidTime, at.Format(time.DateTime), MaxLeadTime)
	}

	sound, err := c.sound(req.SoundRef)
	if err != nil {
		return nil, err
	}

	id := strings.TrimSpace(req.ID)
	if id == "" {
		generated, genErr := uuid.NewV7()
		if genErr != nil {
			return nil, fmt.Errorf("generate alarm id: %w", genErr)
		}

		id = generated.String()
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = domain.DefaultTitle
	}

	record := &domain.Record{
		ID:                id,
		Title:             title,
		Time:              at.Format(domain.DisplayTimeLayout),
		FireAt:            at,
		TriggerExpression: trigger.Encode(domain.ClockOf(at)),
		SoundRef:          sound,
		State:             domain.StateScheduled,
		CreatedAt:         now,
		UpdatedAt:         now,
		CreatedBy:         req.Actor.Clone(),
	}

	if err = c.store.Put(ctx, record); err != nil {
		return nil, fmt.Errorf("save alarm: %w", err)
	}

	if err = c.scheduler.Arm(ctx, record); err != nil {
		if _, removeErr := c.store.Remove(ctx, id); removeErr != nil {
			logger.WarnKV(ctx, "Failed to roll back unarmed alarm", "alarm_id", id, "error", removeErr)
		}

		return nil, fmt.Errorf("arm alarm: %w", err)
	}

	logger.InfoKV(ctx, "Alarm created",
		"alarm_id", id,
		"title", title,
		"time", record.Time,
		"sound", sound,
		"created_by", req.Actor.String())

	return record, nil
}

// StopOne silences a ringing alarm. It reports false when nothing was playing.
func (c *Controller) StopOne(ctx context.Context, id string) (bool, error) {
	return c.scheduler.Stop(ctx, id)
}

// StopAll silences every ringing alarm and returns how many were playing.
func (c *Controller) StopAll(ctx context.Context) (int, error) {
	return c.scheduler.StopAll(ctx)
}

// ListActive returns the ids of alarms whose sound is playing.
func (c *Controller) ListActive() []string {
	return c.registry.ActiveIDs()
}

// List returns every stored alarm in creation order.
func (c *Controller) List(ctx context.Context) ([]*domain.Record, error) {
	return c.store.List(ctx)
}

// Get returns one alarm.
func (c *Controller) Get(ctx context.Context, id string) (*domain.Record, error) {
	return c.store.Get(ctx, id)
}

// Cancel disarms an alarm that has not fired yet and marks it silenced.
// It reports false when the alarm was not pending.
func (c *Controller) Cancel(ctx context.Context, id string) (bool, error) {
	if !c.scheduler.Disarm(id) {
		return false, nil
	}

	if _, err := c.store.MarkState(ctx, id, domain.StateSilenced); err != nil {
		return true, fmt.Errorf("cancel alarm %s: %w", id, err)
	}

	logger.InfoKV(ctx, "Alarm cancelled", "alarm_id", id)

	return true, nil
}

// Remove disarms the alarm, stops its sound and deletes it.
// It reports false when no such alarm was stored.
func (c *Controller) Remove(ctx context.Context, id string) (bool, error) {
	c.scheduler.Disarm(id)

	if _, err := c.scheduler.Stop(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
		logger.WarnKV(ctx, "Failed to silence removed alarm", "alarm_id", id, "error", err)
	}

	removed, err := c.store.Remove(ctx, id)
	if err != nil {
		return false, fmt.Errorf("remove alarm %s: %w", id, err)
	}

	if removed {
		logger.InfoKV(ctx, "Alarm removed", "alarm_id", id)
	}

	return removed, nil
}

// Preview plays a sound in the preview slot, replacing any preview already playing.
func (c *Controller) Preview(ctx context.Context, ref string) error {
	sound, err := c.sound(ref)
	if err != nil {
		return err
	}

	path, err := c.sounds.Resolve(sound)
	if err != nil {
		return err
	}

	h, err := c.spawner.Spawn(ctx, path)
	if err != nil {
		return err
	}

	c.registry.SetPreview(h)

	logger.DebugKV(ctx, "Preview started", "sound", sound, "pid", h.PID())

	return nil
}

// StopPreview stops the preview. It reports whether one was playing.
func (c *Controller) StopPreview() bool {
	return c.registry.StopPreview()
}

// Sounds lists the sound catalogue.
func (c *Controller) Sounds() []playback.Sound {
	return c.sounds.Sounds()
}

// sound validates a sound reference, substituting the default for an empty one.
func (c *Controller) sound(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		ref = c.defaultSound
	}

	sound, err := c.sounds.Canonical(ref)
	if err != nil {
		return "", err
	}

	// Absolute paths must exist now, not only when the alarm fires.
	if _, err = c.sounds.Resolve(sound); err != nil {
		return "", err
	}

	return sound, nil
}
