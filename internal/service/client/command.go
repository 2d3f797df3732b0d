package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	api "github.com/oshokin/alarm-clock/internal/api/grpc/alarm"
	"github.com/oshokin/alarm-clock/internal/config"
	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
	"github.com/oshokin/alarm-clock/internal/logger"
	"github.com/oshokin/alarm-clock/internal/service/common"
)

// DateLayout is the format of the --date flag.
const DateLayout = time.DateOnly

// autoID is the id argument that asks the daemon to generate one.
const autoID = "-"

var (
	// errClockArgs is returned when hour, minute or second are not integers.
	errClockArgs = errors.New("hour, minute and second must be integers")
	// errClientNotSet is returned when a Session has no connection.
	errClientNotSet = errors.New("client is not connected")
)

// Options configures how the helper reaches the daemon.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string
	// ServerAddress overrides server address from config when specified.
	ServerAddress string
	// Out receives command output; os.Stdout when nil.
	Out io.Writer
}

// AddArgs are the arguments of the add verb.
type AddArgs struct {
	// ID is the alarm id, or empty to let the daemon generate one.
	ID string
	// Title is the alarm title.
	Title string
	// Clock is the target time of day.
	Clock domain.ClockTime
	// Date is the calendar day of the alarm; today when zero.
	Date time.Time
	// Sound is the symbolic sound name or an absolute path.
	Sound string
}

// ParseAddArgs parses `<id> <title> <h> <m> <s> <soundRef>` and an optional YYYY-MM-DD date.
func ParseAddArgs(args []string, date string) (AddArgs, error) {
	const expected = 6

	if len(args) != expected {
		return AddArgs{}, fmt.Errorf("expected %d arguments, got %d", expected, len(args))
	}

	parts := make([]int, 0, 3)

	for _, raw := range args[2:5] {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return AddArgs{}, fmt.Errorf("%w: %q", errClockArgs, raw)
		}

		parts = append(parts, n)
	}

	parsed := AddArgs{
		Title: args[1],
		Clock: domain.ClockTime{Hour: parts[0], Minute: parts[1], Second: parts[2]},
		Sound: args[5],
	}

	if err := parsed.Clock.Validate(); err != nil {
		return AddArgs{}, err
	}

	if args[0] != autoID {
		parsed.ID = args[0]
	}

	if date != "" {
		day, err := time.ParseInLocation(DateLayout, date, time.Local)
		if err != nil {
			return AddArgs{}, fmt.Errorf("invalid date %q: %w", date, err)
		}

		parsed.Date = day
	}

	return parsed, nil
}

// FireAt places the clock time on the requested day, today by default.
// The result is never moved to another day, even when it lies in the past.
func (a AddArgs) FireAt(now time.Time) time.Time {
	day := a.Date
	if day.IsZero() {
		day = now
	}

	return a.Clock.On(day)
}

// Session is a connection to the daemon used by one helper invocation.
type Session struct {
	// client is the daemon connection.
	client *common.Client
	// actor identifies the user for the daemon's audit log.
	actor *api.Actor
	// out receives command output.
	out io.Writer
}

// Connect loads settings and dials the daemon.
func Connect(ctx context.Context, opts *Options) (*Session, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	serverAddress := cfg.ServerAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	actor, err := common.DetectActor()
	if err != nil {
		// The actor only feeds the audit log; commands still work without it.
		logger.WarnKV(ctx, "Unable to detect actor", "error", err)
	}

	client, err := common.Dial(ctx, serverAddress, common.WithCallTimeout(cfg.Timeout))
	if err != nil {
		return nil, err
	}

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	logger.DebugKV(ctx, "Connected to alarm server", "server_address", serverAddress)

	return &Session{
		client: client,
		actor:  actor,
		out:    out,
	}, nil
}

// Close releases the connection.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}

	return s.client.Close()
}

// Add creates an alarm. A time that is not in the future is rejected.
func (s *Session) Add(ctx context.Context, args AddArgs) error {
	if s == nil || s.client == nil {
		return errClientNotSet
	}

	fireAt := args.FireAt(time.Now())
	if !fireAt.After(time.Now()) {
		return fmt.Errorf("%w: %s is not in the future", domain.ErrInvalidTime, fireAt.Format(time.DateTime))
	}

	alarm, err := s.client.CreateAlarm(ctx, &api.CreateAlarmRequest{
		ID:     args.ID,
		Title:  args.Title,
		FireAt: fireAt,
		Sound:  args.Sound,
		Actor:  s.actor,
	})
	if err != nil {
		return err
	}

	s.printf("%s set for %s (id %s)\n", alarm.Title, alarm.Time, alarm.ID)

	return nil
}

// Stop silences a ringing alarm. An alarm that is not ringing is reported, not an error.
func (s *Session) Stop(ctx context.Context, id string) error {
	stopped, err := s.client.StopAlarm(ctx, id, s.actor)
	if err != nil {
		return err
	}

	if !stopped {
		s.printf("Alarm %s is not currently active\n", id)

		return nil
	}

	s.printf("Alarm %s has been stopped\n", id)

	return nil
}

// StopAll silences every ringing alarm.
func (s *Session) StopAll(ctx context.Context) error {
	stopped, err := s.client.StopAllAlarms(ctx, s.actor)
	if err != nil {
		return err
	}

	s.printf("Stopped %d alarm(s)\n", stopped)

	return nil
}

// Cancel disarms an alarm that has not fired yet.
func (s *Session) Cancel(ctx context.Context, id string) error {
	cancelled, err := s.client.CancelAlarm(ctx, id, s.actor)
	if err != nil {
		return err
	}

	if !cancelled {
		s.printf("Alarm %s is not scheduled\n", id)

		return nil
	}

	s.printf("Alarm %s has been cancelled\n", id)

	return nil
}

// Remove deletes an alarm, silencing it first.
func (s *Session) Remove(ctx context.Context, id string) error {
	removed, err := s.client.RemoveAlarm(ctx, id, s.actor)
	if err != nil {
		return err
	}

	if !removed {
		s.printf("Alarm %s does not exist\n", id)

		return nil
	}

	s.printf("Alarm %s has been removed\n", id)

	return nil
}

// List prints every stored alarm as a JSON array.
func (s *Session) List(ctx context.Context) error {
	alarms, err := s.client.ListAlarms(ctx)
	if err != nil {
		return err
	}

	if alarms == nil {
		alarms = []*api.Alarm{}
	}

	encoder := json.NewEncoder(s.out)
	encoder.SetIndent("", "  ")

	if err = encoder.Encode(alarms); err != nil {
		return fmt.Errorf("write alarms: %w", err)
	}

	return nil
}

// Active prints the ids of ringing alarms, one per line.
func (s *Session) Active(ctx context.Context) error {
	ids, err := s.client.ListActive(ctx)
	if err != nil {
		return err
	}

	for _, id := range ids {
		s.printf("%s\n", id)
	}

	return nil
}

// Preview plays a sound in the preview slot.
func (s *Session) Preview(ctx context.Context, sound string) error {
	if err := s.client.PreviewSound(ctx, sound); err != nil {
		return err
	}

	s.printf("Playing %s\n", sound)

	return nil
}

// StopPreview stops the preview.
func (s *Session) StopPreview(ctx context.Context) error {
	stopped, err := s.client.StopPreview(ctx)
	if err != nil {
		return err
	}

	if stopped {
		s.printf("Preview stopped\n")
	} else {
		s.printf("No preview is playing\n")
	}

	return nil
}

// Sounds prints the sound catalogue as name and file, tab separated.
func (s *Session) Sounds(ctx context.Context) error {
	sounds, err := s.client.ListSounds(ctx)
	if err != nil {
		return err
	}

	for _, sound := range sounds {
		s.printf("%s\t%s\n", sound.Name, sound.File)
	}

	return nil
}

// printf writes to the command output. Write errors on a terminal are not actionable.
func (s *Session) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(s.out, format, args...)
}
