package notify

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/oshokin/alarm-clock/internal/logger"
)

const (
	// appName is shown by notification daemons as the sender.
	appName = "alarm-clock"
	// stopLabel is the caption of the primary action.
	stopLabel = "Stop"
	// stopAction is the action key notify-send prints when Stop is chosen.
	stopAction = "stop"
	// DefaultDismissAfter bounds how long a notification waits for the user.
	DefaultDismissAfter = 2 * time.Minute
)

// ErrUnsupportedOS indicates there is no desktop notification tool for the current OS.
var ErrUnsupportedOS = errors.New("unsupported operating system")

// Notification is one alert.
type Notification struct {
	// Title is the alert headline.
	Title string
	// Message is the alert body.
	Message string
	// OnStop is called when the user picks the Stop action. Nil hides the action.
	OnStop func()
}

// Notifier raises notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// CommandRunner runs a program and returns its standard output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Desktop shows notifications with the tools shipped by the desktop:
// osascript on macOS, notify-send elsewhere.
type Desktop struct {
	// ctx bounds every notification; cancelling it closes open dialogs.
	ctx context.Context
	// goos selects the notification tool.
	goos string
	// run executes the tool.
	run CommandRunner
	// dismissAfter closes a notification nobody reacted to.
	dismissAfter time.Duration
	// wg tracks notifications still on screen.
	wg sync.WaitGroup
}

// DesktopOption customizes a Desktop notifier.
type DesktopOption func(*Desktop)

// WithRunner replaces the command runner.
func WithRunner(run CommandRunner) DesktopOption {
	return func(d *Desktop) {
		d.run = run
	}
}

// WithOS overrides the detected operating system.
func WithOS(goos string) DesktopOption {
	return func(d *Desktop) {
		d.goos = goos
	}
}

// WithDismissAfter changes how long a notification stays open.
func WithDismissAfter(timeout time.Duration) DesktopOption {
	return func(d *Desktop) {
		d.dismissAfter = timeout
	}
}

// NewDesktop creates a desktop notifier whose dialogs live at most as long as ctx.
func NewDesktop(ctx context.Context, options ...DesktopOption) *Desktop {
	d := &Desktop{
		ctx:          logger.WithName(ctx, "notify"),
		goos:         runtime.GOOS,
		run:          runCommand,
		dismissAfter: DefaultDismissAfter,
	}

	for _, option := range options {
		option(d)
	}

	return d
}

// Notify shows the notification without blocking the caller.
// OnStop runs on the notification goroutine once the user picks Stop.
func (d *Desktop) Notify(ctx context.Context, n Notification) error {
	name, args, err := d.command(n)
	if err != nil {
		return err
	}

	d.wg.Go(func() {
		runCtx, cancel := context.WithTimeout(d.ctx, d.dismissAfter)
		defer cancel()

		out, runErr := d.run(runCtx, name, args...)
		if runErr != nil {
			// Dismissal by timeout or closing the dialog also ends up here.
			logger.DebugKV(d.ctx, "Notification closed", "title", n.Title, "error", runErr)

			return
		}

		if n.OnStop != nil && d.stopChosen(string(out)) {
			logger.InfoKV(d.ctx, "Stop chosen from notification", "title", n.Title)
			n.OnStop()
		}
	})

	logger.DebugKV(ctx, "Notification shown", "title", n.Title, "tool", name)

	return nil
}

// Wait blocks until every notification has been closed.
func (d *Desktop) Wait() {
	d.wg.Wait()
}

// command builds the tool invocation for the notification.
func (d *Desktop) command(n Notification) (string, []string, error) {
	switch d.goos {
	case "darwin":
		buttons := `{"OK"}`
		if n.OnStop != nil {
			buttons = `{"` + stopLabel + `"}`
		}

		script := fmt.Sprintf(
			`display dialog %s with title %s buttons %s default button 1 giving up after %d`,
			appleScriptString(n.Message),
			appleScriptString(n.Title),
			buttons,
			int(d.dismissAfter.Seconds()),
		)

		return "osascript", []string{"-e", script}, nil
	case "linux", "freebsd", "openbsd", "netbsd":
		args := []string{"--app-name=" + appName, "--urgency=critical"}
		if n.OnStop != nil {
			args = append(args, "--action="+stopAction+"="+stopLabel, "--wait")
		}

		return "notify-send", append(args, n.Title, n.Message), nil
	default:
		return "", nil, fmt.Errorf("desktop notifications on %s: %w", d.goos, ErrUnsupportedOS)
	}
}

// stopChosen interprets the tool output.
func (d *Desktop) stopChosen(out string) bool {
	if d.goos == "darwin" {
		return strings.Contains(out, "button returned:"+stopLabel) && !strings.Contains(out, "gave up:true")
	}

	return strings.TrimSpace(out) == stopAction
}

// appleScriptString quotes s as an AppleScript string literal.
func appleScriptString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)

	return `"` + s + `"`
}

// runCommand is the default CommandRunner.
func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	//nolint:gosec // Fixed tool names with escaped arguments.
	return exec.CommandContext(ctx, name, args...).Output()
}

// Discard drops notifications, logging them at debug level.
type Discard struct{}

// Notify logs the notification and returns.
func (Discard) Notify(ctx context.Context, n Notification) error {
	logger.DebugKV(ctx, "Notification discarded", "title", n.Title, "message", n.Message)

	return nil
}
