package playback

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"

	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
	"github.com/oshokin/alarm-clock/internal/logger"
)

// Spawner starts playback of a resolved sound file.
type Spawner interface {
	Spawn(ctx context.Context, path string) (Handle, error)
}

// Player spawns an external command-line audio program.
type Player struct {
	// command is the program to run, e.g. afplay or paplay.
	command string
	// args are placed before the sound path.
	args []string
}

// NewPlayer creates a player for the program and its leading arguments.
func NewPlayer(command string, args ...string) *Player {
	return &Player{
		command: command,
		args:    args,
	}
}

// Command returns the program the player runs.
func (p *Player) Command() string {
	return p.command
}

// Spawn starts the program with the sound path as its last argument.
// The process is not tied to ctx: it keeps playing until terminated or finished.
func (p *Player) Spawn(ctx context.Context, path string) (Handle, error) {
	args := append(append([]string{}, p.args...), path)

	//nolint:gosec // The program comes from the daemon's own configuration.
	cmd := exec.Command(p.command, args...)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %s %q: %w", domain.ErrSpawnFailure, p.command, path, err)
	}

	h := &ProcessHandle{
		process: cmd.Process,
		done:    make(chan struct{}),
	}

	go h.wait(logger.WithKV(ctx, "pid", cmd.Process.Pid), cmd)

	return h, nil
}

// ProcessHandle is a Handle over an os/exec child process.
type ProcessHandle struct {
	// process is the started child.
	process *os.Process
	// done is closed once Wait returns.
	done chan struct{}
	// once guards the close of done.
	once sync.Once
}

// Terminate sends SIGTERM to the process.
func (h *ProcessHandle) Terminate() error {
	if h.Exited() {
		return nil
	}

	if err := h.process.Signal(syscall.SIGTERM); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			return nil
		}

		return fmt.Errorf("signal pid %d: %w", h.process.Pid, err)
	}

	return nil
}

// Exited reports whether the process has been reaped.
func (h *ProcessHandle) Exited() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Done is closed once the process has exited.
func (h *ProcessHandle) Done() <-chan struct{} {
	return h.done
}

// PID returns the operating system process id.
func (h *ProcessHandle) PID() int {
	return h.process.Pid
}

// wait reaps the process so it never lingers as a zombie.
func (h *ProcessHandle) wait(ctx context.Context, cmd *exec.Cmd) {
	err := cmd.Wait()

	h.once.Do(func() {
		close(h.done)
	})

	// A terminated player reports the signal as an error; only log it.
	logger.DebugKV(ctx, "Player exited", "error", err)
}
