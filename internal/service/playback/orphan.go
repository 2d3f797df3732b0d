package playback

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-ps"
)

// ProcessFinder looks up a running process by id.
type ProcessFinder func(pid int) (ps.Process, error)

// ReapOrphan terminates a player left running under pid by a previous daemon.
// The process is only killed when its executable matches the player, so a
// recycled pid belonging to something else is left alone.
// It reports whether a process was killed.
func ReapOrphan(find ProcessFinder, pid int, executable string) (bool, error) {
	if pid <= 0 || pid == os.Getpid() {
		return false, nil
	}

	if find == nil {
		find = ps.FindProcess
	}

	process, err := find(pid)
	if err != nil {
		return false, fmt.Errorf("find process %d: %w", pid, err)
	}

	// Nothing runs under the pid any more.
	if process == nil {
		return false, nil
	}

	if process.Executable() != filepath.Base(executable) {
		return false, nil
	}

	running, err := os.FindProcess(pid)
	if err != nil {
		return false, fmt.Errorf("open process %d: %w", pid, err)
	}

	if err = running.Kill(); err != nil {
		return false, fmt.Errorf("kill process %d: %w", pid, err)
	}

	return true, nil
}
