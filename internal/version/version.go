package version

import (
	"fmt"
	"runtime"
)

// Project is the name shared by the daemon and the helper.
const Project = "alarm-clock"

var (
	// Version is the semantic version of the build. It can be overridden via ldflags.
	Version = "0.1.0"
	// Commit is the short git SHA embedded at build time (or "none").
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Full describes the build of the named binary, including the Go toolchain it was built with.
func Full(binary string) string {
	if binary == "" {
		binary = Project
	}

	return fmt.Sprintf("%s %s (%s), commit: %s, built at: %s, %s %s/%s",
		binary, Version, Project, Commit, BuildTime, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
