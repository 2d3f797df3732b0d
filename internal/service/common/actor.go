//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"errors"
	"fmt"
	"os"
	"os/user"

	api "github.com/oshokin/alarm-clock/internal/api/grpc/alarm"
)

// errNoUsername is returned when neither the user database nor the environment names the user.
var errNoUsername = errors.New("unable to determine username")

// usernameEnv lists the variables consulted when the user database is unavailable.
//
//nolint:gochecknoglobals // Read-only lookup table.
var usernameEnv = []string{"USER", "LOGNAME", "USERNAME"}

// DetectActor names the user and host that issue a command, for the daemon's audit log.
// The username falls back to the environment in containers without a passwd entry.
func DetectActor() (*api.Actor, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("hostname: %w", err)
	}

	username, err := detectUsername(user.Current, os.Getenv)
	if err != nil {
		return nil, err
	}

	return &api.Actor{
		Hostname: hostname,
		Username: username,
	}, nil
}

// detectUsername asks the user database first, then the environment.
func detectUsername(current func() (*user.User, error), getenv func(string) string) (string, error) {
	u, err := current()
	if err == nil && u.Username != "" {
		return u.Username, nil
	}

	for _, key := range usernameEnv {
		if name := getenv(key); name != "" {
			return name, nil
		}
	}

	if err != nil {
		return "", fmt.Errorf("%w: %w", errNoUsername, err)
	}

	return "", errNoUsername
}
