package alarm

import "errors"

var (
	// ErrInvalidTime is returned when the target time is not in the future
	// or lies beyond the reach of a time-of-day trigger.
	ErrInvalidTime = errors.New("invalid alarm time")
	// ErrNotFound is returned when no alarm exists under the requested id.
	ErrNotFound = errors.New("alarm not found")
	// ErrDuplicateID is returned when an alarm with the same id already exists.
	ErrDuplicateID = errors.New("alarm id already exists")
	// ErrInvalidTransition is returned when a state change is not allowed.
	ErrInvalidTransition = errors.New("invalid alarm state transition")
	// ErrSpawnFailure is returned when the playback process could not start.
	ErrSpawnFailure = errors.New("playback process could not start")
	// ErrStoreCorrupt marks persisted alarm data that could not be decoded.
	ErrStoreCorrupt = errors.New("alarm store is corrupt")
	// ErrUnknownSound is returned when a sound reference cannot be resolved.
	ErrUnknownSound = errors.New("unknown sound")
)
