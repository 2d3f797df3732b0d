// Package notify raises user-visible alerts when an alarm fires, optionally
// offering a "Stop" action that calls back into the daemon.
package notify
