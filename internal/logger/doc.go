// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger with a console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV/WithFields),
//   - level parsing utilities shared by the daemon and the helper CLI,
//   - leveled helpers (InfoKV, WarnKV, ErrorKV, ...) that log through the context.
//
// Every component of the alarm daemon accepts a context and extracts the
// logger from it, so the fire path, the store and the transport all log with
// the alarm id they are working on.
package logger
