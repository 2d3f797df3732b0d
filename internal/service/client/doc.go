// Package client implements the verbs of the alarm-ctl helper.
//
// Every verb dials the alarm daemon, performs one RPC and prints the result
// to the configured output: plain text for people, JSON for `list`.
// Diagnostics go to the logger, which writes to stderr.
package client
