// Package common holds helpers shared by several services.
//
// It provides the alarm daemon client wrapper with per-call timeouts and utilities to
// detect the current system actor (hostname/username) for audit purposes.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
