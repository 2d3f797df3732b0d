// Package alarms implements persistence for alarm records.
//
// The whole collection lives as one JSON array under a fixed key of a small
// key-value Backend. Every operation reads, mutates and rewrites it while
// holding a single lock. Two backends are provided: FileBackend (one JSON file
// per key, written atomically on an afero filesystem) and SQLiteBackend (one
// row per key in an SQLite table).
package alarms
