// Package alarm contains the core domain types of the alarm clock.
//
// It defines Record (one persisted one-shot alarm), its lifecycle State with
// the allowed transitions, ClockTime (a wall-clock time of day), Actor (who
// created an alarm) and the sentinel errors shared by every layer.
package alarm
