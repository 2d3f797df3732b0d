// Package trigger translates a wall-clock time of day into a six-field
// calendar trigger ("sec min hour * * *") and computes its next occurrence.
//
// The expression is daily by nature. Callers that need one-shot semantics,
// like the alarm scheduler, must not re-arm after the first fire.
package trigger
