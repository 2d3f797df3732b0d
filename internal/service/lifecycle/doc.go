// Package lifecycle is the entry point for every alarm operation: it creates
// alarms, stops or cancels them, and reports what is ringing.
package lifecycle
