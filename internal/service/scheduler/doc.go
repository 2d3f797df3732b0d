// Package scheduler arms alarms and drives them through ringing.
//
// A single timeline goroutine keeps pending alarms in a min-heap ordered by
// fire time and sleeps until the earliest one is due, capped at one minute so
// wall-clock jumps are picked up. Each armed alarm fires at most once.
//
// When an alarm fires the Engine marks it ringing, starts its sound, registers
// the playback process and arms an auto-stop timer. Stop and StopAll silence
// ringing alarms; the auto-stop timer expires the ones nobody stopped.
package scheduler
