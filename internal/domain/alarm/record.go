package alarm

import (
	"fmt"
	"time"
)

// DefaultTitle is used when an alarm is created without a title.
const DefaultTitle = "Alarm"

// DisplayTimeLayout renders the target time in listings.
const DisplayTimeLayout = "15:04:05"

// State is the lifecycle position of an alarm.
type State string

const (
	// StateScheduled means the alarm is armed and waiting for its fire time.
	StateScheduled State = "scheduled"
	// StateRinging means the alarm fired and its sound is playing.
	StateRinging State = "ringing"
	// StateSilenced means the user stopped or cancelled the alarm.
	StateSilenced State = "silenced"
	// StateExpired means the alarm rang out, or its fire time passed while nobody was listening.
	StateExpired State = "expired"
	// StateFailed means playback could not be started when the alarm fired.
	StateFailed State = "failed"
)

// transitions lists the states reachable from each non-terminal state.
//
//nolint:gochecknoglobals // Read-only lookup table.
var transitions = map[State][]State{
	StateScheduled: {StateRinging, StateSilenced, StateExpired, StateFailed},
	StateRinging:   {StateSilenced, StateExpired, StateFailed},
}

// IsTerminal reports whether no further transitions are possible.
func (s State) IsTerminal() bool {
	_, ok := transitions[s]

	return !ok
}

// IsValid reports whether s is one of the known states.
func (s State) IsValid() bool {
	switch s {
	case StateScheduled, StateRinging, StateSilenced, StateExpired, StateFailed:
		return true
	default:
		return false
	}
}

// CanTransition reports whether an alarm may move from one state to another.
// Terminal alarms are never re-armed: they can only be removed.
func CanTransition(from, to State) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}

	return false
}

// ClockTime is a wall-clock time of day.
type ClockTime struct {
	Hour   int
	Minute int
	Second int
}

// ClockOf extracts the time of day from t in t's location.
func ClockOf(t time.Time) ClockTime {
	return ClockTime{
		Hour:   t.Hour(),
		Minute: t.Minute(),
		Second: t.Second(),
	}
}

// Validate checks that every component is within its range.
func (c ClockTime) Validate() error {
	if c.Hour < 0 || c.Hour > 23 || c.Minute < 0 || c.Minute > 59 || c.Second < 0 || c.Second > 59 {
		return fmt.Errorf("%w: %02d:%02d:%02d is not a time of day", ErrInvalidTime, c.Hour, c.Minute, c.Second)
	}

	return nil
}

// On places the time of day on the calendar date of day, in day's location.
func (c ClockTime) On(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour, c.Minute, c.Second, 0, day.Location())
}

// String renders the time as HH:MM:SS.
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", c.Hour, c.Minute, c.Second)
}

// Actor identifies who created an alarm.
type Actor struct {
	// Hostname is the machine name where the action was performed.
	Hostname string `json:"hostname"`
	// Username is the system user who triggered the action.
	Username string `json:"username"`
}

// Clone returns a deep copy of the actor.
func (a *Actor) Clone() *Actor {
	if a == nil {
		return nil
	}

	cloned := *a

	return &cloned
}

// String renders the actor as user@host.
func (a *Actor) String() string {
	if a == nil {
		return "<unknown>"
	}

	return a.Username + "@" + a.Hostname
}

// Record is one persisted one-shot alarm.
type Record struct {
	// ID is unique within the store and never reused.
	ID string `json:"id"`
	// Title is the user-supplied text shown in notifications.
	Title string `json:"title"`
	// Time is the display form of the target time of day.
	Time string `json:"time"`
	// FireAt is the absolute instant the alarm is due.
	FireAt time.Time `json:"fireAt"`
	// TriggerExpression is the six-field calendar trigger derived from FireAt.
	TriggerExpression string `json:"cronExpression"`
	// SoundRef is the symbolic sound name resolved at play time.
	SoundRef string `json:"sound"`
	// State is the lifecycle position.
	State State `json:"state"`
	// CreatedAt is when the alarm was created.
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt is when the state last changed.
	UpdatedAt time.Time `json:"updatedAt"`
	// CreatedBy is the user who created the alarm, if known.
	CreatedBy *Actor `json:"createdBy,omitempty"`
	// PlayerPID is the process id of the playback process while ringing.
	PlayerPID int `json:"playerPid,omitempty"`
	// Failure describes why playback could not start.
	Failure string `json:"failure,omitempty"`
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}

	cloned := *r
	cloned.CreatedBy = r.CreatedBy.Clone()

	return &cloned
}

// Clock returns the target time of day.
func (r *Record) Clock() ClockTime {
	return ClockOf(r.FireAt)
}
