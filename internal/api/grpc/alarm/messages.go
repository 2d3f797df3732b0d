package alarm

import "time"

// Actor identifies the caller of a mutating RPC.
type Actor struct {
	Hostname string `json:"hostname"`
	Username string `json:"username"`
}

// Alarm is the wire form of a stored alarm.
type Alarm struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	Time              string    `json:"time"`
	FireAt            time.Time `json:"fireAt"`
	TriggerExpression string    `json:"cronExpression"`
	Sound             string    `json:"sound"`
	State             string    `json:"state"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
	CreatedBy         *Actor    `json:"createdBy,omitempty"`
	PlayerPID         int       `json:"playerPid,omitempty"`
	Failure           string    `json:"failure,omitempty"`
}

// Sound is one catalogue entry.
type Sound struct {
	Name string `json:"name"`
	File string `json:"file"`
}

// CreateAlarmRequest asks for a new alarm.
type CreateAlarmRequest struct {
	// ID is optional; the server generates one when empty.
	ID     string    `json:"id,omitempty"`
	Title  string    `json:"title,omitempty"`
	FireAt time.Time `json:"fireAt"`
	Sound  string    `json:"sound,omitempty"`
	Actor  *Actor    `json:"actor,omitempty"`
}

// CreateAlarmResponse returns the created alarm.
type CreateAlarmResponse struct {
	Alarm *Alarm `json:"alarm"`
}

// AlarmRequest addresses one alarm.
type AlarmRequest struct {
	ID    string `json:"id"`
	Actor *Actor `json:"actor,omitempty"`
}

// StopAlarmResponse reports whether a ringing alarm was silenced.
type StopAlarmResponse struct {
	Stopped bool `json:"stopped"`
}

// StopAllAlarmsRequest silences every ringing alarm.
type StopAllAlarmsRequest struct {
	Actor *Actor `json:"actor,omitempty"`
}

// StopAllAlarmsResponse returns how many alarms were playing.
type StopAllAlarmsResponse struct {
	Stopped int `json:"stopped"`
}

// CancelAlarmResponse reports whether a pending alarm was disarmed.
type CancelAlarmResponse struct {
	Cancelled bool `json:"cancelled"`
}

// RemoveAlarmResponse reports whether an alarm was deleted.
type RemoveAlarmResponse struct {
	Removed bool `json:"removed"`
}

// ListAlarmsRequest lists stored alarms.
type ListAlarmsRequest struct{}

// ListAlarmsResponse holds alarms in creation order.
type ListAlarmsResponse struct {
	Alarms []*Alarm `json:"alarms"`
}

// ListActiveRequest lists ringing alarms.
type ListActiveRequest struct{}

// ListActiveResponse holds the ids of alarms whose sound is playing.
type ListActiveResponse struct {
	IDs []string `json:"ids"`
}

// PreviewSoundRequest plays a sound in the preview slot.
type PreviewSoundRequest struct {
	Sound string `json:"sound"`
}

// PreviewSoundResponse is empty.
type PreviewSoundResponse struct{}

// StopPreviewRequest stops the preview.
type StopPreviewRequest struct{}

// StopPreviewResponse reports whether a preview was playing.
type StopPreviewResponse struct {
	Stopped bool `json:"stopped"`
}

// ListSoundsRequest lists the sound catalogue.
type ListSoundsRequest struct{}

// ListSoundsResponse holds the catalogue in display order.
type ListSoundsResponse struct {
	Sounds []*Sound `json:"sounds"`
}
