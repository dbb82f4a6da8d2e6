package domain

import "time"

// Snapshot is one frame of the alarm sync stream: the complete set of alarms
// visible to the user at SentAt. Receivers replace their mirror with it.
type Snapshot struct {
	Alarms []Alarm   `json:"alarms"`
	SentAt time.Time `json:"sentAt"`
}
