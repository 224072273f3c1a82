package model

import "time"

// Session lets a restarted participant rejoin a running match under the same
// participant id.
type Session struct {
	RoomID        string    `json:"room_id"`
	ParticipantID string    `json:"participant_id"`
	Name          string    `json:"name"`
	JoinedAt      time.Time `json:"joined_at"`
}
