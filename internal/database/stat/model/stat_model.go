package model

import (
	"time"

	"github.com/google/uuid"
)

// NewResult records how participantID finished a match in roomID.
func NewResult(participantID, roomID string, worth int64, rank, players int, at time.Time) Result {
	return Result{
		ID:            uuid.New(),
		ParticipantID: participantID,
		RoomID:        roomID,
		Worth:         worth,
		Rank:          rank,
		Players:       players,
		CreatedAt:     at,
	}
}

type Result struct {
	ID            uuid.UUID `json:"-"`
	ParticipantID string    `json:"participantId"`
	RoomID        string    `json:"roomId"`
	Worth         int64     `json:"worth"`
	Rank          int       `json:"rank"`
	Players       int       `json:"players"`
	CreatedAt     time.Time `json:"createdAt"`
}

type AggregationStat struct {
	Count      int
	Wins       int
	BestWorth  int64
	WorstWorth int64
	AvgWorth   int64
	BestRank   int
}
