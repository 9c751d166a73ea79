package domain

import (
	"errors"
	"time"
)

const MaxRoomNameLen = 80

var (
	ErrRoomNameEmpty   = errors.New("room name empty")
	ErrRoomNameTooLong = errors.New("room name too long")
)

type RoomID int

// Room is a topic-scoped live session. Speakers and Listeners keep join
// order; a user id appears in at most one of the two collections.
type Room struct {
	ID          RoomID    `json:"id"`
	Name        string    `json:"name"`
	Topic       Topic     `json:"topic"`
	Description string    `json:"description,omitempty"`
	IsLive      bool      `json:"isLive"`
	CreatedBy   UserID    `json:"createdBy"`
	StartedAt   time.Time `json:"startedAt"`
	CreatedAt   time.Time `json:"createdAt"`

	Speakers  []Participant `json:"speakers"`
	Listeners []Participant `json:"listeners"`
}

// ParticipantCount is derived so it can never drift from the collections.
func (r *Room) ParticipantCount() int {
	return len(r.Speakers) + len(r.Listeners)
}

// Participant finds a membership record by user id in either collection.
func (r *Room) Participant(id UserID) (Participant, bool) {
	for _, p := range r.Speakers {
		if p.UserID == id {
			return p, true
		}
	}
	for _, p := range r.Listeners {
		if p.UserID == id {
			return p, true
		}
	}
	return Participant{}, false
}
