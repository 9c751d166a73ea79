package session

import "github.com/avray/openmic/internal/domain"

type EventType string

const (
	EventSpeakerStarted     EventType = "speaker_started"
	EventSpeakerStopped     EventType = "speaker_stopped"
	EventParticipantUpdated EventType = "participant_updated"
	EventHandRaised         EventType = "hand_raised"
	EventPromoted           EventType = "promoted"
	EventLeft               EventType = "left"
	EventSimulationEnded    EventType = "simulation_ended"
	EventError              EventType = "error"
)

// Event is what the presentation layer receives about a room visit.
type Event struct {
	Type        EventType           `json:"type"`
	RoomID      domain.RoomID       `json:"roomId"`
	Participant *domain.Participant `json:"participant,omitempty"`
	Message     string              `json:"message,omitempty"`
}

// EventSink receives session events. Implementations must not block; the
// scheduler's timer goroutine delivers them.
type EventSink interface {
	RoomEvent(Event)
}
