package domain

import (
	"fmt"
	"time"
)

// Role is a participant's capability inside a room. Capability is carried
// here explicitly, never inferred from which collection happens to hold the
// participant.
type Role string

const (
	RoleHost     Role = "host"
	RoleSpeaker  Role = "speaker"
	RoleListener Role = "listener"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleHost, RoleSpeaker, RoleListener:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// CanSpeak reports whether the role belongs in a room's speakers collection.
func (r Role) CanSpeak() bool { return r == RoleHost || r == RoleSpeaker }

// Participant is a user's membership record within a room.
// IsSpeaking is only ever true for speaking-capable roles.
type Participant struct {
	RoomID     RoomID    `json:"roomId"`
	UserID     UserID    `json:"userId"`
	Role       Role      `json:"role"`
	IsMuted    bool      `json:"isMuted"`
	IsSpeaking bool      `json:"isSpeaking"`
	JoinedAt   time.Time `json:"joinedAt"`
}

// ParticipantUpdate is a partial update; nil fields are left unchanged.
type ParticipantUpdate struct {
	Role       *Role
	IsMuted    *bool
	IsSpeaking *bool
}
