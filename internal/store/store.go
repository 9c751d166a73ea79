// Package store holds the authoritative in-process state: users, rooms and
// room membership. State never leaves as live references; every read hands
// out a deep copy so async callers can't mutate shared state.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/avray/openmic/internal/domain"
)

type roomState struct {
	meta      domain.Room
	speakers  []domain.Participant
	listeners []domain.Participant
}

// Store is a threadsafe in-memory store with monotonically increasing ids.
// Nothing survives a process restart.
type Store struct {
	mu         sync.RWMutex
	users      map[domain.UserID]domain.User
	byUsername map[string]domain.UserID
	rooms      map[domain.RoomID]*roomState
	nextUserID domain.UserID
	nextRoomID domain.RoomID
}

func New() *Store {
	return &Store{
		users:      make(map[domain.UserID]domain.User),
		byUsername: make(map[string]domain.UserID),
		rooms:      make(map[domain.RoomID]*roomState),
		nextUserID: 1,
		nextRoomID: 1,
	}
}

// ---------------------------------------------------------------------------
// Users

func (s *Store) CreateUser(ctx context.Context, u *domain.User) (domain.User, error) {
	if err := ctxErr(ctx); err != nil {
		return domain.User{}, err
	}
	ve := domain.NewValidationError()
	if u.Username == "" {
		ve.Add("username", "required")
	}
	if u.Password == "" {
		ve.Add("password", "required")
	}
	if u.Name == "" {
		ve.Add("name", "required")
	}
	if !ve.Empty() {
		return domain.User{}, ve
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byUsername[u.Username]; taken {
		return domain.User{}, fmt.Errorf("username %q taken: %w", u.Username, domain.ErrConflict)
	}
	created := *u
	created.ID = s.nextUserID
	created.CreatedAt = time.Now()
	s.nextUserID++
	s.users[created.ID] = created
	s.byUsername[created.Username] = created.ID
	log.Info().Str("module", "store").Int("user_id", int(created.ID)).Str("username", created.Username).Msg("user created")
	return created, nil
}

func (s *Store) UserByID(ctx context.Context, id domain.UserID) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
	}
	return u, nil
}

func (s *Store) UserByUsername(ctx context.Context, username string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byUsername[username]
	if !ok {
		return domain.User{}, fmt.Errorf("user %q: %w", username, domain.ErrNotFound)
	}
	return s.users[id], nil
}

// ---------------------------------------------------------------------------
// Rooms

type CreateRoomParams struct {
	Name        string
	Topic       string
	Description string
	CreatedBy   domain.UserID
}

// CreateRoom allocates a live room and seats the creator as its unmuted host.
func (s *Store) CreateRoom(ctx context.Context, p CreateRoomParams) (domain.Room, error) {
	if err := ctxErr(ctx); err != nil {
		return domain.Room{}, err
	}
	ve := domain.NewValidationError()
	if p.Name == "" {
		ve.Add("name", "required")
	} else if len(p.Name) > domain.MaxRoomNameLen {
		ve.Add("name", "too long")
	}
	topic, err := domain.ParseTopic(p.Topic)
	if err != nil {
		ve.Add("topic", "must be one of the known topics")
	}
	if p.CreatedBy <= 0 {
		ve.Add("createdBy", "required")
	}
	if !ve.Empty() {
		return domain.Room{}, ve
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	rs := &roomState{
		meta: domain.Room{
			ID:          s.nextRoomID,
			Name:        p.Name,
			Topic:       topic,
			Description: p.Description,
			IsLive:      true,
			CreatedBy:   p.CreatedBy,
			StartedAt:   now,
			CreatedAt:   now,
		},
	}
	s.nextRoomID++
	rs.speakers = append(rs.speakers, domain.Participant{
		RoomID:   rs.meta.ID,
		UserID:   p.CreatedBy,
		Role:     domain.RoleHost,
		JoinedAt: now,
	})
	s.rooms[rs.meta.ID] = rs
	log.Info().Str("module", "store").Int("room_id", int(rs.meta.ID)).Str("topic", string(topic)).Msg("room created")
	return snapshot(rs), nil
}

// LiveRooms returns live rooms, most recently started first. TopicAll (or
// the zero value) disables the topic filter.
func (s *Store) LiveRooms(ctx context.Context, topic domain.Topic) ([]domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Room, 0, len(s.rooms))
	for _, rs := range s.rooms {
		if !rs.meta.IsLive {
			continue
		}
		if topic != "" && topic != domain.TopicAll && rs.meta.Topic != topic {
			continue
		}
		out = append(out, snapshot(rs))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

// RoomByID also resolves ended rooms so a just-ended room stays queryable.
func (s *Store) RoomByID(ctx context.Context, id domain.RoomID) (domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rs, ok := s.rooms[id]
	if !ok {
		return domain.Room{}, fmt.Errorf("room %d: %w", id, domain.ErrNotFound)
	}
	return snapshot(rs), nil
}

// EndRoom flips a room off the live listing. Ending an ended room is a no-op
// success.
func (s *Store) EndRoom(ctx context.Context, id domain.RoomID) (domain.Room, error) {
	if err := ctxErr(ctx); err != nil {
		return domain.Room{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rs, ok := s.rooms[id]
	if !ok {
		return domain.Room{}, fmt.Errorf("room %d: %w", id, domain.ErrNotFound)
	}
	if rs.meta.IsLive {
		rs.meta.IsLive = false
		log.Info().Str("module", "store").Int("room_id", int(id)).Msg("room ended")
	}
	return snapshot(rs), nil
}

// ---------------------------------------------------------------------------
// Participants

// AddParticipant seats a user in a live room. A user id may be present at
// most once per room, in exactly one of the two collections.
func (s *Store) AddParticipant(ctx context.Context, roomID domain.RoomID, userID domain.UserID, role domain.Role, muted bool) (domain.Participant, error) {
	if err := ctxErr(ctx); err != nil {
		return domain.Participant{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rs, ok := s.rooms[roomID]
	if !ok {
		return domain.Participant{}, fmt.Errorf("room %d: %w", roomID, domain.ErrNotFound)
	}
	if !rs.meta.IsLive {
		return domain.Participant{}, fmt.Errorf("add participant to room %d: %w", roomID, domain.ErrRoomEnded)
	}
	if _, _, found := rs.find(userID); found {
		return domain.Participant{}, fmt.Errorf("user %d already in room %d: %w", userID, roomID, domain.ErrConflict)
	}
	p := domain.Participant{
		RoomID:   roomID,
		UserID:   userID,
		Role:     role,
		IsMuted:  muted,
		JoinedAt: time.Now(),
	}
	if role.CanSpeak() {
		rs.speakers = append(rs.speakers, p)
	} else {
		rs.listeners = append(rs.listeners, p)
	}
	log.Debug().Str("module", "store").Int("room_id", int(roomID)).Int("user_id", int(userID)).Str("role", string(role)).Msg("participant added")
	return p, nil
}

// RemoveParticipant drops a user from whichever collection holds it. An
// absent user id is a no-op so leaving twice is harmless, and removal also
// works on ended rooms.
func (s *Store) RemoveParticipant(ctx context.Context, roomID domain.RoomID, userID domain.UserID) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rs, ok := s.rooms[roomID]
	if !ok {
		return fmt.Errorf("room %d: %w", roomID, domain.ErrNotFound)
	}
	rs.speakers = removeByUser(rs.speakers, userID)
	rs.listeners = removeByUser(rs.listeners, userID)
	log.Debug().Str("module", "store").Int("room_id", int(roomID)).Int("user_id", int(userID)).Msg("participant removed")
	return nil
}

// UpdateParticipant applies a partial update. A role change that crosses the
// speaker/listener boundary moves the record between collections; the source
// always deletes and the destination inserts, so an id can never end up in
// both.
func (s *Store) UpdateParticipant(ctx context.Context, roomID domain.RoomID, userID domain.UserID, upd domain.ParticipantUpdate) (domain.Participant, error) {
	if err := ctxErr(ctx); err != nil {
		return domain.Participant{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rs, ok := s.rooms[roomID]
	if !ok {
		return domain.Participant{}, fmt.Errorf("room %d: %w", roomID, domain.ErrNotFound)
	}
	if !rs.meta.IsLive {
		return domain.Participant{}, fmt.Errorf("update participant in room %d: %w", roomID, domain.ErrRoomEnded)
	}
	coll, idx, found := rs.find(userID)
	if !found {
		return domain.Participant{}, fmt.Errorf("participant %d in room %d: %w", userID, roomID, domain.ErrNotFound)
	}

	p := (*coll)[idx]
	if upd.Role != nil {
		p.Role = *upd.Role
	}
	if upd.IsMuted != nil {
		p.IsMuted = *upd.IsMuted
	}
	if upd.IsSpeaking != nil {
		p.IsSpeaking = *upd.IsSpeaking
	}
	if !p.Role.CanSpeak() && p.IsSpeaking {
		if upd.IsSpeaking != nil && *upd.IsSpeaking {
			ve := domain.NewValidationError().Add("isSpeaking", "listeners cannot speak")
			return domain.Participant{}, ve
		}
		// Demoted mid-speech: the flag falls with the role.
		p.IsSpeaking = false
	}

	wasSpeaker := coll == &rs.speakers
	if p.Role.CanSpeak() == wasSpeaker {
		(*coll)[idx] = p
	} else {
		*coll = append((*coll)[:idx], (*coll)[idx+1:]...)
		if p.Role.CanSpeak() {
			rs.speakers = append(rs.speakers, p)
		} else {
			rs.listeners = append(rs.listeners, p)
		}
		log.Debug().Str("module", "store").Int("room_id", int(roomID)).Int("user_id", int(userID)).Str("role", string(p.Role)).Msg("participant moved")
	}
	return p, nil
}

// Participants returns the union of both collections, speakers first.
func (s *Store) Participants(ctx context.Context, roomID domain.RoomID) ([]domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rs, ok := s.rooms[roomID]
	if !ok {
		return nil, fmt.Errorf("room %d: %w", roomID, domain.ErrNotFound)
	}
	out := make([]domain.Participant, 0, len(rs.speakers)+len(rs.listeners))
	out = append(out, rs.speakers...)
	out = append(out, rs.listeners...)
	return out, nil
}

// ---------------------------------------------------------------------------
// internals

func (rs *roomState) find(id domain.UserID) (coll *[]domain.Participant, idx int, found bool) {
	for i, p := range rs.speakers {
		if p.UserID == id {
			return &rs.speakers, i, true
		}
	}
	for i, p := range rs.listeners {
		if p.UserID == id {
			return &rs.listeners, i, true
		}
	}
	return nil, 0, false
}

func removeByUser(ps []domain.Participant, id domain.UserID) []domain.Participant {
	for i, p := range ps {
		if p.UserID == id {
			return append(ps[:i], ps[i+1:]...)
		}
	}
	return ps
}

func snapshot(rs *roomState) domain.Room {
	r := rs.meta
	r.Speakers = append([]domain.Participant(nil), rs.speakers...)
	r.Listeners = append([]domain.Participant(nil), rs.listeners...)
	return r
}

func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
