// Package session orchestrates one user's visit to one room: it scopes a
// conversation simulation to the room's eligible speakers, applies slot
// events back onto the store and mediates the user's own actions.
package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/avray/openmic/internal/domain"
	"github.com/avray/openmic/internal/sim"
	"github.com/avray/openmic/internal/store"
)

var ErrSessionClosed = errors.New("session closed")

const defaultRaiseHandDelay = 3 * time.Second

// Options wire a controller. Timers and Rand default to the real thing;
// tests inject fakes.
type Options struct {
	Store          *store.Store
	Sink           EventSink
	RoomID         domain.RoomID
	UserID         domain.UserID
	SimDuration    time.Duration
	RaiseHandDelay time.Duration
	Timers         sim.TimerFactory
	Rand           *rand.Rand
}

// Controller lives for one room visit. It is not a singleton; the registry
// creates one per joining client and tears it down on leave.
type Controller struct {
	store          *store.Store
	sink           EventSink
	roomID         domain.RoomID
	userID         domain.UserID
	simDuration    time.Duration
	raiseHandDelay time.Duration
	timers         sim.TimerFactory
	rng            *rand.Rand

	mu         sync.Mutex
	sched      *sim.Scheduler
	slots      []domain.UserID // slot index -> user id, fixed per scheduler
	handTimer  sim.Timer
	handRaised bool
	closed     bool
}

func NewController(opts Options) *Controller {
	timers := opts.Timers
	if timers == nil {
		timers = sim.RealTimers()
	}
	delay := opts.RaiseHandDelay
	if delay <= 0 {
		delay = defaultRaiseHandDelay
	}
	return &Controller{
		store:          opts.Store,
		sink:           opts.Sink,
		roomID:         opts.RoomID,
		userID:         opts.UserID,
		simDuration:    opts.SimDuration,
		raiseHandDelay: delay,
		timers:         timers,
		rng:            opts.Rand,
	}
}

// Start fetches the room and boots a simulation over its eligible speakers:
// unmuted, speaking-capable, and not the local user. The slot mapping is
// fixed for the scheduler's lifetime; later mute changes don't rebuild it,
// only a fresh session does.
func (c *Controller) Start(ctx context.Context) (domain.Room, error) {
	room, err := c.store.RoomByID(ctx, c.roomID)
	if err != nil {
		return domain.Room{}, fmt.Errorf("start session: %w", err)
	}

	slots := make([]domain.UserID, 0, len(room.Speakers))
	for _, p := range room.Speakers {
		if !p.IsMuted && p.UserID != c.userID {
			slots = append(slots, p.UserID)
		}
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return domain.Room{}, ErrSessionClosed
	}
	c.slots = slots
	if room.IsLive && len(slots) > 0 {
		c.sched = sim.New(sim.Options{
			Slots:    len(slots),
			Duration: c.simDuration,
			Rand:     c.rng,
			Timers:   c.timers,
		}, sim.Callbacks{
			OnSpeakerStart:  c.onSpeakerStart,
			OnSpeakerStop:   c.onSpeakerStop,
			OnSimulationEnd: c.onSimulationEnd,
		})
		c.sched.Start()
	}
	c.mu.Unlock()

	log.Info().Str("module", "session").Int("room_id", int(c.roomID)).Int("user_id", int(c.userID)).Int("slots", len(slots)).Msg("session started")
	return room, nil
}

// ToggleMute flips the local user's mute flag. Muting while marked speaking
// also clears the speaking flag so it can't leak past the mute.
func (c *Controller) ToggleMute(ctx context.Context) (domain.Participant, error) {
	if c.isClosed() {
		return domain.Participant{}, ErrSessionClosed
	}
	room, err := c.store.RoomByID(ctx, c.roomID)
	if err != nil {
		return domain.Participant{}, c.surface(err)
	}
	p, ok := room.Participant(c.userID)
	if !ok {
		return domain.Participant{}, c.surface(fmt.Errorf("local user %d in room %d: %w", c.userID, c.roomID, domain.ErrNotFound))
	}

	muted := !p.IsMuted
	upd := domain.ParticipantUpdate{IsMuted: &muted}
	if muted && p.IsSpeaking {
		off := false
		upd.IsSpeaking = &off
	}
	updated, err := c.store.UpdateParticipant(ctx, c.roomID, c.userID, upd)
	if err != nil {
		return domain.Participant{}, c.surface(err)
	}
	c.emit(Event{Type: EventParticipantUpdated, RoomID: c.roomID, Participant: &updated})
	return updated, nil
}

// RaiseHand flags the local listener and arms a timer that stands in for a
// host-approval flow: after the configured delay the user is promoted.
func (c *Controller) RaiseHand(ctx context.Context) error {
	if c.isClosed() {
		return ErrSessionClosed
	}
	room, err := c.store.RoomByID(ctx, c.roomID)
	if err != nil {
		return c.surface(err)
	}
	p, ok := room.Participant(c.userID)
	if !ok {
		return c.surface(fmt.Errorf("local user %d in room %d: %w", c.userID, c.roomID, domain.ErrNotFound))
	}
	if p.Role.CanSpeak() {
		return fmt.Errorf("user %d is already a speaker: %w", c.userID, domain.ErrConflict)
	}

	c.mu.Lock()
	if c.handRaised {
		c.mu.Unlock()
		return nil
	}
	c.handRaised = true
	c.handTimer = c.timers.AfterFunc(c.raiseHandDelay, func() {
		if err := c.BecomeSpeaker(context.Background()); err != nil && !errors.Is(err, ErrSessionClosed) {
			log.Warn().Err(err).Str("module", "session").Int("user_id", int(c.userID)).Msg("auto-promotion failed")
		}
	})
	c.mu.Unlock()

	c.emit(Event{Type: EventHandRaised, RoomID: c.roomID, Participant: &p})
	return nil
}

// BecomeSpeaker moves the local listener into the speakers collection with
// role speaker, keeping the current mute preference and a clean speaking
// flag. The raised-hand state is cleared either way.
func (c *Controller) BecomeSpeaker(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrSessionClosed
	}
	if c.handTimer != nil {
		c.handTimer.Stop()
		c.handTimer = nil
	}
	c.handRaised = false
	c.mu.Unlock()

	room, err := c.store.RoomByID(ctx, c.roomID)
	if err != nil {
		return c.surface(err)
	}
	p, ok := room.Participant(c.userID)
	if !ok {
		return c.surface(fmt.Errorf("local user %d in room %d: %w", c.userID, c.roomID, domain.ErrNotFound))
	}
	if p.Role.CanSpeak() {
		return nil
	}

	role := domain.RoleSpeaker
	speaking := false
	updated, err := c.store.UpdateParticipant(ctx, c.roomID, c.userID, domain.ParticipantUpdate{
		Role:       &role,
		IsSpeaking: &speaking,
	})
	if err != nil {
		return c.surface(err)
	}
	c.emit(Event{Type: EventPromoted, RoomID: c.roomID, Participant: &updated})
	return nil
}

// Leave tears the session down: the scheduler stops first so any in-flight
// speaking flag is cleared through the store before the participant record
// goes away. Leave is idempotent.
func (c *Controller) Leave(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	sched := c.sched
	c.sched = nil
	if c.handTimer != nil {
		c.handTimer.Stop()
		c.handTimer = nil
	}
	c.handRaised = false
	c.mu.Unlock()

	if sched != nil {
		sched.Stop()
	}

	err := c.store.RemoveParticipant(ctx, c.roomID, c.userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		log.Warn().Err(err).Str("module", "session").Int("room_id", int(c.roomID)).Msg("leave: remove participant")
	}

	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.emit(Event{Type: EventLeft, RoomID: c.roomID})
	log.Info().Str("module", "session").Int("room_id", int(c.roomID)).Int("user_id", int(c.userID)).Msg("session closed")
	return nil
}

// HandRaised reports the pending request flag.
func (c *Controller) HandRaised() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handRaised
}

func (c *Controller) RoomID() domain.RoomID { return c.roomID }
func (c *Controller) UserID() domain.UserID { return c.userID }

// ---------------------------------------------------------------------------
// scheduler callbacks

func (c *Controller) onSpeakerStart(slot int) {
	c.applySpeaking(slot, true, EventSpeakerStarted)
}

func (c *Controller) onSpeakerStop(slot int) {
	c.applySpeaking(slot, false, EventSpeakerStopped)
}

func (c *Controller) onSimulationEnd() {
	c.emit(Event{Type: EventSimulationEnded, RoomID: c.roomID})
}

func (c *Controller) applySpeaking(slot int, speaking bool, ev EventType) {
	c.mu.Lock()
	if c.closed || slot < 0 || slot >= len(c.slots) {
		c.mu.Unlock()
		return
	}
	userID := c.slots[slot]
	c.mu.Unlock()

	updated, err := c.store.UpdateParticipant(context.Background(), c.roomID, userID, domain.ParticipantUpdate{
		IsSpeaking: &speaking,
	})
	if err != nil {
		// Room ended or participant left under us; recoverable, the UI
		// gets told and navigates back to the listing.
		c.surface(err)
		return
	}
	c.emit(Event{Type: ev, RoomID: c.roomID, Participant: &updated})
}

// ---------------------------------------------------------------------------

func (c *Controller) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Controller) emit(ev Event) {
	if c.sink != nil {
		c.sink.RoomEvent(ev)
	}
}

// surface forwards a store error to the sink as a recoverable notification
// and hands it back to the caller unchanged.
func (c *Controller) surface(err error) error {
	log.Debug().Err(err).Str("module", "session").Int("room_id", int(c.roomID)).Msg("store error surfaced")
	c.emit(Event{Type: EventError, RoomID: c.roomID, Message: err.Error()})
	return err
}
