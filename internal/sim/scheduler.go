// Package sim simulates natural turn-taking among N speaker slots with
// randomized timers. Slots are plain indices 0..N-1; mapping them to stable
// participant identities is the caller's job.
package sim

import (
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Turn-taking tuning. One tick either pauses or hands the floor to a new
// slot for a speaking turn, with a short gap between turns.
const (
	initialDelay = 500 * time.Millisecond
	pauseProb    = 0.2
	pauseMin     = 500 * time.Millisecond
	pauseMax     = 1500 * time.Millisecond
	turnMin      = 1500 * time.Millisecond
	turnMax      = 4000 * time.Millisecond
	gapMin       = 200 * time.Millisecond
	gapMax       = 1000 * time.Millisecond
)

// Callbacks notify the owner of slot activity. All callbacks fire outside
// the scheduler's lock, on the timer goroutine.
type Callbacks struct {
	OnSpeakerStart  func(slot int)
	OnSpeakerStop   func(slot int)
	OnSimulationEnd func()
}

type state int

const (
	stateIdle state = iota
	stateRunning
	stateStopped
)

// Options configure a Scheduler. Zero values fall back to real timers, a
// time-seeded rand and an unbounded run.
type Options struct {
	Slots    int
	Duration time.Duration
	Rand     *rand.Rand
	Timers   TimerFactory
}

// Scheduler cycles Speaking(slot) and Paused sub-states while running.
// Exactly one wake timer is pending at any moment; rescheduling replaces
// the handle, it never accumulates.
type Scheduler struct {
	mu       sync.Mutex
	n        int
	st       state
	active   int // slot currently speaking, -1 when none
	last     int // previous speaker, avoided on the next pick
	rng      *rand.Rand
	timers   TimerFactory
	wake     Timer
	deadline Timer
	duration time.Duration
	cb       Callbacks
}

func New(opts Options, cb Callbacks) *Scheduler {
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	timers := opts.Timers
	if timers == nil {
		timers = RealTimers()
	}
	return &Scheduler{
		n:        opts.Slots,
		st:       stateIdle,
		active:   -1,
		last:     -1,
		rng:      rng,
		timers:   timers,
		duration: opts.Duration,
		cb:       cb,
	}
}

// Start moves Idle -> Running and schedules the first turn. Calling Start
// on a running or stopped scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.st != stateIdle {
		s.mu.Unlock()
		return
	}
	s.st = stateRunning
	s.wake = s.timers.AfterFunc(initialDelay, s.takeTurn)
	if s.duration > 0 {
		s.deadline = s.timers.AfterFunc(s.duration, s.Stop)
	}
	s.mu.Unlock()
	log.Debug().Str("module", "sim").Int("slots", s.n).Msg("simulation started")
}

// Stop is idempotent and terminal. It cancels all pending timers, emits a
// stop for a slot left mid-speech and fires OnSimulationEnd exactly once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.st == stateStopped {
		s.mu.Unlock()
		return
	}
	s.st = stateStopped
	if s.wake != nil {
		s.wake.Stop()
		s.wake = nil
	}
	if s.deadline != nil {
		s.deadline.Stop()
		s.deadline = nil
	}
	interrupted := s.active
	s.active = -1
	s.mu.Unlock()

	if interrupted >= 0 {
		s.emitStop(interrupted)
	}
	if s.cb.OnSimulationEnd != nil {
		s.cb.OnSimulationEnd()
	}
	log.Debug().Str("module", "sim").Msg("simulation stopped")
}

// takeTurn is the scheduling tick: close out any current speaker, then
// either pause or hand the floor to a new slot.
func (s *Scheduler) takeTurn() {
	s.mu.Lock()
	if s.st != stateRunning {
		s.mu.Unlock()
		return
	}
	stopSlot := s.active
	s.active = -1

	if s.n == 0 || s.rng.Float64() < pauseProb {
		s.wake = s.timers.AfterFunc(s.between(pauseMin, pauseMax), s.takeTurn)
		s.mu.Unlock()
		if stopSlot >= 0 {
			s.emitStop(stopSlot)
		}
		return
	}

	next := s.pick()
	s.active = next
	s.last = next
	s.wake = s.timers.AfterFunc(s.between(turnMin, turnMax), s.endTurn)
	s.mu.Unlock()

	if stopSlot >= 0 {
		s.emitStop(stopSlot)
	}
	if s.cb.OnSpeakerStart != nil {
		s.cb.OnSpeakerStart(next)
	}
}

// endTurn closes a finished speaking turn and schedules the next tick after
// a short inter-turn gap.
func (s *Scheduler) endTurn() {
	s.mu.Lock()
	if s.st != stateRunning {
		s.mu.Unlock()
		return
	}
	slot := s.active
	s.active = -1
	s.wake = s.timers.AfterFunc(s.between(gapMin, gapMax), s.takeTurn)
	s.mu.Unlock()

	if slot >= 0 {
		s.emitStop(slot)
	}
}

// pick chooses the next speaker uniformly, avoiding the previous one when
// there is a choice.
func (s *Scheduler) pick() int {
	if s.n == 1 {
		return 0
	}
	for {
		slot := s.rng.Intn(s.n)
		if slot != s.last {
			return slot
		}
	}
}

func (s *Scheduler) between(lo, hi time.Duration) time.Duration {
	return lo + time.Duration(s.rng.Int63n(int64(hi-lo)))
}

func (s *Scheduler) emitStop(slot int) {
	if s.cb.OnSpeakerStop != nil {
		s.cb.OnSpeakerStop(slot)
	}
}
