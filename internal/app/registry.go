// Package app tracks which client is who and which room session it has
// open. One live room session per client token.
package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/avray/openmic/internal/domain"
	"github.com/avray/openmic/internal/session"
)

// SessionID is the client token from the cookie middleware.
type SessionID string

type sessionEntry struct {
	Controller *session.Controller
	Cancel     context.CancelFunc
}

type Registry struct {
	mu       sync.RWMutex
	users    map[SessionID]domain.UserID
	sessions map[SessionID]*sessionEntry
}

func NewRegistry() *Registry {
	return &Registry{
		users:    make(map[SessionID]domain.UserID),
		sessions: make(map[SessionID]*sessionEntry),
	}
}

func (r *Registry) BindUser(sid SessionID, userID domain.UserID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[sid] = userID
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Int("user_id", int(userID)).Msg("bound user")
}

func (r *Registry) UserOf(sid SessionID) (domain.UserID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.users[sid]
	return id, ok
}

// BindSession replaces any previous room session for the client; the caller
// is responsible for tearing the old one down first.
func (r *Registry) BindSession(sid SessionID, ctrl *session.Controller, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sid] = &sessionEntry{Controller: ctrl, Cancel: cancel}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Int("room_id", int(ctrl.RoomID())).Msg("bound session")
}

func (r *Registry) SessionOf(sid SessionID) (*session.Controller, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok {
		return nil, false
	}
	return e.Controller, true
}

// Unbind drops the session entry and cancels its context. The controller's
// Leave is the caller's job; Unbind only releases registry state.
func (r *Registry) Unbind(sid SessionID) {
	r.mu.Lock()
	e, ok := r.sessions[sid]
	delete(r.sessions, sid)
	r.mu.Unlock()
	if ok && e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unbound session")
}
