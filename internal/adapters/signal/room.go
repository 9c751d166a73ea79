package signal

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/avray/openmic/internal/app"
	"github.com/avray/openmic/internal/domain"
	"github.com/avray/openmic/internal/session"
)

// wsSink streams session events to one client connection as JSON.
type wsSink struct {
	ctl  *RoomWSController
	conn *wsRoomConn
}

func (s *wsSink) RoomEvent(ev session.Event) {
	s.ctl.sendJSON(s.conn, ev)
}

type participantView struct {
	domain.Participant
	IsYou bool `json:"isYou"`
}

type roomStateView struct {
	Type      string            `json:"type"`
	Room      domain.Room       `json:"room"`
	Speakers  []participantView `json:"speakers"`
	Listeners []participantView `json:"listeners"`
}

func (ctl *RoomWSController) handleJoin(ctx context.Context, sid app.SessionID, c *wsRoomConn, data []byte) {
	var p struct {
		Type    string `json:"type"`
		RoomID  int    `json:"room_id"`
		UserID  int    `json:"user_id"`
		Role    string `json:"role"`
		IsMuted bool   `json:"is_muted"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join payload")
		ctl.sendError(c, "bad_payload")
		return
	}
	roomID := domain.RoomID(p.RoomID)
	userID := domain.UserID(p.UserID)

	role := domain.RoleListener
	if p.Role != "" {
		parsed, err := domain.ParseRole(p.Role)
		if err != nil {
			ctl.sendError(c, "unknown role")
			return
		}
		role = parsed
	}

	// One live session per client: joining a new room leaves the old one.
	if prev, ok := ctl.Reg.SessionOf(sid); ok {
		if err := prev.Leave(ctx); err != nil {
			log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("leave previous session")
		}
		ctl.Reg.Unbind(sid)
	}

	room, err := ctl.Store.RoomByID(ctx, roomID)
	if err != nil {
		ctl.sendError(c, "room does not exist")
		return
	}
	if _, seated := room.Participant(userID); !seated {
		if _, err := ctl.Store.AddParticipant(ctx, roomID, userID, role, p.IsMuted); err != nil {
			ctl.sendError(c, err.Error())
			return
		}
	}

	ctl.Reg.BindUser(sid, userID)

	ctrl := session.NewController(session.Options{
		Store:          ctl.Store,
		Sink:           &wsSink{ctl: ctl, conn: c},
		RoomID:         roomID,
		UserID:         userID,
		SimDuration:    ctl.Cfg.Sim.Duration,
		RaiseHandDelay: ctl.Cfg.Sim.RaiseHandDelay,
	})
	sessCtx, cancel := context.WithCancel(ctx)
	room, err = ctrl.Start(sessCtx)
	if err != nil {
		cancel()
		ctl.sendError(c, err.Error())
		return
	}
	ctl.Reg.BindSession(sid, ctrl, cancel)

	log.Info().Str("module", "signal").Str("sid", string(sid)).Int("room_id", int(roomID)).Msg("join")
	ctl.sendJSON(c, buildRoomState(room, userID))
}

func (ctl *RoomWSController) handleLeave(sid app.SessionID, c *wsRoomConn) {
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("leave")
	ctrl, ok := ctl.Reg.SessionOf(sid)
	if !ok {
		ctl.sendError(c, "not in a room")
		return
	}
	if err := ctrl.Leave(context.Background()); err != nil {
		ctl.sendError(c, err.Error())
		return
	}
	ctl.Reg.Unbind(sid)
}

func (ctl *RoomWSController) handleMute(sid app.SessionID, c *wsRoomConn) {
	ctrl, ok := ctl.Reg.SessionOf(sid)
	if !ok {
		ctl.sendError(c, "not in a room")
		return
	}
	if _, err := ctrl.ToggleMute(context.Background()); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("toggle mute")
	}
}

func (ctl *RoomWSController) handleRaiseHand(sid app.SessionID, c *wsRoomConn) {
	ctrl, ok := ctl.Reg.SessionOf(sid)
	if !ok {
		ctl.sendError(c, "not in a room")
		return
	}
	if err := ctrl.RaiseHand(context.Background()); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("raise hand")
	}
}

func buildRoomState(room domain.Room, you domain.UserID) roomStateView {
	view := roomStateView{Type: "room_state", Room: room}
	for _, p := range room.Speakers {
		view.Speakers = append(view.Speakers, participantView{Participant: p, IsYou: p.UserID == you})
	}
	for _, p := range room.Listeners {
		view.Listeners = append(view.Listeners, participantView{Participant: p, IsYou: p.UserID == you})
	}
	return view
}
