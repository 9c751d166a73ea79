// Package signal is the room event channel: one WebSocket per client over
// which room commands arrive (join, leave, mute, raise_hand) and session
// events stream back (speaker starts/stops, participant updates).
package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/avray/openmic/internal/app"
	"github.com/avray/openmic/internal/config"
	"github.com/avray/openmic/internal/store"
)

var ErrBackpressure = errors.New("backpressure")

type RoomWSController struct {
	Store *store.Store
	Reg   *app.Registry
	Cfg   *config.Config
}

func NewRoomWSController(st *store.Store, reg *app.Registry, cfg *config.Config) *RoomWSController {
	return &RoomWSController{Store: st, Reg: reg, Cfg: cfg}
}

type wsRoomConn struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

func (c *wsRoomConn) TrySend(b []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- b:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsRoomConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (ctl *RoomWSController) HandleRoom(ctx context.Context, c *gin.Context) {
	sid := app.SessionID(c.GetString("client_token"))
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := &wsRoomConn{
		conn: ws,
		send: make(chan []byte, 32),
	}

	connCtx, cancel := context.WithCancel(ctx)
	go ctl.writePump(connCtx, conn)
	go func() {
		defer cancel()
		ctl.readPump(connCtx, sid, conn)
		ctl.teardown(sid)
	}()
}

// teardown closes the client's room session when the socket goes away, so
// a dropped connection behaves like an explicit leave.
func (ctl *RoomWSController) teardown(sid app.SessionID) {
	if ctrl, ok := ctl.Reg.SessionOf(sid); ok {
		if err := ctrl.Leave(context.Background()); err != nil {
			log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("teardown leave")
		}
		ctl.Reg.Unbind(sid)
	}
}
