// Package rest exposes the HTTP API under /api and upgrades the room event
// channel. Route shape and middleware follow the server's cookie-token
// session model: every client gets a stable token it can later bind a user
// and a room session to.
package rest

import (
	"context"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/avray/openmic/internal/adapters/signal"
	"github.com/avray/openmic/internal/app"
	"github.com/avray/openmic/internal/config"
	"github.com/avray/openmic/internal/store"
)

func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = uuid.NewString()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, st *store.Store, reg *app.Registry) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	cookieStore := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("OpenMicSession", cookieStore))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	h := &handlers{store: st}
	api := r.Group("/api")

	api.GET("/rooms", h.listRooms)
	api.GET("/rooms/:id", h.getRoom)
	api.POST("/rooms", h.createRoom)
	api.PATCH("/rooms/:id/end", h.endRoom)

	api.POST("/rooms/:id/participants", h.addParticipant)
	api.DELETE("/rooms/:id/participants/:userId", h.removeParticipant)
	api.PATCH("/rooms/:id/participants/:userId", h.updateParticipant)

	api.GET("/users/:id", h.getUser)
	api.POST("/users", h.createUser)

	ws := signal.NewRoomWSController(st, reg, cfg)
	api.GET("/ws/room", func(c *gin.Context) {
		log.Info().Str("module", "adapters.rest").Str("sid", c.GetString("client_token")).Msg("ws room endpoint hit")
		ws.HandleRoom(ctx, c)
	})

	log.Info().Str("module", "adapters.rest").Str("static", cfg.StaticPath).Msg("router setup")
	return r
}

type handlers struct {
	store *store.Store
}
