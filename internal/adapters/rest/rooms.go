package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/avray/openmic/internal/domain"
	"github.com/avray/openmic/internal/store"
)

type createRoomRequest struct {
	Name        string `json:"name" binding:"required"`
	Topic       string `json:"topic" binding:"required"`
	Description string `json:"description"`
	CreatedBy   int    `json:"createdBy" binding:"required"`
}

func (h *handlers) listRooms(c *gin.Context) {
	topic, err := domain.ParseTopicFilter(c.Query("topic"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "unknown topic"})
		return
	}
	rooms, err := h.store.LiveRooms(c.Request.Context(), topic)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rooms)
}

func (h *handlers) getRoom(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	room, err := h.store.RoomByID(c.Request.Context(), domain.RoomID(id))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (h *handlers) createRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindingError(c, err)
		return
	}
	room, err := h.store.CreateRoom(c.Request.Context(), store.CreateRoomParams{
		Name:        req.Name,
		Topic:       req.Topic,
		Description: req.Description,
		CreatedBy:   domain.UserID(req.CreatedBy),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, room)
}

func (h *handlers) endRoom(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	room, err := h.store.EndRoom(c.Request.Context(), domain.RoomID(id))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

// intParam parses a numeric path parameter, answering 400 itself on junk.
func intParam(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid " + name})
		return 0, false
	}
	return v, true
}
