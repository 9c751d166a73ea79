package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/avray/openmic/internal/domain"
)

type addParticipantRequest struct {
	UserID  int    `json:"userId" binding:"required"`
	Role    string `json:"role" binding:"required"`
	IsMuted bool   `json:"isMuted"`
}

type updateParticipantRequest struct {
	Role       *string `json:"role"`
	IsMuted    *bool   `json:"isMuted"`
	IsSpeaking *bool   `json:"isSpeaking"`
}

func (h *handlers) addParticipant(c *gin.Context) {
	roomID, ok := intParam(c, "id")
	if !ok {
		return
	}
	var req addParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindingError(c, err)
		return
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "validation failed", "errors": gin.H{"role": "must be host, speaker or listener"}})
		return
	}
	p, err := h.store.AddParticipant(c.Request.Context(), domain.RoomID(roomID), domain.UserID(req.UserID), role, req.IsMuted)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *handlers) removeParticipant(c *gin.Context) {
	roomID, ok := intParam(c, "id")
	if !ok {
		return
	}
	userID, ok := intParam(c, "userId")
	if !ok {
		return
	}
	// Leave is tolerant: an unknown room or absent participant still answers
	// 204 so clients can always navigate away.
	_ = h.store.RemoveParticipant(c.Request.Context(), domain.RoomID(roomID), domain.UserID(userID))
	c.Status(http.StatusNoContent)
}

func (h *handlers) updateParticipant(c *gin.Context) {
	roomID, ok := intParam(c, "id")
	if !ok {
		return
	}
	userID, ok := intParam(c, "userId")
	if !ok {
		return
	}
	var req updateParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindingError(c, err)
		return
	}

	var upd domain.ParticipantUpdate
	if req.Role != nil {
		role, err := domain.ParseRole(*req.Role)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "validation failed", "errors": gin.H{"role": "must be host, speaker or listener"}})
			return
		}
		upd.Role = &role
	}
	upd.IsMuted = req.IsMuted
	upd.IsSpeaking = req.IsSpeaking

	p, err := h.store.UpdateParticipant(c.Request.Context(), domain.RoomID(roomID), domain.UserID(userID), upd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
