package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/avray/openmic/internal/domain"
)

type createUserRequest struct {
	Username  string `json:"username" binding:"required,max=36"`
	Password  string `json:"password" binding:"required"`
	Name      string `json:"name" binding:"required"`
	AvatarURL string `json:"avatarUrl"`
}

func (h *handlers) getUser(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	// The password never serializes; the json tag on the entity drops it.
	u, err := h.store.UserByID(c.Request.Context(), domain.UserID(id))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *handlers) createUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindingError(c, err)
		return
	}
	u, err := domain.NewUser(req.Username, req.Password, req.Name, req.AvatarURL)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	created, err := h.store.CreateUser(c.Request.Context(), u)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}
