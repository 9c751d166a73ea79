package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/avray/openmic/internal/domain"
)

// writeError maps the error taxonomy onto HTTP statuses. Unknown errors
// never leak details past a generic 500.
func writeError(c *gin.Context, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"message": "validation failed", "errors": ve.Fields})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "not found"})
	case errors.Is(err, domain.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"message": err.Error()})
	default:
		log.Error().Err(err).Str("module", "adapters.rest").Msg("unexpected store error")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
	}
}

// writeBindingError turns gin/validator binding failures into the same
// structured field-error shape the store's validation produces.
func writeBindingError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = "failed on " + fe.Tag()
		}
		c.JSON(http.StatusBadRequest, gin.H{"message": "validation failed", "errors": fields})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"message": "malformed request body"})
}
