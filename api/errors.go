package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bild-story/snapshot"
	"bild-story/storage"
	"bild-story/story"
	"bild-story/traversal"
)

// errorStatus traduce gli errori di dominio in status HTTP
func errorStatus(err error) int {
	var choiceErr *traversal.ChoiceError
	var targetErr *traversal.TargetError

	switch {
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, story.ErrSceneNotFound),
		errors.Is(err, story.ErrChoiceNotFound),
		errors.Is(err, story.ErrVariableNotFound),
		errors.Is(err, errPreviewNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrInvalidID), snapshot.IsDecodeError(err):
		return http.StatusBadRequest
	case errors.As(err, &choiceErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &targetErr), errors.Is(err, traversal.ErrNoCurrentScene):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError scrive l'errore come JSON; i 5xx vengono loggati
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("❌ Errore richiesta",
			zap.String("route", c.FullPath()),
			zap.Error(err),
		)
	}
	c.JSON(status, gin.H{"success": false, "error": err.Error()})
}
