package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bild-story/compiler"
	"bild-story/snapshot"
	"bild-story/storage"
	"bild-story/story"
)

// ============================================
// Persistenza
// ============================================

// load carica una storia registrando la metrica
func (s *Server) load(ctx context.Context, id string) (*story.Graph, error) {
	g, err := s.repo.Load(ctx, id)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.metrics.RecordStoryOperation("load", err)
		return nil, err
	}
	s.metrics.RecordStoryOperation("load", nil)
	return g, err
}

// save salva la storia e notifica i client
func (s *Server) save(ctx context.Context, id string, g *story.Graph, event string) error {
	err := s.repo.Save(ctx, id, g)
	s.metrics.RecordStoryOperation("save", err)
	if err != nil {
		return err
	}
	s.hub.broadcast(Message{Type: event, StoryID: id, Timestamp: time.Now()})
	return nil
}

// loadOrCreate carica la storia; se non esiste crea il workspace di default
func (s *Server) loadOrCreate(ctx context.Context, id string) (*story.Graph, bool, error) {
	s.storyMu.Lock()
	defer s.storyMu.Unlock()

	g, err := s.load(ctx, id)
	if err == nil {
		return g, false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, false, err
	}

	g = story.NewDefault()
	if err := s.save(ctx, id, g, "story_created"); err != nil {
		return nil, false, err
	}
	s.logger.Info("📖 Nuova storia creata", zap.String("story", id))
	return g, true, nil
}

// writeGraph risponde con lo snapshot JSON del grafo
func writeGraph(c *gin.Context, status int, g *story.Graph) {
	data, err := snapshot.Encode(g)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.Data(status, "application/json; charset=utf-8", data)
}

// ============================================
// Story Handlers
// ============================================

// listStories elenca le storie salvate
func (s *Server) listStories(c *gin.Context) {
	list, err := s.repo.List(c.Request.Context())
	s.metrics.RecordStoryOperation("list", err)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stories": list, "count": len(list)})
}

// getStory restituisce la storia, creandola se non esiste
func (s *Server) getStory(c *gin.Context) {
	g, created, err := s.loadOrCreate(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeGraph(c, status, g)
}

// putStory importa uno snapshot completo. Se il payload non è valido
// la storia salvata resta invariata.
func (s *Server) putStory(c *gin.Context) {
	id := c.Param("id")
	if err := storage.ValidateID(id); err != nil {
		respondError(c, s.logger, err)
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	g, err := snapshot.Decode(body)
	if err != nil {
		s.logger.Warn("⚠️ Import rifiutato", zap.String("story", id), zap.Error(err))
		respondError(c, s.logger, err)
		return
	}

	s.storyMu.Lock()
	defer s.storyMu.Unlock()
	if err := s.save(c.Request.Context(), id, g, "story_updated"); err != nil {
		respondError(c, s.logger, err)
		return
	}
	writeGraph(c, http.StatusOK, g)
}

// deleteStory rimuove una storia
func (s *Server) deleteStory(c *gin.Context) {
	id := c.Param("id")

	s.storyMu.Lock()
	err := s.repo.Delete(c.Request.Context(), id)
	s.storyMu.Unlock()

	s.metrics.RecordStoryOperation("delete", err)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	s.hub.broadcast(Message{Type: "story_deleted", StoryID: id, Timestamp: time.Now()})
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// getShare genera il link di condivisione
func (s *Server) getShare(c *gin.Context) {
	id := c.Param("id")
	g, err := s.load(c.Request.Context(), id)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}

	payload, err := snapshot.EncodeShare(g)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	link, err := snapshot.ShareURL(s.config.PublicURL, g)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "payload": payload, "url": link})
}

// ImportShareRequest richiesta di import da link o payload
type ImportShareRequest struct {
	Data string `json:"data"`
	URL  string `json:"url"`
}

// importShare sostituisce la storia con quella contenuta in un link di condivisione
func (s *Server) importShare(c *gin.Context) {
	id := c.Param("id")
	if err := storage.ValidateID(id); err != nil {
		respondError(c, s.logger, err)
		return
	}

	var req ImportShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	var (
		g   *story.Graph
		err error
	)
	switch {
	case req.URL != "":
		g, err = snapshot.ParseShareURL(req.URL)
	case req.Data != "":
		g, err = snapshot.DecodeShare(req.Data)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "data or url is required"})
		return
	}
	if err != nil {
		s.logger.Warn("⚠️ Link di condivisione non valido", zap.String("story", id), zap.Error(err))
		respondError(c, s.logger, err)
		return
	}

	s.storyMu.Lock()
	defer s.storyMu.Unlock()
	if err := s.save(c.Request.Context(), id, g, "story_updated"); err != nil {
		respondError(c, s.logger, err)
		return
	}
	writeGraph(c, http.StatusOK, g)
}

// exportJSON scarica lo snapshot indentato
func (s *Server) exportJSON(c *gin.Context) {
	id := c.Param("id")
	g, err := s.load(c.Request.Context(), id)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	data, err := snapshot.EncodeIndent(g)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.json"`, id))
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

// ExportPlayerRequest richiesta di export del player
type ExportPlayerRequest struct {
	GOOS   string `json:"goos"`
	GOARCH string `json:"goarch"`
	Strict bool   `json:"strict"`
}

// exportPlayer compila il player standalone con la storia incorporata
func (s *Server) exportPlayer(c *gin.Context) {
	if s.compiler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "player export is not configured"})
		return
	}

	var req ExportPlayerRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}
	}

	id := c.Param("id")
	g, err := s.load(c.Request.Context(), id)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}

	result, err := s.compiler.Compile(c.Request.Context(), id, g, s.dialect(id), &compiler.CompileOptions{
		GOOS:   req.GOOS,
		GOARCH: req.GOARCH,
		Strict: req.Strict,
	})
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"success":  false,
			"error":    err.Error(),
			"details":  result.ErrorMessage,
			"warnings": result.Warnings,
		})
		return
	}

	s.hub.broadcast(Message{Type: "player_exported", StoryID: id, Payload: result, Timestamp: time.Now()})
	c.JSON(http.StatusOK, gin.H{
		"success":     result.Success,
		"output_file": result.OutputFile,
		"warnings":    result.Warnings,
	})
}

// lintStory restituisce il report di validazione
func (s *Server) lintStory(c *gin.Context) {
	id := c.Param("id")
	g, err := s.load(c.Request.Context(), id)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, g.Validate(s.dialect(id)))
}
