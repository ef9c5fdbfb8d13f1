package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"bild-story/story"
)

// mutate carica la storia, applica la modifica su una copia e la salva.
// Se apply fallisce la storia salvata resta invariata.
func (s *Server) mutate(c *gin.Context, status int, apply func(g *story.Graph) (any, error)) {
	id := c.Param("id")
	ctx := c.Request.Context()

	s.storyMu.Lock()
	defer s.storyMu.Unlock()

	g, err := s.load(ctx, id)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}

	work := g.Clone()
	out, err := apply(work)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	if err := s.save(ctx, id, work, "story_updated"); err != nil {
		respondError(c, s.logger, err)
		return
	}
	if out == nil {
		c.JSON(status, gin.H{"success": true, "start_scene_id": work.StartSceneID})
		return
	}
	c.JSON(status, out)
}

func bindOptional(c *gin.Context, dst any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return false
	}
	return true
}

// ============================================
// Scene
// ============================================

// AddSceneRequest richiesta di creazione scena
type AddSceneRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (s *Server) addScene(c *gin.Context) {
	var req AddSceneRequest
	if !bindOptional(c, &req) {
		return
	}
	s.mutate(c, http.StatusCreated, func(g *story.Graph) (any, error) {
		return g.AddScene(req.Title, req.Body), nil
	})
}

func (s *Server) updateScene(c *gin.Context) {
	var patch story.ScenePatch
	if !bindOptional(c, &patch) {
		return
	}
	s.mutate(c, http.StatusOK, func(g *story.Graph) (any, error) {
		return g.UpdateScene(c.Param("sceneId"), patch)
	})
}

func (s *Server) deleteScene(c *gin.Context) {
	s.mutate(c, http.StatusOK, func(g *story.Graph) (any, error) {
		return nil, g.DeleteScene(c.Param("sceneId"))
	})
}

// SetStartRequest richiesta di cambio scena iniziale
type SetStartRequest struct {
	SceneID string `json:"scene_id" binding:"required"`
}

func (s *Server) setStart(c *gin.Context) {
	var req SetStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	s.mutate(c, http.StatusOK, func(g *story.Graph) (any, error) {
		return nil, g.SetStart(req.SceneID)
	})
}

// ============================================
// Choice
// ============================================

func (s *Server) addChoice(c *gin.Context) {
	s.mutate(c, http.StatusCreated, func(g *story.Graph) (any, error) {
		return g.AddChoice(c.Param("sceneId"))
	})
}

func (s *Server) updateChoice(c *gin.Context) {
	var patch story.ChoicePatch
	if !bindOptional(c, &patch) {
		return
	}
	s.mutate(c, http.StatusOK, func(g *story.Graph) (any, error) {
		return g.UpdateChoice(c.Param("sceneId"), c.Param("choiceId"), patch)
	})
}

func (s *Server) deleteChoice(c *gin.Context) {
	s.mutate(c, http.StatusOK, func(g *story.Graph) (any, error) {
		return nil, g.DeleteChoice(c.Param("sceneId"), c.Param("choiceId"))
	})
}

// ============================================
// Variabili
// ============================================

// UpdateVariableRequest rinomina e/o cambia il valore; value è testo grezzo
// interpretato come letterale
type UpdateVariableRequest struct {
	Name  *string `json:"name"`
	Value *string `json:"value"`
}

func (s *Server) addVariable(c *gin.Context) {
	s.mutate(c, http.StatusCreated, func(g *story.Graph) (any, error) {
		return g.AddVariable(), nil
	})
}

func (s *Server) updateVariable(c *gin.Context) {
	index, ok := variableIndex(c)
	if !ok {
		return
	}
	var req UpdateVariableRequest
	if !bindOptional(c, &req) {
		return
	}
	s.mutate(c, http.StatusOK, func(g *story.Graph) (any, error) {
		return g.UpdateVariable(index, req.Name, req.Value)
	})
}

func (s *Server) deleteVariable(c *gin.Context) {
	index, ok := variableIndex(c)
	if !ok {
		return
	}
	s.mutate(c, http.StatusOK, func(g *story.Graph) (any, error) {
		return nil, g.DeleteVariable(index)
	})
}

func variableIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": fmt.Sprintf("invalid variable index %q", c.Param("index"))})
		return 0, false
	}
	return index, true
}
