package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bild-story/simulator"
)

// ============================================
// Path Simulator Handlers
// ============================================

// PathRequest richiesta con un percorso di choice
type PathRequest struct {
	Path []string `json:"path" binding:"required"`
	// Watch associa variabili numeriche a una soglia da segnalare
	Watch map[string]float64 `json:"watch"`
}

// validatePath valida un percorso
func (s *Server) validatePath(c *gin.Context) {
	var req PathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	g, err := s.load(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, s.logger, err)
		return
	}

	errs := simulator.NewPathSimulator(g, s.logger).ValidatePath(req.Path)
	c.JSON(http.StatusOK, gin.H{
		"valid":  len(errs) == 0,
		"path":   req.Path,
		"errors": errs,
	})
}

// simulatePath simula l'esecuzione di un percorso
func (s *Server) simulatePath(c *gin.Context) {
	var req PathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	g, err := s.load(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, s.logger, err)
		return
	}

	ps := simulator.NewPathSimulator(g, s.logger)
	for name, threshold := range req.Watch {
		ps.Watch(name, threshold)
	}
	c.JSON(http.StatusOK, ps.SimulatePath(req.Path))
}

// SuggestPathsRequest richiesta di suggerimento percorsi
type SuggestPathsRequest struct {
	MaxDepth int `json:"max_depth"`
}

// suggestPaths suggerisce percorsi validi
func (s *Server) suggestPaths(c *gin.Context) {
	var req SuggestPathsRequest
	if !bindOptional(c, &req) {
		return
	}

	// Default max depth
	if req.MaxDepth <= 0 || req.MaxDepth > 10 {
		req.MaxDepth = 5
	}

	g, err := s.load(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, s.logger, err)
		return
	}

	paths := simulator.NewPathSimulator(g, s.logger).GetSuggestedPaths(req.MaxDepth)
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"max_depth": req.MaxDepth,
		"paths":     paths,
		"count":     len(paths),
	})
}
