package api

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"bild-story/story"
	"bild-story/traversal"
	"bild-story/variables"
)

var errPreviewNotFound = errors.New("preview session not found")

// previewSession è una partita di anteprima: grafo congelato e store propri
type previewSession struct {
	mu       sync.Mutex
	id       string
	storyID  string
	session  *traversal.Session
	lastUsed time.Time
}

// previewRegistry mantiene le sessioni aperte
type previewRegistry struct {
	mu       sync.Mutex
	sessions map[string]*previewSession
	ttl      time.Duration
	now      func() time.Time
}

func newPreviewRegistry(ttl time.Duration) *previewRegistry {
	return &previewRegistry{
		sessions: make(map[string]*previewSession),
		ttl:      ttl,
		now:      time.Now,
	}
}

// add registra una sessione e rimuove quelle inattive; restituisce le sessioni scadute
func (r *previewRegistry) add(p *previewSession) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	expired := 0
	cutoff := r.now().Add(-r.ttl)
	for id, existing := range r.sessions {
		existing.mu.Lock()
		stale := existing.lastUsed.Before(cutoff)
		existing.mu.Unlock()
		if stale {
			delete(r.sessions, id)
			expired++
		}
	}
	p.lastUsed = r.now()
	r.sessions[p.id] = p
	return expired
}

func (r *previewRegistry) get(id string) (*previewSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.sessions[id]
	if !ok {
		return nil, errPreviewNotFound
	}
	return p, nil
}

func (r *previewRegistry) remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	return ok
}

func (r *previewRegistry) closeAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.sessions)
	r.sessions = make(map[string]*previewSession)
	return n
}

// ChoiceView è un choice visibile al giocatore
type ChoiceView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// SceneView descrive la scena corrente di una sessione
type SceneView struct {
	ID    string      `json:"id"`
	Title string      `json:"title"`
	Body  string      `json:"body"`
	Media story.Media `json:"media"`
}

// PreviewView è la risposta degli endpoint di anteprima
type PreviewView struct {
	SessionID string           `json:"session_id"`
	StoryID   string           `json:"story_id"`
	Scene     *SceneView       `json:"scene"`
	Choices   []ChoiceView     `json:"choices"`
	Variables *variables.Store `json:"variables"`
	Summary   string           `json:"summary"`
	History   []string         `json:"history"`
	Ended     bool             `json:"ended"`
}

// view costruisce la risposta; va chiamata con p.mu acquisito
func (p *previewSession) view() PreviewView {
	v := PreviewView{
		SessionID: p.id,
		StoryID:   p.storyID,
		Choices:   []ChoiceView{},
		Variables: p.session.Vars(),
		Summary:   p.session.Summary(),
		History:   p.session.History(),
	}
	if scene := p.session.Current(); scene != nil {
		v.Scene = &SceneView{ID: scene.ID, Title: scene.Title, Body: scene.Body, Media: scene.Media}
	}
	for _, choice := range p.session.Visible() {
		v.Choices = append(v.Choices, ChoiceView{ID: choice.ID, Text: choice.Text})
	}
	v.Ended = len(v.Choices) == 0
	return v
}

// ============================================
// Preview Handlers
// ============================================

// startPreview apre una sessione su una copia della storia
func (s *Server) startPreview(c *gin.Context) {
	id := c.Param("id")
	g, err := s.load(c.Request.Context(), id)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}

	engine := traversal.NewEngine(g.Clone(), s.engineOptions(id))
	p := &previewSession{
		id:      "preview-" + strings.ToLower(ulid.Make().String()),
		storyID: id,
		session: traversal.NewSession(engine),
	}
	expired := s.previews.add(p)
	s.metrics.ActiveSessions.Add(float64(1 - expired))
	s.logger.Debug("▶️ Anteprima avviata", zap.String("story", id), zap.String("session", p.id))

	p.mu.Lock()
	defer p.mu.Unlock()
	c.JSON(http.StatusCreated, p.view())
}

func (s *Server) getPreview(c *gin.Context) {
	p, err := s.previews.get(c.Param("sid"))
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastUsed = time.Now()
	c.JSON(http.StatusOK, p.view())
}

// StepRequest richiesta di avanzamento
type StepRequest struct {
	ChoiceID string `json:"choice_id" binding:"required"`
}

func (s *Server) stepPreview(c *gin.Context) {
	var req StepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	p, err := s.previews.get(c.Param("sid"))
	if err != nil {
		respondError(c, s.logger, err)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastUsed = time.Now()
	if _, err := p.session.Choose(req.ChoiceID); err != nil {
		respondError(c, s.logger, err)
		return
	}
	s.metrics.TraversalSteps.Inc()
	c.JSON(http.StatusOK, p.view())
}

func (s *Server) restartPreview(c *gin.Context) {
	p, err := s.previews.get(c.Param("sid"))
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastUsed = time.Now()
	p.session.Restart()
	c.JSON(http.StatusOK, p.view())
}

func (s *Server) closePreview(c *gin.Context) {
	if !s.previews.remove(c.Param("sid")) {
		respondError(c, s.logger, errPreviewNotFound)
		return
	}
	s.metrics.ActiveSessions.Dec()
	c.JSON(http.StatusOK, gin.H{"success": true})
}
