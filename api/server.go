package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bild-story/compiler"
	"bild-story/formats"
	"bild-story/observability"
	"bild-story/storage"
	"bild-story/traversal"
	"bild-story/watcher"
)

// Version è la versione del servizio
const Version = "0.1.0"

// Server rappresenta il server API
type Server struct {
	router   *gin.Engine
	repo     storage.Repository
	compiler *compiler.PlayerCompiler
	metrics  *observability.Collector
	logger   *zap.Logger
	hub      *hub
	config   ServerConfig

	// serializza le modifiche alle storie
	storyMu sync.Mutex

	previews *previewRegistry
}

// ServerConfig configurazione del server
type ServerConfig struct {
	Addr        string
	Repository  storage.Repository
	Compiler    *compiler.PlayerCompiler // nil disabilita l'export del player
	Metrics     *observability.Collector
	Logger      *zap.Logger
	CORSOrigins []string
	PublicURL   string
	Dialect     string
	// StrictTargets fa fallire gli step verso scene mancanti
	StrictTargets bool
	PreviewTTL    time.Duration
	Debug         bool
}

// NewServer crea un nuovo server API
func NewServer(config ServerConfig) (*Server, error) {
	if config.Repository == nil {
		return nil, errors.New("repository is required")
	}
	if config.Dialect == "" {
		config.Dialect = formats.DefaultDialect
	}
	if !formats.IsDialectRegistered(config.Dialect) {
		return nil, fmt.Errorf("dialetto %q non registrato (disponibili: %v)", config.Dialect, formats.AvailableDialects())
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.Metrics == nil {
		config.Metrics = observability.NewCollector()
	}
	if config.PreviewTTL <= 0 {
		config.PreviewTTL = 30 * time.Minute
	}

	// Imposta modalità Gin
	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), config.Metrics.GinMiddleware())

	if len(config.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:  config.CORSOrigins,
			AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders: []string{"Content-Length", "Content-Disposition"},
			MaxAge:        12 * time.Hour,
		}))
	}

	server := &Server{
		router:   router,
		repo:     config.Repository,
		compiler: config.Compiler,
		metrics:  config.Metrics,
		logger:   config.Logger,
		hub:      newHub(config.Logger),
		config:   config,
		previews: newPreviewRegistry(config.PreviewTTL),
	}

	// Setup routes
	server.setupRoutes()

	return server, nil
}

// setupRoutes configura tutti gli endpoint
func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		// Health check
		api.GET("/health", s.healthCheck)
		api.GET("/version", s.getVersion)

		// Story endpoints
		api.GET("/stories", s.listStories)
		api.GET("/stories/:id", s.getStory)
		api.PUT("/stories/:id", s.putStory)
		api.DELETE("/stories/:id", s.deleteStory)
		api.GET("/stories/:id/share", s.getShare)
		api.POST("/stories/:id/share", s.importShare)
		api.GET("/stories/:id/export", s.exportJSON)
		api.POST("/stories/:id/export/player", s.exportPlayer)
		api.GET("/stories/:id/lint", s.lintStory)

		// Authoring endpoints
		api.POST("/stories/:id/scenes", s.addScene)
		api.PATCH("/stories/:id/scenes/:sceneId", s.updateScene)
		api.DELETE("/stories/:id/scenes/:sceneId", s.deleteScene)
		api.PUT("/stories/:id/start", s.setStart)
		api.POST("/stories/:id/scenes/:sceneId/choices", s.addChoice)
		api.PATCH("/stories/:id/scenes/:sceneId/choices/:choiceId", s.updateChoice)
		api.DELETE("/stories/:id/scenes/:sceneId/choices/:choiceId", s.deleteChoice)
		api.POST("/stories/:id/variables", s.addVariable)
		api.PATCH("/stories/:id/variables/:index", s.updateVariable)
		api.DELETE("/stories/:id/variables/:index", s.deleteVariable)

		// Preview endpoints
		api.POST("/stories/:id/preview", s.startPreview)
		api.GET("/preview/:sid", s.getPreview)
		api.POST("/preview/:sid/step", s.stepPreview)
		api.POST("/preview/:sid/restart", s.restartPreview)
		api.DELETE("/preview/:sid", s.closePreview)

		// Path Simulator endpoints
		api.POST("/stories/:id/simulate", s.simulatePath)
		api.POST("/stories/:id/validate-path", s.validatePath)
		api.POST("/stories/:id/suggest", s.suggestPaths)
	}

	// WebSocket endpoint
	s.router.GET("/ws", s.handleWebSocket)
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
}

// Handler restituisce l'handler HTTP del server
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run avvia il server e lo ferma alla cancellazione del context
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("🚀 Server avviato", zap.String("addr", s.config.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.hub.closeAll()
	s.metrics.ActiveSessions.Sub(float64(s.previews.closeAll()))
	s.logger.Info("🛑 Server in chiusura")
	return srv.Shutdown(shutdownCtx)
}

// ForwardWatcherEvents inoltra gli eventi del watcher ai client WebSocket
// finché il canale non viene chiuso
func (s *Server) ForwardWatcherEvents(w *watcher.StoryWatcher) {
	for event := range w.Events() {
		s.hub.broadcast(Message{
			Type:      "watch_" + string(event.Type),
			StoryID:   event.StoryID,
			Payload:   event,
			Timestamp: event.Timestamp,
		})
	}
}

// engineOptions costruisce le opzioni di traversal per una storia
func (s *Server) engineOptions(storyID string) traversal.Options {
	opts := traversal.Options{
		Dialect: s.dialect(storyID),
		Logger:  s.logger.With(zap.String("story", storyID)),
		OnTeleport: func(traversal.Teleport) {
			s.metrics.Teleports.Inc()
		},
	}
	if s.config.StrictTargets {
		opts.MissingTarget = traversal.Strict
	}
	return opts
}

// dialect crea il dialetto collegato a log e metriche
func (s *Server) dialect(storyID string) formats.Dialect {
	return formats.GetDialect(s.config.Dialect, observability.DiagnosticReporter(s.logger, s.metrics, storyID))
}

// ============================================
// Handlers
// ============================================

// healthCheck verifica lo stato del server
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"version":  Version,
		"dialect":  s.config.Dialect,
		"dialects": formats.AvailableDialects(),
		"export":   s.compiler != nil,
	})
}

// getVersion ottiene la versione della toolchain usata per l'export
func (s *Server) getVersion(c *gin.Context) {
	response := gin.H{"success": true, "version": Version}
	if s.compiler != nil {
		toolchain, err := s.compiler.GetVersion(c.Request.Context())
		if err != nil {
			respondError(c, s.logger, err)
			return
		}
		response["toolchain"] = toolchain
	}
	c.JSON(http.StatusOK, response)
}
