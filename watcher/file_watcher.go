package watcher

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"bild-story/snapshot"
	"bild-story/storage"
	"bild-story/story"
)

// EventType indica cosa è successo a un file storia
type EventType string

const (
	EventReloaded    EventType = "reloaded"
	EventDecodeError EventType = "decode_error"
	EventDeleted     EventType = "deleted"
)

// Event rappresenta un evento del watcher
type Event struct {
	Type      EventType    `json:"type"`
	StoryID   string       `json:"story_id"`
	Path      string       `json:"path"`
	Graph     *story.Graph `json:"-"`
	Errors    int          `json:"errors"`
	Warnings  int          `json:"warnings"`
	Message   string       `json:"message,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// Config configurazione per il watcher
type Config struct {
	Dir      string                  // Directory delle storie
	Debounce time.Duration           // Tempo di debounce (default: 300ms)
	Checker  story.ExpressionChecker // Usato per il lint delle storie ricaricate, può essere nil
	Logger   *zap.Logger
}

// StoryWatcher monitora la directory delle storie e ricarica i file modificati
type StoryWatcher struct {
	watcher  *fsnotify.Watcher
	dir      string
	debounce time.Duration
	checker  story.ExpressionChecker
	logger   *zap.Logger

	events chan Event
	stop   chan struct{}
	done   chan struct{}

	mu      sync.Mutex
	timers  map[string]*time.Timer
	running bool
	closed  bool
}

// New crea un nuovo watcher sulla directory indicata
func New(cfg Config) (*StoryWatcher, error) {
	if cfg.Debounce <= 0 {
		cfg.Debounce = 300 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("errore creazione watcher: %w", err)
	}
	if err := fsw.Add(cfg.Dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("errore aggiunta path %s: %w", cfg.Dir, err)
	}
	cfg.Logger.Info("👀 Watching", zap.String("dir", cfg.Dir))

	return &StoryWatcher{
		watcher:  fsw,
		dir:      cfg.Dir,
		debounce: cfg.Debounce,
		checker:  cfg.Checker,
		logger:   cfg.Logger,
		events:   make(chan Event, 100),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		timers:   make(map[string]*time.Timer),
	}, nil
}

// Start avvia il loop degli eventi
func (w *StoryWatcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running || w.closed {
		return errors.New("watcher già in esecuzione")
	}
	w.running = true

	go w.loop()
	w.logger.Info("🚀 Story watcher avviato")
	return nil
}

func (w *StoryWatcher) loop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			// Ignora file non storia (temporanei, nascosti, altre estensioni)
			id, ok := storage.IDFromPath(event.Name)
			if !ok {
				continue
			}
			w.schedule(id, event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("❌ Errore watcher", zap.Error(err))

		case <-w.stop:
			return
		}
	}
}

// schedule applica il debounce per file
func (w *StoryWatcher) schedule(id, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if timer, exists := w.timers[path]; exists {
		timer.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		w.emit(w.reload(id, path))
	})
}

// reload legge lo stato attuale del file e costruisce l'evento
func (w *StoryWatcher) reload(id, path string) Event {
	event := Event{StoryID: id, Path: path, Timestamp: time.Now()}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			event.Type = EventDeleted
			w.logger.Info("🗑️ Storia rimossa", zap.String("story", id))
			return event
		}
		event.Type = EventDecodeError
		event.Message = err.Error()
		return event
	}

	graph, err := snapshot.Decode(data)
	if err != nil {
		event.Type = EventDecodeError
		event.Message = err.Error()
		w.logger.Warn("❌ Storia non valida", zap.String("story", id), zap.Error(err))
		return event
	}

	result := graph.Validate(w.checker)
	event.Type = EventReloaded
	event.Graph = graph
	event.Errors = len(result.Errors)
	event.Warnings = len(result.Warnings)
	w.logger.Info("🔄 Storia ricaricata",
		zap.String("story", id),
		zap.Int("errors", event.Errors),
		zap.Int("warnings", event.Warnings),
	)
	return event
}

func (w *StoryWatcher) emit(event Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	select {
	case w.events <- event:
	default:
		w.logger.Warn("coda eventi piena, evento scartato", zap.String("story", event.StoryID))
	}
}

// Stop ferma il watcher e chiude il canale degli eventi
func (w *StoryWatcher) Stop() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return errors.New("watcher non in esecuzione")
	}
	w.closed = true
	running := w.running
	for path, timer := range w.timers {
		timer.Stop()
		delete(w.timers, path)
	}
	close(w.events)
	w.mu.Unlock()

	if running {
		close(w.stop)
		<-w.done
	}
	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("errore chiusura watcher: %w", err)
	}
	w.logger.Info("🛑 Story watcher fermato")
	return nil
}

// Events restituisce il canale degli eventi
func (w *StoryWatcher) Events() <-chan Event {
	return w.events
}

// IsRunning verifica se il watcher è attivo
func (w *StoryWatcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running && !w.closed
}
