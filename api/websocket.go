package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Message è l'evento inviato ai client WebSocket
type Message struct {
	Type      string    `json:"type"`
	StoryID   string    `json:"story_id,omitempty"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const writeWait = 5 * time.Second

// hub tiene traccia dei client connessi; le scritture sono serializzate
type hub struct {
	mu       sync.Mutex
	clients  map[*websocket.Conn]bool
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func newHub(logger *zap.Logger) *hub {
	return &hub{
		clients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // l'editor può girare su un'altra origine in sviluppo
			},
		},
		logger: logger,
	}
}

func (h *hub) add(conn *websocket.Conn) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = true
	return len(h.clients)
}

func (h *hub) remove(conn *websocket.Conn) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, conn)
	return len(h.clients)
}

// broadcast invia il messaggio a tutti i client, scartando quelli non raggiungibili
func (h *hub) broadcast(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		_ = client.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.WriteJSON(msg); err != nil {
			h.logger.Warn("Errore invio WebSocket", zap.Error(err))
			_ = client.Close()
			delete(h.clients, client)
		}
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		_ = client.Close()
		delete(h.clients, client)
	}
}

// handleWebSocket gestisce connessioni WebSocket
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.hub.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("Errore upgrade WebSocket", zap.Error(err))
		return
	}
	defer conn.Close()

	total := s.hub.add(conn)
	s.logger.Info("🔌 Client WebSocket connesso", zap.Int("totale", total))

	// Mantieni la connessione aperta
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			total = s.hub.remove(conn)
			s.logger.Info("🔌 Client WebSocket disconnesso", zap.Int("totale", total))
			return
		}
	}
}
