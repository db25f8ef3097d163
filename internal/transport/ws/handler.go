package ws

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"keyclue/internal/logger"
	"keyclue/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // allow all origins for dev
	},
}

// HostWatcher starts presence monitoring for a game's host. Implemented by
// the presence monitor.
type HostWatcher interface {
	MonitorGameHost(gameCode string)
}

// Handler handles WebSocket connections
type Handler struct {
	hub     *Hub
	authSvc *service.AuthService
	watcher HostWatcher
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, authSvc *service.AuthService, watcher HostWatcher) *Handler {
	return &Handler{
		hub:     hub,
		authSvc: authSvc,
		watcher: watcher,
	}
}

// HostWS handles GET /v1/ws/games/{code}/host
func (h *Handler) HostWS(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	token := r.URL.Query().Get("token")

	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := h.authSvc.ValidateHostToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	conn := &Connection{
		ID:       uuid.New().String(),
		GameCode: code,
		IsHost:   true,
		Send:     make(chan []byte, 256),
		Hub:      h.hub,
	}

	h.hub.Register(conn)
	h.watcher.MonitorGameHost(code)

	logger.Debug("host websocket open", "game", code, "host", claims.HostID)

	go h.writePump(wsConn, conn)
	go h.readPump(wsConn, conn)
}

// PlayerWS handles GET /v1/ws/games/{code}/player
func (h *Handler) PlayerWS(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	token := r.URL.Query().Get("token")

	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := h.authSvc.ValidatePlayerToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	if claims.GameCode != code {
		http.Error(w, "token not valid for this game", http.StatusForbidden)
		return
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	conn := &Connection{
		ID:       uuid.New().String(),
		GameCode: code,
		PlayerID: claims.PlayerID,
		IsHost:   false,
		Send:     make(chan []byte, 256),
		Hub:      h.hub,
	}

	h.hub.Register(conn)

	logger.Debug("player websocket open", "game", code, "player", claims.PlayerID)

	go h.writePump(wsConn, conn)
	go h.readPump(wsConn, conn)
}

func (h *Handler) readPump(wsConn *websocket.Conn, conn *Connection) {
	defer func() {
		h.hub.Unregister(conn)
		wsConn.Close()
	}()

	wsConn.SetReadLimit(maxMessageSize)
	wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, _, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Debug("websocket read error", "game", conn.GameCode, "error", err)
			}
			break
		}
		// Clients don't send game actions over the socket; guesses go
		// through the REST API.
	}
}

func (h *Handler) writePump(wsConn *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				wsConn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := wsConn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
