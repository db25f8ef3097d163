package ws

import (
	"encoding/json"
	"sync"

	"keyclue/internal/bus"
	"keyclue/internal/logger"
	"keyclue/internal/model"
)

// Connection represents one WebSocket client attached to a game
type Connection struct {
	ID       string
	GameCode string
	PlayerID string // empty for host connections
	IsHost   bool
	Send     chan []byte
	Hub      *Hub
}

// gameEntry bridges one game's bus topics to its live connections
type gameEntry struct {
	hostConns   map[string]*Connection // connection id -> conn
	playerConns map[string]*Connection // player id -> conn
	gameSub     *bus.Subscription
	hostSub     *bus.Subscription
}

// Hub fans bus events out to WebSocket connections and feeds host
// joins/leaves back onto each game's host topic as presence diffs. It is
// the live-connection source of truth the presence monitor queries.
type Hub struct {
	bus *bus.Bus

	mu    sync.RWMutex
	games map[string]*gameEntry

	register   chan *Connection
	unregister chan *Connection
}

// NewHub creates a hub and starts its coordination loop
func NewHub(b *bus.Bus) *Hub {
	h := &Hub{
		bus:        b,
		games:      make(map[string]*gameEntry),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.addConn(conn)
		case conn := <-h.unregister:
			h.removeConn(conn)
		}
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// HostPresence lists the host connection identities currently attached to a
// game. Implements presence.Querier.
func (h *Hub) HostPresence(gameCode string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	entry, ok := h.games[gameCode]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(entry.hostConns))
	for id := range entry.hostConns {
		ids = append(ids, id)
	}
	return ids
}

func (h *Hub) addConn(conn *Connection) {
	h.mu.Lock()
	entry, ok := h.games[conn.GameCode]
	if !ok {
		entry = h.openGame(conn.GameCode)
	}
	if conn.IsHost {
		entry.hostConns[conn.ID] = conn
	} else {
		entry.playerConns[conn.PlayerID] = conn
	}
	h.mu.Unlock()

	if conn.IsHost {
		logger.Info("host connected", "game", conn.GameCode, "conn", conn.ID)
		h.bus.Publish(bus.HostTopic(conn.GameCode), bus.Event{
			Type:    model.EventPresenceDiff,
			Payload: model.PresenceDiffPayload{Joins: []string{conn.ID}},
		})
	} else {
		logger.Info("player connected", "game", conn.GameCode, "player", conn.PlayerID)
	}
}

func (h *Hub) removeConn(conn *Connection) {
	h.mu.Lock()
	entry, ok := h.games[conn.GameCode]
	if !ok {
		h.mu.Unlock()
		return
	}

	removed := false
	if conn.IsHost {
		if existing, ok := entry.hostConns[conn.ID]; ok && existing == conn {
			delete(entry.hostConns, conn.ID)
			close(conn.Send)
			removed = true
		}
	} else {
		if existing, ok := entry.playerConns[conn.PlayerID]; ok && existing == conn {
			delete(entry.playerConns, conn.PlayerID)
			close(conn.Send)
			removed = true
		}
	}

	empty := len(entry.hostConns) == 0 && len(entry.playerConns) == 0
	if empty {
		h.closeGame(conn.GameCode, entry)
	}
	h.mu.Unlock()

	if !removed {
		return
	}

	if conn.IsHost {
		logger.Info("host disconnected", "game", conn.GameCode, "conn", conn.ID)
		h.bus.Publish(bus.HostTopic(conn.GameCode), bus.Event{
			Type:    model.EventPresenceDiff,
			Payload: model.PresenceDiffPayload{Leaves: []string{conn.ID}},
		})
	} else {
		logger.Info("player disconnected", "game", conn.GameCode, "player", conn.PlayerID)
		h.bus.Publish(bus.HostTopic(conn.GameCode), bus.Event{
			Type:    model.EventPlayerLeft,
			Payload: map[string]string{"playerId": conn.PlayerID},
		})
	}
}

// openGame subscribes the game's topics and starts the forwarders. Caller
// holds h.mu.
func (h *Hub) openGame(gameCode string) *gameEntry {
	entry := &gameEntry{
		hostConns:   make(map[string]*Connection),
		playerConns: make(map[string]*Connection),
		gameSub:     h.bus.Subscribe(bus.GameTopic(gameCode)),
		hostSub:     h.bus.Subscribe(bus.HostTopic(gameCode)),
	}
	h.games[gameCode] = entry

	go h.forward(gameCode, entry.gameSub, false)
	go h.forward(gameCode, entry.hostSub, true)
	return entry
}

// closeGame releases a game's subscriptions. Caller holds h.mu.
func (h *Hub) closeGame(gameCode string, entry *gameEntry) {
	delete(h.games, gameCode)
	h.bus.Unsubscribe(entry.gameSub)
	h.bus.Unsubscribe(entry.hostSub)
}

// forward relays bus events to the game's sockets until the subscription
// closes. Host-topic events go only to host connections.
func (h *Hub) forward(gameCode string, sub *bus.Subscription, hostOnly bool) {
	for evt := range sub.C {
		data, err := json.Marshal(evt)
		if err != nil {
			logger.Warn("failed to marshal event", "game", gameCode, "type", evt.Type, "error", err)
			continue
		}

		h.mu.RLock()
		entry, ok := h.games[gameCode]
		if !ok {
			h.mu.RUnlock()
			continue
		}
		for _, conn := range entry.hostConns {
			send(conn, data)
		}
		if !hostOnly {
			for _, conn := range entry.playerConns {
				send(conn, data)
			}
		}
		h.mu.RUnlock()
	}
}

func send(conn *Connection, data []byte) {
	select {
	case conn.Send <- data:
	default:
		// drop if the client can't keep up
	}
}
