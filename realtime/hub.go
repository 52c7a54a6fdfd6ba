// Package realtime fans tournament events out to websocket subscribers.
// Every tournament has one room; the hub implements events.Broadcaster so
// the engine never learns about connections.
package realtime

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"

	"github.com/Dosada05/tcg-arena/events"
)

type Hub struct {
	register   chan *Client
	unregister chan *Client
	rooms      map[string]map[*Client]bool
	mu         sync.RWMutex
	logger     *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rooms:      make(map[string]map[*Client]bool),
		logger:     logger,
	}
}

// RoomForTournament names the per-tournament room.
func RoomForTournament(tournamentID int) string {
	return "tournament_" + strconv.Itoa(tournamentID)
}

// Run обслуживает регистрацию клиентов. Запускается одной горутиной
// на всё приложение.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if _, ok := h.rooms[client.room]; !ok {
				h.rooms[client.room] = make(map[*Client]bool)
			}
			h.rooms[client.room][client] = true
			h.logger.Debug("websocket client joined", "room", client.room, "clients", len(h.rooms[client.room]))
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.room]; ok {
				if _, joined := clients[client]; joined {
					client.closeSend()
					delete(clients, client)
					if len(clients) == 0 {
						delete(h.rooms, client.room)
					}
					h.logger.Debug("websocket client left", "room", client.room, "clients", len(clients))
				}
			}
			h.mu.Unlock()
		}
	}
}

// Emit implements events.Broadcaster. Slow clients are skipped, never
// waited on: a full send buffer drops the frame for that client only.
func (h *Hub) Emit(tournamentID int, event events.Event) {
	envelope := events.Wrap(tournamentID, event)
	message, err := json.Marshal(envelope)
	if err != nil {
		h.logger.Error("failed to encode event", "type", envelope.Type, "tournament_id", tournamentID, "error", err)
		return
	}
	h.broadcastToRoom(RoomForTournament(tournamentID), message)
}

func (h *Hub) broadcastToRoom(roomID string, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.rooms[roomID]
	if !ok {
		return
	}
	for client := range clients {
		client.mu.Lock()
		if client.closed {
			client.mu.Unlock()
			continue
		}
		select {
		case client.send <- message:
		default:
			h.logger.Warn("dropping frame for slow websocket client", "room", roomID)
		}
		client.mu.Unlock()
	}
}
