// Package relay provides the WebSocket message relay for negotiation sessions.
package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// member is one connected participant inside a negotiation group. Writes to
// the shared conn are serialized through writeMu.
type member struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (m *member) send(ctx context.Context, payload []byte) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return m.conn.Write(ctx, websocket.MessageText, payload)
}

// Hub is the in-process registry of negotiation broadcast groups, mapping
// negotiation ID to the set of active connections. Membership is added on
// join and removed on disconnect; nothing is persisted, so the registry is
// rebuilt empty on restart.
type Hub struct {
	mu     sync.RWMutex
	groups map[int64]map[string]*member
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		groups: make(map[int64]map[string]*member),
	}
}

// Join adds a connection to a negotiation's broadcast group.
func (h *Hub) Join(negotiationID int64, connID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	group, ok := h.groups[negotiationID]
	if !ok {
		group = make(map[string]*member)
		h.groups[negotiationID] = group
	}
	group[connID] = &member{conn: conn}
	slog.Info("Joined negotiation group", "negotiation_id", negotiationID, "conn_id", connID)
}

// Leave removes a connection from every group it joined and returns the IDs
// of the negotiations whose groups emptied as a result, so callers can free
// any per-negotiation state they keep.
func (h *Hub) Leave(connID string) []int64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	var emptied []int64
	for negotiationID, group := range h.groups {
		if _, ok := group[connID]; ok {
			delete(group, connID)
			if len(group) == 0 {
				delete(h.groups, negotiationID)
				emptied = append(emptied, negotiationID)
			}
			slog.Info("Left negotiation group", "negotiation_id", negotiationID, "conn_id", connID)
		}
	}
	return emptied
}

// GroupSize returns the number of connections in a negotiation's group.
func (h *Hub) GroupSize(negotiationID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[negotiationID])
}

// Broadcast sends an event to every member of a negotiation's group,
// including the originating connection. Individual write failures are logged
// and skipped; a broken member is cleaned up by its own read loop.
func (h *Hub) Broadcast(ctx context.Context, negotiationID int64, event interface{}) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("Failed to marshal broadcast event", "error", err, "negotiation_id", negotiationID)
		return
	}

	h.mu.RLock()
	members := make([]*member, 0, len(h.groups[negotiationID]))
	for _, m := range h.groups[negotiationID] {
		members = append(members, m)
	}
	h.mu.RUnlock()

	for _, m := range members {
		if err := m.send(ctx, payload); err != nil {
			slog.Debug("Broadcast write failed", "error", err, "negotiation_id", negotiationID)
		}
	}
}
