package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/procurebot/backend/internal/domain"
	"github.com/procurebot/backend/internal/llm"
	"github.com/procurebot/backend/internal/store"
)

// Handler upgrades connections and runs the per-connection event loop.
type Handler struct {
	repo          store.Repository
	generator     llm.ReplyGenerator
	hub           *Hub
	allowedOrigin string
	isDev         bool

	// sessionLocks serializes chat handling per negotiation so concurrent
	// appends cannot overwrite each other's persisted transcript. Different
	// negotiations proceed fully in parallel.
	lockMu       sync.Mutex
	sessionLocks map[int64]*sync.Mutex
}

// NewHandler creates a relay handler.
func NewHandler(repo store.Repository, generator llm.ReplyGenerator, hub *Hub, allowedOrigin string, isDev bool) *Handler {
	return &Handler{
		repo:          repo,
		generator:     generator,
		hub:           hub,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
		sessionLocks:  make(map[int64]*sync.Mutex),
	}
}

// ServeHTTP implements http.Handler for the WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err)
		return
	}

	connID := uuid.NewString()
	slog.Info("WebSocket connected", "conn_id", connID, "ip", r.RemoteAddr)

	defer func() {
		for _, negotiationID := range h.hub.Leave(connID) {
			h.releaseSessionLock(negotiationID)
		}
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "conn_id", connID)
		}
		slog.Info("WebSocket disconnected", "conn_id", connID)
	}()

	h.eventLoop(r.Context(), ws, connID)
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" || h.allowedOrigin == "" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *Handler) eventLoop(ctx context.Context, ws *websocket.Conn, connID string) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "conn_id", connID)
			} else {
				slog.Debug("WebSocket read error", "error", err, "conn_id", connID)
			}
			return
		}

		var event clientEvent
		if err := json.Unmarshal(data, &event); err != nil {
			slog.Warn("Malformed relay event", "error", err, "conn_id", connID)
			continue
		}

		switch event.Type {
		case eventJoin:
			h.hub.Join(event.NegotiationID, connID, ws)
			slog.Info("Participant joined", "negotiation_id", event.NegotiationID, "user_type", event.UserType)
		case eventChat:
			if event.Message == nil {
				slog.Warn("chatMessage event without message", "conn_id", connID)
				continue
			}
			h.handleChatMessage(ctx, event.NegotiationID, *event.Message)
		case eventConclude:
			h.handleConclude(ctx, event.NegotiationID, event.Closer)
		default:
			slog.Warn("Unknown relay event type", "type", event.Type, "conn_id", connID)
		}
	}
}

// sessionLock returns the mutex serializing chat handling for a negotiation.
func (h *Handler) sessionLock(negotiationID int64) *sync.Mutex {
	h.lockMu.Lock()
	defer h.lockMu.Unlock()

	lock, ok := h.sessionLocks[negotiationID]
	if !ok {
		lock = &sync.Mutex{}
		h.sessionLocks[negotiationID] = lock
	}
	return lock
}

// releaseSessionLock drops a negotiation's lock entry once its broadcast
// group has emptied, so the map does not grow by one mutex per negotiation
// ever chatted in. An automated reply still in flight holds the lock; its
// entry is left in place and picked up on a later disconnect.
func (h *Handler) releaseSessionLock(negotiationID int64) {
	h.lockMu.Lock()
	defer h.lockMu.Unlock()

	lock, ok := h.sessionLocks[negotiationID]
	if !ok {
		return
	}
	if lock.TryLock() {
		delete(h.sessionLocks, negotiationID)
		lock.Unlock()
	}
}

// handleChatMessage appends the message to the transcript, persists it,
// broadcasts it to the group, and, for supplier messages, reclassifies the
// stage and kicks off the automated reply. The human-visible broadcast never
// waits for the completion call.
func (h *Handler) handleChatMessage(ctx context.Context, negotiationID int64, msg domain.ChatMessage) {
	// Detach from the sender's request context: a sender disconnecting right
	// after sending must not cancel persistence or delivery to the rest of
	// the group.
	ctx = context.WithoutCancel(ctx)

	lock := h.sessionLock(negotiationID)
	lock.Lock()

	neg, err := h.repo.Get(ctx, negotiationID)
	if err != nil {
		lock.Unlock()
		// Deliberate silent drop: the wire protocol has no error event,
		// so a failed load only surfaces in the logs.
		slog.Warn("Dropping chat event, negotiation load failed", "error", err, "negotiation_id", negotiationID)
		return
	}

	stage := neg.Stage
	if msg.Sender == domain.SenderSupplier {
		rejections := domain.ConsecutiveRejections(neg.ChatHistory)
		stage = domain.NextStage(neg.Stage, msg.Text, rejections)
	}

	neg.AppendMessage(msg)

	if msg.Sender == domain.SenderSupplier {
		err = h.repo.UpdateChatAndStage(ctx, negotiationID, neg.ChatHistory, stage)
	} else {
		err = h.repo.UpdateChat(ctx, negotiationID, neg.ChatHistory, "")
	}
	if err != nil {
		slog.Error("Failed to persist chat message", "error", err, "negotiation_id", negotiationID)
	}

	h.hub.Broadcast(ctx, negotiationID, chatEvent{Type: eventChat, Message: msg})
	lock.Unlock()

	if msg.Sender == domain.SenderSupplier {
		chat := make([]domain.ChatMessage, len(neg.ChatHistory))
		copy(chat, neg.ChatHistory)
		go h.autoReply(negotiationID, chat, neg.TargetDetails, stage, neg.NegotiationMode)
	}
}

// autoReply generates the buyer-side reply and delivers it as a second,
// later broadcast. It re-reads the transcript before appending so messages
// persisted while the completion call was in flight are not overwritten.
func (h *Handler) autoReply(negotiationID int64, chat []domain.ChatMessage, target *domain.TargetDetails, stage int, mode string) {
	ctx := context.Background()
	reply := h.generator.GenerateReply(ctx, chat, target, stage, mode)

	botMsg := domain.ChatMessage{
		Sender:    domain.SenderBot,
		Text:      reply,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	lock := h.sessionLock(negotiationID)
	lock.Lock()
	defer lock.Unlock()

	neg, err := h.repo.Get(ctx, negotiationID)
	if err != nil {
		slog.Warn("Dropping automated reply, negotiation load failed", "error", err, "negotiation_id", negotiationID)
		return
	}
	neg.AppendMessage(botMsg)

	if err := h.repo.UpdateChat(ctx, negotiationID, neg.ChatHistory, ""); err != nil {
		slog.Error("Failed to persist automated reply", "error", err, "negotiation_id", negotiationID)
	}

	h.hub.Broadcast(ctx, negotiationID, chatEvent{Type: eventChat, Message: botMsg})
}

// handleConclude marks the negotiation concluded and notifies the group.
// The transcript is not touched.
func (h *Handler) handleConclude(ctx context.Context, negotiationID int64, closer string) {
	ctx = context.WithoutCancel(ctx)

	if err := h.repo.SetConcluded(ctx, negotiationID); err != nil {
		slog.Error("Failed to conclude negotiation", "error", err, "negotiation_id", negotiationID)
	}

	h.hub.Broadcast(ctx, negotiationID, concludedEvent{
		Type:   eventConcluded,
		Closer: closer,
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}
