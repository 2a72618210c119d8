package relay

import (
	"github.com/procurebot/backend/internal/domain"
)

// Inbound event types.
const (
	eventJoin     = "joinNegotiation"
	eventChat     = "chatMessage"
	eventConclude = "concludeNegotiation"
)

// Outbound event types.
const (
	eventConcluded = "negotiationConcluded"
)

// clientEvent is the envelope for every inbound frame. Fields beyond Type are
// populated depending on the event.
type clientEvent struct {
	Type          string              `json:"type"`
	NegotiationID int64               `json:"negotiationId"`
	UserType      string              `json:"userType,omitempty"`
	Message       *domain.ChatMessage `json:"message,omitempty"`
	Closer        string              `json:"closer,omitempty"`
}

// chatEvent is broadcast to the group for every accepted chat message,
// including machine-generated replies.
type chatEvent struct {
	Type    string             `json:"type"`
	Message domain.ChatMessage `json:"message"`
}

// concludedEvent notifies the group that the negotiation was closed.
type concludedEvent struct {
	Type   string `json:"type"`
	Closer string `json:"closer"`
	Time   string `json:"time"`
}
