package domain

// Chat message sender roles. SenderBot is the label attached to
// machine-generated buyer-side replies.
const (
	SenderBuyer    = "buyer"
	SenderSupplier = "supplier"
	SenderBot      = "AI_bot"
	SenderSystem   = "system"
)

// ChatMessage is a single entry in a negotiation transcript. Timestamp is an
// RFC3339 string set by the client or relay; ordering is insertion order, the
// timestamp is never used to reorder.
type ChatMessage struct {
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// IsBuyerSide reports whether the message belongs to buyer-side traffic,
// which includes machine-generated replies.
func (m ChatMessage) IsBuyerSide() bool {
	return m.Sender == SenderBuyer || m.Sender == SenderBot
}
