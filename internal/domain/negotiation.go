// Package domain contains core domain types for the ProcureBot backend.
package domain

import (
	"time"
)

// Negotiation status values.
const (
	StatusActive    = "active"
	StatusConcluded = "concluded"
)

// Stage bounds for the negotiation phase marker.
const (
	MinStage = 1
	MaxStage = 5
)

// Negotiation represents one buyer-supplier negotiation session with its
// transcript and target terms.
type Negotiation struct {
	ID                  int64             `json:"id"`
	Name                string            `json:"name"`
	BuyerEmail          string            `json:"buyer_email"`
	SupplierEmail       string            `json:"supplier_email"`
	TargetDetails       *TargetDetails    `json:"target_details"`
	ChatHistory         []ChatMessage     `json:"chat_history"`
	Status              string            `json:"status"`
	Stage               int               `json:"stage"`
	DashboardCode       string            `json:"dashboard_code,omitempty"`
	NegotiationMode     string            `json:"negotiation_mode,omitempty"`
	FinalAgreementTerms map[string]string `json:"final_agreement_terms,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// NegotiationSummary is the trimmed row returned by owner listings.
type NegotiationSummary struct {
	ID            int64          `json:"id"`
	Name          string         `json:"name"`
	Status        string         `json:"status"`
	TargetDetails *TargetDetails `json:"target_details"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// IsConcluded returns true once the negotiation has been closed.
func (n *Negotiation) IsConcluded() bool {
	return n.Status == StatusConcluded
}

// AppendMessage adds a message to the end of the transcript.
func (n *Negotiation) AppendMessage(msg ChatMessage) {
	n.ChatHistory = append(n.ChatHistory, msg)
}
