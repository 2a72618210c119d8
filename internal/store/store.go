// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"

	"github.com/procurebot/backend/internal/domain"
)

// Sentinel errors returned by Repository implementations. Handlers map these
// to HTTP statuses; everything else is treated as a storage failure.
var (
	// ErrNotFound indicates no negotiation matched the given ID.
	ErrNotFound = errors.New("negotiation not found")

	// ErrUnauthorized indicates the buyer email or dashboard code did not
	// match. Deliberately conflated with non-existence: the exact-match
	// delete query cannot tell the two apart without leaking existence.
	ErrUnauthorized = errors.New("unauthorized or negotiation not found")
)

// Repository defines the interface for persisting negotiations.
type Repository interface {
	// Create inserts a new negotiation and returns its assigned ID.
	// Status, stage, chat history and timestamps are initialized by the
	// store regardless of what the caller set.
	Create(ctx context.Context, n *domain.Negotiation) (int64, error)

	// Get retrieves a negotiation by ID with structured fields
	// deserialized. Returns ErrNotFound if absent.
	Get(ctx context.Context, id int64) (*domain.Negotiation, error)

	// UpdateChat replaces the transcript and, when status is non-empty,
	// the status. Refreshes updated_at. Returns ErrNotFound on no match.
	UpdateChat(ctx context.Context, id int64, chat []domain.ChatMessage, status string) error

	// UpdateChatAndStage replaces the transcript and stage in one write.
	// Used by the relay when a supplier message advances the stage.
	UpdateChatAndStage(ctx context.Context, id int64, chat []domain.ChatMessage, stage int) error

	// UpdateStage sets the stage and refreshes updated_at.
	UpdateStage(ctx context.Context, id int64, stage int) error

	// SetConcluded marks the negotiation concluded. The transcript is
	// untouched.
	SetConcluded(ctx context.Context, id int64) error

	// SetFinalAgreementTerms stores the agreed terms blob.
	SetFinalAgreementTerms(ctx context.Context, id int64, terms map[string]string) error

	// ListByOwner returns summaries of all negotiations whose buyer email
	// and dashboard code both match exactly, newest first. An empty result
	// is not an error.
	ListByOwner(ctx context.Context, buyerEmail, dashboardCode string) ([]domain.NegotiationSummary, error)

	// AccessCodeExists reports whether any negotiation for the buyer has a
	// non-empty dashboard code set.
	AccessCodeExists(ctx context.Context, buyerEmail string) (bool, error)

	// Delete removes a negotiation only when ID, buyer email and dashboard
	// code all match. Returns ErrUnauthorized otherwise.
	Delete(ctx context.Context, id int64, buyerEmail, dashboardCode string) error

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
