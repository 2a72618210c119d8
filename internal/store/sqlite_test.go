package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/procurebot/backend/internal/domain"
)

func newTestStore(t *testing.T) Repository {
	t.Helper()
	repo, err := NewSQLite(filepath.Join(t.TempDir(), "negotiations.db"))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("failed to close store: %v", err)
		}
	})
	return repo
}

func createNegotiation(t *testing.T, repo Repository, n *domain.Negotiation) int64 {
	t.Helper()
	id, err := repo.Create(context.Background(), n)
	if err != nil {
		t.Fatalf("failed to create negotiation: %v", err)
	}
	return id
}

func TestCreateDefaults(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	id := createNegotiation(t, repo, &domain.Negotiation{
		Name:       "Steel flanges Q3",
		BuyerEmail: "buyer@x.com",
		TargetDetails: &domain.TargetDetails{
			Company: "Acme Industries",
			Items:   []domain.LineItem{{Name: "MS Flange", Quantity: "100"}},
		},
	})

	got, err := repo.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != domain.StatusActive {
		t.Errorf("expected status %q, got %q", domain.StatusActive, got.Status)
	}
	if got.Stage != 1 {
		t.Errorf("expected stage 1, got %d", got.Stage)
	}
	if len(got.ChatHistory) != 0 {
		t.Errorf("expected empty chat history, got %d entries", len(got.ChatHistory))
	}
	if got.TargetDetails == nil || got.TargetDetails.Company != "Acme Industries" {
		t.Errorf("target details not round-tripped: %+v", got.TargetDetails)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("timestamps not set on create")
	}
}

func TestGetNotFound(t *testing.T) {
	repo := newTestStore(t)

	_, err := repo.Get(context.Background(), 9999)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateChat(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()
	id := createNegotiation(t, repo, &domain.Negotiation{Name: "n", BuyerEmail: "b@x.com"})

	chat := []domain.ChatMessage{
		{Sender: domain.SenderBuyer, Text: "Hello", Timestamp: "2026-01-01T10:00:00Z"},
		{Sender: domain.SenderSupplier, Text: "Hi", Timestamp: "2026-01-01T10:01:00Z"},
	}
	if err := repo.UpdateChat(ctx, id, chat, ""); err != nil {
		t.Fatalf("UpdateChat failed: %v", err)
	}

	got, err := repo.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got.ChatHistory) != 2 {
		t.Fatalf("expected 2 chat entries, got %d", len(got.ChatHistory))
	}
	if got.ChatHistory[0].Text != "Hello" || got.ChatHistory[1].Sender != domain.SenderSupplier {
		t.Errorf("chat not preserved in order: %+v", got.ChatHistory)
	}
	if got.Status != domain.StatusActive {
		t.Errorf("status should be unchanged, got %q", got.Status)
	}

	// Empty status leaves status alone; explicit status replaces it.
	if err := repo.UpdateChat(ctx, id, chat, domain.StatusConcluded); err != nil {
		t.Fatalf("UpdateChat with status failed: %v", err)
	}
	got, _ = repo.Get(ctx, id)
	if got.Status != domain.StatusConcluded {
		t.Errorf("expected concluded, got %q", got.Status)
	}
}

func TestUpdateChatNotFound(t *testing.T) {
	repo := newTestStore(t)

	err := repo.UpdateChat(context.Background(), 404, nil, "")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateChatAndStage(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()
	id := createNegotiation(t, repo, &domain.Negotiation{Name: "n", BuyerEmail: "b@x.com"})

	chat := []domain.ChatMessage{{Sender: domain.SenderSupplier, Text: "no"}}
	if err := repo.UpdateChatAndStage(ctx, id, chat, 3); err != nil {
		t.Fatalf("UpdateChatAndStage failed: %v", err)
	}

	got, err := repo.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Stage != 3 {
		t.Errorf("expected stage 3, got %d", got.Stage)
	}
	if len(got.ChatHistory) != 1 {
		t.Errorf("expected 1 chat entry, got %d", len(got.ChatHistory))
	}
}

func TestSetConcludedLeavesChat(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()
	id := createNegotiation(t, repo, &domain.Negotiation{Name: "n", BuyerEmail: "b@x.com"})

	chat := []domain.ChatMessage{{Sender: domain.SenderBuyer, Text: "offer"}}
	if err := repo.UpdateChat(ctx, id, chat, ""); err != nil {
		t.Fatalf("UpdateChat failed: %v", err)
	}
	if err := repo.SetConcluded(ctx, id); err != nil {
		t.Fatalf("SetConcluded failed: %v", err)
	}

	got, err := repo.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != domain.StatusConcluded {
		t.Errorf("expected concluded, got %q", got.Status)
	}
	if len(got.ChatHistory) != 1 {
		t.Errorf("conclusion must not touch the transcript, got %d entries", len(got.ChatHistory))
	}
}

func TestFinalAgreementTermsRoundTrip(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()
	id := createNegotiation(t, repo, &domain.Negotiation{Name: "n", BuyerEmail: "b@x.com"})

	got, _ := repo.Get(ctx, id)
	if got.FinalAgreementTerms != nil {
		t.Errorf("final terms should be absent before conclusion, got %v", got.FinalAgreementTerms)
	}

	terms := map[string]string{"Final Price": "₹510", "Payment Terms": "45 days"}
	if err := repo.SetFinalAgreementTerms(ctx, id, terms); err != nil {
		t.Fatalf("SetFinalAgreementTerms failed: %v", err)
	}

	got, err := repo.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.FinalAgreementTerms["Final Price"] != "₹510" {
		t.Errorf("final terms not round-tripped: %v", got.FinalAgreementTerms)
	}
}

func TestListByOwner(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	first := createNegotiation(t, repo, &domain.Negotiation{
		Name: "first", BuyerEmail: "buyer@x.com", DashboardCode: "ABC123",
	})
	second := createNegotiation(t, repo, &domain.Negotiation{
		Name: "second", BuyerEmail: "buyer@x.com", DashboardCode: "ABC123",
	})
	// Different code and different buyer must both be excluded.
	createNegotiation(t, repo, &domain.Negotiation{
		Name: "wrong code", BuyerEmail: "buyer@x.com", DashboardCode: "OTHER",
	})
	createNegotiation(t, repo, &domain.Negotiation{
		Name: "wrong buyer", BuyerEmail: "other@x.com", DashboardCode: "ABC123",
	})

	got, err := repo.ListByOwner(ctx, "buyer@x.com", "ABC123")
	if err != nil {
		t.Fatalf("ListByOwner failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 negotiations, got %d", len(got))
	}
	if got[0].ID != second || got[1].ID != first {
		t.Errorf("expected newest first [%d %d], got [%d %d]", second, first, got[0].ID, got[1].ID)
	}
}

func TestListByOwnerEmpty(t *testing.T) {
	repo := newTestStore(t)

	got, err := repo.ListByOwner(context.Background(), "nobody@x.com", "NOPE")
	if err != nil {
		t.Fatalf("ListByOwner must not error on empty match: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty list, got %d", len(got))
	}
}

func TestAccessCodeExists(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	createNegotiation(t, repo, &domain.Negotiation{Name: "n", BuyerEmail: "nocode@x.com"})
	createNegotiation(t, repo, &domain.Negotiation{
		Name: "n", BuyerEmail: "coded@x.com", DashboardCode: "SECRET",
	})

	exists, err := repo.AccessCodeExists(ctx, "coded@x.com")
	if err != nil {
		t.Fatalf("AccessCodeExists failed: %v", err)
	}
	if !exists {
		t.Error("expected code to exist for coded@x.com")
	}

	exists, err = repo.AccessCodeExists(ctx, "nocode@x.com")
	if err != nil {
		t.Fatalf("AccessCodeExists failed: %v", err)
	}
	if exists {
		t.Error("empty code must not count as existing")
	}
}

func TestDelete(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()
	id := createNegotiation(t, repo, &domain.Negotiation{
		Name: "n", BuyerEmail: "buyer@x.com", DashboardCode: "ABC123",
	})

	// Wrong contact with the right code is still unauthorized.
	err := repo.Delete(ctx, id, "intruder@x.com", "ABC123")
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	err = repo.Delete(ctx, id, "buyer@x.com", "WRONG")
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := repo.Get(ctx, id); err != nil {
		t.Fatalf("negotiation should survive failed deletes: %v", err)
	}

	if err := repo.Delete(ctx, id, "buyer@x.com", "ABC123"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := repo.Get(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}
