package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/procurebot/backend/internal/domain"
	"github.com/procurebot/backend/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS negotiations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		buyer_email TEXT,
		supplier_email TEXT,
		target_details TEXT,
		chat_history TEXT,
		status TEXT,
		stage INTEGER DEFAULT 1,
		dashboard_code TEXT,
		negotiation_mode TEXT,
		final_agreement_terms TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_negotiations_owner ON negotiations(buyer_email, dashboard_code);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// exec runs a write statement, retrying once on SQLite write contention.
func (s *SQLiteStore) exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	result, err := s.db.ExecContext(ctx, query, args...)
	if shared.IsSQLiteConflictError(err) {
		slog.Warn("SQLite write contention, retrying", "error", err)
		result, err = s.db.ExecContext(ctx, query, args...)
	}
	return result, err
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func parseRFC3339(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func marshalChat(chat []domain.ChatMessage) (string, error) {
	if chat == nil {
		chat = []domain.ChatMessage{}
	}
	b, err := json.Marshal(chat)
	if err != nil {
		return "", fmt.Errorf("marshal chat history: %w", err)
	}
	return string(b), nil
}

// Create inserts a new negotiation and returns its assigned ID.
func (s *SQLiteStore) Create(ctx context.Context, n *domain.Negotiation) (int64, error) {
	target, err := json.Marshal(n.TargetDetails)
	if err != nil {
		return 0, fmt.Errorf("marshal target details: %w", err)
	}

	now := nowRFC3339()
	query := `
	INSERT INTO negotiations
	(name, buyer_email, supplier_email, target_details, chat_history, status, stage, dashboard_code, negotiation_mode, created_at, updated_at)
	VALUES (?, ?, ?, ?, '[]', ?, ?, ?, ?, ?, ?)`

	result, err := s.exec(ctx, query,
		n.Name, n.BuyerEmail, n.SupplierEmail, string(target),
		domain.StatusActive, domain.MinStage,
		n.DashboardCode, n.NegotiationMode, now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("insert negotiation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get insert id: %w", err)
	}
	return id, nil
}

// Get retrieves a negotiation by ID.
func (s *SQLiteStore) Get(ctx context.Context, id int64) (*domain.Negotiation, error) {
	query := `
		SELECT id, name, buyer_email, supplier_email, target_details,
		       chat_history, status, stage, dashboard_code, negotiation_mode,
		       final_agreement_terms, created_at, updated_at
		FROM negotiations WHERE id = ?`

	row := s.db.QueryRowContext(ctx, query, id)

	var n domain.Negotiation
	var buyerEmail, supplierEmail, target, chat, status sql.NullString
	var dashboardCode, mode, finalTerms sql.NullString
	var stage sql.NullInt64
	var createdAt, updatedAt string

	err := row.Scan(
		&n.ID, &n.Name, &buyerEmail, &supplierEmail, &target,
		&chat, &status, &stage, &dashboardCode, &mode,
		&finalTerms, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan negotiation row: %w", err)
	}

	n.BuyerEmail = buyerEmail.String
	n.SupplierEmail = supplierEmail.String
	n.Status = status.String
	n.DashboardCode = dashboardCode.String
	n.NegotiationMode = mode.String
	n.Stage = int(stage.Int64)
	if n.Stage < domain.MinStage {
		n.Stage = domain.MinStage
	}
	n.CreatedAt = parseRFC3339(createdAt)
	n.UpdatedAt = parseRFC3339(updatedAt)

	if target.String != "" {
		if err := json.Unmarshal([]byte(target.String), &n.TargetDetails); err != nil {
			return nil, fmt.Errorf("parse target details: %w", err)
		}
	}
	n.ChatHistory = []domain.ChatMessage{}
	if chat.String != "" {
		if err := json.Unmarshal([]byte(chat.String), &n.ChatHistory); err != nil {
			return nil, fmt.Errorf("parse chat history: %w", err)
		}
	}
	if finalTerms.String != "" {
		if err := json.Unmarshal([]byte(finalTerms.String), &n.FinalAgreementTerms); err != nil {
			return nil, fmt.Errorf("parse final agreement terms: %w", err)
		}
	}

	return &n, nil
}

// UpdateChat replaces the transcript and optionally the status.
func (s *SQLiteStore) UpdateChat(ctx context.Context, id int64, chat []domain.ChatMessage, status string) error {
	chatJSON, err := marshalChat(chat)
	if err != nil {
		return err
	}

	var result sql.Result
	if status != "" {
		result, err = s.exec(ctx,
			`UPDATE negotiations SET chat_history = ?, status = ?, updated_at = ? WHERE id = ?`,
			chatJSON, status, nowRFC3339(), id)
	} else {
		result, err = s.exec(ctx,
			`UPDATE negotiations SET chat_history = ?, updated_at = ? WHERE id = ?`,
			chatJSON, nowRFC3339(), id)
	}
	if err != nil {
		return fmt.Errorf("update chat history: %w", err)
	}
	return requireRowsAffected(result)
}

// UpdateChatAndStage replaces the transcript and stage in one write.
func (s *SQLiteStore) UpdateChatAndStage(ctx context.Context, id int64, chat []domain.ChatMessage, stage int) error {
	chatJSON, err := marshalChat(chat)
	if err != nil {
		return err
	}

	result, err := s.exec(ctx,
		`UPDATE negotiations SET chat_history = ?, stage = ?, updated_at = ? WHERE id = ?`,
		chatJSON, stage, nowRFC3339(), id)
	if err != nil {
		return fmt.Errorf("update chat and stage: %w", err)
	}
	return requireRowsAffected(result)
}

// UpdateStage sets the stage.
func (s *SQLiteStore) UpdateStage(ctx context.Context, id int64, stage int) error {
	result, err := s.exec(ctx,
		`UPDATE negotiations SET stage = ?, updated_at = ? WHERE id = ?`,
		stage, nowRFC3339(), id)
	if err != nil {
		return fmt.Errorf("update stage: %w", err)
	}
	return requireRowsAffected(result)
}

// SetConcluded marks the negotiation concluded.
func (s *SQLiteStore) SetConcluded(ctx context.Context, id int64) error {
	result, err := s.exec(ctx,
		`UPDATE negotiations SET status = ?, updated_at = ? WHERE id = ?`,
		domain.StatusConcluded, nowRFC3339(), id)
	if err != nil {
		return fmt.Errorf("set concluded: %w", err)
	}
	return requireRowsAffected(result)
}

// SetFinalAgreementTerms stores the agreed terms blob.
func (s *SQLiteStore) SetFinalAgreementTerms(ctx context.Context, id int64, terms map[string]string) error {
	b, err := json.Marshal(terms)
	if err != nil {
		return fmt.Errorf("marshal final agreement terms: %w", err)
	}

	result, err := s.exec(ctx,
		`UPDATE negotiations SET final_agreement_terms = ?, updated_at = ? WHERE id = ?`,
		string(b), nowRFC3339(), id)
	if err != nil {
		return fmt.Errorf("set final agreement terms: %w", err)
	}
	return requireRowsAffected(result)
}

// ListByOwner returns summaries for the buyer, newest first.
func (s *SQLiteStore) ListByOwner(ctx context.Context, buyerEmail, dashboardCode string) ([]domain.NegotiationSummary, error) {
	query := `
		SELECT id, name, status, target_details, created_at, updated_at
		FROM negotiations
		WHERE buyer_email = ? AND dashboard_code = ?
		ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, buyerEmail, dashboardCode)
	if err != nil {
		return nil, fmt.Errorf("query negotiations by owner: %w", err)
	}
	defer rows.Close()

	summaries := []domain.NegotiationSummary{}
	for rows.Next() {
		var sum domain.NegotiationSummary
		var status, target sql.NullString
		var createdAt, updatedAt string

		if err := rows.Scan(&sum.ID, &sum.Name, &status, &target, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan negotiation summary: %w", err)
		}
		sum.Status = status.String
		sum.CreatedAt = parseRFC3339(createdAt)
		sum.UpdatedAt = parseRFC3339(updatedAt)
		if target.String != "" {
			if err := json.Unmarshal([]byte(target.String), &sum.TargetDetails); err != nil {
				return nil, fmt.Errorf("parse target details: %w", err)
			}
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate negotiation summaries: %w", err)
	}

	return summaries, nil
}

// AccessCodeExists reports whether the buyer has any dashboard code set.
func (s *SQLiteStore) AccessCodeExists(ctx context.Context, buyerEmail string) (bool, error) {
	query := `
		SELECT 1 FROM negotiations
		WHERE buyer_email = ? AND dashboard_code IS NOT NULL AND dashboard_code != ''
		LIMIT 1`

	var one int
	err := s.db.QueryRowContext(ctx, query, buyerEmail).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check dashboard code: %w", err)
	}
	return true, nil
}

// Delete removes a negotiation gated on an exact owner match.
func (s *SQLiteStore) Delete(ctx context.Context, id int64, buyerEmail, dashboardCode string) error {
	result, err := s.exec(ctx,
		`DELETE FROM negotiations WHERE id = ? AND buyer_email = ? AND dashboard_code = ?`,
		id, buyerEmail, dashboardCode)
	if err != nil {
		return fmt.Errorf("delete negotiation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrUnauthorized
	}
	return nil
}

func requireRowsAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
