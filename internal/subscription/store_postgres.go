package subscription

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"familyconnect/internal/domain"
	"familyconnect/pkg/domainerrors"
)

// PostgresStore persists subscription requests in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const subscriptionRequestSchema = `
CREATE TABLE IF NOT EXISTS subscription_requests (
	id UUID PRIMARY KEY,
	identity VARCHAR(36) NOT NULL,
	messageset INTEGER NOT NULL,
	next_sequence_number INTEGER NOT NULL DEFAULT 1,
	lang VARCHAR(6) NOT NULL,
	schedule INTEGER NOT NULL DEFAULT 1,
	metadata JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_subscription_requests_identity ON subscription_requests (identity);
`

// Migrate creates the backing table if it does not exist yet.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, subscriptionRequestSchema)
	if err != nil {
		return fmt.Errorf("migrate subscription_requests: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, req *domain.SubscriptionRequest) error {
	metadata, err := json.Marshal(req.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO subscription_requests (id, identity, messageset, next_sequence_number, lang, schedule, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		req.ID, req.Identity, req.Messageset, req.NextSequenceNumber, req.Lang, req.Schedule, metadata,
	).Scan(&req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert subscription request: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*domain.SubscriptionRequest, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, identity, messageset, next_sequence_number, lang, schedule, metadata, created_at, updated_at
		FROM subscription_requests WHERE id = $1`, id)
	req, err := scanSubscriptionRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainerrors.New(domainerrors.CodeNotFound, "subscription request not found")
	}
	return req, err
}

func (s *PostgresStore) List(ctx context.Context) ([]*domain.SubscriptionRequest, error) {
	return s.query(ctx, `
		SELECT id, identity, messageset, next_sequence_number, lang, schedule, metadata, created_at, updated_at
		FROM subscription_requests ORDER BY created_at`)
}

func (s *PostgresStore) ListByIdentity(ctx context.Context, identity string) ([]*domain.SubscriptionRequest, error) {
	return s.query(ctx, `
		SELECT id, identity, messageset, next_sequence_number, lang, schedule, metadata, created_at, updated_at
		FROM subscription_requests WHERE identity = $1 ORDER BY created_at`, identity)
}

func (s *PostgresStore) query(ctx context.Context, q string, args ...any) ([]*domain.SubscriptionRequest, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query subscription requests: %w", err)
	}
	defer rows.Close()

	var out []*domain.SubscriptionRequest
	for rows.Next() {
		req, err := scanSubscriptionRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscriptionRequest(row rowScanner) (*domain.SubscriptionRequest, error) {
	var req domain.SubscriptionRequest
	var metadata []byte
	err := row.Scan(&req.ID, &req.Identity, &req.Messageset, &req.NextSequenceNumber,
		&req.Lang, &req.Schedule, &metadata, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &req.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return &req, nil
}
