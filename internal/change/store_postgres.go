package change

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

// PostgresStore persists change records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const changeSchema = `
CREATE TABLE IF NOT EXISTS changes (
	id UUID PRIMARY KEY,
	mother_id VARCHAR(36) NOT NULL,
	action VARCHAR(30) NOT NULL,
	data JSONB,
	validated BOOLEAN NOT NULL DEFAULT FALSE,
	source_id UUID NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	created_by VARCHAR(100),
	updated_by VARCHAR(100)
);
CREATE INDEX IF NOT EXISTS idx_changes_mother_id ON changes (mother_id);
`

// Migrate creates the backing table if it does not exist yet.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, changeSchema); err != nil {
		return fmt.Errorf("migrate changes: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, ch *domain.Change) error {
	data, err := json.Marshal(ch.Data)
	if err != nil {
		return fmt.Errorf("marshal change data: %w", err)
	}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO changes (id, mother_id, action, data, validated, source_id, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`,
		ch.ID, ch.MotherID, ch.Action, data, ch.Validated, ch.SourceID, ch.CreatedBy, ch.UpdatedBy,
	).Scan(&ch.CreatedAt, &ch.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert change: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*domain.Change, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, mother_id, action, data, validated, source_id, created_at, updated_at, COALESCE(created_by, ''), COALESCE(updated_by, '')
		FROM changes WHERE id = $1`, id)
	ch, err := scanChange(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainerrors.New(domainerrors.CodeNotFound, "change not found")
	}
	return ch, err
}

func (s *PostgresStore) List(ctx context.Context) ([]*domain.Change, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, mother_id, action, data, validated, source_id, created_at, updated_at, COALESCE(created_by, ''), COALESCE(updated_by, '')
		FROM changes ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list changes: %w", err)
	}
	defer rows.Close()

	var out []*domain.Change
	for rows.Next() {
		ch, err := scanChange(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChange(row rowScanner) (*domain.Change, error) {
	var ch domain.Change
	var data []byte
	err := row.Scan(&ch.ID, &ch.MotherID, &ch.Action, &data, &ch.Validated,
		&ch.SourceID, &ch.CreatedAt, &ch.UpdatedAt, &ch.CreatedBy, &ch.UpdatedBy)
	if err != nil {
		return nil, err
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &ch.Data); err != nil {
			return nil, fmt.Errorf("unmarshal change data: %w", err)
		}
	}
	return &ch, nil
}
