package registration

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

// PostgresStore persists registrations and sources in PostgreSQL. The data
// payload lives in a JSONB column, matching its open-mapping shape.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const registrationSchema = `
CREATE TABLE IF NOT EXISTS sources (
	id UUID PRIMARY KEY,
	name VARCHAR(100) NOT NULL,
	authority VARCHAR(30) NOT NULL,
	user_id VARCHAR(100) NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_sources_user_id ON sources (user_id);

CREATE TABLE IF NOT EXISTS registrations (
	id UUID PRIMARY KEY,
	stage VARCHAR(30) NOT NULL,
	mother_id VARCHAR(36) NOT NULL,
	data JSONB,
	validated BOOLEAN NOT NULL DEFAULT FALSE,
	source_id UUID NOT NULL REFERENCES sources (id),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	created_by VARCHAR(100),
	updated_by VARCHAR(100)
);
CREATE INDEX IF NOT EXISTS idx_registrations_mother_id ON registrations (mother_id);
`

// Migrate creates the backing tables if they do not exist yet.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, registrationSchema); err != nil {
		return fmt.Errorf("migrate registrations: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, reg *domain.Registration) error {
	data, err := json.Marshal(reg.Data)
	if err != nil {
		return fmt.Errorf("marshal registration data: %w", err)
	}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO registrations (id, stage, mother_id, data, validated, source_id, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`,
		reg.ID, reg.Stage, reg.MotherID, data, reg.Validated, reg.SourceID, reg.CreatedBy, reg.UpdatedBy,
	).Scan(&reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

const registrationColumns = `id, stage, mother_id, data, validated, source_id, created_at, updated_at, COALESCE(created_by, ''), COALESCE(updated_by, '')`

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*domain.Registration, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE id = $1`, id)
	reg, err := scanRegistration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainerrors.New(domainerrors.CodeNotFound, "registration not found")
	}
	return reg, err
}

func (s *PostgresStore) GetByMother(ctx context.Context, motherID string) (*domain.Registration, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE mother_id = $1 ORDER BY created_at LIMIT 1`, motherID)
	reg, err := scanRegistration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainerrors.New(domainerrors.CodeNotFound, "registration not found for mother")
	}
	return reg, err
}

func (s *PostgresStore) Update(ctx context.Context, reg *domain.Registration) error {
	data, err := json.Marshal(reg.Data)
	if err != nil {
		return fmt.Errorf("marshal registration data: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE registrations
		SET stage = $2, mother_id = $3, data = $4, validated = $5, updated_by = $6, updated_at = now()
		WHERE id = $1`,
		reg.ID, reg.Stage, reg.MotherID, data, reg.Validated, reg.UpdatedBy)
	if err != nil {
		return fmt.Errorf("update registration: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domainerrors.New(domainerrors.CodeNotFound, "registration not found")
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*domain.Registration, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var out []*domain.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, reg)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM registrations`).Scan(&count)
	return count, err
}

func (s *PostgresStore) CountByLanguage(ctx context.Context, language string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrations WHERE data->>'language' = $1`, language).Scan(&count)
	return count, err
}

func (s *PostgresStore) CountByAuthority(ctx context.Context, authority domain.Authority) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM registrations r
		JOIN sources s ON s.id = r.source_id
		WHERE s.authority = $1`, authority).Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegistration(row rowScanner) (*domain.Registration, error) {
	var reg domain.Registration
	var data []byte
	err := row.Scan(&reg.ID, &reg.Stage, &reg.MotherID, &data, &reg.Validated,
		&reg.SourceID, &reg.CreatedAt, &reg.UpdatedAt, &reg.CreatedBy, &reg.UpdatedBy)
	if err != nil {
		return nil, err
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &reg.Data); err != nil {
			return nil, fmt.Errorf("unmarshal registration data: %w", err)
		}
	}
	return &reg, nil
}

func (s *PostgresStore) CreateSource(ctx context.Context, src *domain.Source) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO sources (id, name, authority, user_id)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`,
		src.ID, src.Name, src.Authority, src.UserID,
	).Scan(&src.CreatedAt, &src.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert source: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetSource(ctx context.Context, id uuid.UUID) (*domain.Source, error) {
	return s.getSource(ctx, `SELECT id, name, authority, user_id, created_at, updated_at FROM sources WHERE id = $1`, id)
}

func (s *PostgresStore) GetSourceByUser(ctx context.Context, userID string) (*domain.Source, error) {
	return s.getSource(ctx, `SELECT id, name, authority, user_id, created_at, updated_at FROM sources WHERE user_id = $1`, userID)
}

func (s *PostgresStore) getSource(ctx context.Context, q string, arg any) (*domain.Source, error) {
	var src domain.Source
	err := s.db.QueryRowContext(ctx, q, arg).Scan(
		&src.ID, &src.Name, &src.Authority, &src.UserID, &src.CreatedAt, &src.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainerrors.New(domainerrors.CodeNotFound, "source not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get source: %w", err)
	}
	return &src, nil
}
