// internal/repository/postgres/saved_search_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	domain "listing-service/internal/domain/listing"
	xerrors "listing-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const savedSearchSchema = `
	CREATE TABLE IF NOT EXISTS saved_searches (
		id          TEXT PRIMARY KEY,
		identity_id TEXT NOT NULL,
		name        TEXT NOT NULL,
		query       TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (identity_id, query)
	);
	CREATE INDEX IF NOT EXISTS idx_saved_searches_identity
		ON saved_searches (identity_id, created_at DESC);
`

type SavedSearchRepository struct {
	db *pgxpool.Pool
}

func NewSavedSearchRepository(db *pgxpool.Pool) *SavedSearchRepository {
	return &SavedSearchRepository{db: db}
}

// Migrate creates the saved_searches table when missing.
func (r *SavedSearchRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, savedSearchSchema); err != nil {
		return fmt.Errorf("failed to migrate saved_searches: %w", err)
	}
	return nil
}

// Upsert stores s. Saving the same query twice renames the existing entry
// and keeps its id.
func (r *SavedSearchRepository) Upsert(ctx context.Context, s *domain.SavedSearch) error {
	query := `
		INSERT INTO saved_searches (id, identity_id, name, query)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (identity_id, query) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query, s.ID, s.IdentityID, s.Name, s.Query).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save search: %w", err)
	}
	return nil
}

func (r *SavedSearchRepository) ListByIdentity(ctx context.Context, identityID string) ([]domain.SavedSearch, error) {
	query := `
		SELECT id, identity_id, name, query, created_at
		FROM saved_searches
		WHERE identity_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query, identityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list saved searches: %w", err)
	}

	searches, err := pgx.CollectRows(rows, pgx.RowToStructByNameLax[domain.SavedSearch])
	if err != nil {
		return nil, fmt.Errorf("failed to scan saved searches: %w", err)
	}
	return searches, nil
}

func (r *SavedSearchRepository) CountByIdentity(ctx context.Context, identityID string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM saved_searches WHERE identity_id = $1`, identityID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count saved searches: %w", err)
	}
	return n, nil
}

func (r *SavedSearchRepository) FindByID(ctx context.Context, identityID, id string) (*domain.SavedSearch, error) {
	query := `
		SELECT id, identity_id, name, query, created_at
		FROM saved_searches
		WHERE id = $1 AND identity_id = $2
	`

	var s domain.SavedSearch
	err := r.db.QueryRow(ctx, query, id, identityID).Scan(&s.ID, &s.IdentityID, &s.Name, &s.Query, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find saved search: %w", err)
	}
	return &s, nil
}

func (r *SavedSearchRepository) Delete(ctx context.Context, identityID, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM saved_searches WHERE id = $1 AND identity_id = $2`, id, identityID)
	if err != nil {
		return fmt.Errorf("failed to delete saved search: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}
