package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"gamedex/internal/domain"
)

type savedSearchRow struct {
	ID        string `db:"id"`
	Query     string `db:"query"`
	CreatedAt int64  `db:"created_at"`
}

type SavedSearchStore struct {
	db *sqlx.DB
}

func NewSavedSearchStore(db *sqlx.DB) *SavedSearchStore {
	return &SavedSearchStore{db: db}
}

func (s *SavedSearchStore) Save(ctx context.Context, rec *domain.SavedSearchRecord) error {
	if rec == nil || rec.ID == "" {
		return errors.New("insert saved search: record id is required")
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	exec := GetExecutor(ctx, s.db)
	query := exec.Rebind(`INSERT INTO saved_searches (id, query, created_at) VALUES (?, ?, ?)`)
	if _, err := exec.ExecContext(ctx, query, rec.ID, rec.Query, createdAt.UTC().UnixNano()); err != nil {
		return fmt.Errorf("insert saved search: %w", err)
	}
	return nil
}

func (s *SavedSearchStore) GetAll(ctx context.Context) ([]domain.SavedSearchRecord, error) {
	var rows []savedSearchRow
	exec := GetExecutor(ctx, s.db)
	query := `SELECT id, query, created_at FROM saved_searches ORDER BY created_at, id`
	if err := sqlx.SelectContext(ctx, exec, &rows, query); err != nil {
		return nil, fmt.Errorf("select saved searches: %w", err)
	}

	records := make([]domain.SavedSearchRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, domain.SavedSearchRecord{
			ID:        row.ID,
			Query:     row.Query,
			CreatedAt: time.Unix(0, row.CreatedAt).UTC(),
		})
	}
	return records, nil
}

func (s *SavedSearchStore) Delete(ctx context.Context, id string) error {
	exec := GetExecutor(ctx, s.db)
	if _, err := exec.ExecContext(ctx, exec.Rebind(`DELETE FROM saved_searches WHERE id = ?`), id); err != nil {
		return fmt.Errorf("delete saved search %s: %w", id, err)
	}
	return nil
}
