package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"casepulse/internal/entities"
)

type ActionItemRepository struct {
	db *pgxpool.Pool
}

func NewActionItemRepository(db *pgxpool.Pool) *ActionItemRepository {
	return &ActionItemRepository{db: db}
}

func (r *ActionItemRepository) Create(ctx context.Context, item *entities.ActionItem) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO action_items (client_id, kind, description, due_at, priority, status)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`,
		item.ClientID, item.Kind, item.Description, item.DueAt, item.Priority, item.Status).
		Scan(&item.ID, &item.CreatedAt)
}

// ListOpen returns open items firm-wide, soonest due first.
func (r *ActionItemRepository) ListOpen(ctx context.Context, limit int) ([]entities.ActionItem, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, client_id, kind, description, due_at, priority, status, created_at
		 FROM action_items WHERE status = 'open'
		 ORDER BY due_at ASC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanActionItems(rows)
}

func (r *ActionItemRepository) ListByClient(ctx context.Context, clientID int) ([]entities.ActionItem, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, client_id, kind, description, due_at, priority, status, created_at
		 FROM action_items WHERE client_id = $1
		 ORDER BY due_at ASC`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanActionItems(rows)
}

func (r *ActionItemRepository) SetStatus(ctx context.Context, id int, status string) error {
	_, err := r.db.Exec(ctx,
		"UPDATE action_items SET status = $1 WHERE id = $2", status, id)
	return err
}

func scanActionItems(rows pgx.Rows) ([]entities.ActionItem, error) {
	items := []entities.ActionItem{}
	for rows.Next() {
		var it entities.ActionItem
		if err := rows.Scan(&it.ID, &it.ClientID, &it.Kind, &it.Description,
			&it.DueAt, &it.Priority, &it.Status, &it.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
