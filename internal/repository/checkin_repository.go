package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"casepulse/internal/entities"
)

type CheckInRepository struct {
	db *pgxpool.Pool
}

func NewCheckInRepository(db *pgxpool.Pool) *CheckInRepository {
	return &CheckInRepository{db: db}
}

func (r *CheckInRepository) Schedule(ctx context.Context, checkin *entities.CheckIn) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO checkins (client_id, due_at, status, cadence, body)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		checkin.ClientID, checkin.DueAt, checkin.Status, checkin.Cadence, checkin.Body).
		Scan(&checkin.ID)
}

// Due returns pending check-ins whose due time has passed.
func (r *CheckInRepository) Due(ctx context.Context, now time.Time, limit int) ([]entities.CheckIn, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, client_id, due_at, sent_at, status, cadence, body
		 FROM checkins
		 WHERE status = $1 AND due_at <= $2
		 ORDER BY due_at ASC LIMIT $3`,
		entities.CheckInPending, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCheckIns(rows)
}

// HasPending reports whether a client already has a scheduled check-in.
func (r *CheckInRepository) HasPending(ctx context.Context, clientID int) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM checkins WHERE client_id = $1 AND status = $2)",
		clientID, entities.CheckInPending).Scan(&exists)
	return exists, err
}

func (r *CheckInRepository) MarkSent(ctx context.Context, id int, at time.Time, body string) error {
	_, err := r.db.Exec(ctx,
		"UPDATE checkins SET status = $1, sent_at = $2, body = $3 WHERE id = $4",
		entities.CheckInSent, at, body, id)
	return err
}

func (r *CheckInRepository) MarkSkipped(ctx context.Context, id int) error {
	_, err := r.db.Exec(ctx,
		"UPDATE checkins SET status = $1 WHERE id = $2",
		entities.CheckInSkipped, id)
	return err
}

// Upcoming returns a client's scheduled and recent check-ins for the dashboard.
func (r *CheckInRepository) Upcoming(ctx context.Context, clientID, limit int) ([]entities.CheckIn, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, client_id, due_at, sent_at, status, cadence, body
		 FROM checkins WHERE client_id = $1
		 ORDER BY due_at DESC LIMIT $2`,
		clientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCheckIns(rows)
}

func scanCheckIns(rows pgx.Rows) ([]entities.CheckIn, error) {
	checkins := []entities.CheckIn{}
	for rows.Next() {
		var c entities.CheckIn
		if err := rows.Scan(&c.ID, &c.ClientID, &c.DueAt, &c.SentAt,
			&c.Status, &c.Cadence, &c.Body); err != nil {
			return nil, err
		}
		checkins = append(checkins, c)
	}
	return checkins, rows.Err()
}
