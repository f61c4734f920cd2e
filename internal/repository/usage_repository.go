package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"casepulse/internal/entities"
)

type UsageRepository struct {
	db *pgxpool.Pool
}

// CapStatus reports where a client stands against the weekly reply allowance.
type CapStatus struct {
	WeekStart time.Time `json:"week_start"`
	Cap       int       `json:"cap"`
	Used      int       `json:"used"`
	Remaining int       `json:"remaining"`
	Percent   int       `json:"percent"`
}

func NewUsageRepository(db *pgxpool.Pool) *UsageRepository {
	return &UsageRepository{db: db}
}

// WeekStart truncates a time to the Monday of its ISO week, UTC.
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	offset := (int(t.Weekday()) + 6) % 7
	day := t.AddDate(0, 0, -offset)
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
}

// IncrementReply bumps the client's reply count for the current week.
func (r *UsageRepository) IncrementReply(ctx context.Context, clientID int, now time.Time) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO reply_usage (client_id, week_start, replies_sent)
		VALUES ($1, $2, 1)
		ON CONFLICT (client_id, week_start)
		DO UPDATE SET replies_sent = reply_usage.replies_sent + 1
	`, clientID, WeekStart(now))
	return err
}

// RepliesThisWeek returns the client's reply count for the current week.
func (r *UsageRepository) RepliesThisWeek(ctx context.Context, clientID int, now time.Time) (int, error) {
	var sent int
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(replies_sent, 0) FROM reply_usage
		WHERE client_id = $1 AND week_start = $2
	`, clientID, WeekStart(now)).Scan(&sent)
	if err != nil {
		return 0, nil // No record means 0 usage
	}
	return sent, nil
}

// UsageBetween returns per-client weekly usage rows inside a billing period.
func (r *UsageRepository) UsageBetween(ctx context.Context, from, to time.Time) ([]entities.UsageWeek, error) {
	rows, err := r.db.Query(ctx, `
		SELECT client_id, week_start, replies_sent FROM reply_usage
		WHERE week_start >= $1 AND week_start < $2
		ORDER BY week_start ASC, client_id ASC
	`, WeekStart(from), to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	usage := []entities.UsageWeek{}
	for rows.Next() {
		var u entities.UsageWeek
		if err := rows.Scan(&u.ClientID, &u.WeekStart, &u.RepliesSent); err != nil {
			return nil, err
		}
		usage = append(usage, u)
	}
	return usage, rows.Err()
}

// GetCapStatus returns the client's standing against the weekly cap.
func (r *UsageRepository) GetCapStatus(ctx context.Context, clientID, cap int, now time.Time) (*CapStatus, error) {
	used, err := r.RepliesThisWeek(ctx, clientID, now)
	if err != nil {
		return nil, err
	}

	status := &CapStatus{
		WeekStart: WeekStart(now),
		Cap:       cap,
		Used:      used,
	}
	if cap > 0 {
		status.Remaining = cap - used
		if status.Remaining < 0 {
			status.Remaining = 0
		}
		status.Percent = (used * 100) / cap
		if status.Percent > 100 {
			status.Percent = 100
		}
	} else {
		status.Remaining = -1 // Unlimited
	}
	return status, nil
}
