package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"casepulse/internal/entities"
)

const messageColumns = `id, client_id, direction, channel, body, sentiment, action,
	confidence, concern_level, flagged, delay_seconds, status, created_at`

type MessageRepository struct {
	db *pgxpool.Pool
}

// DailyVolume is one day of message traffic for a client.
type DailyVolume struct {
	Date     time.Time `json:"date"`
	Inbound  int       `json:"inbound"`
	Outbound int       `json:"outbound"`
}

func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(ctx context.Context, msg *entities.Message) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO messages (id, client_id, direction, channel, body, sentiment,
			action, confidence, concern_level, flagged, delay_seconds, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		msg.ID, msg.ClientID, msg.Direction, msg.Channel, msg.Body, msg.Sentiment,
		msg.Action, msg.Confidence, msg.ConcernLevel, msg.Flagged,
		msg.DelaySeconds, msg.Status, msg.CreatedAt)
	return err
}

// UpdateTriage writes the pipeline outcome back onto the inbound row.
func (r *MessageRepository) UpdateTriage(ctx context.Context, msg *entities.Message) error {
	_, err := r.db.Exec(ctx,
		`UPDATE messages SET sentiment = $1, action = $2, confidence = $3,
			concern_level = $4, flagged = $5
		 WHERE id = $6`,
		msg.Sentiment, msg.Action, msg.Confidence, msg.ConcernLevel, msg.Flagged, msg.ID)
	return err
}

// UpdateStatus records the delivery outcome of an outbound message.
func (r *MessageRepository) UpdateStatus(ctx context.Context, id, status string) error {
	_, err := r.db.Exec(ctx,
		"UPDATE messages SET status = $1 WHERE id = $2", status, id)
	return err
}

func (r *MessageRepository) GetByID(ctx context.Context, id string) (*entities.Message, error) {
	var m entities.Message
	err := r.db.QueryRow(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE id = $1`, id).
		Scan(&m.ID, &m.ClientID, &m.Direction, &m.Channel, &m.Body,
			&m.Sentiment, &m.Action, &m.Confidence, &m.ConcernLevel, &m.Flagged,
			&m.DelaySeconds, &m.Status, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// History returns the last n messages for a client in chronological order.
func (r *MessageRepository) History(ctx context.Context, clientID, n int) ([]entities.Message, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+messageColumns+` FROM (
			SELECT `+messageColumns+` FROM messages
			WHERE client_id = $1 ORDER BY created_at DESC LIMIT $2
		 ) recent ORDER BY created_at ASC`,
		clientID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

// Between returns a client's messages inside a report period, oldest first.
func (r *MessageRepository) Between(ctx context.Context, clientID int, from, to time.Time) ([]entities.Message, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+messageColumns+` FROM messages
		 WHERE client_id = $1 AND created_at >= $2 AND created_at < $3
		 ORDER BY created_at ASC`,
		clientID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

// ListFlagged returns the most recent flagged inbound messages.
func (r *MessageRepository) ListFlagged(ctx context.Context, limit int) ([]entities.Message, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+messageColumns+` FROM messages
		 WHERE flagged ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

// RecentSentiments returns the last n inbound sentiments, newest first.
func (r *MessageRepository) RecentSentiments(ctx context.Context, clientID, n int) ([]entities.Sentiment, error) {
	rows, err := r.db.Query(ctx,
		`SELECT sentiment FROM messages
		 WHERE client_id = $1 AND direction = $2 AND sentiment <> ''
		 ORDER BY created_at DESC LIMIT $3`,
		clientID, entities.DirectionInbound, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sentiments := []entities.Sentiment{}
	for rows.Next() {
		var s entities.Sentiment
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		sentiments = append(sentiments, s)
	}
	return sentiments, rows.Err()
}

// CountByDirection returns inbound and outbound counts since a cutoff.
// A zero clientID counts across the whole roster.
func (r *MessageRepository) CountByDirection(ctx context.Context, clientID int, since time.Time) (inbound, outbound int, err error) {
	err = r.db.QueryRow(ctx,
		`SELECT
			COUNT(*) FILTER (WHERE direction = $2),
			COUNT(*) FILTER (WHERE direction = $3)
		 FROM messages WHERE ($1 = 0 OR client_id = $1) AND created_at >= $4`,
		clientID, entities.DirectionInbound, entities.DirectionOutbound, since).
		Scan(&inbound, &outbound)
	return inbound, outbound, err
}

// VolumeByDay returns daily traffic for the last n days. A zero clientID
// aggregates across the whole roster.
func (r *MessageRepository) VolumeByDay(ctx context.Context, clientID, days int) ([]DailyVolume, error) {
	start := time.Now().UTC().AddDate(0, 0, -days)
	rows, err := r.db.Query(ctx,
		`SELECT date_trunc('day', created_at) AS day,
			COUNT(*) FILTER (WHERE direction = $2),
			COUNT(*) FILTER (WHERE direction = $3)
		 FROM messages
		 WHERE ($1 = 0 OR client_id = $1) AND created_at >= $4
		 GROUP BY day ORDER BY day ASC`,
		clientID, entities.DirectionInbound, entities.DirectionOutbound, start)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	volume := []DailyVolume{}
	for rows.Next() {
		var v DailyVolume
		if err := rows.Scan(&v.Date, &v.Inbound, &v.Outbound); err != nil {
			return nil, err
		}
		volume = append(volume, v)
	}
	return volume, rows.Err()
}

// SentimentBreakdown returns inbound sentiment counts since a cutoff, firm-wide.
func (r *MessageRepository) SentimentBreakdown(ctx context.Context, since time.Time) (map[string]int, error) {
	return r.breakdown(ctx, "sentiment", since)
}

// ActionBreakdown returns triage action counts since a cutoff, firm-wide.
func (r *MessageRepository) ActionBreakdown(ctx context.Context, since time.Time) (map[string]int, error) {
	return r.breakdown(ctx, "action", since)
}

func (r *MessageRepository) breakdown(ctx context.Context, column string, since time.Time) (map[string]int, error) {
	// column is a trusted identifier, never user input.
	rows, err := r.db.Query(ctx,
		`SELECT `+column+`, COUNT(*) FROM messages
		 WHERE direction = $1 AND `+column+` <> '' AND created_at >= $2
		 GROUP BY `+column,
		entities.DirectionInbound, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		counts[key] = n
	}
	return counts, rows.Err()
}

// TrendPoint is one day's triaged-message confidence and concern picture.
type TrendPoint struct {
	Date          time.Time `json:"date"`
	AvgConfidence float64   `json:"avg_confidence"`
	HighConcern   int       `json:"high_concern"`
	Flagged       int       `json:"flagged"`
}

// TriageTrend returns per-day averaged confidence and concern counts over
// the last n days, firm-wide.
func (r *MessageRepository) TriageTrend(ctx context.Context, days int) ([]TrendPoint, error) {
	start := time.Now().UTC().AddDate(0, 0, -days)
	rows, err := r.db.Query(ctx,
		`SELECT date_trunc('day', created_at) AS day,
			COALESCE(AVG(confidence), 0),
			COUNT(*) FILTER (WHERE concern_level = 'high'),
			COUNT(*) FILTER (WHERE flagged)
		 FROM messages
		 WHERE direction = $1 AND action <> '' AND created_at >= $2
		 GROUP BY day ORDER BY day ASC`,
		entities.DirectionInbound, start)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	trend := []TrendPoint{}
	for rows.Next() {
		var p TrendPoint
		if err := rows.Scan(&p.Date, &p.AvgConfidence, &p.HighConcern, &p.Flagged); err != nil {
			return nil, err
		}
		trend = append(trend, p)
	}
	return trend, rows.Err()
}

// ExportCSV streams a client's full message history as CSV.
func (r *MessageRepository) ExportCSV(ctx context.Context, clientID int, w io.Writer) error {
	rows, err := r.db.Query(ctx,
		`SELECT `+messageColumns+` FROM messages
		 WHERE client_id = $1 ORDER BY created_at ASC`, clientID)
	if err != nil {
		return err
	}
	defer rows.Close()

	messages, err := scanMessages(rows)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"created_at", "direction", "channel", "body",
		"sentiment", "action", "confidence", "concern_level", "flagged",
		"delay_seconds", "status"}); err != nil {
		return err
	}
	for _, m := range messages {
		record := []string{
			m.CreatedAt.UTC().Format(time.RFC3339),
			m.Direction,
			m.Channel,
			m.Body,
			string(m.Sentiment),
			string(m.Action),
			strconv.FormatFloat(m.Confidence, 'f', 2, 64),
			m.ConcernLevel,
			strconv.FormatBool(m.Flagged),
			strconv.FormatFloat(m.DelaySeconds, 'f', 1, 64),
			m.Status,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func scanMessages(rows pgx.Rows) ([]entities.Message, error) {
	messages := []entities.Message{}
	for rows.Next() {
		var m entities.Message
		if err := rows.Scan(&m.ID, &m.ClientID, &m.Direction, &m.Channel, &m.Body,
			&m.Sentiment, &m.Action, &m.Confidence, &m.ConcernLevel, &m.Flagged,
			&m.DelaySeconds, &m.Status, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
