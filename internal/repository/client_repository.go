package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"casepulse/internal/entities"
)

const clientColumns = `id, name, phone, email, case_manager, case_type, gender,
	accident_date, signup_date, risk_level, risk_score, last_sentiment,
	last_contact_at, preferred_channel, status, created_at`

type ClientRepository struct {
	db *pgxpool.Pool
}

func NewClientRepository(db *pgxpool.Pool) *ClientRepository {
	return &ClientRepository{db: db}
}

func (r *ClientRepository) Create(ctx context.Context, client *entities.Client) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO clients (name, phone, email, case_manager, case_type, gender,
			accident_date, signup_date, risk_level, risk_score, last_sentiment,
			last_contact_at, preferred_channel, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 RETURNING id, created_at`,
		client.Name, client.Phone, client.Email, client.CaseManager, client.CaseType,
		client.Gender, client.AccidentDate, client.SignupDate, client.RiskLevel,
		client.RiskScore, client.LastSentiment, client.LastContactAt,
		client.PreferredChannel, client.Status).
		Scan(&client.ID, &client.CreatedAt)
}

func (r *ClientRepository) GetByID(ctx context.Context, id int) (*entities.Client, error) {
	row := r.db.QueryRow(ctx,
		"SELECT "+clientColumns+" FROM clients WHERE id = $1", id)
	return scanClientRow(row)
}

// GetByPhone resolves an inbound sender to a client, nil when unknown.
// WhatsApp senders arrive without the leading +, so the match ignores it.
func (r *ClientRepository) GetByPhone(ctx context.Context, phone string) (*entities.Client, error) {
	row := r.db.QueryRow(ctx,
		"SELECT "+clientColumns+" FROM clients WHERE ltrim(phone, '+') = ltrim($1, '+')", phone)
	return scanClientRow(row)
}

// List returns clients, optionally filtered by status and risk level.
func (r *ClientRepository) List(ctx context.Context, status, risk string) ([]entities.Client, error) {
	query := "SELECT " + clientColumns + " FROM clients WHERE 1=1"
	args := []interface{}{}
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if risk != "" {
		args = append(args, risk)
		query += fmt.Sprintf(" AND risk_level = $%d", len(args))
	}
	query += " ORDER BY name"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanClients(rows)
}

// ListActive returns clients eligible for automated contact.
func (r *ClientRepository) ListActive(ctx context.Context) ([]entities.Client, error) {
	return r.List(ctx, entities.ClientActive, "")
}

func (r *ClientRepository) Update(ctx context.Context, client *entities.Client) error {
	_, err := r.db.Exec(ctx,
		`UPDATE clients SET name = $1, phone = $2, email = $3, case_manager = $4,
			case_type = $5, gender = $6, accident_date = $7, signup_date = $8,
			preferred_channel = $9, status = $10
		 WHERE id = $11`,
		client.Name, client.Phone, client.Email, client.CaseManager, client.CaseType,
		client.Gender, client.AccidentDate, client.SignupDate,
		client.PreferredChannel, client.Status, client.ID)
	return err
}

// UpdateRisk records the latest risk assessment outcome.
func (r *ClientRepository) UpdateRisk(ctx context.Context, id int, level entities.RiskLevel, score float64) error {
	_, err := r.db.Exec(ctx,
		"UPDATE clients SET risk_level = $1, risk_score = $2 WHERE id = $3",
		level, score, id)
	return err
}

// TouchContact updates the conversational state after an inbound message.
func (r *ClientRepository) TouchContact(ctx context.Context, id int, sentiment entities.Sentiment, at time.Time) error {
	_, err := r.db.Exec(ctx,
		"UPDATE clients SET last_sentiment = $1, last_contact_at = $2 WHERE id = $3",
		sentiment, at, id)
	return err
}

func (r *ClientRepository) SetStatus(ctx context.Context, id int, status string) error {
	_, err := r.db.Exec(ctx,
		"UPDATE clients SET status = $1 WHERE id = $2", status, id)
	return err
}

// CountByRisk returns active client counts per risk level for the dashboard.
func (r *ClientRepository) CountByRisk(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.Query(ctx,
		`SELECT risk_level, COUNT(*) FROM clients
		 WHERE status = $1 GROUP BY risk_level`, entities.ClientActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var level string
		var n int
		if err := rows.Scan(&level, &n); err != nil {
			return nil, err
		}
		counts[level] = n
	}
	return counts, rows.Err()
}

func scanClientRow(row pgx.Row) (*entities.Client, error) {
	var c entities.Client
	err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.CaseManager, &c.CaseType,
		&c.Gender, &c.AccidentDate, &c.SignupDate, &c.RiskLevel, &c.RiskScore,
		&c.LastSentiment, &c.LastContactAt, &c.PreferredChannel, &c.Status, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanClients(rows pgx.Rows) ([]entities.Client, error) {
	clients := []entities.Client{}
	for rows.Next() {
		var c entities.Client
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.CaseManager,
			&c.CaseType, &c.Gender, &c.AccidentDate, &c.SignupDate, &c.RiskLevel,
			&c.RiskScore, &c.LastSentiment, &c.LastContactAt, &c.PreferredChannel,
			&c.Status, &c.CreatedAt); err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}
