package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"casepulse/internal/entities"
)

const insightColumns = `id, client_id, insight_type, category, message, confidence,
	supporting_evidence, recommended_actions, priority, status,
	COALESCE(source_message_id::text, ''), created_at`

type InsightRepository struct {
	db *pgxpool.Pool
}

func NewInsightRepository(db *pgxpool.Pool) *InsightRepository {
	return &InsightRepository{db: db}
}

func (r *InsightRepository) Create(ctx context.Context, insight *entities.Insight) error {
	var sourceID interface{}
	if insight.SourceMessageID != "" {
		sourceID = insight.SourceMessageID
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO insights (id, client_id, insight_type, category, message,
			confidence, supporting_evidence, recommended_actions, priority,
			status, source_message_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		insight.ID, insight.ClientID, insight.Type, insight.Category, insight.Message,
		insight.Confidence, insight.SupportingEvidence, insight.RecommendedActions,
		insight.Priority, insight.Status, sourceID, insight.CreatedAt)
	return err
}

// ListByClient returns a client's insights, optionally filtered by status.
func (r *InsightRepository) ListByClient(ctx context.Context, clientID int, status string) ([]entities.Insight, error) {
	query := "SELECT " + insightColumns + " FROM insights WHERE client_id = $1"
	args := []interface{}{clientID}
	if status != "" {
		query += " AND status = $2"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInsights(rows)
}

// List returns insights matching the given filters. Zero or empty values
// leave that filter off.
func (r *InsightRepository) List(ctx context.Context, clientID int, insightType, status string, limit int) ([]entities.Insight, error) {
	query := "SELECT " + insightColumns + " FROM insights WHERE 1=1"
	args := []interface{}{}
	if clientID > 0 {
		args = append(args, clientID)
		query += fmt.Sprintf(" AND client_id = $%d", len(args))
	}
	if insightType != "" {
		args = append(args, insightType)
		query += fmt.Sprintf(" AND insight_type = $%d", len(args))
	}
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInsights(rows)
}

// ListActive returns the most recent unresolved insights firm-wide.
func (r *InsightRepository) ListActive(ctx context.Context, limit int) ([]entities.Insight, error) {
	rows, err := r.db.Query(ctx,
		"SELECT "+insightColumns+" FROM insights WHERE status = $1 ORDER BY created_at DESC LIMIT $2",
		entities.InsightActive, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInsights(rows)
}

func (r *InsightRepository) SetStatus(ctx context.Context, id, status string) error {
	_, err := r.db.Exec(ctx,
		"UPDATE insights SET status = $1 WHERE id = $2", status, id)
	return err
}

func scanInsights(rows pgx.Rows) ([]entities.Insight, error) {
	insights := []entities.Insight{}
	for rows.Next() {
		var i entities.Insight
		if err := rows.Scan(&i.ID, &i.ClientID, &i.Type, &i.Category, &i.Message,
			&i.Confidence, &i.SupportingEvidence, &i.RecommendedActions,
			&i.Priority, &i.Status, &i.SourceMessageID, &i.CreatedAt); err != nil {
			return nil, err
		}
		insights = append(insights, i)
	}
	return insights, rows.Err()
}
