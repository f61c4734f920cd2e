package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"casepulse/internal/entities"
)

const reportColumns = `id, client_id, period_start, period_end, executive_summary,
	current_sentiment, key_concerns, communication_style, relationship_health,
	action_items, warning_signs, strengths, next_contact_recommendation,
	priority_level, COALESCE(risk_snapshot::text, ''), generated_at`

type ReportRepository struct {
	db *pgxpool.Pool
}

func NewReportRepository(db *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) Create(ctx context.Context, report *entities.InsightReport) error {
	var snapshot interface{}
	if report.RiskSnapshot != "" {
		snapshot = report.RiskSnapshot
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO insight_reports (id, client_id, period_start, period_end,
			executive_summary, current_sentiment, key_concerns, communication_style,
			relationship_health, action_items, warning_signs, strengths,
			next_contact_recommendation, priority_level, risk_snapshot, generated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		report.ID, report.ClientID, report.PeriodStart, report.PeriodEnd,
		report.ExecutiveSummary, report.CurrentSentiment, report.KeyConcerns,
		report.CommunicationStyle, report.RelationshipHealth, report.ActionItems,
		report.WarningSigns, report.Strengths, report.NextContactRecommendation,
		report.PriorityLevel, snapshot, report.GeneratedAt)
	return err
}

// Latest returns a client's most recent report, nil when none exists.
func (r *ReportRepository) Latest(ctx context.Context, clientID int) (*entities.InsightReport, error) {
	row := r.db.QueryRow(ctx,
		"SELECT "+reportColumns+" FROM insight_reports WHERE client_id = $1 ORDER BY generated_at DESC LIMIT 1",
		clientID)
	report, err := scanReport(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return report, err
}

func (r *ReportRepository) ListByClient(ctx context.Context, clientID, limit int) ([]entities.InsightReport, error) {
	rows, err := r.db.Query(ctx,
		"SELECT "+reportColumns+" FROM insight_reports WHERE client_id = $1 ORDER BY generated_at DESC LIMIT $2",
		clientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := []entities.InsightReport{}
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *report)
	}
	return reports, rows.Err()
}

// DueClientIDs returns active clients whose latest report predates the cutoff,
// including clients never reported on.
func (r *ReportRepository) DueClientIDs(ctx context.Context, cutoff time.Time) ([]int, error) {
	rows, err := r.db.Query(ctx, `
		SELECT c.id FROM clients c
		LEFT JOIN LATERAL (
			SELECT generated_at FROM insight_reports
			WHERE client_id = c.id ORDER BY generated_at DESC LIMIT 1
		) latest ON TRUE
		WHERE c.status = $1 AND (latest.generated_at IS NULL OR latest.generated_at < $2)
		ORDER BY c.id
	`, entities.ClientActive, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanReport(row pgx.Row) (*entities.InsightReport, error) {
	var rep entities.InsightReport
	err := row.Scan(&rep.ID, &rep.ClientID, &rep.PeriodStart, &rep.PeriodEnd,
		&rep.ExecutiveSummary, &rep.CurrentSentiment, &rep.KeyConcerns,
		&rep.CommunicationStyle, &rep.RelationshipHealth, &rep.ActionItems,
		&rep.WarningSigns, &rep.Strengths, &rep.NextContactRecommendation,
		&rep.PriorityLevel, &rep.RiskSnapshot, &rep.GeneratedAt)
	if err != nil {
		return nil, err
	}
	return &rep, nil
}
