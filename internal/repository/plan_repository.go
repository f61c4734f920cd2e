package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"casepulse/internal/entities"
)

type PlanRepository struct {
	db *pgxpool.Pool
}

func NewPlanRepository(db *pgxpool.Pool) *PlanRepository {
	return &PlanRepository{db: db}
}

// SyncFromCSV loads plans from a CSV file and upserts them into Postgres.
// Expected columns: code, name, weekly_allowance, overage_fee, currency, details.
func (r *PlanRepository) SyncFromCSV(ctx context.Context, filePath string) (int, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return 0, fmt.Errorf("open plans CSV: %w", err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return 0, fmt.Errorf("read plans CSV: %w", err)
	}

	synced := 0
	// Skip header row
	for i := 1; i < len(records); i++ {
		rec := records[i]
		if len(rec) < 6 {
			continue
		}
		allowance, err := strconv.Atoi(rec[2])
		if err != nil {
			continue
		}
		fee, err := strconv.ParseFloat(rec[3], 64)
		if err != nil {
			continue
		}
		plan := &entities.Plan{
			Code:            rec[0],
			Name:            rec[1],
			WeeklyAllowance: allowance,
			OverageFee:      fee,
			Currency:        rec[4],
			Details:         rec[5],
		}
		if err := r.Upsert(ctx, plan); err != nil {
			return synced, fmt.Errorf("sync plan %s: %w", plan.Code, err)
		}
		synced++
	}
	return synced, nil
}

func (r *PlanRepository) Upsert(ctx context.Context, plan *entities.Plan) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO plans (code, name, weekly_allowance, overage_fee, currency, details)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (code) DO UPDATE
		SET name = EXCLUDED.name,
		    weekly_allowance = EXCLUDED.weekly_allowance,
		    overage_fee = EXCLUDED.overage_fee,
		    currency = EXCLUDED.currency,
		    details = EXCLUDED.details
	`, plan.Code, plan.Name, plan.WeeklyAllowance, plan.OverageFee, plan.Currency, plan.Details)
	return err
}

func (r *PlanRepository) GetByCode(ctx context.Context, code string) (*entities.Plan, error) {
	var plan entities.Plan
	err := r.db.QueryRow(ctx,
		`SELECT code, name, weekly_allowance, overage_fee, currency, details
		 FROM plans WHERE code = $1`, code).
		Scan(&plan.Code, &plan.Name, &plan.WeeklyAllowance, &plan.OverageFee,
			&plan.Currency, &plan.Details)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *PlanRepository) List(ctx context.Context) ([]entities.Plan, error) {
	rows, err := r.db.Query(ctx,
		`SELECT code, name, weekly_allowance, overage_fee, currency, details
		 FROM plans ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	plans := []entities.Plan{}
	for rows.Next() {
		var p entities.Plan
		if err := rows.Scan(&p.Code, &p.Name, &p.WeeklyAllowance, &p.OverageFee,
			&p.Currency, &p.Details); err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

// EnsureDefault seeds the standard plan when the table is empty.
func (r *PlanRepository) EnsureDefault(ctx context.Context, weeklyAllowance int) error {
	var count int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM plans").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return r.Upsert(ctx, &entities.Plan{
		Code:            "standard",
		Name:            "Standard",
		WeeklyAllowance: weeklyAllowance,
		OverageFee:      0,
		Currency:        "USD",
		Details:         "Included AI replies per client per week",
	})
}
