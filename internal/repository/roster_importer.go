package repository

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"casepulse/internal/entities"
)

// RosterImportResult summarizes one roster upload.
type RosterImportResult struct {
	ID       int      `json:"id"`
	Filename string   `json:"filename"`
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// RosterImporter loads client rosters exported from case management software.
type RosterImporter struct {
	db *pgxpool.Pool
}

func NewRosterImporter(db *pgxpool.Pool) *RosterImporter {
	return &RosterImporter{db: db}
}

var rosterColumns = map[string]int{
	"name": 0, "phone": 1, "email": 2, "case_manager": 3, "case_type": 4,
	"gender": 5, "accident_date": 6, "signup_date": 7, "preferred_channel": 8,
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.ReplaceAll(h, " ", "_")
}

// ParseRoster reads a roster CSV into clients. Headers may appear in any
// order; unknown columns are ignored. Rows missing required fields are
// reported, not fatal.
func ParseRoster(data io.Reader) ([]entities.Client, []string, error) {
	reader := csv.NewReader(data)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read roster CSV: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil, fmt.Errorf("roster CSV has no data rows")
	}

	index := map[string]int{}
	for i, h := range rows[0] {
		key := normalizeHeader(h)
		if _, known := rosterColumns[key]; known {
			index[key] = i
		}
	}
	for _, required := range []string{"name", "phone", "case_manager", "gender", "accident_date"} {
		if _, ok := index[required]; !ok {
			return nil, nil, fmt.Errorf("roster CSV missing %q column", required)
		}
	}

	field := func(row []string, key string) string {
		i, ok := index[key]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	clients := []entities.Client{}
	problems := []string{}
	now := time.Now().UTC()

	for n := 1; n < len(rows); n++ {
		row := rows[n]
		client := entities.Client{
			Name:             field(row, "name"),
			Phone:            entities.NormalizePhone(field(row, "phone")),
			Email:            field(row, "email"),
			CaseManager:      field(row, "case_manager"),
			CaseType:         field(row, "case_type"),
			Gender:           strings.ToLower(field(row, "gender")),
			PreferredChannel: strings.ToLower(field(row, "preferred_channel")),
			RiskLevel:        entities.RiskMedium,
			RiskScore:        5,
			LastSentiment:    entities.SentimentNeutral,
			LastContactAt:    now,
			Status:           entities.ClientActive,
		}
		if client.PreferredChannel == "" {
			client.PreferredChannel = entities.ChannelSMS
		}

		switch {
		case client.Name == "":
			problems = append(problems, fmt.Sprintf("row %d: missing name", n+1))
			continue
		case client.Phone == "":
			problems = append(problems, fmt.Sprintf("row %d: missing phone", n+1))
			continue
		case client.CaseManager == "":
			problems = append(problems, fmt.Sprintf("row %d: missing case_manager", n+1))
			continue
		case client.Gender == "":
			problems = append(problems, fmt.Sprintf("row %d: missing gender", n+1))
			continue
		}

		accident, err := time.Parse("2006-01-02", field(row, "accident_date"))
		if err != nil {
			problems = append(problems, fmt.Sprintf("row %d: bad accident_date %q", n+1, field(row, "accident_date")))
			continue
		}
		client.AccidentDate = accident

		if raw := field(row, "signup_date"); raw != "" {
			signup, err := time.Parse("2006-01-02", raw)
			if err != nil {
				problems = append(problems, fmt.Sprintf("row %d: bad signup_date %q", n+1, raw))
				continue
			}
			client.SignupDate = signup
		} else {
			client.SignupDate = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		}

		clients = append(clients, client)
	}
	return clients, problems, nil
}

// ImportCSV parses a roster and upserts the clients transactionally,
// recording the upload in the imports registry.
func (r *RosterImporter) ImportCSV(ctx context.Context, filename string, data io.Reader) (*RosterImportResult, error) {
	clients, problems, err := ParseRoster(data)
	if err != nil {
		return nil, err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin roster import: %w", err)
	}
	defer tx.Rollback(ctx)

	imported := 0
	for i := range clients {
		c := &clients[i]
		_, err := tx.Exec(ctx, `
			INSERT INTO clients (name, phone, email, case_manager, case_type, gender,
				accident_date, signup_date, risk_level, risk_score, last_sentiment,
				last_contact_at, preferred_channel, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			ON CONFLICT (phone) DO UPDATE
			SET name = EXCLUDED.name,
			    email = EXCLUDED.email,
			    case_manager = EXCLUDED.case_manager,
			    case_type = EXCLUDED.case_type,
			    accident_date = EXCLUDED.accident_date,
			    preferred_channel = EXCLUDED.preferred_channel
		`, c.Name, c.Phone, c.Email, c.CaseManager, c.CaseType, c.Gender,
			c.AccidentDate, c.SignupDate, c.RiskLevel, c.RiskScore, c.LastSentiment,
			c.LastContactAt, c.PreferredChannel, c.Status)
		if err != nil {
			return nil, fmt.Errorf("import client %s: %w", c.Phone, err)
		}
		imported++
	}

	result := &RosterImportResult{
		Filename: filename,
		Imported: imported,
		Skipped:  len(problems),
		Errors:   problems,
	}
	err = tx.QueryRow(ctx,
		"INSERT INTO roster_imports (filename, imported, skipped) VALUES ($1, $2, $3) RETURNING id",
		filename, imported, len(problems)).Scan(&result.ID)
	if err != nil {
		return nil, fmt.Errorf("register roster import: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit roster import: %w", err)
	}
	return result, nil
}

// History lists past roster uploads, newest first.
func (r *RosterImporter) History(ctx context.Context, limit int) ([]RosterImportResult, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, filename, imported, skipped FROM roster_imports
		 ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	imports := []RosterImportResult{}
	for rows.Next() {
		var res RosterImportResult
		if err := rows.Scan(&res.ID, &res.Filename, &res.Imported, &res.Skipped); err != nil {
			return nil, err
		}
		imports = append(imports, res)
	}
	return imports, rows.Err()
}
