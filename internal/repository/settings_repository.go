package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type FirmSetting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ResponseTemplate is a canned reply used when generation falls back
// or when staff answer common questions by hand.
type ResponseTemplate struct {
	ID        int       `json:"id"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
}

type SettingsRepository struct {
	db *pgxpool.Pool
}

func NewSettingsRepository(db *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetSetting returns a setting value by key, empty string when unset.
func (r *SettingsRepository) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRow(ctx,
		"SELECT value FROM firm_settings WHERE key = $1", key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil // Not found is not strictly an error
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (r *SettingsRepository) SetSetting(ctx context.Context, key, value string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO firm_settings (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, key, value)
	return err
}

func (r *SettingsRepository) GetAllSettings(ctx context.Context) ([]FirmSetting, error) {
	rows, err := r.db.Query(ctx,
		"SELECT key, value, updated_at FROM firm_settings ORDER BY key")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := []FirmSetting{}
	for rows.Next() {
		var s FirmSetting
		if err := rows.Scan(&s.Key, &s.Value, &s.UpdatedAt); err != nil {
			return nil, err
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

func (r *SettingsRepository) GetTemplate(ctx context.Context, slug string) (*ResponseTemplate, error) {
	var t ResponseTemplate
	err := r.db.QueryRow(ctx,
		`SELECT id, slug, title, body, category, created_at
		 FROM response_templates WHERE slug = $1`, slug).
		Scan(&t.ID, &t.Slug, &t.Title, &t.Body, &t.Category, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *SettingsRepository) CreateTemplate(ctx context.Context, t *ResponseTemplate) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO response_templates (slug, title, body, category)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, t.Slug, t.Title, t.Body, t.Category).Scan(&t.ID, &t.CreatedAt)
}

func (r *SettingsRepository) UpdateTemplate(ctx context.Context, t *ResponseTemplate) error {
	_, err := r.db.Exec(ctx,
		"UPDATE response_templates SET title = $1, body = $2, category = $3 WHERE slug = $4",
		t.Title, t.Body, t.Category, t.Slug)
	return err
}

func (r *SettingsRepository) DeleteTemplate(ctx context.Context, slug string) error {
	_, err := r.db.Exec(ctx,
		"DELETE FROM response_templates WHERE slug = $1", slug)
	return err
}

func (r *SettingsRepository) GetAllTemplates(ctx context.Context) ([]ResponseTemplate, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, slug, title, body, category, created_at
		 FROM response_templates ORDER BY slug`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	templates := []ResponseTemplate{}
	for rows.Next() {
		var t ResponseTemplate
		if err := rows.Scan(&t.ID, &t.Slug, &t.Title, &t.Body, &t.Category, &t.CreatedAt); err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}
