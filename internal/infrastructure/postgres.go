package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresClient struct {
	Pool *pgxpool.Pool
}

func NewPostgresClient(connString string) (*PostgresClient, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	// Pool configuration
	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	client := &PostgresClient{Pool: pool}

	if err := client.Migrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return client, nil
}

func (p *PostgresClient) Migrate() error {
	ctx := context.Background()

	_, err := p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS staff_users (
			id SERIAL PRIMARY KEY,
			username VARCHAR(50) UNIQUE NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			role VARCHAR(20) NOT NULL DEFAULT 'manager',
			telegram_chat_id BIGINT NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return fmt.Errorf("create staff_users table: %w", err)
	}

	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS clients (
			id SERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			phone VARCHAR(32) UNIQUE NOT NULL,
			email VARCHAR(255) NOT NULL DEFAULT '',
			case_manager VARCHAR(50) NOT NULL,
			case_type VARCHAR(100) NOT NULL DEFAULT '',
			gender VARCHAR(20) NOT NULL,
			accident_date DATE NOT NULL,
			signup_date DATE NOT NULL,
			risk_level VARCHAR(10) NOT NULL DEFAULT 'medium',
			risk_score DOUBLE PRECISION NOT NULL DEFAULT 5,
			last_sentiment VARCHAR(10) NOT NULL DEFAULT 'neutral',
			last_contact_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			preferred_channel VARCHAR(10) NOT NULL DEFAULT 'sms',
			status VARCHAR(10) NOT NULL DEFAULT 'active',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return fmt.Errorf("create clients table: %w", err)
	}

	// No FK on client_id: messages from unknown numbers are stored with
	// client_id 0 so staff can review them.
	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS messages (
			id UUID PRIMARY KEY,
			client_id INT NOT NULL DEFAULT 0,
			direction VARCHAR(10) NOT NULL,
			channel VARCHAR(10) NOT NULL,
			body TEXT NOT NULL,
			sentiment VARCHAR(10) NOT NULL DEFAULT '',
			action VARCHAR(10) NOT NULL DEFAULT '',
			confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
			concern_level VARCHAR(10) NOT NULL DEFAULT '',
			flagged BOOLEAN NOT NULL DEFAULT FALSE,
			delay_seconds DOUBLE PRECISION NOT NULL DEFAULT 0,
			status VARCHAR(10) NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return fmt.Errorf("create messages table: %w", err)
	}
	p.Pool.Exec(ctx, "CREATE INDEX IF NOT EXISTS idx_messages_client_created ON messages (client_id, created_at DESC);")

	// Same shape as messages; rows move here when they age out.
	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS messages_archive (
			id UUID PRIMARY KEY,
			client_id INT NOT NULL,
			direction VARCHAR(10) NOT NULL,
			channel VARCHAR(10) NOT NULL,
			body TEXT NOT NULL,
			sentiment VARCHAR(10) NOT NULL DEFAULT '',
			action VARCHAR(10) NOT NULL DEFAULT '',
			confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
			concern_level VARCHAR(10) NOT NULL DEFAULT '',
			flagged BOOLEAN NOT NULL DEFAULT FALSE,
			delay_seconds DOUBLE PRECISION NOT NULL DEFAULT 0,
			status VARCHAR(10) NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			archived_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return fmt.Errorf("create messages_archive table: %w", err)
	}

	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS insights (
			id UUID PRIMARY KEY,
			client_id INT NOT NULL REFERENCES clients(id),
			insight_type VARCHAR(20) NOT NULL,
			category VARCHAR(30) NOT NULL,
			message TEXT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
			supporting_evidence JSONB NOT NULL DEFAULT '[]',
			recommended_actions JSONB NOT NULL DEFAULT '[]',
			priority VARCHAR(10) NOT NULL DEFAULT 'medium',
			status VARCHAR(15) NOT NULL DEFAULT 'active',
			source_message_id UUID,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return fmt.Errorf("create insights table: %w", err)
	}
	p.Pool.Exec(ctx, "CREATE INDEX IF NOT EXISTS idx_insights_client_status ON insights (client_id, status);")

	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS insight_reports (
			id UUID PRIMARY KEY,
			client_id INT NOT NULL REFERENCES clients(id),
			period_start TIMESTAMPTZ NOT NULL,
			period_end TIMESTAMPTZ NOT NULL,
			executive_summary TEXT NOT NULL,
			current_sentiment VARCHAR(10) NOT NULL,
			key_concerns JSONB NOT NULL DEFAULT '[]',
			communication_style TEXT NOT NULL DEFAULT '',
			relationship_health INT NOT NULL DEFAULT 5,
			action_items JSONB NOT NULL DEFAULT '[]',
			warning_signs JSONB NOT NULL DEFAULT '[]',
			strengths JSONB NOT NULL DEFAULT '[]',
			next_contact_recommendation TEXT NOT NULL DEFAULT '',
			priority_level VARCHAR(10) NOT NULL DEFAULT 'medium',
			risk_snapshot JSONB,
			generated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return fmt.Errorf("create insight_reports table: %w", err)
	}

	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS reply_usage (
			client_id INT NOT NULL REFERENCES clients(id),
			week_start DATE NOT NULL,
			replies_sent INT NOT NULL DEFAULT 0,
			PRIMARY KEY (client_id, week_start)
		);
	`)
	if err != nil {
		return fmt.Errorf("create reply_usage table: %w", err)
	}

	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS checkins (
			id SERIAL PRIMARY KEY,
			client_id INT NOT NULL REFERENCES clients(id),
			due_at TIMESTAMPTZ NOT NULL,
			sent_at TIMESTAMPTZ,
			status VARCHAR(10) NOT NULL DEFAULT 'pending',
			cadence VARCHAR(15) NOT NULL,
			body TEXT NOT NULL DEFAULT ''
		);
	`)
	if err != nil {
		return fmt.Errorf("create checkins table: %w", err)
	}
	p.Pool.Exec(ctx, "CREATE INDEX IF NOT EXISTS idx_checkins_due ON checkins (status, due_at);")

	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS action_items (
			id SERIAL PRIMARY KEY,
			client_id INT NOT NULL REFERENCES clients(id),
			kind VARCHAR(30) NOT NULL,
			description TEXT NOT NULL,
			due_at TIMESTAMPTZ NOT NULL,
			priority VARCHAR(10) NOT NULL DEFAULT 'medium',
			status VARCHAR(10) NOT NULL DEFAULT 'open',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return fmt.Errorf("create action_items table: %w", err)
	}

	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS plans (
			code VARCHAR(50) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			weekly_allowance INT NOT NULL DEFAULT 25,
			overage_fee DOUBLE PRECISION NOT NULL DEFAULT 0,
			currency VARCHAR(10) NOT NULL DEFAULT 'USD',
			details TEXT NOT NULL DEFAULT ''
		);
	`)
	if err != nil {
		return fmt.Errorf("create plans table: %w", err)
	}

	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS firm_settings (
			key VARCHAR(64) PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return fmt.Errorf("create firm_settings table: %w", err)
	}

	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS response_templates (
			id SERIAL PRIMARY KEY,
			slug VARCHAR(64) UNIQUE NOT NULL,
			title VARCHAR(256) NOT NULL,
			body TEXT NOT NULL,
			category VARCHAR(20) NOT NULL DEFAULT 'fallback',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return fmt.Errorf("create response_templates table: %w", err)
	}

	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS roster_imports (
			id SERIAL PRIMARY KEY,
			filename VARCHAR(256) NOT NULL,
			imported INT NOT NULL DEFAULT 0,
			skipped INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return fmt.Errorf("create roster_imports table: %w", err)
	}

	// Additive migrations for columns introduced after the first release.
	p.Pool.Exec(ctx, "ALTER TABLE clients ADD COLUMN IF NOT EXISTS preferred_channel VARCHAR(10) NOT NULL DEFAULT 'sms';")
	p.Pool.Exec(ctx, "ALTER TABLE staff_users ADD COLUMN IF NOT EXISTS telegram_chat_id BIGINT NOT NULL DEFAULT 0;")
	p.Pool.Exec(ctx, "ALTER TABLE insight_reports ADD COLUMN IF NOT EXISTS risk_snapshot JSONB;")

	return nil
}

func (p *PostgresClient) Close() {
	p.Pool.Close()
}
