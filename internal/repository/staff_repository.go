package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"casepulse/internal/entities"
)

type StaffRepository struct {
	db *pgxpool.Pool
}

func NewStaffRepository(db *pgxpool.Pool) *StaffRepository {
	return &StaffRepository{db: db}
}

func (r *StaffRepository) Create(ctx context.Context, staff *entities.StaffUser) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO staff_users (username, password_hash, role)
		 VALUES ($1, $2, $3) RETURNING id, created_at`,
		staff.Username, staff.PasswordHash, staff.Role).
		Scan(&staff.ID, &staff.CreatedAt)
}

func (r *StaffRepository) GetByUsername(ctx context.Context, username string) (*entities.StaffUser, error) {
	var staff entities.StaffUser
	err := r.db.QueryRow(ctx,
		`SELECT id, username, password_hash, role, telegram_chat_id, is_active, created_at
		 FROM staff_users WHERE username = $1`,
		username).Scan(&staff.ID, &staff.Username, &staff.PasswordHash, &staff.Role,
		&staff.TelegramChatID, &staff.IsActive, &staff.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, err
	}
	return &staff, nil
}

func (r *StaffRepository) GetByID(ctx context.Context, id int) (*entities.StaffUser, error) {
	var staff entities.StaffUser
	err := r.db.QueryRow(ctx,
		`SELECT id, username, password_hash, role, telegram_chat_id, is_active, created_at
		 FROM staff_users WHERE id = $1`,
		id).Scan(&staff.ID, &staff.Username, &staff.PasswordHash, &staff.Role,
		&staff.TelegramChatID, &staff.IsActive, &staff.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &staff, nil
}

func (r *StaffRepository) List(ctx context.Context) ([]entities.StaffUser, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, username, password_hash, role, telegram_chat_id, is_active, created_at
		 FROM staff_users ORDER BY username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStaff(rows)
}

// ListLinked returns active staff with a Telegram chat attached.
func (r *StaffRepository) ListLinked(ctx context.Context) ([]entities.StaffUser, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, username, password_hash, role, telegram_chat_id, is_active, created_at
		 FROM staff_users WHERE is_active AND telegram_chat_id <> 0`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStaff(rows)
}

// LinkTelegram attaches a Telegram chat to a staff account for alert delivery.
func (r *StaffRepository) LinkTelegram(ctx context.Context, staffID int, chatID int64) error {
	_, err := r.db.Exec(ctx,
		"UPDATE staff_users SET telegram_chat_id = $1 WHERE id = $2",
		chatID, staffID)
	return err
}

func (r *StaffRepository) SetActive(ctx context.Context, staffID int, active bool) error {
	_, err := r.db.Exec(ctx,
		"UPDATE staff_users SET is_active = $1 WHERE id = $2",
		active, staffID)
	return err
}

func (r *StaffRepository) SetRole(ctx context.Context, staffID int, role string) error {
	_, err := r.db.Exec(ctx,
		"UPDATE staff_users SET role = $1 WHERE id = $2",
		role, staffID)
	return err
}

func (r *StaffRepository) UpdatePassword(ctx context.Context, staffID int, passwordHash string) error {
	_, err := r.db.Exec(ctx,
		"UPDATE staff_users SET password_hash = $1 WHERE id = $2",
		passwordHash, staffID)
	return err
}

func scanStaff(rows pgx.Rows) ([]entities.StaffUser, error) {
	staff := []entities.StaffUser{}
	for rows.Next() {
		var s entities.StaffUser
		if err := rows.Scan(&s.ID, &s.Username, &s.PasswordHash, &s.Role,
			&s.TelegramChatID, &s.IsActive, &s.CreatedAt); err != nil {
			return nil, err
		}
		staff = append(staff, s)
	}
	return staff, rows.Err()
}
