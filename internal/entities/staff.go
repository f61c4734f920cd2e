package entities

import "time"

// Staff roles
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
)

// StaffUser is a dashboard operator (case manager or admin).
type StaffUser struct {
	ID             int       `json:"id"`
	Username       string    `json:"username"`
	PasswordHash   string    `json:"-"`
	Role           string    `json:"role"`
	TelegramChatID int64     `json:"telegram_chat_id"` // 0 until linked
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}
