package entities

import "time"

// Check-in cadences
const (
	CadenceDaily    = "daily"
	CadenceEveryFew = "every_3_days"
	CadenceWeekly   = "weekly"
	CadenceMonthly  = "monthly"
)

// Check-in statuses
const (
	CheckInPending = "pending"
	CheckInSent    = "sent"
	CheckInSkipped = "skipped"
)

// CheckIn is a scheduled proactive touch-point with a client.
type CheckIn struct {
	ID       int        `json:"id"`
	ClientID int        `json:"client_id"`
	DueAt    time.Time  `json:"due_at"`
	SentAt   *time.Time `json:"sent_at,omitempty"`
	Status   string     `json:"status"`
	Cadence  string     `json:"cadence"`
	Body     string     `json:"body,omitempty"`
}

// Action item kinds
const (
	FollowupMedical   = "medical_followup"
	FollowupFinancial = "financial_followup"
)

// Action item statuses
const (
	ActionOpen = "open"
	ActionDone = "done"
)

// ActionItem is a follow-up task derived from message content for the case team.
type ActionItem struct {
	ID          int       `json:"id"`
	ClientID    int       `json:"client_id"`
	Kind        string    `json:"kind"`
	Description string    `json:"description"`
	DueAt       time.Time `json:"due_at"`
	Priority    string    `json:"priority"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}
