package entities

import (
	"strings"
	"time"
)

// Client statuses
const (
	ClientActive = "active"
	ClientPaused = "paused"
	ClientClosed = "closed"
)

// Delivery channels
const (
	ChannelSMS      = "sms"
	ChannelWhatsApp = "whatsapp"
	ChannelSystem   = "system"
)

type Client struct {
	ID               int       `json:"id"`
	Name             string    `json:"name"`
	Phone            string    `json:"phone"`
	Email            string    `json:"email"`
	CaseManager      string    `json:"case_manager"`
	CaseType         string    `json:"case_type"`
	Gender           string    `json:"gender"`
	AccidentDate     time.Time `json:"accident_date"`
	SignupDate       time.Time `json:"signup_date"`
	RiskLevel        RiskLevel `json:"risk_level"`
	RiskScore        float64   `json:"risk_score"`
	LastSentiment    Sentiment `json:"last_sentiment"`
	LastContactAt    time.Time `json:"last_contact_at"`
	PreferredChannel string    `json:"preferred_channel"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
}

// DaysSinceAccident returns whole days between the accident date and now.
func (c *Client) DaysSinceAccident(now time.Time) int {
	return daysBetween(c.AccidentDate, now)
}

// DaysSinceSignup returns whole days between signup and now.
func (c *Client) DaysSinceSignup(now time.Time) int {
	return daysBetween(c.SignupDate, now)
}

func daysBetween(from, to time.Time) int {
	d := int(to.Sub(from).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}

// NormalizePhone strips formatting characters, keeping digits and a leading +.
func NormalizePhone(raw string) string {
	raw = strings.TrimSpace(raw)
	var b strings.Builder
	for i, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}
