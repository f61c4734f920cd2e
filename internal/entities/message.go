package entities

import "time"

// Message directions
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Outbound delivery statuses
const (
	OutboundSent   = "sent"
	OutboundFailed = "failed"
	OutboundCapped = "capped"
)

type Message struct {
	ID        string    `json:"id"`
	ClientID  int       `json:"client_id"`
	Direction string    `json:"direction"`
	Channel   string    `json:"channel"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`

	// Triage outcome, filled on inbound messages after processing.
	Sentiment    Sentiment `json:"sentiment,omitempty"`
	Action       Action    `json:"action,omitempty"`
	Confidence   float64   `json:"confidence,omitempty"`
	ConcernLevel string    `json:"concern_level,omitempty"`
	Flagged      bool      `json:"flagged,omitempty"`

	// Delivery details, filled on outbound messages.
	DelaySeconds float64 `json:"delay_seconds,omitempty"`
	Status       string  `json:"status,omitempty"`
}
