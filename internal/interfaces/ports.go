package interfaces

import (
	"context"

	"casepulse/internal/entities"
)

// LLMClient is the language-model boundary. Implementations return the raw
// assistant text for one completion request.
type LLMClient interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// MessageSender delivers one outbound message to a client on a channel.
type MessageSender interface {
	Send(ctx context.Context, to, body string) error
}

// FlagAlert notifies the case team that a message needs human attention.
type FlagAlert struct {
	Client    *entities.Client
	Message   *entities.Message
	Reasoning string
	RiskLevel entities.RiskLevel
}

// RiskAlert notifies the case team that a client moved to high risk.
type RiskAlert struct {
	Client     *entities.Client
	Assessment *entities.RiskAssessment
}

// AlertNotifier pushes alerts to the case team's internal channel.
type AlertNotifier interface {
	NotifyFlag(ctx context.Context, alert FlagAlert) error
	NotifyRisk(ctx context.Context, alert RiskAlert) error
}
