package entities

import "time"

// Plan is a firm subscription tier controlling the weekly AI reply allowance.
type Plan struct {
	Code            string  `json:"code"`
	Name            string  `json:"name"`
	WeeklyAllowance int     `json:"weekly_allowance"`
	OverageFee      float64 `json:"overage_fee"`
	Currency        string  `json:"currency"`
	Details         string  `json:"details"`
}

// UsageWeek is one client's AI reply count for one ISO week.
type UsageWeek struct {
	ClientID    int       `json:"client_id"`
	WeekStart   time.Time `json:"week_start"`
	RepliesSent int       `json:"replies_sent"`
}

// BillingLine is one client-week overage charge.
type BillingLine struct {
	ClientID   int       `json:"client_id"`
	ClientName string    `json:"client_name"`
	WeekStart  time.Time `json:"week_start"`
	Replies    int       `json:"replies"`
	Overage    int       `json:"overage"`
	Charge     float64   `json:"charge"`
}

// BillingPreview is the aggregated overage bill for a period.
type BillingPreview struct {
	PlanCode    string        `json:"plan_code"`
	PeriodStart time.Time     `json:"period_start"`
	PeriodEnd   time.Time     `json:"period_end"`
	Allowance   int           `json:"allowance"`
	OverageFee  float64       `json:"overage_fee"`
	Currency    string        `json:"currency"`
	Lines       []BillingLine `json:"lines"`
	Total       float64       `json:"total"`
}
