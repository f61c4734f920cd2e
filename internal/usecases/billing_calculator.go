package usecases

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"casepulse/internal/entities"
	"casepulse/internal/repository"
)

var (
	isoWeekPattern = regexp.MustCompile(`^(\d{4})-w(\d{1,2})$`)
	rollingPattern = regexp.MustCompile(`^now-(\d{1,2})w$`)
)

// BillingCalculator prices AI reply overage against the firm's plan.
type BillingCalculator struct {
	plans   *repository.PlanRepository
	usage   *repository.UsageRepository
	clients *repository.ClientRepository
}

func NewBillingCalculator(plans *repository.PlanRepository, usage *repository.UsageRepository, clients *repository.ClientRepository) *BillingCalculator {
	return &BillingCalculator{plans: plans, usage: usage, clients: clients}
}

// ParsePeriod turns a dashboard period query into a half-open [from, to)
// window. Accepted forms: "" (last 4 weeks), "now-4w" (rolling weeks),
// "2025-W14" (one ISO week), "2025-04-01..2025-05-01", and a bare date for
// the week containing it.
func ParsePeriod(raw string, now time.Time) (time.Time, time.Time, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	now = now.UTC()

	if raw == "" {
		return repository.WeekStart(now.AddDate(0, 0, -28)), now, nil
	}
	if m := rollingPattern.FindStringSubmatch(raw); m != nil {
		weeks, _ := strconv.Atoi(m[1])
		return repository.WeekStart(now.AddDate(0, 0, -7*weeks)), now, nil
	}
	if m := isoWeekPattern.FindStringSubmatch(raw); m != nil {
		year, _ := strconv.Atoi(m[1])
		week, _ := strconv.Atoi(m[2])
		if week < 1 || week > 53 {
			return time.Time{}, time.Time{}, fmt.Errorf("billing: week %d out of range", week)
		}
		monday := isoWeekMonday(year, week)
		return monday, monday.AddDate(0, 0, 7), nil
	}
	if from, to, ok := strings.Cut(raw, ".."); ok {
		start, err := time.Parse("2006-01-02", strings.TrimSpace(from))
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("billing: bad period start %q", from)
		}
		end, err := time.Parse("2006-01-02", strings.TrimSpace(to))
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("billing: bad period end %q", to)
		}
		if !end.After(start) {
			return time.Time{}, time.Time{}, fmt.Errorf("billing: period end before start")
		}
		return start.UTC(), end.UTC(), nil
	}
	if day, err := time.Parse("2006-01-02", raw); err == nil {
		monday := repository.WeekStart(day)
		return monday, monday.AddDate(0, 0, 7), nil
	}
	return time.Time{}, time.Time{}, fmt.Errorf("billing: unrecognized period %q", raw)
}

// isoWeekMonday returns the Monday starting the given ISO week.
func isoWeekMonday(year, week int) time.Time {
	// January 4 always falls in ISO week 1.
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	return repository.WeekStart(jan4).AddDate(0, 0, (week-1)*7)
}

// Preview prices the period: every client-week over the plan allowance is
// billed at the overage fee.
func (b *BillingCalculator) Preview(ctx context.Context, planCode string, from, to time.Time) (*entities.BillingPreview, error) {
	plan, err := b.plans.GetByCode(ctx, planCode)
	if err != nil {
		return nil, fmt.Errorf("billing: load plan: %w", err)
	}
	if plan == nil {
		return nil, fmt.Errorf("billing: unknown plan %q", planCode)
	}

	usage, err := b.usage.UsageBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("billing: load usage: %w", err)
	}

	names := map[int]string{}
	nameOf := func(id int) string {
		name, ok := names[id]
		if !ok {
			name = b.clientName(ctx, id)
			names[id] = name
		}
		return name
	}
	return priceOverage(plan, from, to, usage, nameOf), nil
}

// priceOverage bills each client-week above the plan allowance at the
// overage fee.
func priceOverage(plan *entities.Plan, from, to time.Time, usage []entities.UsageWeek, nameOf func(int) string) *entities.BillingPreview {
	preview := &entities.BillingPreview{
		PlanCode:    plan.Code,
		PeriodStart: from,
		PeriodEnd:   to,
		Allowance:   plan.WeeklyAllowance,
		OverageFee:  plan.OverageFee,
		Currency:    plan.Currency,
		Lines:       []entities.BillingLine{},
	}

	for _, week := range usage {
		overage := week.RepliesSent - plan.WeeklyAllowance
		if overage <= 0 {
			continue
		}
		line := entities.BillingLine{
			ClientID:   week.ClientID,
			ClientName: nameOf(week.ClientID),
			WeekStart:  week.WeekStart,
			Replies:    week.RepliesSent,
			Overage:    overage,
			Charge:     float64(overage) * plan.OverageFee,
		}
		preview.Lines = append(preview.Lines, line)
		preview.Total += line.Charge
	}
	return preview
}

func (b *BillingCalculator) clientName(ctx context.Context, id int) string {
	client, err := b.clients.GetByID(ctx, id)
	if err != nil || client == nil {
		return fmt.Sprintf("client #%d", id)
	}
	return client.Name
}
