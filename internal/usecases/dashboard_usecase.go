package usecases

import (
	"context"
	"errors"
	"io"
	"time"

	"casepulse/internal/entities"
	"casepulse/internal/repository"
)

// ErrClientNotFound is returned when a client id resolves to nothing.
// Handlers map it to a 404.
var ErrClientNotFound = errors.New("client not found")

// Overview is the headline block on the staff dashboard.
type Overview struct {
	ActiveClients  int            `json:"active_clients"`
	ClientsByRisk  map[string]int `json:"clients_by_risk"`
	Sentiment7d    map[string]int `json:"sentiment_7d"`
	Actions7d      map[string]int `json:"actions_7d"`
	FlaggedOpen    int            `json:"flagged_open"`
	ActiveInsights int            `json:"active_insights"`
	OpenActions    int            `json:"open_action_items"`
	WeeklyCap      int            `json:"weekly_reply_cap"`
}

// DashboardUsecase bundles the read-mostly queries behind the staff API so
// handlers stay thin.
type DashboardUsecase struct {
	clients   *repository.ClientRepository
	messages  *repository.MessageRepository
	insights  *repository.InsightRepository
	reports   *repository.ReportRepository
	usage     *repository.UsageRepository
	settings  *repository.SettingsRepository
	checkins  *repository.CheckInRepository
	actions   *repository.ActionItemRepository
	plans     *repository.PlanRepository
	roster    *repository.RosterImporter
	weeklyCap int
}

func NewDashboardUsecase(
	clients *repository.ClientRepository,
	messages *repository.MessageRepository,
	insights *repository.InsightRepository,
	reports *repository.ReportRepository,
	usage *repository.UsageRepository,
	settings *repository.SettingsRepository,
	checkins *repository.CheckInRepository,
	actions *repository.ActionItemRepository,
	plans *repository.PlanRepository,
	roster *repository.RosterImporter,
	weeklyCap int,
) *DashboardUsecase {
	return &DashboardUsecase{
		clients:   clients,
		messages:  messages,
		insights:  insights,
		reports:   reports,
		usage:     usage,
		settings:  settings,
		checkins:  checkins,
		actions:   actions,
		plans:     plans,
		roster:    roster,
		weeklyCap: weeklyCap,
	}
}

// Overview assembles the counters shown at the top of the dashboard.
func (d *DashboardUsecase) Overview(ctx context.Context) (*Overview, error) {
	byRisk, err := d.clients.CountByRisk(ctx)
	if err != nil {
		return nil, err
	}
	since := time.Now().UTC().AddDate(0, 0, -7)
	sentiment, err := d.messages.SentimentBreakdown(ctx, since)
	if err != nil {
		return nil, err
	}
	actions, err := d.messages.ActionBreakdown(ctx, since)
	if err != nil {
		return nil, err
	}
	active, err := d.clients.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	flagged, err := d.messages.ListFlagged(ctx, 200)
	if err != nil {
		return nil, err
	}
	activeInsights, err := d.insights.ListActive(ctx, 500)
	if err != nil {
		return nil, err
	}
	openActions, err := d.actions.ListOpen(ctx, 500)
	if err != nil {
		return nil, err
	}
	return &Overview{
		ActiveClients:  len(active),
		ClientsByRisk:  byRisk,
		Sentiment7d:    sentiment,
		Actions7d:      actions,
		FlaggedOpen:    len(flagged),
		ActiveInsights: len(activeInsights),
		OpenActions:    len(openActions),
		WeeklyCap:      d.weeklyCap,
	}, nil
}

// Client management

func (d *DashboardUsecase) GetClient(ctx context.Context, id int) (*entities.Client, error) {
	client, err := d.clients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, ErrClientNotFound
	}
	return client, nil
}

// ClientDetail is a client record plus its recent inbound sentiment trail,
// newest first.
type ClientDetail struct {
	*entities.Client
	RecentSentiments []entities.Sentiment `json:"recent_sentiments"`
}

func (d *DashboardUsecase) ClientDetail(ctx context.Context, id int) (*ClientDetail, error) {
	client, err := d.GetClient(ctx, id)
	if err != nil {
		return nil, err
	}
	sentiments, err := d.messages.RecentSentiments(ctx, id, 10)
	if err != nil {
		return nil, err
	}
	return &ClientDetail{Client: client, RecentSentiments: sentiments}, nil
}

func (d *DashboardUsecase) ListClients(ctx context.Context, status, risk string) ([]entities.Client, error) {
	return d.clients.List(ctx, status, risk)
}

func (d *DashboardUsecase) CreateClient(ctx context.Context, client *entities.Client) error {
	client.Phone = entities.NormalizePhone(client.Phone)
	return d.clients.Create(ctx, client)
}

// UpdateClient applies the non-empty fields of patch to the stored client and
// writes the merged record back into patch.
func (d *DashboardUsecase) UpdateClient(ctx context.Context, patch *entities.Client) error {
	existing, err := d.GetClient(ctx, patch.ID)
	if err != nil {
		return err
	}
	if patch.Phone != "" {
		existing.Phone = entities.NormalizePhone(patch.Phone)
	}
	if patch.Name != "" {
		existing.Name = patch.Name
	}
	if patch.Email != "" {
		existing.Email = patch.Email
	}
	if patch.CaseType != "" {
		existing.CaseType = patch.CaseType
	}
	if patch.CaseManager != "" {
		existing.CaseManager = patch.CaseManager
	}
	if patch.Gender != "" {
		existing.Gender = patch.Gender
	}
	if !patch.AccidentDate.IsZero() {
		existing.AccidentDate = patch.AccidentDate
	}
	if patch.PreferredChannel != "" {
		existing.PreferredChannel = patch.PreferredChannel
	}
	if err := d.clients.Update(ctx, existing); err != nil {
		return err
	}
	*patch = *existing
	return nil
}

func (d *DashboardUsecase) SetClientStatus(ctx context.Context, id int, status string) error {
	if _, err := d.GetClient(ctx, id); err != nil {
		return err
	}
	return d.clients.SetStatus(ctx, id, status)
}

// ClientContext renders the situational block staff see before calling a
// client. It is the same context the triage pipeline works from.
func (d *DashboardUsecase) ClientContext(ctx context.Context, id int) (*ClientContext, error) {
	client, err := d.GetClient(ctx, id)
	if err != nil {
		return nil, err
	}
	history, err := d.messages.History(ctx, id, contextHistoryLimit)
	if err != nil {
		return nil, err
	}
	return BuildClientContext(client, history, time.Now().UTC()), nil
}

// Messages

func (d *DashboardUsecase) MessageHistory(ctx context.Context, clientID, limit int) ([]entities.Message, error) {
	if _, err := d.GetClient(ctx, clientID); err != nil {
		return nil, err
	}
	return d.messages.History(ctx, clientID, limit)
}

func (d *DashboardUsecase) ExportMessages(ctx context.Context, clientID int, w io.Writer) error {
	if _, err := d.GetClient(ctx, clientID); err != nil {
		return err
	}
	return d.messages.ExportCSV(ctx, clientID, w)
}

func (d *DashboardUsecase) FlaggedMessages(ctx context.Context, limit int) ([]entities.Message, error) {
	return d.messages.ListFlagged(ctx, limit)
}

// Insights

func (d *DashboardUsecase) ListInsights(ctx context.Context, clientID int, insightType, status string, limit int) ([]entities.Insight, error) {
	return d.insights.List(ctx, clientID, insightType, status, limit)
}

func (d *DashboardUsecase) SetInsightStatus(ctx context.Context, id, status string) error {
	return d.insights.SetStatus(ctx, id, status)
}

// Reports

func (d *DashboardUsecase) LatestReport(ctx context.Context, clientID int) (*entities.InsightReport, error) {
	if _, err := d.GetClient(ctx, clientID); err != nil {
		return nil, err
	}
	return d.reports.Latest(ctx, clientID)
}

func (d *DashboardUsecase) ReportsByClient(ctx context.Context, clientID, limit int) ([]entities.InsightReport, error) {
	if _, err := d.GetClient(ctx, clientID); err != nil {
		return nil, err
	}
	return d.reports.ListByClient(ctx, clientID, limit)
}

// Analytics

func (d *DashboardUsecase) SentimentDistribution(ctx context.Context, since time.Time) (map[string]int, error) {
	return d.messages.SentimentBreakdown(ctx, since)
}

func (d *DashboardUsecase) ActionDistribution(ctx context.Context, since time.Time) (map[string]int, error) {
	return d.messages.ActionBreakdown(ctx, since)
}

func (d *DashboardUsecase) DailyVolume(ctx context.Context, clientID, days int) ([]repository.DailyVolume, error) {
	return d.messages.VolumeByDay(ctx, clientID, days)
}

func (d *DashboardUsecase) RiskBreakdown(ctx context.Context) (map[string]int, error) {
	return d.clients.CountByRisk(ctx)
}

func (d *DashboardUsecase) TriageTrend(ctx context.Context, days int) ([]repository.TrendPoint, error) {
	return d.messages.TriageTrend(ctx, days)
}

func (d *DashboardUsecase) CapStatus(ctx context.Context, clientID int) (*repository.CapStatus, error) {
	if _, err := d.GetClient(ctx, clientID); err != nil {
		return nil, err
	}
	return d.usage.GetCapStatus(ctx, clientID, d.weeklyCap, time.Now().UTC())
}

// Settings and templates

func (d *DashboardUsecase) AllSettings(ctx context.Context) ([]repository.FirmSetting, error) {
	return d.settings.GetAllSettings(ctx)
}

func (d *DashboardUsecase) SetSetting(ctx context.Context, key, value string) error {
	return d.settings.SetSetting(ctx, key, value)
}

func (d *DashboardUsecase) Templates(ctx context.Context) ([]repository.ResponseTemplate, error) {
	return d.settings.GetAllTemplates(ctx)
}

func (d *DashboardUsecase) CreateTemplate(ctx context.Context, tpl *repository.ResponseTemplate) error {
	return d.settings.CreateTemplate(ctx, tpl)
}

func (d *DashboardUsecase) UpdateTemplate(ctx context.Context, tpl *repository.ResponseTemplate) error {
	return d.settings.UpdateTemplate(ctx, tpl)
}

func (d *DashboardUsecase) DeleteTemplate(ctx context.Context, slug string) error {
	return d.settings.DeleteTemplate(ctx, slug)
}

// Roster import

func (d *DashboardUsecase) ImportRoster(ctx context.Context, filename string, r io.Reader) (*repository.RosterImportResult, error) {
	return d.roster.ImportCSV(ctx, filename, r)
}

func (d *DashboardUsecase) ImportHistory(ctx context.Context, limit int) ([]repository.RosterImportResult, error) {
	return d.roster.History(ctx, limit)
}

// Check-ins and action items

func (d *DashboardUsecase) UpcomingCheckIns(ctx context.Context, clientID, limit int) ([]entities.CheckIn, error) {
	return d.checkins.Upcoming(ctx, clientID, limit)
}

func (d *DashboardUsecase) OpenActionItems(ctx context.Context, limit int) ([]entities.ActionItem, error) {
	return d.actions.ListOpen(ctx, limit)
}

func (d *DashboardUsecase) ActionItemsByClient(ctx context.Context, clientID int) ([]entities.ActionItem, error) {
	if _, err := d.GetClient(ctx, clientID); err != nil {
		return nil, err
	}
	return d.actions.ListByClient(ctx, clientID)
}

func (d *DashboardUsecase) SetActionItemStatus(ctx context.Context, id int, status string) error {
	return d.actions.SetStatus(ctx, id, status)
}

// Plans

func (d *DashboardUsecase) Plans(ctx context.Context) ([]entities.Plan, error) {
	return d.plans.List(ctx)
}
