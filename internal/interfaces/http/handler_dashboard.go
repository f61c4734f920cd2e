package http

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"casepulse/internal/entities"
	"casepulse/internal/repository"
	"casepulse/internal/usecases"
)

// DashboardHandler serves the staff-facing API: clients, messages, insights,
// reports, analytics, billing, and firm settings.
type DashboardHandler struct {
	dash     *usecases.DashboardUsecase
	intake   IntakeService
	risk     *usecases.RiskAssessor
	insights *usecases.InsightService
	checkins *usecases.CheckInService
	billing  *usecases.BillingCalculator
	logger   *zap.Logger
}

func NewDashboardHandler(
	dash *usecases.DashboardUsecase,
	intake IntakeService,
	risk *usecases.RiskAssessor,
	insights *usecases.InsightService,
	checkins *usecases.CheckInService,
	billing *usecases.BillingCalculator,
	logger *zap.Logger,
) *DashboardHandler {
	return &DashboardHandler{
		dash:     dash,
		intake:   intake,
		risk:     risk,
		insights: insights,
		checkins: checkins,
		billing:  billing,
		logger:   logger,
	}
}

func (h *DashboardHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/dashboard/stats", h.GetStats)

	// Clients
	api.GET("/clients", h.ListClients)
	api.POST("/clients", h.CreateClient)
	api.POST("/clients/import", h.ImportRoster)
	api.GET("/clients/imports", h.ImportHistory)
	api.GET("/clients/:id", h.GetClient)
	api.PUT("/clients/:id", h.UpdateClient)
	api.PUT("/clients/:id/status", h.SetClientStatus)
	api.GET("/clients/:id/context", h.GetClientContext)
	api.GET("/clients/:id/messages", h.GetMessageHistory)
	api.GET("/clients/:id/messages/export", h.ExportMessages)
	api.GET("/clients/:id/cap", h.GetCapStatus)
	api.POST("/clients/:id/checkin", h.TriggerCheckIn)
	api.GET("/clients/:id/checkins", h.GetCheckIns)
	api.GET("/clients/:id/actions", h.GetClientActions)
	api.GET("/clients/:id/reports", h.GetReports)
	api.GET("/clients/:id/reports/latest", h.GetLatestReport)
	api.POST("/clients/:id/report", h.GenerateReport)

	// Messages and triage
	api.GET("/messages/flagged", h.GetFlaggedMessages)
	api.POST("/messages/:id/resend", h.ResendMessage)
	api.POST("/triage/test", h.TestTriage)

	// Insights
	api.GET("/insights", h.ListInsights)
	api.POST("/insights/:id/acknowledge", h.AcknowledgeInsight)
	api.POST("/insights/:id/resolve", h.ResolveInsight)

	// Action items
	api.GET("/actions", h.ListActions)
	api.PUT("/actions/:id/status", h.SetActionStatus)

	// Analytics
	api.GET("/analytics/sentiment", h.SentimentDistribution)
	api.GET("/analytics/actions", h.ActionDistribution)
	api.GET("/analytics/volume", h.DailyVolume)
	api.GET("/analytics/risk", h.RiskBreakdown)
	api.GET("/analytics/trend", h.TriageTrend)

	// Billing
	api.GET("/billing/preview", h.BillingPreview)
	api.GET("/billing/plans", h.ListPlans)

	// Settings and templates
	api.GET("/settings", h.GetSettings)
	api.POST("/settings", h.SetSetting)
	api.GET("/templates", h.ListTemplates)
	api.POST("/templates", h.CreateTemplate)
	api.PUT("/templates/:slug", h.UpdateTemplate)
	api.DELETE("/templates/:slug", h.DeleteTemplate)
}

// clientIDParam parses the :id path segment.
func clientIDParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(400, gin.H{"error": "Invalid client id"})
		return 0, false
	}
	return id, true
}

// sinceParam parses ?since=YYYY-MM-DD, defaulting to the last 30 days.
func sinceParam(c *gin.Context) time.Time {
	if raw := c.Query("since"); raw != "" {
		if t, ok := ParseDate(raw); ok {
			return t
		}
	}
	return time.Now().UTC().AddDate(0, 0, -30)
}

func intQuery(c *gin.Context, name string, def int) int {
	if raw := c.Query(name); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return def
}

func (h *DashboardHandler) GetStats(c *gin.Context) {
	overview, err := h.dash.Overview(c.Request.Context())
	if err != nil {
		h.logger.Error("dashboard overview failed", zap.Error(err))
		c.JSON(500, gin.H{"error": "Failed to load stats"})
		return
	}
	c.JSON(200, overview)
}

// Clients

func (h *DashboardHandler) ListClients(c *gin.Context) {
	clients, err := h.dash.ListClients(c.Request.Context(), c.Query("status"), c.Query("risk"))
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to list clients"})
		return
	}
	c.JSON(200, clients)
}

func (h *DashboardHandler) CreateClient(c *gin.Context) {
	var payload struct {
		Name             string `json:"name"`
		Phone            string `json:"phone"`
		Email            string `json:"email"`
		CaseManager      string `json:"case_manager"`
		CaseType         string `json:"case_type"`
		Gender           string `json:"gender"`
		AccidentDate     string `json:"accident_date"`
		PreferredChannel string `json:"preferred_channel"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request body"})
		return
	}
	if !ValidateLength(payload.Name, 1, MaxNameLength) {
		c.JSON(400, gin.H{"error": "Invalid name length"})
		return
	}
	phone := entities.NormalizePhone(payload.Phone)
	if !ValidPhone(phone) {
		c.JSON(400, gin.H{"error": "Invalid phone number"})
		return
	}

	client := &entities.Client{
		Name:             SanitizeString(payload.Name),
		Phone:            phone,
		Email:            SanitizeString(payload.Email),
		CaseManager:      SanitizeString(payload.CaseManager),
		CaseType:         SanitizeString(payload.CaseType),
		Gender:           payload.Gender,
		PreferredChannel: payload.PreferredChannel,
		Status:           entities.ClientActive,
		SignupDate:       time.Now().UTC(),
	}
	if payload.AccidentDate != "" {
		t, ok := ParseDate(payload.AccidentDate)
		if !ok {
			c.JSON(400, gin.H{"error": "Invalid accident_date, expected YYYY-MM-DD"})
			return
		}
		client.AccidentDate = t
	}

	if err := h.dash.CreateClient(c.Request.Context(), client); err != nil {
		h.logger.Error("create client failed", zap.Error(err))
		c.JSON(500, gin.H{"error": "Failed to create client"})
		return
	}
	c.JSON(201, client)
}

func (h *DashboardHandler) GetClient(c *gin.Context) {
	id, ok := clientIDParam(c)
	if !ok {
		return
	}
	detail, err := h.dash.ClientDetail(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, usecases.ErrClientNotFound) {
			c.JSON(404, gin.H{"error": "Client not found"})
			return
		}
		c.JSON(500, gin.H{"error": "Failed to load client"})
		return
	}
	c.JSON(200, detail)
}

func (h *DashboardHandler) UpdateClient(c *gin.Context) {
	id, ok := clientIDParam(c)
	if !ok {
		return
	}
	var payload struct {
		Name             string `json:"name"`
		Phone            string `json:"phone"`
		Email            string `json:"email"`
		CaseManager      string `json:"case_manager"`
		CaseType         string `json:"case_type"`
		Gender           string `json:"gender"`
		AccidentDate     string `json:"accident_date"`
		PreferredChannel string `json:"preferred_channel"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request body"})
		return
	}

	patch := &entities.Client{
		ID:               id,
		Name:             SanitizeString(payload.Name),
		Phone:            payload.Phone,
		Email:            SanitizeString(payload.Email),
		CaseManager:      SanitizeString(payload.CaseManager),
		CaseType:         SanitizeString(payload.CaseType),
		Gender:           payload.Gender,
		PreferredChannel: payload.PreferredChannel,
	}
	if payload.AccidentDate != "" {
		t, ok := ParseDate(payload.AccidentDate)
		if !ok {
			c.JSON(400, gin.H{"error": "Invalid accident_date, expected YYYY-MM-DD"})
			return
		}
		patch.AccidentDate = t
	}

	if err := h.dash.UpdateClient(c.Request.Context(), patch); err != nil {
		if errors.Is(err, usecases.ErrClientNotFound) {
			c.JSON(404, gin.H{"error": "Client not found"})
			return
		}
		c.JSON(500, gin.H{"error": "Failed to update client"})
		return
	}
	c.JSON(200, patch)
}

func (h *DashboardHandler) SetClientStatus(c *gin.Context) {
	id, ok := clientIDParam(c)
	if !ok {
		return
	}
	var payload struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request body"})
		return
	}
	switch payload.Status {
	case entities.ClientActive, entities.ClientPaused, entities.ClientClosed:
	default:
		c.JSON(400, gin.H{"error": "Invalid status"})
		return
	}

	if err := h.dash.SetClientStatus(c.Request.Context(), id, payload.Status); err != nil {
		if errors.Is(err, usecases.ErrClientNotFound) {
			c.JSON(404, gin.H{"error": "Client not found"})
			return
		}
		c.JSON(500, gin.H{"error": "Failed to update status"})
		return
	}
	c.JSON(200, gin.H{"status": "updated"})
}

func (h *DashboardHandler) GetClientContext(c *gin.Context) {
	id, ok := clientIDParam(c)
	if !ok {
		return
	}
	cctx, err := h.dash.ClientContext(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, usecases.ErrClientNotFound) {
			c.JSON(404, gin.H{"error": "Client not found"})
			return
		}
		c.JSON(500, gin.H{"error": "Failed to build context"})
		return
	}
	c.JSON(200, cctx)
}

func (h *DashboardHandler) GetMessageHistory(c *gin.Context) {
	id, ok := clientIDParam(c)
	if !ok {
		return
	}
	limit := intQuery(c, "limit", 50)
	if limit > 500 {
		limit = 500
	}
	messages, err := h.dash.MessageHistory(c.Request.Context(), id, limit)
	if err != nil {
		if errors.Is(err, usecases.ErrClientNotFound) {
			c.JSON(404, gin.H{"error": "Client not found"})
			return
		}
		c.JSON(500, gin.H{"error": "Failed to load messages"})
		return
	}
	c.JSON(200, messages)
}

func (h *DashboardHandler) ExportMessages(c *gin.Context) {
	id, ok := clientIDParam(c)
	if !ok {
		return
	}
	// Resolve the client before any bytes go out so a 404 is still possible.
	if _, err := h.dash.GetClient(c.Request.Context(), id); err != nil {
		if errors.Is(err, usecases.ErrClientNotFound) {
			c.JSON(404, gin.H{"error": "Client not found"})
			return
		}
		c.JSON(500, gin.H{"error": "Failed to load client"})
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=client_%d_messages.csv", id))
	if err := h.dash.ExportMessages(c.Request.Context(), id, c.Writer); err != nil {
		h.logger.Error("message export failed", zap.Int("client_id", id), zap.Error(err))
	}
}

func (h *DashboardHandler) GetCapStatus(c *gin.Context) {
	id, ok := clientIDParam(c)
	if !ok {
		return
	}
	status, err := h.dash.CapStatus(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, usecases.ErrClientNotFound) {
			c.JSON(404, gin.H{"error": "Client not found"})
			return
		}
		c.JSON(500, gin.H{"error": "Failed to load cap status"})
		return
	}
	c.JSON(200, status)
}

func (h *DashboardHandler) TriggerCheckIn(c *gin.Context) {
	id, ok := clientIDParam(c)
	if !ok {
		return
	}
	body, err := h.checkins.TriggerNow(c.Request.Context(), id, time.Now().UTC())
	if err != nil {
		if errors.Is(err, usecases.ErrClientNotFound) {
			c.JSON(404, gin.H{"error": "Client not found"})
			return
		}
		h.logger.Error("manual check-in failed", zap.Int("client_id", id), zap.Error(err))
		c.JSON(500, gin.H{"error": "Failed to send check-in"})
		return
	}
	c.JSON(200, gin.H{"status": "sent", "body": body})
}

func (h *DashboardHandler) GetCheckIns(c *gin.Context) {
	id, ok := clientIDParam(c)
	if !ok {
		return
	}
	checkins, err := h.dash.UpcomingCheckIns(c.Request.Context(), id, intQuery(c, "limit", 20))
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to load check-ins"})
		return
	}
	c.JSON(200, checkins)
}

func (h *DashboardHandler) GetClientActions(c *gin.Context) {
	id, ok := clientIDParam(c)
	if !ok {
		return
	}
	items, err := h.dash.ActionItemsByClient(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, usecases.ErrClientNotFound) {
			c.JSON(404, gin.H{"error": "Client not found"})
			return
		}
		c.JSON(500, gin.H{"error": "Failed to load action items"})
		return
	}
	c.JSON(200, items)
}

// Reports

func (h *DashboardHandler) GetReports(c *gin.Context) {
	id, ok := clientIDParam(c)
	if !ok {
		return
	}
	reports, err := h.dash.ReportsByClient(c.Request.Context(), id, intQuery(c, "limit", 12))
	if err != nil {
		if errors.Is(err, usecases.ErrClientNotFound) {
			c.JSON(404, gin.H{"error": "Client not found"})
			return
		}
		c.JSON(500, gin.H{"error": "Failed to load reports"})
		return
	}
	c.JSON(200, reports)
}

func (h *DashboardHandler) GetLatestReport(c *gin.Context) {
	id, ok := clientIDParam(c)
	if !ok {
		return
	}
	report, err := h.dash.LatestReport(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, usecases.ErrClientNotFound) {
			c.JSON(404, gin.H{"error": "Client not found"})
			return
		}
		c.JSON(500, gin.H{"error": "Failed to load report"})
		return
	}
	if report == nil {
		c.JSON(404, gin.H{"error": "No report yet"})
		return
	}
	c.JSON(200, report)
}

// GenerateReport runs an on-demand risk assessment and insight report
// instead of waiting for the weekly pass.
func (h *DashboardHandler) GenerateReport(c *gin.Context) {
	id, ok := clientIDParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	client, err := h.dash.GetClient(ctx, id)
	if err != nil {
		if errors.Is(err, usecases.ErrClientNotFound) {
			c.JSON(404, gin.H{"error": "Client not found"})
			return
		}
		c.JSON(500, gin.H{"error": "Failed to load client"})
		return
	}

	now := time.Now().UTC()
	assessment, err := h.risk.Assess(ctx, client, now)
	if err != nil {
		h.logger.Warn("on-demand risk assessment failed", zap.Int("client_id", id), zap.Error(err))
		assessment = nil
	}
	report, err := h.insights.GenerateReport(ctx, client, assessment, now)
	if err != nil {
		h.logger.Error("on-demand report failed", zap.Int("client_id", id), zap.Error(err))
		c.JSON(500, gin.H{"error": "Failed to generate report"})
		return
	}
	c.JSON(201, report)
}

// Roster import

func (h *DashboardHandler) ImportRoster(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(400, gin.H{"error": "Bad request: missing file"})
		return
	}
	defer file.Close()

	filename := "roster.csv"
	if header != nil && header.Filename != "" {
		filename = SanitizeString(header.Filename)
	}

	result, err := h.dash.ImportRoster(c.Request.Context(), filename, file)
	if err != nil {
		c.JSON(400, gin.H{"error": "Import failed: " + err.Error()})
		return
	}
	c.JSON(201, result)
}

func (h *DashboardHandler) ImportHistory(c *gin.Context) {
	history, err := h.dash.ImportHistory(c.Request.Context(), intQuery(c, "limit", 20))
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to load import history"})
		return
	}
	c.JSON(200, history)
}

// Messages and triage

func (h *DashboardHandler) GetFlaggedMessages(c *gin.Context) {
	messages, err := h.dash.FlaggedMessages(c.Request.Context(), intQuery(c, "limit", 50))
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to load flagged messages"})
		return
	}
	c.JSON(200, messages)
}

// TestTriage runs the full pipeline against a hypothetical message without
// storing anything or sending a reply.
func (h *DashboardHandler) TestTriage(c *gin.Context) {
	var payload struct {
		ClientID int    `json:"client_id"`
		Body     string `json:"body"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request body"})
		return
	}
	if payload.ClientID <= 0 || payload.Body == "" {
		c.JSON(400, gin.H{"error": "client_id and body are required"})
		return
	}

	result, err := h.intake.Preview(c.Request.Context(), payload.ClientID, TruncateString(SanitizeString(payload.Body), MaxMessageLength))
	if err != nil {
		if errors.Is(err, usecases.ErrClientNotFound) {
			c.JSON(404, gin.H{"error": "Client not found"})
			return
		}
		h.logger.Error("triage test failed", zap.Error(err))
		c.JSON(500, gin.H{"error": "Triage failed"})
		return
	}
	c.JSON(200, result)
}

// ResendMessage retries delivery of a failed outbound message.
func (h *DashboardHandler) ResendMessage(c *gin.Context) {
	err := h.intake.Resend(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, usecases.ErrMessageNotFound):
			c.JSON(404, gin.H{"error": "Message not found"})
		case errors.Is(err, usecases.ErrNotResendable):
			c.JSON(409, gin.H{"error": "Only failed outbound messages can be resent"})
		case errors.Is(err, usecases.ErrClientNotFound):
			c.JSON(404, gin.H{"error": "Client not found"})
		default:
			h.logger.Error("resend failed", zap.Error(err), zap.String("message_id", c.Param("id")))
			c.JSON(500, gin.H{"error": "Resend failed"})
		}
		return
	}
	c.JSON(200, gin.H{"status": "sent"})
}

// Insights

func (h *DashboardHandler) ListInsights(c *gin.Context) {
	clientID := 0
	if raw := c.Query("client_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			c.JSON(400, gin.H{"error": "Invalid client_id"})
			return
		}
		clientID = id
	}
	insights, err := h.dash.ListInsights(c.Request.Context(),
		clientID, c.Query("type"), c.Query("status"), intQuery(c, "limit", 100))
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to load insights"})
		return
	}
	c.JSON(200, insights)
}

func (h *DashboardHandler) AcknowledgeInsight(c *gin.Context) {
	h.setInsightStatus(c, entities.InsightAcknowledged)
}

func (h *DashboardHandler) ResolveInsight(c *gin.Context) {
	h.setInsightStatus(c, entities.InsightResolved)
}

func (h *DashboardHandler) setInsightStatus(c *gin.Context, status string) {
	id := c.Param("id")
	if !ValidSlug(id) {
		c.JSON(400, gin.H{"error": "Invalid insight id"})
		return
	}
	if err := h.dash.SetInsightStatus(c.Request.Context(), id, status); err != nil {
		c.JSON(500, gin.H{"error": "Failed to update insight"})
		return
	}
	c.JSON(200, gin.H{"status": status})
}

// Action items

func (h *DashboardHandler) ListActions(c *gin.Context) {
	items, err := h.dash.OpenActionItems(c.Request.Context(), intQuery(c, "limit", 100))
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to load action items"})
		return
	}
	c.JSON(200, items)
}

func (h *DashboardHandler) SetActionStatus(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(400, gin.H{"error": "Invalid action item id"})
		return
	}
	var payload struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request body"})
		return
	}
	if payload.Status != entities.ActionOpen && payload.Status != entities.ActionDone {
		c.JSON(400, gin.H{"error": "Invalid status"})
		return
	}
	if err := h.dash.SetActionItemStatus(c.Request.Context(), id, payload.Status); err != nil {
		c.JSON(500, gin.H{"error": "Failed to update action item"})
		return
	}
	c.JSON(200, gin.H{"status": "updated"})
}

// Analytics

func (h *DashboardHandler) SentimentDistribution(c *gin.Context) {
	dist, err := h.dash.SentimentDistribution(c.Request.Context(), sinceParam(c))
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to load sentiment distribution"})
		return
	}
	c.JSON(200, dist)
}

func (h *DashboardHandler) ActionDistribution(c *gin.Context) {
	dist, err := h.dash.ActionDistribution(c.Request.Context(), sinceParam(c))
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to load action distribution"})
		return
	}
	c.JSON(200, dist)
}

func (h *DashboardHandler) DailyVolume(c *gin.Context) {
	clientID := 0
	if raw := c.Query("client_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			c.JSON(400, gin.H{"error": "Invalid client_id"})
			return
		}
		clientID = id
	}
	volume, err := h.dash.DailyVolume(c.Request.Context(), clientID, intQuery(c, "days", 30))
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to load volume"})
		return
	}
	c.JSON(200, volume)
}

func (h *DashboardHandler) RiskBreakdown(c *gin.Context) {
	breakdown, err := h.dash.RiskBreakdown(c.Request.Context())
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to load risk breakdown"})
		return
	}
	c.JSON(200, breakdown)
}

func (h *DashboardHandler) TriageTrend(c *gin.Context) {
	trend, err := h.dash.TriageTrend(c.Request.Context(), intQuery(c, "days", 30))
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to load trend"})
		return
	}
	c.JSON(200, trend)
}

// Billing

func (h *DashboardHandler) BillingPreview(c *gin.Context) {
	now := time.Now().UTC()

	var from, to time.Time
	if c.Query("from") != "" || c.Query("to") != "" {
		f, okFrom := ParseDate(c.Query("from"))
		t, okTo := ParseDate(c.Query("to"))
		if !okFrom || !okTo || !t.After(f) {
			c.JSON(400, gin.H{"error": "Invalid from/to dates, expected YYYY-MM-DD"})
			return
		}
		from, to = f, t
	} else {
		f, t, err := usecases.ParsePeriod(c.Query("period"), now)
		if err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		from, to = f, t
	}

	preview, err := h.billing.Preview(c.Request.Context(), c.Query("plan"), from, to)
	if err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, preview)
}

func (h *DashboardHandler) ListPlans(c *gin.Context) {
	plans, err := h.dash.Plans(c.Request.Context())
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to load plans"})
		return
	}
	c.JSON(200, plans)
}

// Settings and templates

func (h *DashboardHandler) GetSettings(c *gin.Context) {
	settings, err := h.dash.AllSettings(c.Request.Context())
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to load settings"})
		return
	}
	c.JSON(200, settings)
}

func (h *DashboardHandler) SetSetting(c *gin.Context) {
	var payload struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request body"})
		return
	}
	if !ValidSettingKey(payload.Key) {
		c.JSON(400, gin.H{"error": "Invalid setting key"})
		return
	}
	if !ValidateLength(payload.Value, 0, MaxSettingValLength) {
		c.JSON(400, gin.H{"error": "Setting value too long"})
		return
	}
	payload.Value = SanitizeString(payload.Value)

	if err := h.dash.SetSetting(c.Request.Context(), payload.Key, payload.Value); err != nil {
		c.JSON(500, gin.H{"error": "Failed to save setting"})
		return
	}
	c.JSON(200, gin.H{"status": "updated"})
}

func (h *DashboardHandler) ListTemplates(c *gin.Context) {
	templates, err := h.dash.Templates(c.Request.Context())
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to load templates"})
		return
	}
	c.JSON(200, templates)
}

func (h *DashboardHandler) CreateTemplate(c *gin.Context) {
	var payload struct {
		Slug     string `json:"slug"`
		Title    string `json:"title"`
		Body     string `json:"body"`
		Category string `json:"category"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request body"})
		return
	}
	if !ValidSlug(payload.Slug) {
		c.JSON(400, gin.H{"error": "Invalid slug format"})
		return
	}
	if !ValidateLength(payload.Title, 1, MaxNameLength) {
		c.JSON(400, gin.H{"error": "Invalid title length"})
		return
	}

	tpl := &repository.ResponseTemplate{
		Slug:     payload.Slug,
		Title:    SanitizeString(payload.Title),
		Body:     SanitizeString(payload.Body),
		Category: SanitizeString(payload.Category),
	}
	if err := h.dash.CreateTemplate(c.Request.Context(), tpl); err != nil {
		c.JSON(500, gin.H{"error": "Failed to create template"})
		return
	}
	c.JSON(201, tpl)
}

func (h *DashboardHandler) UpdateTemplate(c *gin.Context) {
	slug := c.Param("slug")
	if !ValidSlug(slug) {
		c.JSON(400, gin.H{"error": "Invalid slug format"})
		return
	}
	var payload struct {
		Title    string `json:"title"`
		Body     string `json:"body"`
		Category string `json:"category"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request body"})
		return
	}

	tpl := &repository.ResponseTemplate{
		Slug:     slug,
		Title:    SanitizeString(payload.Title),
		Body:     SanitizeString(payload.Body),
		Category: SanitizeString(payload.Category),
	}
	if err := h.dash.UpdateTemplate(c.Request.Context(), tpl); err != nil {
		c.JSON(500, gin.H{"error": "Failed to update template"})
		return
	}
	c.JSON(200, gin.H{"status": "updated"})
}

func (h *DashboardHandler) DeleteTemplate(c *gin.Context) {
	slug := c.Param("slug")
	if !ValidSlug(slug) {
		c.JSON(400, gin.H{"error": "Invalid slug format"})
		return
	}
	if err := h.dash.DeleteTemplate(c.Request.Context(), slug); err != nil {
		c.JSON(500, gin.H{"error": "Failed to delete template"})
		return
	}
	c.JSON(200, gin.H{"status": "deleted"})
}
