package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"casepulse/internal/entities"
	"casepulse/internal/infrastructure"
	"casepulse/internal/repository"
	"casepulse/internal/usecases"
)

// IntakeService is the slice of the inbound message pipeline the HTTP layer
// drives. *usecases.MessageService satisfies it.
type IntakeService interface {
	HandleInboundAsync(channel, from, body string)
	Preview(ctx context.Context, clientID int, body string) (*entities.TriageResult, error)
	Resend(ctx context.Context, messageID string) error
	LimiterStats() map[string]interface{}
}

// Handler owns the public surface: the inbound webhook, health, and auth.
// Staff-facing routes live on the sub-handlers.
type Handler struct {
	intake        IntakeService
	auth          *usecases.AuthUsecase
	db            *pgxpool.Pool
	webhookSecret string
	logger        *zap.Logger
}

func NewHandler(intake IntakeService, auth *usecases.AuthUsecase, db *pgxpool.Pool, webhookSecret string, logger *zap.Logger) *Handler {
	return &Handler{
		intake:        intake,
		auth:          auth,
		db:            db,
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

func SetupRoutes(
	r *gin.Engine,
	intake IntakeService,
	auth *usecases.AuthUsecase,
	dashboard *usecases.DashboardUsecase,
	risk *usecases.RiskAssessor,
	insights *usecases.InsightService,
	checkins *usecases.CheckInService,
	billing *usecases.BillingCalculator,
	staffRepo *repository.StaffRepository,
	messageRepo *repository.MessageRepository,
	retention *repository.RetentionManager,
	wa *infrastructure.WhatsAppClient,
	tg *infrastructure.TelegramAlerter,
	breaker *infrastructure.CircuitBreaker,
	db *pgxpool.Pool,
	webhookSecret string,
	mw *Middleware,
	logger *zap.Logger,
) {
	h := NewHandler(intake, auth, db, webhookSecret, logger)
	dashHandler := NewDashboardHandler(dashboard, intake, risk, insights, checkins, billing, logger)
	adminHandler := NewAdminHandler(staffRepo, auth, messageRepo, intake, breaker, retention, db, logger)
	channelsHandler := NewChannelsHandler(wa, tg, logger)

	r.Use(RequestLogger(logger))
	r.Use(SecurityHeaders())
	r.Use(RequestSizeLimiter(1 << 20)) // 1MB max request size
	r.Use(mw.CORSMiddleware())

	// Public routes
	r.POST("/webhook/sms", h.HandleSMSWebhook)
	r.GET("/healthz", h.HealthCheck)

	// Public auth routes. Registration needs an admin token once the
	// bootstrap account exists.
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/login", h.Login)
		authGroup.POST("/register", mw.AuthRequired(), mw.AdminOnly(), h.Register)
	}

	// Protected staff API
	api := r.Group("/api/v1")
	api.Use(mw.AuthRequired())
	api.Use(mw.RateLimitPerUser(5, 10))
	{
		dashHandler.RegisterRoutes(api)
		channelsHandler.RegisterRoutes(api)
	}

	// Admin-only routes
	admin := r.Group("/api/v1/admin")
	admin.Use(mw.AuthRequired())
	admin.Use(mw.AdminOnly())
	{
		adminHandler.RegisterRoutes(admin)
	}
}

// getUserID extracts the staff id from JWT context.
func getUserID(c *gin.Context) int {
	raw, _ := c.Get("user_id")
	if uid, ok := raw.(float64); ok { // JWT numbers decode as float64
		return int(uid)
	}
	return 0
}

// HandleSMSWebhook receives inbound texts from the SMS gateway. The gateway
// retries on anything but a fast 2xx, so triage runs in the background and
// the request is acknowledged immediately.
func (h *Handler) HandleSMSWebhook(c *gin.Context) {
	if h.webhookSecret != "" && c.GetHeader("X-Webhook-Secret") != h.webhookSecret {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook secret"})
		return
	}

	var payload struct {
		From string `form:"from" json:"from"`
		Body string `form:"body" json:"body"`
	}
	if err := c.ShouldBind(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if payload.From == "" || payload.Body == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from and body are required"})
		return
	}

	body := TruncateString(SanitizeString(payload.Body), MaxMessageLength)
	h.intake.HandleInboundAsync(entities.ChannelSMS, payload.From, body)

	c.JSON(http.StatusOK, gin.H{"status": "accepted"})
}

// HealthCheck reports process and database liveness.
func (h *Handler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": "database unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) Login(c *gin.Context) {
	var loginReq struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&loginReq); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	token, err := h.auth.Login(c.Request.Context(), loginReq.Username, loginReq.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (h *Handler) Register(c *gin.Context) {
	var regReq struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := c.ShouldBindJSON(&regReq); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if !ValidSlug(regReq.Username) || len(regReq.Password) < 6 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid username or password (min 6 chars)"})
		return
	}

	if err := h.auth.Register(c.Request.Context(), regReq.Username, regReq.Password, regReq.Role); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "registered"})
}
