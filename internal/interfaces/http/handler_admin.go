package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"casepulse/internal/entities"
	"casepulse/internal/infrastructure"
	"casepulse/internal/repository"
	"casepulse/internal/usecases"
)

type AdminHandler struct {
	staff     *repository.StaffRepository
	auth      *usecases.AuthUsecase
	messages  *repository.MessageRepository
	intake    IntakeService
	breaker   *infrastructure.CircuitBreaker
	retention *repository.RetentionManager
	db        *pgxpool.Pool
	logger    *zap.Logger
}

func NewAdminHandler(
	staff *repository.StaffRepository,
	auth *usecases.AuthUsecase,
	messages *repository.MessageRepository,
	intake IntakeService,
	breaker *infrastructure.CircuitBreaker,
	retention *repository.RetentionManager,
	db *pgxpool.Pool,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		staff:     staff,
		auth:      auth,
		messages:  messages,
		intake:    intake,
		breaker:   breaker,
		retention: retention,
		db:        db,
		logger:    logger,
	}
}

func (h *AdminHandler) RegisterRoutes(admin *gin.RouterGroup) {
	admin.GET("/stats", h.GetStats)
	admin.GET("/staff", h.ListStaff)
	admin.POST("/staff", h.CreateStaff)
	admin.PUT("/staff/:id/status", h.UpdateStaffStatus)
	admin.PUT("/staff/:id/role", h.UpdateStaffRole)
	admin.PUT("/staff/:id/password", h.ResetStaffPassword)
}

// GetStats returns platform health counters
func (h *AdminHandler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()

	staff, err := h.staff.List(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stats"})
		return
	}
	activeStaff := 0
	linkedStaff := 0
	for _, s := range staff {
		if s.IsActive {
			activeStaff++
		}
		if s.TelegramChatID != 0 {
			linkedStaff++
		}
	}

	since := time.Now().UTC().AddDate(0, 0, -30)
	inbound, outbound, err := h.messages.CountByDirection(ctx, 0, since)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stats"})
		return
	}

	breakerState := "disabled"
	if h.breaker != nil {
		breakerState = h.breaker.State()
	}

	var archived int64
	if h.retention != nil {
		if n, err := h.retention.ArchivedCount(ctx); err != nil {
			h.logger.Warn("archive count failed", zap.Error(err))
		} else {
			archived = n
		}
	}

	poolStat := h.db.Stat()
	c.JSON(http.StatusOK, gin.H{
		"staff_total":       len(staff),
		"staff_active":      activeStaff,
		"staff_linked":      linkedStaff,
		"inbound_30d":       inbound,
		"outbound_30d":      outbound,
		"messages_archived": archived,
		"llm_breaker":       breakerState,
		"message_limiter":   h.intake.LimiterStats(),
		"db": gin.H{
			"total_conns": poolStat.TotalConns(),
			"idle_conns":  poolStat.IdleConns(),
		},
	})
}

// ListStaff returns all staff accounts without password hashes
func (h *AdminHandler) ListStaff(c *gin.Context) {
	staff, err := h.staff.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch staff"})
		return
	}

	result := make([]gin.H, len(staff))
	for i, s := range staff {
		result[i] = gin.H{
			"id":              s.ID,
			"username":        s.Username,
			"role":            s.Role,
			"is_active":       s.IsActive,
			"telegram_linked": s.TelegramChatID != 0,
			"created_at":      s.CreatedAt,
		}
	}
	c.JSON(http.StatusOK, result)
}

func (h *AdminHandler) CreateStaff(c *gin.Context) {
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if !ValidSlug(payload.Username) || len(payload.Password) < 6 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid username or password (min 6 chars)"})
		return
	}

	if err := h.auth.Register(c.Request.Context(), payload.Username, payload.Password, payload.Role); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "created"})
}

// UpdateStaffStatus enables/disables a staff account
func (h *AdminHandler) UpdateStaffStatus(c *gin.Context) {
	staffID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid staff ID"})
		return
	}

	var payload struct {
		IsActive bool `json:"is_active"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	// Don't allow disabling self
	if getUserID(c) == staffID && !payload.IsActive {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot disable your own account"})
		return
	}

	if err := h.staff.SetActive(c.Request.Context(), staffID, payload.IsActive); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update staff"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated", "is_active": payload.IsActive})
}

// ResetStaffPassword sets a new password for a staff account.
func (h *AdminHandler) ResetStaffPassword(c *gin.Context) {
	staffID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid staff ID"})
		return
	}

	var payload struct {
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil || len(payload.Password) < 6 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid password (min 6 chars)"})
		return
	}

	if err := h.auth.ResetPassword(c.Request.Context(), staffID, payload.Password); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update password"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

// UpdateStaffRole changes a staff member's role
func (h *AdminHandler) UpdateStaffRole(c *gin.Context) {
	staffID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid staff ID"})
		return
	}

	var payload struct {
		Role string `json:"role"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if payload.Role != entities.RoleAdmin && payload.Role != entities.RoleManager {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role"})
		return
	}

	// Don't allow demoting self
	if getUserID(c) == staffID && payload.Role != entities.RoleAdmin {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot demote your own account"})
		return
	}

	if err := h.staff.SetRole(c.Request.Context(), staffID, payload.Role); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update role"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated", "role": payload.Role})
}
