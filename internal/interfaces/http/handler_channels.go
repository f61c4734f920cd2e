package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"casepulse/internal/infrastructure"
)

// ChannelsHandler manages the delivery channel integrations: the firm's
// WhatsApp session and the Telegram alert bot.
type ChannelsHandler struct {
	wa     *infrastructure.WhatsAppClient
	tg     *infrastructure.TelegramAlerter
	logger *zap.Logger
}

func NewChannelsHandler(wa *infrastructure.WhatsAppClient, tg *infrastructure.TelegramAlerter, logger *zap.Logger) *ChannelsHandler {
	return &ChannelsHandler{wa: wa, tg: tg, logger: logger}
}

func (h *ChannelsHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/whatsapp/status", h.WhatsAppStatus)
	api.GET("/whatsapp/qr", h.WhatsAppQR)
	api.POST("/whatsapp/connect", h.WhatsAppConnect)
	api.POST("/whatsapp/disconnect", h.WhatsAppDisconnect)
	api.POST("/whatsapp/logout", h.WhatsAppLogout)

	api.GET("/telegram/status", h.TelegramStatus)
	api.POST("/telegram/link-code", h.TelegramLinkCode)
}

// WhatsAppStatus returns the firm WhatsApp session state
func (h *ChannelsHandler) WhatsAppStatus(c *gin.Context) {
	if h.wa == nil {
		c.JSON(http.StatusOK, gin.H{"connected": false, "enabled": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"enabled":   true,
		"connected": h.wa.IsConnected(),
		"logged_in": h.wa.IsLoggedIn(),
		"phone":     h.wa.GetPhoneNumber(),
		"name":      h.wa.GetName(),
		"hasQR":     h.wa.GetQR() != "",
	})
}

// WhatsAppQR returns the pairing QR code as PNG
func (h *ChannelsHandler) WhatsAppQR(c *gin.Context) {
	if h.wa == nil {
		c.String(http.StatusServiceUnavailable, "WhatsApp not configured")
		return
	}

	if !h.wa.IsConnected() {
		if err := h.wa.Connect(); err != nil {
			c.String(http.StatusInternalServerError, "Failed to connect: "+err.Error())
			return
		}
	}

	qr := h.wa.GetQR()
	if qr == "" {
		if h.wa.IsLoggedIn() {
			c.String(http.StatusOK, "Already logged in")
			return
		}
		c.String(http.StatusAccepted, "QR code not yet available. Please wait...")
		return
	}

	png, err := qrcode.Encode(qr, qrcode.Medium, 256)
	if err != nil {
		c.String(http.StatusInternalServerError, "Failed to generate QR code")
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (h *ChannelsHandler) WhatsAppConnect(c *gin.Context) {
	if h.wa == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "WhatsApp not configured"})
		return
	}
	if err := h.wa.Connect(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "connecting",
		"logged_in": h.wa.IsLoggedIn(),
	})
}

func (h *ChannelsHandler) WhatsAppDisconnect(c *gin.Context) {
	if h.wa == nil {
		c.JSON(http.StatusOK, gin.H{"status": "disconnected"})
		return
	}
	h.wa.Disconnect()
	c.JSON(http.StatusOK, gin.H{"status": "disconnected"})
}

// WhatsAppLogout drops the pairing entirely so a new device can be linked
func (h *ChannelsHandler) WhatsAppLogout(c *gin.Context) {
	if h.wa == nil {
		c.JSON(http.StatusOK, gin.H{"status": "logged_out"})
		return
	}
	if err := h.wa.Logout(); err != nil {
		h.logger.Warn("whatsapp logout failed", zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"status": "logged_out"})
}

// TelegramStatus reports whether the alert bot is running
func (h *ChannelsHandler) TelegramStatus(c *gin.Context) {
	if h.tg == nil {
		c.JSON(http.StatusOK, gin.H{"enabled": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"enabled": true,
		"bot":     h.tg.BotName(),
	})
}

// TelegramLinkCode mints a short-lived code the caller sends to the bot
// with /link to attach their Telegram chat to their staff account.
func (h *ChannelsHandler) TelegramLinkCode(c *gin.Context) {
	if h.tg == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Telegram not configured"})
		return
	}
	staffID := getUserID(c)
	if staffID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user"})
		return
	}

	code := h.tg.MintLinkCode(staffID)
	c.JSON(http.StatusOK, gin.H{
		"code":       code,
		"bot":        h.tg.BotName(),
		"expires_in": "10m",
	})
}
