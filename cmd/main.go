package main

import (
	"context"
	"errors"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"casepulse/internal/config"
	"casepulse/internal/entities"
	"casepulse/internal/infrastructure"
	"casepulse/internal/interfaces"
	"casepulse/internal/interfaces/http"
	"casepulse/internal/repository"
	"casepulse/internal/scheduler"
	"casepulse/internal/usecases"

	"github.com/gin-gonic/gin"
	"go.mau.fi/whatsmeow/types/events"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("config: " + err.Error())
	}

	logger := newLogger(cfg.Log.Development)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL and run migrations.
	pgClient, err := infrastructure.NewPostgresClient(cfg.Database.URL)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer pgClient.Close()

	// Repositories.
	clientRepo := repository.NewClientRepository(pgClient.Pool)
	messageRepo := repository.NewMessageRepository(pgClient.Pool)
	staffRepo := repository.NewStaffRepository(pgClient.Pool)
	usageRepo := repository.NewUsageRepository(pgClient.Pool)
	settingsRepo := repository.NewSettingsRepository(pgClient.Pool)
	checkinRepo := repository.NewCheckInRepository(pgClient.Pool)
	insightRepo := repository.NewInsightRepository(pgClient.Pool)
	reportRepo := repository.NewReportRepository(pgClient.Pool)
	actionRepo := repository.NewActionItemRepository(pgClient.Pool)
	planRepo := repository.NewPlanRepository(pgClient.Pool)
	rosterImporter := repository.NewRosterImporter(pgClient.Pool)
	retention := repository.NewRetentionManager(pgClient.Pool)

	// Seed billing plans. A CSV path overrides the built-in default plan.
	if cfg.Billing.PlansCSVPath != "" {
		if n, err := planRepo.SyncFromCSV(ctx, cfg.Billing.PlansCSVPath); err != nil {
			logger.Warn("plan CSV sync failed", zap.String("path", cfg.Billing.PlansCSVPath), zap.Error(err))
		} else {
			logger.Info("billing plans synced", zap.Int("plans", n))
		}
	}
	if err := planRepo.EnsureDefault(ctx, cfg.Intake.WeeklyReplyCap); err != nil {
		logger.Fatal("billing plan seed failed", zap.Error(err))
	}

	// Model client behind the circuit breaker.
	openai, err := infrastructure.NewOpenAIClient(infrastructure.OpenAIConfig{
		APIKey:      cfg.OpenAI.APIKey,
		BaseURL:     cfg.OpenAI.BaseURL,
		Model:       cfg.OpenAI.Model,
		Timeout:     cfg.OpenAI.Timeout,
		Temperature: cfg.OpenAI.Temperature,
	})
	if err != nil {
		logger.Fatal("openai client init failed", zap.Error(err))
	}
	llm := infrastructure.NewGuardedLLM(openai, infrastructure.NewCircuitBreaker(5, 30*time.Second))

	// Outbound channels. SMS is the default; WhatsApp joins the router once
	// a device is paired.
	var smsSender interfaces.MessageSender
	if cfg.SMS.BaseURL != "" {
		sms, err := infrastructure.NewSMSGatewayClient(infrastructure.SMSGatewayConfig{
			BaseURL:   cfg.SMS.BaseURL,
			AccountID: cfg.SMS.AccountID,
			AuthToken: cfg.SMS.AuthToken,
			Sender:    cfg.SMS.Sender,
		})
		if err != nil {
			logger.Fatal("sms gateway init failed", zap.Error(err))
		}
		smsSender = sms
	} else {
		logger.Warn("SMS_GATEWAY_URL not set, outbound SMS disabled")
	}

	var wa *infrastructure.WhatsAppClient
	if cfg.WhatsApp.Enabled {
		wa, err = infrastructure.NewWhatsAppClient(cfg.WhatsApp.SQLitePath, logger)
		if err != nil {
			logger.Fatal("whatsapp init failed", zap.Error(err))
		}
	}

	router := &usecases.OutboundRouter{SMS: smsSender}
	if wa != nil {
		router.WhatsApp = wa
	}

	// Telegram alert bot for the staff side channel.
	var tg *infrastructure.TelegramAlerter
	var notifier interfaces.AlertNotifier = infrastructure.NoopNotifier{}
	if cfg.Telegram.Enabled() {
		tg, err = infrastructure.NewTelegramAlerter(cfg.Telegram.BotToken, staffRepo, logger)
		if err != nil {
			logger.Fatal("telegram bot init failed", zap.Error(err))
		}
		notifier = tg
		go tg.Start(ctx)
	}

	// Usecases.
	triage := usecases.NewTriageAnalyzer(llm, logger)
	delay := usecases.NewDelayCalculator(cfg.Intake.DelayEnabled, cfg.Intake.DelayMin, cfg.Intake.DelayMax)
	riskAssessor := usecases.NewRiskAssessor(llm, clientRepo, messageRepo, notifier, logger)
	insightSvc := usecases.NewInsightService(llm, insightRepo, reportRepo, messageRepo, actionRepo, logger)
	checkinSvc := usecases.NewCheckInService(clientRepo, checkinRepo, messageRepo, settingsRepo, llm, router, logger)
	intake := usecases.NewMessageService(
		clientRepo,
		messageRepo,
		usageRepo,
		settingsRepo,
		triage,
		riskAssessor,
		insightSvc,
		checkinSvc,
		delay,
		router,
		notifier,
		usecases.MessageServiceConfig{
			WeeklyReplyCap: cfg.Intake.WeeklyReplyCap,
			RatePerMinute:  cfg.Intake.RatePerMinute,
			RateBurst:      cfg.Intake.RateBurst,
			Debounce:       cfg.Intake.Debounce,
		},
		logger,
	)
	defer intake.Stop()

	auth := usecases.NewAuthUsecase(staffRepo, cfg.Auth.JWTSecret)
	if err := auth.EnsureAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
		logger.Fatal("admin bootstrap failed", zap.Error(err))
	}

	dashboard := usecases.NewDashboardUsecase(
		clientRepo, messageRepo, insightRepo, reportRepo, usageRepo,
		settingsRepo, checkinRepo, actionRepo, planRepo, rosterImporter,
		cfg.Intake.WeeklyReplyCap,
	)
	billing := usecases.NewBillingCalculator(planRepo, usageRepo, clientRepo)

	// Inbound WhatsApp messages feed the same pipeline as the SMS webhook.
	if wa != nil {
		wa.AddHandler(func(evt interface{}) {
			msg, ok := evt.(*events.Message)
			if !ok || msg.Info.IsGroup {
				return
			}
			from, body := wa.ParseMessage(msg)
			if body == "" {
				return
			}
			intake.HandleInboundAsync(entities.ChannelWhatsApp, from, body)
		})
		if err := wa.Connect(); err != nil {
			// Pairing can finish later through the dashboard QR endpoint.
			logger.Warn("whatsapp connect failed", zap.Error(err))
		}
	}

	if cfg.Scheduler.Enabled {
		sched := scheduler.New(scheduler.Config{
			Interval:         cfg.Scheduler.Interval,
			ArchiveAfterDays: cfg.Retention.ArchiveAfterDays,
			PurgeAfterDays:   cfg.Retention.PurgeAfterDays,
		}, checkinSvc, riskAssessor, insightSvc, clientRepo, reportRepo, retention, logger)
		go sched.Run(ctx)
	}

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	mw := http.NewMiddleware(cfg.Auth.JWTSecret)
	http.SetupRoutes(r, intake, auth, dashboard, riskAssessor, insightSvc, checkinSvc, billing,
		staffRepo, messageRepo, retention, wa, tg, llm.Breaker(), pgClient.Pool, cfg.SMS.WebhookSecret, mw, logger)

	srv := &nethttp.Server{
		Addr:    cfg.Server.Addr,
		Handler: r,
	}
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown incomplete", zap.Error(err))
	}
	if wa != nil {
		wa.Disconnect()
	}
	if tg != nil {
		tg.Stop()
	}
	logger.Info("shutdown complete")
}

func newLogger(development bool) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if development {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic("logger: " + err.Error())
	}
	return logger
}
