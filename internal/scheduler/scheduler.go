package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"casepulse/internal/repository"
	"casepulse/internal/usecases"
)

const defaultInterval = 5 * time.Minute

// Config controls the background cadence. Zero values fall back to safe
// defaults; retention passes are skipped entirely when both windows are zero.
type Config struct {
	Interval         time.Duration
	ArchiveAfterDays int
	PurgeAfterDays   int
}

// Scheduler drives the recurring work: due check-ins every tick, weekly
// insight reports when the ISO week rolls over, and a daily retention sweep.
type Scheduler struct {
	cfg       Config
	checkins  *usecases.CheckInService
	risk      *usecases.RiskAssessor
	insights  *usecases.InsightService
	clients   *repository.ClientRepository
	reports   *repository.ReportRepository
	retention *repository.RetentionManager
	logger    *zap.Logger

	lastWeekly    time.Time
	lastRetention time.Time
}

func New(
	cfg Config,
	checkins *usecases.CheckInService,
	risk *usecases.RiskAssessor,
	insights *usecases.InsightService,
	clients *repository.ClientRepository,
	reports *repository.ReportRepository,
	retention *repository.RetentionManager,
	logger *zap.Logger,
) *Scheduler {
	return &Scheduler{
		cfg:       cfg,
		checkins:  checkins,
		risk:      risk,
		insights:  insights,
		clients:   clients,
		reports:   reports,
		retention: retention,
		logger:    logger,
	}
}

// Run blocks until ctx is cancelled, firing a tick at the configured interval.
func (s *Scheduler) Run(ctx context.Context) {
	interval := s.cfg.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("scheduler started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx, time.Now().UTC())
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	s.runCheckIns(ctx, now)

	if !repository.WeekStart(now).Equal(repository.WeekStart(s.lastWeekly)) {
		s.runWeeklyReports(ctx, now)
	}

	if s.cfg.ArchiveAfterDays > 0 && !sameDay(now, s.lastRetention) {
		s.runRetention(ctx, now)
	}
}

func (s *Scheduler) runCheckIns(ctx context.Context, now time.Time) {
	start := time.Now()
	sent, err := s.checkins.SendDue(ctx, now)
	if err != nil {
		s.logger.Error("check-in pass failed", zap.Error(err))
		return
	}
	if sent > 0 {
		s.logger.Info("check-in pass done",
			zap.Int("sent", sent),
			zap.Duration("took", time.Since(start)))
	}
}

// runWeeklyReports generates an insight report for every client whose last
// report is older than a week. DueClientIDs keeps the pass idempotent, so a
// restart mid-week only fills gaps instead of duplicating reports.
func (s *Scheduler) runWeeklyReports(ctx context.Context, now time.Time) {
	start := time.Now()
	ids, err := s.reports.DueClientIDs(ctx, now.AddDate(0, 0, -7))
	if err != nil {
		s.logger.Error("weekly report pass failed", zap.Error(err))
		return
	}

	generated := 0
	for _, id := range ids {
		client, err := s.clients.GetByID(ctx, id)
		if err != nil || client == nil {
			s.logger.Warn("report pass: load client", zap.Int("client_id", id), zap.Error(err))
			continue
		}
		assessment, err := s.risk.Assess(ctx, client, now)
		if err != nil {
			s.logger.Warn("report pass: risk assessment", zap.Int("client_id", id), zap.Error(err))
			assessment = nil
		}
		if _, err := s.insights.GenerateReport(ctx, client, assessment, now); err != nil {
			s.logger.Warn("report pass: generate report", zap.Int("client_id", id), zap.Error(err))
			continue
		}
		generated++
	}

	s.lastWeekly = now
	s.logger.Info("weekly report pass done",
		zap.Int("due", len(ids)),
		zap.Int("generated", generated),
		zap.Duration("took", time.Since(start)))
}

func (s *Scheduler) runRetention(ctx context.Context, now time.Time) {
	start := time.Now()
	archived, err := s.retention.ArchiveMessagesOlderThan(ctx, now.AddDate(0, 0, -s.cfg.ArchiveAfterDays))
	if err != nil {
		s.logger.Error("retention pass: archive", zap.Error(err))
		return
	}

	var purged int64
	if s.cfg.PurgeAfterDays > 0 {
		purged, err = s.retention.PurgeArchiveOlderThan(ctx, now.AddDate(0, 0, -s.cfg.PurgeAfterDays))
		if err != nil {
			s.logger.Error("retention pass: purge", zap.Error(err))
			return
		}
	}

	s.lastRetention = now
	s.logger.Info("retention pass done",
		zap.Int64("archived", archived),
		zap.Int64("purged", purged),
		zap.Duration("took", time.Since(start)))
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
