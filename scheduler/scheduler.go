// Package scheduler drives unattended daily sends. A ticker wakes every
// five minutes, re-reads the enabled auto-send settings, and fires a send
// whenever a setting's trigger condition holds for the current tick. The
// send-log success row is the only memory: triggers may evaluate true on
// many consecutive ticks, and the pre-check keeps that harmless.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/brio2025kalbo/Icafe-Dashboard-POSTGRESQL/businessday"
	"github.com/brio2025kalbo/Icafe-Dashboard-POSTGRESQL/config"
	"github.com/brio2025kalbo/Icafe-Dashboard-POSTGRESQL/icafe"
	"github.com/brio2025kalbo/Icafe-Dashboard-POSTGRESQL/models"
	"github.com/brio2025kalbo/Icafe-Dashboard-POSTGRESQL/quickbooks"
	"github.com/brio2025kalbo/Icafe-Dashboard-POSTGRESQL/report"
	"github.com/brio2025kalbo/Icafe-Dashboard-POSTGRESQL/utils"
)

const moduleName = "scheduler"

const (
	// DefaultInterval is the tick period.
	DefaultInterval = 5 * time.Minute

	// dailyTimeTolerance is how close the tick must land to the
	// configured schedule time for daily_time to fire.
	dailyTimeTolerance = 5 * time.Minute

	// dayEndWindow is how long after 06:00 the business_day_end trigger
	// stays open.
	dayEndWindow = 10 * time.Minute

	// lastShiftRecency is how recently a shift must have ended for
	// last_shift to fire.
	lastShiftRecency = 15 * time.Minute
)

type SettingsStore interface {
	GetAllEnabledAutoSendSettings(ctx context.Context) ([]models.QbAutoSendSetting, error)
}

type CafeStore interface {
	GetCafe(ctx context.Context, userId string, cafeId string) (*models.Cafe, error)
}

type SendLogStore interface {
	GetSuccessReportLog(ctx context.Context, cafeId string, businessDate string) (*models.QbReportLog, error)
}

type ReportSender interface {
	SendDailyReport(ctx context.Context, p quickbooks.SendParams) (*models.QbReportLog, error)
}

type Scheduler struct {
	settings SettingsStore
	cafes    CafeStore
	logs     SendLogStore
	sender   ReportSender
	sources  func(cafe *models.Cafe) (report.ShiftSource, error)
	logger   *logrus.Logger
	now      func() time.Time
	interval time.Duration
	running  atomic.Bool
}

func NewScheduler(settings SettingsStore, cafes CafeStore, logs SendLogStore, sender ReportSender) *Scheduler {
	return &Scheduler{
		settings: settings,
		cafes:    cafes,
		logs:     logs,
		sender:   sender,
		sources: func(cafe *models.Cafe) (report.ShiftSource, error) {
			return icafe.NewClient(cafe.CafeId, cafe.ApiKey)
		},
		logger:   config.GetLogger(),
		now:      time.Now,
		interval: DefaultInterval,
	}
}

// WithClock overrides the scheduler's clock. Tests use it to pin ticks to
// exact local times.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

func (s *Scheduler) WithInterval(interval time.Duration) *Scheduler {
	s.interval = interval
	return s
}

// WithShiftSource overrides the per-cafe shift source factory.
func (s *Scheduler) WithShiftSource(factory func(cafe *models.Cafe) (report.ShiftSource, error)) *Scheduler {
	s.sources = factory
	return s
}

// Run ticks immediately, then on every interval until the context ends.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.WithFields(logrus.Fields{
		"module":   moduleName,
		"interval": s.interval.String(),
	}).Info("auto-send scheduler started")

	s.Tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.WithField("module", moduleName).Info("auto-send scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick evaluates every enabled setting once. A tick still in flight makes
// the next one a no-op rather than a concurrent run.
func (s *Scheduler) Tick(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.WithField("module", moduleName).Warn("previous tick still running, skipping")
		return
	}
	defer s.running.Store(false)

	tickId := uuid.NewString()
	ctx = utils.SetCorrelationIdInContext(ctx, tickId)

	settings, err := s.settings.GetAllEnabledAutoSendSettings(ctx)
	if err != nil {
		config.LogError(s.logger, moduleName, "Tick", "failed to load auto-send settings", tickId, err)
		return
	}

	for _, setting := range settings {
		s.evaluate(ctx, setting)
	}
}

// evaluate decides whether one setting fires on this tick and, if so, runs
// the send. A panic or error for one cafe never reaches the others.
func (s *Scheduler) evaluate(ctx context.Context, setting models.QbAutoSendSetting) {
	defer func() {
		if r := recover(); r != nil {
			config.LogError(s.logger, moduleName, "evaluate", "panic while evaluating setting", setting.CafeId, fmt.Errorf("panic: %v", r))
		}
	}()

	cafe, err := s.cafes.GetCafe(ctx, setting.UserId, setting.CafeId)
	if err != nil {
		config.LogError(s.logger, moduleName, "evaluate", "cafe lookup failed", setting.CafeId, err)
		return
	}
	if !cafe.IsActive {
		return
	}

	source, err := s.sources(cafe)
	if err != nil {
		config.LogError(s.logger, moduleName, "evaluate", "shift source unavailable", setting.CafeId, err)
		return
	}

	localNow := s.now().UTC().Add(businessday.CafeUTCOffsetHours * time.Hour)

	fire, target := s.shouldFire(ctx, source, setting, localNow)
	if !fire {
		return
	}

	dateStr := businessday.FormatDate(target)
	if _, err := s.logs.GetSuccessReportLog(ctx, cafe.CafeId, dateStr); err == nil {
		return
	} else if !errors.Is(err, utils.ErrorRecordNotFound) {
		config.LogError(s.logger, moduleName, "evaluate", "send-log check failed", cafe.CafeId, err)
		return
	}

	s.logger.WithFields(logrus.Fields{
		"module":       moduleName,
		"cafeId":       cafe.CafeId,
		"mode":         setting.Mode,
		"businessDate": dateStr,
	}).Info("auto-send trigger fired")

	_, err = s.sender.SendDailyReport(ctx, quickbooks.SendParams{
		UserId:    setting.UserId,
		Cafe:      cafe,
		Date:      target,
		Generator: report.NewAggregatorWithClock(source, s.now),
	})
	if errors.Is(err, quickbooks.ErrAlreadySent) {
		return
	}
	if err != nil {
		config.LogError(s.logger, moduleName, "evaluate", "auto send failed", cafe.CafeId, err)
	}
}

// shouldFire evaluates the setting's trigger against the cafe-local tick
// time and resolves the target business date.
func (s *Scheduler) shouldFire(ctx context.Context, source report.ShiftSource, setting models.QbAutoSendSetting, localNow time.Time) (bool, time.Time) {
	today := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), 0, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)

	// Before 06:00 local the still-open business day is yesterday's, so
	// any trigger firing in that band targets yesterday.
	target := today
	if localNow.Hour() < businessday.StartHour {
		target = yesterday
	}

	switch setting.Mode {
	case models.AutoSendModeDailyTime:
		sched, err := time.Parse("15:04", setting.ScheduleTime)
		if err != nil {
			config.LogError(s.logger, moduleName, "shouldFire", "invalid schedule time", setting.ScheduleTime, err)
			return false, target
		}
		at := today.Add(time.Duration(sched.Hour())*time.Hour + time.Duration(sched.Minute())*time.Minute)
		diff := localNow.Sub(at)
		if diff < 0 {
			diff = -diff
		}
		return diff < dailyTimeTolerance, target

	case models.AutoSendModeBusinessDayEnd:
		dayStart := today.Add(businessday.StartHour * time.Hour)
		if !localNow.Before(dayStart) && localNow.Before(dayStart.Add(dayEndWindow)) {
			return true, yesterday
		}
		return false, target

	case models.AutoSendModeLastShift:
		window := businessday.CurrentWindow(s.now(), businessday.CafeUTCOffsetHours)
		agg := report.NewAggregatorWithClock(source, s.now)
		shifts, err := agg.ShiftsForBusinessDay(ctx, window)
		if err != nil {
			config.LogError(s.logger, moduleName, "shouldFire", "shift listing failed", setting.CafeId, err)
			return false, window.BusinessDate
		}
		for _, shift := range shifts {
			end, ok := shift.EndTime()
			if !ok {
				continue
			}
			since := localNow.Sub(end)
			if since >= 0 && since < lastShiftRecency {
				return true, window.BusinessDate
			}
		}
		return false, window.BusinessDate
	}

	config.LogError(s.logger, moduleName, "shouldFire", "unknown auto-send mode", setting.Mode, errors.New("unsupported mode"))
	return false, target
}
