package quickbooks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/brio2025kalbo/Icafe-Dashboard-POSTGRESQL/businessday"
	"github.com/brio2025kalbo/Icafe-Dashboard-POSTGRESQL/config"
	"github.com/brio2025kalbo/Icafe-Dashboard-POSTGRESQL/models"
	"github.com/brio2025kalbo/Icafe-Dashboard-POSTGRESQL/report"
	"github.com/brio2025kalbo/Icafe-Dashboard-POSTGRESQL/utils"
)

const moduleName = "quickbooks"

// TokenStore is the token persistence surface the sender needs.
type TokenStore interface {
	GetQbToken(ctx context.Context, userId string) (*models.QbToken, error)
	UpsertQbToken(ctx context.Context, token *models.QbToken) error
}

// SendLogStore is the audit-trail surface: the success-row lookup is the
// sole idempotency check, and every attempt appends a row.
type SendLogStore interface {
	GetSuccessReportLog(ctx context.Context, cafeId string, businessDate string) (*models.QbReportLog, error)
	AddReportLog(ctx context.Context, log *models.QbReportLog) error
}

// ReportGenerator produces the aggregated report for a business-day window.
// *report.Aggregator satisfies it.
type ReportGenerator interface {
	Generate(ctx context.Context, window businessday.Window) (*report.AggregatedReport, error)
}

// Sender delivers one business day's journal entry to QuickBooks with
// at-most-once semantics per (cafe, business date).
type Sender struct {
	api    *API
	tokens TokenStore
	logs   SendLogStore
	locks  *utils.KeyLock
	logger *logrus.Logger
	now    func() time.Time
}

func NewSender(api *API, tokens TokenStore, logs SendLogStore, locks *utils.KeyLock) *Sender {
	return &Sender{
		api:    api,
		tokens: tokens,
		logs:   logs,
		locks:  locks,
		logger: config.GetLogger(),
		now:    time.Now,
	}
}

type SendParams struct {
	UserId    string
	Cafe      *models.Cafe
	Date      time.Time
	PerShift  bool
	Generator ReportGenerator
}

// SendDailyReport runs the full send pipeline: idempotency check, token
// freshness under a per-user lock, report aggregation, journal post with
// one refresh-and-retry on an auth rejection, then the audit row. The
// returned log row reflects the outcome; failures also return the error.
func (s *Sender) SendDailyReport(ctx context.Context, p SendParams) (*models.QbReportLog, error) {
	dateStr := businessday.FormatDate(p.Date)

	if _, err := s.logs.GetSuccessReportLog(ctx, p.Cafe.CafeId, dateStr); err == nil {
		return nil, ErrAlreadySent
	} else if !errors.Is(err, utils.ErrorRecordNotFound) {
		return nil, err
	}

	release, err := s.locks.Acquire(ctx, "qb-token:"+p.UserId, 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("acquire token lock: %w", err)
	}
	defer release()

	// A concurrent send for the same day may have completed while we
	// waited on the lock; the pre-lock check alone cannot see it.
	if _, err := s.logs.GetSuccessReportLog(ctx, p.Cafe.CafeId, dateStr); err == nil {
		return nil, ErrAlreadySent
	} else if !errors.Is(err, utils.ErrorRecordNotFound) {
		return nil, err
	}

	token, err := s.tokens.GetQbToken(ctx, p.UserId)
	if errors.Is(err, utils.ErrorRecordNotFound) {
		return nil, ErrNotConnected
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	if token.RefreshExpired(now) {
		return nil, ErrRefreshTokenExpired
	}
	if token.AccessExpired(now) {
		if err := s.refreshToken(ctx, token); err != nil {
			return s.recordFailure(ctx, p, dateStr, nil, err)
		}
	}

	rep, err := p.Generator.Generate(ctx, businessday.WindowFor(p.Date))
	if err != nil {
		return s.recordFailure(ctx, p, dateStr, nil, err)
	}

	entry := BuildJournalEntry(rep, p.Cafe.Name, p.PerShift)
	journalId, err := s.api.CreateJournalEntry(ctx, token.AccessToken, token.RealmId, entry)
	if isAuthError(err) {
		config.LogError(s.logger, moduleName, "SendDailyReport", "auth rejected, refreshing token and retrying once", p.UserId, err)
		if rerr := s.refreshToken(ctx, token); rerr != nil {
			return s.recordFailure(ctx, p, dateStr, rep, rerr)
		}
		journalId, err = s.api.CreateJournalEntry(ctx, token.AccessToken, token.RealmId, entry)
	}
	if err != nil {
		return s.recordFailure(ctx, p, dateStr, rep, err)
	}

	logRow := &models.QbReportLog{
		UserId:         p.UserId,
		CafeId:         p.Cafe.CafeId,
		CafeName:       p.Cafe.Name,
		BusinessDate:   dateStr,
		JournalEntryId: journalId,
		TotalCash:      rep.Cash,
		ShiftCount:     rep.ShiftCount,
		Status:         models.ReportLogStatusSuccess,
	}
	if err := s.logs.AddReportLog(ctx, logRow); err != nil {
		// The entry is posted; losing the audit row must surface loudly
		// because the idempotency check depends on it.
		config.LogError(s.logger, moduleName, "SendDailyReport", "journal posted but audit row insert failed", logRow, err)
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"module":       moduleName,
		"cafeId":       p.Cafe.CafeId,
		"businessDate": dateStr,
		"journalId":    journalId,
		"shiftCount":   rep.ShiftCount,
	}).Info("daily report sent")
	return logRow, nil
}

// refreshToken rotates the access/refresh pair and persists the rotation
// before the caller uses it. Called with the per-user lock held.
func (s *Sender) refreshToken(ctx context.Context, token *models.QbToken) error {
	resp, err := s.api.Refresh(ctx, token.RefreshToken)
	if err != nil {
		return fmt.Errorf("refresh token: %w", err)
	}

	now := s.now()
	token.AccessToken = resp.AccessToken
	token.RefreshToken = resp.RefreshToken
	token.AccessTokenExpiresAt = now.Add(time.Duration(resp.ExpiresIn) * time.Second)
	token.RefreshTokenExpiresAt = now.Add(time.Duration(resp.XRefreshTokenExpiresIn) * time.Second)

	if err := s.tokens.UpsertQbToken(ctx, token); err != nil {
		return fmt.Errorf("persist rotated token: %w", err)
	}
	return nil
}

func (s *Sender) recordFailure(ctx context.Context, p SendParams, dateStr string, rep *report.AggregatedReport, cause error) (*models.QbReportLog, error) {
	logRow := &models.QbReportLog{
		UserId:       p.UserId,
		CafeId:       p.Cafe.CafeId,
		CafeName:     p.Cafe.Name,
		BusinessDate: dateStr,
		Status:       models.ReportLogStatusFailed,
		ErrorMessage: cause.Error(),
	}
	if rep != nil {
		logRow.TotalCash = rep.Cash
		logRow.ShiftCount = rep.ShiftCount
	}
	if err := s.logs.AddReportLog(ctx, logRow); err != nil {
		config.LogError(s.logger, moduleName, "recordFailure", "failed to record failed attempt", p.Cafe.CafeId, err)
	}
	return logRow, cause
}
