package models

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/brio2025kalbo/Icafe-Dashboard-POSTGRESQL/config"
	"github.com/brio2025kalbo/Icafe-Dashboard-POSTGRESQL/utils"
)

const (
	ReportLogStatusPending = "pending"
	ReportLogStatusSuccess = "success"
	ReportLogStatusFailed  = "failed"
)

// QbReportLog is the append-only send audit trail. A success row for a
// (cafe_id, business_date) pair is the sole idempotency record: its
// presence means that day's journal entry was delivered and must never be
// sent again. Failed rows are history only and never block a retry.
type QbReportLog struct {
	ID             uint            `gorm:"primary_key" json:"id"`
	UserId         string          `gorm:"index;size:64;not null" json:"user_id"`
	CafeId         string          `gorm:"index:idx_report_log_cafe_date,priority:1;index:uniq_report_log_success,unique,where:status = 'success',priority:1;size:64;not null" json:"cafe_id"`
	CafeName       string          `gorm:"size:255" json:"cafe_name"`
	BusinessDate   string          `gorm:"index:idx_report_log_cafe_date,priority:2;index:uniq_report_log_success,unique,where:status = 'success',priority:2;size:10;not null" json:"business_date"`
	JournalEntryId string          `gorm:"size:64" json:"journal_entry_id"`
	TotalCash      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_cash"`
	ShiftCount     int             `json:"shift_count"`
	Status         string          `gorm:"size:20;not null;index" json:"status"`
	ErrorMessage   string          `gorm:"type:text" json:"error_message"`
	SentAt         time.Time       `gorm:"autoCreateTime" json:"sent_at"`
}

func AddReportLog(ctx context.Context, log *QbReportLog) error {
	db := config.GetDB()
	return db.WithContext(ctx).Create(log).Error
}

// GetSuccessReportLog returns the success row for one cafe and business
// date, or utils.ErrorRecordNotFound when the day has not been delivered.
func GetSuccessReportLog(ctx context.Context, cafeId string, businessDate string) (*QbReportLog, error) {
	db := config.GetDB()

	var log QbReportLog
	err := db.WithContext(ctx).
		Where("cafe_id = ? AND business_date = ? AND status = ?", cafeId, businessDate, ReportLogStatusSuccess).
		First(&log).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &log, nil
}

func GetReportLogs(ctx context.Context, userId string, cafeId string, limit int) ([]QbReportLog, error) {
	db := config.GetDB()

	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := db.WithContext(ctx).Where("user_id = ?", userId)
	if cafeId != "" {
		query = query.Where("cafe_id = ?", cafeId)
	}

	var logs []QbReportLog
	err := query.Order("sent_at desc").Limit(limit).Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}
