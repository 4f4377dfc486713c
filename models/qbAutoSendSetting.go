package models

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/brio2025kalbo/Icafe-Dashboard-POSTGRESQL/config"
	"github.com/brio2025kalbo/Icafe-Dashboard-POSTGRESQL/utils"
)

const (
	AutoSendModeDailyTime      = "daily_time"
	AutoSendModeBusinessDayEnd = "business_day_end"
	AutoSendModeLastShift      = "last_shift"
)

// QbAutoSendSetting is one cafe's scheduled-send configuration. One row per
// (user, cafe); ScheduleTime ("HH:MM", cafe-local) only applies to the
// daily_time mode.
type QbAutoSendSetting struct {
	ID           uint   `gorm:"primary_key" json:"id"`
	UserId       string `gorm:"uniqueIndex:idx_auto_send_user_cafe,priority:1;size:64;not null" json:"user_id"`
	CafeId       string `gorm:"uniqueIndex:idx_auto_send_user_cafe,priority:2;size:64;not null" json:"cafe_id"`
	Enabled      bool   `gorm:"default:false;index" json:"enabled"`
	Mode         string `gorm:"size:20;not null;default:'daily_time'" json:"mode"`
	ScheduleTime string `gorm:"size:5;default:'06:10'" json:"schedule_time"`
	CreatedAt    int64  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    int64  `gorm:"autoUpdateTime" json:"updated_at"`
}

func ValidAutoSendMode(mode string) bool {
	switch mode {
	case AutoSendModeDailyTime, AutoSendModeBusinessDayEnd, AutoSendModeLastShift:
		return true
	}
	return false
}

func GetAllEnabledAutoSendSettings(ctx context.Context) ([]QbAutoSendSetting, error) {
	db := config.GetDB()

	var settings []QbAutoSendSetting
	err := db.WithContext(ctx).Where("enabled = ?", true).Find(&settings).Error
	if err != nil {
		return nil, err
	}
	return settings, nil
}

func GetAutoSendSetting(ctx context.Context, userId string, cafeId string) (*QbAutoSendSetting, error) {
	db := config.GetDB()

	var setting QbAutoSendSetting
	err := db.WithContext(ctx).
		Where("user_id = ? AND cafe_id = ?", userId, cafeId).
		First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

func UpsertAutoSendSetting(ctx context.Context, setting *QbAutoSendSetting) error {
	db := config.GetDB()

	var existing QbAutoSendSetting
	err := db.WithContext(ctx).
		Where("user_id = ? AND cafe_id = ?", setting.UserId, setting.CafeId).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.WithContext(ctx).Create(setting).Error
	}
	if err != nil {
		return err
	}

	setting.ID = existing.ID
	return db.WithContext(ctx).Model(&existing).Updates(map[string]any{
		"enabled":       setting.Enabled,
		"mode":          setting.Mode,
		"schedule_time": setting.ScheduleTime,
	}).Error
}
