package models

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/brio2025kalbo/Icafe-Dashboard-POSTGRESQL/config"
	"github.com/brio2025kalbo/Icafe-Dashboard-POSTGRESQL/utils"
)

// Cafe is one registered iCafeCloud location owned by a user. CafeId and
// ApiKey are the upstream credentials. All cafes share the fixed UTC+8
// business-day clock, so no per-cafe timezone is stored.
type Cafe struct {
	ID        uint   `gorm:"primary_key" json:"id"`
	UserId    string `gorm:"uniqueIndex:idx_cafe_user_cafe,priority:1;size:64;not null" json:"user_id"`
	Name      string `gorm:"size:255;not null" json:"name"`
	CafeId    string `gorm:"uniqueIndex:idx_cafe_user_cafe,priority:2;size:64;not null" json:"cafe_id"`
	ApiKey    string `gorm:"type:text;not null" json:"-"`
	IsActive  bool   `gorm:"default:true;index" json:"is_active"`
	CreatedAt int64  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt int64  `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetCafe(ctx context.Context, userId string, cafeId string) (*Cafe, error) {
	db := config.GetDB()

	var cafe Cafe
	err := db.WithContext(ctx).
		Where("user_id = ? AND cafe_id = ?", userId, cafeId).
		First(&cafe).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cafe, nil
}

func GetActiveCafes(ctx context.Context, userId string) ([]Cafe, error) {
	db := config.GetDB()

	var cafes []Cafe
	err := db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userId, true).
		Order("name asc").
		Find(&cafes).Error
	if err != nil {
		return nil, err
	}
	return cafes, nil
}

func UpsertCafe(ctx context.Context, cafe *Cafe) error {
	db := config.GetDB()

	var existing Cafe
	err := db.WithContext(ctx).
		Where("user_id = ? AND cafe_id = ?", cafe.UserId, cafe.CafeId).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.WithContext(ctx).Create(cafe).Error
	}
	if err != nil {
		return err
	}

	cafe.ID = existing.ID
	return db.WithContext(ctx).Model(&existing).Updates(map[string]any{
		"name":      cafe.Name,
		"api_key":   cafe.ApiKey,
		"is_active": cafe.IsActive,
	}).Error
}
