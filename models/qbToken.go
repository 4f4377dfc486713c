package models

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/brio2025kalbo/Icafe-Dashboard-POSTGRESQL/config"
	"github.com/brio2025kalbo/Icafe-Dashboard-POSTGRESQL/utils"
)

// QbToken holds one user's QuickBooks OAuth credential pair. Exactly one
// row per user; a reconnect replaces the row in place. Refresh rotation
// MUST be persisted before the rotated token is used, or a crash strands
// the account with a dead refresh token.
type QbToken struct {
	ID                    uint      `gorm:"primary_key" json:"id"`
	UserId                string    `gorm:"uniqueIndex;size:64;not null" json:"user_id"`
	RealmId               string    `gorm:"size:64;not null" json:"realm_id"`
	AccessToken           string    `gorm:"type:text;not null" json:"-"`
	RefreshToken          string    `gorm:"type:text;not null" json:"-"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	CompanyName           string    `gorm:"size:255" json:"company_name"`
	CreatedAt             time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// AccessExpired reports whether the access token is expired or inside the
// safety margin where a send could outlive it.
func (t *QbToken) AccessExpired(now time.Time) bool {
	return !now.Add(5 * time.Minute).Before(t.AccessTokenExpiresAt)
}

func (t *QbToken) RefreshExpired(now time.Time) bool {
	return !now.Before(t.RefreshTokenExpiresAt)
}

func GetQbToken(ctx context.Context, userId string) (*QbToken, error) {
	db := config.GetDB()

	var token QbToken
	err := db.WithContext(ctx).Where("user_id = ?", userId).First(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func UpsertQbToken(ctx context.Context, token *QbToken) error {
	db := config.GetDB()

	var existing QbToken
	err := db.WithContext(ctx).Where("user_id = ?", token.UserId).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.WithContext(ctx).Create(token).Error
	}
	if err != nil {
		return err
	}

	token.ID = existing.ID
	return db.WithContext(ctx).Model(&existing).Updates(map[string]any{
		"realm_id":                 token.RealmId,
		"access_token":             token.AccessToken,
		"refresh_token":            token.RefreshToken,
		"access_token_expires_at":  token.AccessTokenExpiresAt,
		"refresh_token_expires_at": token.RefreshTokenExpiresAt,
		"company_name":             token.CompanyName,
	}).Error
}

func DeleteQbToken(ctx context.Context, userId string) error {
	db := config.GetDB()
	return db.WithContext(ctx).Where("user_id = ?", userId).Delete(&QbToken{}).Error
}
