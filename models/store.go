package models

import "context"

// Store adapts the package-level persistence funcs to the narrow interfaces
// the scheduler and sender consume, so tests can swap in fakes.
type Store struct{}

func NewStore() *Store {
	return &Store{}
}

func (Store) GetAllEnabledAutoSendSettings(ctx context.Context) ([]QbAutoSendSetting, error) {
	return GetAllEnabledAutoSendSettings(ctx)
}

func (Store) GetCafe(ctx context.Context, userId string, cafeId string) (*Cafe, error) {
	return GetCafe(ctx, userId, cafeId)
}

func (Store) GetQbToken(ctx context.Context, userId string) (*QbToken, error) {
	return GetQbToken(ctx, userId)
}

func (Store) UpsertQbToken(ctx context.Context, token *QbToken) error {
	return UpsertQbToken(ctx, token)
}

func (Store) GetSuccessReportLog(ctx context.Context, cafeId string, businessDate string) (*QbReportLog, error) {
	return GetSuccessReportLog(ctx, cafeId, businessDate)
}

func (Store) AddReportLog(ctx context.Context, log *QbReportLog) error {
	return AddReportLog(ctx, log)
}
