package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// UsageStore 持久化 AI token 用量。
type UsageStore struct {
	db *gorm.DB
}

// NewUsageStore returns a store backed by db.
func NewUsageStore(db *gorm.DB) *UsageStore {
	return &UsageStore{db: db}
}

// RecordUsage 追加一条用量记录。
func (s *UsageStore) RecordUsage(ctx context.Context, userID uint, tokens int) error {
	row := AIUsage{UserID: userID, TokensUsed: tokens}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert ai usage: %w", err)
	}
	return nil
}

// UsageSummary 汇总某个用户的 AI 用量。
type UsageSummary struct {
	Requests    int64 `json:"requests"`
	TotalTokens int64 `json:"total_tokens"`
}

// Summary 返回用户的调用次数与 token 总量。
func (s *UsageStore) Summary(ctx context.Context, userID uint) (UsageSummary, error) {
	var out UsageSummary
	err := s.db.WithContext(ctx).
		Model(&AIUsage{}).
		Select("COUNT(*) AS requests, COALESCE(SUM(tokens_used), 0) AS total_tokens").
		Where("user_id = ?", userID).
		Scan(&out).Error
	if err != nil {
		return UsageSummary{}, fmt.Errorf("sum ai usage: %w", err)
	}
	return out, nil
}
