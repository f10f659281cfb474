// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used primarily
// for conditional responses (ETag generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/wellmota/go-gym-backend/internal/domain"
)

// CheckInsStats returns aggregate metadata for a user's check-ins: the total
// number of rows and the maximum CreatedAt timestamp among those rows.
//
// When the user has no check-ins, the returned count is 0 and maxCreatedAt
// is nil. CreatedAt is immutable, so (count, maxCreatedAt) changes exactly
// when the user's history changes, which makes the pair a cheap ETag input.
func CheckInsStats(ctx context.Context, db *gorm.DB, userID string) (count int64, maxCreatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.CheckIn{}).Where("user_id = ?", userID)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Latest created_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		CreatedAt time.Time
	}
	if err = q.Select("created_at").Order("created_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.CreatedAt, nil
}
