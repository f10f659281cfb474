// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the CheckIn
// model, including the two writes that carry concurrency guarantees:
//
//   - CreateCheckIn re-checks the same-day uniqueness window inside the
//     insert transaction, so two racing check-ins for one user resolve to a
//     single row and an ErrSameDay for the loser.
//   - MarkValidated is a conditional update ("set validated_at if currently
//     null"), so two racing validations resolve to exactly one winner and an
//     ErrValidated for the loser.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wellmota/go-gym-backend/internal/domain"
)

var (
	// ErrSameDay indicates the user already has a check-in whose creation
	// time falls within the same calendar day.
	ErrSameDay = errors.New("check-in exists for this day")

	// ErrValidated indicates a validation write raced a previous one: the
	// check-in row exists but validated_at is no longer null.
	ErrValidated = errors.New("check-in already validated")
)

// DayWindow returns the local calendar-day boundaries containing t:
// [start of day, start of next day). The daily-uniqueness rule uses server
// local time.
func DayWindow(t time.Time) (from, to time.Time) {
	local := t.Local()
	from = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
	return from, from.AddDate(0, 0, 1)
}

// FindCheckIn fetches a single check-in by its ID, or ErrNotFound.
func FindCheckIn(ctx context.Context, db *gorm.DB, id string) (*domain.CheckIn, error) {
	var c domain.CheckIn
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// FindCheckInOnDate returns the user's check-in whose CreatedAt falls within
// [from, to), or ErrNotFound when the user has none in that window.
func FindCheckInOnDate(ctx context.Context, db *gorm.DB, userID string, from, to time.Time) (*domain.CheckIn, error) {
	var c domain.CheckIn
	err := db.WithContext(ctx).
		Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, from, to).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCheckIn inserts a new pending check-in for userID at gymID.
//
// The same-day window is re-checked inside the insert transaction so a
// concurrent duplicate loses with ErrSameDay instead of producing a second
// row. The service layer performs the same check up front for a fast,
// friendly failure; this one is the guard of record.
func CreateCheckIn(ctx context.Context, db *gorm.DB, userID, gymID string) (*domain.CheckIn, error) {
	now := time.Now().UTC()
	from, to := DayWindow(now)

	c := &domain.CheckIn{
		ID:        uuid.NewString(),
		UserID:    userID,
		GymID:     gymID,
		CreatedAt: now,
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.CheckIn{}).
			Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, from, to).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrSameDay
		}
		return tx.Create(c).Error
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// MarkValidated sets ValidatedAt to at for the given check-in, but only when
// the row is still pending. It returns the updated record on success,
// ErrNotFound when the row does not exist, and ErrValidated when the row
// exists but was validated concurrently.
func MarkValidated(ctx context.Context, db *gorm.DB, id string, at time.Time) (*domain.CheckIn, error) {
	res := db.WithContext(ctx).
		Model(&domain.CheckIn{}).
		Where("id = ? AND validated_at IS NULL", id).
		Update("validated_at", at)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// Either the row is missing or another caller won the race.
		if _, err := FindCheckIn(ctx, db, id); err != nil {
			return nil, err
		}
		return nil, ErrValidated
	}
	return FindCheckIn(ctx, db, id)
}

// ListCheckInsPage returns a page of the user's check-ins ordered by creation
// time. Order must be "asc" or "desc"; anything else falls back to "desc"
// (most recent first), matching the history endpoint's default.
func ListCheckInsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int, order string) ([]domain.CheckIn, error) {
	if order != "asc" {
		order = "desc"
	}
	var out []domain.CheckIn
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at " + order).
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListCheckInsByUser returns the user's entire check-in set, most recent
// first. The history summary is derived from the full set, not the current
// page.
func ListCheckInsByUser(ctx context.Context, db *gorm.DB, userID string) ([]domain.CheckIn, error) {
	var out []domain.CheckIn
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// CountCheckIns returns the total number of check-ins for userID.
func CountCheckIns(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.CheckIn{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}

// ListCheckInsInRange returns every check-in created within [from, to],
// ordered by creation time ascending. The metrics aggregator filters and
// buckets the result in memory.
func ListCheckInsInRange(ctx context.Context, db *gorm.DB, from, to time.Time) ([]domain.CheckIn, error) {
	var out []domain.CheckIn
	err := db.WithContext(ctx).
		Where("created_at >= ? AND created_at <= ?", from, to).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}
