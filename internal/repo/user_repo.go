// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides read access to the User model. User
// registration and credentials live outside this service; the engines only
// need existence and the role capability flag.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/wellmota/go-gym-backend/internal/domain"
)

// FindUser fetches a single user by ID, or ErrNotFound.
func FindUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CountUsers returns the total number of registered users. The metrics
// aggregator uses it for the per-user average.
func CountUsers(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.User{}).
		Count(&total).Error
	return total, err
}
