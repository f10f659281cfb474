// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Gym model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a gym is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wellmota/go-gym-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for consistency across the service
// layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// GymFields carries the persisted attributes of a new gym. Validation of the
// field contents happens in the service layer; the repository only writes.
type GymFields struct {
	Title       string
	Description *string
	Phone       *string
	Latitude    float64
	Longitude   float64
}

// CreateGym inserts a new Gym row with a generated UUID and UTC timestamp.
// On success, it returns the persisted Gym. On failure, it returns a DB error.
func CreateGym(ctx context.Context, db *gorm.DB, f GymFields) (*domain.Gym, error) {
	g := &domain.Gym{
		ID:          uuid.NewString(),
		Title:       f.Title,
		Description: f.Description,
		Phone:       f.Phone,
		Latitude:    f.Latitude,
		Longitude:   f.Longitude,
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(g).Error; err != nil {
		return nil, err
	}
	return g, nil
}

// FindGym fetches a single gym by its ID. If the record does not exist, it
// returns ErrNotFound. On other DB errors, the raw error is returned.
func FindGym(ctx context.Context, db *gorm.DB, id string) (*domain.Gym, error) {
	var g domain.Gym
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&g).Error
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// ListGyms returns every gym ordered by creation time ascending. The search
// engine applies text and radius filtering in memory; the gym catalog is
// small relative to the check-in history, so a full scan here is acceptable.
func ListGyms(ctx context.Context, db *gorm.DB) ([]domain.Gym, error) {
	var out []domain.Gym
	err := db.WithContext(ctx).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}

// CountGyms returns the total number of gyms. On DB error, it returns the error.
func CountGyms(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Gym{}).
		Count(&total).Error
	return total, err
}
