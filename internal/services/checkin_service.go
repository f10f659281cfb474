// Package services – CheckInService
//
// This file implements CheckInService, the rule engine behind check-in
// creation and admin validation. Creation enforces the geofence and the
// one-check-in-per-day rule; validation runs an ordered sequence of checks
// (existence, pending state, admin existence, admin role, elapsed window)
// and fires a compare-and-swap state transition so racing validations
// resolve to exactly one winner.
//
// Observability: the two write paths are OpenTelemetry-instrumented; spans
// carry the user, gym, and check-in identifiers.
package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wellmota/go-gym-backend/internal/domain"
	"github.com/wellmota/go-gym-backend/internal/geo"
	"github.com/wellmota/go-gym-backend/internal/repo"
)

// Default rule values, used when the service is constructed without
// explicit configuration.
const (
	defaultMaxDistanceMeters = 100.0
	defaultValidationWindow  = 20 * time.Minute

	// probeMaxDistanceCap bounds the radius accepted by ValidateDistance.
	probeMaxDistanceCap = 10000.0
)

// CheckInRepo defines the check-in persistence contract required by
// CheckInService.
type CheckInRepo interface {
	// FindCheckIn fetches a check-in by ID, or repo.ErrNotFound.
	FindCheckIn(ctx context.Context, db *gorm.DB, id string) (*domain.CheckIn, error)

	// FindCheckInOnDate returns the user's check-in within [from, to), or
	// repo.ErrNotFound.
	FindCheckInOnDate(ctx context.Context, db *gorm.DB, userID string, from, to time.Time) (*domain.CheckIn, error)

	// CreateCheckIn inserts a pending check-in, re-checking the same-day
	// window transactionally (repo.ErrSameDay on conflict).
	CreateCheckIn(ctx context.Context, db *gorm.DB, userID, gymID string) (*domain.CheckIn, error)

	// MarkValidated performs the conditional pending→validated transition
	// (repo.ErrValidated when another caller won).
	MarkValidated(ctx context.Context, db *gorm.DB, id string, at time.Time) (*domain.CheckIn, error)
}

// GymReader is the read-only gym lookup consumed by check-in rules.
type GymReader interface {
	FindGym(ctx context.Context, db *gorm.DB, id string) (*domain.Gym, error)
}

// UserReader is the read-only user lookup consumed by validation rules.
type UserReader interface {
	FindUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error)
}

// CheckInService coordinates check-in creation, the distance probe, and
// admin validation. It holds no mutable state between calls and is safe for
// concurrent use.
type CheckInService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// CheckIns, Gyms, and Users are the store adapters.
	CheckIns CheckInRepo
	Gyms     GymReader
	Users    UserReader

	// MaxDistanceMeters is the geofence radius for check-ins.
	MaxDistanceMeters float64
	// ValidationWindow is the minimum age of a check-in before an admin may
	// confirm it. The boundary is inclusive: exactly the window is valid.
	ValidationWindow time.Duration

	// Now is a clock seam for tests; defaults to time.Now.
	Now func() time.Time
}

// NewCheckInService constructs a CheckInService with the default geofence
// radius and validation window.
func NewCheckInService(db *gorm.DB, checkIns CheckInRepo, gyms GymReader, users UserReader) *CheckInService {
	return &CheckInService{
		DB:                db,
		CheckIns:          checkIns,
		Gyms:              gyms,
		Users:             users,
		MaxDistanceMeters: defaultMaxDistanceMeters,
		ValidationWindow:  defaultValidationWindow,
		Now:               time.Now,
	}
}

func (s *CheckInService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// CheckIn records a member's visit to a gym, enforcing the geofence and the
// one-check-in-per-calendar-day rule. Checks run in a fixed order (gym
// existence, geofence, same-day duplicate) before the single write, so error
// reporting is deterministic.
func (s *CheckInService) CheckIn(ctx context.Context, userID, gymID string, userLat, userLon float64) (*domain.CheckIn, error) {
	tr := otel.Tracer("services/CheckInService")
	ctx, span := tr.Start(ctx, "CheckIn",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("gym.id", gymID),
		),
	)
	defer span.End()

	if strings.TrimSpace(userID) == "" {
		return nil, ErrBlankUserID
	}
	if strings.TrimSpace(gymID) == "" {
		return nil, ErrBlankGymID
	}
	if userLat < -90 || userLat > 90 {
		return nil, ErrLatitudeRange
	}
	if userLon < -180 || userLon > 180 {
		return nil, ErrLongitudeRange
	}

	gym, err := s.Gyms.FindGym(ctx, s.DB, gymID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrGymNotFound
		}
		return nil, err
	}

	if d := geo.DistanceMeters(userLat, userLon, gym.Latitude, gym.Longitude); d > s.MaxDistanceMeters {
		return nil, ErrMaxDistance
	}

	// Fast pre-check for today's duplicate. The create below re-checks the
	// window transactionally; this read only avoids the write in the common
	// case.
	from, to := repo.DayWindow(s.now())
	if _, err := s.CheckIns.FindCheckInOnDate(ctx, s.DB, userID, from, to); err == nil {
		return nil, ErrDuplicateCheckIn
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	c, err := s.CheckIns.CreateCheckIn(ctx, s.DB, userID, gymID)
	if err != nil {
		if errors.Is(err, repo.ErrSameDay) {
			return nil, ErrDuplicateCheckIn
		}
		return nil, err
	}
	return c, nil
}

// Validate confirms a pending check-in on behalf of an administrator.
//
// The checks run strictly in this order so callers get deterministic errors:
// check-in existence → already-validated → admin existence → admin role →
// validation window. The write fires only after every check passes, and it
// is conditional on the row still being pending.
func (s *CheckInService) Validate(ctx context.Context, checkInID, adminUserID string) (*domain.CheckIn, error) {
	tr := otel.Tracer("services/CheckInService")
	ctx, span := tr.Start(ctx, "Validate",
		trace.WithAttributes(
			attribute.String("checkin.id", checkInID),
			attribute.String("admin.id", adminUserID),
		),
	)
	defer span.End()

	if strings.TrimSpace(checkInID) == "" {
		return nil, ErrBlankCheckInID
	}
	if strings.TrimSpace(adminUserID) == "" {
		return nil, ErrBlankUserID
	}

	c, err := s.CheckIns.FindCheckIn(ctx, s.DB, checkInID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrCheckInNotFound
		}
		return nil, err
	}
	if c.Validated() {
		return nil, ErrAlreadyValidated
	}

	admin, err := s.Users.FindUser(ctx, s.DB, adminUserID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if !admin.IsAdmin() {
		return nil, ErrUnauthorized
	}

	now := s.now()
	if now.Sub(c.CreatedAt) < s.ValidationWindow {
		return nil, ErrEarlyValidation
	}

	updated, err := s.CheckIns.MarkValidated(ctx, s.DB, c.ID, now)
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrValidated):
			return nil, ErrAlreadyValidated
		case errors.Is(err, repo.ErrNotFound):
			return nil, ErrCheckInNotFound
		}
		return nil, err
	}
	return updated, nil
}

// DistanceReport is the result of a distance probe against a gym.
type DistanceReport struct {
	Valid          bool    `json:"valid"`
	DistanceMeters float64 `json:"distance_meters"`
	Gym            struct {
		ID        string  `json:"id"`
		Title     string  `json:"title"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"gym"`
}

// ValidateDistance reports whether the given coordinates fall within
// maxMeters of the gym, without creating a check-in. A maxMeters of 0 uses
// the service's geofence radius; the probe radius is capped at 10 km.
func (s *CheckInService) ValidateDistance(ctx context.Context, gymID string, userLat, userLon, maxMeters float64) (*DistanceReport, error) {
	if strings.TrimSpace(gymID) == "" {
		return nil, ErrBlankGymID
	}
	if maxMeters == 0 {
		maxMeters = s.MaxDistanceMeters
	}
	if maxMeters <= 0 || maxMeters > probeMaxDistanceCap {
		return nil, ErrProbeDistance
	}
	if userLat < -90 || userLat > 90 {
		return nil, ErrLatitudeRange
	}
	if userLon < -180 || userLon > 180 {
		return nil, ErrLongitudeRange
	}

	gym, err := s.Gyms.FindGym(ctx, s.DB, gymID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrGymNotFound
		}
		return nil, err
	}

	d := geo.DistanceMeters(userLat, userLon, gym.Latitude, gym.Longitude)
	rep := &DistanceReport{
		Valid:          d <= maxMeters,
		DistanceMeters: math.Round(d*100) / 100,
	}
	rep.Gym.ID = gym.ID
	rep.Gym.Title = gym.Title
	rep.Gym.Latitude = gym.Latitude
	rep.Gym.Longitude = gym.Longitude
	return rep, nil
}
