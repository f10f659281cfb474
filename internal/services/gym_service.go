package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/wellmota/go-gym-backend/internal/domain"
	"github.com/wellmota/go-gym-backend/internal/repo"
	"github.com/wellmota/go-gym-backend/internal/search"
)

// Title and description bounds for gym registration.
const (
	minTitleLen       = 2
	maxTitleLen       = 100
	maxDescriptionLen = 500
)

// phonePattern matches an E.164-ish phone number after formatting
// characters (spaces, dashes, parentheses) are stripped.
var phonePattern = regexp.MustCompile(`^[+]?[1-9]\d{0,15}$`)

var phoneStrip = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")

// GymStore is the gym persistence contract required by GymService.
type GymStore interface {
	CreateGym(ctx context.Context, db *gorm.DB, f repo.GymFields) (*domain.Gym, error)
	ListGyms(ctx context.Context, db *gorm.DB) ([]domain.Gym, error)
}

// GymService handles gym registration and search.
type GymService struct {
	DB   *gorm.DB
	Gyms GymStore
}

// NewGymService constructs a GymService over the given database handle and
// store adapter.
func NewGymService(db *gorm.DB, gyms GymStore) *GymService {
	return &GymService{DB: db, Gyms: gyms}
}

// GymInput is the caller-supplied payload for gym registration.
type GymInput struct {
	Title       string
	Description *string
	Phone       *string
	Latitude    float64
	Longitude   float64
}

// Create validates and registers a gym. Title is trimmed and must be 2–100
// characters; description is optional up to 500; phone is optional and
// checked after stripping formatting characters.
func (s *GymService) Create(ctx context.Context, in GymInput) (*domain.Gym, error) {
	title := strings.TrimSpace(in.Title)
	if n := utf8.RuneCountInString(title); n < minTitleLen || n > maxTitleLen {
		return nil, ErrTitleLength
	}

	var desc *string
	if in.Description != nil {
		d := strings.TrimSpace(*in.Description)
		if utf8.RuneCountInString(d) > maxDescriptionLen {
			return nil, ErrDescriptionLength
		}
		if d != "" {
			desc = &d
		}
	}

	var phone *string
	if in.Phone != nil {
		p := strings.TrimSpace(*in.Phone)
		if p != "" {
			if !phonePattern.MatchString(phoneStrip.Replace(p)) {
				return nil, ErrInvalidPhone
			}
			phone = &p
		}
	}

	if in.Latitude < -90 || in.Latitude > 90 {
		return nil, ErrLatitudeRange
	}
	if in.Longitude < -180 || in.Longitude > 180 {
		return nil, ErrLongitudeRange
	}

	return s.Gyms.CreateGym(ctx, s.DB, repo.GymFields{
		Title:       title,
		Description: desc,
		Phone:       phone,
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
	})
}

// Search loads the gym catalogue and evaluates the query in memory:
// text match, optional radius filter, sort, and pagination are applied by
// the search package. Parameter validation errors wrap
// search.ErrInvalidParams.
func (s *GymService) Search(ctx context.Context, p search.Params) (*search.Page, error) {
	p.Normalize()
	if err := p.Validate(); err != nil {
		return nil, err
	}

	gyms, err := s.Gyms.ListGyms(ctx, s.DB)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			gyms = nil
		} else {
			return nil, err
		}
	}

	return search.Run(gyms, p), nil
}
