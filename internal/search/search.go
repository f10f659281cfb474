// Package search implements the gym search engine: multi-criteria filtering,
// optional geo-radius restriction, stable sorting, and pagination over an
// in-memory gym slice. It is intentionally small and free of transport or
// storage concerns:
//
//   - No logging in the library (callers decide how/what to log)
//   - Pure functions over immutable inputs, safe for concurrent use
//   - Deterministic ordering (stable sort; ties keep input order)
//   - Distinct, matchable validation errors for every parameter rule
//
// Text matching is a case-folded substring test against title and
// description, which mirrors how members actually look up a gym by a
// fragment of its name.
package search

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/wellmota/go-gym-backend/internal/domain"
	"github.com/wellmota/go-gym-backend/internal/geo"
)

// MaxRadiusMeters caps the optional distance filter.
const MaxRadiusMeters = 50000

// maxPerPage caps the page size accepted by Params.Validate.
const maxPerPage = 100

// Sort keys and orders accepted by Params.
const (
	SortByName      = "name"
	SortByDistance  = "distance"
	SortByCreatedAt = "createdAt"

	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// ErrInvalidParams is the common ancestor of every parameter validation
// failure, so callers can match the whole family with errors.Is while still
// distinguishing individual rules.
var ErrInvalidParams = errors.New("invalid search parameters")

var (
	ErrEmptyQuery         = fmt.Errorf("%w: query must not be empty", ErrInvalidParams)
	ErrPageRange          = fmt.Errorf("%w: page must be greater than 0", ErrInvalidParams)
	ErrPerPageRange       = fmt.Errorf("%w: per_page must be between 1 and 100", ErrInvalidParams)
	ErrSortBy             = fmt.Errorf("%w: sort_by must be one of: name, distance, createdAt", ErrInvalidParams)
	ErrSortOrder          = fmt.Errorf("%w: sort_order must be asc or desc", ErrInvalidParams)
	ErrLatitudeRange      = fmt.Errorf("%w: latitude must be between -90 and 90 degrees", ErrInvalidParams)
	ErrLongitudeRange     = fmt.Errorf("%w: longitude must be between -180 and 180 degrees", ErrInvalidParams)
	ErrMaxDistanceRange   = fmt.Errorf("%w: max_distance must be between 0 and 50000 meters", ErrInvalidParams)
	ErrMissingCoordinates = fmt.Errorf("%w: distance sorting requires user coordinates", ErrInvalidParams)
)

// folder lower-cases text for matching using Unicode case folding, which
// handles characters plain ASCII lowering would miss.
var folder = cases.Fold()

// Params are the search criteria. Optional fields are pointers so "absent"
// and "zero" stay distinguishable.
type Params struct {
	Query     string
	Page      int
	PerPage   int
	SortBy    string
	SortOrder string

	UserLat     *float64
	UserLon     *float64
	MaxDistance *float64 // meters
}

// Normalize fills defaults for unset fields. It does not validate.
func (p *Params) Normalize() {
	if p.Page == 0 {
		p.Page = 1
	}
	if p.PerPage == 0 {
		p.PerPage = 20
	}
	if p.SortBy == "" {
		p.SortBy = SortByName
	}
	if p.SortOrder == "" {
		p.SortOrder = OrderAsc
	}
}

// Validate checks every parameter rule and returns the first violation.
// Checks run in a fixed order so error reporting is deterministic.
func (p *Params) Validate() error {
	if strings.TrimSpace(p.Query) == "" {
		return ErrEmptyQuery
	}
	if p.Page < 1 {
		return ErrPageRange
	}
	if p.PerPage < 1 || p.PerPage > maxPerPage {
		return ErrPerPageRange
	}
	switch p.SortBy {
	case SortByName, SortByDistance, SortByCreatedAt:
	default:
		return ErrSortBy
	}
	switch p.SortOrder {
	case OrderAsc, OrderDesc:
	default:
		return ErrSortOrder
	}
	if p.UserLat != nil && (*p.UserLat < -90 || *p.UserLat > 90) {
		return ErrLatitudeRange
	}
	if p.UserLon != nil && (*p.UserLon < -180 || *p.UserLon > 180) {
		return ErrLongitudeRange
	}
	if p.MaxDistance != nil && (*p.MaxDistance <= 0 || *p.MaxDistance > MaxRadiusMeters) {
		return ErrMaxDistanceRange
	}
	if p.SortBy == SortByDistance && (p.UserLat == nil || p.UserLon == nil) {
		return ErrMissingCoordinates
	}
	return nil
}

func (p *Params) hasCoords() bool { return p.UserLat != nil && p.UserLon != nil }

// Item is a gym in a search result, optionally annotated with the distance
// from the caller's coordinates, rounded to two decimals.
type Item struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description *string  `json:"description,omitempty"`
	Phone       *string  `json:"phone,omitempty"`
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	CreatedAt   int64    `json:"-"` // unix nanos, kept for createdAt sorting
	Distance    *float64 `json:"distance,omitempty"`
}

// Page bundles one page of results with pagination metadata.
type Page struct {
	Items           []Item `json:"gyms"`
	TotalCount      int    `json:"total_count"`
	CurrentPage     int    `json:"current_page"`
	TotalPages      int    `json:"total_pages"`
	PerPage         int    `json:"per_page"`
	HasNextPage     bool   `json:"has_next_page"`
	HasPreviousPage bool   `json:"has_previous_page"`
	Query           string `json:"query"`
}

// Run filters, sorts, and paginates gyms according to p. Callers must have
// normalized and validated p beforehand; Run assumes well-formed input.
func Run(gyms []domain.Gym, p Params) *Page {
	needle := folder.String(strings.TrimSpace(p.Query))

	matched := make([]Item, 0, len(gyms))
	for i := range gyms {
		g := &gyms[i]
		if !matches(g, needle) {
			continue
		}
		var dist *float64
		if p.hasCoords() {
			d := geo.DistanceMeters(*p.UserLat, *p.UserLon, g.Latitude, g.Longitude)
			if p.MaxDistance != nil && d > *p.MaxDistance {
				continue
			}
			rounded := math.Round(d*100) / 100
			dist = &rounded
		}
		matched = append(matched, Item{
			ID:          g.ID,
			Title:       g.Title,
			Description: g.Description,
			Phone:       g.Phone,
			Latitude:    g.Latitude,
			Longitude:   g.Longitude,
			CreatedAt:   g.CreatedAt.UnixNano(),
			Distance:    dist,
		})
	}

	sortItems(matched, p.SortBy, p.SortOrder)

	total := len(matched)
	totalPages := (total + p.PerPage - 1) / p.PerPage
	skip := (p.Page - 1) * p.PerPage

	items := []Item{}
	if skip < total {
		end := skip + p.PerPage
		if end > total {
			end = total
		}
		items = matched[skip:end]
	}

	return &Page{
		Items:           items,
		TotalCount:      total,
		CurrentPage:     p.Page,
		TotalPages:      totalPages,
		PerPage:         p.PerPage,
		HasNextPage:     p.Page < totalPages,
		HasPreviousPage: p.Page > 1,
		Query:           p.Query,
	}
}

// matches reports whether the folded needle occurs in the gym's title or
// description.
func matches(g *domain.Gym, needle string) bool {
	if strings.Contains(folder.String(g.Title), needle) {
		return true
	}
	if g.Description != nil && strings.Contains(folder.String(*g.Description), needle) {
		return true
	}
	return false
}

// sortItems orders items by the chosen key, stably, honoring sortOrder.
func sortItems(items []Item, sortBy, sortOrder string) {
	less := func(a, b *Item) bool { return a.Title < b.Title }
	switch sortBy {
	case SortByDistance:
		less = func(a, b *Item) bool {
			// Distance is always set here: validation requires coordinates
			// for distance sorting.
			return *a.Distance < *b.Distance
		}
	case SortByCreatedAt:
		less = func(a, b *Item) bool { return a.CreatedAt < b.CreatedAt }
	}

	sort.SliceStable(items, func(i, j int) bool {
		if sortOrder == OrderDesc {
			return less(&items[j], &items[i])
		}
		return less(&items[i], &items[j])
	})
}
