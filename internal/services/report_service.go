// Package services – ReportService
//
// Read-only aggregation over the check-in store: paginated history with a
// whole-set summary block, and store-wide metrics with date and gym
// histograms. Both operations are side-effect-free and hold no state
// between calls.
package services

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/wellmota/go-gym-backend/internal/domain"
	"github.com/wellmota/go-gym-backend/internal/repo"
)

// unknownGymTitle is reported when a referenced gym row no longer resolves.
const unknownGymTitle = "Unknown Gym"

// defaultHistoryRange is the fallback reporting window (last 30 days).
const defaultHistoryRange = 30 * 24 * time.Hour

// ReportCheckInRepo is the check-in read surface consumed by ReportService.
type ReportCheckInRepo interface {
	ListCheckInsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int, order string) ([]domain.CheckIn, error)
	CountCheckIns(ctx context.Context, db *gorm.DB, userID string) (int64, error)
	ListCheckInsByUser(ctx context.Context, db *gorm.DB, userID string) ([]domain.CheckIn, error)
	ListCheckInsInRange(ctx context.Context, db *gorm.DB, from, to time.Time) ([]domain.CheckIn, error)
}

// ReportGymRepo is the gym read surface consumed by ReportService.
type ReportGymRepo interface {
	FindGym(ctx context.Context, db *gorm.DB, id string) (*domain.Gym, error)
	CountGyms(ctx context.Context, db *gorm.DB) (int64, error)
}

// ReportUserRepo is the user read surface consumed by ReportService.
type ReportUserRepo interface {
	CountUsers(ctx context.Context, db *gorm.DB) (int64, error)
}

// ReportService aggregates check-in history and metrics.
type ReportService struct {
	DB       *gorm.DB
	CheckIns ReportCheckInRepo
	Gyms     ReportGymRepo
	Users    ReportUserRepo

	// HistoryRange is the default reporting window when the caller gives no
	// dates.
	HistoryRange time.Duration

	// Now is a clock seam for tests; defaults to time.Now.
	Now func() time.Time
}

// NewReportService constructs a ReportService with the default 30-day
// reporting window.
func NewReportService(db *gorm.DB, checkIns ReportCheckInRepo, gyms ReportGymRepo, users ReportUserRepo) *ReportService {
	return &ReportService{
		DB:           db,
		CheckIns:     checkIns,
		Gyms:         gyms,
		Users:        users,
		HistoryRange: defaultHistoryRange,
		Now:          time.Now,
	}
}

func (s *ReportService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *ReportService) historyRange() time.Duration {
	if s.HistoryRange > 0 {
		return s.HistoryRange
	}
	return defaultHistoryRange
}

// HistoryParams are the inputs to History. StartDate and EndDate are
// optional; when both are present StartDate must precede EndDate.
type HistoryParams struct {
	UserID     string
	Page       int
	PerPage    int
	StartDate  *time.Time
	EndDate    *time.Time
	GymID      string
	IncludeGym bool
}

// GymDetails is the gym snapshot attached to an enriched history entry.
type GymDetails struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Phone       *string `json:"phone"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

// HistoryEntry is one check-in in the history listing.
type HistoryEntry struct {
	ID          string      `json:"id"`
	UserID      string      `json:"userId"`
	GymID       string      `json:"gymId"`
	CreatedAt   time.Time   `json:"createdAt"`
	ValidatedAt *time.Time  `json:"validatedAt"`
	Gym         *GymDetails `json:"gym,omitempty"`
}

// GymFrequency names a gym together with its check-in count.
type GymFrequency struct {
	GymID    string `json:"gymId"`
	GymTitle string `json:"gymTitle"`
	Count    int    `json:"count"`
}

// HistorySummary is derived from the user's entire check-in set, not the
// current page. Week starts on the local Sunday.
type HistorySummary struct {
	TotalCheckIns     int           `json:"totalCheckIns"`
	CheckInsThisMonth int           `json:"checkInsThisMonth"`
	CheckInsThisWeek  int           `json:"checkInsThisWeek"`
	CheckInsToday     int           `json:"checkInsToday"`
	MostFrequentGym   *GymFrequency `json:"mostFrequentGym,omitempty"`
}

// HistoryPage is the History result: one page of check-ins plus pagination
// metadata and the whole-set summary.
type HistoryPage struct {
	CheckIns        []HistoryEntry `json:"checkIns"`
	TotalCount      int64          `json:"totalCount"`
	CurrentPage     int            `json:"currentPage"`
	TotalPages      int            `json:"totalPages"`
	PerPage         int            `json:"perPage"`
	HasNextPage     bool           `json:"hasNextPage"`
	HasPreviousPage bool           `json:"hasPreviousPage"`
	Summary         HistorySummary `json:"summary"`
}

// History returns one page of the user's check-ins, filtered in memory by
// the effective date window and optional gym, optionally enriched with gym
// details, plus a summary computed over the user's entire set.
func (s *ReportService) History(ctx context.Context, p HistoryParams) (*HistoryPage, error) {
	if strings.TrimSpace(p.UserID) == "" {
		return nil, ErrBlankUserID
	}
	if p.Page == 0 {
		p.Page = 1
	}
	if p.PerPage == 0 {
		p.PerPage = 20
	}
	if p.Page < 1 {
		return nil, ErrPageRange
	}
	if p.PerPage < 1 || p.PerPage > 100 {
		return nil, ErrPerPageRange
	}
	if p.StartDate != nil && p.EndDate != nil && !p.StartDate.Before(*p.EndDate) {
		return nil, ErrDateRange
	}

	now := s.now()
	start := now.Add(-s.historyRange())
	end := now
	if p.StartDate != nil {
		start = *p.StartDate
	}
	if p.EndDate != nil {
		end = *p.EndDate
	}

	offset := (p.Page - 1) * p.PerPage
	pageRows, err := s.CheckIns.ListCheckInsPage(ctx, s.DB, p.UserID, offset, p.PerPage, "desc")
	if err != nil {
		return nil, err
	}
	total, err := s.CheckIns.CountCheckIns(ctx, s.DB, p.UserID)
	if err != nil {
		return nil, err
	}

	entries := make([]HistoryEntry, 0, len(pageRows))
	var gymCache map[string]*GymDetails
	if p.IncludeGym {
		gymCache = make(map[string]*GymDetails)
	}
	for _, c := range pageRows {
		// Window filter is inclusive on both ends.
		if c.CreatedAt.Before(start) || c.CreatedAt.After(end) {
			continue
		}
		if p.GymID != "" && c.GymID != p.GymID {
			continue
		}
		e := HistoryEntry{
			ID:          c.ID,
			UserID:      c.UserID,
			GymID:       c.GymID,
			CreatedAt:   c.CreatedAt,
			ValidatedAt: c.ValidatedAt,
		}
		if p.IncludeGym {
			g, err := s.gymDetails(ctx, gymCache, c.GymID)
			if err != nil {
				return nil, err
			}
			e.Gym = g
		}
		entries = append(entries, e)
	}

	summary, err := s.summarize(ctx, p.UserID, now)
	if err != nil {
		return nil, err
	}

	totalPages := int(math.Ceil(float64(total) / float64(p.PerPage)))
	return &HistoryPage{
		CheckIns:        entries,
		TotalCount:      total,
		CurrentPage:     p.Page,
		TotalPages:      totalPages,
		PerPage:         p.PerPage,
		HasNextPage:     p.Page < totalPages,
		HasPreviousPage: p.Page > 1,
		Summary:         *summary,
	}, nil
}

// gymDetails resolves a gym snapshot through a per-request cache. A missing
// gym records a nil entry so the lookup is not repeated.
func (s *ReportService) gymDetails(ctx context.Context, cache map[string]*GymDetails, gymID string) (*GymDetails, error) {
	if d, ok := cache[gymID]; ok {
		return d, nil
	}
	g, err := s.Gyms.FindGym(ctx, s.DB, gymID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			cache[gymID] = nil
			return nil, nil
		}
		return nil, err
	}
	d := &GymDetails{
		ID:          g.ID,
		Title:       g.Title,
		Description: g.Description,
		Phone:       g.Phone,
		Latitude:    g.Latitude,
		Longitude:   g.Longitude,
	}
	cache[gymID] = d
	return d, nil
}

// summarize computes the summary block over the user's entire check-in set.
// The day and week boundaries use server local time; the week starts on
// Sunday.
func (s *ReportService) summarize(ctx context.Context, userID string, now time.Time) (*HistorySummary, error) {
	all, err := s.CheckIns.ListCheckInsByUser(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}

	local := now.Local()
	startOfToday := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
	startOfWeek := startOfToday.AddDate(0, 0, -int(startOfToday.Weekday()))
	startOfMonth := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, local.Location())

	sum := &HistorySummary{TotalCheckIns: len(all)}
	counts := make(map[string]int, len(all))
	for _, c := range all {
		if !c.CreatedAt.Before(startOfToday) {
			sum.CheckInsToday++
		}
		if !c.CreatedAt.Before(startOfWeek) {
			sum.CheckInsThisWeek++
		}
		if !c.CreatedAt.Before(startOfMonth) {
			sum.CheckInsThisMonth++
		}
		counts[c.GymID]++
	}

	if len(counts) > 0 {
		// Ties break to the gym first seen in the set; scan the slice, not
		// the map, to keep that deterministic.
		var bestID string
		best := 0
		seen := make(map[string]bool, len(counts))
		for _, c := range all {
			if seen[c.GymID] {
				continue
			}
			seen[c.GymID] = true
			if counts[c.GymID] > best {
				best = counts[c.GymID]
				bestID = c.GymID
			}
		}
		sum.MostFrequentGym = &GymFrequency{
			GymID:    bestID,
			GymTitle: s.gymTitle(ctx, bestID),
			Count:    best,
		}
	}
	return sum, nil
}

// gymTitle resolves a gym's title, falling back to a placeholder when the
// row is missing or the lookup fails.
func (s *ReportService) gymTitle(ctx context.Context, gymID string) string {
	g, err := s.Gyms.FindGym(ctx, s.DB, gymID)
	if err != nil || g == nil {
		return unknownGymTitle
	}
	return g.Title
}

// MetricsParams are the inputs to Metrics. All fields are optional.
type MetricsParams struct {
	UserID    string
	GymID     string
	StartDate *time.Time
	EndDate   *time.Time
}

// DateCount is one bucket of the check-ins-by-date histogram.
type DateCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// UserActivity names a user together with their check-in count.
type UserActivity struct {
	UserID       string `json:"userId"`
	CheckInCount int    `json:"checkInCount"`
}

// GymPopularity names a gym together with its check-in count.
type GymPopularity struct {
	GymID        string `json:"gymId"`
	GymTitle     string `json:"gymTitle"`
	CheckInCount int    `json:"checkInCount"`
}

// MetricsReport is the Metrics result. TotalUsers and TotalGyms are
// store-wide counts; everything else is derived from the filtered window.
type MetricsReport struct {
	TotalCheckIns          int            `json:"totalCheckIns"`
	TotalUsers             int64          `json:"totalUsers"`
	TotalGyms              int64          `json:"totalGyms"`
	CheckInsByDate         []DateCount    `json:"checkInsByDate"`
	CheckInsByGym          []GymFrequency `json:"checkInsByGym"`
	AverageCheckInsPerUser float64        `json:"averageCheckInsPerUser"`
	MostActiveUser         *UserActivity  `json:"mostActiveUser,omitempty"`
	MostPopularGym         *GymPopularity `json:"mostPopularGym,omitempty"`
}

// Metrics aggregates check-ins over the effective window: totals, a
// date-bucketed histogram (UTC dates, ascending), a per-gym table
// (descending count), the average per user, and the single most-active user
// and most-popular gym (first-seen tie-break, absent when the window is
// empty).
func (s *ReportService) Metrics(ctx context.Context, p MetricsParams) (*MetricsReport, error) {
	if p.StartDate != nil && p.EndDate != nil && !p.StartDate.Before(*p.EndDate) {
		return nil, ErrDateRange
	}

	now := s.now()
	start := now.Add(-s.historyRange())
	end := now
	if p.StartDate != nil {
		start = *p.StartDate
	}
	if p.EndDate != nil {
		end = *p.EndDate
	}

	rows, err := s.CheckIns.ListCheckInsInRange(ctx, s.DB, start, end)
	if err != nil {
		return nil, err
	}

	filtered := rows[:0:0]
	for _, c := range rows {
		if p.UserID != "" && c.UserID != p.UserID {
			continue
		}
		if p.GymID != "" && c.GymID != p.GymID {
			continue
		}
		filtered = append(filtered, c)
	}

	totalUsers, err := s.Users.CountUsers(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	totalGyms, err := s.Gyms.CountGyms(ctx, s.DB)
	if err != nil {
		return nil, err
	}

	rep := &MetricsReport{
		TotalCheckIns:  len(filtered),
		TotalUsers:     totalUsers,
		TotalGyms:      totalGyms,
		CheckInsByDate: []DateCount{},
		CheckInsByGym:  []GymFrequency{},
	}

	// Date histogram, bucketed on the UTC calendar date.
	dateCounts := make(map[string]int)
	for _, c := range filtered {
		dateCounts[c.CreatedAt.UTC().Format("2006-01-02")]++
	}
	for d, n := range dateCounts {
		rep.CheckInsByDate = append(rep.CheckInsByDate, DateCount{Date: d, Count: n})
	}
	sort.Slice(rep.CheckInsByDate, func(i, j int) bool {
		return rep.CheckInsByDate[i].Date < rep.CheckInsByDate[j].Date
	})

	// Per-gym table in first-seen order, then sorted by count descending.
	// The stable sort preserves first-seen order among equal counts.
	gymCounts := make(map[string]int)
	var gymOrder []string
	for _, c := range filtered {
		if _, ok := gymCounts[c.GymID]; !ok {
			gymOrder = append(gymOrder, c.GymID)
		}
		gymCounts[c.GymID]++
	}
	for _, id := range gymOrder {
		rep.CheckInsByGym = append(rep.CheckInsByGym, GymFrequency{
			GymID:    id,
			GymTitle: s.gymTitle(ctx, id),
			Count:    gymCounts[id],
		})
	}
	sort.SliceStable(rep.CheckInsByGym, func(i, j int) bool {
		return rep.CheckInsByGym[i].Count > rep.CheckInsByGym[j].Count
	})

	if totalUsers > 0 {
		avg := float64(len(filtered)) / float64(totalUsers)
		rep.AverageCheckInsPerUser = math.Round(avg*100) / 100
	}

	// Most-active user, first-seen tie-break via slice scan.
	userCounts := make(map[string]int)
	for _, c := range filtered {
		userCounts[c.UserID]++
	}
	if len(userCounts) > 0 {
		var bestID string
		best := 0
		seen := make(map[string]bool, len(userCounts))
		for _, c := range filtered {
			if seen[c.UserID] {
				continue
			}
			seen[c.UserID] = true
			if userCounts[c.UserID] > best {
				best = userCounts[c.UserID]
				bestID = c.UserID
			}
		}
		rep.MostActiveUser = &UserActivity{UserID: bestID, CheckInCount: best}
	}

	if len(rep.CheckInsByGym) > 0 {
		top := rep.CheckInsByGym[0]
		rep.MostPopularGym = &GymPopularity{
			GymID:        top.GymID,
			GymTitle:     top.GymTitle,
			CheckInCount: top.Count,
		}
	}

	return rep, nil
}
