// Gym HTTP handlers.
//
// This file exposes REST endpoints for gym resources:
//   - POST /gyms         (register)
//   - GET  /gyms/search  (multi-criteria search)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses.
package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/wellmota/go-gym-backend/internal/domain"
	"github.com/wellmota/go-gym-backend/internal/search"
	"github.com/wellmota/go-gym-backend/internal/services"
	"github.com/wellmota/go-gym-backend/internal/sysutil"
	"github.com/wellmota/go-gym-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// GymService defines gym lifecycle operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type GymService interface {
	// Create validates and registers a gym.
	Create(ctx context.Context, in services.GymInput) (*domain.Gym, error)
	// Search evaluates a search query over the gym catalogue.
	Search(ctx context.Context, p search.Params) (*search.Page, error)
}

// CheckInService defines the check-in rule operations consumed by HTTP
// handlers.
type CheckInService interface {
	// CheckIn records a member's visit, enforcing geofence and daily rules.
	CheckIn(ctx context.Context, userID, gymID string, lat, lon float64) (*domain.CheckIn, error)
	// Validate confirms a pending check-in on behalf of an administrator.
	Validate(ctx context.Context, checkInID, adminUserID string) (*domain.CheckIn, error)
	// ValidateDistance reports proximity to a gym without creating a check-in.
	ValidateDistance(ctx context.Context, gymID string, lat, lon, maxMeters float64) (*services.DistanceReport, error)
}

// ReportService defines the read-only aggregation operations consumed by
// HTTP handlers.
type ReportService interface {
	// History returns one page of a user's check-ins plus a whole-set summary.
	History(ctx context.Context, p services.HistoryParams) (*services.HistoryPage, error)
	// Metrics aggregates check-ins over a date window.
	Metrics(ctx context.Context, p services.MetricsParams) (*services.MetricsReport, error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for gyms, check-ins, and reports.
// It depends on abstract service interfaces to keep transport concerns
// separate from business logic.
type Handlers struct {
	gymSvc     GymService
	checkInSvc CheckInService
	reportSvc  ReportService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(gymSvc GymService, checkInSvc CheckInService, reportSvc ReportService) *Handlers {
	return &Handlers{gymSvc: gymSvc, checkInSvc: checkInSvc, reportSvc: reportSvc}
}

// userID resolves the acting user through a fallback chain: the context
// value set by upstream auth middleware, then the "X-User-ID" demo header,
// then "demo-user". It never touches c.Request if it's nil.
func userID(c *gin.Context) string {
	var fromCtx string
	if v, ok := c.Get("userID"); ok {
		fromCtx, _ = v.(string)
	}
	var fromHeader string
	if c != nil && c.Request != nil {
		fromHeader = strings.TrimSpace(c.GetHeader("X-User-ID"))
	}
	return sysutil.FirstNonEmpty(fromCtx, fromHeader, "demo-user")
}

//
// DTOs
//

// CreateGymRequest is the JSON payload for registering a gym.
type CreateGymRequest struct {
	// Title names the gym (2–100 chars after trimming).
	Title string `json:"title" binding:"required" example:"Iron Temple"`
	// Description is optional free text (max 500 chars).
	Description *string `json:"description" example:"Free weights and cardio"`
	// Phone is optional; loosely E.164 after stripping formatting.
	Phone *string `json:"phone" example:"+55 11 91234-5678"`
	// Latitude in decimal degrees (-90..90).
	Latitude float64 `json:"latitude" example:"-23.5505"`
	// Longitude in decimal degrees (-180..180).
	Longitude float64 `json:"longitude" example:"-46.6333"`
}

//
// Handlers
//

// CreateGym godoc
// @ID          createGym
// @Summary     Register a new gym
// @Description Validates and registers a gym with its coordinates.
// @Tags        Gyms
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.CreateGymRequest  true  "Gym payload"
//
// @Success     201  {object}  domain.Gym
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failure"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /gyms [post]
func (h *Handlers) CreateGym(c *gin.Context) {
	var req CreateGymRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	g, err := h.gymSvc.Create(c.Request.Context(), services.GymInput{
		Title:       req.Title,
		Description: req.Description,
		Phone:       req.Phone,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
	})
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusCreated, g)
}

// SearchGyms godoc
// @ID          searchGyms
// @Summary     Search gyms
// @Description Case-folded text search over title and description with optional
// @Description radius filtering, sorting (name, distance, createdAt), and pagination.
// @Tags        Gyms
// @Produce     json
//
// @Param       q             query  string  true   "Search query"
// @Param       page          query  int     false  "Page number"      minimum(1) default(1)
// @Param       per_page      query  int     false  "Items per page"   minimum(1) maximum(100) default(20)
// @Param       sort_by       query  string  false  "name | distance | createdAt"  default(name)
// @Param       sort_order    query  string  false  "asc | desc"       default(asc)
// @Param       latitude      query  number  false  "User latitude"
// @Param       longitude     query  number  false  "User longitude"
// @Param       max_distance  query  number  false  "Radius filter in meters (max 50000)"
//
// @Success     200  {object}  search.Page
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid parameters"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /gyms/search [get]
func (h *Handlers) SearchGyms(c *gin.Context) {
	p := search.Params{
		Query:     c.Query("q"),
		Page:      utils.AtoiDefault(c.Query("page"), 0),
		PerPage:   utils.AtoiDefault(c.Query("per_page"), 0),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}

	var okParse bool
	if p.UserLat, okParse = utils.FloatPtr(c.Query("latitude")); !okParse {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "latitude must be a number")
		return
	}
	if p.UserLon, okParse = utils.FloatPtr(c.Query("longitude")); !okParse {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "longitude must be a number")
		return
	}
	if p.MaxDistance, okParse = utils.FloatPtr(c.Query("max_distance")); !okParse {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "max_distance must be a number")
		return
	}

	page, err := h.gymSvc.Search(c.Request.Context(), p)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, page)
}
