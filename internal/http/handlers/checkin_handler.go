// Check-in HTTP handlers.
//
// This file exposes REST endpoints for the check-in lifecycle:
//   - POST  /gyms/{gymId}/check-ins               (create, geofenced)
//   - POST  /gyms/{gymId}/distance                (distance probe, no write)
//   - PATCH /check-ins/{checkInId}/validate       (admin confirmation)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate rule failures into stable error codes.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/wellmota/go-gym-backend/internal/http/middleware"
	"github.com/wellmota/go-gym-backend/internal/repo"
	"github.com/wellmota/go-gym-backend/internal/services"
)

//
// DTOs
//

// CreateCheckInRequest is the JSON payload for creating a check-in.
type CreateCheckInRequest struct {
	// Latitude of the member at check-in time (-90..90).
	Latitude float64 `json:"latitude" example:"-23.5505"`
	// Longitude of the member at check-in time (-180..180).
	Longitude float64 `json:"longitude" example:"-46.6333"`
}

// DistanceProbeRequest is the JSON payload for the distance probe.
type DistanceProbeRequest struct {
	// Latitude of the member (-90..90).
	Latitude float64 `json:"latitude" example:"-23.5505"`
	// Longitude of the member (-180..180).
	Longitude float64 `json:"longitude" example:"-46.6333"`
	// MaxDistanceMeters overrides the probe radius (default 100, max 10000).
	MaxDistanceMeters float64 `json:"max_distance_meters" example:"100"`
}

//
// Handlers
//

// CreateCheckIn godoc
// @ID          createCheckIn
// @Summary     Check in at a gym
// @Description Records a visit when the member is within the geofence radius
// @Description and has not checked in yet today. The new check-in is pending
// @Description until an administrator validates it.
// @Tags        CheckIns
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID (demo header)"  example(user123)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       gymId            path    string  true  "Gym ID (UUID)"          format(uuid)
// @Param       body             body    handlers.CreateCheckInRequest  true  "Member coordinates"
//
// @Success     201  {object}  domain.CheckIn
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Gym not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Already checked in today"
// @Failure     422  {object}  handlers.ErrorResponse  "Outside the geofence"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /gyms/{gymId}/check-ins [post]
func (h *Handlers) CreateCheckIn(c *gin.Context) {
	gymID := c.Param("gymId")
	if _, err := uuid.Parse(gymID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "gym id must be a UUID")
		return
	}

	var req CreateCheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	ctx := c.Request.Context()
	currentUser := userID(c)

	// Idempotency (replay path) – read validated key if present.
	idemKey, _ := middleware.GetIdempotencyKey(c)
	if idemKey != "" {
		if svc, okSvc := h.checkInSvc.(*services.CheckInService); okSvc && svc.DB != nil {
			if rec, err := repo.GetIdempotency(ctx, svc.DB, currentUser, gymID, idemKey, time.Now().UTC()); err == nil && rec != nil {
				if prev, err2 := repo.FindCheckIn(ctx, svc.DB, rec.CheckInID); err2 == nil {
					c.Header("Idempotency-Replayed", "true")
					ok(c, http.StatusCreated, prev)
					return
				}
			}
		}
	}

	ci, err := h.checkInSvc.CheckIn(ctx, currentUser, gymID, req.Latitude, req.Longitude)
	if err != nil {
		_, code, _ := serviceError(err)
		middleware.CountCheckIn("create", code)
		failService(c, err)
		return
	}
	middleware.CountCheckIn("create", "ok")

	// Idempotency (store path) – best effort.
	if idemKey != "" {
		if svc, okSvc := h.checkInSvc.(*services.CheckInService); okSvc && svc.DB != nil {
			ttl := 24 * time.Hour
			_, _ = repo.CreateIdempotency(ctx, svc.DB, currentUser, gymID, idemKey, ci.ID, http.StatusCreated, ttl)
		}
	}

	ok(c, http.StatusCreated, ci)
}

// ProbeDistance godoc
// @ID          probeDistance
// @Summary     Check distance to a gym
// @Description Reports whether the given coordinates fall within the probe
// @Description radius of the gym, without creating a check-in.
// @Tags        CheckIns
// @Accept      json
// @Produce     json
//
// @Param       gymId  path  string  true  "Gym ID (UUID)"  format(uuid)
// @Param       body   body  handlers.DistanceProbeRequest  true  "Coordinates and optional radius"
//
// @Success     200  {object}  services.DistanceReport
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Gym not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /gyms/{gymId}/distance [post]
func (h *Handlers) ProbeDistance(c *gin.Context) {
	gymID := c.Param("gymId")
	if _, err := uuid.Parse(gymID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "gym id must be a UUID")
		return
	}

	var req DistanceProbeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	rep, err := h.checkInSvc.ValidateDistance(c.Request.Context(), gymID, req.Latitude, req.Longitude, req.MaxDistanceMeters)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, rep)
}

// ValidateCheckIn godoc
// @ID          validateCheckIn
// @Summary     Validate a check-in
// @Description Confirms a pending check-in. Requires the acting user to hold
// @Description the ADMIN role and at least 20 minutes to have elapsed since
// @Description the check-in was created. Exactly one of two concurrent
// @Description validations succeeds.
// @Tags        CheckIns
// @Produce     json
//
// @Param       X-User-ID  header  string  false "Acting admin ID (demo header)"  example(admin123)
// @Param       checkInId  path    string  true  "Check-in ID (UUID)"             format(uuid)
//
// @Success     200  {object}  domain.CheckIn
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Admin role required"
// @Failure     404  {object}  handlers.ErrorResponse  "Check-in or user not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Already validated"
// @Failure     422  {object}  handlers.ErrorResponse  "Validation window not elapsed"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /check-ins/{checkInId}/validate [patch]
func (h *Handlers) ValidateCheckIn(c *gin.Context) {
	checkInID := c.Param("checkInId")
	if _, err := uuid.Parse(checkInID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "check-in id must be a UUID")
		return
	}

	ci, err := h.checkInSvc.Validate(c.Request.Context(), checkInID, userID(c))
	if err != nil {
		_, code, _ := serviceError(err)
		middleware.CountCheckIn("validate", code)
		failService(c, err)
		return
	}
	middleware.CountCheckIn("validate", "ok")
	ok(c, http.StatusOK, ci)
}
