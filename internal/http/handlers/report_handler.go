// Reporting HTTP handlers.
//
// This file exposes the read-only aggregation endpoints:
//   - GET /check-ins/history  (paginated, ETag support)
//   - GET /check-ins/metrics
//
// Handlers are transport-thin: they parse query parameters, call the report
// service, and translate results into HTTP responses (including conditional
// responses on the history listing).
package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/wellmota/go-gym-backend/internal/repo"
	"github.com/wellmota/go-gym-backend/internal/services"
	"github.com/wellmota/go-gym-backend/internal/sysutil"
	"github.com/wellmota/go-gym-backend/internal/utils"
)

// parseDate accepts either an RFC 3339 timestamp or a plain calendar date.
func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q", s)
	}
	return &t, nil
}

// History godoc
// @ID          checkInHistory
// @Summary     Check-in history (paginated)
// @Description Returns a page of the user's check-ins with an activity summary
// @Description computed over the user's entire check-in set. Supports weak ETag
// @Description via If-None-Match and may return 304.
// @Tags        Reports
// @Produce     json
//
// @Param       X-User-ID      header  string  false "User ID (demo header)"       example(user123)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       per_page       query   int     false "Items per page"               minimum(1) maximum(100) default(20)
// @Param       start_date     query   string  false "Window start (RFC3339 or YYYY-MM-DD)"
// @Param       end_date       query   string  false "Window end (RFC3339 or YYYY-MM-DD)"
// @Param       gym_id         query   string  false "Restrict to one gym"
// @Param       include_gym    query   bool    false "Attach gym details to each entry"
//
// @Success     200  {object} services.HistoryPage
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /check-ins/history [get]
func (h *Handlers) History(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)

	start, err := parseDate(c.Query("start_date"))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	end, err := parseDate(c.Query("end_date"))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, ok := h.reportSvc.(*services.ReportService); ok {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.CheckInsStats(ctx, db, uid)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"checkins:%s:%d:%d"`, uid, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	page, err := h.reportSvc.History(ctx, services.HistoryParams{
		UserID:     uid,
		Page:       utils.AtoiDefault(c.Query("page"), 0),
		PerPage:    utils.AtoiDefault(c.Query("per_page"), 0),
		StartDate:  start,
		EndDate:    end,
		GymID:      c.Query("gym_id"),
		IncludeGym: sysutil.IsTruthy(c.Query("include_gym")),
	})
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, page)
}

// Metrics godoc
// @ID          checkInMetrics
// @Summary     Check-in metrics
// @Description Aggregates check-ins over a date window: totals, a per-date
// @Description histogram, a per-gym table, and the most-active user and
// @Description most-popular gym.
// @Tags        Reports
// @Produce     json
//
// @Param       user_id     query  string  false "Restrict to one user"
// @Param       gym_id      query  string  false "Restrict to one gym"
// @Param       start_date  query  string  false "Window start (RFC3339 or YYYY-MM-DD)"
// @Param       end_date    query  string  false "Window end (RFC3339 or YYYY-MM-DD)"
//
// @Success     200  {object} services.MetricsReport
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /check-ins/metrics [get]
func (h *Handlers) Metrics(c *gin.Context) {
	start, err := parseDate(c.Query("start_date"))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	end, err := parseDate(c.Query("end_date"))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}

	rep, err := h.reportSvc.Metrics(c.Request.Context(), services.MetricsParams{
		UserID:    c.Query("user_id"),
		GymID:     c.Query("gym_id"),
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, rep)
}
