// README: Rider, driver and parent analytics handlers.
package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"londa/internal/http/response"
	"londa/internal/modules/analytics"
)

type AnalyticsHandler struct {
	analytics *analytics.Service
}

func NewAnalyticsHandler(svc *analytics.Service) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: svc}
}

func (h *AnalyticsHandler) RiderRides(c *gin.Context) {
	stats, err := h.analytics.RiderStats(c.Request.Context(), caller(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Ride analytics retrieved successfully", stats)
}

func (h *AnalyticsHandler) RiderPerformance(c *gin.Context) {
	perf, err := h.analytics.RiderPerformance(c.Request.Context(), caller(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Performance analytics retrieved successfully", perf)
}

func (h *AnalyticsHandler) DriverEarnings(c *gin.Context) {
	e, err := h.analytics.DriverEarnings(c.Request.Context(), caller(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Earnings retrieved successfully", e)
}

func (h *AnalyticsHandler) DriverRides(c *gin.Context) {
	stats, err := h.analytics.DriverStats(c.Request.Context(), caller(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Ride analytics retrieved successfully", stats)
}

func (h *AnalyticsHandler) DriverPerformance(c *gin.Context) {
	perf, err := h.analytics.DriverPerformance(c.Request.Context(), caller(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Performance analytics retrieved successfully", perf)
}

// ParentUsage defaults to the current UTC month.
func (h *AnalyticsHandler) ParentUsage(c *gin.Context) {
	now := time.Now().UTC()
	month, err := queryInt(c, "month", int(now.Month()), 1, 12)
	if err != nil {
		response.Error(c, err)
		return
	}
	year, err := queryInt(c, "year", now.Year(), 2000, 9999)
	if err != nil {
		response.Error(c, err)
		return
	}
	usage, err := h.analytics.MonthlyUsage(c.Request.Context(), caller(c), month, year)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Usage retrieved successfully", usage)
}
