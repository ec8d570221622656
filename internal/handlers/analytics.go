package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"tonelearn/internal/analytics"
	"tonelearn/internal/models"
)

// SummaryProvider aggregates tracked engine events
type SummaryProvider interface {
	GetSummary(ctx context.Context, period string) (*models.AnalyticsSummary, error)
}

// AnalyticsHandler returns the event summary for a period (today, yesterday,
// last_7_days, last_30_days); the default is yesterday
// @Summary Get analytics summary
// @Description Get the event summary for a time period (today, yesterday, last_7_days, last_30_days)
// @Tags analytics
// @Produce json
// @Param period query string false "Time period (today, yesterday, last_7_days, last_30_days)" default(yesterday)
// @Success 200 {object} models.AnalyticsResponse
// @Failure 500 {object} models.AnalyticsResponse
// @Failure 503 {object} models.AnalyticsResponse
// @Router /api/analytics/summary [get]
func AnalyticsHandler(svc SummaryProvider, logger zerolog.Logger) echo.HandlerFunc {
	logger = logger.With().Str("handler", "analytics").Logger()

	return func(c echo.Context) error {
		if svc == nil {
			return c.JSON(http.StatusServiceUnavailable, models.AnalyticsResponse{
				Success: false,
				Error:   "analytics requires a database",
			})
		}

		period := c.QueryParam("period")
		if period == "" {
			period = analytics.PeriodYesterday
		}

		summary, err := svc.GetSummary(c.Request().Context(), period)
		if err != nil {
			logger.Error().Err(err).Str("period", period).Msg("Failed to get analytics summary")
			return c.JSON(http.StatusInternalServerError, models.AnalyticsResponse{
				Success: false,
				Error:   "failed to get analytics summary: " + err.Error(),
			})
		}

		return c.JSON(http.StatusOK, models.AnalyticsResponse{
			Success: true,
			Summary: summary,
		})
	}
}
