package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"tonelearn/internal/analytics"
	"tonelearn/internal/models"
	"tonelearn/internal/selector"
	"tonelearn/internal/usage"
	"tonelearn/internal/vectorindex"
)

// ExampleSelector picks style examples for an incoming message
type ExampleSelector interface {
	Select(ctx context.Context, req selector.Request) (*models.ExampleSelectionResult, error)
}

// UsageUpdater records how a retrieved example was used
type UsageUpdater interface {
	UpdateUsage(ctx context.Context, id string, req models.UsageUpdateRequest) (models.UsageStats, error)
}

// SelectExamplesHandler returns direct-correspondence and same-relationship examples
// @Summary Select style examples
// @Description Pick past replies to the same recipient first, then replies to contacts with the same relationship
// @Tags examples
// @Accept json
// @Produce json
// @Param userID path string true "User ID"
// @Param request body models.SelectExamplesRequest true "Incoming message"
// @Success 200 {object} models.ExampleSelectionResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /api/users/{userID}/examples/select [post]
func SelectExamplesHandler(sel ExampleSelector, tracker EventTracker, logger zerolog.Logger) echo.HandlerFunc {
	logger = logger.With().Str("handler", "select_examples").Logger()

	return func(c echo.Context) error {
		var req models.SelectExamplesRequest
		if err := c.Bind(&req); err != nil {
			return errorJSON(c, http.StatusBadRequest, "invalid request body", err)
		}
		if req.DesiredCount < 0 {
			return errorJSON(c, http.StatusBadRequest, "desired_count must not be negative", nil)
		}

		ctx := c.Request().Context()
		userID := c.Param("userID")
		start := time.Now()

		result, err := sel.Select(ctx, selector.Request{
			UserID:         userID,
			IncomingText:   req.IncomingText,
			RecipientEmail: req.RecipientEmail,
			Subject:        req.Subject,
			DesiredCount:   req.DesiredCount,
		})
		if errors.Is(err, selector.ErrUserRequired) || errors.Is(err, selector.ErrRecipientRequired) {
			return errorJSON(c, http.StatusBadRequest, err.Error(), nil)
		}
		if err != nil {
			logger.Error().Err(err).Str("user_id", userID).Msg("Example selection failed")
			return errorJSON(c, http.StatusBadGateway, "example selection failed", err)
		}

		if tracker != nil {
			tracker.TrackAsync(ctx, analytics.Event{
				Type:     analytics.EventSelection,
				UserID:   userID,
				Count:    len(result.Examples),
				Duration: time.Since(start),
				Metadata: map[string]interface{}{
					"relationship": result.Relationship.Type,
					"direct":       result.Stats.DirectCorrespondence,
				},
			})
		}
		return c.JSON(http.StatusOK, result)
	}
}

// UsageHandler updates the usage counters of one indexed example
// @Summary Update example usage
// @Tags examples
// @Accept json
// @Produce json
// @Param id path string true "Example ID"
// @Param request body models.UsageUpdateRequest true "Usage counters"
// @Success 200 {object} models.UsageStats
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/examples/{id}/usage [put]
func UsageHandler(svc UsageUpdater, tracker EventTracker) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req models.UsageUpdateRequest
		if err := c.Bind(&req); err != nil {
			return errorJSON(c, http.StatusBadRequest, "invalid request body", err)
		}

		id := c.Param("id")
		stats, err := svc.UpdateUsage(c.Request().Context(), id, req)
		switch {
		case errors.Is(err, usage.ErrInvalidUsage):
			return errorJSON(c, http.StatusBadRequest, err.Error(), nil)
		case errors.Is(err, vectorindex.ErrNotFound):
			return errorJSON(c, http.StatusNotFound, "example not found", nil)
		case err != nil:
			return errorJSON(c, http.StatusInternalServerError, "failed to update usage", err)
		}

		if tracker != nil {
			tracker.TrackAsync(c.Request().Context(), analytics.Event{Type: analytics.EventUsageUpdate, Count: 1})
		}
		return c.JSON(http.StatusOK, stats)
	}
}
