package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"tonelearn/internal/analytics"
	"tonelearn/internal/emails"
	"tonelearn/internal/ingest"
	"tonelearn/internal/models"
)

// Ingester runs the ingestion pipeline
type Ingester interface {
	Run(ctx context.Context, userID string, messages []*models.HistoricalMessage) (*ingest.Result, error)
}

// EventTracker records engine events without failing the request
type EventTracker interface {
	TrackAsync(ctx context.Context, e analytics.Event)
}

// IngestHandler parses raw sent messages and indexes them for the user.
// An ingestion run stopped by the error-rate guard answers 422 with the partial counts.
// @Summary Ingest sent messages
// @Description Parse raw RFC 5322 messages, redact them and index them as style examples for the user
// @Tags ingest
// @Accept json
// @Produce json
// @Param userID path string true "User ID"
// @Param request body models.IngestRequest true "Messages to ingest"
// @Success 200 {object} models.IngestResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 422 {object} models.IngestResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/users/{userID}/ingest [post]
func IngestHandler(pipeline Ingester, tracker EventTracker, logger zerolog.Logger) echo.HandlerFunc {
	logger = logger.With().Str("handler", "ingest").Logger()

	return func(c echo.Context) error {
		userID := c.Param("userID")
		if userID == "" {
			return errorJSON(c, http.StatusBadRequest, "user id is required", nil)
		}

		var req models.IngestRequest
		if err := c.Bind(&req); err != nil {
			return errorJSON(c, http.StatusBadRequest, "invalid request body", err)
		}
		if len(req.Messages) == 0 {
			return errorJSON(c, http.StatusBadRequest, "no messages to ingest", nil)
		}

		messages := make([]*models.HistoricalMessage, 0, len(req.Messages))
		for i, m := range req.Messages {
			msg, err := emails.ParseMessage([]byte(m.Raw))
			if err != nil {
				return errorJSON(c, http.StatusBadRequest, fmt.Sprintf("message %d could not be parsed", i), err)
			}
			msg.UserID = userID
			msg.Relationship = m.Relationship
			messages = append(messages, msg)
		}

		ctx := c.Request().Context()
		result, err := pipeline.Run(ctx, userID, messages)

		var rateErr *ingest.ErrorRateExceededError
		switch {
		case errors.As(err, &rateErr):
			logger.Warn().Err(err).Str("user_id", userID).Msg("Ingestion aborted")
		case err != nil:
			logger.Error().Err(err).Str("user_id", userID).Msg("Ingestion failed")
			return errorJSON(c, http.StatusInternalServerError, "ingestion failed", err)
		}

		if tracker != nil {
			tracker.TrackAsync(ctx, analytics.Event{
				Type:     analytics.EventIngestion,
				UserID:   userID,
				Count:    result.Processed,
				Errors:   result.Errors,
				Duration: result.Duration,
				Metadata: map[string]interface{}{"messages": len(messages), "aborted": rateErr != nil},
			})
		}

		response := models.IngestResponse{
			Processed:    result.Processed,
			Errors:       result.Errors,
			DurationMs:   result.Duration.Milliseconds(),
			Relationship: result.Relationships,
		}
		if rateErr != nil {
			response.Aborted = true
			response.Error = rateErr.Error()
			return c.JSON(http.StatusUnprocessableEntity, response)
		}
		return c.JSON(http.StatusOK, response)
	}
}

// errorJSON writes an ErrorResponse; err becomes the details when present
func errorJSON(c echo.Context, status int, message string, err error) error {
	resp := models.ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	return c.JSON(status, resp)
}
