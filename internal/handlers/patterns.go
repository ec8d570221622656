package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"tonelearn/internal/analytics"
	"tonelearn/internal/database"
	"tonelearn/internal/models"
	"tonelearn/internal/patterns"
)

// ProfileAnalyzer computes and reads writing profiles
type ProfileAnalyzer interface {
	Recompute(ctx context.Context, userID, target string) (*models.StoredProfile, error)
	Profile(ctx context.Context, userID, preferenceType, target string) (*models.StoredProfile, error)
}

// AnalyzePatternsHandler recomputes a profile synchronously. An empty
// relationship_type rebuilds the aggregate profile.
// @Summary Analyze writing patterns
// @Description Recompute the aggregate profile, or one relationship category's profile
// @Tags patterns
// @Accept json
// @Produce json
// @Param userID path string true "User ID"
// @Param request body models.AnalyzePatternsRequest false "Relationship category"
// @Success 200 {object} models.StoredProfile
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /api/users/{userID}/patterns/analyze [post]
func AnalyzePatternsHandler(analyzer ProfileAnalyzer, tracker EventTracker, logger zerolog.Logger) echo.HandlerFunc {
	logger = logger.With().Str("handler", "analyze_patterns").Logger()

	return func(c echo.Context) error {
		var req models.AnalyzePatternsRequest
		if err := c.Bind(&req); err != nil {
			return errorJSON(c, http.StatusBadRequest, "invalid request body", err)
		}

		ctx := c.Request().Context()
		userID := c.Param("userID")
		start := time.Now()

		profile, err := analyzer.Recompute(ctx, userID, req.RelationshipType)
		switch {
		case errors.Is(err, patterns.ErrNoExamples):
			return errorJSON(c, http.StatusNotFound, "no indexed examples to analyze", nil)
		case errors.Is(err, patterns.ErrAllBatchesFailed):
			logger.Error().Err(err).Str("user_id", userID).Msg("Pattern analysis failed")
			return errorJSON(c, http.StatusBadGateway, "pattern analysis failed", err)
		case err != nil:
			logger.Error().Err(err).Str("user_id", userID).Msg("Pattern analysis failed")
			return errorJSON(c, http.StatusInternalServerError, "pattern analysis failed", err)
		}

		if tracker != nil {
			tracker.TrackAsync(ctx, analytics.Event{
				Type:     analytics.EventPatternAnalysis,
				UserID:   userID,
				Count:    profile.EmailsAnalyzed,
				Duration: time.Since(start),
				Metadata: map[string]interface{}{"target": profile.TargetIdentifier, "batches": profile.BatchCount},
			})
		}
		return c.JSON(http.StatusOK, profile)
	}
}

// GetProfileHandler returns a stored profile
// @Summary Get a writing profile
// @Tags patterns
// @Produce json
// @Param userID path string true "User ID"
// @Param prefType path string true "aggregate or category"
// @Param target path string true "Profile target, e.g. all or a relationship type"
// @Success 200 {object} models.StoredProfile
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/users/{userID}/patterns/{prefType}/{target} [get]
func GetProfileHandler(analyzer ProfileAnalyzer) echo.HandlerFunc {
	return func(c echo.Context) error {
		prefType := c.Param("prefType")
		if prefType != models.PreferenceAggregate && prefType != models.PreferenceCategory {
			return errorJSON(c, http.StatusBadRequest, "preference type must be aggregate or category", nil)
		}

		profile, err := analyzer.Profile(c.Request().Context(), c.Param("userID"), prefType, c.Param("target"))
		if errors.Is(err, database.ErrNotFound) || (err == nil && profile == nil) {
			return errorJSON(c, http.StatusNotFound, "profile not found", nil)
		}
		if err != nil {
			return errorJSON(c, http.StatusInternalServerError, "failed to load profile", err)
		}
		return c.JSON(http.StatusOK, profile)
	}
}

// ProfileLister lists a user's stored profiles
type ProfileLister interface {
	ListByUser(ctx context.Context, userID string) ([]models.StoredProfile, error)
}

// ListProfilesHandler returns every profile stored for a user
// @Summary List writing profiles
// @Tags patterns
// @Produce json
// @Param userID path string true "User ID"
// @Success 200 {array} models.StoredProfile
// @Failure 500 {object} models.ErrorResponse
// @Router /api/users/{userID}/patterns [get]
func ListProfilesHandler(lister ProfileLister) echo.HandlerFunc {
	return func(c echo.Context) error {
		profiles, err := lister.ListByUser(c.Request().Context(), c.Param("userID"))
		if err != nil {
			return errorJSON(c, http.StatusInternalServerError, "failed to list profiles", err)
		}
		return c.JSON(http.StatusOK, profiles)
	}
}
