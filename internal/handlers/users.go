package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/mail"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"tonelearn/internal/analytics"
	"tonelearn/internal/models"
	"tonelearn/internal/usage"
)

// Purger deletes everything stored for a user
type Purger interface {
	Purge(ctx context.Context, userID string) (*usage.PurgeResult, error)
}

// AccountStore records the user's own address
type AccountStore interface {
	SetPrimaryAddress(ctx context.Context, userID, email string) error
}

// CredentialSaver stores an encrypted mailbox credential
type CredentialSaver interface {
	Save(ctx context.Context, c models.MailCredential) error
}

// RelationshipSetter records a user-defined relationship
type RelationshipSetter interface {
	SetRelationship(ctx context.Context, userID, recipientEmail, relationshipType string) error
}

// CacheForgetter drops a cached relationship classification
type CacheForgetter interface {
	Forget(userID, recipientEmail string)
}

// PurgeUserHandler deletes a user's indexed examples, profiles, relationships and credentials
// @Summary Purge user data
// @Tags users
// @Produce json
// @Param userID path string true "User ID"
// @Success 200 {object} usage.PurgeResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/users/{userID} [delete]
func PurgeUserHandler(purger Purger, tracker EventTracker, logger zerolog.Logger) echo.HandlerFunc {
	logger = logger.With().Str("handler", "purge_user").Logger()

	return func(c echo.Context) error {
		userID := c.Param("userID")
		result, err := purger.Purge(c.Request().Context(), userID)
		if errors.Is(err, usage.ErrUserRequired) {
			return errorJSON(c, http.StatusBadRequest, err.Error(), nil)
		}
		if err != nil {
			logger.Error().Err(err).Str("user_id", userID).Msg("Purge failed")
			return errorJSON(c, http.StatusInternalServerError, "failed to purge user data", err)
		}

		if tracker != nil {
			tracker.TrackAsync(c.Request().Context(), analytics.Event{Type: analytics.EventPurge, UserID: userID, Count: 1})
		}
		return c.JSON(http.StatusOK, result)
	}
}

// AccountHandler registers the user's primary address and, when a password is
// given, stores the mailbox credential encrypted. credentials may be nil when
// no encryption key is configured.
// @Summary Register mailbox account
// @Tags users
// @Accept json
// @Produce json
// @Param userID path string true "User ID"
// @Param request body models.AccountRequest true "Mailbox account"
// @Success 200 {object} map[string]string
// @Failure 400 {object} models.ErrorResponse
// @Failure 501 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /api/users/{userID}/account [put]
func AccountHandler(accounts AccountStore, credentials CredentialSaver) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req models.AccountRequest
		if err := c.Bind(&req); err != nil {
			return errorJSON(c, http.StatusBadRequest, "invalid request body", err)
		}
		if _, err := mail.ParseAddress(req.Email); err != nil {
			return errorJSON(c, http.StatusBadRequest, "a valid email is required", err)
		}

		ctx := c.Request().Context()
		userID := c.Param("userID")
		if err := accounts.SetPrimaryAddress(ctx, userID, req.Email); err != nil {
			return errorJSON(c, http.StatusInternalServerError, "failed to save account", err)
		}

		if req.Password != "" {
			if credentials == nil {
				return errorJSON(c, http.StatusNotImplemented, "credential storage is not configured", nil)
			}
			err := credentials.Save(ctx, models.MailCredential{
				UserID:       userID,
				AccountEmail: req.Email,
				Host:         req.Host,
				Port:         req.Port,
				Username:     req.Username,
				Secret:       req.Password,
			})
			if err != nil {
				return errorJSON(c, http.StatusInternalServerError, "failed to save credential", err)
			}
		}

		return c.JSON(http.StatusOK, map[string]string{
			"user_id": userID,
			"email":   models.NormalizeEmail(req.Email),
		})
	}
}

// RelationshipHandler records how the user classifies a contact and clears the
// cached detection for that contact
// @Summary Set contact relationship
// @Tags users
// @Accept json
// @Produce json
// @Param userID path string true "User ID"
// @Param request body models.RelationshipRequest true "Relationship override"
// @Success 200 {object} models.RelationshipClassification
// @Failure 400 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /api/users/{userID}/relationships [put]
func RelationshipHandler(store RelationshipSetter, detector CacheForgetter) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req models.RelationshipRequest
		if err := c.Bind(&req); err != nil {
			return errorJSON(c, http.StatusBadRequest, "invalid request body", err)
		}
		if models.NormalizeEmail(req.RecipientEmail) == "" {
			return errorJSON(c, http.StatusBadRequest, "recipient_email is required", nil)
		}
		if !models.ValidRelationshipType(req.RelationshipType) {
			return errorJSON(c, http.StatusBadRequest, "unknown relationship type", nil)
		}

		userID := c.Param("userID")
		if err := store.SetRelationship(c.Request().Context(), userID, req.RecipientEmail, req.RelationshipType); err != nil {
			return errorJSON(c, http.StatusInternalServerError, "failed to save relationship", err)
		}
		if detector != nil {
			detector.Forget(userID, req.RecipientEmail)
		}

		return c.JSON(http.StatusOK, models.RelationshipClassification{
			Type:            req.RelationshipType,
			Confidence:      1.0,
			DetectionMethod: "user_defined",
		})
	}
}
