// Package usage records how retrieved examples performed and purges a user's data.
package usage

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"tonelearn/internal/models"
	"tonelearn/internal/retry"
	"tonelearn/internal/vectorindex"
)

var (
	// ErrInvalidUsage is returned for negative counters or a rating outside 0..5
	ErrInvalidUsage = errors.New("invalid usage update")
	// ErrUserRequired is returned when purging without a user id
	ErrUserRequired = errors.New("user id is required")
)

// ProfileDeleter removes a user's stored profiles
type ProfileDeleter interface {
	DeleteByUser(ctx context.Context, userID string) (int64, error)
}

// UserDeleter removes a user's rows from one store
type UserDeleter interface {
	DeleteByUser(ctx context.Context, userID string) error
}

// Service updates usage counters and purges users. The stores are optional so
// the service works without a database.
type Service struct {
	index         vectorindex.Index
	profiles      ProfileDeleter
	relationships UserDeleter
	credentials   UserDeleter
	retry         retry.Options
	logger        zerolog.Logger
}

// NewService creates a usage service
func NewService(index vectorindex.Index, profiles ProfileDeleter, relationships, credentials UserDeleter,
	retryOpts retry.Options, logger zerolog.Logger) *Service {
	return &Service{
		index:         index,
		profiles:      profiles,
		relationships: relationships,
		credentials:   credentials,
		retry:         retryOpts,
		logger:        logger.With().Str("component", "usage").Logger(),
	}
}

// FrequencyScore is the share of uses that needed no edit, scaled by rating/5
// when a rating was given. Unused examples score zero.
func FrequencyScore(used, edits int, rating float64) float64 {
	if used <= 0 {
		return 0
	}
	score := float64(used) / float64(used+edits)
	if rating > 0 {
		score *= rating / 5
	}
	return math.Round(score*100) / 100
}

// UpdateUsage replaces the usage counters of one indexed record
func (s *Service) UpdateUsage(ctx context.Context, id string, req models.UsageUpdateRequest) (models.UsageStats, error) {
	if id == "" {
		return models.UsageStats{}, fmt.Errorf("%w: missing example id", ErrInvalidUsage)
	}
	if req.UsedCount < 0 || req.EditCount < 0 {
		return models.UsageStats{}, fmt.Errorf("%w: counters must not be negative", ErrInvalidUsage)
	}
	if req.Rating < 0 || req.Rating > 5 {
		return models.UsageStats{}, fmt.Errorf("%w: rating must be between 0 and 5", ErrInvalidUsage)
	}

	stats := models.UsageStats{
		FrequencyScore: FrequencyScore(req.UsedCount, req.EditCount, req.Rating),
		EditCount:      req.EditCount,
		Rating:         req.Rating,
		UsedCount:      req.UsedCount,
	}

	err := retry.DoErr(ctx, s.retry, func(ctx context.Context) error {
		err := s.index.UpdateUsage(ctx, id, stats)
		if errors.Is(err, vectorindex.ErrNotFound) {
			return retry.Permanent(err)
		}
		return err
	})
	if err != nil {
		return models.UsageStats{}, err
	}

	s.logger.Debug().
		Str("example_id", id).
		Float64("frequency_score", stats.FrequencyScore).
		Msg("Usage updated")
	return stats, nil
}

// PurgeResult reports what a purge removed
type PurgeResult struct {
	UserID          string `json:"user_id"`
	ProfilesDeleted int64  `json:"profiles_deleted"`
}

// Purge deletes everything stored for userID. The index goes first so that a
// partial failure never leaves examples behind without their profiles.
func (s *Service) Purge(ctx context.Context, userID string) (*PurgeResult, error) {
	if userID == "" {
		return nil, ErrUserRequired
	}

	if err := retry.DoErr(ctx, s.retry, func(ctx context.Context) error {
		return s.index.DeleteByUser(ctx, userID)
	}); err != nil {
		return nil, fmt.Errorf("failed to delete indexed examples: %w", err)
	}

	result := &PurgeResult{UserID: userID}
	if s.profiles != nil {
		n, err := s.profiles.DeleteByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		result.ProfilesDeleted = n
	}
	if s.relationships != nil {
		if err := s.relationships.DeleteByUser(ctx, userID); err != nil {
			return nil, err
		}
	}
	if s.credentials != nil {
		if err := s.credentials.DeleteByUser(ctx, userID); err != nil {
			return nil, err
		}
	}

	s.logger.Info().
		Str("user_id", userID).
		Int64("profiles_deleted", result.ProfilesDeleted).
		Msg("User data purged")
	return result, nil
}
