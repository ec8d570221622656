// Package relationship classifies how a user relates to a recipient.
package relationship

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"tonelearn/internal/cache"
	"tonelearn/internal/models"
	"tonelearn/internal/nlp"
)

// Detection methods recorded on every classification
const (
	MethodUserDefined    = "user_defined"
	MethodDomainMatch    = "domain_match"
	MethodLinguistic     = "linguistic"
	MethodPersonalDomain = "personal_domain"
	MethodDefault        = "default"
)

var familyMarkers = map[string]bool{
	"mum": true, "mom": true, "dad": true, "grandma": true, "sis": true, "bro": true,
}

// Store looks up what the user has told us about their contacts
type Store interface {
	// GetRelationship returns nil when the user has not classified the recipient.
	GetRelationship(ctx context.Context, userID, recipientEmail string) (*models.RelationshipClassification, error)
	// GetPrimaryAddress returns "" when the user has no registered account.
	GetPrimaryAddress(ctx context.Context, userID string) (string, error)
}

// Hints are linguistic signals taken from the text being classified
type Hints struct {
	FormalityScore      float64
	IntimacyMarkers     []string
	ProfessionalMarkers []string
}

// HintsFrom builds hints from an extracted feature bag
func HintsFrom(f models.NLPFeatures) *Hints {
	return &Hints{
		FormalityScore:      f.FormalityScore,
		IntimacyMarkers:     f.IntimacyMarkers,
		ProfessionalMarkers: f.ProfessionalMarkers,
	}
}

// Request identifies the recipient to classify
type Request struct {
	UserID         string
	RecipientEmail string
	Subject        string
	Hints          *Hints
}

// Detector classifies recipients. Results computed without hints are cached
// per (user, recipient) since they only depend on stored data.
type Detector struct {
	store  Store
	cache  *cache.Cache[models.RelationshipClassification]
	logger zerolog.Logger
}

// NewDetector creates a detector. store and c may be nil.
func NewDetector(store Store, c *cache.Cache[models.RelationshipClassification], logger zerolog.Logger) *Detector {
	return &Detector{
		store:  store,
		cache:  c,
		logger: logger.With().Str("component", "relationship").Logger(),
	}
}

// Detect returns the relationship classification for req
func (d *Detector) Detect(ctx context.Context, req Request) (models.RelationshipClassification, error) {
	recipient := models.NormalizeEmail(req.RecipientEmail)
	key := req.UserID + "\x00" + recipient

	if req.Hints == nil && d.cache != nil {
		if cached, ok := d.cache.Get(key); ok {
			return cached, nil
		}
	}

	result, err := d.detect(ctx, req.UserID, recipient, req.Hints)
	if err != nil {
		return models.RelationshipClassification{}, err
	}

	if req.Hints == nil && d.cache != nil {
		d.cache.Set(key, result)
	}

	d.logger.Debug().
		Str("user_id", req.UserID).
		Str("recipient", recipient).
		Str("type", result.Type).
		Str("method", result.DetectionMethod).
		Float64("confidence", result.Confidence).
		Msg("Relationship detected")
	return result, nil
}

// Forget drops a cached classification after the user changes it
func (d *Detector) Forget(userID, recipientEmail string) {
	if d.cache != nil {
		d.cache.Delete(userID + "\x00" + models.NormalizeEmail(recipientEmail))
	}
}

func (d *Detector) detect(ctx context.Context, userID, recipient string, hints *Hints) (models.RelationshipClassification, error) {
	recipientDomain := models.EmailDomain(recipient)

	if d.store != nil && userID != "" {
		stored, err := d.store.GetRelationship(ctx, userID, recipient)
		if err != nil {
			return models.RelationshipClassification{}, fmt.Errorf("failed to load stored relationship: %w", err)
		}
		if stored != nil && stored.Type != "" {
			return classification(stored.Type, 1.0, MethodUserDefined), nil
		}

		primary, err := d.store.GetPrimaryAddress(ctx, userID)
		if err != nil {
			return models.RelationshipClassification{}, fmt.Errorf("failed to load user address: %w", err)
		}
		userDomain := models.EmailDomain(primary)
		if userDomain != "" && userDomain == recipientDomain && !nlp.IsPersonalDomain(userDomain) {
			return classification(models.RelationshipColleague, 0.85, MethodDomainMatch), nil
		}
	}

	if hints != nil {
		if c, ok := fromHints(hints); ok {
			return c, nil
		}
	}

	if nlp.IsPersonalDomain(recipientDomain) {
		return classification(models.RelationshipFriend, 0.5, MethodPersonalDomain), nil
	}

	return classification(models.RelationshipExternal, 0.3, MethodDefault), nil
}

func fromHints(h *Hints) (models.RelationshipClassification, bool) {
	family := 0
	for _, m := range h.IntimacyMarkers {
		if familyMarkers[strings.ToLower(m)] {
			family++
		}
	}
	intimate := len(h.IntimacyMarkers) - family

	switch {
	case family > 0:
		return classification(models.RelationshipFamily, 0.7, MethodLinguistic), true
	case intimate >= 2:
		return classification(models.RelationshipSpouse, 0.7, MethodLinguistic), true
	case intimate == 1:
		return classification(models.RelationshipFriend, 0.6, MethodLinguistic), true
	case len(h.ProfessionalMarkers) >= 2 && h.FormalityScore >= 0.6:
		return classification(models.RelationshipExternal, 0.6, MethodLinguistic), true
	case len(h.ProfessionalMarkers) == 0 && h.FormalityScore > 0 && h.FormalityScore < 0.35:
		return classification(models.RelationshipFriend, 0.5, MethodLinguistic), true
	}
	return models.RelationshipClassification{}, false
}

func classification(t string, confidence float64, method string) models.RelationshipClassification {
	return models.RelationshipClassification{Type: t, Confidence: confidence, DetectionMethod: method}
}
