// Package advisor produces free-text maintenance advice for a vehicle and
// service area, and caches it per (vehicle, area).
package advisor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"service-advisor/internal/models"
)

// Advisor returns advice for one vehicle and area. Implementations must be
// safe for concurrent use.
type Advisor interface {
	GetAdvice(ctx context.Context, query models.AdvisoryQuery) (*models.AdvisoryResult, error)
}

// AdvisorFunc adapts a plain function to the Advisor interface.
type AdvisorFunc func(ctx context.Context, query models.AdvisoryQuery) (*models.AdvisoryResult, error)

func (f AdvisorFunc) GetAdvice(ctx context.Context, query models.AdvisoryQuery) (*models.AdvisoryResult, error) {
	return f(ctx, query)
}

var (
	// ErrRateLimited marks a throttled provider call. Match with errors.Is.
	ErrRateLimited = errors.New("advisory provider rate limited")

	// ErrProviderUnavailable marks a provider that could not be reached.
	ErrProviderUnavailable = errors.New("advisory provider unavailable")
)

// RateLimitError carries the provider's retry hint.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s: rate limited, retry after %s", e.Provider, e.RetryAfter)
	}
	return fmt.Sprintf("%s: rate limited", e.Provider)
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

const (
	aiTitle          = "AI suggestion"
	indicativeNote   = "Values are indicative. Confirm them in the owner's manual or with a mechanic."
	providerFailNote = "Could not fetch AI data. Try again, or rely on the rules-based service status."
)

// DegradedResult builds a valid result for a provider failure that should not
// surface as an error.
func DegradedResult(reason string) *models.AdvisoryResult {
	return &models.AdvisoryResult{
		Summary:      fmt.Sprintf("%s unavailable: %s", aiTitle, reason),
		KeyIntervals: []string{},
		Sources:      []models.AdvisorySource{},
		SafetyNote:   providerFailNote,
		Degraded:     true,
	}
}

// ThrottledResult is returned when the provider is throttled and no earlier
// advice exists for the key.
func ThrottledResult() *models.AdvisoryResult {
	return &models.AdvisoryResult{
		Summary:      aiTitle + " temporarily unavailable",
		KeyIntervals: []string{"The AI request limit was exceeded for now."},
		Sources:      []models.AdvisorySource{},
		SafetyNote:   "Try again later. Until then, rely on the rules-based service status.",
		Degraded:     true,
	}
}
