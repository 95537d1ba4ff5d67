package workflows

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/priyanshu-3/SkinCare/internal/core/domain"
)

// Refiner retries reverse geocoding for a stored resolution.
type Refiner interface {
	Refine(ctx context.Context, id string) (*domain.Resolution, bool, error)
}

// RefineActivities holds the activity implementations for the refine workflow.
type RefineActivities struct {
	Refiner Refiner
}

// RefineResolution refines one resolution. Unknown resolutions and a
// missing history store are not retried.
func (a *RefineActivities) RefineResolution(ctx context.Context, id string) (bool, error) {
	_, refined, err := a.Refiner.Refine(ctx, id)
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrHistoryDisabled):
		return false, temporal.NewNonRetryableApplicationError(err.Error(), "refine_unrecoverable", err)
	case err != nil:
		activity.GetLogger(ctx).Warn("reverse geocoder still failing", "resolutionID", id, "error", err)
		return false, err
	}
	return refined, nil
}
