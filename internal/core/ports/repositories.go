package ports

import (
	"context"
	"time"

	"github.com/priyanshu-3/SkinCare/internal/core/domain"
)

// ResolutionRepository persists resolution attempts for diagnostics.
type ResolutionRepository interface {
	// Insert stores r and fills in its ID and CreatedAt.
	Insert(ctx context.Context, r *domain.Resolution) error
	GetByID(ctx context.Context, id string) (*domain.Resolution, error)
	// List returns a page of resolutions, newest first, and the total count.
	List(ctx context.Context, offset, limit int) ([]domain.Resolution, int, error)
	// UpdateLocation replaces the location of a numeric-fallback resolution.
	UpdateLocation(ctx context.Context, id string, loc *domain.ResolvedLocation, refinedAt time.Time) error
}
