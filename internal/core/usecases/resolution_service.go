package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/priyanshu-3/SkinCare/internal/core/domain"
	"github.com/priyanshu-3/SkinCare/internal/core/ports"
	"github.com/priyanshu-3/SkinCare/internal/pkg/metrics"
)

// ResolutionService runs resolutions on behalf of forms and keeps their history.
type ResolutionService struct {
	resolver  *LocationResolver
	reverse   ports.ReverseGeocoder
	repo      ports.ResolutionRepository
	publisher ports.EventPublisher
	guard     *FieldGuard
	inflight  singleflight.Group
}

// NewResolutionService creates a new ResolutionService. repo and publisher may
// be nil, in which case history and events are disabled.
func NewResolutionService(
	resolver *LocationResolver,
	reverse ports.ReverseGeocoder,
	repo ports.ResolutionRepository,
	publisher ports.EventPublisher,
) *ResolutionService {
	return &ResolutionService{
		resolver:  resolver,
		reverse:   reverse,
		repo:      repo,
		publisher: publisher,
		guard:     NewFieldGuard(),
	}
}

// Resolve runs one resolution for formID. Concurrent calls for the same form
// share a single in-flight resolution. On total failure the recorded
// resolution is returned together with the *domain.ResolutionError.
//
// A shared resolution is not cancelled with any one caller; it is bounded by
// the position timeout and the collaborator client timeouts. A caller whose
// ctx ends first returns ctx.Err() and leaves the flight running.
func (s *ResolutionService) Resolve(ctx context.Context, formID string, req ResolveRequest) (*domain.Resolution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if formID == "" {
		return s.resolve(ctx, formID, req)
	}

	ch := s.inflight.DoChan(formID, func() (interface{}, error) {
		return s.resolve(context.WithoutCancel(ctx), formID, req)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			slog.DebugContext(ctx, "joined in-flight resolution", "form_id", formID)
		}
		r, _ := res.Val.(*domain.Resolution)
		return r, res.Err
	}
}

func (s *ResolutionService) resolve(ctx context.Context, formID string, req ResolveRequest) (*domain.Resolution, error) {
	var rev uint64
	if formID != "" {
		rev = s.guard.Begin(formID)
	}

	loc, err := s.resolver.Resolve(ctx, req)

	current := formID == "" || s.guard.End(formID, rev)

	// Cancelled resolutions are neither recorded nor published.
	if cerr := ctx.Err(); cerr != nil {
		slog.DebugContext(ctx, "resolution abandoned", "form_id", formID, "error", cerr)
		return nil, cerr
	}

	r := &domain.Resolution{FormID: formID, Status: domain.StatusResolved, Location: loc}
	outcome := ""
	if err != nil {
		r.Status = domain.StatusFailed
		var rerr *domain.ResolutionError
		if errors.As(err, &rerr) {
			r.ErrorCode = rerr.Code
			r.ErrorMessage = rerr.Message()
		} else {
			r.ErrorMessage = err.Error()
		}
		outcome = string(r.ErrorCode)
	} else {
		outcome = string(loc.Source)
	}

	order := req.Order
	if order == "" {
		order = domain.OrderIPFirst
	}
	metrics.ResolutionsTotal.WithLabelValues(string(order), outcome).Inc()

	if !current {
		r.Stale = true
		metrics.StaleResolutions.Inc()
		slog.InfoContext(ctx, "resolution finished after manual edit", "form_id", formID)
	}

	s.record(ctx, r)
	s.publish(ctx, domain.NewResolutionEvent(r, false))

	return r, err
}

// record stores r. History is diagnostic only, so a storage failure never
// fails the resolution.
func (s *ResolutionService) record(ctx context.Context, r *domain.Resolution) {
	if s.repo == nil {
		r.ID = uuid.NewString()
		r.CreatedAt = time.Now().UTC()
		return
	}
	if err := s.repo.Insert(ctx, r); err != nil {
		slog.WarnContext(ctx, "failed to record resolution", "error", err)
		r.ID = uuid.NewString()
		r.CreatedAt = time.Now().UTC()
	}
}

func (s *ResolutionService) publish(ctx context.Context, ev domain.ResolutionEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishResolution(ctx, ev); err != nil {
		slog.WarnContext(ctx, "failed to publish resolution event", "resolution_id", ev.ResolutionID, "error", err)
	}
}

// MarkEdited records a manual edit of the form's location field. Resolutions
// already in flight for the form will come back stale.
func (s *ResolutionService) MarkEdited(formID string) uint64 {
	return s.guard.Edit(formID)
}

// Get returns a recorded resolution.
func (s *ResolutionService) Get(ctx context.Context, id string) (*domain.Resolution, error) {
	if s.repo == nil {
		return nil, domain.ErrHistoryDisabled
	}
	return s.repo.GetByID(ctx, id)
}

// List returns a page of recorded resolutions, newest first.
func (s *ResolutionService) List(ctx context.Context, offset, limit int) ([]domain.Resolution, int, error) {
	if s.repo == nil {
		return nil, 0, domain.ErrHistoryDisabled
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, offset, limit)
}

// Refine retries reverse geocoding for a resolution that fell back to bare
// coordinates. It reports whether the stored text was replaced. A failing
// collaborator is returned as an error so the caller may retry later.
func (s *ResolutionService) Refine(ctx context.Context, id string) (*domain.Resolution, bool, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	loc := r.Location
	if loc == nil || loc.Source != domain.SourceCoordinates || loc.Coordinates == nil {
		return r, false, nil
	}

	c := *loc.Coordinates
	res, err := s.reverse.Reverse(ctx, c.Latitude, c.Longitude)
	if err != nil {
		return nil, false, fmt.Errorf("refine %s: %w", id, err)
	}
	text, source := FormatReverseGeocode(res, c)
	if source == domain.SourceCoordinates {
		return r, false, nil
	}

	refined := *loc
	refined.Text, refined.Source, refined.Reverse = text, source, res
	refined.Trail = append(append([]domain.StageAttempt(nil), loc.Trail...),
		domain.StageAttempt{Stage: domain.StageReverseGeocode, Outcome: "ok"})

	now := time.Now().UTC()
	if err := s.repo.UpdateLocation(ctx, id, &refined, now); err != nil {
		return nil, false, fmt.Errorf("refine %s: %w", id, err)
	}
	r.Location = &refined
	r.RefinedAt = &now

	s.publish(ctx, domain.NewResolutionEvent(r, true))
	slog.InfoContext(ctx, "resolution refined", "resolution_id", id, "source", source)
	return r, true, nil
}
