package usecases

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/priyanshu-3/SkinCare/internal/core/domain"
	"github.com/priyanshu-3/SkinCare/internal/core/ports"
)

var tracer = otel.Tracer("github.com/priyanshu-3/SkinCare/internal/core/usecases")

// ResolveRequest describes one resolution attempt.
type ResolveRequest struct {
	// ClientIP is forwarded to the IP collaborator; empty looks up the caller's own address.
	ClientIP string
	// Position is the device geolocation capability; nil means the platform has none.
	Position ports.PositionProvider
	// Order defaults to domain.OrderIPFirst.
	Order domain.Order
}

// LocationResolver turns an IP lookup or a device position into a short,
// human-readable place name through an ordered fallback chain.
// It holds no state between calls.
type LocationResolver struct {
	ip      ports.IPGeolocator
	reverse ports.ReverseGeocoder
	opts    ports.PositionOptions
}

// NewLocationResolver creates a new LocationResolver.
func NewLocationResolver(ip ports.IPGeolocator, reverse ports.ReverseGeocoder, opts ports.PositionOptions) *LocationResolver {
	return &LocationResolver{ip: ip, reverse: reverse, opts: opts}
}

// attempt accumulates the per-call state threaded through the stages.
type attempt struct {
	trail  []domain.StageAttempt
	ipErr  error
	geoErr *domain.GeolocationError
}

func (a *attempt) ok(stage domain.Stage) {
	a.trail = append(a.trail, domain.StageAttempt{Stage: stage, Outcome: "ok"})
}

func (a *attempt) fail(stage domain.Stage, err error) {
	a.trail = append(a.trail, domain.StageAttempt{Stage: stage, Outcome: "failed", Error: err.Error()})
}

// Resolve runs the fallback chain. On failure the error is a *domain.ResolutionError.
func (r *LocationResolver) Resolve(ctx context.Context, req ResolveRequest) (*domain.ResolvedLocation, error) {
	order := req.Order
	if order == "" {
		order = domain.OrderIPFirst
	}

	ctx, span := tracer.Start(ctx, "location.resolve")
	defer span.End()
	span.SetAttributes(attribute.String("location.order", string(order)))

	st := &attempt{}
	var loc *domain.ResolvedLocation

	switch order {
	case domain.OrderGPSFirst:
		if loc = r.locate(ctx, req.Position, st); loc == nil {
			loc = r.lookupIP(ctx, req.ClientIP, st)
		}
	case domain.OrderIPOnly:
		loc = r.lookupIP(ctx, req.ClientIP, st)
	case domain.OrderGPSOnly:
		loc = r.locate(ctx, req.Position, st)
	default:
		if loc = r.lookupIP(ctx, req.ClientIP, st); loc == nil {
			loc = r.locate(ctx, req.Position, st)
		}
	}

	if loc != nil {
		loc.Trail = st.trail
		span.SetAttributes(attribute.String("location.source", string(loc.Source)))
		return loc, nil
	}

	rerr := &domain.ResolutionError{IPErr: st.ipErr}
	if st.geoErr != nil {
		rerr.GeoErr = st.geoErr
	}
	// The code names the stage that ran last.
	if order == domain.OrderGPSFirst || order == domain.OrderIPOnly || st.geoErr == nil {
		rerr.Code, rerr.Stage = domain.ErrCodeIPLookupFailed, domain.StageIPLookup
	} else {
		rerr.Code, rerr.Stage = st.geoErr.Code, domain.StageGPSLookup
	}

	span.SetStatus(codes.Error, string(rerr.Code))
	slog.InfoContext(ctx, "location resolution exhausted", "order", order, "code", rerr.Code)
	return nil, rerr
}

func (r *LocationResolver) lookupIP(ctx context.Context, ip string, st *attempt) *domain.ResolvedLocation {
	ctx, span := tracer.Start(ctx, "location.ip_lookup")
	defer span.End()

	res, err := r.ip.Lookup(ctx, ip)
	if err == nil && res == nil {
		err = domain.ErrIPLookupEmpty
	}
	if err == nil && res.Error {
		err = &domain.IPLookupError{Reason: res.Reason}
	}
	var text string
	if err == nil {
		if text = FormatIPLocation(res); text == "" {
			err = domain.ErrIPLookupEmpty
		}
	}
	if err != nil {
		st.ipErr = err
		st.fail(domain.StageIPLookup, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "ip lookup failed")
		slog.DebugContext(ctx, "ip lookup failed, falling through", "error", err)
		return nil
	}

	st.ok(domain.StageIPLookup)
	return &domain.ResolvedLocation{Text: text, Source: domain.SourceIP, IP: res}
}

func (r *LocationResolver) locate(ctx context.Context, p ports.PositionProvider, st *attempt) *domain.ResolvedLocation {
	ctx, span := tracer.Start(ctx, "location.gps_lookup")
	defer span.End()

	coords, gerr := r.currentPosition(ctx, p)
	if gerr != nil {
		st.geoErr = gerr
		st.fail(domain.StageGPSLookup, gerr)
		span.SetStatus(codes.Error, string(gerr.Code))
		slog.DebugContext(ctx, "device position unavailable", "code", gerr.Code)
		return nil
	}
	st.ok(domain.StageGPSLookup)
	span.SetAttributes(attribute.Float64("location.accuracy_m", coords.AccuracyMeters))

	loc := &domain.ResolvedLocation{Coordinates: &coords}
	res, err := r.reverse.Reverse(ctx, coords.Latitude, coords.Longitude)
	if err != nil {
		// The coordinates are still a usable value; the textual detail is lost.
		st.fail(domain.StageReverseGeocode, err)
		span.RecordError(err)
		slog.WarnContext(ctx, "reverse geocoding failed, using coordinates", "error", err)
		loc.Text, loc.Source = coords.Numeric(), domain.SourceCoordinates
		return loc
	}

	st.ok(domain.StageReverseGeocode)
	loc.Reverse = res
	loc.Text, loc.Source = FormatReverseGeocode(res, coords)
	return loc
}

type positionReading struct {
	coords domain.Coordinates
	err    error
}

// currentPosition asks p for a fix, bounded by the configured timeout even if
// the provider ignores its context.
func (r *LocationResolver) currentPosition(ctx context.Context, p ports.PositionProvider) (domain.Coordinates, *domain.GeolocationError) {
	if p == nil {
		return domain.Coordinates{}, &domain.GeolocationError{Code: domain.ErrCodeUnsupported}
	}

	pctx := ctx
	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	ch := make(chan positionReading, 1)
	go func() {
		c, err := p.CurrentPosition(pctx, r.opts)
		ch <- positionReading{coords: c, err: err}
	}()

	var rd positionReading
	select {
	case rd = <-ch:
	case <-pctx.Done():
		rd.err = pctx.Err()
	}

	if rd.err == nil && !rd.coords.Valid() {
		return rd.coords, &domain.GeolocationError{Code: domain.ErrCodePositionUnavailable, Message: "reading out of range"}
	}
	if rd.err == nil {
		return rd.coords, nil
	}

	var gerr *domain.GeolocationError
	switch {
	case errors.As(rd.err, &gerr):
		return rd.coords, gerr
	case errors.Is(rd.err, context.DeadlineExceeded):
		return rd.coords, &domain.GeolocationError{Code: domain.ErrCodeTimeout, Message: rd.err.Error()}
	default:
		return rd.coords, &domain.GeolocationError{Code: domain.ErrCodePositionUnavailable, Message: rd.err.Error()}
	}
}
