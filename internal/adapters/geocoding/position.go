package geocoding

import (
	"context"
	"fmt"

	"github.com/priyanshu-3/SkinCare/internal/core/domain"
	"github.com/priyanshu-3/SkinCare/internal/core/ports"
)

// ReportedPosition replays a reading, or a typed failure, that a client took
// from its own device and sent along with the request.
type ReportedPosition struct {
	Reading *domain.Coordinates
	Err     *domain.GeolocationError
}

// CurrentPosition implements ports.PositionProvider.
func (p *ReportedPosition) CurrentPosition(ctx context.Context, _ ports.PositionOptions) (domain.Coordinates, error) {
	if err := ctx.Err(); err != nil {
		return domain.Coordinates{}, err
	}
	if p.Err != nil {
		return domain.Coordinates{}, p.Err
	}
	if p.Reading == nil {
		return domain.Coordinates{}, &domain.GeolocationError{Code: domain.ErrCodePositionUnavailable}
	}
	return *p.Reading, nil
}

// PositionFromReport builds the provider for a client report. It returns nil
// when the client has no geolocation capability, i.e. it sent neither a
// reading nor a failure, or explicitly reported no_geolocation_support.
func PositionFromReport(reading *domain.Coordinates, failure, message string) (ports.PositionProvider, error) {
	if failure == "" {
		if reading == nil {
			return nil, nil
		}
		return &ReportedPosition{Reading: reading}, nil
	}

	code, ok := domain.ParseGeolocationCode(failure)
	if !ok {
		return nil, fmt.Errorf("unknown geolocation error %q", failure)
	}
	if code == domain.ErrCodeUnsupported {
		return nil, nil
	}
	return &ReportedPosition{Err: &domain.GeolocationError{Code: code, Message: message}}, nil
}
