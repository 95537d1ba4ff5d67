package geocoding

import (
	"context"
	"errors"
	"testing"

	"github.com/priyanshu-3/SkinCare/internal/core/domain"
	"github.com/priyanshu-3/SkinCare/internal/core/ports"
)

func TestPositionFromReport(t *testing.T) {
	reading := &domain.Coordinates{Latitude: 10, Longitude: 20, AccuracyMeters: 5}

	p, err := PositionFromReport(nil, "", "")
	if err != nil || p != nil {
		t.Errorf("expected no provider for an empty report, got %v %v", p, err)
	}
	p, err = PositionFromReport(nil, "no_geolocation_support", "")
	if err != nil || p != nil {
		t.Errorf("expected no provider for unsupported, got %v %v", p, err)
	}
	if _, err = PositionFromReport(nil, "exploded", ""); err == nil {
		t.Error("expected unknown failure code to be rejected")
	}

	p, _ = PositionFromReport(reading, "", "")
	c, err := p.CurrentPosition(context.Background(), ports.DefaultPositionOptions())
	if err != nil || c != *reading {
		t.Errorf("expected reading back, got %+v %v", c, err)
	}

	p, _ = PositionFromReport(nil, "permission_denied", "User denied Geolocation")
	_, err = p.CurrentPosition(context.Background(), ports.DefaultPositionOptions())
	var gerr *domain.GeolocationError
	if !errors.As(err, &gerr) || gerr.Code != domain.ErrCodePermissionDenied {
		t.Errorf("expected permission_denied, got %v", err)
	}
}
