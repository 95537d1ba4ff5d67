package ports

import (
	"context"
	"io"
	"time"

	"github.com/priyanshu-3/SkinCare/internal/core/domain"
)

// IPGeolocator looks up the location of an IP address.
// An empty ip means "the caller's own public address".
type IPGeolocator interface {
	Lookup(ctx context.Context, ip string) (*domain.IPGeolocateResult, error)
}

// ReverseGeocoder converts coordinates into an address.
type ReverseGeocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (*domain.ReverseGeocodeResult, error)
}

// PositionOptions mirrors the platform geolocation request options.
type PositionOptions struct {
	EnableHighAccuracy bool
	Timeout            time.Duration
	MaximumAge         time.Duration
}

// DefaultPositionOptions requests a fresh, high-accuracy fix within 10 seconds.
func DefaultPositionOptions() PositionOptions {
	return PositionOptions{
		EnableHighAccuracy: true,
		Timeout:            10 * time.Second,
		MaximumAge:         0,
	}
}

// PositionProvider is the device geolocation capability.
// Failures should be reported as *domain.GeolocationError.
type PositionProvider interface {
	CurrentPosition(ctx context.Context, opts PositionOptions) (domain.Coordinates, error)
}

// EventPublisher publishes resolution events to a message broker.
type EventPublisher interface {
	PublishResolution(ctx context.Context, ev domain.ResolutionEvent) error
}

// EventSubscriber receives resolution events from a message broker.
type EventSubscriber interface {
	SubscribeResolutions(ctx context.Context, handler func(ctx context.Context, ev domain.ResolutionEvent) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// ReportStore persists exported reports in object storage.
type ReportStore interface {
	PutReport(ctx context.Context, key, contentType string, r io.Reader, size int64) error
}
