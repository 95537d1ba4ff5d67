package usecases

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/priyanshu-3/SkinCare/internal/core/domain"
	"github.com/priyanshu-3/SkinCare/internal/core/ports"
	"github.com/priyanshu-3/SkinCare/internal/pkg/geospatial"
	"github.com/priyanshu-3/SkinCare/internal/pkg/metrics"
)

// CachedReverseGeocoder serves reverse-geocode answers from cache for readings
// that fall in the same grid cell as an earlier lookup.
type CachedReverseGeocoder struct {
	next       ports.ReverseGeocoder
	cache      ports.CacheService
	cellMeters float64
	ttlSeconds int
}

// NewCachedReverseGeocoder wraps next. A nil cache disables caching.
func NewCachedReverseGeocoder(next ports.ReverseGeocoder, cache ports.CacheService, cellMeters float64, ttlSeconds int) *CachedReverseGeocoder {
	return &CachedReverseGeocoder{next: next, cache: cache, cellMeters: cellMeters, ttlSeconds: ttlSeconds}
}

type cachedReverse struct {
	Lat    float64                      `json:"lat"`
	Lon    float64                      `json:"lon"`
	Result *domain.ReverseGeocodeResult `json:"result"`
}

// Reverse implements ports.ReverseGeocoder.
func (g *CachedReverseGeocoder) Reverse(ctx context.Context, lat, lon float64) (*domain.ReverseGeocodeResult, error) {
	if g.cache == nil {
		return g.next.Reverse(ctx, lat, lon)
	}

	slat, slon := geospatial.Snap(lat, lon, g.cellMeters)
	cacheKey := fmt.Sprintf("geo:reverse:%.6f:%.6f", slat, slon)
	if data, err := g.cache.Get(ctx, cacheKey); err == nil {
		var entry cachedReverse
		if err := json.Unmarshal(data, &entry); err == nil && entry.Result != nil &&
			geospatial.Haversine(lat, lon, entry.Lat, entry.Lon) <= 2*g.cellMeters {
			metrics.CacheHits.WithLabelValues("reverse_geocode").Inc()
			return entry.Result, nil
		}
	}
	metrics.CacheMisses.WithLabelValues("reverse_geocode").Inc()

	res, err := g.next.Reverse(ctx, lat, lon)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(cachedReverse{Lat: lat, Lon: lon, Result: res}); err == nil {
		_ = g.cache.Set(ctx, cacheKey, data, g.ttlSeconds)
	}
	return res, nil
}

// CachedIPGeolocator caches IP lookups per address. Lookups for the caller's
// own address (empty ip) and answers flagged as errors are never cached.
type CachedIPGeolocator struct {
	next       ports.IPGeolocator
	cache      ports.CacheService
	ttlSeconds int
}

// NewCachedIPGeolocator wraps next. A nil cache disables caching.
func NewCachedIPGeolocator(next ports.IPGeolocator, cache ports.CacheService, ttlSeconds int) *CachedIPGeolocator {
	return &CachedIPGeolocator{next: next, cache: cache, ttlSeconds: ttlSeconds}
}

// Lookup implements ports.IPGeolocator.
func (g *CachedIPGeolocator) Lookup(ctx context.Context, ip string) (*domain.IPGeolocateResult, error) {
	if g.cache == nil || ip == "" {
		return g.next.Lookup(ctx, ip)
	}

	cacheKey := "geo:ip:" + ip
	if data, err := g.cache.Get(ctx, cacheKey); err == nil {
		var res domain.IPGeolocateResult
		if err := json.Unmarshal(data, &res); err == nil {
			metrics.CacheHits.WithLabelValues("ip_lookup").Inc()
			return &res, nil
		}
	}
	metrics.CacheMisses.WithLabelValues("ip_lookup").Inc()

	res, err := g.next.Lookup(ctx, ip)
	if err != nil {
		return nil, err
	}
	if !res.Error {
		if data, err := json.Marshal(res); err == nil {
			_ = g.cache.Set(ctx, cacheKey, data, g.ttlSeconds)
		}
	}
	return res, nil
}
