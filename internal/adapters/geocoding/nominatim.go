// Package geocoding holds the HTTP clients for the location collaborators.
package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/priyanshu-3/SkinCare/internal/core/domain"
	"github.com/priyanshu-3/SkinCare/internal/pkg/metrics"
)

const maxResponseBytes = 1 << 20

// NominatimClient reverse-geocodes coordinates through an OSM Nominatim server.
type NominatimClient struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	language   string
}

// NewNominatimClient creates a client for baseURL (e.g. https://nominatim.openstreetmap.org).
// Nominatim's usage policy requires an identifying User-Agent.
func NewNominatimClient(baseURL, userAgent, language string, timeout time.Duration) *NominatimClient {
	if language == "" {
		language = "en"
	}
	return &NominatimClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		language:   language,
	}
}

type nominatimReverse struct {
	DisplayName string            `json:"display_name"`
	Address     map[string]string `json:"address"`
}

// Reverse implements ports.ReverseGeocoder.
func (c *NominatimClient) Reverse(ctx context.Context, lat, lon float64) (*domain.ReverseGeocodeResult, error) {
	start := time.Now()
	res, err := c.reverse(ctx, lat, lon)
	metrics.ObserveCollaborator("nominatim", start, err)
	return res, err
}

func (c *NominatimClient) reverse(ctx context.Context, lat, lon float64) (*domain.ReverseGeocodeResult, error) {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("addressdetails", "1")
	q.Set("accept-language", c.language)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("nominatim: build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nominatim: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("nominatim: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nominatim: unexpected status %d", resp.StatusCode)
	}

	var payload nominatimReverse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("nominatim: decode: %w", err)
	}

	// "Unable to geocode" (open sea, poles) is an answer, not a failure: the
	// empty result falls through to the coordinate text.
	return &domain.ReverseGeocodeResult{
		DisplayName: payload.DisplayName,
		Address:     domain.Address(payload.Address),
		Raw:         json.RawMessage(body),
	}, nil
}
