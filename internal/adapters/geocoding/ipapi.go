package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/priyanshu-3/SkinCare/internal/core/domain"
	"github.com/priyanshu-3/SkinCare/internal/pkg/metrics"
)

// IPAPIClient geolocates IP addresses through an ipapi.co compatible service.
type IPAPIClient struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// NewIPAPIClient creates a client for baseURL (e.g. https://ipapi.co).
func NewIPAPIClient(baseURL, userAgent string, timeout time.Duration) *IPAPIClient {
	return &IPAPIClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
	}
}

type ipapiResponse struct {
	IP          string `json:"ip"`
	City        string `json:"city"`
	Region      string `json:"region"`
	CountryName string `json:"country_name"`
	Error       bool   `json:"error"`
	Reason      string `json:"reason"`
}

// Lookup implements ports.IPGeolocator. An empty ip looks up the address the
// request arrives from.
func (c *IPAPIClient) Lookup(ctx context.Context, ip string) (*domain.IPGeolocateResult, error) {
	start := time.Now()
	res, err := c.lookup(ctx, ip)
	metrics.ObserveCollaborator("ipapi", start, err)
	return res, err
}

func (c *IPAPIClient) lookup(ctx context.Context, ip string) (*domain.IPGeolocateResult, error) {
	endpoint := c.baseURL + "/json/"
	if ip != "" {
		endpoint = c.baseURL + "/" + url.PathEscape(ip) + "/json/"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("ipapi: build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ipapi: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("ipapi: read body: %w", err)
	}

	var payload ipapiResponse
	decodeErr := json.Unmarshal(body, &payload)

	// Rate limiting and reserved ranges come back as {"error": true, "reason": ...},
	// sometimes with a non-2xx status.
	if decodeErr == nil && payload.Error {
		return &domain.IPGeolocateResult{IP: payload.IP, Error: true, Reason: payload.Reason, Raw: json.RawMessage(body)}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ipapi: unexpected status %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("ipapi: decode: %w", decodeErr)
	}

	return &domain.IPGeolocateResult{
		IP:          payload.IP,
		City:        payload.City,
		Region:      payload.Region,
		CountryName: payload.CountryName,
		Raw:         json.RawMessage(body),
	}, nil
}
