package domain

import (
	"encoding/json"
	"time"
)

// Source tells which level of the fallback chain produced a location text.
type Source string

const (
	SourceIP          Source = "ip"           // IP geolocation
	SourceAddress     Source = "address"      // structured reverse-geocode address
	SourceDisplayName Source = "display_name" // free-text reverse-geocode display name
	SourceCoordinates Source = "coordinates"  // numeric lat/lon fallback
)

// Stage is a state of the resolution state machine.
type Stage string

const (
	StageIPLookup       Stage = "ip_lookup"
	StageGPSLookup      Stage = "gps_lookup"
	StageReverseGeocode Stage = "reverse_geocode"
)

// Order selects how the fallback levels are sequenced.
type Order string

const (
	OrderIPFirst  Order = "ip_first"
	OrderGPSFirst Order = "gps_first"
	OrderIPOnly   Order = "ip_only"
	OrderGPSOnly  Order = "gps_only"
)

// ParseOrder returns the order named by s; empty selects IP-first.
func ParseOrder(s string) (Order, bool) {
	switch o := Order(s); o {
	case "":
		return OrderIPFirst, true
	case OrderIPFirst, OrderGPSFirst, OrderIPOnly, OrderGPSOnly:
		return o, true
	}
	return "", false
}

// Address maps place-type keys (city, town, hamlet, state, country, ...) to names.
type Address map[string]string

// First returns the first non-empty value among keys.
func (a Address) First(keys ...string) string {
	for _, k := range keys {
		if v := a[k]; v != "" {
			return v
		}
	}
	return ""
}

// ReverseGeocodeResult is the reverse-geocoding collaborator's answer.
// DisplayName is ordered nearest feature first.
type ReverseGeocodeResult struct {
	DisplayName string          `json:"display_name"`
	Address     Address         `json:"address"`
	Raw         json.RawMessage `json:"raw,omitempty"`
}

// IPGeolocateResult is the IP-geolocation collaborator's answer.
type IPGeolocateResult struct {
	IP          string          `json:"ip,omitempty"`
	City        string          `json:"city,omitempty"`
	Region      string          `json:"region,omitempty"`
	CountryName string          `json:"country_name,omitempty"`
	Error       bool            `json:"error,omitempty"`
	Reason      string          `json:"reason,omitempty"`
	Raw         json.RawMessage `json:"raw,omitempty"`
}

// StageAttempt records one stage entered during a resolution.
type StageAttempt struct {
	Stage   Stage  `json:"stage"`
	Outcome string `json:"outcome"` // "ok" or "failed"
	Error   string `json:"error,omitempty"`
}

// ResolvedLocation is the output of one successful resolution.
type ResolvedLocation struct {
	Text        string                `json:"text"`
	Source      Source                `json:"source"`
	Coordinates *Coordinates          `json:"coordinates,omitempty"`
	IP          *IPGeolocateResult    `json:"ip,omitempty"`
	Reverse     *ReverseGeocodeResult `json:"reverse,omitempty"`
	Trail       []StageAttempt        `json:"trail"`
}

// ResolutionStatus is the terminal state of a resolution.
type ResolutionStatus string

const (
	StatusResolved ResolutionStatus = "resolved"
	StatusFailed   ResolutionStatus = "failed"
)

// Resolution is a recorded resolution attempt, kept for diagnostic display.
type Resolution struct {
	ID           string            `json:"id"`
	FormID       string            `json:"form_id,omitempty"`
	Status       ResolutionStatus  `json:"status"`
	Location     *ResolvedLocation `json:"location,omitempty"`
	ErrorCode    ErrorCode         `json:"error_code,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
	Stale        bool              `json:"stale"`
	CreatedAt    time.Time         `json:"created_at"`
	RefinedAt    *time.Time        `json:"refined_at,omitempty"`
}

// Text returns the resolved text, or "" for failed resolutions.
func (r *Resolution) Text() string {
	if r.Location == nil {
		return ""
	}
	return r.Location.Text
}

// ResolutionEvent is published after every recorded resolution.
type ResolutionEvent struct {
	ResolutionID string           `json:"resolution_id"`
	FormID       string           `json:"form_id,omitempty"`
	Status       ResolutionStatus `json:"status"`
	Text         string           `json:"text,omitempty"`
	Source       Source           `json:"source,omitempty"`
	ErrorCode    ErrorCode        `json:"error_code,omitempty"`
	Refined      bool             `json:"refined,omitempty"`
	Time         time.Time        `json:"time"`
}

// NewResolutionEvent builds the event describing r.
func NewResolutionEvent(r *Resolution, refined bool) ResolutionEvent {
	ev := ResolutionEvent{
		ResolutionID: r.ID,
		FormID:       r.FormID,
		Status:       r.Status,
		ErrorCode:    r.ErrorCode,
		Refined:      refined,
		Time:         time.Now().UTC(),
	}
	if r.Location != nil {
		ev.Text = r.Location.Text
		ev.Source = r.Location.Source
	}
	return ev
}
