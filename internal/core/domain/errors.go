package domain

import (
	"errors"
	"fmt"
)

// ErrorCode identifies why a resolution (or one of its stages) failed.
type ErrorCode string

const (
	ErrCodeIPLookupFailed      ErrorCode = "ip_lookup_failed"
	ErrCodeUnsupported         ErrorCode = "no_geolocation_support"
	ErrCodePermissionDenied    ErrorCode = "permission_denied"
	ErrCodePositionUnavailable ErrorCode = "position_unavailable"
	ErrCodeTimeout             ErrorCode = "timeout"
)

// ParseGeolocationCode maps a platform failure name to its code.
func ParseGeolocationCode(s string) (ErrorCode, bool) {
	switch c := ErrorCode(s); c {
	case ErrCodeUnsupported, ErrCodePermissionDenied, ErrCodePositionUnavailable, ErrCodeTimeout:
		return c, true
	}
	return "", false
}

var (
	// ErrIPLookupEmpty is returned when the IP collaborator answers without any usable field.
	ErrIPLookupEmpty = errors.New("ip lookup returned no location")
	// ErrNotFound is returned by repositories for unknown IDs.
	ErrNotFound = errors.New("not found")
	// ErrHistoryDisabled is returned when no resolution repository is configured.
	ErrHistoryDisabled = errors.New("resolution history is not configured")
	// ErrStorageDisabled is returned when no report store is configured.
	ErrStorageDisabled = errors.New("report storage is not configured")
)

// GeolocationError is a typed failure from a device position provider.
type GeolocationError struct {
	Code    ErrorCode
	Message string
}

func (e *GeolocationError) Error() string {
	if e.Message == "" {
		return "geolocation: " + string(e.Code)
	}
	return fmt.Sprintf("geolocation: %s: %s", e.Code, e.Message)
}

// IPLookupError carries the reason given by the IP collaborator's error field.
type IPLookupError struct {
	Reason string
}

func (e *IPLookupError) Error() string {
	if e.Reason == "" {
		return "ip lookup: collaborator reported an error"
	}
	return "ip lookup: " + e.Reason
}

// ResolutionError is returned when every level of the fallback chain failed.
// Code names the last stage that failed.
type ResolutionError struct {
	Code   ErrorCode
	Stage  Stage
	IPErr  error
	GeoErr error
}

func (e *ResolutionError) Error() string {
	msg := "location resolution failed: " + string(e.Code)
	if e.GeoErr != nil {
		msg += "; " + e.GeoErr.Error()
	}
	if e.IPErr != nil {
		msg += "; " + e.IPErr.Error()
	}
	return msg
}

func (e *ResolutionError) Unwrap() []error {
	var errs []error
	if e.GeoErr != nil {
		errs = append(errs, e.GeoErr)
	}
	if e.IPErr != nil {
		errs = append(errs, e.IPErr)
	}
	return errs
}

// Message is a short user-facing explanation suitable for a form hint.
func (e *ResolutionError) Message() string {
	switch e.Code {
	case ErrCodePermissionDenied:
		return "Location permission was denied. Please enter your location manually."
	case ErrCodePositionUnavailable:
		return "Your position is currently unavailable. Please enter your location manually."
	case ErrCodeTimeout:
		return "Timed out while detecting your location. Please enter it manually or try again."
	case ErrCodeUnsupported:
		return "Location detection is not supported here. Please enter your location manually."
	default:
		return "Unable to detect your location. Please enter it manually."
	}
}
