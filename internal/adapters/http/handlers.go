package http

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/priyanshu-3/SkinCare/internal/adapters/geocoding"
	"github.com/priyanshu-3/SkinCare/internal/core/domain"
	"github.com/priyanshu-3/SkinCare/internal/core/usecases"
)

// positionBody is a device reading taken by the client.
type positionBody struct {
	Latitude       *float64 `json:"latitude"`
	Longitude      *float64 `json:"longitude"`
	AccuracyMeters float64  `json:"accuracy_meters"`
}

// resolveBody is the request body of POST /v1/location/resolve.
// Position and GeolocationError are mutually exclusive; sending neither
// means the client has no geolocation capability.
type resolveBody struct {
	FormID             string        `json:"form_id"`
	Order              string        `json:"order"`
	Position           *positionBody `json:"position"`
	GeolocationError   string        `json:"geolocation_error"`
	GeolocationMessage string        `json:"geolocation_message"`
}

const (
	maxFormIDLen     = 200
	errFormIDTooLong = "form_id too long (max 200 characters)"
)

// ResolveLocationHandler runs one resolution for a form.
func ResolveLocationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body resolveBody
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&body); err != nil {
				return errBadRequest(c, "invalid request body")
			}
		}

		req, msg := buildResolveRequest(c, deps, &body)
		if msg != "" {
			return errBadRequest(c, msg)
		}

		res, err := deps.Resolutions.Resolve(c.UserContext(), body.FormID, req)
		if res != nil {
			c.Set("X-Resolution-ID", res.ID)
		}
		if err != nil {
			return errFromService(c, err)
		}
		return c.JSON(res)
	}
}

// buildResolveRequest validates body. It returns a non-empty message for
// malformed input.
func buildResolveRequest(c *fiber.Ctx, deps *Dependencies, body *resolveBody) (usecases.ResolveRequest, string) {
	var req usecases.ResolveRequest

	order, ok := deps.parseOrder(body.Order)
	if !ok {
		return req, "order must be one of ip_first, gps_first, ip_only, gps_only"
	}
	req.Order = order

	if len(body.FormID) > maxFormIDLen {
		return req, errFormIDTooLong
	}

	var reading *domain.Coordinates
	if p := body.Position; p != nil {
		if body.GeolocationError != "" {
			return req, "position and geolocation_error are mutually exclusive"
		}
		if p.Latitude == nil || p.Longitude == nil {
			return req, "position requires latitude and longitude"
		}
		if isNaNOrInf(*p.Latitude) || isNaNOrInf(*p.Longitude) || isNaNOrInf(p.AccuracyMeters) {
			return req, "position must be finite"
		}
		reading = &domain.Coordinates{Latitude: *p.Latitude, Longitude: *p.Longitude, AccuracyMeters: p.AccuracyMeters}
	}

	provider, err := geocoding.PositionFromReport(reading, body.GeolocationError, body.GeolocationMessage)
	if err != nil {
		return req, err.Error()
	}
	req.Position = provider

	if deps.ForwardClientIP {
		req.ClientIP = c.IP()
	}
	return req, ""
}

func isNaNOrInf(f float64) bool {
	return math.IsNaN(f) || math.IsInf(f, 0)
}

// ReverseGeocodeHandler formats a reverse-geocode lookup for diagnostics.
func ReverseGeocodeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
		lon, errLon := strconv.ParseFloat(c.Query("lon"), 64)
		if errLat != nil || errLon != nil {
			return errBadRequest(c, "lat and lon are required")
		}
		coords := domain.Coordinates{Latitude: lat, Longitude: lon}
		if !coords.Valid() {
			return errBadRequest(c, "lat must be within [-90, 90] and lon within [-180, 180]")
		}

		res, err := deps.Reverse.Reverse(c.UserContext(), lat, lon)
		if err != nil {
			LoggerFromCtx(c.UserContext()).Warn("reverse geocode failed", "error", err)
			return errBadGateway(c, "reverse geocoding is unavailable")
		}

		text, source := usecases.FormatReverseGeocode(res, coords)
		c.Set("Cache-Control", "public, max-age=300")
		return c.JSON(fiber.Map{
			"text":   text,
			"source": source,
			"result": res,
		})
	}
}

// IPLookupHandler formats the IP lookup for the caller.
func IPLookupHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ip := ""
		if deps.ForwardClientIP {
			ip = c.IP()
		}

		res, err := deps.IP.Lookup(c.UserContext(), ip)
		if err != nil {
			LoggerFromCtx(c.UserContext()).Warn("ip lookup failed", "error", err)
			return errBadGateway(c, "ip lookup is unavailable")
		}
		if res.Error {
			return newError(c, 422, string(domain.ErrCodeIPLookupFailed), res.Reason)
		}

		return c.JSON(fiber.Map{
			"text":   usecases.FormatIPLocation(res),
			"source": domain.SourceIP,
			"result": res,
		})
	}
}

// ListResolutionsHandler returns recorded resolutions, newest first.
func ListResolutionsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 20)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 100 {
			limit = 20
		}

		items, total, err := deps.Resolutions.List(c.UserContext(), offset, limit)
		if err != nil {
			return errFromService(c, err)
		}
		if items == nil {
			items = []domain.Resolution{}
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse[domain.Resolution]{Data: items, Pagination: pg})
	}
}

// GetResolutionHandler returns a single recorded resolution.
func GetResolutionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "resolution id is required")
		}
		res, err := deps.Resolutions.Get(c.UserContext(), id)
		if err != nil {
			return errFromService(c, err)
		}
		return c.JSON(res)
	}
}

// RefineResolutionHandler retries reverse geocoding for a numeric fallback.
func RefineResolutionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		res, refined, err := deps.Resolutions.Refine(c.UserContext(), id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrHistoryDisabled) {
				return errFromService(c, err)
			}
			LoggerFromCtx(c.UserContext()).Warn("refine failed", "resolution_id", id, "error", err)
			return errBadGateway(c, "reverse geocoding is unavailable")
		}
		return c.JSON(fiber.Map{
			"refined":    refined,
			"resolution": res,
		})
	}
}

// ExportCSVHandler streams the resolution history as CSV.
func ExportCSVHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="resolutions.csv"`)
		c.Set("Cache-Control", "no-store")

		if _, err := deps.Exports.WriteCSV(c.UserContext(), c); err != nil {
			c.Response().ResetBody()
			return errFromService(c, err)
		}
		return nil
	}
}

// ExportReportHandler uploads a CSV report to object storage.
func ExportReportHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key, err := deps.Exports.ExportToStore(c.UserContext())
		if err != nil {
			return errFromService(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"key": key})
	}
}

// FormLocationHandler records a manual edit of a form's location field.
// Resolutions already in flight for the form come back stale.
func FormLocationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		formID := c.Params("id")
		if len(formID) > maxFormIDLen {
			return errBadRequest(c, errFormIDTooLong)
		}
		var body struct {
			Location *string `json:"location"`
		}
		if err := c.BodyParser(&body); err != nil || body.Location == nil {
			return errBadRequest(c, "location is required")
		}

		rev := deps.Resolutions.MarkEdited(formID)
		return c.JSON(fiber.Map{
			"form_id":  formID,
			"location": strings.TrimSpace(*body.Location),
			"revision": rev,
		})
	}
}
