package usecases

import (
	"strings"

	"github.com/priyanshu-3/SkinCare/internal/core/domain"
)

// Address keys in order of preference.
var (
	primaryLocalityKeys = []string{"city", "town", "village", "municipality", "county"}
	smallLocalityKeys   = []string{"hamlet", "suburb", "neighbourhood", "road"}
	stateKeys           = []string{"state", "state_district", "region"}
)

const maxLocationParts = 3

// FormatIPLocation joins city, region and country of an IP lookup,
// skipping empty fields. It returns "" when nothing usable is present.
func FormatIPLocation(r *domain.IPGeolocateResult) string {
	if r == nil {
		return ""
	}
	return joinParts(r.City, r.Region, r.CountryName)
}

// FormatReverseGeocode turns a reverse-geocode answer into a short place string.
// The returned text is never empty: when no named place can be derived the
// coordinates themselves are used.
func FormatReverseGeocode(res *domain.ReverseGeocodeResult, c domain.Coordinates) (string, domain.Source) {
	if res == nil {
		return c.Numeric(), domain.SourceCoordinates
	}

	addr := res.Address
	primary := addr.First(primaryLocalityKeys...)
	small := addr.First(smallLocalityKeys...)
	state := addr.First(stateKeys...)
	country := addr.First("country")

	if state == primary {
		state = ""
	}
	text := joinParts(primary, state, country)
	source := domain.SourceAddress

	// A hamlet, suburb or road means the nearest named feature is smaller than a
	// town; the next display_name segment is usually the enclosing town.
	if primary == "" || small != "" {
		segs := splitDisplayName(res.DisplayName)
		if len(segs) >= 2 && segs[1] != segs[0] {
			end := min(len(segs), 1+maxLocationParts)
			text = strings.Join(segs[1:end], ", ")
			source = domain.SourceDisplayName
		}
	}

	if text == "" {
		segs := splitDisplayName(res.DisplayName)
		if len(segs) > maxLocationParts {
			segs = segs[:maxLocationParts]
		}
		text = strings.Join(segs, ", ")
		source = domain.SourceDisplayName
	}

	if text == "" {
		return c.Numeric(), domain.SourceCoordinates
	}
	return text, source
}

func splitDisplayName(s string) []string {
	var segs []string
	for _, seg := range strings.Split(s, ",") {
		if seg = strings.TrimSpace(seg); seg != "" {
			segs = append(segs, seg)
		}
	}
	return segs
}

func joinParts(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}
