package http

import (
	"github.com/nats-io/nats.go"

	"github.com/priyanshu-3/SkinCare/internal/adapters/postgres"
	"github.com/priyanshu-3/SkinCare/internal/adapters/valkey"
	"github.com/priyanshu-3/SkinCare/internal/core/domain"
	"github.com/priyanshu-3/SkinCare/internal/core/ports"
	"github.com/priyanshu-3/SkinCare/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Resolutions *usecases.ResolutionService
	Exports     *usecases.ExportService
	IP          ports.IPGeolocator
	Reverse     ports.ReverseGeocoder

	// ForwardClientIP sends the caller's address to the IP collaborator
	// instead of letting it geolocate the server.
	ForwardClientIP bool
	// DefaultOrder applies when a request names no order. Empty means ip_first.
	DefaultOrder domain.Order

	Version string
	NATS    *nats.Conn
	DB      *postgres.DB
	Cache   *valkey.Cache
}

// parseOrder parses a requested order, falling back to DefaultOrder.
func (d *Dependencies) parseOrder(s string) (domain.Order, bool) {
	if s == "" && d.DefaultOrder != "" {
		return d.DefaultOrder, true
	}
	return domain.ParseOrder(s)
}
