// Command locate resolves a human-readable location from the command line.
//
//	locate [-lat N -lon N [-accuracy M]] [-geo-error code] [-order ip_first] [-ip addr] [-json]
//
// On failure the error code is printed and the exit status is 2, which
// callers treat as "ask the user to type the location".
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"github.com/priyanshu-3/SkinCare/internal/adapters/geocoding"
	"github.com/priyanshu-3/SkinCare/internal/core/domain"
	"github.com/priyanshu-3/SkinCare/internal/core/ports"
	"github.com/priyanshu-3/SkinCare/internal/core/usecases"
	"github.com/priyanshu-3/SkinCare/internal/pkg/config"
	"github.com/priyanshu-3/SkinCare/internal/pkg/logging"
)

const (
	exitOK         = 0
	exitUsage      = 1
	exitUnresolved = 2
)

type locator interface {
	Resolve(ctx context.Context, req usecases.ResolveRequest) (*domain.ResolvedLocation, error)
}

func main() {
	cfg, err := config.Load("skincare-locate")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	// Logs go to stderr so stdout carries only the result.
	logger := logging.New(os.Stderr, cfg.Telemetry.ServiceName, cfg.Logging.Level, "text")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ipLookup := geocoding.NewIPAPIClient(cfg.Geocoding.IPAPIURL, cfg.Geocoding.UserAgent, cfg.Geocoding.Timeout)
	reverse := geocoding.NewNominatimClient(cfg.Geocoding.NominatimURL, cfg.Geocoding.UserAgent, cfg.Geocoding.Language, cfg.Geocoding.Timeout)
	opts := ports.DefaultPositionOptions()
	opts.Timeout = cfg.Resolver.PositionTimeout

	slog.SetDefault(logger)

	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, usecases.NewLocationResolver(ipLookup, reverse, opts), domain.Order(cfg.Resolver.Order))
	stop()
	os.Exit(code)
}

type result struct {
	Location  *domain.ResolvedLocation `json:"location,omitempty"`
	ErrorCode domain.ErrorCode         `json:"error_code,omitempty"`
	Message   string                   `json:"message,omitempty"`
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, loc locator, defaultOrder domain.Order) int {
	fs := flag.NewFlagSet("locate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		lat      = fs.Float64("lat", 0, "device latitude in degrees")
		lon      = fs.Float64("lon", 0, "device longitude in degrees")
		accuracy = fs.Float64("accuracy", 0, "position accuracy in meters")
		geoErr   = fs.String("geo-error", "", "device geolocation failure: no_geolocation_support, permission_denied, position_unavailable or timeout")
		order    = fs.String("order", "", "fallback order: ip_first, gps_first, ip_only or gps_only")
		ip       = fs.String("ip", "", "address to geolocate instead of this host's public address")
		asJSON   = fs.Bool("json", false, "print the full resolution as JSON")
	)
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	o, ok := domain.ParseOrder(*order)
	if *order == "" && defaultOrder != "" {
		o, ok = domain.ParseOrder(string(defaultOrder))
	}
	if !ok {
		fmt.Fprintf(stderr, "unknown order %q\n", *order)
		return exitUsage
	}
	if set["lat"] != set["lon"] {
		fmt.Fprintln(stderr, "-lat and -lon must be given together")
		return exitUsage
	}

	var reading *domain.Coordinates
	if set["lat"] {
		if *geoErr != "" {
			fmt.Fprintln(stderr, "-lat/-lon and -geo-error are mutually exclusive")
			return exitUsage
		}
		reading = &domain.Coordinates{Latitude: *lat, Longitude: *lon, AccuracyMeters: *accuracy}
		if !reading.Valid() {
			fmt.Fprintln(stderr, "-lat must be within [-90, 90] and -lon within [-180, 180]")
			return exitUsage
		}
	}
	provider, err := geocoding.PositionFromReport(reading, *geoErr, "")
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	resolved, err := loc.Resolve(ctx, usecases.ResolveRequest{ClientIP: *ip, Position: provider, Order: o})

	var rerr *domain.ResolutionError
	if err != nil && !errors.As(err, &rerr) {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	if *asJSON {
		out := result{Location: resolved}
		if rerr != nil {
			out = result{ErrorCode: rerr.Code, Message: rerr.Message()}
		}
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	} else if rerr != nil {
		fmt.Fprintln(stdout, rerr.Code)
		fmt.Fprintln(stderr, rerr.Message())
	} else {
		fmt.Fprintln(stdout, resolved.Text)
	}

	if rerr != nil {
		return exitUnresolved
	}
	return exitOK
}
