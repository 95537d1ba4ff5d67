package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/priyanshu-3/SkinCare/internal/core/domain"
	"github.com/priyanshu-3/SkinCare/internal/core/ports"
	"github.com/priyanshu-3/SkinCare/internal/core/usecases"
)

type mockLocator struct {
	resolveFn func(ctx context.Context, req usecases.ResolveRequest) (*domain.ResolvedLocation, error)
	last      usecases.ResolveRequest
}

func (m *mockLocator) Resolve(ctx context.Context, req usecases.ResolveRequest) (*domain.ResolvedLocation, error) {
	m.last = req
	return m.resolveFn(ctx, req)
}

func resolvedAs(text string) func(context.Context, usecases.ResolveRequest) (*domain.ResolvedLocation, error) {
	return func(context.Context, usecases.ResolveRequest) (*domain.ResolvedLocation, error) {
		return &domain.ResolvedLocation{Text: text, Source: domain.SourceIP}, nil
	}
}

func runLocate(t *testing.T, m *mockLocator, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr, m, "")
	return code, stdout.String(), stderr.String()
}

func TestRun_PrintsText(t *testing.T) {
	m := &mockLocator{resolveFn: resolvedAs("Mysuru, Karnataka, India")}

	code, out, _ := runLocate(t, m, "-ip", "203.0.113.7")
	if code != exitOK {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if out != "Mysuru, Karnataka, India\n" {
		t.Errorf("unexpected output %q", out)
	}
	if m.last.ClientIP != "203.0.113.7" || m.last.Order != domain.OrderIPFirst {
		t.Errorf("unexpected request %+v", m.last)
	}
}

func TestRun_ForwardsPosition(t *testing.T) {
	m := &mockLocator{resolveFn: func(ctx context.Context, req usecases.ResolveRequest) (*domain.ResolvedLocation, error) {
		c, err := req.Position.CurrentPosition(ctx, ports.DefaultPositionOptions())
		if err != nil {
			return nil, err
		}
		return &domain.ResolvedLocation{Text: "ok", Coordinates: &c}, nil
	}}

	code, _, _ := runLocate(t, m, "-lat", "13.2473", "-lon", "77.7119", "-accuracy", "20", "-order", "gps_first")
	if code != exitOK {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if m.last.Order != domain.OrderGPSFirst {
		t.Errorf("expected gps_first, got %s", m.last.Order)
	}
}

func TestRun_Unresolved(t *testing.T) {
	m := &mockLocator{resolveFn: func(context.Context, usecases.ResolveRequest) (*domain.ResolvedLocation, error) {
		return nil, &domain.ResolutionError{Code: domain.ErrCodePermissionDenied}
	}}

	code, out, errOut := runLocate(t, m, "-geo-error", "permission_denied")
	if code != exitUnresolved {
		t.Fatalf("expected exit 2, got %d", code)
	}
	if out != "permission_denied\n" {
		t.Errorf("unexpected output %q", out)
	}
	if !strings.Contains(errOut, "enter your location manually") {
		t.Errorf("expected manual-entry hint, got %q", errOut)
	}
}

func TestRun_JSON(t *testing.T) {
	m := &mockLocator{resolveFn: func(context.Context, usecases.ResolveRequest) (*domain.ResolvedLocation, error) {
		return nil, &domain.ResolutionError{Code: domain.ErrCodeIPLookupFailed}
	}}

	code, out, _ := runLocate(t, m, "-json", "-order", "ip_only")
	if code != exitUnresolved {
		t.Fatalf("expected exit 2, got %d", code)
	}
	var res result
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("invalid json %q: %v", out, err)
	}
	if res.ErrorCode != domain.ErrCodeIPLookupFailed || res.Location != nil {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestRun_BadUsage(t *testing.T) {
	m := &mockLocator{resolveFn: resolvedAs("never")}

	tests := [][]string{
		{"-lat", "13.2"},
		{"-order", "random"},
		{"-geo-error", "bogus"},
		{"-lat", "1", "-lon", "2", "-geo-error", "timeout"},
		{"-lat", "95", "-lon", "10"},
		{"-unknown"},
	}
	for _, args := range tests {
		if code, _, _ := runLocate(t, m, args...); code != exitUsage {
			t.Errorf("%v: expected exit 1, got %d", args, code)
		}
	}
}

func TestRun_DefaultOrderFromConfig(t *testing.T) {
	m := &mockLocator{resolveFn: resolvedAs("x")}
	var stdout, stderr bytes.Buffer

	run(context.Background(), nil, &stdout, &stderr, m, domain.OrderGPSOnly)
	if m.last.Order != domain.OrderGPSOnly {
		t.Errorf("expected gps_only, got %s", m.last.Order)
	}
}

func TestRun_CollaboratorError(t *testing.T) {
	m := &mockLocator{resolveFn: func(context.Context, usecases.ResolveRequest) (*domain.ResolvedLocation, error) {
		return nil, errors.New("context canceled")
	}}
	if code, _, _ := runLocate(t, m); code != exitUsage {
		t.Errorf("expected exit 1, got %d", code)
	}
}
