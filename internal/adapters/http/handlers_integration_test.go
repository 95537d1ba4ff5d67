//go:build integration
// +build integration

package http_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/priyanshu-3/SkinCare/internal/adapters/http"
	"github.com/priyanshu-3/SkinCare/internal/adapters/postgres"
	"github.com/priyanshu-3/SkinCare/internal/core/domain"
	"github.com/priyanshu-3/SkinCare/internal/core/ports"
	"github.com/priyanshu-3/SkinCare/internal/core/usecases"
	"github.com/priyanshu-3/SkinCare/internal/pkg/config"
)

// setupTestDB connects to the test database. The migrations must have been applied.
func setupTestDB(t *testing.T) *postgres.DB {
	cfg, err := config.Load("skincare-test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := postgres.New(ctx, cfg.Database.DSN(), 4)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	return db
}

// setupTestDeps wires the services to the real repository and mock collaborators.
func setupTestDeps(db *postgres.DB, f *fixture) *http.Dependencies {
	repo := postgres.NewResolutionRepo(db)
	resolver := usecases.NewLocationResolver(f.ip, f.reverse, ports.DefaultPositionOptions())
	return &http.Dependencies{
		Resolutions: usecases.NewResolutionService(resolver, f.reverse, repo, nil),
		Exports:     usecases.NewExportService(repo, nil),
		IP:          f.ip,
		Reverse:     f.reverse,
		DB:          db,
	}
}

// TestResolutionHistory_Integration records, reads and refines a resolution.
func TestResolutionHistory_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Close()

	f := &fixture{ip: &mockIP{}, reverse: &mockReverse{}}
	app := setupApp(setupTestDeps(db, f))

	formID := "integ-" + time.Now().Format("20060102150405")
	resp, err := app.Test(jsonRequest("POST", "/v1/location/resolve",
		`{"form_id":"`+formID+`","position":{"latitude":13.2473,"longitude":77.7119,"accuracy_meters":20}}`), -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var created domain.Resolution
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.Location.Source != domain.SourceCoordinates {
		t.Fatalf("expected numeric fallback, got %s", created.Location.Source)
	}

	resp, _ = app.Test(httptest.NewRequest("GET", "/v1/location/resolutions/"+created.ID, nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var stored domain.Resolution
	json.NewDecoder(resp.Body).Decode(&stored)
	if stored.FormID != formID || stored.Location.Coordinates.AccuracyMeters != 20 {
		t.Errorf("unexpected stored resolution %+v", stored)
	}

	f.reverse.reverseFn = func(context.Context, float64, float64) (*domain.ReverseGeocodeResult, error) {
		return &domain.ReverseGeocodeResult{
			DisplayName: "Devanahalli, Bengaluru Urban, Karnataka, India",
			Address:     domain.Address{"town": "Devanahalli", "state": "Karnataka", "country": "India"},
		}, nil
	}
	resp, _ = app.Test(httptest.NewRequest("POST", "/v1/location/resolutions/"+created.ID+"/refine", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	resp, _ = app.Test(httptest.NewRequest("GET", "/v1/location/resolutions/"+created.ID, nil), -1)
	json.NewDecoder(resp.Body).Decode(&stored)
	if stored.Text() != "Devanahalli, Karnataka, India" || stored.RefinedAt == nil {
		t.Errorf("expected refined text, got %q", stored.Text())
	}
}

// TestListResolutions_Integration checks ordering and totals against the database.
func TestListResolutions_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Close()

	f := &fixture{ip: &mockIP{lookupFn: func(context.Context, string) (*domain.IPGeolocateResult, error) {
		return &domain.IPGeolocateResult{City: "Mysuru", Region: "Karnataka", CountryName: "India"}, nil
	}}, reverse: &mockReverse{}}
	app := setupApp(setupTestDeps(db, f))

	for i := 0; i < 2; i++ {
		if resp, _ := app.Test(jsonRequest("POST", "/v1/location/resolve", `{}`), -1); resp.StatusCode != 200 {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
	}

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/location/resolutions?limit=2", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var result struct {
		Data       []domain.Resolution `json:"data"`
		Pagination http.Pagination     `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Pagination.Total < 2 || len(result.Data) != 2 {
		t.Fatalf("unexpected page %+v", result.Pagination)
	}
	if result.Data[0].CreatedAt.Before(result.Data[1].CreatedAt) {
		t.Error("expected newest first")
	}

	resp, _ = app.Test(httptest.NewRequest("GET", "/v1/location/resolutions/not-a-uuid", nil), -1)
	if resp.StatusCode != 404 {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}
