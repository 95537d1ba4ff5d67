package usecases_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/priyanshu-3/SkinCare/internal/core/domain"
	"github.com/priyanshu-3/SkinCare/internal/core/usecases"
)

type mockReportStore struct {
	key         string
	contentType string
	body        []byte
	size        int64
}

func (m *mockReportStore) PutReport(_ context.Context, key, contentType string, r io.Reader, size int64) error {
	m.key, m.contentType, m.size = key, contentType, size
	var err error
	m.body, err = io.ReadAll(r)
	return err
}

func seededRepo(n int) *memRepo {
	repo := &memRepo{}
	for i := 0; i < n; i++ {
		_ = repo.Insert(context.Background(), &domain.Resolution{
			FormID: "f",
			Status: domain.StatusResolved,
			Location: &domain.ResolvedLocation{
				Text:        "10.00000, 20.00000",
				Source:      domain.SourceCoordinates,
				Coordinates: &domain.Coordinates{Latitude: 10, Longitude: 20, AccuracyMeters: 8.5},
			},
		})
	}
	_ = repo.Insert(context.Background(), &domain.Resolution{
		Status:    domain.StatusFailed,
		ErrorCode: domain.ErrCodePermissionDenied,
	})
	return repo
}

func TestExportService_WriteCSV(t *testing.T) {
	svc := usecases.NewExportService(seededRepo(3), nil)

	var buf bytes.Buffer
	n, err := svc.WriteCSV(context.Background(), &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 4 {
		t.Errorf("expected 4 rows, got %d", n)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("invalid csv: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("expected header + 4 rows, got %d", len(records))
	}
	if records[0][0] != "id" {
		t.Errorf("unexpected header %v", records[0])
	}
	// Newest first: the failed resolution was inserted last.
	if records[1][2] != "failed" || records[1][8] != "permission_denied" {
		t.Errorf("unexpected first row %v", records[1])
	}
	if records[2][3] != "10.00000, 20.00000" || records[2][5] != "10.00000" || records[2][7] != "8.5" {
		t.Errorf("unexpected coordinate row %v", records[2])
	}
}

func TestExportService_WriteCSV_NeutralisesFormulas(t *testing.T) {
	repo := &memRepo{}
	for _, r := range []*domain.Resolution{
		{FormID: "=HYPERLINK(\"http://x\")", Status: domain.StatusResolved, Location: &domain.ResolvedLocation{Text: "@SUM(A1)", Source: domain.SourceDisplayName}},
		{FormID: "intake-1", Status: domain.StatusResolved, Location: &domain.ResolvedLocation{
			Text:        "-33.86880, 151.20930",
			Source:      domain.SourceCoordinates,
			Coordinates: &domain.Coordinates{Latitude: -33.8688, Longitude: 151.2093},
		}},
		{FormID: "+1", Status: domain.StatusResolved, Location: &domain.ResolvedLocation{Text: "Goa, India", Source: domain.SourceIP}},
	} {
		_ = repo.Insert(context.Background(), r)
	}
	svc := usecases.NewExportService(repo, nil)

	var buf bytes.Buffer
	if _, err := svc.WriteCSV(context.Background(), &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("invalid csv: %v", err)
	}

	// Newest first.
	if records[1][1] != "'+1" || records[1][3] != "Goa, India" {
		t.Errorf("unexpected row %v", records[1])
	}
	if records[2][1] != "intake-1" || records[2][3] != "'-33.86880, 151.20930" || records[2][5] != "-33.86880" {
		t.Errorf("unexpected row %v", records[2])
	}
	if records[3][1] != "'=HYPERLINK(\"http://x\")" || records[3][3] != "'@SUM(A1)" {
		t.Errorf("unexpected row %v", records[3])
	}
}

func TestExportService_WriteCSV_Paginates(t *testing.T) {
	svc := usecases.NewExportService(seededRepo(1200), nil)

	var buf bytes.Buffer
	n, err := svc.WriteCSV(context.Background(), &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1201 {
		t.Errorf("expected 1201 rows, got %d", n)
	}
}

func TestExportService_ExportToStore(t *testing.T) {
	store := &mockReportStore{}
	svc := usecases.NewExportService(seededRepo(2), store)

	key, err := svc.ExportToStore(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(key, "reports/resolutions-") || !strings.HasSuffix(key, ".csv") {
		t.Errorf("unexpected key %q", key)
	}
	if store.contentType != "text/csv" {
		t.Errorf("unexpected content type %q", store.contentType)
	}
	if int64(len(store.body)) != store.size {
		t.Errorf("size %d does not match body length %d", store.size, len(store.body))
	}
}

func TestExportService_Disabled(t *testing.T) {
	if _, err := usecases.NewExportService(nil, nil).WriteCSV(context.Background(), io.Discard); !errors.Is(err, domain.ErrHistoryDisabled) {
		t.Errorf("expected ErrHistoryDisabled, got %v", err)
	}
	if _, err := usecases.NewExportService(seededRepo(1), nil).ExportToStore(context.Background()); !errors.Is(err, domain.ErrStorageDisabled) {
		t.Errorf("expected ErrStorageDisabled, got %v", err)
	}
}
