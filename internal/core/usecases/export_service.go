package usecases

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/priyanshu-3/SkinCare/internal/core/domain"
	"github.com/priyanshu-3/SkinCare/internal/core/ports"
	"github.com/priyanshu-3/SkinCare/internal/pkg/metrics"
)

const exportPageSize = 500

var exportHeader = []string{
	"id", "form_id", "status", "text", "source", "latitude", "longitude",
	"accuracy_meters", "error_code", "stale", "created_at", "refined_at",
}

// ExportService renders the resolution history as CSV reports.
type ExportService struct {
	repo  ports.ResolutionRepository
	store ports.ReportStore
}

// NewExportService creates a new ExportService. store may be nil.
func NewExportService(repo ports.ResolutionRepository, store ports.ReportStore) *ExportService {
	return &ExportService{repo: repo, store: store}
}

// WriteCSV streams every recorded resolution to w, newest first.
func (s *ExportService) WriteCSV(ctx context.Context, w io.Writer) (int, error) {
	if s.repo == nil {
		return 0, domain.ErrHistoryDisabled
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return 0, err
	}

	rows := 0
	for offset := 0; ; offset += exportPageSize {
		page, total, err := s.repo.List(ctx, offset, exportPageSize)
		if err != nil {
			return rows, fmt.Errorf("list resolutions: %w", err)
		}
		for i := range page {
			if err := cw.Write(csvRow(&page[i])); err != nil {
				return rows, err
			}
			rows++
		}
		if len(page) == 0 || offset+len(page) >= total {
			break
		}
	}

	cw.Flush()
	return rows, cw.Error()
}

// ExportToStore uploads a CSV report to object storage and returns its key.
func (s *ExportService) ExportToStore(ctx context.Context) (string, error) {
	if s.store == nil {
		return "", domain.ErrStorageDisabled
	}

	var buf bytes.Buffer
	if _, err := s.WriteCSV(ctx, &buf); err != nil {
		return "", err
	}

	key := fmt.Sprintf("reports/resolutions-%s.csv", time.Now().UTC().Format("20060102T150405Z"))
	if err := s.store.PutReport(ctx, key, "text/csv", &buf, int64(buf.Len())); err != nil {
		return "", fmt.Errorf("upload report: %w", err)
	}
	metrics.ReportsExported.Inc()
	return key, nil
}

func csvRow(r *domain.Resolution) []string {
	var lat, lon, acc, source, refined string
	if loc := r.Location; loc != nil {
		source = string(loc.Source)
		if c := loc.Coordinates; c != nil {
			lat = strconv.FormatFloat(c.Latitude, 'f', 5, 64)
			lon = strconv.FormatFloat(c.Longitude, 'f', 5, 64)
			acc = strconv.FormatFloat(c.AccuracyMeters, 'f', -1, 64)
		}
	}
	if r.RefinedAt != nil {
		refined = r.RefinedAt.UTC().Format(time.RFC3339)
	}
	return []string{
		r.ID, csvText(r.FormID), string(r.Status), csvText(r.Text()), source, lat, lon, acc,
		string(r.ErrorCode), strconv.FormatBool(r.Stale), r.CreatedAt.UTC().Format(time.RFC3339), refined,
	}
}

// csvText prefixes free-text cells that a spreadsheet would evaluate as a
// formula with a single quote.
func csvText(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}
