package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/priyanshu-3/SkinCare/internal/core/domain"
)

// ResolutionRepo implements ports.ResolutionRepository.
type ResolutionRepo struct {
	db *DB
}

func NewResolutionRepo(db *DB) *ResolutionRepo {
	return &ResolutionRepo{db: db}
}

const resolutionColumns = `id::text, form_id, status, location, error_code, error_message, stale, created_at, refined_at`

// Insert stores r and fills in its ID and CreatedAt.
func (r *ResolutionRepo) Insert(ctx context.Context, res *domain.Resolution) error {
	var text, source string
	var loc []byte
	if res.Location != nil {
		text, source = res.Location.Text, string(res.Location.Source)
		var err error
		if loc, err = json.Marshal(res.Location); err != nil {
			return fmt.Errorf("marshal location: %w", err)
		}
	}

	err := r.db.Pool.QueryRow(ctx, `
        INSERT INTO location_resolutions
            (form_id, status, text, source, location, error_code, error_message, stale)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id::text, created_at
    `, res.FormID, string(res.Status), text, source, loc,
		string(res.ErrorCode), res.ErrorMessage, res.Stale,
	).Scan(&res.ID, &res.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert resolution: %w", err)
	}
	return nil
}

// GetByID returns a single resolution or domain.ErrNotFound.
func (r *ResolutionRepo) GetByID(ctx context.Context, id string) (*domain.Resolution, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}

	row := r.db.Pool.QueryRow(ctx, `SELECT `+resolutionColumns+` FROM location_resolutions WHERE id = $1`, id)
	res, err := scanResolution(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// List returns a page of resolutions, newest first, and the total count.
func (r *ResolutionRepo) List(ctx context.Context, offset, limit int) ([]domain.Resolution, int, error) {
	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM location_resolutions`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count resolutions: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, `
        SELECT `+resolutionColumns+`
        FROM location_resolutions
        ORDER BY created_at DESC, id
        LIMIT $1 OFFSET $2
    `, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []domain.Resolution
	for rows.Next() {
		res, err := scanResolution(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *res)
	}
	return out, total, rows.Err()
}

// UpdateLocation replaces the location of a resolution.
func (r *ResolutionRepo) UpdateLocation(ctx context.Context, id string, loc *domain.ResolvedLocation, refinedAt time.Time) error {
	data, err := json.Marshal(loc)
	if err != nil {
		return fmt.Errorf("marshal location: %w", err)
	}

	tag, err := r.db.Pool.Exec(ctx, `
        UPDATE location_resolutions
        SET location = $2, text = $3, source = $4, refined_at = $5
        WHERE id = $1
    `, id, data, loc.Text, string(loc.Source), refinedAt)
	if err != nil {
		return fmt.Errorf("update resolution: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanResolution(row pgx.Row) (*domain.Resolution, error) {
	var (
		res       domain.Resolution
		status    string
		errorCode string
		loc       []byte
	)
	if err := row.Scan(
		&res.ID, &res.FormID, &status, &loc, &errorCode, &res.ErrorMessage,
		&res.Stale, &res.CreatedAt, &res.RefinedAt,
	); err != nil {
		return nil, err
	}
	res.Status = domain.ResolutionStatus(status)
	res.ErrorCode = domain.ErrorCode(errorCode)
	if len(loc) > 0 {
		res.Location = &domain.ResolvedLocation{}
		if err := json.Unmarshal(loc, res.Location); err != nil {
			return nil, fmt.Errorf("decode location: %w", err)
		}
	}
	return &res, nil
}
