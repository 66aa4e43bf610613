package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dharsanguruparan/teradrop/internal/model"
)

// PostgresRepository stores records in the files table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs a repository on top of an open pool. The
// schema is expected to be migrated already.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const selectColumns = `id, original_name, filename, mimetype, size, upload_date, custom_name`

// Create inserts rec.
func (r *PostgresRepository) Create(ctx context.Context, rec *model.FileRecord) error {
	rec.ID = uuid.NewString()
	if rec.UploadDate.IsZero() {
		rec.UploadDate = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO files (id, original_name, filename, mimetype, size, upload_date, custom_name)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, rec.ID, rec.OriginalName, rec.Filename, rec.Mimetype, rec.Size, rec.UploadDate, rec.CustomName)
	if err != nil {
		return fmt.Errorf("insert file record: %w", err)
	}
	return nil
}

// List returns all records newest first.
func (r *PostgresRepository) List(ctx context.Context) ([]model.FileRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+selectColumns+` FROM files ORDER BY upload_date DESC, seq DESC`)
	if err != nil {
		return nil, fmt.Errorf("select file records: %w", err)
	}
	records, err := pgx.CollectRows(rows, scanRecord)
	if err != nil {
		return nil, fmt.Errorf("scan file records: %w", err)
	}
	if records == nil {
		records = []model.FileRecord{}
	}
	return records, nil
}

// FindByCustomName returns the earliest record with the given custom name.
func (r *PostgresRepository) FindByCustomName(ctx context.Context, name string) (*model.FileRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+selectColumns+` FROM files
		WHERE custom_name = $1
		ORDER BY upload_date ASC, seq ASC
		LIMIT 1
	`, name)
	if err != nil {
		return nil, fmt.Errorf("select file record: %w", err)
	}
	rec, err := pgx.CollectOneRow(rows, scanRecord)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan file record: %w", err)
	}
	return &rec, nil
}

// Ping checks connectivity.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func scanRecord(row pgx.CollectableRow) (model.FileRecord, error) {
	var rec model.FileRecord
	err := row.Scan(&rec.ID, &rec.OriginalName, &rec.Filename, &rec.Mimetype, &rec.Size, &rec.UploadDate, &rec.CustomName)
	rec.UploadDate = rec.UploadDate.UTC()
	return rec, err
}
