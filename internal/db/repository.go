package db

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/ComputerScienceHouse/packet/internal/model"
	"github.com/ComputerScienceHouse/packet/pkg/errors"
)

type Repository interface {
	CreateImport(ctx context.Context, imp *model.Import) (int64, error)
	GetImport(ctx context.Context, importID int64) (*model.Import, error)
	UpdateImportStatus(ctx context.Context, importID int64, status model.ImportStatus, errorMessage *string) error
	UpdateImportProgress(ctx context.Context, importID int64, progress model.ImportProgress) error
	ListImports(ctx context.Context, limit int) ([]model.Import, error)
}

type repository struct {
	db  *sql.DB
	now func() time.Time
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

const importColumns = `id, file_name, s3_path, mode, start_date, status, record_count, skipped_count,
	http_status, error_message, created_at, updated_at`

func (r *repository) CreateImport(ctx context.Context, imp *model.Import) (int64, error) {
	now := r.now()
	query := `INSERT INTO imports (file_name, s3_path, mode, start_date, status, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`

	res, err := r.db.ExecContext(ctx, query, imp.FileName, imp.S3Path, imp.Mode, imp.StartDate,
		imp.Status, now, now)
	if err != nil {
		return 0, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	imp.ID = id
	imp.CreatedAt = now
	imp.UpdatedAt = now
	return id, nil
}

func (r *repository) GetImport(ctx context.Context, importID int64) (*model.Import, error) {
	query := `SELECT ` + importColumns + ` FROM imports WHERE id = ?`

	imp, err := scanImport(r.db.QueryRowContext(ctx, query, importID))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.ErrImportNotFound
	}
	if err != nil {
		return nil, err
	}
	return imp, nil
}

func (r *repository) UpdateImportStatus(ctx context.Context, importID int64, status model.ImportStatus, errorMessage *string) error {
	query := `UPDATE imports SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`
	return r.execOne(ctx, query, status, errorMessage, r.now(), importID)
}

func (r *repository) UpdateImportProgress(ctx context.Context, importID int64, progress model.ImportProgress) error {
	query := `UPDATE imports SET record_count = ?, skipped_count = ?, http_status = ?, updated_at = ? WHERE id = ?`
	return r.execOne(ctx, query, progress.RecordCount, progress.SkippedCount, progress.HTTPStatus, r.now(), importID)
}

func (r *repository) ListImports(ctx context.Context, limit int) ([]model.Import, error) {
	query := `SELECT ` + importColumns + ` FROM imports ORDER BY id DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var imports []model.Import
	for rows.Next() {
		imp, err := scanImport(rows)
		if err != nil {
			return nil, err
		}
		imports = append(imports, *imp)
	}

	return imports, rows.Err()
}

func (r *repository) execOne(ctx context.Context, query string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.ErrImportNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanImport(row rowScanner) (*model.Import, error) {
	var imp model.Import
	err := row.Scan(&imp.ID, &imp.FileName, &imp.S3Path, &imp.Mode, &imp.StartDate, &imp.Status,
		&imp.RecordCount, &imp.SkippedCount, &imp.HTTPStatus, &imp.ErrorMessage,
		&imp.CreatedAt, &imp.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &imp, nil
}
