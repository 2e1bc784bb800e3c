package store

import (
	"context"

	"github.com/google/uuid"
)

const createImportRun = `
INSERT INTO import_runs (filename, file_sha256, mode, status, request_id, report_json)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, filename, file_sha256, mode, status, request_id, report_json, created_at
`

func (q *Queries) CreateImportRun(ctx context.Context, arg CreateImportRunParams) (ImportRun, error) {
	report := arg.Report
	if len(report) == 0 {
		report = []byte("{}")
	}
	var run ImportRun
	err := q.db.QueryRow(ctx, createImportRun,
		arg.Filename,
		arg.FileSHA256,
		arg.Mode,
		arg.Status,
		arg.RequestID,
		report,
	).Scan(
		&run.ID,
		&run.Filename,
		&run.FileSHA256,
		&run.Mode,
		&run.Status,
		&run.RequestID,
		&run.Report,
		&run.CreatedAt,
	)
	if err != nil {
		return ImportRun{}, wrap("create import run", err)
	}
	return run, nil
}

const getImportRun = `
SELECT id, filename, file_sha256, mode, status, request_id, report_json, created_at
FROM import_runs
WHERE id = $1
`

func (q *Queries) GetImportRun(ctx context.Context, id uuid.UUID) (ImportRun, error) {
	var run ImportRun
	err := q.db.QueryRow(ctx, getImportRun, id).Scan(
		&run.ID,
		&run.Filename,
		&run.FileSHA256,
		&run.Mode,
		&run.Status,
		&run.RequestID,
		&run.Report,
		&run.CreatedAt,
	)
	if err != nil {
		return ImportRun{}, wrap("get import run", err)
	}
	return run, nil
}

const insertAuditLog = `
INSERT INTO audit_logs (action, entity_type, entity_id, request_id, metadata)
VALUES ($1, $2, $3, $4, $5)
`

func (q *Queries) InsertAuditLog(ctx context.Context, arg InsertAuditLogParams) error {
	metadata := arg.Metadata
	if len(metadata) == 0 {
		metadata = []byte("{}")
	}
	_, err := q.db.Exec(ctx, insertAuditLog,
		arg.Action,
		arg.EntityType,
		arg.EntityID,
		arg.RequestID,
		metadata,
	)
	return wrap("insert audit log", err)
}
