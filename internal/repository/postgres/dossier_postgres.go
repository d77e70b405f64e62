package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"dossierapi/internal/model"
	"dossierapi/internal/repository"
)

// DossierPostgres is a PostgreSQL implementation of repository.DossierRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DossierPostgres struct {
	db *sql.DB
}

// NewDossierPostgres creates a new DossierPostgres repository.
func NewDossierPostgres(db *sql.DB) *DossierPostgres {
	return &DossierPostgres{db: db}
}

var _ repository.DossierRepository = (*DossierPostgres)(nil)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// CreateDossier inserts the dossier row and its document requests in one
// transaction and returns the stored aggregate.
func (r *DossierPostgres) CreateDossier(ctx context.Context, d *model.Dossier) (*model.Dossier, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	const qDossier = `
		INSERT INTO dossiers (id, client_id, accountant_id, status, documents_requis, documents_upload, pourcentage, created_at, due_date, validation_comment)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	if _, err := tx.ExecContext(ctx, qDossier,
		d.ID,
		d.ClientID,
		d.AccountantID,
		d.Status,
		d.DocumentsRequis,
		d.DocumentsUpload,
		d.Pourcentage,
		d.CreatedAt,
		nullTime(d.DueDate),
		d.ValidationComment,
	); err != nil {
		return nil, fmt.Errorf("insert dossier: %w", err)
	}

	const qRequest = `
		INSERT INTO document_requests (id, dossier_id, position, title, description, document_type, obligatoire, quantite_min, quantite_max, status, accepted_formats, max_size_bytes, due_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	for i := range d.Requests {
		req := &d.Requests[i]
		if _, err := tx.ExecContext(ctx, qRequest,
			req.ID,
			d.ID,
			req.Position,
			req.Title,
			req.Description,
			req.DocumentType,
			req.Obligatoire,
			req.QuantiteMin,
			req.QuantiteMax,
			req.Status,
			joinFormats(req.AcceptedFormats),
			req.MaxSizeBytes,
			nullTime(req.DueDate),
		); err != nil {
			return nil, fmt.Errorf("insert request: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return d, nil
}

// FindDossierByID loads the full aggregate without locking.
func (r *DossierPostgres) FindDossierByID(ctx context.Context, id string) (*model.Dossier, error) {
	return loadDossier(ctx, r.db, id, false)
}

// FindDossierByRequestID resolves the request's owning dossier and loads it.
func (r *DossierPostgres) FindDossierByRequestID(ctx context.Context, requestID string) (*model.Dossier, error) {
	const q = `SELECT dossier_id FROM document_requests WHERE id = $1`
	var dossierID string
	if err := r.db.QueryRowContext(ctx, q, requestID).Scan(&dossierID); err != nil {
		return nil, err
	}
	return loadDossier(ctx, r.db, dossierID, false)
}

// FindDossierByUploadID resolves the upload's owning dossier and loads it.
func (r *DossierPostgres) FindDossierByUploadID(ctx context.Context, uploadID string) (*model.Dossier, error) {
	const q = `
		SELECT req.dossier_id
		FROM document_uploads up
		JOIN document_requests req ON req.id = up.request_id
		WHERE up.id = $1
	`
	var dossierID string
	if err := r.db.QueryRowContext(ctx, q, uploadID).Scan(&dossierID); err != nil {
		return nil, err
	}
	return loadDossier(ctx, r.db, dossierID, false)
}

// ListDossiersByClient returns dossier summary rows (requests not populated)
// using LIMIT/OFFSET pagination and a total count.
func (r *DossierPostgres) ListDossiersByClient(ctx context.Context, clientID string, pq repository.PageQuery) (*repository.PageResult[model.Dossier], error) {
	const qCount = `SELECT COUNT(*) FROM dossiers WHERE client_id = $1`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount, clientID).Scan(&total); err != nil {
		return nil, err
	}

	const qList = `
		SELECT id, client_id, accountant_id, status, documents_requis, documents_upload, pourcentage, created_at, due_date, completed_at, validated_at, validation_comment
		FROM dossiers
		WHERE client_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.QueryContext(ctx, qList, clientID, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Dossier, 0)
	for rows.Next() {
		d, err := scanDossier(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Dossier]{Items: items, Total: total}, nil
}

// MutateDossier locks the dossier row, loads the aggregate, applies fn and
// persists the result in one transaction.
func (r *DossierPostgres) MutateDossier(ctx context.Context, dossierID string, fn repository.MutateFunc) (*model.Dossier, error) {
	return r.mutate(ctx, dossierID, fn)
}

// MutateDossierByRequest resolves the request's owning dossier first, then
// locks and mutates it.
func (r *DossierPostgres) MutateDossierByRequest(ctx context.Context, requestID string, fn repository.MutateFunc) (*model.Dossier, error) {
	const q = `SELECT dossier_id FROM document_requests WHERE id = $1`
	var dossierID string
	if err := r.db.QueryRowContext(ctx, q, requestID).Scan(&dossierID); err != nil {
		return nil, err
	}
	return r.mutate(ctx, dossierID, fn)
}

// MutateDossierByUpload resolves the upload's owning dossier first, then
// locks and mutates it.
func (r *DossierPostgres) MutateDossierByUpload(ctx context.Context, uploadID string, fn repository.MutateFunc) (*model.Dossier, error) {
	const q = `
		SELECT req.dossier_id
		FROM document_uploads up
		JOIN document_requests req ON req.id = up.request_id
		WHERE up.id = $1
	`
	var dossierID string
	if err := r.db.QueryRowContext(ctx, q, uploadID).Scan(&dossierID); err != nil {
		return nil, err
	}
	return r.mutate(ctx, dossierID, fn)
}

// ClientExists reports whether a client row exists.
func (r *DossierPostgres) ClientExists(ctx context.Context, clientID string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM clients WHERE id = $1)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, q, clientID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *DossierPostgres) mutate(ctx context.Context, dossierID string, fn repository.MutateFunc) (*model.Dossier, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	d, err := loadDossier(ctx, tx, dossierID, true)
	if err != nil {
		return nil, err
	}

	if err := fn(d); err != nil {
		return nil, err
	}

	if err := persistDossier(ctx, tx, d); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return d, nil
}

// loadDossier reads the dossier row (FOR UPDATE when locked), its requests
// ordered by position and each request's upload ledger ordered by
// submission time.
func loadDossier(ctx context.Context, q querier, id string, lock bool) (*model.Dossier, error) {
	qDossier := `
		SELECT id, client_id, accountant_id, status, documents_requis, documents_upload, pourcentage, created_at, due_date, completed_at, validated_at, validation_comment
		FROM dossiers
		WHERE id = $1
	`
	if lock {
		qDossier += ` FOR UPDATE`
	}
	d, err := scanDossier(q.QueryRowContext(ctx, qDossier, id))
	if err != nil {
		return nil, err
	}

	const qRequests = `
		SELECT id, dossier_id, position, title, description, document_type, obligatoire, quantite_min, quantite_max, status, accepted_formats, max_size_bytes, due_date
		FROM document_requests
		WHERE dossier_id = $1
		ORDER BY position, id
	`
	rows, err := q.QueryContext(ctx, qRequests, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	index := map[string]int{}
	for rows.Next() {
		var (
			req     model.DocumentRequest
			formats string
			dueDate sql.NullTime
		)
		if err := rows.Scan(
			&req.ID,
			&req.DossierID,
			&req.Position,
			&req.Title,
			&req.Description,
			&req.DocumentType,
			&req.Obligatoire,
			&req.QuantiteMin,
			&req.QuantiteMax,
			&req.Status,
			&formats,
			&req.MaxSizeBytes,
			&dueDate,
		); err != nil {
			return nil, err
		}
		req.AcceptedFormats = splitFormats(formats)
		req.DueDate = timePtr(dueDate)
		index[req.ID] = len(d.Requests)
		d.Requests = append(d.Requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	const qUploads = `
		SELECT up.id, up.request_id, up.file_id, up.file_name, up.file_size, up.content_type, up.storage_path, up.submitted_by, up.submitted_at, up.status, up.review_comment, up.decided_at
		FROM document_uploads up
		JOIN document_requests req ON req.id = up.request_id
		WHERE req.dossier_id = $1
		ORDER BY up.submitted_at, up.id
	`
	upRows, err := q.QueryContext(ctx, qUploads, id)
	if err != nil {
		return nil, err
	}
	defer upRows.Close()

	for upRows.Next() {
		var (
			up        model.DocumentUpload
			decidedAt sql.NullTime
		)
		if err := upRows.Scan(
			&up.ID,
			&up.RequestID,
			&up.File.ID,
			&up.File.Name,
			&up.File.Size,
			&up.File.ContentType,
			&up.File.StoragePath,
			&up.SubmittedBy,
			&up.SubmittedAt,
			&up.Status,
			&up.ReviewComment,
			&decidedAt,
		); err != nil {
			return nil, err
		}
		up.DecidedAt = timePtr(decidedAt)
		if i, ok := index[up.RequestID]; ok {
			d.Requests[i].Uploads = append(d.Requests[i].Uploads, up)
		}
	}
	if err := upRows.Err(); err != nil {
		return nil, err
	}

	return d, nil
}

// persistDossier writes back the derived dossier fields, every request's
// derived status and the upload ledger. Uploads are upserted so new ledger
// entries and forward status transitions share one code path.
func persistDossier(ctx context.Context, q querier, d *model.Dossier) error {
	const qDossier = `
		UPDATE dossiers
		SET status = $1, documents_requis = $2, documents_upload = $3, pourcentage = $4, completed_at = $5, validated_at = $6, validation_comment = $7
		WHERE id = $8
	`
	if _, err := q.ExecContext(ctx, qDossier,
		d.Status,
		d.DocumentsRequis,
		d.DocumentsUpload,
		d.Pourcentage,
		nullTime(d.CompletedAt),
		nullTime(d.ValidatedAt),
		d.ValidationComment,
		d.ID,
	); err != nil {
		return fmt.Errorf("update dossier: %w", err)
	}

	const qRequest = `UPDATE document_requests SET status = $1 WHERE id = $2`
	const qUpload = `
		INSERT INTO document_uploads (id, request_id, file_id, file_name, file_size, content_type, storage_path, submitted_by, submitted_at, status, review_comment, decided_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status, review_comment = EXCLUDED.review_comment, decided_at = EXCLUDED.decided_at
	`
	for i := range d.Requests {
		req := &d.Requests[i]
		if _, err := q.ExecContext(ctx, qRequest, req.Status, req.ID); err != nil {
			return fmt.Errorf("update request: %w", err)
		}
		for j := range req.Uploads {
			up := &req.Uploads[j]
			if _, err := q.ExecContext(ctx, qUpload,
				up.ID,
				up.RequestID,
				up.File.ID,
				up.File.Name,
				up.File.Size,
				up.File.ContentType,
				up.File.StoragePath,
				up.SubmittedBy,
				up.SubmittedAt,
				up.Status,
				up.ReviewComment,
				nullTime(up.DecidedAt),
			); err != nil {
				return fmt.Errorf("upsert upload: %w", err)
			}
		}
	}
	return nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanDossier.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDossier(row rowScanner) (*model.Dossier, error) {
	var (
		d           model.Dossier
		dueDate     sql.NullTime
		completedAt sql.NullTime
		validatedAt sql.NullTime
	)
	if err := row.Scan(
		&d.ID,
		&d.ClientID,
		&d.AccountantID,
		&d.Status,
		&d.DocumentsRequis,
		&d.DocumentsUpload,
		&d.Pourcentage,
		&d.CreatedAt,
		&dueDate,
		&completedAt,
		&validatedAt,
		&d.ValidationComment,
	); err != nil {
		return nil, err
	}
	d.DueDate = timePtr(dueDate)
	d.CompletedAt = timePtr(completedAt)
	d.ValidatedAt = timePtr(validatedAt)
	return &d, nil
}

func joinFormats(formats []string) string {
	return strings.Join(formats, ",")
}

func splitFormats(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
