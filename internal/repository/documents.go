// internal/repository/documents.go
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"agency-crm/internal/models"
)

type DocumentRepo struct {
	db *sql.DB
}

func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

const documentColumns = `id, submission_id, document_link_id, file_name, original_name,
	file_type, file_size, file_path, storage_type, document_type, status,
	verified_by, verified_at, rejection_reason, notes, created_at`

// CreateBatchTx inserts all documents of one upload inside the caller's
// transaction. Partial batches never become visible.
func (r *DocumentRepo) CreateBatchTx(ctx context.Context, tx *sql.Tx, docs []*models.Document) error {
	for _, d := range docs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO documents (id, submission_id, document_link_id, file_name, original_name,
				file_type, file_size, file_path, storage_type, document_type, status, notes, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			d.ID, d.SubmissionID, d.DocumentLinkID, d.FileName, d.OriginalName,
			d.FileType, d.FileSize, d.FilePath, d.StorageType, d.DocumentType,
			d.Status, nullString(d.Notes), d.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert document %s: %w", d.OriginalName, err)
		}
	}
	return nil
}

func (r *DocumentRepo) GetByID(ctx context.Context, id string) (*models.Document, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	return scanDocument(row)
}

func (r *DocumentRepo) ListBySubmission(ctx context.Context, submissionID string) ([]*models.Document, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE submission_id = $1 ORDER BY created_at`, submissionID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []*models.Document
	for rows.Next() {
		d, err := scanDocumentRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Verify moves pending -> verified. Only pending documents move; re-verifying
// loses the conditional update.
func (r *DocumentRepo) Verify(ctx context.Context, id, actorID string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE documents
		SET status = $1, verified_by = $2, verified_at = $3
		WHERE id = $4 AND status = $5`,
		models.DocumentStatusVerified, actorID, now, id, models.DocumentStatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("verify document: %w", err)
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

// Reject moves pending -> rejected with a reason.
func (r *DocumentRepo) Reject(ctx context.Context, id, actorID, reason string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE documents
		SET status = $1, verified_by = $2, verified_at = $3, rejection_reason = $4
		WHERE id = $5 AND status = $6`,
		models.DocumentStatusRejected, actorID, now, nullString(reason), id, models.DocumentStatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("reject document: %w", err)
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

// RequestReplacement moves pending -> needs_replacement. The applicant keeps
// uploading through a still-valid link; the original row stays for the trail.
func (r *DocumentRepo) RequestReplacement(ctx context.Context, id, actorID, reason string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE documents
		SET status = $1, verified_by = $2, verified_at = $3, rejection_reason = $4
		WHERE id = $5 AND status = $6`,
		models.DocumentStatusNeedsReplacement, actorID, now, nullString(reason), id, models.DocumentStatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("request document replacement: %w", err)
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

// Stats re-counts the submission's documents. The aggregate check after each
// verification reads this rather than tracking incremental counters.
func (r *DocumentRepo) Stats(ctx context.Context, submissionID string) (models.DocumentStats, error) {
	var s models.DocumentStats
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = $2),
		       COUNT(*) FILTER (WHERE status = $3),
		       COUNT(*) FILTER (WHERE status = $4),
		       COUNT(*) FILTER (WHERE status = $5)
		FROM documents WHERE submission_id = $1`,
		submissionID,
		models.DocumentStatusPending, models.DocumentStatusVerified,
		models.DocumentStatusRejected, models.DocumentStatusNeedsReplacement,
	).Scan(&s.Total, &s.Pending, &s.Verified, &s.Rejected, &s.NeedsReplacement)
	if err != nil {
		return s, fmt.Errorf("document stats: %w", err)
	}
	return s, nil
}

func scanDocument(row *sql.Row) (*models.Document, error) {
	var (
		d                            models.Document
		verifiedBy, rejReason, notes sql.NullString
		verifiedAt                   sql.NullTime
	)
	err := row.Scan(
		&d.ID, &d.SubmissionID, &d.DocumentLinkID, &d.FileName, &d.OriginalName,
		&d.FileType, &d.FileSize, &d.FilePath, &d.StorageType, &d.DocumentType, &d.Status,
		&verifiedBy, &verifiedAt, &rejReason, &notes, &d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	d.VerifiedBy = fromNullString(verifiedBy)
	d.RejectionReason = fromNullString(rejReason)
	d.Notes = fromNullString(notes)
	d.VerifiedAt = fromNullTime(verifiedAt)
	return &d, nil
}

func scanDocumentRows(rows *sql.Rows) (*models.Document, error) {
	var (
		d                            models.Document
		verifiedBy, rejReason, notes sql.NullString
		verifiedAt                   sql.NullTime
	)
	err := rows.Scan(
		&d.ID, &d.SubmissionID, &d.DocumentLinkID, &d.FileName, &d.OriginalName,
		&d.FileType, &d.FileSize, &d.FilePath, &d.StorageType, &d.DocumentType, &d.Status,
		&verifiedBy, &verifiedAt, &rejReason, &notes, &d.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan document: %w", err)
	}
	d.VerifiedBy = fromNullString(verifiedBy)
	d.RejectionReason = fromNullString(rejReason)
	d.Notes = fromNullString(notes)
	d.VerifiedAt = fromNullTime(verifiedAt)
	return &d, nil
}
