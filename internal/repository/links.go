// internal/repository/links.go
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"agency-crm/internal/models"
)

type LinkRepo struct {
	db *sql.DB
}

func NewLinkRepo(db *sql.DB) *LinkRepo {
	return &LinkRepo{db: db}
}

// --- Document links ---

const documentLinkColumns = `id, submission_id, token, expires_at, is_active,
	max_uploads, upload_count, notes, generated_by, last_used_at, created_at`

func (r *LinkRepo) CreateDocumentLink(ctx context.Context, l *models.DocumentLink) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO document_links (id, submission_id, token, expires_at, is_active, max_uploads, upload_count, notes, generated_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		l.ID, l.SubmissionID, l.Token, l.ExpiresAt, l.IsActive, l.MaxUploads, l.UploadCount,
		nullString(l.Notes), l.GeneratedBy, l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document link: %w", err)
	}
	return nil
}

func (r *LinkRepo) GetDocumentLinkByToken(ctx context.Context, token string) (*models.DocumentLink, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+documentLinkColumns+` FROM document_links WHERE token = $1`, token)
	return scanDocumentLink(row)
}

func (r *LinkRepo) GetDocumentLinkByID(ctx context.Context, id string) (*models.DocumentLink, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+documentLinkColumns+` FROM document_links WHERE id = $1`, id)
	return scanDocumentLink(row)
}

// ConsumeDocumentLinkTx admits count uploads in one conditional update: the
// WHERE clause re-checks activity, expiry and capacity so two concurrent
// uploads cannot both pass a stale read. Returns false when the link no
// longer admits the batch.
func (r *LinkRepo) ConsumeDocumentLinkTx(ctx context.Context, tx *sql.Tx, id string, count int, now time.Time) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE document_links
		SET upload_count = upload_count + $1, last_used_at = $2
		WHERE id = $3
		  AND is_active = TRUE
		  AND expires_at > $2
		  AND upload_count + $1 <= max_uploads`,
		count, now, id,
	)
	if err != nil {
		return false, fmt.Errorf("consume document link: %w", err)
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

// DeactivateDocumentLink sets is_active=false. There is no path back to true.
func (r *LinkRepo) DeactivateDocumentLink(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE document_links SET is_active = FALSE WHERE id = $1 AND is_active = TRUE`, id)
	if err != nil {
		return false, fmt.Errorf("deactivate document link: %w", err)
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

func scanDocumentLink(row *sql.Row) (*models.DocumentLink, error) {
	var (
		l          models.DocumentLink
		notes      sql.NullString
		lastUsedAt sql.NullTime
	)
	err := row.Scan(
		&l.ID, &l.SubmissionID, &l.Token, &l.ExpiresAt, &l.IsActive,
		&l.MaxUploads, &l.UploadCount, &notes, &l.GeneratedBy, &lastUsedAt, &l.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	l.Notes = fromNullString(notes)
	l.LastUsedAt = fromNullTime(lastUsedAt)
	return &l, nil
}

// --- Payment links ---

const paymentLinkColumns = `id, submission_id, token, amount, currency,
	bank_name, account_name, account_number, iban, swift_code,
	expires_at, is_active, status, receipt_file, notes, generated_by,
	confirmed_by, confirmed_at, rejected_by, rejected_at, rejection_reason, created_at`

func (r *LinkRepo) CreatePaymentLink(ctx context.Context, l *models.PaymentLink) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payment_links (id, submission_id, token, amount, currency,
			bank_name, account_name, account_number, iban, swift_code,
			expires_at, is_active, status, notes, generated_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		l.ID, l.SubmissionID, l.Token, l.Amount, l.Currency,
		nullString(l.BankDetails.BankName), nullString(l.BankDetails.AccountName),
		nullString(l.BankDetails.AccountNumber), nullString(l.BankDetails.IBAN),
		nullString(l.BankDetails.SwiftCode),
		l.ExpiresAt, l.IsActive, l.Status, nullString(l.Notes), l.GeneratedBy, l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment link: %w", err)
	}
	return nil
}

func (r *LinkRepo) GetPaymentLinkByToken(ctx context.Context, token string) (*models.PaymentLink, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+paymentLinkColumns+` FROM payment_links WHERE token = $1`, token)
	return scanPaymentLink(row)
}

func (r *LinkRepo) GetPaymentLinkByID(ctx context.Context, id string) (*models.PaymentLink, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+paymentLinkColumns+` FROM payment_links WHERE id = $1`, id)
	return scanPaymentLink(row)
}

// MarkReceiptUploadedTx moves pending -> receipt_uploaded with the validity
// predicate re-checked inside the update. Runs in the caller's transaction so
// the receipt write and the stage flip commit together.
func (r *LinkRepo) MarkReceiptUploadedTx(ctx context.Context, tx *sql.Tx, id, receiptFile string, now time.Time) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE payment_links
		SET status = $1, receipt_file = $2
		WHERE id = $3
		  AND status = $4
		  AND is_active = TRUE
		  AND expires_at > $5`,
		models.PaymentStatusReceiptUploaded, receiptFile, id, models.PaymentStatusPending, now,
	)
	if err != nil {
		return false, fmt.Errorf("mark receipt uploaded: %w", err)
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

// ConfirmPayment moves receipt_uploaded -> confirmed. Confirmed is terminal;
// a second caller loses the conditional update and gets false.
func (r *LinkRepo) ConfirmPayment(ctx context.Context, id, actorID string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE payment_links
		SET status = $1, confirmed_by = $2, confirmed_at = $3
		WHERE id = $4 AND status = $5`,
		models.PaymentStatusConfirmed, actorID, now, id, models.PaymentStatusReceiptUploaded,
	)
	if err != nil {
		return false, fmt.Errorf("confirm payment: %w", err)
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

// RejectPayment moves receipt_uploaded -> rejected. A new link is required
// afterwards; the rejected link never returns to pending.
func (r *LinkRepo) RejectPayment(ctx context.Context, id, actorID, reason string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE payment_links
		SET status = $1, rejected_by = $2, rejected_at = $3, rejection_reason = $4
		WHERE id = $5 AND status = $6`,
		models.PaymentStatusRejected, actorID, now, nullString(reason), id, models.PaymentStatusReceiptUploaded,
	)
	if err != nil {
		return false, fmt.Errorf("reject payment: %w", err)
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

func (r *LinkRepo) DeactivatePaymentLink(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payment_links SET is_active = FALSE WHERE id = $1 AND is_active = TRUE`, id)
	if err != nil {
		return false, fmt.Errorf("deactivate payment link: %w", err)
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

func scanPaymentLink(row *sql.Row) (*models.PaymentLink, error) {
	var (
		l                                        models.PaymentLink
		bankName, accountName, accountNumber     sql.NullString
		iban, swiftCode, receiptFile, notes      sql.NullString
		confirmedBy, rejectedBy, rejectionReason sql.NullString
		confirmedAt, rejectedAt                  sql.NullTime
	)
	err := row.Scan(
		&l.ID, &l.SubmissionID, &l.Token, &l.Amount, &l.Currency,
		&bankName, &accountName, &accountNumber, &iban, &swiftCode,
		&l.ExpiresAt, &l.IsActive, &l.Status, &receiptFile, &notes, &l.GeneratedBy,
		&confirmedBy, &confirmedAt, &rejectedBy, &rejectedAt, &rejectionReason, &l.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	l.BankDetails = models.BankDetails{
		BankName:      fromNullString(bankName),
		AccountName:   fromNullString(accountName),
		AccountNumber: fromNullString(accountNumber),
		IBAN:          fromNullString(iban),
		SwiftCode:     fromNullString(swiftCode),
	}
	l.ReceiptFile = fromNullString(receiptFile)
	l.Notes = fromNullString(notes)
	l.ConfirmedBy = fromNullString(confirmedBy)
	l.RejectedBy = fromNullString(rejectedBy)
	l.RejectionReason = fromNullString(rejectionReason)
	l.ConfirmedAt = fromNullTime(confirmedAt)
	l.RejectedAt = fromNullTime(rejectedAt)
	return &l, nil
}
