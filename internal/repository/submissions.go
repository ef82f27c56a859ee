// internal/repository/submissions.go
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"agency-crm/internal/models"
	"agency-crm/internal/workflow"
)

type SubmissionRepo struct {
	db *sql.DB
}

func NewSubmissionRepo(db *sql.DB) *SubmissionRepo {
	return &SubmissionRepo{db: db}
}

const submissionColumns = `id, name, email, phone, service, message, status, source,
	workflow_status, converted_to_client, client_id,
	reviewed_by, reviewed_at, validated_by, validated_at,
	call_confirmed_by, call_confirmed_at, call_notes, created_at, updated_at`

func (r *SubmissionRepo) Create(ctx context.Context, s *models.Submission) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO submissions (id, name, email, phone, service, message, status, source, workflow_status, converted_to_client, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)`,
		s.ID, s.Name, nullString(s.Email), s.Phone, s.Service, s.Message,
		s.Status, nullString(s.Source), string(s.WorkflowStatus), s.ConvertedToClient, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

func (r *SubmissionRepo) GetByID(ctx context.Context, id string) (*models.Submission, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, id)
	return scanSubmission(row)
}

// FindByContact serves the public tracking endpoint. Phone wins when both
// fields are present; the most recent submission is returned.
func (r *SubmissionRepo) FindByContact(ctx context.Context, phone, email string) (*models.Submission, error) {
	var row *sql.Row
	switch {
	case phone != "":
		row = r.db.QueryRowContext(ctx,
			`SELECT `+submissionColumns+` FROM submissions WHERE phone = $1 ORDER BY created_at DESC LIMIT 1`, phone)
	case email != "":
		row = r.db.QueryRowContext(ctx,
			`SELECT `+submissionColumns+` FROM submissions WHERE email = $1 ORDER BY created_at DESC LIMIT 1`, email)
	default:
		return nil, sql.ErrNoRows
	}
	return scanSubmission(row)
}

// List returns submissions, optionally filtered by workflow stage.
func (r *SubmissionRepo) List(ctx context.Context, stage string, limit, offset int) ([]*models.Submission, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var (
		rows *sql.Rows
		err  error
	)
	if stage != "" {
		rows, err = r.db.QueryContext(ctx,
			`SELECT `+submissionColumns+` FROM submissions WHERE workflow_status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
			stage, limit, offset)
	} else {
		rows, err = r.db.QueryContext(ctx,
			`SELECT `+submissionColumns+` FROM submissions ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
			limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var out []*models.Submission
	for rows.Next() {
		s, err := scanSubmissionRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// MarkValidated advances pending_validation -> validated in one conditional
// update. Returns false when the submission was not in the expected stage.
func (r *SubmissionRepo) MarkValidated(ctx context.Context, id, actorID string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE submissions
		SET workflow_status = $1, status = $2, validated_by = $3, validated_at = $4, updated_at = $4
		WHERE id = $5 AND workflow_status = $6`,
		string(models.StageValidated), models.SubmissionStatusViewed, actorID, now,
		id, string(models.StagePendingValidation),
	)
	if err != nil {
		return false, fmt.Errorf("mark validated: %w", err)
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

// MarkCallConfirmed advances validated -> call_confirmed.
func (r *SubmissionRepo) MarkCallConfirmed(ctx context.Context, id, actorID, notes string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE submissions
		SET workflow_status = $1, status = $2, call_confirmed_by = $3, call_confirmed_at = $4, call_notes = $5, updated_at = $4
		WHERE id = $6 AND workflow_status = $7`,
		string(models.StageCallConfirmed), models.SubmissionStatusContacted, actorID, now, nullString(notes),
		id, string(models.StageValidated),
	)
	if err != nil {
		return false, fmt.Errorf("mark call confirmed: %w", err)
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

// AdvanceStage performs the conditional stage write for an action whose only
// submission-side effect is the stage itself.
func (r *SubmissionRepo) AdvanceStage(ctx context.Context, id string, action workflow.Action, now time.Time) (bool, error) {
	return advanceStage(ctx, r.db, id, action, now)
}

// AdvanceStageTx is AdvanceStage inside the caller's transaction, so a stage
// flip commits or rolls back together with the writes that earned it.
func (r *SubmissionRepo) AdvanceStageTx(ctx context.Context, tx *sql.Tx, id string, action workflow.Action, now time.Time) (bool, error) {
	return advanceStage(ctx, tx, id, action, now)
}

func advanceStage(ctx context.Context, ex sqlExecutor, id string, action workflow.Action, now time.Time) (bool, error) {
	from := workflow.AllowedFrom(action)
	if len(from) == 0 {
		return false, fmt.Errorf("no transition registered for action %s", action)
	}
	to, err := workflow.Next(from[0], action)
	if err != nil {
		return false, err
	}

	fromStrs := make([]string, len(from))
	for i, s := range from {
		fromStrs[i] = string(s)
	}

	res, err := ex.ExecContext(ctx, `
		UPDATE submissions
		SET workflow_status = $1, updated_at = $2
		WHERE id = $3 AND workflow_status = ANY($4)`,
		string(to), now, id, pq.Array(fromStrs),
	)
	if err != nil {
		return false, fmt.Errorf("advance stage %s: %w", action, err)
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

// RevertToPaymentRequested returns a submission to payment_requested after a
// receipt rejection so staff can issue a fresh link.
func (r *SubmissionRepo) RevertToPaymentRequested(ctx context.Context, id string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE submissions
		SET workflow_status = $1, updated_at = $2
		WHERE id = $3 AND workflow_status = $4`,
		string(models.StagePaymentRequested), now, id, string(models.StagePaymentUploaded),
	)
	if err != nil {
		return false, fmt.Errorf("revert to payment requested: %w", err)
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

// MarkConvertedTx completes the conversion inside the caller's transaction:
// the update only wins from documents_verified with converted_to_client still
// false, which makes double conversion impossible.
func (r *SubmissionRepo) MarkConvertedTx(ctx context.Context, tx *sql.Tx, id, clientID string, now time.Time) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE submissions
		SET workflow_status = $1, status = $2, converted_to_client = TRUE, client_id = $3, updated_at = $4
		WHERE id = $5 AND workflow_status = $6 AND converted_to_client = FALSE`,
		string(models.StageConvertedToClient), models.SubmissionStatusCompleted, clientID, now,
		id, string(models.StageDocumentsVerified),
	)
	if err != nil {
		return false, fmt.Errorf("mark converted: %w", err)
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

// Delete removes a submission and all dependent records in one transaction.
// Links and documents never outlive their submission.
func (r *SubmissionRepo) Delete(ctx context.Context, id string) (bool, error) {
	var deleted bool
	err := withinTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, q := range []string{
			`DELETE FROM documents WHERE submission_id = $1`,
			`DELETE FROM document_links WHERE submission_id = $1`,
			`DELETE FROM payment_links WHERE submission_id = $1`,
		} {
			if _, err := tx.ExecContext(ctx, q, id); err != nil {
				return fmt.Errorf("delete dependents: %w", err)
			}
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM submissions WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete submission: %w", err)
		}
		n, _ := res.RowsAffected()
		deleted = n == 1
		return nil
	})
	return deleted, err
}

func scanSubmission(row *sql.Row) (*models.Submission, error) {
	var (
		s                                      models.Submission
		email, source, clientID, callNotes     sql.NullString
		reviewedBy, validatedBy, callConfirmBy sql.NullString
		reviewedAt, validatedAt, callConfirmAt sql.NullTime
		wf                                     string
	)
	err := row.Scan(
		&s.ID, &s.Name, &email, &s.Phone, &s.Service, &s.Message, &s.Status, &source,
		&wf, &s.ConvertedToClient, &clientID,
		&reviewedBy, &reviewedAt, &validatedBy, &validatedAt,
		&callConfirmBy, &callConfirmAt, &callNotes, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	fillSubmission(&s, wf, email, source, clientID, callNotes, reviewedBy, validatedBy, callConfirmBy, reviewedAt, validatedAt, callConfirmAt)
	return &s, nil
}

func scanSubmissionRows(rows *sql.Rows) (*models.Submission, error) {
	var (
		s                                      models.Submission
		email, source, clientID, callNotes     sql.NullString
		reviewedBy, validatedBy, callConfirmBy sql.NullString
		reviewedAt, validatedAt, callConfirmAt sql.NullTime
		wf                                     string
	)
	err := rows.Scan(
		&s.ID, &s.Name, &email, &s.Phone, &s.Service, &s.Message, &s.Status, &source,
		&wf, &s.ConvertedToClient, &clientID,
		&reviewedBy, &reviewedAt, &validatedBy, &validatedAt,
		&callConfirmBy, &callConfirmAt, &callNotes, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan submission: %w", err)
	}
	fillSubmission(&s, wf, email, source, clientID, callNotes, reviewedBy, validatedBy, callConfirmBy, reviewedAt, validatedAt, callConfirmAt)
	return &s, nil
}

func fillSubmission(
	s *models.Submission, wf string,
	email, source, clientID, callNotes, reviewedBy, validatedBy, callConfirmBy sql.NullString,
	reviewedAt, validatedAt, callConfirmAt sql.NullTime,
) {
	s.WorkflowStatus = models.WorkflowStatus(wf)
	s.Email = fromNullString(email)
	s.Source = fromNullString(source)
	s.ClientID = fromNullString(clientID)
	s.CallNotes = fromNullString(callNotes)
	s.ReviewedBy = fromNullString(reviewedBy)
	s.ValidatedBy = fromNullString(validatedBy)
	s.CallConfirmedBy = fromNullString(callConfirmBy)
	s.ReviewedAt = fromNullTime(reviewedAt)
	s.ValidatedAt = fromNullTime(validatedAt)
	s.CallConfirmedAt = fromNullTime(callConfirmAt)
}
