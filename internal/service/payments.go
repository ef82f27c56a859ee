// internal/service/payments.go
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"agency-crm/internal/activity"
	"agency-crm/internal/common/config"
	"agency-crm/internal/common/database"
	apperrors "agency-crm/internal/common/errors"
	"agency-crm/internal/common/logger"
	"agency-crm/internal/common/metrics"
	"agency-crm/internal/models"
	"agency-crm/internal/notify"
	"agency-crm/internal/repository"
	"agency-crm/internal/storage"
	"agency-crm/internal/workflow"
)

// PaymentService owns payment link issuance, public receipt upload, and
// staff confirmation or rejection.
type PaymentService struct {
	db          *sql.DB
	submissions *repository.SubmissionRepo
	links       *repository.LinkRepo
	store       storage.Store
	notifier    *notify.Service
	recorder    *activity.Recorder
	cfg         *config.Config
	log         logger.Logger
}

func NewPaymentService(
	db *sql.DB,
	submissions *repository.SubmissionRepo,
	links *repository.LinkRepo,
	store storage.Store,
	notifier *notify.Service,
	recorder *activity.Recorder,
	cfg *config.Config,
	log logger.Logger,
) *PaymentService {
	return &PaymentService{
		db:          db,
		submissions: submissions,
		links:       links,
		store:       store,
		notifier:    notifier,
		recorder:    recorder,
		cfg:         cfg,
		log:         log,
	}
}

// GenerateLinkInput carries the staff request for a payment link. Bank
// details default from configuration when omitted.
type GenerateLinkInput struct {
	Amount      float64             `json:"amount"`
	Currency    string              `json:"currency"`
	BankDetails *models.BankDetails `json:"bankDetails,omitempty"`
	Notes       string              `json:"notes,omitempty"`
	ExpiryDays  int                 `json:"expiryDays,omitempty"`
}

// GenerateLink issues a payment link and advances the submission to
// payment_requested. The applicant is messaged with the public URL.
func (s *PaymentService) GenerateLink(ctx context.Context, submissionID, actorID string, in GenerateLinkInput) (*models.PaymentLink, error) {
	if in.Amount <= 0 {
		return nil, apperrors.NewValidationError("Amount must be positive", fmt.Sprintf("amount: %v", in.Amount))
	}

	sub, err := s.getSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if _, err := workflow.Next(sub.WorkflowStatus, workflow.ActionGeneratePaymentLink); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	wf := s.cfg.Workflow

	currency := in.Currency
	if currency == "" {
		currency = wf.DefaultCurrency
	}
	expiryDays := in.ExpiryDays
	if expiryDays <= 0 {
		expiryDays = wf.PaymentLinkExpiryDays
	}
	bank := models.BankDetails{
		BankName:      wf.BankDefaults.BankName,
		AccountName:   wf.BankDefaults.AccountName,
		AccountNumber: wf.BankDefaults.AccountNumber,
		IBAN:          wf.BankDefaults.IBAN,
		SwiftCode:     wf.BankDefaults.SwiftCode,
	}
	if in.BankDetails != nil {
		bank = *in.BankDetails
	}

	link := &models.PaymentLink{
		ID:           uuid.NewString(),
		SubmissionID: sub.ID,
		Token:        newLinkToken(),
		Amount:       in.Amount,
		Currency:     currency,
		BankDetails:  bank,
		ExpiresAt:    now.AddDate(0, 0, expiryDays),
		IsActive:     true,
		Status:       models.PaymentStatusPending,
		Notes:        in.Notes,
		GeneratedBy:  actorID,
		CreatedAt:    now,
	}

	if err := s.links.CreatePaymentLink(ctx, link); err != nil {
		return nil, apperrors.FromError(err)
	}

	ok, err := s.submissions.AdvanceStage(ctx, sub.ID, workflow.ActionGeneratePaymentLink, now)
	if err != nil {
		return nil, apperrors.FromError(err)
	}
	if !ok {
		// A concurrent transition won between the read and the update. The
		// link row stays but is harmless; deactivate it for hygiene.
		if _, derr := s.links.DeactivatePaymentLink(ctx, link.ID); derr != nil {
			s.log.Warn("orphaned payment link deactivation failed", map[string]interface{}{
				"link_id": link.ID,
				"error":   derr.Error(),
			})
		}
		metrics.WorkflowTransitionsTotal.WithLabelValues(string(workflow.ActionGeneratePaymentLink), "conflict").Inc()
		return nil, apperrors.NewConflictError("Submission was modified concurrently", sub.ID)
	}

	metrics.WorkflowTransitionsTotal.WithLabelValues(string(workflow.ActionGeneratePaymentLink), "ok").Inc()
	s.notifier.PaymentLinkIssued(sub, link)
	s.recorder.Record(ctx, activity.Entry{
		UserID:     actorID,
		Action:     models.ActionPaymentLinkGenerated,
		EntityType: "payment_link",
		EntityID:   link.ID,
		Details:    map[string]interface{}{"submissionId": sub.ID, "amount": in.Amount, "currency": currency},
	})
	return link, nil
}

// ValidateLink resolves a public payment token into the applicant-facing
// context. An unknown token is not found; a known link that no longer
// accepts a receipt reports why.
func (s *PaymentService) ValidateLink(ctx context.Context, token string) (*models.LinkContext, error) {
	link, err := s.links.GetPaymentLinkByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("Payment link", token)
		}
		return nil, apperrors.FromError(err)
	}
	if now := time.Now().UTC(); !link.IsValid(now) {
		return nil, apperrors.NewValidationError("Payment link is no longer usable", paymentLinkInvalidReason(link, now))
	}

	sub, err := s.getSubmission(ctx, link.SubmissionID)
	if err != nil {
		return nil, err
	}

	bank := link.BankDetails
	return &models.LinkContext{
		SubmissionID:  sub.ID,
		ApplicantName: sub.Name,
		Phone:         sub.Phone,
		Email:         sub.Email,
		Service:       sub.Service,
		ExpiresAt:     link.ExpiresAt,
		Amount:        link.Amount,
		Currency:      link.Currency,
		BankDetails:   &bank,
		Notes:         link.Notes,
	}, nil
}

// UploadReceipt accepts the applicant's transfer receipt through a valid
// link. The receipt write and the stage advance share one transaction; the
// stored file is removed again when that transaction loses.
func (s *PaymentService) UploadReceipt(ctx context.Context, token, originalName, contentType string, size int64, r io.Reader) (*models.PaymentLink, error) {
	now := time.Now().UTC()

	link, err := s.links.GetPaymentLinkByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("Payment link", token)
		}
		return nil, apperrors.FromError(err)
	}
	if !link.IsValid(now) {
		return nil, apperrors.NewValidationError("Payment link is no longer usable", paymentLinkInvalidReason(link, now))
	}
	if !isAllowedFileType(contentType) {
		return nil, apperrors.NewValidationError("File type not allowed", contentType)
	}
	if size > s.cfg.Storage.MaxFileSize {
		return nil, apperrors.NewValidationError("File too large", fmt.Sprintf("max %d bytes", s.cfg.Storage.MaxFileSize))
	}

	sub, err := s.getSubmission(ctx, link.SubmissionID)
	if err != nil {
		return nil, err
	}

	fileName := generatedFileName(sub.Name, "receipt", originalName, now, 0)
	path, err := s.store.Save(ctx, fileName, r)
	if err != nil {
		return nil, apperrors.NewUpstreamError("storage", err)
	}

	err = database.WithinTx(ctx, s.db, func(tx *sql.Tx) error {
		ok, err := s.links.MarkReceiptUploadedTx(ctx, tx, link.ID, path, now)
		if err != nil {
			return err
		}
		if !ok {
			// Another upload won or the link just expired.
			return apperrors.NewConflictError("Receipt already uploaded", link.ID)
		}

		ok, err = s.submissions.AdvanceStageTx(ctx, tx, link.SubmissionID, workflow.ActionUploadReceipt, now)
		if err != nil {
			return err
		}
		if !ok {
			metrics.WorkflowTransitionsTotal.WithLabelValues(string(workflow.ActionUploadReceipt), "conflict").Inc()
			return apperrors.NewConflictError("Submission is not awaiting payment", link.SubmissionID)
		}
		return nil
	})
	if err != nil {
		s.removeStored(ctx, path)
		return nil, apperrors.FromError(err)
	}

	metrics.WorkflowTransitionsTotal.WithLabelValues(string(workflow.ActionUploadReceipt), "ok").Inc()
	metrics.UploadsAccepted.WithLabelValues("payment").Inc()

	s.notifier.ReceiptUploaded(ctx, sub, link)
	s.recorder.Record(ctx, activity.Entry{
		Action:     models.ActionPaymentReceiptUpload,
		EntityType: "payment_link",
		EntityID:   link.ID,
		Details:    map[string]interface{}{"submissionId": link.SubmissionID},
	})

	return s.links.GetPaymentLinkByID(ctx, link.ID)
}

// Confirm marks the receipt as verified and advances the submission.
func (s *PaymentService) Confirm(ctx context.Context, linkID, actorID string) (*models.PaymentLink, error) {
	now := time.Now().UTC()

	link, err := s.getLink(ctx, linkID)
	if err != nil {
		return nil, err
	}

	ok, err := s.links.ConfirmPayment(ctx, link.ID, actorID, now)
	if err != nil {
		return nil, apperrors.FromError(err)
	}
	if !ok {
		return nil, apperrors.NewConflictError("Payment is not awaiting confirmation", link.Status)
	}

	ok, err = s.submissions.AdvanceStage(ctx, link.SubmissionID, workflow.ActionConfirmPayment, now)
	if err != nil {
		return nil, apperrors.FromError(err)
	}
	if !ok {
		metrics.WorkflowTransitionsTotal.WithLabelValues(string(workflow.ActionConfirmPayment), "conflict").Inc()
		return nil, apperrors.NewConflictError("Submission was modified concurrently", link.SubmissionID)
	}

	metrics.WorkflowTransitionsTotal.WithLabelValues(string(workflow.ActionConfirmPayment), "ok").Inc()
	if sub, serr := s.getSubmission(ctx, link.SubmissionID); serr == nil {
		s.notifier.PaymentConfirmed(sub)
	}
	s.recorder.Record(ctx, activity.Entry{
		UserID:     actorID,
		Action:     models.ActionPaymentConfirmed,
		EntityType: "payment_link",
		EntityID:   link.ID,
		Details:    map[string]interface{}{"submissionId": link.SubmissionID},
	})
	return s.links.GetPaymentLinkByID(ctx, link.ID)
}

// Reject marks the receipt as rejected. The submission returns to
// payment_requested so staff can issue a fresh link.
func (s *PaymentService) Reject(ctx context.Context, linkID, actorID, reason string) (*models.PaymentLink, error) {
	if reason == "" {
		return nil, apperrors.NewValidationError("Rejection reason is required", "")
	}
	now := time.Now().UTC()

	link, err := s.getLink(ctx, linkID)
	if err != nil {
		return nil, err
	}

	ok, err := s.links.RejectPayment(ctx, link.ID, actorID, reason, now)
	if err != nil {
		return nil, apperrors.FromError(err)
	}
	if !ok {
		return nil, apperrors.NewConflictError("Payment is not awaiting confirmation", link.Status)
	}

	if ok, err := s.submissions.RevertToPaymentRequested(ctx, link.SubmissionID, now); err != nil {
		return nil, apperrors.FromError(err)
	} else if !ok {
		s.log.Warn("payment rejection left submission stage untouched", map[string]interface{}{
			"submission_id": link.SubmissionID,
		})
	}

	if sub, serr := s.getSubmission(ctx, link.SubmissionID); serr == nil {
		s.notifier.PaymentRejected(sub, reason)
	}
	s.recorder.Record(ctx, activity.Entry{
		UserID:     actorID,
		Action:     models.ActionPaymentRejected,
		EntityType: "payment_link",
		EntityID:   link.ID,
		Details:    map[string]interface{}{"submissionId": link.SubmissionID, "reason": reason},
	})
	return s.links.GetPaymentLinkByID(ctx, link.ID)
}

// Deactivate turns a link off permanently.
func (s *PaymentService) Deactivate(ctx context.Context, linkID, actorID string) error {
	ok, err := s.links.DeactivatePaymentLink(ctx, linkID)
	if err != nil {
		return apperrors.FromError(err)
	}
	if !ok {
		return apperrors.NewNotFoundError("Payment link", linkID)
	}
	s.recorder.Record(ctx, activity.Entry{
		UserID:     actorID,
		Action:     models.ActionLinkDeactivated,
		EntityType: "payment_link",
		EntityID:   linkID,
	})
	return nil
}

func paymentLinkInvalidReason(l *models.PaymentLink, now time.Time) string {
	switch {
	case !l.IsActive:
		return "link has been deactivated"
	case !now.Before(l.ExpiresAt):
		return "link has expired"
	case l.Status == models.PaymentStatusConfirmed:
		return "payment already confirmed"
	default:
		return "receipt already uploaded"
	}
}

func (s *PaymentService) getLink(ctx context.Context, id string) (*models.PaymentLink, error) {
	link, err := s.links.GetPaymentLinkByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("Payment link", id)
		}
		return nil, apperrors.FromError(err)
	}
	return link, nil
}

func (s *PaymentService) getSubmission(ctx context.Context, id string) (*models.Submission, error) {
	sub, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("Submission", id)
		}
		return nil, apperrors.FromError(err)
	}
	return sub, nil
}

func (s *PaymentService) removeStored(ctx context.Context, path string) {
	if err := s.store.Remove(ctx, path); err != nil {
		s.log.Warn("stored file cleanup failed", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
	}
}
