// internal/service/documents.go
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

// DocumentService owns document link issuance, public uploads, verification,
// and download.
type DocumentService struct {
	db          *sql.DB
	submissions *repository.SubmissionRepo
	links       *repository.LinkRepo
	documents   *repository.DocumentRepo
	store       storage.Store
	notifier    *notify.Service
	recorder    *activity.Recorder
	cfg         *config.Config
	log         logger.Logger
}

func NewDocumentService(
	db *sql.DB,
	submissions *repository.SubmissionRepo,
	links *repository.LinkRepo,
	documents *repository.DocumentRepo,
	store storage.Store,
	notifier *notify.Service,
	recorder *activity.Recorder,
	cfg *config.Config,
	log logger.Logger,
) *DocumentService {
	return &DocumentService{
		db:          db,
		submissions: submissions,
		links:       links,
		documents:   documents,
		store:       store,
		notifier:    notifier,
		recorder:    recorder,
		cfg:         cfg,
		log:         log,
	}
}

// GenerateDocLinkInput carries the staff request for a document upload link.
type GenerateDocLinkInput struct {
	MaxUploads int    `json:"maxUploads,omitempty"`
	ExpiryDays int    `json:"expiryDays,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

// GenerateLink issues a document upload link and advances the submission to
// documents_requested.
func (s *DocumentService) GenerateLink(ctx context.Context, submissionID, actorID string, in GenerateDocLinkInput) (*models.DocumentLink, error) {
	sub, err := s.getSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if _, err := workflow.Next(sub.WorkflowStatus, workflow.ActionGenerateDocumentLink); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	wf := s.cfg.Workflow

	maxUploads := in.MaxUploads
	if maxUploads <= 0 {
		maxUploads = wf.DefaultMaxUploads
	}
	expiryDays := in.ExpiryDays
	if expiryDays <= 0 {
		expiryDays = wf.DocumentLinkExpiryDays
	}

	link := &models.DocumentLink{
		ID:           uuid.NewString(),
		SubmissionID: sub.ID,
		Token:        newLinkToken(),
		ExpiresAt:    now.AddDate(0, 0, expiryDays),
		IsActive:     true,
		MaxUploads:   maxUploads,
		Notes:        in.Notes,
		GeneratedBy:  actorID,
		CreatedAt:    now,
	}

	if err := s.links.CreateDocumentLink(ctx, link); err != nil {
		return nil, apperrors.FromError(err)
	}

	ok, err := s.submissions.AdvanceStage(ctx, sub.ID, workflow.ActionGenerateDocumentLink, now)
	if err != nil {
		return nil, apperrors.FromError(err)
	}
	if !ok {
		if _, derr := s.links.DeactivateDocumentLink(ctx, link.ID); derr != nil {
			s.log.Warn("orphaned document link deactivation failed", map[string]interface{}{
				"link_id": link.ID,
				"error":   derr.Error(),
			})
		}
		metrics.WorkflowTransitionsTotal.WithLabelValues(string(workflow.ActionGenerateDocumentLink), "conflict").Inc()
		return nil, apperrors.NewConflictError("Submission was modified concurrently", sub.ID)
	}

	metrics.WorkflowTransitionsTotal.WithLabelValues(string(workflow.ActionGenerateDocumentLink), "ok").Inc()
	s.notifier.DocumentLinkIssued(sub, link)
	s.recorder.Record(ctx, activity.Entry{
		UserID:     actorID,
		Action:     models.ActionDocumentLinkGenerated,
		EntityType: "document_link",
		EntityID:   link.ID,
		Details:    map[string]interface{}{"submissionId": sub.ID, "maxUploads": maxUploads},
	})
	return link, nil
}

// ValidateLink resolves a public upload token into the applicant-facing
// context, including remaining capacity. An unknown token is not found; a
// known link that no longer admits uploads reports why.
func (s *DocumentService) ValidateLink(ctx context.Context, token string) (*models.LinkContext, error) {
	link, err := s.links.GetDocumentLinkByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("Upload link", token)
		}
		return nil, apperrors.FromError(err)
	}
	if now := time.Now().UTC(); !link.IsValid(now) {
		return nil, apperrors.NewValidationError("Upload link is no longer usable", documentLinkInvalidReason(link, now))
	}

	sub, err := s.getSubmission(ctx, link.SubmissionID)
	if err != nil {
		return nil, err
	}

	return &models.LinkContext{
		SubmissionID:   sub.ID,
		ApplicantName:  sub.Name,
		Phone:          sub.Phone,
		Email:          sub.Email,
		Service:        sub.Service,
		ExpiresAt:      link.ExpiresAt,
		RemainingSlots: link.RemainingUploads(),
		Notes:          link.Notes,
	}, nil
}

// UploadFile is one file in an upload batch.
type UploadFile struct {
	OriginalName string
	ContentType  string
	Size         int64
	DocumentType string
	Reader       io.Reader
}

// Upload accepts a batch of documents through a valid link. Admission is
// all-or-nothing: the batch passes the capacity check together, all rows and
// the stage advance commit together, and stored bytes are cleaned up on any
// failure.
func (s *DocumentService) Upload(ctx context.Context, token string, files []UploadFile) ([]*models.Document, error) {
	if len(files) == 0 {
		return nil, apperrors.NewValidationError("No files in upload", "")
	}

	now := time.Now().UTC()
	link, err := s.links.GetDocumentLinkByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("Upload link", token)
		}
		return nil, apperrors.FromError(err)
	}
	if !link.IsValid(now) {
		return nil, apperrors.NewValidationError("Upload link is no longer usable", documentLinkInvalidReason(link, now))
	}
	if len(files) > link.RemainingUploads() {
		return nil, apperrors.NewValidationError(
			"Upload exceeds remaining capacity",
			fmt.Sprintf("%d file(s) sent, %d slot(s) left", len(files), link.RemainingUploads()),
		)
	}
	for _, f := range files {
		if !models.IsValidDocumentType(f.DocumentType) {
			return nil, apperrors.NewValidationError("Unknown document type", f.DocumentType)
		}
		if !isAllowedFileType(f.ContentType) {
			return nil, apperrors.NewValidationError("File type not allowed", f.ContentType)
		}
		if f.Size > s.cfg.Storage.MaxFileSize {
			return nil, apperrors.NewValidationError("File too large",
				fmt.Sprintf("%s exceeds %d bytes", f.OriginalName, s.cfg.Storage.MaxFileSize))
		}
	}

	sub, err := s.getSubmission(ctx, link.SubmissionID)
	if err != nil {
		return nil, err
	}

	// Store bytes first; roll them back if the database side loses.
	var (
		docs  []*models.Document
		paths []string
	)
	for i, f := range files {
		name := generatedFileName(sub.Name, f.DocumentType, f.OriginalName, now, i)
		path, err := s.store.Save(ctx, name, f.Reader)
		if err != nil {
			s.removeStored(ctx, paths)
			return nil, apperrors.NewUpstreamError("storage", err)
		}
		paths = append(paths, path)
		docs = append(docs, &models.Document{
			ID:             uuid.NewString(),
			SubmissionID:   link.SubmissionID,
			DocumentLinkID: link.ID,
			FileName:       name,
			OriginalName:   f.OriginalName,
			FileType:       f.ContentType,
			FileSize:       f.Size,
			FilePath:       path,
			StorageType:    s.store.Type(),
			DocumentType:   f.DocumentType,
			Status:         models.DocumentStatusPending,
			CreatedAt:      now,
		})
	}

	err = database.WithinTx(ctx, s.db, func(tx *sql.Tx) error {
		ok, err := s.links.ConsumeDocumentLinkTx(ctx, tx, link.ID, len(files), now)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.NewConflictError("Upload link no longer admits this batch", link.ID)
		}
		if err := s.documents.CreateBatchTx(ctx, tx, docs); err != nil {
			return err
		}

		ok, err = s.submissions.AdvanceStageTx(ctx, tx, link.SubmissionID, workflow.ActionUploadDocuments, now)
		if err != nil {
			return err
		}
		if !ok {
			metrics.WorkflowTransitionsTotal.WithLabelValues(string(workflow.ActionUploadDocuments), "conflict").Inc()
			return apperrors.NewConflictError("Submission is not accepting documents", link.SubmissionID)
		}
		return nil
	})
	if err != nil {
		s.removeStored(ctx, paths)
		return nil, apperrors.FromError(err)
	}

	metrics.WorkflowTransitionsTotal.WithLabelValues(string(workflow.ActionUploadDocuments), "ok").Inc()
	metrics.UploadsAccepted.WithLabelValues("document").Add(float64(len(files)))

	s.notifier.DocumentsUploaded(ctx, sub, len(files))
	s.recorder.Record(ctx, activity.Entry{
		Action:     models.ActionDocumentsUploaded,
		EntityType: "document_link",
		EntityID:   link.ID,
		Details:    map[string]interface{}{"submissionId": link.SubmissionID, "count": len(files)},
	})
	return docs, nil
}

// Verify marks one document verified, then re-scans the submission's
// documents: when every one is verified the submission advances to
// documents_verified.
func (s *DocumentService) Verify(ctx context.Context, documentID, actorID string) (*models.Document, error) {
	now := time.Now().UTC()

	doc, err := s.getDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	ok, err := s.documents.Verify(ctx, doc.ID, actorID, now)
	if err != nil {
		return nil, apperrors.FromError(err)
	}
	if !ok {
		return nil, apperrors.NewConflictError("Document is not pending verification", doc.Status)
	}

	s.recorder.Record(ctx, activity.Entry{
		UserID:     actorID,
		Action:     models.ActionDocumentVerified,
		EntityType: "document",
		EntityID:   doc.ID,
		Details:    map[string]interface{}{"submissionId": doc.SubmissionID},
	})
	if sub, serr := s.getSubmission(ctx, doc.SubmissionID); serr == nil {
		s.notifier.DocumentVerified(sub, doc)
	}

	s.advanceIfAllVerified(ctx, doc.SubmissionID, now)
	return s.getDocument(ctx, doc.ID)
}

// Reject marks one document rejected with a reason. The submission stays in
// documents_uploaded; the applicant re-uploads through a link.
func (s *DocumentService) Reject(ctx context.Context, documentID, actorID, reason string) (*models.Document, error) {
	if reason == "" {
		return nil, apperrors.NewValidationError("Rejection reason is required", "")
	}
	now := time.Now().UTC()

	doc, err := s.getDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	ok, err := s.documents.Reject(ctx, doc.ID, actorID, reason, now)
	if err != nil {
		return nil, apperrors.FromError(err)
	}
	if !ok {
		return nil, apperrors.NewConflictError("Document is not pending verification", doc.Status)
	}

	s.recorder.Record(ctx, activity.Entry{
		UserID:     actorID,
		Action:     models.ActionDocumentRejected,
		EntityType: "document",
		EntityID:   doc.ID,
		Details:    map[string]interface{}{"submissionId": doc.SubmissionID, "reason": reason},
	})
	return s.getDocument(ctx, doc.ID)
}

// RequestReplacement flags one document for re-upload with a reason. The
// submission keeps its stage and the applicant is told which document to send
// again; the flagged document holds the all-verified gate closed.
func (s *DocumentService) RequestReplacement(ctx context.Context, documentID, actorID, reason string) (*models.Document, error) {
	if reason == "" {
		return nil, apperrors.NewValidationError("Replacement reason is required", "")
	}
	now := time.Now().UTC()

	doc, err := s.getDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	ok, err := s.documents.RequestReplacement(ctx, doc.ID, actorID, reason, now)
	if err != nil {
		return nil, apperrors.FromError(err)
	}
	if !ok {
		return nil, apperrors.NewConflictError("Document is not pending verification", doc.Status)
	}

	if sub, serr := s.getSubmission(ctx, doc.SubmissionID); serr == nil {
		s.notifier.DocumentReplacementRequested(sub, doc, reason)
	}
	s.recorder.Record(ctx, activity.Entry{
		UserID:     actorID,
		Action:     models.ActionDocumentReplacement,
		EntityType: "document",
		EntityID:   doc.ID,
		Details:    map[string]interface{}{"submissionId": doc.SubmissionID, "reason": reason},
	})
	return s.getDocument(ctx, doc.ID)
}

// List returns the submission's documents for the staff detail view.
func (s *DocumentService) List(ctx context.Context, submissionID string) ([]*models.Document, models.DocumentStats, error) {
	docs, err := s.documents.ListBySubmission(ctx, submissionID)
	if err != nil {
		return nil, models.DocumentStats{}, apperrors.FromError(err)
	}
	stats, err := s.documents.Stats(ctx, submissionID)
	if err != nil {
		return nil, models.DocumentStats{}, apperrors.FromError(err)
	}
	return docs, stats, nil
}

// Open streams a stored document for staff download.
func (s *DocumentService) Open(ctx context.Context, documentID string) (*models.Document, io.ReadCloser, error) {
	doc, err := s.getDocument(ctx, documentID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.store.Open(ctx, doc.FilePath)
	if err != nil {
		return nil, nil, apperrors.NewUpstreamError("storage", err)
	}
	return doc, rc, nil
}

// Deactivate turns an upload link off permanently.
func (s *DocumentService) Deactivate(ctx context.Context, linkID, actorID string) error {
	ok, err := s.links.DeactivateDocumentLink(ctx, linkID)
	if err != nil {
		return apperrors.FromError(err)
	}
	if !ok {
		return apperrors.NewNotFoundError("Upload link", linkID)
	}
	s.recorder.Record(ctx, activity.Entry{
		UserID:     actorID,
		Action:     models.ActionLinkDeactivated,
		EntityType: "document_link",
		EntityID:   linkID,
	})
	return nil
}

// advanceIfAllVerified re-counts the submission's documents and advances the
// stage when none remain pending, rejected, or awaiting replacement.
// Best-effort: a conflict here means a concurrent verifier already advanced it.
func (s *DocumentService) advanceIfAllVerified(ctx context.Context, submissionID string, now time.Time) {
	stats, err := s.documents.Stats(ctx, submissionID)
	if err != nil {
		s.log.Error("document stats re-scan failed", map[string]interface{}{
			"submission_id": submissionID,
			"error":         err.Error(),
		})
		return
	}
	if !stats.AllVerified() {
		return
	}

	ok, err := s.submissions.AdvanceStage(ctx, submissionID, workflow.ActionVerifyDocuments, now)
	if err != nil {
		s.log.Error("documents verified stage advance failed", map[string]interface{}{
			"submission_id": submissionID,
			"error":         err.Error(),
		})
		return
	}
	if !ok {
		return
	}

	metrics.WorkflowTransitionsTotal.WithLabelValues(string(workflow.ActionVerifyDocuments), "ok").Inc()
	if sub, err := s.getSubmission(ctx, submissionID); err == nil {
		s.notifier.DocumentsVerified(ctx, sub)
	}
}

func (s *DocumentService) getDocument(ctx context.Context, id string) (*models.Document, error) {
	doc, err := s.documents.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("Document", id)
		}
		return nil, apperrors.FromError(err)
	}
	return doc, nil
}

func (s *DocumentService) getSubmission(ctx context.Context, id string) (*models.Submission, error) {
	sub, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("Submission", id)
		}
		return nil, apperrors.FromError(err)
	}
	return sub, nil
}

func documentLinkInvalidReason(l *models.DocumentLink, now time.Time) string {
	switch {
	case !l.IsActive:
		return "link has been deactivated"
	case !now.Before(l.ExpiresAt):
		return "link has expired"
	default:
		return "upload limit reached"
	}
}

func (s *DocumentService) removeStored(ctx context.Context, paths []string) {
	for _, p := range paths {
		if err := s.store.Remove(ctx, p); err != nil {
			s.log.Warn("stored file cleanup failed", map[string]interface{}{
				"path":  p,
				"error": err.Error(),
			})
		}
	}
}
