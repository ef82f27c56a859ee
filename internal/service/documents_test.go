// internal/service/documents_test.go
package service

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agency-crm/internal/activity"
	apperrors "agency-crm/internal/common/errors"
	"agency-crm/internal/common/logger"
	"agency-crm/internal/models"
	"agency-crm/internal/notify"
	"agency-crm/internal/repository"
	"agency-crm/internal/storage"
)

func documentServiceForTest(t *testing.T) (*DocumentService, sqlmock.Sqlmock, string, *countingSender, *notify.Queue) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	mock.MatchExpectationsInOrder(false)

	cfg := serviceConfigForTest()
	log := logger.NewNoOpLogger()

	sender := &countingSender{}
	queue := notify.NewQueue(sender, cfg.Notifications, log)
	queue.Start()

	dir := t.TempDir()
	store, err := storage.NewLocalStore(dir)
	require.NoError(t, err)

	submissionRepo := repository.NewSubmissionRepo(db)
	linkRepo := repository.NewLinkRepo(db)
	documentRepo := repository.NewDocumentRepo(db)
	notificationRepo := repository.NewNotificationRepo(db)
	userRepo := repository.NewUserRepo(db)

	recorder := activity.NewRecorder(db, nil, log)
	notifier := notify.NewService(userRepo, notificationRepo, queue, cfg, log)

	svc := NewDocumentService(db, submissionRepo, linkRepo, documentRepo, store, notifier, recorder, cfg, log)
	return svc, mock, dir, sender, queue
}

func documentLinkTestColumns() []string {
	return []string{
		"id", "submission_id", "token", "expires_at", "is_active",
		"max_uploads", "upload_count", "notes", "generated_by", "last_used_at", "created_at",
	}
}

func activeDocumentLinkRow(token string) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(documentLinkTestColumns()).AddRow(
		"link-1", "sub-1", token, now.AddDate(0, 0, 14), true,
		10, 0, nil, "admin-1", nil, now,
	)
}

func documentTestColumns() []string {
	return []string{
		"id", "submission_id", "document_link_id", "file_name", "original_name",
		"file_type", "file_size", "file_path", "storage_type", "document_type", "status",
		"verified_by", "verified_at", "rejection_reason", "notes", "created_at",
	}
}

func documentTestRow(status string) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(documentTestColumns()).AddRow(
		"doc-1", "sub-1", "link-1", "amina_el_fassi_passport_1_0.pdf", "scan.pdf",
		"application/pdf", 1024, "uploads/doc-1.pdf", "local", "passport", status,
		nil, nil, nil, nil, now,
	)
}

func TestValidateDocumentLinkIncludesContact(t *testing.T) {
	svc, mock, _, _, queue := documentServiceForTest(t)
	defer queue.Close()

	token := strings.Repeat("ef", 32)
	mock.ExpectQuery(regexp.QuoteMeta("FROM document_links WHERE token = $1")).
		WillReturnRows(activeDocumentLinkRow(token))
	mock.ExpectQuery(regexp.QuoteMeta("FROM submissions WHERE id = $1")).
		WillReturnRows(submissionTestRow("documents_requested"))

	linkCtx, err := svc.ValidateLink(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "Amina El Fassi", linkCtx.ApplicantName)
	assert.Equal(t, "+212612345678", linkCtx.Phone)
	assert.Equal(t, "amina@example.com", linkCtx.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestReplacementFlagsDocumentAndMessagesApplicant(t *testing.T) {
	svc, mock, _, sender, queue := documentServiceForTest(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM documents WHERE id = $1")).
		WillReturnRows(documentTestRow("pending"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE documents")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM submissions WHERE id = $1")).
		WillReturnRows(submissionTestRow("documents_uploaded"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO activity_log")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM documents WHERE id = $1")).
		WillReturnRows(documentTestRow("needs_replacement"))

	doc, err := svc.RequestReplacement(context.Background(), "doc-1", "admin-1", "photo page is blurry")
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusNeedsReplacement, doc.Status)

	queue.Close()

	sender.mu.Lock()
	defer sender.mu.Unlock()
	require.NotEmpty(t, sender.sms)
	assert.Contains(t, sender.sms[0], "photo page is blurry")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestReplacementRequiresReason(t *testing.T) {
	svc, _, _, _, queue := documentServiceForTest(t)
	defer queue.Close()

	_, err := svc.RequestReplacement(context.Background(), "doc-1", "admin-1", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
}

func TestUploadRollsBackBatchWhenStageAdvanceLoses(t *testing.T) {
	svc, mock, dir, _, queue := documentServiceForTest(t)
	defer queue.Close()

	token := strings.Repeat("01", 32)
	mock.ExpectQuery(regexp.QuoteMeta("FROM document_links WHERE token = $1")).
		WillReturnRows(activeDocumentLinkRow(token))
	mock.ExpectQuery(regexp.QuoteMeta("FROM submissions WHERE id = $1")).
		WillReturnRows(submissionTestRow("documents_requested"))

	// Link consumption and the row insert win, the stage advance loses: the
	// whole batch rolls back and the stored bytes are removed again.
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE document_links")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO documents")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE submissions")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	docs, err := svc.Upload(context.Background(), token, []UploadFile{{
		OriginalName: "scan.pdf",
		ContentType:  "application/pdf",
		Size:         1024,
		DocumentType: "passport",
		Reader:       strings.NewReader("document bytes"),
	}})
	require.Error(t, err)
	assert.Nil(t, docs)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConflict))
	assert.Equal(t, 0, storedFileCount(t, dir), "stored documents should be cleaned up after rollback")
	assert.NoError(t, mock.ExpectationsWereMet())
}
