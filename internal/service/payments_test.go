// internal/service/payments_test.go
package service

import (
	"context"
	"os"
	"path/filepath"
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
	"agency-crm/internal/notify"
	"agency-crm/internal/repository"
	"agency-crm/internal/storage"
)

func paymentServiceForTest(t *testing.T) (*PaymentService, sqlmock.Sqlmock, string, *notify.Queue) {
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
	notificationRepo := repository.NewNotificationRepo(db)
	userRepo := repository.NewUserRepo(db)

	recorder := activity.NewRecorder(db, nil, log)
	notifier := notify.NewService(userRepo, notificationRepo, queue, cfg, log)

	svc := NewPaymentService(db, submissionRepo, linkRepo, store, notifier, recorder, cfg, log)
	return svc, mock, dir, queue
}

func paymentLinkTestColumns() []string {
	return []string{
		"id", "submission_id", "token", "amount", "currency",
		"bank_name", "account_name", "account_number", "iban", "swift_code",
		"expires_at", "is_active", "status", "receipt_file", "notes", "generated_by",
		"confirmed_by", "confirmed_at", "rejected_by", "rejected_at", "rejection_reason", "created_at",
	}
}

func pendingPaymentLinkRow(token string) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(paymentLinkTestColumns()).AddRow(
		"pay-1", "sub-1", token, 1500.0, "MAD",
		nil, nil, nil, nil, nil,
		now.AddDate(0, 0, 7), true, "pending", nil, nil, "admin-1",
		nil, nil, nil, nil, nil, now,
	)
}

func storedFileCount(t *testing.T, dir string) int {
	t.Helper()
	count := 0
	err := filepath.WalkDir(dir, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			count++
		}
		return nil
	})
	require.NoError(t, err)
	return count
}

func TestUploadReceiptCommitsReceiptAndStageTogether(t *testing.T) {
	svc, mock, dir, queue := paymentServiceForTest(t)
	defer queue.Close()

	token := strings.Repeat("ab", 32)
	mock.ExpectQuery(regexp.QuoteMeta("FROM payment_links WHERE token = $1")).
		WillReturnRows(pendingPaymentLinkRow(token))
	mock.ExpectQuery(regexp.QuoteMeta("FROM submissions WHERE id = $1")).
		WillReturnRows(submissionTestRow("payment_requested"))

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE payment_links")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE submissions")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// Post-commit fan-out and audit trail.
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM users WHERE role = $1 AND is_active = TRUE")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO activity_log")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM payment_links WHERE id = $1")).
		WillReturnRows(pendingPaymentLinkRow(token))

	link, err := svc.UploadReceipt(context.Background(), token, "receipt.pdf", "application/pdf", 1024,
		strings.NewReader("receipt bytes"))
	require.NoError(t, err)
	require.NotNil(t, link)
	assert.Equal(t, 1, storedFileCount(t, dir))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUploadReceiptRollsBackWhenStageAdvanceLoses(t *testing.T) {
	svc, mock, dir, queue := paymentServiceForTest(t)
	defer queue.Close()

	token := strings.Repeat("cd", 32)
	mock.ExpectQuery(regexp.QuoteMeta("FROM payment_links WHERE token = $1")).
		WillReturnRows(pendingPaymentLinkRow(token))
	mock.ExpectQuery(regexp.QuoteMeta("FROM submissions WHERE id = $1")).
		WillReturnRows(submissionTestRow("payment_requested"))

	// The receipt write wins but the stage advance loses, so the whole
	// transaction rolls back and the payment link stays pending.
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE payment_links")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE submissions")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	link, err := svc.UploadReceipt(context.Background(), token, "receipt.pdf", "application/pdf", 1024,
		strings.NewReader("receipt bytes"))
	require.Error(t, err)
	assert.Nil(t, link)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConflict))
	assert.Equal(t, 0, storedFileCount(t, dir), "stored receipt should be cleaned up after rollback")
	assert.NoError(t, mock.ExpectationsWereMet())
}
