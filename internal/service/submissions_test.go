// internal/service/submissions_test.go
package service

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agency-crm/internal/activity"
	"agency-crm/internal/common/config"
	"agency-crm/internal/common/logger"
	"agency-crm/internal/notify"
	"agency-crm/internal/repository"
)

// countingSender records every delivered message so tests can assert on the
// applicant-facing traffic a workflow step produces.
type countingSender struct {
	mu     sync.Mutex
	sms    []string
	emails []string
}

func (c *countingSender) SendSMS(_ context.Context, _, body string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sms = append(c.sms, body)
	return nil
}

func (c *countingSender) SendEmail(_ context.Context, _, _, body string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.emails = append(c.emails, body)
	return nil
}

func (c *countingSender) counts() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sms), len(c.emails)
}

func serviceConfigForTest() *config.Config {
	cfg := &config.Config{}
	cfg.App.Environment = "test"
	cfg.Server.PublicBaseURL = "https://crm.example.com"
	cfg.Storage.MaxFileSize = 10 << 20
	cfg.Workflow.PaymentLinkExpiryDays = 7
	cfg.Workflow.DocumentLinkExpiryDays = 14
	cfg.Workflow.DefaultMaxUploads = 10
	cfg.Workflow.DefaultCurrency = "MAD"
	cfg.Notifications.QueueSize = 16
	cfg.Notifications.HomeCountryCode = "212"
	cfg.Notifications.KnownCountryCodes = []string{"212", "33"}
	return cfg
}

func submissionServiceForTest(t *testing.T) (*SubmissionService, sqlmock.Sqlmock, *countingSender, *notify.Queue) {
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

	submissionRepo := repository.NewSubmissionRepo(db)
	clientRepo := repository.NewClientRepo(db)
	documentRepo := repository.NewDocumentRepo(db)
	notificationRepo := repository.NewNotificationRepo(db)
	userRepo := repository.NewUserRepo(db)

	recorder := activity.NewRecorder(db, nil, log)
	notifier := notify.NewService(userRepo, notificationRepo, queue, cfg, log)

	svc := NewSubmissionService(db, submissionRepo, clientRepo, documentRepo, notifier, recorder, log)
	return svc, mock, sender, queue
}

func submissionTestColumns() []string {
	return []string{
		"id", "name", "email", "phone", "service", "message", "status", "source",
		"workflow_status", "converted_to_client", "client_id",
		"reviewed_by", "reviewed_at", "validated_by", "validated_at",
		"call_confirmed_by", "call_confirmed_at", "call_notes", "created_at", "updated_at",
	}
}

func submissionTestRow(stage string) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(submissionTestColumns()).AddRow(
		"sub-1", "Amina El Fassi", "amina@example.com", "+212612345678", "work_visa", "hello",
		"new", nil, stage, false, nil,
		nil, nil, nil, nil, nil, nil, nil, now, now,
	)
}

func TestValidateMessagesApplicant(t *testing.T) {
	svc, mock, sender, queue := submissionServiceForTest(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE submissions")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO activity_log")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM submissions WHERE id = $1")).
		WillReturnRows(submissionTestRow("validated"))

	sub, err := svc.Validate(context.Background(), "sub-1", "admin-1")
	require.NoError(t, err)
	require.NotNil(t, sub)

	queue.Close()

	smsCount, emailCount := sender.counts()
	assert.GreaterOrEqual(t, smsCount, 1, "applicant should hear about the validation by SMS")
	assert.GreaterOrEqual(t, emailCount, 1, "applicant should hear about the validation by email")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmCallMessageCarriesNotes(t *testing.T) {
	svc, mock, sender, queue := submissionServiceForTest(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE submissions")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO activity_log")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM submissions WHERE id = $1")).
		WillReturnRows(submissionTestRow("call_confirmed"))

	_, err := svc.ConfirmCall(context.Background(), "sub-1", "admin-1", "Bring your contract on Monday.")
	require.NoError(t, err)

	queue.Close()

	sender.mu.Lock()
	defer sender.mu.Unlock()
	require.NotEmpty(t, sender.sms)
	assert.Contains(t, sender.sms[0], "Bring your contract on Monday.")
}

func TestTrackIncludesDocumentCounts(t *testing.T) {
	svc, mock, _, queue := submissionServiceForTest(t)
	defer queue.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM submissions WHERE phone = $1")).
		WillReturnRows(submissionTestRow("documents_uploaded"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM documents WHERE submission_id = $1")).
		WillReturnRows(sqlmock.NewRows([]string{"count", "pending", "verified", "rejected", "needs_replacement"}).
			AddRow(4, 1, 2, 1, 0))

	ts, err := svc.Track(context.Background(), "+212612345678", "")
	require.NoError(t, err)
	assert.Equal(t, 4, ts.Documents.Total)
	assert.Equal(t, 2, ts.Documents.Verified)
	assert.NoError(t, mock.ExpectationsWereMet())
}
