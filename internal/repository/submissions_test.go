// internal/repository/submissions_test.go
package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agency-crm/internal/workflow"
)

func TestMarkValidated(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSubmissionRepo(db)
	now := time.Now().UTC()

	t.Run("advances from pending_validation", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("UPDATE submissions")).
			WithArgs("validated", "viewed", "admin-1", now, "sub-1", "pending_validation").
			WillReturnResult(sqlmock.NewResult(0, 1))

		ok, err := repo.MarkValidated(context.Background(), "sub-1", "admin-1", now)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("loses when stage moved on", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("UPDATE submissions")).
			WithArgs("validated", "viewed", "admin-1", now, "sub-1", "pending_validation").
			WillReturnResult(sqlmock.NewResult(0, 0))

		ok, err := repo.MarkValidated(context.Background(), "sub-1", "admin-1", now)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdvanceStage(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSubmissionRepo(db)
	now := time.Now().UTC()

	t.Run("upload documents wins from either documents stage", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("UPDATE submissions")).
			WillReturnResult(sqlmock.NewResult(0, 1))

		ok, err := repo.AdvanceStage(context.Background(), "sub-1", workflow.ActionUploadDocuments, now)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("unknown action is rejected before any query", func(t *testing.T) {
		_, err := repo.AdvanceStage(context.Background(), "sub-1", workflow.Action("teleport"), now)
		assert.Error(t, err)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkConvertedTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSubmissionRepo(db)
	now := time.Now().UTC()

	t.Run("wins only from documents_verified and unconverted", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("UPDATE submissions")).
			WithArgs("converted_to_client", "completed", "client-1", now, "sub-1", "documents_verified").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		tx, err := db.BeginTx(context.Background(), nil)
		require.NoError(t, err)

		ok, err := repo.MarkConvertedTx(context.Background(), tx, "sub-1", "client-1", now)
		require.NoError(t, err)
		assert.True(t, ok)
		require.NoError(t, tx.Commit())
	})

	t.Run("second conversion affects zero rows", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("UPDATE submissions")).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		tx, err := db.BeginTx(context.Background(), nil)
		require.NoError(t, err)

		ok, err := repo.MarkConvertedTx(context.Background(), tx, "sub-1", "client-2", now)
		require.NoError(t, err)
		assert.False(t, ok)
		require.NoError(t, tx.Rollback())
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteCascades(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSubmissionRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM documents WHERE submission_id = $1")).
		WithArgs("sub-1").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM document_links WHERE submission_id = $1")).
		WithArgs("sub-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM payment_links WHERE submission_id = $1")).
		WithArgs("sub-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM submissions WHERE id = $1")).
		WithArgs("sub-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	deleted, err := repo.Delete(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteMissingSubmission(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSubmissionRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM documents")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM document_links")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM payment_links")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM submissions")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	deleted, err := repo.Delete(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
