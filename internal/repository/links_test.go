// internal/repository/links_test.go
package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsumeDocumentLinkTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewLinkRepo(db)
	now := time.Now().UTC()

	t.Run("admits batch within capacity", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("UPDATE document_links")).
			WithArgs(3, now, "link-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		tx, err := db.BeginTx(context.Background(), nil)
		require.NoError(t, err)

		ok, err := repo.ConsumeDocumentLinkTx(context.Background(), tx, "link-1", 3, now)
		require.NoError(t, err)
		assert.True(t, ok)
		require.NoError(t, tx.Commit())
	})

	t.Run("rejects batch past capacity or expiry", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("UPDATE document_links")).
			WithArgs(5, now, "link-1").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		tx, err := db.BeginTx(context.Background(), nil)
		require.NoError(t, err)

		ok, err := repo.ConsumeDocumentLinkTx(context.Background(), tx, "link-1", 5, now)
		require.NoError(t, err)
		assert.False(t, ok)
		require.NoError(t, tx.Rollback())
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmPayment(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewLinkRepo(db)
	now := time.Now().UTC()

	t.Run("wins from receipt_uploaded", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("UPDATE payment_links")).
			WithArgs("confirmed", "admin-1", now, "pay-1", "receipt_uploaded").
			WillReturnResult(sqlmock.NewResult(0, 1))

		ok, err := repo.ConfirmPayment(context.Background(), "pay-1", "admin-1", now)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("second confirmation loses", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("UPDATE payment_links")).
			WithArgs("confirmed", "admin-2", now, "pay-1", "receipt_uploaded").
			WillReturnResult(sqlmock.NewResult(0, 0))

		ok, err := repo.ConfirmPayment(context.Background(), "pay-1", "admin-2", now)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkReceiptUploadedTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewLinkRepo(db)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE payment_links")).
		WithArgs("receipt_uploaded", "uploads/receipt.pdf", "pay-1", "pending", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)

	ok, err := repo.MarkReceiptUploadedTx(context.Background(), tx, "pay-1", "uploads/receipt.pdf", now)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeactivateDocumentLinkIsOneWay(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewLinkRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE document_links SET is_active = FALSE")).
		WithArgs("link-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE document_links SET is_active = FALSE")).
		WithArgs("link-1").WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.DeactivateDocumentLink(context.Background(), "link-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.DeactivateDocumentLink(context.Background(), "link-1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
