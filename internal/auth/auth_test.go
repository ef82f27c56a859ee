// internal/auth/auth_test.go
package auth

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agency-crm/internal/activity"
	"agency-crm/internal/common/config"
	apperrors "agency-crm/internal/common/errors"
	"agency-crm/internal/common/logger"
	"agency-crm/internal/models"
	"agency-crm/internal/repository"
)

func serviceForTest(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	users := repository.NewUserRepo(db)
	recorder := activity.NewRecorder(db, nil, logger.NewNoOpLogger())
	svc := NewService(users, recorder, config.AuthConfig{JWTSecret: "test-secret", TokenTTLHours: 1})
	return svc, mock
}

func userRow(hash string, active bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "email", "password_hash", "role", "is_active", "last_login", "created_at",
	}).AddRow("user-1", "Admin", "admin@agency.test", hash, models.RoleAdmin, active, nil, time.Now())
}

func TestLoginSuccess(t *testing.T) {
	svc, mock := serviceForTest(t)

	hash, err := HashPassword("correct horse")
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, email, password_hash, role, is_active, last_login, created_at FROM users WHERE email = $1")).
		WithArgs("admin@agency.test").
		WillReturnRows(userRow(hash, true))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET last_login")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO activity_log")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	result, err := svc.Login(context.Background(), "admin@agency.test", "correct horse", "10.0.0.1")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, "user-1", result.User.ID)

	claims, err := svc.Verify(result.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, mock := serviceForTest(t)

	hash, err := HashPassword("correct horse")
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = $1")).
		WillReturnRows(userRow(hash, true))

	_, err = svc.Login(context.Background(), "admin@agency.test", "wrong", "10.0.0.1")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeForbidden))
}

func TestLoginUnknownEmailSameError(t *testing.T) {
	svc, mock := serviceForTest(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = $1")).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "email", "password_hash", "role", "is_active", "last_login", "created_at",
		}))

	_, err := svc.Login(context.Background(), "nobody@agency.test", "whatever", "10.0.0.1")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeForbidden))
}

func TestLoginInactiveAccount(t *testing.T) {
	svc, mock := serviceForTest(t)

	hash, err := HashPassword("correct horse")
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = $1")).
		WillReturnRows(userRow(hash, false))

	_, err = svc.Login(context.Background(), "admin@agency.test", "correct horse", "10.0.0.1")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeForbidden))
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	svc, _ := serviceForTest(t)

	token, _, err := svc.IssueToken("user-1", models.RoleAgent)
	require.NoError(t, err)

	_, err = svc.Verify(token + "x")
	assert.Error(t, err)

	other := NewService(nil, nil, config.AuthConfig{JWTSecret: "different-secret", TokenTTLHours: 1})
	_, err = other.Verify(token)
	assert.Error(t, err)
}
