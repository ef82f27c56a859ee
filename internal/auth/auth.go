// internal/auth/auth.go
package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"agency-crm/internal/activity"
	"agency-crm/internal/common/config"
	apperrors "agency-crm/internal/common/errors"
	"agency-crm/internal/models"
	"agency-crm/internal/repository"
)

// Claims is the JWT payload for a staff session.
type Claims struct {
	UserID string `json:"uid"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Service authenticates staff and issues session tokens.
type Service struct {
	users    *repository.UserRepo
	recorder *activity.Recorder
	secret   []byte
	tokenTTL time.Duration
}

func NewService(users *repository.UserRepo, recorder *activity.Recorder, cfg config.AuthConfig) *Service {
	ttl := time.Duration(cfg.TokenTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		users:    users,
		recorder: recorder,
		secret:   []byte(cfg.JWTSecret),
		tokenTTL: ttl,
	}
}

// LoginResult is the response to a successful login.
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

// Login verifies credentials and issues a signed token. Wrong email and
// wrong password return the same error.
func (s *Service) Login(ctx context.Context, email, password, clientIP string) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewForbiddenError("invalid credentials")
		}
		return nil, apperrors.FromError(err)
	}
	if !user.IsActive {
		return nil, apperrors.NewForbiddenError("account disabled")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.NewForbiddenError("invalid credentials")
	}

	now := time.Now().UTC()
	token, expiresAt, err := s.IssueToken(user.ID, user.Role)
	if err != nil {
		return nil, apperrors.FromError(err)
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err == nil {
		s.recorder.Record(ctx, activity.Entry{
			UserID:     user.ID,
			Action:     models.ActionUserLogin,
			EntityType: "user",
			EntityID:   user.ID,
			IPAddress:  clientIP,
		})
	}

	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// IssueToken signs a session token for the given user and role.
func (s *Service) IssueToken(userID, role string) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(s.tokenTTL)
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Verify parses and validates a session token.
func (s *Service) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperrors.NewForbiddenError("invalid or expired token")
	}
	return claims, nil
}

// HashPassword produces a bcrypt hash for seeding and account creation.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
