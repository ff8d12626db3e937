package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dimitrije/teamtasks-api/internal/database"
	"github.com/dimitrije/teamtasks-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrInvalidResetToken = errors.New("invalid or expired reset token")

// ResetTokenService issues and redeems single-use password reset tokens.
// Only the SHA-256 of a token is stored on the user row.
type ResetTokenService struct {
	db     *database.DB
	hasher *PasswordHasher
	expiry time.Duration
}

func NewResetTokenService(db *database.DB, hasher *PasswordHasher, expiry time.Duration) *ResetTokenService {
	return &ResetTokenService{db: db, hasher: hasher, expiry: expiry}
}

func newResetToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Issue stores a fresh token for the account registered under email, replacing
// any earlier one. When no account matches it returns an empty token and a nil user.
func (s *ResetTokenService) Issue(ctx context.Context, email string) (string, *models.User, error) {
	token := newResetToken()
	expiresAt := time.Now().Add(s.expiry)

	user, err := scanUser(s.db.Pool.QueryRow(ctx, `
		UPDATE users
		SET reset_token_hash = $1, reset_expires_at = $2, updated_at = NOW()
		WHERE email = $3
		RETURNING `+userColumns, HashToken(token), expiresAt, NormalizeEmail(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil, nil
		}
		return "", nil, fmt.Errorf("failed to store reset token: %w", err)
	}

	return token, user, nil
}

// Reset sets a new password for the holder of token and consumes the token.
// The check and the write happen in one statement so a token cannot be used twice.
func (s *ResetTokenService) Reset(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return ErrInvalidResetToken
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	tag, err := s.db.Pool.Exec(ctx, `
		UPDATE users
		SET password_hash = $1, reset_token_hash = NULL, reset_expires_at = NULL, updated_at = NOW()
		WHERE reset_token_hash = $2 AND reset_expires_at > NOW()
	`, hash, HashToken(token))
	if err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidResetToken
	}
	return nil
}

func (s *ResetTokenService) CleanupExpired(ctx context.Context) (int64, error) {
	tag, err := s.db.Pool.Exec(ctx, `
		UPDATE users SET reset_token_hash = NULL, reset_expires_at = NULL
		WHERE reset_expires_at IS NOT NULL AND reset_expires_at < NOW()
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up reset tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
