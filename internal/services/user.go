package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/badoux/checkmail"
	"github.com/dimitrije/teamtasks-api/internal/database"
	"github.com/dimitrije/teamtasks-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already exists")
	ErrUsernameTaken      = errors.New("username taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidPassword    = errors.New("invalid current password")
)

const userColumns = `id, username, email, password_hash, created_at, updated_at`

type UserService struct {
	db     *database.DB
	hasher *PasswordHasher
}

func NewUserService(db *database.DB, hasher *PasswordHasher) *UserService {
	return &UserService{db: db, hasher: hasher}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// NormalizeEmail trims and lower-cases an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *UserService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	email = NormalizeEmail(email)

	var emailTaken, usernameTaken bool
	err := s.db.Pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM users WHERE email = $1),
		       EXISTS(SELECT 1 FROM users WHERE username = $2)
	`, email, username).Scan(&emailTaken, &usernameTaken)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing users: %w", err)
	}
	if emailTaken {
		return nil, ErrEmailTaken
	}
	if usernameTaken {
		return nil, ErrUsernameTaken
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user, err := scanUser(s.db.Pool.QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING `+userColumns, username, email, hash))
	if err != nil {
		if mapped := userConflict(err); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Authenticate resolves identifier as an email or a username and checks the password.
// Unknown users and wrong passwords are indistinguishable to the caller.
func (s *UserService) Authenticate(ctx context.Context, identifier, password string) (*models.User, error) {
	user, err := s.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, NormalizeEmail(email))
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, strings.TrimSpace(username))
}

// GetByIdentifier looks the user up by email when identifier is shaped like an
// address and by username otherwise. Usernames cannot contain '@'.
func (s *UserService) GetByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	identifier = strings.TrimSpace(identifier)
	if checkmail.ValidateFormat(identifier) == nil {
		return s.GetByEmail(ctx, identifier)
	}
	return s.GetByUsername(ctx, identifier)
}

func (s *UserService) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	user, err := scanUser(s.db.Pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// Update changes username and/or email. Nil arguments keep the current value.
func (s *UserService) Update(ctx context.Context, id uuid.UUID, username, email *string) (*models.User, error) {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	newUsername := current.Username
	newEmail := current.Email

	if email != nil && NormalizeEmail(*email) != current.Email {
		newEmail = NormalizeEmail(*email)
		var taken bool
		if err := s.db.Pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, newEmail).Scan(&taken); err != nil {
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
		if taken {
			return nil, ErrEmailTaken
		}
	}

	if username != nil && *username != current.Username {
		newUsername = *username
		var taken bool
		if err := s.db.Pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, newUsername).Scan(&taken); err != nil {
			return nil, fmt.Errorf("failed to check username: %w", err)
		}
		if taken {
			return nil, ErrUsernameTaken
		}
	}

	if newUsername == current.Username && newEmail == current.Email {
		return current, nil
	}

	user, err := scanUser(s.db.Pool.QueryRow(ctx, `
		UPDATE users SET username = $1, email = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING `+userColumns, newUsername, newEmail, id))
	if err != nil {
		if mapped := userConflict(err); mapped != nil {
			return nil, mapped
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

func (s *UserService) ChangePassword(ctx context.Context, id uuid.UUID, currentPassword, newPassword string) error {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(currentPassword, user.PasswordHash) {
		return ErrInvalidPassword
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	_, err = s.db.Pool.Exec(ctx, `
		UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2
	`, hash, id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// Delete removes the account. Teams where the user is the only member go with
// it. A user who is the last admin of a team with other members must hand the
// role over first. Personal tasks and statuses are deleted, and so are
// invitations the user sent or received. Team tasks and statuses the user
// created stay behind with no creator.
func (s *UserService) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
		SELECT tm.team_id,
		       (SELECT COUNT(*) FROM team_members o WHERE o.team_id = tm.team_id AND o.user_id <> $1),
		       (SELECT COUNT(*) FROM team_members o WHERE o.team_id = tm.team_id AND o.user_id <> $1 AND o.role = $2)
		FROM team_members tm
		WHERE tm.user_id = $1 AND tm.role = $2
		FOR UPDATE OF tm
	`, id, models.RoleAdmin)
	if err != nil {
		return fmt.Errorf("failed to check admin teams: %w", err)
	}
	var soloTeams []uuid.UUID
	lastAdmin := false
	for rows.Next() {
		var teamID uuid.UUID
		var others, otherAdmins int
		if err := rows.Scan(&teamID, &others, &otherAdmins); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan admin team: %w", err)
		}
		switch {
		case others == 0:
			soloTeams = append(soloTeams, teamID)
		case otherAdmins == 0:
			lastAdmin = true
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to check admin teams: %w", err)
	}
	if lastAdmin {
		return ErrLastAdmin
	}

	for _, teamID := range soloTeams {
		if err := deleteTeamRows(ctx, tx, teamID); err != nil {
			return err
		}
	}

	steps := []struct {
		what  string
		query string
	}{
		{"invitations", `DELETE FROM invitations WHERE inviter_id = $1 OR invitee_id = $1`},
		{"personal tasks", `DELETE FROM tasks WHERE team_id IS NULL AND created_by = $1`},
		{"personal statuses", `DELETE FROM statuses WHERE team_id IS NULL AND created_by = $1`},
	}
	for _, step := range steps {
		if _, err := tx.Exec(ctx, step.query, id); err != nil {
			return fmt.Errorf("failed to delete user %s: %w", step.what, err)
		}
	}

	result, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func userConflict(err error) error {
	switch {
	case database.IsUniqueViolation(err, "users_email_key"):
		return ErrEmailTaken
	case database.IsUniqueViolation(err, "users_username_key"):
		return ErrUsernameTaken
	}
	return nil
}
