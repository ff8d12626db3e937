package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dimitrije/teamtasks-api/internal/database"
	"github.com/dimitrije/teamtasks-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var userRowColumns = []string{"id", "username", "email", "password_hash", "created_at", "updated_at"}

func setupUserService(t *testing.T) (*UserService, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	db := &database.DB{Pool: mock}
	return NewUserService(db, NewPasswordHasher(bcrypt.MinCost)), mock
}

func hashForTest(t *testing.T, password string) string {
	t.Helper()
	hash, err := NewPasswordHasher(bcrypt.MinCost).Hash(password)
	require.NoError(t, err)
	return hash
}

func TestUserService_Register(t *testing.T) {
	svc, mock := setupUserService(t)
	ctx := context.Background()
	userID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM users WHERE email = \$1\)`).
		WithArgs("alice@example.com", "alice").
		WillReturnRows(pgxmock.NewRows([]string{"email_taken", "username_taken"}).AddRow(false, false))

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("alice", "alice@example.com", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(userRowColumns).AddRow(userID, "alice", "alice@example.com", "hash", now, now))

	user, err := svc.Register(ctx, "alice", "  Alice@Example.com ", "password123")

	require.NoError(t, err)
	assert.Equal(t, userID, user.ID)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_Register_EmailTaken(t *testing.T) {
	svc, mock := setupUserService(t)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("alice@example.com", "alice").
		WillReturnRows(pgxmock.NewRows([]string{"email_taken", "username_taken"}).AddRow(true, true))

	_, err := svc.Register(context.Background(), "alice", "alice@example.com", "password123")

	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_Register_UsernameTaken(t *testing.T) {
	svc, mock := setupUserService(t)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("alice@example.com", "alice").
		WillReturnRows(pgxmock.NewRows([]string{"email_taken", "username_taken"}).AddRow(false, true))

	_, err := svc.Register(context.Background(), "alice", "alice@example.com", "password123")

	assert.ErrorIs(t, err, ErrUsernameTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_Register_RaceOnInsert(t *testing.T) {
	svc, mock := setupUserService(t)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("alice@example.com", "alice").
		WillReturnRows(pgxmock.NewRows([]string{"email_taken", "username_taken"}).AddRow(false, false))

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("alice", "alice@example.com", pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"})

	_, err := svc.Register(context.Background(), "alice", "alice@example.com", "password123")

	assert.ErrorIs(t, err, ErrUsernameTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_Authenticate_ByEmail(t *testing.T) {
	svc, mock := setupUserService(t)
	userID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
		WithArgs("alice@example.com").
		WillReturnRows(pgxmock.NewRows(userRowColumns).
			AddRow(userID, "alice", "alice@example.com", hashForTest(t, "password123"), now, now))

	user, err := svc.Authenticate(context.Background(), "alice@example.com", "password123")

	require.NoError(t, err)
	assert.Equal(t, userID, user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_Authenticate_ByUsername(t *testing.T) {
	svc, mock := setupUserService(t)
	userID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`SELECT .+ FROM users WHERE username = \$1`).
		WithArgs("alice").
		WillReturnRows(pgxmock.NewRows(userRowColumns).
			AddRow(userID, "alice", "alice@example.com", hashForTest(t, "password123"), now, now))

	user, err := svc.Authenticate(context.Background(), "alice", "password123")

	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_Authenticate_WrongPassword(t *testing.T) {
	svc, mock := setupUserService(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT .+ FROM users WHERE username = \$1`).
		WithArgs("alice").
		WillReturnRows(pgxmock.NewRows(userRowColumns).
			AddRow(uuid.New(), "alice", "alice@example.com", hashForTest(t, "password123"), now, now))

	_, err := svc.Authenticate(context.Background(), "alice", "wrong-password")

	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_Authenticate_UnknownUser(t *testing.T) {
	svc, mock := setupUserService(t)

	mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
		WithArgs("ghost@example.com").
		WillReturnError(pgx.ErrNoRows)

	_, err := svc.Authenticate(context.Background(), "ghost@example.com", "password123")

	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_GetByID_NotFound(t *testing.T) {
	svc, mock := setupUserService(t)
	userID := uuid.New()

	mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1`).
		WithArgs(userID).
		WillReturnError(pgx.ErrNoRows)

	_, err := svc.GetByID(context.Background(), userID)

	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_GetByID_DatabaseError(t *testing.T) {
	svc, mock := setupUserService(t)
	userID := uuid.New()

	mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1`).
		WithArgs(userID).
		WillReturnError(errors.New("connection reset"))

	_, err := svc.GetByID(context.Background(), userID)

	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUserNotFound)
	assert.Contains(t, err.Error(), "failed to get user")
}

func TestUserService_Update(t *testing.T) {
	svc, mock := setupUserService(t)
	userID := uuid.New()
	now := time.Now()
	newName := "alice2"

	mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1`).
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows(userRowColumns).AddRow(userID, "alice", "alice@example.com", "hash", now, now))

	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM users WHERE username = \$1\)`).
		WithArgs(newName).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	mock.ExpectQuery(`UPDATE users SET username = \$1, email = \$2`).
		WithArgs(newName, "alice@example.com", userID).
		WillReturnRows(pgxmock.NewRows(userRowColumns).AddRow(userID, newName, "alice@example.com", "hash", now, now))

	user, err := svc.Update(context.Background(), userID, &newName, nil)

	require.NoError(t, err)
	assert.Equal(t, newName, user.Username)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_Update_EmailTaken(t *testing.T) {
	svc, mock := setupUserService(t)
	userID := uuid.New()
	now := time.Now()
	newEmail := "bob@example.com"

	mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1`).
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows(userRowColumns).AddRow(userID, "alice", "alice@example.com", "hash", now, now))

	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM users WHERE email = \$1\)`).
		WithArgs(newEmail).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	_, err := svc.Update(context.Background(), userID, nil, &newEmail)

	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_Update_NoChanges(t *testing.T) {
	svc, mock := setupUserService(t)
	userID := uuid.New()
	now := time.Now()
	sameName := "alice"

	mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1`).
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows(userRowColumns).AddRow(userID, "alice", "alice@example.com", "hash", now, now))

	user, err := svc.Update(context.Background(), userID, &sameName, nil)

	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_ChangePassword(t *testing.T) {
	svc, mock := setupUserService(t)
	userID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1`).
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows(userRowColumns).
			AddRow(userID, "alice", "alice@example.com", hashForTest(t, "old-password"), now, now))

	mock.ExpectExec(`UPDATE users SET password_hash = \$1`).
		WithArgs(pgxmock.AnyArg(), userID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := svc.ChangePassword(context.Background(), userID, "old-password", "new-password")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_ChangePassword_WrongCurrent(t *testing.T) {
	svc, mock := setupUserService(t)
	userID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1`).
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows(userRowColumns).
			AddRow(userID, "alice", "alice@example.com", hashForTest(t, "old-password"), now, now))

	err := svc.ChangePassword(context.Background(), userID, "not-it", "new-password")

	assert.ErrorIs(t, err, ErrInvalidPassword)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "alice@example.com", NormalizeEmail("  Alice@EXAMPLE.com\t"))
}

func adminTeamRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"team_id", "others", "other_admins"})
}

func TestUserService_Delete(t *testing.T) {
	svc, mock := setupUserService(t)
	mock.MatchExpectationsInOrder(true)
	userID, soloTeam, sharedTeam := uuid.New(), uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM team_members tm WHERE tm.user_id = \$1 AND tm.role = \$2 FOR UPDATE OF tm`).
		WithArgs(userID, models.RoleAdmin).
		WillReturnRows(adminTeamRows().AddRow(soloTeam, 0, 0).AddRow(sharedTeam, 2, 1))
	mock.ExpectExec(`DELETE FROM tasks WHERE team_id`).WithArgs(soloTeam).WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM statuses WHERE team_id`).WithArgs(soloTeam).WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM invitations WHERE team_id`).WithArgs(soloTeam).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`DELETE FROM team_members WHERE team_id`).WithArgs(soloTeam).WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM teams WHERE id`).WithArgs(soloTeam).WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM invitations WHERE inviter_id = \$1 OR invitee_id = \$1`).WithArgs(userID).WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec(`DELETE FROM tasks WHERE team_id IS NULL AND created_by = \$1`).WithArgs(userID).WillReturnResult(pgxmock.NewResult("DELETE", 3))
	mock.ExpectExec(`DELETE FROM statuses WHERE team_id IS NULL AND created_by = \$1`).WithArgs(userID).WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).WithArgs(userID).WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	err := svc.Delete(context.Background(), userID)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_Delete_LastAdmin(t *testing.T) {
	svc, mock := setupUserService(t)
	userID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM team_members tm`).
		WithArgs(userID, models.RoleAdmin).
		WillReturnRows(adminTeamRows().AddRow(uuid.New(), 3, 0))
	mock.ExpectRollback()

	err := svc.Delete(context.Background(), userID)

	assert.ErrorIs(t, err, ErrLastAdmin)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_Delete_NotFound(t *testing.T) {
	svc, mock := setupUserService(t)
	userID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM team_members tm`).WithArgs(userID, models.RoleAdmin).WillReturnRows(adminTeamRows())
	mock.ExpectExec(`DELETE FROM invitations`).WithArgs(userID).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`DELETE FROM tasks`).WithArgs(userID).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`DELETE FROM statuses`).WithArgs(userID).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`DELETE FROM users`).WithArgs(userID).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectRollback()

	err := svc.Delete(context.Background(), userID)

	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
