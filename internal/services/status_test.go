package services

import (
	"context"
	"testing"
	"time"

	"github.com/dimitrije/teamtasks-api/internal/database"
	"github.com/dimitrije/teamtasks-api/internal/models"
	"github.com/dimitrije/teamtasks-api/internal/pagination"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var statusRowColumns = []string{"id", "name", "team_id", "created_by", "version", "created_at", "updated_at"}

func setupStatusService(t *testing.T) (*StatusService, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewStatusService(&database.DB{Pool: mock}), mock
}

func statusRows(id uuid.UUID, name string, teamID, createdBy *uuid.UUID, version int) *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows(statusRowColumns).AddRow(id, name, teamID, createdBy, version, now, now)
}

func TestStatusService_Create_Team(t *testing.T) {
	svc, mock := setupStatusService(t)
	teamID, userID, statusID := uuid.New(), uuid.New(), uuid.New()

	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM statuses WHERE team_id = \$1 AND name = \$2`).
		WithArgs(teamID, "Todo", uuid.Nil).
		WillReturnRows(boolRow(false))
	mock.ExpectQuery(`INSERT INTO statuses`).
		WithArgs("Todo", &teamID, userID).
		WillReturnRows(statusRows(statusID, "Todo", &teamID, &userID, 1))

	st, err := svc.Create(context.Background(), "Todo", &teamID, userID)

	require.NoError(t, err)
	assert.Equal(t, statusID, st.ID)
	assert.False(t, st.IsPersonal())
	assert.Equal(t, 1, st.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatusService_Create_PersonalDuplicate(t *testing.T) {
	svc, mock := setupStatusService(t)
	userID := uuid.New()

	mock.ExpectQuery(`team_id IS NULL AND created_by = \$1 AND name = \$2`).
		WithArgs(userID, "Todo", uuid.Nil).
		WillReturnRows(boolRow(true))

	_, err := svc.Create(context.Background(), "Todo", nil, userID)

	assert.ErrorIs(t, err, ErrStatusNameTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatusService_Create_UniqueViolation(t *testing.T) {
	svc, mock := setupStatusService(t)
	teamID, userID := uuid.New(), uuid.New()

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(teamID, "Todo", uuid.Nil).
		WillReturnRows(boolRow(false))
	mock.ExpectQuery(`INSERT INTO statuses`).
		WithArgs("Todo", &teamID, userID).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "statuses_team_name_key"})

	_, err := svc.Create(context.Background(), "Todo", &teamID, userID)

	assert.ErrorIs(t, err, ErrStatusNameTaken)
}

func TestStatusService_GetByID_NotFound(t *testing.T) {
	svc, mock := setupStatusService(t)
	id := uuid.New()

	mock.ExpectQuery(`FROM statuses WHERE id = \$1`).WithArgs(id).WillReturnError(pgx.ErrNoRows)

	_, err := svc.GetByID(context.Background(), id)

	assert.ErrorIs(t, err, ErrStatusNotFound)
}

func TestStatusService_List_Personal(t *testing.T) {
	svc, mock := setupStatusService(t)
	userID := uuid.New()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM statuses WHERE team_id IS NULL AND created_by = \$1`).
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`WHERE team_id IS NULL AND created_by = \$1 ORDER BY name`).
		WithArgs(userID, 20, 0).
		WillReturnRows(statusRows(uuid.New(), "Todo", nil, &userID, 1))

	statuses, total, err := svc.List(context.Background(), nil, userID, pagination.Params{Page: 1, PageSize: 20})

	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, statuses, 1)
	assert.True(t, statuses[0].IsPersonal())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatusService_List_Team(t *testing.T) {
	svc, mock := setupStatusService(t)
	teamID := uuid.New()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM statuses WHERE team_id = \$1`).
		WithArgs(teamID).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`WHERE team_id = \$1 ORDER BY name`).
		WithArgs(teamID, 20, 20).
		WillReturnRows(pgxmock.NewRows(statusRowColumns))

	statuses, total, err := svc.List(context.Background(), &teamID, uuid.New(), pagination.Params{Page: 2, PageSize: 20})

	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, statuses)
	assert.NotNil(t, statuses)
}

func TestStatusService_Update(t *testing.T) {
	svc, mock := setupStatusService(t)
	teamID, userID, id := uuid.New(), uuid.New(), uuid.New()

	mock.ExpectQuery(`FROM statuses WHERE id = \$1`).WithArgs(id).
		WillReturnRows(statusRows(id, "Todo", &teamID, &userID, 3))
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM statuses WHERE team_id = \$1`).
		WithArgs(teamID, "Doing", id).
		WillReturnRows(boolRow(false))
	mock.ExpectQuery(`UPDATE statuses SET name = \$1, version = version \+ 1`).
		WithArgs("Doing", id, 3).
		WillReturnRows(statusRows(id, "Doing", &teamID, &userID, 4))

	st, err := svc.Update(context.Background(), id, "Doing", 3)

	require.NoError(t, err)
	assert.Equal(t, "Doing", st.Name)
	assert.Equal(t, 4, st.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatusService_Update_DuplicateInScope(t *testing.T) {
	svc, mock := setupStatusService(t)
	userID, id := uuid.New(), uuid.New()

	mock.ExpectQuery(`FROM statuses WHERE id = \$1`).WithArgs(id).
		WillReturnRows(statusRows(id, "Todo", nil, &userID, 1))
	mock.ExpectQuery(`team_id IS NULL AND created_by = \$1 AND name = \$2 AND id <> \$3`).
		WithArgs(userID, "Done", id).
		WillReturnRows(boolRow(true))

	_, err := svc.Update(context.Background(), id, "Done", 1)

	assert.ErrorIs(t, err, ErrStatusNameTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatusService_Update_VersionConflict(t *testing.T) {
	svc, mock := setupStatusService(t)
	teamID, id := uuid.New(), uuid.New()

	mock.ExpectQuery(`FROM statuses WHERE id = \$1`).WithArgs(id).
		WillReturnRows(statusRows(id, "Todo", &teamID, nil, 5))
	mock.ExpectQuery(`SELECT EXISTS`).WithArgs(teamID, "Doing", id).WillReturnRows(boolRow(false))
	mock.ExpectQuery(`UPDATE statuses`).WithArgs("Doing", id, 4).WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`SELECT version FROM statuses WHERE id = \$1`).WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"version"}).AddRow(5))

	_, err := svc.Update(context.Background(), id, "Doing", 4)

	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatusService_Update_DeletedMeanwhile(t *testing.T) {
	svc, mock := setupStatusService(t)
	teamID, id := uuid.New(), uuid.New()

	mock.ExpectQuery(`FROM statuses WHERE id = \$1`).WithArgs(id).
		WillReturnRows(statusRows(id, "Todo", &teamID, nil, 1))
	mock.ExpectQuery(`SELECT EXISTS`).WithArgs(teamID, "Doing", id).WillReturnRows(boolRow(false))
	mock.ExpectQuery(`UPDATE statuses`).WithArgs("Doing", id, 1).WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`SELECT version FROM statuses`).WithArgs(id).WillReturnError(pgx.ErrNoRows)

	_, err := svc.Update(context.Background(), id, "Doing", 1)

	assert.ErrorIs(t, err, ErrStatusNotFound)
}

func TestStatusService_Delete_Unused(t *testing.T) {
	svc, mock := setupStatusService(t)
	teamID, id := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM statuses WHERE id = \$1 FOR UPDATE`).WithArgs(id).
		WillReturnRows(statusRows(id, "Review", &teamID, nil, 1))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM tasks WHERE status_id = \$1`).WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(`DELETE FROM statuses WHERE id = \$1`).WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	err := svc.Delete(context.Background(), id)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatusService_Delete_ReassignsToFallback(t *testing.T) {
	svc, mock := setupStatusService(t)
	mock.MatchExpectationsInOrder(true)
	teamID, id, fallbackID := uuid.New(), uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs(id).
		WillReturnRows(statusRows(id, "Review", &teamID, nil, 1))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM tasks`).WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`SELECT id FROM statuses WHERE id <> \$1 AND team_id = \$2 ORDER BY COALESCE\(array_position`).
		WithArgs(id, teamID, models.FallbackStatusNames).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(fallbackID))
	mock.ExpectExec(`UPDATE tasks SET status_id = \$1, version = version \+ 1`).
		WithArgs(fallbackID, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))
	mock.ExpectExec(`DELETE FROM statuses WHERE id = \$1`).WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	err := svc.Delete(context.Background(), id)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatusService_Delete_NoFallback(t *testing.T) {
	svc, mock := setupStatusService(t)
	userID, id := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs(id).
		WillReturnRows(statusRows(id, "Todo", nil, &userID, 1))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM tasks`).WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`team_id IS NULL AND created_by = \$2`).
		WithArgs(id, &userID, models.FallbackStatusNames).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	err := svc.Delete(context.Background(), id)

	assert.ErrorIs(t, err, ErrNoFallbackStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatusService_Delete_ReassignFailureRollsBack(t *testing.T) {
	svc, mock := setupStatusService(t)
	teamID, id, fallbackID := uuid.New(), uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs(id).
		WillReturnRows(statusRows(id, "Review", &teamID, nil, 1))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM tasks`).WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`SELECT id FROM statuses`).
		WithArgs(id, teamID, models.FallbackStatusNames).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(fallbackID))
	mock.ExpectExec(`UPDATE tasks SET status_id`).
		WithArgs(fallbackID, id).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := svc.Delete(context.Background(), id)

	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatusService_Delete_NotFound(t *testing.T) {
	svc, mock := setupStatusService(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs(id).WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	err := svc.Delete(context.Background(), id)

	assert.ErrorIs(t, err, ErrStatusNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
