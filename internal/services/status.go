package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dimitrije/teamtasks-api/internal/database"
	"github.com/dimitrije/teamtasks-api/internal/models"
	"github.com/dimitrije/teamtasks-api/internal/pagination"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrStatusNotFound   = errors.New("status not found")
	ErrStatusNameTaken  = errors.New("a status with this name already exists")
	ErrNoFallbackStatus = errors.New("cannot delete status - no fallback status available")
	ErrVersionConflict  = errors.New("modified by another user, refresh")
)

const statusColumns = `id, name, team_id, created_by, version, created_at, updated_at`

type StatusService struct {
	db *database.DB
}

func NewStatusService(db *database.DB) *StatusService {
	return &StatusService{db: db}
}

func scanStatus(row pgx.Row) (*models.Status, error) {
	var st models.Status
	err := row.Scan(&st.ID, &st.Name, &st.TeamID, &st.CreatedBy, &st.Version, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// nameTaken checks the name within one scope: the team when teamID is set,
// otherwise ownerID's personal statuses. excludeID is skipped.
func (s *StatusService) nameTaken(ctx context.Context, name string, teamID *uuid.UUID, ownerID, excludeID uuid.UUID) (bool, error) {
	var taken bool
	var err error
	if teamID != nil {
		err = s.db.Pool.QueryRow(ctx, `
			SELECT EXISTS(SELECT 1 FROM statuses WHERE team_id = $1 AND name = $2 AND id <> $3)
		`, *teamID, name, excludeID).Scan(&taken)
	} else {
		err = s.db.Pool.QueryRow(ctx, `
			SELECT EXISTS(SELECT 1 FROM statuses WHERE team_id IS NULL AND created_by = $1 AND name = $2 AND id <> $3)
		`, ownerID, name, excludeID).Scan(&taken)
	}
	if err != nil {
		return false, fmt.Errorf("failed to check status name: %w", err)
	}
	return taken, nil
}

func isStatusNameViolation(err error) bool {
	return database.IsUniqueViolation(err, "statuses_team_name_key") ||
		database.IsUniqueViolation(err, "statuses_personal_name_key")
}

func (s *StatusService) Create(ctx context.Context, name string, teamID *uuid.UUID, creatorID uuid.UUID) (*models.Status, error) {
	taken, err := s.nameTaken(ctx, name, teamID, creatorID, uuid.Nil)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrStatusNameTaken
	}

	st, err := scanStatus(s.db.Pool.QueryRow(ctx, `
		INSERT INTO statuses (name, team_id, created_by)
		VALUES ($1, $2, $3)
		RETURNING `+statusColumns, name, teamID, creatorID))
	if err != nil {
		if isStatusNameViolation(err) {
			return nil, ErrStatusNameTaken
		}
		return nil, fmt.Errorf("failed to create status: %w", err)
	}
	return st, nil
}

func (s *StatusService) GetByID(ctx context.Context, id uuid.UUID) (*models.Status, error) {
	st, err := scanStatus(s.db.Pool.QueryRow(ctx, `SELECT `+statusColumns+` FROM statuses WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStatusNotFound
		}
		return nil, fmt.Errorf("failed to get status: %w", err)
	}
	return st, nil
}

// List returns the team's statuses when teamID is set, otherwise userID's
// personal statuses. Results are ordered by name.
func (s *StatusService) List(ctx context.Context, teamID *uuid.UUID, userID uuid.UUID, page pagination.Params) ([]models.Status, int, error) {
	where := `team_id IS NULL AND created_by = $1`
	var arg any = userID
	if teamID != nil {
		where = `team_id = $1`
		arg = *teamID
	}

	var total int
	if err := s.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM statuses WHERE `+where, arg).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count statuses: %w", err)
	}

	rows, err := s.db.Pool.Query(ctx, `
		SELECT `+statusColumns+` FROM statuses
		WHERE `+where+`
		ORDER BY name, id
		LIMIT $2 OFFSET $3
	`, arg, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list statuses: %w", err)
	}
	defer rows.Close()

	statuses := []models.Status{}
	for rows.Next() {
		st, err := scanStatus(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan status: %w", err)
		}
		statuses = append(statuses, *st)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list statuses: %w", err)
	}
	return statuses, total, nil
}

// Update renames the status if expectedVersion still matches the stored one.
func (s *StatusService) Update(ctx context.Context, id uuid.UUID, name string, expectedVersion int) (*models.Status, error) {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var owner uuid.UUID
	if current.CreatedBy != nil {
		owner = *current.CreatedBy
	}
	taken, err := s.nameTaken(ctx, name, current.TeamID, owner, id)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrStatusNameTaken
	}

	st, err := scanStatus(s.db.Pool.QueryRow(ctx, `
		UPDATE statuses
		SET name = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3
		RETURNING `+statusColumns, name, id, expectedVersion))
	if err != nil {
		if isStatusNameViolation(err) {
			return nil, ErrStatusNameTaken
		}
		return nil, s.checkVersionConflict(ctx, id, expectedVersion, err)
	}
	return st, nil
}

func (s *StatusService) checkVersionConflict(ctx context.Context, id uuid.UUID, expectedVersion int, originalErr error) error {
	var currentVersion int
	err := s.db.Pool.QueryRow(ctx, `SELECT version FROM statuses WHERE id = $1`, id).Scan(&currentVersion)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrStatusNotFound
		}
		return fmt.Errorf("failed to check status version: %w", err)
	}
	if currentVersion != expectedVersion {
		return ErrVersionConflict
	}
	return fmt.Errorf("failed to update status: %w", originalErr)
}

// Delete removes the status. Tasks still using it are first moved to a
// fallback status in the same scope; without one nothing is changed.
func (s *StatusService) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	st, err := scanStatus(tx.QueryRow(ctx, `SELECT `+statusColumns+` FROM statuses WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrStatusNotFound
		}
		return fmt.Errorf("failed to get status: %w", err)
	}

	var inUse int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM tasks WHERE status_id = $1`, id).Scan(&inUse); err != nil {
		return fmt.Errorf("failed to count tasks: %w", err)
	}

	if inUse > 0 {
		scope := `team_id IS NULL AND created_by = $2`
		var scopeArg any = st.CreatedBy
		if st.TeamID != nil {
			scope = `team_id = $2`
			scopeArg = *st.TeamID
		}

		var fallbackID uuid.UUID
		err = tx.QueryRow(ctx, `
			SELECT id FROM statuses
			WHERE id <> $1 AND `+scope+`
			ORDER BY COALESCE(array_position($3::text[], name::text), 2147483647), created_at, id
			LIMIT 1
		`, id, scopeArg, models.FallbackStatusNames).Scan(&fallbackID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNoFallbackStatus
			}
			return fmt.Errorf("failed to find fallback status: %w", err)
		}

		_, err = tx.Exec(ctx, `
			UPDATE tasks SET status_id = $1, version = version + 1, updated_at = NOW()
			WHERE status_id = $2
		`, fallbackID, id)
		if err != nil {
			return fmt.Errorf("failed to reassign tasks: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM statuses WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
