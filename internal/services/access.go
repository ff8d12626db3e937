package services

import (
	"context"
	"fmt"

	"github.com/dimitrije/teamtasks-api/internal/database"
	"github.com/dimitrije/teamtasks-api/internal/models"
	"github.com/google/uuid"
)

// AccessService answers the authorization questions handlers ask before
// touching a team, status or task. All methods are read-only.
type AccessService struct {
	db *database.DB
}

func NewAccessService(db *database.DB) *AccessService {
	return &AccessService{db: db}
}

func (s *AccessService) TeamExists(ctx context.Context, teamID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.Pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM teams WHERE id = $1)`, teamID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check team: %w", err)
	}
	return exists, nil
}

// HasTeamAccess is true for members of any role and for the team's creator.
func (s *AccessService) HasTeamAccess(ctx context.Context, teamID, userID uuid.UUID) (bool, error) {
	var ok bool
	err := s.db.Pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM team_members WHERE team_id = $1 AND user_id = $2)
		    OR EXISTS(SELECT 1 FROM teams WHERE id = $1 AND created_by = $2)
	`, teamID, userID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("failed to check team access: %w", err)
	}
	return ok, nil
}

func (s *AccessService) IsTeamAdmin(ctx context.Context, teamID, userID uuid.UUID) (bool, error) {
	var ok bool
	err := s.db.Pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM team_members WHERE team_id = $1 AND user_id = $2 AND role = $3)
	`, teamID, userID, models.RoleAdmin).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("failed to check team admin: %w", err)
	}
	return ok, nil
}

func (s *AccessService) IsTeamMember(ctx context.Context, teamID, userID uuid.UUID) (bool, error) {
	var ok bool
	err := s.db.Pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM team_members WHERE team_id = $1 AND user_id = $2)
	`, teamID, userID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("failed to check team membership: %w", err)
	}
	return ok, nil
}

// CanManageTeam gates team update and delete: admins and the creator.
func (s *AccessService) CanManageTeam(ctx context.Context, team *models.Team, userID uuid.UUID) (bool, error) {
	if team.IsCreator(userID) {
		return true, nil
	}
	return s.IsTeamAdmin(ctx, team.ID, userID)
}

func (s *AccessService) HasStatusAccess(ctx context.Context, status *models.Status, userID uuid.UUID) (bool, error) {
	if status.IsPersonal() {
		return status.IsCreator(userID), nil
	}
	return s.HasTeamAccess(ctx, *status.TeamID, userID)
}

// HasTaskAccess gates task update and delete. Team tasks may be changed by
// members who are admins or who created the task.
func (s *AccessService) HasTaskAccess(ctx context.Context, task *models.Task, userID uuid.UUID) (bool, error) {
	if task.IsPersonal || task.TeamID == nil {
		return task.IsCreator(userID), nil
	}

	var role models.Role
	err := s.db.Pool.QueryRow(ctx, `
		SELECT COALESCE((SELECT role FROM team_members WHERE team_id = $1 AND user_id = $2), '')
	`, *task.TeamID, userID).Scan(&role)
	if err != nil {
		return false, fmt.Errorf("failed to check task access: %w", err)
	}

	switch role {
	case models.RoleAdmin:
		return true, nil
	case models.RoleMember:
		return task.IsCreator(userID), nil
	default:
		return false, nil
	}
}

// CanViewTask gates reading a single task. Any team access is enough for team tasks.
func (s *AccessService) CanViewTask(ctx context.Context, task *models.Task, userID uuid.UUID) (bool, error) {
	if task.IsPersonal || task.TeamID == nil {
		return task.IsCreator(userID), nil
	}
	return s.HasTeamAccess(ctx, *task.TeamID, userID)
}
