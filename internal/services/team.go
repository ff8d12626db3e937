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
	ErrTeamNotFound     = errors.New("team not found")
	ErrMemberNotFound   = errors.New("member not found")
	ErrNotMember        = errors.New("not a member of this team")
	ErrCannotModifySelf = errors.New("cannot modify your own membership")
	ErrLastAdmin        = errors.New("team must keep at least one admin")
)

const teamColumns = `t.id, t.name, t.description, t.created_by, t.created_at, t.updated_at`

type TeamService struct {
	db *database.DB
}

func NewTeamService(db *database.DB) *TeamService {
	return &TeamService{db: db}
}

func scanTeam(row pgx.Row, extra ...any) (*models.Team, error) {
	var team models.Team
	dest := append([]any{&team.ID, &team.Name, &team.Description, &team.CreatedBy, &team.CreatedAt, &team.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &team, nil
}

// Create inserts the team and makes its creator an admin in one transaction.
func (s *TeamService) Create(ctx context.Context, name string, description *string, creatorID uuid.UUID) (*models.Team, error) {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	team, err := scanTeam(tx.QueryRow(ctx, `
		INSERT INTO teams AS t (name, description, created_by)
		VALUES ($1, $2, $3)
		RETURNING `+teamColumns, name, description, creatorID))
	if err != nil {
		return nil, fmt.Errorf("failed to create team: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO team_members (team_id, user_id, role)
		VALUES ($1, $2, $3)
	`, team.ID, creatorID, models.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to add creator as admin: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return team, nil
}

func (s *TeamService) GetByID(ctx context.Context, teamID uuid.UUID) (*models.Team, error) {
	team, err := scanTeam(s.db.Pool.QueryRow(ctx, `SELECT `+teamColumns+` FROM teams t WHERE t.id = $1`, teamID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return team, nil
}

// ListForUser returns the teams userID created or belongs to, ordered by name,
// together with the total count across all pages.
func (s *TeamService) ListForUser(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]models.TeamWithRole, int, error) {
	var total int
	err := s.db.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM teams t
		WHERE t.created_by = $1
		   OR EXISTS(SELECT 1 FROM team_members tm WHERE tm.team_id = t.id AND tm.user_id = $1)
	`, userID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count teams: %w", err)
	}

	rows, err := s.db.Pool.Query(ctx, `
		SELECT `+teamColumns+`, COALESCE(tm.role, '')
		FROM teams t
		LEFT JOIN team_members tm ON tm.team_id = t.id AND tm.user_id = $1
		WHERE t.created_by = $1 OR tm.user_id IS NOT NULL
		ORDER BY t.name, t.id
		LIMIT $2 OFFSET $3
	`, userID, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	teams := []models.TeamWithRole{}
	for rows.Next() {
		var role models.Role
		team, err := scanTeam(rows, &role)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, models.TeamWithRole{Team: *team, Role: role})
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list teams: %w", err)
	}
	return teams, total, nil
}

func (s *TeamService) Update(ctx context.Context, teamID uuid.UUID, name string, description *string) (*models.Team, error) {
	team, err := scanTeam(s.db.Pool.QueryRow(ctx, `
		UPDATE teams AS t SET name = $1, description = $2, updated_at = NOW()
		WHERE t.id = $3
		RETURNING `+teamColumns, name, description, teamID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to update team: %w", err)
	}
	return team, nil
}

// Delete removes the team and everything it owns.
func (s *TeamService) Delete(ctx context.Context, teamID uuid.UUID) error {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := deleteTeamRows(ctx, tx, teamID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// deleteTeamRows deletes a team and its rows inside tx. Tasks go first because
// they restrict deletion of the statuses they reference.
func deleteTeamRows(ctx context.Context, tx pgx.Tx, teamID uuid.UUID) error {
	steps := []struct {
		what  string
		query string
	}{
		{"tasks", `DELETE FROM tasks WHERE team_id = $1`},
		{"statuses", `DELETE FROM statuses WHERE team_id = $1`},
		{"invitations", `DELETE FROM invitations WHERE team_id = $1`},
		{"members", `DELETE FROM team_members WHERE team_id = $1`},
		{"team", `DELETE FROM teams WHERE id = $1`},
	}
	for _, step := range steps {
		if _, err := tx.Exec(ctx, step.query, teamID); err != nil {
			return fmt.Errorf("failed to delete team %s: %w", step.what, err)
		}
	}
	return nil
}

func (s *TeamService) ListMembers(ctx context.Context, teamID uuid.UUID, page pagination.Params) ([]models.TeamMember, int, error) {
	return s.listMembers(ctx, `tm.team_id = $1`, teamID, page)
}

// ListMembershipsForUser returns every membership of every team userID belongs
// to, userID's own included, ordered by username.
func (s *TeamService) ListMembershipsForUser(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]models.TeamMember, int, error) {
	return s.listMembers(ctx, `tm.team_id IN (SELECT team_id FROM team_members WHERE user_id = $1)`, userID, page)
}

func (s *TeamService) listMembers(ctx context.Context, where string, arg any, page pagination.Params) ([]models.TeamMember, int, error) {
	var total int
	err := s.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM team_members tm WHERE `+where, arg).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count members: %w", err)
	}

	rows, err := s.db.Pool.Query(ctx, `
		SELECT tm.team_id, tm.user_id, tm.role, tm.created_at,
		       u.id, u.username, u.email, u.created_at, u.updated_at
		FROM team_members tm
		JOIN users u ON tm.user_id = u.id
		WHERE `+where+`
		ORDER BY u.username, tm.team_id
		LIMIT $2 OFFSET $3
	`, arg, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	members := []models.TeamMember{}
	for rows.Next() {
		var member models.TeamMember
		var user models.User
		if err := rows.Scan(
			&member.TeamID, &member.UserID, &member.Role, &member.CreatedAt,
			&user.ID, &user.Username, &user.Email, &user.CreatedAt, &user.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan member: %w", err)
		}
		member.User = &user
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list members: %w", err)
	}
	return members, total, nil
}

func (s *TeamService) GetMember(ctx context.Context, teamID, userID uuid.UUID) (*models.TeamMember, error) {
	var member models.TeamMember
	err := s.db.Pool.QueryRow(ctx, `
		SELECT team_id, user_id, role, created_at FROM team_members
		WHERE team_id = $1 AND user_id = $2
	`, teamID, userID).Scan(&member.TeamID, &member.UserID, &member.Role, &member.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return &member, nil
}

// UpdateMemberRole changes userID's role on behalf of actorID. Admin rows are
// locked for the duration so two concurrent demotions cannot both pass the
// last-admin check.
func (s *TeamService) UpdateMemberRole(ctx context.Context, teamID, actorID, userID uuid.UUID, role models.Role) error {
	if actorID == userID {
		return ErrCannotModifySelf
	}

	return s.withLockedMember(ctx, teamID, userID, func(tx pgx.Tx, current models.Role, admins int) error {
		if current == role {
			return nil
		}
		if current == models.RoleAdmin && admins <= 1 {
			return ErrLastAdmin
		}
		_, err := tx.Exec(ctx, `
			UPDATE team_members SET role = $1 WHERE team_id = $2 AND user_id = $3
		`, role, teamID, userID)
		if err != nil {
			return fmt.Errorf("failed to update member role: %w", err)
		}
		return nil
	})
}

func (s *TeamService) RemoveMember(ctx context.Context, teamID, actorID, userID uuid.UUID) error {
	if actorID == userID {
		return ErrCannotModifySelf
	}
	return s.deleteMember(ctx, teamID, userID)
}

// LeaveTeam removes the caller's own membership. The last admin cannot leave.
func (s *TeamService) LeaveTeam(ctx context.Context, teamID, userID uuid.UUID) error {
	err := s.deleteMember(ctx, teamID, userID)
	if errors.Is(err, ErrMemberNotFound) {
		return ErrNotMember
	}
	return err
}

func (s *TeamService) deleteMember(ctx context.Context, teamID, userID uuid.UUID) error {
	return s.withLockedMember(ctx, teamID, userID, func(tx pgx.Tx, current models.Role, admins int) error {
		if current == models.RoleAdmin && admins <= 1 {
			return ErrLastAdmin
		}
		_, err := tx.Exec(ctx, `DELETE FROM team_members WHERE team_id = $1 AND user_id = $2`, teamID, userID)
		if err != nil {
			return fmt.Errorf("failed to remove member: %w", err)
		}
		return nil
	})
}

// withLockedMember runs fn in a transaction holding row locks on the team's
// admins and on userID's membership. fn's error aborts the transaction.
func (s *TeamService) withLockedMember(ctx context.Context, teamID, userID uuid.UUID, fn func(tx pgx.Tx, current models.Role, admins int) error) error {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
		SELECT user_id FROM team_members
		WHERE team_id = $1 AND role = $2
		FOR UPDATE
	`, teamID, models.RoleAdmin)
	if err != nil {
		return fmt.Errorf("failed to lock admins: %w", err)
	}
	admins := 0
	for rows.Next() {
		admins++
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to lock admins: %w", err)
	}

	var current models.Role
	err = tx.QueryRow(ctx, `
		SELECT role FROM team_members
		WHERE team_id = $1 AND user_id = $2
		FOR UPDATE
	`, teamID, userID).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrMemberNotFound
		}
		return fmt.Errorf("failed to get member: %w", err)
	}

	if err := fn(tx, current, admins); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
