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
	ErrInvitationNotFound   = errors.New("invitation not found")
	ErrInvitationExists     = errors.New("an invitation is already pending for this user")
	ErrInvitationNotPending = errors.New("invitation is not pending")
	ErrNotInvitee           = errors.New("invitation belongs to another user")
	ErrAlreadyMember        = errors.New("user is already a team member")
)

const invitationColumns = `i.id, i.team_id, i.inviter_id, i.invitee_id, i.role, i.status, i.created_at, i.updated_at`

type InvitationService struct {
	db *database.DB
}

func NewInvitationService(db *database.DB) *InvitationService {
	return &InvitationService{db: db}
}

func invitationDest(inv *models.Invitation) []any {
	return []any{
		&inv.ID, &inv.TeamID, &inv.InviterID, &inv.InviteeID,
		&inv.Role, &inv.Status, &inv.CreatedAt, &inv.UpdatedAt,
	}
}

// Create records a pending invitation for inviteeID. It fails when the invitee
// already belongs to the team or already has a pending invitation to it.
func (s *InvitationService) Create(ctx context.Context, teamID, inviterID, inviteeID uuid.UUID, role models.Role) (*models.Invitation, error) {
	var isMember, hasPending bool
	err := s.db.Pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM team_members WHERE team_id = $1 AND user_id = $2),
		       EXISTS(SELECT 1 FROM invitations WHERE team_id = $1 AND invitee_id = $2 AND status = $3)
	`, teamID, inviteeID, models.InvitationPending).Scan(&isMember, &hasPending)
	if err != nil {
		return nil, fmt.Errorf("failed to check invitee: %w", err)
	}
	if isMember {
		return nil, ErrAlreadyMember
	}
	if hasPending {
		return nil, ErrInvitationExists
	}

	var inv models.Invitation
	err = s.db.Pool.QueryRow(ctx, `
		INSERT INTO invitations AS i (team_id, inviter_id, invitee_id, role, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+invitationColumns,
		teamID, inviterID, inviteeID, role, models.InvitationPending,
	).Scan(invitationDest(&inv)...)
	if err != nil {
		if database.IsUniqueViolation(err, "invitations_pending_key") {
			return nil, ErrInvitationExists
		}
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}
	return &inv, nil
}

func (s *InvitationService) GetByID(ctx context.Context, id uuid.UUID) (*models.Invitation, error) {
	var inv models.Invitation
	err := s.db.Pool.QueryRow(ctx, `
		SELECT `+invitationColumns+` FROM invitations i WHERE i.id = $1
	`, id).Scan(invitationDest(&inv)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvitationNotFound
		}
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	return &inv, nil
}

// ListPendingForUser returns the invitations waiting on userID, newest first.
func (s *InvitationService) ListPendingForUser(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]models.Invitation, int, error) {
	return s.listPending(ctx, "i.invitee_id", userID, page)
}

func (s *InvitationService) ListPendingForTeam(ctx context.Context, teamID uuid.UUID, page pagination.Params) ([]models.Invitation, int, error) {
	return s.listPending(ctx, "i.team_id", teamID, page)
}

func (s *InvitationService) listPending(ctx context.Context, column string, id uuid.UUID, page pagination.Params) ([]models.Invitation, int, error) {
	var total int
	err := s.db.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM invitations i WHERE `+column+` = $1 AND i.status = $2
	`, id, models.InvitationPending).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count invitations: %w", err)
	}

	rows, err := s.db.Pool.Query(ctx, `
		SELECT `+invitationColumns+`,
		       t.id, t.name, t.description, t.created_by, t.created_at, t.updated_at,
		       inviter.id, inviter.username, inviter.email, inviter.created_at, inviter.updated_at,
		       invitee.id, invitee.username, invitee.email, invitee.created_at, invitee.updated_at
		FROM invitations i
		JOIN teams t ON i.team_id = t.id
		JOIN users inviter ON i.inviter_id = inviter.id
		JOIN users invitee ON i.invitee_id = invitee.id
		WHERE `+column+` = $1 AND i.status = $2
		ORDER BY i.created_at DESC
		LIMIT $3 OFFSET $4
	`, id, models.InvitationPending, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list invitations: %w", err)
	}
	defer rows.Close()

	invitations := []models.Invitation{}
	for rows.Next() {
		var inv models.Invitation
		var team models.Team
		var inviter, invitee models.User
		dest := append(invitationDest(&inv),
			&team.ID, &team.Name, &team.Description, &team.CreatedBy, &team.CreatedAt, &team.UpdatedAt,
			&inviter.ID, &inviter.Username, &inviter.Email, &inviter.CreatedAt, &inviter.UpdatedAt,
			&invitee.ID, &invitee.Username, &invitee.Email, &invitee.CreatedAt, &invitee.UpdatedAt,
		)
		if err := rows.Scan(dest...); err != nil {
			return nil, 0, fmt.Errorf("failed to scan invitation: %w", err)
		}
		inv.Team = &team
		inv.Inviter = &inviter
		inv.Invitee = &invitee
		invitations = append(invitations, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list invitations: %w", err)
	}
	return invitations, total, nil
}

// Accept moves a pending invitation to accepted and creates the membership
// with the invited role. Either both happen or neither does.
func (s *InvitationService) Accept(ctx context.Context, id, userID uuid.UUID) (*models.Invitation, error) {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var inv models.Invitation
	err = tx.QueryRow(ctx, `
		SELECT `+invitationColumns+` FROM invitations i WHERE i.id = $1 FOR UPDATE
	`, id).Scan(invitationDest(&inv)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvitationNotFound
		}
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}

	if inv.InviteeID != userID {
		return nil, ErrNotInvitee
	}
	if inv.Status != models.InvitationPending {
		return nil, ErrInvitationNotPending
	}

	var isMember bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM team_members WHERE team_id = $1 AND user_id = $2)
	`, inv.TeamID, userID).Scan(&isMember)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if isMember {
		return nil, ErrAlreadyMember
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO team_members (team_id, user_id, role)
		VALUES ($1, $2, $3)
	`, inv.TeamID, userID, inv.Role)
	if err != nil {
		if database.IsUniqueViolation(err, "") {
			return nil, ErrAlreadyMember
		}
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	err = tx.QueryRow(ctx, `
		UPDATE invitations SET status = $1, updated_at = NOW() WHERE id = $2
		RETURNING updated_at
	`, models.InvitationAccepted, id).Scan(&inv.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update invitation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	inv.Status = models.InvitationAccepted
	return &inv, nil
}

func (s *InvitationService) Decline(ctx context.Context, id, userID uuid.UUID) error {
	inv, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if inv.InviteeID != userID {
		return ErrNotInvitee
	}
	if inv.Status != models.InvitationPending {
		return ErrInvitationNotPending
	}

	result, err := s.db.Pool.Exec(ctx, `
		UPDATE invitations SET status = $1, updated_at = NOW()
		WHERE id = $2 AND invitee_id = $3 AND status = $4
	`, models.InvitationDeclined, id, userID, models.InvitationPending)
	if err != nil {
		return fmt.Errorf("failed to decline invitation: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrInvitationNotPending
	}
	return nil
}

// Cancel withdraws a pending invitation. Callers check admin rights on the team first.
func (s *InvitationService) Cancel(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.Pool.Exec(ctx, `
		DELETE FROM invitations WHERE id = $1 AND status = $2
	`, id, models.InvitationPending)
	if err != nil {
		return fmt.Errorf("failed to cancel invitation: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrInvitationNotPending
	}
	return nil
}
