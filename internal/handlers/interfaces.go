package handlers

import (
	"context"

	"github.com/dimitrije/teamtasks-api/internal/models"
	"github.com/dimitrije/teamtasks-api/internal/pagination"
	"github.com/dimitrije/teamtasks-api/internal/services"
	"github.com/google/uuid"
)

// UserServiceInterface defines the methods used by handlers from UserService
type UserServiceInterface interface {
	Register(ctx context.Context, username, email, password string) (*models.User, error)
	Authenticate(ctx context.Context, identifier, password string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByIdentifier(ctx context.Context, identifier string) (*models.User, error)
	Update(ctx context.Context, id uuid.UUID, username, email *string) (*models.User, error)
	ChangePassword(ctx context.Context, id uuid.UUID, currentPassword, newPassword string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ResetTokenServiceInterface defines the methods used by handlers from ResetTokenService
type ResetTokenServiceInterface interface {
	Issue(ctx context.Context, email string) (string, *models.User, error)
	Reset(ctx context.Context, token, newPassword string) error
}

// JWTServiceInterface defines the methods used by handlers from JWTService
type JWTServiceInterface interface {
	GenerateAccessToken(userID uuid.UUID, username string) (*services.AccessToken, error)
}

// AccessServiceInterface defines the authorization checks used by handlers
type AccessServiceInterface interface {
	TeamExists(ctx context.Context, teamID uuid.UUID) (bool, error)
	HasTeamAccess(ctx context.Context, teamID, userID uuid.UUID) (bool, error)
	IsTeamAdmin(ctx context.Context, teamID, userID uuid.UUID) (bool, error)
	IsTeamMember(ctx context.Context, teamID, userID uuid.UUID) (bool, error)
	CanManageTeam(ctx context.Context, team *models.Team, userID uuid.UUID) (bool, error)
	HasStatusAccess(ctx context.Context, status *models.Status, userID uuid.UUID) (bool, error)
	HasTaskAccess(ctx context.Context, task *models.Task, userID uuid.UUID) (bool, error)
	CanViewTask(ctx context.Context, task *models.Task, userID uuid.UUID) (bool, error)
}

// TeamServiceInterface defines the methods used by handlers from TeamService
type TeamServiceInterface interface {
	Create(ctx context.Context, name string, description *string, creatorID uuid.UUID) (*models.Team, error)
	GetByID(ctx context.Context, teamID uuid.UUID) (*models.Team, error)
	ListForUser(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]models.TeamWithRole, int, error)
	Update(ctx context.Context, teamID uuid.UUID, name string, description *string) (*models.Team, error)
	Delete(ctx context.Context, teamID uuid.UUID) error
	ListMembers(ctx context.Context, teamID uuid.UUID, page pagination.Params) ([]models.TeamMember, int, error)
	ListMembershipsForUser(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]models.TeamMember, int, error)
	GetMember(ctx context.Context, teamID, userID uuid.UUID) (*models.TeamMember, error)
	UpdateMemberRole(ctx context.Context, teamID, actorID, userID uuid.UUID, role models.Role) error
	RemoveMember(ctx context.Context, teamID, actorID, userID uuid.UUID) error
	LeaveTeam(ctx context.Context, teamID, userID uuid.UUID) error
}

// InvitationServiceInterface defines the methods used by handlers from InvitationService
type InvitationServiceInterface interface {
	Create(ctx context.Context, teamID, inviterID, inviteeID uuid.UUID, role models.Role) (*models.Invitation, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Invitation, error)
	ListPendingForUser(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]models.Invitation, int, error)
	ListPendingForTeam(ctx context.Context, teamID uuid.UUID, page pagination.Params) ([]models.Invitation, int, error)
	Accept(ctx context.Context, id, userID uuid.UUID) (*models.Invitation, error)
	Decline(ctx context.Context, id, userID uuid.UUID) error
	Cancel(ctx context.Context, id uuid.UUID) error
}

// StatusServiceInterface defines the methods used by handlers from StatusService
type StatusServiceInterface interface {
	Create(ctx context.Context, name string, teamID *uuid.UUID, creatorID uuid.UUID) (*models.Status, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Status, error)
	List(ctx context.Context, teamID *uuid.UUID, userID uuid.UUID, page pagination.Params) ([]models.Status, int, error)
	Update(ctx context.Context, id uuid.UUID, name string, expectedVersion int) (*models.Status, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// TaskServiceInterface defines the methods used by handlers from TaskService
type TaskServiceInterface interface {
	Create(ctx context.Context, in services.CreateTaskInput, creatorID uuid.UUID) (*models.Task, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	List(ctx context.Context, userID uuid.UUID, filter services.TaskFilter, page pagination.Params) ([]models.Task, int, error)
	Update(ctx context.Context, id uuid.UUID, in services.UpdateTaskInput) (*models.Task, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// EmailServiceInterface defines the methods used by handlers from EmailService
type EmailServiceInterface interface {
	IsConfigured() bool
	SendPasswordReset(to, username, resetURL string) error
	SendTeamInvite(to, teamName, inviterName, inviteURL string) error
}
