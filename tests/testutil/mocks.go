package testutil

import (
	"context"

	"github.com/dimitrije/teamtasks-api/internal/models"
	"github.com/dimitrije/teamtasks-api/internal/pagination"
	"github.com/dimitrije/teamtasks-api/internal/services"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockUserService mocks the UserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	args := m.Called(ctx, username, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) Authenticate(ctx context.Context, identifier, password string) (*models.User, error) {
	args := m.Called(ctx, identifier, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) GetByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) Update(ctx context.Context, id uuid.UUID, username, email *string) (*models.User, error) {
	args := m.Called(ctx, id, username, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) ChangePassword(ctx context.Context, id uuid.UUID, currentPassword, newPassword string) error {
	args := m.Called(ctx, id, currentPassword, newPassword)
	return args.Error(0)
}

func (m *MockUserService) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockResetTokenService mocks the ResetTokenService
type MockResetTokenService struct {
	mock.Mock
}

func (m *MockResetTokenService) Issue(ctx context.Context, email string) (string, *models.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(1).(*models.User)
	return args.String(0), user, args.Error(2)
}

func (m *MockResetTokenService) Reset(ctx context.Context, token, newPassword string) error {
	args := m.Called(ctx, token, newPassword)
	return args.Error(0)
}

// MockAccessService mocks the AccessService
type MockAccessService struct {
	mock.Mock
}

func (m *MockAccessService) TeamExists(ctx context.Context, teamID uuid.UUID) (bool, error) {
	args := m.Called(ctx, teamID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccessService) HasTeamAccess(ctx context.Context, teamID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, teamID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccessService) IsTeamAdmin(ctx context.Context, teamID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, teamID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccessService) IsTeamMember(ctx context.Context, teamID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, teamID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccessService) CanManageTeam(ctx context.Context, team *models.Team, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, team, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccessService) HasStatusAccess(ctx context.Context, status *models.Status, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, status, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccessService) HasTaskAccess(ctx context.Context, task *models.Task, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, task, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccessService) CanViewTask(ctx context.Context, task *models.Task, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, task, userID)
	return args.Bool(0), args.Error(1)
}

// MockTeamService mocks the TeamService
type MockTeamService struct {
	mock.Mock
}

func (m *MockTeamService) Create(ctx context.Context, name string, description *string, creatorID uuid.UUID) (*models.Team, error) {
	args := m.Called(ctx, name, description, creatorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Team), args.Error(1)
}

func (m *MockTeamService) GetByID(ctx context.Context, teamID uuid.UUID) (*models.Team, error) {
	args := m.Called(ctx, teamID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Team), args.Error(1)
}

func (m *MockTeamService) ListForUser(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]models.TeamWithRole, int, error) {
	args := m.Called(ctx, userID, page)
	teams, _ := args.Get(0).([]models.TeamWithRole)
	return teams, args.Int(1), args.Error(2)
}

func (m *MockTeamService) Update(ctx context.Context, teamID uuid.UUID, name string, description *string) (*models.Team, error) {
	args := m.Called(ctx, teamID, name, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Team), args.Error(1)
}

func (m *MockTeamService) Delete(ctx context.Context, teamID uuid.UUID) error {
	args := m.Called(ctx, teamID)
	return args.Error(0)
}

func (m *MockTeamService) ListMembers(ctx context.Context, teamID uuid.UUID, page pagination.Params) ([]models.TeamMember, int, error) {
	args := m.Called(ctx, teamID, page)
	members, _ := args.Get(0).([]models.TeamMember)
	return members, args.Int(1), args.Error(2)
}

func (m *MockTeamService) ListMembershipsForUser(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]models.TeamMember, int, error) {
	args := m.Called(ctx, userID, page)
	members, _ := args.Get(0).([]models.TeamMember)
	return members, args.Int(1), args.Error(2)
}

func (m *MockTeamService) GetMember(ctx context.Context, teamID, userID uuid.UUID) (*models.TeamMember, error) {
	args := m.Called(ctx, teamID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TeamMember), args.Error(1)
}

func (m *MockTeamService) UpdateMemberRole(ctx context.Context, teamID, actorID, userID uuid.UUID, role models.Role) error {
	args := m.Called(ctx, teamID, actorID, userID, role)
	return args.Error(0)
}

func (m *MockTeamService) RemoveMember(ctx context.Context, teamID, actorID, userID uuid.UUID) error {
	args := m.Called(ctx, teamID, actorID, userID)
	return args.Error(0)
}

func (m *MockTeamService) LeaveTeam(ctx context.Context, teamID, userID uuid.UUID) error {
	args := m.Called(ctx, teamID, userID)
	return args.Error(0)
}

// MockInvitationService mocks the InvitationService
type MockInvitationService struct {
	mock.Mock
}

func (m *MockInvitationService) Create(ctx context.Context, teamID, inviterID, inviteeID uuid.UUID, role models.Role) (*models.Invitation, error) {
	args := m.Called(ctx, teamID, inviterID, inviteeID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invitation), args.Error(1)
}

func (m *MockInvitationService) GetByID(ctx context.Context, id uuid.UUID) (*models.Invitation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invitation), args.Error(1)
}

func (m *MockInvitationService) ListPendingForUser(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]models.Invitation, int, error) {
	args := m.Called(ctx, userID, page)
	invitations, _ := args.Get(0).([]models.Invitation)
	return invitations, args.Int(1), args.Error(2)
}

func (m *MockInvitationService) ListPendingForTeam(ctx context.Context, teamID uuid.UUID, page pagination.Params) ([]models.Invitation, int, error) {
	args := m.Called(ctx, teamID, page)
	invitations, _ := args.Get(0).([]models.Invitation)
	return invitations, args.Int(1), args.Error(2)
}

func (m *MockInvitationService) Accept(ctx context.Context, id, userID uuid.UUID) (*models.Invitation, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invitation), args.Error(1)
}

func (m *MockInvitationService) Decline(ctx context.Context, id, userID uuid.UUID) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

func (m *MockInvitationService) Cancel(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockStatusService mocks the StatusService
type MockStatusService struct {
	mock.Mock
}

func (m *MockStatusService) Create(ctx context.Context, name string, teamID *uuid.UUID, creatorID uuid.UUID) (*models.Status, error) {
	args := m.Called(ctx, name, teamID, creatorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Status), args.Error(1)
}

func (m *MockStatusService) GetByID(ctx context.Context, id uuid.UUID) (*models.Status, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Status), args.Error(1)
}

func (m *MockStatusService) List(ctx context.Context, teamID *uuid.UUID, userID uuid.UUID, page pagination.Params) ([]models.Status, int, error) {
	args := m.Called(ctx, teamID, userID, page)
	statuses, _ := args.Get(0).([]models.Status)
	return statuses, args.Int(1), args.Error(2)
}

func (m *MockStatusService) Update(ctx context.Context, id uuid.UUID, name string, expectedVersion int) (*models.Status, error) {
	args := m.Called(ctx, id, name, expectedVersion)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Status), args.Error(1)
}

func (m *MockStatusService) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockTaskService mocks the TaskService
type MockTaskService struct {
	mock.Mock
}

func (m *MockTaskService) Create(ctx context.Context, in services.CreateTaskInput, creatorID uuid.UUID) (*models.Task, error) {
	args := m.Called(ctx, in, creatorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Task), args.Error(1)
}

func (m *MockTaskService) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Task), args.Error(1)
}

func (m *MockTaskService) List(ctx context.Context, userID uuid.UUID, filter services.TaskFilter, page pagination.Params) ([]models.Task, int, error) {
	args := m.Called(ctx, userID, filter, page)
	tasks, _ := args.Get(0).([]models.Task)
	return tasks, args.Int(1), args.Error(2)
}

func (m *MockTaskService) Update(ctx context.Context, id uuid.UUID, in services.UpdateTaskInput) (*models.Task, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Task), args.Error(1)
}

func (m *MockTaskService) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockEmailService mocks the EmailService
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) IsConfigured() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockEmailService) SendPasswordReset(to, username, resetURL string) error {
	args := m.Called(to, username, resetURL)
	return args.Error(0)
}

func (m *MockEmailService) SendTeamInvite(to, teamName, inviterName, inviteURL string) error {
	args := m.Called(to, teamName, inviterName, inviteURL)
	return args.Error(0)
}
