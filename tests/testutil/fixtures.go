package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/dimitrije/teamtasks-api/internal/database"
	"github.com/dimitrije/teamtasks-api/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// DefaultPassword is the plain-text password of every fixture user.
const DefaultPassword = "password123"

// Fixtures provides factory methods for creating test data
type Fixtures struct {
	db      *database.DB
	counter int
	hash    string
}

// NewFixtures creates a new fixtures factory
func NewFixtures(db *database.DB) *Fixtures {
	return &Fixtures{db: db}
}

func (f *Fixtures) passwordHash(t *testing.T) string {
	t.Helper()
	if f.hash == "" {
		h, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.MinCost)
		if err != nil {
			t.Fatalf("failed to hash password: %v", err)
		}
		f.hash = string(h)
	}
	return f.hash
}

// CreateUser creates a test user whose password is DefaultPassword
func (f *Fixtures) CreateUser(t *testing.T, opts ...UserOption) *models.User {
	t.Helper()
	f.counter++

	user := &models.User{
		Username: fmt.Sprintf("user%d", f.counter),
		Email:    fmt.Sprintf("user%d@example.com", f.counter),
	}

	for _, opt := range opts {
		opt(user)
	}

	ctx := context.Background()
	err := f.db.Pool.QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, username, email, password_hash, created_at, updated_at
	`, user.Username, user.Email, f.passwordHash(t)).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	return user
}

// UserOption configures a test user
type UserOption func(*models.User)

// WithEmail sets the user's email
func WithEmail(email string) UserOption {
	return func(u *models.User) {
		u.Email = email
	}
}

// WithUsername sets the user's username
func WithUsername(username string) UserOption {
	return func(u *models.User) {
		u.Username = username
	}
}

// CreateTeam creates a test team with the creator as its admin
func (f *Fixtures) CreateTeam(t *testing.T, creator *models.User, opts ...TeamOption) *models.Team {
	t.Helper()
	f.counter++

	team := &models.Team{
		Name:      fmt.Sprintf("Test Team %d", f.counter),
		CreatedBy: &creator.ID,
	}

	for _, opt := range opts {
		opt(team)
	}

	ctx := context.Background()
	tx, err := f.db.Pool.Begin(ctx)
	if err != nil {
		t.Fatalf("failed to begin transaction: %v", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO teams (name, description, created_by)
		VALUES ($1, $2, $3)
		RETURNING id, name, description, created_by, created_at, updated_at
	`, team.Name, team.Description, team.CreatedBy).Scan(
		&team.ID, &team.Name, &team.Description, &team.CreatedBy, &team.CreatedAt, &team.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("failed to create team: %v", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO team_members (team_id, user_id, role)
		VALUES ($1, $2, $3)
	`, team.ID, creator.ID, models.RoleAdmin)
	if err != nil {
		t.Fatalf("failed to add creator as admin: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("failed to commit transaction: %v", err)
	}

	return team
}

// TeamOption configures a test team
type TeamOption func(*models.Team)

// WithTeamName sets the team's name
func WithTeamName(name string) TeamOption {
	return func(t *models.Team) {
		t.Name = name
	}
}

// AddTeamMember adds a member to a team with the given role
func (f *Fixtures) AddTeamMember(t *testing.T, team *models.Team, user *models.User, role models.Role) {
	t.Helper()
	ctx := context.Background()

	_, err := f.db.Pool.Exec(ctx, `
		INSERT INTO team_members (team_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (team_id, user_id) DO UPDATE SET role = EXCLUDED.role
	`, team.ID, user.ID, role)
	if err != nil {
		t.Fatalf("failed to add team member: %v", err)
	}
}

// CreateStatus creates a status in the team's scope, or a personal one for
// creator when team is nil.
func (f *Fixtures) CreateStatus(t *testing.T, name string, team *models.Team, creator *models.User) *models.Status {
	t.Helper()

	st := &models.Status{Name: name, CreatedBy: &creator.ID}
	if team != nil {
		st.TeamID = &team.ID
	}

	ctx := context.Background()
	err := f.db.Pool.QueryRow(ctx, `
		INSERT INTO statuses (name, team_id, created_by)
		VALUES ($1, $2, $3)
		RETURNING id, version, created_at, updated_at
	`, st.Name, st.TeamID, st.CreatedBy).Scan(&st.ID, &st.Version, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		t.Fatalf("failed to create status: %v", err)
	}

	return st
}

// CreateTask creates a task in status. The task belongs to team, or is
// personal to creator when team is nil.
func (f *Fixtures) CreateTask(t *testing.T, status *models.Status, team *models.Team, creator *models.User) *models.Task {
	t.Helper()
	f.counter++

	task := &models.Task{
		Title:      fmt.Sprintf("Test Task %d", f.counter),
		IsPersonal: team == nil,
		StatusID:   status.ID,
		CreatedBy:  &creator.ID,
	}
	if team != nil {
		task.TeamID = &team.ID
	}

	ctx := context.Background()
	err := f.db.Pool.QueryRow(ctx, `
		INSERT INTO tasks (title, is_personal, team_id, status_id, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, version, created_at, updated_at
	`, task.Title, task.IsPersonal, task.TeamID, task.StatusID, task.CreatedBy).Scan(
		&task.ID, &task.Version, &task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("failed to create task: %v", err)
	}

	return task
}

// CreateInvitation creates a pending invitation
func (f *Fixtures) CreateInvitation(t *testing.T, team *models.Team, inviter, invitee *models.User, role models.Role) *models.Invitation {
	t.Helper()

	inv := &models.Invitation{
		TeamID:    team.ID,
		InviterID: inviter.ID,
		InviteeID: invitee.ID,
		Role:      role,
		Status:    models.InvitationPending,
	}

	ctx := context.Background()
	err := f.db.Pool.QueryRow(ctx, `
		INSERT INTO invitations (team_id, inviter_id, invitee_id, role, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, inv.TeamID, inv.InviterID, inv.InviteeID, inv.Role, inv.Status).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		t.Fatalf("failed to create invitation: %v", err)
	}

	return inv
}
