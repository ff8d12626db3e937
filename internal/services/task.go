package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dimitrije/teamtasks-api/internal/database"
	"github.com/dimitrije/teamtasks-api/internal/models"
	"github.com/dimitrije/teamtasks-api/internal/pagination"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrInvalidAssignment = errors.New("invalid user assignment")
	ErrDueDateInPast     = errors.New("due date must be in the future")
	ErrStatusOutOfScope  = errors.New("status belongs to a different team or user")
)

const taskSelect = `
	SELECT t.id, t.title, t.description, t.due_date, t.is_personal, t.team_id, t.status_id,
	       t.assigned_to, t.created_by, t.version, t.created_at, t.updated_at,
	       s.id, s.name, s.team_id, s.created_by, s.version, s.created_at, s.updated_at,
	       u.id, u.username, u.email
	FROM tasks t
	JOIN statuses s ON s.id = t.status_id
	LEFT JOIN users u ON u.id = t.assigned_to`

type CreateTaskInput struct {
	Title       string
	Description *string
	DueDate     *time.Time
	IsPersonal  bool
	TeamID      *uuid.UUID
	StatusID    uuid.UUID
	AssignedTo  *uuid.UUID
}

// UpdateTaskInput carries the fields a caller wants to change. Nil fields are
// left alone. Unassign clears the assignee and wins over AssignedTo.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	StatusID    *uuid.UUID
	AssignedTo  *uuid.UUID
	Unassign    bool
	Version     int
}

type TaskFilter struct {
	TeamID     *uuid.UUID
	IsPersonal *bool
}

type TaskService struct {
	db  *database.DB
	now func() time.Time
}

func NewTaskService(db *database.DB) *TaskService {
	return &TaskService{db: db, now: time.Now}
}

func scanTask(row pgx.Row) (*models.Task, error) {
	var task models.Task
	var st models.Status
	var assigneeID *uuid.UUID
	var assigneeName, assigneeEmail *string

	err := row.Scan(
		&task.ID, &task.Title, &task.Description, &task.DueDate, &task.IsPersonal, &task.TeamID, &task.StatusID,
		&task.AssignedTo, &task.CreatedBy, &task.Version, &task.CreatedAt, &task.UpdatedAt,
		&st.ID, &st.Name, &st.TeamID, &st.CreatedBy, &st.Version, &st.CreatedAt, &st.UpdatedAt,
		&assigneeID, &assigneeName, &assigneeEmail,
	)
	if err != nil {
		return nil, err
	}

	task.Status = &st
	if assigneeID != nil {
		task.Assignee = &models.User{ID: *assigneeID}
		if assigneeName != nil {
			task.Assignee.Username = *assigneeName
		}
		if assigneeEmail != nil {
			task.Assignee.Email = *assigneeEmail
		}
	}
	return &task, nil
}

func (s *TaskService) Create(ctx context.Context, in CreateTaskInput, creatorID uuid.UUID) (*models.Task, error) {
	if in.DueDate != nil && !in.DueDate.After(s.now()) {
		return nil, ErrDueDateInPast
	}
	if err := s.checkStatusScope(ctx, in.StatusID, in.IsPersonal, in.TeamID, &creatorID); err != nil {
		return nil, err
	}
	if in.AssignedTo != nil {
		if err := s.validateAssignment(ctx, in.IsPersonal, in.TeamID, &creatorID, *in.AssignedTo); err != nil {
			return nil, err
		}
	}

	var id uuid.UUID
	err := s.db.Pool.QueryRow(ctx, `
		INSERT INTO tasks (title, description, due_date, is_personal, team_id, status_id, assigned_to, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, in.Title, in.Description, in.DueDate, in.IsPersonal, in.TeamID, in.StatusID, in.AssignedTo, creatorID).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return s.GetByID(ctx, id)
}

func (s *TaskService) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	task, err := scanTask(s.db.Pool.QueryRow(ctx, taskSelect+` WHERE t.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// List returns userID's personal tasks and the tasks of every team userID can
// access (member or creator), narrowed by filter, newest first.
func (s *TaskService) List(ctx context.Context, userID uuid.UUID, filter TaskFilter, page pagination.Params) ([]models.Task, int, error) {
	conds := []string{`((t.team_id IS NULL AND t.created_by = $1)
		OR t.team_id IN (SELECT team_id FROM team_members WHERE user_id = $1)
		OR t.team_id IN (SELECT id FROM teams WHERE created_by = $1))`}
	args := []any{userID}

	if filter.TeamID != nil {
		args = append(args, *filter.TeamID)
		conds = append(conds, fmt.Sprintf("t.team_id = $%d", len(args)))
	}
	if filter.IsPersonal != nil {
		args = append(args, *filter.IsPersonal)
		conds = append(conds, fmt.Sprintf("t.is_personal = $%d", len(args)))
	}
	where := " WHERE " + strings.Join(conds, " AND ")

	var total int
	if err := s.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM tasks t`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	query := fmt.Sprintf("%s%s ORDER BY t.created_at DESC, t.id LIMIT $%d OFFSET $%d",
		taskSelect, where, len(args)+1, len(args)+2)
	rows, err := s.db.Pool.Query(ctx, query, append(args, page.Limit(), page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, total, nil
}

// Update applies in to the task. Only fields that actually change are
// validated again, and the write fails with ErrVersionConflict when the task
// moved past in.Version.
func (s *TaskService) Update(ctx context.Context, id uuid.UUID, in UpdateTaskInput) (*models.Task, error) {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Version != in.Version {
		return nil, ErrVersionConflict
	}

	title := current.Title
	if in.Title != nil {
		title = *in.Title
	}

	description := current.Description
	if in.Description != nil {
		description = in.Description
		if *in.Description == "" {
			description = nil
		}
	}

	dueDate := current.DueDate
	if in.DueDate != nil && (current.DueDate == nil || !in.DueDate.Equal(*current.DueDate)) {
		if !in.DueDate.After(s.now()) {
			return nil, ErrDueDateInPast
		}
		dueDate = in.DueDate
	}

	statusID := current.StatusID
	if in.StatusID != nil && *in.StatusID != current.StatusID {
		if err := s.checkStatusScope(ctx, *in.StatusID, current.IsPersonal, current.TeamID, current.CreatedBy); err != nil {
			return nil, err
		}
		statusID = *in.StatusID
	}

	assignedTo := current.AssignedTo
	switch {
	case in.Unassign:
		assignedTo = nil
	case in.AssignedTo != nil && (current.AssignedTo == nil || *in.AssignedTo != *current.AssignedTo):
		if err := s.validateAssignment(ctx, current.IsPersonal, current.TeamID, current.CreatedBy, *in.AssignedTo); err != nil {
			return nil, err
		}
		assignedTo = in.AssignedTo
	}

	err = s.db.Pool.QueryRow(ctx, `
		UPDATE tasks
		SET title = $1, description = $2, due_date = $3, status_id = $4, assigned_to = $5,
		    version = version + 1, updated_at = NOW()
		WHERE id = $6 AND version = $7
		RETURNING id
	`, title, description, dueDate, statusID, assignedTo, id, in.Version).Scan(&id)
	if err != nil {
		return nil, s.checkVersionConflict(ctx, id, in.Version, err)
	}

	return s.GetByID(ctx, id)
}

func (s *TaskService) checkVersionConflict(ctx context.Context, id uuid.UUID, expectedVersion int, originalErr error) error {
	var currentVersion int
	err := s.db.Pool.QueryRow(ctx, `SELECT version FROM tasks WHERE id = $1`, id).Scan(&currentVersion)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to check task version: %w", err)
	}
	if currentVersion != expectedVersion {
		return ErrVersionConflict
	}
	return fmt.Errorf("failed to update task: %w", originalErr)
}

func (s *TaskService) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.Pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// checkStatusScope requires the status to live where the task lives: the same
// team for team tasks, the creator's personal statuses for personal tasks.
func (s *TaskService) checkStatusScope(ctx context.Context, statusID uuid.UUID, personal bool, teamID, creatorID *uuid.UUID) error {
	var statusTeam, statusOwner *uuid.UUID
	err := s.db.Pool.QueryRow(ctx, `SELECT team_id, created_by FROM statuses WHERE id = $1`, statusID).
		Scan(&statusTeam, &statusOwner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrStatusNotFound
		}
		return fmt.Errorf("failed to check status: %w", err)
	}

	if personal || teamID == nil {
		if statusTeam != nil || statusOwner == nil || creatorID == nil || *statusOwner != *creatorID {
			return ErrStatusOutOfScope
		}
		return nil
	}
	if statusTeam == nil || *statusTeam != *teamID {
		return ErrStatusOutOfScope
	}
	return nil
}

// validateAssignment allows only the creator on personal tasks and only
// current members on team tasks.
func (s *TaskService) validateAssignment(ctx context.Context, personal bool, teamID, creatorID *uuid.UUID, assignee uuid.UUID) error {
	if personal || teamID == nil {
		if creatorID == nil || *creatorID != assignee {
			return ErrInvalidAssignment
		}
		return nil
	}

	var member bool
	err := s.db.Pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM team_members WHERE team_id = $1 AND user_id = $2)
	`, *teamID, assignee).Scan(&member)
	if err != nil {
		return fmt.Errorf("failed to check assignee: %w", err)
	}
	if !member {
		return ErrInvalidAssignment
	}
	return nil
}
