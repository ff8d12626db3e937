package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateStatusRequest struct {
	Name   string     `json:"name" validate:"required,min=2,max=100"`
	TeamID *uuid.UUID `json:"teamId,omitempty"`
}

type UpdateStatusRequest struct {
	Name    string `json:"name" validate:"required,min=2,max=100"`
	Version int    `json:"version" validate:"required,min=1"`
}

type StatusResponse struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	TeamID    *uuid.UUID `json:"teamId,omitempty"`
	CreatedBy *uuid.UUID `json:"createdBy,omitempty"`
	Version   int        `json:"version"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

type CreateTaskRequest struct {
	Title            string     `json:"title" validate:"required,min=2,max=200"`
	Description      *string    `json:"description,omitempty" validate:"omitempty,max=1000"`
	DueDate          *time.Time `json:"dueDate,omitempty"`
	IsPersonal       bool       `json:"isPersonal"`
	TeamID           *uuid.UUID `json:"teamId,omitempty"`
	StatusID         uuid.UUID  `json:"statusId" validate:"required"`
	AssignedToUserID *uuid.UUID `json:"assignedToUserId,omitempty"`
}

// UpdateTaskRequest changes only the fields present. isPersonal and teamId
// cannot be changed after creation.
type UpdateTaskRequest struct {
	Title            *string    `json:"title,omitempty" validate:"omitempty,min=2,max=200"`
	Description      *string    `json:"description,omitempty" validate:"omitempty,max=1000"`
	DueDate          *time.Time `json:"dueDate,omitempty"`
	StatusID         *uuid.UUID `json:"statusId,omitempty"`
	AssignedToUserID *uuid.UUID `json:"assignedToUserId,omitempty"`
	Unassign         bool       `json:"unassign,omitempty"`
	Version          int        `json:"version" validate:"required,min=1"`
}

type TaskResponse struct {
	ID               uuid.UUID       `json:"id"`
	Title            string          `json:"title"`
	Description      *string         `json:"description,omitempty"`
	DueDate          *time.Time      `json:"dueDate,omitempty"`
	IsPersonal       bool            `json:"isPersonal"`
	TeamID           *uuid.UUID      `json:"teamId,omitempty"`
	StatusID         uuid.UUID       `json:"statusId"`
	AssignedToUserID *uuid.UUID      `json:"assignedToUserId,omitempty"`
	CreatedBy        *uuid.UUID      `json:"createdBy,omitempty"`
	Version          int             `json:"version"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
	Status           *StatusResponse `json:"status,omitempty"`
	Assignee         *UserResponse   `json:"assignee,omitempty"`
}
