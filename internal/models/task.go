package models

import (
	"time"

	"github.com/google/uuid"
)

type Task struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	IsPersonal  bool       `json:"is_personal"`
	TeamID      *uuid.UUID `json:"team_id,omitempty"`
	StatusID    uuid.UUID  `json:"status_id"`
	AssignedTo  *uuid.UUID `json:"assigned_to,omitempty"`
	CreatedBy   *uuid.UUID `json:"created_by,omitempty"`
	Version     int        `json:"version"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Status   *Status `json:"status,omitempty"`
	Assignee *User   `json:"assignee,omitempty"`
}

func (t *Task) IsCreator(userID uuid.UUID) bool {
	return t.CreatedBy != nil && *t.CreatedBy == userID
}
