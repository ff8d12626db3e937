package models

import (
	"time"

	"github.com/google/uuid"
)

type Team struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Description *string    `json:"description,omitempty"`
	CreatedBy   *uuid.UUID `json:"created_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsCreator reports whether userID created the team. A team whose creator
// account was deleted has no creator.
func (t *Team) IsCreator(userID uuid.UUID) bool {
	return t.CreatedBy != nil && *t.CreatedBy == userID
}

type TeamMember struct {
	TeamID    uuid.UUID `json:"team_id"`
	UserID    uuid.UUID `json:"user_id"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	User      *User     `json:"user,omitempty"`
}

// Role is the membership role within a team. Only the two values below exist.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

// TeamWithRole is a team as seen by one user. Role is empty when the user
// created the team but no longer holds a membership in it.
type TeamWithRole struct {
	Team
	Role Role
}
