package models

import (
	"time"

	"github.com/google/uuid"
)

// Status is a named task bucket. A nil TeamID makes it personal to CreatedBy.
type Status struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	TeamID    *uuid.UUID `json:"team_id,omitempty"`
	CreatedBy *uuid.UUID `json:"created_by,omitempty"`
	Version   int        `json:"version"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (s *Status) IsPersonal() bool {
	return s.TeamID == nil
}

func (s *Status) IsCreator(userID uuid.UUID) bool {
	return s.CreatedBy != nil && *s.CreatedBy == userID
}

// FallbackStatusNames lists, in order of preference, the statuses tasks move
// to when their status is deleted. The oldest remaining status is used after these.
var FallbackStatusNames = []string{"Todo", "Backlog", "Open"}
