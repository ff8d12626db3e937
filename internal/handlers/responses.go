package handlers

import (
	"github.com/dimitrije/teamtasks-api/internal/models"
	"github.com/dimitrije/teamtasks-api/pkg/dto"
)

func toUserResponse(u *models.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

func toTeamResponse(t *models.Team, role models.Role) dto.TeamResponse {
	return dto.TeamResponse{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		CreatedBy:   t.CreatedBy,
		Role:        string(role),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func toMemberResponse(m *models.TeamMember) dto.MemberResponse {
	resp := dto.MemberResponse{
		TeamID:   m.TeamID,
		UserID:   m.UserID,
		Role:     string(m.Role),
		JoinedAt: m.CreatedAt,
	}
	if m.User != nil {
		u := toUserResponse(m.User)
		resp.User = &u
	}
	return resp
}

func toInvitationResponse(inv *models.Invitation) dto.InvitationResponse {
	resp := dto.InvitationResponse{
		ID:        inv.ID,
		TeamID:    inv.TeamID,
		InviterID: inv.InviterID,
		InviteeID: inv.InviteeID,
		Role:      string(inv.Role),
		Status:    string(inv.Status),
		CreatedAt: inv.CreatedAt,
		UpdatedAt: inv.UpdatedAt,
	}
	if inv.Team != nil {
		t := toTeamResponse(inv.Team, "")
		resp.Team = &t
	}
	if inv.Inviter != nil {
		u := toUserResponse(inv.Inviter)
		resp.Inviter = &u
	}
	if inv.Invitee != nil {
		u := toUserResponse(inv.Invitee)
		resp.Invitee = &u
	}
	return resp
}

func toStatusResponse(s *models.Status) dto.StatusResponse {
	return dto.StatusResponse{
		ID:        s.ID,
		Name:      s.Name,
		TeamID:    s.TeamID,
		CreatedBy: s.CreatedBy,
		Version:   s.Version,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func toTaskResponse(t *models.Task) dto.TaskResponse {
	resp := dto.TaskResponse{
		ID:               t.ID,
		Title:            t.Title,
		Description:      t.Description,
		DueDate:          t.DueDate,
		IsPersonal:       t.IsPersonal,
		TeamID:           t.TeamID,
		StatusID:         t.StatusID,
		AssignedToUserID: t.AssignedTo,
		CreatedBy:        t.CreatedBy,
		Version:          t.Version,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
	if t.Status != nil {
		s := toStatusResponse(t.Status)
		resp.Status = &s
	}
	if t.Assignee != nil {
		u := toUserResponse(t.Assignee)
		resp.Assignee = &u
	}
	return resp
}
