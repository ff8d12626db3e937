package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dimitrije/teamtasks-api/internal/apierror"
	"github.com/dimitrije/teamtasks-api/internal/middleware"
	"github.com/dimitrije/teamtasks-api/internal/models"
	"github.com/dimitrije/teamtasks-api/internal/pagination"
	"github.com/dimitrije/teamtasks-api/internal/services"
	"github.com/dimitrije/teamtasks-api/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/sirupsen/logrus"
)

type InvitationHandler struct {
	invitationService InvitationServiceInterface
	teamService       TeamServiceInterface
	userService       UserServiceInterface
	accessService     AccessServiceInterface
	emailService      EmailServiceInterface
	frontendURL       string
	log               logrus.FieldLogger
	notify            func(func())
}

func NewInvitationHandler(
	invitationService InvitationServiceInterface,
	teamService TeamServiceInterface,
	userService UserServiceInterface,
	accessService AccessServiceInterface,
	emailService EmailServiceInterface,
	frontendURL string,
	log logrus.FieldLogger,
) *InvitationHandler {
	return &InvitationHandler{
		invitationService: invitationService,
		teamService:       teamService,
		userService:       userService,
		accessService:     accessService,
		emailService:      emailService,
		frontendURL:       strings.TrimRight(frontendURL, "/"),
		log:               log,
		notify:            func(fn func()) { go fn() },
	}
}

// Invite creates a pending invitation for the user named by email or username.
func (h *InvitationHandler) Invite(c *drift.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.InviteMemberRequest
	if !bind(c, &req) {
		return
	}
	ctx := c.Request.Context()

	team, err := h.teamService.GetByID(ctx, req.TeamID)
	if err != nil {
		if errors.Is(err, services.ErrTeamNotFound) {
			apierror.NotFound(c, "team not found")
			return
		}
		internalError(c, h.log, err, "failed to get team", logrus.Fields{"team_id": req.TeamID})
		return
	}
	if !requireTeamAdmin(c, h.accessService, h.log, team.ID, userID) {
		return
	}

	invitee, err := h.userService.GetByIdentifier(ctx, req.Identifier)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			apierror.NotFound(c, "user not found")
			return
		}
		internalError(c, h.log, err, "failed to resolve invitee", logrus.Fields{"team_id": team.ID})
		return
	}

	role := models.RoleMember
	if req.Role != "" {
		role = models.Role(req.Role)
	}

	inv, err := h.invitationService.Create(ctx, team.ID, userID, invitee.ID, role)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAlreadyMember):
			apierror.Conflict(c, dto.CodeConflict, "user is already a member of this team")
		case errors.Is(err, services.ErrInvitationExists):
			apierror.Conflict(c, dto.CodeConflict, "user already has a pending invitation to this team")
		default:
			internalError(c, h.log, err, "failed to create invitation", logrus.Fields{"team_id": team.ID, "invitee_id": invitee.ID})
		}
		return
	}

	h.log.WithFields(logrus.Fields{
		"team_id":       team.ID,
		"invitation_id": inv.ID,
		"invitee_id":    invitee.ID,
	}).Info("invitation created")

	if h.emailService.IsConfigured() {
		to, teamName, inviterName := invitee.Email, team.Name, middleware.GetUsername(c)
		link := h.frontendURL + "/invitations"
		h.notify(func() {
			if err := h.emailService.SendTeamInvite(to, teamName, inviterName, link); err != nil {
				h.log.WithError(err).WithField("invitation_id", inv.ID).Warn("failed to send invitation email")
			}
		})
	}

	_ = c.JSON(http.StatusCreated, toInvitationResponse(inv))
}

func (h *InvitationHandler) ListMine(c *drift.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	page := pageParams(c, invitationsPageSize)
	invitations, total, err := h.invitationService.ListPendingForUser(c.Request.Context(), userID, page)
	if err != nil {
		internalError(c, h.log, err, "failed to list invitations", logrus.Fields{"user_id": userID})
		return
	}

	h.writeList(c, invitations, page, total)
}

// ListForTeam shows a team's pending invitations to its admins.
func (h *InvitationHandler) ListForTeam(c *drift.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	teamID, ok := pathID(c, "id", "team")
	if !ok {
		return
	}
	if !requireTeam(c, h.accessService, h.log, teamID) ||
		!requireTeamAdmin(c, h.accessService, h.log, teamID, userID) {
		return
	}

	page := pageParams(c, invitationsPageSize)
	invitations, total, err := h.invitationService.ListPendingForTeam(c.Request.Context(), teamID, page)
	if err != nil {
		internalError(c, h.log, err, "failed to list invitations", logrus.Fields{"team_id": teamID})
		return
	}

	h.writeList(c, invitations, page, total)
}

func (h *InvitationHandler) Accept(c *drift.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "invitation")
	if !ok {
		return
	}

	inv, err := h.invitationService.Accept(c.Request.Context(), id, userID)
	if err != nil {
		h.writeTransitionError(c, err, id)
		return
	}

	h.log.WithFields(logrus.Fields{"invitation_id": id, "team_id": inv.TeamID, "user_id": userID}).Info("invitation accepted")
	_ = c.JSON(http.StatusOK, toInvitationResponse(inv))
}

func (h *InvitationHandler) Decline(c *drift.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "invitation")
	if !ok {
		return
	}

	if err := h.invitationService.Decline(c.Request.Context(), id, userID); err != nil {
		h.writeTransitionError(c, err, id)
		return
	}

	noContent(c)
}

// Cancel lets a team admin withdraw a pending invitation.
func (h *InvitationHandler) Cancel(c *drift.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "invitation")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	inv, err := h.invitationService.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, services.ErrInvitationNotFound) {
			apierror.NotFound(c, "invitation not found")
			return
		}
		internalError(c, h.log, err, "failed to get invitation", logrus.Fields{"invitation_id": id})
		return
	}
	if !requireTeamAdmin(c, h.accessService, h.log, inv.TeamID, userID) {
		return
	}

	if err := h.invitationService.Cancel(ctx, id); err != nil {
		if errors.Is(err, services.ErrInvitationNotPending) {
			apierror.BadRequest(c, "invitation is no longer pending")
			return
		}
		internalError(c, h.log, err, "failed to cancel invitation", logrus.Fields{"invitation_id": id})
		return
	}

	noContent(c)
}

func (h *InvitationHandler) writeList(c *drift.Context, invitations []models.Invitation, page pagination.Params, total int) {
	response := make([]dto.InvitationResponse, len(invitations))
	for i := range invitations {
		response[i] = toInvitationResponse(&invitations[i])
	}
	setPageHeaders(c, page, total)
	_ = c.JSON(http.StatusOK, response)
}

func (h *InvitationHandler) writeTransitionError(c *drift.Context, err error, id uuid.UUID) {
	switch {
	case errors.Is(err, services.ErrInvitationNotFound):
		apierror.NotFound(c, "invitation not found")
	case errors.Is(err, services.ErrNotInvitee):
		apierror.Forbidden(c, "this invitation is addressed to another user")
	case errors.Is(err, services.ErrInvitationNotPending):
		apierror.BadRequest(c, "invitation is no longer pending")
	case errors.Is(err, services.ErrAlreadyMember):
		apierror.Conflict(c, dto.CodeConflict, "you are already a member of this team")
	default:
		internalError(c, h.log, err, "failed to update invitation", logrus.Fields{"invitation_id": id})
	}
}
