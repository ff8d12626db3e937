package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/dimitrije/teamtasks-api/internal/apierror"
	"github.com/dimitrije/teamtasks-api/internal/services"
	"github.com/dimitrije/teamtasks-api/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/sirupsen/logrus"
)

type UserHandler struct {
	userService  UserServiceInterface
	resetService ResetTokenServiceInterface
	jwtService   JWTServiceInterface
	emailService EmailServiceInterface
	frontendURL  string
	log          logrus.FieldLogger
	notify       func(func())
}

func NewUserHandler(
	userService UserServiceInterface,
	resetService ResetTokenServiceInterface,
	jwtService JWTServiceInterface,
	emailService EmailServiceInterface,
	frontendURL string,
	log logrus.FieldLogger,
) *UserHandler {
	return &UserHandler{
		userService:  userService,
		resetService: resetService,
		jwtService:   jwtService,
		emailService: emailService,
		frontendURL:  strings.TrimRight(frontendURL, "/"),
		log:          log,
		notify:       func(fn func()) { go fn() },
	}
}

func (h *UserHandler) Register(c *drift.Context) {
	var req dto.RegisterRequest
	if !bind(c, &req) {
		return
	}
	if req.Password != req.ConfirmPassword {
		apierror.Write(c, http.StatusBadRequest, dto.CodeValidationPasswordMismatch, "passwords do not match")
		return
	}

	user, err := h.userService.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmailTaken):
			apierror.Conflict(c, dto.CodeConflictEmail, "email is already registered")
		case errors.Is(err, services.ErrUsernameTaken):
			apierror.Conflict(c, dto.CodeConflictUsername, "username is already taken")
		default:
			internalError(c, h.log, err, "failed to register user", logrus.Fields{"username": req.Username})
		}
		return
	}

	h.log.WithField("user_id", user.ID).Info("user registered")
	_ = c.JSON(http.StatusCreated, toUserResponse(user))
}

func (h *UserHandler) Login(c *drift.Context) {
	var req dto.LoginRequest
	if !bind(c, &req) {
		return
	}

	user, err := h.userService.Authenticate(c.Request.Context(), req.Identifier, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			apierror.Write(c, http.StatusUnauthorized, dto.CodeInvalidCredentials, "invalid credentials")
			return
		}
		internalError(c, h.log, err, "failed to authenticate user", nil)
		return
	}

	token, err := h.jwtService.GenerateAccessToken(user.ID, user.Username)
	if err != nil {
		internalError(c, h.log, err, "failed to generate token", logrus.Fields{"user_id": user.ID})
		return
	}

	_ = c.JSON(http.StatusOK, dto.AuthResponse{
		Token:     token.Token,
		ExpiresAt: token.ExpiresAt,
		User:      toUserResponse(user),
	})
}

// ForgotPassword answers the same way whether or not the email is known.
func (h *UserHandler) ForgotPassword(c *drift.Context) {
	var req dto.ForgotPasswordRequest
	if !bind(c, &req) {
		return
	}

	resp := dto.MessageResponse{Message: "if the email is registered, a reset link has been sent"}

	token, user, err := h.resetService.Issue(c.Request.Context(), req.Email)
	if err != nil {
		h.log.WithError(err).Error("failed to issue reset token")
		_ = c.JSON(http.StatusOK, resp)
		return
	}

	if user != nil && h.emailService.IsConfigured() {
		link := h.frontendURL + "/reset-password?token=" + url.QueryEscape(token)
		to, username, userID := user.Email, user.Username, user.ID
		h.notify(func() {
			if err := h.emailService.SendPasswordReset(to, username, link); err != nil {
				h.log.WithError(err).WithField("user_id", userID).Warn("failed to send password reset email")
			}
		})
	}

	_ = c.JSON(http.StatusOK, resp)
}

func (h *UserHandler) ResetPassword(c *drift.Context) {
	var req dto.ResetPasswordRequest
	if !bind(c, &req) {
		return
	}
	if req.NewPassword != req.ConfirmPassword {
		apierror.Write(c, http.StatusBadRequest, dto.CodeValidationPasswordMismatch, "passwords do not match")
		return
	}

	if err := h.resetService.Reset(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		if errors.Is(err, services.ErrInvalidResetToken) {
			apierror.Write(c, http.StatusBadRequest, dto.CodeInvalidResetToken, "reset token is invalid or expired")
			return
		}
		internalError(c, h.log, err, "failed to reset password", nil)
		return
	}

	noContent(c)
}

func (h *UserHandler) ChangePassword(c *drift.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.ChangePasswordRequest
	if !bind(c, &req) {
		return
	}

	err := h.userService.ChangePassword(c.Request.Context(), userID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidPassword):
			apierror.Write(c, http.StatusUnauthorized, dto.CodeInvalidPassword, "current password is incorrect")
		case errors.Is(err, services.ErrUserNotFound):
			apierror.NotFound(c, "user not found")
		default:
			internalError(c, h.log, err, "failed to change password", logrus.Fields{"user_id": userID})
		}
		return
	}

	noContent(c)
}

func (h *UserHandler) Me(c *drift.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	h.writeUser(c, userID.String())
}

// Get returns a public profile. The literal id "me" resolves to the caller.
func (h *UserHandler) Get(c *drift.Context) {
	if c.Param("id") == "me" {
		h.Me(c)
		return
	}
	if _, ok := currentUser(c); !ok {
		return
	}
	h.writeUser(c, c.Param("id"))
}

func (h *UserHandler) writeUser(c *drift.Context, rawID string) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		apierror.BadRequest(c, "invalid user id")
		return
	}

	user, err := h.userService.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			apierror.NotFound(c, "user not found")
			return
		}
		internalError(c, h.log, err, "failed to get user", logrus.Fields{"user_id": id})
		return
	}

	_ = c.JSON(http.StatusOK, toUserResponse(user))
}

func (h *UserHandler) Update(c *drift.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "user")
	if !ok {
		return
	}
	if id != userID {
		apierror.Forbidden(c, "you can only update your own profile")
		return
	}

	var req dto.UpdateUserRequest
	if !bind(c, &req) {
		return
	}

	user, err := h.userService.Update(c.Request.Context(), userID, req.Username, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmailTaken):
			apierror.Conflict(c, dto.CodeConflictEmail, "email is already registered")
		case errors.Is(err, services.ErrUsernameTaken):
			apierror.Conflict(c, dto.CodeConflictUsername, "username is already taken")
		case errors.Is(err, services.ErrUserNotFound):
			apierror.NotFound(c, "user not found")
		default:
			internalError(c, h.log, err, "failed to update user", logrus.Fields{"user_id": userID})
		}
		return
	}

	_ = c.JSON(http.StatusOK, toUserResponse(user))
}

// Delete removes the caller's own account. Deleting an account that is already
// gone succeeds.
func (h *UserHandler) Delete(c *drift.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	if c.Param("id") != "me" {
		id, ok := pathID(c, "id", "user")
		if !ok {
			return
		}
		if id != userID {
			apierror.Forbidden(c, "you can only delete your own account")
			return
		}
	}

	err := h.userService.Delete(c.Request.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			noContent(c)
		case errors.Is(err, services.ErrLastAdmin):
			apierror.Conflict(c, dto.CodeConflict, "You are the last admin of a team, promote another member first")
		default:
			internalError(c, h.log, err, "failed to delete user", logrus.Fields{"user_id": userID})
		}
		return
	}

	h.log.WithField("user_id", userID).Info("user deleted")
	noContent(c)
}
