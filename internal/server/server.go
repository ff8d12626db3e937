package server

import (
	"net/http"

	"github.com/dimitrije/teamtasks-api/internal/database"
	"github.com/dimitrije/teamtasks-api/internal/handlers"
	authmw "github.com/dimitrije/teamtasks-api/internal/middleware"
	"github.com/dimitrije/teamtasks-api/internal/ratelimit"
	"github.com/dimitrije/teamtasks-api/internal/services"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/m1z23r/drift/pkg/middleware"
	"github.com/sirupsen/logrus"
)

// Deps is everything the router needs. Services are built by the caller so
// tests can swap in their own JWT secret or limiter.
type Deps struct {
	DB          *database.DB
	JWT         *services.JWTService
	Hasher      *services.PasswordHasher
	Resets      *services.ResetTokenService
	Email       handlers.EmailServiceInterface
	Limiter     ratelimit.Limiter
	AuthLimit   int
	FrontendURL string
	Production  bool
	Log         logrus.FieldLogger
}

// NewRouter builds the API under /api.
func NewRouter(d Deps) http.Handler {
	userService := services.NewUserService(d.DB, d.Hasher)
	accessService := services.NewAccessService(d.DB)
	teamService := services.NewTeamService(d.DB)
	invitationService := services.NewInvitationService(d.DB)
	statusService := services.NewStatusService(d.DB)
	taskService := services.NewTaskService(d.DB)

	userHandler := handlers.NewUserHandler(userService, d.Resets, d.JWT, d.Email, d.FrontendURL, d.Log)
	teamHandler := handlers.NewTeamHandler(teamService, accessService, d.Log)
	memberHandler := handlers.NewMemberHandler(teamService, accessService, d.Log)
	invitationHandler := handlers.NewInvitationHandler(invitationService, teamService, userService, accessService, d.Email, d.FrontendURL, d.Log)
	statusHandler := handlers.NewStatusHandler(statusService, accessService, d.Log)
	taskHandler := handlers.NewTaskHandler(taskService, accessService, d.Log)
	healthHandler := handlers.NewHealthHandler(d.DB.Pool, d.Log)

	app := drift.New()

	if d.Production {
		app.SetMode(drift.ReleaseMode)
	} else {
		app.SetMode(drift.DebugMode)
	}

	app.Use(middleware.Recovery())
	app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       86400,
	}))
	app.Use(middleware.BodyParser())
	app.Use(authmw.RequestLogger(d.Log))

	api := app.Group("/api")

	public := []struct {
		path    string
		route   string
		handler drift.HandlerFunc
	}{
		{"/users/register", "register", userHandler.Register},
		{"/users/login", "login", userHandler.Login},
		{"/users/forgot-password", "forgot-password", userHandler.ForgotPassword},
		{"/users/reset-password", "reset-password", userHandler.ResetPassword},
	}
	for _, r := range public {
		g := api.Group(r.path)
		g.Use(authmw.RateLimit(d.Limiter, r.route, d.AuthLimit))
		g.Post("", r.handler)
	}

	api.Get("/health", healthHandler.Check)

	protected := api.Group("")
	protected.Use(authmw.Auth(d.JWT))

	// /users/me is answered by the :id route.
	protected.Get("/users/:id", userHandler.Get)
	protected.Put("/users/:id", userHandler.Update)
	protected.Delete("/users/:id", userHandler.Delete)
	protected.Post("/users/change-password", userHandler.ChangePassword)

	protected.Get("/teams", teamHandler.List)
	protected.Post("/teams", teamHandler.Create)
	protected.Post("/teams/invite", invitationHandler.Invite)
	protected.Get("/teams/:id", teamHandler.Get)
	protected.Put("/teams/:id", teamHandler.Update)
	protected.Delete("/teams/:id", teamHandler.Delete)
	protected.Get("/teams/:id/members", memberHandler.List)
	protected.Get("/teams/:id/members/:userId/is-admin", memberHandler.IsAdmin)
	protected.Get("/teams/:id/members/:userId/is-member", memberHandler.IsMember)
	protected.Get("/teams/:id/invitations", invitationHandler.ListForTeam)

	protected.Get("/members", memberHandler.ListMine)
	protected.Post("/members/:teamId/leave", teamHandler.Leave)
	protected.Put("/members/:teamId/:userId", memberHandler.UpdateRole)
	protected.Delete("/members/:teamId/:userId", memberHandler.Remove)

	protected.Get("/invitations/mine", invitationHandler.ListMine)
	protected.Post("/invitations/:id/accept", invitationHandler.Accept)
	protected.Post("/invitations/:id/decline", invitationHandler.Decline)
	protected.Delete("/invitations/:id", invitationHandler.Cancel)

	protected.Get("/statuses", statusHandler.List)
	protected.Post("/statuses", statusHandler.Create)
	protected.Get("/statuses/:id", statusHandler.Get)
	protected.Put("/statuses/:id", statusHandler.Update)
	protected.Delete("/statuses/:id", statusHandler.Delete)

	protected.Get("/tasks", taskHandler.List)
	protected.Post("/tasks", taskHandler.Create)
	protected.Get("/tasks/:id", taskHandler.Get)
	protected.Put("/tasks/:id", taskHandler.Update)
	protected.Delete("/tasks/:id", taskHandler.Delete)

	return app
}
