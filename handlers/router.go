package handlers

import (
	"net/http"

	"timesheet/middleware"
	"timesheet/models"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Handlers struct {
	Auth      *AuthHandler
	Timesheet *TimesheetHandler
	Manager   *ManagerHandler
	Projects  *ProjectHandler
}

func NewRouter(h Handlers, log *zap.Logger) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestLogger(log))
	router.Use(chimiddleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "UP"})
	})
	router.Post("/api/auth/token", h.Auth.Token)

	router.Route("/api", func(r chi.Router) {
		r.Use(middleware.AuthMiddleware)

		r.Get("/auth/me", h.Auth.Me)

		// Own timesheets; reads of other employees are checked per handler
		r.Post("/timesheets/entries", h.Timesheet.SaveEntries)
		r.Get("/timesheets/entries", h.Timesheet.ListEntries)
		r.Post("/timesheets/submit", h.Timesheet.Submit)
		r.Get("/timesheets/week", h.Timesheet.Week)
		r.Get("/timesheets/status", h.Timesheet.Status)
		r.Get("/timesheets/matrix", h.Timesheet.Matrix)
		r.Get("/timesheets/export", h.Timesheet.ExportCSV)
		r.Get("/dashboard/employee", h.Manager.EmployeeDashboard)
		r.Get("/projects", h.Projects.ListProjects)
		r.Get("/projects/{code}", h.Projects.GetProject)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(models.RoleManager))
			r.Post("/manager/timesheets/decision", h.Manager.Decide)
			r.Post("/manager/timesheets/approve-all", h.Manager.ApproveAll)
			r.Get("/manager/summaries", h.Manager.ReportSummaries)
			r.Get("/dashboard/manager", h.Manager.ManagerDashboard)
		})

		r.With(middleware.RequireRole(models.RoleProjectManager)).
			Get("/dashboard/project-manager", h.Manager.ProjectManagerDashboard)
		r.With(middleware.RequireRole(models.RoleCCManager)).
			Get("/dashboard/cost-center", h.Manager.CostCenterDashboard)

		// Admin only routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(models.RoleAdmin))
			r.Get("/summaries", h.Manager.AllSummaries)
			r.Post("/cost-centers", h.Projects.SaveCostCenter)
			r.Post("/projects", h.Projects.SaveProject)
			r.Post("/projects/{code}/assignments", h.Projects.Assign)
		})
	})

	return router
}
