package handlers

import (
	"net/http"
	"strings"
	"time"

	"timesheet/filter"
	"timesheet/models"
	"timesheet/services"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ProjectHandler maintains the project reference data that entry
// validation relies on.
type ProjectHandler struct {
	assignments *services.AssignmentRepository
	log         *zap.Logger
}

func NewProjectHandler(assignments *services.AssignmentRepository, log *zap.Logger) *ProjectHandler {
	return &ProjectHandler{assignments: assignments, log: log}
}

type costCenterRequest struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	ManagerCode string `json:"managerCode"`
	Active      *bool  `json:"active"`
}

type projectRequest struct {
	ProjectCode        string `json:"projectCode"`
	Title              string `json:"title"`
	CostCenterCode     string `json:"costCenterCode"`
	ProjectManagerCode string `json:"projectManagerCode"`
	Active             *bool  `json:"active"`
}

type assignmentRequest struct {
	EmployeeCode  string `json:"employeeCode"`
	RoleInProject string `json:"roleInProject"`
	StartDate     string `json:"startDate"`
	EndDate       string `json:"endDate"`
	Active        *bool  `json:"active"`
}

func activeOrDefault(b *bool) bool {
	return b == nil || *b
}

func optionalDate(raw, name string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := parseDate(raw, name)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	q, err := filter.ParseQuery(r.URL.Query())
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	page, err := h.assignments.ListProjects(r.Context(), q)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.assignments.Project(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProjectHandler) SaveCostCenter(w http.ResponseWriter, r *http.Request) {
	var req costCenterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	if strings.TrimSpace(req.Code) == "" || strings.TrimSpace(req.Name) == "" {
		badRequest(w, "code and name are required")
		return
	}

	cc := &models.CostCenter{
		Code:        strings.TrimSpace(req.Code),
		Name:        strings.TrimSpace(req.Name),
		ManagerCode: req.ManagerCode,
		Active:      activeOrDefault(req.Active),
	}
	if err := h.assignments.SaveCostCenter(r.Context(), cc); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, cc)
}

func (h *ProjectHandler) SaveProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	if strings.TrimSpace(req.ProjectCode) == "" || strings.TrimSpace(req.Title) == "" {
		badRequest(w, "projectCode and title are required")
		return
	}

	p := &models.Project{
		ProjectCode:        strings.TrimSpace(req.ProjectCode),
		Title:              strings.TrimSpace(req.Title),
		CostCenterCode:     req.CostCenterCode,
		ProjectManagerCode: req.ProjectManagerCode,
		Active:             activeOrDefault(req.Active),
	}
	if err := h.assignments.SaveProject(r.Context(), p); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProjectHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req assignmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	if strings.TrimSpace(req.EmployeeCode) == "" {
		badRequest(w, "employeeCode is required")
		return
	}
	start, err := optionalDate(req.StartDate, "startDate")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	end, err := optionalDate(req.EndDate, "endDate")
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	a := &models.ProjectAssignment{
		ID:            models.AssignmentKey{ProjectCode: chi.URLParam(r, "code"), EmployeeCode: strings.TrimSpace(req.EmployeeCode)},
		RoleInProject: req.RoleInProject,
		StartDate:     start,
		EndDate:       end,
		Active:        activeOrDefault(req.Active),
	}
	if err := h.assignments.Assign(r.Context(), a); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}
