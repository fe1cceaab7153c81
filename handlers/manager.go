package handlers

import (
	"net/http"
	"net/url"
	"strconv"

	"timesheet/apperror"
	"timesheet/config"
	"timesheet/filter"
	"timesheet/models"
	"timesheet/services"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ManagerHandler serves decisions on submitted weeks and the read-only
// dashboards. The acting manager is the caller unless an admin names one.
type ManagerHandler struct {
	config     *config.Config
	reconciler *services.Reconciler
	summaries  *services.SummaryMachine
	dashboard  *services.Dashboard
	log        *zap.Logger
}

func NewManagerHandler(cfg *config.Config, reconciler *services.Reconciler, summaries *services.SummaryMachine, dashboard *services.Dashboard, log *zap.Logger) *ManagerHandler {
	return &ManagerHandler{
		config:     cfg,
		reconciler: reconciler,
		summaries:  summaries,
		dashboard:  dashboard,
		log:        log,
	}
}

type correctionRequest struct {
	TimesheetYear  int              `json:"timesheetYear"`
	TimesheetMonth int              `json:"timesheetMonth"`
	WorkDate       string           `json:"workDate"`
	EntryType      models.EntryType `json:"entryType"`
	ProjectCode    string           `json:"projectCode"`
	HoursSpent     decimal.Decimal  `json:"hoursSpent"`
	Description    *string          `json:"description"`
}

type decisionRequest struct {
	EmployeeCode   string              `json:"employeeCode"`
	TimesheetYear  int                 `json:"timesheetYear"`
	TimesheetMonth int                 `json:"timesheetMonth"`
	WeekStart      string              `json:"weekStart"`
	ManagerCode    string              `json:"managerCode"`
	Approve        bool                `json:"approve"`
	Comment        *string             `json:"comment"`
	Entries        []correctionRequest `json:"entries"`
}

type approveAllRequest struct {
	ManagerCode    string  `json:"managerCode"`
	TimesheetYear  int     `json:"timesheetYear"`
	TimesheetMonth int     `json:"timesheetMonth"`
	WeekStart      string  `json:"weekStart"`
	Comment        *string `json:"comment"`
}

// Decide approves or rejects one week, merging the manager's corrected
// entries first.
func (h *ManagerHandler) Decide(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	if req.EmployeeCode == "" {
		badRequest(w, "employeeCode is required")
		return
	}

	managerCode, err := employeeParam(r, req.ManagerCode)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	weekStart, err := parseDate(req.WeekStart, "weekStart")
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	approval := services.ApprovalRequest{
		Key:         models.NewSummaryKey(req.EmployeeCode, req.TimesheetYear, req.TimesheetMonth, weekStart),
		ManagerCode: managerCode,
		Approve:     req.Approve,
		Comment:     req.Comment,
	}
	for _, c := range req.Entries {
		workDate, err := parseDate(c.WorkDate, "workDate")
		if err != nil {
			writeError(w, h.log, err)
			return
		}
		approval.Corrections = append(approval.Corrections, services.Correction{
			TimesheetYear:  c.TimesheetYear,
			TimesheetMonth: c.TimesheetMonth,
			WorkDate:       workDate,
			EntryType:      c.EntryType,
			ProjectCode:    c.ProjectCode,
			HoursSpent:     c.HoursSpent,
			Description:    c.Description,
		})
	}

	msg, err := h.reconciler.Reconcile(r.Context(), approval)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: msg})
}

func (h *ManagerHandler) ApproveAll(w http.ResponseWriter, r *http.Request) {
	var req approveAllRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	managerCode, err := employeeParam(r, req.ManagerCode)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	weekStart, err := parseDate(req.WeekStart, "weekStart")
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	msg, err := h.reconciler.ApproveAllUnderManagerForWeek(r.Context(), services.BulkApprovalRequest{
		ManagerCode:    managerCode,
		TimesheetYear:  req.TimesheetYear,
		TimesheetMonth: req.TimesheetMonth,
		WeekStart:      weekStart,
		Comment:        req.Comment,
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: msg})
}

// scopeFromQuery pulls the year and month scope out of the query before the
// remaining parameters are read as filters.
func scopeFromQuery(params url.Values) (services.SummaryScope, filter.Query, error) {
	var scope services.SummaryScope
	for name, dst := range map[string]*int{"year": &scope.Year, "month": &scope.Month} {
		if raw := params.Get(name); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil {
				return scope, filter.Query{}, apperror.Validation("Invalid %s", name)
			}
			*dst = v
			params.Del(name)
		}
	}
	q, err := filter.ParseQuery(params)
	return scope, q, err
}

// ReportSummaries lists the weekly summaries of the caller's direct reports.
func (h *ManagerHandler) ReportSummaries(w http.ResponseWriter, r *http.Request) {
	managerCode, err := employeeParam(r, r.URL.Query().Get("managerCode"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	params := r.URL.Query()
	params.Del("managerCode")

	scope, q, err := scopeFromQuery(params)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	scope.ManagerCode = managerCode

	page, err := h.summaries.ListSummaries(r.Context(), scope, q)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// AllSummaries lists every weekly summary.
func (h *ManagerHandler) AllSummaries(w http.ResponseWriter, r *http.Request) {
	scope, q, err := scopeFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	page, err := h.summaries.ListSummaries(r.Context(), scope, q)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *ManagerHandler) EmployeeDashboard(w http.ResponseWriter, r *http.Request) {
	employeeCode, err := employeeParam(r, r.URL.Query().Get("employeeCode"), readers...)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	year, month, err := parseYearMonth(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	d, err := h.dashboard.EmployeeDashboard(r.Context(), employeeCode, year, month)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *ManagerHandler) ManagerDashboard(w http.ResponseWriter, r *http.Request) {
	managerCode, err := employeeParam(r, r.URL.Query().Get("managerCode"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	year, month, err := parseYearMonth(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	d, err := h.dashboard.ManagerDashboard(r.Context(), managerCode, year, month)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *ManagerHandler) ProjectManagerDashboard(w http.ResponseWriter, r *http.Request) {
	managerCode, err := employeeParam(r, r.URL.Query().Get("managerCode"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	d, err := h.dashboard.ProjectManagerDashboard(r.Context(), managerCode)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *ManagerHandler) CostCenterDashboard(w http.ResponseWriter, r *http.Request) {
	managerCode, err := employeeParam(r, r.URL.Query().Get("managerCode"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	year, err := optionalInt(r, "year")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	month, err := optionalInt(r, "month")
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	d, err := h.dashboard.CostCenterManagerDashboard(r.Context(), managerCode, year, month)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
