package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"

	"timesheet/config"
	"timesheet/filter"
	"timesheet/middleware"
	"timesheet/models"
	"timesheet/services"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TimesheetHandler serves an employee's own entries and weeks. Managers
// and admins may read other employees through the employeeCode parameter.
type TimesheetHandler struct {
	config    *config.Config
	entries   *services.EntryStore
	summaries *services.SummaryMachine
	log       *zap.Logger
}

func NewTimesheetHandler(cfg *config.Config, entries *services.EntryStore, summaries *services.SummaryMachine, log *zap.Logger) *TimesheetHandler {
	return &TimesheetHandler{
		config:    cfg,
		entries:   entries,
		summaries: summaries,
		log:       log,
	}
}

var readers = []models.Role{models.RoleManager, models.RoleProjectManager, models.RoleCCManager}

type entryRequest struct {
	TimesheetYear  int              `json:"timesheetYear"`
	TimesheetMonth int              `json:"timesheetMonth"`
	WorkDate       string           `json:"workDate"`
	EntryType      models.EntryType `json:"entryType"`
	ProjectCode    string           `json:"projectCode"`
	HoursSpent     decimal.Decimal  `json:"hoursSpent"`
	Description    string           `json:"description"`
}

type saveEntriesRequest struct {
	EmployeeCode   string         `json:"employeeCode"`
	TimesheetYear  int            `json:"timesheetYear"`
	TimesheetMonth int            `json:"timesheetMonth"`
	WeekStart      string         `json:"weekStart"`
	Entries        []entryRequest `json:"entries"`
}

type weekRequest struct {
	EmployeeCode   string `json:"employeeCode"`
	TimesheetYear  int    `json:"timesheetYear"`
	TimesheetMonth int    `json:"timesheetMonth"`
	WeekStart      string `json:"weekStart"`
}

type statusResponse struct {
	EmployeeCode string        `json:"employeeCode"`
	WeekStart    string        `json:"weekStart"`
	Status       models.Status `json:"status"`
}

// SaveEntries stores a week of daily entries and refreshes the week's draft.
func (h *TimesheetHandler) SaveEntries(w http.ResponseWriter, r *http.Request) {
	var req saveEntriesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	employeeCode, err := employeeParam(r, req.EmployeeCode)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	weekStart, err := parseDate(req.WeekStart, "weekStart")
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	batch := services.WeekBatch{
		EmployeeCode:   employeeCode,
		TimesheetYear:  req.TimesheetYear,
		TimesheetMonth: req.TimesheetMonth,
		WeekStart:      weekStart,
	}
	for _, e := range req.Entries {
		workDate, err := parseDate(e.WorkDate, "workDate")
		if err != nil {
			writeError(w, h.log, err)
			return
		}
		batch.Entries = append(batch.Entries, models.DailyEntry{
			EmployeeCode:   employeeCode,
			TimesheetYear:  e.TimesheetYear,
			TimesheetMonth: e.TimesheetMonth,
			WorkDate:       workDate,
			EntryType:      e.EntryType,
			ProjectCode:    e.ProjectCode,
			HoursSpent:     e.HoursSpent,
			Description:    e.Description,
		})
	}

	msg, err := h.entries.SaveDailyEntries(r.Context(), batch)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: msg})
}

func (h *TimesheetHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req weekRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	employeeCode, err := employeeParam(r, req.EmployeeCode)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	weekStart, err := parseDate(req.WeekStart, "weekStart")
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	msg, err := h.summaries.Submit(r.Context(), models.NewSummaryKey(employeeCode, req.TimesheetYear, req.TimesheetMonth, weekStart))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: msg})
}

func (h *TimesheetHandler) Week(w http.ResponseWriter, r *http.Request) {
	employeeCode, err := employeeParam(r, r.URL.Query().Get("employeeCode"), readers...)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	weekStart, err := parseDate(r.URL.Query().Get("weekStart"), "weekStart")
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	view, err := h.summaries.WeekView(r.Context(), employeeCode, weekStart)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *TimesheetHandler) Status(w http.ResponseWriter, r *http.Request) {
	employeeCode, err := employeeParam(r, r.URL.Query().Get("employeeCode"), readers...)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	weekStart, err := parseDate(r.URL.Query().Get("weekStart"), "weekStart")
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	status, err := h.summaries.CurrentStatus(r.Context(), employeeCode, weekStart)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		EmployeeCode: employeeCode,
		WeekStart:    weekStart.Format(models.DateLayout),
		Status:       status,
	})
}

// ListEntries pages through entries using field__op filters, sort, offset
// and limit. Callers without a reader role only see their own entries.
func (h *TimesheetHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetUserFromContext(r.Context())
	if p == nil {
		writeError(w, h.log, errUnauthenticated)
		return
	}
	q, err := filter.ParseQuery(r.URL.Query())
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	scope := p.EmployeeCode
	if p.HasRole(readers...) {
		scope = ""
	}
	page, err := h.entries.ListEntries(r.Context(), scope, q)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *TimesheetHandler) Matrix(w http.ResponseWriter, r *http.Request) {
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

	m, err := h.entries.MonthMatrix(r.Context(), employeeCode, year, month)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// ExportCSV streams an employee's month of entries as CSV. The list
// filters and sort apply; offset and limit do not.
func (h *TimesheetHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
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

	params := r.URL.Query()
	for _, name := range []string{"employeeCode", "year", "month"} {
		params.Del(name)
	}
	q, err := filter.ParseQuery(params)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	entries, err := h.entries.ExportEntries(r.Context(), employeeCode, year, month, q)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	filename := fmt.Sprintf("timesheet_%s_%d_%02d.csv", employeeCode, year, month)
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))

	writer := csv.NewWriter(w)
	defer writer.Flush()

	writer.Write([]string{"Employee", "Date", "Type", "Project", "Hours", "Description", "Modified By Manager"})
	total := decimal.Zero
	for _, e := range entries {
		writer.Write([]string{
			e.EmployeeCode,
			e.WorkDate.Format(models.DateLayout),
			string(e.EntryType),
			e.ProjectCode,
			e.HoursSpent.StringFixed(2),
			e.Description,
			fmt.Sprintf("%t", e.ModifiedByManager),
		})
		total = total.Add(e.HoursSpent)
	}
	writer.Write([]string{"", "", "", "Total", total.StringFixed(2), "", ""})
}
