package services

import (
	"time"

	"timesheet/filter"
	"timesheet/models"

	"github.com/shopspring/decimal"
)

var summaryKeySchema = filter.NewSchema[models.SummaryKey]().
	String("employeeCode", "employee_code", func(k *models.SummaryKey) string { return k.EmployeeCode }).
	Int("timesheetYear", "timesheet_year", func(k *models.SummaryKey) int { return k.TimesheetYear }).
	Int("timesheetMonth", "timesheet_month", func(k *models.SummaryKey) int { return k.TimesheetMonth }).
	Date("weekStart", "week_start", func(k *models.SummaryKey) time.Time { return k.WeekStart })

var WeeklySummarySchema = func() *filter.Schema[models.WeeklySummary] {
	s := filter.NewSchema[models.WeeklySummary]().
		Decimal("totalHours", "total_hours", func(w *models.WeeklySummary) decimal.Decimal { return w.TotalHours }).
		String("status", "status", func(w *models.WeeklySummary) string { return string(w.Status) }).
		Date("submittedDate", "submitted_date", func(w *models.WeeklySummary) time.Time { return timeOrZero(w.SubmittedDate) }).
		String("approvedBy", "approved_by", func(w *models.WeeklySummary) string { return stringOrEmpty(w.ApprovedBy) }).
		String("managerComment", "manager_comment", func(w *models.WeeklySummary) string { return stringOrEmpty(w.ManagerComment) }).
		Int("version", "version", func(w *models.WeeklySummary) int { return w.Version })
	filter.Embed(s, "id", summaryKeySchema, func(w *models.WeeklySummary) *models.SummaryKey { return &w.ID })
	return s.
		Alias("employeeCode", "id.employeeCode").
		Alias("weekStart", "id.weekStart").
		Alias("timesheetYear", "id.timesheetYear").
		Alias("timesheetMonth", "id.timesheetMonth").
		Alias("year", "id.timesheetYear").
		Alias("month", "id.timesheetMonth")
}()

var DailyEntrySchema = filter.NewSchema[models.DailyEntry]().
	String("id", "id", func(e *models.DailyEntry) string { return e.ID }).
	String("employeeCode", "employee_code", func(e *models.DailyEntry) string { return e.EmployeeCode }).
	Int("timesheetYear", "timesheet_year", func(e *models.DailyEntry) int { return e.TimesheetYear }).
	Int("timesheetMonth", "timesheet_month", func(e *models.DailyEntry) int { return e.TimesheetMonth }).
	Date("workDate", "work_date", func(e *models.DailyEntry) time.Time { return e.WorkDate }).
	String("entryType", "entry_type", func(e *models.DailyEntry) string { return string(e.EntryType) }).
	String("projectCode", "project_code", func(e *models.DailyEntry) string { return e.ProjectCode }).
	Decimal("hoursSpent", "hours_spent", func(e *models.DailyEntry) decimal.Decimal { return e.HoursSpent }).
	String("description", "description", func(e *models.DailyEntry) string { return e.Description }).
	Bool("modifiedByManager", "modified_by_manager", func(e *models.DailyEntry) bool { return e.ModifiedByManager }).
	String("createdBy", "created_by", func(e *models.DailyEntry) string { return e.CreatedBy }).
	Date("createdOn", "created_on", func(e *models.DailyEntry) time.Time { return e.CreatedOn }).
	Alias("year", "timesheetYear").
	Alias("month", "timesheetMonth")

var ProjectSchema = filter.NewSchema[models.Project]().
	String("projectCode", "project_code", func(p *models.Project) string { return p.ProjectCode }).
	String("title", "title", func(p *models.Project) string { return p.Title }).
	String("costCenterCode", "cost_center_code", func(p *models.Project) string { return p.CostCenterCode }).
	String("projectManagerCode", "project_manager_code", func(p *models.Project) string { return p.ProjectManagerCode }).
	Bool("active", "active", func(p *models.Project) bool { return p.Active })

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
