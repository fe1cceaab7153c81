package services

import (
	"context"
	"fmt"
	"sort"

	"timesheet/directory"
	"timesheet/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type StatusSummary struct {
	Status     models.Status   `json:"status"`
	Count      int64           `json:"count"`
	TotalHours decimal.Decimal `json:"totalHours"`
}

type EmployeeDashboard struct {
	EmployeeCode    string                 `json:"employeeCode"`
	Year            int                    `json:"year"`
	Month           int                    `json:"month"`
	WeeklySummaries []models.WeeklySummary `json:"weeklySummaries"`
	StatusSummary   []StatusSummary        `json:"statusSummary"`
}

type WeekLine struct {
	WeekStartDate string          `json:"weekStartDate"`
	WeekEndDate   string          `json:"weekEndDate"`
	TotalHours    decimal.Decimal `json:"totalHours"`
	Status        models.Status   `json:"status"`
}

type EmployeeWeeks struct {
	EmployeeCode string     `json:"employeeCode"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Weeks        []WeekLine `json:"weeks"`
}

type ManagerDashboard struct {
	Employees     []EmployeeWeeks `json:"employees"`
	StatusSummary []StatusSummary `json:"statusSummary"`
}

type ProjectHours struct {
	ProjectCode string          `json:"projectCode"`
	Title       string          `json:"title"`
	TotalHours  decimal.Decimal `json:"totalHours"`
}

type ProjectHeadcount struct {
	ProjectCode string `json:"projectCode"`
	Employees   int64  `json:"employees"`
}

type ProjectStatusCount struct {
	ProjectCode string        `json:"projectCode"`
	Status      models.Status `json:"status"`
	Count       int64         `json:"count"`
}

type MonthlyHours struct {
	Month      string          `json:"month"`
	TotalHours decimal.Decimal `json:"totalHours"`
}

type ProjectManagerDashboard struct {
	TotalActiveProjects  int                  `json:"totalActiveProjects"`
	ProjectHours         []ProjectHours       `json:"projectHours"`
	EmployeeDistribution []ProjectHeadcount   `json:"employeeDistribution"`
	StatusSummary        []ProjectStatusCount `json:"timesheetStatusSummary"`
	MonthlyHoursTrend    []MonthlyHours       `json:"monthlyHoursTrend"`
}

type CostCenterDashboard struct {
	ActiveProjectCount      int                        `json:"activeProjectCount"`
	TotalHoursPerProject    map[string]decimal.Decimal `json:"totalHoursPerProject"`
	EmployeeCountPerProject map[string]int64           `json:"employeeCountPerProject"`
	StatusSummary           map[models.Status]int64    `json:"timesheetStatusSummary"`
}

// Dashboard produces read-only aggregates over entries and summaries.
type Dashboard struct {
	db        *gorm.DB
	directory directory.Directory
	log       *zap.Logger
}

func NewDashboard(db *gorm.DB, dir directory.Directory, log *zap.Logger) *Dashboard {
	return &Dashboard{db: db, directory: dir, log: log}
}

// summarizeByStatus groups summaries by status in the fixed lifecycle order,
// omitting statuses with no weeks.
func summarizeByStatus(summaries []models.WeeklySummary) []StatusSummary {
	byStatus := make(map[models.Status]*StatusSummary)
	for _, s := range summaries {
		acc, ok := byStatus[s.Status]
		if !ok {
			acc = &StatusSummary{Status: s.Status, TotalHours: decimal.Zero}
			byStatus[s.Status] = acc
		}
		acc.Count++
		acc.TotalHours = acc.TotalHours.Add(s.TotalHours)
	}
	out := []StatusSummary{}
	for _, status := range models.Statuses {
		if acc, ok := byStatus[status]; ok {
			out = append(out, *acc)
		}
	}
	return out
}

func (d *Dashboard) EmployeeDashboard(ctx context.Context, employeeCode string, year, month int) (*EmployeeDashboard, error) {
	var summaries []models.WeeklySummary
	err := d.db.WithContext(ctx).
		Where("employee_code = ? AND timesheet_year = ? AND timesheet_month = ?", employeeCode, year, month).
		Order("week_start").
		Find(&summaries).Error
	if err != nil {
		return nil, fmt.Errorf("find weekly summaries: %w", err)
	}
	if summaries == nil {
		summaries = []models.WeeklySummary{}
	}
	return &EmployeeDashboard{
		EmployeeCode:    employeeCode,
		Year:            year,
		Month:           month,
		WeeklySummaries: summaries,
		StatusSummary:   summarizeByStatus(summaries),
	}, nil
}

func (d *Dashboard) ManagerDashboard(ctx context.Context, managerCode string, year, month int) (*ManagerDashboard, error) {
	reports, err := d.directory.EmployeesUnderManager(ctx, managerCode)
	if err != nil {
		return nil, err
	}
	out := &ManagerDashboard{Employees: []EmployeeWeeks{}, StatusSummary: []StatusSummary{}}
	codes := directory.Codes(reports)
	if len(codes) == 0 {
		return out, nil
	}

	var summaries []models.WeeklySummary
	err = d.db.WithContext(ctx).
		Where("employee_code IN ? AND timesheet_year = ? AND timesheet_month = ?", codes, year, month).
		Order("employee_code").Order("week_start").
		Find(&summaries).Error
	if err != nil {
		return nil, fmt.Errorf("find weekly summaries: %w", err)
	}
	out.StatusSummary = summarizeByStatus(summaries)

	users := make(map[string]models.User, len(reports))
	for _, u := range reports {
		users[u.EmployeeCode] = u
	}
	index := make(map[string]int)
	for _, s := range summaries {
		i, ok := index[s.ID.EmployeeCode]
		if !ok {
			u := users[s.ID.EmployeeCode]
			i = len(out.Employees)
			index[s.ID.EmployeeCode] = i
			out.Employees = append(out.Employees, EmployeeWeeks{
				EmployeeCode: s.ID.EmployeeCode,
				Name:         u.DisplayName(),
				Email:        u.Email,
			})
		}
		out.Employees[i].Weeks = append(out.Employees[i].Weeks, WeekLine{
			WeekStartDate: s.ID.WeekStart.Format(models.DateLayout),
			WeekEndDate:   s.ID.WeekEnd().Format(models.DateLayout),
			TotalHours:    s.TotalHours,
			Status:        s.Status,
		})
	}
	return out, nil
}

func (d *Dashboard) ProjectManagerDashboard(ctx context.Context, managerCode string) (*ProjectManagerDashboard, error) {
	db := d.db.WithContext(ctx)

	var projects []models.Project
	if err := db.Where("project_manager_code = ? AND active = ?", managerCode, true).
		Order("project_code").Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("find projects: %w", err)
	}
	out := &ProjectManagerDashboard{
		TotalActiveProjects:  len(projects),
		ProjectHours:         []ProjectHours{},
		EmployeeDistribution: []ProjectHeadcount{},
		StatusSummary:        []ProjectStatusCount{},
		MonthlyHoursTrend:    []MonthlyHours{},
	}
	if len(projects) == 0 {
		return out, nil
	}
	codes := make([]string, len(projects))
	titles := make(map[string]string, len(projects))
	for i, p := range projects {
		codes[i] = p.ProjectCode
		titles[p.ProjectCode] = p.Title
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var entries []models.DailyEntry
		err := d.db.WithContext(gctx).
			Select("project_code", "work_date", "hours_spent").
			Where("project_code IN ?", codes).
			Find(&entries).Error
		if err != nil {
			return fmt.Errorf("find project entries: %w", err)
		}
		out.ProjectHours, out.MonthlyHoursTrend = projectHoursAndTrend(entries, codes, titles)
		return nil
	})

	g.Go(func() error {
		var rows []ProjectHeadcount
		err := d.db.WithContext(gctx).Model(&models.ProjectAssignment{}).
			Select("project_code, COUNT(*) AS employees").
			Where("project_code IN ? AND active = ?", codes, true).
			Group("project_code").
			Scan(&rows).Error
		if err != nil {
			return fmt.Errorf("count project employees: %w", err)
		}
		counts := make(map[string]int64, len(rows))
		for _, r := range rows {
			counts[r.ProjectCode] = r.Employees
		}
		for _, code := range codes {
			out.EmployeeDistribution = append(out.EmployeeDistribution, ProjectHeadcount{ProjectCode: code, Employees: counts[code]})
		}
		return nil
	})

	g.Go(func() error {
		// a summary counts once per project it has entries for
		var rows []ProjectStatusCount
		err := d.db.WithContext(gctx).Raw(`
			SELECT x.project_code, x.status, COUNT(*) AS count FROM (
				SELECT DISTINCT e.project_code, s.employee_code, s.timesheet_year, s.timesheet_month, s.week_start, s.status
				FROM weekly_summaries s
				JOIN daily_entries e ON e.employee_code = s.employee_code
					AND e.work_date >= s.week_start
					AND e.work_date < `+nextWeekExpr(d.db)+`
				WHERE e.project_code IN ?
			) x
			GROUP BY x.project_code, x.status
			ORDER BY x.project_code, x.status`, codes).
			Scan(&rows).Error
		if err != nil {
			return fmt.Errorf("count project statuses: %w", err)
		}
		out.StatusSummary = append(out.StatusSummary, rows...)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// nextWeekExpr is the day after the summary's week end in the connected
// dialect.
func nextWeekExpr(db *gorm.DB) string {
	if db.Dialector.Name() == "sqlite" {
		return "date(s.week_start, '+7 days')"
	}
	return "s.week_start + 7"
}

func projectHoursAndTrend(entries []models.DailyEntry, codes []string, titles map[string]string) ([]ProjectHours, []MonthlyHours) {
	perProject := make(map[string]decimal.Decimal)
	perMonth := make(map[string]decimal.Decimal)
	for _, e := range entries {
		perProject[e.ProjectCode] = perProject[e.ProjectCode].Add(e.HoursSpent)
		month := e.WorkDate.Format(models.MonthKeyLayout)
		perMonth[month] = perMonth[month].Add(e.HoursSpent)
	}

	hours := []ProjectHours{}
	for _, code := range codes {
		if total, ok := perProject[code]; ok {
			hours = append(hours, ProjectHours{ProjectCode: code, Title: titles[code], TotalHours: total})
		}
	}

	months := make([]string, 0, len(perMonth))
	for m := range perMonth {
		months = append(months, m)
	}
	sort.Strings(months)
	trend := make([]MonthlyHours, 0, len(months))
	for _, m := range months {
		trend = append(trend, MonthlyHours{Month: m, TotalHours: perMonth[m]})
	}
	return hours, trend
}

// CostCenterManagerDashboard covers every project of the cost centers the
// manager runs. year and month optionally narrow the hours and status
// figures.
func (d *Dashboard) CostCenterManagerDashboard(ctx context.Context, managerCode string, year, month *int) (*CostCenterDashboard, error) {
	db := d.db.WithContext(ctx)

	var projects []models.Project
	err := db.Joins("JOIN cost_centers cc ON cc.code = projects.cost_center_code").
		Where("cc.manager_code = ?", managerCode).
		Order("projects.project_code").
		Find(&projects).Error
	if err != nil {
		return nil, fmt.Errorf("find cost center projects: %w", err)
	}

	out := &CostCenterDashboard{
		TotalHoursPerProject:    map[string]decimal.Decimal{},
		EmployeeCountPerProject: map[string]int64{},
		StatusSummary:           map[models.Status]int64{},
	}
	codes := make([]string, 0, len(projects))
	for _, p := range projects {
		codes = append(codes, p.ProjectCode)
		if p.Active {
			out.ActiveProjectCount++
		}
	}

	if len(codes) > 0 {
		q := db.Model(&models.DailyEntry{}).Where("project_code IN ?", codes)
		if year != nil {
			q = q.Where("timesheet_year = ?", *year)
		}
		if month != nil {
			q = q.Where("timesheet_month = ?", *month)
		}
		var entries []models.DailyEntry
		if err := q.Select("project_code", "hours_spent").Find(&entries).Error; err != nil {
			return nil, fmt.Errorf("find project entries: %w", err)
		}
		for _, e := range entries {
			out.TotalHoursPerProject[e.ProjectCode] = out.TotalHoursPerProject[e.ProjectCode].Add(e.HoursSpent)
		}

		var headcounts []ProjectHeadcount
		err := db.Model(&models.ProjectAssignment{}).
			Select("project_code, COUNT(*) AS employees").
			Where("project_code IN ? AND active = ?", codes, true).
			Group("project_code").
			Scan(&headcounts).Error
		if err != nil {
			return nil, fmt.Errorf("count project employees: %w", err)
		}
		for _, h := range headcounts {
			out.EmployeeCountPerProject[h.ProjectCode] = h.Employees
		}
	}

	sq := db.Model(&models.WeeklySummary{}).Where("approved_by = ?", managerCode)
	if year != nil {
		sq = sq.Where("timesheet_year = ?", *year)
	}
	if month != nil {
		sq = sq.Where("timesheet_month = ?", *month)
	}
	var statuses []struct {
		Status models.Status
		Count  int64
	}
	if err := sq.Select("status, COUNT(*) AS count").Group("status").Scan(&statuses).Error; err != nil {
		return nil, fmt.Errorf("count statuses: %w", err)
	}
	for _, s := range statuses {
		out.StatusSummary[s.Status] = s.Count
	}
	return out, nil
}
