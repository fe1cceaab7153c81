package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"timesheet/apperror"
	"timesheet/filter"
	"timesheet/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// WeekBatch is one save of an employee's week.
type WeekBatch struct {
	EmployeeCode   string              `json:"employeeCode"`
	TimesheetYear  int                 `json:"timesheetYear"`
	TimesheetMonth int                 `json:"timesheetMonth"`
	WeekStart      time.Time           `json:"weekStart"`
	Entries        []models.DailyEntry `json:"dailyEntry"`
}

func (b *WeekBatch) Key() models.SummaryKey {
	return models.NewSummaryKey(b.EmployeeCode, b.TimesheetYear, b.TimesheetMonth, b.WeekStart)
}

type EntryStore struct {
	db          *gorm.DB
	assignments AssignmentLookup
	summaries   *SummaryMachine
	log         *zap.Logger
}

func NewEntryStore(db *gorm.DB, assignments AssignmentLookup, summaries *SummaryMachine, log *zap.Logger) *EntryStore {
	return &EntryStore{db: db, assignments: assignments, summaries: summaries, log: log}
}

// UpsertEntry stores entry under its business key, overwriting hours and
// description when the key already exists.
func (s *EntryStore) UpsertEntry(ctx context.Context, entry models.DailyEntry) (*models.DailyEntry, error) {
	if err := s.check(ctx, &entry); err != nil {
		return nil, err
	}

	var saved *models.DailyEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		saved, err = upsertEntry(tx, &entry)
		return err
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// SaveDailyEntries upserts every entry of the batch and refreshes the
// week's draft summary in one transaction.
func (s *EntryStore) SaveDailyEntries(ctx context.Context, batch WeekBatch) (string, error) {
	if batch.EmployeeCode == "" {
		return "", apperror.Validation("Employee code is required")
	}
	if batch.WeekStart.IsZero() {
		return "", apperror.Validation("Week start is required")
	}
	if batch.TimesheetMonth < 1 || batch.TimesheetMonth > 12 {
		return "", apperror.Validation("Timesheet month must be between 1 and 12")
	}
	for i := range batch.Entries {
		e := &batch.Entries[i]
		if e.EmployeeCode == "" {
			e.EmployeeCode = batch.EmployeeCode
		}
		if e.EmployeeCode != batch.EmployeeCode {
			return "", apperror.Validation("Entry for employee %s does not belong to the batch of employee %s", e.EmployeeCode, batch.EmployeeCode)
		}
		if err := s.check(ctx, e); err != nil {
			return "", err
		}
	}

	key := batch.Key()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range batch.Entries {
			if _, err := upsertEntry(tx, &batch.Entries[i]); err != nil {
				return err
			}
		}
		_, err := s.summaries.ensureDraft(tx, key)
		return err
	})
	if err != nil {
		return "", err
	}

	s.log.Info("daily entries saved",
		zap.String("employee_code", key.EmployeeCode),
		zap.Time("week_start", key.WeekStart),
		zap.Int("entries", len(batch.Entries)))
	return msgEntriesSaved, nil
}

// check validates entry and consults the assignment lookup. It runs outside
// any transaction since the lookup may be remote.
func (s *EntryStore) check(ctx context.Context, entry *models.DailyEntry) error {
	entry.ProjectCode = strings.TrimSpace(entry.ProjectCode)
	if err := validateEntry(entry); err != nil {
		return err
	}
	entry.Normalize()
	if !entry.EntryType.RequiresProject() {
		return nil
	}

	ok, err := s.assignments.IsAssigned(ctx, entry.ProjectCode, entry.EmployeeCode)
	if err != nil {
		if _, typed := apperror.As(err); typed {
			return err
		}
		return apperror.Dependency(err, "Failed to verify assignment of %s to project %s", entry.EmployeeCode, entry.ProjectCode)
	}
	if !ok {
		return apperror.Validation(msgAssignmentAbsent, entry.ProjectCode, entry.EmployeeCode)
	}
	return nil
}

func validateEntry(e *models.DailyEntry) error {
	switch {
	case e.EmployeeCode == "":
		return apperror.Validation("Employee code is required")
	case e.TimesheetYear <= 0:
		return apperror.Validation("Timesheet year is required")
	case e.TimesheetMonth < 1 || e.TimesheetMonth > 12:
		return apperror.Validation("Timesheet month must be between 1 and 12")
	case e.WorkDate.IsZero():
		return apperror.Validation("Work date is required")
	case !e.EntryType.Valid():
		return apperror.Validation("Invalid entry type: %s", e.EntryType)
	case e.EntryType.RequiresProject() && e.ProjectCode == "":
		return apperror.Validation("Project code is required for %s entries", e.EntryType)
	case utf8.RuneCountInString(e.Description) > models.MaxDescriptionLength:
		return apperror.Validation("Description must be at most %d characters", models.MaxDescriptionLength)
	}
	return validateHours(e.HoursSpent)
}

func validateHours(h decimal.Decimal) error {
	if !h.GreaterThan(models.MinHours) || h.GreaterThan(models.MaxHours) {
		return apperror.Validation("Hours spent must be greater than %s and at most %s, got %s", models.MinHours, models.MaxHours, h)
	}
	return nil
}

func upsertEntry(tx *gorm.DB, entry *models.DailyEntry) (*models.DailyEntry, error) {
	if entry.EntryType.RequiresProject() {
		var count int64
		if err := tx.Model(&models.Project{}).Where("project_code = ?", entry.ProjectCode).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("lookup project: %w", err)
		}
		if count == 0 {
			return nil, apperror.NotFound(msgProjectNotFound, entry.ProjectCode)
		}
	}

	existing, err := findByBusinessKey(tx, entry.Key())
	if err != nil {
		return nil, err
	}
	if existing == nil {
		entry.ID = ""
		entry.ModifiedByManager = false
		if err := tx.Create(entry).Error; err != nil {
			return nil, storeError("insert daily entry", err)
		}
		return entry, nil
	}

	err = tx.Model(existing).Updates(map[string]any{
		"hours_spent": entry.HoursSpent,
		"description": entry.Description,
	}).Error
	if err != nil {
		return nil, storeError("update daily entry", err)
	}
	existing.HoursSpent = entry.HoursSpent
	existing.Description = entry.Description
	return existing, nil
}

func findByBusinessKey(tx *gorm.DB, key models.EntryKey) (*models.DailyEntry, error) {
	var e models.DailyEntry
	err := tx.Where("employee_code = ? AND timesheet_year = ? AND timesheet_month = ? AND work_date = ? AND entry_type = ? AND project_code = ?",
		key.EmployeeCode, key.TimesheetYear, key.TimesheetMonth, key.WorkDate, key.EntryType, key.ProjectCode).
		Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find daily entry: %w", err)
	}
	return &e, nil
}

// storeError maps constraint violations to typed errors.
func storeError(op string, err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperror.Conflict("Daily entry was saved concurrently, retry the request")
	}
	return fmt.Errorf("%s: %w", op, err)
}

func findWeekEntries(tx *gorm.DB, employeeCode string, weekStart time.Time) ([]models.DailyEntry, error) {
	start := models.DateOf(weekStart)
	var entries []models.DailyEntry
	err := tx.Where("employee_code = ? AND work_date >= ? AND work_date <= ?", employeeCode, start, models.WeekEnd(start)).
		Order("work_date").Order("entry_type").Order("project_code").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("find week entries: %w", err)
	}
	return entries, nil
}

// EntriesForWeek returns the employee's entries dated within the 7 days
// starting at weekStart, ordered by work date.
func (s *EntryStore) EntriesForWeek(ctx context.Context, employeeCode string, weekStart time.Time) ([]models.DailyEntry, error) {
	return findWeekEntries(s.db.WithContext(ctx), employeeCode, weekStart)
}

func (s *EntryStore) EntriesForEmployeeMonth(ctx context.Context, employeeCode string, year, month int) ([]models.DailyEntry, error) {
	var entries []models.DailyEntry
	err := s.db.WithContext(ctx).
		Where("employee_code = ? AND timesheet_year = ? AND timesheet_month = ?", employeeCode, year, month).
		Order("work_date").Order("entry_type").Order("project_code").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("find month entries: %w", err)
	}
	return entries, nil
}

// ExportEntries narrows an employee's month with q's criteria and orders it
// by q's sort. Paging is ignored.
func (s *EntryStore) ExportEntries(ctx context.Context, employeeCode string, year, month int, q filter.Query) ([]models.DailyEntry, error) {
	pred, err := DailyEntrySchema.Compile(q.Criteria)
	if err != nil {
		return nil, err
	}
	entries, err := s.EntriesForEmployeeMonth(ctx, employeeCode, year, month)
	if err != nil {
		return nil, err
	}
	entries = pred.Filter(entries)
	if err := DailyEntrySchema.SortSlice(entries, q.Sorts); err != nil {
		return nil, err
	}
	return entries, nil
}

// SumHours totals hoursSpent. A zero Decimal counts as 0.
func SumHours(entries []models.DailyEntry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.HoursSpent)
	}
	return total
}

func (s *EntryStore) ListEntries(ctx context.Context, employeeCode string, q filter.Query) (filter.Page[models.DailyEntry], error) {
	base := s.db
	if employeeCode != "" {
		base = base.Where("employee_code = ?", employeeCode)
	}
	if len(q.Sorts) == 0 {
		q.Sorts = []filter.Sort{{Field: "workDate", Direction: filter.Asc}, {Field: "employeeCode", Direction: filter.Asc}}
	}
	return filter.Find(ctx, base, DailyEntrySchema, q)
}

type MatrixRow struct {
	Label string                     `json:"label"`
	Weeks map[string]decimal.Decimal `json:"weeks"`
}

type MonthMatrix struct {
	EmployeeCode string      `json:"employeeCode"`
	Year         int         `json:"year"`
	Month        int         `json:"month"`
	Columns      []string    `json:"columns"`
	Rows         []MatrixRow `json:"rows"`
}

// MonthMatrix sums an employee's month by row (project title, or entry type
// for non-project entries) and Monday to Sunday calendar week.
func (s *EntryStore) MonthMatrix(ctx context.Context, employeeCode string, year, month int) (*MonthMatrix, error) {
	entries, err := s.EntriesForEmployeeMonth(ctx, employeeCode, year, month)
	if err != nil {
		return nil, err
	}

	titles, err := s.projectTitles(ctx, entries)
	if err != nil {
		return nil, err
	}

	m := &MonthMatrix{EmployeeCode: employeeCode, Year: year, Month: month, Columns: []string{}, Rows: []MatrixRow{}}
	rowIndex := make(map[string]int)
	columnStart := make(map[string]time.Time)
	for _, e := range entries {
		monday, sunday := models.CalendarWeek(e.WorkDate)
		column := monday.Format(models.MatrixDayLabel) + " - " + sunday.Format(models.MatrixDayLabel)
		if _, ok := columnStart[column]; !ok {
			columnStart[column] = monday
			m.Columns = append(m.Columns, column)
		}

		label := string(e.EntryType)
		if e.EntryType.RequiresProject() {
			label = titles[e.ProjectCode]
			if label == "" {
				label = msgUnknownProject
			}
		}
		i, ok := rowIndex[label]
		if !ok {
			i = len(m.Rows)
			rowIndex[label] = i
			m.Rows = append(m.Rows, MatrixRow{Label: label, Weeks: map[string]decimal.Decimal{}})
		}
		m.Rows[i].Weeks[column] = m.Rows[i].Weeks[column].Add(e.HoursSpent)
	}
	sort.Slice(m.Columns, func(a, b int) bool {
		return columnStart[m.Columns[a]].Before(columnStart[m.Columns[b]])
	})
	return m, nil
}

func (s *EntryStore) projectTitles(ctx context.Context, entries []models.DailyEntry) (map[string]string, error) {
	codes := projectCodes(entries)
	titles := make(map[string]string, len(codes))
	if len(codes) == 0 {
		return titles, nil
	}
	var projects []models.Project
	if err := s.db.WithContext(ctx).Where("project_code IN ?", codes).Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("find projects: %w", err)
	}
	for _, p := range projects {
		titles[p.ProjectCode] = p.Title
	}
	return titles, nil
}

func projectCodes(entries []models.DailyEntry) []string {
	seen := make(map[string]bool)
	var codes []string
	for _, e := range entries {
		if e.ProjectCode != "" && !seen[e.ProjectCode] {
			seen[e.ProjectCode] = true
			codes = append(codes, e.ProjectCode)
		}
	}
	return codes
}
