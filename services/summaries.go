package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"timesheet/apperror"
	"timesheet/directory"
	"timesheet/filter"
	"timesheet/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SummaryMachine owns the weekly summary lifecycle:
//
//	DRAFT -> SUBMITTED -> APPROVED | CORRECTION_REQUIRED
//
// A week in CORRECTION_REQUIRED returns to DRAFT when the employee saves
// entries again. Every write is guarded by the summary version.
type SummaryMachine struct {
	db        *gorm.DB
	directory directory.Directory
	log       *zap.Logger
	now       func() time.Time
}

func NewSummaryMachine(db *gorm.DB, dir directory.Directory, log *zap.Logger) *SummaryMachine {
	return &SummaryMachine{db: db, directory: dir, log: log, now: func() time.Time { return time.Now().UTC() }}
}

func whereKey(tx *gorm.DB, key models.SummaryKey) *gorm.DB {
	return tx.Where("employee_code = ? AND timesheet_year = ? AND timesheet_month = ? AND week_start = ?",
		key.EmployeeCode, key.TimesheetYear, key.TimesheetMonth, models.DateOf(key.WeekStart))
}

func findSummary(tx *gorm.DB, key models.SummaryKey) (*models.WeeklySummary, error) {
	var s models.WeeklySummary
	err := whereKey(tx, key).Take(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound(msgSummaryNotFound, key.EmployeeCode, key.WeekStart.Format(models.DateLayout))
	}
	if err != nil {
		return nil, fmt.Errorf("find weekly summary: %w", err)
	}
	return &s, nil
}

// updateVersioned applies changes only if s is still at the version it was
// read with, then reloads s.
func updateVersioned(tx *gorm.DB, s *models.WeeklySummary, changes map[string]any) error {
	changes["version"] = s.Version + 1
	res := whereKey(tx.Model(&models.WeeklySummary{}), s.ID).
		Where("version = ?", s.Version).
		Updates(changes)
	if res.Error != nil {
		return fmt.Errorf("update weekly summary: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.Conflict("Timesheet of employee %s for week starting %s was modified concurrently",
			s.ID.EmployeeCode, s.ID.WeekStart.Format(models.DateLayout))
	}
	var fresh models.WeeklySummary
	if err := whereKey(tx, s.ID).Take(&fresh).Error; err != nil {
		return fmt.Errorf("reload weekly summary: %w", err)
	}
	*s = fresh
	return nil
}

// ensureDraft recomputes the week total from stored entries and persists
// the summary in DRAFT, creating it when absent. It runs inside the
// caller's transaction.
func (m *SummaryMachine) ensureDraft(tx *gorm.DB, key models.SummaryKey) (*models.WeeklySummary, error) {
	key.WeekStart = models.DateOf(key.WeekStart)
	entries, err := findWeekEntries(tx, key.EmployeeCode, key.WeekStart)
	if err != nil {
		return nil, err
	}
	total := SumHours(entries)

	s, err := findSummary(tx, key)
	if apperror.Is(err, apperror.KindNotFound) {
		s = &models.WeeklySummary{ID: key, TotalHours: total, Status: models.StatusDraft, Version: 1}
		if err := tx.Create(s).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, apperror.Conflict("Timesheet of employee %s for week starting %s was created concurrently",
					key.EmployeeCode, key.WeekStart.Format(models.DateLayout))
			}
			return nil, fmt.Errorf("create weekly summary: %w", err)
		}
		return s, nil
	}
	if err != nil {
		return nil, err
	}

	if !s.Status.Editable() {
		return nil, apperror.State("Timesheet of employee %s for week starting %s is %s and can no longer be edited",
			key.EmployeeCode, key.WeekStart.Format(models.DateLayout), s.Status)
	}

	if s.Status == models.StatusDraft && s.TotalHours.Equal(total) {
		return s, nil
	}
	if err := updateVersioned(tx, s, map[string]any{
		"total_hours": total,
		"status":      models.StatusDraft,
	}); err != nil {
		return nil, err
	}
	return s, nil
}

// Submit moves a DRAFT week to SUBMITTED.
func (m *SummaryMachine) Submit(ctx context.Context, key models.SummaryKey) (string, error) {
	var s *models.WeeklySummary
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if s, err = findSummary(tx, key); err != nil {
			return err
		}
		if s.Status != models.StatusDraft {
			return apperror.State("Timesheet of employee %s for week starting %s cannot be submitted from status %s",
				key.EmployeeCode, models.DateOf(key.WeekStart).Format(models.DateLayout), s.Status)
		}
		return updateVersioned(tx, s, map[string]any{
			"status":         models.StatusSubmitted,
			"submitted_date": m.now(),
		})
	})
	if err != nil {
		return "", err
	}

	m.log.Info("timesheet submitted", zap.String("summary", s.ID.String()))
	return fmt.Sprintf(msgSubmitted, s.ID.EmployeeCode, s.ID.WeekStart.Format(models.WeekLabel),
		s.ID.TimesheetMonth, s.ID.TimesheetYear), nil
}

// Decision is a manager's verdict on one week.
type Decision struct {
	Approve     bool
	ManagerCode string
	Comment     *string
	TotalHours  decimal.Decimal
}

// Decide records a manager decision. DRAFT weeks have not been submitted
// and cannot be decided; decided weeks may be decided again.
func (m *SummaryMachine) Decide(ctx context.Context, key models.SummaryKey, d Decision) (*models.WeeklySummary, error) {
	var s *models.WeeklySummary
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if s, err = findSummary(tx, key); err != nil {
			return err
		}
		return m.decide(tx, s, d)
	})
	return s, err
}

func (m *SummaryMachine) decide(tx *gorm.DB, s *models.WeeklySummary, d Decision) error {
	if d.ManagerCode == "" {
		return apperror.Validation("Manager code is required")
	}
	if s.Status == models.StatusDraft {
		return apperror.State("Timesheet of employee %s for week starting %s has not been submitted",
			s.ID.EmployeeCode, s.ID.WeekStart.Format(models.DateLayout))
	}
	status := models.StatusCorrectionRequired
	if d.Approve {
		status = models.StatusApproved
	}
	return updateVersioned(tx, s, map[string]any{
		"status":          status,
		"approved_by":     d.ManagerCode,
		"manager_comment": d.Comment,
		"total_hours":     d.TotalHours,
	})
}

// CurrentStatus looks a week up by employee and week start alone.
func (m *SummaryMachine) CurrentStatus(ctx context.Context, employeeCode string, weekStart time.Time) (models.Status, error) {
	s, err := m.byWeek(m.db.WithContext(ctx), employeeCode, weekStart)
	if err != nil {
		return "", err
	}
	return s.Status, nil
}

func (m *SummaryMachine) byWeek(tx *gorm.DB, employeeCode string, weekStart time.Time) (*models.WeeklySummary, error) {
	weekStart = models.DateOf(weekStart)
	var s models.WeeklySummary
	err := tx.Where("employee_code = ? AND week_start = ?", employeeCode, weekStart).
		Order("timesheet_year").Order("timesheet_month").
		Take(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound(msgSummaryNotFound, employeeCode, weekStart.Format(models.DateLayout))
	}
	if err != nil {
		return nil, fmt.Errorf("find weekly summary: %w", err)
	}
	return &s, nil
}

type WeekView struct {
	EmployeeCode   string              `json:"employeeCode"`
	WeekStart      string              `json:"weekStart"`
	WeekEnd        string              `json:"weekEnd"`
	Status         models.Status       `json:"status"`
	TotalHours     decimal.Decimal     `json:"totalHours"`
	ManagerComment *string             `json:"managerComment,omitempty"`
	Entries        []models.DailyEntry `json:"entries"`
}

// WeekView returns a week's entries with the summary's status.
func (m *SummaryMachine) WeekView(ctx context.Context, employeeCode string, weekStart time.Time) (*WeekView, error) {
	tx := m.db.WithContext(ctx)
	s, err := m.byWeek(tx, employeeCode, weekStart)
	if err != nil {
		return nil, err
	}
	entries, err := findWeekEntries(tx, employeeCode, s.ID.WeekStart)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []models.DailyEntry{}
	}
	return &WeekView{
		EmployeeCode:   employeeCode,
		WeekStart:      s.ID.WeekStart.Format(models.DateLayout),
		WeekEnd:        s.ID.WeekEnd().Format(models.DateLayout),
		Status:         s.Status,
		TotalHours:     s.TotalHours,
		ManagerComment: s.ManagerComment,
		Entries:        entries,
	}, nil
}

// SummaryScope narrows a summary listing before dynamic filters apply.
// Zero fields do not restrict.
type SummaryScope struct {
	ManagerCode  string
	EmployeeCode string
	Year         int
	Month        int
}

func (m *SummaryMachine) ListSummaries(ctx context.Context, scope SummaryScope, q filter.Query) (filter.Page[models.WeeklySummary], error) {
	base := m.db
	if scope.ManagerCode != "" {
		reports, err := m.directory.EmployeesUnderManager(ctx, scope.ManagerCode)
		if err != nil {
			return filter.Page[models.WeeklySummary]{}, err
		}
		codes := directory.Codes(reports)
		if len(codes) == 0 {
			return filter.NewPage[models.WeeklySummary](nil, q.Page, 0), nil
		}
		base = base.Where("employee_code IN ?", codes)
	}
	if scope.EmployeeCode != "" {
		base = base.Where("employee_code = ?", scope.EmployeeCode)
	}
	if scope.Year > 0 {
		base = base.Where("timesheet_year = ?", scope.Year)
	}
	if scope.Month > 0 {
		base = base.Where("timesheet_month = ?", scope.Month)
	}
	if len(q.Sorts) == 0 {
		q.Sorts = []filter.Sort{{Field: "id.employeeCode", Direction: filter.Asc}, {Field: "id.weekStart", Direction: filter.Asc}}
	}
	return filter.Find(ctx, base, WeeklySummarySchema, q)
}
