package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"timesheet/apperror"
	"timesheet/directory"
	"timesheet/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Correction is a manager's version of one daily entry. A nil Description
// leaves the stored description untouched. A zero year or month takes the
// reviewed week's.
type Correction struct {
	TimesheetYear  int
	TimesheetMonth int
	WorkDate       time.Time
	EntryType      models.EntryType
	ProjectCode    string
	HoursSpent     decimal.Decimal
	Description    *string
}

type ApprovalRequest struct {
	Key         models.SummaryKey
	ManagerCode string
	Approve     bool
	Comment     *string
	Corrections []Correction
}

type BulkApprovalRequest struct {
	ManagerCode    string
	TimesheetYear  int
	TimesheetMonth int
	WeekStart      time.Time
	Comment        *string
}

type Reconciler struct {
	db        *gorm.DB
	summaries *SummaryMachine
	directory directory.Directory
	log       *zap.Logger
}

func NewReconciler(db *gorm.DB, summaries *SummaryMachine, dir directory.Directory, log *zap.Logger) *Reconciler {
	return &Reconciler{db: db, summaries: summaries, directory: dir, log: log}
}

// Reconcile merges the manager's corrections into the stored week and
// records the decision. The decided total is the sum of the corrections;
// without corrections the stored total is kept.
func (r *Reconciler) Reconcile(ctx context.Context, req ApprovalRequest) (string, error) {
	req.Key.WeekStart = models.DateOf(req.Key.WeekStart)
	if req.ManagerCode == "" {
		return "", apperror.Validation("Manager code is required")
	}
	for i := range req.Corrections {
		if err := validateCorrection(&req.Corrections[i], req.Key); err != nil {
			return "", err
		}
	}

	var inserted, updated int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		summary, err := findSummary(tx, req.Key)
		if err != nil {
			return err
		}

		total := summary.TotalHours
		if len(req.Corrections) > 0 {
			if inserted, updated, err = r.applyCorrections(tx, req); err != nil {
				return err
			}
			total = decimal.Zero
			for _, c := range req.Corrections {
				total = total.Add(c.HoursSpent)
			}
		}

		return r.summaries.decide(tx, summary, Decision{
			Approve:     req.Approve,
			ManagerCode: req.ManagerCode,
			Comment:     req.Comment,
			TotalHours:  total,
		})
	})
	if err != nil {
		return "", err
	}

	r.log.Info("timesheet decided",
		zap.String("summary", req.Key.String()),
		zap.String("manager_code", req.ManagerCode),
		zap.Bool("approved", req.Approve),
		zap.Int("inserted", inserted),
		zap.Int("updated", updated))

	format := msgRejected
	if req.Approve {
		format = msgApproved
	}
	return fmt.Sprintf(format, req.Key.EmployeeCode, req.Key.WeekStart.Format(models.WeekLabel), req.ManagerCode), nil
}

// validateCorrection normalizes c against the week it corrects. Work dates
// must fall inside that week so a repeated request finds what it inserted.
func validateCorrection(c *Correction, key models.SummaryKey) error {
	c.WorkDate = models.DateOf(c.WorkDate)
	c.ProjectCode = strings.TrimSpace(c.ProjectCode)
	if c.TimesheetYear == 0 {
		c.TimesheetYear = key.TimesheetYear
	}
	if c.TimesheetMonth == 0 {
		c.TimesheetMonth = key.TimesheetMonth
	}
	switch {
	case c.WorkDate.IsZero():
		return apperror.Validation("Work date is required")
	case c.WorkDate.Before(key.WeekStart) || c.WorkDate.After(key.WeekEnd()):
		return apperror.Validation("Work date %s is outside the week %s to %s",
			c.WorkDate.Format(models.DateLayout), key.WeekStart.Format(models.DateLayout), key.WeekEnd().Format(models.DateLayout))
	case c.TimesheetYear < 1:
		return apperror.Validation("Timesheet year must be positive")
	case !c.EntryType.Valid():
		return apperror.Validation("Invalid entry type: %s", c.EntryType)
	case c.EntryType.RequiresProject() && c.ProjectCode == "":
		return apperror.Validation("Project code is required for %s entries", c.EntryType)
	case c.TimesheetMonth < 1 || c.TimesheetMonth > 12:
		return apperror.Validation("Timesheet month must be between 1 and 12")
	case c.Description != nil && len([]rune(*c.Description)) > models.MaxDescriptionLength:
		return apperror.Validation("Description must be at most %d characters", models.MaxDescriptionLength)
	}
	return validateHours(c.HoursSpent)
}

func (c *Correction) matches(e *models.DailyEntry) bool {
	if !e.WorkDate.Equal(c.WorkDate) || e.EntryType != c.EntryType {
		return false
	}
	return !c.EntryType.RequiresProject() || strings.TrimSpace(e.ProjectCode) == c.ProjectCode
}

func (r *Reconciler) applyCorrections(tx *gorm.DB, req ApprovalRequest) (inserted, updated int, err error) {
	stored, err := findWeekEntries(tx, req.Key.EmployeeCode, req.Key.WeekStart)
	if err != nil {
		return 0, 0, err
	}

	for _, c := range req.Corrections {
		var match *models.DailyEntry
		for i := range stored {
			if c.matches(&stored[i]) {
				match = &stored[i]
				break
			}
		}

		if match == nil {
			entry := models.DailyEntry{
				EmployeeCode:      req.Key.EmployeeCode,
				TimesheetYear:     c.TimesheetYear,
				TimesheetMonth:    c.TimesheetMonth,
				WorkDate:          c.WorkDate,
				EntryType:         c.EntryType,
				ProjectCode:       c.ProjectCode,
				HoursSpent:        c.HoursSpent,
				ModifiedByManager: true,
			}
			if c.Description != nil {
				entry.Description = *c.Description
			}
			entry.Normalize()
			if err := tx.Create(&entry).Error; err != nil {
				return 0, 0, storeError("insert corrected entry", err)
			}
			stored = append(stored, entry)
			inserted++
			continue
		}

		changes := map[string]any{}
		if !match.HoursSpent.Equal(c.HoursSpent) {
			changes["hours_spent"] = c.HoursSpent
			match.HoursSpent = c.HoursSpent
		}
		if c.Description != nil && !strings.EqualFold(strings.TrimSpace(*c.Description), strings.TrimSpace(match.Description)) {
			changes["description"] = *c.Description
			match.Description = *c.Description
		}
		if len(changes) == 0 {
			continue
		}
		changes["modified_by_manager"] = true
		match.ModifiedByManager = true
		if err := tx.Model(&models.DailyEntry{}).Where("id = ?", match.ID).Updates(changes).Error; err != nil {
			return 0, 0, fmt.Errorf("update corrected entry: %w", err)
		}
		updated++
	}
	return inserted, updated, nil
}

// ApproveAllUnderManagerForWeek approves every week of the manager's direct
// reports matching the request, whatever its current status.
func (r *Reconciler) ApproveAllUnderManagerForWeek(ctx context.Context, req BulkApprovalRequest) (string, error) {
	if req.ManagerCode == "" {
		return "", apperror.Validation("Manager code is required")
	}
	weekStart := models.DateOf(req.WeekStart)

	reports, err := r.directory.EmployeesUnderManager(ctx, req.ManagerCode)
	if err != nil {
		return "", err
	}
	codes := directory.Codes(reports)

	approved := 0
	if len(codes) > 0 {
		err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var summaries []models.WeeklySummary
			err := tx.Where("employee_code IN ? AND week_start = ? AND timesheet_year = ? AND timesheet_month = ?",
				codes, weekStart, req.TimesheetYear, req.TimesheetMonth).
				Order("employee_code").
				Find(&summaries).Error
			if err != nil {
				return fmt.Errorf("find weekly summaries: %w", err)
			}

			for i := range summaries {
				if err := updateVersioned(tx, &summaries[i], map[string]any{
					"status":          models.StatusApproved,
					"approved_by":     req.ManagerCode,
					"manager_comment": req.Comment,
				}); err != nil {
					return err
				}
				approved++
			}
			return nil
		})
		if err != nil {
			return "", err
		}
	}

	r.log.Info("week approved for reports",
		zap.String("manager_code", req.ManagerCode),
		zap.Time("week_start", weekStart),
		zap.Int("approved", approved))
	return fmt.Sprintf(msgApprovedAll, approved, weekStart.Format(models.WeekLabel)), nil
}
