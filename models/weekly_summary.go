package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Status string

const (
	StatusDraft              Status = "DRAFT"
	StatusSubmitted          Status = "SUBMITTED"
	StatusApproved           Status = "APPROVED"
	StatusCorrectionRequired Status = "CORRECTION_REQUIRED"
)

var Statuses = []Status{StatusDraft, StatusSubmitted, StatusApproved, StatusCorrectionRequired}

// Editable reports whether saving entries may touch a week in this status.
// A week sent back for correction reopens as DRAFT.
func (s Status) Editable() bool {
	return s == StatusDraft || s == StatusCorrectionRequired
}

// SummaryKey identifies one employee's week. WeekStart is always a UTC
// midnight so keys built from the same inputs are == and can index maps.
type SummaryKey struct {
	EmployeeCode   string    `gorm:"primaryKey;size:50" json:"employeeCode"`
	TimesheetYear  int       `gorm:"primaryKey;autoIncrement:false" json:"timesheetYear"`
	TimesheetMonth int       `gorm:"primaryKey;autoIncrement:false" json:"timesheetMonth"`
	WeekStart      time.Time `gorm:"primaryKey;type:date" json:"weekStart"`
}

func NewSummaryKey(employeeCode string, year, month int, weekStart time.Time) SummaryKey {
	return SummaryKey{
		EmployeeCode:   employeeCode,
		TimesheetYear:  year,
		TimesheetMonth: month,
		WeekStart:      DateOf(weekStart),
	}
}

func (k SummaryKey) WeekEnd() time.Time {
	return WeekEnd(k.WeekStart)
}

func (k SummaryKey) String() string {
	return fmt.Sprintf("%s/%04d-%02d/%s", k.EmployeeCode, k.TimesheetYear, k.TimesheetMonth, k.WeekStart.Format(DateLayout))
}

type WeeklySummary struct {
	ID             SummaryKey      `gorm:"embedded" json:"id"`
	TotalHours     decimal.Decimal `gorm:"type:numeric(8,3);not null" json:"totalHours"`
	Status         Status          `gorm:"size:30;not null;index" json:"status"`
	SubmittedDate  *time.Time      `json:"submittedDate,omitempty"`
	ApprovedBy     *string         `gorm:"size:50;index" json:"approvedBy,omitempty"`
	ManagerComment *string         `gorm:"size:1000" json:"managerComment,omitempty"`
	Version        int             `gorm:"not null" json:"version"`
	Audit
}

func (WeeklySummary) TableName() string {
	return "weekly_summaries"
}

func (s *WeeklySummary) AfterFind(tx *gorm.DB) error {
	s.ID.WeekStart = DateOf(s.ID.WeekStart)
	return nil
}
