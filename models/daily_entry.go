package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type EntryType string

const (
	EntryProject EntryType = "PROJECT"
	EntryLeave   EntryType = "LEAVE"
	EntryHoliday EntryType = "HOLIDAY"
)

func (t EntryType) Valid() bool {
	switch t {
	case EntryProject, EntryLeave, EntryHoliday:
		return true
	}
	return false
}

// RequiresProject reports whether entries of this type must reference an
// assigned project.
func (t EntryType) RequiresProject() bool {
	switch t {
	case EntryProject:
		return true
	default:
		return false
	}
}

const MaxDescriptionLength = 500

var (
	MinHours = decimal.Zero
	MaxHours = decimal.NewFromInt(24)
)

type DailyEntry struct {
	ID                string          `gorm:"primaryKey;size:36" json:"id"`
	EmployeeCode      string          `gorm:"size:50;not null;uniqueIndex:uk_daily_entry_business_key,priority:1;index:idx_daily_entry_employee_day,priority:1" json:"employeeCode"`
	TimesheetYear     int             `gorm:"not null;uniqueIndex:uk_daily_entry_business_key,priority:2" json:"timesheetYear"`
	TimesheetMonth    int             `gorm:"not null;uniqueIndex:uk_daily_entry_business_key,priority:3" json:"timesheetMonth"`
	WorkDate          time.Time       `gorm:"type:date;not null;uniqueIndex:uk_daily_entry_business_key,priority:4;index:idx_daily_entry_employee_day,priority:2" json:"workDate"`
	EntryType         EntryType       `gorm:"size:20;not null;uniqueIndex:uk_daily_entry_business_key,priority:5" json:"entryType"`
	ProjectCode       string          `gorm:"size:50;not null;uniqueIndex:uk_daily_entry_business_key,priority:6;index" json:"projectCode,omitempty"`
	HoursSpent        decimal.Decimal `gorm:"type:numeric(6,3);not null" json:"hoursSpent"`
	Description       string          `gorm:"size:500" json:"description"`
	ModifiedByManager bool            `gorm:"not null" json:"modifiedByManager"`
	Audit
}

func (DailyEntry) TableName() string {
	return "daily_entries"
}

func (e *DailyEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

func (e *DailyEntry) AfterFind(tx *gorm.DB) error {
	e.WorkDate = DateOf(e.WorkDate)
	return nil
}

// EntryKey is the business key of a DailyEntry.
type EntryKey struct {
	EmployeeCode   string
	TimesheetYear  int
	TimesheetMonth int
	WorkDate       time.Time
	EntryType      EntryType
	ProjectCode    string
}

func (e *DailyEntry) Key() EntryKey {
	return EntryKey{
		EmployeeCode:   e.EmployeeCode,
		TimesheetYear:  e.TimesheetYear,
		TimesheetMonth: e.TimesheetMonth,
		WorkDate:       DateOf(e.WorkDate),
		EntryType:      e.EntryType,
		ProjectCode:    e.ProjectCode,
	}
}

// Normalize clears the project reference for entry types that don't carry
// one and truncates the work date.
func (e *DailyEntry) Normalize() {
	e.WorkDate = DateOf(e.WorkDate)
	if !e.EntryType.RequiresProject() {
		e.ProjectCode = ""
	}
}
