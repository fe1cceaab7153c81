package models

import "time"

type CostCenter struct {
	Code        string `gorm:"primaryKey;size:50" json:"code"`
	Name        string `gorm:"not null;size:200" json:"name"`
	ManagerCode string `gorm:"size:50;index" json:"managerCode"`
	Active      bool   `gorm:"not null" json:"active"`
	Audit
}

func (CostCenter) TableName() string {
	return "cost_centers"
}

type Project struct {
	ProjectCode        string `gorm:"primaryKey;size:50" json:"projectCode"`
	Title              string `gorm:"not null;size:200" json:"title"`
	CostCenterCode     string `gorm:"size:50;index" json:"costCenterCode"`
	ProjectManagerCode string `gorm:"size:50;index" json:"projectManagerCode"`
	Active             bool   `gorm:"not null" json:"active"`
	Audit
}

func (Project) TableName() string {
	return "projects"
}

type AssignmentKey struct {
	ProjectCode  string `gorm:"primaryKey;size:50" json:"projectCode"`
	EmployeeCode string `gorm:"primaryKey;size:50" json:"employeeCode"`
}

type ProjectAssignment struct {
	ID            AssignmentKey `gorm:"embedded" json:"id"`
	RoleInProject string        `gorm:"size:100" json:"roleInProject"`
	StartDate     *time.Time    `gorm:"type:date" json:"startDate,omitempty"`
	EndDate       *time.Time    `gorm:"type:date" json:"endDate,omitempty"`
	Active        bool          `gorm:"not null" json:"active"`
	Audit
}

func (ProjectAssignment) TableName() string {
	return "project_assignments"
}

// CoversDay reports whether day falls inside the assignment window. Open
// bounds are unbounded.
func (a *ProjectAssignment) CoversDay(day time.Time) bool {
	day = DateOf(day)
	if a.StartDate != nil && day.Before(DateOf(*a.StartDate)) {
		return false
	}
	if a.EndDate != nil && day.After(DateOf(*a.EndDate)) {
		return false
	}
	return true
}
