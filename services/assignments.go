package services

import (
	"context"
	"errors"
	"fmt"

	"timesheet/apperror"
	"timesheet/filter"
	"timesheet/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AssignmentLookup answers whether an employee may book hours on a project.
type AssignmentLookup interface {
	IsAssigned(ctx context.Context, projectCode, employeeCode string) (bool, error)
}

// AssignmentRepository is the gorm-backed AssignmentLookup. It also owns
// the project and cost center reference data.
type AssignmentRepository struct {
	db *gorm.DB
}

func NewAssignmentRepository(db *gorm.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

func (r *AssignmentRepository) IsAssigned(ctx context.Context, projectCode, employeeCode string) (bool, error) {
	var a models.ProjectAssignment
	err := r.db.WithContext(ctx).
		Where("project_code = ? AND employee_code = ? AND active = ?", projectCode, employeeCode, true).
		Take(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup assignment: %w", err)
	}
	return true, nil
}

func (r *AssignmentRepository) SaveCostCenter(ctx context.Context, cc *models.CostCenter) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "manager_code", "active", "updated_by", "updated_on"}),
	}).Create(cc).Error
}

func (r *AssignmentRepository) SaveProject(ctx context.Context, p *models.Project) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "project_code"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "cost_center_code", "project_manager_code", "active", "updated_by", "updated_on"}),
	}).Create(p).Error
}

func (r *AssignmentRepository) Assign(ctx context.Context, a *models.ProjectAssignment) error {
	if a.StartDate != nil && !a.CoversDay(*a.StartDate) {
		return apperror.Validation("Assignment of %s to %s ends before it starts", a.ID.EmployeeCode, a.ID.ProjectCode)
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Project{}).Where("project_code = ?", a.ID.ProjectCode).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return apperror.NotFound(msgProjectNotFound, a.ID.ProjectCode)
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "project_code"}, {Name: "employee_code"}},
		DoUpdates: clause.AssignmentColumns([]string{"role_in_project", "start_date", "end_date", "active", "updated_by", "updated_on"}),
	}).Create(a).Error
}

func (r *AssignmentRepository) ListProjects(ctx context.Context, q filter.Query) (filter.Page[models.Project], error) {
	if len(q.Sorts) == 0 {
		q.Sorts = []filter.Sort{{Field: "projectCode", Direction: filter.Asc}}
	}
	return filter.Find(ctx, r.db, ProjectSchema, q)
}

func (r *AssignmentRepository) Project(ctx context.Context, projectCode string) (*models.Project, error) {
	var p models.Project
	err := r.db.WithContext(ctx).Take(&p, "project_code = ?", projectCode).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound(msgProjectNotFound, projectCode)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
