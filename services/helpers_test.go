package services

import (
	"context"
	"testing"
	"time"

	"timesheet/database"
	"timesheet/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type mockDirectory struct {
	mock.Mock
}

func (m *mockDirectory) EmployeesUnderManager(ctx context.Context, managerCode string) ([]models.User, error) {
	args := m.Called(ctx, managerCode)
	users, _ := args.Get(0).([]models.User)
	return users, args.Error(1)
}

func (m *mockDirectory) UserByEmployeeCode(ctx context.Context, employeeCode string) (models.User, error) {
	args := m.Called(ctx, employeeCode)
	user, _ := args.Get(0).(models.User)
	return user, args.Error(1)
}

func (m *mockDirectory) AllUsers(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	users, _ := args.Get(0).([]models.User)
	return users, args.Error(1)
}

type fixture struct {
	db          *gorm.DB
	dir         *mockDirectory
	assignments *AssignmentRepository
	summaries   *SummaryMachine
	entries     *EntryStore
	reconciler  *Reconciler
	dashboard   *Dashboard
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open("sqlite", ":memory:", "silent")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	log := zap.NewNop()
	dir := &mockDirectory{}
	assignments := NewAssignmentRepository(db)
	summaries := NewSummaryMachine(db, dir, log)
	f := &fixture{
		db:          db,
		dir:         dir,
		assignments: assignments,
		summaries:   summaries,
		entries:     NewEntryStore(db, assignments, summaries, log),
		reconciler:  NewReconciler(db, summaries, dir, log),
		dashboard:   NewDashboard(db, dir, log),
	}
	t.Cleanup(func() { dir.AssertExpectations(t) })
	return f
}

// seedProject registers project under cost center cc and assigns the
// given employees to it.
func (f *fixture) seedProject(t *testing.T, code, title, pm, cc string, employees ...string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.assignments.SaveProject(ctx, &models.Project{
		ProjectCode: code, Title: title, ProjectManagerCode: pm, CostCenterCode: cc, Active: true,
	}))
	for _, e := range employees {
		require.NoError(t, f.assignments.Assign(ctx, &models.ProjectAssignment{
			ID:     models.AssignmentKey{ProjectCode: code, EmployeeCode: e},
			Active: true,
		}))
	}
}

func (f *fixture) seedSummary(t *testing.T, key models.SummaryKey, status models.Status, total string) {
	t.Helper()
	require.NoError(t, f.db.Create(&models.WeeklySummary{
		ID: key, Status: status, TotalHours: dec(total), Version: 1,
	}).Error)
}

func (f *fixture) summary(t *testing.T, key models.SummaryKey) *models.WeeklySummary {
	t.Helper()
	s, err := findSummary(f.db, key)
	require.NoError(t, err)
	return s
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr[T any](v T) *T {
	return &v
}

func projectEntry(emp, project string, day time.Time, hours string) models.DailyEntry {
	return models.DailyEntry{
		EmployeeCode:   emp,
		TimesheetYear:  day.Year(),
		TimesheetMonth: int(day.Month()),
		WorkDate:       day,
		EntryType:      models.EntryProject,
		ProjectCode:    project,
		HoursSpent:     dec(hours),
	}
}

func leaveEntry(emp string, day time.Time, hours string) models.DailyEntry {
	return models.DailyEntry{
		EmployeeCode:   emp,
		TimesheetYear:  day.Year(),
		TimesheetMonth: int(day.Month()),
		WorkDate:       day,
		EntryType:      models.EntryLeave,
		HoursSpent:     dec(hours),
	}
}

// ensureDraft runs the draft refresh in its own transaction, the way a
// week save does.
func (f *fixture) ensureDraft(key models.SummaryKey) (*models.WeeklySummary, error) {
	var s *models.WeeklySummary
	err := f.db.Transaction(func(tx *gorm.DB) error {
		var err error
		s, err = f.summaries.ensureDraft(tx, key)
		return err
	})
	return s, err
}
