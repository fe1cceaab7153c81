package services

import (
	"context"
	"testing"

	"timesheet/apperror"
	"timesheet/filter"
	"timesheet/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestEnsureDraft_TotalsOnlyTheWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, e := range []models.DailyEntry{
		leaveEntry("E1", date(2025, 5, 18), "8"),
		leaveEntry("E1", date(2025, 5, 19), "1.25"),
		leaveEntry("E1", date(2025, 5, 22), "2.5"),
		leaveEntry("E1", date(2025, 5, 25), "0.25"),
		leaveEntry("E1", date(2025, 5, 26), "8"),
		leaveEntry("E2", date(2025, 5, 20), "8"),
	} {
		_, err := f.entries.UpsertEntry(ctx, e)
		require.NoError(t, err)
	}
	key := models.NewSummaryKey("E1", 2025, 5, date(2025, 5, 19))

	s, err := f.ensureDraft(key)
	require.NoError(t, err)
	assert.True(t, dec("4").Equal(s.TotalHours), s.TotalHours.String())
	assert.Equal(t, models.StatusDraft, s.Status)

	again, err := f.ensureDraft(key)
	require.NoError(t, err)
	assert.True(t, s.TotalHours.Equal(again.TotalHours))
	assert.Equal(t, s.Version, again.Version)

	var count int64
	require.NoError(t, f.db.Model(&models.WeeklySummary{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestEnsureDraft_ReopensCorrectionRequired(t *testing.T) {
	f := newFixture(t)
	key := models.NewSummaryKey("E1", 2025, 5, date(2025, 5, 19))
	f.seedSummary(t, key, models.StatusCorrectionRequired, "13")

	s, err := f.ensureDraft(key)

	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, s.Status)
	assert.True(t, s.TotalHours.IsZero())
	assert.Equal(t, 2, s.Version)
}

func TestEnsureDraft_LockedStates(t *testing.T) {
	for _, status := range []models.Status{models.StatusSubmitted, models.StatusApproved} {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture(t)
			key := models.NewSummaryKey("E1", 2025, 5, date(2025, 5, 19))
			f.seedSummary(t, key, status, "7")

			_, err := f.ensureDraft(key)

			assert.True(t, apperror.Is(err, apperror.KindState))
			assert.Equal(t, status, f.summary(t, key).Status)
		})
	}
}

func TestSubmit_OnlyFromDraft(t *testing.T) {
	for _, status := range models.Statuses {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture(t)
			key := models.NewSummaryKey("E1", 2025, 5, date(2025, 5, 19))
			f.seedSummary(t, key, status, "7")

			msg, err := f.summaries.Submit(context.Background(), key)

			if status == models.StatusDraft {
				require.NoError(t, err)
				assert.Equal(t, "Timesheet submitted for employee E1 for week starting 19 May 2025 (Month: 5, Year: 2025)", msg)
				s := f.summary(t, key)
				assert.Equal(t, models.StatusSubmitted, s.Status)
				assert.NotNil(t, s.SubmittedDate)
				return
			}
			assert.True(t, apperror.Is(err, apperror.KindState))
			assert.Equal(t, status, f.summary(t, key).Status)
		})
	}
}

func TestSubmit_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.summaries.Submit(context.Background(), models.NewSummaryKey("E1", 2025, 5, date(2025, 5, 19)))

	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestDecide(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := models.NewSummaryKey("E1", 2025, 5, date(2025, 5, 19))
	f.seedSummary(t, key, models.StatusDraft, "7")

	_, err := f.summaries.Decide(ctx, key, Decision{Approve: true, ManagerCode: "M1", TotalHours: dec("7")})
	assert.True(t, apperror.Is(err, apperror.KindState))

	_, err = f.summaries.Submit(ctx, key)
	require.NoError(t, err)

	s, err := f.summaries.Decide(ctx, key, Decision{Approve: false, ManagerCode: "M1", Comment: ptr("split Tuesday"), TotalHours: dec("6")})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCorrectionRequired, s.Status)
	assert.Equal(t, "M1", *s.ApprovedBy)
	assert.Equal(t, "split Tuesday", *s.ManagerComment)
	assert.True(t, dec("6").Equal(s.TotalHours))

	_, err = f.summaries.Decide(ctx, key, Decision{Approve: true, TotalHours: dec("6")})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestUpdateVersioned_StaleVersionConflicts(t *testing.T) {
	f := newFixture(t)
	key := models.NewSummaryKey("E1", 2025, 5, date(2025, 5, 19))
	f.seedSummary(t, key, models.StatusSubmitted, "7")

	stale := f.summary(t, key)
	fresh := f.summary(t, key)
	require.NoError(t, updateVersioned(f.db, fresh, map[string]any{"status": models.StatusApproved}))
	assert.Equal(t, 2, fresh.Version)

	err := updateVersioned(f.db, stale, map[string]any{"status": models.StatusCorrectionRequired})

	assert.True(t, apperror.Is(err, apperror.KindConflict))
	assert.Equal(t, models.StatusApproved, f.summary(t, key).Status)
}

func TestCurrentStatusAndWeekView(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.summaries.CurrentStatus(ctx, "E1", date(2025, 5, 19))
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	_, err = f.entries.SaveDailyEntries(ctx, WeekBatch{
		EmployeeCode: "E1", TimesheetYear: 2025, TimesheetMonth: 5, WeekStart: date(2025, 5, 19),
		Entries: []models.DailyEntry{leaveEntry("E1", date(2025, 5, 21), "8")},
	})
	require.NoError(t, err)

	status, err := f.summaries.CurrentStatus(ctx, "E1", date(2025, 5, 19))
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, status)

	view, err := f.summaries.WeekView(ctx, "E1", date(2025, 5, 19))
	require.NoError(t, err)
	assert.Equal(t, "2025-05-19", view.WeekStart)
	assert.Equal(t, "2025-05-25", view.WeekEnd)
	assert.Len(t, view.Entries, 1)
	assert.True(t, dec("8").Equal(view.TotalHours))
}

func TestListSummaries_ManagerScope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, emp := range []string{"E1", "E2", "E3"} {
		f.seedSummary(t, models.NewSummaryKey(emp, 2025, 5, date(2025, 5, 5)), models.StatusSubmitted, "40")
		f.seedSummary(t, models.NewSummaryKey(emp, 2025, 5, date(2025, 5, 12)), models.StatusDraft, "10")
	}
	f.seedSummary(t, models.NewSummaryKey("E1", 2025, 4, date(2025, 4, 28)), models.StatusApproved, "40")
	f.dir.On("EmployeesUnderManager", mock.Anything, "M1").
		Return([]models.User{{EmployeeCode: "E1"}, {EmployeeCode: "E2"}}, nil)
	f.dir.On("EmployeesUnderManager", mock.Anything, "M2").Return([]models.User{}, nil)

	page, err := f.summaries.ListSummaries(ctx, SummaryScope{ManagerCode: "M1", Year: 2025, Month: 5}, filter.Query{
		Criteria: []filter.Criterion{{Field: "status", Operator: filter.OpEq, Value: "submitted"}},
		Sorts:    []filter.Sort{{Field: "id.employeeCode", Direction: filter.Desc}},
	})
	require.NoError(t, err)
	require.Len(t, page.Content, 2)
	assert.Equal(t, "E2", page.Content[0].ID.EmployeeCode)
	assert.Equal(t, "E1", page.Content[1].ID.EmployeeCode)

	page, err = f.summaries.ListSummaries(ctx, SummaryScope{}, filter.Query{
		Criteria: []filter.Criterion{{Field: "id.weekStart", Operator: filter.OpLt, Value: "2025-05-12"}},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 4, page.TotalElements)
	assert.Equal(t, date(2025, 4, 28), page.Content[0].ID.WeekStart)

	page, err = f.summaries.ListSummaries(ctx, SummaryScope{ManagerCode: "M2"}, filter.Query{})
	require.NoError(t, err)
	assert.Empty(t, page.Content)
	assert.Zero(t, page.TotalElements)
}

func TestListSummaries_DirectoryFailure(t *testing.T) {
	f := newFixture(t)
	f.dir.On("EmployeesUnderManager", mock.Anything, "M1").
		Return(nil, apperror.Dependency(assert.AnError, "Failed to fetch employees under manager M1"))

	_, err := f.summaries.ListSummaries(context.Background(), SummaryScope{ManagerCode: "M1"}, filter.Query{})

	assert.True(t, apperror.Is(err, apperror.KindDependency))
}
