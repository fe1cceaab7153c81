package services

import (
	"context"
	"testing"

	"timesheet/apperror"
	"timesheet/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// submittedWeek books 4h and 3h on P1 for E1 in the week of 2025-05-19 and
// submits it.
func submittedWeek(t *testing.T, f *fixture) models.SummaryKey {
	t.Helper()
	ctx := context.Background()
	f.seedProject(t, "P1", "Payroll", "PM1", "CC1", "E1")
	key := models.NewSummaryKey("E1", 2025, 5, date(2025, 5, 19))

	_, err := f.entries.SaveDailyEntries(ctx, WeekBatch{
		EmployeeCode: "E1", TimesheetYear: 2025, TimesheetMonth: 5, WeekStart: key.WeekStart,
		Entries: []models.DailyEntry{
			projectEntry("E1", "P1", date(2025, 5, 19), "4"),
			projectEntry("E1", "P1", date(2025, 5, 20), "3"),
		},
	})
	require.NoError(t, err)
	assert.True(t, dec("7").Equal(f.summary(t, key).TotalHours))

	msg, err := f.summaries.Submit(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "Timesheet submitted for employee E1 for week starting 19 May 2025 (Month: 5, Year: 2025)", msg)
	return key
}

func weekEntries(t *testing.T, f *fixture, key models.SummaryKey) map[string]models.DailyEntry {
	t.Helper()
	entries, err := f.entries.EntriesForWeek(context.Background(), key.EmployeeCode, key.WeekStart)
	require.NoError(t, err)
	out := make(map[string]models.DailyEntry, len(entries))
	for _, e := range entries {
		out[e.WorkDate.Format(models.DateLayout)+"/"+string(e.EntryType)] = e
	}
	return out
}

func TestReconcile_ApprovesWithCorrections(t *testing.T) {
	f := newFixture(t)
	key := submittedWeek(t, f)
	req := ApprovalRequest{
		Key:         key,
		ManagerCode: "M1",
		Approve:     true,
		Corrections: []Correction{
			{TimesheetYear: 2025, TimesheetMonth: 5, WorkDate: date(2025, 5, 19), EntryType: models.EntryProject, ProjectCode: " P1 ", HoursSpent: dec("5")},
			{TimesheetYear: 2025, TimesheetMonth: 5, WorkDate: date(2025, 5, 21), EntryType: models.EntryLeave, HoursSpent: dec("8"), Description: ptr("sick")},
		},
	}

	msg, err := f.reconciler.Reconcile(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Timesheet of employee E1 for week starting 19 May 2025 has been approved by manager M1.", msg)

	s := f.summary(t, key)
	assert.Equal(t, models.StatusApproved, s.Status)
	assert.True(t, dec("13").Equal(s.TotalHours), s.TotalHours.String())
	assert.Equal(t, "M1", *s.ApprovedBy)

	entries := weekEntries(t, f, key)
	require.Len(t, entries, 3)
	monday := entries["2025-05-19/PROJECT"]
	assert.True(t, dec("5").Equal(monday.HoursSpent))
	assert.True(t, monday.ModifiedByManager)
	assert.False(t, entries["2025-05-20/PROJECT"].ModifiedByManager)
	leave := entries["2025-05-21/LEAVE"]
	assert.True(t, leave.ModifiedByManager)
	assert.Equal(t, "sick", leave.Description)
	assert.Empty(t, leave.ProjectCode)

	// the same request again changes nothing but the version
	again, err := f.reconciler.Reconcile(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, msg, again)
	assert.Len(t, weekEntries(t, f, key), 3)
	s = f.summary(t, key)
	assert.Equal(t, models.StatusApproved, s.Status)
	assert.True(t, dec("13").Equal(s.TotalHours))
}

func TestReconcile_DescriptionComparisonIgnoresCaseAndSpace(t *testing.T) {
	f := newFixture(t)
	key := submittedWeek(t, f)
	ctx := context.Background()
	_, err := f.reconciler.Reconcile(ctx, ApprovalRequest{Key: key, ManagerCode: "M1", Approve: false, Corrections: []Correction{
		{TimesheetYear: 2025, TimesheetMonth: 5, WorkDate: date(2025, 5, 20), EntryType: models.EntryProject, ProjectCode: "P1", HoursSpent: dec("3"), Description: ptr("Review")},
	}})
	require.NoError(t, err)
	assert.True(t, weekEntries(t, f, key)["2025-05-20/PROJECT"].ModifiedByManager)

	require.NoError(t, f.db.Model(&models.DailyEntry{}).Where("1 = 1").Update("modified_by_manager", false).Error)
	_, err = f.reconciler.Reconcile(ctx, ApprovalRequest{Key: key, ManagerCode: "M1", Approve: false, Corrections: []Correction{
		{TimesheetYear: 2025, TimesheetMonth: 5, WorkDate: date(2025, 5, 20), EntryType: models.EntryProject, ProjectCode: "P1", HoursSpent: dec("3"), Description: ptr("  review ")},
	}})
	require.NoError(t, err)
	e := weekEntries(t, f, key)["2025-05-20/PROJECT"]
	assert.False(t, e.ModifiedByManager)
	assert.Equal(t, "Review", e.Description)
}

func TestReconcile_RejectsCorrectionsOutsideTheWeek(t *testing.T) {
	f := newFixture(t)
	key := submittedWeek(t, f)
	req := ApprovalRequest{Key: key, ManagerCode: "M1", Approve: true, Corrections: []Correction{
		{TimesheetYear: 2025, TimesheetMonth: 5, WorkDate: date(2025, 5, 30), EntryType: models.EntryLeave, HoursSpent: dec("8")},
	}}

	for n := 0; n < 2; n++ {
		_, err := f.reconciler.Reconcile(context.Background(), req)
		assert.True(t, apperror.Is(err, apperror.KindValidation), err)
	}

	var count int64
	require.NoError(t, f.db.Model(&models.DailyEntry{}).Where("work_date > ?", key.WeekEnd()).Count(&count).Error)
	assert.Zero(t, count)
	s := f.summary(t, key)
	assert.Equal(t, models.StatusSubmitted, s.Status)
	assert.True(t, dec("7").Equal(s.TotalHours))

	req.Corrections[0].WorkDate = date(2025, 5, 18)
	_, err := f.reconciler.Reconcile(context.Background(), req)
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestReconcile_CorrectionYearAndMonthDefaultToTheWeek(t *testing.T) {
	f := newFixture(t)
	key := submittedWeek(t, f)
	req := ApprovalRequest{Key: key, ManagerCode: "M1", Approve: true, Corrections: []Correction{
		{WorkDate: date(2025, 5, 22), EntryType: models.EntryLeave, HoursSpent: dec("8")},
	}}

	_, err := f.reconciler.Reconcile(context.Background(), req)
	require.NoError(t, err)
	_, err = f.reconciler.Reconcile(context.Background(), req)
	require.NoError(t, err)

	var leave []models.DailyEntry
	require.NoError(t, f.db.Where("entry_type = ?", models.EntryLeave).Find(&leave).Error)
	require.Len(t, leave, 1)
	assert.Equal(t, 2025, leave[0].TimesheetYear)
	assert.Equal(t, 5, leave[0].TimesheetMonth)

	req.Corrections[0].TimesheetYear = -1
	_, err = f.reconciler.Reconcile(context.Background(), req)
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestReconcile_RejectKeepsStoredTotalWithoutCorrections(t *testing.T) {
	f := newFixture(t)
	key := submittedWeek(t, f)

	msg, err := f.reconciler.Reconcile(context.Background(), ApprovalRequest{
		Key: key, ManagerCode: "M1", Approve: false, Comment: ptr("Missing Friday"),
	})

	require.NoError(t, err)
	assert.Equal(t, "Timesheet of employee E1 for week starting 19 May 2025 has been rejected by manager M1 for correction.", msg)
	s := f.summary(t, key)
	assert.Equal(t, models.StatusCorrectionRequired, s.Status)
	assert.True(t, dec("7").Equal(s.TotalHours))
	assert.Equal(t, "Missing Friday", *s.ManagerComment)

	// the employee can edit the week again
	_, err = f.entries.SaveDailyEntries(context.Background(), WeekBatch{
		EmployeeCode: "E1", TimesheetYear: 2025, TimesheetMonth: 5, WeekStart: key.WeekStart,
		Entries: []models.DailyEntry{projectEntry("E1", "P1", date(2025, 5, 23), "8")},
	})
	require.NoError(t, err)
	s = f.summary(t, key)
	assert.Equal(t, models.StatusDraft, s.Status)
	assert.True(t, dec("15").Equal(s.TotalHours))
}

func TestReconcile_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	missing := models.NewSummaryKey("E9", 2025, 5, date(2025, 5, 19))

	_, err := f.reconciler.Reconcile(ctx, ApprovalRequest{Key: missing, ManagerCode: "M1", Approve: true})
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	_, err = f.reconciler.Reconcile(ctx, ApprovalRequest{Key: missing, Approve: true})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = f.reconciler.Reconcile(ctx, ApprovalRequest{Key: missing, ManagerCode: "M1", Corrections: []Correction{
		{TimesheetYear: 2025, TimesheetMonth: 5, WorkDate: date(2025, 5, 19), EntryType: models.EntryLeave, HoursSpent: dec("25")},
	}})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	draft := models.NewSummaryKey("E1", 2025, 5, date(2025, 5, 19))
	f.seedSummary(t, draft, models.StatusDraft, "7")
	_, err = f.reconciler.Reconcile(ctx, ApprovalRequest{Key: draft, ManagerCode: "M1", Approve: true, Corrections: []Correction{
		{TimesheetYear: 2025, TimesheetMonth: 5, WorkDate: date(2025, 5, 19), EntryType: models.EntryLeave, HoursSpent: dec("8")},
	}})
	assert.True(t, apperror.Is(err, apperror.KindState))

	var count int64
	require.NoError(t, f.db.Model(&models.DailyEntry{}).Count(&count).Error)
	assert.Zero(t, count, "corrections roll back with the rejected decision")
}

func TestApproveAllUnderManagerForWeek(t *testing.T) {
	f := newFixture(t)
	weekStart := date(2025, 5, 19)
	f.seedSummary(t, models.NewSummaryKey("E1", 2025, 5, weekStart), models.StatusSubmitted, "40")
	f.seedSummary(t, models.NewSummaryKey("E2", 2025, 5, weekStart), models.StatusCorrectionRequired, "32")
	f.seedSummary(t, models.NewSummaryKey("E3", 2025, 5, weekStart), models.StatusDraft, "8")
	f.seedSummary(t, models.NewSummaryKey("E4", 2025, 5, weekStart), models.StatusSubmitted, "40")
	f.dir.On("EmployeesUnderManager", mock.Anything, "M1").Return([]models.User{
		{EmployeeCode: "E1"}, {EmployeeCode: "E2"}, {EmployeeCode: "E3"},
	}, nil)

	msg, err := f.reconciler.ApproveAllUnderManagerForWeek(context.Background(), BulkApprovalRequest{
		ManagerCode: "M1", TimesheetYear: 2025, TimesheetMonth: 5, WeekStart: weekStart, Comment: ptr("ok"),
	})

	require.NoError(t, err)
	assert.Equal(t, "Approved 3 timesheet(s) for the week starting 19 May 2025", msg)
	for _, emp := range []string{"E1", "E2", "E3"} {
		s := f.summary(t, models.NewSummaryKey(emp, 2025, 5, weekStart))
		assert.Equal(t, models.StatusApproved, s.Status, emp)
		assert.Equal(t, "M1", *s.ApprovedBy, emp)
		assert.Equal(t, 2, s.Version, emp)
	}
	assert.Equal(t, models.StatusSubmitted, f.summary(t, models.NewSummaryKey("E4", 2025, 5, weekStart)).Status)
}

func TestApproveAllUnderManagerForWeek_DirectoryErrors(t *testing.T) {
	f := newFixture(t)
	f.dir.On("EmployeesUnderManager", mock.Anything, "M1").
		Return(nil, apperror.Dependency(assert.AnError, "Failed to fetch employees under manager M1"))
	f.dir.On("EmployeesUnderManager", mock.Anything, "M2").Return([]models.User{}, nil)
	ctx := context.Background()

	_, err := f.reconciler.ApproveAllUnderManagerForWeek(ctx, BulkApprovalRequest{ManagerCode: "M1", TimesheetYear: 2025, TimesheetMonth: 5, WeekStart: date(2025, 5, 19)})
	assert.True(t, apperror.Is(err, apperror.KindDependency))

	msg, err := f.reconciler.ApproveAllUnderManagerForWeek(ctx, BulkApprovalRequest{ManagerCode: "M2", TimesheetYear: 2025, TimesheetMonth: 5, WeekStart: date(2025, 5, 19)})
	require.NoError(t, err)
	assert.Equal(t, "Approved 0 timesheet(s) for the week starting 19 May 2025", msg)
}
