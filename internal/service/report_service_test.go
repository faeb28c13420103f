package service

import (
	"context"
	"encoding/json"
	"errors"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-wellbeing-api/internal/analytics"
	"github.com/noah-isme/uni-wellbeing-api/internal/models"
	appErrors "github.com/noah-isme/uni-wellbeing-api/pkg/errors"
)

var termStart = time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)

func strPtr(v string) *string { return &v }

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func weekDate(week int) time.Time {
	return termStart.AddDate(0, 0, 7*(week-1))
}

func addAttendance(store *memoryStore, regID int64, present, absent int) {
	week := 1
	for i := 0; i < present+absent; i++ {
		store.attendance = append(store.attendance, models.Attendance{
			ID:             int64(len(store.attendance) + 1),
			RegistrationID: regID,
			WeekNumber:     week,
			ClassDate:      weekDate(week),
			IsPresent:      i < present,
		})
		week++
	}
}

func addSurvey(store *memoryStore, regID int64, week, stress int, sleep float64, social int) {
	submitted := weekDate(week).Add(48 * time.Hour)
	store.surveys = append(store.surveys, models.Survey{
		ID:                    int64(len(store.surveys) + 1),
		RegistrationID:        regID,
		WeekNumber:            week,
		SubmittedAt:           &submitted,
		StressLevel:           intPtr(stress),
		SleepHours:            floatPtr(sleep),
		SocialConnectionScore: intPtr(social),
	})
}

func addSubmission(store *memoryStore, regID int64, assignmentID string, grade *float64, submittedAt *time.Time) {
	store.submissions = append(store.submissions, models.Submission{
		ID:             int64(len(store.submissions) + 1),
		RegistrationID: regID,
		AssignmentID:   assignmentID,
		SubmittedAt:    submittedAt,
		Grade:          grade,
	})
}

// newReportFixture seeds a small cohort:
// S1 is at risk on attendance, stress and grades; S2 on sleep and social connection;
// S3 has no registrations; S4 is healthy and belongs to another course.
func newReportFixture() *memoryStore {
	store := newMemoryStore()
	store.courses["C1"] = models.Course{ID: "C1", Name: "Computer Science"}
	store.courses["C2"] = models.Course{ID: "C2", Name: "Mathematics"}
	store.modules["M001"] = models.Module{ID: "M001", Name: "Algorithms", CourseID: strPtr("C1")}
	store.modules["M002"] = models.Module{ID: "M002", Name: "Databases", CourseID: strPtr("C1")}
	store.students = []models.Student{
		{ID: "S1", FirstName: "Ada", LastName: "Lovelace", Email: "ada@uni.ac.uk", CurrentCourseID: strPtr("C1"), EnrolledYear: intPtr(2023)},
		{ID: "S2", FirstName: "Grace", LastName: "Hopper", Email: "grace@uni.ac.uk", CurrentCourseID: strPtr("C1")},
		{ID: "S3", FirstName: "Alan", LastName: "Turing", Email: "alan@uni.ac.uk", CurrentCourseID: strPtr("C1")},
		{ID: "S4", FirstName: "Katherine", LastName: "Johnson", Email: "kj@uni.ac.uk", CurrentCourseID: strPtr("C2")},
	}
	store.registrations = []models.Registration{
		{ID: 1, StudentID: "S1", ModuleID: "M001", Status: models.RegistrationStatusActive},
		{ID: 2, StudentID: "S2", ModuleID: "M001", Status: models.RegistrationStatusActive},
		{ID: 3, StudentID: "S2", ModuleID: "M002", Status: models.RegistrationStatusActive},
		{ID: 4, StudentID: "S4", ModuleID: "M002", Status: models.RegistrationStatusCompleted},
	}
	store.assignments = []models.Assignment{
		{ID: "A1", ModuleID: "M001", Title: "Sorting", DueDate: weekDate(3), MaxScore: 100},
		{ID: "A2", ModuleID: "M002", Title: "Schema design", DueDate: weekDate(4), MaxScore: 100},
	}

	addAttendance(store, 1, 6, 4)
	addAttendance(store, 2, 10, 0)
	addAttendance(store, 3, 4, 0)
	addAttendance(store, 4, 8, 0)

	addSurvey(store, 1, 1, 5, 8, 3)
	addSurvey(store, 2, 1, 2, 5, 1)
	addSurvey(store, 4, 1, 1, 8, 4)

	early := weekDate(3).AddDate(0, 0, -2)
	late := weekDate(3).AddDate(0, 0, 1)
	addSubmission(store, 1, "A1", floatPtr(35), &late)
	addSubmission(store, 2, "A1", floatPtr(80), &early)
	addSubmission(store, 3, "A2", nil, nil)
	addSubmission(store, 4, "A2", floatPtr(90), &early)
	return store
}

func newReportServiceForTest(store *memoryStore) *ReportService {
	return NewReportService(store.reportStore(), analytics.DefaultRiskPolicy(), nil, nil, nil)
}

func TestReportServiceAtRisk(t *testing.T) {
	svc := newReportServiceForTest(newReportFixture())

	report, cached, err := svc.AtRisk(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)
	require.Equal(t, 2, report.TotalCount)

	first := report.Students[0]
	assert.Equal(t, "S1", first.StudentID)
	assert.Equal(t, "Ada Lovelace", first.Name)
	assert.Equal(t, 9.0, first.RiskScore)
	assert.Equal(t, []models.RiskFactor{models.RiskLowAttendance, models.RiskHighStress, models.RiskFailingGrades}, first.RiskFactors)

	second := report.Students[1]
	assert.Equal(t, "S2", second.StudentID)
	assert.Equal(t, 4.0, second.RiskScore)
	assert.Equal(t, []models.RiskFactor{models.RiskLowSleep, models.RiskLowSocialConnection}, second.RiskFactors)
}

func TestReportServiceAtRiskStorageFailure(t *testing.T) {
	store := newReportFixture()
	store.listErr = errors.New("connection reset")
	svc := newReportServiceForTest(store)

	_, _, err := svc.AtRisk(context.Background())
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
}

func TestReportServiceWeeklyTrendForModule(t *testing.T) {
	store := newReportFixture()
	addSurvey(store, 1, 2, 4, 6, 3)
	addSurvey(store, 2, 2, 2, 6, 2)
	svc := newReportServiceForTest(store)

	report, _, err := svc.WeeklyTrend(context.Background(), models.CohortFilter{ModuleID: "M001"}, models.WeekRange{})
	require.NoError(t, err)

	require.Len(t, report.Attendance, 10)
	assert.Equal(t, 1, report.Attendance[0].Week)
	assert.Equal(t, 100.0, report.Attendance[0].AttendanceRate)
	assert.Equal(t, 50.0, report.Attendance[9].AttendanceRate)

	require.Len(t, report.Wellbeing, 2)
	require.NotNil(t, report.Wellbeing[0].AvgStress)
	assert.Equal(t, 3.5, *report.Wellbeing[0].AvgStress)

	wow := report.WeekOverWeek
	require.NotNil(t, wow)
	assert.Equal(t, 2, wow.CurrentWeek)
	require.NotNil(t, wow.PreviousWeek)
	assert.Equal(t, 1, *wow.PreviousWeek)
	assert.Equal(t, 3.0, wow.StressLevel.CurrentWeekAverage)
	require.NotNil(t, wow.StressLevel.Change)
	assert.Equal(t, -0.5, *wow.StressLevel.Change)
	assert.Equal(t, analytics.ChangeDecreased, *wow.StressLevel.ChangeDescription)
}

func TestReportServiceWeeklyTrendWeekFilter(t *testing.T) {
	svc := newReportServiceForTest(newReportFixture())

	report, _, err := svc.WeeklyTrend(context.Background(), models.CohortFilter{StudentID: "S1"}, models.WeekRange{Start: intPtr(7), End: intPtr(8)})
	require.NoError(t, err)
	require.Len(t, report.Attendance, 2)
	assert.Equal(t, 0.0, report.Attendance[0].AttendanceRate)
	assert.Empty(t, report.Wellbeing)
	assert.Nil(t, report.WeekOverWeek)
}

func TestReportServiceWeeklyTrendErrors(t *testing.T) {
	svc := newReportServiceForTest(newReportFixture())
	ctx := context.Background()

	_, _, err := svc.WeeklyTrend(ctx, models.CohortFilter{StudentID: "missing"}, models.WeekRange{})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, _, err = svc.WeeklyTrend(ctx, models.CohortFilter{ModuleID: "M999"}, models.WeekRange{})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, _, err = svc.WeeklyTrend(ctx, models.CohortFilter{}, models.WeekRange{Start: intPtr(5), End: intPtr(2)})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestReportServiceWeeklyTrendEmptyCohort(t *testing.T) {
	svc := newReportServiceForTest(newReportFixture())

	report, _, err := svc.WeeklyTrend(context.Background(), models.CohortFilter{StudentID: "S3"}, models.WeekRange{})
	require.NoError(t, err)
	assert.Empty(t, report.Attendance)
	assert.Empty(t, report.Wellbeing)
	assert.Nil(t, report.WeekOverWeek)
}

func TestReportServiceCompare(t *testing.T) {
	svc := newReportServiceForTest(newReportFixture())

	result, _, err := svc.Compare(context.Background(), "C1", models.MetricAttendance, models.WeekRange{})
	require.NoError(t, err)
	assert.Equal(t, "Computer Science", result.CourseName)
	require.Equal(t, 2, result.TotalStudents)
	assert.Equal(t, "S2", result.Students[0].StudentID)
	assert.Equal(t, 100.0, result.Students[0].Attendance.Rate)
	assert.Equal(t, "S1", result.Students[1].StudentID)
	assert.Equal(t, 60.0, result.Students[1].Attendance.Rate)
	assert.Nil(t, result.Students[0].Grades)
}

func TestReportServiceCompareWellbeingAscendingStress(t *testing.T) {
	svc := newReportServiceForTest(newReportFixture())

	result, _, err := svc.Compare(context.Background(), "C1", models.MetricWellbeing, models.WeekRange{})
	require.NoError(t, err)
	require.Len(t, result.Students, 2)
	assert.Equal(t, "S2", result.Students[0].StudentID)
	assert.Equal(t, 2.0, result.Students[0].Wellbeing.AverageStress)
}

func TestReportServiceCompareDefaultsAndErrors(t *testing.T) {
	svc := newReportServiceForTest(newReportFixture())
	ctx := context.Background()

	result, _, err := svc.Compare(ctx, "C2", "", models.WeekRange{})
	require.NoError(t, err)
	assert.Equal(t, models.MetricAll, result.Metric)
	require.Len(t, result.Students, 1)
	assert.NotNil(t, result.Students[0].Attendance)
	assert.NotNil(t, result.Students[0].Grades)
	assert.NotNil(t, result.Students[0].Wellbeing)

	_, _, err = svc.Compare(ctx, "C1", "popularity", models.WeekRange{})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, _, err = svc.Compare(ctx, "C9", models.MetricAll, models.WeekRange{})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, _, err = svc.Compare(ctx, "", models.MetricAll, models.WeekRange{})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestReportServiceStudentAnalytics(t *testing.T) {
	svc := newReportServiceForTest(newReportFixture())

	report, _, err := svc.StudentAnalytics(context.Background(), "S2", "", models.WeekRange{})
	require.NoError(t, err)
	require.NotNil(t, report.CourseName)
	assert.Equal(t, "Computer Science", *report.CourseName)
	require.NotNil(t, report.Analytics)

	detail := report.Analytics
	assert.Equal(t, 14, detail.Attendance.TotalClasses)
	assert.Equal(t, 100.0, detail.Attendance.Rate)
	assert.Equal(t, 2, detail.Academic.TotalSubmissions)
	assert.Equal(t, 1, detail.Academic.GradedSubmissions)
	assert.Equal(t, 50.0, detail.Academic.GradingCompletionRate)
	assert.Equal(t, 80.0, detail.Academic.AverageGrade)
	assert.Equal(t, 1, detail.SubmissionTiming.Early)
	assert.Equal(t, 100.0, detail.SubmissionTiming.PunctualityRate)

	require.Len(t, detail.ModuleBreakdown, 2)
	assert.Equal(t, "Algorithms", detail.ModuleBreakdown[0].ModuleName)
	assert.Equal(t, "Databases", detail.ModuleBreakdown[1].ModuleName)
}

func TestReportServiceStudentAnalyticsUnknownModuleName(t *testing.T) {
	store := newReportFixture()
	delete(store.modules, "M002")
	svc := newReportServiceForTest(store)

	report, _, err := svc.StudentAnalytics(context.Background(), "S4", "", models.WeekRange{})
	require.NoError(t, err)
	require.Len(t, report.Analytics.ModuleBreakdown, 1)
	assert.Equal(t, "Unknown", report.Analytics.ModuleBreakdown[0].ModuleName)
	require.NotNil(t, report.CourseName)
	assert.Equal(t, "Mathematics", *report.CourseName)
}

func TestReportServiceStudentAnalyticsNoRegistrations(t *testing.T) {
	svc := newReportServiceForTest(newReportFixture())

	report, _, err := svc.StudentAnalytics(context.Background(), "S3", "", models.WeekRange{})
	require.NoError(t, err)
	assert.Nil(t, report.Analytics)
	assert.Equal(t, "No module registrations found for this student", report.Message)

	_, _, err = svc.StudentAnalytics(context.Background(), "nobody", "", models.WeekRange{})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestReportServiceModuleAcademic(t *testing.T) {
	svc := newReportServiceForTest(newReportFixture())

	report, _, err := svc.ModuleAcademic(context.Background(), "M001")
	require.NoError(t, err)
	assert.Equal(t, 2, report.TotalStudents)
	assert.Equal(t, 1, report.TotalAssignments)
	assert.Equal(t, 57.5, report.ClassAverageGrade)
	assert.Equal(t, 100.0, report.SubmissionRate)
	assert.Equal(t, 80.0, report.AttendanceRate)

	_, _, err = svc.ModuleAcademic(context.Background(), "M404")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestReportServiceEarlyWarningUsesLatestSurvey(t *testing.T) {
	store := newReportFixture()
	addSurvey(store, 1, 2, 2, 4, 3)
	svc := newReportServiceForTest(store)

	report, _, err := svc.EarlyWarning(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, report.HighStress.Count)
	require.Equal(t, 1, report.LowSleep.Count)
	assert.Equal(t, "S1", report.LowSleep.Students[0].StudentID)
	assert.Equal(t, 2, report.LowSleep.Students[0].WeekNumber)
}

func TestLatestSurveyPrefersTimestamped(t *testing.T) {
	at := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	surveys := []models.Survey{
		{ID: 1, SubmittedAt: &at},
		{ID: 2},
	}
	latest, ok := latestSurvey(surveys)
	require.True(t, ok)
	assert.Equal(t, int64(1), latest.ID)

	_, ok = latestSurvey(nil)
	assert.False(t, ok)
}

func TestReportServiceAttendanceSummary(t *testing.T) {
	svc := newReportServiceForTest(newReportFixture())
	from := weekDate(1)
	to := weekDate(2)

	report, _, err := svc.AttendanceSummary(context.Background(), &from, &to)
	require.NoError(t, err)
	assert.Equal(t, 8, report.Summary.TotalRecords)
	assert.Equal(t, 8, report.Summary.PresentCount)
	assert.Equal(t, 100.0, report.Summary.OverallAttendanceRate)
	assert.Len(t, report.WeeklyTrends, 2)

	_, _, err = svc.AttendanceSummary(context.Background(), &to, &from)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestReportServiceGradingSummary(t *testing.T) {
	svc := newReportServiceForTest(newReportFixture())

	summary, _, err := svc.GradingSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, summary.TotalSubmissions)
	assert.Equal(t, 3, summary.GradedSubmissions)
	assert.Equal(t, 1, summary.UngradedSubmissions)
	assert.Equal(t, 75.0, summary.GradingCompletionRate)
	assert.Equal(t, 35.0, summary.MinimumGrade)
	assert.Equal(t, 90.0, summary.MaximumGrade)
	require.Len(t, summary.Distribution, 6)
	assert.Equal(t, "90-100", summary.Distribution[0].Range)
	assert.Equal(t, 1, summary.Distribution[0].Count)
}

type cacheRepoStub struct {
	entries map[string][]byte
	getErr  error
}

func newCacheRepoStub() *cacheRepoStub {
	return &cacheRepoStub{entries: map[string][]byte{}}
}

func (c *cacheRepoStub) Get(ctx context.Context, key string, dest interface{}) error {
	if c.getErr != nil {
		return c.getErr
	}
	raw, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *cacheRepoStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	return nil
}

func (c *cacheRepoStub) DeleteByPattern(ctx context.Context, pattern string) (int, error) {
	removed := 0
	for key := range c.entries {
		if ok, _ := path.Match(pattern, key); ok {
			delete(c.entries, key)
			removed++
		}
	}
	return removed, nil
}

func TestReportServiceCachesWhenEnabled(t *testing.T) {
	store := newReportFixture()
	repo := newCacheRepoStub()
	cache := NewCacheService(repo, nil, time.Minute, nil, true)
	svc := NewReportService(store.reportStore(), analytics.DefaultRiskPolicy(), cache, nil, nil)
	ctx := context.Background()

	_, cached, err := svc.AtRisk(ctx)
	require.NoError(t, err)
	assert.False(t, cached)

	store.students = nil
	report, cached, err := svc.AtRisk(ctx)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, 2, report.TotalCount)

	require.NoError(t, cache.Invalidate(ctx, AnalyticsCachePattern))
	report, cached, err = svc.AtRisk(ctx)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Zero(t, report.TotalCount)
}

func TestReportServiceCacheFailureFallsBackToStore(t *testing.T) {
	repo := newCacheRepoStub()
	repo.getErr = errors.New("redis unavailable")
	cache := NewCacheService(repo, nil, time.Minute, nil, true)
	svc := NewReportService(newReportFixture().reportStore(), analytics.DefaultRiskPolicy(), cache, nil, nil)

	report, cached, err := svc.AtRisk(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 2, report.TotalCount)
}
