package service

import (
	"context"
	"time"

	"github.com/noah-isme/uni-wellbeing-api/internal/analytics"
	"github.com/noah-isme/uni-wellbeing-api/internal/models"
	appErrors "github.com/noah-isme/uni-wellbeing-api/pkg/errors"
)

// Early warning thresholds applied to a student's latest survey.
const (
	earlyWarningStress = 4
	earlyWarningSleep  = 5.0
)

// ModuleAcademic reports class average grade, submission rate and attendance for a module.
func (s *ReportService) ModuleAcademic(ctx context.Context, moduleID string) (*models.ModuleAcademicReport, bool, error) {
	if moduleID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "module id is required")
	}
	return withCache(ctx, s, makeAnalyticsCacheKey("module", moduleID), func() (*models.ModuleAcademicReport, error) {
		regs, err := s.store.Registrations.List(ctx, models.RegistrationFilter{ModuleID: moduleID})
		if err != nil {
			return nil, storageError(err, "failed to load registrations")
		}
		if len(regs) == 0 {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no students registered for this module")
		}
		totalAssignments, err := s.store.Assignments.CountByModule(ctx, moduleID)
		if err != nil {
			return nil, storageError(err, "failed to count assignments")
		}
		records, err := s.loadRecords(ctx, "report_module", regs, false, models.WeekRange{})
		if err != nil {
			return nil, err
		}

		report := &models.ModuleAcademicReport{
			ModuleID:          moduleID,
			ClassAverageGrade: analytics.Round2(analytics.AverageGrade(records.submissions).AverageGrade),
			AttendanceRate:    analytics.Round2(analytics.AttendanceRate(records.attendance).Rate),
			TotalStudents:     len(regs),
			TotalAssignments:  totalAssignments,
		}
		if possible := len(regs) * totalAssignments; possible > 0 {
			report.SubmissionRate = analytics.Round2(float64(len(records.submissions)) / float64(possible) * 100)
		}
		return report, nil
	})
}

// EarlyWarning flags students whose most recently submitted survey shows high stress or low sleep.
func (s *ReportService) EarlyWarning(ctx context.Context) (*models.EarlyWarningReport, bool, error) {
	return withCache(ctx, s, makeAnalyticsCacheKey("early-warning"), func() (*models.EarlyWarningReport, error) {
		students, err := s.store.Students.List(ctx, models.StudentFilter{})
		if err != nil {
			return nil, storageError(err, "failed to load students")
		}
		regs, err := s.store.Registrations.List(ctx, models.RegistrationFilter{})
		if err != nil {
			return nil, storageError(err, "failed to load registrations")
		}
		start := time.Now()
		surveys, err := s.store.Surveys.List(ctx, models.SurveyFilter{})
		if err != nil {
			return nil, storageError(err, "failed to load surveys")
		}
		s.metrics.ObserveDBQuery("report_early_warning", time.Since(start))
		grouped := cohortRecords{registrations: regs, surveys: surveys}.byStudent()

		report := &models.EarlyWarningReport{
			HighStress: models.EarlyWarningGroup{Students: []models.EarlyWarningStudent{}},
			LowSleep:   models.EarlyWarningGroup{Students: []models.EarlyWarningStudent{}},
		}
		for _, student := range students {
			rec, ok := grouped[student.ID]
			if !ok {
				continue
			}
			latest, ok := latestSurvey(rec.surveys)
			if !ok {
				continue
			}
			entry := models.EarlyWarningStudent{
				StudentID:    student.ID,
				Name:         student.FullName(),
				Email:        student.Email,
				EnrolledYear: student.EnrolledYear,
				StressLevel:  latest.StressLevel,
				SleepHours:   latest.SleepHours,
				WeekNumber:   latest.WeekNumber,
				SubmittedAt:  latest.SubmittedAt,
			}
			if latest.StressLevel != nil && *latest.StressLevel >= earlyWarningStress {
				report.HighStress.Students = append(report.HighStress.Students, entry)
			}
			if latest.SleepHours != nil && *latest.SleepHours < earlyWarningSleep {
				report.LowSleep.Students = append(report.LowSleep.Students, entry)
			}
		}
		report.HighStress.Count = len(report.HighStress.Students)
		report.LowSleep.Count = len(report.LowSleep.Students)
		return report, nil
	})
}

// latestSurvey picks the survey with the greatest submission time. Surveys without a
// timestamp only win when none has one; ties go to the later entry.
func latestSurvey(surveys []models.Survey) (models.Survey, bool) {
	if len(surveys) == 0 {
		return models.Survey{}, false
	}
	best := surveys[0]
	for _, candidate := range surveys[1:] {
		switch {
		case candidate.SubmittedAt == nil:
			if best.SubmittedAt == nil {
				best = candidate
			}
		case best.SubmittedAt == nil || !candidate.SubmittedAt.Before(*best.SubmittedAt):
			best = candidate
		}
	}
	return best, true
}

// AttendanceSummary totals attendance whose class date falls in [from, to]. Nil bounds are open.
func (s *ReportService) AttendanceSummary(ctx context.Context, from, to *time.Time) (*models.AttendanceReport, bool, error) {
	if from != nil && to != nil && from.After(*to) {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "start_date must not be after end_date")
	}
	key := makeAnalyticsCacheKey("attendance", formatTime(from), formatTime(to))
	return withCache(ctx, s, key, func() (*models.AttendanceReport, error) {
		start := time.Now()
		rows, err := s.store.Attendance.List(ctx, models.AttendanceFilter{DateFrom: from, DateTo: to})
		if err != nil {
			return nil, storageError(err, "failed to load attendance")
		}
		s.metrics.ObserveDBQuery("report_attendance", time.Since(start))

		stats := analytics.AttendanceRate(rows)
		return &models.AttendanceReport{
			StartDate: from,
			EndDate:   to,
			Summary: models.AttendanceReportSummary{
				TotalRecords:          stats.TotalClasses,
				PresentCount:          stats.ClassesAttended,
				AbsentCount:           stats.TotalClasses - stats.ClassesAttended,
				OverallAttendanceRate: analytics.Round2(stats.Rate),
			},
			WeeklyTrends: analytics.AttendanceByWeek(rows),
		}, nil
	})
}

// GradingSummary reports grading progress and the grade distribution across every submission.
func (s *ReportService) GradingSummary(ctx context.Context) (*models.GradingSummary, bool, error) {
	return withCache(ctx, s, makeAnalyticsCacheKey("grading-summary"), func() (*models.GradingSummary, error) {
		start := time.Now()
		submissions, err := s.store.Assignments.ListSubmissions(ctx, models.SubmissionFilter{})
		if err != nil {
			return nil, storageError(err, "failed to load submissions")
		}
		s.metrics.ObserveDBQuery("report_grading_summary", time.Since(start))

		grades := roundGrades(analytics.AverageGrade(submissions))
		summary := &models.GradingSummary{
			TotalSubmissions:    grades.TotalSubmissions,
			GradedSubmissions:   grades.GradedSubmissions,
			UngradedSubmissions: grades.TotalSubmissions - grades.GradedSubmissions,
			AverageGrade:        grades.AverageGrade,
			MinimumGrade:        grades.MinimumGrade,
			MaximumGrade:        grades.MaximumGrade,
			Distribution:        analytics.GradeDistribution(submissions),
		}
		if grades.TotalSubmissions > 0 {
			summary.GradingCompletionRate = analytics.Round2(float64(grades.GradedSubmissions) / float64(grades.TotalSubmissions) * 100)
		}
		return summary, nil
	})
}
