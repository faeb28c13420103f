package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/uni-wellbeing-api/internal/analytics"
	"github.com/noah-isme/uni-wellbeing-api/internal/models"
)

const (
	unknownModuleName      = "Unknown"
	noRegistrationsMessage = "No module registrations found for this student"
)

// StudentAnalytics builds the per-student report: attendance and wellbeing trends, grade
// statistics, submission timing and a per-module breakdown.
func (s *ReportService) StudentAnalytics(ctx context.Context, studentID, moduleID string, weeks models.WeekRange) (*models.StudentAnalytics, bool, error) {
	if err := validateWeeks(weeks); err != nil {
		return nil, false, err
	}
	key := makeAnalyticsCacheKey("student", studentID, moduleID, formatWeeks(weeks))
	return withCache(ctx, s, key, func() (*models.StudentAnalytics, error) {
		student, err := s.store.Students.FindByID(ctx, studentID)
		if err != nil {
			return nil, lookupError(err, "student not found", "failed to load student")
		}
		report := &models.StudentAnalytics{
			StudentID:   student.ID,
			StudentName: student.FullName(),
			CourseID:    student.CurrentCourseID,
			ModuleID:    moduleID,
			Weeks:       weeks,
		}
		if student.CurrentCourseID != nil {
			course, err := s.store.Courses.FindCourse(ctx, *student.CurrentCourseID)
			switch {
			case err == nil:
				report.CourseName = &course.Name
			case !errors.Is(err, sql.ErrNoRows):
				return nil, storageError(err, "failed to load course")
			}
		}

		regs, err := s.store.Registrations.List(ctx, models.RegistrationFilter{StudentIDs: []string{student.ID}, ModuleID: moduleID})
		if err != nil {
			return nil, storageError(err, "failed to load registrations")
		}
		if len(regs) == 0 {
			report.Message = noRegistrationsMessage
			return report, nil
		}

		records, err := s.loadRecords(ctx, "report_student", regs, false, weeks)
		if err != nil {
			return nil, err
		}
		detail, err := s.studentDetail(ctx, records)
		if err != nil {
			return nil, err
		}
		report.Analytics = detail
		return report, nil
	})
}

func (s *ReportService) studentDetail(ctx context.Context, records cohortRecords) (*models.StudentAnalyticsDetail, error) {
	assignmentIDs := make([]string, 0, len(records.submissions))
	seen := make(map[string]struct{})
	for _, sub := range records.submissions {
		if _, ok := seen[sub.AssignmentID]; ok {
			continue
		}
		seen[sub.AssignmentID] = struct{}{}
		assignmentIDs = append(assignmentIDs, sub.AssignmentID)
	}
	assignments := make(map[string]models.Assignment)
	if len(assignmentIDs) > 0 {
		rows, err := s.store.Assignments.List(ctx, assignmentIDs, nil)
		if err != nil {
			return nil, storageError(err, "failed to load assignments")
		}
		for _, a := range rows {
			assignments[a.ID] = a
		}
	}

	moduleIDs := make([]string, 0, len(records.registrations))
	for _, reg := range records.registrations {
		moduleIDs = append(moduleIDs, reg.ModuleID)
	}
	modules, err := s.store.Courses.ListModules(ctx, moduleIDs)
	if err != nil {
		return nil, storageError(err, "failed to load modules")
	}
	moduleNames := make(map[string]string, len(modules))
	for _, m := range modules {
		moduleNames[m.ID] = m.Name
	}

	attendance := analytics.AttendanceRate(records.attendance)
	attendance.Rate = analytics.Round2(attendance.Rate)

	grades := roundGrades(analytics.AverageGrade(records.submissions))
	academic := models.AcademicPerformance{GradeStats: grades}
	if grades.TotalSubmissions > 0 {
		academic.GradingCompletionRate = analytics.Round2(float64(grades.GradedSubmissions) / float64(grades.TotalSubmissions) * 100)
	}

	timings := make([]models.SubmissionTiming, 0, len(records.submissions))
	for _, sub := range records.submissions {
		assignment, ok := assignments[sub.AssignmentID]
		if !ok {
			s.logger.Debug("submission without assignment", zap.String("assignment_id", sub.AssignmentID))
			continue
		}
		if timing, ok := analytics.SubmissionTiming(sub, assignment); ok {
			timings = append(timings, timing)
		}
	}

	wellbeing := analytics.Wellbeing(records.surveys)
	wellbeing.AverageStress = analytics.Round2(wellbeing.AverageStress)
	wellbeing.AverageSleep = analytics.Round2(wellbeing.AverageSleep)
	wellbeing.AverageSocial = analytics.Round2(wellbeing.AverageSocial)

	detail := &models.StudentAnalyticsDetail{
		Attendance: models.AttendanceTrend{
			AttendanceStats: attendance,
			WeeklyTrends:    analytics.AttendanceByWeek(records.attendance),
		},
		Academic:         academic,
		SubmissionTiming: analytics.SummarizeTiming(timings),
		Wellbeing: models.WellbeingTrend{
			WellbeingStats: wellbeing,
			WeeklyTrends:   analytics.WellbeingByWeek(records.surveys),
		},
		ModuleBreakdown: make([]models.ModuleBreakdown, 0, len(records.registrations)),
	}

	for _, reg := range records.registrations {
		var regAttendance []models.Attendance
		for _, row := range records.attendance {
			if row.RegistrationID == reg.ID {
				regAttendance = append(regAttendance, row)
			}
		}
		var regSubmissions []models.Submission
		for _, sub := range records.submissions {
			if sub.RegistrationID == reg.ID {
				regSubmissions = append(regSubmissions, sub)
			}
		}
		name, ok := moduleNames[reg.ModuleID]
		if !ok {
			name = unknownModuleName
		}
		regStats := analytics.AttendanceRate(regAttendance)
		regStats.Rate = analytics.Round2(regStats.Rate)
		regGrades := analytics.AverageGrade(regSubmissions)
		detail.ModuleBreakdown = append(detail.ModuleBreakdown, models.ModuleBreakdown{
			ModuleID:           reg.ModuleID,
			ModuleName:         name,
			RegistrationStatus: reg.Status,
			AttendanceStats:    regStats,
			AverageGrade:       analytics.Round2(regGrades.AverageGrade),
			TotalSubmissions:   regGrades.TotalSubmissions,
			GradedSubmissions:  regGrades.GradedSubmissions,
		})
	}
	return detail, nil
}

func roundGrades(stats models.GradeStats) models.GradeStats {
	stats.AverageGrade = analytics.Round2(stats.AverageGrade)
	stats.MinimumGrade = analytics.Round2(stats.MinimumGrade)
	stats.MaximumGrade = analytics.Round2(stats.MaximumGrade)
	return stats
}
