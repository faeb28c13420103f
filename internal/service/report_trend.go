package service

import (
	"context"

	"github.com/noah-isme/uni-wellbeing-api/internal/analytics"
	"github.com/noah-isme/uni-wellbeing-api/internal/models"
)

// WeeklyTrend buckets the cohort's attendance and surveys per week and compares the latest
// surveyed week with the one before it. An empty cohort filter covers every registration.
func (s *ReportService) WeeklyTrend(ctx context.Context, cohort models.CohortFilter, weeks models.WeekRange) (*models.TrendReport, bool, error) {
	if err := validateWeeks(weeks); err != nil {
		return nil, false, err
	}
	key := makeAnalyticsCacheKey("weekly", cohort.StudentID, cohort.ModuleID, formatWeeks(weeks))
	return withCache(ctx, s, key, func() (*models.TrendReport, error) {
		filter := models.RegistrationFilter{ModuleID: cohort.ModuleID}
		if cohort.StudentID != "" {
			if _, err := s.store.Students.FindByID(ctx, cohort.StudentID); err != nil {
				return nil, lookupError(err, "student not found", "failed to load student")
			}
			filter.StudentIDs = []string{cohort.StudentID}
		}
		if cohort.ModuleID != "" {
			if _, err := s.store.Courses.FindModule(ctx, cohort.ModuleID); err != nil {
				return nil, lookupError(err, "module not found", "failed to load module")
			}
		}

		report := &models.TrendReport{
			Cohort:     cohort,
			Weeks:      weeks,
			Attendance: []models.WeeklyAttendanceStat{},
			Wellbeing:  []models.WeeklyWellbeingStat{},
		}
		everyone := cohort.StudentID == "" && cohort.ModuleID == ""
		var regs []models.Registration
		if !everyone {
			var err error
			if regs, err = s.store.Registrations.List(ctx, filter); err != nil {
				return nil, storageError(err, "failed to load registrations")
			}
			if len(regs) == 0 {
				return report, nil
			}
		}

		records, err := s.loadRecords(ctx, "report_weekly", regs, everyone, weeks)
		if err != nil {
			return nil, err
		}
		report.Attendance = analytics.AttendanceByWeek(records.attendance)
		report.Wellbeing = analytics.WellbeingByWeek(records.surveys)
		report.WeekOverWeek = analytics.WeekOverWeekChange(records.surveys)
		return report, nil
	})
}
