package service

import (
	"context"

	"github.com/noah-isme/uni-wellbeing-api/internal/analytics"
	"github.com/noah-isme/uni-wellbeing-api/internal/models"
	appErrors "github.com/noah-isme/uni-wellbeing-api/pkg/errors"
)

// Compare ranks the students currently assigned to a course by the selected metric.
// An empty metric means all. Students without registrations are left out.
func (s *ReportService) Compare(ctx context.Context, courseID string, metric models.ComparisonMetric, weeks models.WeekRange) (*models.CourseComparison, bool, error) {
	if courseID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "course id is required")
	}
	if metric == "" {
		metric = models.MetricAll
	}
	if !metric.Valid() {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "metric must be one of attendance, grades, wellbeing, all")
	}
	if err := validateWeeks(weeks); err != nil {
		return nil, false, err
	}

	key := makeAnalyticsCacheKey("compare", courseID, string(metric), formatWeeks(weeks))
	return withCache(ctx, s, key, func() (*models.CourseComparison, error) {
		course, err := s.store.Courses.FindCourse(ctx, courseID)
		if err != nil {
			return nil, lookupError(err, "course not found", "failed to load course")
		}
		result := &models.CourseComparison{
			CourseID:   course.ID,
			CourseName: course.Name,
			Metric:     metric,
			Weeks:      weeks,
			Students:   []models.ComparisonRow{},
		}

		students, err := s.store.Students.List(ctx, models.StudentFilter{CourseID: courseID})
		if err != nil {
			return nil, storageError(err, "failed to load students")
		}
		if len(students) == 0 {
			return result, nil
		}
		ids := make([]string, 0, len(students))
		for _, student := range students {
			ids = append(ids, student.ID)
		}
		regs, err := s.store.Registrations.List(ctx, models.RegistrationFilter{StudentIDs: ids})
		if err != nil {
			return nil, storageError(err, "failed to load registrations")
		}
		if len(regs) == 0 {
			return result, nil
		}
		records, err := s.loadRecords(ctx, "report_comparison", regs, false, weeks)
		if err != nil {
			return nil, err
		}
		grouped := records.byStudent()

		for _, student := range students {
			rec, ok := grouped[student.ID]
			if !ok || len(rec.registrations) == 0 {
				continue
			}
			result.Students = append(result.Students, analytics.ComparisonRowFor(student, metric, rec.attendance, rec.submissions, rec.surveys))
		}
		analytics.RankComparison(result.Students, metric)
		result.TotalStudents = len(result.Students)
		return result, nil
	})
}
