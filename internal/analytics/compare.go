package analytics

import (
	"sort"

	"github.com/noah-isme/uni-wellbeing-api/internal/models"
)

// RankComparison orders rows for the chosen metric: attendance and grades
// descending, wellbeing ascending by stress. "all" ranks by attendance.
// Rows missing the ranked section sort as zero. The sort is stable.
func RankComparison(rows []models.ComparisonRow, metric models.ComparisonMetric) {
	var less func(a, b models.ComparisonRow) bool
	switch metric {
	case models.MetricGrades:
		less = func(a, b models.ComparisonRow) bool { return gradeKey(a) > gradeKey(b) }
	case models.MetricWellbeing:
		less = func(a, b models.ComparisonRow) bool { return stressKey(a) < stressKey(b) }
	default:
		less = func(a, b models.ComparisonRow) bool { return attendanceKey(a) > attendanceKey(b) }
	}
	sort.SliceStable(rows, func(i, j int) bool { return less(rows[i], rows[j]) })
}

// ComparisonRowFor computes the metric sections requested for one student. Values are rounded.
func ComparisonRowFor(student models.Student, metric models.ComparisonMetric, attendance []models.Attendance, submissions []models.Submission, surveys []models.Survey) models.ComparisonRow {
	row := models.ComparisonRow{
		StudentID:   student.ID,
		StudentName: student.FullName(),
		Email:       student.Email,
	}
	if metric == models.MetricAttendance || metric == models.MetricAll {
		stats := AttendanceRate(attendance)
		stats.Rate = Round2(stats.Rate)
		row.Attendance = &stats
	}
	if metric == models.MetricGrades || metric == models.MetricAll {
		stats := AverageGrade(submissions)
		stats.AverageGrade = Round2(stats.AverageGrade)
		row.Grades = &stats
	}
	if metric == models.MetricWellbeing || metric == models.MetricAll {
		stats := Wellbeing(surveys)
		stats.AverageStress = Round2(stats.AverageStress)
		stats.AverageSleep = Round2(stats.AverageSleep)
		stats.AverageSocial = Round2(stats.AverageSocial)
		row.Wellbeing = &stats
	}
	return row
}

func attendanceKey(row models.ComparisonRow) float64 {
	if row.Attendance == nil {
		return 0
	}
	return row.Attendance.Rate
}

func gradeKey(row models.ComparisonRow) float64 {
	if row.Grades == nil {
		return 0
	}
	return row.Grades.AverageGrade
}

func stressKey(row models.ComparisonRow) float64 {
	if row.Wellbeing == nil {
		return 0
	}
	return row.Wellbeing.AverageStress
}
