package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-wellbeing-api/internal/models"
)

func rowIDs(rows []models.ComparisonRow) []string {
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.StudentID)
	}
	return ids
}

func TestRankComparisonByMetric(t *testing.T) {
	rows := []models.ComparisonRow{
		{StudentID: "A", Attendance: &models.AttendanceStats{Rate: 50}, Grades: &models.GradeStats{AverageGrade: 90}, Wellbeing: &models.WellbeingStats{AverageStress: 4}},
		{StudentID: "B", Attendance: &models.AttendanceStats{Rate: 90}, Grades: &models.GradeStats{AverageGrade: 60}, Wellbeing: &models.WellbeingStats{AverageStress: 2}},
		{StudentID: "C", Attendance: &models.AttendanceStats{Rate: 70}, Grades: &models.GradeStats{AverageGrade: 75}, Wellbeing: &models.WellbeingStats{AverageStress: 3}},
	}

	RankComparison(rows, models.MetricAttendance)
	assert.Equal(t, []string{"B", "C", "A"}, rowIDs(rows))

	RankComparison(rows, models.MetricGrades)
	assert.Equal(t, []string{"A", "C", "B"}, rowIDs(rows))

	RankComparison(rows, models.MetricWellbeing)
	assert.Equal(t, []string{"B", "C", "A"}, rowIDs(rows))

	RankComparison(rows, models.MetricAll)
	assert.Equal(t, []string{"B", "C", "A"}, rowIDs(rows))
}

func TestComparisonRowForSelectsSections(t *testing.T) {
	student := models.Student{ID: "S1", FirstName: "Ada", LastName: "Lovelace", Email: "ada@uni.test"}
	row := ComparisonRowFor(student, models.MetricGrades, attendanceRows(1, 2), []models.Submission{{Grade: floatPtr(66.666)}}, nil)
	assert.Equal(t, "Ada Lovelace", row.StudentName)
	assert.Nil(t, row.Attendance)
	assert.Nil(t, row.Wellbeing)
	require.NotNil(t, row.Grades)
	assert.Equal(t, 66.67, row.Grades.AverageGrade)

	all := ComparisonRowFor(student, models.MetricAll, attendanceRows(1, 2), nil, stressSurveys(1, 3))
	require.NotNil(t, all.Attendance)
	assert.Equal(t, 33.33, all.Attendance.Rate)
	require.NotNil(t, all.Wellbeing)
	assert.Equal(t, 3.0, all.Wellbeing.AverageStress)
	require.NotNil(t, all.Grades)
}
