package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-wellbeing-api/internal/models"
)

func TestAssessCombinedFactors(t *testing.T) {
	in := RiskInput{
		Registrations: 1,
		Attendance:    attendanceRows(13, 7),
		Surveys: []models.Survey{
			{StressLevel: intPtr(5), SleepHours: floatPtr(8), SocialConnectionScore: intPtr(3)},
		},
		Submissions: []models.Submission{{Grade: floatPtr(35)}},
	}

	assessment, ok := DefaultRiskPolicy().Assess(in)
	require.True(t, ok)
	assert.Equal(t, []models.RiskFactor{models.RiskLowAttendance, models.RiskHighStress, models.RiskFailingGrades}, assessment.Factors)
	assert.Equal(t, 9.0, assessment.Score)
	assert.True(t, assessment.Triggered())
}

func TestAssessThresholdsAreStrict(t *testing.T) {
	in := RiskInput{
		Registrations: 1,
		Attendance:    attendanceRows(7, 3),
		Surveys: []models.Survey{
			{StressLevel: intPtr(4), SleepHours: floatPtr(6), SocialConnectionScore: intPtr(2)},
		},
		Submissions: []models.Submission{{Grade: floatPtr(40)}},
	}
	assessment, ok := DefaultRiskPolicy().Assess(in)
	require.True(t, ok)
	assert.Empty(t, assessment.Factors)
	assert.Zero(t, assessment.Score)
	assert.False(t, assessment.Triggered())
}

func TestAssessWithoutRegistrations(t *testing.T) {
	_, ok := DefaultRiskPolicy().Assess(RiskInput{})
	assert.False(t, ok)
}

func TestAssessMissingDataNeverTriggers(t *testing.T) {
	assessment, ok := DefaultRiskPolicy().Assess(RiskInput{
		Registrations: 2,
		Submissions:   []models.Submission{{}},
	})
	require.True(t, ok)
	assert.Empty(t, assessment.Factors)
}

func TestAssessZeroMeanGradeStillFails(t *testing.T) {
	assessment, ok := DefaultRiskPolicy().Assess(RiskInput{
		Registrations: 1,
		Submissions:   []models.Submission{{Grade: floatPtr(0)}},
	})
	require.True(t, ok)
	assert.Equal(t, []models.RiskFactor{models.RiskFailingGrades}, assessment.Factors)
	assert.Equal(t, 3.5, assessment.Score)
}

func TestAssessAllFactorsMaximumScore(t *testing.T) {
	assessment, ok := DefaultRiskPolicy().Assess(RiskInput{
		Registrations: 1,
		Attendance:    attendanceRows(0, 3),
		Surveys:       []models.Survey{{StressLevel: intPtr(5), SleepHours: floatPtr(4), SocialConnectionScore: intPtr(1)}},
		Submissions:   []models.Submission{{Grade: floatPtr(10)}},
	})
	require.True(t, ok)
	assert.Len(t, assessment.Factors, 5)
	assert.Equal(t, 13.0, assessment.Score)
}

func TestAssessCustomPolicy(t *testing.T) {
	policy := DefaultRiskPolicy()
	policy.LowSleep = RiskRule{Threshold: 9, Weight: 1}
	assessment, ok := policy.Assess(RiskInput{
		Registrations: 1,
		Surveys:       []models.Survey{{SleepHours: floatPtr(8)}},
	})
	require.True(t, ok)
	assert.Equal(t, []models.RiskFactor{models.RiskLowSleep}, assessment.Factors)
	assert.Equal(t, 1.0, assessment.Score)
}

func TestRankAtRiskStable(t *testing.T) {
	entries := []models.AtRiskStudent{
		{StudentID: "S1", RiskScore: 2.5},
		{StudentID: "S2", RiskScore: 9},
		{StudentID: "S3", RiskScore: 2.5},
		{StudentID: "S4", RiskScore: 5.5},
	}
	RankAtRisk(entries)
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.StudentID)
	}
	assert.Equal(t, []string{"S2", "S4", "S1", "S3"}, ids)
}
