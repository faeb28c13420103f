package analytics

import (
	"sort"

	"github.com/noah-isme/uni-wellbeing-api/internal/models"
)

// RiskRule is one threshold condition and the weight it adds when triggered.
type RiskRule struct {
	Threshold float64
	Weight    float64
}

// RiskPolicy holds the five independent at-risk conditions.
type RiskPolicy struct {
	LowAttendance RiskRule // attendance rate below threshold (percent)
	HighStress    RiskRule // mean stress above threshold
	LowSleep      RiskRule // mean sleep hours below threshold
	LowSocial     RiskRule // mean social connection below threshold
	FailingGrades RiskRule // mean grade below threshold
}

// DefaultRiskPolicy returns the standard thresholds and weights.
func DefaultRiskPolicy() RiskPolicy {
	return RiskPolicy{
		LowAttendance: RiskRule{Threshold: 70, Weight: 2.5},
		HighStress:    RiskRule{Threshold: 4, Weight: 3.0},
		LowSleep:      RiskRule{Threshold: 6, Weight: 2.0},
		LowSocial:     RiskRule{Threshold: 2, Weight: 2.0},
		FailingGrades: RiskRule{Threshold: 40, Weight: 3.5},
	}
}

// RiskInput carries every record hanging off one student's registrations.
type RiskInput struct {
	Registrations int
	Attendance    []models.Attendance
	Surveys       []models.Survey
	Submissions   []models.Submission
}

// RiskAssessment is the scored outcome for one student.
type RiskAssessment struct {
	Factors []models.RiskFactor
	Score   float64
}

// Triggered reports whether any condition fired.
func (a RiskAssessment) Triggered() bool {
	return len(a.Factors) > 0
}

// Assess evaluates the policy. It returns false for students without registrations,
// who are never scored. A condition is only evaluated when its metric has data.
func (p RiskPolicy) Assess(in RiskInput) (RiskAssessment, bool) {
	if in.Registrations == 0 {
		return RiskAssessment{}, false
	}
	assessment := RiskAssessment{Factors: []models.RiskFactor{}}
	add := func(factor models.RiskFactor, rule RiskRule) {
		assessment.Factors = append(assessment.Factors, factor)
		assessment.Score += rule.Weight
	}

	if attendance := AttendanceRate(in.Attendance); attendance.TotalClasses > 0 && attendance.Rate < p.LowAttendance.Threshold {
		add(models.RiskLowAttendance, p.LowAttendance)
	}
	if stress, n := MeanSurveyMetric(in.Surveys, models.SurveyFieldStress); n > 0 && stress > p.HighStress.Threshold {
		add(models.RiskHighStress, p.HighStress)
	}
	if sleep, n := MeanSurveyMetric(in.Surveys, models.SurveyFieldSleep); n > 0 && sleep < p.LowSleep.Threshold {
		add(models.RiskLowSleep, p.LowSleep)
	}
	if social, n := MeanSurveyMetric(in.Surveys, models.SurveyFieldSocial); n > 0 && social < p.LowSocial.Threshold {
		add(models.RiskLowSocialConnection, p.LowSocial)
	}
	if grades := AverageGrade(in.Submissions); grades.GradedSubmissions > 0 && grades.AverageGrade < p.FailingGrades.Threshold {
		add(models.RiskFailingGrades, p.FailingGrades)
	}

	assessment.Score = Round2(assessment.Score)
	return assessment, true
}

// RankAtRisk orders entries by score, highest first. Ties keep their input order.
func RankAtRisk(entries []models.AtRiskStudent) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].RiskScore > entries[j].RiskScore
	})
}
