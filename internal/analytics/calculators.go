// Package analytics holds the pure metric calculators, risk scoring, weekly
// trend bucketing and cohort ranking used by the report services. Nothing in
// this package touches storage; callers fetch records and pass them in.
package analytics

import (
	"math"
	"time"

	"github.com/noah-isme/uni-wellbeing-api/internal/models"
)

// Round2 rounds to two decimals, the precision of every published figure.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// AttendanceRate returns the present percentage of records. Empty input yields a zero rate.
func AttendanceRate(records []models.Attendance) models.AttendanceStats {
	stats := models.AttendanceStats{TotalClasses: len(records)}
	for _, record := range records {
		if record.IsPresent {
			stats.ClassesAttended++
		}
	}
	if stats.TotalClasses > 0 {
		stats.Rate = float64(stats.ClassesAttended) / float64(stats.TotalClasses) * 100
	}
	return stats
}

// AverageGrade averages graded submissions only; ungraded ones still count toward TotalSubmissions.
func AverageGrade(submissions []models.Submission) models.GradeStats {
	stats := models.GradeStats{TotalSubmissions: len(submissions)}
	var sum float64
	for _, sub := range submissions {
		if sub.Grade == nil {
			continue
		}
		grade := *sub.Grade
		if stats.GradedSubmissions == 0 || grade < stats.MinimumGrade {
			stats.MinimumGrade = grade
		}
		if stats.GradedSubmissions == 0 || grade > stats.MaximumGrade {
			stats.MaximumGrade = grade
		}
		sum += grade
		stats.GradedSubmissions++
	}
	if stats.GradedSubmissions > 0 {
		stats.AverageGrade = sum / float64(stats.GradedSubmissions)
	}
	return stats
}

// MeanSurveyMetric averages the non-null values of field and reports how many contributed.
func MeanSurveyMetric(surveys []models.Survey, field models.SurveyField) (float64, int) {
	var (
		sum   float64
		count int
	)
	for _, survey := range surveys {
		if v, ok := survey.Value(field); ok {
			sum += v
			count++
		}
	}
	if count == 0 {
		return 0, 0
	}
	return sum / float64(count), count
}

// AverageSurveyMetric is MeanSurveyMetric without the count: 0.0 when nothing contributed.
func AverageSurveyMetric(surveys []models.Survey, field models.SurveyField) float64 {
	avg, _ := MeanSurveyMetric(surveys, field)
	return avg
}

// Wellbeing computes all survey means at once.
func Wellbeing(surveys []models.Survey) models.WellbeingStats {
	return models.WellbeingStats{
		AverageStress: AverageSurveyMetric(surveys, models.SurveyFieldStress),
		AverageSleep:  AverageSurveyMetric(surveys, models.SurveyFieldSleep),
		AverageSocial: AverageSurveyMetric(surveys, models.SurveyFieldSocial),
		TotalSurveys:  len(surveys),
	}
}

// SubmissionTiming classifies a submission by whole calendar days against the due date.
// The boolean is false when either timestamp is missing; such submissions are left out of timing stats.
func SubmissionTiming(sub models.Submission, assignment models.Assignment) (models.SubmissionTiming, bool) {
	if sub.SubmittedAt == nil || assignment.DueDate.IsZero() {
		return models.SubmissionTiming{}, false
	}
	days := calendarDays(*sub.SubmittedAt, assignment.DueDate)
	status := models.TimingOnTime
	switch {
	case days < 0:
		status = models.TimingEarly
	case days > 0:
		status = models.TimingLate
	}
	return models.SubmissionTiming{
		AssignmentID:    assignment.ID,
		AssignmentTitle: assignment.Title,
		DaysDifference:  days,
		Status:          status,
	}, true
}

// SummarizeTiming aggregates classified submissions.
func SummarizeTiming(timings []models.SubmissionTiming) models.TimingSummary {
	summary := models.TimingSummary{Submissions: timings}
	if summary.Submissions == nil {
		summary.Submissions = []models.SubmissionTiming{}
	}
	var daysEarly, daysLate int
	for _, timing := range timings {
		switch timing.Status {
		case models.TimingEarly:
			summary.Early++
			daysEarly += -timing.DaysDifference
		case models.TimingLate:
			summary.Late++
			daysLate += timing.DaysDifference
		default:
			summary.OnTime++
		}
	}
	if summary.Early > 0 {
		summary.AverageDaysEarly = Round2(float64(daysEarly) / float64(summary.Early))
	}
	if summary.Late > 0 {
		summary.AverageDaysLate = Round2(float64(daysLate) / float64(summary.Late))
	}
	if len(timings) > 0 {
		summary.PunctualityRate = Round2(float64(summary.Early+summary.OnTime) / float64(len(timings)) * 100)
	}
	return summary
}

func calendarDays(submitted, due time.Time) int {
	sy, sm, sd := submitted.Date()
	dy, dm, dd := due.Date()
	from := time.Date(dy, dm, dd, 0, 0, 0, 0, time.UTC)
	to := time.Date(sy, sm, sd, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}

// gradeBands are the distribution buckets, highest first. A grade falls in the first band whose floor it reaches.
var gradeBands = []struct {
	label string
	floor float64
}{
	{"90-100", 90},
	{"80-89", 80},
	{"70-79", 70},
	{"60-69", 60},
	{"50-59", 50},
	{"0-49", 0},
}

// GradeDistribution counts graded submissions per band. Every band is present, even when empty.
func GradeDistribution(submissions []models.Submission) []models.GradeBucket {
	buckets := make([]models.GradeBucket, len(gradeBands))
	for i, band := range gradeBands {
		buckets[i].Range = band.label
	}
	for _, sub := range submissions {
		if sub.Grade == nil {
			continue
		}
		for i, band := range gradeBands {
			if *sub.Grade >= band.floor || i == len(gradeBands)-1 {
				buckets[i].Count++
				break
			}
		}
	}
	return buckets
}
