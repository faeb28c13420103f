package analytics

import (
	"sort"

	"github.com/noah-isme/uni-wellbeing-api/internal/models"
)

// Change descriptions published with week-over-week deltas.
const (
	ChangeIncreased = "Increased"
	ChangeDecreased = "Decreased"
	ChangeNone      = "No change"
)

// FilterAttendance keeps rows whose week falls inside weeks.
func FilterAttendance(records []models.Attendance, weeks models.WeekRange) []models.Attendance {
	if weeks.IsZero() {
		return records
	}
	out := make([]models.Attendance, 0, len(records))
	for _, record := range records {
		if weeks.Contains(record.WeekNumber) {
			out = append(out, record)
		}
	}
	return out
}

// FilterSurveys keeps surveys whose week falls inside weeks.
func FilterSurveys(surveys []models.Survey, weeks models.WeekRange) []models.Survey {
	if weeks.IsZero() {
		return surveys
	}
	out := make([]models.Survey, 0, len(surveys))
	for _, survey := range surveys {
		if weeks.Contains(survey.WeekNumber) {
			out = append(out, survey)
		}
	}
	return out
}

// AttendanceByWeek buckets attendance by week number, ascending. Weeks without rows are omitted.
func AttendanceByWeek(records []models.Attendance) []models.WeeklyAttendanceStat {
	buckets := make(map[int][]models.Attendance)
	for _, record := range records {
		buckets[record.WeekNumber] = append(buckets[record.WeekNumber], record)
	}
	weeks := sortedWeeks(buckets)
	out := make([]models.WeeklyAttendanceStat, 0, len(weeks))
	for _, week := range weeks {
		stats := AttendanceRate(buckets[week])
		out = append(out, models.WeeklyAttendanceStat{
			Week:            week,
			AttendanceRate:  Round2(stats.Rate),
			ClassesAttended: stats.ClassesAttended,
			TotalClasses:    stats.TotalClasses,
		})
	}
	return out
}

// WellbeingByWeek buckets surveys by week number, ascending. Weeks without surveys are omitted.
func WellbeingByWeek(surveys []models.Survey) []models.WeeklyWellbeingStat {
	buckets := make(map[int][]models.Survey)
	for _, survey := range surveys {
		buckets[survey.WeekNumber] = append(buckets[survey.WeekNumber], survey)
	}
	weeks := sortedWeeks(buckets)
	out := make([]models.WeeklyWellbeingStat, 0, len(weeks))
	for _, week := range weeks {
		bucket := buckets[week]
		out = append(out, models.WeeklyWellbeingStat{
			Week:       week,
			AvgStress:  meanPtr(bucket, models.SurveyFieldStress),
			AvgSleep:   meanPtr(bucket, models.SurveyFieldSleep),
			AvgSocial:  meanPtr(bucket, models.SurveyFieldSocial),
			SampleSize: len(bucket),
		})
	}
	return out
}

// WeekOverWeekChange compares the latest surveyed week with the week before it.
// It returns nil when there are no surveys at all.
func WeekOverWeekChange(surveys []models.Survey) *models.WeekOverWeek {
	if len(surveys) == 0 {
		return nil
	}
	latest := surveys[0].WeekNumber
	for _, survey := range surveys[1:] {
		if survey.WeekNumber > latest {
			latest = survey.WeekNumber
		}
	}

	var current, previous []models.Survey
	for _, survey := range surveys {
		switch survey.WeekNumber {
		case latest:
			current = append(current, survey)
		case latest - 1:
			previous = append(previous, survey)
		}
	}

	result := &models.WeekOverWeek{CurrentWeek: latest}
	hasPrevious := latest-1 > 0
	if hasPrevious {
		prev := latest - 1
		result.PreviousWeek = &prev
	} else {
		previous = nil
	}
	result.StressLevel = metricChange(current, previous, models.SurveyFieldStress)
	result.SleepHours = metricChange(current, previous, models.SurveyFieldSleep)
	result.SocialConnection = metricChange(current, previous, models.SurveyFieldSocial)
	return result
}

// ChangeDescription names the direction of a rounded delta.
func ChangeDescription(change float64) string {
	switch {
	case change > 0:
		return ChangeIncreased
	case change < 0:
		return ChangeDecreased
	default:
		return ChangeNone
	}
}

func metricChange(current, previous []models.Survey, field models.SurveyField) models.MetricChange {
	cur := AverageSurveyMetric(current, field)
	change := models.MetricChange{CurrentWeekAverage: Round2(cur)}
	prev, n := MeanSurveyMetric(previous, field)
	if n == 0 {
		return change
	}
	prevRounded := Round2(prev)
	delta := Round2(cur - prev)
	description := ChangeDescription(delta)
	change.PreviousWeekAverage = &prevRounded
	change.Change = &delta
	change.ChangeDescription = &description
	return change
}

func meanPtr(surveys []models.Survey, field models.SurveyField) *float64 {
	avg, n := MeanSurveyMetric(surveys, field)
	if n == 0 {
		return nil
	}
	rounded := Round2(avg)
	return &rounded
}

func sortedWeeks[T any](buckets map[int][]T) []int {
	weeks := make([]int, 0, len(buckets))
	for week := range buckets {
		weeks = append(weeks, week)
	}
	sort.Ints(weeks)
	return weeks
}
