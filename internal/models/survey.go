package models

import "time"

// SurveyField names a numeric wellbeing column.
type SurveyField string

// Wellbeing survey fields.
const (
	SurveyFieldStress SurveyField = "stress_level"
	SurveyFieldSleep  SurveyField = "sleep_hours"
	SurveyFieldSocial SurveyField = "social_connection_score"
)

// Survey is a weekly self-reported wellbeing response.
type Survey struct {
	ID                    int64      `db:"survey_id" json:"survey_id"`
	RegistrationID        int64      `db:"registration_id" json:"registration_id"`
	WeekNumber            int        `db:"week_number" json:"week_number"`
	SubmittedAt           *time.Time `db:"submitted_at" json:"submitted_at,omitempty"`
	StressLevel           *int       `db:"stress_level" json:"stress_level,omitempty"`
	SleepHours            *float64   `db:"sleep_hours" json:"sleep_hours,omitempty"`
	SocialConnectionScore *int       `db:"social_connection_score" json:"social_connection_score,omitempty"`
	Comments              *string    `db:"comments" json:"comments,omitempty"`
}

// Value returns the named field, false when it is null.
func (s Survey) Value(field SurveyField) (float64, bool) {
	switch field {
	case SurveyFieldStress:
		if s.StressLevel != nil {
			return float64(*s.StressLevel), true
		}
	case SurveyFieldSleep:
		if s.SleepHours != nil {
			return *s.SleepHours, true
		}
	case SurveyFieldSocial:
		if s.SocialConnectionScore != nil {
			return float64(*s.SocialConnectionScore), true
		}
	}
	return 0, false
}

// SurveyFilter scopes survey queries.
type SurveyFilter struct {
	RegistrationIDs []int64
	Weeks           WeekRange
}
