package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/uni-wellbeing-api/internal/models"
)

// SurveyRepository reads weekly wellbeing surveys.
type SurveyRepository struct {
	db *sqlx.DB
}

// NewSurveyRepository constructs a SurveyRepository.
func NewSurveyRepository(db *sqlx.DB) *SurveyRepository {
	return &SurveyRepository{db: db}
}

// List returns surveys matching the filter ordered by week then submission time.
// A nil RegistrationIDs slice means every registration; an empty non-nil one matches nothing.
func (r *SurveyRepository) List(ctx context.Context, filter models.SurveyFilter) ([]models.Survey, error) {
	if filter.RegistrationIDs != nil && len(filter.RegistrationIDs) == 0 {
		return []models.Survey{}, nil
	}
	var (
		conditions []string
		args       []interface{}
	)
	if filter.RegistrationIDs != nil {
		conditions = append(conditions, fmt.Sprintf("registration_id = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(filter.RegistrationIDs))
	}
	if filter.Weeks.Start != nil {
		conditions = append(conditions, fmt.Sprintf("week_number >= $%d", len(args)+1))
		args = append(args, *filter.Weeks.Start)
	}
	if filter.Weeks.End != nil {
		conditions = append(conditions, fmt.Sprintf("week_number <= $%d", len(args)+1))
		args = append(args, *filter.Weeks.End)
	}

	query := `SELECT survey_id, registration_id, week_number, submitted_at, stress_level, sleep_hours, social_connection_score, comments FROM weekly_surveys`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY week_number, submitted_at NULLS FIRST, survey_id"

	var surveys []models.Survey
	if err := r.db.SelectContext(ctx, &surveys, query, args...); err != nil {
		return nil, fmt.Errorf("list surveys: %w", err)
	}
	return surveys, nil
}
