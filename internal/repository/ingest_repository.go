package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-wellbeing-api/internal/models"
)

// IngestRepository applies validated batches in a single transaction.
type IngestRepository struct {
	db        *sqlx.DB
	isolation sql.IsolationLevel
}

// NewIngestRepository constructs an IngestRepository using the given isolation level.
func NewIngestRepository(db *sqlx.DB, isolation sql.IsolationLevel) *IngestRepository {
	return &IngestRepository{db: db, isolation: isolation}
}

const (
	upsertAttendanceQuery = `INSERT INTO weekly_attendance (registration_id, week_number, class_date, is_present, reason_absent)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (registration_id, week_number) DO UPDATE SET class_date = EXCLUDED.class_date, is_present = EXCLUDED.is_present, reason_absent = EXCLUDED.reason_absent`

	upsertSubmissionQuery = `INSERT INTO submissions (registration_id, assignment_id, submitted_at, grade_achieved, grader_feedback)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (registration_id, assignment_id) DO UPDATE SET grade_achieved = EXCLUDED.grade_achieved, grader_feedback = COALESCE(EXCLUDED.grader_feedback, submissions.grader_feedback)`

	updateLatestSurveyQuery = `UPDATE weekly_surveys SET stress_level = $3, sleep_hours = $4, social_connection_score = $5, comments = $6, submitted_at = $7
WHERE survey_id = (SELECT survey_id FROM weekly_surveys WHERE registration_id = $1 AND week_number = $2 ORDER BY submitted_at DESC NULLS LAST, survey_id DESC LIMIT 1)`

	insertSurveyQuery = `INSERT INTO weekly_surveys (registration_id, week_number, stress_level, sleep_hours, social_connection_score, comments, submitted_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
)

// Apply writes every accepted row of the batch. Any failure rolls the whole batch back.
func (r *IngestRepository) Apply(ctx context.Context, batch models.IngestBatch) error {
	if batch.Len() == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: r.isolation})
	if err != nil {
		return fmt.Errorf("begin ingest tx: %w", err)
	}

	if err := applyBatch(ctx, tx, batch); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}

	if err := tx.Commit(); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("commit ingest tx: %w", err)
	}
	return nil
}

func applyBatch(ctx context.Context, tx *sqlx.Tx, batch models.IngestBatch) error {
	for _, row := range batch.Attendance {
		if _, err := tx.ExecContext(ctx, upsertAttendanceQuery, row.RegistrationID, row.WeekNumber, row.ClassDate, row.IsPresent, row.ReasonAbsent); err != nil {
			return fmt.Errorf("upsert attendance %d/%d: %w", row.RegistrationID, row.WeekNumber, err)
		}
	}
	for _, row := range batch.Submissions {
		if _, err := tx.ExecContext(ctx, upsertSubmissionQuery, row.RegistrationID, row.AssignmentID, row.SubmittedAt, row.Grade, row.Feedback); err != nil {
			return fmt.Errorf("upsert submission %d/%s: %w", row.RegistrationID, row.AssignmentID, err)
		}
	}
	for _, row := range batch.Surveys {
		res, err := tx.ExecContext(ctx, updateLatestSurveyQuery, row.RegistrationID, row.WeekNumber, row.StressLevel, row.SleepHours, row.SocialConnectionScore, row.Comments, row.SubmittedAt)
		if err != nil {
			return fmt.Errorf("update survey %d/%d: %w", row.RegistrationID, row.WeekNumber, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update survey %d/%d: %w", row.RegistrationID, row.WeekNumber, err)
		}
		if affected > 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx, insertSurveyQuery, row.RegistrationID, row.WeekNumber, row.StressLevel, row.SleepHours, row.SocialConnectionScore, row.Comments, row.SubmittedAt); err != nil {
			return fmt.Errorf("insert survey %d/%d: %w", row.RegistrationID, row.WeekNumber, err)
		}
	}
	return nil
}
