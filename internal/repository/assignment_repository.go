package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/uni-wellbeing-api/internal/models"
)

const assignmentColumns = "assignment_id, module_id, title, due_date, max_score, weightage_percent"

// AssignmentRepository reads assignments and their submissions.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs an AssignmentRepository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// List returns assignments by ID or by owning module. Both filters empty returns every assignment.
func (r *AssignmentRepository) List(ctx context.Context, ids []string, moduleIDs []string) ([]models.Assignment, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if len(ids) > 0 {
		conditions = append(conditions, fmt.Sprintf("assignment_id = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(ids))
	}
	if len(moduleIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("module_id = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(moduleIDs))
	}
	query := "SELECT " + assignmentColumns + " FROM assignments"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY due_date, assignment_id"

	var assignments []models.Assignment
	if err := r.db.SelectContext(ctx, &assignments, query, args...); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return assignments, nil
}

// CountByModule returns the number of assignments owned by a module.
func (r *AssignmentRepository) CountByModule(ctx context.Context, moduleID string) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM assignments WHERE module_id = $1", moduleID); err != nil {
		return 0, fmt.Errorf("count assignments: %w", err)
	}
	return total, nil
}

// ListSubmissions returns submissions for the filter. A nil RegistrationIDs slice means every registration.
func (r *AssignmentRepository) ListSubmissions(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, error) {
	if filter.RegistrationIDs != nil && len(filter.RegistrationIDs) == 0 {
		return []models.Submission{}, nil
	}
	query := "SELECT submission_id, registration_id, assignment_id, submitted_at, grade_achieved, grader_feedback FROM submissions"
	var args []interface{}
	if filter.RegistrationIDs != nil {
		query += " WHERE registration_id = ANY($1)"
		args = append(args, pq.Array(filter.RegistrationIDs))
	}
	query += " ORDER BY registration_id, assignment_id"

	var submissions []models.Submission
	if err := r.db.SelectContext(ctx, &submissions, query, args...); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return submissions, nil
}
