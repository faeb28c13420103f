package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/uni-wellbeing-api/internal/models"
)

// AttendanceRepository reads weekly attendance rows.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs an AttendanceRepository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// List returns attendance rows matching the filter ordered by week then registration.
// A nil RegistrationIDs slice means every registration; an empty non-nil one matches nothing.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, error) {
	if filter.RegistrationIDs != nil && len(filter.RegistrationIDs) == 0 {
		return []models.Attendance{}, nil
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
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("class_date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("class_date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}

	query := "SELECT attendance_id, registration_id, week_number, class_date, is_present, reason_absent FROM weekly_attendance"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY week_number, registration_id"

	var rows []models.Attendance
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return rows, nil
}
