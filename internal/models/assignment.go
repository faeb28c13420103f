package models

import "time"

// Assignment is an assessed piece of work owned by a module.
type Assignment struct {
	ID               string    `db:"assignment_id" json:"assignment_id"`
	ModuleID         string    `db:"module_id" json:"module_id"`
	Title            string    `db:"title" json:"title"`
	DueDate          time.Time `db:"due_date" json:"due_date"`
	MaxScore         float64   `db:"max_score" json:"max_score"`
	WeightagePercent *float64  `db:"weightage_percent" json:"weightage_percent,omitempty"`
}

// Submission is a (registration, assignment) hand-in. Unique per pair.
type Submission struct {
	ID             int64      `db:"submission_id" json:"submission_id"`
	RegistrationID int64      `db:"registration_id" json:"registration_id"`
	AssignmentID   string     `db:"assignment_id" json:"assignment_id"`
	SubmittedAt    *time.Time `db:"submitted_at" json:"submitted_at,omitempty"`
	Grade          *float64   `db:"grade_achieved" json:"grade_achieved,omitempty"`
	Feedback       *string    `db:"grader_feedback" json:"grader_feedback,omitempty"`
}

// SubmissionFilter scopes submission queries.
type SubmissionFilter struct {
	RegistrationIDs []int64
}
