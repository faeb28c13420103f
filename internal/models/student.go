package models

import "strings"

// Student represents a university student stored in the students table.
type Student struct {
	ID              string  `db:"student_id" json:"student_id"`
	FirstName       string  `db:"first_name" json:"first_name"`
	LastName        string  `db:"last_name" json:"last_name"`
	Email           string  `db:"email" json:"email"`
	EnrolledYear    *int    `db:"enrolled_year" json:"enrolled_year,omitempty"`
	CurrentCourseID *string `db:"current_course_id" json:"current_course_id,omitempty"`
}

// FullName joins first and last name.
func (s Student) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// StudentFilter captures filtering criteria for listing students.
type StudentFilter struct {
	CourseID string
}
