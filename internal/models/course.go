package models

// Course represents a degree programme.
type Course struct {
	ID   string `db:"course_id" json:"course_id"`
	Name string `db:"course_name" json:"course_name"`
}

// Module is a taught unit that optionally belongs to a course.
type Module struct {
	ID            string  `db:"module_id" json:"module_id"`
	Name          string  `db:"module_name" json:"module_name"`
	CourseID      *string `db:"course_id" json:"course_id,omitempty"`
	DurationWeeks *int    `db:"duration_weeks" json:"duration_weeks,omitempty"`
}
