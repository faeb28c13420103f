package models

import "time"

// Attendance is a weekly attendance row. Unique per (registration, week).
type Attendance struct {
	ID             int64     `db:"attendance_id" json:"attendance_id"`
	RegistrationID int64     `db:"registration_id" json:"registration_id"`
	WeekNumber     int       `db:"week_number" json:"week_number"`
	ClassDate      time.Time `db:"class_date" json:"class_date"`
	IsPresent      bool      `db:"is_present" json:"is_present"`
	ReasonAbsent   *string   `db:"reason_absent" json:"reason_absent,omitempty"`
}

// AttendanceFilter scopes attendance queries.
type AttendanceFilter struct {
	RegistrationIDs []int64
	Weeks           WeekRange
	DateFrom        *time.Time
	DateTo          *time.Time
}
