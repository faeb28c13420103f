package models

import "time"

// RegistrationStatus represents the lifecycle of a module registration.
type RegistrationStatus string

// Possible registration statuses.
const (
	RegistrationStatusActive    RegistrationStatus = "Active"
	RegistrationStatusCompleted RegistrationStatus = "Completed"
	RegistrationStatusWithdrawn RegistrationStatus = "Withdrawn"
)

// Registration links one student to one module. Every weekly record keys off its ID.
type Registration struct {
	ID        int64              `db:"registration_id" json:"registration_id"`
	StudentID string             `db:"student_id" json:"student_id"`
	ModuleID  string             `db:"module_id" json:"module_id"`
	Status    RegistrationStatus `db:"status" json:"status"`
	StartDate *time.Time         `db:"start_date" json:"start_date,omitempty"`
}

// RegistrationFilter scopes registration lookups.
type RegistrationFilter struct {
	IDs        []int64
	StudentIDs []string
	ModuleID   string
}

// RegistrationIDs extracts identifiers preserving order.
func RegistrationIDs(registrations []Registration) []int64 {
	ids := make([]int64, 0, len(registrations))
	for _, reg := range registrations {
		ids = append(ids, reg.ID)
	}
	return ids
}
