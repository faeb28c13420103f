package models

// IngestKind selects the record family of a batch.
type IngestKind string

// Supported batch kinds.
const (
	IngestAttendance IngestKind = "attendance"
	IngestGrades     IngestKind = "grades"
	IngestSurvey     IngestKind = "survey"
)

// Valid reports whether the kind is supported.
func (k IngestKind) Valid() bool {
	switch k {
	case IngestAttendance, IngestGrades, IngestSurvey:
		return true
	default:
		return false
	}
}

// RowStatus is the outcome tag of one batch row.
type RowStatus string

// Row outcomes.
const (
	RowApplied RowStatus = "applied"
	RowSkipped RowStatus = "skipped"
)

// SkipReason distinguishes unresolved references from bad data.
type SkipReason string

// Skip reasons.
const (
	SkipNotFound SkipReason = "not_found"
	SkipInvalid  SkipReason = "invalid"
)

// RowOutcome records what happened to a single row.
type RowOutcome struct {
	Row     int        `json:"row"`
	Status  RowStatus  `json:"status"`
	Reason  SkipReason `json:"reason,omitempty"`
	Message string     `json:"message,omitempty"`
}

// IngestReport is the structured outcome of a batch.
type IngestReport struct {
	BatchID          string     `json:"batch_id"`
	Kind             IngestKind `json:"kind"`
	Processed        int        `json:"processed"`
	CreatedOrUpdated int        `json:"created_or_updated"`
	Skipped          int        `json:"skipped"`
	NotFound         []string   `json:"not_found"`
	TotalNotFound    int        `json:"total_not_found"`
	InvalidRows      []string   `json:"invalid_rows"`
	TotalInvalid     int        `json:"total_invalid"`

	// Outcomes lists per-row results in row order, capped like the diagnostics.
	Outcomes []RowOutcome `json:"outcomes"`
}

// IngestBatch is the validated write set of a batch, applied atomically.
type IngestBatch struct {
	Attendance  []Attendance
	Submissions []Submission
	Surveys     []Survey
}

// Len returns the number of accepted rows.
func (b IngestBatch) Len() int {
	return len(b.Attendance) + len(b.Submissions) + len(b.Surveys)
}
