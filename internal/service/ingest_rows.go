package service

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/uni-wellbeing-api/internal/models"
)

// Required and optional CSV columns per batch kind.
var (
	attendanceColumns = []string{"registration_id", "week", "is_present"}
	gradeColumns      = []string{"registration_id", "assignment_id", "grade"}
	surveyColumns     = []string{"student_id", "module_id", "week", "stress", "sleep"}
)

// RequiredColumns returns the header names a batch of kind must carry.
func RequiredColumns(kind models.IngestKind) []string {
	switch kind {
	case models.IngestAttendance:
		return attendanceColumns
	case models.IngestGrades:
		return gradeColumns
	case models.IngestSurvey:
		return surveyColumns
	default:
		return nil
	}
}

type attendanceRow struct {
	registrationID int64
	week           int
	present        bool
	reason         *string
	classDate      *time.Time
}

type gradeRow struct {
	registrationID int64
	assignmentID   string
	grade          float64
	feedback       *string
}

type surveyRow struct {
	studentID string
	moduleID  string
	week      int
	stress    int
	sleep     float64
	social    *int
	comments  *string
}

func parseAttendanceRow(cells map[string]string) (attendanceRow, error) {
	var (
		row attendanceRow
		err error
	)
	if row.registrationID, err = parseInt64Cell(cells, "registration_id"); err != nil {
		return row, err
	}
	if row.week, err = parseIntCell(cells, "week"); err != nil {
		return row, err
	}
	raw := strings.ToLower(strings.TrimSpace(cells["is_present"]))
	switch raw {
	case "true", "1", "yes", "present":
		row.present = true
	case "false", "0", "no", "absent":
		row.present = false
	default:
		return row, fmt.Errorf("invalid is_present value %q", raw)
	}
	row.reason = optionalCell(cells, "reason_absent")
	if raw := optionalCell(cells, "class_date"); raw != nil {
		date, err := time.Parse("2006-01-02", *raw)
		if err != nil {
			return row, fmt.Errorf("invalid class_date %q, expected YYYY-MM-DD", *raw)
		}
		row.classDate = &date
	}
	return row, nil
}

func parseGradeRow(cells map[string]string) (gradeRow, error) {
	var (
		row gradeRow
		err error
	)
	if row.registrationID, err = parseInt64Cell(cells, "registration_id"); err != nil {
		return row, err
	}
	if row.assignmentID, err = requiredCell(cells, "assignment_id"); err != nil {
		return row, err
	}
	if row.grade, err = parseFloatCell(cells, "grade"); err != nil {
		return row, err
	}
	row.feedback = optionalCell(cells, "feedback")
	return row, nil
}

func parseSurveyRow(cells map[string]string) (surveyRow, error) {
	var (
		row surveyRow
		err error
	)
	if row.studentID, err = requiredCell(cells, "student_id"); err != nil {
		return row, err
	}
	if row.moduleID, err = requiredCell(cells, "module_id"); err != nil {
		return row, err
	}
	if row.week, err = parseIntCell(cells, "week"); err != nil {
		return row, err
	}
	if row.stress, err = parseIntCell(cells, "stress"); err != nil {
		return row, err
	}
	if row.sleep, err = parseFloatCell(cells, "sleep"); err != nil {
		return row, err
	}
	if raw := optionalCell(cells, "social"); raw != nil {
		social, err := strconv.Atoi(*raw)
		if err != nil {
			return row, fmt.Errorf("invalid social value %q", *raw)
		}
		row.social = &social
	}
	row.comments = optionalCell(cells, "comments")
	return row, nil
}

func requiredCell(cells map[string]string, column string) (string, error) {
	value := strings.TrimSpace(cells[column])
	if value == "" {
		return "", fmt.Errorf("missing value for %s", column)
	}
	return value, nil
}

func optionalCell(cells map[string]string, column string) *string {
	value := strings.TrimSpace(cells[column])
	if value == "" {
		return nil
	}
	return &value
}

func parseIntCell(cells map[string]string, column string) (int, error) {
	raw, err := requiredCell(cells, column)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q", column, raw)
	}
	return v, nil
}

func parseInt64Cell(cells map[string]string, column string) (int64, error) {
	raw, err := requiredCell(cells, column)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q", column, raw)
	}
	return v, nil
}

func parseFloatCell(cells map[string]string, column string) (float64, error) {
	raw, err := requiredCell(cells, column)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid %s value %q", column, raw)
	}
	return v, nil
}
