package models

import "time"

// RiskFactor tags a triggered at-risk condition.
type RiskFactor string

// Supported risk factors.
const (
	RiskLowAttendance       RiskFactor = "low_attendance"
	RiskHighStress          RiskFactor = "high_stress"
	RiskLowSleep            RiskFactor = "low_sleep"
	RiskLowSocialConnection RiskFactor = "low_social_connection"
	RiskFailingGrades       RiskFactor = "failing_grades"
)

// AttendanceStats summarises a set of attendance rows.
type AttendanceStats struct {
	Rate            float64 `json:"attendance_rate"`
	TotalClasses    int     `json:"total_classes"`
	ClassesAttended int     `json:"classes_attended"`
}

// GradeStats summarises graded submissions. Ungraded submissions only count toward TotalSubmissions.
type GradeStats struct {
	AverageGrade      float64 `json:"average_grade"`
	MinimumGrade      float64 `json:"minimum_grade"`
	MaximumGrade      float64 `json:"maximum_grade"`
	TotalSubmissions  int     `json:"total_submissions"`
	GradedSubmissions int     `json:"graded_submissions"`
}

// WellbeingStats holds survey means. Zero values mean no contributing survey.
type WellbeingStats struct {
	AverageStress float64 `json:"average_stress_level"`
	AverageSleep  float64 `json:"average_sleep_hours"`
	AverageSocial float64 `json:"average_social_connection"`
	TotalSurveys  int     `json:"total_surveys"`
}

// SubmissionTimingStatus classifies a submission relative to its due date.
type SubmissionTimingStatus string

// Timing statuses.
const (
	TimingEarly  SubmissionTimingStatus = "early"
	TimingOnTime SubmissionTimingStatus = "on_time"
	TimingLate   SubmissionTimingStatus = "late"
)

// SubmissionTiming is the calendar-day offset of one submission.
type SubmissionTiming struct {
	AssignmentID    string                 `json:"assignment_id"`
	AssignmentTitle string                 `json:"assignment_title"`
	DaysDifference  int                    `json:"days_difference"`
	Status          SubmissionTimingStatus `json:"status"`
}

// TimingSummary aggregates submission timings.
type TimingSummary struct {
	AverageDaysEarly float64            `json:"average_days_early"`
	AverageDaysLate  float64            `json:"average_days_late"`
	OnTime           int                `json:"on_time_submissions"`
	Early            int                `json:"early_submissions"`
	Late             int                `json:"late_submissions"`
	PunctualityRate  float64            `json:"punctuality_rate"`
	Submissions      []SubmissionTiming `json:"submissions"`
}

// AtRiskStudent is a single at-risk report entry.
type AtRiskStudent struct {
	StudentID   string       `json:"student_id"`
	Name        string       `json:"name"`
	Email       string       `json:"email"`
	RiskFactors []RiskFactor `json:"risk_factors"`
	RiskScore   float64      `json:"risk_score"`
}

// AtRiskReport lists at-risk students ranked by score.
type AtRiskReport struct {
	Students   []AtRiskStudent `json:"at_risk_students"`
	TotalCount int             `json:"total_count"`
}

// WeeklyAttendanceStat is the attendance of one week bucket.
type WeeklyAttendanceStat struct {
	Week            int     `json:"week"`
	AttendanceRate  float64 `json:"attendance_rate"`
	ClassesAttended int     `json:"classes_attended"`
	TotalClasses    int     `json:"total_classes"`
}

// WeeklyWellbeingStat is the survey means of one week bucket. Nil means no value for the week.
type WeeklyWellbeingStat struct {
	Week       int      `json:"week"`
	AvgStress  *float64 `json:"avg_stress"`
	AvgSleep   *float64 `json:"avg_sleep"`
	AvgSocial  *float64 `json:"avg_social"`
	SampleSize int      `json:"sample_size"`
}

// MetricChange compares one survey metric between the latest and previous week.
type MetricChange struct {
	CurrentWeekAverage  float64  `json:"current_week_average"`
	PreviousWeekAverage *float64 `json:"previous_week_average"`
	Change              *float64 `json:"change"`
	ChangeDescription   *string  `json:"change_description"`
}

// WeekOverWeek compares the latest surveyed week with the one before it.
type WeekOverWeek struct {
	CurrentWeek      int          `json:"current_week"`
	PreviousWeek     *int         `json:"previous_week"`
	StressLevel      MetricChange `json:"stress_level"`
	SleepHours       MetricChange `json:"sleep_hours"`
	SocialConnection MetricChange `json:"social_connection"`
}

// CohortFilter scopes trend computations to a student or a module. Empty means everyone.
type CohortFilter struct {
	StudentID string `json:"student_id,omitempty"`
	ModuleID  string `json:"module_id,omitempty"`
}

// TrendReport holds per-week series and the week-over-week delta for a cohort.
type TrendReport struct {
	Cohort       CohortFilter           `json:"cohort"`
	Weeks        WeekRange              `json:"filters_applied"`
	Attendance   []WeeklyAttendanceStat `json:"attendance_trends"`
	Wellbeing    []WeeklyWellbeingStat  `json:"wellbeing_trends"`
	WeekOverWeek *WeekOverWeek          `json:"week_over_week"`
}

// ComparisonMetric selects the metric family of a cohort comparison.
type ComparisonMetric string

// Comparison metrics.
const (
	MetricAttendance ComparisonMetric = "attendance"
	MetricGrades     ComparisonMetric = "grades"
	MetricWellbeing  ComparisonMetric = "wellbeing"
	MetricAll        ComparisonMetric = "all"
)

// Valid reports whether the metric is supported.
func (m ComparisonMetric) Valid() bool {
	switch m {
	case MetricAttendance, MetricGrades, MetricWellbeing, MetricAll:
		return true
	default:
		return false
	}
}

// ComparisonRow is one student line of a comparison table.
type ComparisonRow struct {
	StudentID   string           `json:"student_id"`
	StudentName string           `json:"student_name"`
	Email       string           `json:"email"`
	Attendance  *AttendanceStats `json:"attendance,omitempty"`
	Grades      *GradeStats      `json:"grades,omitempty"`
	Wellbeing   *WellbeingStats  `json:"wellbeing,omitempty"`
}

// CourseComparison is the ranked comparison of a course cohort.
type CourseComparison struct {
	CourseID      string           `json:"course_id"`
	CourseName    string           `json:"course_name"`
	Metric        ComparisonMetric `json:"comparison_metric"`
	Weeks         WeekRange        `json:"filters_applied"`
	TotalStudents int              `json:"total_students"`
	Students      []ComparisonRow  `json:"students"`
}

// AttendanceTrend combines overall attendance with its weekly breakdown.
type AttendanceTrend struct {
	AttendanceStats
	WeeklyTrends []WeeklyAttendanceStat `json:"weekly_trends"`
}

// AcademicPerformance extends grade stats with completion.
type AcademicPerformance struct {
	GradeStats
	GradingCompletionRate float64 `json:"grading_completion_rate"`
}

// WellbeingTrend combines survey means with the weekly breakdown.
type WellbeingTrend struct {
	WellbeingStats
	WeeklyTrends []WeeklyWellbeingStat `json:"weekly_trends"`
}

// ModuleBreakdown summarises one registration of a student.
type ModuleBreakdown struct {
	ModuleID           string             `json:"module_id"`
	ModuleName         string             `json:"module_name"`
	RegistrationStatus RegistrationStatus `json:"registration_status"`
	AttendanceStats
	AverageGrade      float64 `json:"average_grade"`
	TotalSubmissions  int     `json:"total_submissions"`
	GradedSubmissions int     `json:"graded_submissions"`
}

// StudentAnalyticsDetail holds the computed sections of a student analytics report.
type StudentAnalyticsDetail struct {
	Attendance       AttendanceTrend     `json:"attendance"`
	Academic         AcademicPerformance `json:"academic_performance"`
	SubmissionTiming TimingSummary       `json:"submission_timing"`
	Wellbeing        WellbeingTrend      `json:"wellbeing"`
	ModuleBreakdown  []ModuleBreakdown   `json:"module_breakdown"`
}

// StudentAnalytics is the per-student analytics report.
type StudentAnalytics struct {
	StudentID   string                  `json:"student_id"`
	StudentName string                  `json:"student_name"`
	CourseID    *string                 `json:"course_id"`
	CourseName  *string                 `json:"course_name"`
	ModuleID    string                  `json:"module_id,omitempty"`
	Weeks       WeekRange               `json:"filters_applied"`
	Message     string                  `json:"message,omitempty"`
	Analytics   *StudentAnalyticsDetail `json:"analytics"`
}

// ModuleAcademicReport aggregates grades, submissions and attendance of a module.
type ModuleAcademicReport struct {
	ModuleID          string  `json:"module_id"`
	ClassAverageGrade float64 `json:"class_average_grade"`
	SubmissionRate    float64 `json:"submission_rate"`
	AttendanceRate    float64 `json:"attendance_rate"`
	TotalStudents     int     `json:"total_students"`
	TotalAssignments  int     `json:"total_assignments"`
}

// EarlyWarningStudent describes a student flagged from their latest survey.
type EarlyWarningStudent struct {
	StudentID    string     `json:"student_id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	EnrolledYear *int       `json:"enrolled_year"`
	StressLevel  *int       `json:"stress_level"`
	SleepHours   *float64   `json:"sleep_hours"`
	WeekNumber   int        `json:"week_number"`
	SubmittedAt  *time.Time `json:"submitted_at"`
}

// EarlyWarningGroup is a counted list of flagged students.
type EarlyWarningGroup struct {
	Count    int                   `json:"count"`
	Students []EarlyWarningStudent `json:"students"`
}

// EarlyWarningReport groups students by latest-survey warning.
type EarlyWarningReport struct {
	HighStress EarlyWarningGroup `json:"high_stress_students"`
	LowSleep   EarlyWarningGroup `json:"low_sleep_students"`
}

// AttendanceReportSummary totals attendance over a date range.
type AttendanceReportSummary struct {
	TotalRecords          int     `json:"total_records"`
	PresentCount          int     `json:"present_count"`
	AbsentCount           int     `json:"absent_count"`
	OverallAttendanceRate float64 `json:"overall_attendance_rate"`
}

// AttendanceReport is the class-date ranged attendance report.
type AttendanceReport struct {
	StartDate    *time.Time              `json:"start_date"`
	EndDate      *time.Time              `json:"end_date"`
	Summary      AttendanceReportSummary `json:"summary"`
	WeeklyTrends []WeeklyAttendanceStat  `json:"weekly_trends"`
}

// GradeBucket counts graded submissions within a band.
type GradeBucket struct {
	Range string `json:"range"`
	Count int    `json:"count"`
}

// GradingSummary summarises grading progress and distribution across all submissions.
type GradingSummary struct {
	TotalSubmissions      int           `json:"total_submissions"`
	GradedSubmissions     int           `json:"graded_submissions"`
	UngradedSubmissions   int           `json:"ungraded_submissions"`
	GradingCompletionRate float64       `json:"grading_completion_rate"`
	AverageGrade          float64       `json:"average_grade"`
	MinimumGrade          float64       `json:"minimum_grade"`
	MaximumGrade          float64       `json:"maximum_grade"`
	Distribution          []GradeBucket `json:"grade_distribution"`
}

// AnalyticsSystemMetrics represents system level analytics captured from instrumentation.
type AnalyticsSystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	IngestRowsApplied        uint64    `json:"ingest_rows_applied"`
	IngestRowsSkipped        uint64    `json:"ingest_rows_skipped"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
