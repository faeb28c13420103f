package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/uni-wellbeing-api/internal/analytics"
	"github.com/noah-isme/uni-wellbeing-api/internal/models"
	appErrors "github.com/noah-isme/uni-wellbeing-api/pkg/errors"
)

// StudentReader fetches students.
type StudentReader interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// CourseReader fetches courses and modules.
type CourseReader interface {
	FindCourse(ctx context.Context, id string) (*models.Course, error)
	FindModule(ctx context.Context, id string) (*models.Module, error)
	ListModules(ctx context.Context, ids []string) ([]models.Module, error)
}

// RegistrationReader fetches module registrations.
type RegistrationReader interface {
	List(ctx context.Context, filter models.RegistrationFilter) ([]models.Registration, error)
}

// AttendanceReader fetches weekly attendance.
type AttendanceReader interface {
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, error)
}

// SurveyReader fetches weekly surveys.
type SurveyReader interface {
	List(ctx context.Context, filter models.SurveyFilter) ([]models.Survey, error)
}

// AssignmentReader fetches assignments and submissions.
type AssignmentReader interface {
	List(ctx context.Context, ids []string, moduleIDs []string) ([]models.Assignment, error)
	CountByModule(ctx context.Context, moduleID string) (int, error)
	ListSubmissions(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, error)
}

// ReportStore groups the readers the report service depends on.
type ReportStore struct {
	Students      StudentReader
	Courses       CourseReader
	Registrations RegistrationReader
	Attendance    AttendanceReader
	Surveys       SurveyReader
	Assignments   AssignmentReader
}

// ReportService assembles at-risk, trend, comparison and per-student reports from raw records.
type ReportService struct {
	store   ReportStore
	policy  analytics.RiskPolicy
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
}

// NewReportService constructs a report service. A nil cache disables caching.
func NewReportService(store ReportStore, policy analytics.RiskPolicy, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{store: store, policy: policy, cache: cache, metrics: metrics, logger: logger}
}

// SystemMetrics returns system instrumentation snapshot.
func (s *ReportService) SystemMetrics() models.AnalyticsSystemMetrics {
	if s.metrics == nil {
		return models.AnalyticsSystemMetrics{}
	}
	return s.metrics.Snapshot()
}

// cohortRecords is every weekly record hanging off a set of registrations.
type cohortRecords struct {
	registrations []models.Registration
	attendance    []models.Attendance
	surveys       []models.Survey
	submissions   []models.Submission
}

// byStudent splits the records per student using the registration join key.
func (c cohortRecords) byStudent() map[string]*studentRecords {
	owners := make(map[int64]string, len(c.registrations))
	out := make(map[string]*studentRecords)
	get := func(studentID string) *studentRecords {
		rec, ok := out[studentID]
		if !ok {
			rec = &studentRecords{}
			out[studentID] = rec
		}
		return rec
	}
	for _, reg := range c.registrations {
		owners[reg.ID] = reg.StudentID
		get(reg.StudentID).registrations = append(get(reg.StudentID).registrations, reg)
	}
	for _, row := range c.attendance {
		if owner, ok := owners[row.RegistrationID]; ok {
			get(owner).attendance = append(get(owner).attendance, row)
		}
	}
	for _, row := range c.surveys {
		if owner, ok := owners[row.RegistrationID]; ok {
			get(owner).surveys = append(get(owner).surveys, row)
		}
	}
	for _, row := range c.submissions {
		if owner, ok := owners[row.RegistrationID]; ok {
			get(owner).submissions = append(get(owner).submissions, row)
		}
	}
	return out
}

type studentRecords struct {
	registrations []models.Registration
	attendance    []models.Attendance
	surveys       []models.Survey
	submissions   []models.Submission
}

// loadRecords fetches attendance, surveys and submissions for regs. When everyone is true the
// queries run unscoped instead of passing every registration ID.
func (s *ReportService) loadRecords(ctx context.Context, label string, regs []models.Registration, everyone bool, weeks models.WeekRange) (cohortRecords, error) {
	records := cohortRecords{registrations: regs}
	var ids []int64
	if !everyone {
		ids = models.RegistrationIDs(regs)
	}

	start := time.Now()
	var err error
	if records.attendance, err = s.store.Attendance.List(ctx, models.AttendanceFilter{RegistrationIDs: ids, Weeks: weeks}); err != nil {
		return records, storageError(err, "failed to load attendance")
	}
	if records.surveys, err = s.store.Surveys.List(ctx, models.SurveyFilter{RegistrationIDs: ids, Weeks: weeks}); err != nil {
		return records, storageError(err, "failed to load surveys")
	}
	if records.submissions, err = s.store.Assignments.ListSubmissions(ctx, models.SubmissionFilter{RegistrationIDs: ids}); err != nil {
		return records, storageError(err, "failed to load submissions")
	}
	s.metrics.ObserveDBQuery(label, time.Since(start))
	return records, nil
}

// withCache serves key from the analytics cache when enabled, otherwise runs load and stores the result.
func withCache[T any](ctx context.Context, s *ReportService, key string, load func() (T, error)) (T, bool, error) {
	var out T
	start := time.Now()
	report := reportName(key)
	if s.cache.Enabled() {
		hit, err := s.cache.Get(ctx, key, &out)
		if err == nil && hit {
			s.metrics.ObserveReport(report, true, time.Since(start))
			return out, true, nil
		}
	}
	out, err := load()
	if err != nil {
		return out, false, err
	}
	s.metrics.ObserveReport(report, false, time.Since(start))
	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, key, out, 0); err != nil {
			s.logger.Warn("cache report", zap.String("key", key), zap.Error(err))
		}
	}
	return out, false, nil
}

func validateWeeks(weeks models.WeekRange) error {
	if weeks.Start != nil && *weeks.Start < 1 {
		return appErrors.Clone(appErrors.ErrValidation, "week_start must be at least 1")
	}
	if weeks.End != nil && *weeks.End < 1 {
		return appErrors.Clone(appErrors.ErrValidation, "week_end must be at least 1")
	}
	if weeks.Start != nil && weeks.End != nil && *weeks.Start > *weeks.End {
		return appErrors.Clone(appErrors.ErrValidation, "week_start must not exceed week_end")
	}
	return nil
}

func storageError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

// lookupError maps a single-entity fetch failure: absent rows become not found.
func lookupError(err error, notFound string, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return storageError(err, message)
}

func makeAnalyticsCacheKey(parts ...string) string {
	var builder strings.Builder
	builder.Grow(len(parts) * 16)
	builder.WriteString("analytics")
	for _, part := range parts {
		if part == "" {
			continue
		}
		builder.WriteByte(':')
		builder.WriteString(strings.ReplaceAll(part, ":", "|"))
	}
	return builder.String()
}

// reportName is the segment after the analytics prefix, e.g. "compare" for "analytics:compare:C1:all".
func reportName(key string) string {
	parts := strings.SplitN(key, ":", 3)
	if len(parts) < 2 {
		return key
	}
	return parts[1]
}

func formatWeeks(weeks models.WeekRange) string {
	bound := func(v *int) string {
		if v == nil {
			return "*"
		}
		return strconv.Itoa(*v)
	}
	return fmt.Sprintf("w%s-%s", bound(weeks.Start), bound(weeks.End))
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
