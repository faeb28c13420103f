package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-wellbeing-api/internal/models"
	appErrors "github.com/noah-isme/uni-wellbeing-api/pkg/errors"
	"github.com/noah-isme/uni-wellbeing-api/pkg/export"
	"github.com/noah-isme/uni-wellbeing-api/pkg/jobs"
)

// IngestWriter applies a validated batch atomically.
type IngestWriter interface {
	Apply(ctx context.Context, batch models.IngestBatch) error
}

// JobEnqueuer accepts background jobs.
type JobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// IngestService validates CSV batches row by row and applies the accepted rows in one transaction.
type IngestService struct {
	registrations   RegistrationReader
	assignments     AssignmentReader
	writer          IngestWriter
	queue           JobEnqueuer
	metrics         *MetricsService
	logger          *zap.Logger
	diagnosticLimit int
	now             func() time.Time
}

// IngestServiceConfig bundles the ingest collaborators.
type IngestServiceConfig struct {
	Registrations   RegistrationReader
	Assignments     AssignmentReader
	Writer          IngestWriter
	Queue           JobEnqueuer
	Metrics         *MetricsService
	Logger          *zap.Logger
	DiagnosticLimit int
	Now             func() time.Time
}

// NewIngestService constructs an IngestService.
func NewIngestService(cfg IngestServiceConfig) *IngestService {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.DiagnosticLimit <= 0 {
		cfg.DiagnosticLimit = 10
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &IngestService{
		registrations:   cfg.Registrations,
		assignments:     cfg.Assignments,
		writer:          cfg.Writer,
		queue:           cfg.Queue,
		metrics:         cfg.Metrics,
		logger:          cfg.Logger,
		diagnosticLimit: cfg.DiagnosticLimit,
		now:             cfg.Now,
	}
}

// IngestCSV parses r as CSV and ingests it.
func (s *IngestService) IngestCSV(ctx context.Context, kind models.IngestKind, r io.Reader) (*models.IngestReport, error) {
	if !kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "kind must be one of attendance, grades, survey")
	}
	data, err := export.ReadCSV(r)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidCSV.Code, appErrors.ErrInvalidCSV.Status, "unable to read csv file")
	}
	return s.Ingest(ctx, kind, data)
}

// Ingest validates every row of data independently and applies the accepted ones atomically.
// A missing required column rejects the batch before any row is read. A failed commit is
// reported as a single storage error and nothing is written.
func (s *IngestService) Ingest(ctx context.Context, kind models.IngestKind, data export.Dataset) (*models.IngestReport, error) {
	if !kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "kind must be one of attendance, grades, survey")
	}
	if missing := data.MissingColumns(RequiredColumns(kind)...); len(missing) > 0 {
		s.metrics.RecordIngest(kind, 0, 0, "rejected")
		return nil, appErrors.Clone(appErrors.ErrInvalidCSV, fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", ")))
	}

	batchID := uuid.NewString()
	log := s.logger.With(zap.String("batch_id", batchID), zap.String("kind", string(kind)))
	log.Info("ingest started", zap.Int("rows", len(data.Rows)))

	acc := newIngestAccumulator(batchID, kind, s.diagnosticLimit)
	var (
		batch models.IngestBatch
		err   error
	)
	switch kind {
	case models.IngestAttendance:
		batch, err = s.validateAttendance(ctx, data, acc)
	case models.IngestGrades:
		batch, err = s.validateGrades(ctx, data, acc)
	case models.IngestSurvey:
		batch, err = s.validateSurveys(ctx, data, acc)
	}
	if err != nil {
		s.metrics.RecordIngest(kind, 0, 0, "failed")
		log.Error("ingest lookup failed", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to resolve batch references")
	}

	start := time.Now()
	if err := s.writer.Apply(ctx, batch); err != nil {
		s.metrics.RecordIngest(kind, 0, 0, "failed")
		log.Error("ingest commit failed, batch rolled back", zap.Error(err), zap.Int("accepted", batch.Len()))
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "batch could not be committed; no rows were applied")
	}
	s.metrics.ObserveDBQuery("ingest_apply_"+string(kind), time.Since(start))

	report := acc.report()
	s.metrics.RecordIngest(kind, report.CreatedOrUpdated, report.Skipped, "committed")
	log.Info("ingest finished",
		zap.Int("processed", report.Processed),
		zap.Int("created_or_updated", report.CreatedOrUpdated),
		zap.Int("skipped", report.Skipped),
	)
	if report.CreatedOrUpdated > 0 {
		s.enqueueInvalidation(batchID, log)
	}
	return report, nil
}

func (s *IngestService) enqueueInvalidation(batchID string, log *zap.Logger) {
	if s.queue == nil {
		return
	}
	job := jobs.Job{ID: batchID, Type: CacheInvalidationJob, Key: AnalyticsCachePattern, Payload: AnalyticsCachePattern}
	if err := s.queue.Enqueue(job); err != nil {
		log.Warn("enqueue cache invalidation", zap.Error(err))
	}
}

func (s *IngestService) today() time.Time {
	y, m, d := s.now().UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *IngestService) validateAttendance(ctx context.Context, data export.Dataset, acc *ingestAccumulator) (models.IngestBatch, error) {
	rows := data.Rows
	parsed := make(map[int]attendanceRow, len(rows))
	parseErrs := make(map[int]error)
	var ids []int64
	for i, cells := range rows {
		if err := data.RowErrors[i]; err != nil {
			parseErrs[i] = err
			continue
		}
		row, err := parseAttendanceRow(cells)
		if err != nil {
			parseErrs[i] = err
			continue
		}
		parsed[i] = row
		ids = append(ids, row.registrationID)
	}
	regs, err := s.loadRegistrations(ctx, ids)
	if err != nil {
		return models.IngestBatch{}, err
	}

	var batch models.IngestBatch
	for i := range rows {
		line := i + 2
		acc.processed()
		row, ok := parsed[i]
		if !ok {
			acc.invalid(line, parseErrs[i].Error())
			continue
		}
		if _, ok := regs[row.registrationID]; !ok {
			acc.notFound(line, fmt.Sprintf("registration %d not found", row.registrationID))
			continue
		}
		if row.week < 1 {
			acc.invalid(line, fmt.Sprintf("week must be at least 1, got %d", row.week))
			continue
		}
		classDate := s.today()
		if row.classDate != nil {
			classDate = *row.classDate
		}
		var reason *string
		if !row.present {
			reason = row.reason
		}
		batch.Attendance = append(batch.Attendance, models.Attendance{
			RegistrationID: row.registrationID,
			WeekNumber:     row.week,
			ClassDate:      classDate,
			IsPresent:      row.present,
			ReasonAbsent:   reason,
		})
		acc.applied(line)
	}
	return batch, nil
}

func (s *IngestService) validateGrades(ctx context.Context, data export.Dataset, acc *ingestAccumulator) (models.IngestBatch, error) {
	rows := data.Rows
	parsed := make(map[int]gradeRow, len(rows))
	parseErrs := make(map[int]error)
	var (
		regIDs        []int64
		assignmentIDs []string
	)
	for i, cells := range rows {
		if err := data.RowErrors[i]; err != nil {
			parseErrs[i] = err
			continue
		}
		row, err := parseGradeRow(cells)
		if err != nil {
			parseErrs[i] = err
			continue
		}
		parsed[i] = row
		regIDs = append(regIDs, row.registrationID)
		assignmentIDs = append(assignmentIDs, row.assignmentID)
	}
	regs, err := s.loadRegistrations(ctx, regIDs)
	if err != nil {
		return models.IngestBatch{}, err
	}
	assignments := make(map[string]models.Assignment)
	if len(assignmentIDs) > 0 {
		rows, err := s.assignments.List(ctx, uniqueStrings(assignmentIDs), nil)
		if err != nil {
			return models.IngestBatch{}, fmt.Errorf("load assignments: %w", err)
		}
		for _, a := range rows {
			assignments[a.ID] = a
		}
	}

	now := s.now().UTC()
	var batch models.IngestBatch
	for i := range rows {
		line := i + 2
		acc.processed()
		row, ok := parsed[i]
		if !ok {
			acc.invalid(line, parseErrs[i].Error())
			continue
		}
		reg, ok := regs[row.registrationID]
		if !ok {
			acc.notFound(line, fmt.Sprintf("registration %d not found", row.registrationID))
			continue
		}
		assignment, ok := assignments[row.assignmentID]
		if !ok {
			acc.notFound(line, fmt.Sprintf("assignment %s not found", row.assignmentID))
			continue
		}
		if row.grade < 0 {
			acc.invalid(line, "grade cannot be negative")
			continue
		}
		if row.grade > assignment.MaxScore {
			acc.invalid(line, fmt.Sprintf("grade %g exceeds max score %g", row.grade, assignment.MaxScore))
			continue
		}
		if reg.ModuleID != assignment.ModuleID {
			acc.invalid(line, fmt.Sprintf("registration %d is not enrolled in module %s", reg.ID, assignment.ModuleID))
			continue
		}
		grade := row.grade
		submittedAt := now
		batch.Submissions = append(batch.Submissions, models.Submission{
			RegistrationID: reg.ID,
			AssignmentID:   assignment.ID,
			SubmittedAt:    &submittedAt,
			Grade:          &grade,
			Feedback:       row.feedback,
		})
		acc.applied(line)
	}
	return batch, nil
}

func (s *IngestService) validateSurveys(ctx context.Context, data export.Dataset, acc *ingestAccumulator) (models.IngestBatch, error) {
	rows := data.Rows
	parsed := make(map[int]surveyRow, len(rows))
	parseErrs := make(map[int]error)
	var studentIDs []string
	for i, cells := range rows {
		if err := data.RowErrors[i]; err != nil {
			parseErrs[i] = err
			continue
		}
		row, err := parseSurveyRow(cells)
		if err != nil {
			parseErrs[i] = err
			continue
		}
		parsed[i] = row
		studentIDs = append(studentIDs, row.studentID)
	}
	type regKey struct{ student, module string }
	regs := make(map[regKey]models.Registration)
	if len(studentIDs) > 0 {
		rows, err := s.registrations.List(ctx, models.RegistrationFilter{StudentIDs: uniqueStrings(studentIDs)})
		if err != nil {
			return models.IngestBatch{}, fmt.Errorf("load registrations: %w", err)
		}
		for _, reg := range rows {
			regs[regKey{reg.StudentID, reg.ModuleID}] = reg
		}
	}

	now := s.now().UTC()
	var batch models.IngestBatch
	for i := range rows {
		line := i + 2
		acc.processed()
		row, ok := parsed[i]
		if !ok {
			acc.invalid(line, parseErrs[i].Error())
			continue
		}
		reg, ok := regs[regKey{row.studentID, row.moduleID}]
		if !ok {
			acc.notFound(line, fmt.Sprintf("no registration for student %s in module %s", row.studentID, row.moduleID))
			continue
		}
		switch {
		case row.week < 1:
			acc.invalid(line, fmt.Sprintf("week must be at least 1, got %d", row.week))
			continue
		case row.stress < 1 || row.stress > 5:
			acc.invalid(line, fmt.Sprintf("stress must be between 1 and 5, got %d", row.stress))
			continue
		case row.sleep < 0 || row.sleep > 24:
			acc.invalid(line, fmt.Sprintf("sleep must be between 0 and 24, got %g", row.sleep))
			continue
		case row.social != nil && (*row.social < 1 || *row.social > 5):
			acc.invalid(line, fmt.Sprintf("social must be between 1 and 5, got %d", *row.social))
			continue
		}
		stress, sleep := row.stress, row.sleep
		submittedAt := now
		batch.Surveys = append(batch.Surveys, models.Survey{
			RegistrationID:        reg.ID,
			WeekNumber:            row.week,
			SubmittedAt:           &submittedAt,
			StressLevel:           &stress,
			SleepHours:            &sleep,
			SocialConnectionScore: row.social,
			Comments:              row.comments,
		})
		acc.applied(line)
	}
	return batch, nil
}

func (s *IngestService) loadRegistrations(ctx context.Context, ids []int64) (map[int64]models.Registration, error) {
	out := make(map[int64]models.Registration)
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.registrations.List(ctx, models.RegistrationFilter{IDs: ids})
	if err != nil {
		return nil, fmt.Errorf("load registrations: %w", err)
	}
	for _, reg := range rows {
		out[reg.ID] = reg
	}
	return out, nil
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// ingestAccumulator records one outcome per row and never short-circuits.
type ingestAccumulator struct {
	rep   models.IngestReport
	limit int
}

func newIngestAccumulator(batchID string, kind models.IngestKind, limit int) *ingestAccumulator {
	return &ingestAccumulator{
		rep: models.IngestReport{
			BatchID:     batchID,
			Kind:        kind,
			NotFound:    []string{},
			InvalidRows: []string{},
			Outcomes:    []models.RowOutcome{},
		},
		limit: limit,
	}
}

func (a *ingestAccumulator) processed() {
	a.rep.Processed++
}

func (a *ingestAccumulator) applied(row int) {
	a.rep.CreatedOrUpdated++
	a.outcome(models.RowOutcome{Row: row, Status: models.RowApplied})
}

func (a *ingestAccumulator) notFound(row int, message string) {
	a.skip(row, models.SkipNotFound, message)
	a.rep.TotalNotFound++
	if len(a.rep.NotFound) < a.limit {
		a.rep.NotFound = append(a.rep.NotFound, fmt.Sprintf("Row %d: %s", row, message))
	}
}

func (a *ingestAccumulator) invalid(row int, message string) {
	a.skip(row, models.SkipInvalid, message)
	a.rep.TotalInvalid++
	if len(a.rep.InvalidRows) < a.limit {
		a.rep.InvalidRows = append(a.rep.InvalidRows, fmt.Sprintf("Row %d: %s", row, message))
	}
}

func (a *ingestAccumulator) skip(row int, reason models.SkipReason, message string) {
	a.rep.Skipped++
	a.outcome(models.RowOutcome{Row: row, Status: models.RowSkipped, Reason: reason, Message: message})
}

func (a *ingestAccumulator) outcome(o models.RowOutcome) {
	if len(a.rep.Outcomes) < a.limit {
		a.rep.Outcomes = append(a.rep.Outcomes, o)
	}
}

func (a *ingestAccumulator) report() *models.IngestReport {
	report := a.rep
	return &report
}
