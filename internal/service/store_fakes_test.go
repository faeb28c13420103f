package service

import (
	"context"
	"database/sql"
	"sync"

	"github.com/noah-isme/uni-wellbeing-api/internal/models"
	"github.com/noah-isme/uni-wellbeing-api/pkg/jobs"
)

// memoryStore is an in-memory stand-in for the relational store shared by report and ingest tests.
type memoryStore struct {
	mu            sync.Mutex
	students      []models.Student
	courses       map[string]models.Course
	modules       map[string]models.Module
	registrations []models.Registration
	attendance    []models.Attendance
	surveys       []models.Survey
	assignments   []models.Assignment
	submissions   []models.Submission

	listErr  error
	applyErr error
	applied  []models.IngestBatch
}

func newMemoryStore() *memoryStore {
	return &memoryStore{courses: map[string]models.Course{}, modules: map[string]models.Module{}}
}

func (m *memoryStore) reportStore() ReportStore {
	return ReportStore{
		Students:      memStudents{m},
		Courses:       memCourses{m},
		Registrations: memRegistrations{m},
		Attendance:    memAttendance{m},
		Surveys:       memSurveys{m},
		Assignments:   memAssignments{m},
	}
}

func regIDSet(ids []int64) map[int64]struct{} {
	if ids == nil {
		return nil
	}
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func inSet(set map[int64]struct{}, id int64) bool {
	if set == nil {
		return true
	}
	_, ok := set[id]
	return ok
}

type memStudents struct{ *memoryStore }

func (s memStudents) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []models.Student
	for _, student := range s.students {
		if filter.CourseID != "" && (student.CurrentCourseID == nil || *student.CurrentCourseID != filter.CourseID) {
			continue
		}
		out = append(out, student)
	}
	return out, nil
}

func (s memStudents) FindByID(ctx context.Context, id string) (*models.Student, error) {
	for _, student := range s.students {
		if student.ID == id {
			found := student
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

type memCourses struct{ *memoryStore }

func (c memCourses) FindCourse(ctx context.Context, id string) (*models.Course, error) {
	course, ok := c.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &course, nil
}

func (c memCourses) FindModule(ctx context.Context, id string) (*models.Module, error) {
	module, ok := c.modules[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &module, nil
}

func (c memCourses) ListModules(ctx context.Context, ids []string) ([]models.Module, error) {
	var out []models.Module
	for _, id := range ids {
		if module, ok := c.modules[id]; ok {
			out = append(out, module)
		}
	}
	return out, nil
}

type memRegistrations struct{ *memoryStore }

func (r memRegistrations) List(ctx context.Context, filter models.RegistrationFilter) ([]models.Registration, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	students := make(map[string]struct{}, len(filter.StudentIDs))
	for _, id := range filter.StudentIDs {
		students[id] = struct{}{}
	}
	var ids map[int64]struct{}
	if len(filter.IDs) > 0 {
		ids = regIDSet(filter.IDs)
	}
	var out []models.Registration
	for _, reg := range r.registrations {
		if !inSet(ids, reg.ID) {
			continue
		}
		if len(students) > 0 {
			if _, ok := students[reg.StudentID]; !ok {
				continue
			}
		}
		if filter.ModuleID != "" && reg.ModuleID != filter.ModuleID {
			continue
		}
		out = append(out, reg)
	}
	return out, nil
}

type memAttendance struct{ *memoryStore }

func (a memAttendance) List(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, error) {
	ids := regIDSet(filter.RegistrationIDs)
	var out []models.Attendance
	for _, row := range a.attendance {
		if !inSet(ids, row.RegistrationID) || !filter.Weeks.Contains(row.WeekNumber) {
			continue
		}
		if filter.DateFrom != nil && row.ClassDate.Before(*filter.DateFrom) {
			continue
		}
		if filter.DateTo != nil && row.ClassDate.After(*filter.DateTo) {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

type memSurveys struct{ *memoryStore }

func (s memSurveys) List(ctx context.Context, filter models.SurveyFilter) ([]models.Survey, error) {
	ids := regIDSet(filter.RegistrationIDs)
	var out []models.Survey
	for _, row := range s.surveys {
		if inSet(ids, row.RegistrationID) && filter.Weeks.Contains(row.WeekNumber) {
			out = append(out, row)
		}
	}
	return out, nil
}

type memAssignments struct{ *memoryStore }

func (a memAssignments) List(ctx context.Context, ids []string, moduleIDs []string) ([]models.Assignment, error) {
	if a.listErr != nil {
		return nil, a.listErr
	}
	match := func(values []string, v string) bool {
		if len(values) == 0 {
			return true
		}
		for _, candidate := range values {
			if candidate == v {
				return true
			}
		}
		return false
	}
	var out []models.Assignment
	for _, assignment := range a.assignments {
		if match(ids, assignment.ID) && match(moduleIDs, assignment.ModuleID) {
			out = append(out, assignment)
		}
	}
	return out, nil
}

func (a memAssignments) CountByModule(ctx context.Context, moduleID string) (int, error) {
	count := 0
	for _, assignment := range a.assignments {
		if assignment.ModuleID == moduleID {
			count++
		}
	}
	return count, nil
}

func (a memAssignments) ListSubmissions(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, error) {
	ids := regIDSet(filter.RegistrationIDs)
	var out []models.Submission
	for _, sub := range a.submissions {
		if inSet(ids, sub.RegistrationID) {
			out = append(out, sub)
		}
	}
	return out, nil
}

// Apply upserts the batch on the natural keys, mirroring the SQL writer.
func (m *memoryStore) Apply(ctx context.Context, batch models.IngestBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.applyErr != nil {
		return m.applyErr
	}
	m.applied = append(m.applied, batch)
	for _, row := range batch.Attendance {
		replaced := false
		for i, existing := range m.attendance {
			if existing.RegistrationID == row.RegistrationID && existing.WeekNumber == row.WeekNumber {
				row.ID = existing.ID
				m.attendance[i] = row
				replaced = true
				break
			}
		}
		if !replaced {
			row.ID = int64(len(m.attendance) + 1)
			m.attendance = append(m.attendance, row)
		}
	}
	for _, sub := range batch.Submissions {
		replaced := false
		for i, existing := range m.submissions {
			if existing.RegistrationID == sub.RegistrationID && existing.AssignmentID == sub.AssignmentID {
				existing.Grade = sub.Grade
				if sub.Feedback != nil {
					existing.Feedback = sub.Feedback
				}
				m.submissions[i] = existing
				replaced = true
				break
			}
		}
		if !replaced {
			sub.ID = int64(len(m.submissions) + 1)
			m.submissions = append(m.submissions, sub)
		}
	}
	for _, survey := range batch.Surveys {
		replaced := false
		for i := len(m.surveys) - 1; i >= 0; i-- {
			existing := m.surveys[i]
			if existing.RegistrationID == survey.RegistrationID && existing.WeekNumber == survey.WeekNumber {
				survey.ID = existing.ID
				m.surveys[i] = survey
				replaced = true
				break
			}
		}
		if !replaced {
			survey.ID = int64(len(m.surveys) + 1)
			m.surveys = append(m.surveys, survey)
		}
	}
	return nil
}

type queueStub struct {
	mu   sync.Mutex
	jobs []jobs.Job
	err  error
}

func (q *queueStub) Enqueue(job jobs.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}
