package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/uni-wellbeing-api/internal/models"
)

// CourseRepository reads courses and their modules.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindCourse returns a course by ID.
func (r *CourseRepository) FindCourse(ctx context.Context, id string) (*models.Course, error) {
	var course models.Course
	if err := r.db.GetContext(ctx, &course, "SELECT course_id, course_name FROM courses WHERE course_id = $1", id); err != nil {
		return nil, err
	}
	return &course, nil
}

// FindModule returns a module by ID.
func (r *CourseRepository) FindModule(ctx context.Context, id string) (*models.Module, error) {
	const query = `SELECT module_id, module_name, course_id, duration_weeks FROM modules WHERE module_id = $1`
	var module models.Module
	if err := r.db.GetContext(ctx, &module, query, id); err != nil {
		return nil, err
	}
	return &module, nil
}

// ListModules returns the modules with the given IDs. An empty ID list yields no rows.
func (r *CourseRepository) ListModules(ctx context.Context, ids []string) ([]models.Module, error) {
	if len(ids) == 0 {
		return []models.Module{}, nil
	}
	const query = `SELECT module_id, module_name, course_id, duration_weeks FROM modules WHERE module_id = ANY($1) ORDER BY module_id`
	var modules []models.Module
	if err := r.db.SelectContext(ctx, &modules, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	return modules, nil
}
