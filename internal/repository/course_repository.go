package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-curriculum-api/internal/models"
)

const courseColumns = `id, course_type, graduation_year, start_date, end_date, status, created_at, updated_at`

// CourseRepository handles persistence for courses.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns every course, newest graduation year first.
func (r *CourseRepository) List(ctx context.Context) ([]models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses ORDER BY graduation_year DESC, course_type ASC`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// FindByID returns a course by id.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		if err == sql.ErrNoRows || IsInvalidText(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find course: %w", err)
	}
	return &course, nil
}

// FindByTypeAndYear returns the course occupying a type and graduation year.
func (r *CourseRepository) FindByTypeAndYear(ctx context.Context, courseType models.CourseType, graduationYear int) (*models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE course_type = $1 AND graduation_year = $2`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, courseType, graduationYear); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find course by type and year: %w", err)
	}
	return &course, nil
}

// Create inserts a course.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now
	const query = `INSERT INTO courses (id, course_type, graduation_year, start_date, end_date, status, created_at, updated_at) VALUES (:id, :course_type, :graduation_year, :start_date, :end_date, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update persists course changes.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET course_type = :course_type, graduation_year = :graduation_year, start_date = :start_date, end_date = :end_date, status = :status, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, course)
	if err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return expectAffected(res, "update course")
}

// Delete removes a course together with its subjects, classes and enrollments.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	return expectAffected(res, "delete course")
}
