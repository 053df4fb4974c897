package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-curriculum-api/internal/models"
)

const pairSelect = `SELECT e.course_id, c.course_type, c.graduation_year, e.student_id, st.name AS student_name, st.email AS student_email, e.mentor_id, mt.name AS mentor_name, e.enrollment_date, e.status FROM enrollments e JOIN courses c ON c.id = e.course_id JOIN users st ON st.id = e.student_id LEFT JOIN users mt ON mt.id = e.mentor_id`

// EnrollmentRepository persists course students and their mentors.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs an EnrollmentRepository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Upsert enrolls a student. An existing enrollment keeps its mentor unless a new one is given.
func (r *EnrollmentRepository) Upsert(ctx context.Context, enrollment *models.Enrollment) error {
	now := time.Now().UTC()
	if enrollment.EnrollmentDate.IsZero() {
		enrollment.EnrollmentDate = models.DateOf(now)
	}
	if enrollment.Status == "" {
		enrollment.Status = "active"
	}
	enrollment.CreatedAt = now
	enrollment.UpdatedAt = now

	const query = `INSERT INTO enrollments (course_id, student_id, mentor_id, enrollment_date, status, created_at, updated_at)
VALUES (:course_id, :student_id, :mentor_id, :enrollment_date, :status, :created_at, :updated_at)
ON CONFLICT (course_id, student_id) DO UPDATE SET mentor_id = COALESCE(EXCLUDED.mentor_id, enrollments.mentor_id), status = EXCLUDED.status, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("upsert enrollment: %w", err)
	}
	return nil
}

// Remove deletes a student's enrollment in a course.
func (r *EnrollmentRepository) Remove(ctx context.Context, courseID, studentID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM enrollments WHERE course_id = $1 AND student_id = $2`, courseID, studentID)
	if err != nil {
		return fmt.Errorf("remove enrollment: %w", err)
	}
	return expectAffected(res, "remove enrollment")
}

// ListByCourse returns the students of a course.
func (r *EnrollmentRepository) ListByCourse(ctx context.Context, courseID string) ([]models.MentorshipPair, error) {
	return r.selectPairs(ctx, "list enrollments by course", pairSelect+` WHERE e.course_id = $1 ORDER BY st.name ASC`, courseID)
}

// ListPairs returns the mentored enrollments, restricted to one mentor when mentorID is set.
func (r *EnrollmentRepository) ListPairs(ctx context.Context, mentorID string) ([]models.MentorshipPair, error) {
	if mentorID == "" {
		return r.selectPairs(ctx, "list mentorship pairs", pairSelect+` WHERE e.mentor_id IS NOT NULL ORDER BY st.name ASC`)
	}
	return r.selectPairs(ctx, "list mentorship pairs", pairSelect+` WHERE e.mentor_id = $1 ORDER BY st.name ASC`, mentorID)
}

// FindByStudent returns the student's current enrollment, preferring active ones and
// then the most recent. It returns sql.ErrNoRows when the student is not enrolled.
func (r *EnrollmentRepository) FindByStudent(ctx context.Context, studentID string) (*models.MentorshipPair, error) {
	pairs, err := r.selectPairs(ctx, "find enrollment by student", pairSelect+` WHERE e.student_id = $1 ORDER BY (e.status = 'active') DESC, e.enrollment_date DESC LIMIT 1`, studentID)
	if err != nil {
		if IsInvalidText(err) {
			return nil, sql.ErrNoRows
		}
		return nil, err
	}
	if len(pairs) == 0 {
		return nil, sql.ErrNoRows
	}
	return &pairs[0], nil
}

func (r *EnrollmentRepository) selectPairs(ctx context.Context, op, query string, args ...interface{}) ([]models.MentorshipPair, error) {
	pairs := []models.MentorshipPair{}
	if err := r.db.SelectContext(ctx, &pairs, query, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	for i := range pairs {
		pairs[i].CourseName = models.CourseDisplayName(pairs[i].CourseType, pairs[i].GraduationYear)
	}
	return pairs, nil
}
