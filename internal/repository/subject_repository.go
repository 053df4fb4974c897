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

const subjectColumns = `id, course_id, title, description, start_date, class_count, primary_teacher_id, created_at, updated_at`

// SubjectRepository manages subjects of a course.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository constructs a SubjectRepository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// ListByCourse returns the subjects of a course ordered by start date.
func (r *SubjectRepository) ListByCourse(ctx context.Context, courseID string) ([]models.Subject, error) {
	query := `SELECT ` + subjectColumns + ` FROM subjects WHERE course_id = $1 ORDER BY start_date ASC NULLS LAST, title ASC`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, courseID); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// FindByID returns a subject by id.
func (r *SubjectRepository) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	query := `SELECT ` + subjectColumns + ` FROM subjects WHERE id = $1`
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find subject: %w", err)
	}
	return &subject, nil
}

// CreateWithClasses stores a subject and its seeded class slots atomically.
func (r *SubjectRepository) CreateWithClasses(ctx context.Context, subject *models.Subject, classes []models.ClassSlot) (err error) {
	now := time.Now().UTC()
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	subject.CreatedAt = now
	subject.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create subject: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertSubject = `INSERT INTO subjects (id, course_id, title, description, start_date, class_count, primary_teacher_id, created_at, updated_at) VALUES (:id, :course_id, :title, :description, :start_date, :class_count, :primary_teacher_id, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertSubject, subject); err != nil {
		return fmt.Errorf("create subject: %w", err)
	}

	for i := range classes {
		classes[i].SubjectID = subject.ID
		if err = insertClassSlot(ctx, tx, &classes[i], now); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create subject: %w", err)
	}
	return nil
}

// Update persists subject metadata. Existing class slots are left untouched.
func (r *SubjectRepository) Update(ctx context.Context, subject *models.Subject) error {
	subject.UpdatedAt = time.Now().UTC()
	const query = `UPDATE subjects SET title = :title, description = :description, start_date = :start_date, class_count = :class_count, primary_teacher_id = :primary_teacher_id, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, subject)
	if err != nil {
		return fmt.Errorf("update subject: %w", err)
	}
	return expectAffected(res, "update subject")
}

// Delete removes a subject and, by cascade, its class slots.
func (r *SubjectRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM subjects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	return expectAffected(res, "delete subject")
}
