package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/lms-curriculum-api/internal/models"
)

const logColumns = `id, mentor_id, student_id, channel, date, notes, duration_minutes, topics, next_steps, student_progress, created_at, updated_at`

// MentorshipLogRepository stores mentor check-ins.
type MentorshipLogRepository struct {
	db *sqlx.DB
}

// NewMentorshipLogRepository constructs a MentorshipLogRepository.
func NewMentorshipLogRepository(db *sqlx.DB) *MentorshipLogRepository {
	return &MentorshipLogRepository{db: db}
}

// List returns logs matching filter, most recent first.
func (r *MentorshipLogRepository) List(ctx context.Context, filter models.MentorshipLogFilter) ([]models.MentorshipLog, error) {
	query := `SELECT ` + logColumns + ` FROM mentorship_logs`
	var conditions []string
	var args []interface{}
	if filter.MentorID != "" {
		args = append(args, filter.MentorID)
		conditions = append(conditions, fmt.Sprintf("mentor_id = $%d", len(args)))
	}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if filter.Channel != "" {
		args = append(args, filter.Channel)
		conditions = append(conditions, fmt.Sprintf("channel = $%d", len(args)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY date DESC, created_at DESC"

	logs := []models.MentorshipLog{}
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, fmt.Errorf("list mentorship logs: %w", err)
	}
	return logs, nil
}

// ListByStudents returns every log for the given students.
func (r *MentorshipLogRepository) ListByStudents(ctx context.Context, studentIDs []string) ([]models.MentorshipLog, error) {
	logs := []models.MentorshipLog{}
	if len(studentIDs) == 0 {
		return logs, nil
	}
	query := `SELECT ` + logColumns + ` FROM mentorship_logs WHERE student_id = ANY($1) ORDER BY date DESC`
	if err := r.db.SelectContext(ctx, &logs, query, pq.Array(studentIDs)); err != nil {
		return nil, fmt.Errorf("list mentorship logs by students: %w", err)
	}
	return logs, nil
}

// FindByID returns one log.
func (r *MentorshipLogRepository) FindByID(ctx context.Context, id string) (*models.MentorshipLog, error) {
	var log models.MentorshipLog
	if err := r.db.GetContext(ctx, &log, `SELECT `+logColumns+` FROM mentorship_logs WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find mentorship log: %w", err)
	}
	return &log, nil
}

// Create inserts a log.
func (r *MentorshipLogRepository) Create(ctx context.Context, log *models.MentorshipLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.Topics == nil {
		log.Topics = pq.StringArray{}
	}
	now := time.Now().UTC()
	log.CreatedAt = now
	log.UpdatedAt = now
	const query = `INSERT INTO mentorship_logs (id, mentor_id, student_id, channel, date, notes, duration_minutes, topics, next_steps, student_progress, created_at, updated_at) VALUES (:id, :mentor_id, :student_id, :channel, :date, :notes, :duration_minutes, :topics, :next_steps, :student_progress, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create mentorship log: %w", err)
	}
	return nil
}

// Update persists log changes.
func (r *MentorshipLogRepository) Update(ctx context.Context, log *models.MentorshipLog) error {
	if log.Topics == nil {
		log.Topics = pq.StringArray{}
	}
	log.UpdatedAt = time.Now().UTC()
	const query = `UPDATE mentorship_logs SET student_id = :student_id, channel = :channel, date = :date, notes = :notes, duration_minutes = :duration_minutes, topics = :topics, next_steps = :next_steps, student_progress = :student_progress, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, log)
	if err != nil {
		return fmt.Errorf("update mentorship log: %w", err)
	}
	return expectAffected(res, "update mentorship log")
}

// Delete removes a log.
func (r *MentorshipLogRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM mentorship_logs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete mentorship log: %w", err)
	}
	return expectAffected(res, "delete mentorship log")
}
