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

const rosterSelect = `SELECT cs.id, cs.subject_id, cs.title, cs.date, cs.time_slot, cs.teacher_id, cs.translator_id, cs.created_at, cs.updated_at, s.course_id, c.course_type, c.graduation_year, s.title AS subject_title FROM class_slots cs JOIN subjects s ON s.id = cs.subject_id JOIN courses c ON c.id = s.course_id`

// A two-hour class opens in the first hour, so it sorts with the first period.
const rosterOrder = ` ORDER BY cs.date ASC NULLS LAST, CASE cs.time_slot WHEN 'second' THEN 2 ELSE 1 END ASC, cs.title ASC`

// ClassSlotRepository stores class slots and reads them back joined with their subject and course.
type ClassSlotRepository struct {
	db *sqlx.DB
}

// NewClassSlotRepository constructs a ClassSlotRepository.
func NewClassSlotRepository(db *sqlx.DB) *ClassSlotRepository {
	return &ClassSlotRepository{db: db}
}

// FindByID returns a slot with its owning subject and course.
func (r *ClassSlotRepository) FindByID(ctx context.Context, id string) (*models.RosterSlot, error) {
	var slot models.RosterSlot
	if err := r.db.GetContext(ctx, &slot, rosterSelect+` WHERE cs.id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find class slot: %w", err)
	}
	return &slot, nil
}

// ListBySubject returns the slots of one subject.
func (r *ClassSlotRepository) ListBySubject(ctx context.Context, subjectID string) ([]models.RosterSlot, error) {
	return r.selectRoster(ctx, "list class slots by subject", rosterSelect+` WHERE cs.subject_id = $1`+rosterOrder, subjectID)
}

// ListByCourse returns every slot of every subject of a course.
func (r *ClassSlotRepository) ListByCourse(ctx context.Context, courseID string) ([]models.RosterSlot, error) {
	return r.selectRoster(ctx, "list class slots by course", rosterSelect+` WHERE s.course_id = $1`+rosterOrder, courseID)
}

// ListRoster returns every slot across all courses.
func (r *ClassSlotRepository) ListRoster(ctx context.Context) ([]models.RosterSlot, error) {
	return r.selectRoster(ctx, "list roster", rosterSelect+rosterOrder)
}

// ListRosterByDate returns every slot scheduled on date.
func (r *ClassSlotRepository) ListRosterByDate(ctx context.Context, date models.Date) ([]models.RosterSlot, error) {
	if date.IsZero() {
		return []models.RosterSlot{}, nil
	}
	return r.selectRoster(ctx, "list roster by date", rosterSelect+` WHERE cs.date = $1`+rosterOrder, date)
}

// ListByPerson returns the slots where personID teaches, translates, or either.
func (r *ClassSlotRepository) ListByPerson(ctx context.Context, personID string, asTeacher, asTranslator bool) ([]models.RosterSlot, error) {
	var where string
	switch {
	case asTeacher && asTranslator:
		where = ` WHERE (cs.teacher_id = $1 OR cs.translator_id = $1)`
	case asTeacher:
		where = ` WHERE cs.teacher_id = $1`
	case asTranslator:
		where = ` WHERE cs.translator_id = $1`
	default:
		return []models.RosterSlot{}, nil
	}
	return r.selectRoster(ctx, "list class slots by person", rosterSelect+where+rosterOrder, personID)
}

// SaveChecked inserts or updates slot after check accepts a roster snapshot for the
// slot's date. Writers on the same date are serialised by an advisory lock held for
// the duration of the transaction.
func (r *ClassSlotRepository) SaveChecked(ctx context.Context, slot *models.ClassSlot, create bool, check func(roster []models.RosterSlot) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save class slot: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	roster := []models.RosterSlot{}
	if !slot.Date.IsZero() {
		if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "class_slots:"+slot.Date.String()); err != nil {
			return fmt.Errorf("lock class slot date: %w", err)
		}
		if err = tx.SelectContext(ctx, &roster, rosterSelect+` WHERE cs.date = $1`, slot.Date); err != nil {
			return fmt.Errorf("snapshot roster: %w", err)
		}
	}

	if check != nil {
		if err = check(roster); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	if create {
		err = insertClassSlot(ctx, tx, slot, now)
	} else {
		err = updateClassSlot(ctx, tx, slot, now)
	}
	if err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit save class slot: %w", err)
	}
	return nil
}

// Delete removes a slot.
func (r *ClassSlotRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM class_slots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete class slot: %w", err)
	}
	return expectAffected(res, "delete class slot")
}

func (r *ClassSlotRepository) selectRoster(ctx context.Context, op, query string, args ...interface{}) ([]models.RosterSlot, error) {
	slots := []models.RosterSlot{}
	if err := r.db.SelectContext(ctx, &slots, query, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return slots, nil
}

func insertClassSlot(ctx context.Context, exec sqlx.ExtContext, slot *models.ClassSlot, now time.Time) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	slot.CreatedAt = now
	slot.UpdatedAt = now
	const query = `INSERT INTO class_slots (id, subject_id, title, date, time_slot, teacher_id, translator_id, created_at, updated_at) VALUES (:id, :subject_id, :title, :date, :time_slot, :teacher_id, :translator_id, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, slot); err != nil {
		return fmt.Errorf("create class slot: %w", err)
	}
	return nil
}

func updateClassSlot(ctx context.Context, exec sqlx.ExtContext, slot *models.ClassSlot, now time.Time) error {
	slot.UpdatedAt = now
	const query = `UPDATE class_slots SET title = :title, date = :date, time_slot = :time_slot, teacher_id = :teacher_id, translator_id = :translator_id, updated_at = :updated_at WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, exec, query, slot)
	if err != nil {
		return fmt.Errorf("update class slot: %w", err)
	}
	return expectAffected(res, "update class slot")
}
