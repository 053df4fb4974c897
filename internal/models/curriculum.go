package models

import (
	"fmt"
	"time"
)

// CourseType distinguishes first and second year cohorts.
type CourseType string

const (
	CourseTypeFirstYear  CourseType = "first_year"
	CourseTypeSecondYear CourseType = "second_year"
)

// Label returns the human readable course type.
func (t CourseType) Label() string {
	if t == CourseTypeSecondYear {
		return "Second Year"
	}
	return "First Year"
}

// CourseDisplayName renders the "First Year 2025" style label used across the UI.
func CourseDisplayName(t CourseType, graduationYear int) string {
	return fmt.Sprintf("%s %d", t.Label(), graduationYear)
}

// Course is a cohort identified by its type and graduation year.
type Course struct {
	ID             string     `db:"id" json:"id"`
	CourseType     CourseType `db:"course_type" json:"course_type"`
	GraduationYear int        `db:"graduation_year" json:"graduation_year"`
	StartDate      Date       `db:"start_date" json:"start_date"`
	EndDate        Date       `db:"end_date" json:"end_date"`
	Status         string     `db:"status" json:"status"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// DisplayName returns the course label.
func (c Course) DisplayName() string {
	return CourseDisplayName(c.CourseType, c.GraduationYear)
}

// Subject is a teaching unit owning an ordered sequence of class slots.
// StartDate and ClassCount are only used when the slots are first generated.
type Subject struct {
	ID               string    `db:"id" json:"id"`
	CourseID         string    `db:"course_id" json:"course_id"`
	Title            string    `db:"title" json:"title"`
	Description      string    `db:"description" json:"description"`
	StartDate        Date      `db:"start_date" json:"start_date"`
	ClassCount       int       `db:"class_count" json:"class_count"`
	PrimaryTeacherID *string   `db:"primary_teacher_id" json:"primary_teacher_id"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// TimeSlot names which period(s) of a day a class occupies.
type TimeSlot string

const (
	TimeSlotFirst  TimeSlot = "first"
	TimeSlotSecond TimeSlot = "second"
	TimeSlotBoth   TimeSlot = "both"
)

// Valid reports whether the slot is one of the known periods.
func (s TimeSlot) Valid() bool {
	return s == TimeSlotFirst || s == TimeSlotSecond || s == TimeSlotBoth
}

// Overlaps reports whether two periods on the same day collide. BOTH occupies the whole day.
func (s TimeSlot) Overlaps(other TimeSlot) bool {
	return s == TimeSlotBoth || other == TimeSlotBoth || s == other
}

// ClassSlot is one scheduled teaching session. A nil TeacherID or TranslatorID
// means the role is vacant.
type ClassSlot struct {
	ID           string    `db:"id" json:"id"`
	SubjectID    string    `db:"subject_id" json:"subject_id"`
	Title        string    `db:"title" json:"title"`
	Date         Date      `db:"date" json:"date"`
	TimeSlot     TimeSlot  `db:"time_slot" json:"time_slot"`
	TeacherID    *string   `db:"teacher_id" json:"teacher_id"`
	TranslatorID *string   `db:"translator_id" json:"translator_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// HasVacantRole reports whether the teacher or translator is unassigned.
func (c ClassSlot) HasVacantRole() bool {
	return c.TeacherID == nil || c.TranslatorID == nil
}

// Ref returns a person reference for id; an empty id is vacant.
func Ref(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

// SamePerson reports whether two references name the same assigned person.
func SamePerson(a, b *string) bool {
	return a != nil && b != nil && *a == *b
}

// RosterSlot is a class slot together with the subject and course that own it.
type RosterSlot struct {
	ClassSlot
	CourseID       string     `db:"course_id" json:"course_id"`
	CourseType     CourseType `db:"course_type" json:"-"`
	GraduationYear int        `db:"graduation_year" json:"-"`
	SubjectTitle   string     `db:"subject_title" json:"subject_title"`
}

// CourseName returns the owning course label.
func (r RosterSlot) CourseName() string {
	return CourseDisplayName(r.CourseType, r.GraduationYear)
}

// GeneratedClass is one placement produced by the calendar generator.
type GeneratedClass struct {
	Date     Date     `json:"date"`
	TimeSlot TimeSlot `json:"time_slot"`
}

// Enrollment binds a student to a course and, optionally, a mentor.
type Enrollment struct {
	CourseID       string    `db:"course_id" json:"course_id"`
	StudentID      string    `db:"student_id" json:"student_id"`
	MentorID       *string   `db:"mentor_id" json:"mentor_id"`
	EnrollmentDate Date      `db:"enrollment_date" json:"enrollment_date"`
	Status         string    `db:"status" json:"status"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}
