package dto

import "github.com/noah-isme/lms-curriculum-api/internal/models"

// CourseRequest creates or updates a course.
type CourseRequest struct {
	CourseType     models.CourseType `json:"course_type" validate:"required,oneof=first_year second_year"`
	GraduationYear int               `json:"graduation_year" validate:"required,min=2000,max=2100"`
	StartDate      models.Date       `json:"start_date"`
	EndDate        models.Date       `json:"end_date"`
	Status         string            `json:"status" validate:"omitempty,oneof=active archived"`
}

// CourseSummary is a course with its display label.
type CourseSummary struct {
	models.Course
	DisplayName string `json:"display_name"`
}

// CourseDetail is a course with its subjects and their classes.
type CourseDetail struct {
	CourseSummary
	Subjects []SubjectDetail `json:"subjects"`
}

// CreateSubjectRequest adds a subject and seeds ClassCount classes from StartDate.
type CreateSubjectRequest struct {
	Title            string      `json:"title" validate:"required,max=200"`
	Description      string      `json:"description" validate:"max=2000"`
	StartDate        models.Date `json:"start_date"`
	ClassCount       int         `json:"class_count" validate:"required,min=1,max=200"`
	PrimaryTeacherID *string     `json:"primary_teacher_id"`
}

// UpdateSubjectRequest edits subject metadata. Existing classes are not regenerated.
type UpdateSubjectRequest struct {
	Title            string  `json:"title" validate:"required,max=200"`
	Description      string  `json:"description" validate:"max=2000"`
	PrimaryTeacherID *string `json:"primary_teacher_id"`
}

// SubjectDetail is a subject with its annotated classes.
type SubjectDetail struct {
	models.Subject
	Classes []ClassView `json:"classes"`
}

// ClassRequest creates or edits one class slot. A null person id leaves the role vacant.
type ClassRequest struct {
	Title        string          `json:"title" validate:"required,max=200"`
	Date         models.Date     `json:"date"`
	TimeSlot     models.TimeSlot `json:"time_slot" validate:"required,oneof=first second both"`
	TeacherID    *string         `json:"teacher_id"`
	TranslatorID *string         `json:"translator_id"`
}

// ClassView is a slot annotated with its conflict report and whether it needs attention.
type ClassView struct {
	models.RosterSlot
	CourseName       string                    `json:"course_name"`
	Conflicts        models.SlotConflictReport `json:"conflicts"`
	NeedsAttention   bool                      `json:"needs_attention"`
	AttentionReasons []string                  `json:"attention_reasons"`
}

// AvailabilityRequest asks whether a person is free at a date and period.
type AvailabilityRequest struct {
	PersonID      *string         `json:"person_id"`
	Date          models.Date     `json:"date"`
	TimeSlot      models.TimeSlot `json:"time_slot" validate:"required,oneof=first second both"`
	ExcludeSlotID string          `json:"exclude_slot_id"`
}

// AvailabilityResponse reports the outcome of an availability check.
type AvailabilityResponse struct {
	Available bool `json:"available"`
	models.ConflictResult
}

// CalendarPreviewRequest asks for generated class dates without persisting anything.
type CalendarPreviewRequest struct {
	StartDate  models.Date `json:"start_date"`
	ClassCount int         `json:"class_count" validate:"required,min=1,max=200"`
}

// CalendarPreviewResponse lists the generated placements.
type CalendarPreviewResponse struct {
	Classes []models.GeneratedClass `json:"classes"`
}

// AssignStudentRequest enrolls a student, optionally setting their mentor.
type AssignStudentRequest struct {
	StudentID string  `json:"student_id" validate:"required"`
	MentorID  *string `json:"mentor_id"`
}

// RemoveStudentRequest removes a student from a course.
type RemoveStudentRequest struct {
	StudentID string `json:"student_id" validate:"required"`
}
