package dto

import "github.com/noah-isme/lms-curriculum-api/internal/models"

// MentorshipLogRequest records or edits a check-in. MentorID defaults to the caller
// and Date to today.
type MentorshipLogRequest struct {
	StudentID       string                  `json:"student_id" validate:"required"`
	MentorID        string                  `json:"mentor_id"`
	Channel         models.Channel          `json:"channel" validate:"required,oneof=digital in_person"`
	Date            models.Date             `json:"date"`
	Notes           string                  `json:"notes" validate:"max=5000"`
	DurationMinutes *int                    `json:"duration_minutes" validate:"omitempty,min=1,max=1440"`
	Topics          []string                `json:"topics" validate:"omitempty,dive,required,max=100"`
	NextSteps       *string                 `json:"next_steps" validate:"omitempty,max=2000"`
	StudentProgress *models.StudentProgress `json:"student_progress" validate:"omitempty,oneof=excellent good needs_improvement concern"`
}

// CadenceSettingsResponse carries the active thresholds with their version.
type CadenceSettingsResponse struct {
	models.CadenceSettings
	Version int64 `json:"version"`
}

// MyCourse is a student's own enrollment with its mentor, latest check-in and curriculum.
type MyCourse struct {
	Enrollment    models.MentorshipPair `json:"enrollment"`
	Mentor        *models.UserInfo      `json:"mentor"`
	LatestCheckIn *models.MentorshipLog `json:"latest_check_in"`
	Course        *CourseDetail         `json:"course"`
}
