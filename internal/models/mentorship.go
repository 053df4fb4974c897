package models

import (
	"time"

	"github.com/lib/pq"
)

// Channel is the medium of a mentor check-in.
type Channel string

const (
	ChannelDigital  Channel = "digital"
	ChannelInPerson Channel = "in_person"
)

// StudentProgress is the mentor's qualitative read on a student after a check-in.
type StudentProgress string

const (
	ProgressExcellent        StudentProgress = "excellent"
	ProgressGood             StudentProgress = "good"
	ProgressNeedsImprovement StudentProgress = "needs_improvement"
	ProgressConcern          StudentProgress = "concern"
)

// MentorshipLog records one check-in. Duplicate same-day entries are legal.
type MentorshipLog struct {
	ID              string           `db:"id" json:"id"`
	MentorID        string           `db:"mentor_id" json:"mentor_id"`
	StudentID       string           `db:"student_id" json:"student_id"`
	Channel         Channel          `db:"channel" json:"channel"`
	Date            Date             `db:"date" json:"date"`
	Notes           string           `db:"notes" json:"notes"`
	DurationMinutes *int             `db:"duration_minutes" json:"duration_minutes,omitempty"`
	Topics          pq.StringArray   `db:"topics" json:"topics"`
	NextSteps       *string          `db:"next_steps" json:"next_steps,omitempty"`
	StudentProgress *StudentProgress `db:"student_progress" json:"student_progress,omitempty"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updated_at"`
}

// MentorshipLogFilter narrows log listings.
type MentorshipLogFilter struct {
	MentorID  string
	StudentID string
	Channel   Channel
}

// CadenceThresholds are the day counts for one channel. Conventionally
// expected <= warning <= critical, which is not enforced.
type CadenceThresholds struct {
	ExpectedDays int `json:"expected_days" validate:"required,min=1"`
	WarningDays  int `json:"warning_days" validate:"required,min=1"`
	CriticalDays int `json:"critical_days" validate:"required,min=1"`
}

// CadenceSettings configures both channels.
type CadenceSettings struct {
	Digital  CadenceThresholds `json:"digital" validate:"required"`
	InPerson CadenceThresholds `json:"in_person" validate:"required"`
}

// For returns the thresholds of a channel.
func (s CadenceSettings) For(channel Channel) CadenceThresholds {
	if channel == ChannelInPerson {
		return s.InPerson
	}
	return s.Digital
}

// DefaultCadenceSettings mirrors the values shipped with the mentorship dashboard.
func DefaultCadenceSettings() CadenceSettings {
	return CadenceSettings{
		Digital:  CadenceThresholds{ExpectedDays: 7, WarningDays: 10, CriticalDays: 14},
		InPerson: CadenceThresholds{ExpectedDays: 30, WarningDays: 35, CriticalDays: 45},
	}
}

// RiskLevel classifies how recent a pair's check-ins are.
type RiskLevel string

const (
	RiskOnTrack RiskLevel = "on_track"
	RiskLagging RiskLevel = "lagging"
	RiskAtRisk  RiskLevel = "at_risk"
)

// ChannelStatus is the classification of one channel.
type ChannelStatus struct {
	Channel              Channel   `json:"channel"`
	Status               RiskLevel `json:"status"`
	DaysSinceLastCheckIn int       `json:"days_since_last_check_in"`
	LastCheckIn          Date      `json:"last_check_in"`
	Message              string    `json:"message"`
}

// CadenceReport is the classification of a student across both channels.
type CadenceReport struct {
	StudentID string        `json:"student_id"`
	Digital   ChannelStatus `json:"digital"`
	InPerson  ChannelStatus `json:"in_person"`
	Overall   RiskLevel     `json:"overall"`
	Score     float64       `json:"score"`
}

// MentorshipPair is an enrollment with its student, mentor and course resolved.
type MentorshipPair struct {
	CourseID       string     `db:"course_id" json:"course_id"`
	CourseType     CourseType `db:"course_type" json:"-"`
	GraduationYear int        `db:"graduation_year" json:"-"`
	CourseName     string     `db:"-" json:"course_name"`
	StudentID      string     `db:"student_id" json:"student_id"`
	StudentName    string     `db:"student_name" json:"student_name"`
	StudentEmail   string     `db:"student_email" json:"student_email"`
	MentorID       *string    `db:"mentor_id" json:"mentor_id"`
	MentorName     *string    `db:"mentor_name" json:"mentor_name"`
	EnrollmentDate Date       `db:"enrollment_date" json:"enrollment_date"`
	Status         string     `db:"status" json:"status"`
}

// PairCadence is one dashboard row: a pair, its check-in history summary and its classification.
type PairCadence struct {
	MentorshipPair
	TotalCheckIns  int              `json:"total_check_ins"`
	LatestCheckIn  Date             `json:"latest_check_in"`
	LatestProgress *StudentProgress `json:"latest_progress,omitempty"`
	Cadence        CadenceReport    `json:"cadence"`
}

// DashboardSummary aggregates the dashboard rows.
type DashboardSummary struct {
	TotalPairs           int                     `json:"total_pairs"`
	OnTrack              int                     `json:"on_track"`
	Lagging              int                     `json:"lagging"`
	AtRisk               int                     `json:"at_risk"`
	TotalLogs            int                     `json:"total_logs"`
	RecentLogs           int                     `json:"recent_logs"`
	ProgressDistribution map[StudentProgress]int `json:"progress_distribution"`
}

// MentorshipDashboard is the cadence view for one mentor or for every pair.
type MentorshipDashboard struct {
	AsOf            Date             `json:"as_of"`
	SettingsVersion int64            `json:"settings_version"`
	Settings        CadenceSettings  `json:"settings"`
	Pairs           []PairCadence    `json:"pairs"`
	Alerts          []PairCadence    `json:"alerts"`
	Summary         DashboardSummary `json:"summary"`
}
