package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-curriculum-api/internal/dto"
	"github.com/noah-isme/lms-curriculum-api/internal/models"
	appErrors "github.com/noah-isme/lms-curriculum-api/pkg/errors"
)

type enrollmentRepository interface {
	Upsert(ctx context.Context, enrollment *models.Enrollment) error
	Remove(ctx context.Context, courseID, studentID string) error
	ListByCourse(ctx context.Context, courseID string) ([]models.MentorshipPair, error)
	ListPairs(ctx context.Context, mentorID string) ([]models.MentorshipPair, error)
	FindByStudent(ctx context.Context, studentID string) (*models.MentorshipPair, error)
}

type studentLogSource interface {
	ListByStudents(ctx context.Context, studentIDs []string) ([]models.MentorshipLog, error)
}

// EnrollmentService assigns students to courses and mentors.
type EnrollmentService struct {
	repo      enrollmentRepository
	courses   courseRepository
	people    personLookup
	logs      studentLogSource
	details   courseDetailSource
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs an EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, courses courseRepository, people personLookup, logs studentLogSource, details courseDetailSource, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, courses: courses, people: people, logs: logs, details: details, cache: cache, validator: validate, logger: logger}
}

// Assign enrolls a student in a course. Re-assigning an enrolled student only
// changes the mentor when one is given.
func (s *EnrollmentService) Assign(ctx context.Context, courseID string, req dto.AssignStudentRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	if err := s.requireRole(ctx, req.StudentID, models.RoleStudent, "student_id"); err != nil {
		return nil, err
	}
	mentorID := normaliseRef(req.MentorID)
	if mentorID != nil {
		if err := s.requireRole(ctx, *mentorID, models.RoleMentor, "mentor_id"); err != nil {
			return nil, err
		}
	}

	enrollment := &models.Enrollment{CourseID: courseID, StudentID: req.StudentID, MentorID: mentorID}
	if err := s.repo.Upsert(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll student")
	}
	_ = s.cache.Invalidate(ctx, DashboardCachePattern)
	return enrollment, nil
}

// Remove drops a student from a course.
func (s *EnrollmentService) Remove(ctx context.Context, courseID string, req dto.RemoveStudentRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	if err := s.repo.Remove(ctx, courseID, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove enrollment")
	}
	_ = s.cache.Invalidate(ctx, DashboardCachePattern)
	return nil
}

// ListByCourse returns the students of a course with their mentors.
func (s *EnrollmentService) ListByCourse(ctx context.Context, courseID string) ([]models.MentorshipPair, error) {
	pairs, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return pairs, nil
}

// Mentees returns the students mentored by mentorID.
func (s *EnrollmentService) Mentees(ctx context.Context, mentorID string) ([]models.MentorshipPair, error) {
	pairs, err := s.repo.ListPairs(ctx, mentorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list mentees")
	}
	return pairs, nil
}

// MyCourse returns the student's enrollment with its mentor, most recent check-in
// and the course's subjects and classes.
func (s *EnrollmentService) MyCourse(ctx context.Context, studentID string) (*dto.MyCourse, error) {
	pair, err := s.repo.FindByStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "you are not enrolled in a course")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	view := &dto.MyCourse{Enrollment: *pair}
	if pair.MentorID != nil {
		mentor, err := s.people.FindByID(ctx, *pair.MentorID)
		switch {
		case err == nil:
			view.Mentor = &models.UserInfo{ID: mentor.ID, Email: mentor.Email, Name: mentor.Name, Roles: mentor.RoleSet().Slice()}
		case !errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mentor")
		}
	}

	logs, err := s.logs.ListByStudents(ctx, []string{studentID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load check-ins")
	}
	view.LatestCheckIn = latestLog(logs)

	detail, err := s.details.Get(ctx, pair.CourseID)
	if err != nil {
		return nil, err
	}
	view.Course = detail
	return view, nil
}

func latestLog(logs []models.MentorshipLog) *models.MentorshipLog {
	var latest *models.MentorshipLog
	for i := range logs {
		entry := &logs[i]
		if latest == nil || latest.Date.Before(entry.Date) || (entry.Date.Equal(latest.Date) && entry.CreatedAt.After(latest.CreatedAt)) {
			latest = entry
		}
	}
	return latest
}

func (s *EnrollmentService) requireRole(ctx context.Context, personID string, role models.Role, field string) error {
	person, err := s.people.FindByID(ctx, personID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.WithDetails(appErrors.ErrValidation, "person not found", map[string]string{field: "unknown person"})
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load person")
	}
	if !person.RoleSet().Has(role) {
		return appErrors.WithDetails(appErrors.ErrValidation, person.Name+" does not hold the "+string(role)+" role", map[string]string{field: "missing " + string(role) + " role"})
	}
	return nil
}
