package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-curriculum-api/internal/dto"
	"github.com/noah-isme/lms-curriculum-api/internal/models"
	"github.com/noah-isme/lms-curriculum-api/internal/repository"
	appErrors "github.com/noah-isme/lms-curriculum-api/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context) ([]models.Course, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindByTypeAndYear(ctx context.Context, courseType models.CourseType, graduationYear int) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
}

type subjectRepository interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.Subject, error)
	FindByID(ctx context.Context, id string) (*models.Subject, error)
	CreateWithClasses(ctx context.Context, subject *models.Subject, classes []models.ClassSlot) error
	Update(ctx context.Context, subject *models.Subject) error
	Delete(ctx context.Context, id string) error
}

type classSlotRepository interface {
	FindByID(ctx context.Context, id string) (*models.RosterSlot, error)
	ListBySubject(ctx context.Context, subjectID string) ([]models.RosterSlot, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.RosterSlot, error)
	ListRoster(ctx context.Context) ([]models.RosterSlot, error)
	ListRosterByDate(ctx context.Context, date models.Date) ([]models.RosterSlot, error)
	ListByPerson(ctx context.Context, personID string, asTeacher, asTranslator bool) ([]models.RosterSlot, error)
	SaveChecked(ctx context.Context, slot *models.ClassSlot, create bool, check func(roster []models.RosterSlot) error) error
	Delete(ctx context.Context, id string) error
}

// CalendarDay groups a course's classes by period. A class spanning both hours
// appears in both lists.
type CalendarDay struct {
	Date   models.Date     `json:"date"`
	First  []dto.ClassView `json:"first"`
	Second []dto.ClassView `json:"second"`
}

// CourseService manages courses and assembles their curriculum views.
type CourseService struct {
	courses   courseRepository
	subjects  subjectRepository
	classes   classSlotRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs a CourseService.
func NewCourseService(courses courseRepository, subjects subjectRepository, classes classSlotRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{courses: courses, subjects: subjects, classes: classes, cache: cache, validator: validate, logger: logger}
}

// List returns every course with its display label.
func (s *CourseService) List(ctx context.Context) ([]dto.CourseSummary, error) {
	courses, err := s.courses.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	out := make([]dto.CourseSummary, 0, len(courses))
	for _, c := range courses {
		out = append(out, dto.CourseSummary{Course: c, DisplayName: c.DisplayName()})
	}
	return out, nil
}

// Get returns a course with its subjects and annotated classes.
func (s *CourseService) Get(ctx context.Context, id string) (*dto.CourseDetail, error) {
	course, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	subjects, err := s.subjects.ListByCourse(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	views, err := s.courseClassViews(ctx, id)
	if err != nil {
		return nil, err
	}

	bySubject := make(map[string][]dto.ClassView, len(subjects))
	for _, view := range views {
		bySubject[view.SubjectID] = append(bySubject[view.SubjectID], view)
	}

	detail := &dto.CourseDetail{
		CourseSummary: dto.CourseSummary{Course: *course, DisplayName: course.DisplayName()},
		Subjects:      make([]dto.SubjectDetail, 0, len(subjects)),
	}
	for _, subject := range subjects {
		classes := bySubject[subject.ID]
		if classes == nil {
			classes = []dto.ClassView{}
		}
		detail.Subjects = append(detail.Subjects, dto.SubjectDetail{Subject: subject, Classes: classes})
	}
	return detail, nil
}

// Create adds a course. Type and graduation year must be unique together.
func (s *CourseService) Create(ctx context.Context, req dto.CourseRequest) (*dto.CourseSummary, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, req.CourseType, req.GraduationYear, ""); err != nil {
		return nil, err
	}

	course := &models.Course{
		CourseType:     req.CourseType,
		GraduationYear: req.GraduationYear,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		Status:         statusOrDefault(req.Status),
	}
	if err := s.courses.Create(ctx, course); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, duplicateCourseError(course.CourseType, course.GraduationYear)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	s.logger.Info("course created", zap.String("course_id", course.ID), zap.String("name", course.DisplayName()))
	return &dto.CourseSummary{Course: *course, DisplayName: course.DisplayName()}, nil
}

// Update edits a course.
func (s *CourseService) Update(ctx context.Context, id string, req dto.CourseRequest) (*dto.CourseSummary, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}
	course, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, req.CourseType, req.GraduationYear, id); err != nil {
		return nil, err
	}

	course.CourseType = req.CourseType
	course.GraduationYear = req.GraduationYear
	course.StartDate = req.StartDate
	course.EndDate = req.EndDate
	if req.Status != "" {
		course.Status = req.Status
	}
	if err := s.courses.Update(ctx, course); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		case repository.IsUniqueViolation(err):
			return nil, duplicateCourseError(course.CourseType, course.GraduationYear)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	// Dashboard rows carry the course name.
	_ = s.cache.Invalidate(ctx, DashboardCachePattern)
	return &dto.CourseSummary{Course: *course, DisplayName: course.DisplayName()}, nil
}

// Delete removes a course and everything it owns.
func (s *CourseService) Delete(ctx context.Context, id string) error {
	if err := s.courses.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}
	_ = s.cache.Invalidate(ctx, DashboardCachePattern)
	s.logger.Info("course deleted", zap.String("course_id", id))
	return nil
}

// Calendar returns the course's scheduled classes grouped by date and hour.
// Unscheduled classes are omitted.
func (s *CourseService) Calendar(ctx context.Context, id string) (*dto.CourseSummary, []CalendarDay, error) {
	course, err := s.load(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	views, err := s.courseClassViews(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	byDate := map[string]*CalendarDay{}
	for _, view := range views {
		if view.Date.IsZero() {
			continue
		}
		key := view.Date.String()
		day, ok := byDate[key]
		if !ok {
			day = &CalendarDay{Date: view.Date, First: []dto.ClassView{}, Second: []dto.ClassView{}}
			byDate[key] = day
		}
		if view.TimeSlot != models.TimeSlotSecond {
			day.First = append(day.First, view)
		}
		if view.TimeSlot != models.TimeSlotFirst {
			day.Second = append(day.Second, view)
		}
	}

	days := make([]CalendarDay, 0, len(byDate))
	for _, day := range byDate {
		days = append(days, *day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })

	return &dto.CourseSummary{Course: *course, DisplayName: course.DisplayName()}, days, nil
}

func (s *CourseService) courseClassViews(ctx context.Context, courseID string) ([]dto.ClassView, error) {
	slots, err := s.classes.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	roster, err := s.classes.ListRoster(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	return annotateClasses(slots, roster), nil
}

func (s *CourseService) load(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

func (s *CourseService) validateRequest(req dto.CourseRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	if !req.StartDate.IsZero() && !req.EndDate.IsZero() && req.EndDate.Before(req.StartDate) {
		return appErrors.Clone(appErrors.ErrValidation, "end_date must not be before start_date")
	}
	return nil
}

func (s *CourseService) ensureUnique(ctx context.Context, courseType models.CourseType, year int, selfID string) error {
	existing, err := s.courses.FindByTypeAndYear(ctx, courseType, year)
	if err == nil {
		if existing.ID != selfID {
			return duplicateCourseError(courseType, year)
		}
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course uniqueness")
	}
	return nil
}

func duplicateCourseError(courseType models.CourseType, year int) error {
	return appErrors.Clone(appErrors.ErrConflict, models.CourseDisplayName(courseType, year)+" already exists")
}

func statusOrDefault(status string) string {
	if status == "" {
		return "active"
	}
	return status
}
