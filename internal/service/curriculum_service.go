package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-curriculum-api/internal/dto"
	"github.com/noah-isme/lms-curriculum-api/internal/models"
	appErrors "github.com/noah-isme/lms-curriculum-api/pkg/errors"
)

type personLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// CurriculumService manages subjects and their class slots, guarding every slot write
// with the double-booking check.
type CurriculumService struct {
	courses   courseRepository
	subjects  subjectRepository
	classes   classSlotRepository
	people    personLookup
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCurriculumService constructs a CurriculumService.
func NewCurriculumService(courses courseRepository, subjects subjectRepository, classes classSlotRepository, people personLookup, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *CurriculumService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CurriculumService{
		courses:   courses,
		subjects:  subjects,
		classes:   classes,
		people:    people,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// CreateSubject stores a subject and seeds its classes from the calendar generator.
// Seeded classes carry the primary teacher and a vacant translator. They are not
// rejected on conflict; conflicts surface on the returned class views instead.
func (s *CurriculumService) CreateSubject(ctx context.Context, courseID string, req dto.CreateSubjectRequest) (*dto.SubjectDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	primary := normaliseRef(req.PrimaryTeacherID)
	if err := s.ensureRole(ctx, primary, models.RoleTeacher, "primary_teacher_id"); err != nil {
		return nil, err
	}

	subject := &models.Subject{
		CourseID:         courseID,
		Title:            strings.TrimSpace(req.Title),
		Description:      req.Description,
		StartDate:        req.StartDate,
		ClassCount:       req.ClassCount,
		PrimaryTeacherID: primary,
	}

	generated := GenerateClassDates(req.StartDate, req.ClassCount)
	classes := make([]models.ClassSlot, 0, len(generated))
	for i, placement := range generated {
		classes = append(classes, models.ClassSlot{
			Title:     fmt.Sprintf("%s - Class %d", subject.Title, i+1),
			Date:      placement.Date,
			TimeSlot:  placement.TimeSlot,
			TeacherID: primary,
		})
	}

	if err := s.subjects.CreateWithClasses(ctx, subject, classes); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subject")
	}
	s.metrics.ObserveGeneratedClasses(len(classes))
	s.logger.Info("subject created",
		zap.String("subject_id", subject.ID),
		zap.String("course_id", courseID),
		zap.Int("classes", len(classes)),
	)

	views, err := s.ListClasses(ctx, subject.ID)
	if err != nil {
		return nil, err
	}
	return &dto.SubjectDetail{Subject: *subject, Classes: views}, nil
}

// UpdateSubject edits subject metadata without touching its classes.
func (s *CurriculumService) UpdateSubject(ctx context.Context, id string, req dto.UpdateSubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}
	subject, err := s.loadSubject(ctx, id)
	if err != nil {
		return nil, err
	}
	primary := normaliseRef(req.PrimaryTeacherID)
	if err := s.ensureRole(ctx, primary, models.RoleTeacher, "primary_teacher_id"); err != nil {
		return nil, err
	}

	subject.Title = strings.TrimSpace(req.Title)
	subject.Description = req.Description
	subject.PrimaryTeacherID = primary
	if err := s.subjects.Update(ctx, subject); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update subject")
	}
	return subject, nil
}

// DeleteSubject removes a subject and its classes.
func (s *CurriculumService) DeleteSubject(ctx context.Context, id string) error {
	if err := s.subjects.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete subject")
	}
	return nil
}

// ListClasses returns a subject's classes annotated against the whole roster.
func (s *CurriculumService) ListClasses(ctx context.Context, subjectID string) ([]dto.ClassView, error) {
	slots, err := s.classes.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	roster, err := s.classes.ListRoster(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	return annotateClasses(slots, roster), nil
}

// CreateClass adds a slot to a subject, rejecting it if either role holder is already booked.
func (s *CurriculumService) CreateClass(ctx context.Context, subjectID string, req dto.ClassRequest) (*dto.ClassView, error) {
	if _, err := s.loadSubject(ctx, subjectID); err != nil {
		return nil, err
	}
	slot := models.ClassSlot{SubjectID: subjectID}
	if err := s.applyClassRequest(ctx, &slot, req); err != nil {
		return nil, err
	}
	if err := s.saveChecked(ctx, &slot, true); err != nil {
		return nil, err
	}
	return s.classView(ctx, slot.ID)
}

// UpdateClass edits a slot in place. The slot itself is excluded from the conflict scan.
func (s *CurriculumService) UpdateClass(ctx context.Context, id string, req dto.ClassRequest) (*dto.ClassView, error) {
	existing, err := s.loadClass(ctx, id)
	if err != nil {
		return nil, err
	}
	slot := existing.ClassSlot
	if err := s.applyClassRequest(ctx, &slot, req); err != nil {
		return nil, err
	}
	if err := s.saveChecked(ctx, &slot, false); err != nil {
		return nil, err
	}
	return s.classView(ctx, slot.ID)
}

// DeleteClass removes a slot.
func (s *CurriculumService) DeleteClass(ctx context.Context, id string) error {
	if err := s.classes.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class")
	}
	return nil
}

// CheckAvailability reports whether a person is free at a date and period.
func (s *CurriculumService) CheckAvailability(ctx context.Context, req dto.AvailabilityRequest) (*dto.AvailabilityResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability payload")
	}
	roster, err := s.classes.ListRosterByDate(ctx, req.Date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	result := CheckConflict(normaliseRef(req.PersonID), req.Date, req.TimeSlot, roster, req.ExcludeSlotID)
	return &dto.AvailabilityResponse{Available: !result.HasConflict, ConflictResult: result}, nil
}

// MyClasses returns the classes a person teaches or translates, limited to the roles they hold.
func (s *CurriculumService) MyClasses(ctx context.Context, personID string, roles models.RoleSet) ([]dto.ClassView, error) {
	asTeacher := roles.Has(models.RoleTeacher)
	asTranslator := roles.Has(models.RoleTranslator)
	if !asTeacher && !asTranslator {
		return []dto.ClassView{}, nil
	}
	slots, err := s.classes.ListByPerson(ctx, personID, asTeacher, asTranslator)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	roster, err := s.classes.ListRoster(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	return annotateClasses(slots, roster), nil
}

// PreviewCalendar returns the generated placements without storing anything.
func (s *CurriculumService) PreviewCalendar(req dto.CalendarPreviewRequest) (*dto.CalendarPreviewResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid preview payload")
	}
	return &dto.CalendarPreviewResponse{Classes: GenerateClassDates(req.StartDate, req.ClassCount)}, nil
}

func (s *CurriculumService) applyClassRequest(ctx context.Context, slot *models.ClassSlot, req dto.ClassRequest) error {
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}

	teacher := normaliseRef(req.TeacherID)
	translator := normaliseRef(req.TranslatorID)
	if models.SamePerson(teacher, translator) {
		return appErrors.WithDetails(appErrors.ErrValidation, "teacher and translator must be different people", map[string]string{
			"translator_id": "Translator must be different from the teacher",
		})
	}
	if err := s.ensureRole(ctx, teacher, models.RoleTeacher, "teacher_id"); err != nil {
		return err
	}
	if err := s.ensureRole(ctx, translator, models.RoleTranslator, "translator_id"); err != nil {
		return err
	}

	slot.Title = req.Title
	slot.Date = req.Date
	slot.TimeSlot = req.TimeSlot
	slot.TeacherID = teacher
	slot.TranslatorID = translator
	return nil
}

func (s *CurriculumService) saveChecked(ctx context.Context, slot *models.ClassSlot, create bool) error {
	start := time.Now()
	var report models.SlotConflictReport
	err := s.classes.SaveChecked(ctx, slot, create, func(roster []models.RosterSlot) error {
		report = CheckSlot(*slot, roster)
		if report.HasConflict {
			return slotConflictError(report)
		}
		return nil
	})
	s.metrics.ObserveDBQuery("class_slot_save", time.Since(start))

	if err == nil {
		return nil
	}
	if report.HasConflict {
		if report.Teacher.HasConflict {
			s.metrics.RecordConflict(string(models.ConflictRoleTeacher))
		}
		if report.Translator.HasConflict {
			s.metrics.RecordConflict(string(models.ConflictRoleTranslator))
		}
		s.logger.Info("class slot rejected for double booking",
			zap.String("slot_id", slot.ID),
			zap.String("date", slot.Date.String()),
			zap.String("time_slot", string(slot.TimeSlot)),
		)
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save class")
}

func (s *CurriculumService) classView(ctx context.Context, id string) (*dto.ClassView, error) {
	slot, err := s.loadClass(ctx, id)
	if err != nil {
		return nil, err
	}
	roster, err := s.classes.ListRosterByDate(ctx, slot.Date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	view := annotateClass(*slot, roster)
	return &view, nil
}

func (s *CurriculumService) ensureRole(ctx context.Context, personID *string, role models.Role, field string) error {
	if personID == nil || s.people == nil {
		return nil
	}
	person, err := s.people.FindByID(ctx, *personID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.WithDetails(appErrors.ErrValidation, "assigned person not found", map[string]string{field: "unknown person"})
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load person")
	}
	if !person.RoleSet().Has(role) {
		return appErrors.WithDetails(appErrors.ErrValidation, fmt.Sprintf("%s does not hold the %s role", person.Name, role), map[string]string{field: "missing " + string(role) + " role"})
	}
	return nil
}

func (s *CurriculumService) loadSubject(ctx context.Context, id string) (*models.Subject, error) {
	subject, err := s.subjects.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	return subject, nil
}

func (s *CurriculumService) loadClass(ctx context.Context, id string) (*models.RosterSlot, error) {
	slot, err := s.classes.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return slot, nil
}

// normaliseRef treats an empty id as vacant.
func normaliseRef(id *string) *string {
	if id == nil {
		return nil
	}
	return models.Ref(strings.TrimSpace(*id))
}
