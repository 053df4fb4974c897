package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-curriculum-api/internal/dto"
	"github.com/noah-isme/lms-curriculum-api/internal/models"
	appErrors "github.com/noah-isme/lms-curriculum-api/pkg/errors"
)

type curriculumFixture struct {
	store   *curriculumStore
	svc     *CurriculumService
	metrics *MetricsService
	course  models.Course
	subject models.Subject
}

func newCurriculumFixture(t *testing.T) *curriculumFixture {
	t.Helper()
	store := newCurriculumStore()
	people := newMemoryUserRepo(
		models.User{ID: "t-1", Name: "Tom", Roles: models.RolesToStrings([]models.Role{models.RoleTeacher, models.RoleTranslator})},
		models.User{ID: "t-2", Name: "Ann", Roles: models.RolesToStrings([]models.Role{models.RoleTeacher})},
		models.User{ID: "tr-1", Name: "Tia", Roles: models.RolesToStrings([]models.Role{models.RoleTranslator})},
		models.User{ID: "s-1", Name: "Sam", Roles: models.RolesToStrings([]models.Role{models.RoleStudent})},
	)
	metrics := NewMetricsService()
	course := store.addCourse(models.Course{CourseType: models.CourseTypeFirstYear, GraduationYear: 2026})
	subject := store.addSubject(models.Subject{CourseID: course.ID, Title: "Hermeneutics"})
	svc := NewCurriculumService(memoryCourses{store}, memorySubjects{store}, memoryClasses{store}, people, metrics, nil, zap.NewNop())
	return &curriculumFixture{store: store, svc: svc, metrics: metrics, course: course, subject: subject}
}

func classRequest(title, date string, slot models.TimeSlot, teacher, translator string) dto.ClassRequest {
	return dto.ClassRequest{
		Title:        title,
		Date:         models.MustParseDate(date),
		TimeSlot:     slot,
		TeacherID:    models.Ref(teacher),
		TranslatorID: models.Ref(translator),
	}
}

func TestCurriculumServiceCreateSubjectSeedsClasses(t *testing.T) {
	f := newCurriculumFixture(t)
	primary := "t-2"

	detail, err := f.svc.CreateSubject(context.Background(), f.course.ID, dto.CreateSubjectRequest{
		Title:            "  Greek  ",
		StartDate:        models.MustParseDate("2025-01-07"),
		ClassCount:       3,
		PrimaryTeacherID: &primary,
	})
	require.NoError(t, err)
	assert.Equal(t, "Greek", detail.Title)
	require.Len(t, detail.Classes, 3)

	titles := map[string]dto.ClassView{}
	for _, view := range detail.Classes {
		titles[view.Title] = view
	}
	first := titles["Greek - Class 1"]
	assert.Equal(t, "2025-01-07", first.Date.String())
	assert.Equal(t, models.TimeSlotFirst, first.TimeSlot)
	require.NotNil(t, first.TeacherID)
	assert.Equal(t, "t-2", *first.TeacherID)
	assert.Nil(t, first.TranslatorID)
	assert.Contains(t, first.AttentionReasons, AttentionVacantTranslator)
	assert.Equal(t, "2025-01-09", titles["Greek - Class 3"].Date.String())
	assert.Equal(t, 3.0, metricValue(t, f.metrics, "classes_generated_total", nil))
}

func TestCurriculumServiceCreateSubjectSurfacesConflictsInsteadOfRejecting(t *testing.T) {
	f := newCurriculumFixture(t)
	f.store.addSlot(models.ClassSlot{SubjectID: f.subject.ID, Title: "Existing", Date: models.MustParseDate("2025-01-07"), TimeSlot: models.TimeSlotBoth, TeacherID: models.Ref("t-2")})
	primary := "t-2"

	detail, err := f.svc.CreateSubject(context.Background(), f.course.ID, dto.CreateSubjectRequest{
		Title:            "Greek",
		StartDate:        models.MustParseDate("2025-01-07"),
		ClassCount:       2,
		PrimaryTeacherID: &primary,
	})
	require.NoError(t, err)
	for _, view := range detail.Classes {
		assert.True(t, view.Conflicts.Teacher.HasConflict)
		assert.Contains(t, view.AttentionReasons, AttentionConflict)
	}
}

func TestCurriculumServiceCreateSubjectWithoutStartDate(t *testing.T) {
	f := newCurriculumFixture(t)

	detail, err := f.svc.CreateSubject(context.Background(), f.course.ID, dto.CreateSubjectRequest{Title: "Greek", ClassCount: 2})
	require.NoError(t, err)
	require.Len(t, detail.Classes, 2)
	for _, view := range detail.Classes {
		assert.True(t, view.Date.IsZero())
		assert.Contains(t, view.AttentionReasons, AttentionUnscheduled)
		assert.Contains(t, view.AttentionReasons, AttentionVacantTeacher)
	}
}

func TestCurriculumServiceCreateSubjectUnknownCourse(t *testing.T) {
	f := newCurriculumFixture(t)

	_, err := f.svc.CreateSubject(context.Background(), "missing", dto.CreateSubjectRequest{Title: "Greek", ClassCount: 1})
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)
}

func TestCurriculumServiceCreateSubjectRequiresTeacherRole(t *testing.T) {
	f := newCurriculumFixture(t)
	primary := "tr-1"

	_, err := f.svc.CreateSubject(context.Background(), f.course.ID, dto.CreateSubjectRequest{Title: "Greek", ClassCount: 1, PrimaryTeacherID: &primary})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Equal(t, map[string]string{"primary_teacher_id": "missing teacher role"}, appErr.Details)
}

func TestCurriculumServiceCreateClassRejectsDoubleBooking(t *testing.T) {
	f := newCurriculumFixture(t)
	f.store.addSlot(models.ClassSlot{ID: "slot-a", SubjectID: f.subject.ID, Title: "Intro", Date: models.MustParseDate("2025-01-07"), TimeSlot: models.TimeSlotFirst, TeacherID: models.Ref("t-1")})
	f.store.addSlot(models.ClassSlot{ID: "slot-b", SubjectID: f.subject.ID, Title: "Review", Date: models.MustParseDate("2025-01-07"), TimeSlot: models.TimeSlotSecond, TranslatorID: models.Ref("tr-1")})

	_, err := f.svc.CreateClass(context.Background(), f.subject.ID, classRequest("Workshop", "2025-01-07", models.TimeSlotBoth, "t-1", "tr-1"))
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusConflict, appErr.Status)
	assert.Equal(t, appErrors.ErrDoubleBooking.Code, appErr.Code)
	conflict, ok := appErr.Details.(*models.SlotConflictError)
	require.True(t, ok)
	assert.Equal(t, "Teacher is already assigned to: Intro (First Year 2026) - first hour", conflict.Fields["teacher_id"])
	assert.Equal(t, "Translator is already assigned to: Review (First Year 2026) - second hour", conflict.Fields["translator_id"])
	assert.Len(t, f.store.slots, 2)

	assert.Equal(t, 1.0, metricValue(t, f.metrics, "class_slot_conflicts_total", map[string]string{"role": "Teacher"}))
	assert.Equal(t, 1.0, metricValue(t, f.metrics, "class_slot_conflicts_total", map[string]string{"role": "Translator"}))
}

func TestCurriculumServiceCreateClassAllowsOtherHourAndVacantRoles(t *testing.T) {
	f := newCurriculumFixture(t)
	f.store.addSlot(models.ClassSlot{SubjectID: f.subject.ID, Title: "Intro", Date: models.MustParseDate("2025-01-07"), TimeSlot: models.TimeSlotFirst, TeacherID: models.Ref("t-1")})

	view, err := f.svc.CreateClass(context.Background(), f.subject.ID, classRequest("Workshop", "2025-01-07", models.TimeSlotSecond, "t-1", ""))
	require.NoError(t, err)
	assert.False(t, view.Conflicts.HasConflict)
	assert.Equal(t, []string{AttentionVacantTranslator}, view.AttentionReasons)
	assert.Equal(t, "First Year 2026", view.CourseName)
}

func TestCurriculumServiceCreateClassSamePersonInBothRoles(t *testing.T) {
	f := newCurriculumFixture(t)

	_, err := f.svc.CreateClass(context.Background(), f.subject.ID, classRequest("Workshop", "2025-01-07", models.TimeSlotFirst, "t-1", "t-1"))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Contains(t, appErr.Details, "translator_id")
}

func TestCurriculumServiceCreateClassRequiresTranslatorRole(t *testing.T) {
	f := newCurriculumFixture(t)

	_, err := f.svc.CreateClass(context.Background(), f.subject.ID, classRequest("Workshop", "2025-01-07", models.TimeSlotFirst, "t-1", "s-1"))
	require.Error(t, err)
	assert.Equal(t, map[string]string{"translator_id": "missing translator role"}, appErrors.FromError(err).Details)
}

func TestCurriculumServiceUpdateClassExcludesItself(t *testing.T) {
	f := newCurriculumFixture(t)
	slot := f.store.addSlot(models.ClassSlot{SubjectID: f.subject.ID, Title: "Intro", Date: models.MustParseDate("2025-01-07"), TimeSlot: models.TimeSlotFirst, TeacherID: models.Ref("t-1")})

	view, err := f.svc.UpdateClass(context.Background(), slot.ID, classRequest("Intro (moved)", "2025-01-07", models.TimeSlotBoth, "t-1", "tr-1"))
	require.NoError(t, err)
	assert.Equal(t, "Intro (moved)", view.Title)
	assert.Equal(t, models.TimeSlotBoth, view.TimeSlot)
	assert.False(t, view.NeedsAttention)
}

func TestCurriculumServiceUpdateClassMissing(t *testing.T) {
	f := newCurriculumFixture(t)

	_, err := f.svc.UpdateClass(context.Background(), "missing", classRequest("Intro", "2025-01-07", models.TimeSlotFirst, "", ""))
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)
}

func TestCurriculumServiceCheckAvailability(t *testing.T) {
	f := newCurriculumFixture(t)
	slot := f.store.addSlot(models.ClassSlot{SubjectID: f.subject.ID, Title: "Intro", Date: models.MustParseDate("2025-01-07"), TimeSlot: models.TimeSlotBoth, TeacherID: models.Ref("t-1")})
	person := "t-1"

	busy, err := f.svc.CheckAvailability(context.Background(), dto.AvailabilityRequest{PersonID: &person, Date: models.MustParseDate("2025-01-07"), TimeSlot: models.TimeSlotSecond})
	require.NoError(t, err)
	assert.False(t, busy.Available)
	require.Len(t, busy.ConflictingSlots, 1)
	assert.Equal(t, models.ConflictRoleTeacher, busy.ConflictingSlots[0].Role)

	free, err := f.svc.CheckAvailability(context.Background(), dto.AvailabilityRequest{PersonID: &person, Date: models.MustParseDate("2025-01-07"), TimeSlot: models.TimeSlotSecond, ExcludeSlotID: slot.ID})
	require.NoError(t, err)
	assert.True(t, free.Available)

	vacant, err := f.svc.CheckAvailability(context.Background(), dto.AvailabilityRequest{Date: models.MustParseDate("2025-01-07"), TimeSlot: models.TimeSlotFirst})
	require.NoError(t, err)
	assert.True(t, vacant.Available)
	assert.Empty(t, vacant.ConflictingSlots)
}

func TestCurriculumServiceMyClassesFollowsRoles(t *testing.T) {
	f := newCurriculumFixture(t)
	f.store.addSlot(models.ClassSlot{SubjectID: f.subject.ID, Title: "Taught", Date: models.MustParseDate("2025-01-07"), TimeSlot: models.TimeSlotFirst, TeacherID: models.Ref("t-1")})
	f.store.addSlot(models.ClassSlot{SubjectID: f.subject.ID, Title: "Translated", Date: models.MustParseDate("2025-01-09"), TimeSlot: models.TimeSlotFirst, TeacherID: models.Ref("t-2"), TranslatorID: models.Ref("t-1")})

	both, err := f.svc.MyClasses(context.Background(), "t-1", models.NewRoleSet(models.RoleTeacher, models.RoleTranslator))
	require.NoError(t, err)
	assert.Len(t, both, 2)

	teaching, err := f.svc.MyClasses(context.Background(), "t-1", models.NewRoleSet(models.RoleTeacher))
	require.NoError(t, err)
	require.Len(t, teaching, 1)
	assert.Equal(t, "Taught", teaching[0].Title)

	none, err := f.svc.MyClasses(context.Background(), "t-1", models.NewRoleSet(models.RoleMentor))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCurriculumServicePreviewCalendar(t *testing.T) {
	f := newCurriculumFixture(t)

	preview, err := f.svc.PreviewCalendar(dto.CalendarPreviewRequest{StartDate: models.MustParseDate("2025-01-09"), ClassCount: 4})
	require.NoError(t, err)
	require.Len(t, preview.Classes, 4)
	assert.Equal(t, "2025-01-09", preview.Classes[0].Date.String())
	assert.Equal(t, "2025-01-14", preview.Classes[2].Date.String())
	assert.Empty(t, f.store.slots)

	_, err = f.svc.PreviewCalendar(dto.CalendarPreviewRequest{ClassCount: 0})
	require.Error(t, err)
}

func TestCurriculumServiceDeleteSubjectAndClass(t *testing.T) {
	f := newCurriculumFixture(t)
	slot := f.store.addSlot(models.ClassSlot{SubjectID: f.subject.ID, Title: "Intro", TimeSlot: models.TimeSlotFirst})

	require.NoError(t, f.svc.DeleteClass(context.Background(), slot.ID))
	err := f.svc.DeleteClass(context.Background(), slot.ID)
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)

	require.NoError(t, f.svc.DeleteSubject(context.Background(), f.subject.ID))
	err = f.svc.DeleteSubject(context.Background(), f.subject.ID)
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)
}

func TestCurriculumServiceUpdateSubjectKeepsClasses(t *testing.T) {
	f := newCurriculumFixture(t)
	f.store.addSlot(models.ClassSlot{SubjectID: f.subject.ID, Title: "Intro", TimeSlot: models.TimeSlotFirst})
	primary := "t-2"

	subject, err := f.svc.UpdateSubject(context.Background(), f.subject.ID, dto.UpdateSubjectRequest{Title: "Exegesis", PrimaryTeacherID: &primary})
	require.NoError(t, err)
	assert.Equal(t, "Exegesis", subject.Title)
	require.NotNil(t, subject.PrimaryTeacherID)
	assert.Len(t, f.store.slots, 1)
}
