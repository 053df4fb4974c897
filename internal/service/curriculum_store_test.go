package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/noah-isme/lms-curriculum-api/internal/models"
)

// curriculumStore backs the in-memory course, subject and class repositories used by
// the service tests.
type curriculumStore struct {
	courses  map[string]models.Course
	subjects map[string]models.Subject
	slots    map[string]models.ClassSlot
	seq      int
}

func newCurriculumStore() *curriculumStore {
	return &curriculumStore{
		courses:  map[string]models.Course{},
		subjects: map[string]models.Subject{},
		slots:    map[string]models.ClassSlot{},
	}
}

func (s *curriculumStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *curriculumStore) addCourse(course models.Course) models.Course {
	if course.ID == "" {
		course.ID = s.nextID("course")
	}
	s.courses[course.ID] = course
	return course
}

func (s *curriculumStore) addSubject(subject models.Subject) models.Subject {
	if subject.ID == "" {
		subject.ID = s.nextID("subject")
	}
	s.subjects[subject.ID] = subject
	return subject
}

func (s *curriculumStore) addSlot(slot models.ClassSlot) models.ClassSlot {
	if slot.ID == "" {
		slot.ID = s.nextID("slot")
	}
	s.slots[slot.ID] = slot
	return slot
}

func (s *curriculumStore) roster(keep func(models.RosterSlot) bool) []models.RosterSlot {
	out := []models.RosterSlot{}
	for _, slot := range s.slots {
		subject := s.subjects[slot.SubjectID]
		course := s.courses[subject.CourseID]
		row := models.RosterSlot{
			ClassSlot:      slot,
			CourseID:       course.ID,
			CourseType:     course.CourseType,
			GraduationYear: course.GraduationYear,
			SubjectTitle:   subject.Title,
		}
		if keep == nil || keep(row) {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type memoryCourses struct{ store *curriculumStore }

func (m memoryCourses) List(ctx context.Context) ([]models.Course, error) {
	out := []models.Course{}
	for _, c := range m.store.courses {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memoryCourses) FindByID(ctx context.Context, id string) (*models.Course, error) {
	c, ok := m.store.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

func (m memoryCourses) FindByTypeAndYear(ctx context.Context, courseType models.CourseType, year int) (*models.Course, error) {
	for _, c := range m.store.courses {
		if c.CourseType == courseType && c.GraduationYear == year {
			found := c
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m memoryCourses) Create(ctx context.Context, course *models.Course) error {
	*course = m.store.addCourse(*course)
	return nil
}

func (m memoryCourses) Update(ctx context.Context, course *models.Course) error {
	if _, ok := m.store.courses[course.ID]; !ok {
		return sql.ErrNoRows
	}
	m.store.courses[course.ID] = *course
	return nil
}

func (m memoryCourses) Delete(ctx context.Context, id string) error {
	if _, ok := m.store.courses[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.store.courses, id)
	return nil
}

type memorySubjects struct{ store *curriculumStore }

func (m memorySubjects) ListByCourse(ctx context.Context, courseID string) ([]models.Subject, error) {
	out := []models.Subject{}
	for _, subject := range m.store.subjects {
		if subject.CourseID == courseID {
			out = append(out, subject)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memorySubjects) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	subject, ok := m.store.subjects[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &subject, nil
}

func (m memorySubjects) CreateWithClasses(ctx context.Context, subject *models.Subject, classes []models.ClassSlot) error {
	*subject = m.store.addSubject(*subject)
	for i := range classes {
		classes[i].SubjectID = subject.ID
		classes[i] = m.store.addSlot(classes[i])
	}
	return nil
}

func (m memorySubjects) Update(ctx context.Context, subject *models.Subject) error {
	if _, ok := m.store.subjects[subject.ID]; !ok {
		return sql.ErrNoRows
	}
	m.store.subjects[subject.ID] = *subject
	return nil
}

func (m memorySubjects) Delete(ctx context.Context, id string) error {
	if _, ok := m.store.subjects[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.store.subjects, id)
	for slotID, slot := range m.store.slots {
		if slot.SubjectID == id {
			delete(m.store.slots, slotID)
		}
	}
	return nil
}

type memoryClasses struct{ store *curriculumStore }

func (m memoryClasses) FindByID(ctx context.Context, id string) (*models.RosterSlot, error) {
	rows := m.store.roster(func(r models.RosterSlot) bool { return r.ID == id })
	if len(rows) == 0 {
		return nil, sql.ErrNoRows
	}
	return &rows[0], nil
}

func (m memoryClasses) ListBySubject(ctx context.Context, subjectID string) ([]models.RosterSlot, error) {
	return m.store.roster(func(r models.RosterSlot) bool { return r.SubjectID == subjectID }), nil
}

func (m memoryClasses) ListByCourse(ctx context.Context, courseID string) ([]models.RosterSlot, error) {
	return m.store.roster(func(r models.RosterSlot) bool { return r.CourseID == courseID }), nil
}

func (m memoryClasses) ListRoster(ctx context.Context) ([]models.RosterSlot, error) {
	return m.store.roster(nil), nil
}

func (m memoryClasses) ListRosterByDate(ctx context.Context, date models.Date) ([]models.RosterSlot, error) {
	if date.IsZero() {
		return []models.RosterSlot{}, nil
	}
	return m.store.roster(func(r models.RosterSlot) bool { return r.Date.Equal(date) }), nil
}

func (m memoryClasses) ListByPerson(ctx context.Context, personID string, asTeacher, asTranslator bool) ([]models.RosterSlot, error) {
	return m.store.roster(func(r models.RosterSlot) bool {
		return (asTeacher && r.TeacherID != nil && *r.TeacherID == personID) ||
			(asTranslator && r.TranslatorID != nil && *r.TranslatorID == personID)
	}), nil
}

func (m memoryClasses) SaveChecked(ctx context.Context, slot *models.ClassSlot, create bool, check func([]models.RosterSlot) error) error {
	if !create {
		if _, ok := m.store.slots[slot.ID]; !ok {
			return sql.ErrNoRows
		}
	}
	roster, _ := m.ListRosterByDate(ctx, slot.Date)
	if err := check(roster); err != nil {
		return err
	}
	*slot = m.store.addSlot(*slot)
	return nil
}

func (m memoryClasses) Delete(ctx context.Context, id string) error {
	if _, ok := m.store.slots[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.store.slots, id)
	return nil
}
