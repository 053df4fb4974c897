package service

import (
	"github.com/noah-isme/lms-curriculum-api/internal/models"
)

// CheckConflict scans the roster for slots that already book person on date during an
// overlapping period. The slot identified by excludeSlotID is skipped so a slot can be
// edited in place. A vacant person and an unscheduled date never conflict.
func CheckConflict(person *string, date models.Date, slot models.TimeSlot, roster []models.RosterSlot, excludeSlotID string) models.ConflictResult {
	result := models.ConflictResult{ConflictingSlots: []models.ConflictingSlot{}}
	if person == nil || date.IsZero() {
		return result
	}

	for _, existing := range roster {
		if excludeSlotID != "" && existing.ID == excludeSlotID {
			continue
		}
		if !existing.Date.Equal(date) {
			continue
		}

		var role models.ConflictRole
		switch {
		case models.SamePerson(existing.TeacherID, person):
			role = models.ConflictRoleTeacher
		case models.SamePerson(existing.TranslatorID, person):
			role = models.ConflictRoleTranslator
		default:
			continue
		}

		if !slot.Overlaps(existing.TimeSlot) {
			continue
		}

		result.ConflictingSlots = append(result.ConflictingSlots, models.ConflictingSlot{
			SlotID:       existing.ID,
			Title:        existing.Title,
			Date:         existing.Date,
			TimeSlot:     existing.TimeSlot,
			SubjectID:    existing.SubjectID,
			SubjectTitle: existing.SubjectTitle,
			CourseID:     existing.CourseID,
			CourseName:   existing.CourseName(),
			Role:         role,
		})
	}

	result.HasConflict = len(result.ConflictingSlots) > 0
	return result
}

// CheckSlot runs CheckConflict independently for the teacher and the translator of
// candidate. The candidate's own id is excluded from the scan.
func CheckSlot(candidate models.ClassSlot, roster []models.RosterSlot) models.SlotConflictReport {
	report := models.SlotConflictReport{
		Teacher:    CheckConflict(candidate.TeacherID, candidate.Date, candidate.TimeSlot, roster, candidate.ID),
		Translator: CheckConflict(candidate.TranslatorID, candidate.Date, candidate.TimeSlot, roster, candidate.ID),
	}
	report.HasConflict = report.Teacher.HasConflict || report.Translator.HasConflict
	return report
}
