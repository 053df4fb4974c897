package service

import (
	"fmt"
	"strings"

	"github.com/noah-isme/lms-curriculum-api/internal/dto"
	"github.com/noah-isme/lms-curriculum-api/internal/models"
	appErrors "github.com/noah-isme/lms-curriculum-api/pkg/errors"
)

// Attention reasons reported on class views.
const (
	AttentionConflict         = "conflict"
	AttentionVacantTeacher    = "vacant_teacher"
	AttentionVacantTranslator = "vacant_translator"
	AttentionUnscheduled      = "unscheduled"
)

// annotateClasses checks every slot against roster and flags the ones needing attention.
func annotateClasses(slots, roster []models.RosterSlot) []dto.ClassView {
	views := make([]dto.ClassView, 0, len(slots))
	for _, slot := range slots {
		views = append(views, annotateClass(slot, roster))
	}
	return views
}

func annotateClass(slot models.RosterSlot, roster []models.RosterSlot) dto.ClassView {
	report := CheckSlot(slot.ClassSlot, roster)
	reasons := []string{}
	if report.HasConflict {
		reasons = append(reasons, AttentionConflict)
	}
	if slot.TeacherID == nil {
		reasons = append(reasons, AttentionVacantTeacher)
	}
	if slot.TranslatorID == nil {
		reasons = append(reasons, AttentionVacantTranslator)
	}
	if slot.Date.IsZero() {
		reasons = append(reasons, AttentionUnscheduled)
	}
	return dto.ClassView{
		RosterSlot:       slot,
		CourseName:       slot.CourseName(),
		Conflicts:        report,
		NeedsAttention:   len(reasons) > 0,
		AttentionReasons: reasons,
	}
}

// conflictSummary renders "{title} ({course}) - {hour} hour" for every hit.
func conflictSummary(result models.ConflictResult) string {
	parts := make([]string, 0, len(result.ConflictingSlots))
	for _, hit := range result.ConflictingSlots {
		parts = append(parts, fmt.Sprintf("%s (%s) - %s hour", hit.Title, hit.CourseName, hit.TimeSlot))
	}
	return strings.Join(parts, ", ")
}

// slotConflictError converts a failing report into a 409 carrying per-role field messages.
func slotConflictError(report models.SlotConflictReport) error {
	fields := map[string]string{}
	if report.Teacher.HasConflict {
		fields["teacher_id"] = "Teacher is already assigned to: " + conflictSummary(report.Teacher)
	}
	if report.Translator.HasConflict {
		fields["translator_id"] = "Translator is already assigned to: " + conflictSummary(report.Translator)
	}

	domainErr := &models.SlotConflictError{
		Message: "class slot would double-book an assigned person",
		Report:  report,
		Fields:  fields,
	}
	appErr := appErrors.Wrap(domainErr, appErrors.ErrDoubleBooking.Code, appErrors.ErrDoubleBooking.Status, domainErr.Message)
	appErr.Details = domainErr
	return appErr
}
