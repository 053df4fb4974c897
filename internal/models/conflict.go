package models

// ConflictRole is the role a person holds in a conflicting slot.
type ConflictRole string

const (
	ConflictRoleTeacher    ConflictRole = "Teacher"
	ConflictRoleTranslator ConflictRole = "Translator"
)

// ConflictingSlot is an existing slot that already books the queried person.
type ConflictingSlot struct {
	SlotID       string       `json:"slot_id"`
	Title        string       `json:"title"`
	Date         Date         `json:"date"`
	TimeSlot     TimeSlot     `json:"time_slot"`
	SubjectID    string       `json:"subject_id"`
	SubjectTitle string       `json:"subject_title"`
	CourseID     string       `json:"course_id"`
	CourseName   string       `json:"course_name"`
	Role         ConflictRole `json:"role"`
}

// ConflictResult is the outcome of a single person/date/period check.
type ConflictResult struct {
	HasConflict      bool              `json:"has_conflict"`
	ConflictingSlots []ConflictingSlot `json:"conflicting_slots"`
}

// SlotConflictReport holds independent checks for both role holders of a slot.
type SlotConflictReport struct {
	Teacher     ConflictResult `json:"teacher"`
	Translator  ConflictResult `json:"translator"`
	HasConflict bool           `json:"has_conflict"`
}

// SlotConflictError is returned when a slot edit would double-book someone.
type SlotConflictError struct {
	Message string             `json:"message"`
	Report  SlotConflictReport `json:"report"`
	Fields  map[string]string  `json:"fields"`
}

// Error implements the error interface for conflict errors.
func (e *SlotConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}
