package service

import (
	"time"

	"github.com/noah-isme/lms-curriculum-api/internal/models"
)

// classAnchor places the two weekly class days relative to a start date:
// dayA is reached by adding toDayA days, dayB lies toDayB days after dayA.
type classAnchor struct {
	toDayA int
	toDayB int
}

// Classes run on Tuesdays and Thursdays. Whichever of the two comes first on or
// after the start date is day A; the other is day B.
var classAnchors = map[time.Weekday]classAnchor{
	time.Sunday:    {toDayA: 2, toDayB: 2},
	time.Monday:    {toDayA: 1, toDayB: 2},
	time.Tuesday:   {toDayA: 0, toDayB: 2},
	time.Wednesday: {toDayA: 1, toDayB: 5},
	time.Thursday:  {toDayA: 0, toDayB: 5},
	time.Friday:    {toDayA: 4, toDayB: 2},
	time.Saturday:  {toDayA: 3, toDayB: 2},
}

// GenerateClassDates lays out classCount classes two per day, alternating between
// day A and day B of each week. Within a day the first class takes the first
// period and the second class the second period. A zero start date yields
// unscheduled (zero-dated) placements rather than an error.
func GenerateClassDates(start models.Date, classCount int) []models.GeneratedClass {
	if classCount <= 0 {
		return []models.GeneratedClass{}
	}

	out := make([]models.GeneratedClass, classCount)
	anchor := classAnchors[start.Weekday()]
	for i := 0; i < classCount; i++ {
		slot := models.TimeSlotFirst
		if i%2 == 1 {
			slot = models.TimeSlotSecond
		}

		dayIndex := i / 2
		offset := anchor.toDayA + (dayIndex/2)*7
		if dayIndex%2 == 1 {
			offset += anchor.toDayB
		}

		out[i] = models.GeneratedClass{Date: start.AddDays(offset), TimeSlot: slot}
	}
	return out
}
