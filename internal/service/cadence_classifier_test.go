package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-curriculum-api/internal/models"
)

func checkIn(student string, channel models.Channel, date models.Date) models.MentorshipLog {
	return models.MentorshipLog{StudentID: student, MentorID: "mentor-1", Channel: channel, Date: date}
}

func TestClassifyCadenceMixedChannels(t *testing.T) {
	today := models.MustParseDate("2024-10-01")
	logs := []models.MentorshipLog{
		checkIn("student-1", models.ChannelDigital, today.AddDays(-30)),
		checkIn("student-1", models.ChannelDigital, today.AddDays(-12)),
		checkIn("student-1", models.ChannelInPerson, today.AddDays(-20)),
		checkIn("student-2", models.ChannelDigital, today),
	}

	report := ClassifyCadence("student-1", logs, models.DefaultCadenceSettings(), today)

	assert.Equal(t, models.RiskLagging, report.Digital.Status)
	assert.Equal(t, 12, report.Digital.DaysSinceLastCheckIn)
	assert.Equal(t, "12d ago", report.Digital.Message)
	assert.Equal(t, models.RiskOnTrack, report.InPerson.Status)
	assert.Equal(t, "20d ago", report.InPerson.Message)
	assert.InDelta(t, 1.5, report.Score, 1e-9)
	assert.Equal(t, models.RiskLagging, report.Overall)
}

func TestClassifyCadenceNoLogs(t *testing.T) {
	report := ClassifyCadence("student-1", nil, models.DefaultCadenceSettings(), models.MustParseDate("2024-10-01"))

	assert.Equal(t, models.RiskAtRisk, report.Digital.Status)
	assert.Equal(t, models.RiskAtRisk, report.InPerson.Status)
	assert.Equal(t, "No check-ins", report.Digital.Message)
	assert.Equal(t, NoCheckIn, report.InPerson.DaysSinceLastCheckIn)
	assert.True(t, report.Digital.LastCheckIn.IsZero())
	assert.Equal(t, models.RiskAtRisk, report.Overall)
	assert.Zero(t, report.Score)
}

func TestClassifyCadenceCriticalBoundary(t *testing.T) {
	today := models.MustParseDate("2024-10-01")
	settings := models.DefaultCadenceSettings()
	logs := []models.MentorshipLog{
		checkIn("s", models.ChannelDigital, today.AddDays(-14)),
		checkIn("s", models.ChannelInPerson, today.AddDays(-1)),
	}

	report := ClassifyCadence("s", logs, settings, today)

	assert.Equal(t, models.RiskAtRisk, report.Digital.Status)
	assert.Equal(t, "14d overdue", report.Digital.Message)
	assert.InDelta(t, 1.0, report.Score, 1e-9)
	assert.Equal(t, models.RiskLagging, report.Overall)
}

func TestClassifyCadenceOverallMapping(t *testing.T) {
	today := models.MustParseDate("2024-10-01")
	settings := models.DefaultCadenceSettings()

	onTrack := []models.MentorshipLog{
		checkIn("s", models.ChannelDigital, today.AddDays(-1)),
		checkIn("s", models.ChannelInPerson, today.AddDays(-1)),
	}
	assert.Equal(t, models.RiskOnTrack, ClassifyCadence("s", onTrack, settings, today).Overall)

	halfAtRisk := []models.MentorshipLog{checkIn("s", models.ChannelDigital, today.AddDays(-10))}
	report := ClassifyCadence("s", halfAtRisk, settings, today)
	assert.InDelta(t, 0.5, report.Score, 1e-9)
	assert.Equal(t, models.RiskAtRisk, report.Overall)
}

func TestClassifyCadenceMonotoneInDays(t *testing.T) {
	today := models.MustParseDate("2024-10-01")
	settings := models.DefaultCadenceSettings()
	rank := map[models.RiskLevel]int{models.RiskOnTrack: 0, models.RiskLagging: 1, models.RiskAtRisk: 2}

	previous := -1
	for days := 0; days <= 60; days++ {
		logs := []models.MentorshipLog{checkIn("s", models.ChannelDigital, today.AddDays(-days))}
		status := ClassifyCadence("s", logs, settings, today).Digital.Status
		require.GreaterOrEqual(t, rank[status], previous, "risk dropped at %d days", days)
		previous = rank[status]
	}
}

func TestClassifyCadenceInvertedThresholdsFollowComparisonOrder(t *testing.T) {
	today := models.MustParseDate("2024-10-01")
	settings := models.DefaultCadenceSettings()
	settings.Digital = models.CadenceThresholds{ExpectedDays: 1, WarningDays: 20, CriticalDays: 5}
	logs := []models.MentorshipLog{checkIn("s", models.ChannelDigital, today.AddDays(-6))}

	report := ClassifyCadence("s", logs, settings, today)

	assert.Equal(t, models.RiskAtRisk, report.Digital.Status)
}

func TestClassifyCadenceIsPure(t *testing.T) {
	today := models.MustParseDate("2024-10-01")
	logs := []models.MentorshipLog{
		checkIn("s", models.ChannelInPerson, today.AddDays(-40)),
		checkIn("s", models.ChannelInPerson, today.AddDays(-36)),
	}
	snapshot := append([]models.MentorshipLog(nil), logs...)

	first := ClassifyCadence("s", logs, models.DefaultCadenceSettings(), today)
	second := ClassifyCadence("s", logs, models.DefaultCadenceSettings(), today)

	assert.Equal(t, first, second)
	assert.Equal(t, snapshot, logs)
	assert.Equal(t, models.RiskLagging, first.InPerson.Status)
	assert.Equal(t, 36, first.InPerson.DaysSinceLastCheckIn)
}
