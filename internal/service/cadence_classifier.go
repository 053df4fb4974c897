package service

import (
	"fmt"
	"math"

	"github.com/noah-isme/lms-curriculum-api/internal/models"
)

// NoCheckIn is the days-since value reported for a channel that has never been used.
const NoCheckIn = math.MaxInt32

const channelWeight = 0.5

// ClassifyCadence scores a student's check-in recency on each channel against the
// given thresholds and combines both channels with equal weight. asOf is the day
// the classification is made for. The function holds no state.
func ClassifyCadence(studentID string, logs []models.MentorshipLog, settings models.CadenceSettings, asOf models.Date) models.CadenceReport {
	digital := classifyChannel(studentID, models.ChannelDigital, logs, settings.Digital, asOf)
	inPerson := classifyChannel(studentID, models.ChannelInPerson, logs, settings.InPerson, asOf)

	score := channelWeight*riskScore(digital.Status) + channelWeight*riskScore(inPerson.Status)
	return models.CadenceReport{
		StudentID: studentID,
		Digital:   digital,
		InPerson:  inPerson,
		Overall:   riskFromScore(score),
		Score:     score,
	}
}

func classifyChannel(studentID string, channel models.Channel, logs []models.MentorshipLog, thresholds models.CadenceThresholds, asOf models.Date) models.ChannelStatus {
	var last models.Date
	for _, entry := range logs {
		if entry.StudentID != studentID || entry.Channel != channel || entry.Date.IsZero() {
			continue
		}
		if last.IsZero() || last.Before(entry.Date) {
			last = entry.Date
		}
	}

	status := models.ChannelStatus{Channel: channel, LastCheckIn: last}
	if last.IsZero() {
		status.Status = models.RiskAtRisk
		status.DaysSinceLastCheckIn = NoCheckIn
		status.Message = "No check-ins"
		return status
	}

	days := asOf.DaysSince(last)
	status.DaysSinceLastCheckIn = days
	switch {
	case days >= thresholds.CriticalDays:
		status.Status = models.RiskAtRisk
		status.Message = fmt.Sprintf("%dd overdue", days)
	case days >= thresholds.WarningDays:
		status.Status = models.RiskLagging
		status.Message = fmt.Sprintf("%dd ago", days)
	default:
		status.Status = models.RiskOnTrack
		status.Message = fmt.Sprintf("%dd ago", days)
	}
	return status
}

func riskScore(level models.RiskLevel) float64 {
	switch level {
	case models.RiskOnTrack:
		return 2
	case models.RiskLagging:
		return 1
	default:
		return 0
	}
}

func riskFromScore(score float64) models.RiskLevel {
	switch {
	case score <= 0.5:
		return models.RiskAtRisk
	case score <= 1.5:
		return models.RiskLagging
	default:
		return models.RiskOnTrack
	}
}
