package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-curriculum-api/internal/dto"
	"github.com/noah-isme/lms-curriculum-api/internal/models"
	appErrors "github.com/noah-isme/lms-curriculum-api/pkg/errors"
)

type stubCourseDetail struct {
	detail *dto.CourseDetail
}

func (s stubCourseDetail) Get(ctx context.Context, id string) (*dto.CourseDetail, error) {
	if s.detail == nil || s.detail.ID != id {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	return s.detail, nil
}

type stubDashboards struct {
	dashboard *models.MentorshipDashboard
	mentorID  string
}

func (s *stubDashboards) Dashboard(ctx context.Context, mentorID string, asOf models.Date) (*models.MentorshipDashboard, error) {
	s.mentorID = mentorID
	return s.dashboard, nil
}

func exportCourseFixture() *dto.CourseDetail {
	course := models.Course{ID: "course-1", CourseType: models.CourseTypeFirstYear, GraduationYear: 2026}
	view := func(id, date string, slot models.TimeSlot, teacher, translator string, attention ...string) dto.ClassView {
		return dto.ClassView{
			RosterSlot: models.RosterSlot{ClassSlot: models.ClassSlot{
				ID: id, SubjectID: "subject-1", Title: "Class " + id, Date: models.MustParseDate(date),
				TimeSlot: slot, TeacherID: models.Ref(teacher), TranslatorID: models.Ref(translator),
			}},
			NeedsAttention:   len(attention) > 0,
			AttentionReasons: attention,
		}
	}
	return &dto.CourseDetail{
		CourseSummary: dto.CourseSummary{Course: course, DisplayName: course.DisplayName()},
		Subjects: []dto.SubjectDetail{{
			Subject: models.Subject{ID: "subject-1", CourseID: "course-1", Title: "Hermeneutics"},
			Classes: []dto.ClassView{
				view("2", "2025-01-09", models.TimeSlotFirst, "t-1", "", AttentionVacantTranslator),
				view("3", "", models.TimeSlotBoth, "", "", AttentionUnscheduled),
				view("1", "2025-01-07", models.TimeSlotSecond, "t-1", "tr-1"),
			},
		}},
	}
}

func TestExportServiceCourseCalendarCSV(t *testing.T) {
	people := newMemoryUserRepo(
		models.User{ID: "t-1", Name: "Tom Teacher"},
		models.User{ID: "tr-1", Name: "Tia Translator"},
	)
	svc := NewExportService(stubCourseDetail{detail: exportCourseFixture()}, &stubDashboards{}, people, zap.NewNop())

	file, err := svc.CourseCalendar(context.Background(), "course-1", ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "calendar-first_year-2026.csv", file.Filename)
	assert.Contains(t, file.ContentType, "text/csv")

	records, err := csv.NewReader(bytes.NewReader(file.Data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, "Date", records[0][0])
	assert.Equal(t, []string{"2025-01-07", "Tuesday", "second", "Hermeneutics", "Class 1", "Tom Teacher", "Tia Translator", ""}, records[1])
	assert.Equal(t, "VACANT", records[2][6])
	assert.Equal(t, "", records[3][0])
	assert.Equal(t, "VACANT", records[3][5])
}

func TestExportServiceCourseCalendarPDF(t *testing.T) {
	svc := NewExportService(stubCourseDetail{detail: exportCourseFixture()}, &stubDashboards{}, nil, nil)

	file, err := svc.CourseCalendar(context.Background(), "course-1", ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Data, []byte("%PDF")))
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	svc := NewExportService(stubCourseDetail{detail: exportCourseFixture()}, &stubDashboards{}, nil, nil)

	_, err := svc.CourseCalendar(context.Background(), "course-1", ExportFormat("xlsx"))
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
}

func TestExportServiceCourseCalendarMissingCourse(t *testing.T) {
	svc := NewExportService(stubCourseDetail{}, &stubDashboards{}, nil, nil)

	_, err := svc.CourseCalendar(context.Background(), "missing", ExportFormatCSV)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)
}

func TestExportServiceCadenceAlerts(t *testing.T) {
	mentor := "Maya Mentor"
	dashboards := &stubDashboards{dashboard: &models.MentorshipDashboard{
		AsOf: models.MustParseDate("2025-03-01"),
		Alerts: []models.PairCadence{{
			MentorshipPair: models.MentorshipPair{StudentName: "Sam", CourseName: "First Year 2026", MentorName: &mentor},
			TotalCheckIns:  2,
			Cadence: models.CadenceReport{
				Overall:  models.RiskAtRisk,
				Digital:  models.ChannelStatus{Message: "20d overdue"},
				InPerson: models.ChannelStatus{Message: "No check-ins"},
			},
		}},
	}}
	svc := NewExportService(stubCourseDetail{}, dashboards, nil, nil)

	file, err := svc.CadenceAlerts(context.Background(), "mentor-1", models.MustParseDate("2025-03-01"), "")
	require.NoError(t, err)
	assert.Equal(t, "mentor-1", dashboards.mentorID)
	assert.Equal(t, "cadence-alerts-2025-03-01.csv", file.Filename)

	records, err := csv.NewReader(bytes.NewReader(file.Data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"Sam", "First Year 2026", "Maya Mentor", "at_risk", "0.0", "20d overdue", "No check-ins", "2"}, records[1])
}
