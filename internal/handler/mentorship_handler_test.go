package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-curriculum-api/internal/dto"
	"github.com/noah-isme/lms-curriculum-api/internal/middleware"
	"github.com/noah-isme/lms-curriculum-api/internal/models"
	"github.com/noah-isme/lms-curriculum-api/internal/service"
)

type mentorshipServiceMock struct {
	dashboardMentor string
	dashboardAsOf   models.Date
	createdBy       *models.JWTClaims
}

func (m *mentorshipServiceMock) ListLogs(ctx context.Context, actor *models.JWTClaims, filter models.MentorshipLogFilter) ([]models.MentorshipLog, error) {
	return []models.MentorshipLog{}, nil
}

func (m *mentorshipServiceMock) CreateLog(ctx context.Context, actor *models.JWTClaims, req dto.MentorshipLogRequest) (*models.MentorshipLog, error) {
	m.createdBy = actor
	return &models.MentorshipLog{ID: "log-1", MentorID: actor.UserID, StudentID: req.StudentID}, nil
}

func (m *mentorshipServiceMock) UpdateLog(ctx context.Context, actor *models.JWTClaims, id string, req dto.MentorshipLogRequest) (*models.MentorshipLog, error) {
	return &models.MentorshipLog{ID: id}, nil
}

func (m *mentorshipServiceMock) DeleteLog(ctx context.Context, actor *models.JWTClaims, id string) error {
	return nil
}

func (m *mentorshipServiceMock) Settings() dto.CadenceSettingsResponse {
	return dto.CadenceSettingsResponse{CadenceSettings: models.DefaultCadenceSettings(), Version: 1}
}

func (m *mentorshipServiceMock) UpdateSettings(ctx context.Context, next models.CadenceSettings) (dto.CadenceSettingsResponse, error) {
	return dto.CadenceSettingsResponse{CadenceSettings: next, Version: 2}, nil
}

func (m *mentorshipServiceMock) Dashboard(ctx context.Context, mentorID string, asOf models.Date) (*models.MentorshipDashboard, error) {
	m.dashboardMentor = mentorID
	m.dashboardAsOf = asOf
	return &models.MentorshipDashboard{AsOf: asOf}, nil
}

type alertExporterMock struct {
	format service.ExportFormat
}

func (m *alertExporterMock) CadenceAlerts(ctx context.Context, mentorID string, asOf models.Date, format service.ExportFormat) (*service.ExportFile, error) {
	m.format = format
	return &service.ExportFile{Filename: "cadence-alerts.csv", ContentType: "text/csv; charset=utf-8", Data: []byte("Student\n")}, nil
}

func TestMentorshipHandlerDashboardScopesMentorsToThemselves(t *testing.T) {
	mockSvc := &mentorshipServiceMock{}
	handler := NewMentorshipHandler(mockSvc, &alertExporterMock{})

	c, w := newTestContext(http.MethodGet, "/mentorship/dashboard?mentor_id=someone-else&as_of=2025-03-01", "")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "m-1", Roles: []models.Role{models.RoleMentor}})

	handler.Dashboard(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "m-1", mockSvc.dashboardMentor)
	assert.Equal(t, "2025-03-01", mockSvc.dashboardAsOf.String())
}

func TestMentorshipHandlerDashboardAdministratorScope(t *testing.T) {
	mockSvc := &mentorshipServiceMock{}
	handler := NewMentorshipHandler(mockSvc, &alertExporterMock{})
	admin := &models.JWTClaims{UserID: "admin", Roles: []models.Role{models.RoleAdministrator}}

	c, w := newTestContext(http.MethodGet, "/mentorship/dashboard", "")
	c.Set(middleware.ContextUserKey, admin)
	handler.Dashboard(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "", mockSvc.dashboardMentor)
	assert.True(t, mockSvc.dashboardAsOf.IsZero())

	c, _ = newTestContext(http.MethodGet, "/mentorship/dashboard?mentor_id=m-2", "")
	c.Set(middleware.ContextUserKey, admin)
	handler.Dashboard(c)
	assert.Equal(t, "m-2", mockSvc.dashboardMentor)
}

func TestMentorshipHandlerDashboardRejectsBadDate(t *testing.T) {
	handler := NewMentorshipHandler(&mentorshipServiceMock{}, &alertExporterMock{})

	c, w := newTestContext(http.MethodGet, "/mentorship/dashboard?as_of=yesterday", "")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "m-1", Roles: []models.Role{models.RoleMentor}})
	handler.Dashboard(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMentorshipHandlerCreateLogPassesCaller(t *testing.T) {
	mockSvc := &mentorshipServiceMock{}
	handler := NewMentorshipHandler(mockSvc, &alertExporterMock{})

	c, w := newTestContext(http.MethodPost, "/mentorship/logs", `{"student_id":"s-1","channel":"digital"}`)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "m-1", Roles: []models.Role{models.RoleMentor}})
	handler.CreateLog(c)
	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, mockSvc.createdBy)
	assert.Equal(t, "m-1", mockSvc.createdBy.UserID)
}

func TestMentorshipHandlerExportAlerts(t *testing.T) {
	exporter := &alertExporterMock{}
	handler := NewMentorshipHandler(&mentorshipServiceMock{}, exporter)

	c, w := newTestContext(http.MethodGet, "/mentorship/alerts/export?format=csv", "")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "m-1", Roles: []models.Role{models.RoleMentor}})
	handler.ExportAlerts(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.ExportFormatCSV, exporter.format)
	assert.Equal(t, `attachment; filename="cadence-alerts.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "Student\n", w.Body.String())
}

func TestMentorshipHandlerUpdateSettings(t *testing.T) {
	handler := NewMentorshipHandler(&mentorshipServiceMock{}, &alertExporterMock{})

	c, w := newTestContext(http.MethodPut, "/mentorship/settings",
		`{"digital":{"expected_days":1,"warning_days":2,"critical_days":3},"in_person":{"expected_days":4,"warning_days":5,"critical_days":6}}`)
	handler.UpdateSettings(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"version":2`)
	assert.Contains(t, w.Body.String(), `"critical_days":6`)
}
