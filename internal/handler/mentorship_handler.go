package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-curriculum-api/internal/dto"
	"github.com/noah-isme/lms-curriculum-api/internal/models"
	"github.com/noah-isme/lms-curriculum-api/internal/service"
	"github.com/noah-isme/lms-curriculum-api/pkg/response"
)

type mentorshipService interface {
	ListLogs(ctx context.Context, actor *models.JWTClaims, filter models.MentorshipLogFilter) ([]models.MentorshipLog, error)
	CreateLog(ctx context.Context, actor *models.JWTClaims, req dto.MentorshipLogRequest) (*models.MentorshipLog, error)
	UpdateLog(ctx context.Context, actor *models.JWTClaims, id string, req dto.MentorshipLogRequest) (*models.MentorshipLog, error)
	DeleteLog(ctx context.Context, actor *models.JWTClaims, id string) error
	Settings() dto.CadenceSettingsResponse
	UpdateSettings(ctx context.Context, next models.CadenceSettings) (dto.CadenceSettingsResponse, error)
	Dashboard(ctx context.Context, mentorID string, asOf models.Date) (*models.MentorshipDashboard, error)
}

type alertExporter interface {
	CadenceAlerts(ctx context.Context, mentorID string, asOf models.Date, format service.ExportFormat) (*service.ExportFile, error)
}

// MentorshipHandler exposes check-in logs, cadence settings and the cadence dashboard.
type MentorshipHandler struct {
	service  mentorshipService
	exporter alertExporter
}

// NewMentorshipHandler builds a new handler.
func NewMentorshipHandler(svc mentorshipService, exporter alertExporter) *MentorshipHandler {
	return &MentorshipHandler{service: svc, exporter: exporter}
}

// ListLogs godoc
// @Summary List check-ins
// @Description Mentors see their own check-ins; administrators see all.
// @Tags Mentorship
// @Produce json
// @Param mentor_id query string false "Mentor filter (administrators)"
// @Param student_id query string false "Student filter"
// @Param channel query string false "digital or in_person"
// @Success 200 {object} response.Envelope
// @Router /mentorship/logs [get]
func (h *MentorshipHandler) ListLogs(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	filter := models.MentorshipLogFilter{
		MentorID:  c.Query("mentor_id"),
		StudentID: c.Query("student_id"),
		Channel:   models.Channel(c.Query("channel")),
	}
	logs, err := h.service.ListLogs(c.Request.Context(), claims, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, nil)
}

// CreateLog godoc
// @Summary Record a check-in
// @Tags Mentorship
// @Accept json
// @Produce json
// @Param payload body dto.MentorshipLogRequest true "Check-in"
// @Success 201 {object} response.Envelope
// @Router /mentorship/logs [post]
func (h *MentorshipHandler) CreateLog(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.MentorshipLogRequest
	if !bindJSON(c, &req, "invalid mentorship log payload") {
		return
	}
	log, err := h.service.CreateLog(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, log)
}

// UpdateLog godoc
// @Summary Edit a check-in
// @Tags Mentorship
// @Accept json
// @Produce json
// @Param id path string true "Log ID"
// @Param payload body dto.MentorshipLogRequest true "Check-in"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /mentorship/logs/{id} [put]
func (h *MentorshipHandler) UpdateLog(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.MentorshipLogRequest
	if !bindJSON(c, &req, "invalid mentorship log payload") {
		return
	}
	log, err := h.service.UpdateLog(c.Request.Context(), claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, log, nil)
}

// DeleteLog godoc
// @Summary Delete a check-in
// @Tags Mentorship
// @Param id path string true "Log ID"
// @Success 204
// @Router /mentorship/logs/{id} [delete]
func (h *MentorshipHandler) DeleteLog(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	if err := h.service.DeleteLog(c.Request.Context(), claims, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Settings godoc
// @Summary Active cadence thresholds
// @Tags Mentorship
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /mentorship/settings [get]
func (h *MentorshipHandler) Settings(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Settings(), nil)
}

// UpdateSettings godoc
// @Summary Replace cadence thresholds
// @Tags Mentorship
// @Accept json
// @Produce json
// @Param payload body models.CadenceSettings true "Thresholds in days"
// @Success 200 {object} response.Envelope
// @Router /mentorship/settings [put]
func (h *MentorshipHandler) UpdateSettings(c *gin.Context) {
	var req models.CadenceSettings
	if !bindJSON(c, &req, "invalid cadence settings payload") {
		return
	}
	settings, err := h.service.UpdateSettings(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}

// Dashboard godoc
// @Summary Cadence dashboard
// @Description Mentors see their own pairs; administrators see every pair unless mentor_id is given.
// @Tags Mentorship
// @Produce json
// @Param mentor_id query string false "Mentor filter (administrators)"
// @Param as_of query string false "Classification day, YYYY-MM-DD (defaults to today)"
// @Success 200 {object} response.Envelope
// @Router /mentorship/dashboard [get]
func (h *MentorshipHandler) Dashboard(c *gin.Context) {
	mentorID, asOf, ok := h.dashboardScope(c)
	if !ok {
		return
	}
	dashboard, err := h.service.Dashboard(c.Request.Context(), mentorID, asOf)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dashboard, nil)
}

// ExportAlerts godoc
// @Summary Download cadence alerts
// @Tags Mentorship
// @Produce text/csv
// @Param mentor_id query string false "Mentor filter (administrators)"
// @Param as_of query string false "Classification day, YYYY-MM-DD"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Router /mentorship/alerts/export [get]
func (h *MentorshipHandler) ExportAlerts(c *gin.Context) {
	mentorID, asOf, ok := h.dashboardScope(c)
	if !ok {
		return
	}
	file, err := h.exporter.CadenceAlerts(c.Request.Context(), mentorID, asOf, service.ExportFormat(c.Query("format")))
	if err != nil {
		response.Error(c, err)
		return
	}
	sendFile(c, file)
}

// dashboardScope resolves which mentor's pairs the caller may see.
func (h *MentorshipHandler) dashboardScope(c *gin.Context) (string, models.Date, bool) {
	claims := requireClaims(c)
	if claims == nil {
		return "", models.Date{}, false
	}
	asOf, ok := dateQuery(c, "as_of")
	if !ok {
		return "", models.Date{}, false
	}
	mentorID := claims.UserID
	if claims.RoleSet().Has(models.RoleAdministrator) {
		mentorID = c.Query("mentor_id")
	}
	return mentorID, asOf, true
}
