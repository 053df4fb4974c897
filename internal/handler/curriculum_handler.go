package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-curriculum-api/internal/dto"
	"github.com/noah-isme/lms-curriculum-api/internal/models"
	"github.com/noah-isme/lms-curriculum-api/pkg/response"
)

type curriculumService interface {
	CreateSubject(ctx context.Context, courseID string, req dto.CreateSubjectRequest) (*dto.SubjectDetail, error)
	UpdateSubject(ctx context.Context, id string, req dto.UpdateSubjectRequest) (*models.Subject, error)
	DeleteSubject(ctx context.Context, id string) error
	ListClasses(ctx context.Context, subjectID string) ([]dto.ClassView, error)
	CreateClass(ctx context.Context, subjectID string, req dto.ClassRequest) (*dto.ClassView, error)
	UpdateClass(ctx context.Context, id string, req dto.ClassRequest) (*dto.ClassView, error)
	DeleteClass(ctx context.Context, id string) error
	CheckAvailability(ctx context.Context, req dto.AvailabilityRequest) (*dto.AvailabilityResponse, error)
	MyClasses(ctx context.Context, personID string, roles models.RoleSet) ([]dto.ClassView, error)
	PreviewCalendar(req dto.CalendarPreviewRequest) (*dto.CalendarPreviewResponse, error)
}

// CurriculumHandler exposes subjects, class slots and scheduling helpers.
type CurriculumHandler struct {
	service curriculumService
}

// NewCurriculumHandler builds a new handler.
func NewCurriculumHandler(svc curriculumService) *CurriculumHandler {
	return &CurriculumHandler{service: svc}
}

// CreateSubject godoc
// @Summary Create subject and seed its classes
// @Description Classes are laid out on Tuesdays and Thursdays from start_date, two per day.
// @Tags Curriculum
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body dto.CreateSubjectRequest true "Subject payload"
// @Success 201 {object} response.Envelope
// @Router /courses/{id}/subjects [post]
func (h *CurriculumHandler) CreateSubject(c *gin.Context) {
	var req dto.CreateSubjectRequest
	if !bindJSON(c, &req, "invalid subject payload") {
		return
	}
	subject, err := h.service.CreateSubject(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, subject)
}

// UpdateSubject godoc
// @Summary Update subject
// @Tags Curriculum
// @Accept json
// @Produce json
// @Param id path string true "Subject ID"
// @Param payload body dto.UpdateSubjectRequest true "Subject payload"
// @Success 200 {object} response.Envelope
// @Router /subjects/{id} [put]
func (h *CurriculumHandler) UpdateSubject(c *gin.Context) {
	var req dto.UpdateSubjectRequest
	if !bindJSON(c, &req, "invalid subject payload") {
		return
	}
	subject, err := h.service.UpdateSubject(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subject, nil)
}

// DeleteSubject godoc
// @Summary Delete subject and its classes
// @Tags Curriculum
// @Param id path string true "Subject ID"
// @Success 204
// @Router /subjects/{id} [delete]
func (h *CurriculumHandler) DeleteSubject(c *gin.Context) {
	if err := h.service.DeleteSubject(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListClasses godoc
// @Summary List a subject's classes with conflict annotations
// @Tags Curriculum
// @Produce json
// @Param id path string true "Subject ID"
// @Success 200 {object} response.Envelope
// @Router /subjects/{id}/classes [get]
func (h *CurriculumHandler) ListClasses(c *gin.Context) {
	classes, err := h.service.ListClasses(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes, nil)
}

// CreateClass godoc
// @Summary Add a class slot
// @Description Rejected with 409 when the teacher or translator is already booked at an overlapping hour.
// @Tags Curriculum
// @Accept json
// @Produce json
// @Param id path string true "Subject ID"
// @Param payload body dto.ClassRequest true "Class payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /subjects/{id}/classes [post]
func (h *CurriculumHandler) CreateClass(c *gin.Context) {
	var req dto.ClassRequest
	if !bindJSON(c, &req, "invalid class payload") {
		return
	}
	class, err := h.service.CreateClass(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, class)
}

// UpdateClass godoc
// @Summary Edit a class slot
// @Tags Curriculum
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body dto.ClassRequest true "Class payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /classes/{id} [put]
func (h *CurriculumHandler) UpdateClass(c *gin.Context) {
	var req dto.ClassRequest
	if !bindJSON(c, &req, "invalid class payload") {
		return
	}
	class, err := h.service.UpdateClass(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil)
}

// DeleteClass godoc
// @Summary Delete a class slot
// @Tags Curriculum
// @Param id path string true "Class ID"
// @Success 204
// @Router /classes/{id} [delete]
func (h *CurriculumHandler) DeleteClass(c *gin.Context) {
	if err := h.service.DeleteClass(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CheckAvailability godoc
// @Summary Check whether a person is free at a date and hour
// @Tags Curriculum
// @Accept json
// @Produce json
// @Param payload body dto.AvailabilityRequest true "Availability query"
// @Success 200 {object} response.Envelope
// @Router /classes/availability [post]
func (h *CurriculumHandler) CheckAvailability(c *gin.Context) {
	var req dto.AvailabilityRequest
	if !bindJSON(c, &req, "invalid availability payload") {
		return
	}
	result, err := h.service.CheckAvailability(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// MyClasses godoc
// @Summary Classes the caller teaches or translates
// @Tags Curriculum
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /classes/mine [get]
func (h *CurriculumHandler) MyClasses(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	classes, err := h.service.MyClasses(c.Request.Context(), claims.UserID, claims.RoleSet())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes, nil)
}

// PreviewCalendar godoc
// @Summary Preview generated class dates
// @Tags Curriculum
// @Accept json
// @Produce json
// @Param payload body dto.CalendarPreviewRequest true "Preview query"
// @Success 200 {object} response.Envelope
// @Router /calendar/preview [post]
func (h *CurriculumHandler) PreviewCalendar(c *gin.Context) {
	var req dto.CalendarPreviewRequest
	if !bindJSON(c, &req, "invalid preview payload") {
		return
	}
	preview, err := h.service.PreviewCalendar(req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, preview, nil)
}
