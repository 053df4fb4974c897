package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-curriculum-api/internal/dto"
	"github.com/noah-isme/lms-curriculum-api/internal/models"
	"github.com/noah-isme/lms-curriculum-api/pkg/response"
)

type enrollmentService interface {
	Assign(ctx context.Context, courseID string, req dto.AssignStudentRequest) (*models.Enrollment, error)
	Remove(ctx context.Context, courseID string, req dto.RemoveStudentRequest) error
	ListByCourse(ctx context.Context, courseID string) ([]models.MentorshipPair, error)
	Mentees(ctx context.Context, mentorID string) ([]models.MentorshipPair, error)
	MyCourse(ctx context.Context, studentID string) (*dto.MyCourse, error)
}

// EnrollmentHandler manages course students and mentor assignments.
type EnrollmentHandler struct {
	service enrollmentService
}

// NewEnrollmentHandler builds a new handler.
func NewEnrollmentHandler(svc enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{service: svc}
}

// List godoc
// @Summary List a course's students
// @Tags Enrollments
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/students [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	students, err := h.service.ListByCourse(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}

// Assign godoc
// @Summary Enroll a student, optionally with a mentor
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body dto.AssignStudentRequest true "Enrollment payload"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/students [post]
func (h *EnrollmentHandler) Assign(c *gin.Context) {
	var req dto.AssignStudentRequest
	if !bindJSON(c, &req, "invalid enrollment payload") {
		return
	}
	enrollment, err := h.service.Assign(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// Remove godoc
// @Summary Remove a student from a course
// @Tags Enrollments
// @Accept json
// @Param id path string true "Course ID"
// @Param payload body dto.RemoveStudentRequest true "Student to remove"
// @Success 204
// @Router /courses/{id}/students [delete]
func (h *EnrollmentHandler) Remove(c *gin.Context) {
	var req dto.RemoveStudentRequest
	if !bindJSON(c, &req, "invalid enrollment payload") {
		return
	}
	if err := h.service.Remove(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Mentees godoc
// @Summary Students mentored by the caller
// @Tags Enrollments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /mentees [get]
func (h *EnrollmentHandler) Mentees(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	students, err := h.service.Mentees(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}

// MyCourse godoc
// @Summary The caller's course, mentor and latest check-in
// @Tags Enrollments
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/mine [get]
func (h *EnrollmentHandler) MyCourse(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	view, err := h.service.MyCourse(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}
