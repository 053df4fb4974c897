package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-curriculum-api/internal/dto"
	"github.com/noah-isme/lms-curriculum-api/internal/service"
	"github.com/noah-isme/lms-curriculum-api/pkg/response"
)

type courseService interface {
	List(ctx context.Context) ([]dto.CourseSummary, error)
	Get(ctx context.Context, id string) (*dto.CourseDetail, error)
	Create(ctx context.Context, req dto.CourseRequest) (*dto.CourseSummary, error)
	Update(ctx context.Context, id string, req dto.CourseRequest) (*dto.CourseSummary, error)
	Delete(ctx context.Context, id string) error
	Calendar(ctx context.Context, id string) (*dto.CourseSummary, []service.CalendarDay, error)
}

type calendarExporter interface {
	CourseCalendar(ctx context.Context, courseID string, format service.ExportFormat) (*service.ExportFile, error)
}

// CourseHandler exposes course management and the course calendar.
type CourseHandler struct {
	service  courseService
	exporter calendarExporter
}

// NewCourseHandler builds a new handler.
func NewCourseHandler(svc courseService, exporter calendarExporter) *CourseHandler {
	return &CourseHandler{service: svc, exporter: exporter}
}

// List godoc
// @Summary List courses
// @Tags Courses
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	courses, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil)
}

// Get godoc
// @Summary Get course with subjects and classes
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	detail, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Create godoc
// @Summary Create course
// @Tags Courses
// @Accept json
// @Produce json
// @Param payload body dto.CourseRequest true "Course payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	var req dto.CourseRequest
	if !bindJSON(c, &req, "invalid course payload") {
		return
	}
	course, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// Update godoc
// @Summary Update course
// @Tags Courses
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body dto.CourseRequest true "Course payload"
// @Success 200 {object} response.Envelope
// @Router /courses/{id} [put]
func (h *CourseHandler) Update(c *gin.Context) {
	var req dto.CourseRequest
	if !bindJSON(c, &req, "invalid course payload") {
		return
	}
	course, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Delete godoc
// @Summary Delete course
// @Tags Courses
// @Param id path string true "Course ID"
// @Success 204
// @Router /courses/{id} [delete]
func (h *CourseHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Calendar godoc
// @Summary Course calendar
// @Description Classes grouped by date and hour. With format=csv or format=pdf the calendar is downloaded instead.
// @Tags Courses
// @Produce json
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Course ID"
// @Param format query string false "csv or pdf"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/calendar [get]
func (h *CourseHandler) Calendar(c *gin.Context) {
	if format := strings.ToLower(c.Query("format")); format != "" && format != "json" {
		file, err := h.exporter.CourseCalendar(c.Request.Context(), c.Param("id"), service.ExportFormat(format))
		if err != nil {
			response.Error(c, err)
			return
		}
		sendFile(c, file)
		return
	}

	course, days, err := h.service.Calendar(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, days, nil, map[string]interface{}{"course": course})
}

func sendFile(c *gin.Context, file *service.ExportFile) {
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}
