package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-curriculum-api/internal/dto"
	"github.com/noah-isme/lms-curriculum-api/internal/models"
	"github.com/noah-isme/lms-curriculum-api/pkg/export"
	appErrors "github.com/noah-isme/lms-curriculum-api/pkg/errors"
)

// ExportFormat names an output encoding.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

type courseDetailSource interface {
	Get(ctx context.Context, id string) (*dto.CourseDetail, error)
}

type dashboardSource interface {
	Dashboard(ctx context.Context, mentorID string, asOf models.Date) (*models.MentorshipDashboard, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
}

// ExportService renders course calendars and cadence alerts as downloadable files.
type ExportService struct {
	courses    courseDetailSource
	dashboards dashboardSource
	people     personLookup
	renderers  map[ExportFormat]datasetRenderer
	logger     *zap.Logger
}

// NewExportService constructs an ExportService with CSV and PDF renderers.
func NewExportService(courses courseDetailSource, dashboards dashboardSource, people personLookup, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		courses:    courses,
		dashboards: dashboards,
		people:     people,
		renderers: map[ExportFormat]datasetRenderer{
			ExportFormatCSV: export.NewCSVExporter(),
			ExportFormatPDF: export.NewPDFExporter(),
		},
		logger: logger,
	}
}

// CourseCalendar renders every class of a course in date order.
func (s *ExportService) CourseCalendar(ctx context.Context, courseID string, format ExportFormat) (*ExportFile, error) {
	renderer, err := s.renderer(format)
	if err != nil {
		return nil, err
	}
	detail, err := s.courses.Get(ctx, courseID)
	if err != nil {
		return nil, err
	}

	var classes []dto.ClassView
	subjectTitles := map[string]string{}
	for _, subject := range detail.Subjects {
		subjectTitles[subject.ID] = subject.Title
		classes = append(classes, subject.Classes...)
	}
	sort.SliceStable(classes, func(i, j int) bool {
		a, b := classes[i], classes[j]
		if a.Date.IsZero() != b.Date.IsZero() {
			return b.Date.IsZero()
		}
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return slotOrder(a.TimeSlot) < slotOrder(b.TimeSlot)
	})

	names := newNameResolver(ctx, s.people)
	data := export.Dataset{
		Title:     detail.DisplayName + " class calendar",
		Headers:   []string{"Date", "Weekday", "Hour", "Subject", "Class", "Teacher", "Translator", "Attention"},
		Rows:      make([][]string, 0, len(classes)),
		Highlight: make([]bool, 0, len(classes)),
	}
	for _, class := range classes {
		weekday := ""
		if !class.Date.IsZero() {
			weekday = class.Date.Weekday().String()
		}
		data.Rows = append(data.Rows, []string{
			class.Date.String(),
			weekday,
			string(class.TimeSlot),
			subjectTitles[class.SubjectID],
			class.Title,
			names.name(class.TeacherID),
			names.name(class.TranslatorID),
			strings.Join(class.AttentionReasons, " "),
		})
		data.Highlight = append(data.Highlight, class.NeedsAttention)
	}

	return s.render(renderer, format, data, fmt.Sprintf("calendar-%s-%d", detail.CourseType, detail.GraduationYear))
}

// CadenceAlerts renders the pairs that are not on track.
func (s *ExportService) CadenceAlerts(ctx context.Context, mentorID string, asOf models.Date, format ExportFormat) (*ExportFile, error) {
	renderer, err := s.renderer(format)
	if err != nil {
		return nil, err
	}
	dashboard, err := s.dashboards.Dashboard(ctx, mentorID, asOf)
	if err != nil {
		return nil, err
	}

	data := export.Dataset{
		Title:   "Mentorship cadence alerts " + dashboard.AsOf.String(),
		Headers: []string{"Student", "Course", "Mentor", "Overall", "Score", "Digital", "In person", "Check-ins"},
		Rows:    make([][]string, 0, len(dashboard.Alerts)),
	}
	for _, alert := range dashboard.Alerts {
		mentor := ""
		if alert.MentorName != nil {
			mentor = *alert.MentorName
		}
		data.Rows = append(data.Rows, []string{
			alert.StudentName,
			alert.CourseName,
			mentor,
			string(alert.Cadence.Overall),
			fmt.Sprintf("%.1f", alert.Cadence.Score),
			alert.Cadence.Digital.Message,
			alert.Cadence.InPerson.Message,
			fmt.Sprintf("%d", alert.TotalCheckIns),
		})
	}

	return s.render(renderer, format, data, "cadence-alerts-"+dashboard.AsOf.String())
}

func (s *ExportService) renderer(format ExportFormat) (datasetRenderer, error) {
	if format == "" {
		format = ExportFormatCSV
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	return renderer, nil
}

func (s *ExportService) render(renderer datasetRenderer, format ExportFormat, data export.Dataset, basename string) (*ExportFile, error) {
	if format == "" {
		format = ExportFormatCSV
	}
	payload, err := renderer.Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	s.logger.Debug("export rendered", zap.String("file", basename), zap.Int("rows", len(data.Rows)), zap.Int("bytes", len(payload)))
	return &ExportFile{
		Filename:    fmt.Sprintf("%s.%s", basename, format),
		ContentType: renderer.ContentType(),
		Data:        payload,
	}, nil
}

func slotOrder(slot models.TimeSlot) int {
	switch slot {
	case models.TimeSlotFirst:
		return 0
	case models.TimeSlotSecond:
		return 1
	default:
		return 2
	}
}

// nameResolver memoizes person names for one export.
type nameResolver struct {
	ctx    context.Context
	people personLookup
	names  map[string]string
}

func newNameResolver(ctx context.Context, people personLookup) *nameResolver {
	return &nameResolver{ctx: ctx, people: people, names: map[string]string{}}
}

func (r *nameResolver) name(id *string) string {
	if id == nil {
		return "VACANT"
	}
	if name, ok := r.names[*id]; ok {
		return name
	}
	name := *id
	if r.people != nil {
		if person, err := r.people.FindByID(r.ctx, *id); err == nil {
			name = person.Name
		}
	}
	r.names[*id] = name
	return name
}
