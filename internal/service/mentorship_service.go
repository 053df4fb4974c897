package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-curriculum-api/internal/dto"
	"github.com/noah-isme/lms-curriculum-api/internal/models"
	appErrors "github.com/noah-isme/lms-curriculum-api/pkg/errors"
)

// DashboardCachePattern matches every memoized dashboard entry.
const DashboardCachePattern = "mentorship:dashboard:*"

const recentLogWindowDays = 7

type mentorshipLogRepository interface {
	List(ctx context.Context, filter models.MentorshipLogFilter) ([]models.MentorshipLog, error)
	ListByStudents(ctx context.Context, studentIDs []string) ([]models.MentorshipLog, error)
	FindByID(ctx context.Context, id string) (*models.MentorshipLog, error)
	Create(ctx context.Context, log *models.MentorshipLog) error
	Update(ctx context.Context, log *models.MentorshipLog) error
	Delete(ctx context.Context, id string) error
}

type mentorshipPairRepository interface {
	ListPairs(ctx context.Context, mentorID string) ([]models.MentorshipPair, error)
}

// MentorshipService records check-ins and builds the cadence dashboard.
type MentorshipService struct {
	logs       mentorshipLogRepository
	pairs      mentorshipPairRepository
	settings   *CadenceSettingsStore
	cache      *CacheService
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	logVersion int64
	// instance scopes cache keys to this process. logVersion and the settings
	// version are per process and would otherwise collide across replicas.
	instance   string
	now        func() time.Time
}

// NewMentorshipService constructs a MentorshipService.
func NewMentorshipService(logs mentorshipLogRepository, pairs mentorshipPairRepository, settings *CadenceSettingsStore, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *MentorshipService {
	if settings == nil {
		settings = NewCadenceSettingsStore(models.DefaultCadenceSettings())
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MentorshipService{
		logs:      logs,
		pairs:     pairs,
		settings:  settings,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		instance:  uuid.NewString()[:8],
		now:       time.Now,
	}
}

// Today returns the current calendar day in UTC.
func (s *MentorshipService) Today() models.Date {
	return models.DateOf(s.now().UTC())
}

// ListLogs returns check-ins. Non-administrators only see the logs they wrote.
func (s *MentorshipService) ListLogs(ctx context.Context, actor *models.JWTClaims, filter models.MentorshipLogFilter) ([]models.MentorshipLog, error) {
	if !actor.RoleSet().Has(models.RoleAdministrator) {
		filter.MentorID = actor.UserID
	}
	logs, err := s.logs.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list mentorship logs")
	}
	return logs, nil
}

// CreateLog records a check-in. The mentor defaults to the caller and the date to today.
func (s *MentorshipService) CreateLog(ctx context.Context, actor *models.JWTClaims, req dto.MentorshipLogRequest) (*models.MentorshipLog, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid mentorship log payload")
	}
	mentorID, err := s.resolveMentor(actor, req.MentorID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMentee(ctx, actor, req.StudentID); err != nil {
		return nil, err
	}

	log := &models.MentorshipLog{MentorID: mentorID}
	s.applyLogRequest(log, req)
	if err := s.logs.Create(ctx, log); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create mentorship log")
	}
	s.logsChanged(ctx)
	return log, nil
}

// UpdateLog edits a check-in owned by the caller, or any check-in for administrators.
func (s *MentorshipService) UpdateLog(ctx context.Context, actor *models.JWTClaims, id string, req dto.MentorshipLogRequest) (*models.MentorshipLog, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid mentorship log payload")
	}
	log, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if req.StudentID != log.StudentID {
		if err := s.requireMentee(ctx, actor, req.StudentID); err != nil {
			return nil, err
		}
	}
	s.applyLogRequest(log, req)
	if err := s.logs.Update(ctx, log); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "mentorship log not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update mentorship log")
	}
	s.logsChanged(ctx)
	return log, nil
}

// DeleteLog removes a check-in owned by the caller, or any check-in for administrators.
func (s *MentorshipService) DeleteLog(ctx context.Context, actor *models.JWTClaims, id string) error {
	if _, err := s.loadOwned(ctx, actor, id); err != nil {
		return err
	}
	if err := s.logs.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "mentorship log not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete mentorship log")
	}
	s.logsChanged(ctx)
	return nil
}

// Settings returns the active cadence thresholds.
func (s *MentorshipService) Settings() dto.CadenceSettingsResponse {
	settings, version := s.settings.Current()
	return dto.CadenceSettingsResponse{CadenceSettings: settings, Version: version}
}

// UpdateSettings replaces the cadence thresholds. Only positivity is enforced; the
// usual expected <= warning <= critical ordering is left to the administrator.
func (s *MentorshipService) UpdateSettings(ctx context.Context, next models.CadenceSettings) (dto.CadenceSettingsResponse, error) {
	if err := s.validator.Struct(next); err != nil {
		return dto.CadenceSettingsResponse{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "cadence thresholds must be positive whole days")
	}
	version := s.settings.Replace(next)
	_ = s.cache.Invalidate(ctx, DashboardCachePattern)
	s.logger.Info("cadence settings updated", zap.Int64("version", version))
	return dto.CadenceSettingsResponse{CadenceSettings: next, Version: version}, nil
}

// Dashboard classifies every mentored pair, or only mentorID's pairs when set, as of asOf.
// A zero asOf means today.
func (s *MentorshipService) Dashboard(ctx context.Context, mentorID string, asOf models.Date) (*models.MentorshipDashboard, error) {
	if asOf.IsZero() {
		asOf = s.Today()
	}
	settings, settingsVersion := s.settings.Current()
	logVersion := atomic.LoadInt64(&s.logVersion)
	key := s.dashboardKey(mentorID, settingsVersion, logVersion, asOf)

	var cached models.MentorshipDashboard
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	pairs, err := s.pairs.ListPairs(ctx, mentorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list mentorship pairs")
	}

	seen := make(map[string]struct{}, len(pairs))
	studentIDs := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		if _, ok := seen[pair.StudentID]; ok {
			continue
		}
		seen[pair.StudentID] = struct{}{}
		studentIDs = append(studentIDs, pair.StudentID)
	}

	logs, err := s.logs.ListByStudents(ctx, studentIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mentorship logs")
	}

	dashboard := buildDashboard(pairs, logs, settings, asOf)
	dashboard.SettingsVersion = settingsVersion

	if mentorID == "" {
		s.metrics.SetCadenceDistribution(dashboard.Summary)
	}
	// A log written while this dashboard was built makes it stale already.
	if atomic.LoadInt64(&s.logVersion) == logVersion {
		_ = s.cache.Set(ctx, key, dashboard, 0)
	}
	return dashboard, nil
}

func buildDashboard(pairs []models.MentorshipPair, logs []models.MentorshipLog, settings models.CadenceSettings, asOf models.Date) *models.MentorshipDashboard {
	byStudent := make(map[string][]models.MentorshipLog)
	for _, log := range logs {
		byStudent[log.StudentID] = append(byStudent[log.StudentID], log)
	}

	dashboard := &models.MentorshipDashboard{
		AsOf:     asOf,
		Settings: settings,
		Pairs:    make([]models.PairCadence, 0, len(pairs)),
		Alerts:   []models.PairCadence{},
		Summary: models.DashboardSummary{
			TotalPairs:           len(pairs),
			TotalLogs:            len(logs),
			ProgressDistribution: map[models.StudentProgress]int{},
		},
	}

	recentFrom := asOf.AddDays(-recentLogWindowDays)
	for _, log := range logs {
		if !log.Date.Before(recentFrom) && !asOf.Before(log.Date) {
			dashboard.Summary.RecentLogs++
		}
		if log.StudentProgress != nil {
			dashboard.Summary.ProgressDistribution[*log.StudentProgress]++
		}
	}

	for _, pair := range pairs {
		studentLogs := byStudent[pair.StudentID]
		row := models.PairCadence{
			MentorshipPair: pair,
			TotalCheckIns:  len(studentLogs),
			Cadence:        ClassifyCadence(pair.StudentID, studentLogs, settings, asOf),
		}
		for _, log := range studentLogs {
			if row.LatestCheckIn.IsZero() || row.LatestCheckIn.Before(log.Date) {
				row.LatestCheckIn = log.Date
				row.LatestProgress = log.StudentProgress
			}
		}

		switch row.Cadence.Overall {
		case models.RiskOnTrack:
			dashboard.Summary.OnTrack++
		case models.RiskLagging:
			dashboard.Summary.Lagging++
		default:
			dashboard.Summary.AtRisk++
		}
		dashboard.Pairs = append(dashboard.Pairs, row)
		if row.Cadence.Overall != models.RiskOnTrack {
			dashboard.Alerts = append(dashboard.Alerts, row)
		}
	}

	sort.SliceStable(dashboard.Alerts, func(i, j int) bool {
		if dashboard.Alerts[i].Cadence.Score != dashboard.Alerts[j].Cadence.Score {
			return dashboard.Alerts[i].Cadence.Score < dashboard.Alerts[j].Cadence.Score
		}
		return dashboard.Alerts[i].StudentName < dashboard.Alerts[j].StudentName
	})
	return dashboard
}

func (s *MentorshipService) dashboardKey(mentorID string, settingsVersion, logVersion int64, asOf models.Date) string {
	scope := mentorID
	if scope == "" {
		scope = "all"
	}
	return fmt.Sprintf("mentorship:dashboard:%s:%s:s%d:l%d:%s", s.instance, scope, settingsVersion, logVersion, asOf)
}

// logsChanged bumps the log version and drops memoized dashboards.
func (s *MentorshipService) logsChanged(ctx context.Context) {
	atomic.AddInt64(&s.logVersion, 1)
	_ = s.cache.Invalidate(ctx, DashboardCachePattern)
}

func (s *MentorshipService) resolveMentor(actor *models.JWTClaims, requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	if requested == "" || requested == actor.UserID {
		return actor.UserID, nil
	}
	if !actor.RoleSet().Has(models.RoleAdministrator) {
		return "", appErrors.Clone(appErrors.ErrForbidden, "only administrators can log check-ins for another mentor")
	}
	return requested, nil
}

// requireMentee rejects non-administrators logging for a student they do not mentor.
func (s *MentorshipService) requireMentee(ctx context.Context, actor *models.JWTClaims, studentID string) error {
	if actor.RoleSet().Has(models.RoleAdministrator) {
		return nil
	}
	pairs, err := s.pairs.ListPairs(ctx, actor.UserID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check mentees")
	}
	for _, pair := range pairs {
		if pair.StudentID == studentID {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrForbidden, "student is not one of your mentees")
}

func (s *MentorshipService) loadOwned(ctx context.Context, actor *models.JWTClaims, id string) (*models.MentorshipLog, error) {
	log, err := s.logs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "mentorship log not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mentorship log")
	}
	if log.MentorID != actor.UserID && !actor.RoleSet().Has(models.RoleAdministrator) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "mentorship log belongs to another mentor")
	}
	return log, nil
}

func (s *MentorshipService) applyLogRequest(log *models.MentorshipLog, req dto.MentorshipLogRequest) {
	log.StudentID = req.StudentID
	log.Channel = req.Channel
	log.Date = req.Date
	if log.Date.IsZero() {
		log.Date = s.Today()
	}
	log.Notes = req.Notes
	log.DurationMinutes = req.DurationMinutes
	log.Topics = pq.StringArray(req.Topics)
	if log.Topics == nil {
		log.Topics = pq.StringArray{}
	}
	log.NextSteps = req.NextSteps
	log.StudentProgress = req.StudentProgress
}
