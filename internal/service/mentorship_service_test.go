package service

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-curriculum-api/internal/dto"
	"github.com/noah-isme/lms-curriculum-api/internal/models"
	appErrors "github.com/noah-isme/lms-curriculum-api/pkg/errors"
)

type memoryLogRepo struct {
	logs          map[string]models.MentorshipLog
	seq           int
	byStudentCall int
}

func newMemoryLogRepo(logs ...models.MentorshipLog) *memoryLogRepo {
	repo := &memoryLogRepo{logs: map[string]models.MentorshipLog{}}
	for _, log := range logs {
		_ = repo.Create(context.Background(), &log)
	}
	return repo
}

func (m *memoryLogRepo) List(ctx context.Context, filter models.MentorshipLogFilter) ([]models.MentorshipLog, error) {
	out := []models.MentorshipLog{}
	for _, log := range m.logs {
		if filter.MentorID != "" && log.MentorID != filter.MentorID {
			continue
		}
		if filter.StudentID != "" && log.StudentID != filter.StudentID {
			continue
		}
		if filter.Channel != "" && log.Channel != filter.Channel {
			continue
		}
		out = append(out, log)
	}
	return out, nil
}

func (m *memoryLogRepo) ListByStudents(ctx context.Context, studentIDs []string) ([]models.MentorshipLog, error) {
	m.byStudentCall++
	wanted := map[string]bool{}
	for _, id := range studentIDs {
		wanted[id] = true
	}
	out := []models.MentorshipLog{}
	for _, log := range m.logs {
		if wanted[log.StudentID] {
			out = append(out, log)
		}
	}
	return out, nil
}

func (m *memoryLogRepo) FindByID(ctx context.Context, id string) (*models.MentorshipLog, error) {
	log, ok := m.logs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &log, nil
}

func (m *memoryLogRepo) Create(ctx context.Context, log *models.MentorshipLog) error {
	if log.ID == "" {
		m.seq++
		log.ID = fmt.Sprintf("log-%d", m.seq)
	}
	m.logs[log.ID] = *log
	return nil
}

func (m *memoryLogRepo) Update(ctx context.Context, log *models.MentorshipLog) error {
	if _, ok := m.logs[log.ID]; !ok {
		return sql.ErrNoRows
	}
	m.logs[log.ID] = *log
	return nil
}

func (m *memoryLogRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.logs[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.logs, id)
	return nil
}

type stubPairRepo struct {
	pairs []models.MentorshipPair
}

func (s stubPairRepo) ListPairs(ctx context.Context, mentorID string) ([]models.MentorshipPair, error) {
	out := []models.MentorshipPair{}
	for _, pair := range s.pairs {
		if mentorID == "" || (pair.MentorID != nil && *pair.MentorID == mentorID) {
			out = append(out, pair)
		}
	}
	return out, nil
}

var (
	mentorClaims = &models.JWTClaims{UserID: "m-1", Roles: []models.Role{models.RoleMentor}}
	adminClaims  = &models.JWTClaims{UserID: "admin", Roles: []models.Role{models.RoleAdministrator}}
)

func newMentorshipServiceForTest(logs *memoryLogRepo, pairs []models.MentorshipPair, cache *CacheService) *MentorshipService {
	svc := NewMentorshipService(logs, stubPairRepo{pairs: pairs}, nil, cache, nil, nil, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 15, 0, 0, 0, time.UTC) }
	return svc
}

func pair(student, name, mentor string) models.MentorshipPair {
	return models.MentorshipPair{CourseID: "course-1", StudentID: student, StudentName: name, MentorID: models.Ref(mentor)}
}

func TestMentorshipServiceCreateLogDefaults(t *testing.T) {
	svc := newMentorshipServiceForTest(newMemoryLogRepo(), []models.MentorshipPair{pair("s-1", "Ada", "m-1")}, nil)

	log, err := svc.CreateLog(context.Background(), mentorClaims, dto.MentorshipLogRequest{StudentID: "s-1", Channel: models.ChannelDigital})
	require.NoError(t, err)
	assert.Equal(t, "m-1", log.MentorID)
	assert.Equal(t, "2025-03-01", log.Date.String())
	assert.NotNil(t, log.Topics)
}

func TestMentorshipServiceCreateLogForAnotherMentor(t *testing.T) {
	svc := newMentorshipServiceForTest(newMemoryLogRepo(), nil, nil)
	req := dto.MentorshipLogRequest{StudentID: "s-1", MentorID: "m-2", Channel: models.ChannelInPerson}

	_, err := svc.CreateLog(context.Background(), mentorClaims, req)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, appErrors.FromError(err).Status)

	log, err := svc.CreateLog(context.Background(), adminClaims, req)
	require.NoError(t, err)
	assert.Equal(t, "m-2", log.MentorID)
}

func TestMentorshipServiceCreateLogRequiresMentee(t *testing.T) {
	repo := newMemoryLogRepo()
	pairs := []models.MentorshipPair{pair("s-1", "Ada", "m-1"), pair("s-2", "Ben", "m-2")}
	svc := newMentorshipServiceForTest(repo, pairs, nil)
	req := dto.MentorshipLogRequest{StudentID: "s-2", Channel: models.ChannelDigital}

	_, err := svc.CreateLog(context.Background(), mentorClaims, req)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, appErrors.FromError(err).Status)
	assert.Empty(t, repo.logs)

	_, err = svc.CreateLog(context.Background(), adminClaims, req)
	require.NoError(t, err)

	own, err := svc.CreateLog(context.Background(), mentorClaims, dto.MentorshipLogRequest{StudentID: "s-1", Channel: models.ChannelDigital})
	require.NoError(t, err)
	_, err = svc.UpdateLog(context.Background(), mentorClaims, own.ID, req)
	assert.Equal(t, http.StatusForbidden, appErrors.FromError(err).Status)
}

func TestMentorshipServiceCreateLogValidation(t *testing.T) {
	svc := newMentorshipServiceForTest(newMemoryLogRepo(), nil, nil)

	_, err := svc.CreateLog(context.Background(), mentorClaims, dto.MentorshipLogRequest{StudentID: "s-1", Channel: "carrier_pigeon"})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
}

func TestMentorshipServiceOwnership(t *testing.T) {
	repo := newMemoryLogRepo(
		models.MentorshipLog{ID: "mine", MentorID: "m-1", StudentID: "s-1", Channel: models.ChannelDigital},
		models.MentorshipLog{ID: "theirs", MentorID: "m-2", StudentID: "s-2", Channel: models.ChannelDigital},
	)
	svc := newMentorshipServiceForTest(repo, nil, nil)

	own, err := svc.ListLogs(context.Background(), mentorClaims, models.MentorshipLogFilter{MentorID: "m-2"})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "mine", own[0].ID)

	all, err := svc.ListLogs(context.Background(), adminClaims, models.MentorshipLogFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.UpdateLog(context.Background(), mentorClaims, "theirs", dto.MentorshipLogRequest{StudentID: "s-2", Channel: models.ChannelDigital})
	assert.Equal(t, http.StatusForbidden, appErrors.FromError(err).Status)

	err = svc.DeleteLog(context.Background(), mentorClaims, "theirs")
	assert.Equal(t, http.StatusForbidden, appErrors.FromError(err).Status)

	require.NoError(t, svc.DeleteLog(context.Background(), adminClaims, "theirs"))
	err = svc.DeleteLog(context.Background(), adminClaims, "theirs")
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)
}

func TestMentorshipServiceDashboardClassifiesPairs(t *testing.T) {
	good := models.ProgressGood
	concern := models.ProgressConcern
	repo := newMemoryLogRepo(
		models.MentorshipLog{MentorID: "m-1", StudentID: "s-1", Channel: models.ChannelDigital, Date: models.MustParseDate("2025-02-27"), StudentProgress: &good},
		models.MentorshipLog{MentorID: "m-1", StudentID: "s-1", Channel: models.ChannelInPerson, Date: models.MustParseDate("2025-02-10")},
		models.MentorshipLog{MentorID: "m-1", StudentID: "s-2", Channel: models.ChannelDigital, Date: models.MustParseDate("2025-02-01"), StudentProgress: &concern},
	)
	pairs := []models.MentorshipPair{
		pair("s-1", "Ada", "m-1"),
		pair("s-2", "Ben", "m-1"),
		pair("s-3", "Cy", "m-2"),
	}
	svc := newMentorshipServiceForTest(repo, pairs, nil)

	dashboard, err := svc.Dashboard(context.Background(), "", models.Date{})
	require.NoError(t, err)
	assert.Equal(t, "2025-03-01", dashboard.AsOf.String())
	assert.Equal(t, int64(1), dashboard.SettingsVersion)
	require.Len(t, dashboard.Pairs, 3)

	assert.Equal(t, models.RiskOnTrack, dashboard.Pairs[0].Cadence.Overall)
	assert.Equal(t, 2, dashboard.Pairs[0].TotalCheckIns)
	assert.Equal(t, "2025-02-27", dashboard.Pairs[0].LatestCheckIn.String())
	require.NotNil(t, dashboard.Pairs[0].LatestProgress)
	assert.Equal(t, models.ProgressGood, *dashboard.Pairs[0].LatestProgress)

	summary := dashboard.Summary
	assert.Equal(t, 3, summary.TotalPairs)
	assert.Equal(t, 1, summary.OnTrack)
	assert.Equal(t, 2, summary.AtRisk)
	assert.Equal(t, 3, summary.TotalLogs)
	assert.Equal(t, 1, summary.RecentLogs)
	assert.Equal(t, 1, summary.ProgressDistribution[models.ProgressConcern])

	require.Len(t, dashboard.Alerts, 2)
	assert.Equal(t, "Ben", dashboard.Alerts[0].StudentName)
	assert.Equal(t, "Cy", dashboard.Alerts[1].StudentName)
	assert.Equal(t, NoCheckIn, dashboard.Alerts[1].Cadence.Digital.DaysSinceLastCheckIn)

	mine, err := svc.Dashboard(context.Background(), "m-2", models.MustParseDate("2025-03-01"))
	require.NoError(t, err)
	require.Len(t, mine.Pairs, 1)
	assert.Equal(t, "s-3", mine.Pairs[0].StudentID)
}

func TestMentorshipServiceDashboardCacheFollowsVersions(t *testing.T) {
	repo := newMemoryLogRepo(models.MentorshipLog{MentorID: "m-1", StudentID: "s-1", Channel: models.ChannelDigital, Date: models.MustParseDate("2025-02-25")})
	cacheRepo := newMemoryCacheRepo()
	cache := NewCacheService(cacheRepo, nil, time.Minute, nil, true)
	svc := newMentorshipServiceForTest(repo, []models.MentorshipPair{pair("s-1", "Ada", "m-1")}, cache)
	asOf := models.MustParseDate("2025-03-01")

	first, err := svc.Dashboard(context.Background(), "m-1", asOf)
	require.NoError(t, err)
	_, err = svc.Dashboard(context.Background(), "m-1", asOf)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.byStudentCall)
	assert.Equal(t, models.RiskAtRisk, first.Pairs[0].Cadence.InPerson.Status)

	_, err = svc.CreateLog(context.Background(), mentorClaims, dto.MentorshipLogRequest{StudentID: "s-1", Channel: models.ChannelInPerson, Date: asOf})
	require.NoError(t, err)
	assert.Contains(t, cacheRepo.invalidated, DashboardCachePattern)

	refreshed, err := svc.Dashboard(context.Background(), "m-1", asOf)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.byStudentCall)
	assert.Equal(t, models.RiskOnTrack, refreshed.Pairs[0].Cadence.InPerson.Status)
}

func TestMentorshipServiceUpdateSettings(t *testing.T) {
	svc := newMentorshipServiceForTest(newMemoryLogRepo(), nil, nil)
	assert.Equal(t, int64(1), svc.Settings().Version)

	tight := models.CadenceSettings{
		Digital:  models.CadenceThresholds{ExpectedDays: 1, WarningDays: 2, CriticalDays: 3},
		InPerson: models.CadenceThresholds{ExpectedDays: 5, WarningDays: 6, CriticalDays: 7},
	}
	updated, err := svc.UpdateSettings(context.Background(), tight)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)
	assert.Equal(t, tight, svc.Settings().CadenceSettings)

	_, err = svc.UpdateSettings(context.Background(), models.CadenceSettings{})
	require.Error(t, err)
	assert.Equal(t, int64(2), svc.Settings().Version)
}

func TestMentorshipServiceDashboardCacheIsPerInstance(t *testing.T) {
	cacheRepo := newMemoryCacheRepo()
	cache := NewCacheService(cacheRepo, nil, time.Minute, nil, true)
	pairs := []models.MentorshipPair{pair("s-1", "Ada", "m-1")}
	asOf := models.MustParseDate("2025-03-01")

	firstLogs, secondLogs := newMemoryLogRepo(), newMemoryLogRepo()
	first := newMentorshipServiceForTest(firstLogs, pairs, cache)
	second := newMentorshipServiceForTest(secondLogs, pairs, cache)

	_, err := first.Dashboard(context.Background(), "", asOf)
	require.NoError(t, err)
	_, err = second.Dashboard(context.Background(), "", asOf)
	require.NoError(t, err)
	assert.Equal(t, 1, firstLogs.byStudentCall)
	assert.Equal(t, 1, secondLogs.byStudentCall, "another instance must not read a dashboard keyed by a different log version counter")
	assert.NotEqual(t, first.dashboardKey("", 1, 0, asOf), second.dashboardKey("", 1, 0, asOf))
}
