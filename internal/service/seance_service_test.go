package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/astba/training-api/internal/models"
	appErrors "github.com/astba/training-api/pkg/errors"
)

type mockSeanceRepo struct {
	seances       map[string]models.Seance
	statusUpdates map[string]models.SeanceStatus
	created       *models.Seance
	updated       *models.Seance
	deleted       []string
	seq           int
}

func (m *mockSeanceRepo) FindByID(ctx context.Context, id string) (*models.Seance, error) {
	if s, ok := m.seances[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSeanceRepo) ListByTrainerAndDate(ctx context.Context, trainerID string, date time.Time) ([]models.Seance, error) {
	var list []models.Seance
	for _, s := range m.seances {
		if s.TrainerID == trainerID && s.Date.Format(dateLayout) == date.Format(dateLayout) {
			list = append(list, s)
		}
	}
	return list, nil
}

func (m *mockSeanceRepo) List(ctx context.Context, filter models.SeanceFilter) ([]models.Seance, error) {
	var list []models.Seance
	for _, s := range m.seances {
		list = append(list, s)
	}
	return list, nil
}

func (m *mockSeanceRepo) Create(ctx context.Context, seance *models.Seance) error {
	if m.seances == nil {
		m.seances = make(map[string]models.Seance)
	}
	if seance.ID == "" {
		m.seq++
		seance.ID = fmt.Sprintf("seance-%d", m.seq)
	}
	m.seances[seance.ID] = *seance
	m.created = seance
	return nil
}

func (m *mockSeanceRepo) Update(ctx context.Context, seance *models.Seance) error {
	m.seances[seance.ID] = *seance
	m.updated = seance
	return nil
}

func (m *mockSeanceRepo) UpdateStatus(ctx context.Context, id string, status models.SeanceStatus) error {
	if m.statusUpdates == nil {
		m.statusUpdates = make(map[string]models.SeanceStatus)
	}
	m.statusUpdates[id] = status
	if s, ok := m.seances[id]; ok {
		s.Status = status
		m.seances[id] = s
	}
	return nil
}

func (m *mockSeanceRepo) Delete(ctx context.Context, id string) error {
	delete(m.seances, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type mockReportRepo struct {
	created []models.SessionReport
}

func (m *mockReportRepo) Create(ctx context.Context, report *models.SessionReport) error {
	if report.ID == "" {
		report.ID = "new-report"
	}
	m.created = append(m.created, *report)
	return nil
}

func (m *mockReportRepo) ListBySeance(ctx context.Context, seanceID string) ([]models.SessionReport, error) {
	var list []models.SessionReport
	for _, r := range m.created {
		if r.SeanceID == seanceID {
			list = append(list, r)
		}
	}
	return list, nil
}

type mockTrainingStore struct {
	trainings map[string]*models.Training
}

func (m *mockTrainingStore) FindByID(ctx context.Context, id string) (*models.Training, error) {
	if t, ok := m.trainings[id]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

type mockGroupStore struct {
	groups map[string]*models.Group
}

func (m *mockGroupStore) FindByID(ctx context.Context, id string) (*models.Group, error) {
	if g, ok := m.groups[id]; ok {
		return g, nil
	}
	return nil, sql.ErrNoRows
}

type mockUserStore struct {
	users map[string]*models.User
}

func (m *mockUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

type notifyCall struct {
	userID   string
	role     models.UserRole
	category models.NotificationCategory
}

type mockNotifier struct {
	userCalls []notifyCall
	roleCalls []notifyCall
}

func (m *mockNotifier) NotifyUser(ctx context.Context, userID, title, message, link string, category models.NotificationCategory) {
	m.userCalls = append(m.userCalls, notifyCall{userID: userID, category: category})
}

func (m *mockNotifier) NotifyRole(ctx context.Context, role models.UserRole, title, message, link string, category models.NotificationCategory) {
	m.roleCalls = append(m.roleCalls, notifyCall{role: role, category: category})
}

type mockMarker struct {
	requests []models.AttendanceMarkRequest
	err      error
}

func (m *mockMarker) Mark(ctx context.Context, req models.AttendanceMarkRequest) error {
	m.requests = append(m.requests, req)
	return m.err
}

type seanceFixture struct {
	repo     *mockSeanceRepo
	reports  *mockReportRepo
	notifier *mockNotifier
	marker   *mockMarker
	svc      *SeanceService
}

func newSeanceFixture() *seanceFixture {
	repo := &mockSeanceRepo{seances: map[string]models.Seance{}}
	reports := &mockReportRepo{}
	notifier := &mockNotifier{}
	marker := &mockMarker{}
	trainings := &mockTrainingStore{trainings: map[string]*models.Training{
		"tr1": {ID: "tr1", Title: "Robotics"},
	}}
	groups := &mockGroupStore{groups: map[string]*models.Group{
		"g1": {ID: "g1", Name: "Groupe A", TrainingID: "tr1", StudentIDs: []string{"s1", "s2", "s3"}},
		"g2": {ID: "g2", Name: "Groupe B", TrainingID: "tr1"},
	}}
	users := &mockUserStore{users: map[string]*models.User{
		"t1": {ID: "t1", FirstName: "Amine", LastName: "Ben Salah", Roles: []string{"TRAINER"}, Active: true},
		"t2": {ID: "t2", FirstName: "Sana", LastName: "Trabelsi", Roles: []string{"TRAINER"}, Active: true},
		"u1": {ID: "u1", FirstName: "Nour", LastName: "Gharbi", Roles: []string{"STUDENT"}, Active: true},
	}}
	svc := NewSeanceService(repo, reports, trainings, groups, users, notifier, marker, time.UTC, validator.New(), zap.NewNop())
	return &seanceFixture{repo: repo, reports: reports, notifier: notifier, marker: marker, svc: svc}
}

func today() string {
	return time.Now().UTC().Format(dateLayout)
}

func scheduleRequest(overrides func(*ScheduleSeanceRequest)) ScheduleSeanceRequest {
	req := ScheduleSeanceRequest{
		TrainingID:    "tr1",
		SessionID:     "sess-1",
		GroupID:       "g1",
		TrainerID:     "t1",
		Date:          today(),
		StartTime:     "09:00",
		EndTime:       "10:00",
		LevelNumber:   1,
		SessionNumber: 1,
		Title:         "Intro",
	}
	if overrides != nil {
		overrides(&req)
	}
	return req
}

func TestSeanceServiceSchedule(t *testing.T) {
	f := newSeanceFixture()

	detail, err := f.svc.Schedule(context.Background(), scheduleRequest(nil))
	require.NoError(t, err)
	require.NotNil(t, f.repo.created)
	assert.Equal(t, models.SeanceStatusPlanned, f.repo.created.Status)
	assert.Equal(t, "Robotics", detail.TrainingTitle)
	assert.Equal(t, "Groupe A", detail.GroupName)
	assert.Equal(t, "Amine Ben Salah", detail.TrainerName)
	require.Len(t, f.notifier.userCalls, 1)
	assert.Equal(t, "t1", f.notifier.userCalls[0].userID)
	assert.Equal(t, models.NotificationSeanceAssigned, f.notifier.userCalls[0].category)
}

func TestSeanceServiceSchedulePastDate(t *testing.T) {
	f := newSeanceFixture()

	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format(dateLayout)
	_, err := f.svc.Schedule(context.Background(), scheduleRequest(func(r *ScheduleSeanceRequest) {
		r.Date = yesterday
	}))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Nil(t, f.repo.created)
}

func TestSeanceServiceScheduleInvertedInterval(t *testing.T) {
	f := newSeanceFixture()

	_, err := f.svc.Schedule(context.Background(), scheduleRequest(func(r *ScheduleSeanceRequest) {
		r.StartTime = "10:00"
		r.EndTime = "09:00"
	}))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSeanceServiceScheduleTrainerChecks(t *testing.T) {
	f := newSeanceFixture()

	_, err := f.svc.Schedule(context.Background(), scheduleRequest(func(r *ScheduleSeanceRequest) {
		r.TrainerID = "missing"
	}))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, err = f.svc.Schedule(context.Background(), scheduleRequest(func(r *ScheduleSeanceRequest) {
		r.TrainerID = "u1"
	}))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSeanceServiceScheduleConflict(t *testing.T) {
	f := newSeanceFixture()

	_, err := f.svc.Schedule(context.Background(), scheduleRequest(nil))
	require.NoError(t, err)

	_, err = f.svc.Schedule(context.Background(), scheduleRequest(func(r *ScheduleSeanceRequest) {
		r.StartTime = "09:30"
		r.EndTime = "10:30"
	}))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	var conflictErr *models.TrainerConflictError
	assert.True(t, errors.As(err, &conflictErr))

	// Touching intervals do not overlap.
	_, err = f.svc.Schedule(context.Background(), scheduleRequest(func(r *ScheduleSeanceRequest) {
		r.StartTime = "10:00"
		r.EndTime = "11:00"
	}))
	require.NoError(t, err)
}

func TestSeanceServiceScheduleNormalizesUnpaddedTimes(t *testing.T) {
	f := newSeanceFixture()

	// Booked 09:00-10:00 for t1.
	_, err := f.svc.Schedule(context.Background(), scheduleRequest(nil))
	require.NoError(t, err)

	// "9:30" passes the datetime validator but would sort after "10:00"
	// lexically; it must still conflict with the existing booking.
	_, err = f.svc.Schedule(context.Background(), scheduleRequest(func(r *ScheduleSeanceRequest) {
		r.StartTime = "9:30"
		r.EndTime = "10:30"
	}))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	var conflictErr *models.TrainerConflictError
	assert.True(t, errors.As(err, &conflictErr))

	// Unpadded input on a free slot is stored zero-padded.
	_, err = f.svc.Schedule(context.Background(), scheduleRequest(func(r *ScheduleSeanceRequest) {
		r.TrainerID = "t2"
		r.StartTime = "8:00"
		r.EndTime = "9:00"
	}))
	require.NoError(t, err)
	assert.Equal(t, "08:00", f.repo.created.StartTime)
	assert.Equal(t, "09:00", f.repo.created.EndTime)
}

func TestSeanceServiceScheduleOtherTrainerUnaffected(t *testing.T) {
	f := newSeanceFixture()

	_, err := f.svc.Schedule(context.Background(), scheduleRequest(nil))
	require.NoError(t, err)

	_, err = f.svc.Schedule(context.Background(), scheduleRequest(func(r *ScheduleSeanceRequest) {
		r.TrainerID = "t2"
	}))
	require.NoError(t, err)
}

func TestSeanceServiceUpdateSameSlotSkipsConflictCheck(t *testing.T) {
	f := newSeanceFixture()

	created, err := f.svc.Schedule(context.Background(), scheduleRequest(nil))
	require.NoError(t, err)

	detail, err := f.svc.Update(context.Background(), created.ID, UpdateSeanceRequest{
		TrainingID:    "tr1",
		SessionID:     "sess-1",
		GroupID:       "g2",
		TrainerID:     "t1",
		Date:          today(),
		StartTime:     "09:00",
		EndTime:       "10:00",
		LevelNumber:   1,
		SessionNumber: 1,
		Title:         "Intro (moved room)",
	})
	require.NoError(t, err)
	assert.Equal(t, "g2", detail.GroupID)
	require.Len(t, f.notifier.userCalls, 2)
	assert.Equal(t, models.NotificationSeanceModified, f.notifier.userCalls[1].category)
}

func TestSeanceServiceUpdateExcludesSelfFromConflict(t *testing.T) {
	f := newSeanceFixture()

	created, err := f.svc.Schedule(context.Background(), scheduleRequest(nil))
	require.NoError(t, err)

	// Shifting within the old interval conflicts only with itself, which is
	// excluded.
	req := UpdateSeanceRequest{
		TrainingID:    "tr1",
		SessionID:     "sess-1",
		GroupID:       "g1",
		TrainerID:     "t1",
		Date:          today(),
		StartTime:     "09:30",
		EndTime:       "10:30",
		LevelNumber:   1,
		SessionNumber: 1,
		Title:         "Intro",
	}
	_, err = f.svc.Update(context.Background(), created.ID, req)
	require.NoError(t, err)

	// But overlap with another seance still fails.
	_, err = f.svc.Schedule(context.Background(), scheduleRequest(func(r *ScheduleSeanceRequest) {
		r.StartTime = "11:00"
		r.EndTime = "12:00"
	}))
	require.NoError(t, err)

	req.StartTime = "11:30"
	req.EndTime = "12:30"
	_, err = f.svc.Update(context.Background(), created.ID, req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSeanceServiceUpdateNotFound(t *testing.T) {
	f := newSeanceFixture()

	_, err := f.svc.Update(context.Background(), "missing", UpdateSeanceRequest{
		TrainingID: "tr1", SessionID: "sess-1", GroupID: "g1", TrainerID: "t1",
		Date: today(), StartTime: "09:00", EndTime: "10:00", Title: "Intro",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSeanceServiceSetStatusGuard(t *testing.T) {
	f := newSeanceFixture()
	tomorrow := time.Now().UTC().AddDate(0, 0, 1)
	f.repo.seances["se1"] = models.Seance{
		ID: "se1", TrainingID: "tr1", SessionID: "sess-1", GroupID: "g1", TrainerID: "t1",
		Date: tomorrow, StartTime: "00:00", EndTime: "02:00", Status: models.SeanceStatusPlanned,
	}

	_, err := f.svc.SetStatus(context.Background(), "se1", models.SeanceStatusInProgress)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.marker.requests)
	assert.Empty(t, f.repo.statusUpdates)
}

func TestSeanceServiceSetStatusStartsAndCascades(t *testing.T) {
	f := newSeanceFixture()
	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	f.repo.seances["se1"] = models.Seance{
		ID: "se1", TrainingID: "tr1", SessionID: "sess-1", GroupID: "g1", TrainerID: "t1",
		Date: yesterday, StartTime: "09:00", EndTime: "10:00", Status: models.SeanceStatusPlanned,
	}

	seance, err := f.svc.SetStatus(context.Background(), "se1", models.SeanceStatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, models.SeanceStatusInProgress, seance.Status)
	assert.Equal(t, models.SeanceStatusInProgress, f.repo.statusUpdates["se1"])

	require.Len(t, f.marker.requests, 1)
	mark := f.marker.requests[0]
	assert.Equal(t, "tr1", mark.TrainingID)
	assert.Equal(t, "sess-1", mark.SessionID)
	require.Len(t, mark.Records, 3)
	for _, record := range mark.Records {
		assert.Equal(t, models.AttendanceStatusAbsent, record.Status)
	}
}

func TestSeanceServiceSetStatusCascadeFailureIsSwallowed(t *testing.T) {
	f := newSeanceFixture()
	f.marker.err = errors.New("recorder down")
	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	f.repo.seances["se1"] = models.Seance{
		ID: "se1", TrainingID: "tr1", SessionID: "sess-1", GroupID: "g1", TrainerID: "t1",
		Date: yesterday, StartTime: "09:00", EndTime: "10:00", Status: models.SeanceStatusPlanned,
	}

	seance, err := f.svc.SetStatus(context.Background(), "se1", models.SeanceStatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, models.SeanceStatusInProgress, seance.Status)
	assert.Len(t, f.marker.requests, 1)
}

func TestSeanceServiceSetStatusEmptyGroupNoCascade(t *testing.T) {
	f := newSeanceFixture()
	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	f.repo.seances["se1"] = models.Seance{
		ID: "se1", TrainingID: "tr1", SessionID: "sess-1", GroupID: "g2", TrainerID: "t1",
		Date: yesterday, StartTime: "09:00", EndTime: "10:00", Status: models.SeanceStatusPlanned,
	}

	_, err := f.svc.SetStatus(context.Background(), "se1", models.SeanceStatusInProgress)
	require.NoError(t, err)
	assert.Empty(t, f.marker.requests)
}

func TestSeanceServiceSetStatusOtherTransitionsNoCascade(t *testing.T) {
	f := newSeanceFixture()
	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	f.repo.seances["se1"] = models.Seance{
		ID: "se1", TrainingID: "tr1", SessionID: "sess-1", GroupID: "g1", TrainerID: "t1",
		Date: yesterday, StartTime: "09:00", EndTime: "10:00", Status: models.SeanceStatusPlanned,
	}

	seance, err := f.svc.SetStatus(context.Background(), "se1", models.SeanceStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.SeanceStatusCompleted, seance.Status)
	assert.Empty(t, f.marker.requests)

	_, err = f.svc.SetStatus(context.Background(), "se1", "ARCHIVED")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSeanceServiceReport(t *testing.T) {
	f := newSeanceFixture()
	f.repo.seances["se1"] = models.Seance{
		ID: "se1", TrainingID: "tr1", SessionID: "sess-1", GroupID: "g1", TrainerID: "t1",
		Date: time.Now().UTC(), StartTime: "09:00", EndTime: "10:00", Status: models.SeanceStatusPlanned,
		Title: "Intro",
	}

	_, err := f.svc.Report(context.Background(), "se1", ReportSeanceRequest{TrainerID: "t2", Reason: "sick"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	past := time.Now().UTC().AddDate(0, 0, -2).Format(dateLayout)
	_, err = f.svc.Report(context.Background(), "se1", ReportSeanceRequest{TrainerID: "t1", Reason: "sick", SuggestedDate: past})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.reports.created)

	future := time.Now().UTC().AddDate(0, 0, 7).Format(dateLayout)
	detail, err := f.svc.Report(context.Background(), "se1", ReportSeanceRequest{TrainerID: "t1", Reason: "sick", SuggestedDate: future})
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusPending, detail.ReportStatus)
	assert.Equal(t, "Amine Ben Salah", detail.TrainerName)
	assert.Equal(t, models.SeanceStatusReported, f.repo.statusUpdates["se1"])
	require.Len(t, f.reports.created, 1)

	require.Len(t, f.notifier.roleCalls, 2)
	assert.Equal(t, models.RoleAdmin, f.notifier.roleCalls[0].role)
	assert.Equal(t, models.RoleManager, f.notifier.roleCalls[1].role)
	assert.Equal(t, models.NotificationSeanceReported, f.notifier.roleCalls[0].category)
}

func TestSeanceServiceListReports(t *testing.T) {
	f := newSeanceFixture()
	f.repo.seances["se1"] = models.Seance{
		ID: "se1", TrainerID: "t1", Date: time.Now().UTC(), StartTime: "09:00", EndTime: "10:00",
		Status: models.SeanceStatusPlanned, Title: "Intro",
	}
	_, err := f.svc.Report(context.Background(), "se1", ReportSeanceRequest{TrainerID: "t1", Reason: "first"})
	require.NoError(t, err)
	_, err = f.svc.Report(context.Background(), "se1", ReportSeanceRequest{TrainerID: "t1", Reason: "second"})
	require.NoError(t, err)

	reports, err := f.svc.ListReports(context.Background(), "se1")
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "Amine Ben Salah", reports[0].TrainerName)
}

func TestSeanceServiceAvailabilityRoundTrip(t *testing.T) {
	f := newSeanceFixture()
	date, _ := time.Parse(dateLayout, today())

	_, err := f.svc.Schedule(context.Background(), scheduleRequest(nil))
	require.NoError(t, err)

	available, err := f.svc.IsTrainerAvailable(context.Background(), "t1", date, "09:30", "10:30")
	require.NoError(t, err)
	assert.False(t, available)

	available, err = f.svc.IsTrainerAvailable(context.Background(), "t1", date, "10:00", "11:00")
	require.NoError(t, err)
	assert.True(t, available)

	available, err = f.svc.IsTrainerAvailable(context.Background(), "t2", date, "09:30", "10:30")
	require.NoError(t, err)
	assert.True(t, available)

	// Unpadded input is normalized before the overlap test.
	available, err = f.svc.IsTrainerAvailable(context.Background(), "t1", date, "9:30", "10:30")
	require.NoError(t, err)
	assert.False(t, available)

	// A degenerate interval is reported busy, not an error.
	available, err = f.svc.IsTrainerAvailable(context.Background(), "t1", date, "11:00", "10:00")
	require.NoError(t, err)
	assert.False(t, available)
}

func TestSeanceServiceDelete(t *testing.T) {
	f := newSeanceFixture()
	f.repo.seances["se1"] = models.Seance{ID: "se1", TrainerID: "t1"}

	require.NoError(t, f.svc.Delete(context.Background(), "se1"))
	assert.Contains(t, f.repo.deleted, "se1")

	err := f.svc.Delete(context.Background(), "se1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
