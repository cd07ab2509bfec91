package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/astba/training-api/internal/models"
	appErrors "github.com/astba/training-api/pkg/errors"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

type seanceRepository interface {
	FindByID(ctx context.Context, id string) (*models.Seance, error)
	ListByTrainerAndDate(ctx context.Context, trainerID string, date time.Time) ([]models.Seance, error)
	List(ctx context.Context, filter models.SeanceFilter) ([]models.Seance, error)
	Create(ctx context.Context, seance *models.Seance) error
	Update(ctx context.Context, seance *models.Seance) error
	UpdateStatus(ctx context.Context, id string, status models.SeanceStatus) error
	Delete(ctx context.Context, id string) error
}

type sessionReportRepository interface {
	Create(ctx context.Context, report *models.SessionReport) error
	ListBySeance(ctx context.Context, seanceID string) ([]models.SessionReport, error)
}

type groupReader interface {
	FindByID(ctx context.Context, id string) (*models.Group, error)
}

type userReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type seanceNotifier interface {
	NotifyUser(ctx context.Context, userID, title, message, link string, category models.NotificationCategory)
	NotifyRole(ctx context.Context, role models.UserRole, title, message, link string, category models.NotificationCategory)
}

type attendanceMarker interface {
	Mark(ctx context.Context, req models.AttendanceMarkRequest) error
}

// ScheduleSeanceRequest describes payload for scheduling a seance.
type ScheduleSeanceRequest struct {
	TrainingID    string `json:"training_id" validate:"required"`
	SessionID     string `json:"session_id" validate:"required"`
	GroupID       string `json:"group_id" validate:"required"`
	TrainerID     string `json:"trainer_id" validate:"required"`
	Date          string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime     string `json:"start_time" validate:"required,datetime=15:04"`
	EndTime       string `json:"end_time" validate:"required,datetime=15:04"`
	LevelNumber   int    `json:"level_number" validate:"gte=0"`
	SessionNumber int    `json:"session_number" validate:"gte=0"`
	Title         string `json:"title" validate:"required"`
}

// UpdateSeanceRequest rebooks an existing seance.
type UpdateSeanceRequest struct {
	TrainingID    string `json:"training_id" validate:"required"`
	SessionID     string `json:"session_id" validate:"required"`
	GroupID       string `json:"group_id" validate:"required"`
	TrainerID     string `json:"trainer_id" validate:"required"`
	Date          string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime     string `json:"start_time" validate:"required,datetime=15:04"`
	EndTime       string `json:"end_time" validate:"required,datetime=15:04"`
	LevelNumber   int    `json:"level_number" validate:"gte=0"`
	SessionNumber int    `json:"session_number" validate:"gte=0"`
	Title         string `json:"title" validate:"required"`
}

// ReportSeanceRequest files a postponement report against a seance.
type ReportSeanceRequest struct {
	TrainerID     string `json:"trainer_id" validate:"required"`
	Reason        string `json:"reason" validate:"required"`
	SuggestedDate string `json:"suggested_date" validate:"omitempty,datetime=2006-01-02"`
}

// slotLocks serializes writes per (trainer, date) so two concurrent bookings
// cannot both pass the conflict check.
type slotLocks struct {
	mu    sync.Mutex
	slots map[string]*sync.Mutex
}

func (l *slotLocks) acquire(trainerID string, date time.Time) *sync.Mutex {
	key := trainerID + "|" + date.Format(dateLayout)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.slots == nil {
		l.slots = make(map[string]*sync.Mutex)
	}
	lock, ok := l.slots[key]
	if !ok {
		lock = &sync.Mutex{}
		l.slots[key] = lock
	}
	return lock
}

// SeanceService orchestrates scheduling, lifecycle transitions and reporting
// of seances. All wall-clock comparisons happen in the organization's time
// zone.
type SeanceService struct {
	repo       seanceRepository
	reports    sessionReportRepository
	trainings  curriculumReader
	groups     groupReader
	users      userReader
	notifier   seanceNotifier
	attendance attendanceMarker
	loc        *time.Location
	validator  *validator.Validate
	logger     *zap.Logger
	locks      slotLocks
}

// NewSeanceService instantiates SeanceService.
func NewSeanceService(repo seanceRepository, reports sessionReportRepository, trainings curriculumReader, groups groupReader, users userReader, notifier seanceNotifier, attendance attendanceMarker, loc *time.Location, validate *validator.Validate, logger *zap.Logger) *SeanceService {
	if loc == nil {
		loc = time.UTC
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SeanceService{
		repo:       repo,
		reports:    reports,
		trainings:  trainings,
		groups:     groups,
		users:      users,
		notifier:   notifier,
		attendance: attendance,
		loc:        loc,
		validator:  validate,
		logger:     logger,
	}
}

// Schedule books a new seance after validation and conflict detection.
func (s *SeanceService) Schedule(ctx context.Context, req ScheduleSeanceRequest) (*models.SeanceDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid seance payload")
	}
	date, err := s.parseBookingDate(req.Date)
	if err != nil {
		return nil, err
	}
	startTime, endTime, err := normalizeInterval(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, req.TrainerID, req.TrainingID, req.GroupID); err != nil {
		return nil, err
	}

	lock := s.locks.acquire(req.TrainerID, date)
	lock.Lock()
	defer lock.Unlock()

	if err := s.ensureNoConflict(ctx, req.TrainerID, date, startTime, endTime, ""); err != nil {
		return nil, err
	}

	seance := models.Seance{
		TrainingID:    req.TrainingID,
		SessionID:     req.SessionID,
		GroupID:       req.GroupID,
		TrainerID:     req.TrainerID,
		Date:          date,
		StartTime:     startTime,
		EndTime:       endTime,
		Status:        models.SeanceStatusPlanned,
		LevelNumber:   req.LevelNumber,
		SessionNumber: req.SessionNumber,
		Title:         req.Title,
	}
	if err := s.repo.Create(ctx, &seance); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create seance")
	}

	s.notifier.NotifyUser(ctx, seance.TrainerID,
		"Seance assigned",
		fmt.Sprintf("You have been assigned %q on %s from %s to %s", seance.Title, date.Format(dateLayout), seance.StartTime, seance.EndTime),
		"/seances/"+seance.ID,
		models.NotificationSeanceAssigned)

	return s.enrich(ctx, seance), nil
}

// Update rebooks an existing seance. The conflict check is skipped when the
// trainer, date and interval are all unchanged; otherwise the check runs
// against every other seance of the target slot.
func (s *SeanceService) Update(ctx context.Context, id string, req UpdateSeanceRequest) (*models.SeanceDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid seance payload")
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "seance not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load seance")
	}

	date, err := s.parseBookingDate(req.Date)
	if err != nil {
		return nil, err
	}
	startTime, endTime, err := normalizeInterval(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, req.TrainerID, req.TrainingID, req.GroupID); err != nil {
		return nil, err
	}

	sameSlot := existing.TrainerID == req.TrainerID &&
		existing.Date.Format(dateLayout) == req.Date &&
		existing.StartTime == startTime &&
		existing.EndTime == endTime

	if !sameSlot {
		lock := s.locks.acquire(req.TrainerID, date)
		lock.Lock()
		defer lock.Unlock()

		if err := s.ensureNoConflict(ctx, req.TrainerID, date, startTime, endTime, existing.ID); err != nil {
			return nil, err
		}
	}

	updated := models.Seance{
		ID:            existing.ID,
		TrainingID:    req.TrainingID,
		SessionID:     req.SessionID,
		GroupID:       req.GroupID,
		TrainerID:     req.TrainerID,
		Date:          date,
		StartTime:     startTime,
		EndTime:       endTime,
		Status:        existing.Status,
		LevelNumber:   req.LevelNumber,
		SessionNumber: req.SessionNumber,
		Title:         req.Title,
		CreatedAt:     existing.CreatedAt,
	}
	if err := s.repo.Update(ctx, &updated); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update seance")
	}

	s.notifier.NotifyUser(ctx, updated.TrainerID,
		"Seance modified",
		fmt.Sprintf("Seance %q moved to %s from %s to %s", updated.Title, date.Format(dateLayout), updated.StartTime, updated.EndTime),
		"/seances/"+updated.ID,
		models.NotificationSeanceModified)

	return s.enrich(ctx, updated), nil
}

// Get loads a seance enriched with display names.
func (s *SeanceService) Get(ctx context.Context, id string) (*models.SeanceDetail, error) {
	seance, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "seance not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load seance")
	}
	return s.enrich(ctx, *seance), nil
}

// List returns enriched seances matching the filter.
func (s *SeanceService) List(ctx context.Context, filter models.SeanceFilter) ([]models.SeanceDetail, error) {
	seances, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list seances")
	}
	details := make([]models.SeanceDetail, 0, len(seances))
	for _, seance := range seances {
		details = append(details, *s.enrich(ctx, seance))
	}
	return details, nil
}

// Delete removes a seance. Attendance entries written by the cascade are
// kept.
func (s *SeanceService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "seance not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load seance")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete seance")
	}
	return nil
}

// SetStatus transitions a seance to the requested status. Entering
// IN_PROGRESS is guarded by the scheduled start time and triggers the
// attendance cascade; cascade failure never rolls the transition back.
func (s *SeanceService) SetStatus(ctx context.Context, id string, status models.SeanceStatus) (*models.Seance, error) {
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported status %q", status))
	}

	seance, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "seance not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load seance")
	}

	starting := status == models.SeanceStatusInProgress && seance.Status != models.SeanceStatusInProgress
	if starting {
		if time.Now().In(s.loc).Before(s.scheduledStart(seance)) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "cannot start before scheduled time")
		}
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update seance status")
	}
	seance.Status = status

	if starting {
		s.autoMarkAbsent(ctx, seance)
	}
	return seance, nil
}

// Report files a postponement report: the seance becomes REPORTED, a PENDING
// report is stored and the admins and managers are notified.
func (s *SeanceService) Report(ctx context.Context, seanceID string, req ReportSeanceRequest) (*models.SessionReportDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report payload")
	}

	seance, err := s.repo.FindByID(ctx, seanceID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "seance not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load seance")
	}
	if seance.TrainerID != req.TrainerID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "trainer is not assigned to this seance")
	}

	var suggested *time.Time
	if req.SuggestedDate != "" {
		date, err := time.ParseInLocation(dateLayout, req.SuggestedDate, s.loc)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid suggested_date")
		}
		if date.Before(s.today()) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "suggested_date must not be in the past")
		}
		suggested = &date
	}

	if err := s.repo.UpdateStatus(ctx, seance.ID, models.SeanceStatusReported); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark seance reported")
	}

	report := models.SessionReport{
		SeanceID:      seance.ID,
		TrainerID:     req.TrainerID,
		Reason:        req.Reason,
		SuggestedDate: suggested,
		ReportStatus:  models.ReportStatusPending,
	}
	if err := s.reports.Create(ctx, &report); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session report")
	}

	detail := &models.SessionReportDetail{SessionReport: report}
	if trainer, err := s.users.FindByID(ctx, req.TrainerID); err == nil {
		detail.TrainerName = trainer.FullName()
	}

	message := fmt.Sprintf("Trainer %s reported seance %q: %s", s.displayName(detail.TrainerName, req.TrainerID), seance.Title, req.Reason)
	link := "/seances/" + seance.ID
	s.notifier.NotifyRole(ctx, models.RoleAdmin, "Seance reported", message, link, models.NotificationSeanceReported)
	s.notifier.NotifyRole(ctx, models.RoleManager, "Seance reported", message, link, models.NotificationSeanceReported)

	return detail, nil
}

// ListReports returns every report ever filed against a seance, trainer
// names resolved where possible.
func (s *SeanceService) ListReports(ctx context.Context, seanceID string) ([]models.SessionReportDetail, error) {
	reports, err := s.reports.ListBySeance(ctx, seanceID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list session reports")
	}

	names := make(map[string]string)
	details := make([]models.SessionReportDetail, 0, len(reports))
	for _, report := range reports {
		detail := models.SessionReportDetail{SessionReport: report}
		name, ok := names[report.TrainerID]
		if !ok {
			if trainer, err := s.users.FindByID(ctx, report.TrainerID); err == nil {
				name = trainer.FullName()
			}
			names[report.TrainerID] = name
		}
		detail.TrainerName = name
		details = append(details, detail)
	}
	return details, nil
}

// IsTrainerAvailable reports whether the trainer is free over the interval.
// Pure read, no exclusions. A degenerate interval is never free.
func (s *SeanceService) IsTrainerAvailable(ctx context.Context, trainerID string, date time.Time, startTime, endTime string) (bool, error) {
	startTime, endTime, err := normalizeInterval(startTime, endTime)
	if err != nil {
		return false, nil
	}
	existing, err := s.repo.ListByTrainerAndDate(ctx, trainerID, date)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check trainer availability")
	}
	for i := range existing {
		if existing[i].Overlaps(startTime, endTime) {
			return false, nil
		}
	}
	return true, nil
}

func (s *SeanceService) ensureNoConflict(ctx context.Context, trainerID string, date time.Time, startTime, endTime, ignoreID string) error {
	existing, err := s.repo.ListByTrainerAndDate(ctx, trainerID, date)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check seance conflicts")
	}
	for i := range existing {
		if existing[i].ID == ignoreID {
			continue
		}
		if existing[i].Overlaps(startTime, endTime) {
			conflict := models.TrainerConflict{
				SeanceID:  existing[i].ID,
				TrainerID: existing[i].TrainerID,
				Date:      existing[i].Date,
				StartTime: existing[i].StartTime,
				EndTime:   existing[i].EndTime,
				Title:     existing[i].Title,
			}
			domainErr := &models.TrainerConflictError{
				Message:  fmt.Sprintf("trainer already booked on %s from %s to %s", date.Format(dateLayout), existing[i].StartTime, existing[i].EndTime),
				Conflict: conflict,
			}
			return appErrors.Wrap(domainErr, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, domainErr.Message)
		}
	}
	return nil
}

func (s *SeanceService) checkReferences(ctx context.Context, trainerID, trainingID, groupID string) error {
	trainer, err := s.users.FindByID(ctx, trainerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "trainer not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load trainer")
	}
	if !trainer.HasRole(models.RoleTrainer) {
		return appErrors.Clone(appErrors.ErrValidation, "user does not hold the trainer role")
	}
	if _, err := s.trainings.FindByID(ctx, trainingID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "training not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load training")
	}
	if _, err := s.groups.FindByID(ctx, groupID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}
	return nil
}

func (s *SeanceService) parseBookingDate(value string) (time.Time, error) {
	date, err := time.ParseInLocation(dateLayout, value, s.loc)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "invalid date")
	}
	if date.Before(s.today()) {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "date must not be in the past")
	}
	return date, nil
}

// normalizeClock re-formats an accepted wall-clock value to the zero-padded
// "HH:MM" form the lexical interval comparisons rely on; "8:00" becomes
// "08:00".
func normalizeClock(value string) (string, error) {
	clock, err := time.Parse(clockLayout, value)
	if err != nil {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid time %q, expected HH:MM", value))
	}
	return clock.Format(clockLayout), nil
}

func normalizeInterval(startTime, endTime string) (string, string, error) {
	start, err := normalizeClock(startTime)
	if err != nil {
		return "", "", err
	}
	end, err := normalizeClock(endTime)
	if err != nil {
		return "", "", err
	}
	if end <= start {
		return "", "", appErrors.Clone(appErrors.ErrValidation, "end_time must be after start_time")
	}
	return start, end, nil
}

func (s *SeanceService) today() time.Time {
	now := time.Now().In(s.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
}

func (s *SeanceService) scheduledStart(seance *models.Seance) time.Time {
	clock, err := time.Parse(clockLayout, seance.StartTime)
	if err != nil {
		return time.Date(seance.Date.Year(), seance.Date.Month(), seance.Date.Day(), 0, 0, 0, 0, s.loc)
	}
	return time.Date(seance.Date.Year(), seance.Date.Month(), seance.Date.Day(), clock.Hour(), clock.Minute(), 0, 0, s.loc)
}

// autoMarkAbsent marks every student of the seance's group ABSENT for the
// started session. Failures are logged and never surfaced: the status change
// has already been committed.
func (s *SeanceService) autoMarkAbsent(ctx context.Context, seance *models.Seance) {
	group, err := s.groups.FindByID(ctx, seance.GroupID)
	if err != nil {
		s.logger.Error("attendance cascade skipped, group lookup failed",
			zap.String("seance_id", seance.ID),
			zap.String("group_id", seance.GroupID),
			zap.Error(err))
		return
	}
	if len(group.StudentIDs) == 0 {
		return
	}

	records := make([]models.AttendanceRecord, 0, len(group.StudentIDs))
	for _, studentID := range group.StudentIDs {
		records = append(records, models.AttendanceRecord{StudentID: studentID, Status: models.AttendanceStatusAbsent})
	}
	req := models.AttendanceMarkRequest{
		TrainingID: seance.TrainingID,
		SessionID:  seance.SessionID,
		Date:       seance.Date,
		Records:    records,
	}
	if err := s.attendance.Mark(ctx, req); err != nil {
		s.logger.Error("attendance cascade failed",
			zap.String("seance_id", seance.ID),
			zap.String("group_id", seance.GroupID),
			zap.Error(err))
	}
}

func (s *SeanceService) enrich(ctx context.Context, seance models.Seance) *models.SeanceDetail {
	detail := &models.SeanceDetail{Seance: seance}
	if training, err := s.trainings.FindByID(ctx, seance.TrainingID); err == nil {
		detail.TrainingTitle = training.Title
	}
	if group, err := s.groups.FindByID(ctx, seance.GroupID); err == nil {
		detail.GroupName = group.Name
	}
	if trainer, err := s.users.FindByID(ctx, seance.TrainerID); err == nil {
		detail.TrainerName = trainer.FullName()
	}
	return detail
}

func (s *SeanceService) displayName(name, fallback string) string {
	if name != "" {
		return name
	}
	return fallback
}
