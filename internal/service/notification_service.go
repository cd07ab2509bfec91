package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/astba/training-api/internal/models"
	appErrors "github.com/astba/training-api/pkg/errors"
	"github.com/astba/training-api/pkg/jobs"
)

type notificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByUser(ctx context.Context, userID string) ([]models.Notification, error)
	ListUnreadByUser(ctx context.Context, userID string) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) error
}

type roleDirectory interface {
	ListActiveByRole(ctx context.Context, role models.UserRole) ([]models.User, error)
}

// NotificationService delivers in-app notifications. Dispatch goes through a
// background queue so a slow or failing store never blocks the caller; when
// the queue is not running, persistence happens inline.
type NotificationService struct {
	repo   notificationRepository
	users  roleDirectory
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewNotificationService instantiates NotificationService with its own
// dispatch queue. Call Start before serving traffic and Stop on shutdown.
func NewNotificationService(repo notificationRepository, users roleDirectory, cfg jobs.QueueConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger
	}
	s := &NotificationService{repo: repo, users: users, logger: logger}
	s.queue = jobs.NewQueue("notifications", s.persistJob, cfg)
	return s
}

// Start launches the dispatch workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the dispatch workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

func (s *NotificationService) persistJob(ctx context.Context, job jobs.Job) error {
	notification, ok := job.Payload.(models.Notification)
	if !ok {
		return fmt.Errorf("unexpected notification payload %T", job.Payload)
	}
	return s.repo.Create(ctx, &notification)
}

// NotifyUser sends an in-app notification to a single user. Failures are
// logged, never returned: dispatch is fire-and-forget from the caller's view.
func (s *NotificationService) NotifyUser(ctx context.Context, userID, title, message, link string, category models.NotificationCategory) {
	notification := models.Notification{
		ID:       uuid.NewString(),
		UserID:   userID,
		Title:    title,
		Message:  message,
		Link:     link,
		Category: category,
	}

	err := s.queue.Enqueue(jobs.Job{ID: notification.ID, Type: "notification.persist", Payload: notification})
	if err == nil {
		return
	}
	if err := s.repo.Create(ctx, &notification); err != nil {
		s.logger.Warn("notification dropped",
			zap.String("user_id", userID),
			zap.String("category", string(category)),
			zap.Error(err))
	}
}

// NotifyRole fans a notification out to every active user holding the role.
func (s *NotificationService) NotifyRole(ctx context.Context, role models.UserRole, title, message, link string, category models.NotificationCategory) {
	users, err := s.users.ListActiveByRole(ctx, role)
	if err != nil {
		s.logger.Warn("role notification skipped",
			zap.String("role", string(role)),
			zap.Error(err))
		return
	}
	for _, user := range users {
		s.NotifyUser(ctx, user.ID, title, message, link, category)
	}
}

// ListForUser returns all notifications addressed to the user.
func (s *NotificationService) ListForUser(ctx context.Context, userID string) ([]models.Notification, error) {
	notifications, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	return notifications, nil
}

// UnreadResult pairs unread notifications with their count.
type UnreadResult struct {
	Count         int                   `json:"count"`
	Notifications []models.Notification `json:"notifications"`
}

// ListUnread returns the user's unread notifications and their count.
func (s *NotificationService) ListUnread(ctx context.Context, userID string) (*UnreadResult, error) {
	notifications, err := s.repo.ListUnreadByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list unread notifications")
	}
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count unread notifications")
	}
	return &UnreadResult{Count: count, Notifications: notifications}, nil
}

// MarkRead marks one of the user's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	if err := s.repo.MarkRead(ctx, id, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	return nil
}

// MarkAllRead marks every unread notification of the user as read.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	if err := s.repo.MarkAllRead(ctx, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notifications read")
	}
	return nil
}
