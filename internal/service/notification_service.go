package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/roster-api/internal/models"
	appErrors "github.com/noah-isme/roster-api/pkg/errors"
	"github.com/noah-isme/roster-api/pkg/jobs"
)

// NotificationJobType tags dispatch jobs on the notification queue.
const NotificationJobType = "notification.dispatch"

type notificationStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, notification *models.Notification) (int64, error)
	FindByID(ctx context.Context, id int64) (*models.Notification, error)
	ListByTeacher(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error)
}

type notificationTeacherStore interface {
	FindByID(ctx context.Context, id int64) (*models.Teacher, error)
}

type recipientResolver interface {
	GetNotificationRecipients(ctx context.Context, teacherEmail, text string) ([]string, error)
}

type jobDispatcher interface {
	Enqueue(ctx context.Context, job jobs.Job) (string, error)
}

// CreateNotificationRequest is the payload for sending a notification.
type CreateNotificationRequest struct {
	Title   string `json:"title" validate:"required,max=255"`
	Content string `json:"content" validate:"required"`
}

// NotificationService stores notifications and hands them to the dispatch
// queue.
type NotificationService struct {
	repo      notificationStore
	queue     jobDispatcher
	validator *validator.Validate
	logger    *zap.Logger
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(repo notificationStore, queue jobDispatcher, validate *validator.Validate, logger *zap.Logger) *NotificationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{repo: repo, queue: queue, validator: validate, logger: logger}
}

// Create persists a notification from the teacher and enqueues its dispatch.
func (s *NotificationService) Create(ctx context.Context, teacherID int64, req CreateNotificationRequest) (*models.NotificationReceipt, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid notification payload")
	}

	notification := &models.Notification{TeacherID: teacherID, Title: req.Title, Content: req.Content}
	if _, err := s.repo.Create(ctx, nil, notification); err != nil {
		logUnexpected(s.logger, "create notification failed", err, zap.Int64("teacher_id", teacherID))
		return nil, err
	}
	return s.dispatch(ctx, notification)
}

// Redispatch enqueues another delivery of a stored notification.
func (s *NotificationService) Redispatch(ctx context.Context, id int64) (*models.NotificationReceipt, error) {
	notification, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.dispatch(ctx, notification)
}

// Get returns a notification by id.
func (s *NotificationService) Get(ctx context.Context, id int64) (*models.Notification, error) {
	notification, err := s.repo.FindByID(ctx, id)
	if err != nil {
		logUnexpected(s.logger, "get notification failed", err, zap.Int64("notification_id", id))
		return nil, err
	}
	if notification == nil {
		return nil, appErrors.NotFound("notification", "id", id)
	}
	return notification, nil
}

// ListByTeacher pages through the notifications a teacher sent.
func (s *NotificationService) ListByTeacher(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, *models.Pagination, error) {
	items, total, err := s.repo.ListByTeacher(ctx, filter)
	if err != nil {
		logUnexpected(s.logger, "list notifications failed", err, zap.Int64("teacher_id", filter.TeacherID))
		return nil, nil, err
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return items, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

func (s *NotificationService) dispatch(ctx context.Context, notification *models.Notification) (*models.NotificationReceipt, error) {
	jobID, err := s.queue.Enqueue(ctx, jobs.Job{Type: NotificationJobType, Payload: notification.ID})
	if err != nil {
		s.logger.Error("failed to enqueue notification dispatch", zap.Int64("notification_id", notification.ID), zap.Error(err))
		return nil, appErrors.Unknown(err, "enqueue notification dispatch")
	}
	return &models.NotificationReceipt{Notification: *notification, DispatchJobID: jobID}, nil
}

// NotificationWorker delivers queued notifications to their recipients.
// Delivery is recorded in the log; there is no outbound channel.
type NotificationWorker struct {
	notifications notificationStore
	teachers      notificationTeacherStore
	recipients    recipientResolver
	metrics       *MetricsService
	logger        *zap.Logger
}

// NewNotificationWorker constructs a worker.
func NewNotificationWorker(notifications notificationStore, teachers notificationTeacherStore, recipients recipientResolver, metrics *MetricsService, logger *zap.Logger) *NotificationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationWorker{
		notifications: notifications,
		teachers:      teachers,
		recipients:    recipients,
		metrics:       metrics,
		logger:        logger,
	}
}

// Handle processes a queue job.
func (w *NotificationWorker) Handle(ctx context.Context, job jobs.Job) error {
	id, ok := job.Payload.(int64)
	if !ok {
		w.metrics.RecordDispatch("invalid", 0)
		w.logger.Error("notification job without id", zap.String("job_id", job.ID), zap.Any("payload", job.Payload))
		return nil
	}

	notification, err := w.notifications.FindByID(ctx, id)
	if err != nil {
		return w.retry(job, err)
	}
	if notification == nil {
		// Deleted with its teacher before the job ran.
		w.metrics.RecordDispatch("skipped", 0)
		w.logger.Warn("notification vanished before dispatch", zap.String("job_id", job.ID), zap.Int64("notification_id", id))
		return nil
	}

	teacher, err := w.teachers.FindByID(ctx, notification.TeacherID)
	if err != nil {
		return w.retry(job, err)
	}
	if teacher == nil {
		w.metrics.RecordDispatch("skipped", 0)
		return nil
	}

	recipients, err := w.recipients.GetNotificationRecipients(ctx, teacher.Email, notification.Content)
	if err != nil {
		return w.retry(job, err)
	}
	for _, email := range recipients {
		w.logger.Info("notification delivered",
			zap.String("job_id", job.ID),
			zap.Int64("notification_id", notification.ID),
			zap.String("teacher", teacher.Email),
			zap.String("recipient", email),
		)
	}
	w.metrics.RecordDispatch("delivered", len(recipients))
	return nil
}

func (w *NotificationWorker) retry(job jobs.Job, err error) error {
	w.metrics.RecordDispatch("failed", 0)
	return fmt.Errorf("dispatch notification job %s: %w", job.ID, err)
}
