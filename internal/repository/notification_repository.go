package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/roster-api/internal/models"
	appErrors "github.com/noah-isme/roster-api/pkg/errors"
)

const notificationColumns = "id, teacher_id, title, content, created_at, updated_at"

// NotificationRepository persists notifications sent by teachers.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create stores a notification. The sending teacher must exist.
func (r *NotificationRepository) Create(ctx context.Context, exec sqlx.ExtContext, notification *models.Notification) (int64, error) {
	target := exec
	if target == nil {
		target = r.db
	}

	ok, err := rowExists(ctx, target, "teachers", notification.TeacherID)
	if err != nil {
		return 0, translate(err, "notification", "check notification sender")
	}
	if !ok {
		return 0, appErrors.NotFound("teacher", "id", notification.TeacherID)
	}

	now := time.Now().UTC()
	notification.CreatedAt = now
	notification.UpdatedAt = now

	const query = `INSERT INTO notifications (teacher_id, title, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if err := sqlx.GetContext(ctx, target, &notification.ID, query,
		notification.TeacherID, notification.Title, notification.Content, notification.CreatedAt, notification.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, appErrors.MalformedResponse("notification", "create notification")
		}
		return 0, translate(err, "notification", "create notification")
	}
	return notification.ID, nil
}

// FindByID fetches a notification, returning nil when absent.
func (r *NotificationRepository) FindByID(ctx context.Context, id int64) (*models.Notification, error) {
	query := "SELECT " + notificationColumns + " FROM notifications WHERE id = $1"
	notification, err := findOne[models.Notification](ctx, r.db, query, id)
	if err != nil {
		return nil, translate(err, "notification", "find notification")
	}
	return notification, nil
}

// ListByTeacher pages through a teacher's notifications, newest first.
func (r *NotificationRepository) ListByTeacher(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	size, offset := pageBounds(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s FROM notifications WHERE teacher_id = $1 ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d",
		notificationColumns, size, offset)
	notifications := []models.Notification{}
	if err := r.db.SelectContext(ctx, &notifications, query, filter.TeacherID); err != nil {
		return nil, 0, translate(err, "notification", "list notifications")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM notifications WHERE teacher_id = $1", filter.TeacherID); err != nil {
		return nil, 0, translate(err, "notification", "count notifications")
	}
	return notifications, total, nil
}
