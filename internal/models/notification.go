package models

import "time"

// Notification is a message a teacher sent to its students.
type Notification struct {
	ID        int64     `db:"id" json:"id"`
	TeacherID int64     `db:"teacher_id" json:"teacher_id"`
	Title     string    `db:"title" json:"title"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// NotificationFilter pages through a teacher's notifications.
type NotificationFilter struct {
	TeacherID int64
	Page      int
	PageSize  int
}

// NotificationReceipt acknowledges a stored notification and its queued
// dispatch.
type NotificationReceipt struct {
	Notification
	DispatchJobID string `json:"dispatch_job_id"`
}
